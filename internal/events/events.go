// Package events publishes operation lifecycle notifications. Each event is
// inserted into the operation_events table through the Supabase data API;
// realtime subscribers on that table observe every insert. Publishing is
// fire and forget: a delivery failure never affects the transformation
// response.
package events

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/supabase-community/supabase-go"
)

const eventsTable = "operation_events"

type Publisher struct {
	client *supabase.Client
}

// NewPublisher builds a publisher over the shared Supabase client. A nil
// client yields a no-op publisher, used when Supabase is not configured.
func NewPublisher(supabaseURL, key string) (*Publisher, error) {
	if supabaseURL == "" {
		return &Publisher{}, nil
	}
	client, err := supabase.NewClient(supabaseURL, key, &supabase.ClientOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize supabase client: %w", err)
	}
	return &Publisher{client: client}, nil
}

// eventRow is the persisted shape of one notification.
type eventRow struct {
	OperationID string                 `json:"operation_id"`
	Channel     string                 `json:"channel"`
	Event       string                 `json:"event"`
	Payload     map[string]interface{} `json:"payload"`
}

func (p *Publisher) PublishOperationEvent(operationID uuid.UUID, event string, payload map[string]interface{}) error {
	if p.client == nil {
		return nil
	}
	row := eventRow{
		OperationID: operationID.String(),
		Channel:     fmt.Sprintf("operation:%s", operationID.String()),
		Event:       event,
		Payload:     payload,
	}
	if _, _, err := p.client.From(eventsTable).Insert(row, false, "", "", "").Execute(); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", event, err)
	}
	return nil
}

// Event payloads.

func StartedPayload(operationID uuid.UUID, domain, tool string) map[string]interface{} {
	return map[string]interface{}{
		"operation_id": operationID.String(),
		"domain":       domain,
		"tool":         tool,
		"status":       "processing",
	}
}

func CompletedPayload(operationID uuid.UUID, targetType string, resultSize int64) map[string]interface{} {
	return map[string]interface{}{
		"operation_id": operationID.String(),
		"status":       "completed",
		"target_type":  targetType,
		"result_size":  resultSize,
	}
}

func FailedPayload(operationID uuid.UUID, reason string) map[string]interface{} {
	return map[string]interface{}{
		"operation_id": operationID.String(),
		"status":       "failed",
		"reason":       reason,
	}
}
