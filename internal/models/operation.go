package models

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Operation kinds.
const (
	KindConversion = "conversion"
	KindUpscale    = "upscale"
)

// Operation statuses. Records are append-only; the only permitted mutation
// is the pending -> completed|failed transition, performed by the owning
// request.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusPending   = "pending"
)

// Operation is one transformation attempt. UserID is null for anonymous
// callers; StorageRef is null when the result was never persisted (storage
// failure, or a non-persisting tool) and holds either "inline:<id>" or an
// absolute object-store URL otherwise.
type Operation struct {
	ID            uuid.UUID      `json:"id"`
	UserID        uuid.NullUUID  `json:"user_id,omitempty"`
	Kind          string         `json:"kind"`
	SourceName    string         `json:"source_name"`
	SourceSize    int64          `json:"source_size"`
	TargetType    string         `json:"target_type"`
	ResultSize    sql.NullInt64  `json:"result_size,omitempty"`
	Status        string         `json:"status"`
	StorageRef    sql.NullString `json:"storage_ref,omitempty"`
	UpscaleFactor sql.NullInt64  `json:"upscale_factor,omitempty"`
	DropLinkID    uuid.NullUUID  `json:"drop_link_id,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}
