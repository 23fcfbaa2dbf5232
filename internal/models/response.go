package models

import "time"

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Field   string `json:"field,omitempty"`
}

type OperationResponse struct {
	ID            string    `json:"operation_id"`
	Kind          string    `json:"kind"`
	SourceName    string    `json:"source_name"`
	SourceSize    int64     `json:"source_size"`
	TargetType    string    `json:"target_type"`
	ResultSize    int64     `json:"result_size"`
	Status        string    `json:"status"`
	StorageRef    string    `json:"storage_ref,omitempty"`
	UpscaleFactor int64     `json:"upscale_factor,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

type OperationListResponse struct {
	Operations []OperationResponse `json:"operations"`
}

type DeleteResponse struct {
	ID      string `json:"operation_id"`
	Deleted bool   `json:"deleted"`
}

type HealthResponse struct {
	Status string `json:"status"`
}
