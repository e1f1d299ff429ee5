package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Violation is one anti-cheat detection event. Rows are append-only and
// immutable once written.
type Violation struct {
	ID               uuid.UUID       `json:"id"`
	AttemptID        uuid.UUID       `json:"attempt_id"`
	ViolationType    string          `json:"violation_type"`
	DetectionMethod  string          `json:"detection_method"`
	ClientMetadata   json.RawMessage `json:"client_metadata,omitempty"`
	OccurredAt       time.Time       `json:"occurred_at"`
	ForcedSubmission bool            `json:"forced_submission"`
}

// ReportViolationRequest is the payload for the violation reporting endpoint.
type ReportViolationRequest struct {
	ViolationType   string          `json:"violation_type" binding:"required,max=100"`
	DetectionMethod string          `json:"detection_method" binding:"required,max=100"`
	Metadata        json.RawMessage `json:"metadata" binding:"omitempty"`
}
