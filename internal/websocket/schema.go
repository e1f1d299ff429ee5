package websocket

import (
	"encoding/json"
	"time"
)

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionAutosave  Action = "autosave"
	ActionHeartbeat Action = "heartbeat"
	ActionInterrupt Action = "interrupt"
	ActionSubmit    Action = "submit"
	ActionViolation Action = "violation"
	ActionPing      Action = "ping"
)

// StreamRequest is the single client frame shape. Only the fields relevant
// to the declared action are read; the rest stay zero.
type StreamRequest struct {
	Action Action `json:"action"`

	// autosave
	QuestionID string    `json:"question_id,omitempty"`
	Value      string    `json:"value,omitempty"`
	ClientTS   time.Time `json:"client_ts,omitempty"`

	// interrupt
	Reason string `json:"reason,omitempty"`

	// violation
	ViolationType   string          `json:"violation_type,omitempty"`
	DetectionMethod string          `json:"detection_method,omitempty"`
	Metadata        json.RawMessage `json:"metadata,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError        Event = "error"
	EventSaved        Event = "saved"
	EventHeartbeat    Event = "heartbeat"
	EventInterrupted  Event = "interrupted"
	EventSubmitted    Event = "submitted"
	EventViolationAck Event = "violation_ack"
	EventPong         Event = "pong"
)

// SavedResponse acknowledges an autosave. Applied is false when the save
// lost last-write-wins to a newer value, which is still a success.
type SavedResponse struct {
	Event      Event  `json:"event"`
	QuestionID string `json:"question_id"`
	Applied    bool   `json:"applied"`
}

type HeartbeatResponse struct {
	Event            Event     `json:"event"`
	State            string    `json:"state"`
	RemainingSeconds int64     `json:"remaining_seconds"`
	ServerTime       time.Time `json:"server_time"`
}

type InterruptedResponse struct {
	Event            Event  `json:"event"`
	State            string `json:"state"`
	RemainingSeconds int64  `json:"remaining_seconds"`
	Resumable        bool   `json:"resumable"`
}

type SubmittedResponse struct {
	Event        Event  `json:"event"`
	State        string `json:"state"`
	SubmitReason string `json:"submit_reason,omitempty"`
}

type ViolationAckResponse struct {
	Event            Event  `json:"event"`
	ViolationID      string `json:"violation_id"`
	ForcedSubmission bool   `json:"forced_submission"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
