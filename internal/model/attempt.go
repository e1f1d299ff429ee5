package model

import (
	"time"

	"github.com/google/uuid"
)

// AttemptState enumerates the lifecycle states of a test attempt.
type AttemptState string

const (
	AttemptStateNotStarted  AttemptState = "NOT_STARTED"
	AttemptStateInProgress  AttemptState = "IN_PROGRESS"
	AttemptStateInterrupted AttemptState = "INTERRUPTED"
	AttemptStateCompleted   AttemptState = "COMPLETED"
)

// Active reports whether the attempt may still receive answers.
func (s AttemptState) Active() bool {
	return s == AttemptStateInProgress || s == AttemptStateInterrupted
}

// SubmitReason records why an attempt was completed.
type SubmitReason string

const (
	SubmitReasonManual    SubmitReason = "manual"
	SubmitReasonTimeout   SubmitReason = "timeout"
	SubmitReasonViolation SubmitReason = "violation"
)

// Attempt is one participant's single run at one schedule's exam.
// There is at most one row per (participant, schedule), enforced by a
// unique constraint.
type Attempt struct {
	ID            uuid.UUID    `json:"id"`
	ScheduleID    uuid.UUID    `json:"schedule_id"`
	ParticipantID int          `json:"participant_id"`
	State         AttemptState `json:"state"`

	// StartedAt is set once when the attempt begins and is never altered
	// afterwards. All remaining-time math anchors on it.
	StartedAt    *time.Time `json:"started_at,omitempty"`
	LastActiveAt *time.Time `json:"last_active_at,omitempty"`

	// RemainingSeconds is authoritative only while IN_PROGRESS; it is
	// frozen at the instant of interruption.
	RemainingSeconds int64 `json:"remaining_seconds"`

	Resumable          bool       `json:"resumable"`
	InterruptionReason *string    `json:"interruption_reason,omitempty"`
	InterruptedAt      *time.Time `json:"interrupted_at,omitempty"`
	ResumeAuthorizedAt *time.Time `json:"resume_authorized_at,omitempty"`
	ResumeAuthorizedBy *int       `json:"resume_authorized_by,omitempty"`
	ResumedAt          *time.Time `json:"resumed_at,omitempty"`

	// TotalPausedSeconds accumulates the duration of every interruption
	// that was resumed. It only ever grows.
	TotalPausedSeconds int64 `json:"total_paused_seconds"`

	Submitted     bool          `json:"submitted"`
	AutoSubmitted bool          `json:"auto_submitted"`
	SubmitReason  *SubmitReason `json:"submit_reason,omitempty"`
	SubmittedAt   *time.Time    `json:"submitted_at,omitempty"`

	// Score is written by the grading collaborator, never by this engine.
	Score *float64 `json:"score,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StartAttemptRequest is the payload for starting an attempt.
type StartAttemptRequest struct {
	ScheduleID uuid.UUID `json:"schedule_id" binding:"required"`
}

// InterruptRequest reports a client-side interruption.
type InterruptRequest struct {
	Reason string `json:"reason" binding:"required,max=100"`
}

// AttemptStateResponse is the reload-recovery payload: everything a client
// needs to rebuild its exam page after a refresh or reconnect.
type AttemptStateResponse struct {
	Attempt          *Attempt          `json:"attempt"`
	RemainingSeconds int64             `json:"remaining_seconds"`
	SavedAnswers     map[string]string `json:"saved_answers"`
	ServerTime       time.Time         `json:"server_time"`
}
