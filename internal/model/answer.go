package model

import (
	"time"

	"github.com/google/uuid"
)

// Answer is the latest value a participant gave for one question. At most
// one row exists per (attempt, question); newer SavedAt wins, out-of-order
// arrivals are dropped silently.
type Answer struct {
	AttemptID  uuid.UUID `json:"attempt_id"`
	QuestionID uuid.UUID `json:"question_id"`
	Value      string    `json:"value"`
	SavedAt    time.Time `json:"saved_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// SaveAnswerRequest is the payload for a single answer save. ClientTS is the
// client's capture timestamp and drives last-write-wins conflict resolution.
type SaveAnswerRequest struct {
	QuestionID uuid.UUID `json:"question_id" binding:"required"`
	Value      string    `json:"value"`
	ClientTS   time.Time `json:"client_ts" binding:"required"`
}

// SubmitAnswer is one entry of a submit payload's final answer flush.
type SubmitAnswer struct {
	QuestionID uuid.UUID `json:"question_id" binding:"required"`
	Value      string    `json:"value"`
	ClientTS   time.Time `json:"client_ts" binding:"required"`
}

// SubmitRequest is the payload for submitting an attempt.
type SubmitRequest struct {
	Answers []SubmitAnswer `json:"answers" binding:"omitempty,dive"`
}
