package model

import (
	"time"

	"github.com/google/uuid"
)

// ScheduleStatus enumerates the possible states of a schedule.
type ScheduleStatus string

const (
	ScheduleStatusOpen   ScheduleStatus = "OPEN"
	ScheduleStatusClosed ScheduleStatus = "CLOSED"
)

// ScheduleAccessMode is the per-schedule override of the system-wide
// network restriction. OFFLINE forces the origin check even when the system
// is public; ONLINE skips it even when the system is private.
type ScheduleAccessMode string

const (
	ScheduleAccessOnline  ScheduleAccessMode = "ONLINE"
	ScheduleAccessOffline ScheduleAccessMode = "OFFLINE"
)

// Schedule represents one exam sitting window.
type Schedule struct {
	ID              uuid.UUID          `json:"id"`
	Title           string             `json:"title"`
	OpensAt         time.Time          `json:"opens_at"`
	ClosesAt        time.Time          `json:"closes_at"`
	DurationSeconds int64              `json:"duration_seconds"`
	AccessMode      ScheduleAccessMode `json:"access_mode"`
	Status          ScheduleStatus     `json:"status"`
	QuestionCount   int                `json:"question_count"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

// WindowCovers reports whether now falls inside the schedule window.
func (s *Schedule) WindowCovers(now time.Time) bool {
	return !now.Before(s.OpensAt) && !now.After(s.ClosesAt)
}

// CreateScheduleRequest is the payload for creating a schedule.
type CreateScheduleRequest struct {
	Title           string    `json:"title" binding:"required,min=3,max=255"`
	OpensAt         time.Time `json:"opens_at" binding:"required"`
	ClosesAt        time.Time `json:"closes_at" binding:"required,gtfield=OpensAt"`
	DurationMinutes int       `json:"duration_minutes" binding:"required,min=1,max=480"`
	AccessMode      string    `json:"access_mode" binding:"omitempty,oneof=ONLINE OFFLINE"`
	QuestionCount   int       `json:"question_count" binding:"omitempty,min=0"`
}

// UpdateScheduleRequest is the payload for updating a schedule.
type UpdateScheduleRequest struct {
	Title           string     `json:"title" binding:"omitempty,min=3,max=255"`
	OpensAt         *time.Time `json:"opens_at" binding:"omitempty"`
	ClosesAt        *time.Time `json:"closes_at" binding:"omitempty"`
	DurationMinutes *int       `json:"duration_minutes" binding:"omitempty,min=1,max=480"`
	AccessMode      string     `json:"access_mode" binding:"omitempty,oneof=ONLINE OFFLINE"`
}

// RegistrationStatus enumerates a participant's registration state for a
// schedule. Only APPROVED registrations may start an attempt.
type RegistrationStatus string

const (
	RegistrationPending  RegistrationStatus = "PENDING"
	RegistrationApproved RegistrationStatus = "APPROVED"
	RegistrationRejected RegistrationStatus = "REJECTED"
)

// Registration links a participant to a schedule.
type Registration struct {
	ScheduleID    uuid.UUID          `json:"schedule_id"`
	ParticipantID int                `json:"participant_id"`
	Status        RegistrationStatus `json:"status"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

// LobbySchedule is a schedule as shown to a participant: the window, their
// registration status, and their attempt snapshot if one exists.
type LobbySchedule struct {
	Schedule
	RegistrationStatus *RegistrationStatus `json:"registration_status,omitempty"`
	Attempt            *Attempt            `json:"attempt,omitempty"`
	CanStart           bool                `json:"can_start"`
}
