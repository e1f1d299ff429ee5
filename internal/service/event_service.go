package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/unsikalab/tesonline-backend/internal/config"
)

// Lifecycle event types pushed to the schedule monitor channel.
const (
	EventAttemptStarted     = "attempt_started"
	EventAttemptHeartbeat   = "attempt_heartbeat"
	EventAttemptInterrupted = "attempt_interrupted"
	EventResumeAuthorized   = "resume_authorized"
	EventAttemptResumed     = "attempt_resumed"
	EventAttemptSubmitted   = "attempt_submitted"
	EventViolationReported  = "violation_reported"
)

// ScheduleEvent is one monitor-stream message. Supervisors watching a
// schedule receive these over SSE in publish order.
type ScheduleEvent struct {
	Type          string    `json:"type"`
	ScheduleID    uuid.UUID `json:"schedule_id"`
	AttemptID     uuid.UUID `json:"attempt_id,omitempty"`
	ParticipantID int       `json:"participant_id,omitempty"`
	Detail        string    `json:"detail,omitempty"`
	At            time.Time `json:"at"`
}

// EventService fans lifecycle events out to supervisors via Redis Pub/Sub.
// Publishing is best-effort: a dropped event never fails the operation
// that produced it.
type EventService struct {
	rdb *redis.Client
	log zerolog.Logger
}

// NewEventService creates a new EventService.
func NewEventService(rdb *redis.Client, log zerolog.Logger) *EventService {
	return &EventService{
		rdb: rdb,
		log: log.With().Str("component", "event_service").Logger(),
	}
}

// Publish sends an event to the schedule's monitor channel.
func (s *EventService) Publish(ctx context.Context, ev ScheduleEvent) {
	payload, err := json.Marshal(ev)
	if err != nil {
		s.log.Error().Err(err).Str("type", ev.Type).Msg("marshal schedule event")
		return
	}

	channel := config.CacheKey.ScheduleEventChannel(ev.ScheduleID.String())
	if err := s.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		s.log.Warn().Err(err).Str("channel", channel).Msg("publish schedule event")
	}
}

// Subscribe attaches to a schedule's monitor channel. The caller owns the
// returned PubSub and must Close it.
func (s *EventService) Subscribe(ctx context.Context, scheduleID uuid.UUID) *redis.PubSub {
	return s.rdb.Subscribe(ctx, config.CacheKey.ScheduleEventChannel(scheduleID.String()))
}
