package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/unsikalab/tesonline-backend/internal/clock"
	"github.com/unsikalab/tesonline-backend/internal/model"
	"github.com/unsikalab/tesonline-backend/internal/repository"
)

// Attempt lifecycle errors.
var (
	ErrScheduleNotOpen       = errors.New("schedule is not open for attempts")
	ErrRegistrationRequired  = errors.New("participant is not registered for this schedule")
	ErrAttemptNotFound       = errors.New("attempt not found")
	ErrAttemptCompleted      = errors.New("attempt is already completed")
	ErrAttemptNotInProgress  = errors.New("attempt is not in progress")
	ErrAttemptNotInterrupted = errors.New("attempt is not interrupted")
	ErrResumeNotAuthorized   = errors.New("resume has not been authorized")
)

// attemptStore is the persistence surface the lifecycle engine needs.
// *repository.AttemptRepository satisfies it; tests provide an in-memory fake.
type attemptStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Attempt, error)
	GetByScheduleAndParticipant(ctx context.Context, scheduleID uuid.UUID, participantID int) (*model.Attempt, error)
	Start(ctx context.Context, scheduleID uuid.UUID, participantID int, now time.Time, durationSeconds int64) (*model.Attempt, error)
	Heartbeat(ctx context.Context, id uuid.UUID, now time.Time, remainingSeconds int64) error
	Interrupt(ctx context.Context, id uuid.UUID, now time.Time, reason string, remainingSeconds int64) (*model.Attempt, error)
	AuthorizeResume(ctx context.Context, id uuid.UUID, authorizerID int, now time.Time) (*model.Attempt, error)
	Resume(ctx context.Context, id uuid.UUID, now time.Time, pausedSeconds int64) (*model.Attempt, error)
	Complete(ctx context.Context, id uuid.UUID, now time.Time, auto bool, reason model.SubmitReason, remainingSeconds int64) (*model.Attempt, error)
	ListBySchedule(ctx context.Context, scheduleID uuid.UUID) ([]model.Attempt, error)
	ListByParticipant(ctx context.Context, participantID int) ([]model.Attempt, error)
}

type scheduleStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Schedule, error)
}

type registrationStore interface {
	IsApproved(ctx context.Context, scheduleID uuid.UUID, participantID int) (bool, error)
}

type eventPublisher interface {
	Publish(ctx context.Context, ev ScheduleEvent)
}

// AttemptService drives the attempt state machine and all remaining-time
// accounting. Every mutation goes through a guarded transition in the
// store, so concurrent requests for the same attempt settle on one winner.
type AttemptService struct {
	attempts      attemptStore
	schedules     scheduleStore
	registrations registrationStore
	events        eventPublisher
	clk           clock.Clock
	log           zerolog.Logger
}

// NewAttemptService creates a new AttemptService.
func NewAttemptService(
	attempts attemptStore,
	schedules scheduleStore,
	registrations registrationStore,
	events eventPublisher,
	clk clock.Clock,
	log zerolog.Logger,
) *AttemptService {
	return &AttemptService{
		attempts:      attempts,
		schedules:     schedules,
		registrations: registrations,
		events:        events,
		clk:           clk,
		log:           log.With().Str("component", "attempt_service").Logger(),
	}
}

// Remaining computes the live budget for an attempt. The anchor is always
// started_at: heartbeats never shift it, so a burst of delayed heartbeats
// lands on the same answer as a single on-time one. The schedule's closing
// time caps the result so an attempt can never outlive its window.
func (s *AttemptService) Remaining(a *model.Attempt, sched *model.Schedule, now time.Time) int64 {
	switch a.State {
	case model.AttemptStateCompleted:
		return 0
	case model.AttemptStateInterrupted:
		// Frozen at the interrupt instant.
		return a.RemainingSeconds
	}

	remaining := model.RemainingSeconds(*a.StartedAt, now, a.TotalPausedSeconds, sched.DurationSeconds)
	if untilClose := int64(sched.ClosesAt.Sub(now) / time.Second); untilClose < remaining {
		if untilClose < 0 {
			return 0
		}
		return untilClose
	}
	return remaining
}

// Start begins (or re-enters) the participant's attempt for a schedule.
// Repeated calls are idempotent: an existing live attempt is returned as-is
// with its original anchor, never restarted.
func (s *AttemptService) Start(ctx context.Context, scheduleID uuid.UUID, participantID int) (*model.Attempt, error) {
	now := s.clk.Now()

	sched, err := s.schedules.GetByID(ctx, scheduleID)
	if err != nil {
		return nil, fmt.Errorf("get schedule: %w", err)
	}
	if sched.Status != model.ScheduleStatusOpen || !sched.WindowCovers(now) {
		return nil, ErrScheduleNotOpen
	}

	approved, err := s.registrations.IsApproved(ctx, scheduleID, participantID)
	if err != nil {
		return nil, fmt.Errorf("check registration: %w", err)
	}
	if !approved {
		return nil, ErrRegistrationRequired
	}

	existing, err := s.attempts.GetByScheduleAndParticipant(ctx, scheduleID, participantID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("check existing attempt: %w", err)
	}
	if existing != nil {
		if existing.State == model.AttemptStateCompleted {
			return nil, ErrAttemptCompleted
		}
		return existing, nil
	}

	attempt, err := s.attempts.Start(ctx, scheduleID, participantID, now, sched.DurationSeconds)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Concurrent start: the other request inserted the row first.
			attempt, fetchErr := s.attempts.GetByScheduleAndParticipant(ctx, scheduleID, participantID)
			if fetchErr != nil {
				return nil, fmt.Errorf("concurrent start detected, but fetch failed: %w", fetchErr)
			}
			return attempt, nil
		}
		return nil, fmt.Errorf("start attempt: %w", err)
	}

	s.events.Publish(ctx, ScheduleEvent{
		Type:          EventAttemptStarted,
		ScheduleID:    scheduleID,
		AttemptID:     attempt.ID,
		ParticipantID: participantID,
		At:            now,
	})

	return attempt, nil
}

// HeartbeatResult is what a heartbeat answers with.
type HeartbeatResult struct {
	Attempt          *model.Attempt `json:"attempt"`
	RemainingSeconds int64          `json:"remaining_seconds"`
	ServerTime       time.Time      `json:"server_time"`
}

// Heartbeat records liveness and answers with the recomputed budget. On an
// exhausted budget it auto-submits with reason timeout. Heartbeats against a
// completed attempt change nothing and echo the final state, so clients with
// a stale timer converge instead of erroring.
func (s *AttemptService) Heartbeat(ctx context.Context, scheduleID uuid.UUID, participantID int) (*HeartbeatResult, error) {
	now := s.clk.Now()

	attempt, sched, err := s.load(ctx, scheduleID, participantID)
	if err != nil {
		return nil, err
	}

	if attempt.State == model.AttemptStateCompleted {
		return &HeartbeatResult{Attempt: attempt, RemainingSeconds: 0, ServerTime: now}, nil
	}

	remaining := s.Remaining(attempt, sched, now)

	if attempt.State == model.AttemptStateInProgress && remaining <= 0 {
		completed, err := s.complete(ctx, attempt, sched, now, true, model.SubmitReasonTimeout)
		if err != nil {
			return nil, err
		}
		return &HeartbeatResult{Attempt: completed, RemainingSeconds: 0, ServerTime: now}, nil
	}

	if err := s.attempts.Heartbeat(ctx, attempt.ID, now, remaining); err != nil {
		return nil, fmt.Errorf("record heartbeat: %w", err)
	}
	attempt.LastActiveAt = &now
	if attempt.State == model.AttemptStateInProgress {
		attempt.RemainingSeconds = remaining
	}

	return &HeartbeatResult{Attempt: attempt, RemainingSeconds: remaining, ServerTime: now}, nil
}

// Interrupt freezes an in-progress attempt, snapshotting its remaining
// budget at this instant. The attempt stays locked until a supervisor
// authorizes a resume or the participant submits what they have.
func (s *AttemptService) Interrupt(ctx context.Context, scheduleID uuid.UUID, participantID int, reason string) (*model.Attempt, error) {
	now := s.clk.Now()

	attempt, sched, err := s.load(ctx, scheduleID, participantID)
	if err != nil {
		return nil, err
	}

	switch attempt.State {
	case model.AttemptStateCompleted:
		return nil, ErrAttemptCompleted
	case model.AttemptStateInterrupted:
		// Duplicate report, the freeze already happened.
		return attempt, nil
	}

	remaining := s.Remaining(attempt, sched, now)
	frozen, err := s.attempts.Interrupt(ctx, attempt.ID, now, reason, remaining)
	if err != nil {
		if errors.Is(err, repository.ErrTransitionConflict) {
			// Lost the race against a submit or another interrupt; re-read.
			return s.attempts.GetByID(ctx, attempt.ID)
		}
		return nil, fmt.Errorf("interrupt attempt: %w", err)
	}

	s.events.Publish(ctx, ScheduleEvent{
		Type:          EventAttemptInterrupted,
		ScheduleID:    scheduleID,
		AttemptID:     frozen.ID,
		ParticipantID: participantID,
		Detail:        reason,
		At:            now,
	})

	s.log.Info().
		Str("attempt_id", frozen.ID.String()).
		Str("reason", reason).
		Int64("remaining_seconds", remaining).
		Msg("attempt interrupted")

	return frozen, nil
}

// AuthorizeResume clears an interrupted attempt to continue. Supervisor-only;
// the participant still has to call Resume to actually restart the timer.
func (s *AttemptService) AuthorizeResume(ctx context.Context, attemptID uuid.UUID, adminID int) (*model.Attempt, error) {
	now := s.clk.Now()

	attempt, err := s.attempts.GetByID(ctx, attemptID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("get attempt: %w", err)
	}
	if attempt.State != model.AttemptStateInterrupted {
		return nil, ErrAttemptNotInterrupted
	}

	authorized, err := s.attempts.AuthorizeResume(ctx, attemptID, adminID, now)
	if err != nil {
		if errors.Is(err, repository.ErrTransitionConflict) {
			return nil, ErrAttemptNotInterrupted
		}
		return nil, fmt.Errorf("authorize resume: %w", err)
	}

	s.events.Publish(ctx, ScheduleEvent{
		Type:          EventResumeAuthorized,
		ScheduleID:    authorized.ScheduleID,
		AttemptID:     authorized.ID,
		ParticipantID: authorized.ParticipantID,
		At:            now,
	})

	return authorized, nil
}

// Resume continues an interrupted attempt. Requires prior authorization. The
// pause between interrupt and resume is credited to total_paused_seconds so
// the participant gets back exactly the budget they had when frozen; the
// anchor itself never moves.
func (s *AttemptService) Resume(ctx context.Context, scheduleID uuid.UUID, participantID int) (*model.Attempt, error) {
	now := s.clk.Now()

	attempt, sched, err := s.load(ctx, scheduleID, participantID)
	if err != nil {
		return nil, err
	}

	switch attempt.State {
	case model.AttemptStateCompleted:
		return nil, ErrAttemptCompleted
	case model.AttemptStateInProgress:
		// Duplicate resume, already running.
		return attempt, nil
	}
	if !attempt.Resumable {
		return nil, ErrResumeNotAuthorized
	}
	if sched.Status != model.ScheduleStatusOpen || !sched.WindowCovers(now) {
		return nil, ErrScheduleNotOpen
	}

	var pausedSeconds int64
	if attempt.InterruptedAt != nil {
		pausedSeconds = int64(now.Sub(*attempt.InterruptedAt) / time.Second)
		if pausedSeconds < 0 {
			pausedSeconds = 0
		}
	}

	resumed, err := s.attempts.Resume(ctx, attempt.ID, now, pausedSeconds)
	if err != nil {
		if errors.Is(err, repository.ErrTransitionConflict) {
			return nil, ErrResumeNotAuthorized
		}
		return nil, fmt.Errorf("resume attempt: %w", err)
	}

	s.events.Publish(ctx, ScheduleEvent{
		Type:          EventAttemptResumed,
		ScheduleID:    scheduleID,
		AttemptID:     resumed.ID,
		ParticipantID: participantID,
		At:            now,
	})

	return resumed, nil
}

// Submit finalizes the attempt by participant request. Works from both live
// states; an interrupted participant may submit what they have instead of
// waiting for a resume. Repeated submits settle on the first result.
func (s *AttemptService) Submit(ctx context.Context, scheduleID uuid.UUID, participantID int) (*model.Attempt, error) {
	now := s.clk.Now()

	attempt, sched, err := s.load(ctx, scheduleID, participantID)
	if err != nil {
		return nil, err
	}
	if attempt.State == model.AttemptStateCompleted {
		// Idempotent: echo the settled result.
		return attempt, nil
	}

	return s.complete(ctx, attempt, sched, now, false, model.SubmitReasonManual)
}

// ForceSubmit completes an attempt because of a violation. Called by the
// violation pipeline, never by the participant.
func (s *AttemptService) ForceSubmit(ctx context.Context, attemptID uuid.UUID) (*model.Attempt, error) {
	now := s.clk.Now()

	attempt, err := s.attempts.GetByID(ctx, attemptID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("get attempt: %w", err)
	}
	if attempt.State == model.AttemptStateCompleted {
		return attempt, nil
	}

	sched, err := s.schedules.GetByID(ctx, attempt.ScheduleID)
	if err != nil {
		return nil, fmt.Errorf("get schedule: %w", err)
	}

	return s.complete(ctx, attempt, sched, now, true, model.SubmitReasonViolation)
}

// complete runs the guarded transition to COMPLETED, treating a conflict as
// "someone else already settled it" and answering with the stored row.
func (s *AttemptService) complete(ctx context.Context, attempt *model.Attempt, sched *model.Schedule, now time.Time, auto bool, reason model.SubmitReason) (*model.Attempt, error) {
	remaining := s.Remaining(attempt, sched, now)

	completed, err := s.attempts.Complete(ctx, attempt.ID, now, auto, reason, remaining)
	if err != nil {
		if errors.Is(err, repository.ErrTransitionConflict) {
			return s.attempts.GetByID(ctx, attempt.ID)
		}
		return nil, fmt.Errorf("complete attempt: %w", err)
	}

	s.events.Publish(ctx, ScheduleEvent{
		Type:          EventAttemptSubmitted,
		ScheduleID:    completed.ScheduleID,
		AttemptID:     completed.ID,
		ParticipantID: completed.ParticipantID,
		Detail:        string(reason),
		At:            now,
	})

	s.log.Info().
		Str("attempt_id", completed.ID.String()).
		Str("reason", string(reason)).
		Bool("auto", auto).
		Msg("attempt completed")

	return completed, nil
}

// StateSnapshot is the reload-recovery view of one attempt: its row, the
// live remaining budget, and the server clock the budget was computed at.
type StateSnapshot struct {
	Attempt          *model.Attempt
	RemainingSeconds int64
	ServerTime       time.Time
}

// GetState answers the reload-recovery question: which state is my attempt
// in and how much time is actually left, computed fresh from the anchor.
func (s *AttemptService) GetState(ctx context.Context, scheduleID uuid.UUID, participantID int) (*StateSnapshot, error) {
	now := s.clk.Now()

	attempt, sched, err := s.load(ctx, scheduleID, participantID)
	if err != nil {
		return nil, err
	}

	return &StateSnapshot{
		Attempt:          attempt,
		RemainingSeconds: s.Remaining(attempt, sched, now),
		ServerTime:       now.UTC(),
	}, nil
}

// GetByID fetches one attempt for supervisor views.
func (s *AttemptService) GetByID(ctx context.Context, attemptID uuid.UUID) (*model.Attempt, error) {
	attempt, err := s.attempts.GetByID(ctx, attemptID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAttemptNotFound
		}
		return nil, err
	}
	return attempt, nil
}

// ListBySchedule lists every attempt of a schedule for supervisor views.
func (s *AttemptService) ListBySchedule(ctx context.Context, scheduleID uuid.UUID) ([]model.Attempt, error) {
	return s.attempts.ListBySchedule(ctx, scheduleID)
}

// VerifyActive checks that the participant's attempt still accepts answers.
// Interrupted attempts qualify: a client that dropped offline mid-save may
// flush its buffered answers before it resumes.
func (s *AttemptService) VerifyActive(ctx context.Context, scheduleID uuid.UUID, participantID int) (*model.Attempt, error) {
	attempt, _, err := s.load(ctx, scheduleID, participantID)
	if err != nil {
		return nil, err
	}
	if !attempt.State.Active() {
		if attempt.State == model.AttemptStateCompleted {
			return nil, ErrAttemptCompleted
		}
		return nil, ErrAttemptNotInProgress
	}
	return attempt, nil
}

func (s *AttemptService) load(ctx context.Context, scheduleID uuid.UUID, participantID int) (*model.Attempt, *model.Schedule, error) {
	attempt, err := s.attempts.GetByScheduleAndParticipant(ctx, scheduleID, participantID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, ErrAttemptNotFound
		}
		return nil, nil, fmt.Errorf("get attempt: %w", err)
	}

	sched, err := s.schedules.GetByID(ctx, scheduleID)
	if err != nil {
		return nil, nil, fmt.Errorf("get schedule: %w", err)
	}

	return attempt, sched, nil
}
