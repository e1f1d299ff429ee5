package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/unsikalab/tesonline-backend/internal/model"
)

// ErrTransitionConflict is returned when a guarded state transition matched
// no row: either the attempt vanished or a concurrent request won the
// transition first. Callers re-read and re-decide instead of retrying blind.
var ErrTransitionConflict = errors.New("attempt transition conflict")

const attemptColumns = `id, schedule_id, participant_id, state, started_at, last_active_at,
	remaining_seconds, resumable, interruption_reason, interrupted_at,
	resume_authorized_at, resume_authorized_by, resumed_at, total_paused_seconds,
	submitted, auto_submitted, submit_reason, submitted_at, score, created_at, updated_at`

// AttemptRepository handles attempt data access. Every state transition is a
// compare-and-set UPDATE guarded on the current state so concurrent
// transitions are rejected, never merged.
type AttemptRepository struct {
	pool *pgxpool.Pool
}

// NewAttemptRepository creates a new AttemptRepository.
func NewAttemptRepository(pool *pgxpool.Pool) *AttemptRepository {
	return &AttemptRepository{pool: pool}
}

func scanAttempt(row pgx.Row) (*model.Attempt, error) {
	a := &model.Attempt{}
	err := row.Scan(
		&a.ID, &a.ScheduleID, &a.ParticipantID, &a.State, &a.StartedAt, &a.LastActiveAt,
		&a.RemainingSeconds, &a.Resumable, &a.InterruptionReason, &a.InterruptedAt,
		&a.ResumeAuthorizedAt, &a.ResumeAuthorizedBy, &a.ResumedAt, &a.TotalPausedSeconds,
		&a.Submitted, &a.AutoSubmitted, &a.SubmitReason, &a.SubmittedAt, &a.Score,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// GetByID retrieves an attempt by its UUID.
func (r *AttemptRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Attempt, error) {
	return scanAttempt(r.pool.QueryRow(ctx,
		`SELECT `+attemptColumns+` FROM attempts WHERE id = $1`, id))
}

// GetByScheduleAndParticipant retrieves the attempt for one pair.
func (r *AttemptRepository) GetByScheduleAndParticipant(ctx context.Context, scheduleID uuid.UUID, participantID int) (*model.Attempt, error) {
	return scanAttempt(r.pool.QueryRow(ctx,
		`SELECT `+attemptColumns+` FROM attempts
		 WHERE schedule_id = $1 AND participant_id = $2`, scheduleID, participantID))
}

// Start inserts the attempt row for a pair, already IN_PROGRESS. The unique
// constraint on (schedule_id, participant_id) makes concurrent starts
// collapse onto one row: the loser gets pgx.ErrNoRows and re-reads.
func (r *AttemptRepository) Start(ctx context.Context, scheduleID uuid.UUID, participantID int, now time.Time, durationSeconds int64) (*model.Attempt, error) {
	return scanAttempt(r.pool.QueryRow(ctx,
		`INSERT INTO attempts (id, schedule_id, participant_id, state, started_at,
		                       last_active_at, remaining_seconds)
		 VALUES ($1, $2, $3, $4, $5, $5, $6)
		 ON CONFLICT (schedule_id, participant_id) DO NOTHING
		 RETURNING `+attemptColumns,
		uuid.New(), scheduleID, participantID, model.AttemptStateInProgress, now, durationSeconds))
}

// Heartbeat records liveness and, while IN_PROGRESS, the freshly recomputed
// remaining budget. A heartbeat against any other state only bumps
// last_active_at.
func (r *AttemptRepository) Heartbeat(ctx context.Context, id uuid.UUID, now time.Time, remainingSeconds int64) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE attempts
		 SET last_active_at = $2,
		     remaining_seconds = CASE WHEN state = $3 THEN $4 ELSE remaining_seconds END,
		     updated_at = NOW()
		 WHERE id = $1 AND state <> $5`,
		id, now, model.AttemptStateInProgress, remainingSeconds, model.AttemptStateCompleted)
	return err
}

// Interrupt freezes the attempt. Guarded on IN_PROGRESS; the frozen
// remaining_seconds snapshot is computed by the caller at the interrupt
// instant.
func (r *AttemptRepository) Interrupt(ctx context.Context, id uuid.UUID, now time.Time, reason string, remainingSeconds int64) (*model.Attempt, error) {
	a, err := scanAttempt(r.pool.QueryRow(ctx,
		`UPDATE attempts
		 SET state = $2, interruption_reason = $3, interrupted_at = $4,
		     remaining_seconds = $5, resumable = FALSE, last_active_at = $4,
		     updated_at = NOW()
		 WHERE id = $1 AND state = $6
		 RETURNING `+attemptColumns,
		id, model.AttemptStateInterrupted, reason, now, remainingSeconds,
		model.AttemptStateInProgress))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrTransitionConflict
	}
	return a, err
}

// AuthorizeResume flags an interrupted attempt as cleared to continue.
func (r *AttemptRepository) AuthorizeResume(ctx context.Context, id uuid.UUID, authorizerID int, now time.Time) (*model.Attempt, error) {
	a, err := scanAttempt(r.pool.QueryRow(ctx,
		`UPDATE attempts
		 SET resumable = TRUE, resume_authorized_at = $2, resume_authorized_by = $3,
		     updated_at = NOW()
		 WHERE id = $1 AND state = $4
		 RETURNING `+attemptColumns,
		id, now, authorizerID, model.AttemptStateInterrupted))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrTransitionConflict
	}
	return a, err
}

// Resume moves an authorized interrupted attempt back to IN_PROGRESS and
// credits the pause. started_at is deliberately untouched.
func (r *AttemptRepository) Resume(ctx context.Context, id uuid.UUID, now time.Time, pausedSeconds int64) (*model.Attempt, error) {
	a, err := scanAttempt(r.pool.QueryRow(ctx,
		`UPDATE attempts
		 SET state = $2, resumed_at = $3, last_active_at = $3,
		     total_paused_seconds = total_paused_seconds + $4,
		     resumable = FALSE, updated_at = NOW()
		 WHERE id = $1 AND state = $5 AND resumable = TRUE
		 RETURNING `+attemptColumns,
		id, model.AttemptStateInProgress, now, pausedSeconds,
		model.AttemptStateInterrupted))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrTransitionConflict
	}
	return a, err
}

// Complete finalizes the attempt. Guarded on the two live states; a second
// completion matches no row, which the service treats as "already settled"
// and answers with the stored result.
func (r *AttemptRepository) Complete(ctx context.Context, id uuid.UUID, now time.Time, auto bool, reason model.SubmitReason, remainingSeconds int64) (*model.Attempt, error) {
	a, err := scanAttempt(r.pool.QueryRow(ctx,
		`UPDATE attempts
		 SET state = $2, submitted = TRUE, auto_submitted = $3, submit_reason = $4,
		     submitted_at = $5, last_active_at = $5, remaining_seconds = $6,
		     updated_at = NOW()
		 WHERE id = $1 AND state IN ($7, $8)
		 RETURNING `+attemptColumns,
		id, model.AttemptStateCompleted, auto, reason, now, remainingSeconds,
		model.AttemptStateInProgress, model.AttemptStateInterrupted))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrTransitionConflict
	}
	return a, err
}

// ListBySchedule retrieves all attempts for a schedule, for monitoring.
func (r *AttemptRepository) ListBySchedule(ctx context.Context, scheduleID uuid.UUID) ([]model.Attempt, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+attemptColumns+` FROM attempts
		 WHERE schedule_id = $1
		 ORDER BY created_at ASC`, scheduleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []model.Attempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, *a)
	}
	return attempts, rows.Err()
}

// ListByParticipant retrieves a participant's attempts across schedules.
func (r *AttemptRepository) ListByParticipant(ctx context.Context, participantID int) ([]model.Attempt, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+attemptColumns+` FROM attempts
		 WHERE participant_id = $1
		 ORDER BY created_at DESC`, participantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []model.Attempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, *a)
	}
	return attempts, rows.Err()
}
