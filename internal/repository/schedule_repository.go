package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/unsikalab/tesonline-backend/internal/model"
)

const scheduleColumns = `id, title, opens_at, closes_at, duration_seconds,
	access_mode, status, question_count, created_at, updated_at`

// ScheduleRepository handles schedule data access.
type ScheduleRepository struct {
	pool *pgxpool.Pool
}

// NewScheduleRepository creates a new ScheduleRepository.
func NewScheduleRepository(pool *pgxpool.Pool) *ScheduleRepository {
	return &ScheduleRepository{pool: pool}
}

func scanSchedule(row pgx.Row) (*model.Schedule, error) {
	s := &model.Schedule{}
	err := row.Scan(&s.ID, &s.Title, &s.OpensAt, &s.ClosesAt, &s.DurationSeconds,
		&s.AccessMode, &s.Status, &s.QuestionCount, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// GetByID retrieves a schedule by its UUID.
func (r *ScheduleRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Schedule, error) {
	return scanSchedule(r.pool.QueryRow(ctx,
		`SELECT `+scheduleColumns+` FROM schedules WHERE id = $1`, id))
}

// GetAccessMode fetches only the access mode for the gate's fast path.
func (r *ScheduleRepository) GetAccessMode(ctx context.Context, id uuid.UUID) (model.ScheduleAccessMode, error) {
	var mode model.ScheduleAccessMode
	err := r.pool.QueryRow(ctx,
		`SELECT access_mode FROM schedules WHERE id = $1`, id).Scan(&mode)
	return mode, err
}

// Create inserts a new schedule.
func (r *ScheduleRepository) Create(ctx context.Context, s *model.Schedule) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO schedules (id, title, opens_at, closes_at, duration_seconds,
		                        access_mode, status, question_count)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING created_at, updated_at`,
		s.ID, s.Title, s.OpensAt, s.ClosesAt, s.DurationSeconds,
		s.AccessMode, s.Status, s.QuestionCount,
	).Scan(&s.CreatedAt, &s.UpdatedAt)
}

// Update applies non-zero fields of the update request.
func (r *ScheduleRepository) Update(ctx context.Context, id uuid.UUID, title string, opensAt, closesAt *time.Time, durationSeconds *int64, accessMode string) (*model.Schedule, error) {
	return scanSchedule(r.pool.QueryRow(ctx,
		`UPDATE schedules
		 SET title = COALESCE(NULLIF($2, ''), title),
		     opens_at = COALESCE($3, opens_at),
		     closes_at = COALESCE($4, closes_at),
		     duration_seconds = COALESCE($5, duration_seconds),
		     access_mode = COALESCE(NULLIF($6, '')::schedule_access_mode, access_mode),
		     updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+scheduleColumns,
		id, title, opensAt, closesAt, durationSeconds, accessMode))
}

// ListOpen retrieves schedules whose window covers now and are not closed.
func (r *ScheduleRepository) ListOpen(ctx context.Context, now time.Time) ([]model.Schedule, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+scheduleColumns+` FROM schedules
		 WHERE status = $1 AND closes_at >= $2
		 ORDER BY opens_at ASC`, model.ScheduleStatusOpen, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSchedules(rows)
}

// ListAll retrieves every schedule, newest first.
func (r *ScheduleRepository) ListAll(ctx context.Context) ([]model.Schedule, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+scheduleColumns+` FROM schedules ORDER BY opens_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSchedules(rows)
}

// CloseExpired marks schedules whose window has passed as CLOSED. Returns
// the number of schedules flipped; safe to run concurrently with live
// attempts since it touches no attempt rows.
func (r *ScheduleRepository) CloseExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE schedules SET status = $1, updated_at = NOW()
		 WHERE status = $2 AND closes_at < $3`,
		model.ScheduleStatusClosed, model.ScheduleStatusOpen, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func collectSchedules(rows pgx.Rows) ([]model.Schedule, error) {
	var schedules []model.Schedule
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, *s)
	}
	return schedules, rows.Err()
}
