package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/unsikalab/tesonline-backend/internal/model"
)

// RegistrationRepository handles schedule registration data access.
type RegistrationRepository struct {
	pool *pgxpool.Pool
}

// NewRegistrationRepository creates a new RegistrationRepository.
func NewRegistrationRepository(pool *pgxpool.Pool) *RegistrationRepository {
	return &RegistrationRepository{pool: pool}
}

// Get retrieves a participant's registration for a schedule.
func (r *RegistrationRepository) Get(ctx context.Context, scheduleID uuid.UUID, participantID int) (*model.Registration, error) {
	reg := &model.Registration{}
	err := r.pool.QueryRow(ctx,
		`SELECT schedule_id, participant_id, status, created_at, updated_at
		 FROM registrations
		 WHERE schedule_id = $1 AND participant_id = $2`,
		scheduleID, participantID,
	).Scan(&reg.ScheduleID, &reg.ParticipantID, &reg.Status, &reg.CreatedAt, &reg.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return reg, nil
}

// IsApproved reports whether the participant has an approved registration.
func (r *RegistrationRepository) IsApproved(ctx context.Context, scheduleID uuid.UUID, participantID int) (bool, error) {
	var approved bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM registrations
			WHERE schedule_id = $1 AND participant_id = $2 AND status = $3
		 )`, scheduleID, participantID, model.RegistrationApproved).Scan(&approved)
	return approved, err
}

// ListByParticipant retrieves a participant's registrations joined with
// their schedules for the lobby view.
func (r *RegistrationRepository) ListByParticipant(ctx context.Context, participantID int) ([]model.LobbySchedule, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT s.id, s.title, s.opens_at, s.closes_at, s.duration_seconds,
		        s.access_mode, s.status, s.question_count, s.created_at, s.updated_at,
		        reg.status
		 FROM registrations reg
		 JOIN schedules s ON s.id = reg.schedule_id
		 WHERE reg.participant_id = $1
		 ORDER BY s.opens_at ASC`, participantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []model.LobbySchedule
	for rows.Next() {
		var l model.LobbySchedule
		var regStatus model.RegistrationStatus
		if err := rows.Scan(&l.ID, &l.Title, &l.OpensAt, &l.ClosesAt,
			&l.DurationSeconds, &l.AccessMode, &l.Status, &l.QuestionCount,
			&l.CreatedAt, &l.UpdatedAt, &regStatus); err != nil {
			return nil, err
		}
		l.RegistrationStatus = &regStatus
		items = append(items, l)
	}
	return items, rows.Err()
}

// Approve flips a registration to APPROVED.
func (r *RegistrationRepository) Approve(ctx context.Context, scheduleID uuid.UUID, participantID int) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE registrations SET status = $3, updated_at = NOW()
		 WHERE schedule_id = $1 AND participant_id = $2`,
		scheduleID, participantID, model.RegistrationApproved)
	return err
}

// Create registers a participant for a schedule. Idempotent on the
// (schedule_id, participant_id) pair.
func (r *RegistrationRepository) Create(ctx context.Context, scheduleID uuid.UUID, participantID int, status model.RegistrationStatus) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO registrations (schedule_id, participant_id, status)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (schedule_id, participant_id) DO NOTHING`,
		scheduleID, participantID, status)
	return err
}
