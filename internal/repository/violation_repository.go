package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/unsikalab/tesonline-backend/internal/model"
)

// ViolationRepository handles the append-only violation log. Rows are never
// updated or deleted.
type ViolationRepository struct {
	pool *pgxpool.Pool
}

// NewViolationRepository creates a new ViolationRepository.
func NewViolationRepository(pool *pgxpool.Pool) *ViolationRepository {
	return &ViolationRepository{pool: pool}
}

// Append inserts one violation event.
func (r *ViolationRepository) Append(ctx context.Context, v *model.Violation) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO violations (id, attempt_id, violation_type, detection_method,
		                         client_metadata, occurred_at, forced_submission)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		v.ID, v.AttemptID, v.ViolationType, v.DetectionMethod,
		v.ClientMetadata, v.OccurredAt, v.ForcedSubmission)
	return err
}

// ListBySchedule returns all violations for attempts of one schedule,
// newest first, for the supervisor audit view.
func (r *ViolationRepository) ListBySchedule(ctx context.Context, scheduleID uuid.UUID) ([]model.Violation, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT v.id, v.attempt_id, v.violation_type, v.detection_method,
		        v.client_metadata, v.occurred_at, v.forced_submission
		 FROM violations v
		 JOIN attempts a ON v.attempt_id = a.id
		 WHERE a.schedule_id = $1
		 ORDER BY v.occurred_at DESC`, scheduleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var violations []model.Violation
	for rows.Next() {
		var v model.Violation
		if err := rows.Scan(&v.ID, &v.AttemptID, &v.ViolationType, &v.DetectionMethod,
			&v.ClientMetadata, &v.OccurredAt, &v.ForcedSubmission); err != nil {
			return nil, err
		}
		violations = append(violations, v)
	}
	return violations, rows.Err()
}

// CountByAttempt returns how many violations an attempt has accumulated.
func (r *ViolationRepository) CountByAttempt(ctx context.Context, attemptID uuid.UUID) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM violations WHERE attempt_id = $1`, attemptID).Scan(&n)
	return n, err
}
