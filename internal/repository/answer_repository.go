package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/unsikalab/tesonline-backend/internal/model"
)

// AnswerRepository handles answer data access. Saves are last-write-wins by
// the client capture timestamp: a row is only replaced by a strictly newer
// one, so out-of-order network delivery cannot clobber a fresher value.
type AnswerRepository struct {
	pool *pgxpool.Pool
}

// NewAnswerRepository creates a new AnswerRepository.
func NewAnswerRepository(pool *pgxpool.Pool) *AnswerRepository {
	return &AnswerRepository{pool: pool}
}

// Upsert writes an answer unless a newer one is already stored. Returns
// whether the write was applied (false = stale, silently dropped).
func (r *AnswerRepository) Upsert(ctx context.Context, attemptID, questionID uuid.UUID, value string, savedAt time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`INSERT INTO answers (attempt_id, question_id, value, saved_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (attempt_id, question_id) DO UPDATE
		 SET value = EXCLUDED.value, saved_at = EXCLUDED.saved_at, updated_at = NOW()
		 WHERE answers.saved_at < EXCLUDED.saved_at`,
		attemptID, questionID, value, savedAt)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// MapByAttempt returns question_id → value for one attempt, for reload
// recovery and the submit flush.
func (r *AnswerRepository) MapByAttempt(ctx context.Context, attemptID uuid.UUID) (map[string]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT question_id, value FROM answers WHERE attempt_id = $1`, attemptID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	answers := make(map[string]string)
	for rows.Next() {
		var qid uuid.UUID
		var value string
		if err := rows.Scan(&qid, &value); err != nil {
			return nil, err
		}
		answers[qid.String()] = value
	}
	return answers, rows.Err()
}

// ListByAttempt returns full answer rows for one attempt.
func (r *AnswerRepository) ListByAttempt(ctx context.Context, attemptID uuid.UUID) ([]model.Answer, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT attempt_id, question_id, value, saved_at, updated_at
		 FROM answers WHERE attempt_id = $1 ORDER BY question_id`, attemptID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var answers []model.Answer
	for rows.Next() {
		var a model.Answer
		if err := rows.Scan(&a.AttemptID, &a.QuestionID, &a.Value, &a.SavedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		answers = append(answers, a)
	}
	return answers, rows.Err()
}
