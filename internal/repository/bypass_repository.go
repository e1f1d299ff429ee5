package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/unsikalab/tesonline-backend/internal/model"
)

// BypassRepository handles admin bypass session data access.
type BypassRepository struct {
	pool *pgxpool.Pool
}

// NewBypassRepository creates a new BypassRepository.
func NewBypassRepository(pool *pgxpool.Pool) *BypassRepository {
	return &BypassRepository{pool: pool}
}

// Create persists a new bypass session.
func (r *BypassRepository) Create(ctx context.Context, s *model.BypassSession) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO bypass_sessions (token, user_id, ip_address, expires_at)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		s.Token, s.UserID, s.IPAddress, s.ExpiresAt,
	).Scan(&s.ID, &s.CreatedAt)
}

// GetValid fetches a bypass session by token when it has not yet expired.
// Returns pgx.ErrNoRows for unknown or expired tokens.
func (r *BypassRepository) GetValid(ctx context.Context, token string, now time.Time) (*model.BypassSession, error) {
	s := &model.BypassSession{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, token, user_id, ip_address, expires_at, created_at
		 FROM bypass_sessions
		 WHERE token = $1 AND expires_at > $2`,
		token, now,
	).Scan(&s.ID, &s.Token, &s.UserID, &s.IPAddress, &s.ExpiresAt, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// GetActiveForUser returns the user's newest unexpired session, if any.
func (r *BypassRepository) GetActiveForUser(ctx context.Context, userID int, now time.Time) (*model.BypassSession, error) {
	s := &model.BypassSession{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, token, user_id, ip_address, expires_at, created_at
		 FROM bypass_sessions
		 WHERE user_id = $1 AND expires_at > $2
		 ORDER BY expires_at DESC LIMIT 1`,
		userID, now,
	).Scan(&s.ID, &s.Token, &s.UserID, &s.IPAddress, &s.ExpiresAt, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// DeactivateForUser removes every bypass session belonging to the user.
func (r *BypassRepository) DeactivateForUser(ctx context.Context, userID int) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM bypass_sessions WHERE user_id = $1`, userID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// PurgeExpired deletes sessions past their expiry. Called by the sweeper.
func (r *BypassRepository) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM bypass_sessions WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
