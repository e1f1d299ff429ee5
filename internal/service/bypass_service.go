package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/unsikalab/tesonline-backend/internal/clock"
	"github.com/unsikalab/tesonline-backend/internal/config"
	"github.com/unsikalab/tesonline-backend/internal/model"
)

// ErrBypassDisabled means no bypass code is configured at all.
var ErrBypassDisabled = errors.New("bypass is not enabled on this deployment")

// bypassStore is the session persistence surface the service needs.
// Satisfied by repository.BypassRepository.
type bypassStore interface {
	Create(ctx context.Context, s *model.BypassSession) error
	GetValid(ctx context.Context, token string, now time.Time) (*model.BypassSession, error)
	GetActiveForUser(ctx context.Context, userID int, now time.Time) (*model.BypassSession, error)
	DeactivateForUser(ctx context.Context, userID int) (int64, error)
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

// adminSource resolves the admin account behind an activation request.
type adminSource interface {
	GetByEmail(ctx context.Context, email string) (*model.Admin, error)
}

// passwordChecker verifies a password against a stored hash.
type passwordChecker interface {
	CheckPassword(hash, password string) error
}

// BypassService issues and validates short-lived origin-restriction bypass
// sessions. Activation needs full admin credentials plus the out-of-band
// shared code; a session is never extended, expiry means re-activation.
type BypassService struct {
	bypassRepo bypassStore
	adminRepo  adminSource
	authSvc    passwordChecker
	cfg        *config.Config
	clk        clock.Clock
	log        zerolog.Logger
}

// NewBypassService creates a new BypassService.
func NewBypassService(
	bypassRepo bypassStore,
	adminRepo adminSource,
	authSvc passwordChecker,
	cfg *config.Config,
	clk clock.Clock,
	log zerolog.Logger,
) *BypassService {
	return &BypassService{
		bypassRepo: bypassRepo,
		adminRepo:  adminRepo,
		authSvc:    authSvc,
		cfg:        cfg,
		clk:        clk,
		log:        log.With().Str("component", "bypass_service").Logger(),
	}
}

// Activate verifies admin credentials plus the shared code and issues a new
// bypass session bound to the caller's origin. All failure paths collapse to
// ErrInvalidCredentials so probing reveals nothing about which part failed.
func (s *BypassService) Activate(ctx context.Context, req *model.ActivateBypassRequest, origin string) (*model.BypassSession, error) {
	if s.cfg.BypassCode == "" {
		return nil, ErrBypassDisabled
	}

	admin, err := s.adminRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get admin: %w", err)
	}
	if err := s.authSvc.CheckPassword(admin.PasswordHash, req.Password); err != nil {
		return nil, ErrInvalidCredentials
	}
	if subtle.ConstantTimeCompare([]byte(req.BypassCode), []byte(s.cfg.BypassCode)) != 1 {
		return nil, ErrInvalidCredentials
	}

	token, err := generateBypassToken()
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	now := s.clk.Now()
	session := &model.BypassSession{
		Token:     token,
		UserID:    admin.ID,
		IPAddress: origin,
		ExpiresAt: now.Add(s.cfg.BypassTTL),
	}
	if err := s.bypassRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("create bypass session: %w", err)
	}

	s.log.Info().
		Int("admin_id", admin.ID).
		Str("origin", origin).
		Time("expires_at", session.ExpiresAt).
		Msg("bypass session issued")

	return session, nil
}

// Validate reports whether token maps to a live bypass session. Errors are
// treated as invalid — the gate must fail closed.
func (s *BypassService) Validate(ctx context.Context, token string) bool {
	if token == "" {
		return false
	}
	_, err := s.bypassRepo.GetValid(ctx, token, s.clk.Now())
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			s.log.Error().Err(err).Msg("bypass lookup failed")
		}
		return false
	}
	return true
}

// Deactivate drops every bypass session belonging to the admin.
func (s *BypassService) Deactivate(ctx context.Context, adminID int) error {
	removed, err := s.bypassRepo.DeactivateForUser(ctx, adminID)
	if err != nil {
		return err
	}
	if removed > 0 {
		s.log.Info().Int("admin_id", adminID).Int64("removed", removed).Msg("bypass sessions deactivated")
	}
	return nil
}

// Status returns the admin's current live session, or nil when none exists.
func (s *BypassService) Status(ctx context.Context, adminID int) (*model.BypassSession, error) {
	session, err := s.bypassRepo.GetActiveForUser(ctx, adminID, s.clk.Now())
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return session, nil
}

// PurgeExpired removes sessions past expiry. Exposed for the sweeper.
func (s *BypassService) PurgeExpired(ctx context.Context) (int64, error) {
	return s.bypassRepo.PurgeExpired(ctx, s.clk.Now())
}

func generateBypassToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
