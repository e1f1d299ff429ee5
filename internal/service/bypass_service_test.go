package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/unsikalab/tesonline-backend/internal/clock"
	"github.com/unsikalab/tesonline-backend/internal/config"
	"github.com/unsikalab/tesonline-backend/internal/model"
)

// fakeBypassStore mirrors the repository's expiry predicate: a session is
// only returned while expires_at is strictly in the future.
type fakeBypassStore struct {
	mu      sync.Mutex
	nextID  int
	byToken map[string]*model.BypassSession
}

func newFakeBypassStore() *fakeBypassStore {
	return &fakeBypassStore{byToken: make(map[string]*model.BypassSession)}
}

func (f *fakeBypassStore) Create(_ context.Context, s *model.BypassSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	s.ID = f.nextID
	cp := *s
	f.byToken[s.Token] = &cp
	return nil
}

func (f *fakeBypassStore) GetValid(_ context.Context, token string, now time.Time) (*model.BypassSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.byToken[token]
	if !ok || !s.ExpiresAt.After(now) {
		return nil, pgx.ErrNoRows
	}
	cp := *s
	return &cp, nil
}

func (f *fakeBypassStore) GetActiveForUser(_ context.Context, userID int, now time.Time) (*model.BypassSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.byToken {
		if s.UserID == userID && s.ExpiresAt.After(now) {
			cp := *s
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeBypassStore) DeactivateForUser(_ context.Context, userID int) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var removed int64
	for token, s := range f.byToken {
		if s.UserID == userID {
			delete(f.byToken, token)
			removed++
		}
	}
	return removed, nil
}

func (f *fakeBypassStore) PurgeExpired(_ context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var removed int64
	for token, s := range f.byToken {
		if !s.ExpiresAt.After(now) {
			delete(f.byToken, token)
			removed++
		}
	}
	return removed, nil
}

type fakeAdminSource struct {
	admin *model.Admin
}

func (f *fakeAdminSource) GetByEmail(_ context.Context, email string) (*model.Admin, error) {
	if f.admin == nil || f.admin.Email != email {
		return nil, pgx.ErrNoRows
	}
	cp := *f.admin
	return &cp, nil
}

type fakePasswordChecker struct {
	password string
}

func (f *fakePasswordChecker) CheckPassword(_, password string) error {
	if password != f.password {
		return errors.New("password mismatch")
	}
	return nil
}

type bypassHarness struct {
	svc   *BypassService
	store *fakeBypassStore
	clk   *clock.Fixed
}

func newBypassHarness(t *testing.T) *bypassHarness {
	t.Helper()
	store := newFakeBypassStore()
	clk := clock.NewFixed(testEpoch)
	cfg := &config.Config{
		BypassCode: "sesame",
		BypassTTL:  12 * time.Hour,
	}
	admins := &fakeAdminSource{admin: &model.Admin{ID: 1, Email: "admin@example.com", PasswordHash: "x"}}
	svc := NewBypassService(store, admins, &fakePasswordChecker{password: "rahasia"}, cfg, clk, zerolog.Nop())
	return &bypassHarness{svc: svc, store: store, clk: clk}
}

func (h *bypassHarness) activate(t *testing.T) *model.BypassSession {
	t.Helper()
	session, err := h.svc.Activate(context.Background(), &model.ActivateBypassRequest{
		Email:      "admin@example.com",
		Password:   "rahasia",
		BypassCode: "sesame",
	}, "203.0.113.9")
	if err != nil {
		t.Fatalf("Activate: %v", err)
	}
	return session
}

func TestBypassActivateIssuesBoundedSession(t *testing.T) {
	h := newBypassHarness(t)
	session := h.activate(t)

	if session.Token == "" {
		t.Fatal("token missing")
	}
	if session.IPAddress != "203.0.113.9" {
		t.Fatalf("ip = %s, want activation origin", session.IPAddress)
	}
	want := testEpoch.Add(12 * time.Hour)
	if !session.ExpiresAt.Equal(want) {
		t.Fatalf("expires_at = %v, want %v", session.ExpiresAt, want)
	}
}

func TestBypassWrongCredentialsAllCollapse(t *testing.T) {
	h := newBypassHarness(t)
	ctx := context.Background()

	cases := []struct {
		name string
		req  model.ActivateBypassRequest
	}{
		{"unknown email", model.ActivateBypassRequest{Email: "ghost@example.com", Password: "rahasia", BypassCode: "sesame"}},
		{"wrong password", model.ActivateBypassRequest{Email: "admin@example.com", Password: "salah", BypassCode: "sesame"}},
		{"wrong code", model.ActivateBypassRequest{Email: "admin@example.com", Password: "rahasia", BypassCode: "hurdy"}},
	}
	for _, tc := range cases {
		if _, err := h.svc.Activate(ctx, &tc.req, "203.0.113.9"); !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("%s: err = %v, want ErrInvalidCredentials", tc.name, err)
		}
	}
}

func TestBypassDisabledWithoutCode(t *testing.T) {
	h := newBypassHarness(t)
	h.svc.cfg = &config.Config{BypassCode: ""}

	_, err := h.svc.Activate(context.Background(), &model.ActivateBypassRequest{
		Email: "admin@example.com", Password: "rahasia", BypassCode: "sesame",
	}, "203.0.113.9")
	if !errors.Is(err, ErrBypassDisabled) {
		t.Fatalf("err = %v, want ErrBypassDisabled", err)
	}
}

func TestBypassSessionExpires(t *testing.T) {
	h := newBypassHarness(t)
	ctx := context.Background()
	session := h.activate(t)

	if !h.svc.Validate(ctx, session.Token) {
		t.Fatal("fresh session should validate")
	}

	// One second short of the deadline the session is still live.
	h.clk.Advance(12*time.Hour - time.Second)
	if !h.svc.Validate(ctx, session.Token) {
		t.Fatal("session just inside TTL should validate")
	}

	// At the deadline it is gone; a session is never extended.
	h.clk.Advance(time.Second)
	if h.svc.Validate(ctx, session.Token) {
		t.Fatal("expired session must not validate")
	}

	removed, err := h.svc.PurgeExpired(ctx)
	if err != nil {
		t.Fatalf("PurgeExpired: %v", err)
	}
	if removed != 1 {
		t.Fatalf("purged = %d, want 1", removed)
	}
}

func TestBypassDeactivateDropsSessions(t *testing.T) {
	h := newBypassHarness(t)
	ctx := context.Background()
	session := h.activate(t)

	status, err := h.svc.Status(ctx, 1)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status == nil || status.Token != session.Token {
		t.Fatalf("status = %+v, want live session", status)
	}

	if err := h.svc.Deactivate(ctx, 1); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}
	if h.svc.Validate(ctx, session.Token) {
		t.Fatal("deactivated session must not validate")
	}

	status, err = h.svc.Status(ctx, 1)
	if err != nil {
		t.Fatalf("Status after deactivate: %v", err)
	}
	if status != nil {
		t.Fatalf("status = %+v, want nil", status)
	}
}
