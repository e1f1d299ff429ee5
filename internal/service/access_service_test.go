package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/unsikalab/tesonline-backend/internal/model"
)

// ─── Origin extraction ──────────────────────────────────────────────

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		headers    map[string]string
		remoteAddr string
		want       string
	}{
		{
			name:       "socket fallback",
			remoteAddr: "10.1.2.3:51422",
			want:       "10.1.2.3",
		},
		{
			name:       "x-forwarded-for single",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.7"},
			remoteAddr: "10.0.0.1:80",
			want:       "203.0.113.7",
		},
		{
			name:       "x-forwarded-for takes leftmost",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.2, 10.0.0.3"},
			remoteAddr: "10.0.0.1:80",
			want:       "203.0.113.7",
		},
		{
			name: "cf-connecting-ip beats x-forwarded-for",
			headers: map[string]string{
				"CF-Connecting-IP": "198.51.100.9",
				"X-Forwarded-For":  "203.0.113.7",
			},
			remoteAddr: "10.0.0.1:80",
			want:       "198.51.100.9",
		},
		{
			name:       "port stripped from header value",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.7:4711"},
			remoteAddr: "10.0.0.1:80",
			want:       "203.0.113.7",
		},
		{
			name:       "rfc7239 forwarded",
			headers:    map[string]string{"Forwarded": `for=192.0.2.60;proto=http;by=203.0.113.43`},
			remoteAddr: "10.0.0.1:80",
			want:       "192.0.2.60",
		},
		{
			name:       "ipv6 socket with port",
			remoteAddr: "[2001:db8::1]:443",
			want:       "2001:db8::1",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tc.remoteAddr
			for k, v := range tc.headers {
				r.Header.Set(k, v)
			}
			if got := ClientIP(r); got != tc.want {
				t.Fatalf("ClientIP = %q, want %q", got, tc.want)
			}
		})
	}
}

// ─── Gate decisions ─────────────────────────────────────────────────

type fixedModeSource struct {
	mode model.SystemAccessMode
}

func (f fixedModeSource) GetAccessMode(context.Context) model.SystemAccessMode { return f.mode }

type fixedScheduleModes struct {
	modes map[uuid.UUID]model.ScheduleAccessMode
}

func (f fixedScheduleModes) GetAccessMode(_ context.Context, id uuid.UUID) (model.ScheduleAccessMode, error) {
	mode, ok := f.modes[id]
	if !ok {
		return "", pgx.ErrNoRows
	}
	return mode, nil
}

type fixedBypass struct {
	valid map[string]bool
}

func (f fixedBypass) Validate(_ context.Context, token string) bool { return f.valid[token] }

func newGate(system model.SystemAccessMode, schedules map[uuid.UUID]model.ScheduleAccessMode, validTokens map[string]bool, networks []string) *AccessService {
	return NewAccessService(
		fixedModeSource{mode: system},
		fixedScheduleModes{modes: schedules},
		fixedBypass{valid: validTokens},
		networks,
		zerolog.Nop(),
	)
}

func TestGateModePrecedence(t *testing.T) {
	onlineID := uuid.New()
	offlineID := uuid.New()
	schedules := map[uuid.UUID]model.ScheduleAccessMode{
		onlineID:  model.ScheduleAccessOnline,
		offlineID: model.ScheduleAccessOffline,
	}
	labNet := []string{"192.168.10.0/24"}
	outside := "203.0.113.7"

	tests := []struct {
		name      string
		system    model.SystemAccessMode
		schedule  *uuid.UUID
		wantAllow bool
		wantScope string
	}{
		{name: "public system, no schedule", system: model.SystemAccessPublic, wantAllow: true, wantScope: GateScopeSystem},
		{name: "private system, no schedule", system: model.SystemAccessPrivate, wantAllow: false, wantScope: GateScopeSystem},
		// The schedule's own mode must win in BOTH directions.
		{name: "private system, online schedule", system: model.SystemAccessPrivate, schedule: &onlineID, wantAllow: true, wantScope: GateScopeSchedule},
		{name: "public system, offline schedule", system: model.SystemAccessPublic, schedule: &offlineID, wantAllow: false, wantScope: GateScopeSchedule},
		{name: "private system, offline schedule", system: model.SystemAccessPrivate, schedule: &offlineID, wantAllow: false, wantScope: GateScopeSchedule},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			gate := newGate(tc.system, schedules, nil, labNet)
			d := gate.Evaluate(context.Background(), tc.schedule, outside, "")
			if d.Allowed != tc.wantAllow {
				t.Fatalf("Allowed = %v, want %v", d.Allowed, tc.wantAllow)
			}
			if d.Scope != tc.wantScope {
				t.Fatalf("Scope = %q, want %q", d.Scope, tc.wantScope)
			}
			if d.DetectedOrigin != outside {
				t.Fatalf("DetectedOrigin = %q, want %q", d.DetectedOrigin, outside)
			}
		})
	}
}

func TestGateAllowsListedOrigin(t *testing.T) {
	gate := newGate(model.SystemAccessPrivate, nil, nil, []string{"192.168.10.0/24", "10.5.0.1"})

	tests := []struct {
		origin string
		want   bool
	}{
		{"192.168.10.55", true},
		{"192.168.11.55", false},
		{"10.5.0.1", true}, // bare IP entry acts as /32
		{"10.5.0.2", false},
		{"not-an-ip", false},
		{"", false},
	}
	for _, tc := range tests {
		d := gate.Evaluate(context.Background(), nil, tc.origin, "")
		if d.Allowed != tc.want {
			t.Fatalf("origin %q: Allowed = %v, want %v", tc.origin, d.Allowed, tc.want)
		}
	}
}

func TestGateBypassToken(t *testing.T) {
	gate := newGate(model.SystemAccessPrivate, nil, map[string]bool{"good-token": true}, []string{"192.168.10.0/24"})
	outside := "203.0.113.7"

	d := gate.Evaluate(context.Background(), nil, outside, "good-token")
	if !d.Allowed || !d.Bypassed {
		t.Fatalf("valid bypass: Allowed=%v Bypassed=%v, want true/true", d.Allowed, d.Bypassed)
	}

	d = gate.Evaluate(context.Background(), nil, outside, "expired-token")
	if d.Allowed {
		t.Fatal("invalid bypass token was allowed")
	}

	// A bypass on an allowed origin is not consulted at all.
	d = gate.Evaluate(context.Background(), nil, "192.168.10.4", "expired-token")
	if !d.Allowed || d.Bypassed {
		t.Fatalf("listed origin: Allowed=%v Bypassed=%v, want true/false", d.Allowed, d.Bypassed)
	}
}

func TestGateUnknownScheduleFallsBackToSystem(t *testing.T) {
	unknown := uuid.New()
	gate := newGate(model.SystemAccessPublic, nil, nil, nil)

	d := gate.Evaluate(context.Background(), &unknown, "203.0.113.7", "")
	if !d.Allowed {
		t.Fatal("unknown schedule must fall back to the system mode")
	}
	if d.Scope != GateScopeSystem {
		t.Fatalf("Scope = %q, want %q", d.Scope, GateScopeSystem)
	}
}

func TestGateSkipsMalformedAllowListEntries(t *testing.T) {
	gate := newGate(model.SystemAccessPrivate, nil, nil, []string{"garbage", "192.168.10.0/24"})

	if !gate.OriginAllowed("192.168.10.9") {
		t.Fatal("valid entry after a malformed one was dropped")
	}
	if gate.OriginAllowed("203.0.113.7") {
		t.Fatal("unlisted origin allowed")
	}
}
