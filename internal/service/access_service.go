package service

import (
	"context"
	"net/http"
	"net/netip"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/unsikalab/tesonline-backend/internal/model"
)

// clientIPHeaders is the trust order for origin extraction. The first header
// carrying a usable address wins; within a comma-separated list the
// left-most entry is the original client.
var clientIPHeaders = []string{
	"CF-Connecting-IP",
	"Client-IP",
	"X-Forwarded-For",
	"X-Forwarded",
	"X-Cluster-Client-IP",
	"Forwarded-For",
	"Forwarded",
}

// ClientIP extracts the request origin following the header priority order,
// falling back to the socket address. Ports are stripped so the result is
// always a bare IP.
func ClientIP(r *http.Request) string {
	for _, header := range clientIPHeaders {
		value := r.Header.Get(header)
		if value == "" {
			continue
		}
		if ip := firstAddress(value); ip != "" {
			return ip
		}
	}
	return stripPort(r.RemoteAddr)
}

// firstAddress takes the left-most entry of a comma-separated header value.
func firstAddress(value string) string {
	first := value
	if idx := strings.IndexByte(value, ','); idx >= 0 {
		first = value[:idx]
	}
	first = strings.TrimSpace(first)
	// RFC 7239 Forwarded carries "for=addr" pairs.
	if idx := strings.Index(strings.ToLower(first), "for="); idx >= 0 {
		first = first[idx+4:]
		if idx := strings.IndexByte(first, ';'); idx >= 0 {
			first = first[:idx]
		}
	}
	first = strings.Trim(first, `"[]`)
	return stripPort(first)
}

// stripPort removes a :port suffix if present, leaving IPv6 addresses intact.
func stripPort(addr string) string {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return ""
	}
	if ap, err := netip.ParseAddrPort(addr); err == nil {
		return ap.Addr().String()
	}
	return strings.Trim(addr, "[]")
}

// GateScope names which rule denied (or allowed) the request.
const (
	GateScopeSystem   = "system"
	GateScopeSchedule = "schedule"
)

// GateDecision is the outcome of one origin evaluation.
type GateDecision struct {
	Allowed        bool
	Checked        bool
	Bypassed       bool
	Scope          string
	DetectedOrigin string
}

type accessModeSource interface {
	GetAccessMode(ctx context.Context) model.SystemAccessMode
}

type scheduleModeSource interface {
	GetAccessMode(ctx context.Context, id uuid.UUID) (model.ScheduleAccessMode, error)
}

type bypassValidator interface {
	Validate(ctx context.Context, token string) bool
}

// AccessService decides, per request, whether an origin may reach exam
// surfaces. The system-wide mode sets the baseline; a schedule's own access
// mode always wins over it, in both directions.
type AccessService struct {
	settings  accessModeSource
	schedules scheduleModeSource
	bypass    bypassValidator
	allowed   []netip.Prefix
	rawCIDRs  []string
	log       zerolog.Logger
}

// NewAccessService creates a new AccessService. Malformed allow-list entries
// are logged and skipped rather than failing startup; a bare IP entry is
// treated as a single-address network.
func NewAccessService(
	settings accessModeSource,
	schedules scheduleModeSource,
	bypass bypassValidator,
	allowedNetworks []string,
	log zerolog.Logger,
) *AccessService {
	s := &AccessService{
		settings:  settings,
		schedules: schedules,
		bypass:    bypass,
		rawCIDRs:  allowedNetworks,
		log:       log.With().Str("component", "access_service").Logger(),
	}

	for _, entry := range allowedNetworks {
		if prefix, err := netip.ParsePrefix(entry); err == nil {
			s.allowed = append(s.allowed, prefix.Masked())
			continue
		}
		if addr, err := netip.ParseAddr(entry); err == nil {
			s.allowed = append(s.allowed, netip.PrefixFrom(addr, addr.BitLen()))
			continue
		}
		s.log.Warn().Str("entry", entry).Msg("skipping malformed allow-list entry")
	}

	return s
}

// AllowedNetworks returns the configured allow-list as given.
func (s *AccessService) AllowedNetworks() []string {
	return s.rawCIDRs
}

// OriginAllowed reports whether ip falls inside any allowed network. An
// unparsable origin is never allowed.
func (s *AccessService) OriginAllowed(ip string) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, prefix := range s.allowed {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

// Evaluate runs the full gate for one request. scheduleID is nil for
// surfaces not tied to a schedule, in which case only the system mode
// applies. A valid bypass token short-circuits the origin check entirely.
func (s *AccessService) Evaluate(ctx context.Context, scheduleID *uuid.UUID, origin, bypassToken string) GateDecision {
	decision := GateDecision{Allowed: true, Scope: GateScopeSystem, DetectedOrigin: origin}

	restricted := s.settings.GetAccessMode(ctx) == model.SystemAccessPrivate

	if scheduleID != nil {
		mode, err := s.schedules.GetAccessMode(ctx, *scheduleID)
		if err == nil {
			// The schedule's own mode overrides the system baseline.
			decision.Scope = GateScopeSchedule
			restricted = mode == model.ScheduleAccessOffline
		} else {
			s.log.Warn().Err(err).Str("schedule_id", scheduleID.String()).Msg("schedule mode lookup failed, using system mode")
		}
	}

	if !restricted {
		return decision
	}
	decision.Checked = true

	if s.OriginAllowed(origin) {
		return decision
	}

	if bypassToken != "" && s.bypass.Validate(ctx, bypassToken) {
		decision.Bypassed = true
		return decision
	}

	decision.Allowed = false
	return decision
}
