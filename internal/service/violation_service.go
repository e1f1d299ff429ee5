package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/unsikalab/tesonline-backend/internal/clock"
	"github.com/unsikalab/tesonline-backend/internal/config"
	"github.com/unsikalab/tesonline-backend/internal/model"
	"github.com/unsikalab/tesonline-backend/internal/repository"
)

// ViolationPersistPayload is one persist_violations_queue item.
type ViolationPersistPayload struct {
	ID               string          `json:"id"`
	AttemptID        string          `json:"attempt_id"`
	ViolationType    string          `json:"violation_type"`
	DetectionMethod  string          `json:"detection_method"`
	ClientMetadata   json.RawMessage `json:"client_metadata,omitempty"`
	OccurredAt       string          `json:"occurred_at"`
	ForcedSubmission bool            `json:"forced_submission"`
}

// ViolationOutcome is what a violation report answers with: whether the
// report ended the attempt, and the attempt's state either way.
type ViolationOutcome struct {
	ViolationID      uuid.UUID      `json:"violation_id"`
	ForcedSubmission bool           `json:"forced_submission"`
	Attempt          *model.Attempt `json:"attempt"`
}

// ViolationService takes anti-cheat reports, decides whether the type is
// severe enough to end the attempt, and queues the record for persistence.
// The force decision is synchronous; writing the row is not.
type ViolationService struct {
	violationRepo *repository.ViolationRepository
	attemptSvc    *AttemptService
	events        eventPublisher
	rdb           *redis.Client
	clk           clock.Clock
	log           zerolog.Logger

	// forceTypes is the configured subset of violation types that trigger
	// an immediate forced submission. Matching is case-insensitive.
	forceTypes map[string]struct{}
}

// NewViolationService creates a new ViolationService.
func NewViolationService(
	violationRepo *repository.ViolationRepository,
	attemptSvc *AttemptService,
	events eventPublisher,
	rdb *redis.Client,
	clk clock.Clock,
	cfg *config.Config,
	log zerolog.Logger,
) *ViolationService {
	forceTypes := make(map[string]struct{}, len(cfg.ForceSubmitViolations))
	for _, t := range cfg.ForceSubmitViolations {
		forceTypes[strings.ToLower(t)] = struct{}{}
	}

	return &ViolationService{
		violationRepo: violationRepo,
		attemptSvc:    attemptSvc,
		events:        events,
		rdb:           rdb,
		clk:           clk,
		log:           log.With().Str("component", "violation_service").Logger(),
		forceTypes:    forceTypes,
	}
}

// ShouldForceSubmit reports whether the violation type ends the attempt.
func (s *ViolationService) ShouldForceSubmit(violationType string) bool {
	_, ok := s.forceTypes[strings.ToLower(violationType)]
	return ok
}

// Report records a violation against a live attempt. Severe types complete
// the attempt before this returns; everything else is logged only and the
// attempt continues untouched.
func (s *ViolationService) Report(ctx context.Context, attempt *model.Attempt, req *model.ReportViolationRequest) (*ViolationOutcome, error) {
	now := s.clk.Now()
	forced := s.ShouldForceSubmit(req.ViolationType) && attempt.State.Active()

	violationID := uuid.New()
	payload, err := json.Marshal(ViolationPersistPayload{
		ID:               violationID.String(),
		AttemptID:        attempt.ID.String(),
		ViolationType:    req.ViolationType,
		DetectionMethod:  req.DetectionMethod,
		ClientMetadata:   req.Metadata,
		OccurredAt:       now.Format(time.RFC3339Nano),
		ForcedSubmission: forced,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal violation: %w", err)
	}

	if err := s.rdb.RPush(ctx, config.WorkerKey.PersistViolationsQueue, payload).Err(); err != nil {
		// Queue down: persist inline so the audit trail never loses a report.
		s.log.Warn().Err(err).Msg("enqueue violation failed, persisting inline")
		v := &model.Violation{
			ID:               violationID,
			AttemptID:        attempt.ID,
			ViolationType:    req.ViolationType,
			DetectionMethod:  req.DetectionMethod,
			ClientMetadata:   req.Metadata,
			OccurredAt:       now,
			ForcedSubmission: forced,
		}
		if err := s.violationRepo.Append(ctx, v); err != nil {
			return nil, fmt.Errorf("persist violation: %w", err)
		}
	}

	s.events.Publish(ctx, ScheduleEvent{
		Type:          EventViolationReported,
		ScheduleID:    attempt.ScheduleID,
		AttemptID:     attempt.ID,
		ParticipantID: attempt.ParticipantID,
		Detail:        req.ViolationType,
		At:            now,
	})

	outcome := &ViolationOutcome{ViolationID: violationID, ForcedSubmission: forced, Attempt: attempt}

	if forced {
		completed, err := s.attemptSvc.ForceSubmit(ctx, attempt.ID)
		if err != nil {
			return nil, fmt.Errorf("force submit: %w", err)
		}
		outcome.Attempt = completed

		s.log.Warn().
			Str("attempt_id", attempt.ID.String()).
			Str("violation_type", req.ViolationType).
			Msg("attempt force-submitted by violation")
	}

	return outcome, nil
}

// ListBySchedule returns the audit trail for a schedule's attempts.
func (s *ViolationService) ListBySchedule(ctx context.Context, scheduleID uuid.UUID) ([]model.Violation, error) {
	return s.violationRepo.ListBySchedule(ctx, scheduleID)
}

// CountByAttempt returns how many violations an attempt has accumulated.
func (s *ViolationService) CountByAttempt(ctx context.Context, attemptID uuid.UUID) (int64, error) {
	return s.violationRepo.CountByAttempt(ctx, attemptID)
}
