package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/unsikalab/tesonline-backend/internal/clock"
	"github.com/unsikalab/tesonline-backend/internal/model"
	"github.com/unsikalab/tesonline-backend/internal/repository"
)

// ErrScheduleNotFound is returned for unknown schedule IDs.
var ErrScheduleNotFound = errors.New("schedule not found")

// ScheduleService handles schedule administration and the participant lobby.
type ScheduleService struct {
	scheduleRepo     *repository.ScheduleRepository
	registrationRepo *repository.RegistrationRepository
	attemptRepo      *repository.AttemptRepository
	clk              clock.Clock
	log              zerolog.Logger
}

// NewScheduleService creates a new ScheduleService.
func NewScheduleService(
	scheduleRepo *repository.ScheduleRepository,
	registrationRepo *repository.RegistrationRepository,
	attemptRepo *repository.AttemptRepository,
	clk clock.Clock,
	log zerolog.Logger,
) *ScheduleService {
	return &ScheduleService{
		scheduleRepo:     scheduleRepo,
		registrationRepo: registrationRepo,
		attemptRepo:      attemptRepo,
		clk:              clk,
		log:              log.With().Str("component", "schedule_service").Logger(),
	}
}

// GetByID fetches a schedule.
func (s *ScheduleService) GetByID(ctx context.Context, id uuid.UUID) (*model.Schedule, error) {
	sched, err := s.scheduleRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrScheduleNotFound
		}
		return nil, err
	}
	return sched, nil
}

// GetLobby assembles the participant's lobby: their registered schedules
// overlaid with any attempt they already have, and whether starting is
// possible right now.
func (s *ScheduleService) GetLobby(ctx context.Context, participantID int) ([]model.LobbySchedule, error) {
	now := s.clk.Now()

	entries, err := s.registrationRepo.ListByParticipant(ctx, participantID)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}

	attempts, err := s.attemptRepo.ListByParticipant(ctx, participantID)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}

	attemptMap := make(map[uuid.UUID]*model.Attempt, len(attempts))
	for i := range attempts {
		attemptMap[attempts[i].ScheduleID] = &attempts[i]
	}

	for i := range entries {
		entry := &entries[i]
		if a, ok := attemptMap[entry.ID]; ok {
			entry.Attempt = a
		}

		startable := entry.Status == model.ScheduleStatusOpen &&
			entry.WindowCovers(now) &&
			entry.RegistrationStatus != nil &&
			*entry.RegistrationStatus == model.RegistrationApproved
		if entry.Attempt != nil && entry.Attempt.State == model.AttemptStateCompleted {
			startable = false
		}
		entry.CanStart = startable
	}

	return entries, nil
}

// Create adds a new schedule. Defaults to ONLINE access (the system mode
// alone decides restrictions) until an admin flips it.
func (s *ScheduleService) Create(ctx context.Context, req *model.CreateScheduleRequest) (*model.Schedule, error) {
	accessMode := model.ScheduleAccessOnline
	if req.AccessMode != "" {
		accessMode = model.ScheduleAccessMode(req.AccessMode)
	}

	sched := &model.Schedule{
		ID:              uuid.New(),
		Title:           req.Title,
		OpensAt:         req.OpensAt,
		ClosesAt:        req.ClosesAt,
		DurationSeconds: int64(req.DurationMinutes) * 60,
		AccessMode:      accessMode,
		Status:          model.ScheduleStatusOpen,
		QuestionCount:   req.QuestionCount,
	}
	if err := s.scheduleRepo.Create(ctx, sched); err != nil {
		return nil, fmt.Errorf("create schedule: %w", err)
	}

	s.log.Info().Str("schedule_id", sched.ID.String()).Str("title", sched.Title).Msg("schedule created")
	return sched, nil
}

// Update patches schedule fields, including the per-schedule access mode.
func (s *ScheduleService) Update(ctx context.Context, id uuid.UUID, req *model.UpdateScheduleRequest) (*model.Schedule, error) {
	var durationSeconds *int64
	if req.DurationMinutes != nil {
		d := int64(*req.DurationMinutes) * 60
		durationSeconds = &d
	}

	sched, err := s.scheduleRepo.Update(ctx, id, req.Title, req.OpensAt, req.ClosesAt, durationSeconds, req.AccessMode)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrScheduleNotFound
		}
		return nil, fmt.Errorf("update schedule: %w", err)
	}
	return sched, nil
}

// ListAll returns every schedule for the admin view.
func (s *ScheduleService) ListAll(ctx context.Context) ([]model.Schedule, error) {
	return s.scheduleRepo.ListAll(ctx)
}

// Register enrolls a participant in a schedule as PENDING approval.
func (s *ScheduleService) Register(ctx context.Context, scheduleID uuid.UUID, participantID int) error {
	if _, err := s.GetByID(ctx, scheduleID); err != nil {
		return err
	}
	return s.registrationRepo.Create(ctx, scheduleID, participantID, model.RegistrationPending)
}

// ApproveRegistration clears a participant to start.
func (s *ScheduleService) ApproveRegistration(ctx context.Context, scheduleID uuid.UUID, participantID int) error {
	return s.registrationRepo.Approve(ctx, scheduleID, participantID)
}

// CloseExpired flips schedules past their closing time to CLOSED. Returns
// how many were closed; run periodically by the schedule sweeper.
func (s *ScheduleService) CloseExpired(ctx context.Context, now time.Time) (int64, error) {
	return s.scheduleRepo.CloseExpired(ctx, now)
}
