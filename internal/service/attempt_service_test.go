package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/unsikalab/tesonline-backend/internal/clock"
	"github.com/unsikalab/tesonline-backend/internal/model"
	"github.com/unsikalab/tesonline-backend/internal/repository"
)

var testEpoch = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

// ─── In-memory fakes ────────────────────────────────────────────────

// fakeAttemptStore mirrors the repository's guarded-transition semantics:
// a mutation whose state guard does not hold fails with
// repository.ErrTransitionConflict, exactly like the SQL CAS does.
type fakeAttemptStore struct {
	mu   sync.Mutex
	byID map[uuid.UUID]*model.Attempt
}

func newFakeAttemptStore() *fakeAttemptStore {
	return &fakeAttemptStore{byID: make(map[uuid.UUID]*model.Attempt)}
}

func copyAttempt(a *model.Attempt) *model.Attempt {
	cp := *a
	return &cp
}

func (f *fakeAttemptStore) GetByID(_ context.Context, id uuid.UUID) (*model.Attempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return copyAttempt(a), nil
}

func (f *fakeAttemptStore) GetByScheduleAndParticipant(_ context.Context, scheduleID uuid.UUID, participantID int) (*model.Attempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.byID {
		if a.ScheduleID == scheduleID && a.ParticipantID == participantID {
			return copyAttempt(a), nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeAttemptStore) Start(_ context.Context, scheduleID uuid.UUID, participantID int, now time.Time, durationSeconds int64) (*model.Attempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.byID {
		if a.ScheduleID == scheduleID && a.ParticipantID == participantID {
			// Unique (schedule_id, participant_id) hit.
			return nil, pgx.ErrNoRows
		}
	}
	started := now
	a := &model.Attempt{
		ID:               uuid.New(),
		ScheduleID:       scheduleID,
		ParticipantID:    participantID,
		State:            model.AttemptStateInProgress,
		StartedAt:        &started,
		LastActiveAt:     &started,
		RemainingSeconds: durationSeconds,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	f.byID[a.ID] = a
	return copyAttempt(a), nil
}

func (f *fakeAttemptStore) Heartbeat(_ context.Context, id uuid.UUID, now time.Time, remainingSeconds int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.byID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	if a.State == model.AttemptStateCompleted {
		return nil
	}
	t := now
	a.LastActiveAt = &t
	if a.State == model.AttemptStateInProgress {
		a.RemainingSeconds = remainingSeconds
	}
	return nil
}

func (f *fakeAttemptStore) Interrupt(_ context.Context, id uuid.UUID, now time.Time, reason string, remainingSeconds int64) (*model.Attempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.byID[id]
	if !ok || a.State != model.AttemptStateInProgress {
		return nil, repository.ErrTransitionConflict
	}
	t := now
	a.State = model.AttemptStateInterrupted
	a.InterruptedAt = &t
	a.InterruptionReason = &reason
	a.RemainingSeconds = remainingSeconds
	a.Resumable = false
	return copyAttempt(a), nil
}

func (f *fakeAttemptStore) AuthorizeResume(_ context.Context, id uuid.UUID, authorizerID int, now time.Time) (*model.Attempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.byID[id]
	if !ok || a.State != model.AttemptStateInterrupted {
		return nil, repository.ErrTransitionConflict
	}
	t := now
	a.Resumable = true
	a.ResumeAuthorizedAt = &t
	a.ResumeAuthorizedBy = &authorizerID
	return copyAttempt(a), nil
}

func (f *fakeAttemptStore) Resume(_ context.Context, id uuid.UUID, now time.Time, pausedSeconds int64) (*model.Attempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.byID[id]
	if !ok || a.State != model.AttemptStateInterrupted || !a.Resumable {
		return nil, repository.ErrTransitionConflict
	}
	t := now
	a.State = model.AttemptStateInProgress
	a.ResumedAt = &t
	a.LastActiveAt = &t
	a.TotalPausedSeconds += pausedSeconds
	a.Resumable = false
	return copyAttempt(a), nil
}

func (f *fakeAttemptStore) Complete(_ context.Context, id uuid.UUID, now time.Time, auto bool, reason model.SubmitReason, remainingSeconds int64) (*model.Attempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.byID[id]
	if !ok || a.State == model.AttemptStateCompleted {
		return nil, repository.ErrTransitionConflict
	}
	t := now
	a.State = model.AttemptStateCompleted
	a.Submitted = true
	a.AutoSubmitted = auto
	a.SubmitReason = &reason
	a.SubmittedAt = &t
	a.RemainingSeconds = remainingSeconds
	return copyAttempt(a), nil
}

func (f *fakeAttemptStore) ListBySchedule(_ context.Context, scheduleID uuid.UUID) ([]model.Attempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Attempt
	for _, a := range f.byID {
		if a.ScheduleID == scheduleID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (f *fakeAttemptStore) ListByParticipant(_ context.Context, participantID int) ([]model.Attempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Attempt
	for _, a := range f.byID {
		if a.ParticipantID == participantID {
			out = append(out, *a)
		}
	}
	return out, nil
}

type fakeScheduleStore struct {
	byID map[uuid.UUID]*model.Schedule
}

func (f *fakeScheduleStore) GetByID(_ context.Context, id uuid.UUID) (*model.Schedule, error) {
	s, ok := f.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *s
	return &cp, nil
}

type fakeRegistrationStore struct {
	approved map[string]bool
}

func regKey(scheduleID uuid.UUID, participantID int) string {
	return fmt.Sprintf("%s/%d", scheduleID, participantID)
}

func (f *fakeRegistrationStore) IsApproved(_ context.Context, scheduleID uuid.UUID, participantID int) (bool, error) {
	return f.approved[regKey(scheduleID, participantID)], nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []ScheduleEvent
}

func (r *recordingPublisher) Publish(_ context.Context, ev ScheduleEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recordingPublisher) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Type
	}
	return out
}

// ─── Harness ────────────────────────────────────────────────────────

type lifecycleHarness struct {
	svc        *AttemptService
	clk        *clock.Fixed
	schedule   *model.Schedule
	attempts   *fakeAttemptStore
	regs       *fakeRegistrationStore
	events     *recordingPublisher
	scheduleID uuid.UUID
}

const testParticipant = 7

func newLifecycleHarness(t *testing.T, durationSeconds int64) *lifecycleHarness {
	t.Helper()

	scheduleID := uuid.New()
	sched := &model.Schedule{
		ID:              scheduleID,
		Title:           "UTS Jaringan Komputer",
		OpensAt:         testEpoch.Add(-time.Hour),
		ClosesAt:        testEpoch.Add(24 * time.Hour),
		DurationSeconds: durationSeconds,
		AccessMode:      model.ScheduleAccessOnline,
		Status:          model.ScheduleStatusOpen,
	}

	attempts := newFakeAttemptStore()
	schedules := &fakeScheduleStore{byID: map[uuid.UUID]*model.Schedule{scheduleID: sched}}
	regs := &fakeRegistrationStore{approved: map[string]bool{
		regKey(scheduleID, testParticipant): true,
	}}
	events := &recordingPublisher{}
	clk := clock.NewFixed(testEpoch)

	svc := NewAttemptService(attempts, schedules, regs, events, clk, zerolog.Nop())

	return &lifecycleHarness{
		svc:        svc,
		clk:        clk,
		schedule:   sched,
		attempts:   attempts,
		regs:       regs,
		events:     events,
		scheduleID: scheduleID,
	}
}

func (h *lifecycleHarness) start(t *testing.T) *model.Attempt {
	t.Helper()
	a, err := h.svc.Start(context.Background(), h.scheduleID, testParticipant)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	return a
}

// ─── Tests ──────────────────────────────────────────────────────────

func TestStartAnchorsAttempt(t *testing.T) {
	h := newLifecycleHarness(t, 5400)
	a := h.start(t)

	if a.State != model.AttemptStateInProgress {
		t.Fatalf("state = %s, want IN_PROGRESS", a.State)
	}
	if a.StartedAt == nil || !a.StartedAt.Equal(testEpoch) {
		t.Fatalf("started_at = %v, want %v", a.StartedAt, testEpoch)
	}
	if a.RemainingSeconds != 5400 {
		t.Fatalf("remaining = %d, want 5400", a.RemainingSeconds)
	}
}

func TestStartRequiresApprovedRegistration(t *testing.T) {
	h := newLifecycleHarness(t, 5400)

	_, err := h.svc.Start(context.Background(), h.scheduleID, 99)
	if !errors.Is(err, ErrRegistrationRequired) {
		t.Fatalf("err = %v, want ErrRegistrationRequired", err)
	}
}

func TestStartOutsideWindow(t *testing.T) {
	h := newLifecycleHarness(t, 5400)
	h.clk.Set(h.schedule.ClosesAt.Add(time.Minute))

	_, err := h.svc.Start(context.Background(), h.scheduleID, testParticipant)
	if !errors.Is(err, ErrScheduleNotOpen) {
		t.Fatalf("err = %v, want ErrScheduleNotOpen", err)
	}
}

func TestStartIsIdempotentWhileLive(t *testing.T) {
	h := newLifecycleHarness(t, 5400)
	first := h.start(t)

	// A second start later (page refresh) must not restart the timer.
	h.clk.Advance(10 * time.Minute)
	second := h.start(t)

	if second.ID != first.ID {
		t.Fatalf("second start produced a new attempt")
	}
	if !second.StartedAt.Equal(*first.StartedAt) {
		t.Fatalf("anchor moved: %v → %v", first.StartedAt, second.StartedAt)
	}
}

func TestStartAfterCompletionFails(t *testing.T) {
	h := newLifecycleHarness(t, 5400)
	h.start(t)

	if _, err := h.svc.Submit(context.Background(), h.scheduleID, testParticipant); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	_, err := h.svc.Start(context.Background(), h.scheduleID, testParticipant)
	if !errors.Is(err, ErrAttemptCompleted) {
		t.Fatalf("err = %v, want ErrAttemptCompleted", err)
	}
}

// The reference scenario: 90-minute budget, interruption from +600s to +900s,
// heartbeat at +1200s must read 4500 — elapsed 1200 minus 300 credited.
func TestPauseCreditAccounting(t *testing.T) {
	ctx := context.Background()
	h := newLifecycleHarness(t, 5400)
	a := h.start(t)

	h.clk.Advance(600 * time.Second)
	frozen, err := h.svc.Interrupt(ctx, h.scheduleID, testParticipant, "network_drop")
	if err != nil {
		t.Fatalf("Interrupt: %v", err)
	}
	if frozen.State != model.AttemptStateInterrupted {
		t.Fatalf("state = %s, want INTERRUPTED", frozen.State)
	}
	if frozen.RemainingSeconds != 4800 {
		t.Fatalf("frozen remaining = %d, want 4800", frozen.RemainingSeconds)
	}

	// Supervisor clears it two minutes in; participant resumes at +900s.
	h.clk.Advance(120 * time.Second)
	if _, err := h.svc.AuthorizeResume(ctx, a.ID, 1); err != nil {
		t.Fatalf("AuthorizeResume: %v", err)
	}
	h.clk.Advance(180 * time.Second)
	resumed, err := h.svc.Resume(ctx, h.scheduleID, testParticipant)
	if err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if resumed.TotalPausedSeconds != 300 {
		t.Fatalf("total_paused = %d, want 300", resumed.TotalPausedSeconds)
	}
	if !resumed.StartedAt.Equal(testEpoch) {
		t.Fatalf("anchor moved on resume")
	}

	h.clk.Advance(300 * time.Second) // now at +1200s
	hb, err := h.svc.Heartbeat(ctx, h.scheduleID, testParticipant)
	if err != nil {
		t.Fatalf("Heartbeat: %v", err)
	}
	if hb.RemainingSeconds != 4500 {
		t.Fatalf("remaining = %d, want 4500", hb.RemainingSeconds)
	}
}

// Bursts of delayed heartbeats must land on the same remaining value as a
// single on-time one: the budget is a pure function of the anchor.
func TestHeartbeatNeverReanchors(t *testing.T) {
	ctx := context.Background()
	h := newLifecycleHarness(t, 5400)
	h.start(t)

	offsets := []int64{30, 31, 33, 340, 341, 900}
	var last int64
	for _, off := range offsets {
		h.clk.Set(testEpoch.Add(time.Duration(off) * time.Second))
		hb, err := h.svc.Heartbeat(ctx, h.scheduleID, testParticipant)
		if err != nil {
			t.Fatalf("Heartbeat at +%ds: %v", off, err)
		}
		last = hb.RemainingSeconds
	}

	if last != 5400-900 {
		t.Fatalf("after burst remaining = %d, want %d", last, 5400-900)
	}
}

func TestHeartbeatTimeoutAutoSubmits(t *testing.T) {
	ctx := context.Background()
	h := newLifecycleHarness(t, 600)
	h.start(t)

	h.clk.Advance(601 * time.Second)
	hb, err := h.svc.Heartbeat(ctx, h.scheduleID, testParticipant)
	if err != nil {
		t.Fatalf("Heartbeat: %v", err)
	}

	if hb.Attempt.State != model.AttemptStateCompleted {
		t.Fatalf("state = %s, want COMPLETED", hb.Attempt.State)
	}
	if !hb.Attempt.AutoSubmitted {
		t.Fatal("auto_submitted not set")
	}
	if hb.Attempt.SubmitReason == nil || *hb.Attempt.SubmitReason != model.SubmitReasonTimeout {
		t.Fatalf("submit_reason = %v, want timeout", hb.Attempt.SubmitReason)
	}
	if hb.RemainingSeconds != 0 {
		t.Fatalf("remaining = %d, want 0", hb.RemainingSeconds)
	}
}

func TestHeartbeatAfterCompletionEchoes(t *testing.T) {
	ctx := context.Background()
	h := newLifecycleHarness(t, 5400)
	h.start(t)

	submitted, err := h.svc.Submit(ctx, h.scheduleID, testParticipant)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	h.clk.Advance(time.Hour)
	hb, err := h.svc.Heartbeat(ctx, h.scheduleID, testParticipant)
	if err != nil {
		t.Fatalf("Heartbeat: %v", err)
	}
	if hb.Attempt.State != model.AttemptStateCompleted {
		t.Fatalf("state = %s, want COMPLETED", hb.Attempt.State)
	}
	if !hb.Attempt.SubmittedAt.Equal(*submitted.SubmittedAt) {
		t.Fatal("late heartbeat altered the settled attempt")
	}
}

func TestInterruptIsIdempotent(t *testing.T) {
	ctx := context.Background()
	h := newLifecycleHarness(t, 5400)
	h.start(t)

	h.clk.Advance(100 * time.Second)
	first, err := h.svc.Interrupt(ctx, h.scheduleID, testParticipant, "tab_hidden")
	if err != nil {
		t.Fatalf("Interrupt: %v", err)
	}

	// Duplicate report minutes later must not move the freeze point.
	h.clk.Advance(5 * time.Minute)
	second, err := h.svc.Interrupt(ctx, h.scheduleID, testParticipant, "tab_hidden")
	if err != nil {
		t.Fatalf("second Interrupt: %v", err)
	}
	if second.RemainingSeconds != first.RemainingSeconds {
		t.Fatalf("frozen budget moved: %d → %d", first.RemainingSeconds, second.RemainingSeconds)
	}
}

func TestResumeRequiresAuthorization(t *testing.T) {
	ctx := context.Background()
	h := newLifecycleHarness(t, 5400)
	h.start(t)

	if _, err := h.svc.Interrupt(ctx, h.scheduleID, testParticipant, "network_drop"); err != nil {
		t.Fatalf("Interrupt: %v", err)
	}

	_, err := h.svc.Resume(ctx, h.scheduleID, testParticipant)
	if !errors.Is(err, ErrResumeNotAuthorized) {
		t.Fatalf("err = %v, want ErrResumeNotAuthorized", err)
	}
}

func TestAuthorizeResumeRequiresInterrupted(t *testing.T) {
	ctx := context.Background()
	h := newLifecycleHarness(t, 5400)
	a := h.start(t)

	_, err := h.svc.AuthorizeResume(ctx, a.ID, 1)
	if !errors.Is(err, ErrAttemptNotInterrupted) {
		t.Fatalf("err = %v, want ErrAttemptNotInterrupted", err)
	}
}

func TestSubmitIsIdempotent(t *testing.T) {
	ctx := context.Background()
	h := newLifecycleHarness(t, 5400)
	h.start(t)

	h.clk.Advance(30 * time.Second)
	first, err := h.svc.Submit(ctx, h.scheduleID, testParticipant)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	h.clk.Advance(time.Minute)
	second, err := h.svc.Submit(ctx, h.scheduleID, testParticipant)
	if err != nil {
		t.Fatalf("retried Submit: %v", err)
	}
	if !second.SubmittedAt.Equal(*first.SubmittedAt) {
		t.Fatalf("retry moved submitted_at: %v → %v", first.SubmittedAt, second.SubmittedAt)
	}
	if second.AutoSubmitted != first.AutoSubmitted {
		t.Fatal("retry changed the settled outcome")
	}
}

func TestInterruptAfterCompletionFails(t *testing.T) {
	ctx := context.Background()
	h := newLifecycleHarness(t, 5400)
	h.start(t)

	if _, err := h.svc.Submit(ctx, h.scheduleID, testParticipant); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	_, err := h.svc.Interrupt(ctx, h.scheduleID, testParticipant, "network_drop")
	if !errors.Is(err, ErrAttemptCompleted) {
		t.Fatalf("err = %v, want ErrAttemptCompleted", err)
	}
}

func TestSubmitFromInterruptedState(t *testing.T) {
	ctx := context.Background()
	h := newLifecycleHarness(t, 5400)
	h.start(t)

	if _, err := h.svc.Interrupt(ctx, h.scheduleID, testParticipant, "power_loss"); err != nil {
		t.Fatalf("Interrupt: %v", err)
	}

	// No resume needed to give up and keep what was saved.
	a, err := h.svc.Submit(ctx, h.scheduleID, testParticipant)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if a.State != model.AttemptStateCompleted {
		t.Fatalf("state = %s, want COMPLETED", a.State)
	}
	if a.SubmitReason == nil || *a.SubmitReason != model.SubmitReasonManual {
		t.Fatalf("submit_reason = %v, want manual", a.SubmitReason)
	}
}

func TestForceSubmitMarksViolation(t *testing.T) {
	ctx := context.Background()
	h := newLifecycleHarness(t, 5400)
	a := h.start(t)

	forced, err := h.svc.ForceSubmit(ctx, a.ID)
	if err != nil {
		t.Fatalf("ForceSubmit: %v", err)
	}
	if forced.State != model.AttemptStateCompleted {
		t.Fatalf("state = %s, want COMPLETED", forced.State)
	}
	if !forced.AutoSubmitted {
		t.Fatal("auto_submitted not set")
	}
	if forced.SubmitReason == nil || *forced.SubmitReason != model.SubmitReasonViolation {
		t.Fatalf("submit_reason = %v, want violation", forced.SubmitReason)
	}
}

func TestRemainingClampedByScheduleClose(t *testing.T) {
	ctx := context.Background()
	h := newLifecycleHarness(t, 5400)
	// Window closes 10 minutes in; the full budget can never be used.
	h.schedule.ClosesAt = testEpoch.Add(10 * time.Minute)
	h.start(t)

	h.clk.Advance(5 * time.Minute)
	snap, err := h.svc.GetState(ctx, h.scheduleID, testParticipant)
	if err != nil {
		t.Fatalf("GetState: %v", err)
	}
	if snap.RemainingSeconds != 300 {
		t.Fatalf("remaining = %d, want 300 (clamped by closes_at)", snap.RemainingSeconds)
	}
}

func TestStateSnapshotUsesInjectedClock(t *testing.T) {
	ctx := context.Background()
	h := newLifecycleHarness(t, 5400)
	h.start(t)

	h.clk.Advance(7 * time.Minute)
	snap, err := h.svc.GetState(ctx, h.scheduleID, testParticipant)
	if err != nil {
		t.Fatalf("GetState: %v", err)
	}
	want := testEpoch.Add(7 * time.Minute).UTC()
	if !snap.ServerTime.Equal(want) {
		t.Fatalf("server_time = %v, want %v", snap.ServerTime, want)
	}
}

func TestSaveAcceptedWhileInterrupted(t *testing.T) {
	ctx := context.Background()
	h := newLifecycleHarness(t, 5400)
	h.start(t)

	h.clk.Advance(10 * time.Minute)
	if _, err := h.svc.Interrupt(ctx, h.scheduleID, testParticipant, "network_drop"); err != nil {
		t.Fatalf("Interrupt: %v", err)
	}

	// A reconnecting client flushes its buffered answers before resuming.
	attempt, err := h.svc.VerifyActive(ctx, h.scheduleID, testParticipant)
	if err != nil {
		t.Fatalf("VerifyActive on interrupted attempt: %v", err)
	}
	if attempt.State != model.AttemptStateInterrupted {
		t.Fatalf("state = %s, want INTERRUPTED", attempt.State)
	}
}

func TestSaveRejectedAfterCompletion(t *testing.T) {
	ctx := context.Background()
	h := newLifecycleHarness(t, 5400)
	h.start(t)

	if _, err := h.svc.Submit(ctx, h.scheduleID, testParticipant); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if _, err := h.svc.VerifyActive(ctx, h.scheduleID, testParticipant); !errors.Is(err, ErrAttemptCompleted) {
		t.Fatalf("VerifyActive after completion = %v, want ErrAttemptCompleted", err)
	}
}

func TestLifecycleEventsPublished(t *testing.T) {
	ctx := context.Background()
	h := newLifecycleHarness(t, 5400)
	a := h.start(t)

	h.clk.Advance(time.Minute)
	if _, err := h.svc.Interrupt(ctx, h.scheduleID, testParticipant, "network_drop"); err != nil {
		t.Fatalf("Interrupt: %v", err)
	}
	if _, err := h.svc.AuthorizeResume(ctx, a.ID, 1); err != nil {
		t.Fatalf("AuthorizeResume: %v", err)
	}
	if _, err := h.svc.Resume(ctx, h.scheduleID, testParticipant); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if _, err := h.svc.Submit(ctx, h.scheduleID, testParticipant); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	want := []string{
		EventAttemptStarted,
		EventAttemptInterrupted,
		EventResumeAuthorized,
		EventAttemptResumed,
		EventAttemptSubmitted,
	}
	got := h.events.types()
	if len(got) != len(want) {
		t.Fatalf("published %d events %v, want %d", len(got), got, len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("event[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}
