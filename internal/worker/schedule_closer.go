package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/unsikalab/tesonline-backend/internal/clock"
	"github.com/unsikalab/tesonline-backend/internal/service"
)

// ScheduleCloser periodically flips schedules past their closing time to
// CLOSED. It touches only schedule rows; live attempts are finished by their
// own heartbeat/timeout path, so the two never contend.
type ScheduleCloser struct {
	scheduleSvc *service.ScheduleService
	clk         clock.Clock
	interval    time.Duration
	log         zerolog.Logger
}

// NewScheduleCloser creates a new ScheduleCloser.
func NewScheduleCloser(scheduleSvc *service.ScheduleService, clk clock.Clock, interval time.Duration, log zerolog.Logger) *ScheduleCloser {
	return &ScheduleCloser{
		scheduleSvc: scheduleSvc,
		clk:         clk,
		interval:    interval,
		log:         log.With().Str("component", "schedule_closer").Logger(),
	}
}

// Start runs the close loop. Call in a goroutine.
func (w *ScheduleCloser) Start(ctx context.Context) {
	w.log.Info().Dur("interval", w.interval).Msg("Closer started")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Closer stopped")
			return
		case <-ticker.C:
			w.close(ctx)
		}
	}
}

func (w *ScheduleCloser) close(ctx context.Context) {
	closed, err := w.scheduleSvc.CloseExpired(ctx, w.clk.Now())
	if err != nil {
		w.log.Error().Err(err).Msg("close expired schedules")
		return
	}
	if closed > 0 {
		w.log.Info().Int64("closed", closed).Msg("expired schedules closed")
	}
}
