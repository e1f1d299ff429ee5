package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/unsikalab/tesonline-backend/internal/service"
)

// BypassSweeper periodically purges expired bypass sessions. Expired tokens
// are already rejected at validation time, so the sweep is housekeeping: it
// keeps the table small and makes expiry visible in the logs.
type BypassSweeper struct {
	bypassSvc *service.BypassService
	interval  time.Duration
	log       zerolog.Logger
}

// NewBypassSweeper creates a new BypassSweeper.
func NewBypassSweeper(bypassSvc *service.BypassService, interval time.Duration, log zerolog.Logger) *BypassSweeper {
	return &BypassSweeper{
		bypassSvc: bypassSvc,
		interval:  interval,
		log:       log.With().Str("component", "bypass_sweeper").Logger(),
	}
}

// Start runs the sweep loop. Call in a goroutine.
func (w *BypassSweeper) Start(ctx context.Context) {
	w.log.Info().Dur("interval", w.interval).Msg("Sweeper started")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Sweeper stopped")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *BypassSweeper) sweep(ctx context.Context) {
	purged, err := w.bypassSvc.PurgeExpired(ctx)
	if err != nil {
		w.log.Error().Err(err).Msg("purge expired bypass sessions")
		return
	}
	if purged > 0 {
		w.log.Info().Int64("purged", purged).Msg("expired bypass sessions removed")
	}
}
