package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/unsikalab/tesonline-backend/internal/middleware"
	"github.com/unsikalab/tesonline-backend/internal/model"
	"github.com/unsikalab/tesonline-backend/internal/response"
	"github.com/unsikalab/tesonline-backend/internal/service"
)

const (
	keepAliveInterval = 30 * time.Second
	snapshotTimeout   = 5 * time.Second // prevent slow queries from blocking the SSE loop
)

// MonitorHandler streams live schedule activity to supervisors over SSE.
type MonitorHandler struct {
	scheduleService  *service.ScheduleService
	attemptService   *service.AttemptService
	violationService *service.ViolationService
	eventService     *service.EventService
	log              zerolog.Logger
}

// NewMonitorHandler creates a new MonitorHandler.
func NewMonitorHandler(
	scheduleService *service.ScheduleService,
	attemptService *service.AttemptService,
	violationService *service.ViolationService,
	eventService *service.EventService,
	log zerolog.Logger,
) *MonitorHandler {
	return &MonitorHandler{
		scheduleService:  scheduleService,
		attemptService:   attemptService,
		violationService: violationService,
		eventService:     eventService,
		log:              log.With().Str("component", "monitor_handler").Logger(),
	}
}

// MonitorScheduleSSE godoc
// GET /api/v1/admin/schedules/:id/monitor
// Sends an initial snapshot of every attempt, then relays lifecycle events
// (start, interrupt, resume, violation, submit) as they are published.
func (h *MonitorHandler) MonitorScheduleSSE(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	scheduleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	sched, err := h.scheduleService.GetByID(c.Request.Context(), scheduleID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}

	reqCtx := c.Request.Context()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	h.sendSnapshot(c, reqCtx, sched)

	pubsub := h.eventService.Subscribe(reqCtx, scheduleID)
	defer pubsub.Close()

	ch := pubsub.Channel()

	keepAliveTicker := time.NewTicker(keepAliveInterval)
	defer keepAliveTicker.Stop()

	h.log.Info().Str("schedule_id", scheduleID.String()).Msg("Supervisor attached to live monitor SSE")

	pingPayload, _ := json.Marshal(map[string]string{"type": "ping"})

	for {
		select {
		case <-reqCtx.Done():
			h.log.Info().Str("schedule_id", scheduleID.String()).Msg("Supervisor disconnected from live monitor SSE")
			return

		case msg := <-ch:
			// Forward raw JSON directly, no deserialization needed.
			c.Writer.Write([]byte("data: "))
			c.Writer.Write([]byte(msg.Payload))
			c.Writer.Write([]byte("\n\n"))
			c.Writer.Flush()

		case <-keepAliveTicker.C:
			c.Writer.Write([]byte("data: "))
			c.Writer.Write(pingPayload)
			c.Writer.Write([]byte("\n\n"))
			c.Writer.Flush()
		}
	}
}

// sendSnapshot writes the first SSE event: the full attempt list with
// per-attempt violation counts.
func (h *MonitorHandler) sendSnapshot(c *gin.Context, parentCtx context.Context, sched *model.Schedule) {
	ctx, cancel := context.WithTimeout(parentCtx, snapshotTimeout)
	defer cancel()

	attempts, err := h.attemptService.ListBySchedule(ctx, sched.ID)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to fetch attempts for snapshot")
		attempts = nil
	}

	totalInProgress := 0
	totalInterrupted := 0
	totalCompleted := 0

	rows := make([]map[string]interface{}, 0, len(attempts))
	for i := range attempts {
		a := &attempts[i]
		switch a.State {
		case model.AttemptStateInProgress:
			totalInProgress++
		case model.AttemptStateInterrupted:
			totalInterrupted++
		case model.AttemptStateCompleted:
			totalCompleted++
		}

		violations, _ := h.violationService.CountByAttempt(ctx, a.ID)

		rows = append(rows, map[string]interface{}{
			"attempt_id":        a.ID.String(),
			"participant_id":    a.ParticipantID,
			"state":             a.State,
			"started_at":        a.StartedAt,
			"last_active_at":    a.LastActiveAt,
			"remaining_seconds": a.RemainingSeconds,
			"violation_count":   violations,
		})
	}

	c.SSEvent("message", map[string]interface{}{
		"type": "snapshot",
		"data": map[string]interface{}{
			"schedule": map[string]interface{}{
				"id":               sched.ID.String(),
				"title":            sched.Title,
				"duration_seconds": sched.DurationSeconds,
				"closes_at":        sched.ClosesAt,
			},
			"stats": map[string]interface{}{
				"total_attempts":    len(attempts),
				"total_in_progress": totalInProgress,
				"total_interrupted": totalInterrupted,
				"total_completed":   totalCompleted,
			},
			"attempts": rows,
		},
	})
	c.Writer.Flush()
}
