package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/unsikalab/tesonline-backend/internal/middleware"
	"github.com/unsikalab/tesonline-backend/internal/model"
	"github.com/unsikalab/tesonline-backend/internal/service"
	ws "github.com/unsikalab/tesonline-backend/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams the attempt lifecycle over a single WebSocket: autosave,
// heartbeat, interruption, violation reports and submission all travel on one
// connection instead of individual HTTP round trips.
type WSHandler struct {
	attemptService   *service.AttemptService
	answerService    *service.AnswerService
	violationService *service.ViolationService
	log              zerolog.Logger
	upgrader         websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(
	attemptService *service.AttemptService,
	answerService *service.AnswerService,
	violationService *service.ViolationService,
	log zerolog.Logger,
	allowedOrigins []string,
) *WSHandler {
	return &WSHandler{
		attemptService:   attemptService,
		answerService:    answerService,
		violationService: violationService,
		log:              log.With().Str("component", "ws_handler").Logger(),
		upgrader:         buildUpgrader(allowedOrigins),
	}
}

// AttemptStream godoc
// WS /ws/v1/participant/schedules/:schedule_id/stream
// Upgrades to WebSocket for real-time autosave, liveness and submission.
func (h *WSHandler) AttemptStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	scheduleID, err := uuid.Parse(c.Param("schedule_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid schedule ID"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	participantID := claims.UserID

	// The stream requires a started attempt. A COMPLETED one can still
	// connect: heartbeats echo the final state so stale clients converge.
	snap, err := h.attemptService.GetState(c.Request.Context(), scheduleID, participantID)
	if err != nil {
		ws.WriteError(conn, "no attempt for this schedule")
		return
	}

	wsLog := h.log.With().
		Int("participant_id", participantID).
		Str("schedule_id", scheduleID.String()).
		Str("attempt_id", snap.Attempt.ID.String()).
		Logger()

	wsLog.Info().Msg("Participant connected")

	for {
		var msg ws.StreamRequest
		err := ws.ReadFrame(conn, &msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			break
		}

		switch msg.Action {
		case ws.ActionAutosave:
			h.handleAutosave(conn, scheduleID, participantID, &msg)
		case ws.ActionHeartbeat:
			h.handleHeartbeat(conn, scheduleID, participantID)
		case ws.ActionInterrupt:
			h.handleInterrupt(conn, scheduleID, participantID, &msg)
		case ws.ActionSubmit:
			h.handleSubmit(conn, wsLog, scheduleID, participantID)
		case ws.ActionViolation:
			h.handleViolation(conn, wsLog, scheduleID, participantID, &msg)
		case ws.ActionPing:
			ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong})
		default:
			wsLog.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
			ws.WriteError(conn, "unknown action: "+string(msg.Action))
		}
	}
}

// handleAutosave buffers a single answer and queues it for persistence.
func (h *WSHandler) handleAutosave(conn *websocket.Conn, scheduleID uuid.UUID, participantID int, msg *ws.StreamRequest) {
	ctx := context.Background()

	if msg.QuestionID == "" || msg.ClientTS.IsZero() {
		ws.WriteError(conn, "question_id and client_ts are required")
		return
	}

	questionID, err := uuid.Parse(msg.QuestionID)
	if err != nil {
		ws.WriteError(conn, "invalid question_id format")
		return
	}

	attempt, err := h.attemptService.VerifyActive(ctx, scheduleID, participantID)
	if err != nil {
		ws.WriteError(conn, lifecycleErrMessage(err))
		return
	}

	applied, err := h.answerService.Save(ctx, attempt, &model.SaveAnswerRequest{
		QuestionID: questionID,
		Value:      msg.Value,
		ClientTS:   msg.ClientTS,
	})
	if err != nil {
		h.log.Error().Err(err).Int("participant_id", participantID).Msg("Autosave error")
		ws.WriteError(conn, "save failed")
		return
	}

	ws.WriteTyped(conn, ws.SavedResponse{
		Event:      ws.EventSaved,
		QuestionID: msg.QuestionID,
		Applied:    applied,
	})
}

func (h *WSHandler) handleHeartbeat(conn *websocket.Conn, scheduleID uuid.UUID, participantID int) {
	result, err := h.attemptService.Heartbeat(context.Background(), scheduleID, participantID)
	if err != nil {
		ws.WriteError(conn, lifecycleErrMessage(err))
		return
	}

	ws.WriteTyped(conn, ws.HeartbeatResponse{
		Event:            ws.EventHeartbeat,
		State:            string(result.Attempt.State),
		RemainingSeconds: result.RemainingSeconds,
		ServerTime:       result.ServerTime,
	})
}

func (h *WSHandler) handleInterrupt(conn *websocket.Conn, scheduleID uuid.UUID, participantID int, msg *ws.StreamRequest) {
	reason := msg.Reason
	if reason == "" {
		reason = "unspecified"
	}

	attempt, err := h.attemptService.Interrupt(context.Background(), scheduleID, participantID, reason)
	if err != nil {
		ws.WriteError(conn, lifecycleErrMessage(err))
		return
	}

	ws.WriteTyped(conn, ws.InterruptedResponse{
		Event:            ws.EventInterrupted,
		State:            string(attempt.State),
		RemainingSeconds: attempt.RemainingSeconds,
		Resumable:        attempt.Resumable,
	})
}

// handleSubmit finalizes the attempt. Buffered answers were already queued
// for persistence at autosave time; submit only flips the state.
func (h *WSHandler) handleSubmit(conn *websocket.Conn, wsLog zerolog.Logger, scheduleID uuid.UUID, participantID int) {
	ctx := context.Background()

	attempt, err := h.attemptService.Submit(ctx, scheduleID, participantID)
	if err != nil {
		ws.WriteError(conn, lifecycleErrMessage(err))
		return
	}

	h.answerService.ClearBuffer(ctx, attempt)

	wsLog.Info().Msg("Attempt submitted over WebSocket")

	resp := ws.SubmittedResponse{
		Event: ws.EventSubmitted,
		State: string(attempt.State),
	}
	if attempt.SubmitReason != nil {
		resp.SubmitReason = string(*attempt.SubmitReason)
	}
	ws.WriteTyped(conn, resp)
}

func (h *WSHandler) handleViolation(conn *websocket.Conn, wsLog zerolog.Logger, scheduleID uuid.UUID, participantID int, msg *ws.StreamRequest) {
	ctx := context.Background()

	if msg.ViolationType == "" {
		ws.WriteError(conn, "violation_type is required")
		return
	}

	// Violations are accepted in every state; the log must survive even
	// when the attempt is already settled.
	snap, err := h.attemptService.GetState(ctx, scheduleID, participantID)
	if err != nil {
		ws.WriteError(conn, lifecycleErrMessage(err))
		return
	}

	outcome, err := h.violationService.Report(ctx, snap.Attempt, &model.ReportViolationRequest{
		ViolationType:   msg.ViolationType,
		DetectionMethod: msg.DetectionMethod,
		Metadata:        msg.Metadata,
	})
	if err != nil {
		wsLog.Error().Err(err).Msg("Violation report error")
		ws.WriteError(conn, "violation report failed")
		return
	}

	ws.WriteTyped(conn, ws.ViolationAckResponse{
		Event:            ws.EventViolationAck,
		ViolationID:      outcome.ViolationID.String(),
		ForcedSubmission: outcome.ForcedSubmission,
	})

	if outcome.ForcedSubmission && outcome.Attempt != nil {
		resp := ws.SubmittedResponse{
			Event: ws.EventSubmitted,
			State: string(outcome.Attempt.State),
		}
		if outcome.Attempt.SubmitReason != nil {
			resp.SubmitReason = string(*outcome.Attempt.SubmitReason)
		}
		ws.WriteTyped(conn, resp)
	}
}

// lifecycleErrMessage maps lifecycle sentinels to short client-safe strings.
func lifecycleErrMessage(err error) string {
	switch {
	case errors.Is(err, service.ErrAttemptNotFound):
		return "attempt not found"
	case errors.Is(err, service.ErrAttemptCompleted):
		return "attempt already completed"
	case errors.Is(err, service.ErrAttemptNotInProgress):
		return "attempt is not in progress"
	case errors.Is(err, service.ErrAttemptNotInterrupted):
		return "attempt is not interrupted"
	case errors.Is(err, service.ErrResumeNotAuthorized):
		return "resume has not been authorized"
	case errors.Is(err, service.ErrScheduleNotOpen):
		return "schedule is not open"
	default:
		return "request failed, retry"
	}
}
