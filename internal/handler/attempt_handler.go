package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/unsikalab/tesonline-backend/internal/middleware"
	"github.com/unsikalab/tesonline-backend/internal/model"
	"github.com/unsikalab/tesonline-backend/internal/response"
	"github.com/unsikalab/tesonline-backend/internal/service"
	"github.com/unsikalab/tesonline-backend/internal/validator"
)

// AttemptHandler handles the participant-facing attempt lifecycle endpoints.
type AttemptHandler struct {
	attemptService   *service.AttemptService
	answerService    *service.AnswerService
	violationService *service.ViolationService
	scheduleService  *service.ScheduleService
}

// NewAttemptHandler creates a new AttemptHandler.
func NewAttemptHandler(
	attemptService *service.AttemptService,
	answerService *service.AnswerService,
	violationService *service.ViolationService,
	scheduleService *service.ScheduleService,
) *AttemptHandler {
	return &AttemptHandler{
		attemptService:   attemptService,
		answerService:    answerService,
		violationService: violationService,
		scheduleService:  scheduleService,
	}
}

// failLifecycleErr maps service errors onto the error taxonomy. Precondition
// violations are 4xx and never mutate state; unknown errors stay retryable
// from the client's point of view.
func failLifecycleErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrScheduleNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, service.ErrScheduleNotOpen):
		response.Fail(c, http.StatusConflict, response.ErrScheduleClosed)
	case errors.Is(err, service.ErrRegistrationRequired):
		response.Fail(c, http.StatusForbidden, response.ErrRegistrationRequired)
	case errors.Is(err, service.ErrAttemptNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrAttemptNotFound)
	case errors.Is(err, service.ErrAttemptCompleted):
		response.Fail(c, http.StatusConflict, response.ErrAttemptCompleted)
	case errors.Is(err, service.ErrAttemptNotInProgress):
		response.Fail(c, http.StatusConflict, response.ErrAttemptNotInProgress)
	case errors.Is(err, service.ErrAttemptNotInterrupted):
		response.Fail(c, http.StatusConflict, response.ErrAttemptNotInterrupted)
	case errors.Is(err, service.ErrResumeNotAuthorized):
		response.Fail(c, http.StatusForbidden, response.ErrResumeNotAuthorized)
	default:
		response.Fail(c, http.StatusServiceUnavailable, response.ErrRetryable)
	}
}

func scheduleParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("schedule_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return uuid.Nil, false
	}
	return id, true
}

// GetLobby godoc
// GET /api/v1/participant/schedules
func (h *AttemptHandler) GetLobby(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	lobby, err := h.scheduleService.GetLobby(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"schedules": lobby})
}

// Register godoc
// POST /api/v1/participant/schedules/:schedule_id/register
// Creates a PENDING registration awaiting supervisor approval. Registering
// twice is a no-op.
func (h *AttemptHandler) Register(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	scheduleID, ok := scheduleParam(c)
	if !ok {
		return
	}

	if err := h.scheduleService.Register(c.Request.Context(), scheduleID, claims.UserID); err != nil {
		failLifecycleErr(c, err)
		return
	}

	response.Success(c, http.StatusAccepted, gin.H{
		"schedule_id": scheduleID,
		"status":      model.RegistrationPending,
	})
}

// Start godoc
// POST /api/v1/participant/schedules/:schedule_id/start
// Starts the attempt, or loads the existing one (refresh, second device).
func (h *AttemptHandler) Start(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	scheduleID, ok := scheduleParam(c)
	if !ok {
		return
	}

	attempt, err := h.attemptService.Start(c.Request.Context(), scheduleID, claims.UserID)
	if err != nil {
		failLifecycleErr(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"attempt": attempt})
}

// Heartbeat godoc
// POST /api/v1/participant/schedules/:schedule_id/heartbeat
func (h *AttemptHandler) Heartbeat(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	scheduleID, ok := scheduleParam(c)
	if !ok {
		return
	}

	result, err := h.attemptService.Heartbeat(c.Request.Context(), scheduleID, claims.UserID)
	if err != nil {
		failLifecycleErr(c, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}

// SaveAnswer godoc
// PUT /api/v1/participant/schedules/:schedule_id/answers
// Idempotent answer upsert. A stale save (older client_ts than stored) is a
// no-op success so retry logic on the client stays trivial. Interrupted
// attempts still accept saves so a reconnecting client can flush its buffer.
func (h *AttemptHandler) SaveAnswer(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	scheduleID, ok := scheduleParam(c)
	if !ok {
		return
	}

	var req model.SaveAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	attempt, err := h.attemptService.VerifyActive(c.Request.Context(), scheduleID, claims.UserID)
	if err != nil {
		failLifecycleErr(c, err)
		return
	}

	applied, err := h.answerService.Save(c.Request.Context(), attempt, &req)
	if err != nil {
		response.Fail(c, http.StatusServiceUnavailable, response.ErrRetryable)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"applied": applied})
}

// Interrupt godoc
// POST /api/v1/participant/schedules/:schedule_id/interrupt
func (h *AttemptHandler) Interrupt(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	scheduleID, ok := scheduleParam(c)
	if !ok {
		return
	}

	var req model.InterruptRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	attempt, err := h.attemptService.Interrupt(c.Request.Context(), scheduleID, claims.UserID, req.Reason)
	if err != nil {
		failLifecycleErr(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"attempt": attempt})
}

// Resume godoc
// POST /api/v1/participant/schedules/:schedule_id/resume
// Continues an interrupted attempt after supervisor authorization.
func (h *AttemptHandler) Resume(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	scheduleID, ok := scheduleParam(c)
	if !ok {
		return
	}

	attempt, err := h.attemptService.Resume(c.Request.Context(), scheduleID, claims.UserID)
	if err != nil {
		failLifecycleErr(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"attempt": attempt})
}

// Submit godoc
// POST /api/v1/participant/schedules/:schedule_id/submit
// Flushes the final answer batch and completes the attempt. Fully
// idempotent: retrying against a completed attempt echoes the settled
// result with 200.
func (h *AttemptHandler) Submit(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	scheduleID, ok := scheduleParam(c)
	if !ok {
		return
	}

	var req model.SubmitRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	snap, err := h.attemptService.GetState(c.Request.Context(), scheduleID, claims.UserID)
	if err != nil {
		failLifecycleErr(c, err)
		return
	}

	if snap.Attempt.State.Active() && len(req.Answers) > 0 {
		if err := h.answerService.FlushFinal(c.Request.Context(), snap.Attempt, req.Answers); err != nil {
			// Unknown outcome must stay retryable, never "discard answers".
			response.Fail(c, http.StatusServiceUnavailable, response.ErrRetryable)
			return
		}
	}

	completed, err := h.attemptService.Submit(c.Request.Context(), scheduleID, claims.UserID)
	if err != nil {
		failLifecycleErr(c, err)
		return
	}

	h.answerService.ClearBuffer(c.Request.Context(), completed)

	response.Success(c, http.StatusOK, gin.H{"attempt": completed})
}

// ReportViolation godoc
// POST /api/v1/participant/schedules/:schedule_id/violations
// Always logged for audit, regardless of attempt state; severe types end
// the attempt before the response goes out.
func (h *AttemptHandler) ReportViolation(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	scheduleID, ok := scheduleParam(c)
	if !ok {
		return
	}

	var req model.ReportViolationRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	snap, err := h.attemptService.GetState(c.Request.Context(), scheduleID, claims.UserID)
	if err != nil {
		failLifecycleErr(c, err)
		return
	}

	outcome, err := h.violationService.Report(c.Request.Context(), snap.Attempt, &req)
	if err != nil {
		response.Fail(c, http.StatusServiceUnavailable, response.ErrRetryable)
		return
	}

	response.Success(c, http.StatusAccepted, outcome)
}

// GetState godoc
// GET /api/v1/participant/schedules/:schedule_id/state
// Reload recovery: attempt state, live remaining budget, saved answers.
func (h *AttemptHandler) GetState(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	scheduleID, ok := scheduleParam(c)
	if !ok {
		return
	}

	snap, err := h.attemptService.GetState(c.Request.Context(), scheduleID, claims.UserID)
	if err != nil {
		failLifecycleErr(c, err)
		return
	}

	answers, err := h.answerService.GetSaved(c.Request.Context(), snap.Attempt)
	if err != nil {
		response.Fail(c, http.StatusServiceUnavailable, response.ErrRetryable)
		return
	}

	response.Success(c, http.StatusOK, model.AttemptStateResponse{
		Attempt:          snap.Attempt,
		RemainingSeconds: snap.RemainingSeconds,
		SavedAnswers:     answers,
		ServerTime:       snap.ServerTime,
	})
}
