package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/unsikalab/tesonline-backend/internal/middleware"
	"github.com/unsikalab/tesonline-backend/internal/model"
	"github.com/unsikalab/tesonline-backend/internal/response"
	"github.com/unsikalab/tesonline-backend/internal/service"
	"github.com/unsikalab/tesonline-backend/internal/validator"
)

// SupervisorHandler handles the admin-facing schedule, attempt, and
// violation endpoints.
type SupervisorHandler struct {
	scheduleService  *service.ScheduleService
	attemptService   *service.AttemptService
	violationService *service.ViolationService
	settingService   *service.SettingService
}

// NewSupervisorHandler creates a new SupervisorHandler.
func NewSupervisorHandler(
	scheduleService *service.ScheduleService,
	attemptService *service.AttemptService,
	violationService *service.ViolationService,
	settingService *service.SettingService,
) *SupervisorHandler {
	return &SupervisorHandler{
		scheduleService:  scheduleService,
		attemptService:   attemptService,
		violationService: violationService,
		settingService:   settingService,
	}
}

// ListSchedules godoc
// GET /api/v1/admin/schedules
func (h *SupervisorHandler) ListSchedules(c *gin.Context) {
	schedules, err := h.scheduleService.ListAll(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"schedules": schedules})
}

// CreateSchedule godoc
// POST /api/v1/admin/schedules
func (h *SupervisorHandler) CreateSchedule(c *gin.Context) {
	var req model.CreateScheduleRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	sched, err := h.scheduleService.Create(c.Request.Context(), &req)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"schedule": sched})
}

// GetSchedule godoc
// GET /api/v1/admin/schedules/:id
func (h *SupervisorHandler) GetSchedule(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	sched, err := h.scheduleService.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrScheduleNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"schedule": sched})
}

// UpdateSchedule godoc
// PUT /api/v1/admin/schedules/:id
// Also the switch for the per-schedule access mode override.
func (h *SupervisorHandler) UpdateSchedule(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.UpdateScheduleRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	sched, err := h.scheduleService.Update(c.Request.Context(), id, &req)
	if err != nil {
		if errors.Is(err, service.ErrScheduleNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"schedule": sched})
}

// ApproveRegistration godoc
// POST /api/v1/admin/schedules/:id/registrations/:participant_id/approve
func (h *SupervisorHandler) ApproveRegistration(c *gin.Context) {
	scheduleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	participantID, err := strconv.Atoi(c.Param("participant_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.scheduleService.ApproveRegistration(c.Request.Context(), scheduleID, participantID); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

// ListAttempts godoc
// GET /api/v1/admin/attempts?schedule_id=...
func (h *SupervisorHandler) ListAttempts(c *gin.Context) {
	scheduleID, err := uuid.Parse(c.Query("schedule_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	attempts, err := h.attemptService.ListBySchedule(c.Request.Context(), scheduleID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"attempts": attempts})
}

// AuthorizeResume godoc
// POST /api/v1/admin/attempts/:id/authorize-resume
// Clears an interrupted attempt so the participant may resume. Idempotent:
// authorizing an already-authorized attempt re-records the authorizer.
func (h *SupervisorHandler) AuthorizeResume(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	attemptID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	attempt, err := h.attemptService.AuthorizeResume(c.Request.Context(), attemptID, claims.UserID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAttemptNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrAttemptNotFound)
		case errors.Is(err, service.ErrAttemptNotInterrupted):
			response.Fail(c, http.StatusConflict, response.ErrAttemptNotInterrupted)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{"attempt": attempt})
}

// ListViolations godoc
// GET /api/v1/admin/schedules/:id/violations
func (h *SupervisorHandler) ListViolations(c *gin.Context) {
	scheduleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	violations, err := h.violationService.ListBySchedule(c.Request.Context(), scheduleID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"violations": violations})
}

// GetAccessMode godoc
// GET /api/v1/admin/settings/access-mode
func (h *SupervisorHandler) GetAccessMode(c *gin.Context) {
	mode := h.settingService.GetAccessMode(c.Request.Context())
	response.Success(c, http.StatusOK, gin.H{"access_mode": mode})
}

// UpdateAccessMode godoc
// PUT /api/v1/admin/settings/access-mode
func (h *SupervisorHandler) UpdateAccessMode(c *gin.Context) {
	var req model.UpdateAccessModeRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	mode := model.SystemAccessMode(req.AccessMode)
	if err := h.settingService.SetAccessMode(c.Request.Context(), mode); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"access_mode": mode})
}
