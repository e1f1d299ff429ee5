package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/unsikalab/tesonline-backend/internal/middleware"
	"github.com/unsikalab/tesonline-backend/internal/model"
	"github.com/unsikalab/tesonline-backend/internal/response"
	"github.com/unsikalab/tesonline-backend/internal/service"
	"github.com/unsikalab/tesonline-backend/internal/validator"
)

// BypassHandler manages the network-restriction bypass routes. These routes
// are registered OUTSIDE the access gate so a locked-out admin can always
// reach them.
type BypassHandler struct {
	bypassService *service.BypassService
	authService   *service.AuthService
}

// NewBypassHandler creates a new BypassHandler.
func NewBypassHandler(bypassService *service.BypassService, authService *service.AuthService) *BypassHandler {
	return &BypassHandler{
		bypassService: bypassService,
		authService:   authService,
	}
}

// Activate godoc
// POST /api/v1/auth/bypass
// Exchanges full admin credentials plus the shared bypass code for a bypass
// cookie. Every failure mode returns the same INVALID_BYPASS_CODE so callers
// cannot tell which part of the triple was wrong.
func (h *BypassHandler) Activate(c *gin.Context) {
	var req model.ActivateBypassRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	origin := middleware.GetOrigin(c)

	session, err := h.bypassService.Activate(c.Request.Context(), &req, origin)
	if err != nil {
		if errors.Is(err, service.ErrBypassDisabled) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		if errors.Is(err, service.ErrInvalidCredentials) {
			response.Fail(c, http.StatusUnauthorized, response.ErrInvalidBypassCode)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	maxAge := int(time.Until(session.ExpiresAt).Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.BypassCookieName, session.Token, maxAge, "/", "", false, true)

	response.Success(c, http.StatusOK, gin.H{
		"expires_at": session.ExpiresAt,
	})
}

// Deactivate godoc
// POST /api/v1/admin/bypass/deactivate
// Revokes every bypass session owned by the calling admin and clears the cookie.
func (h *BypassHandler) Deactivate(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	if err := h.bypassService.Deactivate(c.Request.Context(), claims.UserID); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	c.SetCookie(middleware.BypassCookieName, "", -1, "/", "", false, true)

	response.Success(c, http.StatusOK, gin.H{
		"deactivated": true,
	})
}

// Status godoc
// GET /api/v1/admin/bypass/status
func (h *BypassHandler) Status(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	session, err := h.bypassService.Status(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	if session == nil {
		response.Success(c, http.StatusOK, gin.H{"active": false})
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"active":     true,
		"ip_address": session.IPAddress,
		"expires_at": session.ExpiresAt,
	})
}
