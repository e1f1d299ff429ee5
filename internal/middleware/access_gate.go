package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/unsikalab/tesonline-backend/internal/response"
	"github.com/unsikalab/tesonline-backend/internal/service"
)

const (
	// BypassCookieName carries the admin bypass token.
	BypassCookieName = "bypass_token"

	// ContextKeyOrigin is the Gin context key for the extracted client origin.
	ContextKeyOrigin = "client_origin"
)

// AccessGate vetoes requests from unlisted network origins before anything
// else runs. Routes mounted without this middleware (bypass activation,
// health) are exempt by construction. When the denied rule is the
// schedule's own access mode the denial says so, otherwise it names the
// system-wide restriction.
func AccessGate(accessSvc *service.AccessService) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := service.ClientIP(c.Request)
		c.Set(ContextKeyOrigin, origin)

		var scheduleID *uuid.UUID
		if raw := c.Param("schedule_id"); raw != "" {
			if id, err := uuid.Parse(raw); err == nil {
				scheduleID = &id
			}
		}

		token, _ := c.Cookie(BypassCookieName)

		decision := accessSvc.Evaluate(c.Request.Context(), scheduleID, origin, token)
		if decision.Allowed {
			c.Next()
			return
		}

		response.AbortDenied(c, http.StatusForbidden, response.ErrOriginDenied, &response.Denial{
			Scope:           decision.Scope,
			DetectedOrigin:  decision.DetectedOrigin,
			AllowedNetworks: accessSvc.AllowedNetworks(),
			BypassHint:      "akses hanya diizinkan dari jaringan ujian; hubungi pengawas",
		})
	}
}

// GetOrigin retrieves the client origin extracted by the gate. Falls back to
// re-extracting when the gate did not run on this route.
func GetOrigin(c *gin.Context) string {
	if v, ok := c.Get(ContextKeyOrigin); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return service.ClientIP(c.Request)
}
