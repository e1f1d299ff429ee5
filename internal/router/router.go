package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/unsikalab/tesonline-backend/internal/config"
	"github.com/unsikalab/tesonline-backend/internal/handler"
	"github.com/unsikalab/tesonline-backend/internal/middleware"
	"github.com/unsikalab/tesonline-backend/internal/response"
	"github.com/unsikalab/tesonline-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth       *handler.AuthHandler
	Attempt    *handler.AttemptHandler
	Supervisor *handler.SupervisorHandler
	Bypass     *handler.BypassHandler
	Monitor    *handler.MonitorHandler
	WS         *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
// The network access gate wraps only the participant exam surface; auth and
// bypass routes stay outside it so a locked-out user can still log in and a
// privileged user can always reach bypass activation.
func SetupRouter(
	authService *service.AuthService,
	accessService *service.AccessService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
		corsConfig.AllowCredentials = true
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Apply brotli middleware globally. SSE and WebSocket routes are passed
	// through untouched.
	router.Use(middleware.Brotli())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Rate limiter for auth routes (30 requests per minute per IP).
	authLimiter := middleware.NewRateLimiter(30, time.Minute)

	// ─── 1. Auth Group (Public, Rate Limited, NO access gate) ──────────
	auth := router.Group("/api/v1/auth")
	auth.Use(authLimiter.Middleware())
	{
		auth.POST("/participant/login", handlers.Auth.ParticipantLogin)
		auth.POST("/admin/login", handlers.Auth.AdminLogin)

		// Bypass activation must stay reachable from any origin.
		auth.POST("/bypass", handlers.Bypass.Activate)

		// Authenticated profile routes
		auth.POST("/participant/logout", middleware.RequireParticipantJWT(authService), handlers.Auth.ParticipantLogout)
		auth.GET("/participant/me", middleware.RequireParticipantJWT(authService), handlers.Auth.GetParticipantProfile)
	}

	// ─── 2. Participant Group (JWT + Single Device + Access Gate) ──────
	participantAPI := router.Group("/api/v1/participant")
	participantAPI.Use(
		middleware.RequireParticipantJWT(authService),
		middleware.CheckSingleDeviceSession(authService),
	)
	{
		// Lobby has no schedule in the path; the gate evaluates the
		// system-wide rule only.
		gated := participantAPI.Group("")
		gated.Use(middleware.AccessGate(accessService))
		{
			gated.GET("/schedules", handlers.Attempt.GetLobby)

			sched := gated.Group("/schedules/:schedule_id")
			{
				sched.POST("/register", handlers.Attempt.Register)
				sched.POST("/start", handlers.Attempt.Start)
				sched.POST("/heartbeat", handlers.Attempt.Heartbeat)
				sched.PUT("/answers", handlers.Attempt.SaveAnswer)
				sched.POST("/interrupt", handlers.Attempt.Interrupt)
				sched.POST("/resume", handlers.Attempt.Resume)
				sched.POST("/submit", handlers.Attempt.Submit)
				sched.POST("/violations", handlers.Attempt.ReportViolation)
				sched.GET("/state", handlers.Attempt.GetState)
			}
		}
	}

	// ─── 3. WebSocket Group (Participant WS Auth + Access Gate) ────────
	ws := router.Group("/ws/v1")
	ws.Use(
		middleware.RequireParticipantWSAuth(authService),
		middleware.AccessGate(accessService),
	)
	{
		ws.GET("/participant/schedules/:schedule_id/stream", handlers.WS.AttemptStream)
	}

	// ─── 4. Admin Group (JWT, NO access gate) ──────────────────────────
	adminAPI := router.Group("/api/v1/admin")
	adminAPI.Use(middleware.RequireAdminJWT(authService))
	{
		// Schedule management
		adminAPI.GET("/schedules", handlers.Supervisor.ListSchedules)
		adminAPI.POST("/schedules", handlers.Supervisor.CreateSchedule)
		adminAPI.GET("/schedules/:id", handlers.Supervisor.GetSchedule)
		adminAPI.PUT("/schedules/:id", handlers.Supervisor.UpdateSchedule)
		adminAPI.POST("/schedules/:id/registrations/:participant_id/approve", handlers.Supervisor.ApproveRegistration)
		adminAPI.GET("/schedules/:id/violations", handlers.Supervisor.ListViolations)
		adminAPI.GET("/schedules/:id/monitor", handlers.Monitor.MonitorScheduleSSE)

		// Attempt oversight
		adminAPI.GET("/attempts", handlers.Supervisor.ListAttempts)
		adminAPI.POST("/attempts/:id/authorize-resume", handlers.Supervisor.AuthorizeResume)

		// System-wide access mode
		adminAPI.GET("/settings/access-mode", handlers.Supervisor.GetAccessMode)
		adminAPI.PUT("/settings/access-mode", handlers.Supervisor.UpdateAccessMode)

		// Participant session recovery
		adminAPI.POST("/participants/:id/reset-session", handlers.Auth.ResetParticipantSession)

		// Bypass lifecycle
		adminAPI.GET("/bypass/status", handlers.Bypass.Status)
		adminAPI.POST("/bypass/deactivate", handlers.Bypass.Deactivate)
	}

	return router
}
