package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/unsikalab/tesonline-backend/internal/clock"
	"github.com/unsikalab/tesonline-backend/internal/config"
	"github.com/unsikalab/tesonline-backend/internal/database"
	"github.com/unsikalab/tesonline-backend/internal/handler"
	"github.com/unsikalab/tesonline-backend/internal/logger"
	"github.com/unsikalab/tesonline-backend/internal/repository"
	"github.com/unsikalab/tesonline-backend/internal/router"
	"github.com/unsikalab/tesonline-backend/internal/service"
	"github.com/unsikalab/tesonline-backend/internal/validator"
	"github.com/unsikalab/tesonline-backend/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Msg("Starting TesOnline Backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	clk := clock.System{}

	// ─── Initialize Repositories ───────────────────────────────────────
	participantRepo := repository.NewParticipantRepository(pool)
	adminRepo := repository.NewAdminRepository(pool)
	scheduleRepo := repository.NewScheduleRepository(pool)
	registrationRepo := repository.NewRegistrationRepository(pool)
	attemptRepo := repository.NewAttemptRepository(pool)
	answerRepo := repository.NewAnswerRepository(pool)
	violationRepo := repository.NewViolationRepository(pool)
	bypassRepo := repository.NewBypassRepository(pool)
	settingRepo := repository.NewSettingRepository(pool)

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg, rdb)
	userService := service.NewUserService(participantRepo, adminRepo)
	eventService := service.NewEventService(rdb, log)
	settingService := service.NewSettingService(settingRepo, rdb, cfg, log)
	scheduleService := service.NewScheduleService(scheduleRepo, registrationRepo, attemptRepo, clk, log)
	attemptService := service.NewAttemptService(attemptRepo, scheduleRepo, registrationRepo, eventService, clk, log)
	answerService := service.NewAnswerService(answerRepo, rdb, log)
	violationService := service.NewViolationService(violationRepo, attemptService, eventService, rdb, clk, cfg, log)
	bypassService := service.NewBypassService(bypassRepo, adminRepo, authService, cfg, clk, log)
	accessService := service.NewAccessService(settingService, scheduleRepo, bypassService, cfg.AllowedNetworks, log)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:       handler.NewAuthHandler(authService, userService),
		Attempt:    handler.NewAttemptHandler(attemptService, answerService, violationService, scheduleService),
		Supervisor: handler.NewSupervisorHandler(scheduleService, attemptService, violationService, settingService),
		Bypass:     handler.NewBypassHandler(bypassService, authService),
		Monitor:    handler.NewMonitorHandler(scheduleService, attemptService, violationService, eventService, log),
		WS:         handler.NewWSHandler(attemptService, answerService, violationService, log, cfg.AllowedOrigins),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	answerWorker := worker.NewAnswerWorker(pool, rdb, log)
	violationWorker := worker.NewViolationWorker(pool, rdb, log)
	bypassSweeper := worker.NewBypassSweeper(bypassService, cfg.BypassSweepInterval, log)
	scheduleCloser := worker.NewScheduleCloser(scheduleService, clk, cfg.ScheduleSweepInterval, log)

	go answerWorker.Start(workerCtx)
	go violationWorker.Start(workerCtx)
	go bypassSweeper.Start(workerCtx)
	go scheduleCloser.Start(workerCtx)

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, accessService, handlers, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop background workers and wait for queues to drain.
	workerCancel()
	time.Sleep(2 * time.Second) // Allow workers to drain.

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
