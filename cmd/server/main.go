package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/findit-id/cbt-backend/internal/config"
	"github.com/findit-id/cbt-backend/internal/database"
	"github.com/findit-id/cbt-backend/internal/handler"
	"github.com/findit-id/cbt-backend/internal/logger"
	"github.com/findit-id/cbt-backend/internal/repository"
	"github.com/findit-id/cbt-backend/internal/router"
	"github.com/findit-id/cbt-backend/internal/service"
	"github.com/findit-id/cbt-backend/internal/validator"
	"github.com/findit-id/cbt-backend/internal/worker"
	"github.com/rs/zerolog"
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
		Msg("Starting CBT Backend")

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

	// ─── Initialize Repositories ───────────────────────────────────────
	testRepo := repository.NewTestRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)
	sessionRepo := repository.NewSessionRepository(pool)
	answerRepo := repository.NewAnswerRepository(pool)
	flagRepo := repository.NewFlagRepository(pool)
	scoreRepo := repository.NewScoreRepository(pool)
	teamRepo := repository.NewTeamRepository(pool)
	adminRepo := repository.NewAdminRepository(pool)
	userSessionRepo := repository.NewUserSessionRepository(pool)

	// ─── Initialize Redis Adapters ─────────────────────────────────────
	scoreQueue := service.NewRedisScoreQueue(rdb)
	unfairnessQueue := service.NewRedisUnfairnessQueue(rdb)
	eventPublisher := service.NewRedisEventPublisher(rdb)
	endTimeCache := service.NewRedisEndTimeCache(rdb)

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg, userSessionRepo, teamRepo, adminRepo, unfairnessQueue, log)
	scoringService := service.NewScoringService(answerRepo, questionRepo, scoreRepo, scoreQueue, log)
	sessionService := service.NewSessionService(sessionRepo, testRepo, scoringService, endTimeCache, log)
	examService := service.NewExamService(testRepo, questionRepo, log)
	answerService := service.NewAnswerService(answerRepo, flagRepo, questionRepo, eventPublisher, log)
	testService := service.NewTestService(testRepo, questionRepo, endTimeCache, cfg.BcryptCost, log)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:   handler.NewAuthHandler(authService),
		Portal: handler.NewPortalHandler(examService, sessionService, answerService, scoringService),
		Admin:  handler.NewAdminHandler(testService, sessionService, scoreRepo),
		WS:     handler.NewWSHandler(rdb, sessionService, eventPublisher, cfg, log),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	scoreWorker := worker.NewScoreWorker(pool, rdb, log)
	unfairnessWorker := worker.NewUnfairnessWorker(pool, rdb, log)
	sweeperWorker := worker.NewSweeperWorker(sessionService, cfg.SweepInterval, log)

	go scoreWorker.Start(workerCtx)
	go unfairnessWorker.Start(workerCtx)
	go sweeperWorker.Start(workerCtx)

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, handlers, cfg)

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
