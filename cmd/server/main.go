package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/EduCore-2025/exam-engine/internal/cache"
	"github.com/EduCore-2025/exam-engine/internal/config"
	"github.com/EduCore-2025/exam-engine/internal/handlers"
	"github.com/EduCore-2025/exam-engine/internal/identity"
	"github.com/EduCore-2025/exam-engine/internal/repositories/postgres"
	"github.com/EduCore-2025/exam-engine/internal/scheduler"
	"github.com/EduCore-2025/exam-engine/internal/services"
	"github.com/EduCore-2025/exam-engine/internal/utils"
	"github.com/EduCore-2025/exam-engine/pkg"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	var logger utils.Logger
	if cfg.Environment == "production" {
		logger = utils.NewDefaultLogger()
		gin.SetMode(gin.ReleaseMode)
	} else {
		logger = utils.NewDevelopmentLogger()
	}
	logger.Info("starting exam-engine", "port", cfg.Port, "environment", cfg.Environment)

	db, err := pkg.InitDatabase(cfg)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	if err := pkg.AutoMigrate(db); err != nil {
		logger.Error("failed to migrate database", "error", err)
		os.Exit(1)
	}

	redisClient, err := pkg.NewRedisClient(cfg)
	if err != nil {
		logger.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	eventCfg := config.LoadEventConfig()
	publisher, err := eventCfg.CreateEventPublisher(slog.Default())
	if err != nil {
		logger.Error("failed to create event publisher", "error", err)
		os.Exit(1)
	}
	defer publisher.Close()

	repo := postgres.NewRepository(db)
	clock := utils.SystemClock()
	validator := utils.NewValidator()

	contentCache := cache.NewContentCache(redisClient, repo.Question(), cfg.ContentCacheTTL, logger)

	rankingService := services.NewRankingService(repo, publisher, clock, logger)
	finalizerService := services.NewFinalizerService(repo, rankingService, publisher, clock, logger)
	sessionService := services.NewSessionService(repo, contentCache, finalizerService, publisher, clock, validator, logger)
	contestService := services.NewContestService(repo, contentCache, finalizerService, publisher, clock, validator, logger)
	examService := services.NewExamService(repo, validator, logger)
	exportService := services.NewExportService(repo, logger)

	verifier := identity.NewCasdoorVerifier(identity.CasdoorConfig{
		Endpoint:     cfg.CasdoorEndpoint,
		ClientID:     cfg.CasdoorClientID,
		ClientSecret: cfg.CasdoorClientSecret,
		Certificate:  cfg.CasdoorCertificate,
		Organization: cfg.CasdoorOrganization,
		Application:  cfg.CasdoorApplication,
	})

	lifecycle := scheduler.NewLifecycle(repo, finalizerService, publisher, clock, logger, cfg.RetentionWindow)
	if err := lifecycle.Start(cfg.SchedulerSpec); err != nil {
		logger.Error("failed to start lifecycle scheduler", "error", err)
		os.Exit(1)
	}
	defer lifecycle.Stop()

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.LoggerMiddleware(logger))

	handlerManager := handlers.NewHandlerManager(handlers.HandlerConfig{
		Sessions:         sessionService,
		Contests:         contestService,
		Exams:            examService,
		Export:           exportService,
		Verifier:         verifier,
		LeaderboardLimit: cfg.LeaderboardLimit,
		Logger:           logger,
	})
	handlerManager.SetupRoutes(router)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	logger.Info("shutting down", "signal", sig.String())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
}
