package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	_ "github.com/noah-isme/classroom-grades-api/api/swagger"
	"github.com/noah-isme/classroom-grades-api/internal/grading"
	"github.com/noah-isme/classroom-grades-api/internal/handler"
	"github.com/noah-isme/classroom-grades-api/internal/repository"
	"github.com/noah-isme/classroom-grades-api/internal/router"
	"github.com/noah-isme/classroom-grades-api/internal/service"
	"github.com/noah-isme/classroom-grades-api/pkg/cache"
	"github.com/noah-isme/classroom-grades-api/pkg/config"
	"github.com/noah-isme/classroom-grades-api/pkg/database"
	"github.com/noah-isme/classroom-grades-api/pkg/events"
	"github.com/noah-isme/classroom-grades-api/pkg/jobs"
	"github.com/noah-isme/classroom-grades-api/pkg/logger"
)

// @title Classroom Grades API
// @version 1.0.0
// @description Weighted grade structures, score recording and on-demand grade computation.
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	if cfg.Migrations.Enabled {
		if err := database.RunMigrations(db.DB, logr); err != nil {
			logr.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Fatal("failed to connect redis", zap.Error(err))
	}
	cacheRepo := repository.NewCacheRepository(redisClient)
	defer cacheRepo.Close() //nolint:errcheck

	metrics := service.NewMetricsService()
	summaryCache := service.NewCacheService(cacheRepo, metrics, cfg.Grading.SummaryCacheTTL, logr, cfg.Grading.SummaryCacheEnabled && redisClient != nil)

	publisher, err := events.NewPublisher(cfg.Events, logr)
	if err != nil {
		logr.Fatal("failed to init event publisher", zap.Error(err))
	}
	defer publisher.Close() //nolint:errcheck

	dispatcher := service.NewEventDispatcher(publisher, jobs.QueueConfig{
		Workers:    cfg.Queue.Workers,
		BufferSize: cfg.Queue.BufferSize,
		MaxRetries: cfg.Queue.MaxRetries,
		RetryDelay: cfg.Queue.RetryDelay,
	}, metrics, logr)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	dispatcher.Start(ctx)

	structureRepo := repository.NewGradeStructureRepository(db)
	classRepo := repository.NewClassRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	scoreRepo := repository.NewScoreRepository(db)

	boundary, err := service.NewActivationBoundary(cfg.Grading.ActivationMode, structureRepo, repository.NewGradeStructureTxBoundary(db, logr))
	if err != nil {
		logr.Fatal("invalid grading configuration", zap.Error(err))
	}

	validate := validator.New()
	structureSvc := service.NewGradeStructureService(structureRepo, classRepo, boundary, cfg.Grading.ActivationMode, summaryCache, dispatcher, metrics, validate, logr)
	scoreSvc := service.NewScoreService(scoreRepo, assignmentRepo, studentRepo, summaryCache, dispatcher, metrics, validate, logr)
	summarySvc := service.NewGradeSummaryService(service.GradeSummaryDeps{
		Structures:  structureRepo,
		Assignments: assignmentRepo,
		Scores:      scoreRepo,
		Students:    studentRepo,
		Classes:     classRepo,
		Resolver:    grading.ResolverForPolicy(cfg.Grading.UnmatchedPolicy),
		Cache:       summaryCache,
		CacheTTL:    cfg.Grading.SummaryCacheTTL,
		Metrics:     metrics,
		Logger:      logr,
	})

	checks := map[string]handler.Pinger{"postgres": db}
	if redisClient != nil {
		checks["redis"] = handler.PingFunc(cacheRepo.Ping)
	}

	engine := router.New(cfg, router.Handlers{
		Structures: handler.NewGradeStructureHandler(structureSvc),
		Scores:     handler.NewScoreHandler(scoreSvc),
		Summaries:  handler.NewGradeSummaryHandler(summarySvc),
		Health:     handler.NewHealthHandler(metrics, checks, logr),
	}, service.NewTokenVerifier(cfg.JWT.Secret, cfg.JWT.Issuer), metrics, logr)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting",
			"addr", srv.Addr,
			"env", cfg.Env,
			"activation_mode", cfg.Grading.ActivationMode,
			"unmatched_policy", cfg.Grading.UnmatchedPolicy,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
	dispatcher.Stop()
	logr.Info("server stopped")
}
