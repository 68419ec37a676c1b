package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"

	_ "github.com/skillforge/lms-api/api/swagger"
	"github.com/skillforge/lms-api/internal/handler"
	"github.com/skillforge/lms-api/internal/repository"
	"github.com/skillforge/lms-api/internal/service"
	"github.com/skillforge/lms-api/pkg/cache"
	"github.com/skillforge/lms-api/pkg/config"
	"github.com/skillforge/lms-api/pkg/database"
	"github.com/skillforge/lms-api/pkg/jobs"
	"github.com/skillforge/lms-api/pkg/logger"
	"github.com/skillforge/lms-api/pkg/storage"
)

// @title SkillForge LMS API
// @version 1.0.0
// @description Learning management backend: courses, quizzes, progress tracking and reporting
// @BasePath /api/v1
// @schemes http

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	quizRepo := repository.NewQuizRepository(db)
	quizResultRepo := repository.NewQuizResultRepository(db)
	progressRepo := repository.NewProgressRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	analyticsRepo := repository.NewAnalyticsRepository(db)
	reportRepo := repository.NewReportRepository(db)

	metricsSvc := service.NewMetricsService()

	cacheEnabled := cfg.Dashboard.CacheEnabled && redisClient != nil
	var cacheRepo service.CacheRepository
	if redisClient != nil {
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
	}
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Dashboard.CacheTTL, logr, cacheEnabled)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "lms-api",
		SingleSession:      false,
	})
	userSvc := service.NewUserService(userRepo, validate, logr)
	importSvc := service.NewUserImportService(userRepo, logr, cfg.Imports.MaxRows)
	courseSvc := service.NewCourseService(courseRepo, userRepo, validate, logr, cfg.Content.RepairEnabled)
	quizSvc := service.NewQuizService(quizRepo, quizResultRepo, validate, logr, metricsSvc, cfg.Quizzes.PassThreshold)
	progressSvc := service.NewProgressService(progressRepo, enrollmentRepo, courseSvc, logr, metricsSvc)
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, courseSvc, logr)
	dashboardSvc := service.NewDashboardService(
		analyticsRepo,
		userRepo,
		courseRepo,
		progressRepo,
		enrollmentRepo,
		quizRepo,
		quizResultRepo,
		cacheSvc,
		logr,
		cfg.Dashboard.CacheTTL,
	)

	store, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init report storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)
	exportSvc := service.NewExportService(
		progressRepo,
		quizResultRepo,
		courseRepo,
		quizRepo,
		userRepo,
		store,
		signer,
		service.ExportConfig{APIPrefix: cfg.APIPrefix, ResultTTL: cfg.Reports.SignedURLTTL},
		logr,
		nil,
		nil,
	)

	reportWorker := service.NewReportWorker(reportRepo, exportSvc, cfg.Reports.WorkerRetries, logr)
	reportQueue := jobs.NewQueue("reports", reportWorker.Handle, jobs.QueueConfig{
		Workers:    cfg.Reports.WorkerConcurrency,
		MaxRetries: cfg.Reports.WorkerRetries,
		Logger:     logr,
	})
	metricsSvc.RegisterQueueDepth("reports", reportQueue.Depth)
	reportSvc := service.NewReportService(reportRepo, courseRepo, reportQueue, exportSvc, logr, service.ReportServiceConfig{
		ResultTTL:       cfg.Reports.SignedURLTTL,
		CleanupInterval: cfg.Reports.CleanupInterval,
		MaxRetries:      cfg.Reports.WorkerRetries,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Reports.Enabled {
		reportQueue.Start(ctx)
		defer reportQueue.Stop()
		reportSvc.RecoverPendingJobs(ctx)
		reportSvc.StartCleanup(ctx)
	}

	router := handler.NewRouter(handler.RouterDeps{
		Config:   cfg,
		Logger:   logr,
		Auth:     authSvc,
		Metrics:  metricsSvc,
		AuditLog: userRepo,
	}, handler.Handlers{
		Auth:       handler.NewAuthHandler(authSvc),
		Users:      handler.NewUserHandler(userSvc, importSvc),
		Courses:    handler.NewCourseHandler(courseSvc),
		Quizzes:    handler.NewQuizHandler(quizSvc),
		Progress:   handler.NewProgressHandler(progressSvc, dashboardSvc),
		Enrollment: handler.NewEnrollmentHandler(enrollmentSvc, dashboardSvc),
		Dashboards: handler.NewDashboardHandler(dashboardSvc, metricsSvc),
		Reports:    handler.NewReportHandler(reportSvc),
		Metrics:    handler.NewMetricsHandler(metricsSvc),
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: router,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
