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

	_ "github.com/arkisys/registrar-api/api/swagger"
	"github.com/arkisys/registrar-api/internal/handler"
	"github.com/arkisys/registrar-api/internal/matching"
	"github.com/arkisys/registrar-api/internal/repository"
	"github.com/arkisys/registrar-api/internal/router"
	"github.com/arkisys/registrar-api/internal/service"
	"github.com/arkisys/registrar-api/internal/workflow"
	"github.com/arkisys/registrar-api/pkg/cache"
	"github.com/arkisys/registrar-api/pkg/config"
	"github.com/arkisys/registrar-api/pkg/database"
	"github.com/arkisys/registrar-api/pkg/logger"
	"github.com/arkisys/registrar-api/pkg/storage"
)

// @title Registrar Portal API
// @version 1.0.0
// @description Backend for the school registrar document-request portal
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	validate := validator.New()
	metrics := service.NewMetricsService()

	var cacheSvc *service.CacheService
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, stats caching disabled", "error", err)
		cacheSvc = service.NewCacheService(nil, metrics, cfg.Stats.CacheTTL, logr, false)
	} else {
		defer redisClient.Close()
		cacheRepo := repository.NewCacheRepository(redisClient, logr)
		cacheSvc = service.NewCacheService(cacheRepo, metrics, cfg.Stats.CacheTTL, logr, true)
	}

	location, err := time.LoadLocation(cfg.Requests.Timezone)
	if err != nil {
		logr.Sugar().Warnw("invalid timezone, falling back to UTC", "timezone", cfg.Requests.Timezone)
		location = time.UTC
	}
	scheduler := workflow.NewScheduler(location, cfg.Requests.ScheduleMinOffsetDays, cfg.Requests.ScheduleMaxOffsetDays, cfg.Requests.ExpectedDays)

	uploadStore, err := storage.NewLocalStorage(cfg.Uploads.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init upload storage", "error", err)
	}
	certStore, err := storage.NewLocalStorage(cfg.Certificates.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init certificate storage", "error", err)
	}
	certSigner := storage.NewSignedURLSigner(cfg.Certificates.SignedURLSecret, cfg.Certificates.SignedURLTTL)
	uploadSigner := storage.NewSignedURLSigner(cfg.Uploads.SignedURLSecret, cfg.Uploads.SignedURLTTL)

	userRepo := repository.NewUserRepository(db)
	requestRepo := repository.NewRequestRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	requirementRepo := repository.NewRequirementRepository(db)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		Secret:     cfg.JWT.Secret,
		Expiration: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})
	requestSvc := service.NewRequestService(requestRepo, studentRepo, userRepo, scheduler, cacheSvc, metrics, validate, logr, cfg.Stats.CacheTTL)
	studentSvc := service.NewStudentService(studentRepo, userRepo, validate, logr)
	requirementSvc := service.NewRequirementService(requirementRepo, uploadStore, uploadSigner, validate, logr, cfg.Uploads.DownloadDelay)
	importSvc := service.NewImportService(studentRepo, userRepo, validate, logr, cfg.Imports.MaxRows)
	documentSvc := service.NewDocumentService(studentRepo, userRepo, uploadStore, matching.NewMatcher(logr), logr, service.UploadConfig{
		MaxBatchSize:     cfg.Uploads.MaxBatchSize,
		MaxFileSizeBytes: cfg.Uploads.MaxFileSizeBytes,
		AllowedMIMEs:     cfg.Uploads.AllowedMIMEs,
	})
	certificateSvc := service.NewCertificateService(requestRepo, studentRepo, userRepo, certStore, certSigner, logr, service.CertificateConfig{
		SchoolName:    cfg.Certificates.SchoolName,
		SchoolAddress: cfg.Certificates.SchoolAddress,
		Workers:       cfg.Certificates.WorkerConcurrency,
		Retries:       cfg.Certificates.WorkerRetries,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	certificateSvc.Start(ctx)
	defer certificateSvc.Stop()

	engine := router.New(router.Deps{
		Config:   cfg,
		Logger:   logr,
		Auth:     authSvc,
		Metrics:  metrics,
		AuditLog: userRepo,

		AuthHandler:        handler.NewAuthHandler(authSvc),
		RequestHandler:     handler.NewRequestHandler(requestSvc),
		StudentHandler:     handler.NewStudentHandler(studentSvc),
		RequirementHandler: handler.NewRequirementHandler(requirementSvc),
		ImportHandler:      handler.NewImportHandler(importSvc),
		DocumentHandler:    handler.NewDocumentHandler(documentSvc),
		CertificateHandler: handler.NewCertificateHandler(certificateSvc),
		MetricsHandler:     handler.NewMetricsHandler(metrics),
		LegacyHandler:      handler.NewLegacyHandler(requestSvc, studentSvc, requirementSvc),
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", server.Addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
