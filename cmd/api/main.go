package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"

	_ "github.com/noah-isme/skolara-api/api/swagger"
	"github.com/noah-isme/skolara-api/internal/handler"
	"github.com/noah-isme/skolara-api/internal/repository"
	"github.com/noah-isme/skolara-api/internal/router"
	"github.com/noah-isme/skolara-api/internal/service"
	"github.com/noah-isme/skolara-api/pkg/cache"
	"github.com/noah-isme/skolara-api/pkg/config"
	"github.com/noah-isme/skolara-api/pkg/database"
	"github.com/noah-isme/skolara-api/pkg/logger"
)

// @title Skolara API
// @version 1.0.0
// @description Multi-tenant school management API with timetable scheduling
// @BasePath /
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

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}
	defer redisClient.Close()

	validate := validator.New()

	periodRepo := repository.NewPeriodRepository(db)
	classRepo := repository.NewClassRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	termRepo := repository.NewTermRepository(db)
	tenantRepo := repository.NewTenantRepository(db)
	userRepo := repository.NewUserRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Cache.TTL, logr, cfg.Cache.Enabled)

	var auditSvc *service.AuditService
	if cfg.Audit.Enabled {
		auditSvc = service.NewAuditService(userRepo, cfg.Audit.Workers, cfg.Audit.BufferSize, logr)
	}

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})
	tenantSvc := service.NewTenantService(tenantRepo, validate, logr)
	classSvc := service.NewClassService(classRepo, validate, logr)
	subjectSvc := service.NewSubjectService(subjectRepo, validate, logr)
	teacherSvc := service.NewTeacherService(teacherRepo, validate, logr)
	termSvc := service.NewTermService(termRepo, validate, logr)
	timetableSvc := service.NewTimetableService(periodRepo, classRepo, subjectRepo, teacherRepo, termRepo, cacheSvc, validate, logr)
	exportSvc := service.NewExportService(timetableSvc, cfg.Export.MaxRows, logr)

	handlers := router.Handlers{
		Auth:       handler.NewAuthHandler(authSvc),
		Timetables: handler.NewTimetableHandler(timetableSvc, exportSvc, metricsSvc),
		Classes:    handler.NewClassHandler(classSvc),
		Subjects:   handler.NewSubjectHandler(subjectSvc),
		Teachers:   handler.NewTeacherHandler(teacherSvc),
		Terms:      handler.NewTermHandler(termSvc),
		Tenants:    handler.NewTenantHandler(tenantSvc),
	}
	services := router.Services{
		Auth:    authSvc,
		Tenant:  tenantSvc,
		Metrics: metricsSvc,
		Audit:   auditSvc,
	}

	engine := router.New(cfg, logr, handlers, services)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	auditSvc.Start(ctx)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: engine,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("server shutdown failed", "error", err)
	}
	auditSvc.Stop()
	logr.Sugar().Infow("server stopped")
}
