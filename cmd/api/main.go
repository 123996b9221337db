package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/rehabplan/rehab-planner-api/api/swagger"
	"github.com/rehabplan/rehab-planner-api/internal/handler"
	internalmiddleware "github.com/rehabplan/rehab-planner-api/internal/middleware"
	"github.com/rehabplan/rehab-planner-api/internal/repository"
	"github.com/rehabplan/rehab-planner-api/internal/service"
	"github.com/rehabplan/rehab-planner-api/pkg/cache"
	"github.com/rehabplan/rehab-planner-api/pkg/config"
	"github.com/rehabplan/rehab-planner-api/pkg/database"
	"github.com/rehabplan/rehab-planner-api/pkg/jobs"
	"github.com/rehabplan/rehab-planner-api/pkg/logger"
	corsmiddleware "github.com/rehabplan/rehab-planner-api/pkg/middleware/cors"
	reqidmiddleware "github.com/rehabplan/rehab-planner-api/pkg/middleware/requestid"
	"github.com/rehabplan/rehab-planner-api/pkg/storage"
)

// @title Rehab Planner API
// @version 0.1.0
// @description Therapist-to-patient scheduling for a rehabilitation department
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	var db *sqlx.DB
	if cfg.Database.Enabled {
		db, err = database.NewPostgres(cfg.Database)
		if err != nil {
			logr.Fatal("failed to connect to postgres", zap.Error(err))
		}
		defer db.Close()
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer redisClient.Close()
	}

	exportStore, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		logr.Fatal("failed to prepare export storage", zap.Error(err))
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)

	metricsSvc := service.NewMetricsService()

	var runRepo *repository.ScheduleRunRepository
	var archive service.ScheduleRunArchive
	if db != nil {
		runRepo = repository.NewScheduleRunRepository(db)
		archive = runRepo
	}
	plannerSvc := service.NewPlannerService(
		service.NewNormalizerService(logr),
		archive,
		redisClient,
		metricsSvc,
		nil,
		logr,
		service.PlannerConfig{
			AllowRepeatTherapist: cfg.Planner.AllowRepeatTherapist,
			RunTTL:               cfg.Planner.RunTTL,
			RequirementRules:     cfg.Planner.RequirementRules,
			DefaultMinutes:       cfg.Planner.DefaultMinutes,
		},
	)

	exportSvc := service.NewExportService(plannerSvc, exportStore, signer, logr)
	authSvc := service.NewAuthService(nil, logr, service.AuthConfig{
		AdminUsername:     cfg.Auth.AdminUsername,
		AdminPasswordHash: cfg.Auth.AdminPasswordHash,
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})

	maint := jobs.NewRunner(logr)
	maint.Register(jobs.Task{
		Name:     "export-cleanup",
		Interval: cfg.Maintenance.Interval,
		Run: func(context.Context) error {
			removed, err := exportSvc.CleanupExpired(cfg.Exports.SignedURLTTL)
			if removed > 0 {
				logr.Sugar().Infow("expired export files removed", "count", removed)
			}
			return err
		},
	})
	if runRepo != nil {
		maint.Register(jobs.Task{
			Name:     "run-retention",
			Interval: cfg.Maintenance.Interval,
			Run: func(ctx context.Context) error {
				cutoff := time.Now().UTC().Add(-cfg.Maintenance.RunRetention).Format(time.RFC3339)
				removed, err := runRepo.DeleteOlderThan(ctx, cutoff)
				if removed > 0 {
					logr.Sugar().Infow("old schedule runs removed", "count", removed)
				}
				return err
			},
		})
	}
	maint.Start(context.Background())
	defer maint.Stop()

	plannerHandler := handler.NewPlannerHandler(plannerSvc, exportSvc)
	authHandler := handler.NewAuthHandler(authSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(internalmiddleware.Metrics(metricsSvc))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if db != nil {
			if err := db.Ping(); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "db unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", authHandler.Login)

	protected := api.Group("")
	protected.Use(internalmiddleware.JWT(authSvc))
	protected.GET("/auth/me", authHandler.Me)
	protected.POST("/planner/matrices", plannerHandler.BuildMatrices)
	protected.GET("/planner/runs", plannerHandler.ListRuns)
	protected.GET("/planner/runs/:id", plannerHandler.GetRun)
	protected.GET("/planner/runs/:id/matrices", plannerHandler.GetMatrices)
	protected.PATCH("/planner/runs/:id/matrices", plannerHandler.PatchMatrices)
	protected.POST("/planner/runs/:id/schedule", plannerHandler.ScheduleRun)
	protected.POST("/planner/schedule", plannerHandler.Schedule)
	protected.POST("/planner/validate", plannerHandler.Validate)
	protected.GET("/planner/runs/:id/export", plannerHandler.Export)

	// Download links are pre-authorized by their HMAC signature.
	api.GET("/planner/exports/download", plannerHandler.Download)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
