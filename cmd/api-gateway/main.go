package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/report-portal-api/api/swagger"
	"github.com/noah-isme/report-portal-api/internal/handler"
	"github.com/noah-isme/report-portal-api/internal/middleware"
	"github.com/noah-isme/report-portal-api/internal/repository"
	"github.com/noah-isme/report-portal-api/internal/service"
	"github.com/noah-isme/report-portal-api/pkg/cache"
	"github.com/noah-isme/report-portal-api/pkg/config"
	"github.com/noah-isme/report-portal-api/pkg/database"
	"github.com/noah-isme/report-portal-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/report-portal-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/report-portal-api/pkg/middleware/requestid"
)

// @title Report Portal API
// @version 1.0.0
// @description Department reporting portal: periodic structured reports, approval workflow and aggregation
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

	metricsSvc := service.NewMetricsService()

	// Redis is optional. Without it caching stays off and the API serves
	// every request from the database.
	var cacheRepo service.CacheRepository
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, caching disabled", zap.Error(err))
	} else {
		defer redisClient.Close()
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
	}

	aggregationCache := service.NewCacheService(cacheRepo, metricsSvc, cfg.Aggregation.CacheTTL, logr, cfg.Aggregation.CacheEnabled)
	dashboardCache := service.NewCacheService(cacheRepo, metricsSvc, cfg.Dashboard.CacheTTL, logr, cfg.Dashboard.CacheEnabled)
	invalidationCache := service.NewCacheService(cacheRepo, metricsSvc, 0, logr, cacheRepo != nil)

	userRepo := repository.NewUserRepository(db)
	departmentRepo := repository.NewDepartmentRepository(db)
	definitionRepo := repository.NewDefinitionRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)

	validate := validator.New()

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
		SingleSession:      cfg.JWT.SingleSession,
	})
	userSvc := service.NewUserService(userRepo, departmentRepo, validate, logr)
	departmentSvc := service.NewDepartmentService(departmentRepo, validate, logr)
	definitionSvc := service.NewDefinitionService(definitionRepo, validate, logr)
	submissionSvc := service.NewSubmissionService(submissionRepo, definitionRepo, userRepo, invalidationCache, validate, logr)
	aggregationSvc := service.NewAggregationService(submissionRepo, definitionRepo, aggregationCache, logr)
	dashboardSvc := service.NewDashboardService(submissionRepo, definitionRepo, dashboardCache, logr)

	handlers := handler.Handlers{
		Auth:        handler.NewAuthHandler(authSvc),
		User:        handler.NewUserHandler(userSvc),
		Department:  handler.NewDepartmentHandler(departmentSvc),
		Definition:  handler.NewDefinitionHandler(definitionSvc),
		Submission:  handler.NewSubmissionHandler(submissionSvc),
		Aggregation: handler.NewAggregationHandler(aggregationSvc),
		Dashboard:   handler.NewDashboardHandler(dashboardSvc),
		Metrics:     handler.NewMetricsHandler(metricsSvc),
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", handlers.Metrics.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", handlers.Metrics.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handler.RegisterRoutes(r, cfg.APIPrefix, handlers, authSvc, userRepo)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
