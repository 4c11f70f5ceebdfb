// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	coreseq "medseq/internal/core/sequence"
	"medseq/internal/domain/auth"
	"medseq/internal/infrastructure/http/v1/handlers"
	"medseq/internal/infrastructure/http/v1/middleware"
	"medseq/internal/infrastructure/metrics"
	"medseq/pkg/logger"
)

// SequenceService is everything the API needs from sequence.Service.
type SequenceService interface {
	handlers.SequenceService
	handlers.AdminService
}

// RouterConfig holds router configuration.
type RouterConfig struct {
	// Service allocates identifiers and maintains counters
	Service SequenceService

	// Logger for request logging
	Logger *logger.Logger

	// JWTValidator for admin token validation
	JWTValidator middleware.JWTValidator

	// Metrics records request metrics and serves /metrics. Nil disables both.
	Metrics *metrics.Collector

	// HealthChecks are pinged by /health/ready
	HealthChecks map[string]coreseq.Pinger
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Logger == nil {
		cfg.Logger = logger.Default()
	}

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	if cfg.Metrics != nil {
		router.Use(middleware.Metrics(cfg.Metrics))
		router.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}
	router.Use(middleware.ErrorHandler())

	healthHandler := handlers.NewHealthHandler(cfg.HealthChecks)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
	}

	v1 := router.Group("/api/v1")
	{
		registerSequenceRoutes(v1, cfg)

		admin := v1.Group("/admin")
		admin.Use(middleware.Auth(cfg.JWTValidator))
		admin.Use(middleware.RequireRole(auth.RoleSequenceAdmin))
		registerAdminRoutes(admin, cfg)
	}

	return router
}

func registerSequenceRoutes(rg *gin.RouterGroup, cfg RouterConfig) {
	h := handlers.NewSequenceHandler(cfg.Service)
	sequences := rg.Group("/sequences")
	{
		sequences.GET("/:name", h.Current)
		sequences.POST("/:name/next", h.Next)
	}
}

func registerAdminRoutes(rg *gin.RouterGroup, cfg RouterConfig) {
	h := handlers.NewAdminHandler(cfg.Service)
	counters := rg.Group("/counters")
	{
		counters.GET("", h.List)
		counters.POST("/fix-all", h.FixAll)
		counters.GET("/:name", h.Get)
		counters.PUT("/:name", h.Reset)
		counters.POST("/:name/sync", h.Sync)
	}
}
