// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"github.com/toyohara-midori/dcin/internal/infrastructure/http/v1/handlers"
	"github.com/toyohara-midori/dcin/internal/infrastructure/http/v1/middleware"
	"github.com/toyohara-midori/dcin/internal/infrastructure/storage/postgres"
	"github.com/toyohara-midori/dcin/internal/ingest"
	"github.com/toyohara-midori/dcin/internal/voucher"
	"github.com/toyohara-midori/dcin/pkg/logger"
)

// RouterConfig holds router dependencies.
type RouterConfig struct {
	// Pool is the database connection pool (for health checks).
	Pool *postgres.Pool

	// Logger for request logging.
	Logger *logger.Logger

	// IngestService drives the upload pipeline.
	IngestService *ingest.Service

	// SearchRepo serves the voucher list/detail/export screens.
	SearchRepo voucher.SearchRepository

	// Version is reported by the info endpoint.
	Version string
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	// Health endpoints (no operator identity required)
	healthHandler := handlers.NewHealthHandler(cfg.Pool, cfg.Version)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	baseHandler := handlers.NewBaseHandler()

	// API v1. The upstream portal authenticates operators and forwards the
	// identity in a header; every endpoint below requires it.
	api := router.Group("/api/v1")
	api.Use(middleware.UserContext())
	{
		ingestHandler := handlers.NewIngestHandler(baseHandler, cfg.IngestService)
		ingestHandler.RegisterRoutes(api.Group("/ingest"))

		voucherHandler := handlers.NewVoucherHandler(baseHandler, cfg.SearchRepo)
		voucherHandler.RegisterRoutes(api.Group("/vouchers"))
	}

	return router
}
