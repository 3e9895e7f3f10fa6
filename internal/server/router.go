package server

import (
	"time"

	"github.com/abduss/filedrop/internal/config"
	"github.com/abduss/filedrop/internal/file"
	"github.com/abduss/filedrop/internal/logger"
	"github.com/abduss/filedrop/internal/metrics"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Dependencies groups the services required by the HTTP router.
type Dependencies struct {
	Config       config.Config
	Logger       *zap.Logger
	FileService  *file.Service
	HealthChecks []HealthCheck
}

// NewRouter builds a Gin engine with foundational middleware and routes.
func NewRouter(deps Dependencies) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(logger.Middleware(deps.Logger))
	router.Use(metrics.Middleware())
	router.Use(cors.New(corsConfig(deps.Config.Server.CORSOrigins)))

	registerHealthRoutes(router, deps.HealthChecks)
	if path := deps.Config.Metrics.PrometheusPath; path != "" {
		metrics.Register(router, path)
	}

	api := router.Group("/api")
	if deps.FileService != nil {
		file.RegisterRoutes(api, deps.FileService)
	}

	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	cfg.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", logger.CorrelationIDHeader}
	cfg.ExposeHeaders = []string{"Content-Disposition", logger.CorrelationIDHeader}
	cfg.MaxAge = 12 * time.Hour

	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}
