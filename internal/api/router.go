package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/jafarshop/relister/internal/api/handlers"
	"github.com/jafarshop/relister/internal/api/middleware"
	"github.com/jafarshop/relister/internal/config"
	"github.com/jafarshop/relister/internal/metrics"
	"github.com/jafarshop/relister/internal/repository"
)

// Deps are the services behind the routes. Repos and ImageDir are optional.
type Deps struct {
	Uploader handlers.Uploader
	Repos    *repository.Repositories
	ImageDir string
}

// NewRouter creates and configures the Gin router
func NewRouter(cfg *config.Config, deps Deps, logger *zap.Logger) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Middleware
	router.Use(customRecovery(logger))
	router.Use(loggingMiddleware(logger))

	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service": "Relister",
			"endpoints": []string{
				"GET /health",
				"GET /metrics",
				"POST /v1/uploads",
				"POST /v1/previews",
				"GET /v1/uploads",
			},
		})
	})

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if deps.ImageDir != "" {
		router.Static("/images", deps.ImageDir)
	}

	v1 := router.Group("/v1")
	v1.Use(middleware.APIKeyMiddleware(cfg.API.KeyHash, logger))
	{
		v1.POST("/uploads", handlers.HandleUpload(deps.Uploader, logger))
		v1.POST("/previews", handlers.HandlePreview(deps.Uploader, logger))
		v1.GET("/uploads", handlers.HandleListUploads(deps.Repos, logger))
	}

	return router
}

// customRecovery is a custom recovery middleware that logs panics
func customRecovery(logger *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logger.Error("Panic recovered",
			zap.Any("error", recovered),
			zap.String("path", c.Request.URL.Path),
			zap.String("method", c.Request.Method),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal server error",
			"details": fmt.Sprintf("%v", recovered),
		})
	})
}

// loggingMiddleware logs HTTP requests and records their latency
func loggingMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method

		c.Next()

		// route template keeps the label set bounded
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := c.Writer.Status()
		metrics.HTTPDurations.WithLabelValues(path, method, strconv.Itoa(status)).Observe(time.Since(start).Seconds())
		logger.Info("HTTP request",
			zap.String("method", method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
