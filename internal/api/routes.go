// routes.go - Route registration helpers
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/tlog-viewer/backend/internal/ingest"
)

// Dependencies holds all handler dependencies
type Dependencies struct {
	Ingester Ingester
	Store    ingest.Store
	// Jobs and Spool may be nil, which disables the job endpoints.
	Jobs  JobRunner
	Spool Spooler
	// Hub may be nil, which disables the WebSocket feed.
	Hub *Hub
	// Metrics may be nil, which disables /metrics.
	Metrics       http.Handler
	MaxUploadSize int64
	Version       string
}

// MiddlewareConfig selects the common middleware.
type MiddlewareConfig struct {
	RequestLogging bool
	RequestTimeout time.Duration
	// BodyLimit uses echo's size syntax ("512M"); empty disables the limit.
	BodyLimit    string
	EnableCORS   bool
	AllowOrigins string
}

// RegisterRoutes registers all API routes with the Echo instance
func RegisterRoutes(e *echo.Echo, deps *Dependencies) *Handler {
	h := NewHandler(deps)

	// Legacy paths kept for existing clients
	e.POST("/upload-tlog/", h.HandleUploadTlog)
	e.GET("/flight-data/", h.HandleFlightData)

	apiGroup := e.Group("/api")
	apiGroup.GET("/health", h.HandleHealth)

	apiGroup.POST("/tlogs", h.HandleUploadTlog)
	apiGroup.GET("/flight-data", h.HandleFlightData)
	apiGroup.GET("/files", h.HandleFiles)

	jobGroup := apiGroup.Group("/tlogs/jobs")
	jobGroup.POST("", h.HandleStartJob)
	jobGroup.GET("", h.HandleListJobs)
	jobGroup.GET("/:jobId", h.HandleGetJob)
	jobGroup.DELETE("/:jobId", h.HandleCancelJob)

	if deps.Hub != nil {
		apiGroup.GET("/ws/ingest", deps.Hub.HandleWebSocket)
	}
	if deps.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(deps.Metrics))
	}
	return h
}

// SetupMiddleware configures common middleware
func SetupMiddleware(e *echo.Echo, cfg MiddlewareConfig) {
	e.HTTPErrorHandler = ErrorHandler

	if cfg.RequestLogging {
		e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
			Skipper: func(c echo.Context) bool {
				path := c.Request().URL.Path
				return path == "/api/health" || path == "/metrics"
			},
		}))
	}

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 1024 * 4,
	}))

	if cfg.RequestTimeout > 0 {
		e.Use(middleware.TimeoutWithConfig(middleware.TimeoutConfig{
			Timeout: cfg.RequestTimeout,
			Skipper: func(c echo.Context) bool {
				path := c.Request().URL.Path
				return strings.Contains(path, "/upload") ||
					strings.HasPrefix(path, "/api/tlogs") ||
					strings.HasPrefix(path, "/api/ws/")
			},
			ErrorMessage: "Request timeout - query took too long",
		}))
	}

	if cfg.BodyLimit != "" {
		e.Use(middleware.BodyLimit(cfg.BodyLimit))
	}

	if cfg.EnableCORS {
		origins := strings.Split(cfg.AllowOrigins, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		if len(origins) == 0 || (len(origins) == 1 && origins[0] == "") {
			origins = []string{"*"}
		}
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: origins,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
		}))
	}
}
