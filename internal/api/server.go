// Package api provides the read-only HTTP status API for qosd.
// It uses the Echo framework to expose the system record, the QoS profiles,
// the CoS/DSCP maps and the integrity service as JSON.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"evalgo.org/qosd/internal/config"
	"evalgo.org/qosd/internal/integrity"
	"evalgo.org/qosd/internal/logging"
	"evalgo.org/qosd/internal/qos"
	"evalgo.org/qosd/internal/store"
	"evalgo.org/qosd/internal/version"
)

// Server represents the qosd API server.
type Server struct {
	echo      *echo.Echo
	store     *store.Store
	integrity *integrity.Service
	profiles  *qos.ProfileStore
	config    *config.Config
	logger    *slog.Logger
}

// New creates a new API server instance. The server does not own st or svc;
// the caller closes them after Shutdown.
func New(cfg *config.Config, st *store.Store, svc *integrity.Service, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.Discard()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Debug = cfg.Server.Debug
	e.HTTPErrorHandler = HTTPErrorHandler

	server := &Server{
		echo:      e,
		store:     st,
		integrity: svc,
		profiles:  qos.NewProfileStore(logger),
		config:    cfg,
		logger:    logger.With("component", "api"),
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

func (s *Server) setupMiddleware() {
	s.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogMethod:    true,
		LogURI:       true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				"status", v.Status,
				"method", v.Method,
				"uri", v.URI,
				"latency", v.Latency,
				"request_id", v.RequestID,
			}
			if v.Error != nil {
				s.logger.Warn("request failed", append(attrs, "error", v.Error)...)
				return nil
			}
			s.logger.Debug("request", attrs...)
			return nil
		},
	}))

	s.echo.Use(middleware.Recover())
	s.echo.Use(SecurityHeaders)

	if len(s.config.Security.AllowedOrigins) > 0 {
		s.echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: s.config.Security.AllowedOrigins,
			AllowMethods: []string{http.MethodGet, http.MethodPost},
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
		}))
	}

	s.echo.Use(middleware.RequestID())

	if s.config.Security.RateLimit > 0 {
		s.echo.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(
			rate.Limit(s.config.Security.RateLimit),
		)))
	}

	s.echo.Use(ValidateContentType)
	s.echo.Use(ValidateAcceptHeader)
}

func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.healthCheck)
	s.echo.GET("/", s.healthCheck)

	v1 := s.echo.Group("/api/v1")

	v1.GET("/system", s.getSystem)
	v1.GET("/stats", s.getStatistics)

	profiles := v1.Group("/profiles")
	profiles.GET("/schedule", s.listScheduleProfiles)
	profiles.GET("/schedule/:name", s.getScheduleProfile, ValidateProfileName)
	profiles.GET("/queue", s.listQueueProfiles)
	profiles.GET("/queue/:name", s.getQueueProfile, ValidateProfileName)

	maps := v1.Group("/maps")
	maps.Use(ValidateQueryParams)
	maps.GET("/cos", s.listCosMap)
	maps.GET("/dscp", s.listDscpMap)

	integrityRoutes := v1.Group("/integrity")
	integrityRoutes.GET("/health", s.getHealth)
	integrityRoutes.POST("/scan", s.scanIntegrity)
	integrityRoutes.POST("/plan", s.createRepairPlan)
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := s.config.Server.Addr()

	s.logger.Info("starting qosd API server",
		"address", addr,
		"store", s.store.Path(),
		"debug", s.config.Server.Debug)

	s.echo.Server.ReadTimeout = s.config.Server.ReadTimeout
	s.echo.Server.WriteTimeout = s.config.Server.WriteTimeout

	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down qosd API server")

	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("error shutting down server: %w", err)
	}

	s.logger.Info("server shutdown complete")
	return nil
}

// healthCheck handles GET /health
func (s *Server) healthCheck(c echo.Context) error {
	stats, err := s.store.GetStatistics()
	if err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]interface{}{
			"status":  "unhealthy",
			"error":   "store unavailable",
			"details": err.Error(),
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"service": "qosd",
		"version": version.Get().Version,
		"store":   stats.Path,
		"records": stats.Total,
	})
}

// ServeHTTP allows Server to implement http.Handler for testing
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}
