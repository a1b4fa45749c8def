// Package api implements the HTTP API: crawl config management, crawl
// triggers, and batch analysis endpoints.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/regradar/internal/config"
	"github.com/jonesrussell/regradar/internal/logger"
	"github.com/jonesrussell/regradar/internal/metrics"
)

// Server wraps the HTTP server and its routes.
type Server struct {
	config *config.ServerConfig
	logger logger.Interface
	http   *http.Server
}

// NewServer creates the API server with all routes registered.
func NewServer(
	cfg *config.Config,
	log logger.Interface,
	configs *ConfigsHandler,
	tasks *TasksHandler,
	tracker *metrics.Tracker,
) *Server {
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(log))

	registerRoutes(router, configs, tasks, tracker)

	return &Server{
		config: &cfg.Server,
		logger: log.WithComponent("api"),
		http: &http.Server{
			Addr:         cfg.Server.Address,
			Handler:      router,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
			IdleTimeout:  cfg.Server.IdleTimeout,
		},
	}
}

// Start runs the HTTP server until it fails or is shut down.
func (s *Server) Start() error {
	s.logger.Info("API server listening", "address", s.config.Address)

	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("api server failed: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("API server shutting down")
	return s.http.Shutdown(ctx)
}

// requestLogger logs one line per request.
func requestLogger(log logger.Interface) gin.HandlerFunc {
	requestLog := log.WithComponent("http")
	return func(c *gin.Context) {
		c.Next()

		status := c.Writer.Status()
		fields := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
		}
		if status >= http.StatusInternalServerError {
			requestLog.Error("request failed", fields...)
		} else {
			requestLog.Info("request", fields...)
		}
	}
}
