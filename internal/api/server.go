// Package api exposes the recommender, the retrain trigger and the audit
// trail over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/specialist-recommender/internal/domain"
	"github.com/specialist-recommender/internal/middleware"
	"github.com/specialist-recommender/internal/retrain"
)

// Retrainer produces and loads a new model on demand
type Retrainer interface {
	Retrain(ctx context.Context) (*retrain.Result, error)
}

// Dependencies are the collaborators the HTTP layer calls into
type Dependencies struct {
	Recommender domain.Recommender
	Audit       domain.AuditStore
	Model       domain.ModelStatus
	// Retrainer is optional; without it the retrain endpoint answers 503
	Retrainer Retrainer
	Logger    *logrus.Logger
}

// Server represents the HTTP server
type Server struct {
	configManager domain.ConfigManager
	deps          Dependencies
	logger        *logrus.Logger
	router        *gin.Engine
	server        *http.Server
	startedAt     time.Time
}

// NewServer creates a new HTTP server instance
func NewServer(configManager domain.ConfigManager, deps Dependencies) (*Server, error) {
	if deps.Recommender == nil {
		return nil, fmt.Errorf("api server requires a recommender")
	}
	if deps.Audit == nil {
		return nil, fmt.Errorf("api server requires an audit store")
	}
	if deps.Logger == nil {
		deps.Logger = logrus.New()
	}
	cfg := configManager.GetConfig()

	// Set Gin mode based on environment
	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Add middleware
	router.Use(middleware.CorrelationID())
	router.Use(middleware.Recovery(deps.Logger))
	router.Use(middleware.AuditLogger(deps.Logger))
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CORS(cfg.Server.AllowedOrigins))
	router.Use(middleware.BodyLimit(cfg.Server.MaxBodyBytes))
	router.Use(middleware.RequestTimeout(cfg.Server.RequestTimeout))
	if cfg.RateLimit.Enabled {
		limiter := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
		router.Use(limiter.Middleware())
	}

	server := &Server{
		configManager: configManager,
		deps:          deps,
		logger:        deps.Logger,
		router:        router,
		startedAt:     time.Now(),
	}

	// Setup routes
	server.setupRoutes()

	return server, nil
}

// Handler returns the configured router
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	cfg := s.configManager.GetServerConfig()
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", addr).Info("HTTP server listening")
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("failed to start server: %w", err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s.logger.Info("Shutting down HTTP server")
	return s.server.Shutdown(shutdownCtx)
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)
	s.router.GET("/ready", s.handleReady)

	nlp := s.router.Group("/nlp")
	{
		nlp.POST("/analyze", s.handleAnalyze)
		nlp.POST("/retrain", s.handleRetrain)
		nlp.GET("/logs", s.handleLogs)
	}
}
