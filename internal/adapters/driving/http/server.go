package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/custodia-labs/cms-mirror/docs"
	"github.com/custodia-labs/cms-mirror/internal/core/ports/driving"
)

// Pinger is a simple health check interface
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	router     *http.ServeMux
	version    string
	logger     *slog.Logger

	// Services
	contentService driving.ContentService
	authService    driving.AuthService
	scheduler      driving.Scheduler // nil disables the sync trigger endpoints

	// Infrastructure
	db      Pinger       // PostgreSQL health check
	lock    Pinger       // Redis health check (optional)
	metrics http.Handler // Prometheus exposition (optional)
}

// Config holds server configuration
type Config struct {
	Host           string
	Port           int
	Version        string
	AllowedOrigins []string
	Logger         *slog.Logger
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Host:    "0.0.0.0",
		Port:    8080,
		Version: "dev",
	}
}

// Dependencies are the services and probes the server routes to
type Dependencies struct {
	Content   driving.ContentService
	Auth      driving.AuthService
	Scheduler driving.Scheduler
	DB        Pinger
	Lock      Pinger
	Metrics   http.Handler
}

// NewServer creates a new HTTP server
func NewServer(cfg Config, deps Dependencies) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		router:         http.NewServeMux(),
		version:        cfg.Version,
		logger:         logger,
		contentService: deps.Content,
		authService:    deps.Auth,
		scheduler:      deps.Scheduler,
		db:             deps.DB,
		lock:           deps.Lock,
		metrics:        deps.Metrics,
	}

	s.setupRoutes()

	var handler http.Handler = s.router
	if len(cfg.AllowedOrigins) > 0 {
		handler = NewCORSMiddleware(cfg.AllowedOrigins).Handler(handler)
	}
	handler = NewLoggingMiddleware(logger).Handler(handler)
	handler = NewRecoveryMiddleware(logger).Handler(handler)

	s.httpServer = &http.Server{
		Addr:              net.JoinHostPort(cfg.Host, fmt.Sprint(cfg.Port)),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Handler returns the fully wrapped handler
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	authMiddleware := NewAuthMiddleware(s.authService)

	// Health endpoints (no auth)
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /ready", s.handleReady)
	s.router.HandleFunc("GET /version", s.handleVersion)
	s.router.HandleFunc("GET /openapi.json", s.handleOpenAPI)
	if s.metrics != nil {
		s.router.Handle("GET /metrics", s.metrics)
	}

	// Content endpoints (public, read-only from local storage)
	s.router.HandleFunc("GET /api/v1/posts", s.handleListPosts)
	s.router.HandleFunc("GET /api/v1/posts/{slug}", s.handleGetPost)
	s.router.HandleFunc("GET /api/v1/categories", s.handleListCategories)
	s.router.HandleFunc("GET /api/v1/tags", s.handleListTags)

	// Sync ledger (public)
	s.router.HandleFunc("GET /api/v1/sync/status", s.handleSyncStatus)
	s.router.HandleFunc("GET /api/v1/sync/status/{kind}/history", s.handleSyncHistory)

	// Auth endpoint (public)
	s.router.HandleFunc("POST /api/v1/auth/token", s.handleToken)

	// Sync triggers (admin-only)
	s.router.Handle("POST /api/v1/sync",
		authMiddleware.Authenticate(
			authMiddleware.RequireAdmin(http.HandlerFunc(s.handleTriggerSync))))
	s.router.Handle("POST /api/v1/sync/{target}",
		authMiddleware.Authenticate(
			authMiddleware.RequireAdmin(http.HandlerFunc(s.handleTriggerSync))))
}

// handleOpenAPI serves the generated Swagger document
func (s *Server) handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(docs.SwaggerInfo.ReadDoc()))
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting http server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.logger.Info("http server stopped")
	return nil
}

// Stop stops the server
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
