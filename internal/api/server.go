package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/syahiidkamil/mcp-postgres-full-access/internal/infrastructure/config"
	"github.com/syahiidkamil/mcp-postgres-full-access/internal/infrastructure/logging"
	"github.com/syahiidkamil/mcp-postgres-full-access/internal/txmanager"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// HealthChecker reports whether the database is reachable. *postgres.Pool
// satisfies it.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Deps holds the dependencies required by the admin server.
type Deps struct {
	Config   config.APIConfig
	Logger   *logging.Logger
	Registry *txmanager.Registry
	Health   HealthChecker
	Version  string
}

// Server is the admin HTTP server.
//
// It is created with New() and started with Start(); it owns its listener
// lifecycle and shuts down gracefully on Close().
type Server struct {
	cfg      config.APIConfig
	logger   *logging.Logger
	registry *txmanager.Registry
	health   HealthChecker
	version  string
	server   *http.Server
}

// New creates a new admin server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Registry == nil {
		return nil, fmt.Errorf("transaction registry is required")
	}

	return &Server{
		cfg:      deps.Config,
		logger:   deps.Logger,
		registry: deps.Registry,
		health:   deps.Health,
		version:  deps.Version,
	}, nil
}

// Start begins listening for HTTP connections in a background goroutine.
// The server can be stopped with Close().
func (s *Server) Start(_ context.Context) error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		s.logger.Info("admin server listening", "address", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("admin server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the admin server, waiting up to 10 seconds for
// in-flight requests to complete.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("admin server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down admin server: %w", err)
	}
	return nil
}
