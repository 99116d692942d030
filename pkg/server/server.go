package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"taxwise-hq/sentinel/pkg/audit"
	"taxwise-hq/sentinel/pkg/authmon"
	"taxwise-hq/sentinel/pkg/config"
	"taxwise-hq/sentinel/pkg/telemetry"
	"taxwise-hq/sentinel/pkg/telemetry/correlation"
	"taxwise-hq/sentinel/pkg/telemetry/health"
)

// Server is the operational HTTP server.
type Server struct {
	config       *config.ServerConfig
	tel          *telemetry.Provider
	router       chi.Router
	httpServer   *http.Server
	listener     net.Listener
	shutdownChan chan struct{}
	requestOnce  sync.Once
	shutdownOnce sync.Once
	mu           sync.RWMutex
	isRunning    bool
}

// New creates a server exposing tel.
func New(cfg *config.ServerConfig, tel *telemetry.Provider) *Server {
	s := &Server{
		config:       cfg,
		tel:          tel,
		shutdownChan: make(chan struct{}),
	}
	s.router = s.setupRoutes()
	return s
}

// Handler returns the routed handler with its middleware chain.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr returns the bound address once the server is listening, or "".
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Start listens on the configured address and blocks until shutdown.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return errors.New("server is already running")
	}

	ln, err := net.Listen("tcp", s.config.ListenAddress)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to listen on %s: %w", s.config.ListenAddress, err)
	}
	s.listener = ln
	s.httpServer = &http.Server{
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}
	s.isRunning = true
	s.mu.Unlock()

	errChan := make(chan error, 1)
	go func() {
		slog.Info("starting operational server", "address", ln.Addr().String())
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case <-ctx.Done():
		slog.Info("context cancelled, initiating shutdown")
	case sig := <-sigChan:
		slog.Info("received shutdown signal", "signal", sig.String())
	case err := <-errChan:
		return err
	case <-s.shutdownChan:
		slog.Info("shutdown requested")
	}
	return s.shutdown(context.Background())
}

// Shutdown asks a running Start to drain in-flight requests and return.
func (s *Server) Shutdown() {
	s.requestOnce.Do(func() { close(s.shutdownChan) })
}

func (s *Server) shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		slog.Info("initiating graceful shutdown", "timeout", s.config.ShutdownTimeout.String())

		shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
		defer cancel()

		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("error during server shutdown", "error", err)
			shutdownErr = fmt.Errorf("server shutdown error: %w", err)
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		slog.Info("operational server stopped")
	})

	return shutdownErr
}

// setupRoutes configures routes and the middleware chain.
func (s *Server) setupRoutes() chi.Router {
	r := chi.NewRouter()
	logger := s.tel.Logger()

	r.Use(RecoveryMiddleware(logger))
	r.Use(middleware.RealIP)
	r.Use(correlation.Middleware)
	r.Use(s.tel.Tracer().HTTPMiddleware)
	r.Use(authmon.ClientMiddleware)
	var hasher *audit.Hasher
	if al := s.tel.Audit(); al != nil {
		hasher = al.Hasher()
	}
	r.Use(LoggingMiddleware(logger, hasher))

	checker := s.tel.Health()
	build := s.tel.Build()
	r.Get("/health", checker.LivenessHandler())
	r.Get("/ready", checker.ReadinessHandler())
	r.Get("/version", health.VersionHandler(build.Version, build.Commit, build.BuildTime))

	metricsCfg := s.tel.Config().Telemetry.Metrics
	if metricsCfg.Enabled {
		r.Method(http.MethodGet, metricsCfg.Path, s.tel.Metrics().Handler())
	}

	if s.config.DebugEndpoints {
		r.Route("/debug/telemetry", func(r chi.Router) {
			r.Get("/performance", s.handlePerformance)
			r.Get("/errors", s.handleErrors)
			r.Get("/audit", s.handleAudit)
		})
	}

	return r
}
