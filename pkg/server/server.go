package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/getmockd/soapd/pkg/config"
	"github.com/getmockd/soapd/pkg/logging"
	"github.com/getmockd/soapd/pkg/metrics"
	"github.com/getmockd/soapd/pkg/scripted"
	"github.com/getmockd/soapd/pkg/soap"
)

// Defaults.
const (
	DefaultShutdownTimeout   = 10 * time.Second
	DefaultReadHeaderTimeout = 10 * time.Second
	HealthPath               = "/healthz"
)

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger. Defaults to logging.Nop().
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithRegistry sets the Prometheus registry metrics are registered with.
// Defaults to a private registry carrying runtime collectors.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(s *Server) { s.registry = reg }
}

// WithShutdownTimeout bounds graceful shutdown in Serve.
func WithShutdownTimeout(d time.Duration) Option {
	return func(s *Server) { s.shutdownTimeout = d }
}

// Server hosts one soap.Engine over HTTP together with health and metrics
// endpoints, and reloads its operations when the service files change.
type Server struct {
	cfg             atomic.Pointer[config.ServiceConfig]
	engine          *soap.Engine
	compiler        *scripted.Compiler
	metrics         *metrics.Collector
	registry        *prometheus.Registry
	logger          *slog.Logger
	router          chi.Router
	shutdownTimeout time.Duration

	reloadMu sync.Mutex
	watcher  *fsnotify.Watcher
	stopCh   chan struct{}
	stopOnce sync.Once
}

// New builds a server from a validated config and registers its operations.
func New(cfg *config.ServiceConfig, opts ...Option) (*Server, error) {
	if cfg == nil {
		cfg = config.Default()
	}

	s := &Server{
		compiler:        scripted.NewCompiler(),
		shutdownTimeout: DefaultShutdownTimeout,
		stopCh:          make(chan struct{}),
	}
	s.cfg.Store(cfg)
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logging.Nop()
	}

	engineOpts := cfg.EngineOptions(s.logger, nil)
	if cfg.Metrics.Enabled {
		if s.registry == nil {
			s.registry = prometheus.NewRegistry()
			if err := metrics.RegisterRuntime(s.registry); err != nil {
				return nil, fmt.Errorf("register runtime metrics: %w", err)
			}
		}
		s.metrics = metrics.NewWithRegistry(s.registry)
		engineOpts.Observer = s.metrics
	}
	s.engine = soap.NewEngine(engineOpts)

	ops, err := scripted.BuildAll(cfg.Operations, s.compiler)
	if err != nil {
		return nil, err
	}
	if err := s.engine.Registry().Replace(ops); err != nil {
		return nil, err
	}
	s.updateOperationsGauge()

	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() chi.Router {
	cfg := s.Config()
	r := chi.NewRouter()

	r.Use(RequestID(s.logger))
	r.Use(Logger)
	r.Use(middleware.Recoverer)
	if s.metrics != nil {
		r.Use(Metrics(s.metrics, cfg.Metrics.Path))
	}

	r.Get(HealthPath, s.handleHealth)
	if s.metrics != nil {
		r.Handle(cfg.Metrics.Path, metrics.Handler(s.registry))
	}
	r.Handle(cfg.Path, s.engine)

	return r
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// Engine returns the hosted engine.
func (s *Server) Engine() *soap.Engine { return s.engine }

// Config returns the current configuration. Reload swaps it atomically.
func (s *Server) Config() *config.ServiceConfig { return s.cfg.Load() }

// Metrics returns the collector, or nil when metrics are disabled.
func (s *Server) Metrics() *metrics.Collector { return s.metrics }

type healthResponse struct {
	Status     string `json:"status"`
	Service    string `json:"service"`
	Operations int    `json:"operations"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(healthResponse{
		Status:     "ok",
		Service:    s.Config().Name,
		Operations: s.engine.Registry().Len(),
	})
}

// ListenAndServe listens on the configured address and serves until ctx is
// done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := s.Config().Address
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done, then shuts down
// gracefully and stops any file watcher.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: DefaultReadHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("soap server listening",
			"address", ln.Addr().String(),
			"path", s.Config().Path,
			"namespace", s.engine.TargetNamespace(),
			"operations", s.engine.Registry().Len(),
		)
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		s.Close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.shutdownTimeout)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.Close()
	if err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// Close stops the file watcher. It is safe to call more than once.
func (s *Server) Close() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
		s.reloadMu.Lock()
		defer s.reloadMu.Unlock()
		if s.watcher != nil {
			_ = s.watcher.Close()
		}
	})
}

func (s *Server) updateOperationsGauge() {
	if s.metrics != nil {
		s.metrics.Operations.Set(float64(s.engine.Registry().Len()))
	}
}
