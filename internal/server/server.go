// Package server exposes the admission limiters over HTTP.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/vnykmshr/gatekeep/pkg/common/validation"
	"github.com/vnykmshr/gatekeep/pkg/metrics"
	"github.com/vnykmshr/gatekeep/pkg/ratelimit"
	"github.com/vnykmshr/gatekeep/pkg/ratelimit/clock"
	"github.com/vnykmshr/gatekeep/pkg/ratelimit/distributed"
	"github.com/vnykmshr/gatekeep/pkg/ratelimit/store"
	"github.com/vnykmshr/gatekeep/pkg/ratelimit/tiered"
)

// Config holds the collaborators the server is built from.
type Config struct {
	Host string
	Port int

	// Store backs every distributed counter. Required.
	Store store.Store

	// Resolver maps subjects to tiers for the tiered routes. Defaults to
	// everyone on tiered.DefaultTier.
	Resolver tiered.TierResolver

	// Rules is the initial tier rule table. Defaults to tiered.DefaultRules().
	Rules *tiered.Rules

	// Namespace prefixes counter keys. Defaults to distributed.DefaultNamespace.
	Namespace string

	// Timeout bounds each store call. Defaults to distributed.DefaultTimeout.
	Timeout time.Duration

	// Clock is passed to the distributed limiters.
	Clock clock.Clock

	Logger *zap.Logger

	// Metrics and Gatherer back /metrics. They default to the process-wide
	// Prometheus registry.
	Metrics  *metrics.Registry
	Gatherer prometheus.Gatherer
}

// Server represents the HTTP server
type Server struct {
	router *chi.Mux
	server *http.Server
	host   string
	port   int
	logger *zap.Logger

	metrics  *metrics.Registry
	gatherer prometheus.Gatherer

	secure ratelimit.Limiter
	heavy  ratelimit.Limiter
	tiered *tiered.Limiter
}

// New creates a new HTTP server instance
func New(config Config) (*Server, error) {
	if config.Store == nil {
		return nil, validation.ValidateNotNil("server", "store", nil)
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	if config.Gatherer == nil {
		config.Gatherer = prometheus.DefaultGatherer
	}
	config.Metrics = metrics.OrDefault(config.Metrics)

	s := &Server{
		router:   chi.NewRouter(),
		host:     config.Host,
		port:     config.Port,
		logger:   config.Logger.Named("server"),
		metrics:  config.Metrics,
		gatherer: config.Gatherer,
	}
	if err := s.buildLimiters(config); err != nil {
		return nil, err
	}

	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)

	s.registerRoutes()
	return s, nil
}

func (s *Server) buildLimiters(config Config) error {
	newDistributed := func(name string, limit int, window time.Duration) (*distributed.Limiter, error) {
		return distributed.New(distributed.Config{
			Store:     config.Store,
			Namespace: config.Namespace,
			Limit:     limit,
			Window:    window,
			Timeout:   config.Timeout,
			Clock:     config.Clock,
			Logger:    config.Logger,
			Metrics:   config.Metrics,
			Name:      name,
		})
	}

	secure, err := newDistributed("secure", 5, time.Minute)
	if err != nil {
		return err
	}
	heavy, err := newDistributed("heavy", 2, 10*time.Second)
	if err != nil {
		return err
	}
	// The tiered limiter passes its own limit and window on every call.
	base, err := newDistributed("tiered", 1, time.Minute)
	if err != nil {
		return err
	}
	tl, err := tiered.New(tiered.Config{
		Distributed: base,
		Resolver:    config.Resolver,
		Rules:       config.Rules,
		Logger:      config.Logger,
	})
	if err != nil {
		return err
	}

	s.secure = ratelimit.WithMetrics(secure, "distributed", "secure", config.Metrics)
	s.heavy = ratelimit.WithMetrics(heavy, "distributed", "heavy", config.Metrics)
	s.tiered = tl
	return nil
}

// Tiered returns the tiered limiter so its rules can be reloaded.
func (s *Server) Tiered() *tiered.Limiter {
	return s.tiered
}

// Start starts the HTTP server
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.host, s.port)

	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	s.logger.Info("Starting HTTP server",
		zap.String("host", s.host),
		zap.Int("port", s.port),
		zap.String("addr", addr))

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handler exposes the underlying router for testing and instrumentation
func (s *Server) Handler() http.Handler {
	return s.router
}
