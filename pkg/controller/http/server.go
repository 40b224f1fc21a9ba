package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/m-mizutani/relwatch/pkg/domain/interfaces"
	"github.com/m-mizutani/relwatch/pkg/infra/metrics"
)

// config holds internal HTTP server configuration
type config struct {
	addr      string
	metrics   *metrics.Recorder
	repoCount int
}

// Option is a functional option for Server configuration
type Option func(*config)

// WithAddr sets the server address
func WithAddr(addr string) Option {
	return func(c *config) {
		c.addr = addr
	}
}

// WithMetrics exposes recorder at /metrics
func WithMetrics(recorder *metrics.Recorder) Option {
	return func(c *config) {
		c.metrics = recorder
	}
}

// WithRepoCount sets the number of watched repositories reported by /health
func WithRepoCount(n int) Option {
	return func(c *config) {
		c.repoCount = n
	}
}

// Server represents the status HTTP server
type Server struct {
	*http.Server
}

// NewServer creates a new status server reading releases from store
func NewServer(
	ctx context.Context,
	store interfaces.ReleaseStore,
	opts ...Option,
) (*Server, error) {
	cfg := &config{
		addr: "localhost:8080",
	}
	for _, opt := range opts {
		opt(cfg)
	}

	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(LoggingMiddleware(ctx))
	router.Use(middleware.Recoverer)

	router.Get("/health", handleHealth(cfg.repoCount))
	router.Get("/api/releases", NewReleasesHandler(store).List)
	router.Method(http.MethodGet, "/metrics", cfg.metrics.Handler())

	server := &Server{
		Server: &http.Server{
			Addr:              cfg.addr,
			Handler:           router,
			ReadHeaderTimeout: 15 * time.Second,
		},
	}

	return server, nil
}
