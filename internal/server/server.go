// Package server is the read-only HTTP and WebSocket API over the bot's run
// history, trade log and live positions.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/alanyoungcy/congressbot/internal/domain"
	"github.com/alanyoungcy/congressbot/internal/metrics"
	"github.com/alanyoungcy/congressbot/internal/server/handler"
	"github.com/alanyoungcy/congressbot/internal/server/middleware"
	"github.com/alanyoungcy/congressbot/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // empty disables authentication
	// RateLimit is requests per minute per client IP; 0 disables it.
	RateLimit int
}

// Handlers aggregates the HTTP handlers registered by NewServer.
type Handlers struct {
	Health     *handler.HealthHandler
	Runs       *handler.RunHandler
	Scores     *handler.ScoreHandler
	Orders     *handler.OrderHandler
	Positions  *handler.PositionHandler
	Watermarks *handler.WatermarkHandler
	Archives   *handler.ArchiveHandler
}

// Deps are the optional collaborators of the server. Any may be nil.
type Deps struct {
	Hub     *ws.Hub
	Metrics *metrics.Metrics
	Limiter domain.RateLimiter
}

// Server is the headless HTTP + WebSocket API server.
type Server struct {
	httpServer *http.Server
	router     chi.Router
	logger     *slog.Logger
}

// NewServer registers every route on a chi router and wraps it in the
// middleware chain.
func NewServer(cfg Config, handlers Handlers, deps Deps, logger *slog.Logger) *Server {
	logger = logger.With(slog.String("component", "server"))
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Middleware)
	}
	r.Use(middleware.Logging(logger))
	r.Use(middleware.CORS(cfg.CORSOrigins))

	r.Get("/api/health", handlers.Health.HealthCheck)
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(cfg.APIKey))
		if deps.Limiter != nil && cfg.RateLimit > 0 {
			r.Use(middleware.RateLimit(deps.Limiter, cfg.RateLimit, time.Minute, logger))
		}

		r.Route("/api", func(r chi.Router) {
			r.Get("/runs", handlers.Runs.ListRuns)
			r.Get("/scores", handlers.Scores.ListScores)
			r.Get("/orders", handlers.Orders.ListOrders)
			r.Get("/positions", handlers.Positions.ListPositions)
			r.Get("/watermarks", handlers.Watermarks.ListWatermarks)
			r.Get("/archives", handlers.Archives.ListArchives)
		})

		if deps.Hub != nil {
			r.Get("/ws", deps.Hub.HandleWS)
		}
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{httpServer: srv, router: r, logger: logger}
}

// Handler returns the fully wrapped router, for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start begins listening for HTTP requests. It blocks until the server
// fails or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting", slog.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// within ctx's deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
