package transport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rpggio/waitwatch/internal/domain/aggregate"
	"github.com/rpggio/waitwatch/internal/domain/estimate"
	"github.com/rpggio/waitwatch/internal/domain/occupancy"
	"github.com/rpggio/waitwatch/internal/domain/queue"
	"github.com/rpggio/waitwatch/internal/timeutil"
)

// DefaultLiveInterval is how often /api/live pushes a snapshot.
const DefaultLiveInterval = 5 * time.Second

// FramePusher hands frames to the lifecycle loop.
type FramePusher interface {
	Push(ctx context.Context, frame occupancy.Frame) error
}

// Services are the domain services exposed over HTTP.
type Services struct {
	Frames    FramePusher
	Estimate  *estimate.Service
	Aggregate *aggregate.Service
	Queue     *queue.Service
	Sessions  queue.OpenSessionLister
}

// Config wires the HTTP server.
type Config struct {
	Services Services
	// Auth guards every route except /health when set.
	Auth func(http.Handler) http.Handler
	// MCP is mounted at /mcp when set. It authenticates on its own.
	MCP          http.Handler
	Clock        timeutil.Clock
	LiveInterval time.Duration
	Logger       *slog.Logger
}

// Server wires HTTP handlers.
type Server struct {
	services     Services
	clock        timeutil.Clock
	liveInterval time.Duration
	logger       *slog.Logger
}

// NewServer creates an HTTP server router with middleware.
func NewServer(cfg Config) *chi.Mux {
	if cfg.Clock == nil {
		cfg.Clock = timeutil.RealClock{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.LiveInterval <= 0 {
		cfg.LiveInterval = DefaultLiveInterval
	}

	srv := &Server{
		services:     cfg.Services,
		clock:        cfg.Clock,
		liveInterval: cfg.LiveInterval,
		logger:       cfg.Logger,
	}

	r := chi.NewRouter()
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(middleware.Recoverer)

	r.Get("/health", srv.handleHealth)

	r.Group(func(r chi.Router) {
		if cfg.Auth != nil {
			r.Use(cfg.Auth)
		}

		r.Route("/api", func(r chi.Router) {
			r.Post("/frames", srv.handleFrames)
			r.Get("/predict", srv.handlePredict)
			r.Get("/sessions/open", srv.handleOpenSessions)
			r.Post("/slots", srv.handleSlots)
			r.Get("/live", srv.handleLive)

			r.Route("/stats", func(r chi.Router) {
				r.Get("/overview", srv.handleOverview)
				r.Get("/arrivals/hourly", srv.handleArrivalsByHour)
				r.Get("/distribution", srv.handleDistribution)
				r.Get("/longest", srv.handleLongest)
				r.Get("/weekday", srv.handleArrivalsByWeekday)
				r.Get("/time-of-day", srv.handleTimeOfDay)
				r.Get("/wait/weekday", srv.handleWaitByWeekday)
				r.Get("/wait/hourly", srv.handleWaitByHour)
			})
		})
	})

	if cfg.MCP != nil {
		r.Handle("/mcp", cfg.MCP)
	}

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
