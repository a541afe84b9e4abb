// Package app assembles repositories and services from configuration.
package app

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/waitwatch/internal/config"
	"github.com/rpggio/waitwatch/internal/domain/aggregate"
	"github.com/rpggio/waitwatch/internal/domain/estimate"
	"github.com/rpggio/waitwatch/internal/domain/occupancy"
	"github.com/rpggio/waitwatch/internal/domain/queue"
	"github.com/rpggio/waitwatch/internal/mcp"
	"github.com/rpggio/waitwatch/internal/sqlite"
	"github.com/rpggio/waitwatch/internal/stats"
	"github.com/rpggio/waitwatch/internal/timeutil"
	"github.com/rpggio/waitwatch/internal/transport"
)

// Version is reported by the MCP server.
var Version = "dev"

// App holds the wired services over one database.
type App struct {
	Config    config.Config
	DB        *sqlite.DB
	Sessions  *sqlite.SessionRepository
	APIKeys   *sqlite.APIKeyRepository
	Lifecycle *occupancy.Service
	Estimate  *estimate.Service
	Aggregate *aggregate.Service
	Queue     *queue.Service
	Clock     timeutil.Clock
	Logger    *slog.Logger
}

// New wires every service over db. The estimate cache, when enabled, is
// registered as a close observer of the lifecycle service.
func New(db *sqlite.DB, cfg config.Config, clock timeutil.Clock, logger *slog.Logger) (*App, error) {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("loading site location: %w", err)
	}

	sessions := sqlite.NewSessionRepository(db)
	outliers := stats.OutlierConfig{
		Threshold:  cfg.Outliers.Threshold,
		MinSamples: cfg.Outliers.MinSamples,
	}

	estimateSvc := estimate.NewService(sessions, clock, estimate.Config{
		Params: estimate.Params{
			InitialEstimate:   cfg.Estimator.InitialEstimate,
			InitialCovariance: cfg.Estimator.InitialCovariance,
			ProcessVar:        cfg.Estimator.ProcessVar,
			MeasurementVar:    cfg.Estimator.MeasurementVar,
		},
		Lookback:     cfg.Lookback(),
		Location:     loc,
		Outliers:     outliers,
		CacheRefresh: cfg.Estimator.CacheRefresh,
	}, logger.With("component", "estimate"))

	lifecycle := occupancy.NewService(sessions, clock, occupancy.Config{
		DefaultSource:  cfg.Tracking.Source,
		MatchThreshold: cfg.Tracking.IoUThreshold,
		FrameDelay:     cfg.Tracking.FrameDelay,
	}, logger.With("component", "lifecycle"))
	if cache := estimateSvc.Cache(); cache != nil {
		lifecycle.AddObserver(cache)
	}

	aggregateSvc := aggregate.NewService(sessions, clock, aggregate.Config{
		Location:    loc,
		Outliers:    outliers,
		MinDuration: cfg.Outliers.MinDuration,
	}, logger.With("component", "aggregate"))

	queueSvc := queue.NewService(estimateSvc, sessions, clock, logger.With("component", "queue"))

	return &App{
		Config:    cfg,
		DB:        db,
		Sessions:  sessions,
		APIKeys:   sqlite.NewAPIKeyRepository(db),
		Lifecycle: lifecycle,
		Estimate:  estimateSvc,
		Aggregate: aggregateSvc,
		Queue:     queueSvc,
		Clock:     clock,
		Logger:    logger,
	}, nil
}

// MCPServer builds the MCP server over the app's services.
func (a *App) MCPServer() *sdkmcp.Server {
	return mcp.NewServer(mcp.Config{
		Services: mcp.Services{
			Estimate:  a.Estimate,
			Aggregate: a.Aggregate,
			Queue:     a.Queue,
			Now:       a.Clock.Now,
		},
		Resolver:      a.APIKeys,
		AuthEnabled:   a.Config.Auth.Enabled,
		TransportMode: a.Config.Transport.Mode,
		Version:       Version,
		Logger:        a.Logger.With("component", "mcp"),
	})
}

// HTTPHandler builds the HTTP API with the MCP endpoint mounted at /mcp.
// frames may be nil when frames are read from a file.
func (a *App) HTTPHandler(frames transport.FramePusher, mcpServer *sdkmcp.Server) http.Handler {
	var auth func(http.Handler) http.Handler
	if a.Config.Auth.Enabled {
		auth = transport.AuthMiddleware(a.APIKeys)
	}

	var mcpHandler http.Handler
	if mcpServer != nil {
		mcpHandler = sdkmcp.NewStreamableHTTPHandler(
			func(*http.Request) *sdkmcp.Server { return mcpServer },
			&sdkmcp.StreamableHTTPOptions{SessionTimeout: 30 * time.Minute},
		)
	}

	return transport.NewServer(transport.Config{
		Services: transport.Services{
			Frames:    frames,
			Estimate:  a.Estimate,
			Aggregate: a.Aggregate,
			Queue:     a.Queue,
			Sessions:  a.Sessions,
		},
		Auth:         auth,
		MCP:          mcpHandler,
		Clock:        a.Clock,
		LiveInterval: a.Config.Live.Interval,
		Logger:       a.Logger.With("component", "http"),
	})
}
