package mcp

import (
	"context"
	"log/slog"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/waitwatch/internal/domain/aggregate"
	"github.com/rpggio/waitwatch/internal/domain/estimate"
	"github.com/rpggio/waitwatch/internal/domain/queue"
)

// EstimateService defines prediction operations needed by MCP.
type EstimateService interface {
	Predict(ctx context.Context, req estimate.Request) (*estimate.Prediction, error)
	PredictFromAverage(ctx context.Context, req estimate.Request) (*estimate.Prediction, error)
	Location() *time.Location
}

// AggregateService defines dashboard statistics needed by MCP.
type AggregateService interface {
	Overview(ctx context.Context, q aggregate.Query) (*aggregate.Overview, error)
	ArrivalsByHour(ctx context.Context, q aggregate.Query) ([]aggregate.HourCount, error)
	WaitDistribution(ctx context.Context, q aggregate.Query, binSeconds int) ([]aggregate.Bin, error)
}

// QueueService defines live queue operations needed by MCP.
type QueueService interface {
	Slots(ctx context.Context, req queue.SlotRequest) (*queue.SlotPlan, error)
	Snapshot(ctx context.Context, source string) (*queue.Snapshot, error)
}

// Services contains all domain services needed by MCP.
type Services struct {
	Estimate  EstimateService
	Aggregate AggregateService
	Queue     QueueService
	// Now defaults to time.Now.
	Now func() time.Time
}

// Config contains server configuration.
type Config struct {
	Services      Services
	Resolver      ClientResolver
	AuthEnabled   bool
	TransportMode string // "stdio" or "http"
	Version       string
	Logger        *slog.Logger
}

// NewServer creates and configures an MCP server with all tools and middleware.
func NewServer(cfg Config) *sdkmcp.Server {
	if cfg.Version == "" {
		cfg.Version = "dev"
	}
	if cfg.Services.Now == nil {
		cfg.Services.Now = time.Now
	}

	server := sdkmcp.NewServer(&sdkmcp.Implementation{
		Name:    "waitwatch",
		Version: cfg.Version,
	}, &sdkmcp.ServerOptions{
		Instructions: serverInstructions,
		Logger:       cfg.Logger,
	})

	registerDocResources(server)

	// Later middleware wraps earlier, so traffic logging runs inside auth
	// and sees the resolved client.
	server.AddReceivingMiddleware(trafficLogger(cfg.Logger, "inbound"))
	server.AddSendingMiddleware(trafficLogger(cfg.Logger, "outbound"))

	// Stdio is local only and never authenticates.
	if cfg.TransportMode != "stdio" && cfg.AuthEnabled {
		server.AddReceivingMiddleware(authMiddleware(cfg.Resolver))
	} else {
		server.AddReceivingMiddleware(noAuthMiddleware(localClient))
	}

	registerTools(server, cfg.Services)

	return server
}
