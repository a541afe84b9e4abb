package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/waitwatch/internal/domain/aggregate"
	"github.com/rpggio/waitwatch/internal/domain/estimate"
	"github.com/rpggio/waitwatch/internal/domain/queue"
	"github.com/stretchr/testify/require"
)

type estimateStub struct {
	predictFn func(context.Context, estimate.Request) (*estimate.Prediction, error)
	averageFn func(context.Context, estimate.Request) (*estimate.Prediction, error)
}

func (s estimateStub) Predict(ctx context.Context, req estimate.Request) (*estimate.Prediction, error) {
	return s.predictFn(ctx, req)
}
func (s estimateStub) PredictFromAverage(ctx context.Context, req estimate.Request) (*estimate.Prediction, error) {
	return s.averageFn(ctx, req)
}
func (s estimateStub) Location() *time.Location { return time.UTC }

type aggregateStub struct {
	overviewFn func(context.Context, aggregate.Query) (*aggregate.Overview, error)
	hourlyFn   func(context.Context, aggregate.Query) ([]aggregate.HourCount, error)
	binsFn     func(context.Context, aggregate.Query, int) ([]aggregate.Bin, error)
}

func (s aggregateStub) Overview(ctx context.Context, q aggregate.Query) (*aggregate.Overview, error) {
	return s.overviewFn(ctx, q)
}
func (s aggregateStub) ArrivalsByHour(ctx context.Context, q aggregate.Query) ([]aggregate.HourCount, error) {
	return s.hourlyFn(ctx, q)
}
func (s aggregateStub) WaitDistribution(ctx context.Context, q aggregate.Query, binSeconds int) ([]aggregate.Bin, error) {
	return s.binsFn(ctx, q, binSeconds)
}

type queueStub struct {
	slotsFn    func(context.Context, queue.SlotRequest) (*queue.SlotPlan, error)
	snapshotFn func(context.Context, string) (*queue.Snapshot, error)
}

func (s queueStub) Slots(ctx context.Context, req queue.SlotRequest) (*queue.SlotPlan, error) {
	return s.slotsFn(ctx, req)
}
func (s queueStub) Snapshot(ctx context.Context, source string) (*queue.Snapshot, error) {
	return s.snapshotFn(ctx, source)
}

type staticResolver map[string]string

func (r staticResolver) ResolveClient(_ context.Context, token string) (string, error) {
	if client, ok := r[token]; ok {
		return client, nil
	}
	return "", errors.New("unknown token")
}

var fixedNow = time.Date(2024, 3, 5, 9, 30, 0, 0, time.UTC) // Tuesday

func defaultServices() Services {
	return Services{
		Estimate: estimateStub{
			predictFn: func(_ context.Context, req estimate.Request) (*estimate.Prediction, error) {
				if err := req.Context.Validate(); err != nil {
					return nil, err
				}
				return &estimate.Prediction{Seconds: 600, Covariance: 500, Category: estimate.CategoryHigh, Weekday: req.Context.Weekday, Hour: req.Context.Hour}, nil
			},
			averageFn: func(_ context.Context, req estimate.Request) (*estimate.Prediction, error) {
				return &estimate.Prediction{Seconds: 300, Covariance: 230, Samples: 4, Category: estimate.CategoryModerate, Weekday: req.Context.Weekday, Hour: req.Context.Hour}, nil
			},
		},
		Aggregate: aggregateStub{
			overviewFn: func(_ context.Context, q aggregate.Query) (*aggregate.Overview, error) {
				return &aggregate.Overview{Start: fixedNow.Add(-24 * time.Hour), End: fixedNow, TotalArrivals: 3, CompletedWaits: 2, AvgWaitSeconds: 450, MinWaitSeconds: 300, MaxWaitSeconds: 600}, nil
			},
			hourlyFn: func(_ context.Context, q aggregate.Query) ([]aggregate.HourCount, error) {
				return []aggregate.HourCount{{Hour: fixedNow.Truncate(time.Hour), Count: 3}}, nil
			},
			binsFn: func(_ context.Context, q aggregate.Query, binSeconds int) ([]aggregate.Bin, error) {
				return []aggregate.Bin{{Label: fmt.Sprintf("0-%d min", binSeconds/60), EndSeconds: binSeconds, Count: 2}}, nil
			},
		},
		Queue: queueStub{
			slotsFn: func(_ context.Context, req queue.SlotRequest) (*queue.SlotPlan, error) {
				if req.SlotLength <= 0 || !req.End.After(req.Start) {
					return nil, queue.ErrInvalidSlotRequest
				}
				return &queue.SlotPlan{
					PredictedSeconds:      900,
					PredictedDelaySeconds: 300,
					IntervalSeconds:       900,
					Category:              estimate.CategoryHigh,
					Slots:                 queue.GenerateSlots(req.Start, req.End, req.SlotLength, 5*time.Minute),
				}, nil
			},
			snapshotFn: func(_ context.Context, source string) (*queue.Snapshot, error) {
				return &queue.Snapshot{
					At:               fixedNow,
					PredictedSeconds: 600,
					Category:         estimate.CategoryHigh,
					Waiting: []queue.OpenWait{{
						Source: "cam-1", Identity: "4", EnteredAt: fixedNow.Add(-4 * time.Minute),
						ElapsedSeconds: 240, PredictedSeconds: 600, RemainingSeconds: 360,
					}},
				}, nil
			},
		},
		Now: func() time.Time { return fixedNow },
	}
}

func connect(t *testing.T, cfg Config) *sdkmcp.ClientSession {
	t.Helper()
	ctx := context.Background()

	server := NewServer(cfg)
	serverTransport, clientTransport := sdkmcp.NewInMemoryTransports()
	_, err := server.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)

	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "test-client", Version: "1.0"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })
	return session
}

func callTool(t *testing.T, session *sdkmcp.ClientSession, name string, args map[string]any) *sdkmcp.CallToolResult {
	t.Helper()
	res, err := session.CallTool(context.Background(), &sdkmcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	require.NotEmpty(t, res.Content)
	return res
}

func resultText(t *testing.T, res *sdkmcp.CallToolResult) string {
	t.Helper()
	text, ok := res.Content[0].(*sdkmcp.TextContent)
	require.True(t, ok, "expected text content")
	return text.Text
}

func decodeResult[T any](t *testing.T, res *sdkmcp.CallToolResult) T {
	t.Helper()
	require.False(t, res.IsError, resultText(t, res))
	var out T
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &out))
	return out
}

func TestListTools(t *testing.T) {
	session := connect(t, Config{Services: defaultServices(), TransportMode: "stdio"})

	res, err := session.ListTools(context.Background(), nil)
	require.NoError(t, err)

	var names []string
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	sort.Strings(names)
	require.Equal(t, []string{
		"arrivals_by_hour",
		"get_overview",
		"list_open_sessions",
		"predict_wait",
		"suggest_slots",
		"wait_distribution",
	}, names)
}

func TestPredictWait(t *testing.T) {
	session := connect(t, Config{Services: defaultServices(), TransportMode: "stdio"})

	t.Run("defaults to now", func(t *testing.T) {
		out := decodeResult[PredictWaitResult](t, callTool(t, session, "predict_wait", map[string]any{}))
		require.Equal(t, 600.0, out.Seconds)
		require.Equal(t, 10.0, out.Minutes)
		require.Equal(t, int(time.Tuesday), out.Weekday)
		require.Equal(t, 9, out.Hour)
		require.Equal(t, "High", out.Category)
		require.Equal(t, "sequential", out.Mode)
	})

	t.Run("explicit weekday and hour", func(t *testing.T) {
		out := decodeResult[PredictWaitResult](t, callTool(t, session, "predict_wait", map[string]any{
			"weekday": 0,
			"hour":    17,
		}))
		require.Equal(t, int(time.Sunday), out.Weekday)
		require.Equal(t, 17, out.Hour)
	})

	t.Run("average mode", func(t *testing.T) {
		out := decodeResult[PredictWaitResult](t, callTool(t, session, "predict_wait", map[string]any{"mode": "average"}))
		require.Equal(t, 300.0, out.Seconds)
		require.Equal(t, 4, out.Samples)
		require.Equal(t, "average", out.Mode)
	})

	t.Run("invalid hour", func(t *testing.T) {
		res := callTool(t, session, "predict_wait", map[string]any{"hour": 24})
		require.True(t, res.IsError)
		require.Contains(t, resultText(t, res), "INVALID_CONTEXT")
	})

	t.Run("unknown mode", func(t *testing.T) {
		res := callTool(t, session, "predict_wait", map[string]any{"mode": "median"})
		require.True(t, res.IsError)
		require.Contains(t, resultText(t, res), "INVALID_INPUT")
	})
}

func TestStatisticsTools(t *testing.T) {
	session := connect(t, Config{Services: defaultServices(), TransportMode: "stdio"})

	overview := decodeResult[OverviewResult](t, callTool(t, session, "get_overview", map[string]any{}))
	require.Equal(t, 3, overview.TotalArrivals)
	require.Equal(t, 7.5, overview.AvgWaitMinutes)
	require.Equal(t, fixedNow.Format(time.RFC3339), overview.End)

	dist := decodeResult[WaitDistributionResult](t, callTool(t, session, "wait_distribution", map[string]any{"bin_minutes": 10}))
	require.Equal(t, []BinResult{{Label: "0-10 min", Count: 2}}, dist.Bins)

	hourly := decodeResult[ArrivalsByHourResult](t, callTool(t, session, "arrivals_by_hour", map[string]any{
		"start": "2024-03-04T09:30:00Z",
	}))
	require.Equal(t, []HourCountResult{{Hour: "2024-03-05T09:00:00Z", Count: 3}}, hourly.Hours)

	res := callTool(t, session, "get_overview", map[string]any{"start": "yesterday"})
	require.True(t, res.IsError)
	require.Contains(t, resultText(t, res), "INVALID_INPUT")
}

func TestListOpenSessions(t *testing.T) {
	session := connect(t, Config{Services: defaultServices(), TransportMode: "stdio"})

	out := decodeResult[ListOpenSessionsResult](t, callTool(t, session, "list_open_sessions", map[string]any{}))
	require.Equal(t, 10.0, out.PredictedMinutes)
	require.Len(t, out.Waiting, 1)
	require.Equal(t, "4", out.Waiting[0].Identity)
	require.Equal(t, 4.0, out.Waiting[0].ElapsedMinutes)
	require.Equal(t, 6.0, out.Waiting[0].RemainingMinutes)
	require.Equal(t, 10.0, out.Waiting[0].PredictedMinutes)
}

func TestSuggestSlots(t *testing.T) {
	session := connect(t, Config{Services: defaultServices(), TransportMode: "stdio"})

	out := decodeResult[SuggestSlotsResult](t, callTool(t, session, "suggest_slots", map[string]any{
		"start":        "2024-03-05T09:00:00Z",
		"end":          "2024-03-05T10:00:00Z",
		"slot_minutes": 10,
	}))
	require.Equal(t, 5.0, out.PredictedDelayMinutes)
	require.Equal(t, []SlotResult{
		{Start: "2024-03-05T09:00:00Z", End: "2024-03-05T09:10:00Z"},
		{Start: "2024-03-05T09:15:00Z", End: "2024-03-05T09:25:00Z"},
		{Start: "2024-03-05T09:30:00Z", End: "2024-03-05T09:40:00Z"},
		{Start: "2024-03-05T09:45:00Z", End: "2024-03-05T09:55:00Z"},
	}, out.Slots)

	res := callTool(t, session, "suggest_slots", map[string]any{
		"start":        "2024-03-05T10:00:00Z",
		"end":          "2024-03-05T09:00:00Z",
		"slot_minutes": 10,
	})
	require.True(t, res.IsError)
	require.Contains(t, resultText(t, res), "INVALID_SLOT_REQUEST")
}

func TestAuthRequiredOverHTTPMode(t *testing.T) {
	session := connect(t, Config{
		Services:      defaultServices(),
		Resolver:      staticResolver{"good": "front-desk"},
		AuthEnabled:   true,
		TransportMode: "http",
	})

	// In-memory transports carry no HTTP headers.
	_, err := session.CallTool(context.Background(), &sdkmcp.CallToolParams{Name: "predict_wait", Arguments: map[string]any{}})
	require.Error(t, err)
	require.Contains(t, err.Error(), "unauthorized")
}

func TestDocResources(t *testing.T) {
	session := connect(t, Config{Services: defaultServices(), TransportMode: "stdio"})

	res, err := session.ListResources(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, res.Resources, len(docResources))

	read, err := session.ReadResource(context.Background(), &sdkmcp.ReadResourceParams{URI: "waitwatch://docs/estimator"})
	require.NoError(t, err)
	require.Contains(t, read.Contents[0].Text, "P_pred = P + Q")
}
