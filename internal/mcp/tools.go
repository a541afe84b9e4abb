package mcp

import (
	"context"
	"fmt"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/waitwatch/internal/domain/aggregate"
	"github.com/rpggio/waitwatch/internal/domain/estimate"
	"github.com/rpggio/waitwatch/internal/domain/occupancy"
	"github.com/rpggio/waitwatch/internal/domain/queue"
)

func registerTools(server *sdkmcp.Server, svc Services) {
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "predict_wait",
		Description: "Predict the waiting-room wait for an arrival time or a weekday/hour, from past sessions",
	}, func(ctx context.Context, _ *sdkmcp.CallToolRequest, in PredictWaitParams) (*sdkmcp.CallToolResult, PredictWaitResult, error) {
		out, err := predictWait(ctx, svc, in)
		if err != nil {
			return nil, PredictWaitResult{}, toolError(err)
		}
		return nil, out, nil
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "get_overview",
		Description: "Summarize arrivals and completed waits in a time window (default last 24 hours)",
	}, func(ctx context.Context, _ *sdkmcp.CallToolRequest, in WindowParams) (*sdkmcp.CallToolResult, OverviewResult, error) {
		q, err := parseWindow(in.Start, in.End, in.Source, in.ExcludeOutliers)
		if err != nil {
			return nil, OverviewResult{}, toolError(err)
		}
		ov, err := svc.Aggregate.Overview(ctx, q)
		if err != nil {
			return nil, OverviewResult{}, toolError(err)
		}
		return nil, OverviewResult{
			Start:          formatTime(ov.Start),
			End:            formatTime(ov.End),
			TotalArrivals:  ov.TotalArrivals,
			CompletedWaits: ov.CompletedWaits,
			OpenSessions:   ov.OpenSessions,
			AvgWaitMinutes: ov.AvgWaitSeconds / 60,
			MinWaitMinutes: ov.MinWaitSeconds / 60,
			MaxWaitMinutes: ov.MaxWaitSeconds / 60,
		}, nil
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "wait_distribution",
		Description: "Histogram of completed wait durations in a time window",
	}, func(ctx context.Context, _ *sdkmcp.CallToolRequest, in WaitDistributionParams) (*sdkmcp.CallToolResult, WaitDistributionResult, error) {
		q, err := parseWindow(in.Start, in.End, in.Source, in.ExcludeOutliers)
		if err != nil {
			return nil, WaitDistributionResult{}, toolError(err)
		}
		if in.BinMinutes < 0 {
			return nil, WaitDistributionResult{}, toolError(fmt.Errorf("%w: bin_minutes must be positive", occupancy.ErrInvalidInput))
		}
		binSeconds := in.BinMinutes * 60
		if binSeconds == 0 {
			binSeconds = aggregate.DefaultBinSeconds
		}
		bins, err := svc.Aggregate.WaitDistribution(ctx, q, binSeconds)
		if err != nil {
			return nil, WaitDistributionResult{}, toolError(err)
		}
		out := WaitDistributionResult{Bins: make([]BinResult, 0, len(bins))}
		for _, b := range bins {
			out.Bins = append(out.Bins, BinResult{Label: b.Label, Count: b.Count})
		}
		return nil, out, nil
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "arrivals_by_hour",
		Description: "Count arrivals per clock hour in a time window",
	}, func(ctx context.Context, _ *sdkmcp.CallToolRequest, in WindowParams) (*sdkmcp.CallToolResult, ArrivalsByHourResult, error) {
		q, err := parseWindow(in.Start, in.End, in.Source, in.ExcludeOutliers)
		if err != nil {
			return nil, ArrivalsByHourResult{}, toolError(err)
		}
		hours, err := svc.Aggregate.ArrivalsByHour(ctx, q)
		if err != nil {
			return nil, ArrivalsByHourResult{}, toolError(err)
		}
		out := ArrivalsByHourResult{Hours: make([]HourCountResult, 0, len(hours))}
		for _, h := range hours {
			out.Hours = append(out.Hours, HourCountResult{Hour: formatTime(h.Hour), Count: h.Count})
		}
		return nil, out, nil
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "list_open_sessions",
		Description: "List people currently waiting with elapsed and predicted remaining wait",
	}, func(ctx context.Context, _ *sdkmcp.CallToolRequest, in ListOpenSessionsParams) (*sdkmcp.CallToolResult, ListOpenSessionsResult, error) {
		snap, err := svc.Queue.Snapshot(ctx, in.Source)
		if err != nil {
			return nil, ListOpenSessionsResult{}, toolError(err)
		}
		out := ListOpenSessionsResult{
			At:               formatTime(snap.At),
			PredictedMinutes: snap.PredictedSeconds / 60,
			Category:         string(snap.Category),
			Waiting:          make([]OpenWaitResult, 0, len(snap.Waiting)),
		}
		for _, w := range snap.Waiting {
			out.Waiting = append(out.Waiting, OpenWaitResult{
				Source:           w.Source,
				Identity:         w.Identity,
				EnteredAt:        formatTime(w.EnteredAt),
				ElapsedMinutes:   w.ElapsedSeconds / 60,
				PredictedMinutes: w.PredictedSeconds / 60,
				RemainingMinutes: w.RemainingSeconds / 60,
			})
		}
		return nil, out, nil
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "suggest_slots",
		Description: "Suggest appointment start times spaced by the scheduled length plus the predicted delay",
	}, func(ctx context.Context, _ *sdkmcp.CallToolRequest, in SuggestSlotsParams) (*sdkmcp.CallToolResult, SuggestSlotsResult, error) {
		start, err := parseTime("start", in.Start)
		if err != nil {
			return nil, SuggestSlotsResult{}, toolError(err)
		}
		end, err := parseTime("end", in.End)
		if err != nil {
			return nil, SuggestSlotsResult{}, toolError(err)
		}
		plan, err := svc.Queue.Slots(ctx, queue.SlotRequest{
			Start:           start,
			End:             end,
			SlotLength:      time.Duration(in.SlotMinutes * float64(time.Minute)),
			Mode:            queue.Mode(in.Mode),
			ExcludeOutliers: in.ExcludeOutliers,
		})
		if err != nil {
			return nil, SuggestSlotsResult{}, toolError(err)
		}
		out := SuggestSlotsResult{
			PredictedMinutes:      plan.PredictedSeconds / 60,
			PredictedDelayMinutes: plan.PredictedDelaySeconds / 60,
			IntervalMinutes:       plan.IntervalSeconds / 60,
			Category:              string(plan.Category),
			Samples:               plan.Samples,
			Slots:                 make([]SlotResult, 0, len(plan.Slots)),
		}
		for _, slot := range plan.Slots {
			out.Slots = append(out.Slots, SlotResult{Start: formatTime(slot.Start), End: formatTime(slot.End)})
		}
		return nil, out, nil
	})
}

func predictWait(ctx context.Context, svc Services, in PredictWaitParams) (PredictWaitResult, error) {
	at := svc.Now()
	if in.At != "" {
		t, err := parseTime("at", in.At)
		if err != nil {
			return PredictWaitResult{}, err
		}
		at = t
	}

	c := estimate.ContextFor(at, svc.Estimate.Location())
	if in.Weekday != nil {
		c.Weekday = time.Weekday(*in.Weekday)
	}
	if in.Hour != nil {
		c.Hour = *in.Hour
	}
	c.Duration = time.Duration(in.ScheduledMinutes * float64(time.Minute))
	c.Tolerance = time.Duration(in.ToleranceMinutes * float64(time.Minute))

	req := estimate.Request{Context: c, ExcludeOutliers: in.ExcludeOutliers, Source: in.Source}

	var pred *estimate.Prediction
	var err error
	mode := queue.Mode(in.Mode)
	switch mode {
	case "", queue.ModeSequential:
		mode = queue.ModeSequential
		pred, err = svc.Estimate.Predict(ctx, req)
	case queue.ModeAverage:
		pred, err = svc.Estimate.PredictFromAverage(ctx, req)
	default:
		return PredictWaitResult{}, fmt.Errorf("%w: unknown mode %q", occupancy.ErrInvalidInput, in.Mode)
	}
	if err != nil {
		return PredictWaitResult{}, err
	}

	return PredictWaitResult{
		Seconds:    pred.Seconds,
		Minutes:    pred.Minutes(),
		Covariance: pred.Covariance,
		Samples:    pred.Samples,
		Category:   string(pred.Category),
		Weekday:    int(pred.Weekday),
		Hour:       pred.Hour,
		Cached:     pred.Cached,
		Mode:       string(mode),
	}, nil
}

func parseWindow(start, end, source string, excludeOutliers bool) (aggregate.Query, error) {
	q := aggregate.Query{Source: source, ExcludeOutliers: excludeOutliers}
	var err error
	if start != "" {
		if q.Window.Start, err = parseTime("start", start); err != nil {
			return aggregate.Query{}, err
		}
	}
	if end != "" {
		if q.Window.End, err = parseTime("end", end); err != nil {
			return aggregate.Query{}, err
		}
	}
	return q, nil
}

func parseTime(name, value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s must be RFC3339", occupancy.ErrInvalidInput, name)
	}
	return t, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}
