package aggregate

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/rpggio/waitwatch/internal/domain/occupancy"
	"github.com/rpggio/waitwatch/internal/stats"
	"github.com/rpggio/waitwatch/internal/timeutil"
)

const (
	// DefaultWindow is used when a query gives no bounds.
	DefaultWindow = 24 * time.Hour
	// DefaultBinSeconds is the wait histogram bin width.
	DefaultBinSeconds = 300
	// DefaultTopN is the number of longest waits returned.
	DefaultTopN = 10
	// DefaultMinDuration drops sub-second blips from wait statistics.
	DefaultMinDuration = 1.0
)

// Config tunes the aggregation service.
type Config struct {
	Location    *time.Location
	Outliers    stats.OutlierConfig
	MinDuration float64
}

// Service computes read-only dashboard statistics over sessions.
type Service struct {
	sessions SessionReader
	clock    timeutil.Clock
	cfg      Config
	logger   *slog.Logger
}

// NewService creates an aggregation service.
func NewService(sessions SessionReader, clock timeutil.Clock, cfg Config, logger *slog.Logger) *Service {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Outliers == (stats.OutlierConfig{}) {
		cfg.Outliers = stats.DefaultOutlierConfig()
	}
	if cfg.MinDuration <= 0 {
		cfg.MinDuration = DefaultMinDuration
	}
	return &Service{sessions: sessions, clock: clock, cfg: cfg, logger: logger}
}

// Overview returns arrival and wait totals for the window.
func (s *Service) Overview(ctx context.Context, q Query) (*Overview, error) {
	set, err := s.load(ctx, q)
	if err != nil {
		return nil, err
	}

	out := &Overview{
		Start:         set.window.Start,
		End:           set.window.End,
		TotalArrivals: len(set.arrivals),
	}
	for _, sess := range set.arrivals {
		if sess.IsOpen() {
			out.OpenSessions++
		}
	}
	summary := stats.Summarize(durations(set.waits))
	out.CompletedWaits = summary.Count
	out.AvgWaitSeconds = summary.Mean
	out.MinWaitSeconds = summary.Min
	out.MaxWaitSeconds = summary.Max
	return out, nil
}

// ArrivalsByHour counts arrivals per clock hour, ascending.
func (s *Service) ArrivalsByHour(ctx context.Context, q Query) ([]HourCount, error) {
	set, err := s.load(ctx, q)
	if err != nil {
		return nil, err
	}

	counts := map[time.Time]int{}
	for _, sess := range set.arrivals {
		local := sess.EnteredAt.In(s.cfg.Location)
		hour := time.Date(local.Year(), local.Month(), local.Day(), local.Hour(), 0, 0, 0, s.cfg.Location)
		counts[hour]++
	}

	out := make([]HourCount, 0, len(counts))
	for hour, n := range counts {
		out = append(out, HourCount{Hour: hour, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Hour.Before(out[j].Hour) })
	return out, nil
}

// WaitDistribution bins completed waits. Only non-empty bins are returned.
func (s *Service) WaitDistribution(ctx context.Context, q Query, binSeconds int) ([]Bin, error) {
	if binSeconds <= 0 {
		binSeconds = DefaultBinSeconds
	}
	set, err := s.load(ctx, q)
	if err != nil {
		return nil, err
	}

	counts := map[int]int{}
	for _, d := range durations(set.waits) {
		counts[int(d)/binSeconds]++
	}

	out := make([]Bin, 0, len(counts))
	for idx, n := range counts {
		start := idx * binSeconds
		end := start + binSeconds
		out = append(out, Bin{
			Label:        fmt.Sprintf("%d-%d min", start/60, end/60),
			StartSeconds: start,
			EndSeconds:   end,
			Count:        n,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartSeconds < out[j].StartSeconds })
	return out, nil
}

// LongestWaits returns the n longest completed waits, longest first.
func (s *Service) LongestWaits(ctx context.Context, q Query, n int) ([]occupancy.Session, error) {
	if n <= 0 {
		n = DefaultTopN
	}
	set, err := s.load(ctx, q)
	if err != nil {
		return nil, err
	}

	out := append([]occupancy.Session(nil), set.waits...)
	sort.SliceStable(out, func(i, j int) bool {
		return *out[i].DurationSeconds > *out[j].DurationSeconds
	})
	if len(out) > n {
		out = out[:n]
	}
	return out, nil
}

// ArrivalsByWeekday counts arrivals per weekday, Sunday first, omitting empty days.
func (s *Service) ArrivalsByWeekday(ctx context.Context, q Query) ([]WeekdayCount, error) {
	set, err := s.load(ctx, q)
	if err != nil {
		return nil, err
	}

	var counts [7]int
	for _, sess := range set.arrivals {
		counts[sess.EnteredAt.In(s.cfg.Location).Weekday()]++
	}

	out := []WeekdayCount{}
	for day, n := range counts {
		if n == 0 {
			continue
		}
		wd := time.Weekday(day)
		out = append(out, WeekdayCount{Weekday: wd, Label: weekdayLabel(wd), Count: n})
	}
	return out, nil
}

// TimeOfDay counts arrivals per hour of the day; always 24 entries.
func (s *Service) TimeOfDay(ctx context.Context, q Query) ([]HourOfDayCount, error) {
	set, err := s.load(ctx, q)
	if err != nil {
		return nil, err
	}

	out := make([]HourOfDayCount, 24)
	for h := range out {
		out[h].Hour = h
	}
	for _, sess := range set.arrivals {
		out[sess.EnteredAt.In(s.cfg.Location).Hour()].Count++
	}
	return out, nil
}

// WaitByWeekday averages completed waits per weekday in minutes, omitting empty days.
func (s *Service) WaitByWeekday(ctx context.Context, q Query) ([]WeekdayWait, error) {
	set, err := s.load(ctx, q)
	if err != nil {
		return nil, err
	}

	var byDay [7][]float64
	for _, sess := range set.waits {
		day := sess.EnteredAt.In(s.cfg.Location).Weekday()
		byDay[day] = append(byDay[day], *sess.DurationSeconds)
	}

	out := []WeekdayWait{}
	for day, values := range byDay {
		if len(values) == 0 {
			continue
		}
		wd := time.Weekday(day)
		out = append(out, WeekdayWait{
			Weekday:    wd,
			Label:      weekdayLabel(wd),
			AvgMinutes: stats.Mean(values) / 60,
			Count:      len(values),
		})
	}
	return out, nil
}

// WaitByHour averages completed waits per hour of the day in minutes; always 24 entries.
func (s *Service) WaitByHour(ctx context.Context, q Query) ([]HourWait, error) {
	set, err := s.load(ctx, q)
	if err != nil {
		return nil, err
	}

	var byHour [24][]float64
	for _, sess := range set.waits {
		h := sess.EnteredAt.In(s.cfg.Location).Hour()
		byHour[h] = append(byHour[h], *sess.DurationSeconds)
	}

	out := make([]HourWait, 24)
	for h, values := range byHour {
		out[h] = HourWait{Hour: h, AvgMinutes: stats.Mean(values) / 60, Count: len(values)}
	}
	return out, nil
}

// ResolveWindow fills in missing bounds: End defaults to now and Start to End-24h.
func (s *Service) ResolveWindow(w Window) Window {
	if w.End.IsZero() {
		w.End = s.clock.Now()
	}
	if w.Start.IsZero() {
		w.Start = w.End.Add(-DefaultWindow)
	}
	return w
}

type sessionSet struct {
	window   Window
	arrivals []occupancy.Session
	waits    []occupancy.Session
}

// load reads the window once. Waits are closed sessions longer than the
// minimum duration. With outlier exclusion, arrivals are limited to the
// waits that survive the cutoff.
func (s *Service) load(ctx context.Context, q Query) (*sessionSet, error) {
	window := s.ResolveWindow(q.Window)
	sessions, err := s.sessions.QueryByWindow(ctx, occupancy.WindowQuery{
		Source: q.Source,
		Start:  window.Start,
		End:    window.End,
	})
	if err != nil {
		return nil, fmt.Errorf("loading sessions: %w", err)
	}

	set := &sessionSet{window: window}
	for _, sess := range sessions {
		if d, ok := sess.Duration(); ok && d > s.cfg.MinDuration {
			set.waits = append(set.waits, sess)
		}
	}

	if !q.ExcludeOutliers {
		set.arrivals = sessions
		return set, nil
	}

	keep := stats.OutlierMask(durations(set.waits), s.cfg.Outliers)
	filtered := make([]occupancy.Session, 0, len(set.waits))
	for i, sess := range set.waits {
		if keep[i] {
			filtered = append(filtered, sess)
		}
	}
	set.waits = filtered
	set.arrivals = filtered
	return set, nil
}

func durations(sessions []occupancy.Session) []float64 {
	out := make([]float64, 0, len(sessions))
	for _, sess := range sessions {
		if d, ok := sess.Duration(); ok {
			out = append(out, d)
		}
	}
	return out
}

func weekdayLabel(d time.Weekday) string {
	return d.String()[:3]
}
