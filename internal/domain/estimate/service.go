package estimate

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rpggio/waitwatch/internal/domain/occupancy"
	"github.com/rpggio/waitwatch/internal/stats"
	"github.com/rpggio/waitwatch/internal/timeutil"
)

// DefaultLookback is how far back history is read for a prediction.
const DefaultLookback = 8 * 7 * 24 * time.Hour

// Config tunes the estimator service.
type Config struct {
	Params   Params
	Lookback time.Duration
	Location *time.Location
	Outliers stats.OutlierConfig
	// CacheRefresh enables the bucket cache when positive and sets how often
	// it is rebuilt from the store.
	CacheRefresh time.Duration
}

// Service predicts waits from session history.
type Service struct {
	sessions SessionReader
	clock    timeutil.Clock
	cfg      Config
	cache    *Cache
	logger   *slog.Logger
}

// NewService creates an estimator service.
func NewService(sessions SessionReader, clock timeutil.Clock, cfg Config, logger *slog.Logger) *Service {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Params == (Params{}) {
		cfg.Params = DefaultParams()
	}
	if cfg.Lookback <= 0 {
		cfg.Lookback = DefaultLookback
	}
	cfg.Location = locationOrUTC(cfg.Location)
	if cfg.Outliers == (stats.OutlierConfig{}) {
		cfg.Outliers = stats.DefaultOutlierConfig()
	}

	svc := &Service{
		sessions: sessions,
		clock:    clock,
		cfg:      cfg,
		logger:   logger,
	}
	if cfg.CacheRefresh > 0 {
		svc.cache = NewCache(cfg.Params, cfg.Location)
	}
	return svc
}

// Cache returns the bucket cache, nil when disabled. Register it as a
// lifecycle close observer to keep it current.
func (s *Service) Cache() *Cache {
	return s.cache
}

// Location returns the time zone used for weekday and hour bucketing.
func (s *Service) Location() *time.Location {
	return s.cfg.Location
}

// Params returns the filter tuning.
func (s *Service) Params() Params {
	return s.cfg.Params
}

// Request describes a prediction.
type Request struct {
	Context         Context
	ExcludeOutliers bool
	Source          string
}

// Prediction is an estimated wait. Seconds is never clamped.
type Prediction struct {
	Seconds    float64      `json:"seconds"`
	Covariance float64      `json:"covariance"`
	Samples    int          `json:"samples"`
	Category   Category     `json:"category"`
	Weekday    time.Weekday `json:"weekday"`
	Hour       int          `json:"hour"`
	Cached     bool         `json:"cached"`
}

// Minutes returns the predicted wait in minutes.
func (p Prediction) Minutes() float64 {
	return p.Seconds / 60
}

// Predict folds every matching measurement in the lookback window.
// Without matching history it returns the prior estimate.
func (s *Service) Predict(ctx context.Context, req Request) (*Prediction, error) {
	if err := req.Context.Validate(); err != nil {
		return nil, err
	}

	if s.cache != nil && req.Context.Bucketed() && !req.ExcludeOutliers && req.Source == "" {
		return s.predictCached(ctx, req.Context)
	}

	values, err := s.Measurements(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.prediction(req.Context, Fold(values, s.cfg.Params), len(values), false), nil
}

// PredictFromAverage performs a single update using the average matching wait.
// It is used where only an aggregate average is wanted, such as slot planning.
func (s *Service) PredictFromAverage(ctx context.Context, req Request) (*Prediction, error) {
	if err := req.Context.Validate(); err != nil {
		return nil, err
	}

	values, err := s.Measurements(ctx, req)
	if err != nil {
		return nil, err
	}

	z := s.cfg.Params.InitialEstimate
	if avg := stats.Mean(values); len(values) > 0 && avg > 0 {
		z = avg
	}
	st := Update(s.cfg.Params.Initial(), z, s.cfg.Params)
	return s.prediction(req.Context, st, len(values), false), nil
}

// Measurements returns the matching durations in entry order.
func (s *Service) Measurements(ctx context.Context, req Request) ([]float64, error) {
	now := s.clock.Now()
	sessions, err := s.sessions.QueryByWindow(ctx, occupancy.WindowQuery{
		Source:     req.Source,
		Start:      now.Add(-s.cfg.Lookback),
		End:        now,
		ClosedOnly: true,
	})
	if err != nil {
		return nil, fmt.Errorf("loading session history: %w", err)
	}

	values := make([]float64, 0, len(sessions))
	for _, sess := range sessions {
		if !req.Context.Matches(sess, s.cfg.Location) {
			continue
		}
		d, _ := sess.Duration()
		values = append(values, d)
	}

	if req.ExcludeOutliers {
		values = stats.ExcludeOutliers(values, s.cfg.Outliers)
	}
	return values, nil
}

// WarmCache rebuilds the cache from the store. It is a no-op when the cache is disabled.
func (s *Service) WarmCache(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	now := s.clock.Now()
	since := now.Add(-s.cfg.Lookback)
	sessions, err := s.sessions.QueryByWindow(ctx, occupancy.WindowQuery{
		Start:      since,
		End:        now,
		ClosedOnly: true,
	})
	if err != nil {
		return fmt.Errorf("loading session history: %w", err)
	}
	s.cache.Rebuild(sessions, since, now)
	s.logger.Debug("estimate cache rebuilt", "sessions", len(sessions))
	return nil
}

func (s *Service) predictCached(ctx context.Context, c Context) (*Prediction, error) {
	if s.cache.Stale(s.clock.Now(), s.cfg.CacheRefresh) {
		if err := s.WarmCache(ctx); err != nil {
			return nil, err
		}
	}
	st, samples := s.cache.Lookup(c.Weekday, c.Hour)
	return s.prediction(c, st, samples, true), nil
}

func (s *Service) prediction(c Context, st State, samples int, cached bool) *Prediction {
	return &Prediction{
		Seconds:    st.Estimate,
		Covariance: st.Covariance,
		Samples:    samples,
		Category:   CategoryFor(st.Estimate),
		Weekday:    c.Weekday,
		Hour:       c.Hour,
		Cached:     cached,
	}
}
