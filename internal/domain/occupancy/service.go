package occupancy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/rpggio/waitwatch/internal/domain/detection"
	"github.com/rpggio/waitwatch/internal/timeutil"
)

// Config tunes the lifecycle loop.
type Config struct {
	DefaultSource  string
	MatchThreshold float64
	FrameDelay     time.Duration
}

// Service turns reconciled frames into open and closed sessions.
// It is the only writer of sessions and must be driven from a single goroutine.
type Service struct {
	store       Store
	clock       timeutil.Clock
	cfg         Config
	logger      *slog.Logger
	reconcilers map[string]*detection.Reconciler
	observers   []CloseObserver
}

// NewService creates a lifecycle service.
func NewService(store Store, clock timeutil.Clock, cfg Config, logger *slog.Logger) *Service {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.DefaultSource == "" {
		cfg.DefaultSource = DefaultSource
	}
	return &Service{
		store:       store,
		clock:       clock,
		cfg:         cfg,
		logger:      logger,
		reconcilers: make(map[string]*detection.Reconciler),
	}
}

// AddObserver registers an observer for closed sessions. Call before Run.
func (s *Service) AddObserver(o CloseObserver) {
	s.observers = append(s.observers, o)
}

// ProcessFrame reconciles one frame, opens sessions for newly present
// identities and closes sessions whose identity is no longer present.
// On a store error the pass stops and the partial result is returned.
func (s *Service) ProcessFrame(ctx context.Context, frame Frame) (*FrameResult, error) {
	source := frame.Source
	if source == "" {
		source = s.cfg.DefaultSource
	}
	now := frame.CapturedAt
	if now.IsZero() {
		now = s.clock.Now()
	}

	result := &FrameResult{Source: source, At: now, Opened: []string{}, Closed: []Session{}}

	rec, err := s.reconcilerFor(ctx, source)
	if err != nil {
		return result, err
	}
	result.Tracked = rec.Reconcile(frame.Detections, frame.Tracks)

	present := make(map[string]bool, len(result.Tracked))
	for _, t := range result.Tracked {
		if present[t.Identity] {
			continue
		}
		present[t.Identity] = true

		opened, err := s.ensureOpen(ctx, source, t.Identity, now)
		if err != nil {
			return result, err
		}
		if opened {
			result.Opened = append(result.Opened, t.Identity)
		}
	}

	open, err := s.store.ListOpen(ctx, source)
	if err != nil {
		return result, fmt.Errorf("listing open sessions: %w", err)
	}
	for _, sess := range open {
		if present[sess.Identity] {
			continue
		}
		closed, err := s.store.CloseOpen(ctx, source, sess.Identity, now)
		if err != nil {
			return result, fmt.Errorf("closing session for %s: %w", sess.Identity, err)
		}
		if closed == nil {
			continue
		}
		result.Closed = append(result.Closed, *closed)
		for _, o := range s.observers {
			o.SessionClosed(*closed)
		}
	}

	if len(result.Opened) > 0 || len(result.Closed) > 0 {
		s.logger.Debug("frame processed",
			"source", source,
			"present", len(present),
			"opened", len(result.Opened),
			"closed", len(result.Closed))
	}
	return result, nil
}

// Run processes frames from src until it is exhausted or ctx is canceled.
// Store errors and malformed frames are logged and the loop moves on.
func (s *Service) Run(ctx context.Context, src FrameSource) error {
	s.logger.Info("lifecycle loop started", "frame_delay", s.cfg.FrameDelay)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		frame, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			s.logger.Info("frame source exhausted")
			return nil
		}
		if errors.Is(err, ErrInvalidInput) {
			s.logger.Warn("skipping malformed frame", "error", err)
			continue
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return fmt.Errorf("reading frame: %w", err)
		}

		if _, err := s.ProcessFrame(ctx, frame); err != nil {
			s.logger.Error("frame pass aborted", "source", frame.Source, "error", err)
		}

		if s.cfg.FrameDelay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-s.clock.After(s.cfg.FrameDelay):
			}
		}
	}
}

func (s *Service) ensureOpen(ctx context.Context, source, identity string, at time.Time) (bool, error) {
	_, err := s.store.FindOpen(ctx, source, identity)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, ErrSessionNotFound) {
		return false, fmt.Errorf("finding open session for %s: %w", identity, err)
	}

	if _, err := s.store.CreateOpen(ctx, source, identity, at); err != nil {
		if errors.Is(err, ErrAlreadyOpen) {
			return false, nil
		}
		return false, fmt.Errorf("opening session for %s: %w", identity, err)
	}
	return true, nil
}

func (s *Service) reconcilerFor(ctx context.Context, source string) (*detection.Reconciler, error) {
	if rec, ok := s.reconcilers[source]; ok {
		return rec, nil
	}

	last, err := s.store.MaxIdentity(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("seeding identities for %s: %w", source, err)
	}
	ids := detection.NewIdentityMap()
	ids.Seed(last)

	rec := detection.NewReconciler(s.cfg.MatchThreshold, ids)
	s.reconcilers[source] = rec
	s.logger.Info("reconciler created", "source", source, "next_identity", last+1)
	return rec, nil
}
