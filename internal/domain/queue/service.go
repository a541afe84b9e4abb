package queue

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/rpggio/waitwatch/internal/domain/estimate"
	"github.com/rpggio/waitwatch/internal/timeutil"
)

// PredictedDelay is how far a prediction overruns a scheduled duration, never negative.
func PredictedDelay(predictedSeconds float64, scheduled time.Duration) float64 {
	return math.Max(0, predictedSeconds-scheduled.Seconds())
}

// RemainingWait is the predicted wait left after elapsed, never negative.
func RemainingWait(predictedSeconds float64, elapsed time.Duration) float64 {
	return math.Max(0, predictedSeconds-elapsed.Seconds())
}

// GenerateSlots lays out slots of length from start, spaced by length plus
// delay, while a whole slot still fits before end.
func GenerateSlots(start, end time.Time, length time.Duration, delay time.Duration) []Slot {
	slots := []Slot{}
	if length <= 0 {
		return slots
	}
	interval := length + max(delay, 0)
	for current := start; !current.Add(length).After(end); current = current.Add(interval) {
		slots = append(slots, Slot{Start: current, End: current.Add(length)})
	}
	return slots
}

// Service serves the consumers of wait predictions.
type Service struct {
	predictor Predictor
	sessions  OpenSessionLister
	clock     timeutil.Clock
	logger    *slog.Logger
}

// NewService creates a queue service.
func NewService(predictor Predictor, sessions OpenSessionLister, clock timeutil.Clock, logger *slog.Logger) *Service {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{predictor: predictor, sessions: sessions, clock: clock, logger: logger}
}

// Slots predicts the wait at the start of the range and spaces slots by it.
func (s *Service) Slots(ctx context.Context, req SlotRequest) (*SlotPlan, error) {
	if req.SlotLength <= 0 || !req.End.After(req.Start) {
		return nil, ErrInvalidSlotRequest
	}

	estReq := estimate.Request{
		Context:         estimate.ContextFor(req.Start, s.predictor.Location()),
		ExcludeOutliers: req.ExcludeOutliers,
	}

	var pred *estimate.Prediction
	var err error
	switch req.Mode {
	case ModeAverage:
		pred, err = s.predictor.PredictFromAverage(ctx, estReq)
	case ModeSequential, "":
		pred, err = s.predictor.Predict(ctx, estReq)
	default:
		return nil, fmt.Errorf("%w: unknown mode %q", ErrInvalidSlotRequest, req.Mode)
	}
	if err != nil {
		return nil, fmt.Errorf("predicting wait: %w", err)
	}

	delay := PredictedDelay(pred.Seconds, req.SlotLength)
	delayDur := time.Duration(delay * float64(time.Second))
	plan := &SlotPlan{
		PredictedSeconds:      pred.Seconds,
		PredictedDelaySeconds: delay,
		IntervalSeconds:       (req.SlotLength + delayDur).Seconds(),
		Category:              pred.Category,
		Samples:               pred.Samples,
		Slots:                 GenerateSlots(req.Start, req.End, req.SlotLength, delayDur),
	}
	s.logger.Debug("slots generated", "count", len(plan.Slots), "delay_seconds", delay)
	return plan, nil
}

// Snapshot returns everyone currently waiting with their remaining wait.
// The headline prediction is for someone arriving now; each open session
// counts down from the prediction of the hour it entered in.
// An empty source covers every camera.
func (s *Service) Snapshot(ctx context.Context, source string) (*Snapshot, error) {
	now := s.clock.Now()
	loc := s.predictor.Location()
	byContext := map[estimate.Context]*estimate.Prediction{}
	predictAt := func(t time.Time) (*estimate.Prediction, error) {
		c := estimate.ContextFor(t, loc)
		if pred, ok := byContext[c]; ok {
			return pred, nil
		}
		pred, err := s.predictor.Predict(ctx, estimate.Request{Context: c})
		if err != nil {
			return nil, fmt.Errorf("predicting wait: %w", err)
		}
		byContext[c] = pred
		return pred, nil
	}

	pred, err := predictAt(now)
	if err != nil {
		return nil, err
	}

	open, err := s.sessions.ListOpen(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("listing open sessions: %w", err)
	}

	snap := &Snapshot{
		At:               now,
		PredictedSeconds: pred.Seconds,
		Category:         pred.Category,
		Samples:          pred.Samples,
		Waiting:          make([]OpenWait, 0, len(open)),
	}
	for _, sess := range open {
		entryPred, err := predictAt(sess.EnteredAt)
		if err != nil {
			return nil, err
		}
		elapsed := sess.Elapsed(now)
		snap.Waiting = append(snap.Waiting, OpenWait{
			Source:           sess.Source,
			Identity:         sess.Identity,
			EnteredAt:        sess.EnteredAt,
			ElapsedSeconds:   elapsed.Seconds(),
			PredictedSeconds: entryPred.Seconds,
			RemainingSeconds: RemainingWait(entryPred.Seconds, elapsed),
		})
	}
	return snap, nil
}
