package queue

import (
	"context"
	"time"

	"github.com/rpggio/waitwatch/internal/domain/estimate"
	"github.com/rpggio/waitwatch/internal/domain/occupancy"
)

// Predictor estimates waits.
type Predictor interface {
	Predict(ctx context.Context, req estimate.Request) (*estimate.Prediction, error)
	PredictFromAverage(ctx context.Context, req estimate.Request) (*estimate.Prediction, error)
	Location() *time.Location
}

// OpenSessionLister lists sessions that are still open.
type OpenSessionLister interface {
	ListOpen(ctx context.Context, source string) ([]occupancy.Session, error)
}
