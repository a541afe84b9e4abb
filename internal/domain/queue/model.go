package queue

import (
	"time"

	"github.com/rpggio/waitwatch/internal/domain/estimate"
)

// Mode selects how a slot plan obtains its prediction.
type Mode string

const (
	// ModeSequential folds every matching measurement.
	ModeSequential Mode = "sequential"
	// ModeAverage applies a single update with the average matching wait.
	ModeAverage Mode = "average"
)

// SlotRequest asks for appointment slots between Start and End.
type SlotRequest struct {
	Start           time.Time
	End             time.Time
	SlotLength      time.Duration
	Mode            Mode
	ExcludeOutliers bool
}

// Slot is one generated appointment slot.
type Slot struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// SlotPlan is the generated slots and the prediction they were spaced by.
type SlotPlan struct {
	PredictedSeconds      float64           `json:"predicted_seconds"`
	PredictedDelaySeconds float64           `json:"predicted_delay_seconds"`
	IntervalSeconds       float64           `json:"interval_seconds"`
	Category              estimate.Category `json:"category"`
	Samples               int               `json:"samples"`
	Slots                 []Slot            `json:"slots"`
}

// OpenWait is the live state of one person still waiting.
type OpenWait struct {
	Source           string    `json:"source"`
	Identity         string    `json:"identity"`
	EnteredAt        time.Time `json:"entered_at"`
	ElapsedSeconds   float64   `json:"elapsed_seconds"`
	PredictedSeconds float64   `json:"predicted_seconds"`
	RemainingSeconds float64   `json:"remaining_seconds"`
}

// Snapshot is the live queue view.
type Snapshot struct {
	At               time.Time         `json:"at"`
	PredictedSeconds float64           `json:"predicted_seconds"`
	Category         estimate.Category `json:"category"`
	Samples          int               `json:"samples"`
	Waiting          []OpenWait        `json:"waiting"`
}
