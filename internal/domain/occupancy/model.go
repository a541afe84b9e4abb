package occupancy

import (
	"time"

	"github.com/rpggio/waitwatch/internal/domain/detection"
)

// DefaultSource names the camera used when a frame does not name one.
const DefaultSource = "default"

// Session is one continuous presence of a tracked identity in the monitored area.
type Session struct {
	ID              string     `json:"id"`
	Source          string     `json:"source"`
	Identity        string     `json:"identity"`
	EnteredAt       time.Time  `json:"entered_at"`
	ExitedAt        *time.Time `json:"exited_at,omitempty"`
	DurationSeconds *float64   `json:"duration_seconds,omitempty"`
}

// IsOpen reports whether the session has not been closed yet.
func (s Session) IsOpen() bool {
	return s.ExitedAt == nil
}

// Duration returns the stored duration in seconds and whether the session is closed.
func (s Session) Duration() (float64, bool) {
	if s.DurationSeconds == nil {
		return 0, false
	}
	return *s.DurationSeconds, true
}

// Elapsed returns how long an open session has lasted at now.
// Closed sessions return their stored duration.
func (s Session) Elapsed(now time.Time) time.Duration {
	if d, ok := s.Duration(); ok {
		return time.Duration(d * float64(time.Second))
	}
	if now.Before(s.EnteredAt) {
		return 0
	}
	return now.Sub(s.EnteredAt)
}

// WindowQuery selects sessions by entry time.
type WindowQuery struct {
	Source string
	// Start and End bound EnteredAt inclusively; zero values are unbounded.
	Start time.Time
	End   time.Time
	// ClosedOnly drops open sessions.
	ClosedOnly bool
	// MinDuration keeps closed sessions whose duration is strictly greater, in seconds.
	MinDuration float64
}

// Frame is one video frame's worth of detector and tracker output.
type Frame struct {
	Source     string                 `json:"source,omitempty"`
	CapturedAt time.Time              `json:"captured_at,omitzero"`
	Detections []detection.Detection  `json:"detections"`
	Tracks     []detection.TrackerBox `json:"tracks"`
}

// FrameResult reports what a single frame changed.
type FrameResult struct {
	Source  string              `json:"source"`
	At      time.Time           `json:"at"`
	Tracked []detection.Tracked `json:"tracked"`
	Opened  []string            `json:"opened"`
	Closed  []Session           `json:"closed"`
}
