package aggregate

import "time"

// Window bounds a query by session entry time.
type Window struct {
	Start time.Time
	End   time.Time
}

// Query selects the sessions an aggregate is computed over.
type Query struct {
	Window          Window
	Source          string
	ExcludeOutliers bool
}

// Overview summarizes arrivals and waits in a window.
type Overview struct {
	Start          time.Time `json:"start"`
	End            time.Time `json:"end"`
	TotalArrivals  int       `json:"total_arrivals"`
	CompletedWaits int       `json:"completed_waits"`
	OpenSessions   int       `json:"open_sessions"`
	AvgWaitSeconds float64   `json:"avg_wait_seconds"`
	MinWaitSeconds float64   `json:"min_wait_seconds"`
	MaxWaitSeconds float64   `json:"max_wait_seconds"`
}

// HourCount is the number of arrivals in one clock hour.
type HourCount struct {
	Hour  time.Time `json:"hour"`
	Count int       `json:"count"`
}

// Bin is one histogram bucket of wait durations.
type Bin struct {
	Label        string `json:"label"`
	StartSeconds int    `json:"start_seconds"`
	EndSeconds   int    `json:"end_seconds"`
	Count        int    `json:"count"`
}

// WeekdayCount is the number of arrivals on a weekday.
type WeekdayCount struct {
	Weekday time.Weekday `json:"weekday"`
	Label   string       `json:"label"`
	Count   int          `json:"count"`
}

// HourOfDayCount is the number of arrivals in an hour of the day.
type HourOfDayCount struct {
	Hour  int `json:"hour"`
	Count int `json:"count"`
}

// WeekdayWait is the average wait on a weekday.
type WeekdayWait struct {
	Weekday    time.Weekday `json:"weekday"`
	Label      string       `json:"label"`
	AvgMinutes float64      `json:"avg_minutes"`
	Count      int          `json:"count"`
}

// HourWait is the average wait in an hour of the day.
type HourWait struct {
	Hour       int     `json:"hour"`
	AvgMinutes float64 `json:"avg_minutes"`
	Count      int     `json:"count"`
}
