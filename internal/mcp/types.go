package mcp

// Times cross the tool boundary as RFC3339 strings.

type PredictWaitParams struct {
	At               string  `json:"at,omitempty" jsonschema:"arrival time as RFC3339; defaults to now"`
	Weekday          *int    `json:"weekday,omitempty" jsonschema:"day of week 0-6 with Sunday as 0; overrides at"`
	Hour             *int    `json:"hour,omitempty" jsonschema:"hour of day 0-23; overrides at"`
	ScheduledMinutes float64 `json:"scheduled_minutes,omitempty" jsonschema:"only use past visits of about this length"`
	ToleranceMinutes float64 `json:"tolerance_minutes,omitempty" jsonschema:"allowed difference from scheduled_minutes; defaults to 10"`
	ExcludeOutliers  bool    `json:"exclude_outliers,omitempty" jsonschema:"drop unusually long waits before estimating"`
	Mode             string  `json:"mode,omitempty" jsonschema:"sequential (default) or average"`
	Source           string  `json:"source,omitempty" jsonschema:"camera source; empty means all"`
}

type PredictWaitResult struct {
	Seconds    float64 `json:"seconds"`
	Minutes    float64 `json:"minutes"`
	Covariance float64 `json:"covariance"`
	Samples    int     `json:"samples"`
	Category   string  `json:"category"`
	Weekday    int     `json:"weekday"`
	Hour       int     `json:"hour"`
	Cached     bool    `json:"cached"`
	Mode       string  `json:"mode"`
}

type WindowParams struct {
	Start           string `json:"start,omitempty" jsonschema:"window start as RFC3339; defaults to 24h before end"`
	End             string `json:"end,omitempty" jsonschema:"window end as RFC3339; defaults to now"`
	Source          string `json:"source,omitempty" jsonschema:"camera source; empty means all"`
	ExcludeOutliers bool   `json:"exclude_outliers,omitempty" jsonschema:"drop unusually long waits"`
}

type OverviewResult struct {
	Start          string  `json:"start"`
	End            string  `json:"end"`
	TotalArrivals  int     `json:"total_arrivals"`
	CompletedWaits int     `json:"completed_waits"`
	OpenSessions   int     `json:"open_sessions"`
	AvgWaitMinutes float64 `json:"avg_wait_minutes"`
	MinWaitMinutes float64 `json:"min_wait_minutes"`
	MaxWaitMinutes float64 `json:"max_wait_minutes"`
}

type WaitDistributionParams struct {
	Start           string `json:"start,omitempty" jsonschema:"window start as RFC3339"`
	End             string `json:"end,omitempty" jsonschema:"window end as RFC3339"`
	Source          string `json:"source,omitempty" jsonschema:"camera source; empty means all"`
	ExcludeOutliers bool   `json:"exclude_outliers,omitempty" jsonschema:"drop unusually long waits"`
	BinMinutes      int    `json:"bin_minutes,omitempty" jsonschema:"histogram bin width in minutes; defaults to 5"`
}

type BinResult struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

type WaitDistributionResult struct {
	Bins []BinResult `json:"bins"`
}

type HourCountResult struct {
	Hour  string `json:"hour"`
	Count int    `json:"count"`
}

type ArrivalsByHourResult struct {
	Hours []HourCountResult `json:"hours"`
}

type ListOpenSessionsParams struct {
	Source string `json:"source,omitempty" jsonschema:"camera source; empty means all"`
}

type OpenWaitResult struct {
	Source           string  `json:"source"`
	Identity         string  `json:"identity"`
	EnteredAt        string  `json:"entered_at"`
	ElapsedMinutes   float64 `json:"elapsed_minutes"`
	PredictedMinutes float64 `json:"predicted_minutes"`
	RemainingMinutes float64 `json:"remaining_minutes"`
}

type ListOpenSessionsResult struct {
	At               string           `json:"at"`
	PredictedMinutes float64          `json:"predicted_minutes"`
	Category         string           `json:"category"`
	Waiting          []OpenWaitResult `json:"waiting"`
}

type SuggestSlotsParams struct {
	Start           string  `json:"start" jsonschema:"first slot start as RFC3339"`
	End             string  `json:"end" jsonschema:"range end as RFC3339"`
	SlotMinutes     float64 `json:"slot_minutes" jsonschema:"scheduled appointment length in minutes"`
	Mode            string  `json:"mode,omitempty" jsonschema:"sequential (default) or average"`
	ExcludeOutliers bool    `json:"exclude_outliers,omitempty" jsonschema:"drop unusually long waits before estimating"`
}

type SlotResult struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type SuggestSlotsResult struct {
	PredictedMinutes      float64      `json:"predicted_minutes"`
	PredictedDelayMinutes float64      `json:"predicted_delay_minutes"`
	IntervalMinutes       float64      `json:"interval_minutes"`
	Category              string       `json:"category"`
	Samples               int          `json:"samples"`
	Slots                 []SlotResult `json:"slots"`
}
