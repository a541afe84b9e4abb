// Package sim generates synthetic closed sessions for demos and load tests.
package sim

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/rpggio/waitwatch/internal/domain/occupancy"
	"gonum.org/v1/gonum/stat/distuv"
)

const (
	// DefaultSource keeps simulated sessions apart from real cameras.
	DefaultSource = "sim"
	// DefaultMeanWait is the mean of the exponential wait distribution.
	DefaultMeanWait = 600 * time.Second
)

// Config describes a simulation run.
type Config struct {
	Sessions int
	Days     int
	// End is the end of the simulated window; the window starts Days before it.
	End      time.Time
	MeanWait time.Duration
	Source   string
	Seed     uint64
}

// Generate draws Poisson arrivals per hour, with the hourly rate set so the
// expected total is Sessions, and exponential wait durations. Identities are
// sim_1, sim_2, ... in arrival order. The same seed yields the same sessions.
func Generate(cfg Config) ([]occupancy.Session, error) {
	if cfg.Sessions < 0 || cfg.Days <= 0 {
		return nil, fmt.Errorf("%w: sessions must be non-negative and days positive", occupancy.ErrInvalidInput)
	}
	if cfg.End.IsZero() {
		cfg.End = time.Now()
	}
	if cfg.MeanWait <= 0 {
		cfg.MeanWait = DefaultMeanWait
	}
	if cfg.Source == "" {
		cfg.Source = DefaultSource
	}

	src := rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)
	rng := rand.New(src)
	perHour := float64(cfg.Sessions) / float64(cfg.Days) / 24
	arrivals := distuv.Poisson{Lambda: perHour, Src: src}
	waits := distuv.Exponential{Rate: 1 / cfg.MeanWait.Seconds(), Src: src}

	start := cfg.End.Add(-time.Duration(cfg.Days) * 24 * time.Hour)
	sessions := make([]occupancy.Session, 0, cfg.Sessions)
	for hour := start; hour.Before(cfg.End); hour = hour.Add(time.Hour) {
		if perHour <= 0 {
			break
		}
		drawn := make([]occupancy.Session, int(arrivals.Rand()))
		for i := range drawn {
			entered := hour.Add(time.Duration(rng.Float64() * float64(time.Hour)))
			duration := float64(int(waits.Rand()))
			exited := entered.Add(time.Duration(duration) * time.Second)
			drawn[i] = occupancy.Session{
				Source:          cfg.Source,
				EnteredAt:       entered,
				ExitedAt:        &exited,
				DurationSeconds: &duration,
			}
		}
		slices.SortStableFunc(drawn, func(a, b occupancy.Session) int { return a.EnteredAt.Compare(b.EnteredAt) })
		for _, sess := range drawn {
			sess.Identity = fmt.Sprintf("sim_%d", len(sessions)+1)
			sessions = append(sessions, sess)
		}
	}
	return sessions, nil
}
