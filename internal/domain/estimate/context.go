package estimate

import (
	"fmt"
	"math"
	"time"

	"github.com/rpggio/waitwatch/internal/domain/occupancy"
)

// DefaultTolerance applies when a context names a duration but no tolerance.
const DefaultTolerance = 10 * time.Minute

// Context selects the historical sessions relevant to a prediction.
// Weekday follows time.Weekday (Sunday is 0) in the site time zone.
type Context struct {
	Weekday time.Weekday
	Hour    int
	// Duration, when positive, keeps only sessions whose length is within
	// Tolerance of it.
	Duration  time.Duration
	Tolerance time.Duration
}

// ContextFor returns the context of an arrival at t, read in loc.
func ContextFor(t time.Time, loc *time.Location) Context {
	local := t.In(locationOrUTC(loc))
	return Context{Weekday: local.Weekday(), Hour: local.Hour()}
}

// Validate checks the context ranges.
func (c Context) Validate() error {
	if c.Weekday < time.Sunday || c.Weekday > time.Saturday {
		return fmt.Errorf("%w: weekday %d", ErrInvalidContext, c.Weekday)
	}
	if c.Hour < 0 || c.Hour > 23 {
		return fmt.Errorf("%w: hour %d", ErrInvalidContext, c.Hour)
	}
	if c.Duration < 0 || c.Tolerance < 0 {
		return fmt.Errorf("%w: negative duration or tolerance", ErrInvalidContext)
	}
	return nil
}

// Bucketed reports whether the context is a plain weekday/hour bucket.
func (c Context) Bucketed() bool {
	return c.Duration == 0
}

// Matches reports whether a closed session belongs to the context.
func (c Context) Matches(sess occupancy.Session, loc *time.Location) bool {
	d, ok := sess.Duration()
	if !ok {
		return false
	}
	entered := sess.EnteredAt.In(locationOrUTC(loc))
	if entered.Weekday() != c.Weekday || entered.Hour() != c.Hour {
		return false
	}
	if c.Duration > 0 {
		tolerance := c.Tolerance
		if tolerance == 0 {
			tolerance = DefaultTolerance
		}
		if math.Abs(d-c.Duration.Seconds()) > tolerance.Seconds() {
			return false
		}
	}
	return true
}

func locationOrUTC(loc *time.Location) *time.Location {
	if loc == nil {
		return time.UTC
	}
	return loc
}
