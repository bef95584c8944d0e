// Package period provides pure billing-period calculations.
// All functions are deterministic with no side effects.
package period

import "time"

// Period represents the bounds of a billing period (value type).
type Period struct {
	Start time.Time
	End   time.Time
}

// Current returns the calendar-month billing period containing now.
// Start is the first day of now's UTC month at 00:00:00.000; End is
// the last day of that month at 23:59:59.999 UTC. The end is derived
// by rolling forward one month and stepping back, so leap Februaries
// and 30/31-day months need no special casing.
// This is a PURE function.
func Current(now time.Time) Period {
	year, month, _ := now.UTC().Date()
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0).Add(-time.Millisecond)
	return Period{Start: start, End: end}
}

// Contains reports whether t falls within the period.
// This is a PURE function.
func (p Period) Contains(t time.Time) bool {
	t = t.UTC()
	return !t.Before(p.Start) && !t.After(p.End)
}

// Key returns a stable identifier for the period ("2006-01").
// Used for logging and metrics labels, never for storage keys.
func (p Period) Key() string {
	return p.Start.Format("2006-01")
}
