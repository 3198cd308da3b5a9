// Package scheduling holds the pure building blocks of the lesson generator:
// interval arithmetic, daylight-saving aware day windows, the lunch-aware
// segment splitter, per-module hour budgets and candidate ranking.
package scheduling

import (
	"math"
	"time"
)

// hoursEpsilon absorbs float noise when comparing hour totals.
const hoursEpsilon = 1e-6

// Interval is a half-open time range [Start, End).
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Hours returns the wall-clock length of the interval in hours.
func (i Interval) Hours() float64 {
	return HoursBetween(i.Start, i.End)
}

// Valid reports whether the interval has a positive length.
func (i Interval) Valid() bool {
	return i.End.After(i.Start)
}

// Overlaps reports whether two half-open intervals intersect.
func Overlaps(a, b Interval) bool {
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}

// Contains reports whether outer fully covers inner.
func Contains(outer, inner Interval) bool {
	return !inner.Start.Before(outer.Start) && !inner.End.After(outer.End)
}

// HoursBetween returns the duration between a and b in hours.
func HoursBetween(a, b time.Time) float64 {
	return b.Sub(a).Hours()
}

// HoursToDuration converts decimal hours to a duration truncated to the
// second, so a block never runs past the hours it was cut from.
func HoursToDuration(hours float64) time.Duration {
	return time.Duration(math.Floor(hours*3600+1e-6)) * time.Second
}

// TotalHours sums the lengths of the given intervals.
func TotalHours(intervals []Interval) float64 {
	var total time.Duration
	for _, iv := range intervals {
		total += iv.End.Sub(iv.Start)
	}
	return total.Hours()
}
