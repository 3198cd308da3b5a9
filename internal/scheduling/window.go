package scheduling

import (
	"fmt"
	"time"

	"github.com/noah-isme/academy-scheduler/internal/models"
)

// regimeHours holds nominal local boundaries: work start, lunch start, lunch end, work end.
type regimeHours struct {
	workStart, lunchStart, lunchEnd, workEnd int
}

var regimes = map[models.Regime]regimeHours{
	models.RegimeDay:     {workStart: 8, lunchStart: 11, lunchEnd: 12, workEnd: 15},
	models.RegimeEvening: {workStart: 16, lunchStart: 19, lunchEnd: 20, workEnd: 23},
}

// DailyTeachingHours is the teaching budget of every regime.
const DailyTeachingHours = 6.0

// DayWindow is the admissible work window of one date, already expressed in
// the store's timestamp encoding.
type DayWindow struct {
	Date       time.Time     `json:"date"`
	Regime     models.Regime `json:"regime"`
	Offset     int           `json:"offset"`
	WorkStart  time.Time     `json:"work_start"`
	LunchStart time.Time     `json:"lunch_start"`
	LunchEnd   time.Time     `json:"lunch_end"`
	WorkEnd    time.Time     `json:"work_end"`
}

// Work returns the full work interval including lunch.
func (w DayWindow) Work() Interval { return Interval{Start: w.WorkStart, End: w.WorkEnd} }

// Lunch returns the lunch interval.
func (w DayWindow) Lunch() Interval { return Interval{Start: w.LunchStart, End: w.LunchEnd} }

// TeachingHours is the work window length minus lunch.
func (w DayWindow) TeachingHours() float64 {
	return w.Work().Hours() - w.Lunch().Hours()
}

// Admits reports whether iv lies inside the work window and clear of lunch.
func (w DayWindow) Admits(iv Interval) bool {
	return iv.Valid() && Contains(w.Work(), iv) && !Overlaps(w.Lunch(), iv)
}

// WindowCalculator produces day windows for a regime.
type WindowCalculator struct {
	offsets OffsetResolver
}

// NewWindowCalculator builds a calculator; a nil resolver means no daylight saving correction.
func NewWindowCalculator(offsets OffsetResolver) *WindowCalculator {
	if offsets == nil {
		offsets = FixedOffsetResolver(0)
	}
	return &WindowCalculator{offsets: offsets}
}

// ForDate returns the window for date under regime. Boundaries are the nominal
// local hours minus the date's daylight-saving offset.
func (c *WindowCalculator) ForDate(date time.Time, regime models.Regime) (DayWindow, error) {
	hours, ok := regimes[regime]
	if !ok {
		return DayWindow{}, fmt.Errorf("unknown regime %q", regime)
	}
	day := DateOf(date)
	offset := c.offsets.Offset(day)
	at := func(hour int) time.Time {
		return day.Add(time.Duration(hour-offset) * time.Hour)
	}
	return DayWindow{
		Date:       day,
		Regime:     regime,
		Offset:     offset,
		WorkStart:  at(hours.workStart),
		LunchStart: at(hours.lunchStart),
		LunchEnd:   at(hours.lunchEnd),
		WorkEnd:    at(hours.workEnd),
	}, nil
}

// DateOf truncates t to midnight UTC of its calendar date.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// IsWeekend reports whether the date falls on Saturday or Sunday.
func IsWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}
