package scheduling

import "time"

// SplitResult is the outcome of slicing a duration into a day window.
type SplitResult struct {
	Segments []Interval
	// Next is the first instant after the last emitted segment.
	Next time.Time
	// Unplaced is the duration in hours that did not fit before the day ended.
	Unplaced float64
}

// Split slices hours of teaching starting at start into contiguous blocks
// that skip the lunch break and never pass the end of the work window. A
// day that cannot hold the whole duration yields the blocks that fit plus the
// unplaced remainder; callers validate every block before committing any.
func Split(start time.Time, hours float64, w DayWindow) SplitResult {
	remaining := HoursToDuration(hours)
	cursor := start
	if cursor.Before(w.WorkStart) {
		cursor = w.WorkStart
	}

	var segments []Interval
	for remaining > 0 && cursor.Before(w.WorkEnd) {
		if !cursor.Before(w.LunchStart) && cursor.Before(w.LunchEnd) {
			cursor = w.LunchEnd
			continue
		}
		end := cursor.Add(remaining)
		if cursor.Before(w.LunchStart) && end.After(w.LunchStart) {
			end = w.LunchStart
		}
		if end.After(w.WorkEnd) {
			end = w.WorkEnd
		}
		if !end.After(cursor) {
			break
		}
		segments = append(segments, Interval{Start: cursor, End: end})
		remaining -= end.Sub(cursor)
		cursor = end
	}

	return SplitResult{Segments: segments, Next: cursor, Unplaced: remaining.Hours()}
}
