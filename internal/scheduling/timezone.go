package scheduling

import (
	"time"
	_ "time/tzdata"

	"go.uber.org/zap"
)

// OffsetResolver returns the daylight-saving hour offset for a calendar date.
type OffsetResolver interface {
	Offset(date time.Time) int
}

// ZoneOffsetResolver resolves offsets from an IANA time zone.
//
// The store encodes lesson timestamps timezone-naive in the zone's standard
// time, so the offset is how far the date's local clock runs ahead of standard
// time: 0 in winter, 1 during summer time for Europe/Lisbon.
type ZoneOffsetResolver struct {
	loc    *time.Location
	logger *zap.Logger
}

// NewZoneOffsetResolver loads the named zone. A zone that cannot be loaded is
// logged and the resolver degrades to a constant zero offset.
func NewZoneOffsetResolver(zone string, logger *zap.Logger) *ZoneOffsetResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		logger.Warn("time zone unavailable, daylight saving offsets disabled", zap.String("zone", zone), zap.Error(err))
		loc = nil
	}
	return &ZoneOffsetResolver{loc: loc, logger: logger}
}

// Offset returns the hour offset in effect at local noon of the given date.
// Any failure yields 0 so scheduling is never blocked.
func (r *ZoneOffsetResolver) Offset(date time.Time) (offset int) {
	if r == nil || r.loc == nil {
		return 0
	}
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Warn("offset resolution failed", zap.Time("date", date), zap.Any("panic", rec))
			offset = 0
		}
	}()

	y, m, d := date.Date()
	_, current := time.Date(y, m, d, 12, 0, 0, 0, r.loc).Zone()
	standard := r.standardOffset(y)

	diff := current - standard
	if diff < 0 || diff%3600 != 0 {
		r.logger.Warn("unexpected zone offset, using 0",
			zap.Time("date", date),
			zap.Int("current_seconds", current),
			zap.Int("standard_seconds", standard),
		)
		return 0
	}
	return diff / 3600
}

// standardOffset is the smaller of the January and July offsets, which holds
// for both hemispheres.
func (r *ZoneOffsetResolver) standardOffset(year int) int {
	_, jan := time.Date(year, time.January, 1, 12, 0, 0, 0, r.loc).Zone()
	_, jul := time.Date(year, time.July, 1, 12, 0, 0, 0, r.loc).Zone()
	if jan < jul {
		return jan
	}
	return jul
}

// FixedOffsetResolver always returns the same offset.
type FixedOffsetResolver int

// Offset implements OffsetResolver.
func (f FixedOffsetResolver) Offset(time.Time) int { return int(f) }
