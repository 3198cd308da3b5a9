package scheduling

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func at(day string, hour, minute int) time.Time {
	d, err := time.Parse("2006-01-02", day)
	if err != nil {
		panic(err)
	}
	return d.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

func iv(day string, fromHour, toHour int) Interval {
	return Interval{Start: at(day, fromHour, 0), End: at(day, toHour, 0)}
}

func TestOverlaps(t *testing.T) {
	cases := []struct {
		name string
		a, b Interval
		want bool
	}{
		{"disjoint", iv("2025-01-06", 8, 10), iv("2025-01-06", 11, 12), false},
		{"touching is not overlap", iv("2025-01-06", 8, 10), iv("2025-01-06", 10, 12), false},
		{"partial", iv("2025-01-06", 8, 11), iv("2025-01-06", 10, 12), true},
		{"nested", iv("2025-01-06", 8, 15), iv("2025-01-06", 9, 10), true},
		{"identical", iv("2025-01-06", 8, 9), iv("2025-01-06", 8, 9), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Overlaps(tc.a, tc.b))
			assert.Equal(t, tc.want, Overlaps(tc.b, tc.a))
		})
	}
}

func TestContains(t *testing.T) {
	outer := iv("2025-01-06", 8, 15)
	assert.True(t, Contains(outer, iv("2025-01-06", 8, 15)))
	assert.True(t, Contains(outer, iv("2025-01-06", 9, 11)))
	assert.False(t, Contains(outer, iv("2025-01-06", 7, 9)))
	assert.False(t, Contains(outer, iv("2025-01-06", 14, 16)))
}

func TestHoursHelpers(t *testing.T) {
	assert.Equal(t, 2.5, HoursBetween(at("2025-01-06", 8, 0), at("2025-01-06", 10, 30)))
	assert.Equal(t, 90*time.Minute, HoursToDuration(1.5))
	assert.Equal(t, 2*time.Hour, HoursToDuration(2.0002))
	assert.Equal(t, 2*time.Hour+18*time.Minute, HoursToDuration(2.3))
	assert.Equal(t, 20*time.Minute, HoursToDuration(1.0/3))
	assert.Equal(t, 5.0, TotalHours([]Interval{iv("2025-01-06", 8, 11), iv("2025-01-06", 12, 14)}))
	assert.False(t, Interval{Start: at("2025-01-06", 8, 0), End: at("2025-01-06", 8, 0)}.Valid())
}
