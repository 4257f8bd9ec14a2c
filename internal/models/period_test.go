package models

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func slot(start, end string) Period {
	return Period{StartTime: start, EndTime: end}
}

func TestPeriodOverlaps(t *testing.T) {
	cases := []struct {
		name string
		a, b Period
		want bool
	}{
		{"identical", slot("08:00", "09:00"), slot("08:00", "09:00"), true},
		{"nested", slot("08:00", "10:00"), slot("08:30", "09:00"), true},
		{"partial left", slot("08:00", "09:00"), slot("08:30", "09:30"), true},
		{"partial right", slot("08:30", "09:30"), slot("08:00", "09:00"), true},
		{"touching end to start", slot("08:00", "09:00"), slot("09:00", "10:00"), false},
		{"touching start to end", slot("09:00", "10:00"), slot("08:00", "09:00"), false},
		{"disjoint", slot("08:00", "09:00"), slot("10:00", "11:00"), false},
		{"midnight boundary", slot("00:00", "01:00"), slot("23:00", "23:59"), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.a.Overlaps(tc.b))
		})
	}
}

func TestPeriodOverlapsIsSymmetric(t *testing.T) {
	starts := []string{"07:00", "07:30", "08:00", "08:30", "09:00"}
	for _, aStart := range starts {
		for _, bStart := range starts {
			a := slot(aStart, addHour(aStart))
			b := slot(bStart, addHour(bStart))
			assert.Equal(t, a.Overlaps(b), b.Overlaps(a), "a=%v b=%v", a, b)
		}
	}
}

// The single inequality must agree with spelling out the three ways two
// ranges can intersect: b starts inside a, b ends inside a, or b covers a.
func TestPeriodOverlapsMatchesCaseAnalysis(t *testing.T) {
	times := []string{"08:00", "08:15", "08:30", "08:45", "09:00", "09:15"}
	for i, aStart := range times {
		for j := i + 1; j < len(times); j++ {
			for k, bStart := range times {
				for l := k + 1; l < len(times); l++ {
					a := slot(aStart, times[j])
					b := slot(bStart, times[l])

					startsInside := b.StartTime >= a.StartTime && b.StartTime < a.EndTime
					endsInside := b.EndTime > a.StartTime && b.EndTime <= a.EndTime
					covers := b.StartTime <= a.StartTime && b.EndTime >= a.EndTime

					assert.Equal(t, startsInside || endsInside || covers, a.Overlaps(b), "a=%v b=%v", a, b)
				}
			}
		}
	}
}

func TestDayOfWeekValid(t *testing.T) {
	for _, d := range []DayOfWeek{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday} {
		assert.True(t, d.Valid(), string(d))
	}
	assert.False(t, DayOfWeek("FUNDAY").Valid())
	assert.False(t, DayOfWeek("monday").Valid())
	assert.False(t, DayOfWeek("").Valid())
}

func TestValidClockTime(t *testing.T) {
	valid := []string{"00:00", "08:05", "12:30", "23:59"}
	for _, s := range valid {
		assert.True(t, ValidClockTime(s), s)
	}
	invalid := []string{"24:00", "8:00", "08:60", "0800", "08:00:00", ""}
	for _, s := range invalid {
		assert.False(t, ValidClockTime(s), s)
	}
}

func addHour(hhmm string) string {
	var h, m int
	fmt.Sscanf(hhmm, "%d:%d", &h, &m)
	return fmt.Sprintf("%02d:%02d", h+1, m)
}
