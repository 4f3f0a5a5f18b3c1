// Package schedule implements the reservation scheduling engine: interval
// arithmetic, admission policy checks, capacity conflict detection and the
// hourly occupancy report. It holds all of the business invariants of the
// reading room; persistence and HTTP concerns live elsewhere and are
// consumed through the interfaces declared in manager.go.
package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimeOfDay is a clock time without a date, used for the facility's
// operating hours and for comparing a session's wall-clock position
// against them. The date component of session timestamps is ignored
// wherever a TimeOfDay is involved.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses a value in "HH:MM" form (e.g. "09:00").
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return TimeOfDay{}, fmt.Errorf("invalid time of day %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return TimeOfDay{}, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return TimeOfDay{}, fmt.Errorf("invalid minute in %q", s)
	}
	return TimeOfDay{Hour: h, Minute: m}, nil
}

// TimeOfDayOf extracts the clock-time portion of a timestamp.
func TimeOfDayOf(t time.Time) TimeOfDay {
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}
}

// minutes returns the time of day as minutes since midnight, giving a
// single comparable scalar.
func (t TimeOfDay) minutes() int { return t.Hour*60 + t.Minute }

// Before reports whether t is strictly earlier in the day than other.
func (t TimeOfDay) Before(other TimeOfDay) bool { return t.minutes() < other.minutes() }

// After reports whether t is strictly later in the day than other.
func (t TimeOfDay) After(other TimeOfDay) bool { return t.minutes() > other.minutes() }

// String renders the time of day as "HH:MM".
func (t TimeOfDay) String() string { return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute) }

// TimeRange is a pair of rendered clock times. It serves two roles, both
// inherited from the reserved-times queries: a one-hour occupancy bucket
// (hours as two-digit strings, e.g. {"09","10"}) and a session's reserved
// span on a given date (e.g. {"09:30","11:00"}). Equal ranges compare
// equal by value, which is what bucket deduplication relies on.
type TimeRange struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// Key returns the display identity of an hour bucket, "HH-HH".
func (r TimeRange) Key() string { return r.StartTime + "-" + r.EndTime }

// Overlap reports whether the two intervals share any instant. Bounds are
// inclusive on both ends, matching the BETWEEN comparison used by the
// conflict-count queries: a session ending at 11:00 conflicts with one
// starting at 11:00. The predicate is the disjunction of a's start inside
// b, a's end inside b, and b's start inside a.
func Overlap(aStart, aEnd, bStart, bEnd time.Time) bool {
	return between(aStart, bStart, bEnd) ||
		between(aEnd, bStart, bEnd) ||
		between(bStart, aStart, aEnd)
}

// between reports lo <= t <= hi.
func between(t, lo, hi time.Time) bool {
	return !t.Before(lo) && !t.After(hi)
}

// HourBuckets enumerates the consecutive one-hour buckets spanned by the
// time-of-day range [start, end]. The first bucket begins at start's hour;
// buckets advance one hour at a time and stop once the bucket's start hour
// reaches end's hour, or passes it when end has a non-zero minute part.
// The result is a pure function of its inputs: re-invoking with the same
// range yields the same slice.
func HourBuckets(start, end TimeOfDay) []TimeRange {
	var buckets []TimeRange
	for h := start.Hour; h < end.Hour || (end.Minute != 0 && h <= end.Hour); h++ {
		// The last bucket of the day renders as "23-24", keeping bucket
		// keys lexically ordered.
		buckets = append(buckets, TimeRange{
			StartTime: fmt.Sprintf("%02d", h),
			EndTime:   fmt.Sprintf("%02d", h+1),
		})
	}
	return buckets
}
