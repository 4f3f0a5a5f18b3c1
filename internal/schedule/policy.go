package schedule

import (
	"fmt"
	"time"
)

// Policy captures the facility's admission rules for new sessions: the
// working hours of the reading room and how far ahead a session may be
// planned. A Policy is immutable once constructed and is injected into
// the Manager rather than read from process-wide state.
type Policy struct {
	Open        TimeOfDay // reading room opens (time of day)
	Close       TimeOfDay // reading room closes (time of day)
	MinLeadDays int       // earliest allowed start, days from now
	MaxLeadDays int       // latest allowed start, days from now
}

// Validate runs the stateless admission checks against a proposed
// interval, short-circuiting on the first failure. now is passed in so
// the checks stay deterministic under test.
//
// Order of checks:
//  1. start must be strictly before end.
//  2. start must fall within [now+MinLeadDays, now+MaxLeadDays].
//  3. the interval's clock times must lie within working hours.
func (p Policy) Validate(now, start, end time.Time) error {
	if !start.Before(end) {
		return fmt.Errorf("%w: start %s is not before end %s",
			ErrInvalidInterval, start.Format(time.RFC3339), end.Format(time.RFC3339))
	}

	earliest := now.AddDate(0, 0, p.MinLeadDays)
	latest := now.AddDate(0, 0, p.MaxLeadDays)
	if start.Before(earliest) || start.After(latest) {
		return fmt.Errorf("%w: sessions may be planned from %s to %s",
			ErrOutsideLeadWindow,
			earliest.Format("2006-01-02"), latest.Format("2006-01-02"))
	}

	startClock := TimeOfDayOf(start)
	endClock := TimeOfDayOf(end)
	if startClock.Before(p.Open) || startClock.After(p.Close) || endClock.After(p.Close) {
		return fmt.Errorf("%w: the reading room is open from %s to %s",
			ErrOutsideOperatingHours, p.Open, p.Close)
	}
	return nil
}
