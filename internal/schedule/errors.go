// errors.go defines the sentinel error values returned by the scheduling
// engine. Handlers distinguish failure classes with errors.Is and map them
// onto HTTP status codes; detailed messages are attached at the point of
// failure by wrapping these sentinels with fmt.Errorf and %w.
package schedule

import "errors"

// ErrInvalidInterval is returned when a session's start time is not
// strictly before its end time.
var ErrInvalidInterval = errors.New("invalid session interval")

// ErrOutsideLeadWindow is returned when a session's start does not fall
// within the configured planning window relative to now.
var ErrOutsideLeadWindow = errors.New("start time outside planning window")

// ErrOutsideOperatingHours is returned when a session's interval is not
// fully contained within the facility's working hours.
var ErrOutsideOperatingHours = errors.New("outside working hours")

// ErrUserScheduleConflict is returned when the user already holds a
// session overlapping the requested interval.
var ErrUserScheduleConflict = errors.New("user already has a session in this interval")

// ErrBookUnavailable is returned when every copy of a requested book is
// taken for some instant of the requested interval.
var ErrBookUnavailable = errors.New("book unavailable in this interval")

// ErrNotFound is returned when a referenced user, book or session does
// not exist.
var ErrNotFound = errors.New("not found")

// ErrStorage wraps persistence-layer failures. They are fatal for the
// current request and never retried internally.
var ErrStorage = errors.New("storage failure")
