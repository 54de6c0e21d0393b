package clock

import "time"

// Day is the length of one scheduling day. It is a fixed 86,400 seconds;
// calendar days and daylight-saving shifts are not taken into account.
const Day = 24 * time.Hour

// Clock returns the current time. Code that needs "now" takes a Clock
// instead of calling time.Now so tests can pin it.
type Clock func() time.Time

// System returns a Clock reading the wall clock in UTC.
func System() Clock {
	return func() time.Time {
		return time.Now().UTC()
	}
}

// Fixed returns a Clock that always reports t.
func Fixed(t time.Time) Clock {
	return func() time.Time {
		return t
	}
}

// OrSystem returns c, or the system clock when c is nil.
func OrSystem(c Clock) Clock {
	if c == nil {
		return System()
	}
	return c
}

// ToTimestamp converts t to unix seconds.
func ToTimestamp(t time.Time) int64 {
	return t.Unix()
}

// FromTimestamp converts unix seconds to a UTC time.
func FromTimestamp(ts int64) time.Time {
	return time.Unix(ts, 0).UTC()
}
