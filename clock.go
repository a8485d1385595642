package sessiontoken

import "time"

// Clock supplies the current time for expiry evaluation.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to the Clock interface.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time {
	return f()
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now implements Clock.
func (SystemClock) Now() time.Time {
	return time.Now()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func shiftHours(t time.Time, hours int) time.Time {
	return t.Add(time.Duration(hours) * time.Hour)
}

// expiresAt returns the instant after which a token issued at ts is no longer valid.
func expiresAt(ts Timestamp, limitHours int) (time.Time, bool) {
	ms, ok := ts.Millis()
	if !ok {
		return time.Time{}, false
	}
	return shiftHours(fromMillis(ms), limitHours), true
}

// expired is fail-closed: an invalid timestamp is always expired.
func expired(clock Clock, ts Timestamp, limitHours int) bool {
	boundary, ok := expiresAt(ts, limitHours)
	if !ok {
		return true
	}
	return !boundary.After(clock.Now())
}
