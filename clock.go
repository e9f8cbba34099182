package snowflake

import "time"

// Clock reports the current time in Unix milliseconds.
type Clock interface {
	Now() int64
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() int64

func (f ClockFunc) Now() int64 { return f() }

// SystemClock reads the wall clock.
var SystemClock Clock = ClockFunc(func() int64 { return time.Now().UnixMilli() })

// waitPast spins until c reports a millisecond strictly after last.
// The wait is expected to be well under a millisecond, so there is no sleep.
func waitPast(c Clock, last int64) int64 {
	now := c.Now()
	for now <= last {
		now = c.Now()
	}
	return now
}
