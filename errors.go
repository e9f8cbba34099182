package snowflake

import (
	"errors"
	"fmt"
)

var (
	// ErrClockRegression matches every *ClockRegressionError via errors.Is.
	ErrClockRegression = errors.New("snowflake: clock moved backwards")

	// ErrLockUnavailable wraps failures to enter the critical section.
	ErrLockUnavailable = errors.New("snowflake: critical section unavailable")
)

// ClockRegressionError reports a clock reading earlier than the last mint.
// No ID was produced and the generator state is unchanged.
type ClockRegressionError struct {
	Last int64 // last recorded mint time, Unix ms
	Now  int64 // offending clock reading, Unix ms
}

func (e *ClockRegressionError) Error() string {
	return fmt.Sprintf("snowflake: clock moved backwards: now %d < last %d (%dms)",
		e.Now, e.Last, e.Last-e.Now)
}

func (e *ClockRegressionError) Is(target error) bool {
	return target == ErrClockRegression
}
