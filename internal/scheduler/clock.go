package scheduler

import (
	"math"
	"time"
)

// Clock supplies time readings to the scheduler.
type Clock interface {
	Now() time.Time
}

// MonotonicClock anchors the wall clock once and advances it with the
// monotonic reading, so Now never goes backwards within a process run even
// if the system clock is stepped.
type MonotonicClock struct {
	anchor time.Time
}

func NewMonotonicClock() *MonotonicClock {
	return &MonotonicClock{anchor: time.Now()}
}

func (c *MonotonicClock) Now() time.Time {
	return c.anchor.Add(time.Since(c.anchor))
}

// EpochSeconds converts t to fractional seconds since the Unix epoch.
func EpochSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

// maxSeconds is the largest number of seconds representable as a Duration.
const maxSeconds = float64(math.MaxInt64) / float64(time.Second)

// Seconds converts a fractional number of seconds to a Duration, rounding
// to the nearest nanosecond and saturating at the Duration range.
func Seconds(s float64) time.Duration {
	switch {
	case s >= maxSeconds:
		return time.Duration(math.MaxInt64)
	case s <= -maxSeconds:
		return time.Duration(math.MinInt64)
	}
	return time.Duration(math.Round(s * float64(time.Second)))
}
