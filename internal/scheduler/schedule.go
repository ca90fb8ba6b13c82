package scheduler

import (
	"fmt"
	"strings"
	"time"

	"github.com/adhocore/gronx"
)

// Schedule computes the next tick of an interval strictly after now.
// A zero time means the schedule has no further ticks.
type Schedule interface {
	Next(base, now time.Time) time.Time
}

// Every is a fixed-rate schedule: ticks are aligned to base+K*period and
// missed ticks are never caught up.
type Every time.Duration

func (e Every) Next(base, now time.Time) time.Time {
	return nextTickAfter(base, time.Duration(e), now)
}

func (e Every) String() string {
	return "every " + time.Duration(e).String()
}

// cronSchedule fires on the occurrences of a 5-field cron expression.
type cronSchedule struct {
	expr string
}

func (c cronSchedule) Next(_, now time.Time) time.Time {
	next, err := nextCronOccurrence(c.expr, now)
	if err != nil {
		return time.Time{}
	}
	return next
}

func (c cronSchedule) String() string {
	return "cron " + c.expr
}

// ParseCron validates a cron expression and returns its Schedule.
// Enforces exactly 5 fields (minute hour day-of-month month day-of-week).
func ParseCron(expr string) (Schedule, error) {
	// gronx.IsValid also accepts 6-field (with seconds) expressions.
	if len(strings.Fields(expr)) != 5 || !gronx.IsValid(expr) {
		return nil, fmt.Errorf("%w: %q, expected 5-field format (minute hour day-of-month month day-of-week)", ErrInvalidSchedule, expr)
	}
	return cronSchedule{expr: expr}, nil
}

// nextTickAfter returns the first tick strictly after now, aligned to
// base+K*interval with K>=1.
func nextTickAfter(base time.Time, interval time.Duration, now time.Time) time.Time {
	if interval <= 0 {
		return time.Time{}
	}
	if now.Before(base) {
		return base.Add(interval)
	}
	k := int64(now.Sub(base)/interval) + 1
	return base.Add(time.Duration(k) * interval)
}

// nextCronOccurrence returns the next time the cron expression fires strictly
// after start. Uses gronx.NextTickAfter with inclRefTime=false.
func nextCronOccurrence(expr string, start time.Time) (time.Time, error) {
	return gronx.NextTickAfter(expr, start, false)
}
