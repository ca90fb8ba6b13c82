package scheduler

import "errors"

var (
	// ErrInvalidPeriod is returned synchronously by SpawnInterval when the
	// period is not positive. Nothing is registered in that case.
	ErrInvalidPeriod = errors.New("scheduler: interval period must be positive")
	// ErrInvalidSchedule is returned synchronously by SpawnCron for a
	// malformed cron expression.
	ErrInvalidSchedule = errors.New("scheduler: invalid cron schedule")
	// ErrAlreadyAwaited is returned by every await after the first one on
	// the same handle.
	ErrAlreadyAwaited = errors.New("scheduler: task already awaited")
	// ErrStopped is returned when the scheduler loop is no longer running.
	ErrStopped = errors.New("scheduler: stopped")
	// ErrNilBody is stored as the failure of a task spawned without a body.
	ErrNilBody = errors.New("scheduler: nil task body")
	// ErrBodyPanicked wraps the value recovered from a panicking body.
	ErrBodyPanicked = errors.New("scheduler: body panicked")
)
