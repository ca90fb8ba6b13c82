package scheduler

import "time"

// ID identifies a task or interval. IDs are never reused within one
// Scheduler.
type ID uint64

// Values is the ordered list of values a body produced.
type Values []any

// Done reports the completion of a body. Only the first call counts; later
// calls are ignored. Done may be called from any goroutine.
type Done func(values Values, err error)

// Body is one unit of work. It is invoked exactly once per run on the loop
// goroutine and must eventually call done, either before returning or later
// from a resumed continuation.
type Body func(done Done)

// Result is the outcome of a completed task: either Values or Err.
type Result struct {
	Values Values
	Err    error
}

// Phase is the lifecycle phase of a task.
type Phase int32

const (
	PhasePending Phase = iota
	PhaseRunning
	PhaseCompleted
)

func (p Phase) String() string {
	switch p {
	case PhasePending:
		return "pending"
	case PhaseRunning:
		return "running"
	case PhaseCompleted:
		return "completed"
	}
	return "unknown"
}

// EventKind names a scheduler lifecycle event delivered to a Hook.
type EventKind string

const (
	EventTaskFinished      EventKind = "task_finished"
	EventIntervalFired     EventKind = "interval_fired"
	EventIntervalFailed    EventKind = "interval_failed"
	EventIntervalCancelled EventKind = "interval_cancelled"
)

// Event describes a finished task or an interval firing.
// For interval events Spawned is the interval's creation time and Started/
// Finished bound the firing.
type Event struct {
	Kind     EventKind
	ID       ID
	Phase    Phase
	Err      error
	Spawned  time.Time
	Started  time.Time
	Finished time.Time
}

// Hook observes scheduler events. It is always called on the loop
// goroutine, so it must not block.
type Hook func(Event)

// Stats is a point-in-time snapshot of the scheduler registry.
type Stats struct {
	LiveTasks       int
	CompletedTasks  uint64
	ActiveIntervals int
	PendingWakeups  int
	QueuedJobs      int
}
