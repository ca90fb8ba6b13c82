package scheduler

import (
	"context"
	"sync/atomic"
	"time"
)

// Task is the record of one spawned unit of work. It is owned by the
// Scheduler; callers only see it through a TaskHandle.
type Task struct {
	id    ID
	body  Body
	phase atomic.Int32

	// Loop-only until done is closed, read-only after.
	spawned  time.Time
	started  time.Time
	finished time.Time
	result   Result
	waiters  []func()

	done chan struct{}
}

func (t *Task) Phase() Phase {
	return Phase(t.phase.Load())
}

// start runs the body up to its first suspension point.
func (s *Scheduler) start(t *Task) {
	t.phase.Store(int32(PhaseRunning))
	t.started = s.clock.Now()
	body := t.body
	t.body = nil
	if body == nil {
		s.finish(t, nil, ErrNilBody)
		return
	}

	var settled atomic.Bool
	settle := func(values Values, err error) bool {
		if !settled.CompareAndSwap(false, true) {
			return false
		}
		s.Post(func() { s.finish(t, values, err) })
		return true
	}
	safeRun(nil, "task", func(r interface{}) {
		if !settle(nil, panicError(r)) {
			s.log.Error("task %d panicked after completion: %v", t.id, r)
		}
	}, func() {
		body(func(values Values, err error) { settle(values, err) })
	})
}

// finish stores the result and releases everything waiting on it.
func (s *Scheduler) finish(t *Task, values Values, err error) {
	if err != nil {
		values = nil
	} else if values == nil {
		values = Values{}
	}
	t.result = Result{Values: values, Err: err}
	t.finished = s.clock.Now()
	t.phase.Store(int32(PhaseCompleted))

	s.mu.Lock()
	delete(s.tasks, t.id)
	s.completed++
	s.mu.Unlock()

	close(t.done)
	waiters := t.waiters
	t.waiters = nil
	for _, w := range waiters {
		safeRun(s.log, "await", nil, w)
	}

	s.log.Debug("task %d finished in %s", t.id, t.finished.Sub(t.started))
	s.emit(Event{
		Kind:     EventTaskFinished,
		ID:       t.id,
		Phase:    PhaseCompleted,
		Err:      err,
		Spawned:  t.spawned,
		Started:  t.started,
		Finished: t.finished,
	})
}

const (
	handleUnawaited int32 = iota
	handleAwaiting
	handleAwaited
)

// TaskHandle is the consume-once capability to a task's result.
// The first await that completes takes the result; every await after it,
// or concurrent with a pending one, fails with ErrAlreadyAwaited.
type TaskHandle struct {
	s     *Scheduler
	t     *Task
	state atomic.Int32
}

func (h *TaskHandle) ID() ID {
	return h.t.id
}

func (h *TaskHandle) Phase() Phase {
	return h.t.Phase()
}

// Consumed reports whether the result has been handed out.
func (h *TaskHandle) Consumed() bool {
	return h.state.Load() == handleAwaited
}

// Await blocks until the task completes and returns its values or its
// failure as the body reported it. It must not be called from the loop
// goroutine; bodies use AwaitFunc.
//
// If ctx ends first the handle is left unawaited and ctx.Err() returned.
func (h *TaskHandle) Await(ctx context.Context) (Values, error) {
	if !h.state.CompareAndSwap(handleUnawaited, handleAwaiting) {
		return nil, ErrAlreadyAwaited
	}
	select {
	case <-h.t.done:
		return h.take()
	case <-ctx.Done():
		return h.release(ctx.Err())
	case <-h.s.exited:
		return h.release(ErrStopped)
	}
}

// release gives the claim back unless the task completed meanwhile.
func (h *TaskHandle) release(err error) (Values, error) {
	select {
	case <-h.t.done:
		return h.take()
	default:
	}
	h.state.Store(handleUnawaited)
	return nil, err
}

func (h *TaskHandle) take() (Values, error) {
	h.state.Store(handleAwaited)
	return h.t.result.Values, h.t.result.Err
}

// AwaitFunc is the non-blocking await used from the loop goroutine: cb runs
// on the loop once the task has completed. Misuse is reported synchronously.
func (h *TaskHandle) AwaitFunc(cb func(Values, error)) error {
	if !h.state.CompareAndSwap(handleUnawaited, handleAwaiting) {
		return ErrAlreadyAwaited
	}
	deliver := func() {
		cb(h.take())
	}
	ok := h.s.Post(func() {
		if h.t.Phase() == PhaseCompleted {
			deliver()
			return
		}
		h.t.waiters = append(h.t.waiters, deliver)
	})
	if !ok {
		h.state.Store(handleUnawaited)
		return ErrStopped
	}
	return nil
}
