package scheduler

import (
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// Interval is the record of a recurring body. It moves one way from active
// to cancelled; only the loop goroutine reads the fields below cancelled.
type Interval struct {
	id        ID
	schedule  Schedule
	body      Body
	base      time.Time
	cancelled atomic.Bool
	fires     atomic.Uint64

	firing     bool
	retired    bool
	started    time.Time
	limiter    *rate.Limiter
	suppressed int
}

func newReportLimiter(every time.Duration, burst int) *rate.Limiter {
	if every <= 0 {
		return rate.NewLimiter(rate.Inf, burst)
	}
	return rate.NewLimiter(rate.Every(every), burst)
}

// arm registers the wakeup for the first tick strictly after now.
func (s *Scheduler) arm(iv *Interval, now time.Time) {
	if iv.cancelled.Load() {
		s.retire(iv)
		return
	}
	next := iv.schedule.Next(iv.base, now)
	if next.IsZero() {
		s.log.Warning("interval %d: schedule has no further ticks", iv.id)
		iv.cancelled.Store(true)
		s.retire(iv)
		return
	}
	s.delayUntil(next, iv.id, func() { s.fire(iv) })
}

// fire runs one firing unless cancellation was observed first.
func (s *Scheduler) fire(iv *Interval) {
	if iv.cancelled.Load() {
		s.retire(iv)
		return
	}
	iv.firing = true
	iv.started = s.clock.Now()
	n := iv.fires.Add(1)

	if iv.body == nil {
		s.fired(iv, n, ErrNilBody)
		return
	}

	var settled atomic.Bool
	settle := func(err error) bool {
		if !settled.CompareAndSwap(false, true) {
			return false
		}
		s.Post(func() { s.fired(iv, n, err) })
		return true
	}
	safeRun(nil, "interval", func(r interface{}) {
		if !settle(panicError(r)) {
			s.log.Error("interval %d: firing %d panicked after completion: %v", iv.id, n, r)
		}
	}, func() {
		iv.body(func(_ Values, err error) { settle(err) })
	})
}

// fired ends firing n and either re-arms or retires the interval.
func (s *Scheduler) fired(iv *Interval, n uint64, err error) {
	iv.firing = false
	now := s.clock.Now()
	ev := Event{
		Kind:     EventIntervalFired,
		ID:       iv.id,
		Err:      err,
		Spawned:  iv.base,
		Started:  iv.started,
		Finished: now,
	}
	if err != nil {
		ev.Kind = EventIntervalFailed
		s.report(iv, n, err)
	}
	s.emit(ev)

	if iv.cancelled.Load() {
		s.retire(iv)
		return
	}
	s.arm(iv, now)
}

// report sends a firing failure to the diagnostic sink, rate limited per
// interval.
func (s *Scheduler) report(iv *Interval, n uint64, err error) {
	if !iv.limiter.Allow() {
		iv.suppressed++
		return
	}
	if iv.suppressed > 0 {
		s.log.Warning("interval %d: %d failure reports suppressed", iv.id, iv.suppressed)
		iv.suppressed = 0
	}
	s.log.Error("interval %d: firing %d failed: %v", iv.id, n, err)
}

// retire removes a cancelled interval from the registry. A firing in
// progress is left to finish; fired retires the interval afterwards.
func (s *Scheduler) retire(iv *Interval) {
	if iv.firing || iv.retired {
		return
	}
	iv.retired = true
	s.mu.Lock()
	heapRemoveByOwner(&s.wakeups, iv.id)
	delete(s.intervals, iv.id)
	s.mu.Unlock()
	s.emit(Event{
		Kind:     EventIntervalCancelled,
		ID:       iv.id,
		Spawned:  iv.base,
		Finished: s.clock.Now(),
	})
}

// IntervalHandle exposes cancellation of an interval. It has no result and
// therefore no consumed state.
type IntervalHandle struct {
	s  *Scheduler
	iv *Interval
}

func (h *IntervalHandle) ID() ID {
	return h.iv.id
}

// Cancel stops future firings. It returns immediately, does not wait for a
// firing in progress and is a no-op when already cancelled.
func (h *IntervalHandle) Cancel() {
	if !h.iv.cancelled.CompareAndSwap(false, true) {
		return
	}
	h.s.Post(func() { h.s.retire(h.iv) })
}

func (h *IntervalHandle) Cancelled() bool {
	return h.iv.cancelled.Load()
}

// Fires returns how many firings have started.
func (h *IntervalHandle) Fires() uint64 {
	return h.iv.fires.Load()
}
