package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/warpdl/warpjs/pkg/logger"
)

const (
	defaultMaxSleep    = 60 * time.Second
	defaultReportEvery = time.Second
	defaultReportBurst = 5
)

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the diagnostic sink for interval failures and recovered
// panics. Task failures are never logged.
func WithLogger(l logger.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.log = l
		}
	}
}

// WithClock replaces the clock used for deadlines and Now.
func WithClock(c Clock) Option {
	return func(s *Scheduler) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithHook registers an observer for task and interval events.
// May be given more than once.
func WithHook(h Hook) Option {
	return func(s *Scheduler) {
		if h != nil {
			s.hooks = append(s.hooks, h)
		}
	}
}

// WithMaxSleep caps how long the loop sleeps before re-reading the clock.
func WithMaxSleep(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.maxSleep = d
		}
	}
}

// WithReportLimit bounds how often failures of one interval are logged:
// burst reports, then one per every. A non-positive every disables limiting.
func WithReportLimit(every time.Duration, burst int) Option {
	return func(s *Scheduler) {
		s.reportEvery = every
		if burst > 0 {
			s.reportBurst = burst
		}
	}
}

// Scheduler runs spawned tasks and intervals on a single loop goroutine.
// All methods are safe for concurrent use; bodies, resume callbacks and
// hooks only ever execute on the loop goroutine.
type Scheduler struct {
	log         logger.Logger
	clock       Clock
	hooks       []Hook
	maxSleep    time.Duration
	reportEvery time.Duration
	reportBurst int

	ctx    context.Context
	cancel context.CancelFunc
	exited chan struct{}
	signal chan struct{}

	nextID atomic.Uint64

	mu        sync.Mutex
	jobs      []func()
	wakeups   wakeupHeap
	seq       uint64
	tasks     map[ID]*Task
	intervals map[ID]*Interval
	completed uint64
	busy      bool
	stopped   bool
	idle      []chan struct{}
}

// New creates and starts a new Scheduler.
// The loop goroutine exits when ctx is cancelled or Stop is called.
func New(ctx context.Context, opts ...Option) *Scheduler {
	ctx, cancel := context.WithCancel(ctx)
	s := &Scheduler{
		log:         logger.NewNopLogger(),
		clock:       NewMonotonicClock(),
		maxSleep:    defaultMaxSleep,
		reportEvery: defaultReportEvery,
		reportBurst: defaultReportBurst,
		ctx:         ctx,
		cancel:      cancel,
		exited:      make(chan struct{}),
		signal:      make(chan struct{}, 1),
		tasks:       make(map[ID]*Task),
		intervals:   make(map[ID]*Interval),
		busy:        true,
	}
	for _, opt := range opts {
		opt(s)
	}
	go s.run()
	return s
}

// Now returns the scheduler clock reading.
func (s *Scheduler) Now() time.Time {
	return s.clock.Now()
}

// Post queues fn to run on the loop goroutine after the jobs already queued.
// Returns false if the scheduler has stopped; fn is then never run.
func (s *Scheduler) Post(fn func()) bool {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return false
	}
	s.jobs = append(s.jobs, fn)
	s.mu.Unlock()
	s.kick()
	return true
}

// Delay suspends the caller's continuation: resume runs on the loop
// goroutine no earlier than d from now. Any number of delays may be
// pending; each resumes on its own deadline.
func (s *Scheduler) Delay(d time.Duration, resume func()) {
	s.delayUntil(s.clock.Now().Add(d), 0, resume)
}

func (s *Scheduler) delayUntil(at time.Time, owner ID, fn func()) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.seq++
	heapPush(&s.wakeups, wakeup{at: at, seq: s.seq, owner: owner, fn: fn})
	s.mu.Unlock()
	s.kick()
}

// kick wakes the loop without blocking.
func (s *Scheduler) kick() {
	select {
	case s.signal <- struct{}{}:
	default:
	}
}

func (s *Scheduler) newID() ID {
	return ID(s.nextID.Add(1))
}

// Spawn registers a new pending task and queues its start. It returns
// immediately and never fails; a nil body fails on first execution.
func (s *Scheduler) Spawn(body Body) *TaskHandle {
	t := &Task{
		id:      s.newID(),
		body:    body,
		spawned: s.clock.Now(),
		done:    make(chan struct{}),
	}
	s.mu.Lock()
	s.tasks[t.id] = t
	s.mu.Unlock()
	s.Post(func() { s.start(t) })
	return &TaskHandle{s: s, t: t}
}

// SpawnInterval starts an interval firing body every period until it is
// cancelled. A non-positive period fails with ErrInvalidPeriod and nothing
// is registered.
func (s *Scheduler) SpawnInterval(period time.Duration, body Body) (*IntervalHandle, error) {
	if period <= 0 {
		return nil, ErrInvalidPeriod
	}
	return s.spawnSchedule(Every(period), body), nil
}

// SpawnCron starts an interval firing body on each occurrence of a
// 5-field cron expression.
func (s *Scheduler) SpawnCron(expr string, body Body) (*IntervalHandle, error) {
	sched, err := ParseCron(expr)
	if err != nil {
		return nil, err
	}
	return s.spawnSchedule(sched, body), nil
}

func (s *Scheduler) spawnSchedule(sched Schedule, body Body) *IntervalHandle {
	now := s.clock.Now()
	iv := &Interval{
		id:       s.newID(),
		schedule: sched,
		body:     body,
		base:     now,
		limiter:  newReportLimiter(s.reportEvery, s.reportBurst),
	}
	s.mu.Lock()
	s.intervals[iv.id] = iv
	s.mu.Unlock()
	s.Post(func() { s.arm(iv, now) })
	return &IntervalHandle{s: s, iv: iv}
}

// Cancel stops future firings of the interval behind h.
func (s *Scheduler) Cancel(h *IntervalHandle) {
	h.Cancel()
}

// Stats returns a snapshot of the registry.
func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		LiveTasks:       len(s.tasks),
		CompletedTasks:  s.completed,
		ActiveIntervals: len(s.intervals),
		PendingWakeups:  s.wakeups.Len(),
		QueuedJobs:      len(s.jobs),
	}
}

// Wait blocks until the scheduler is idle: no live tasks, no active
// intervals and nothing queued or pending. Returns ErrStopped if the loop
// exits first.
func (s *Scheduler) Wait(ctx context.Context) error {
	s.mu.Lock()
	if s.isIdleLocked() {
		s.mu.Unlock()
		return nil
	}
	ch := make(chan struct{})
	s.idle = append(s.idle, ch)
	s.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.exited:
		return ErrStopped
	}
}

// Stop cancels the loop and waits for it to exit. Safe to call more than
// once.
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.exited
}

// Exited is closed once the loop goroutine has exited.
func (s *Scheduler) Exited() <-chan struct{} {
	return s.exited
}

func (s *Scheduler) isIdleLocked() bool {
	return !s.busy && len(s.jobs) == 0 && s.wakeups.Len() == 0 &&
		len(s.tasks) == 0 && len(s.intervals) == 0
}

// run is the core scheduler goroutine implementing the active-object pattern.
// Each turn runs the wakeups that are due, then the jobs queued so far, then
// sleeps until the next deadline with a max-sleep cap so clock steps and
// system sleep are picked up.
func (s *Scheduler) run() {
	defer close(s.exited)

	timer := time.NewTimer(s.maxSleep)
	defer timer.Stop()

	for {
		s.runDue()
		s.runJobs()

		dur, ok := s.plan()
		var timerCh <-chan time.Time
		if ok {
			timer.Reset(dur)
			timerCh = timer.C
		} else {
			timer.Stop()
		}

		select {
		case <-s.ctx.Done():
			s.shutdown()
			return
		case <-s.signal:
		case <-timerCh:
		}

		s.mu.Lock()
		s.busy = true
		s.mu.Unlock()
	}
}

// runDue runs every wakeup whose deadline is not after the turn's start.
// Wakeups registered while running are left for a later turn.
func (s *Scheduler) runDue() {
	now := s.clock.Now()
	for {
		s.mu.Lock()
		if s.wakeups.Len() == 0 || s.wakeups[0].at.After(now) {
			s.mu.Unlock()
			return
		}
		w := heapPop(&s.wakeups)
		s.mu.Unlock()
		safeRun(s.log, "wakeup", nil, w.fn)
	}
}

// runJobs drains the jobs queued before the call in FIFO order.
func (s *Scheduler) runJobs() {
	s.mu.Lock()
	batch := s.jobs
	s.jobs = nil
	s.mu.Unlock()
	for _, fn := range batch {
		safeRun(s.log, "job", nil, fn)
	}
}

// plan ends a turn: it notifies idle waiters and returns how long to sleep.
// ok is false when there is nothing to wake up for.
func (s *Scheduler) plan() (dur time.Duration, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.busy = false
	if s.isIdleLocked() {
		for _, ch := range s.idle {
			close(ch)
		}
		s.idle = nil
	}
	if len(s.jobs) > 0 {
		return 0, true
	}
	if s.wakeups.Len() == 0 {
		return 0, false
	}
	dur = s.wakeups[0].at.Sub(s.clock.Now())
	if dur > s.maxSleep {
		dur = s.maxSleep
	}
	if dur < 0 {
		dur = 0
	}
	return dur, true
}

// shutdown drops everything still queued. Tasks that never completed stay
// pending; Go-side awaits on them observe ErrStopped.
func (s *Scheduler) shutdown() {
	s.mu.Lock()
	s.stopped = true
	s.jobs = nil
	s.wakeups = nil
	s.busy = false
	s.mu.Unlock()
}

func (s *Scheduler) emit(ev Event) {
	for _, h := range s.hooks {
		safeRun(s.log, "hook", nil, func() { h(ev) })
	}
}
