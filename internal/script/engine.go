package script

import (
	"context"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dop251/goja"
	"github.com/hashicorp/go-multierror"
	"github.com/spf13/afero"

	"github.com/warpdl/warpjs/internal/journal"
	"github.com/warpdl/warpjs/internal/scheduler"
	"github.com/warpdl/warpjs/pkg/logger"
)

// Options configures an Engine. The zero value runs scripts from the
// current directory with a discarding logger.
type Options struct {
	Logger logger.Logger
	// Fs holds the script sources. Defaults to the OS filesystem.
	Fs afero.Fs
	// Root confines script and module loading to a directory of Fs.
	Root string
	// Stdout receives print() output. Defaults to os.Stdout.
	Stdout io.Writer

	MaxSleep    time.Duration
	ReportEvery time.Duration
	ReportBurst int

	// Journal, if set, records scheduler events and is closed with the engine.
	Journal *journal.Journal
	Hooks   []scheduler.Hook
	// Closers are closed, in order, after the journal.
	Closers []io.Closer
}

type Engine struct {
	l       logger.Logger
	fs      afero.Fs
	sched   *scheduler.Scheduler
	rt      *Runtime
	journal *journal.Journal
	closers []io.Closer

	closeOnce sync.Once
	closeErr  error
}

func NewEngine(ctx context.Context, opts Options) (*Engine, error) {
	l := opts.Logger
	if l == nil {
		l = logger.NewNopLogger()
	}
	fs, root := opts.Fs, opts.Root
	if fs == nil {
		fs = afero.NewOsFs()
		if root == "" {
			wd, err := os.Getwd()
			if err != nil {
				return nil, err
			}
			root = wd
		}
	}
	if root != "" {
		fs = afero.NewBasePathFs(fs, root)
	}

	schedOpts := []scheduler.Option{
		scheduler.WithLogger(l),
		scheduler.WithMaxSleep(opts.MaxSleep),
	}
	if opts.ReportEvery != 0 || opts.ReportBurst != 0 {
		schedOpts = append(schedOpts, scheduler.WithReportLimit(opts.ReportEvery, opts.ReportBurst))
	}
	if opts.Journal != nil {
		schedOpts = append(schedOpts, scheduler.WithHook(opts.Journal.Hook()))
	}
	for _, h := range opts.Hooks {
		schedOpts = append(schedOpts, scheduler.WithHook(h))
	}
	sched := scheduler.New(ctx, schedOpts...)

	rt, err := NewRuntime(sched, fs, l, opts.Stdout)
	if err != nil {
		sched.Stop()
		return nil, err
	}
	l.Debug("engine started")
	return &Engine{
		l:       l,
		fs:      fs,
		sched:   sched,
		rt:      rt,
		journal: opts.Journal,
		closers: opts.Closers,
	}, nil
}

// States of one RunString evaluation.
const (
	evalQueued int32 = iota
	evalRunning
	evalDone
	evalAbandoned
)

type outcome struct {
	v   any
	err error
}

// RunString evaluates src on the scheduler loop. If the completion value
// is a promise (e.g. an async IIFE) it waits for it to settle. The result
// is exported to a Go value; a script failure is returned as *ThrownError.
func (e *Engine) RunString(ctx context.Context, name, src string) (any, error) {
	ch := make(chan outcome, 1)
	deliver := func(values scheduler.Values, err error) {
		if err != nil {
			ch <- outcome{err: err}
			return
		}
		var v any
		if len(values) > 0 {
			if jv, ok := values[0].(goja.Value); ok {
				v = jv.Export()
			} else {
				v = values[0]
			}
		}
		ch <- outcome{v: v}
	}
	var state atomic.Int32
	posted := e.sched.Post(func() {
		if !state.CompareAndSwap(evalQueued, evalRunning) {
			return
		}
		v, err := e.rt.vm.RunScript(name, src)
		state.Store(evalDone)
		if err != nil {
			deliver(nil, newThrownError(err))
			return
		}
		e.rt.settle(v, deliver)
	})
	if !posted {
		return nil, ErrEngineClosed
	}

	select {
	case out := <-ch:
		return out.v, out.err
	case <-ctx.Done():
		if !state.CompareAndSwap(evalQueued, evalAbandoned) && state.Load() == evalRunning {
			e.rt.Interrupt(ctx.Err())
			e.sched.Post(e.rt.vm.ClearInterrupt)
		}
		return nil, ctx.Err()
	case <-e.sched.Exited():
		return nil, ErrEngineClosed
	}
}

// RunFile reads path from the engine filesystem and evaluates it.
func (e *Engine) RunFile(ctx context.Context, path string) (any, error) {
	b, err := afero.ReadFile(e.fs, path)
	if err != nil {
		return nil, err
	}
	return e.RunString(ctx, path, string(b))
}

// Wait blocks until every spawned task has finished and every interval has
// been cancelled.
func (e *Engine) Wait(ctx context.Context) error {
	return e.sched.Wait(ctx)
}

func (e *Engine) Stats() scheduler.Stats {
	return e.sched.Stats()
}

func (e *Engine) Scheduler() *scheduler.Scheduler {
	return e.sched
}

// Imported lists the module files loaded through require.
func (e *Engine) Imported() []string {
	return e.rt.Imported()
}

// Close interrupts running JS, stops the scheduler and closes the journal.
func (e *Engine) Close() error {
	e.closeOnce.Do(func() {
		var result *multierror.Error
		e.rt.Interrupt(ErrEngineClosed)
		e.sched.Stop()
		if e.journal != nil {
			if err := e.journal.Close(); err != nil {
				result = multierror.Append(result, err)
			}
		}
		for _, c := range e.closers {
			if err := c.Close(); err != nil {
				result = multierror.Append(result, err)
			}
		}
		if st := e.sched.Stats(); st.LiveTasks > 0 || st.ActiveIntervals > 0 {
			e.l.Debug("engine closed with %d live tasks and %d active intervals", st.LiveTasks, st.ActiveIntervals)
		}
		e.closeErr = result.ErrorOrNil()
	})
	return e.closeErr
}
