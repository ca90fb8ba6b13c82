package script

import (
	"fmt"
	"math"

	"github.com/dop251/goja"

	"github.com/warpdl/warpjs/internal/scheduler"
)

// spawn(fn, ...args) starts fn as a task and returns its handle.
func (r *Runtime) spawn(call goja.FunctionCall) goja.Value {
	fn := call.Argument(0)
	var args []goja.Value
	if len(call.Arguments) > 1 {
		// call.Arguments may alias the VM stack.
		args = append(args, call.Arguments[1:]...)
	}
	h := r.sched.Spawn(r.body(fn, args))
	return r.taskObject(h)
}

// spawn_interval(seconds, fn) fires fn every seconds until cancelled.
func (r *Runtime) spawnInterval(call goja.FunctionCall) goja.Value {
	secs, ok := toSeconds(call.Argument(0))
	if !ok {
		panic(r.vm.NewTypeError("spawn_interval: %v", ErrNotNumber))
	}
	if math.IsInf(secs, 0) {
		r.throw(fmt.Errorf("%w: %v", scheduler.ErrInvalidPeriod, secs))
	}
	h, err := r.sched.SpawnInterval(scheduler.Seconds(secs), r.body(call.Argument(1), nil))
	if err != nil {
		r.throw(err)
	}
	return r.intervalObject(h)
}

// spawn_cron(expr, fn) fires fn on every occurrence of a cron expression.
func (r *Runtime) spawnCron(call goja.FunctionCall) goja.Value {
	h, err := r.sched.SpawnCron(call.Argument(0).String(), r.body(call.Argument(1), nil))
	if err != nil {
		r.throw(err)
	}
	return r.intervalObject(h)
}

// sleep(seconds) returns a promise resolved once seconds have elapsed.
func (r *Runtime) sleep(call goja.FunctionCall) goja.Value {
	secs, ok := toSeconds(call.Argument(0))
	if !ok {
		panic(r.vm.NewTypeError("sleep: %v", ErrNotNumber))
	}
	promise, resolve, _ := r.vm.NewPromise()
	r.sched.Delay(scheduler.Seconds(secs), func() {
		_ = resolve(goja.Undefined())
	})
	return r.vm.ToValue(promise)
}

func (r *Runtime) now(goja.FunctionCall) goja.Value {
	return r.vm.ToValue(scheduler.EpochSeconds(r.sched.Now()))
}

func toSeconds(v goja.Value) (float64, bool) {
	if v == nil {
		return 0, false
	}
	switch n := v.Export().(type) {
	case int64:
		return float64(n), true
	case float64:
		return n, !math.IsNaN(n)
	}
	return 0, false
}

// body adapts a JS callable to a scheduler body. A plain return value v
// completes with [v] ([] for undefined); a returned promise completes when
// it settles. Throws and rejections become the failure.
func (r *Runtime) body(fn goja.Value, args []goja.Value) scheduler.Body {
	return func(done scheduler.Done) {
		callable, ok := goja.AssertFunction(fn)
		if !ok {
			done(nil, ErrNotFunction)
			return
		}
		v, err := callable(goja.Undefined(), args...)
		if err != nil {
			done(nil, newThrownError(err))
			return
		}
		r.settle(v, done)
	}
}

// settle reports v through done, waiting for it first if it is a promise.
func (r *Runtime) settle(v goja.Value, done scheduler.Done) {
	if v == nil {
		done(scheduler.Values{}, nil)
		return
	}
	p, ok := v.Export().(*goja.Promise)
	if !ok {
		done(valuesOf(v), nil)
		return
	}
	switch p.State() {
	case goja.PromiseStateFulfilled:
		done(valuesOf(p.Result()), nil)
		return
	case goja.PromiseStateRejected:
		done(nil, thrownValue(p.Result()))
		return
	}
	obj := v.ToObject(r.vm)
	then, ok := goja.AssertFunction(obj.Get("then"))
	if !ok {
		done(valuesOf(v), nil)
		return
	}
	onFulfilled := r.vm.ToValue(func(call goja.FunctionCall) goja.Value {
		done(valuesOf(call.Argument(0)), nil)
		return goja.Undefined()
	})
	onRejected := r.vm.ToValue(func(call goja.FunctionCall) goja.Value {
		done(nil, thrownValue(call.Argument(0)))
		return goja.Undefined()
	})
	if _, err := then(obj, onFulfilled, onRejected); err != nil {
		done(nil, newThrownError(err))
	}
}

func valuesOf(v goja.Value) scheduler.Values {
	if v == nil || goja.IsUndefined(v) {
		return scheduler.Values{}
	}
	return scheduler.Values{v}
}

// taskObject exposes a TaskHandle to scripts.
func (r *Runtime) taskObject(h *scheduler.TaskHandle) goja.Value {
	obj := r.vm.NewObject()
	_ = obj.Set("id", int64(h.ID()))
	_ = obj.Set("await", func(goja.FunctionCall) goja.Value {
		promise, resolve, reject := r.vm.NewPromise()
		err := h.AwaitFunc(func(values scheduler.Values, err error) {
			if err != nil {
				_ = reject(r.errorValue(err))
				return
			}
			_ = resolve(r.vm.NewArray(values...))
		})
		if err != nil {
			r.throw(err)
		}
		return r.vm.ToValue(promise)
	})
	_ = obj.Set("status", func(goja.FunctionCall) goja.Value {
		return r.vm.ToValue(h.Phase().String())
	})
	return obj
}

// intervalObject exposes an IntervalHandle to scripts.
func (r *Runtime) intervalObject(h *scheduler.IntervalHandle) goja.Value {
	obj := r.vm.NewObject()
	_ = obj.Set("id", int64(h.ID()))
	_ = obj.Set("cancel", func(goja.FunctionCall) goja.Value {
		h.Cancel()
		return goja.Undefined()
	})
	_ = obj.Set("cancelled", func(goja.FunctionCall) goja.Value {
		return r.vm.ToValue(h.Cancelled())
	})
	_ = obj.Set("fires", func(goja.FunctionCall) goja.Value {
		return r.vm.ToValue(int64(h.Fires()))
	})
	return obj
}
