// Package script binds the cooperative scheduler into a goja runtime.
// The runtime is only ever touched from the scheduler loop goroutine:
// natives, task bodies, promise reactions and handle callbacks all run
// there, so scripts can spawn many tasks over one non-thread-safe VM.
package script

import (
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"sync"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/console"
	requirePkg "github.com/dop251/goja_nodejs/require"
	"github.com/spf13/afero"

	"github.com/warpdl/warpjs/internal/scheduler"
	"github.com/warpdl/warpjs/pkg/logger"
)

type Runtime struct {
	*requirePkg.RequireModule
	vm    *goja.Runtime
	sched *scheduler.Scheduler
	l     logger.Logger
	out   io.Writer
	// imported records every source file loaded through require.
	mu       sync.Mutex
	imported map[string]struct{}
}

// NewRuntime creates a goja runtime wired to sched. Module sources are
// read from fs, which should already be rooted at the script root.
// It must be called before sched runs anything that touches the runtime.
func NewRuntime(sched *scheduler.Scheduler, fs afero.Fs, l logger.Logger, out io.Writer) (*Runtime, error) {
	if out == nil {
		out = os.Stdout
	}
	r := &Runtime{
		vm:       goja.New(),
		sched:    sched,
		l:        l,
		out:      out,
		imported: make(map[string]struct{}),
	}
	registry := requirePkg.NewRegistry(requirePkg.WithLoader(r.loader(fs)))
	registry.RegisterNativeModule(console.ModuleName, console.RequireWithPrinter(logger.NewConsolePrinter(l)))
	r.RequireModule = registry.Enable(r.vm)
	console.Enable(r.vm)

	natives := map[string]func(goja.FunctionCall) goja.Value{
		"print":          r.print,
		"spawn":          r.spawn,
		"spawn_interval": r.spawnInterval,
		"spawn_cron":     r.spawnCron,
		"sleep":          r.sleep,
		"now":            r.now,
	}
	for name, fn := range natives {
		if err := r.vm.Set(name, fn); err != nil {
			return nil, fmt.Errorf("set %s: %w", name, err)
		}
	}
	return r, nil
}

func (r *Runtime) print(call goja.FunctionCall) goja.Value {
	for i, v := range call.Arguments {
		if i > 0 {
			fmt.Fprint(r.out, " ")
		}
		fmt.Fprint(r.out, v.String())
	}
	fmt.Fprint(r.out, "\n")
	return goja.Undefined()
}

// loader reads require()d sources from fs. Directories and missing files
// report ModuleFileDoesNotExistError so resolution can try the next
// candidate (name.js, name/index.js, ...).
func (r *Runtime) loader(fs afero.Fs) requirePkg.SourceLoader {
	return func(p string) ([]byte, error) {
		name := path.Clean("/" + p)
		fi, err := fs.Stat(name)
		if err != nil || fi.IsDir() {
			return nil, requirePkg.ModuleFileDoesNotExistError
		}
		b, err := afero.ReadFile(fs, name)
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		r.imported[name] = struct{}{}
		r.mu.Unlock()
		r.l.Debug("require: loaded %s", name)
		return b, nil
	}
}

// Imported returns the sorted list of module files loaded so far.
func (r *Runtime) Imported() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.imported))
	for name := range r.imported {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Interrupt aborts the JS currently executing on the loop, if any.
// Safe to call from any goroutine.
func (r *Runtime) Interrupt(v interface{}) {
	r.vm.Interrupt(v)
}

// throw raises err as a JS exception from inside a native.
func (r *Runtime) throw(err error) {
	panic(r.vm.NewGoError(err))
}

// errorValue turns a task failure back into the JS value to reject with.
func (r *Runtime) errorValue(err error) goja.Value {
	if te, ok := err.(*ThrownError); ok && te.Value != nil {
		return te.Value
	}
	return r.vm.NewGoError(err)
}
