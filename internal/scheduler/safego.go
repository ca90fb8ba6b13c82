package scheduler

import (
	"fmt"
	"runtime/debug"

	"github.com/warpdl/warpjs/pkg/logger"
)

// safeRun runs fn on the calling goroutine with panic recovery.
// If l is non-nil, panics are logged with stack traces.
// If onPanic is non-nil, it's called with the recovered value.
// Reports whether fn returned normally.
func safeRun(l logger.Logger, context string, onPanic func(r interface{}), fn func()) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			if l != nil {
				l.Error("PANIC [%s]: %v\n%s", context, r, debug.Stack())
			}
			if onPanic != nil {
				onPanic(r)
			}
		}
	}()
	fn()
	return true
}

// panicError converts a value recovered from a body into its failure.
func panicError(r interface{}) error {
	if err, ok := r.(error); ok {
		return fmt.Errorf("%w: %w", ErrBodyPanicked, err)
	}
	return fmt.Errorf("%w: %v", ErrBodyPanicked, r)
}
