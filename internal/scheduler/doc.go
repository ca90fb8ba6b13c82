// Package scheduler provides the cooperative task scheduler behind warpjs.
// It implements a single-goroutine run loop (an active object) that owns
// every spawned task and interval, a FIFO queue of ready jobs and a
// min-heap of wakeups sorted by deadline, with a 60-second max-sleep-cap to
// handle NTP steps, DST transitions, and system sleep (macOS monotonic clock
// pause).
//
// Bodies never run concurrently: only the loop goroutine executes them, so a
// body runs uninterrupted until it reaches a suspension point (Delay, an
// await, or any collaborator operation that completes later through Done).
// Concurrency comes from interleaving at those points, which lets the
// non-thread-safe script runtime be driven from one goroutine while many
// tasks are in flight.
//
// Task handles are consume-once: the first successful await takes the
// result and every later await fails with ErrAlreadyAwaited. Interval
// handles only expose Cancel, which is idempotent and never waits for an
// in-flight firing.
package scheduler
