package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestTaskHandle_SecondAwaitFails(t *testing.T) {
	s := newTestScheduler(t)
	ctx := awaitCtx(t)

	h := s.Spawn(returning("once"))
	values, err := h.Await(ctx)
	if err != nil || values[0] != "once" {
		t.Fatalf("first await: %v %v", values, err)
	}
	if !h.Consumed() {
		t.Fatal("handle should be consumed after await")
	}

	again, err := h.Await(ctx)
	if !errors.Is(err, ErrAlreadyAwaited) {
		t.Fatalf("expected ErrAlreadyAwaited, got %v", err)
	}
	if again != nil {
		t.Errorf("second await must not re-deliver values, got %v", again)
	}
	// The first result is untouched.
	if values[0] != "once" {
		t.Errorf("first result altered: %v", values)
	}
}

func TestTaskHandle_SecondAwaitAfterFailure(t *testing.T) {
	s := newTestScheduler(t)
	ctx := awaitCtx(t)
	boom := errors.New("boom")

	h := s.Spawn(func(done Done) { done(nil, boom) })
	if _, err := h.Await(ctx); err != boom {
		t.Fatalf("expected boom, got %v", err)
	}
	if _, err := h.Await(ctx); !errors.Is(err, ErrAlreadyAwaited) {
		t.Fatalf("expected ErrAlreadyAwaited, got %v", err)
	}
}

func TestTaskHandle_ConcurrentAwaitRejected(t *testing.T) {
	s := newTestScheduler(t)
	ctx := awaitCtx(t)

	h := s.Spawn(sleeping(s, 50*time.Millisecond, "slow"))
	first := make(chan error, 1)
	go func() {
		_, err := h.Await(ctx)
		first <- err
	}()

	// Let the first await claim the handle.
	deadline := time.Now().Add(time.Second)
	for h.state.Load() != handleAwaiting && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if _, err := h.Await(ctx); !errors.Is(err, ErrAlreadyAwaited) {
		t.Fatalf("expected ErrAlreadyAwaited while pending, got %v", err)
	}
	if err := <-first; err != nil {
		t.Fatalf("first await failed: %v", err)
	}
}

func TestTaskHandle_AwaitTimeoutLeavesHandleUsable(t *testing.T) {
	s := newTestScheduler(t)

	h := s.Spawn(sleeping(s, 60*time.Millisecond, "late"))
	short, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := h.Await(short); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if h.Consumed() {
		t.Fatal("timed out await must not consume the handle")
	}

	values, err := h.Await(awaitCtx(t))
	if err != nil || values[0] != "late" {
		t.Fatalf("expected [late], got %v %v", values, err)
	}
}

func TestTaskHandle_Phases(t *testing.T) {
	s := newTestScheduler(t)
	ctx := awaitCtx(t)

	gate := make(chan struct{})
	ready := make(chan *TaskHandle, 1)
	seen := make(chan Phase, 1)
	h := s.Spawn(func(done Done) {
		seen <- (<-ready).Phase()
		go func() {
			<-gate
			done(nil, nil)
		}()
	})
	if p := h.Phase(); p != PhasePending && p != PhaseRunning {
		t.Fatalf("unexpected phase right after spawn: %v", p)
	}
	ready <- h
	if p := <-seen; p != PhaseRunning {
		t.Fatalf("expected running inside body, got %v", p)
	}
	close(gate)
	if _, err := h.Await(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p := h.Phase(); p != PhaseCompleted {
		t.Fatalf("expected completed, got %v", p)
	}
}

func TestTaskHandle_AwaitFunc(t *testing.T) {
	s := newTestScheduler(t)

	h := s.Spawn(sleeping(s, 10*time.Millisecond, "cb"))
	got := make(chan Values, 1)
	if err := h.AwaitFunc(func(values Values, err error) {
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		got <- values
	}); err != nil {
		t.Fatalf("AwaitFunc: %v", err)
	}
	if err := h.AwaitFunc(func(Values, error) {}); !errors.Is(err, ErrAlreadyAwaited) {
		t.Fatalf("expected ErrAlreadyAwaited, got %v", err)
	}

	select {
	case values := <-got:
		if values[0] != "cb" {
			t.Fatalf("expected [cb], got %v", values)
		}
	case <-time.After(time.Second):
		t.Fatal("callback never ran")
	}
	if _, err := h.Await(awaitCtx(t)); !errors.Is(err, ErrAlreadyAwaited) {
		t.Fatalf("expected ErrAlreadyAwaited from Await after AwaitFunc, got %v", err)
	}
}

func TestTaskHandle_AwaitFuncCompletedTask(t *testing.T) {
	s := newTestScheduler(t)

	h := s.Spawn(returning(7))
	if err := s.Wait(awaitCtx(t)); err != nil {
		t.Fatalf("wait: %v", err)
	}
	got := make(chan Values, 1)
	if err := h.AwaitFunc(func(values Values, _ error) { got <- values }); err != nil {
		t.Fatalf("AwaitFunc: %v", err)
	}
	select {
	case values := <-got:
		if values[0] != 7 {
			t.Fatalf("expected [7], got %v", values)
		}
	case <-time.After(time.Second):
		t.Fatal("callback never ran")
	}
}

func TestTaskHandle_AwaitInsideBody(t *testing.T) {
	s := newTestScheduler(t)

	inner := s.Spawn(sleeping(s, 10*time.Millisecond, 20))
	outer := s.Spawn(func(done Done) {
		if err := inner.AwaitFunc(func(values Values, err error) {
			if err != nil {
				done(nil, err)
				return
			}
			done(Values{values[0].(int) + 1}, nil)
		}); err != nil {
			done(nil, err)
		}
	})
	values, err := outer.Await(awaitCtx(t))
	if err != nil || values[0] != 21 {
		t.Fatalf("expected [21], got %v %v", values, err)
	}
}

func TestTaskHandle_AwaitFuncAfterStop(t *testing.T) {
	s := New(context.Background())
	h := s.Spawn(sleeping(s, time.Hour))
	s.Stop()

	if err := h.AwaitFunc(func(Values, error) {}); !errors.Is(err, ErrStopped) {
		t.Fatalf("expected ErrStopped, got %v", err)
	}
	if h.Consumed() {
		t.Fatal("rejected await must not consume the handle")
	}
}

func TestPhase_String(t *testing.T) {
	for p, want := range map[Phase]string{
		PhasePending:   "pending",
		PhaseRunning:   "running",
		PhaseCompleted: "completed",
		Phase(9):       "unknown",
	} {
		if got := p.String(); got != want {
			t.Errorf("%d: expected %s, got %s", p, want, got)
		}
	}
}
