package journal

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/warpdl/warpjs/internal/scheduler"
	"github.com/warpdl/warpjs/pkg/logger"
)

func openTestJournal(t *testing.T) (*Journal, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "journal.db")
	j, err := Open(path, logger.NewNopLogger())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return j, path
}

func TestOpen_RequiresPath(t *testing.T) {
	if _, err := Open("  ", nil); !errors.Is(err, ErrPathRequired) {
		t.Fatalf("expected ErrPathRequired, got %v", err)
	}
}

func TestRecordAndRecent(t *testing.T) {
	j, _ := openTestJournal(t)
	defer j.Close()
	ctx := context.Background()

	start := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	events := []scheduler.Event{
		{Kind: scheduler.EventTaskFinished, ID: 1, Spawned: start, Started: start, Finished: start.Add(1500 * time.Millisecond)},
		{Kind: scheduler.EventIntervalFailed, ID: 2, Err: errors.New("boom"), Started: start, Finished: start.Add(time.Millisecond)},
		{Kind: scheduler.EventIntervalCancelled, ID: 2, Finished: start.Add(time.Second)},
	}
	for _, ev := range events {
		if err := j.Record(ctx, ev); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	got, err := j.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(got))
	}
	// Newest first.
	if got[0].Kind != scheduler.EventIntervalCancelled || got[2].Kind != scheduler.EventTaskFinished {
		t.Fatalf("unexpected order: %+v", got)
	}
	if got[1].Err != "boom" || got[1].Subject != 2 {
		t.Errorf("unexpected failed entry: %+v", got[1])
	}
	if got[2].Took != 1500*time.Millisecond {
		t.Errorf("expected 1.5s, got %v", got[2].Took)
	}
	if !got[2].Spawned.Equal(start) {
		t.Errorf("expected spawned %v, got %v", start, got[2].Spawned)
	}
	if !got[0].Started.IsZero() {
		t.Errorf("expected zero start for cancellation, got %v", got[0].Started)
	}
}

func TestRecent_Limit(t *testing.T) {
	j, _ := openTestJournal(t)
	defer j.Close()
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		if err := j.Record(ctx, scheduler.Event{Kind: scheduler.EventTaskFinished, ID: scheduler.ID(i)}); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}
	got, err := j.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 2 || got[0].Subject != 5 || got[1].Subject != 4 {
		t.Fatalf("expected subjects 5,4 got %+v", got)
	}
}

func TestHook_FlushedOnClose(t *testing.T) {
	j, path := openTestJournal(t)

	hook := j.Hook()
	for i := 1; i <= 10; i++ {
		hook(scheduler.Event{Kind: scheduler.EventIntervalFired, ID: 7})
	}
	if err := j.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	// Events after close are ignored, not panics.
	hook(scheduler.Event{Kind: scheduler.EventIntervalFired, ID: 7})

	reopened, err := Open(path, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	got, err := reopened.Recent(context.Background(), 100)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 10 {
		t.Fatalf("expected 10 flushed entries, got %d", len(got))
	}
}

func TestClose_Twice(t *testing.T) {
	j, _ := openTestJournal(t)
	if err := j.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := j.Close(); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestHook_WithScheduler(t *testing.T) {
	j, path := openTestJournal(t)

	s := scheduler.New(context.Background(), scheduler.WithHook(j.Hook()))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	h := s.Spawn(func(done scheduler.Done) { done(scheduler.Values{1}, nil) })
	if _, err := h.Await(ctx); err != nil {
		t.Fatalf("Await: %v", err)
	}
	if err := s.Wait(ctx); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	s.Stop()
	if err := j.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := Open(path, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	got, err := reopened.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 1 || got[0].Kind != scheduler.EventTaskFinished || got[0].Subject != h.ID() {
		t.Fatalf("unexpected entries: %+v", got)
	}
}
