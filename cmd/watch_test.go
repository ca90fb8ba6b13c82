package cmd

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/warpdl/warpjs/internal/config"
	"github.com/warpdl/warpjs/pkg/logger"
)

func newTestSession(t *testing.T) *session {
	t.Helper()
	cfg := config.Default()
	st, err := cfg.Resolve()
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	return &session{settings: st, log: logger.NewNopLogger()}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestWatch_RerunsOnChange(t *testing.T) {
	out := captureOutput(t)
	dir := t.TempDir()
	writeScript(t, dir, "lib.js", `module.exports = "v1";`)
	writeScript(t, dir, "main.js", `print("run", require("./lib.js"))`)

	sess := newTestSession(t)
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- watch(ctx, sess, dir, "main.js", 0) }()

	waitFor(t, "first run", func() bool { return strings.Contains(out.String(), "run v1") })
	// Give the watcher time to pick up the imported module.
	time.Sleep(100 * time.Millisecond)

	writeScript(t, dir, "lib.js", `module.exports = "v2";`)
	waitFor(t, "rerun after module change", func() bool { return strings.Contains(out.String(), "run v2") })

	writeScript(t, dir, "main.js", `print("edited")`)
	waitFor(t, "rerun after script change", func() bool { return strings.Contains(out.String(), "edited") })

	cancel()
	select {
	case err := <-errc:
		if err != nil {
			t.Fatalf("watch: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not return after cancel")
	}
}

func TestWatch_CancelsLongRun(t *testing.T) {
	out := captureOutput(t)
	dir := t.TempDir()
	writeScript(t, dir, "main.js", `print("start"); spawn_interval(0.01, () => {})`)

	sess := newTestSession(t)
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- watch(ctx, sess, dir, "main.js", 0) }()

	waitFor(t, "run to start", func() bool { return strings.Contains(out.String(), "start") })
	cancel()
	select {
	case err := <-errc:
		if err != nil {
			t.Fatalf("watch: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not cancel the running script")
	}
}
