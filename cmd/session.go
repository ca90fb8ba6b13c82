package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/warpdl/warpjs/internal/config"
	"github.com/warpdl/warpjs/internal/journal"
	"github.com/warpdl/warpjs/internal/scheduler"
	"github.com/warpdl/warpjs/internal/script"
	"github.com/warpdl/warpjs/pkg/logger"
)

// ErrReported marks a failure whose message has already been printed.
var ErrReported = errors.New("error already reported")

var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
	getenv           = os.Getenv
)

// session holds what every script-running command shares: resolved
// settings, the logger and the optional journal.
type session struct {
	settings config.Settings
	log      logger.Logger
	logFile  io.Closer
	journal  *journal.Journal
	// owned is set once an engine has taken over closing the journal and
	// the log file.
	owned bool
}

// openSession loads the config at configPath, applies environment
// overrides and opens the journal. A non-empty journalPath overrides the
// configured one.
func openSession(configPath, journalPath string) (*session, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv(getenv)
	if journalPath != "" {
		cfg.Journal.Path = journalPath
	}
	st, err := cfg.Resolve()
	if err != nil {
		return nil, err
	}
	l, logFile, err := config.NewLogger(st, stderr)
	if err != nil {
		return nil, err
	}
	s := &session{settings: st, log: l, logFile: logFile}
	if st.JournalPath != "" {
		j, err := journal.Open(st.JournalPath, l)
		if err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("journal: %w", err)
		}
		s.journal = j
	}
	return s, nil
}

// options builds engine options rooted at root. When handOver is true the
// engine becomes responsible for closing the journal and the log file.
func (s *session) options(root string, handOver bool) script.Options {
	opts := script.Options{
		Logger:      s.log,
		Root:        root,
		Stdout:      stdout,
		MaxSleep:    s.settings.MaxSleep,
		ReportEvery: s.settings.ReportEvery,
		ReportBurst: s.settings.ReportBurst,
	}
	if handOver && !s.owned {
		s.owned = true
		opts.Journal = s.journal
		if s.logFile != nil {
			opts.Closers = []io.Closer{s.logFile}
		}
		return opts
	}
	if s.journal != nil {
		opts.Hooks = []scheduler.Hook{s.journal.Hook()}
	}
	return opts
}

func (s *session) Close() error {
	if s.owned {
		return nil
	}
	s.owned = true
	var result *multierror.Error
	if s.journal != nil {
		if err := s.journal.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if s.logFile != nil {
		if err := s.logFile.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

// commandContext is cancelled on SIGINT or SIGTERM and, when timeout is
// positive, after timeout.
func commandContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	if timeout <= 0 {
		return ctx, stop
	}
	tctx, cancel := context.WithTimeout(ctx, timeout)
	return tctx, func() {
		cancel()
		stop()
	}
}

// waitIdle waits for the engine's scheduler to go idle and describes what
// was still pending when ctx ended first.
func waitIdle(ctx context.Context, eng *script.Engine) error {
	err := eng.Wait(ctx)
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		st := eng.Stats()
		return fmt.Errorf("%w with %d live tasks and %d active intervals", err, st.LiveTasks, st.ActiveIntervals)
	}
	return err
}
