// Package journal persists scheduler events (finished tasks, interval
// firings and cancellations) to a SQLite database so runs can be inspected
// afterwards with `warpjs history`.
package journal

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"github.com/warpdl/warpjs/internal/scheduler"
	"github.com/warpdl/warpjs/pkg/logger"
)

//go:embed migrations.sql
var migrationsFS embed.FS

// DefaultBuffer is the number of events the hook queues before dropping.
const DefaultBuffer = 1024

var (
	ErrPathRequired = errors.New("journal path is required")
	ErrClosed       = errors.New("journal closed")
)

// Entry is one recorded scheduler event.
type Entry struct {
	ID       int64
	Kind     scheduler.EventKind
	Subject  scheduler.ID
	Err      string
	Spawned  time.Time
	Started  time.Time
	Finished time.Time
	Took     time.Duration
}

type Journal struct {
	db  *sql.DB
	log logger.Logger

	mu      sync.RWMutex
	closed  bool
	events  chan scheduler.Event
	dropped atomic.Uint64
	done    chan struct{}
}

// Open opens (creating if needed) the journal database at path and starts
// its writer goroutine.
func Open(path string, l logger.Logger) (*Journal, error) {
	if strings.TrimSpace(path) == "" {
		return nil, ErrPathRequired
	}
	if l == nil {
		l = logger.NewNopLogger()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")
	_, _ = db.Exec("PRAGMA busy_timeout = 5000")

	j := &Journal{
		db:     db,
		log:    l,
		events: make(chan scheduler.Event, DefaultBuffer),
		done:   make(chan struct{}),
	}
	if err := j.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	go j.writer()
	return j, nil
}

func (j *Journal) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = j.db.ExecContext(ctx, string(b))
	return err
}

// Hook returns a scheduler hook that queues events for the writer. It never
// blocks the scheduler loop: when the queue is full the event is dropped.
func (j *Journal) Hook() scheduler.Hook {
	return func(ev scheduler.Event) {
		j.mu.RLock()
		defer j.mu.RUnlock()
		if j.closed {
			return
		}
		select {
		case j.events <- ev:
		default:
			j.dropped.Add(1)
		}
	}
}

func (j *Journal) writer() {
	defer close(j.done)
	for ev := range j.events {
		if err := j.Record(context.Background(), ev); err != nil {
			j.log.Warning("journal: failed to record %s for %d: %v", ev.Kind, ev.ID, err)
		}
	}
}

// Record writes one event synchronously.
func (j *Journal) Record(ctx context.Context, ev scheduler.Event) error {
	var took int64
	if !ev.Started.IsZero() && !ev.Finished.IsZero() {
		took = ev.Finished.Sub(ev.Started).Milliseconds()
	}
	var errStr string
	if ev.Err != nil {
		errStr = ev.Err.Error()
	}
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO events(kind, subject, err, spawned, started, finished, took_ms)
		 VALUES(?,?,?,?,?,?,?)`,
		string(ev.Kind), int64(ev.ID), nullStr(errStr),
		nullTime(ev.Spawned), nullTime(ev.Started), nullTime(ev.Finished), took,
	)
	return err
}

// Recent returns up to limit entries, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := j.db.QueryContext(ctx,
		`SELECT id, kind, subject, err, spawned, started, finished, took_ms
		 FROM events ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e                          Entry
			kind                       string
			subject, took              int64
			errStr                     sql.NullString
			spawned, started, finished sql.NullString
		)
		if err := rows.Scan(&e.ID, &kind, &subject, &errStr, &spawned, &started, &finished, &took); err != nil {
			return nil, err
		}
		e.Kind = scheduler.EventKind(kind)
		e.Subject = scheduler.ID(subject)
		e.Err = errStr.String
		e.Spawned = parseTime(spawned)
		e.Started = parseTime(started)
		e.Finished = parseTime(finished)
		e.Took = time.Duration(took) * time.Millisecond
		out = append(out, e)
	}
	return out, rows.Err()
}

// Dropped returns how many events the hook discarded on a full queue.
func (j *Journal) Dropped() uint64 {
	return j.dropped.Load()
}

// Close flushes queued events and closes the database. Safe to call more
// than once; later calls return ErrClosed.
func (j *Journal) Close() error {
	j.mu.Lock()
	if j.closed {
		j.mu.Unlock()
		return ErrClosed
	}
	j.closed = true
	close(j.events)
	j.mu.Unlock()

	<-j.done
	if n := j.dropped.Load(); n > 0 {
		j.log.Warning("journal: %d events dropped on a full queue", n)
	}
	return j.db.Close()
}

func nullStr(v string) any {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return v
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(v sql.NullString) time.Time {
	if !v.Valid {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, v.String)
	if err != nil {
		return time.Time{}
	}
	return t
}
