package cmd

import (
	"context"
	"errors"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watch reruns name in a fresh engine whenever it, or a module loaded by
// the previous run, changes. A run still in progress is cancelled first.
// It returns when ctx ends.
func watch(ctx context.Context, sess *session, root, name string, timeout time.Duration) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	// Directories are watched rather than files so editors that save by
	// rename keep being tracked.
	dirs := make(map[string]struct{})
	watched := make(map[string]struct{})
	track := func(file string) {
		file = filepath.Clean(file)
		watched[file] = struct{}{}
		dir := filepath.Dir(file)
		if _, ok := dirs[dir]; ok {
			return
		}
		if err := w.Add(dir); err != nil {
			sess.log.Warning("watch %s: %v", dir, err)
			return
		}
		dirs[dir] = struct{}{}
	}
	track(filepath.Join(root, filepath.FromSlash(name)))

	for {
		var (
			runCtx context.Context
			cancel context.CancelFunc
		)
		if timeout > 0 {
			runCtx, cancel = context.WithTimeout(ctx, timeout)
		} else {
			runCtx, cancel = context.WithCancel(ctx)
		}
		done := make(chan []string, 1)
		go func() {
			imported, err := runScript(runCtx, sess, root, name, false)
			switch {
			case err == nil:
				sess.log.Info("%s finished, watching for changes", name)
			case errors.Is(err, context.Canceled) && ctx.Err() == nil:
			default:
				sess.log.Error("%s: %v", name, err)
			}
			done <- imported
		}()

		changed := false
		for !changed {
			select {
			case <-ctx.Done():
				cancel()
				if done != nil {
					<-done
				}
				return nil
			case imported := <-done:
				for _, m := range imported {
					track(filepath.Join(root, filepath.FromSlash(m)))
				}
				done = nil
			case ev, ok := <-w.Events:
				if !ok {
					cancel()
					if done != nil {
						<-done
					}
					return nil
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
					continue
				}
				if _, ok := watched[filepath.Clean(ev.Name)]; ok {
					changed = true
				}
			case err, ok := <-w.Errors:
				if !ok {
					cancel()
					if done != nil {
						<-done
					}
					return nil
				}
				sess.log.Warning("watch: %v", err)
			}
		}

		cancel()
		if done != nil {
			for _, m := range <-done {
				track(filepath.Join(root, filepath.FromSlash(m)))
			}
		}
		drain(w, DEF_WATCH_SETTLE)
		sess.log.Info("%s changed, restarting", name)
	}
}

// drain discards events until none has arrived for quiet.
func drain(w *fsnotify.Watcher, quiet time.Duration) {
	t := time.NewTimer(quiet)
	defer t.Stop()
	for {
		select {
		case _, ok := <-w.Events:
			if !ok {
				return
			}
			t.Reset(quiet)
		case <-t.C:
			return
		}
	}
}
