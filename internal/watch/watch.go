// Package watch re-runs note processing when notes in the vault change.
package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long a path must stay quiet before it is handled.
const DefaultDebounce = 200 * time.Millisecond

// Handler processes one changed note, given its vault-relative slash path.
type Handler func(ctx context.Context, rel string)

// Filter decides which paths are notes and which directories are ignored.
type Filter interface {
	IsNote(name string) bool
	Skipped(rel string) bool
}

// Watch watches root recursively and calls handle for every created or
// written note once it has been quiet for debounce. Handlers run one at a
// time on the watcher goroutine. Watch returns when ctx is cancelled.
func Watch(ctx context.Context, root string, filter Filter, debounce time.Duration, logger *slog.Logger, handle Handler) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, root, root, filter); err != nil {
		return err
	}
	logger.Info("watcher: started", slog.String("root", root))

	pending := make(map[string]time.Time)
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	schedule := func() {
		if len(pending) == 0 {
			return
		}
		var next time.Time
		for _, at := range pending {
			if next.IsZero() || at.Before(next) {
				next = at
			}
		}
		timer.Reset(time.Until(next))
	}

	for {
		select {
		case <-ctx.Done():
			logger.Info("watcher: stopped")
			return nil

		case now := <-timer.C:
			var due []string
			for rel, at := range pending {
				if !at.After(now) {
					due = append(due, rel)
				}
			}
			sort.Strings(due)
			for _, rel := range due {
				delete(pending, rel)
				if ctx.Err() != nil {
					return nil
				}
				logger.Debug("watcher: processing", slog.String("path", rel))
				handle(ctx, rel)
			}
			schedule()

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			rel, relErr := filepath.Rel(root, ev.Name)
			if relErr != nil || filter.Skipped(rel) {
				continue
			}

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, root, ev.Name, filter); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", rel),
							slog.String("error", addErr.Error()))
					}
					queueNotes(root, ev.Name, filter, pending, time.Now().Add(debounce))
					schedule()
					continue
				}
			}

			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 || !filter.IsNote(ev.Name) {
				continue
			}
			pending[filepath.ToSlash(rel)] = time.Now().Add(debounce)
			schedule()

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// queueNotes schedules every note already present in a new directory.
func queueNotes(root, dir string, filter Filter, pending map[string]time.Time, at time.Time) {
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !filter.IsNote(path) {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil || filter.Skipped(rel) {
			return nil
		}
		pending[filepath.ToSlash(rel)] = at
		return nil
	})
}

// addDirsRecursive adds dir and its subdirectories to the watcher, except
// directories the filter skips.
func addDirsRecursive(w *fsnotify.Watcher, root, dir string, filter Filter) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if rel, relErr := filepath.Rel(root, path); relErr == nil && rel != "." && filter.Skipped(rel) {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}
