package engine

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Invalidator is anything holding caches that go stale when template files
// change.
type Invalidator interface {
	Invalidate()
}

// Watcher calls Invalidate on its target whenever a file below one of its
// directories is written, created, removed or renamed.
type Watcher struct {
	target Invalidator
	dirs   []string
	logger *slog.Logger
}

// NewWatcher watches dirs recursively on behalf of target.
func NewWatcher(target Invalidator, dirs []string, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		target: target,
		dirs:   append([]string(nil), dirs...),
		logger: logger,
	}
}

// Run blocks until ctx is cancelled or the underlying watcher fails. The
// returned error is nil after a cancellation.
func (w *Watcher) Run(ctx context.Context) error {
	if w.target == nil {
		return errors.New("engine: watcher target is nil")
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("engine: create watcher: %w", err)
	}
	defer fsw.Close()

	for _, dir := range w.dirs {
		if err := addTree(fsw, dir); err != nil {
			return err
		}
	}
	w.logger.Debug("watching templates", "dirs", w.dirs)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			if event.Has(fsnotify.Create) {
				// New sub directories need their own watch.
				_ = addTree(fsw, event.Name)
			}
			w.logger.Debug("template change", "path", event.Name, "op", event.Op.String())
			w.target.Invalidate()
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("template watcher error", "error", err)
		}
	}
}

func addTree(fsw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return fmt.Errorf("engine: watch %q: %w", root, err)
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if err := fsw.Add(path); err != nil {
			return fmt.Errorf("engine: watch %q: %w", path, err)
		}
		return nil
	})
}
