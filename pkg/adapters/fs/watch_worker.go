package fs

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"github.com/aretw0/lifecycle"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/aretw0/hearth/pkg/core"
)

// Watch emits an event for every record change under the root whose
// "collection/key" id matches pattern ("**" for everything). Changes made
// by other processes are reported as well. The channel closes when ctx is done.
func (r *Repository) Watch(ctx context.Context, pattern string) (<-chan core.Event, error) {
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid watch pattern %q", pattern)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	w := &watchWorker{
		repo:    r,
		pattern: pattern,
		watcher: watcher,
		known:   make(map[string]bool),
	}
	if err := w.addAll(ctx); err != nil {
		_ = watcher.Close()
		return nil, err
	}

	events := make(chan core.Event, r.config.EventBuffer)
	w.events = events
	r.setWatcherActive(true)

	lifecycle.Go(ctx, func(ctx context.Context) error {
		defer close(events)
		return w.run(ctx)
	}, lifecycle.WithErrorHandler(func(err error) {
		r.handleError(fmt.Errorf("watcher stopped: %w", err))
	}))

	return events, nil
}

func (r *Repository) handleError(err error) {
	if r.config.ErrorHandler != nil {
		r.config.ErrorHandler(err)
		return
	}
	r.config.Logger.Error("fs watcher error", "error", err)
}

type watchWorker struct {
	repo    *Repository
	pattern string
	events  chan<- core.Event
	watcher *fsnotify.Watcher
	known   map[string]bool // ids present on disk, to tell CREATE from MODIFY
}

// addAll watches the root and every collection directory, and records the
// ids already present.
func (w *watchWorker) addAll(ctx context.Context) error {
	if err := w.watcher.Add(w.repo.Path); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.repo.Path, err)
	}

	collections, err := w.repo.Collections()
	if err != nil {
		return err
	}
	for _, c := range collections {
		if err := w.addCollection(ctx, c); err != nil {
			return err
		}
	}
	return nil
}

func (w *watchWorker) addCollection(ctx context.Context, collection string) error {
	if err := w.watcher.Add(w.repo.collectionDir(collection)); err != nil {
		return fmt.Errorf("failed to watch collection %s: %w", collection, err)
	}
	keys, err := w.repo.List(ctx, collection)
	if err != nil {
		return err
	}
	for _, k := range keys {
		w.known[collection+"/"+k] = true
	}
	return nil
}

// run is the main event loop for the watcher.
func (w *watchWorker) run(ctx context.Context) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("watcher panic: %v", recovered)
			if w.repo.config.Logger.Enabled(ctx, slog.LevelDebug) {
				w.repo.config.Logger.Error("watcher panic", "error", err, "stack", string(debug.Stack()))
			}
		}
	}()
	defer w.repo.setWatcherActive(false)
	defer w.watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("watcher events channel closed")
			}
			w.process(ctx, event)

		case wErr, ok := <-w.watcher.Errors:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("watcher errors channel closed")
			}
			w.repo.handleError(wErr)
		}
	}
}

// process filters and maps one filesystem event.
func (w *watchWorker) process(ctx context.Context, event fsnotify.Event) {
	// A new collection directory appeared under the root
	if filepath.Dir(event.Name) == filepath.Clean(w.repo.Path) {
		if event.Has(fsnotify.Create) {
			if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
				if err := w.addCollection(ctx, filepath.Base(event.Name)); err != nil {
					w.repo.handleError(err)
				}
			}
		}
		return
	}

	collection, key, err := w.repo.resolveID(event.Name)
	if err != nil {
		return // temp files and foreign files
	}
	id := collection + "/" + key

	var eType core.EventType
	switch {
	case event.Has(fsnotify.Create):
		eType = core.EventCreate
		if w.known[id] {
			// Atomic updates replace the file, which surfaces as a create
			eType = core.EventModify
		}
		w.known[id] = true
	case event.Has(fsnotify.Write):
		eType = core.EventModify
		w.known[id] = true
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		if _, err := os.Stat(event.Name); err == nil {
			return // renamed over, a create follows
		}
		eType = core.EventDelete
		delete(w.known, id)
	default:
		return
	}

	if ok, _ := doublestar.Match(w.pattern, id); !ok {
		return
	}

	w.repo.config.Logger.Debug("record event", "type", eType, "id", id)

	select {
	case w.events <- core.Event{Type: eType, Collection: collection, Key: key, Timestamp: time.Now().Unix()}:
	case <-ctx.Done():
	}
}
