// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package watch monitors a directory of coverage exports and delivers
// debounced change batches, so freshly written exports can be
// re-ingested without triggering once per write syscall.
package watch

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ExportChange represents one observed change to an export file.
type ExportChange struct {
	// Path is the path to the changed file as reported by the OS.
	Path string

	// Op is the type of change.
	Op ExportOp

	// Time is when the change was detected.
	Time time.Time
}

// ExportOp represents the type of file operation.
type ExportOp int

const (
	// ExportOpCreate indicates an export was created.
	ExportOpCreate ExportOp = iota

	// ExportOpWrite indicates an export was modified.
	ExportOpWrite

	// ExportOpRemove indicates an export was deleted.
	ExportOpRemove

	// ExportOpRename indicates an export was renamed.
	ExportOpRename
)

// String returns the string representation of the operation.
func (op ExportOp) String() string {
	switch op {
	case ExportOpCreate:
		return "create"
	case ExportOpWrite:
		return "write"
	case ExportOpRemove:
		return "remove"
	case ExportOpRename:
		return "rename"
	default:
		return "unknown"
	}
}

// ExportHandler is called when a debounced change batch is ready.
type ExportHandler func(changes []ExportChange)

// Options configures the ExportWatcher.
type Options struct {
	// Debounce is how long to wait for more changes before triggering.
	// Default: 500ms
	Debounce time.Duration

	// Extensions limits which files are reported. Default: [".json"]
	Extensions []string

	// BufferSize is the size of the change buffer channel.
	// Default: 256
	BufferSize int
}

// DefaultOptions returns the default watcher configuration.
func DefaultOptions() Options {
	return Options{
		Debounce:   500 * time.Millisecond,
		Extensions: []string{".json"},
		BufferSize: 256,
	}
}

// ExportWatcher watches one directory for export file changes with
// debouncing.
//
// # Description
//
// Compilers and test harnesses write exports incrementally; a run of
// write events for the same file collapses into one change. When the
// debounce window expires without new events, the collected batch is
// handed to the handler, deduplicated by path with the most recent
// operation winning.
//
// Thread Safety: safe for concurrent use. The handler is called from a
// single goroutine.
type ExportWatcher struct {
	dir        string
	watcher    *fsnotify.Watcher
	handler    ExportHandler
	debounce   time.Duration
	extensions []string

	changes  chan ExportChange
	done     chan struct{}
	stopOnce sync.Once

	mu       sync.RWMutex
	watching bool
}

// New creates a watcher for the given export directory.
//
// # Inputs
//
//   - dir: path to the directory holding coverage exports
//   - handler: function called with batched changes after debounce
//   - opts: optional configuration (nil uses defaults)
//
// # Outputs
//
//   - *ExportWatcher: ready-to-use watcher (call Start to begin)
//   - error: non-nil if the underlying watcher could not be created
//
// # Example
//
//	w, err := watch.New("/exports", func(changes []watch.ExportChange) {
//		for _, c := range changes {
//			log.Printf("%s %s", c.Op, c.Path)
//		}
//	}, nil)
//	if err != nil {
//		return err
//	}
//	defer w.Stop()
//	if err := w.Start(ctx); err != nil {
//		return err
//	}
func New(dir string, handler ExportHandler, opts *Options) (*ExportWatcher, error) {
	if opts == nil {
		defaults := DefaultOptions()
		opts = &defaults
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultOptions().Debounce
	}
	if len(opts.Extensions) == 0 {
		opts.Extensions = DefaultOptions().Extensions
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = DefaultOptions().BufferSize
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &ExportWatcher{
		dir:        dir,
		watcher:    watcher,
		handler:    handler,
		debounce:   opts.Debounce,
		extensions: opts.Extensions,
		changes:    make(chan ExportChange, opts.BufferSize),
		done:       make(chan struct{}),
	}, nil
}

// Dir returns the watched directory.
func (w *ExportWatcher) Dir() string {
	return w.dir
}

// Start begins watching for export changes.
//
// # Description
//
// Watches the export directory (non-recursively) and delivers
// debounced batches to the handler. Spawns two goroutines: an event
// processor converting fsnotify events to ExportChange, and a
// debouncer batching changes. Both exit when Stop is called or the
// context is canceled.
func (w *ExportWatcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.watching {
		w.mu.Unlock()
		return nil // Already watching
	}
	w.watching = true
	w.mu.Unlock()

	if err := w.watcher.Add(w.dir); err != nil {
		return err
	}

	go w.processEvents(ctx)
	go w.debounceLoop(ctx)

	return nil
}

// Stop stops the watcher. Safe to call more than once.
func (w *ExportWatcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		w.watcher.Close()

		w.mu.Lock()
		w.watching = false
		w.mu.Unlock()
	})
}

// IsWatching returns true if the watcher is currently active.
func (w *ExportWatcher) IsWatching() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.watching
}

// matches reports whether a path carries one of the watched
// extensions.
func (w *ExportWatcher) matches(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, want := range w.extensions {
		if ext == want {
			return true
		}
	}
	return false
}

// processEvents converts fsnotify events to ExportChange and sends
// them to the debounce channel.
func (w *ExportWatcher) processEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.matches(event.Name) {
				continue
			}
			// Chmod-only events carry no content change.
			if event.Op == fsnotify.Chmod {
				continue
			}

			change := ExportChange{
				Path: event.Name,
				Time: time.Now(),
				Op:   convertOp(event.Op),
			}

			// Non-blocking send; the debouncer should keep up.
			select {
			case w.changes <- change:
			default:
			}

		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

// convertOp converts fsnotify.Op to ExportOp.
func convertOp(op fsnotify.Op) ExportOp {
	switch {
	case op.Has(fsnotify.Create):
		return ExportOpCreate
	case op.Has(fsnotify.Write):
		return ExportOpWrite
	case op.Has(fsnotify.Remove):
		return ExportOpRemove
	case op.Has(fsnotify.Rename):
		return ExportOpRename
	default:
		return ExportOpWrite
	}
}

// debounceLoop batches changes and calls the handler after the
// debounce window expires.
func (w *ExportWatcher) debounceLoop(ctx context.Context) {
	var batch []ExportChange
	var timer *time.Timer
	var timerC <-chan time.Time

	flush := func() {
		if len(batch) > 0 {
			deduped := deduplicate(batch)
			if len(deduped) > 0 && w.handler != nil {
				w.handler(deduped)
			}
			batch = batch[:0]
		}
		if timer != nil {
			timer.Stop()
			timer = nil
			timerC = nil
		}
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			return
		case <-w.done:
			flush()
			return
		case change := <-w.changes:
			batch = append(batch, change)

			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				timer.Reset(w.debounce)
			}

		case <-timerC:
			flush()
		}
	}
}

// deduplicate keeps the most recent change per path, preserving first
// occurrence order.
func deduplicate(changes []ExportChange) []ExportChange {
	seen := make(map[string]int)
	result := make([]ExportChange, 0, len(changes))

	for _, change := range changes {
		if idx, exists := seen[change.Path]; exists {
			result[idx] = change
		} else {
			seen[change.Path] = len(result)
			result = append(result, change)
		}
	}

	return result
}
