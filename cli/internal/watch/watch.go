// Package watch runs a callback when SQL files in a directory change.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the watcher waits for writes to settle.
const DefaultDebounce = 500 * time.Millisecond

// Watcher watches a directory for .sql files being created or written.
type Watcher struct {
	dir      string
	debounce time.Duration
	callback func(ctx context.Context) error
	onError  func(error)
	watcher  *fsnotify.Watcher
}

// NewWatcher creates a watcher on dir. Callback errors are passed to onError
// and do not stop watching.
func NewWatcher(dir string, callback func(ctx context.Context) error, onError func(error)) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}
	if err := watcher.Add(abs); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch directory: %w", err)
	}
	if onError == nil {
		onError = func(error) {}
	}
	return &Watcher{
		dir:      abs,
		debounce: DefaultDebounce,
		callback: callback,
		onError:  onError,
		watcher:  watcher,
	}, nil
}

// SetDebounce changes the settle delay.
func (w *Watcher) SetDebounce(d time.Duration) { w.debounce = d }

// Run calls the callback once, then again after every batch of changes,
// until ctx is done. The watcher is closed when Run returns.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	if err := w.callback(ctx); err != nil {
		w.onError(err)
	}

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	var debounceCh <-chan time.Time

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if relevant(event) {
				// Reset on each event so a burst triggers one run.
				timer.Reset(w.debounce)
				debounceCh = timer.C
			}

		case <-debounceCh:
			debounceCh = nil
			if err := w.callback(ctx); err != nil {
				w.onError(err)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.onError(err)

		case <-ctx.Done():
			return nil
		}
	}
}

func relevant(e fsnotify.Event) bool {
	if !strings.EqualFold(filepath.Ext(e.Name), ".sql") {
		return false
	}
	return e.Has(fsnotify.Create) || e.Has(fsnotify.Write) || e.Has(fsnotify.Rename)
}
