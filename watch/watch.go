// Package watch reloads crosswalk templates when their files change.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/lehigh-university-libraries/refer/crosswalk"
)

// DefaultDelay is the debounce delay used when none is given.
const DefaultDelay = 250 * time.Millisecond

// ReloadFunc is called after every reload attempt.
type ReloadFunc func(name string, err error)

// Watcher watches the template directories of a registry. Changes are
// collected until no event arrived for the debounce delay, then every
// crosswalk reading a changed file is reloaded. A failed reload is logged
// and the crosswalk keeps its previous templates.
type Watcher struct {
	fs       *fsnotify.Watcher
	registry *crosswalk.Registry
	delay    time.Duration
	logger   *slog.Logger
	onReload ReloadFunc

	mu      sync.Mutex
	pending map[string]struct{}
	timer   *time.Timer
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDelay sets the debounce delay.
func WithDelay(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.delay = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *Watcher) {
		w.logger = l
	}
}

// OnReload registers a callback run after every reload attempt.
func OnReload(fn ReloadFunc) Option {
	return func(w *Watcher) {
		w.onReload = fn
	}
}

// New creates a watcher over the template directories of registry.
func New(registry *crosswalk.Registry, opts ...Option) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	w := &Watcher{
		fs:       fsw,
		registry: registry,
		delay:    DefaultDelay,
		logger:   slog.Default(),
		pending:  make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	for _, dir := range registry.Dirs() {
		if err := fsw.Add(dir); err != nil {
			fsw.Close()
			return nil, fmt.Errorf("watching %s: %w", dir, err)
		}
		w.logger.Debug("watching template directory", "dir", dir)
	}
	return w, nil
}

// Run processes file events until ctx is done, then closes the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			w.handle(event)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("template watcher error", "err", err)
		}
	}
}

func (w *Watcher) stop() {
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	w.fs.Close()
}

// handle queues a changed file and restarts the debounce timer.
func (w *Watcher) handle(event fsnotify.Event) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return
	}
	path := filepath.Clean(event.Name)
	if len(w.registry.Using(path)) == 0 {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending[path] = struct{}{}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.delay, w.flush)
}

// flush reloads every crosswalk reading a pending file, once.
func (w *Watcher) flush() {
	w.mu.Lock()
	paths := w.pending
	w.pending = make(map[string]struct{})
	w.mu.Unlock()

	reloaded := make(map[string]bool)
	for path := range paths {
		for _, c := range w.registry.Using(path) {
			if reloaded[c.Name()] {
				continue
			}
			reloaded[c.Name()] = true

			err := c.Reload()
			if err != nil {
				w.logger.Error("reloading crosswalk failed, keeping previous templates", "crosswalk", c.Name(), "err", err)
			} else {
				w.logger.Info("reloaded crosswalk", "crosswalk", c.Name(), "file", path)
			}
			if w.onReload != nil {
				w.onReload(c.Name(), err)
			}
		}
	}
}
