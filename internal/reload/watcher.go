// Package reload rebuilds the engine snapshot when content files change and
// publishes it atomically.
package reload

import (
	"errors"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/cory-johannsen/lootweight/internal/content"
	"github.com/cory-johannsen/lootweight/internal/game/engine"
)

// DefaultDebounce is how long the directory must stay quiet before a reload.
const DefaultDebounce = 250 * time.Millisecond

// LoadFunc builds a fresh, unpublished snapshot.
type LoadFunc func() (*engine.Snapshot, error)

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the quiet period before a reload. Non-positive values
// keep the default.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// OnPublish registers fn to run with each newly published snapshot.
func OnPublish(fn func(*engine.Snapshot)) Option {
	return func(w *Watcher) { w.onPublish = fn }
}

// Watcher watches a content directory and republishes on change. It
// satisfies server.Service.
type Watcher struct {
	dir       string
	eng       *engine.Engine
	load      LoadFunc
	logger    *zap.Logger
	debounce  time.Duration
	onPublish func(*engine.Snapshot)

	fw       *fsnotify.Watcher
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	mu       sync.Mutex // serializes Reload
}

// New returns a Watcher over dir.
//
// Precondition: eng, load and logger must be non-nil.
func New(dir string, eng *engine.Engine, load LoadFunc, logger *zap.Logger, opts ...Option) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		dir:      dir,
		eng:      eng,
		load:     load,
		logger:   logger,
		debounce: DefaultDebounce,
		fw:       fw,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, o := range opts {
		o(w)
	}
	return w, nil
}

// Reload loads and publishes immediately. On failure the current snapshot
// stays published.
func (w *Watcher) Reload() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	start := time.Now()
	snap, err := w.load()
	if err != nil {
		w.logger.Error("content reload failed, keeping current snapshot",
			zap.String("dir", w.dir),
			zap.Uint64("version", w.eng.Version()),
			zap.Error(err),
		)
		return err
	}
	if snap == nil {
		return errors.New("reload: loader returned no snapshot")
	}
	prev := w.eng.Publish(snap)
	current := w.eng.Snapshot()
	w.logger.Info("content published",
		zap.String("dir", w.dir),
		zap.Uint64("version", current.Version),
		zap.Uint64("previous", prev.Version),
		zap.Int("entries", current.Catalog.Len()),
		zap.Duration("elapsed", time.Since(start)),
	)
	if w.onPublish != nil {
		w.onPublish(current)
	}
	return nil
}

// Start watches the directory until Stop is called.
func (w *Watcher) Start() error {
	defer close(w.done)
	if err := w.fw.Add(w.dir); err != nil {
		return err
	}
	w.logger.Info("watching content", zap.String("dir", w.dir), zap.Duration("debounce", w.debounce))

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-w.stop:
			return nil
		case ev, ok := <-w.fw.Events:
			if !ok {
				return nil
			}
			if !content.IsContentFile(filepath.Base(ev.Name)) {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
				timer.Reset(w.debounce)
			}
		case <-timer.C:
			// Reload logs its own failure.
			_ = w.Reload()
		case err, ok := <-w.fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("content watch error", zap.Error(err))
		}
	}
}

// Stop ends Start and releases the file watch. Safe to call more than once
// and before Start.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stop)
		_ = w.fw.Close()
	})
}

// Done is closed when Start returns.
func (w *Watcher) Done() <-chan struct{} { return w.done }
