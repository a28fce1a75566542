package discovery

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const defaultDebounce = 400 * time.Millisecond

// Watcher invalidates a Discovery's cache when index roots change on disk.
// Events are debounced so a burst of writes (an index being rebuilt, a
// sidecar being rewritten) triggers a single invalidation.
type Watcher struct {
	discovery *Discovery
	roots     []string
	debounce  time.Duration
	watcher   *fsnotify.Watcher
	mu        sync.Mutex
	timer     *time.Timer
	done      chan struct{}
	started   bool
	stopOnce  sync.Once
	logger    *zap.Logger
}

// NewWatcher creates a watcher over the given roots. Changes anywhere under a
// root (new index directories, replaced .bin or sidecar files, removals) cause
// the discovery cache to be invalidated after a short debounce window.
func NewWatcher(d *Discovery, roots []string, logger *zap.Logger) *Watcher {
	return &Watcher{
		discovery: d,
		roots:     roots,
		debounce:  defaultDebounce,
		done:      make(chan struct{}),
		logger:    logger,
	}
}

// Start begins watching. It runs until ctx is cancelled or Stop is called.
// Roots that do not exist yet are skipped with a warning rather than failing;
// they are picked up on the next Start.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return err
	}
	w.watcher = watcher
	w.started = true
	if w.logger != nil {
		w.logger.Debug("discovery watcher starting", zap.Strings("roots", w.roots))
	}
	for _, root := range w.roots {
		if err := w.addRootLocked(root); err != nil {
			if w.logger != nil {
				w.logger.Warn("discovery watcher skipping root", zap.String("root", root), zap.Error(err))
			}
		}
	}
	w.mu.Unlock()
	go w.run(ctx)
	return nil
}

// Stop stops the watcher. Safe to call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		w.mu.Lock()
		if w.timer != nil {
			w.timer.Stop()
			w.timer = nil
		}
		if w.watcher != nil {
			_ = w.watcher.Close()
			w.watcher = nil
		}
		w.started = false
		close(w.done)
		w.mu.Unlock()
	})
}

func (w *Watcher) run(ctx context.Context) {
	// Stop nils w.watcher under the lock; hold our own reference so a
	// racing Stop cannot pull the channels out from under the select.
	w.mu.Lock()
	watcher := w.watcher
	w.mu.Unlock()
	if watcher == nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			if err != nil && w.logger != nil {
				w.logger.Debug("discovery watcher error", zap.Error(err))
			}
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	if w.logger != nil {
		w.logger.Debug("discovery watcher event", zap.String("op", ev.Op.String()), zap.String("path", ev.Name))
	}
	if ev.Op&fsnotify.Create != 0 {
		// A new index directory under a root needs its own watch so that
		// files written into it later still invalidate the cache.
		info, err := os.Stat(ev.Name)
		if err == nil && info.IsDir() {
			w.mu.Lock()
			if w.watcher != nil {
				if err := w.watcher.Add(ev.Name); err != nil && w.logger != nil {
					w.logger.Debug("discovery watcher failed to add directory", zap.String("path", ev.Name), zap.Error(err))
				}
			}
			w.mu.Unlock()
		}
	}
	w.scheduleInvalidate()
}

func (w *Watcher) scheduleInvalidate() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		w.timer = nil
		logger := w.logger
		w.mu.Unlock()
		if logger != nil {
			logger.Debug("discovery cache invalidated (debounced)")
		}
		w.discovery.Invalidate()
	})
}

func (w *Watcher) addRootLocked(root string) error {
	root = filepath.Clean(root)
	if _, err := os.Stat(root); err != nil {
		return err
	}
	if err := w.watcher.Add(root); err != nil {
		return err
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		sub := filepath.Join(root, e.Name())
		if err := w.watcher.Add(sub); err != nil && w.logger != nil {
			w.logger.Debug("discovery watcher failed to add directory", zap.String("path", sub), zap.Error(err))
		}
	}
	return nil
}
