package watcher

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// WatchConfig contains watcher settings.
type WatchConfig struct {
	DebounceMs        int      `json:"debounceMs"`        // Delay before processing (default: 500)
	StableThresholdMs int      `json:"stableThresholdMs"` // File size stability threshold (default: 200)
	IgnorePatterns    []string `json:"ignorePatterns"`    // Glob patterns to ignore
}

// DefaultWatchConfig returns a WatchConfig with sensible defaults.
func DefaultWatchConfig() *WatchConfig {
	return &WatchConfig{
		DebounceMs:        500,
		StableThresholdMs: 200,
		IgnorePatterns:    DefaultIgnorePatterns(),
	}
}

// WatchSummary contains stats from the watch session.
type WatchSummary struct {
	FilesChanged   int
	FilesUnchanged int
	Errors         int
	Duration       time.Duration
}

// FileHandler processes one scenario file and reports whether it was
// rewritten. The handler must be idempotent: the watcher's own rewrite
// triggers a Write event, and the second pass must find nothing to change.
type FileHandler func(path string) (changed bool, err error)

// Watcher monitors a scenarios directory for created or modified files.
type Watcher struct {
	config    *WatchConfig
	handler   FileHandler
	fsWatcher *fsnotify.Watcher
	filter    *FileFilter
	debouncer *Debouncer
	stability *StabilityChecker
	done      chan struct{}
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	startTime time.Time

	mu             sync.Mutex
	filesChanged   int
	filesUnchanged int
	errors         int
}

// New creates a Watcher with the given configuration and handler. A nil
// config uses defaults.
func New(config *WatchConfig, handler FileHandler) *Watcher {
	if config == nil {
		config = DefaultWatchConfig()
	}
	w := &Watcher{
		config:    config,
		handler:   handler,
		filter:    NewFileFilter(config.IgnorePatterns),
		stability: NewStabilityChecker(time.Duration(config.StableThresholdMs) * time.Millisecond),
		done:      make(chan struct{}),
	}
	w.ctx, w.cancel = context.WithCancel(context.Background())
	w.debouncer = NewDebouncer(time.Duration(config.DebounceMs)*time.Millisecond, w.processFile)
	return w
}

// Start begins watching the directory. The watcher runs until Stop is
// called.
func (w *Watcher) Start(dir string) error {
	var err error
	w.fsWatcher, err = fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	absDir, err := filepath.Abs(dir)
	if err != nil {
		w.fsWatcher.Close()
		return err
	}
	if err := w.fsWatcher.Add(absDir); err != nil {
		w.fsWatcher.Close()
		return err
	}

	w.startTime = time.Now()
	w.done = make(chan struct{})
	w.ctx, w.cancel = context.WithCancel(context.Background())

	w.wg.Add(1)
	go w.processEvents()

	return nil
}

// Stop shuts down the watcher: pending debounce timers are canceled,
// in-flight stability waits are interrupted, and running handlers are
// joined before the summary is returned.
func (w *Watcher) Stop() *WatchSummary {
	close(w.done)
	w.cancel()
	w.debouncer.CancelAll()
	w.debouncer.Wait()
	w.wg.Wait()

	if w.fsWatcher != nil {
		w.fsWatcher.Close()
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	return &WatchSummary{
		FilesChanged:   w.filesChanged,
		FilesUnchanged: w.filesUnchanged,
		Errors:         w.errors,
		Duration:       time.Since(w.startTime),
	}
}

// processEvents feeds fsnotify events into the debouncer.
func (w *Watcher) processEvents() {
	defer w.wg.Done()

	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if w.filter.ShouldIgnore(event.Name) {
				continue
			}
			w.debouncer.Add(event.Name)
		case _, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.mu.Lock()
			w.errors++
			w.mu.Unlock()
		}
	}
}

// processFile runs after the debounce delay. It waits for the file to
// stabilize, then hands it to the handler. Lifetime is tracked by the
// debouncer's wait group, claimed when the callback was scheduled.
func (w *Watcher) processFile(path string) {
	select {
	case <-w.done:
		return
	default:
	}

	if err := w.stability.WaitForStable(w.ctx, path); err != nil {
		if errors.Is(err, context.Canceled) {
			// Shutdown interrupted the wait; not a file problem.
			return
		}
		// Deleted mid-debounce or never stabilized; either way there is
		// nothing useful to process.
		w.mu.Lock()
		w.errors++
		w.mu.Unlock()
		return
	}

	if w.handler == nil {
		return
	}

	changed, err := w.handler(path)
	w.mu.Lock()
	switch {
	case err != nil:
		w.errors++
	case changed:
		w.filesChanged++
	default:
		w.filesUnchanged++
	}
	w.mu.Unlock()
}

// IsRunning reports whether the watcher is active.
func (w *Watcher) IsRunning() bool {
	select {
	case <-w.done:
		return false
	default:
		return w.fsWatcher != nil
	}
}
