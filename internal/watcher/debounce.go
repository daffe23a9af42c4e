package watcher

import (
	"sync"
	"time"
)

// Debouncer coalesces rapid events for the same path, invoking the callback
// once after the delay expires with no further events for that path. Every
// scheduled callback is tracked so Wait can join in-flight work during
// shutdown.
type Debouncer struct {
	delay    time.Duration
	callback func(path string)

	mu      sync.Mutex
	wg      sync.WaitGroup
	pending map[string]*time.Timer
}

// NewDebouncer creates a Debouncer with the given delay and callback.
func NewDebouncer(delay time.Duration, callback func(path string)) *Debouncer {
	return &Debouncer{
		delay:    delay,
		callback: callback,
		pending:  make(map[string]*time.Timer),
	}
}

// Add schedules a path for processing after the delay, resetting any timer
// already pending for it. The wait-group slot is claimed here, before the
// timer can fire, so Wait never misses a callback that is about to start.
func (d *Debouncer) Add(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if timer, exists := d.pending[path]; exists {
		if !timer.Stop() {
			// Already fired; the running callback owns the old slot and
			// the replacement timer needs its own.
			d.wg.Add(1)
		}
	} else {
		d.wg.Add(1)
	}

	var t *time.Timer
	t = time.AfterFunc(d.delay, func() {
		defer d.wg.Done()

		d.mu.Lock()
		if d.pending[path] == t {
			delete(d.pending, path)
		}
		d.mu.Unlock()

		// Callback runs outside the lock so it may call back into the
		// debouncer.
		if d.callback != nil {
			d.callback(path)
		}
	})
	d.pending[path] = t
}

// CancelAll stops all pending timers. Timers that already fired keep their
// wait-group slot; their callbacks are joined by Wait.
func (d *Debouncer) CancelAll() {
	d.mu.Lock()
	defer d.mu.Unlock()

	for path, timer := range d.pending {
		if timer.Stop() {
			d.wg.Done()
		}
		delete(d.pending, path)
	}
}

// Wait blocks until every scheduled callback has been canceled or has
// finished running.
func (d *Debouncer) Wait() {
	d.wg.Wait()
}

// PendingCount returns the number of paths currently pending.
func (d *Debouncer) PendingCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}
