package learning

import (
	"sync"
	"time"
)

// DefaultIgnoreTimeout is how long a suggestion set stays pending before it
// counts as ignored.
const DefaultIgnoreTimeout = 10 * time.Second

// Watch is a cancellable ignore timer. The UI boundary starts one when a
// suggestion set is shown; if the user selects a suggestion first, Cancel
// guarantees the expiry callback never runs, so an accepted suggestion is
// never also counted as ignored.
type Watch struct {
	timer *time.Timer

	mu        sync.Mutex
	fired     bool
	cancelled bool
}

// NewWatch schedules fn after timeout. Pass zero for the default timeout.
func NewWatch(timeout time.Duration, fn func()) *Watch {
	if timeout <= 0 {
		timeout = DefaultIgnoreTimeout
	}

	w := &Watch{}
	w.timer = time.AfterFunc(timeout, func() {
		w.mu.Lock()
		if w.cancelled {
			w.mu.Unlock()
			return
		}
		w.fired = true
		w.mu.Unlock()
		fn()
	})
	return w
}

// Cancel stops the watch. Returns true if the callback was prevented from
// running, false if it had already fired.
func (w *Watch) Cancel() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fired {
		return false
	}
	w.cancelled = true
	w.timer.Stop()
	return true
}

// Fired reports whether the expiry callback ran.
func (w *Watch) Fired() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.fired
}
