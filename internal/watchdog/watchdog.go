// Package watchdog ends a game session after a period without activity.
package watchdog

import (
	"context"
	"sync"
	"time"
)

// Watchdog measures time since the last Ping. It fires at most once; a new
// session needs a new Watchdog.
type Watchdog struct {
	timeout  time.Duration
	interval time.Duration
	now      func() time.Time

	mu      sync.Mutex
	last    time.Time
	running bool
	fired   bool
}

// New creates a stopped watchdog
func New(timeout, interval time.Duration) *Watchdog {
	return &Watchdog{
		timeout:  timeout,
		interval: interval,
		now:      time.Now,
	}
}

// Ping starts or resets the countdown
func (w *Watchdog) Ping() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.last = w.now()
	w.running = true
}

// Stop clears the countdown until the next Ping
func (w *Watchdog) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.running = false
}

// Check reports true exactly once, the first time it is called after the
// timeout elapsed since the last Ping.
func (w *Watchdog) Check() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.fired || !w.running {
		return false
	}
	if w.now().Sub(w.last) <= w.timeout {
		return false
	}
	w.fired = true
	w.running = false
	return true
}

// Run polls Check every interval and calls onTimeout once when it trips. It
// returns after firing or when ctx is done.
func (w *Watchdog) Run(ctx context.Context, onTimeout func()) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if w.Check() {
				onTimeout()
				return
			}
		}
	}
}
