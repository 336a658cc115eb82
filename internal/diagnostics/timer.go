package diagnostics

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// Timer measures accumulated running time. It can be stopped and restarted;
// Elapsed includes the currently running segment.
type Timer struct {
	clock   clockwork.Clock
	start   time.Time
	total   time.Duration
	running bool
}

// NewTimer creates a stopped timer. A nil clock uses the real clock.
func NewTimer(clock clockwork.Clock) *Timer {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Timer{clock: clock}
}

// Start starts the timer; it is a no-op when already running.
func (t *Timer) Start() {
	if t.running {
		return
	}
	t.start = t.clock.Now()
	t.running = true
}

// Stop stops the timer, keeping the accumulated time.
func (t *Timer) Stop() {
	if !t.running {
		return
	}
	t.total += t.clock.Since(t.start)
	t.running = false
}

// Reset stops the timer and clears the accumulated time.
func (t *Timer) Reset() {
	t.total = 0
	t.running = false
}

// Running reports whether the timer is running.
func (t *Timer) Running() bool { return t.running }

// Elapsed returns the accumulated time.
func (t *Timer) Elapsed() time.Duration {
	if t.running {
		return t.total + t.clock.Since(t.start)
	}
	return t.total
}
