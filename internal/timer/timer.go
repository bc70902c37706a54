// Package timer provides a non-blocking millisecond deadline tracker.
//
// A Timer is polled from the panel control loop. Elapsed both tests the
// deadline and, when it has passed, schedules the next one, so a single call
// acts as a recurring alarm:
//
//	blink := timer.New(clk, 500*time.Millisecond)
//	for {
//		if blink.Elapsed() {
//			toggle()
//		}
//	}
package timer

import (
	"time"

	"github.com/sweeney/panel-link/internal/clock"
)

// Timer is a check-and-reset deadline on a wrapping millisecond counter.
// Not safe for concurrent use.
type Timer struct {
	clock  clock.Clock
	origin uint32
	delay  uint32
}

// New creates a timer with the given delay, counting from now.
// A zero delay is elapsed on every call.
func New(c clock.Clock, delay time.Duration) *Timer {
	return &Timer{
		clock:  c,
		origin: c.Millis(),
		delay:  toMillis(delay),
	}
}

// Elapsed reports whether the delay has passed since the origin. When it
// has, the origin moves to now so the next period starts immediately.
func (t *Timer) Elapsed() bool {
	now := t.clock.Millis()
	if now-t.origin >= t.delay {
		t.origin = now
		return true
	}
	return false
}

// SetDelay changes the delay and restarts the countdown.
func (t *Timer) SetDelay(delay time.Duration) {
	t.delay = toMillis(delay)
	t.origin = t.clock.Millis()
}

// ResetDelay restarts the countdown with the current delay.
func (t *Timer) ResetDelay() {
	t.origin = t.clock.Millis()
}

// ForceTrigger makes the next Elapsed call return true.
func (t *Timer) ForceTrigger() {
	t.origin = t.clock.Millis() - t.delay
}

// Delay returns the configured delay.
func (t *Timer) Delay() time.Duration {
	return time.Duration(t.delay) * time.Millisecond
}

func toMillis(d time.Duration) uint32 {
	if d <= 0 {
		return 0
	}
	ms := d.Milliseconds()
	if ms > int64(^uint32(0)) {
		return ^uint32(0)
	}
	return uint32(ms)
}
