// Package clock provides the free-running tick counters that timers and
// flashers are measured against. Counters are unsigned 32-bit and wrap, like
// the millis()/micros() counters on the panel microcontrollers, so every
// consumer must compare ticks with modular subtraction.
package clock

import "time"

// Clock reports wrapping millisecond and microsecond tick counts.
type Clock interface {
	// Millis wraps after ~49.7 days.
	Millis() uint32
	// Micros wraps after ~71.6 minutes.
	Micros() uint32
}

// System is a Clock backed by the Go monotonic clock.
type System struct {
	start time.Time
}

// NewSystem returns a System clock whose counters start at zero now.
func NewSystem() *System {
	return &System{start: time.Now()}
}

// Millis returns milliseconds since the clock was created, truncated to 32 bits.
func (s *System) Millis() uint32 {
	return uint32(time.Since(s.start).Milliseconds())
}

// Micros returns microseconds since the clock was created, truncated to 32 bits.
func (s *System) Micros() uint32 {
	return uint32(time.Since(s.start).Microseconds())
}
