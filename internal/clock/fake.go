package clock

import "time"

// Fake is a manually advanced Clock for tests.
// Not safe for concurrent use.
type Fake struct {
	elapsed  time.Duration
	msOffset uint32
	usOffset uint32
}

// NewFake returns a Fake clock with both counters at zero.
func NewFake() *Fake {
	return &Fake{}
}

// NewFakeAt returns a Fake clock whose counters start at the given values.
// Useful for placing the counters just below their wrap point.
func NewFakeAt(ms, us uint32) *Fake {
	return &Fake{msOffset: ms, usOffset: us}
}

// Advance moves both counters forward by d. Negative durations are ignored.
func (f *Fake) Advance(d time.Duration) {
	if d < 0 {
		return
	}
	f.elapsed += d
}

// Elapsed returns the total duration the clock has been advanced.
func (f *Fake) Elapsed() time.Duration {
	return f.elapsed
}

// Millis returns the wrapping millisecond counter.
func (f *Fake) Millis() uint32 {
	return f.msOffset + uint32(f.elapsed.Milliseconds())
}

// Micros returns the wrapping microsecond counter.
func (f *Fake) Micros() uint32 {
	return f.usOffset + uint32(f.elapsed.Microseconds())
}
