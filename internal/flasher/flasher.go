// Package flasher generates time-varying LED intensities.
//
// A Flasher is a lazy, pull-based oscillator: nothing runs in the
// background, and each Value call advances the waveform by however many
// whole steps have passed on the microsecond clock since the previous
// advance. Calling Value mutates the phase, so a caller that needs the same
// intensity twice in one loop iteration must keep the first result.
package flasher

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/sweeney/panel-link/internal/clock"
	"github.com/sweeney/panel-link/internal/mathx"
)

// Pattern selects the waveform.
type Pattern int

const (
	// Solid holds the maximum amplitude.
	Solid Pattern = iota
	// OnOff is a square wave with a 50% duty cycle.
	OnOff
	// Sin is a rectified half-sine that rises and falls once per period.
	Sin
	// RampUp is a sawtooth from 0 to max over the period.
	RampUp
	// Flash is on for a tenth of the period and off for the rest.
	Flash
	// RandomFlash is a fixed short pulse followed by a random dark gap.
	RandomFlash
	// RandomReverseFlash is mostly on with brief random dropouts.
	RandomReverseFlash
)

var patternNames = [...]string{
	Solid:              "solid",
	OnOff:              "on-off",
	Sin:                "sin",
	RampUp:             "ramp-up",
	Flash:              "flash",
	RandomFlash:        "random-flash",
	RandomReverseFlash: "random-reverse-flash",
}

func (p Pattern) String() string {
	if p >= 0 && int(p) < len(patternNames) {
		return patternNames[p]
	}
	return fmt.Sprintf("Pattern(%d)", int(p))
}

// ParsePattern returns the Pattern with the given name.
func ParsePattern(s string) (Pattern, error) {
	for i, name := range patternNames {
		if name == s {
			return Pattern(i), nil
		}
	}
	return Solid, fmt.Errorf("unknown pattern %q", s)
}

const (
	sinSteps = 180

	flashOnMicros       = 100_000
	dropoutMinMicros    = 50_000
	dropoutMaxMicros    = 150_000
	maxVariableCatchUps = 64
)

// Option configures a Flasher.
type Option func(*Flasher)

// WithRand sets the random source used by the random patterns.
func WithRand(r *rand.Rand) Option {
	return func(f *Flasher) { f.rng = r }
}

// WithRepeat sets the initial repeat flag (default true).
func WithRepeat(repeat bool) Option {
	return func(f *Flasher) { f.repeat = repeat }
}

// Flasher is a stateful waveform generator.
// Not safe for concurrent use.
type Flasher struct {
	clock clock.Clock
	rng   *rand.Rand

	pattern Pattern
	period  uint32 // microseconds
	max     int

	phase      int
	stepMicros uint32
	last       uint32

	repeat bool
	done   bool
	cycled bool
}

// New creates a Flasher producing values in [0, max] with the given period.
// A zero or negative period runs the pattern at the maximum step rate.
func New(c clock.Clock, p Pattern, period time.Duration, max int, opts ...Option) *Flasher {
	f := &Flasher{
		clock:   c,
		pattern: p,
		period:  toMicros(period),
		max:     mathx.Clamp(max, 0, math.MaxInt32),
		repeat:  true,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.rng == nil {
		f.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	f.Reset()
	return f
}

// Value advances the waveform to now and returns the current intensity.
func (f *Flasher) Value() int {
	f.cycled = false
	if f.done {
		return 0
	}
	f.catchUp(f.clock.Micros())
	if f.done {
		return 0
	}
	return mathx.Clamp(f.level(), 0, f.max)
}

// EndOfCycle reports whether the most recent Value call completed a period.
func (f *Flasher) EndOfCycle() bool {
	return f.cycled
}

// Reset restarts the waveform at phase 0 and re-enables a finished one-shot.
func (f *Flasher) Reset() {
	f.phase = 0
	f.done = false
	f.cycled = false
	f.last = f.clock.Micros()
	f.stepMicros = f.stepFor(0)
}

// SetPattern switches the waveform. A different pattern restarts from phase
// 0; setting the current pattern again does nothing.
func (f *Flasher) SetPattern(p Pattern) {
	if p == f.pattern {
		return
	}
	f.pattern = p
	f.Reset()
}

// SetDelay changes the period without restarting the waveform.
func (f *Flasher) SetDelay(period time.Duration) {
	us := toMicros(period)
	if us == f.period {
		return
	}
	f.period = us
	if f.phase >= f.cycleSteps() {
		f.phase = 0
	}
	f.stepMicros = f.stepFor(f.phase)
}

// SetRepeat controls whether the waveform repeats. With repeat off the
// output freezes at 0 after one full cycle until Reset is called.
func (f *Flasher) SetRepeat(repeat bool) {
	if repeat && f.done {
		f.done = false
		f.last = f.clock.Micros()
	}
	f.repeat = repeat
}

// Pattern returns the current pattern.
func (f *Flasher) Pattern() Pattern { return f.pattern }

// Period returns the current period.
func (f *Flasher) Period() time.Duration {
	return time.Duration(f.period) * time.Microsecond
}

// Max returns the maximum amplitude.
func (f *Flasher) Max() int { return f.max }

// Running reports whether a one-shot waveform is still producing output.
func (f *Flasher) Running() bool { return !f.done }

// catchUp advances by the whole steps elapsed since the last advance and
// carries the remainder into the next call. Uniform patterns advance in a
// single division. Patterns whose step length changes with the phase are
// walked one step at a time; if the backlog is more than
// maxVariableCatchUps steps deep the excess is dropped.
func (f *Flasher) catchUp(now uint32) {
	for i := 0; i < maxVariableCatchUps; i++ {
		elapsed := now - f.last
		if elapsed < f.stepMicros {
			return
		}
		steps := elapsed / f.stepMicros
		if f.variableSteps() {
			steps = 1
		}
		f.last += steps * f.stepMicros
		f.advance(steps)
		if f.done {
			return
		}
	}
	f.last = now
}

func (f *Flasher) advance(steps uint32) {
	n := uint64(f.cycleSteps())
	total := uint64(f.phase) + uint64(steps)
	if total >= n {
		f.cycled = true
		if !f.repeat {
			f.done = true
			f.phase = 0
			f.stepMicros = f.stepFor(0)
			return
		}
	}
	f.phase = int(total % n)
	f.stepMicros = f.stepFor(f.phase)
}

func (f *Flasher) cycleSteps() int {
	switch f.pattern {
	case OnOff, Flash, RandomFlash, RandomReverseFlash:
		return 2
	case Sin:
		return sinSteps
	case RampUp:
		return f.max + 1
	default:
		return 1
	}
}

func (f *Flasher) variableSteps() bool {
	switch f.pattern {
	case Flash, RandomFlash, RandomReverseFlash:
		return true
	}
	return false
}

// stepFor returns how long the given phase lasts, never less than 1us.
func (f *Flasher) stepFor(phase int) uint32 {
	p := uint64(f.period)
	var d uint64
	switch f.pattern {
	case OnOff:
		d = p / 2
	case Sin:
		d = p / sinSteps
	case RampUp:
		d = p / uint64(f.max+1)
	case Flash:
		if phase == 0 {
			d = p / 10
		} else {
			d = p * 9 / 10
		}
	case RandomFlash:
		if phase == 0 {
			d = flashOnMicros
		} else {
			d = f.between(p/2, p*3/2)
		}
	case RandomReverseFlash:
		if phase == 0 {
			d = f.between(p/2, p*3/2)
		} else {
			d = f.between(dropoutMinMicros, dropoutMaxMicros)
		}
	default:
		d = p
	}
	return uint32(mathx.Clamp(d, 1, math.MaxUint32))
}

// between returns a uniform value in [lo, hi), or lo for an empty range.
func (f *Flasher) between(lo, hi uint64) uint64 {
	if hi <= lo {
		return lo
	}
	return lo + uint64(f.rng.Int63n(int64(hi-lo)))
}

func (f *Flasher) level() int {
	switch f.pattern {
	case OnOff, Flash, RandomFlash, RandomReverseFlash:
		if f.phase == 0 {
			return f.max
		}
		return 0
	case Sin:
		return int(math.Round(float64(f.max) * math.Sin(float64(f.phase)*math.Pi/180)))
	case RampUp:
		return f.phase
	default:
		return f.max
	}
}

func toMicros(d time.Duration) uint32 {
	if d <= 0 {
		return 0
	}
	return uint32(mathx.Clamp(d.Microseconds(), 0, math.MaxUint32))
}
