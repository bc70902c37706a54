package logic

import (
	"github.com/sweeney/panel-link/internal/mathx"
	"github.com/sweeney/panel-link/internal/timer"
)

const (
	levelMax       = 1023
	levelSteps     = 10
	levelTolerance = 2
)

// Input is one sample of the panel controls.
type Input struct {
	// Switches holds toggle and push-button positions, including the
	// multiplexed bank.
	Switches []bool
	// Levels holds raw potentiometer readings in 0..1023.
	Levels []int
}

// Detector turns control samples into visitor activity.
type Detector struct {
	holdoff *timer.Timer

	switches  []bool
	levels    []int // scaled to 0..levelSteps
	baselined bool
	pending   bool
	reports   int
}

// NewDetector creates an activity detector. If holdoff is non-nil, reports
// are at least one holdoff delay apart; a change inside the window is
// reported when it ends.
func NewDetector(holdoff *timer.Timer) *Detector {
	return &Detector{holdoff: holdoff}
}

// Process takes a new sample and reports whether a visitor moved a control.
// The first sample, and any sample whose shape differs from the previous
// one, only sets the baseline.
func (d *Detector) Process(in Input) bool {
	levels := make([]int, len(in.Levels))
	for i, v := range in.Levels {
		levels[i] = scaleLevel(v)
	}

	if !d.baselined || len(in.Switches) != len(d.switches) || len(levels) != len(d.levels) {
		d.switches = append(d.switches[:0], in.Switches...)
		d.levels = levels
		d.baselined = true
		return false
	}

	for i, on := range in.Switches {
		if on != d.switches[i] {
			d.switches[i] = on
			d.pending = true
		}
	}
	// The reference level only follows moves outside the tolerance.
	for i, v := range levels {
		prev := d.levels[i]
		if !mathx.InRange(v, prev-levelTolerance, prev+levelTolerance) {
			d.levels[i] = v
			d.pending = true
		}
	}

	if !d.pending {
		return false
	}
	if d.holdoff != nil && !d.holdoff.Elapsed() {
		return false
	}
	d.pending = false
	d.reports++
	return true
}

// IsBaselined returns whether the detector has seen its first sample.
func (d *Detector) IsBaselined() bool {
	return d.baselined
}

// Reports returns the number of activity reports since startup.
func (d *Detector) Reports() int {
	return d.reports
}

func scaleLevel(v int) int {
	return mathx.Map(mathx.Clamp(v, 0, levelMax), 0, levelMax, 0, levelSteps)
}
