// Package panel holds the per-panel behaviour that sits on top of the link:
// the master's director and the indicator display every panel runs.
package panel

import (
	"math/rand"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/sweeney/panel-link/internal/clock"
	"github.com/sweeney/panel-link/internal/logic"
	"github.com/sweeney/panel-link/internal/timer"
)

// rotationStates are the states the director picks from on its own.
// Unknown is reserved for the panels' fault display.
var rotationStates = []logic.State{logic.StateStable, logic.StateWarning, logic.StateCritical}

// Director runs on the master and decides what the ring shows when no
// visitor is in control: it powers panels up one at a time, then changes the
// installation state at random while in automatic mode.
type Director struct {
	order  []logic.Panel
	next   int
	boot   *timer.Timer
	rotate *timer.Timer
	rng    *rand.Rand
	log    zerolog.Logger
}

// NewDirector creates a director. The first panel in order powers up on the
// first Tick and each further panel one step later.
func NewDirector(c clock.Clock, order []logic.Panel, step, rotate time.Duration, rng *rand.Rand) *Director {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	d := &Director{
		order:  order,
		boot:   timer.New(c, step),
		rotate: timer.New(c, rotate),
		rng:    rng,
		log:    log.With().Str("component", "director").Logger(),
	}
	d.boot.ForceTrigger()
	return d
}

// Tick advances the bootup sequence and, in automatic mode, the state.
func (d *Director) Tick(s *logic.Shared) {
	if d.next < len(d.order) && d.boot.Elapsed() {
		p := d.order[d.next]
		d.next++
		s.Bootup = s.Bootup.With(p)
		d.log.Info().Str("panel", p.String()).Int("powered", s.Bootup.Count()).Msg("panel powered up")
	}

	if s.Mode == logic.ModeAutomatic && d.rotate.Elapsed() {
		next := rotationStates[d.rng.Intn(len(rotationStates))]
		if next != s.State {
			d.log.Debug().Str("from", s.State.String()).Str("to", next.String()).Msg("state rotated")
		}
		s.State = next
	}
}

// BootedUp reports whether every panel in the order has been powered.
func (d *Director) BootedUp() bool {
	return d.next >= len(d.order)
}
