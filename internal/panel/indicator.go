package panel

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/sweeney/panel-link/internal/clock"
	"github.com/sweeney/panel-link/internal/flasher"
	"github.com/sweeney/panel-link/internal/logic"
	"github.com/sweeney/panel-link/internal/mathx"
	"github.com/sweeney/panel-link/internal/output"
	"github.com/sweeney/panel-link/internal/timer"
)

const (
	brightness = 255

	// DefaultFrame is the default render interval (50 fps).
	DefaultFrame = 20 * time.Millisecond

	// DefaultPulse is how long the activity effect lasts.
	DefaultPulse = 1500 * time.Millisecond
)

// style is how pixels look in one state. Each pixel runs at its own random
// period between min and max so the panel never blinks in lockstep.
type style struct {
	pattern  flasher.Pattern
	period   time.Duration
	min, max time.Duration
	rgb      [3]byte
}

var styles = map[logic.State]style{
	logic.StateStable:   {flasher.Sin, 1600 * time.Millisecond, 1200 * time.Millisecond, 2000 * time.Millisecond, [3]byte{0x00, 0x60, 0xFF}},
	logic.StateWarning:  {flasher.OnOff, 800 * time.Millisecond, 600 * time.Millisecond, 1000 * time.Millisecond, [3]byte{0xFF, 0x80, 0x00}},
	logic.StateCritical: {flasher.Flash, 400 * time.Millisecond, 300 * time.Millisecond, 500 * time.Millisecond, [3]byte{0xFF, 0x00, 0x00}},
	logic.StateUnknown:  {flasher.RandomReverseFlash, 500 * time.Millisecond, 400 * time.Millisecond, 600 * time.Millisecond, [3]byte{0x80, 0x00, 0xFF}},
}

// IndicatorConfig configures an Indicator.
type IndicatorConfig struct {
	Panel logic.Panel
	// RespectBootup keeps the panel dark until its bootup bit is set.
	// Only meaningful with frames that carry the mask.
	RespectBootup bool
	Pixels        int
	// Pulse is the activity effect pattern, played once per request.
	Pulse flasher.Pattern
	Frame time.Duration
	Rand  *rand.Rand
}

// Indicator renders the shared state onto a strip of pixels.
type Indicator struct {
	cfg    IndicatorConfig
	sink   output.Sink
	rng    *rand.Rand
	pixels []*flasher.Flasher
	pulse  *flasher.Flasher
	frame  *timer.Timer

	state   logic.State
	pulsing bool
	buf     []byte
	frames  int
}

// NewIndicator creates an indicator writing to sink. The first Render call
// draws immediately.
func NewIndicator(c clock.Clock, sink output.Sink, cfg IndicatorConfig) *Indicator {
	if cfg.Frame <= 0 {
		cfg.Frame = DefaultFrame
	}
	rng := cfg.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	ind := &Indicator{
		cfg:   cfg,
		sink:  sink,
		rng:   rng,
		pulse: flasher.New(c, cfg.Pulse, DefaultPulse, brightness, flasher.WithRepeat(false), flasher.WithRand(rng)),
		frame: timer.New(c, cfg.Frame),
		state: logic.StateStable,
		buf:   make([]byte, cfg.Pixels*output.Channels),
	}
	st := styleFor(ind.state)
	for i := 0; i < cfg.Pixels; i++ {
		ind.pixels = append(ind.pixels, flasher.New(c, st.pattern, ind.period(st), brightness, flasher.WithRand(rng)))
	}
	ind.frame.ForceTrigger()
	return ind
}

// Render consumes a pending activity request, follows state changes and,
// once per frame interval, writes the next frame to the sink.
func (ind *Indicator) Render(s *logic.Shared) error {
	if s.PerformActivity {
		s.PerformActivity = false
		ind.pulse.Reset()
		ind.pulsing = true
	}
	if s.State != ind.state {
		ind.applyState(s.State)
	}
	if !ind.frame.Elapsed() {
		return nil
	}

	dark := ind.cfg.RespectBootup && !s.Bootup.Has(ind.cfg.Panel)
	st := styleFor(ind.state)

	// One pulse value per frame, shared by every pixel.
	pulse := 0
	if ind.pulsing {
		pulse = ind.pulse.Value()
		if !ind.pulse.Running() {
			ind.pulsing = false
		}
	}

	for i, f := range ind.pixels {
		v := f.Value()
		if f.EndOfCycle() {
			f.SetDelay(ind.period(st))
		}
		px := ind.buf[i*output.Channels : (i+1)*output.Channels]
		for ch := range px {
			if dark {
				px[ch] = 0
				continue
			}
			level := int(st.rgb[ch])*v/brightness + pulse
			px[ch] = byte(mathx.Clamp(level, 0, 255))
		}
	}

	ind.frames++
	if err := ind.sink.Write(ind.buf); err != nil {
		return fmt.Errorf("render frame: %w", err)
	}
	return nil
}

// Frames returns the number of frames rendered.
func (ind *Indicator) Frames() int { return ind.frames }

// Pulsing reports whether the activity effect is playing.
func (ind *Indicator) Pulsing() bool { return ind.pulsing }

func (ind *Indicator) applyState(state logic.State) {
	st := styleFor(state)
	ind.state = state
	for _, f := range ind.pixels {
		f.SetPattern(st.pattern)
		f.SetDelay(ind.period(st))
	}
}

func styleFor(state logic.State) style {
	if st, ok := styles[state]; ok {
		return st
	}
	return styles[logic.StateUnknown]
}

func (ind *Indicator) period(st style) time.Duration {
	span := int64(st.max - st.min)
	if span <= 0 {
		return st.period
	}
	return st.min + time.Duration(ind.rng.Int63n(span))
}
