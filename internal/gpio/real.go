//go:build linux

package gpio

import (
	"errors"
	"fmt"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

// muxSettle is how long the multiplexer output needs after an address change.
const muxSettle = 10 * time.Microsecond

// RealReader reads controls from actual hardware using Linux GPIO character device.
type RealReader struct {
	chip     *gpiocdev.Chip
	switches *gpiocdev.Lines
	muxAddr  *gpiocdev.Lines
	muxIn    *gpiocdev.Line

	nSwitches   int
	muxChannels int
	values      []int
	addr        []int
}

// NewRealReader requests the configured lines.
func NewRealReader(cfg Config) (*RealReader, error) {
	chip, err := gpiocdev.NewChip(cfg.Chip)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip %s: %w", cfg.Chip, err)
	}
	r := &RealReader{
		chip:      chip,
		nSwitches: len(cfg.Switches),
		values:    make([]int, len(cfg.Switches)),
		addr:      make([]int, len(cfg.MuxSelect)),
	}

	// Switches close to ground, so read them active-low with pull-ups.
	if len(cfg.Switches) > 0 {
		r.switches, err = chip.RequestLines(cfg.Switches, gpiocdev.AsInput, gpiocdev.WithPullUp, gpiocdev.AsActiveLow)
		if err != nil {
			r.Close()
			return nil, fmt.Errorf("request switch pins %v: %w", cfg.Switches, err)
		}
	}

	if len(cfg.MuxSelect) > 0 && cfg.MuxChannels > 0 {
		if max := 1 << len(cfg.MuxSelect); cfg.MuxChannels > max {
			r.Close()
			return nil, fmt.Errorf("%d mux channels need more than %d select lines", cfg.MuxChannels, len(cfg.MuxSelect))
		}
		r.muxAddr, err = chip.RequestLines(cfg.MuxSelect, gpiocdev.AsOutput(r.addr...))
		if err != nil {
			r.Close()
			return nil, fmt.Errorf("request mux select pins %v: %w", cfg.MuxSelect, err)
		}
		r.muxIn, err = chip.RequestLine(cfg.MuxSignal, gpiocdev.AsInput, gpiocdev.WithPullUp, gpiocdev.AsActiveLow)
		if err != nil {
			r.Close()
			return nil, fmt.Errorf("request mux signal pin %d: %w", cfg.MuxSignal, err)
		}
		r.muxChannels = cfg.MuxChannels
	}

	return r, nil
}

// Read returns the direct switches followed by each multiplexer channel.
func (r *RealReader) Read() (Sample, error) {
	s := Sample{Switches: make([]bool, 0, r.nSwitches+r.muxChannels)}

	if r.switches != nil {
		if err := r.switches.Values(r.values); err != nil {
			return Sample{}, fmt.Errorf("read switch pins: %w", err)
		}
		for _, v := range r.values {
			s.Switches = append(s.Switches, v == 1)
		}
	}

	for ch := 0; ch < r.muxChannels; ch++ {
		for bit := range r.addr {
			r.addr[bit] = (ch >> bit) & 1
		}
		if err := r.muxAddr.SetValues(r.addr); err != nil {
			return Sample{}, fmt.Errorf("select mux channel %d: %w", ch, err)
		}
		time.Sleep(muxSettle)
		v, err := r.muxIn.Value()
		if err != nil {
			return Sample{}, fmt.Errorf("read mux channel %d: %w", ch, err)
		}
		s.Switches = append(s.Switches, v == 1)
	}

	return s, nil
}

// Close releases GPIO resources.
// Outputs are returned to inputs with pull-down before the lines are
// released so the multiplexer is not left driven.
func (r *RealReader) Close() error {
	var errs []error

	if r.muxAddr != nil {
		if err := r.muxAddr.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure mux select pins: %w", err))
		}
		if err := r.muxAddr.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close mux select pins: %w", err))
		}
	}
	if r.muxIn != nil {
		if err := r.muxIn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close mux signal pin: %w", err))
		}
	}
	if r.switches != nil {
		if err := r.switches.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close switch pins: %w", err))
		}
	}
	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %w", errors.Join(errs...))
	}
	return nil
}
