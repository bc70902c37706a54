// Package output drives a panel's indicator LEDs.
//
// A Sink takes one frame of RGB bytes (3 per pixel) at a time. Strip is a
// NeoPixel strip on SPI, Console mimics a strip in the terminal, and
// Discard and Fake are for panels without LEDs and for tests.
package output

import (
	"errors"
	"fmt"
	"io"

	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/nrzled"
	"periph.io/x/devices/v3/screen1d"
	"periph.io/x/host/v3"
)

// Channels is the number of bytes per pixel.
const Channels = 3

// stripFreq is the SPI clock that encodes the 800kHz NRZ bit stream.
const stripFreq = 2500 * physic.KiloHertz

// Sink receives LED frames.
type Sink interface {
	Write(pixels []byte) error
	Close() error
}

// Strip is a WS2812-style strip on an SPI port.
type Strip struct {
	dev    *nrzled.Dev
	closer io.Closer
}

// OpenStrip initialises the host drivers and opens the named SPI port (""
// for the first available).
func OpenStrip(port string, numPixels int) (*Strip, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("init host drivers: %w", err)
	}
	p, err := spireg.Open(port)
	if err != nil {
		return nil, fmt.Errorf("open spi port %q: %w", port, err)
	}
	s, err := NewStrip(p, numPixels)
	if err != nil {
		p.Close()
		return nil, err
	}
	s.closer = p
	return s, nil
}

// NewStrip wraps an already opened SPI port.
func NewStrip(p spi.Port, numPixels int) (*Strip, error) {
	dev, err := nrzled.NewSPI(p, &nrzled.Opts{
		NumPixels: numPixels,
		Channels:  Channels,
		Freq:      stripFreq,
	})
	if err != nil {
		return nil, fmt.Errorf("create led strip: %w", err)
	}
	return &Strip{dev: dev}, nil
}

// Write sends one frame to the strip.
func (s *Strip) Write(pixels []byte) error {
	if _, err := s.dev.Write(pixels); err != nil {
		return fmt.Errorf("write led strip: %w", err)
	}
	return nil
}

// Close turns the LEDs off and releases the port.
func (s *Strip) Close() error {
	var errs []error
	if err := s.dev.Halt(); err != nil {
		errs = append(errs, fmt.Errorf("halt led strip: %w", err))
	}
	if s.closer != nil {
		if err := s.closer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close spi port: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (s *Strip) String() string { return s.dev.String() }

// Console draws the strip as a row of coloured blocks on stdout.
type Console struct {
	dev *screen1d.Dev
}

// NewConsole creates a terminal strip of numPixels.
func NewConsole(numPixels int) *Console {
	return &Console{dev: screen1d.New(&screen1d.Opts{X: numPixels})}
}

// Write draws one frame.
func (c *Console) Write(pixels []byte) error {
	if _, err := c.dev.Write(pixels); err != nil {
		return fmt.Errorf("write console strip: %w", err)
	}
	return nil
}

// Close blanks the console strip.
func (c *Console) Close() error {
	return c.dev.Halt()
}

// Discard accepts and drops every frame.
type Discard struct{}

func (Discard) Write([]byte) error { return nil }
func (Discard) Close() error       { return nil }

// Fake is a test double that records frames.
type Fake struct {
	// Frames holds a copy of every frame written.
	Frames [][]byte

	// WriteError, if set, will be returned by Write()
	WriteError error

	// Closed tracks if Close was called
	Closed bool
}

// Write records a copy of pixels.
func (f *Fake) Write(pixels []byte) error {
	if f.WriteError != nil {
		return f.WriteError
	}
	f.Frames = append(f.Frames, append([]byte(nil), pixels...))
	return nil
}

// Last returns the most recent frame, or nil.
func (f *Fake) Last() []byte {
	if len(f.Frames) == 0 {
		return nil
	}
	return f.Frames[len(f.Frames)-1]
}

// Close marks the sink as closed.
func (f *Fake) Close() error {
	f.Closed = true
	return nil
}
