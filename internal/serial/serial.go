// Package serial provides the byte link between neighbouring panels.
// The real implementation uses a UART through go.bug.st/serial.
// The fake implementation allows testing without hardware.
package serial

import (
	"fmt"
	"io"
	"time"

	bugst "go.bug.st/serial"
)

// DefaultReadTimeout bounds how long Read waits for the first byte. The
// control loop calls Read once per tick, so this caps the time a quiet
// line costs per iteration.
const DefaultReadTimeout = 5 * time.Millisecond

// Port is a serial connection. Read returns 0, nil when nothing arrived
// within the read timeout.
type Port interface {
	io.Reader
	io.Writer
	io.Closer
}

// Open opens name at baud, 8N1, with DefaultReadTimeout.
func Open(name string, baud int) (Port, error) {
	mode := &bugst.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   bugst.NoParity,
		StopBits: bugst.OneStopBit,
	}
	p, err := bugst.Open(name, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", name, err)
	}
	if err := p.SetReadTimeout(DefaultReadTimeout); err != nil {
		p.Close()
		return nil, fmt.Errorf("set read timeout on %s: %w", name, err)
	}
	// Drop whatever queued up before we were listening.
	if err := p.ResetInputBuffer(); err != nil {
		p.Close()
		return nil, fmt.Errorf("reset input buffer on %s: %w", name, err)
	}
	return p, nil
}

// List returns the serial ports present on this machine.
func List() ([]string, error) {
	ports, err := bugst.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("list serial ports: %w", err)
	}
	return ports, nil
}
