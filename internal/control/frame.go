// Package control implements the control-data link that carries the
// installation state around the serial ring of panels.
//
// The master originates a frame every send interval. Each follower adopts
// the state it receives, ORs in its own visitor activity and echoes the
// frame to the next panel, so the master learns about activity anywhere in
// the ring when its frame comes back.
package control

import (
	"errors"
	"fmt"

	"github.com/sweeney/panel-link/internal/logic"
)

const (
	// Terminator ends every frame.
	Terminator byte = 0x0D
	// BaudRate is fixed for every panel on the ring.
	BaudRate = 57600
)

// Layout selects the frame format.
type Layout int

const (
	// LayoutBootup is [state, mode, activity, perform, bootup, checksum, 13].
	LayoutBootup Layout = iota
	// LayoutLegacy is [state, mode, activity, perform, checksum, 13].
	LayoutLegacy
)

// Size returns the frame length in bytes, terminator included.
func (l Layout) Size() int {
	if l == LayoutLegacy {
		return 6
	}
	return 7
}

// HasBootup reports whether frames carry the bootup mask.
func (l Layout) HasBootup() bool { return l != LayoutLegacy }

func (l Layout) String() string {
	if l == LayoutLegacy {
		return "legacy"
	}
	return "bootup"
}

// ParseLayout accepts "bootup" (7-byte) or "legacy" (6-byte).
func ParseLayout(s string) (Layout, error) {
	switch s {
	case "bootup", "7":
		return LayoutBootup, nil
	case "legacy", "6":
		return LayoutLegacy, nil
	}
	return LayoutBootup, fmt.Errorf("unknown frame layout %q", s)
}

// Decode errors. Unmarshal wraps these with detail; match with errors.Is.
var (
	ErrLength     = errors.New("wrong frame length")
	ErrTerminator = errors.New("missing terminator")
	ErrChecksum   = errors.New("checksum mismatch")
	ErrField      = errors.New("field out of range")
)

// Frame is one control-data message.
type Frame struct {
	State           logic.State
	Mode            logic.Mode
	Activity        bool
	PerformActivity bool
	Bootup          logic.BootupMask
}

// Checksum is the sum of b modulo 256.
func Checksum(b []byte) byte {
	var sum byte
	for _, c := range b {
		sum += c
	}
	return sum
}

// Marshal encodes f in layout l, checksum and terminator included.
func (f Frame) Marshal(l Layout) []byte {
	b := make([]byte, 0, l.Size())
	b = append(b, byte(f.State), byte(f.Mode), boolByte(f.Activity), boolByte(f.PerformActivity))
	if l.HasBootup() {
		b = append(b, byte(f.Bootup))
	}
	b = append(b, Checksum(b))
	return append(b, Terminator)
}

// Unmarshal decodes a complete frame in layout l.
func Unmarshal(b []byte, l Layout) (Frame, error) {
	size := l.Size()
	if len(b) != size {
		return Frame{}, fmt.Errorf("%w: got %d bytes, want %d", ErrLength, len(b), size)
	}
	if b[size-1] != Terminator {
		return Frame{}, fmt.Errorf("%w: last byte %#x", ErrTerminator, b[size-1])
	}
	payload := b[:size-2]
	if sum := Checksum(payload); sum != b[size-2] {
		return Frame{}, fmt.Errorf("%w: computed %#x, frame has %#x", ErrChecksum, sum, b[size-2])
	}

	f := Frame{
		State:           logic.State(b[0]),
		Mode:            logic.Mode(b[1]),
		Activity:        b[2] == 1,
		PerformActivity: b[3] == 1,
	}
	if l.HasBootup() {
		f.Bootup = logic.BootupMask(b[4])
	}
	switch {
	case !f.State.Valid():
		return Frame{}, fmt.Errorf("%w: state %d", ErrField, b[0])
	case !f.Mode.Valid():
		return Frame{}, fmt.Errorf("%w: mode %d", ErrField, b[1])
	case b[2] > 1 || b[3] > 1:
		return Frame{}, fmt.Errorf("%w: flags %d/%d", ErrField, b[2], b[3])
	case !f.Bootup.Valid():
		return Frame{}, fmt.Errorf("%w: bootup %#x", ErrField, b[4])
	}
	return f, nil
}

func boolByte(v bool) byte {
	if v {
		return 1
	}
	return 0
}
