// Package logic contains the shared installation state and the pure rules
// that change it. This package has NO I/O (no serial, GPIO, MQTT or LEDs).
// Time is always injectable, either as a time.Time or through clock.Clock.
package logic

import (
	"fmt"
	"math/bits"
	"time"
)

// State is the installation-wide alarm level carried in every frame.
type State uint8

const (
	StateStable State = iota
	StateWarning
	StateCritical
	StateUnknown
)

func (s State) String() string {
	switch s {
	case StateStable:
		return "STABLE"
	case StateWarning:
		return "WARNING"
	case StateCritical:
		return "CRITICAL"
	case StateUnknown:
		return "UNKNOWN"
	}
	return fmt.Sprintf("State(%d)", uint8(s))
}

// Valid reports whether s fits the wire encoding.
func (s State) Valid() bool { return s <= StateUnknown }

// Mode selects whether the master drives the state itself or a visitor does.
type Mode uint8

const (
	ModeAutomatic Mode = iota
	ModeManual
)

func (m Mode) String() string {
	switch m {
	case ModeAutomatic:
		return "AUTOMATIC"
	case ModeManual:
		return "MANUAL"
	}
	return fmt.Sprintf("Mode(%d)", uint8(m))
}

// Valid reports whether m fits the wire encoding.
func (m Mode) Valid() bool { return m <= ModeManual }

// Panel identifies one of the seven panels, 'A' through 'G'.
type Panel byte

const (
	PanelA Panel = 'A' + iota
	PanelB
	PanelC
	PanelD
	PanelE
	PanelF
	PanelG
)

// AllPanels lists every panel in bootup-bit order.
var AllPanels = []Panel{PanelA, PanelB, PanelC, PanelD, PanelE, PanelF, PanelG}

// ParsePanel accepts a single letter A-G (either case).
func ParsePanel(s string) (Panel, error) {
	if len(s) != 1 {
		return 0, fmt.Errorf("invalid panel %q", s)
	}
	c := s[0]
	if c >= 'a' && c <= 'z' {
		c -= 'a' - 'A'
	}
	p := Panel(c)
	if !p.Valid() {
		return 0, fmt.Errorf("invalid panel %q", s)
	}
	return p, nil
}

func (p Panel) String() string { return string(rune(p)) }

// Valid reports whether p is A-G.
func (p Panel) Valid() bool { return p >= PanelA && p <= PanelG }

// Bit returns the bootup-mask bit for p (A is bit 0).
func (p Panel) Bit() BootupMask {
	if !p.Valid() {
		return 0
	}
	return 1 << (p - PanelA)
}

// BootupMask has one bit per powered-up panel.
type BootupMask uint8

// BootupAll has every panel powered.
const BootupAll BootupMask = 0x7F

// Has reports whether p is powered.
func (m BootupMask) Has(p Panel) bool { return m&p.Bit() != 0 }

// With returns m with p powered.
func (m BootupMask) With(p Panel) BootupMask { return m | p.Bit() }

// Valid reports whether only panel bits are set.
func (m BootupMask) Valid() bool { return m&^BootupAll == 0 }

// Count returns the number of powered panels.
func (m BootupMask) Count() int { return bits.OnesCount8(uint8(m)) }

// Names lists the powered panels in order, e.g. ["A" "C"]. Never nil.
func (m BootupMask) Names() []string {
	out := []string{}
	for _, p := range AllPanels {
		if m.Has(p) {
			out = append(out, p.String())
		}
	}
	return out
}

// Shared is the process-wide state read by the display and written by the
// codec, the detector and the director. Writers replace it as a whole.
type Shared struct {
	State State
	Mode  Mode
	// Activity is set when a visitor touched this panel and is cleared
	// once the link has carried it on.
	Activity bool
	// PerformActivity latches a master request to play the activity
	// effect. The display clears it when it starts the effect.
	PerformActivity bool
	Bootup          BootupMask
}

// EventType names a change in the shared state.
type EventType string

const (
	EventState   EventType = "STATE"
	EventMode    EventType = "MODE"
	EventBootup  EventType = "BOOTUP"
	EventPerform EventType = "PERFORM"
)

// Event is a shared-state change to be published. Shared is the state
// after the change.
type Event struct {
	Timestamp time.Time
	Type      EventType
	Shared    Shared
}

// EventCounts tracks the number of each event type since startup.
type EventCounts struct {
	State   int
	Mode    int
	Bootup  int
	Perform int
}

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
	Counts    EventCounts
}
