package control

import (
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/sweeney/panel-link/internal/clock"
	"github.com/sweeney/panel-link/internal/logic"
	"github.com/sweeney/panel-link/internal/timer"
)

const (
	// DefaultSendInterval is how often the master originates a frame.
	DefaultSendInterval = 100 * time.Millisecond
	// DefaultActivityTimeout is how long manual mode lasts after the last
	// visitor activity.
	DefaultActivityTimeout = 60 * time.Second

	readChunk = 64
)

// Stats counts link traffic since startup.
type Stats struct {
	FramesOK       uint64 `json:"frames_ok"`
	ChecksumErrors uint64 `json:"checksum_errors"`
	LengthErrors   uint64 `json:"length_errors"`
	FieldErrors    uint64 `json:"field_errors"`
	Overflows      uint64 `json:"overflows"`
	FramesSent     uint64 `json:"frames_sent"`
	EchoErrors     uint64 `json:"echo_errors"`
}

// Dropped returns the number of frames discarded on receive.
func (s Stats) Dropped() uint64 {
	return s.ChecksumErrors + s.LengthErrors + s.FieldErrors
}

// Link is one panel's end of the ring. Tick is called once per control
// loop iteration and never blocks longer than the port's read timeout.
type Link interface {
	Tick(s *logic.Shared)
	Stats() Stats
}

// port is the link's view of a serial port.
type port interface {
	io.Reader
	io.Writer
}

// conn holds the parts shared by both roles.
type conn struct {
	port   port
	layout Layout
	rx     *receiver
	stats  Stats
	buf    []byte
	log    zerolog.Logger
}

func newConn(p port, l Layout, role string) *conn {
	c := &conn{
		port:   p,
		layout: l,
		buf:    make([]byte, readChunk),
		log:    log.With().Str("component", "link").Str("role", role).Logger(),
	}
	c.rx = newReceiver(l, &c.stats, c.log)
	return c
}

func (c *conn) receive(handle func(Frame)) {
	if err := c.rx.drain(c.port, c.buf, handle); err != nil {
		c.log.Warn().Err(err).Msg("serial read failed")
	}
}

func (c *conn) write(f Frame) error {
	b := f.Marshal(c.layout)
	n, err := c.port.Write(b)
	if err == nil && n != len(b) {
		err = fmt.Errorf("short write: %d of %d bytes", n, len(b))
	}
	if err != nil {
		c.stats.EchoErrors++
		return fmt.Errorf("write frame: %w", err)
	}
	c.stats.FramesSent++
	return nil
}

// MasterConfig configures the master role.
type MasterConfig struct {
	Layout          Layout
	SendInterval    time.Duration
	ActivityTimeout time.Duration
}

// Master originates frames and turns returning activity into manual mode.
type Master struct {
	*conn
	send    *timer.Timer
	timeout *timer.Timer
}

// NewMaster creates the master end of the ring. Zero durations in cfg take
// the defaults.
func NewMaster(p io.ReadWriter, c clock.Clock, cfg MasterConfig) *Master {
	if cfg.SendInterval <= 0 {
		cfg.SendInterval = DefaultSendInterval
	}
	if cfg.ActivityTimeout <= 0 {
		cfg.ActivityTimeout = DefaultActivityTimeout
	}
	return &Master{
		conn:    newConn(p, cfg.Layout, "master"),
		send:    timer.New(c, cfg.SendInterval),
		timeout: timer.New(c, cfg.ActivityTimeout),
	}
}

// Tick reads returning frames, sends the next frame when due and expires
// manual mode.
//
// The master never adopts state from the ring; it only picks up the
// activity flag that followers ORed into its own frame.
func (m *Master) Tick(s *logic.Shared) {
	m.receive(func(f Frame) {
		if f.Activity {
			s.Activity = true
		}
	})

	if m.send.Elapsed() {
		perform := s.Activity
		if perform {
			m.timeout.ResetDelay()
			s.Mode = logic.ModeManual
			s.PerformActivity = true
		}
		f := Frame{
			State:           s.State,
			Mode:            s.Mode,
			PerformActivity: perform,
			Bootup:          s.Bootup,
		}
		if err := m.write(f); err != nil {
			m.log.Warn().Err(err).Msg("send failed")
		} else if perform {
			s.Activity = false
			m.log.Info().Str("state", s.State.String()).Msg("activity sent")
		}
	}

	if s.Mode == logic.ModeManual && m.timeout.Elapsed() {
		s.Mode = logic.ModeAutomatic
		m.log.Info().Msg("activity timeout, back to automatic")
	}
}

// Stats returns the link counters.
func (m *Master) Stats() Stats { return m.stats }

// Follower adopts the master's state and echoes each frame onwards.
type Follower struct {
	*conn
}

// NewFollower creates a follower end of the ring.
func NewFollower(p io.ReadWriter, l Layout) *Follower {
	return &Follower{conn: newConn(p, l, "follower")}
}

// Tick processes every frame that has arrived since the last call.
func (f *Follower) Tick(s *logic.Shared) {
	f.receive(func(fr Frame) {
		s.State = fr.State
		s.Mode = fr.Mode
		if f.layout.HasBootup() {
			s.Bootup = fr.Bootup
		}
		// Latched: cleared by the display, not by the next frame.
		if fr.PerformActivity {
			s.PerformActivity = true
		}

		echo := fr
		echo.Activity = fr.Activity || s.Activity
		if err := f.write(echo); err != nil {
			f.log.Warn().Err(err).Msg("echo failed")
			return
		}
		s.Activity = false
	})
}

// Stats returns the link counters.
func (f *Follower) Stats() Stats { return f.stats }
