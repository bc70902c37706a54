package main

import (
	"io"
	"math/rand"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/sweeney/panel-link/internal/clock"
	"github.com/sweeney/panel-link/internal/config"
	"github.com/sweeney/panel-link/internal/control"
	"github.com/sweeney/panel-link/internal/gpio"
	"github.com/sweeney/panel-link/internal/logic"
	"github.com/sweeney/panel-link/internal/mqtt"
	"github.com/sweeney/panel-link/internal/output"
	"github.com/sweeney/panel-link/internal/panel"
	"github.com/sweeney/panel-link/internal/status"
	"github.com/sweeney/panel-link/internal/timer"
)

// deps are the daemon's collaborators. Tests pass fakes.
type deps struct {
	clock     clock.Clock
	port      io.ReadWriter
	reader    gpio.Reader // nil disables activity detection
	sink      output.Sink
	publisher mqtt.Publisher
	tracker   *status.Tracker // may be nil
	rng       *rand.Rand
	start     time.Time
	getenv    func(string) string
}

// daemon owns the shared state and runs one tick of the control loop at a
// time. Not safe for concurrent use.
type daemon struct {
	cfg       config.Config
	log       zerolog.Logger
	shared    logic.Shared
	reader    gpio.Reader
	detector  *logic.Detector
	link      control.Link
	director  *panel.Director // master only
	indicator *panel.Indicator
	recorder  *logic.Recorder
	publisher mqtt.Publisher
	tracker   *status.Tracker
	getenv    func(string) string

	renderFailing bool
}

func newDaemon(cfg config.Config, d deps) (*daemon, error) {
	if d.getenv == nil {
		d.getenv = os.Getenv
	}
	if d.publisher == nil {
		d.publisher = mqtt.NopPublisher{}
	}
	if d.sink == nil {
		d.sink = output.Discard{}
	}

	var holdoff *timer.Timer
	if cfg.Holdoff > 0 {
		holdoff = timer.New(d.clock, cfg.Holdoff)
		holdoff.ForceTrigger()
	}

	layout := cfg.FrameLayout()
	dm := &daemon{
		cfg:       cfg,
		log:       log.With().Str("component", "loop").Logger(),
		reader:    d.reader,
		detector:  logic.NewDetector(holdoff),
		recorder:  logic.NewRecorder(d.start),
		publisher: d.publisher,
		tracker:   d.tracker,
		getenv:    d.getenv,
		indicator: panel.NewIndicator(d.clock, d.sink, panel.IndicatorConfig{
			Panel:         cfg.PanelID(),
			RespectBootup: layout.HasBootup(),
			Pixels:        cfg.LEDs.Pixels,
			Pulse:         cfg.PulsePattern(),
			Frame:         cfg.LEDs.FrameDur,
			Rand:          d.rng,
		}),
	}

	if cfg.IsMaster() {
		order, err := cfg.BootupOrder()
		if err != nil {
			return nil, err
		}
		dm.link = control.NewMaster(d.port, d.clock, control.MasterConfig{
			Layout:          layout,
			SendInterval:    cfg.SendInterval,
			ActivityTimeout: cfg.ActivityTimeout,
		})
		dm.director = panel.NewDirector(d.clock, order, cfg.Director.BootupStep, cfg.Director.Rotate, d.rng)
		dm.shared = logic.Shared{State: logic.StateStable, Mode: logic.ModeAutomatic}
	} else {
		dm.link = control.NewFollower(d.port, layout)
		dm.shared = logic.Shared{State: logic.StateUnknown}
	}
	return dm, nil
}

// step runs one pass of the control loop.
func (d *daemon) step(t time.Time) {
	if d.reader != nil {
		sample, err := d.reader.Read()
		if err != nil {
			d.log.Warn().Err(err).Msg("gpio read error")
		} else if d.detector.Process(logic.Input{Switches: sample.Switches, Levels: sample.Levels}) {
			d.shared.Activity = true
			d.log.Info().Msg("visitor activity")
		}
	}

	d.link.Tick(&d.shared)

	if d.director != nil {
		d.director.Tick(&d.shared)
	}

	// Render consumes PerformActivity; events and status see it first.
	observed := d.shared
	if err := d.indicator.Render(&d.shared); err != nil {
		if !d.renderFailing {
			d.log.Warn().Err(err).Msg("render failed")
		}
		d.renderFailing = true
	} else if d.renderFailing {
		d.log.Info().Msg("render recovered")
		d.renderFailing = false
	}

	for _, event := range d.recorder.Observe(observed, t) {
		d.log.Info().
			Str("event", string(event.Type)).
			Str("state", event.Shared.State.String()).
			Str("mode", event.Shared.Mode.String()).
			Uint8("bootup", uint8(event.Shared.Bootup)).
			Msg("event")
		if err := d.publisher.Publish(event); err != nil {
			d.log.Warn().Err(err).Msg("publish error")
		}
	}

	if hb := d.recorder.CheckHeartbeat(t, d.cfg.MQTT.Heartbeat); hb != nil {
		d.log.Info().
			Dur("uptime", hb.Uptime).
			Int("state", hb.Counts.State).
			Int("mode", hb.Counts.Mode).
			Int("bootup", hb.Counts.Bootup).
			Int("perform", hb.Counts.Perform).
			Msg("heartbeat")
		if d.tracker != nil {
			d.tracker.SetNetwork(status.NetworkFromEnv(d.getenv))
		}
		d.updateTracker(observed)
		d.publishLifecycle("HEARTBEAT", "", hb.Timestamp)
		return
	}

	d.updateTracker(observed)
}

func (d *daemon) updateTracker(s logic.Shared) {
	if d.tracker == nil {
		return
	}
	d.tracker.Update(s, d.link.Stats(), d.recorder.IsBaselined(), d.recorder.Counts())
	if cs, ok := d.publisher.(mqtt.ConnectionStatus); ok {
		d.tracker.SetMQTTConnected(cs.IsConnected())
	}
}

// publishLifecycle sends a retained system event carrying the full status.
func (d *daemon) publishLifecycle(event, reason string, t time.Time) {
	se := mqtt.SystemEvent{
		Timestamp: t,
		Event:     event,
		Reason:    reason,
		Retained:  true,
	}
	if d.tracker != nil {
		if cs, ok := d.publisher.(mqtt.ConnectionStatus); ok {
			d.tracker.SetMQTTConnected(cs.IsConnected())
		}
		se.RawPayload = status.FormatStatusEvent(d.tracker.Snapshot(), event, reason)
	}
	if err := d.publisher.PublishSystem(se); err != nil {
		d.log.Warn().Err(err).Str("event", event).Msg("system publish error")
		return
	}
	d.log.Info().Str("event", event).Msg("published system event")
}
