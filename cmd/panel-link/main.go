// Command panel-link runs one panel of the installation: it reads the
// visitor controls, keeps the serial control ring in step, drives the
// panel's LEDs and publishes state changes to MQTT.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
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
	"github.com/sweeney/panel-link/internal/serial"
	"github.com/sweeney/panel-link/internal/status"
	"github.com/sweeney/panel-link/internal/web"
)

type options struct {
	cfg        config.Config
	logLevel   string
	printFrame bool
	listPorts  bool
	writeTo    string
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	level, err := zerolog.ParseLevel(opts.logLevel)
	if err != nil {
		log.Fatal().Err(err).Msg("bad -log-level")
	}
	zerolog.SetGlobalLevel(level)

	switch {
	case opts.listPorts:
		err = listPorts(os.Stdout)
	case opts.printFrame:
		err = printFrame(os.Stdout, opts.cfg)
	case opts.writeTo != "":
		err = config.Save(opts.writeTo, opts.cfg)
	default:
		err = run(opts.cfg)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("fatal")
	}
}

// parseFlags builds the config from flags, then lays the optional YAML file
// over it.
func parseFlags(args []string) (options, error) {
	def := config.Default()
	fs := flag.NewFlagSet("panel-link", flag.ContinueOnError)

	configPath := fs.String("config", "", "YAML config file; fields it sets override flags")
	role := fs.String("role", def.Role, "Ring role: master or follower")
	panel := fs.String("panel", def.Panel, "This panel's letter, A-G")
	layout := fs.String("layout", def.Layout, "Frame layout: bootup (7 bytes) or legacy (6 bytes)")
	port := fs.String("port", def.Serial.Port, "Serial port of the control ring")
	baud := fs.Int("baud", def.Serial.Baud, "Serial baud rate")
	poll := fs.Duration("poll", def.Poll, "Control loop interval")
	holdoff := fs.Duration("holdoff", def.Holdoff, "Minimum time between activity reports")
	sendInterval := fs.Duration("send-interval", def.SendInterval, "Master frame interval")
	activityTimeout := fs.Duration("activity-timeout", def.ActivityTimeout, "Master returns to automatic after this long without activity")
	useGPIO := fs.Bool("gpio", def.GPIO.Enabled, "Read visitor controls from GPIO")
	out := fs.String("output", def.LEDs.Output, "LED output: strip, console or none")
	pixels := fs.Int("pixels", def.LEDs.Pixels, "Indicator pixel count")
	broker := fs.String("broker", def.MQTT.Broker, "MQTT broker address (empty to disable)")
	heartbeat := fs.Duration("heartbeat", def.MQTT.Heartbeat, "Heartbeat interval (0 to disable)")
	httpAddr := fs.String("http", def.HTTP, "HTTP status address (empty to disable)")
	logLevel := fs.String("log-level", "info", "Log level: debug, info, warn, error")
	printFrameFlag := fs.Bool("print-frame", false, "Print the encoded frame for the configured layout and exit")
	listPortsFlag := fs.Bool("list-ports", false, "List serial ports and exit")
	writeConfig := fs.String("write-config", "", "Write the effective config as YAML to this path and exit")

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	cfg := def
	cfg.Role = *role
	cfg.Panel = *panel
	cfg.Layout = *layout
	cfg.Serial.Port = *port
	cfg.Serial.Baud = *baud
	cfg.Poll = *poll
	cfg.Holdoff = *holdoff
	cfg.SendInterval = *sendInterval
	cfg.ActivityTimeout = *activityTimeout
	cfg.GPIO.Enabled = *useGPIO
	cfg.LEDs.Output = *out
	cfg.LEDs.Pixels = *pixels
	cfg.MQTT.Broker = *broker
	cfg.MQTT.Heartbeat = *heartbeat
	cfg.HTTP = *httpAddr

	if *configPath != "" {
		c, err := config.Load(*configPath, cfg)
		if err != nil {
			return options{}, err
		}
		cfg = c
	}
	if err := cfg.Validate(); err != nil {
		return options{}, fmt.Errorf("invalid config: %w", err)
	}

	return options{
		cfg:        cfg,
		logLevel:   *logLevel,
		printFrame: *printFrameFlag,
		listPorts:  *listPortsFlag,
		writeTo:    *writeConfig,
	}, nil
}

func run(cfg config.Config) error {
	c := clock.NewSystem()

	port, err := serial.Open(cfg.Serial.Port, cfg.Serial.Baud)
	if err != nil {
		return err
	}
	defer port.Close()

	var reader gpio.Reader
	if cfg.GPIO.Enabled {
		r, err := gpio.NewRealReader(cfg.GPIOConfig())
		if err != nil {
			return fmt.Errorf("init gpio: %w", err)
		}
		defer r.Close()
		reader = r
	}

	sink, err := openSink(cfg)
	if err != nil {
		return err
	}
	defer sink.Close()

	var publisher mqtt.Publisher = mqtt.NopPublisher{}
	if cfg.MQTT.Broker != "" {
		topics := mqtt.TopicsFor(cfg.MQTT.Prefix, cfg.PanelID())
		p, err := mqtt.NewRealPublisher(cfg.MQTT.Broker, "panel-link-"+cfg.Panel, topics)
		if err != nil {
			return err
		}
		publisher = p
	}
	defer publisher.Close()

	tracker := status.NewTracker(time.Now(), statusConfig(cfg))
	tracker.SetNetwork(status.NetworkFromEnv(os.Getenv))

	d, err := newDaemon(cfg, deps{
		clock:     c,
		port:      port,
		reader:    reader,
		sink:      sink,
		publisher: publisher,
		tracker:   tracker,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
		start:     time.Now(),
	})
	if err != nil {
		return err
	}

	d.publishLifecycle("STARTUP", "", time.Now())

	if cfg.HTTP != "" {
		srv := web.New(cfg.HTTP, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error().Err(err).Msg("http server error")
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Info().Str("addr", cfg.HTTP).Msg("http status server listening")
	}

	log.Info().
		Str("role", cfg.Role).
		Str("panel", cfg.Panel).
		Str("layout", cfg.Layout).
		Str("port", cfg.Serial.Port).
		Dur("poll", cfg.Poll).
		Str("broker", cfg.MQTT.Broker).
		Msg("started")

	ticker := time.NewTicker(cfg.Poll)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(d, time.Now, ticker.C, sigCh)
}

func openSink(cfg config.Config) (output.Sink, error) {
	switch cfg.LEDs.Output {
	case config.OutputStrip:
		return output.OpenStrip(cfg.LEDs.SPI, cfg.LEDs.Pixels)
	case config.OutputConsole:
		return output.NewConsole(cfg.LEDs.Pixels), nil
	default:
		return output.Discard{}, nil
	}
}

func statusConfig(cfg config.Config) status.Config {
	return status.Config{
		Role:              cfg.Role,
		Panel:             cfg.Panel,
		Layout:            cfg.Layout,
		SerialPort:        cfg.Serial.Port,
		Baud:              cfg.Serial.Baud,
		PollMs:            cfg.Poll.Milliseconds(),
		SendIntervalMs:    cfg.SendInterval.Milliseconds(),
		ActivityTimeoutMs: cfg.ActivityTimeout.Milliseconds(),
		HeartbeatMs:       cfg.MQTT.Heartbeat.Milliseconds(),
		Broker:            cfg.MQTT.Broker,
		HTTPAddr:          cfg.HTTP,
	}
}

// runLoop services the daemon once per tick until a signal arrives.
func runLoop(d *daemon, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	for {
		select {
		case s := <-sig:
			log.Info().Stringer("signal", s).Msg("shutting down")
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			d.publishLifecycle("SHUTDOWN", signalName, now())
			return nil

		case <-tick:
			d.step(now())
		}
	}
}

// printFrame writes the frame a fully booted master sends at startup.
func printFrame(w io.Writer, cfg config.Config) error {
	l := cfg.FrameLayout()
	f := control.Frame{
		State:  logic.StateStable,
		Mode:   logic.ModeAutomatic,
		Bootup: logic.BootupAll,
	}
	_, err := fmt.Fprintf(w, "%s (%d bytes): % x\n", l, l.Size(), f.Marshal(l))
	return err
}

func listPorts(w io.Writer) error {
	ports, err := serial.List()
	if err != nil {
		return err
	}
	if len(ports) == 0 {
		fmt.Fprintln(w, "no serial ports found")
		return nil
	}
	for _, p := range ports {
		fmt.Fprintln(w, p)
	}
	return nil
}
