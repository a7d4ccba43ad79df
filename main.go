package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"periph.io/x/host/v3"

	"github.com/ericogr/co2-monitor/pkg/app"
	"github.com/ericogr/co2-monitor/pkg/config"
	"github.com/ericogr/co2-monitor/pkg/display"
	"github.com/ericogr/co2-monitor/pkg/input"
	"github.com/ericogr/co2-monitor/pkg/output"
	consoleout "github.com/ericogr/co2-monitor/pkg/output/console"
	kafkaout "github.com/ericogr/co2-monitor/pkg/output/kafka"
	mqttout "github.com/ericogr/co2-monitor/pkg/output/mqtt"
	"github.com/ericogr/co2-monitor/pkg/portal"
	"github.com/ericogr/co2-monitor/pkg/scheduler"
	"github.com/ericogr/co2-monitor/pkg/sensor"
	"github.com/ericogr/co2-monitor/pkg/system"
	"github.com/ericogr/co2-monitor/pkg/texts"
)

// simulationWarmup is the number of polls the simulated sensor reports as
// warming up.
const simulationWarmup = 3

func main() {
	cfg, cfgPath, err := config.LoadFromFlags()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	// settings saved by the portal apply unless a file was named explicitly
	if cfgPath == "" {
		cfgPath = config.ConfigPath(cfg.StateDir)
		if _, err := os.Stat(cfgPath); err == nil {
			cfg, _, err = config.LoadArgs(append([]string{"-config", cfgPath}, os.Args[1:]...))
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(2)
			}
		}
	}

	log := newLogger(cfg.LogLevel)
	log.Info("co2 monitor start")

	if err := run(cfg, cfgPath, log); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("stopped", "error", err)
		os.Exit(1)
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

func run(cfg config.Config, cfgPath string, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	simulated := cfg.SensorType == "simulation"
	if !simulated {
		if _, err := host.Init(); err != nil {
			return fmt.Errorf("periph host init: %w", err)
		}
	}

	clock := scheduler.NewSystemClock()
	restarter := system.ExecRestarter{}

	disp, closeDisplay, err := newDisplay(cfg.Display)
	if err != nil {
		return err
	}
	defer closeDisplay()

	tx, lang := texts.Select(cfg.Language)
	// escalate shows a fatal error and restarts, as the loop does
	escalate := func(err error) error {
		var fe *system.FatalError
		if errors.As(err, &fe) {
			log.Error("fatal", "message", fe.Message, "error", fe.Err)
			return system.Panic(disp, clock, restarter, fe.Message)
		}
		return err
	}

	if err := app.PrepareStorage(cfg.StateDir, disp, tx, log); err != nil {
		return escalate(err)
	}
	id, err := config.DeviceID(cfg.StateDir)
	if err != nil {
		return err
	}
	cfg.Normalize(config.Hostname(id))
	log.Info("device", "id", id, "hostname", cfg.Hostname, "language", lang)

	portalButton, demoButton, modulePin, err := openPins(cfg.GPIO, simulated)
	if err != nil {
		return err
	}
	if err := app.WaitModule(ctx, modulePin, disp, clock, tx, log); err != nil {
		return err
	}
	if err := app.Splash(ctx, disp, clock); err != nil {
		return err
	}

	s, err := openSensor(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer s.Close()
	log.Info("sensor ready", "driver", s.Name())

	opts := app.Options{
		Config:       cfg,
		Texts:        tx,
		Sensor:       s,
		Display:      disp,
		Clock:        clock,
		PortalButton: portalButton,
		DemoButton:   demoButton,
		Restarter:    restarter,
		Log:          log,
	}

	if cfg.MQTTEnabled {
		out, err := newOutput(cfg, log)
		if err != nil {
			return err
		}
		defer out.Close()
		if err := app.Connect(ctx, out, disp, clock, tx, log); err != nil {
			return err
		}
		opts.Output = out
	}

	var updater *portal.Updater
	if cfg.OTAEnabled {
		exe, err := os.Executable()
		if err != nil {
			return fmt.Errorf("locate executable: %w", err)
		}
		updater = portal.NewUpdater(exe, disp, tx, log)
		opts.Updater = updater
	}
	srv := portal.NewServer(cfg, cfgPath, updater, log)
	opts.Portal = srv
	if cfg.OTAEnabled {
		// updates are accepted outside the portal too
		if err := srv.Start(); err != nil {
			return err
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(sctx)
		}()
	}

	return app.New(opts).Run(ctx)
}

// newDisplay returns the configured display and a function releasing it.
func newDisplay(cfg config.DisplayConfig) (display.Display, func(), error) {
	switch strings.ToLower(cfg.Type) {
	case "panel":
		p, bus, err := display.OpenSSD1306(cfg.I2CBus, cfg.Width, cfg.Height)
		if err != nil {
			return nil, nil, err
		}
		return p, func() { _ = bus.Close() }, nil
	case "none":
		return display.NewRecorder(1), func() {}, nil
	default:
		return display.NewConsole(nil), func() {}, nil
	}
}

// newOutput builds the configured message bus client. The hostname is the
// client id and message key.
func newOutput(cfg config.Config, log *slog.Logger) (output.Output, error) {
	switch strings.ToLower(cfg.Output) {
	case "mqtt":
		return mqttout.NewMQTT(cfg.MQTT, cfg.Hostname, log), nil
	case "kafka":
		return kafkaout.NewKafka(cfg.Kafka, cfg.Hostname, log), nil
	case "console":
		return consoleout.NewConsole(), nil
	}
	return nil, fmt.Errorf("unknown output type: %s", cfg.Output)
}

// openPins returns the buttons and the module detection pin. Simulation
// runs use in-memory pins with the module present and buttons released.
func openPins(cfg config.GPIOConfig, simulated bool) (*input.Button, *input.Button, gpio.PinIn, error) {
	if simulated {
		pb, _ := input.Simulated(cfg.PortalButton)
		db, _ := input.Simulated(cfg.DemoButton)
		return pb, db, &gpiotest.Pin{N: cfg.PCBOK, L: gpio.Low}, nil
	}
	pb, err := input.OpenButton(cfg.PortalButton)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("portal button: %w", err)
	}
	db, err := input.OpenButton(cfg.DemoButton)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("demo button: %w", err)
	}
	module, err := input.OpenInput(cfg.PCBOK)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("module pin: %w", err)
	}
	return pb, db, module, nil
}

func openSensor(ctx context.Context, cfg config.Config, log *slog.Logger) (sensor.Sensor, error) {
	if cfg.SensorType == "simulation" {
		return sensor.NewFakeSensor(time.Now().UnixNano(), simulationWarmup), nil
	}
	port, err := sensor.OpenPort(cfg.Serial.Port)
	if err != nil {
		return nil, err
	}
	s, err := sensor.Detect(ctx, port, sensor.DetectOptions{
		AQC: sensor.DefaultAQCOptions(),
		MHZ: sensor.DefaultMHZOptions(),
	}, log.With(slog.String("component", "sensor")))
	if err != nil {
		_ = port.Close()
		return nil, err
	}
	return s, nil
}
