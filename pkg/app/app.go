// Package app wires the monitor together: it owns the loop, the shared
// reading and the modes (normal, demo, calibration, portal) that take over
// the display.
package app

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/ericogr/co2-monitor/pkg/alert"
	"github.com/ericogr/co2-monitor/pkg/calibration"
	"github.com/ericogr/co2-monitor/pkg/config"
	"github.com/ericogr/co2-monitor/pkg/display"
	"github.com/ericogr/co2-monitor/pkg/input"
	"github.com/ericogr/co2-monitor/pkg/output"
	"github.com/ericogr/co2-monitor/pkg/portal"
	"github.com/ericogr/co2-monitor/pkg/scheduler"
	"github.com/ericogr/co2-monitor/pkg/sensor"
	"github.com/ericogr/co2-monitor/pkg/system"
	"github.com/ericogr/co2-monitor/pkg/texts"
)

const (
	SensorInterval  = 5 * time.Second
	DisplayInterval = 50 * time.Millisecond
	PortalInterval  = 50 * time.Millisecond
	OTAInterval     = 50 * time.Millisecond
	// IdleSleep is slept between loop iterations.
	IdleSleep = 5 * time.Millisecond

	// maxShown is the largest value that fits the four digit display.
	maxShown = 9999
)

// Updater services firmware updates from the loop.
type Updater interface {
	Handle(ctx context.Context) error
}

// busyUpdater is implemented by updaters that draw on the display while an
// image is received.
type busyUpdater interface {
	Busy() bool
}

// Portal is the configuration portal as seen by the loop.
type Portal interface {
	Start() error
	Clients() int
	Drain() portal.Events
	Shutdown(ctx context.Context) error
}

// Options are the collaborators of an App. Output, Portal and Updater are
// optional.
type Options struct {
	Config       config.Config
	Texts        texts.Texts
	Sensor       sensor.Sensor
	Display      display.Display
	Clock        scheduler.Clock
	PortalButton *input.Button
	DemoButton   *input.Button
	Output       output.Output
	Portal       Portal
	Updater      Updater
	Restarter    system.Restarter
	Log          *slog.Logger
}

type App struct {
	cfg     config.Config
	texts   texts.Texts
	sensor  sensor.Sensor
	display display.Display
	clock   scheduler.Clock
	portal  Portal
	updater Updater
	restart system.Restarter
	out     output.Output
	log     *slog.Logger

	portalButton *input.Button
	demoButton   *input.Button
	portalPress  bool
	demoPress    bool

	thresholds  alert.Thresholds
	sched       *scheduler.Scheduler
	throttle    *output.Throttle
	calibration *calibration.Controller
	demo        demo
	setup       portalMode

	co2 int
}

// New builds the app and registers its tasks. Due tasks run in this order:
// buttons, calibration, demo, portal-button, portal, sensor, display,
// publish, ota.
func New(o Options) *App {
	log := o.Log.With(slog.String("component", "app"))
	a := &App{
		cfg:          o.Config,
		texts:        o.Texts,
		sensor:       o.Sensor,
		display:      o.Display,
		clock:        o.Clock,
		portal:       o.Portal,
		updater:      o.Updater,
		restart:      o.Restarter,
		out:          o.Output,
		log:          log,
		portalButton: o.PortalButton,
		demoButton:   o.DemoButton,
		thresholds: alert.Thresholds{
			Warning:  o.Config.CO2Warning,
			Critical: o.Config.CO2Critical,
			Blink:    o.Config.CO2Blink,
		},
	}
	a.calibration = calibration.New(o.Sensor, o.Display, o.Clock, o.Texts, o.Log)
	a.sched = scheduler.New(o.Clock, o.Log)

	a.sched.Add("buttons", 0, a.buttonsTask)
	a.sched.Add("calibration", 0, a.calibrationTask)
	a.sched.Add("demo", 0, a.demoTask)
	a.sched.Add("portal-button", 0, a.portalButtonTask)
	a.sched.Add("portal", PortalInterval, a.portalTask)
	a.sched.Add("sensor", SensorInterval, a.sensorTask)
	a.sched.Add("display", DisplayInterval, a.displayTask)
	if o.Output != nil && o.Config.MQTTEnabled {
		a.throttle = output.NewThrottle(o.Output, output.ThrottleConfig{
			Topic:        o.Config.MQTT.Topic,
			Template:     o.Config.MQTT.Template,
			MaxFailures:  o.Config.MaxFailures,
			FatalMessage: o.Texts.ErrorMQTT,
		}, o.Log)
		a.sched.Add("publish", time.Duration(o.Config.MQTTInterval)*time.Second, a.publishTask)
	}
	if o.Updater != nil && o.Config.OTAEnabled {
		a.sched.Add("ota", OTAInterval, a.otaTask)
	}
	return a
}

// CO2 returns the value of the last poll: below zero on error, zero while
// the sensor warms up.
func (a *App) CO2() int { return a.co2 }

// Tick runs one loop iteration.
func (a *App) Tick(ctx context.Context) error {
	return a.sched.Tick(ctx)
}

// Run drives the loop until ctx is done. Fatal errors are shown and end in a
// restart, as does a requested restart; Run returns only when ctx is done or
// restarting failed.
func (a *App) Run(ctx context.Context) error {
	err := a.sched.Run(ctx, IdleSleep)
	if a.portal != nil && a.setup.open {
		_ = a.portal.Shutdown(context.Background())
	}
	return a.finish(err)
}

func (a *App) finish(err error) error {
	var fe *system.FatalError
	switch {
	case errors.As(err, &fe):
		a.log.Error("fatal", "message", fe.Message, "error", fe.Err)
		return system.Panic(a.display, a.clock, a.restart, fe.Message)
	case errors.Is(err, system.ErrRestart):
		a.log.Info("restarting")
		return a.restart.Restart()
	}
	return err
}

// busy reports whether a mode other than normal owns the display.
func (a *App) busy() bool {
	return a.calibration.Active() || a.demo.active() || a.setup.open
}

func (a *App) takePortalPress() bool {
	p := a.portalPress
	a.portalPress = false
	return p
}

func (a *App) takeDemoPress() bool {
	p := a.demoPress
	a.demoPress = false
	return p
}

func (a *App) buttonsTask(ctx context.Context) error {
	now := a.clock.Millis()
	a.portalPress = a.portalButton.Update(now)
	a.demoPress = a.demoButton.Update(now)
	return nil
}

func (a *App) calibrationTask(ctx context.Context) error {
	if !a.calibration.Active() {
		return nil
	}
	// a cancel button counts as soon as it is held, so holding it across
	// zero cannot let the commit through
	cancel := a.takePortalPress() || a.takeDemoPress()
	if a.portalButton.Held() || a.demoButton.Held() {
		a.portalButton.Consume()
		a.demoButton.Consume()
		cancel = true
	}
	if err := a.calibration.Step(ctx, a.clock.Millis(), cancel); err != nil {
		return err
	}
	if !a.calibration.Active() {
		return a.outro(calibrationOutro)
	}
	return nil
}

func (a *App) sensorTask(ctx context.Context) error {
	r := a.sensor.CO2(ctx)
	a.co2 = r.Value()
	a.log.Info("co2", "value", a.co2, "status", r.Status.String())
	return nil
}

func (a *App) displayTask(ctx context.Context) error {
	if a.busy() {
		return nil
	}
	if u, ok := a.updater.(busyUpdater); ok && u.Busy() {
		return nil
	}
	a.display.SetOnline(a.out != nil && a.out.Connected())
	if a.portalButton.Held() || a.demoButton.Held() {
		return a.display.Text("", display.White, display.Black)
	}
	return a.showReading(a.co2)
}

func (a *App) showReading(v int) error {
	switch {
	case v < 0:
		return a.display.Text(a.texts.ErrorSensor, display.Red, display.Black)
	case v == 0:
		return a.display.Text(a.texts.Wait, display.White, display.Black)
	}
	return a.showPPM(min(v, maxShown))
}

func (a *App) showPPM(ppm int) error {
	s := alert.Classify(ppm, a.thresholds, a.clock.Millis())
	return a.display.Text(strconv.Itoa(ppm), s.FG, s.BG)
}

func (a *App) publishTask(ctx context.Context) error {
	return a.throttle.Fire(ctx, a.co2)
}

func (a *App) otaTask(ctx context.Context) error {
	return a.updater.Handle(ctx)
}
