// Package calibration runs the manual zero-point calibration: a cancellable
// one minute countdown followed by the calibration command.
package calibration

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/ericogr/co2-monitor/pkg/display"
	"github.com/ericogr/co2-monitor/pkg/scheduler"
	"github.com/ericogr/co2-monitor/pkg/system"
	"github.com/ericogr/co2-monitor/pkg/texts"
)

// State of the controller. Cancelled and Done are passed through on the way
// back to Idle and remain visible through Outcome.
type State int

const (
	Idle State = iota
	Counting
	Cancelled
	Committing
	Done
)

func (s State) String() string {
	return [...]string{"idle", "counting", "cancelled", "committing", "done"}[s]
}

const (
	// Countdown is the number of seconds shown before committing.
	Countdown = 60
	// SettleHold keeps the confirmation on screen. Nothing else runs.
	SettleHold = 15 * time.Second

	second = 1000
)

// Zeroer is the part of a sensor the controller needs.
type Zeroer interface {
	SetZero(ctx context.Context) error
	ZeroBaseline() int
}

type Controller struct {
	sensor  Zeroer
	display display.Display
	sleeper system.Sleeper
	texts   texts.Texts
	log     *slog.Logger

	state     State
	outcome   State
	remaining int
	lastTick  uint32
}

func New(sensor Zeroer, d display.Display, s system.Sleeper, tx texts.Texts, log *slog.Logger) *Controller {
	return &Controller{
		sensor:  sensor,
		display: d,
		sleeper: s,
		texts:   tx,
		log:     log.With(slog.String("component", "calibration")),
	}
}

func (c *Controller) State() State   { return c.state }
func (c *Controller) Outcome() State { return c.outcome }
func (c *Controller) Remaining() int { return c.remaining }

// Active reports whether the controller owns the display.
func (c *Controller) Active() bool { return c.state != Idle }

// Start begins the countdown. It is a no-op while already active.
func (c *Controller) Start(now uint32) {
	if c.Active() {
		return
	}
	c.log.Info("manual calibration started")
	c.state = Counting
	c.remaining = Countdown
	c.lastTick = now
	c.render()
}

// Step advances the countdown. cancel is true when either cancel button was
// pressed since the previous step.
func (c *Controller) Step(ctx context.Context, now uint32, cancel bool) error {
	if c.state != Counting {
		return nil
	}
	if cancel {
		c.finish(Cancelled)
		return nil
	}
	if scheduler.Elapsed(now, c.lastTick) < second {
		return nil
	}
	c.lastTick = now
	c.remaining--
	if c.remaining >= 0 {
		c.render()
		return nil
	}
	return c.commit(ctx)
}

func (c *Controller) render() {
	lines := append([]string(nil), c.texts.Calibration...)
	lines[len(lines)-1] = strconv.Itoa(c.remaining)
	_ = c.display.Lines(lines, display.Red, display.Black)
}

func (c *Controller) commit(ctx context.Context) error {
	c.state = Committing
	baseline := c.sensor.ZeroBaseline()
	lines := display.Replace(c.texts.Calibrating, "400", strconv.Itoa(baseline))
	_ = c.display.Lines(lines, display.Magenta, display.Black)

	if err := c.sensor.SetZero(ctx); err != nil {
		c.log.Error("zero calibration failed", "error", err)
	} else {
		c.log.Info("zero calibration issued", "baseline", baseline)
	}
	err := system.Hold(ctx, c.sleeper, SettleHold)
	c.finish(Done)
	return err
}

func (c *Controller) finish(s State) {
	c.log.Info("manual calibration finished", "outcome", s.String())
	c.outcome = s
	c.state = Idle
}
