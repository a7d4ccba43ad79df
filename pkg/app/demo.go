package app

import (
	"context"
	"time"

	"github.com/ericogr/co2-monitor/pkg/display"
	"github.com/ericogr/co2-monitor/pkg/scheduler"
)

const (
	demoIntroHold = 3 * time.Second
	demoLogoHold  = time.Second
	demoStep      = 30 * time.Millisecond
	demoFirst     = 400
	demoLast      = 1199

	// Holding the portal button through most of 700..799 and releasing it
	// after 800 starts a manual calibration.
	holdFrom  = 700
	holdUntil = 800
	holdSteps = 85

	exitOutro        = 500 * time.Millisecond
	calibrationOutro = 500 * time.Millisecond
	sweepOutro       = 5 * time.Second
)

type demoPhase int

const (
	demoIdle demoPhase = iota
	demoIntro
	demoLogo
	demoSweep
	demoRelease
	demoOutro
)

// demo sweeps the display through the colour tiers.
type demo struct {
	phase   demoPhase
	since   uint32
	hold    uint32
	last    uint32
	ppm     int
	counted int
}

func (d *demo) active() bool { return d.phase != demoIdle }

func (d *demo) enter(p demoPhase, now uint32, hold time.Duration) {
	d.phase = p
	d.since = now
	d.hold = uint32(hold.Milliseconds())
}

func (d *demo) expired(now uint32) bool {
	return scheduler.Elapsed(now, d.since) >= d.hold
}

func (a *App) demoTask(ctx context.Context) error {
	now := a.clock.Millis()
	d := &a.demo
	switch d.phase {
	case demoIdle:
		if a.busy() || !a.takeDemoPress() {
			return nil
		}
		a.log.Info("demo started")
		d.enter(demoIntro, now, demoIntroHold)
		return a.display.Text(a.texts.Demo, display.White, display.Black)
	case demoIntro:
		if d.expired(now) {
			d.enter(demoLogo, now, demoLogoHold)
			return a.display.Logo()
		}
	case demoLogo:
		if d.expired(now) {
			d.phase = demoSweep
			d.ppm = demoFirst
			d.counted = 0
			return a.sweep(now)
		}
	case demoSweep:
		if a.takeDemoPress() {
			a.log.Info("demo stopped")
			return a.outro(exitOutro)
		}
		if scheduler.Elapsed(now, d.last) >= uint32(demoStep.Milliseconds()) {
			return a.sweep(now)
		}
	case demoRelease:
		if !a.portalButton.Asserted() {
			d.phase = demoIdle
			a.calibration.Start(now)
		}
	case demoOutro:
		if d.expired(now) {
			d.phase = demoIdle
		}
	}
	return nil
}

// sweep shows the current demo value and advances it.
func (a *App) sweep(now uint32) error {
	d := &a.demo
	d.last = now
	p := d.ppm
	if err := a.showPPM(p); err != nil {
		return err
	}
	if p >= holdFrom && p < holdUntil && a.portalButton.Asserted() {
		d.counted++
	}
	if p == holdUntil && d.counted >= holdSteps {
		a.log.Info("calibration requested from demo", "held_steps", d.counted)
		d.phase = demoRelease
		return nil
	}
	d.ppm++
	if d.ppm > demoLast {
		return a.outro(sweepOutro)
	}
	return nil
}

// outro shows the logo for hold before normal display resumes.
func (a *App) outro(hold time.Duration) error {
	a.demo.enter(demoOutro, a.clock.Millis(), hold)
	return a.display.Logo()
}
