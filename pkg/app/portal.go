package app

import (
	"context"
	"time"

	"github.com/ericogr/co2-monitor/pkg/display"
	"github.com/ericogr/co2-monitor/pkg/portal"
	"github.com/ericogr/co2-monitor/pkg/scheduler"
	"github.com/ericogr/co2-monitor/pkg/system"
)

// PortalTimeout restarts the device when nobody connected to the open
// portal for this long.
const PortalTimeout = 10 * time.Minute

type portalMode struct {
	open    bool
	since   uint32
	tracker portal.Tracker
}

// portalButtonTask opens the portal, or restarts when it is already open.
func (a *App) portalButtonTask(ctx context.Context) error {
	if !a.takePortalPress() {
		return nil
	}
	if a.setup.open {
		a.log.Info("portal closed by button")
		return system.ErrRestart
	}
	if a.busy() {
		return nil
	}
	if a.portal == nil {
		a.log.Warn("portal not available")
		return nil
	}
	if err := a.portal.Start(); err != nil {
		return system.Fatal(a.texts.ErrorWiFi, err)
	}
	// the server may have been running for updates already
	a.portal.Drain()
	a.log.Info("portal opened")
	a.setup = portalMode{open: true, since: a.clock.Millis()}
	return a.portalTask(ctx)
}

func (a *App) portalTask(ctx context.Context) error {
	if !a.setup.open {
		return nil
	}
	ev := a.portal.Drain()
	if ev.Restart {
		a.log.Info("restart requested from portal")
		return system.ErrRestart
	}
	tr := &a.setup.tracker
	if ev.Viewed {
		tr.Viewed()
	}
	if ev.Saved {
		tr.Saved()
	}
	before := tr.Phase()
	phase := tr.Update(a.portal.Clients())
	if phase != before {
		a.log.Info("portal phase", "phase", phase.String())
	}

	lines := display.Replace(a.texts.PortalInstructions[phase], "{ssid}", a.cfg.Hostname)
	if err := a.display.Lines(lines, display.White, display.Blue); err != nil {
		return err
	}

	if phase == portal.Disconnected &&
		scheduler.Elapsed(a.clock.Millis(), a.setup.since) > uint32(PortalTimeout.Milliseconds()) {
		return system.Fatal(a.texts.ErrorTimeout, nil)
	}
	return nil
}

// PortalOpen reports whether the configuration portal is shown.
func (a *App) PortalOpen() bool { return a.setup.open }
