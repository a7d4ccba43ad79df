package app

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"periph.io/x/conn/v3/gpio"

	"github.com/ericogr/co2-monitor/pkg/display"
	"github.com/ericogr/co2-monitor/pkg/output"
	"github.com/ericogr/co2-monitor/pkg/system"
	"github.com/ericogr/co2-monitor/pkg/texts"
)

const (
	ModuleRetry   = time.Second
	SplashHold    = 2 * time.Second
	ConnectFailed = 2 * time.Second
)

// WaitModule blocks until the PCB-ok pin reads low. The pin is pulled low by
// a trace on the sensor module, so a high level means the module is missing
// or mounted the wrong way round. pin must already be an input with pull-up.
func WaitModule(ctx context.Context, pin gpio.PinIn, d display.Display, s system.Sleeper, tx texts.Texts, log *slog.Logger) error {
	for pin.Read() == gpio.High {
		log.Warn("sensor module not detected", "pin", pin.String())
		_ = d.Text(tx.ErrorModule, display.Red, display.Black)
		if err := system.Hold(ctx, s, ModuleRetry); err != nil {
			return err
		}
	}
	return nil
}

// PrepareStorage creates the state directory on first run. Failing to do so
// is fatal.
func PrepareStorage(dir string, d display.Display, tx texts.Texts, log *slog.Logger) error {
	_, err := os.Stat(dir)
	if err == nil {
		return nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return system.Fatal(tx.ErrorFormat, err)
	}
	log.Info("first run, creating state directory", "dir", dir)
	_ = d.Lines(tx.FirstRun, display.Magenta, display.Black)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return system.Fatal(tx.ErrorFormat, err)
	}
	return nil
}

// Splash shows the logo for SplashHold.
func Splash(ctx context.Context, d display.Display, s system.Sleeper) error {
	_ = d.Logo()
	return system.Hold(ctx, s, SplashHold)
}

// Connect makes the first connection to the message bus while showing
// texts.Connecting. A failure is shown for a moment and left to the publish
// task to retry.
func Connect(ctx context.Context, out output.Output, d display.Display, s system.Sleeper, tx texts.Texts, log *slog.Logger) error {
	_ = d.Text(tx.Connecting, display.Blue, display.Black)
	err := out.Connect(ctx)
	if err == nil {
		d.SetOnline(true)
		return nil
	}
	log.Warn("initial connect failed", "error", err)
	_ = d.Text(tx.ErrorWiFi, display.Red, display.Black)
	return system.Hold(ctx, s, ConnectFailed)
}
