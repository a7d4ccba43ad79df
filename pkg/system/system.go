// Package system holds the device level primitives: deliberate stalls, the
// fatal error path and restarting.
package system

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"github.com/ericogr/co2-monitor/pkg/display"
)

// PanicHold is how long a fatal message stays on screen before restarting.
const PanicHold = 5 * time.Second

// ErrRestart asks the main loop to restart without showing an error.
var ErrRestart = errors.New("restart requested")

// FatalError is an escalated condition that ends in a restart.
type FatalError struct {
	// Message is shown on the display.
	Message string
	Err     error
}

func (e *FatalError) Error() string {
	if e.Err == nil {
		return "fatal: " + e.Message
	}
	return fmt.Sprintf("fatal: %s: %v", e.Message, e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }

// Fatal returns a FatalError showing msg.
func Fatal(msg string, err error) error {
	return &FatalError{Message: msg, Err: err}
}

// IsTerminal reports whether err must stop the main loop.
func IsTerminal(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe) || errors.Is(err, ErrRestart)
}

// Sleeper blocks for a duration.
type Sleeper interface {
	Sleep(d time.Duration)
}

// Hold is a deliberate, bounded stall of the whole loop, used where the
// operator needs time to read the screen.
func Hold(ctx context.Context, s Sleeper, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.Sleep(d)
	return ctx.Err()
}

// Restarter restarts the device.
type Restarter interface {
	Restart() error
}

// ExecRestarter replaces the running process with a fresh copy of itself.
type ExecRestarter struct{}

func (ExecRestarter) Restart() error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("locate executable: %w", err)
	}
	return unix.Exec(exe, os.Args, os.Environ())
}

// Panic shows msg in red, holds it, then restarts unconditionally. It only
// returns if the restart itself failed.
func Panic(d display.Display, s Sleeper, r Restarter, msg string) error {
	_ = d.Text(msg, display.Red, display.Black)
	s.Sleep(PanicHold)
	return r.Restart()
}
