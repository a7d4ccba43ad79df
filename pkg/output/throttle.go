package output

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/ericogr/co2-monitor/pkg/scheduler"
	"github.com/ericogr/co2-monitor/pkg/system"
)

// Placeholder in message templates for the ppm value.
const Placeholder = "{}"

// Render substitutes ppm into template.
func Render(template string, ppm int) string {
	return strings.ReplaceAll(template, Placeholder, strconv.Itoa(ppm))
}

// ThrottleConfig configures a Throttle.
type ThrottleConfig struct {
	Topic    string
	Template string
	// MaxFailures consecutive failed connection attempts escalate to a
	// fatal error.
	MaxFailures int
	// FatalMessage is shown when escalating.
	FatalMessage string
}

// Throttle publishes the last reading each time it fires and escalates
// sustained connection failures. It is driven by the scheduler, which sets
// the rate.
type Throttle struct {
	out      Output
	cfg      ThrottleConfig
	log      *slog.Logger
	failures int
}

func NewThrottle(out Output, cfg ThrottleConfig, log *slog.Logger) *Throttle {
	return &Throttle{out: out, cfg: cfg, log: log.With(slog.String("component", "publish"))}
}

// Failures returns the consecutive failed connection attempts.
func (t *Throttle) Failures() int { return t.failures }

// Fire publishes ppm. Values of zero or below are not published and return
// scheduler.ErrNotReady so the task retries on the next iteration.
func (t *Throttle) Fire(ctx context.Context, ppm int) error {
	if ppm <= 0 {
		return scheduler.ErrNotReady
	}
	if !t.out.Connected() {
		if err := t.out.Connect(ctx); err != nil {
			t.failures++
			t.log.Warn("connect failed", "failures", t.failures, "max", t.cfg.MaxFailures, "error", err)
			if t.failures >= t.cfg.MaxFailures {
				return system.Fatal(t.cfg.FatalMessage, err)
			}
			return fmt.Errorf("connect: %w", err)
		}
		t.failures = 0
	}

	msg := Render(t.cfg.Template, ppm)
	t.log.Info("publish", "topic", t.cfg.Topic, "message", msg)
	if err := t.out.Publish(ctx, t.cfg.Topic, []byte(msg), true); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}
