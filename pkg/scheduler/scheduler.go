// Package scheduler runs periodic tasks cooperatively on one goroutine.
//
// Each task keeps the counter value of its last run and is due once at least
// its period has elapsed. Due tasks run to completion in the order they were
// added, once per Tick.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/ericogr/co2-monitor/pkg/system"
)

// ErrNotReady keeps a task due: its last run is not updated and it is tried
// again on the next Tick.
var ErrNotReady = errors.New("task not ready")

// Func is the body of a task.
type Func func(ctx context.Context) error

type task struct {
	name   string
	period uint32
	fn     Func
	last   uint32
	ran    bool
}

// Scheduler holds the tasks. It is not safe for concurrent use.
type Scheduler struct {
	clock Clock
	log   *slog.Logger
	tasks []*task
}

func New(clock Clock, log *slog.Logger) *Scheduler {
	return &Scheduler{clock: clock, log: log.With(slog.String("component", "scheduler"))}
}

// Add registers fn to run every period. A zero period runs it on every Tick.
// A task that never ran is due on the first Tick.
func (s *Scheduler) Add(name string, period time.Duration, fn Func) {
	s.tasks = append(s.tasks, &task{name: name, period: uint32(period.Milliseconds()), fn: fn})
}

// SetPeriod changes the period of the named task.
func (s *Scheduler) SetPeriod(name string, period time.Duration) bool {
	for _, t := range s.tasks {
		if t.name == name {
			t.period = uint32(period.Milliseconds())
			return true
		}
	}
	return false
}

// Due reports whether the named task would run at now.
func (s *Scheduler) Due(name string, now uint32) bool {
	for _, t := range s.tasks {
		if t.name == name {
			return t.due(now)
		}
	}
	return false
}

func (t *task) due(now uint32) bool {
	return !t.ran || Elapsed(now, t.last) >= t.period
}

// Tick runs every due task once. A terminal error (see system.IsTerminal)
// stops the tick and is returned; other errors are logged.
func (s *Scheduler) Tick(ctx context.Context) error {
	for _, t := range s.tasks {
		if !t.due(s.clock.Millis()) {
			continue
		}
		err := t.fn(ctx)
		switch {
		case errors.Is(err, ErrNotReady):
			continue
		case system.IsTerminal(err):
			return err
		case err != nil:
			s.log.Warn("task failed", "task", t.name, "error", err)
		}
		t.last = s.clock.Millis()
		t.ran = true
	}
	return nil
}

// Run ticks until ctx is done or a task returns a terminal error. idle is
// slept between ticks.
func (s *Scheduler) Run(ctx context.Context, idle time.Duration) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.Tick(ctx); err != nil {
			return err
		}
		if idle > 0 {
			s.clock.Sleep(idle)
		}
	}
}
