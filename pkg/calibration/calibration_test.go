package calibration

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericogr/co2-monitor/pkg/display"
	"github.com/ericogr/co2-monitor/pkg/scheduler"
	"github.com/ericogr/co2-monitor/pkg/texts"
)

type zeroer struct{ calls int }

func (z *zeroer) SetZero(context.Context) error { z.calls++; return nil }
func (z *zeroer) ZeroBaseline() int             { return 425 }

func newTest() (*Controller, *zeroer, *display.Recorder, *scheduler.FakeClock) {
	z := &zeroer{}
	rec := display.NewRecorder(0)
	clock := &scheduler.FakeClock{}
	tx, _ := texts.Select("en")
	c := New(z, rec, clock, tx, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return c, z, rec, clock
}

// run steps the controller every 10 ms for d, pressing cancel once at
// cancelAt unless it is negative.
func run(t *testing.T, c *Controller, clock *scheduler.FakeClock, d time.Duration, cancelAt time.Duration) {
	t.Helper()
	for elapsed := time.Duration(0); elapsed < d && c.Active(); elapsed += 10 * time.Millisecond {
		clock.Advance(10 * time.Millisecond)
		cancel := cancelAt >= 0 && elapsed == cancelAt
		require.NoError(t, c.Step(context.Background(), clock.Now, cancel))
	}
}

func TestCountdownCommitsOnce(t *testing.T) {
	c, z, rec, clock := newTest()
	c.Start(clock.Now)
	require.Equal(t, Counting, c.State())
	first, _ := rec.Last()
	assert.Equal(t, "60", first.Lines[len(first.Lines)-1])
	assert.Equal(t, display.Red, first.FG)

	run(t, c, clock, 59*time.Second+990*time.Millisecond, -1)
	assert.Equal(t, Counting, c.State())
	assert.Equal(t, 1, c.Remaining())
	assert.Equal(t, 0, z.calls)

	run(t, c, clock, 5*time.Second, -1)
	assert.Equal(t, Idle, c.State())
	assert.Equal(t, Done, c.Outcome())
	assert.Equal(t, 1, z.calls)

	last, _ := rec.Last()
	assert.Equal(t, "425 PPM.", last.Lines[2])
	assert.Equal(t, display.Magenta, last.FG)
	assert.Contains(t, clock.Slept, SettleHold)

	// the countdown showed every value from 60 to 0
	var shown []string
	for _, f := range rec.Frames() {
		if f.FG == display.Red {
			shown = append(shown, f.Lines[len(f.Lines)-1])
		}
	}
	require.Len(t, shown, 61)
	assert.Equal(t, "0", shown[60])
}

func TestCancelDuringAnySecond(t *testing.T) {
	for _, at := range []time.Duration{0, 10 * time.Millisecond, 30 * time.Second, 60*time.Second + 500*time.Millisecond} {
		c, z, _, clock := newTest()
		c.Start(clock.Now)
		run(t, c, clock, 2*time.Minute, at)

		assert.Equal(t, Idle, c.State(), "cancel at %v", at)
		assert.Equal(t, Cancelled, c.Outcome(), "cancel at %v", at)
		assert.Equal(t, 0, z.calls, "cancel at %v", at)
		assert.Empty(t, clock.Slept)
	}
}

func TestStartWhileActiveIsIgnored(t *testing.T) {
	c, _, _, clock := newTest()
	c.Start(clock.Now)
	run(t, c, clock, 5*time.Second, -1)
	c.Start(clock.Now)
	assert.Equal(t, 55, c.Remaining())
}

func TestStepWhenIdle(t *testing.T) {
	c, z, rec, clock := newTest()
	clock.Advance(time.Hour)
	require.NoError(t, c.Step(context.Background(), clock.Now, true))
	assert.Equal(t, Idle, c.State())
	assert.Empty(t, rec.Frames())
	assert.Equal(t, 0, z.calls)
}
