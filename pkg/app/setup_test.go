package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"

	"github.com/ericogr/co2-monitor/pkg/display"
	"github.com/ericogr/co2-monitor/pkg/scheduler"
	"github.com/ericogr/co2-monitor/pkg/system"
	"github.com/ericogr/co2-monitor/pkg/texts"
)

// scriptedPin returns the given levels in turn, then stays on the last.
type scriptedPin struct {
	gpio.PinIn
	levels []gpio.Level
	reads  int
}

func (p *scriptedPin) Read() gpio.Level {
	l := p.levels[min(p.reads, len(p.levels)-1)]
	p.reads++
	return l
}

func TestWaitModule(t *testing.T) {
	pin := &scriptedPin{PinIn: &gpiotest.Pin{N: "GPIO12"}, levels: []gpio.Level{gpio.High, gpio.High, gpio.Low}}
	rec := display.NewRecorder(0)
	clock := &scheduler.FakeClock{}
	tx, _ := texts.Select("en")

	require.NoError(t, WaitModule(context.Background(), pin, rec, clock, tx, discard()))
	assert.Equal(t, []time.Duration{ModuleRetry, ModuleRetry}, clock.Slept)
	frames := rec.Frames()
	require.Len(t, frames, 2)
	assert.Equal(t, tx.ErrorModule, frames[0].Text())
	assert.Equal(t, display.Red, frames[0].FG)
}

func TestWaitModuleCancelled(t *testing.T) {
	pin := &scriptedPin{PinIn: &gpiotest.Pin{N: "GPIO12"}, levels: []gpio.Level{gpio.High}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	tx, _ := texts.Select("en")
	err := WaitModule(ctx, pin, display.NewRecorder(0), &scheduler.FakeClock{}, tx, discard())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPrepareStorage(t *testing.T) {
	tx, _ := texts.Select("en")
	dir := filepath.Join(t.TempDir(), "state")
	rec := display.NewRecorder(0)

	require.NoError(t, PrepareStorage(dir, rec, tx, discard()))
	assert.DirExists(t, dir)
	f, ok := rec.Last()
	require.True(t, ok)
	assert.Equal(t, tx.FirstRun, f.Lines)
	assert.Equal(t, display.Magenta, f.FG)

	rec.Reset()
	require.NoError(t, PrepareStorage(dir, rec, tx, discard()))
	assert.Empty(t, rec.Frames(), "nothing shown once prepared")
}

func TestPrepareStorageFailureIsFatal(t *testing.T) {
	tx, _ := texts.Select("en")
	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	err := PrepareStorage(filepath.Join(file, "state"), display.NewRecorder(0), tx, discard())
	var fe *system.FatalError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, tx.ErrorFormat, fe.Message)
}

func TestSplash(t *testing.T) {
	rec := display.NewRecorder(0)
	clock := &scheduler.FakeClock{}
	require.NoError(t, Splash(context.Background(), rec, clock))
	f, _ := rec.Last()
	assert.True(t, f.Logo)
	assert.Equal(t, []time.Duration{SplashHold}, clock.Slept)
}

func TestConnect(t *testing.T) {
	tx, _ := texts.Select("en")
	rec := display.NewRecorder(0)
	clock := &scheduler.FakeClock{}
	out := &fakeOutput{}
	require.NoError(t, Connect(context.Background(), out, rec, clock, tx, discard()))
	assert.True(t, out.connected)
	assert.Equal(t, tx.Connecting, rec.Frames()[0].Text())
	assert.Empty(t, clock.Slept)

	rec.Reset()
	out = &fakeOutput{connectErr: errors.New("no route to host")}
	require.NoError(t, Connect(context.Background(), out, rec, clock, tx, discard()))
	f, _ := rec.Last()
	assert.Equal(t, tx.ErrorWiFi, f.Text())
	assert.Equal(t, []time.Duration{ConnectFailed}, clock.Slept)
}

type fakeUpdater struct {
	busy    bool
	handled int
	err     error
}

func (u *fakeUpdater) Busy() bool { return u.busy }

func (u *fakeUpdater) Handle(context.Context) error {
	u.handled++
	return u.err
}

func TestOTATask(t *testing.T) {
	cfg := testConfig()
	cfg.WiFiEnabled, cfg.OTAEnabled = true, true
	h := newHarness(t, cfg)
	u := &fakeUpdater{busy: true}
	h.app = New(Options{
		Config:       cfg,
		Texts:        h.texts,
		Sensor:       h.sensor,
		Display:      h.rec,
		Clock:        h.clock,
		PortalButton: h.app.portalButton,
		DemoButton:   h.app.demoButton,
		Updater:      u,
		Restarter:    h.restarter,
		Log:          discard(),
	})

	require.NoError(t, h.run(time.Second))
	assert.Equal(t, 20, u.handled)
	assert.Empty(t, h.rec.Frames(), "reading hidden while an image is received")

	u.busy = false
	require.NoError(t, h.run(100*time.Millisecond))
	assert.Equal(t, "600", h.last(t).Text())

	u.err = system.ErrRestart
	assert.ErrorIs(t, h.run(100*time.Millisecond), system.ErrRestart)
}
