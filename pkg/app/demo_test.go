package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/gpio"

	"github.com/ericogr/co2-monitor/pkg/calibration"
	"github.com/ericogr/co2-monitor/pkg/display"
)

func TestDemoSweep(t *testing.T) {
	h := newHarness(t, testConfig())
	h.press(t, h.demoPin)
	require.True(t, h.app.demo.active())
	assert.Equal(t, h.texts.Demo, h.last(t).Text())

	require.NoError(t, h.runUntil(40*time.Second, func() bool { return !h.app.demo.active() }))
	require.False(t, h.app.demo.active())

	first, ok := h.find("400")
	require.True(t, ok)
	assert.Equal(t, display.Green, first.FG)

	warn, ok := h.find("700")
	require.True(t, ok)
	assert.Equal(t, display.Black, warn.FG)
	assert.Equal(t, display.Yellow, warn.BG)

	crit, ok := h.find("800")
	require.True(t, ok)
	assert.ElementsMatch(t, []any{display.White, display.Red}, []any{crit.FG, crit.BG})

	_, ok = h.find("1199")
	assert.True(t, ok)
	_, ok = h.find("1200")
	assert.False(t, ok)

	logos := 0
	for _, f := range h.rec.Frames() {
		if f.Logo {
			logos++
		}
	}
	assert.Equal(t, 2, logos, "logo before the sweep and after it")
	assert.Zero(t, h.sensor.zeroed)

	require.NoError(t, h.run(100*time.Millisecond))
	assert.Equal(t, "600", h.last(t).Text())
}

func TestDemoExitByButton(t *testing.T) {
	h := newHarness(t, testConfig())
	h.press(t, h.demoPin)
	require.NoError(t, h.run(5*time.Second))
	require.Equal(t, demoSweep, h.app.demo.phase)

	h.press(t, h.demoPin)
	assert.Equal(t, demoOutro, h.app.demo.phase)
	assert.True(t, h.last(t).Logo)

	require.NoError(t, h.run(600*time.Millisecond))
	assert.False(t, h.app.demo.active())
	assert.Equal(t, "600", h.last(t).Text())
}

func TestPortalButtonIgnoredDuringDemo(t *testing.T) {
	h := newHarness(t, testConfig())
	h.press(t, h.demoPin)
	h.press(t, h.portalPin)
	assert.Zero(t, h.portal.started)
	assert.False(t, h.app.PortalOpen())
}

// startCalibration runs the demo while holding the portal button and
// releases it once the sweep passed 800.
func startCalibration(t *testing.T, h *harness) {
	t.Helper()
	h.press(t, h.demoPin)
	h.portalPin.L = gpio.Low
	require.NoError(t, h.runUntil(30*time.Second, func() bool { return h.app.demo.phase == demoRelease }))
	require.Equal(t, demoRelease, h.app.demo.phase)
	assert.GreaterOrEqual(t, h.app.demo.counted, holdSteps)

	h.portalPin.L = gpio.High
	require.NoError(t, h.run(10*time.Millisecond))
	require.True(t, h.app.calibration.Active())
	f := h.last(t)
	assert.Equal(t, "60", f.Lines[len(f.Lines)-1])
	assert.False(t, h.app.PortalOpen(), "releasing the portal button must not open the portal")
}

func TestDemoHoldCalibrates(t *testing.T) {
	h := newHarness(t, testConfig())
	startCalibration(t, h)

	require.NoError(t, h.runUntil(90*time.Second, func() bool { return !h.app.calibration.Active() }))
	assert.Equal(t, calibration.Done, h.app.calibration.Outcome())
	assert.Equal(t, 1, h.sensor.zeroed)

	f, ok := h.find("Assuming current\nCO2 level to be\n425 PPM.")
	require.True(t, ok)
	assert.Equal(t, display.Magenta, f.FG)
	assert.Contains(t, h.clock.Slept, calibration.SettleHold)

	assert.True(t, h.last(t).Logo)
	require.NoError(t, h.run(time.Second))
	assert.Equal(t, "600", h.last(t).Text())
}

func TestDemoHoldTooShort(t *testing.T) {
	h := newHarness(t, testConfig())
	h.press(t, h.demoPin)
	require.NoError(t, h.runUntil(30*time.Second, func() bool { return h.app.demo.ppm == 790 }))
	// 10 steps held is not enough
	h.portalPin.L = gpio.Low
	require.NoError(t, h.runUntil(40*time.Second, func() bool { return !h.app.demo.active() }))
	assert.False(t, h.app.calibration.Active())
	assert.Zero(t, h.sensor.zeroed)
}

func TestCalibrationCancelledByButton(t *testing.T) {
	h := newHarness(t, testConfig())
	startCalibration(t, h)

	require.NoError(t, h.run(2*time.Second))
	h.press(t, h.demoPin)
	assert.False(t, h.app.calibration.Active())
	assert.Equal(t, calibration.Cancelled, h.app.calibration.Outcome())
	assert.Zero(t, h.sensor.zeroed)
	assert.False(t, h.app.demo.phase == demoIntro, "cancel press must not start a new demo")
}

func TestCalibrationCancelledByButtonHeldPastZero(t *testing.T) {
	h := newHarness(t, testConfig())
	startCalibration(t, h)

	require.NoError(t, h.runUntil(70*time.Second, func() bool {
		f := h.last(t)
		return len(f.Lines) > 0 && f.Lines[len(f.Lines)-1] == "0"
	}))
	require.True(t, h.app.calibration.Active())

	h.demoPin.L = gpio.Low
	require.NoError(t, h.run(2*time.Second))
	assert.False(t, h.app.calibration.Active())
	assert.Equal(t, calibration.Cancelled, h.app.calibration.Outcome())
	assert.Zero(t, h.sensor.zeroed)

	h.demoPin.L = gpio.High
	require.NoError(t, h.run(time.Second))
	assert.Equal(t, demoIdle, h.app.demo.phase, "the cancelling hold must not start a demo")
}
