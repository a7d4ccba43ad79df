package sensor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ericogr/co2-monitor/pkg/sensor/frame"
	"github.com/ericogr/co2-monitor/pkg/sensor/mhz19"
)

const (
	mhzZeroBaseline = 400

	// mhzInit is reported right after boot; firmware 0436 reports 436.
	mhzInit     = 410
	mhzInit0436 = 436

	// mhzNoiseGap is the minimum distance between the clamped and raw value
	// for the init constant to be treated as warm-up noise.
	mhzNoiseGap = 10
	// mhzCeiling is above anything the supported hardware measures.
	mhzCeiling = 10000
)

// MHZOptions holds the timing of the MH-Z19 driver.
type MHZOptions struct {
	ReadTimeout time.Duration
	// ReinitDelay is waited before the port is set up again after an error.
	ReinitDelay time.Duration
	Sleep       func(time.Duration)
}

func DefaultMHZOptions() MHZOptions {
	return MHZOptions{
		ReadTimeout: time.Second,
		ReinitDelay: 500 * time.Millisecond,
		Sleep:       time.Sleep,
	}
}

// MHZ drives MH-Z19 sensors through the mhz19 protocol handler and filters
// warm-up values the handler lets through.
type MHZ struct {
	port    frame.Port
	handler *mhz19.Handler
	opts    MHZOptions
	log     *slog.Logger

	initValue int
}

var _ Sensor = (*MHZ)(nil)

func NewMHZ(port frame.Port, opts MHZOptions, log *slog.Logger) *MHZ {
	def := DefaultMHZOptions()
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = def.ReadTimeout
	}
	if opts.Sleep == nil {
		opts.Sleep = def.Sleep
	}
	return &MHZ{
		port:      port,
		handler:   mhz19.New(port, opts.ReadTimeout),
		opts:      opts,
		log:       log.With(slog.String("driver", "mhz19")),
		initValue: mhzInit,
	}
}

func (s *MHZ) Name() string      { return "MH-Z19" }
func (s *MHZ) ZeroBaseline() int { return mhzZeroBaseline }
func (s *MHZ) Close() error      { return s.port.Close() }

// Begin sets up the channel, enables automatic baseline correction and
// detects the firmware revision.
func (s *MHZ) Begin(ctx context.Context) error {
	if err := s.handler.Begin(); err != nil {
		return err
	}
	if err := s.handler.SetAutoCalibration(true); err != nil {
		return fmt.Errorf("auto calibration: %w", err)
	}
	v, err := s.handler.Version()
	if err != nil {
		s.log.Warn("version unavailable", "error", err)
		return nil
	}
	if v == "0436" {
		s.initValue = mhzInit0436
	}
	s.log.Info("sensor firmware", "version", v, "init_value", s.initValue)
	return nil
}

func (s *MHZ) CO2(ctx context.Context) Reading {
	ppm, err := s.handler.CO2()
	var raw int
	if err == nil {
		raw, err = s.handler.CO2Unlimited()
	}
	if err != nil {
		s.log.Warn("read failed", "error", err)
		s.opts.Sleep(s.opts.ReinitDelay)
		if err := s.Begin(ctx); err != nil {
			s.log.Warn("reinit failed", "error", err)
		}
		return Failed()
	}

	if raw == s.initValue && ppm-raw >= mhzNoiseGap {
		return Initializing()
	}
	if ppm > mhzCeiling || raw > mhzCeiling {
		return Initializing()
	}
	return Valid(ppm)
}

func (s *MHZ) SetZero(ctx context.Context) error {
	return s.handler.CalibrateZero()
}
