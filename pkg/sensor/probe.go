package sensor

import (
	"context"
	"log/slog"
	"time"

	"github.com/ericogr/co2-monitor/pkg/sensor/frame"
)

// probeReadTimeout is used by the AQC driver once it answered the probe.
const probeReadTimeout = 100 * time.Millisecond

// DetectOptions configures both candidate drivers.
type DetectOptions struct {
	AQC AQCOptions
	MHZ MHZOptions
}

// Detect polls the port with the AQC driver and falls back to the MH-Z19
// driver when that poll fails. The returned sensor has been begun.
func Detect(ctx context.Context, port frame.Port, opts DetectOptions, log *slog.Logger) (Sensor, error) {
	aqc := NewAQC(port, opts.AQC, log)
	if err := aqc.Begin(ctx); err != nil {
		return nil, err
	}
	if r := aqc.CO2(ctx); r.Status != StatusError {
		if err := aqc.SetReadTimeout(probeReadTimeout); err != nil {
			return nil, err
		}
		log.Info("using AQC driver", "reading", r.Status.String())
		return aqc, nil
	}

	mhz := NewMHZ(port, opts.MHZ, log)
	if err := mhz.Begin(ctx); err != nil {
		return nil, err
	}
	log.Info("using MH-Z19 driver")
	return mhz, nil
}
