package sensor

import (
	"context"
	"time"
)

// Status tags a Reading.
type Status int

const (
	// StatusError means the sensor or the protocol failed.
	StatusError Status = iota
	// StatusInitializing means the device is warming up, or the value was a
	// known power-on sentinel.
	StatusInitializing
	// StatusValid means PPM holds a measurement.
	StatusValid
)

func (s Status) String() string {
	switch s {
	case StatusError:
		return "error"
	case StatusInitializing:
		return "initializing"
	case StatusValid:
		return "valid"
	}
	return "unknown"
}

// Reading is the result of one poll. PPM is only meaningful when Status is
// StatusValid.
type Reading struct {
	Status    Status    `json:"status"`
	PPM       int       `json:"ppm"`
	Timestamp time.Time `json:"timestamp"`
}

func Valid(ppm int) Reading { return Reading{Status: StatusValid, PPM: ppm, Timestamp: time.Now()} }
func Initializing() Reading { return Reading{Status: StatusInitializing, Timestamp: time.Now()} }
func Failed() Reading       { return Reading{Status: StatusError, Timestamp: time.Now()} }

// Value encodes the reading as a single integer: negative on error, zero
// while initializing, the concentration otherwise.
func (r Reading) Value() int {
	switch r.Status {
	case StatusValid:
		return r.PPM
	case StatusInitializing:
		return 0
	}
	return -1
}

// Sensor is a CO2 sensor driver. Implementations own their serial port.
type Sensor interface {
	Begin(ctx context.Context) error
	// CO2 performs one bounded protocol exchange.
	CO2(ctx context.Context) Reading
	// SetZero issues a zero-point calibration and returns immediately.
	SetZero(ctx context.Context) error
	// ZeroBaseline is the ppm the sensor assumes after SetZero.
	ZeroBaseline() int
	Name() string
	Close() error
}
