package sensor

import (
	"context"
	"math/rand"
)

// FakeSensor simulates a sensor: a few warm-up polls, then a random walk
// between 400 and 2000 ppm.
type FakeSensor struct {
	warmup int
	ppm    int
	rnd    *rand.Rand
}

var _ Sensor = (*FakeSensor)(nil)

func NewFakeSensor(seed int64, warmup int) *FakeSensor {
	return &FakeSensor{warmup: warmup, ppm: 600, rnd: rand.New(rand.NewSource(seed))}
}

func (f *FakeSensor) Name() string                    { return "simulation" }
func (f *FakeSensor) ZeroBaseline() int               { return 400 }
func (f *FakeSensor) Begin(ctx context.Context) error { return nil }
func (f *FakeSensor) Close() error                    { return nil }

func (f *FakeSensor) CO2(ctx context.Context) Reading {
	if f.warmup > 0 {
		f.warmup--
		return Initializing()
	}
	f.ppm += f.rnd.Intn(61) - 30
	if f.ppm < 400 {
		f.ppm = 400
	}
	if f.ppm > 2000 {
		f.ppm = 2000
	}
	return Valid(f.ppm)
}

// SetZero moves the walk to the baseline.
func (f *FakeSensor) SetZero(ctx context.Context) error {
	f.ppm = f.ZeroBaseline()
	return nil
}
