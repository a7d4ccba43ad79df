package scheduler

import "time"

// Clock is a monotonic millisecond counter that wraps at 2^32.
type Clock interface {
	Millis() uint32
	Sleep(d time.Duration)
}

// SystemClock counts milliseconds since it was created.
type SystemClock struct {
	start time.Time
}

func NewSystemClock() *SystemClock {
	return &SystemClock{start: time.Now()}
}

func (c *SystemClock) Millis() uint32 {
	return uint32(time.Since(c.start).Milliseconds())
}

func (c *SystemClock) Sleep(d time.Duration) { time.Sleep(d) }

// Elapsed returns now-last in milliseconds, correct across one wraparound.
func Elapsed(now, last uint32) uint32 {
	return now - last
}

// FakeClock is advanced by hand. Sleep advances it.
type FakeClock struct {
	Now   uint32
	Slept []time.Duration
}

func (c *FakeClock) Millis() uint32 { return c.Now }

func (c *FakeClock) Sleep(d time.Duration) {
	c.Slept = append(c.Slept, d)
	c.Advance(d)
}

// Advance moves the clock forward, wrapping like the device counter.
func (c *FakeClock) Advance(d time.Duration) {
	c.Now += uint32(d.Milliseconds())
}
