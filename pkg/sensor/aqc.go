package sensor

import (
	"context"
	"log/slog"
	"time"

	"github.com/ericogr/co2-monitor/pkg/sensor/frame"
)

const (
	aqcRead     = 0xC5
	aqcZero     = 0x87
	aqcResponse = 0x86

	// aqcAttempts is tuned for the hardware and not configurable.
	aqcAttempts = 3

	aqcZeroBaseline = 425
)

// Power-on values reported before the first real measurement.
var aqcSentinels = []int{400, 9999}

// AQCOptions holds the timing of the AQC driver.
type AQCOptions struct {
	// AttemptDelay is waited after each request, and again after a frame
	// with a bad checksum.
	AttemptDelay time.Duration
	// ReadTimeout bounds the wait for a reply.
	ReadTimeout time.Duration
	// FlushLimit caps the stale input bytes discarded before a request.
	FlushLimit int
	Sleep      func(time.Duration)
}

// DefaultAQCOptions are the timings used on the device.
func DefaultAQCOptions() AQCOptions {
	return AQCOptions{
		AttemptDelay: 50 * time.Millisecond,
		ReadTimeout:  time.Second,
		FlushLimit:   20,
		Sleep:        time.Sleep,
	}
}

// AQC drives sensors that answer the 0xC5 read command.
type AQC struct {
	port frame.Port
	opts AQCOptions
	log  *slog.Logger

	// initialized is set once a non-sentinel value is seen and cleared when
	// a read fails outright.
	initialized bool
}

var _ Sensor = (*AQC)(nil)

func NewAQC(port frame.Port, opts AQCOptions, log *slog.Logger) *AQC {
	def := DefaultAQCOptions()
	if opts.FlushLimit <= 0 {
		opts.FlushLimit = def.FlushLimit
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = def.ReadTimeout
	}
	if opts.Sleep == nil {
		opts.Sleep = def.Sleep
	}
	return &AQC{port: port, opts: opts, log: log.With(slog.String("driver", "aqc"))}
}

func (s *AQC) Name() string      { return "AQC" }
func (s *AQC) ZeroBaseline() int { return aqcZeroBaseline }
func (s *AQC) Close() error      { return s.port.Close() }

func (s *AQC) Begin(ctx context.Context) error {
	return s.port.SetReadTimeout(s.opts.ReadTimeout)
}

// SetReadTimeout changes how long a reply is waited for.
func (s *AQC) SetReadTimeout(t time.Duration) error {
	s.opts.ReadTimeout = t
	return s.port.SetReadTimeout(t)
}

func (s *AQC) CO2(ctx context.Context) Reading {
	ppm, ok := s.exchange(ctx)
	if !ok {
		s.initialized = false
		return Failed()
	}
	if !s.initialized && isSentinel(ppm) {
		return Initializing()
	}
	s.initialized = true
	return Valid(ppm)
}

// exchange tries up to aqcAttempts request/response round trips.
func (s *AQC) exchange(ctx context.Context) (int, bool) {
	req := frame.Command(aqcRead)
	for attempt := 0; attempt < aqcAttempts; attempt++ {
		if ctx.Err() != nil {
			return 0, false
		}
		if err := frame.Flush(s.port, s.opts.FlushLimit, s.opts.ReadTimeout); err != nil {
			s.log.Warn("flush failed", "attempt", attempt, "error", err)
			continue
		}
		if _, err := s.port.Write(req); err != nil {
			s.log.Warn("write failed", "attempt", attempt, "error", err)
			continue
		}
		s.opts.Sleep(s.opts.AttemptDelay)

		resp, err := frame.Read(s.port)
		if err != nil {
			s.log.Warn("read failed", "attempt", attempt, "error", err)
			continue
		}
		if len(resp) != frame.Size || resp[0] != frame.Start || resp[1] != aqcResponse {
			s.log.Debug("bad response", "attempt", attempt, "frame", resp)
			continue
		}
		if frame.Valid(resp) {
			return int(resp[2])<<8 | int(resp[3]), true
		}
		s.log.Debug("checksum mismatch", "attempt", attempt, "frame", resp)
		s.opts.Sleep(s.opts.AttemptDelay)
	}
	return 0, false
}

func (s *AQC) SetZero(ctx context.Context) error {
	if err := frame.Flush(s.port, s.opts.FlushLimit, s.opts.ReadTimeout); err != nil {
		return err
	}
	_, err := s.port.Write(frame.Command(aqcZero))
	return err
}

func isSentinel(ppm int) bool {
	for _, v := range aqcSentinels {
		if ppm == v {
			return true
		}
	}
	return false
}
