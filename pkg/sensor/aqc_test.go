package sensor

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericogr/co2-monitor/pkg/sensor/frame"
	"github.com/ericogr/co2-monitor/pkg/sensor/frame/frametest"
)

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func ppmReply(ppm int) []byte {
	return frametest.Reply(aqcResponse, byte(ppm>>8), byte(ppm))
}

func corrupt(f []byte) []byte {
	f = append([]byte(nil), f...)
	f[8] ^= 0x55
	return f
}

func newTestAQC(p *frametest.Port) (*AQC, *[]time.Duration) {
	var slept []time.Duration
	opts := DefaultAQCOptions()
	opts.Sleep = func(d time.Duration) { slept = append(slept, d) }
	return NewAQC(p, opts, discard()), &slept
}

func TestAQCValidReading(t *testing.T) {
	p := frametest.NewPort(ppmReply(612))
	s, _ := newTestAQC(p)
	require.NoError(t, s.Begin(context.Background()))

	r := s.CO2(context.Background())
	assert.Equal(t, StatusValid, r.Status)
	assert.Equal(t, 612, r.PPM)
	require.Len(t, p.Writes, 1)
	assert.Equal(t, []byte{0xFF, 0x01, 0xC5, 0, 0, 0, 0, 0, 0x3A}, p.Writes[0])
}

func TestAQCAtMostThreeAttempts(t *testing.T) {
	p := frametest.NewPort(nil, corrupt(ppmReply(700)), []byte{0xFF, 0x86}, ppmReply(800))
	s, slept := newTestAQC(p)

	r := s.CO2(context.Background())
	assert.Equal(t, StatusError, r.Status)
	assert.Equal(t, -1, r.Value())
	assert.Len(t, p.Writes, 3)
	// one delay per request plus one after the checksum failure
	assert.Len(t, *slept, 4)
	assert.Equal(t, 1, len(p.Replies), "fourth reply must stay unread")
}

func TestAQCRetriesUntilValid(t *testing.T) {
	p := frametest.NewPort(nil, corrupt(ppmReply(700)), ppmReply(701))
	s, _ := newTestAQC(p)

	r := s.CO2(context.Background())
	assert.Equal(t, StatusValid, r.Status)
	assert.Equal(t, 701, r.PPM)
	assert.Len(t, p.Writes, 3)
}

func TestAQCRejectsWrongMarker(t *testing.T) {
	f := ppmReply(650)
	f[1] = 0x87
	f[8] = frame.Checksum(f)
	p := frametest.NewPort(f, f, f)
	s, _ := newTestAQC(p)

	assert.Equal(t, StatusError, s.CO2(context.Background()).Status)
}

func TestAQCStartupFilter(t *testing.T) {
	p := frametest.NewPort(ppmReply(400), ppmReply(400), ppmReply(512), ppmReply(9999))
	s, _ := newTestAQC(p)

	var got []Reading
	for i := 0; i < 4; i++ {
		got = append(got, s.CO2(context.Background()))
	}
	assert.Equal(t, StatusInitializing, got[0].Status)
	assert.Equal(t, StatusInitializing, got[1].Status)
	assert.Equal(t, StatusValid, got[2].Status)
	assert.Equal(t, 512, got[2].PPM)
	assert.Equal(t, StatusValid, got[3].Status)
	assert.Equal(t, 9999, got[3].PPM)
	assert.Equal(t, 0, got[0].Value())
}

func TestAQCFailureResetsFilter(t *testing.T) {
	p := frametest.NewPort(ppmReply(512), nil, nil, nil, ppmReply(400), ppmReply(9999), ppmReply(480), ppmReply(400))
	s, _ := newTestAQC(p)
	ctx := context.Background()

	assert.Equal(t, StatusValid, s.CO2(ctx).Status)
	assert.Equal(t, StatusError, s.CO2(ctx).Status)
	assert.Equal(t, StatusInitializing, s.CO2(ctx).Status)
	assert.Equal(t, StatusInitializing, s.CO2(ctx).Status)
	assert.Equal(t, StatusValid, s.CO2(ctx).Status)
	r := s.CO2(ctx)
	assert.Equal(t, StatusValid, r.Status)
	assert.Equal(t, 400, r.PPM)
}

func TestAQCFlushesStaleInput(t *testing.T) {
	p := frametest.NewPort(ppmReply(777))
	p.Stale = []byte{0x01, 0x02, 0x03}
	s, _ := newTestAQC(p)

	r := s.CO2(context.Background())
	assert.Equal(t, StatusValid, r.Status)
	assert.Equal(t, 777, r.PPM)
}

func TestAQCCancelledContext(t *testing.T) {
	p := frametest.NewPort(ppmReply(777))
	s, _ := newTestAQC(p)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Equal(t, StatusError, s.CO2(ctx).Status)
	assert.Empty(t, p.Writes)
}

func TestAQCSetZero(t *testing.T) {
	p := frametest.NewPort()
	s, _ := newTestAQC(p)

	require.NoError(t, s.SetZero(context.Background()))
	require.Len(t, p.Writes, 1)
	assert.Equal(t, []byte{0xFF, 0x01, 0x87, 0, 0, 0, 0, 0, 0x78}, p.Writes[0])
	assert.Equal(t, 425, s.ZeroBaseline())
}
