package sensor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericogr/co2-monitor/pkg/sensor/frame/frametest"
)

func versionReply(v string) []byte {
	return frametest.Reply(0xA0, v[0], v[1], v[2], v[3])
}

// pair returns the replies to one poll: clamped value, then raw value.
func pair(ppm, raw int) [][]byte {
	return [][]byte{
		frametest.Reply(0x86, byte(ppm>>8), byte(ppm)),
		frametest.Reply(0x85, 0, 0, byte(raw>>8), byte(raw)),
	}
}

func newTestMHZ(t *testing.T, version string, polls ...[][]byte) (*MHZ, *frametest.Port, *[]time.Duration) {
	t.Helper()
	replies := [][]byte{nil, versionReply(version)}
	for _, p := range polls {
		replies = append(replies, p...)
	}
	port := frametest.NewPort(replies...)
	var slept []time.Duration
	opts := DefaultMHZOptions()
	opts.Sleep = func(d time.Duration) { slept = append(slept, d) }
	s := NewMHZ(port, opts, discard())
	require.NoError(t, s.Begin(context.Background()))
	return s, port, &slept
}

func TestMHZValid(t *testing.T) {
	s, _, _ := newTestMHZ(t, "0443", pair(650, 650))
	r := s.CO2(context.Background())
	assert.Equal(t, StatusValid, r.Status)
	assert.Equal(t, 650, r.PPM)
	assert.Equal(t, 400, s.ZeroBaseline())
}

func TestMHZInitValueFilter(t *testing.T) {
	tests := []struct {
		name    string
		version string
		ppm     int
		raw     int
		want    Status
	}{
		{"410 with gap", "0443", 500, 410, StatusInitializing},
		{"410 small gap", "0443", 415, 410, StatusValid},
		{"436 on other firmware", "0443", 500, 436, StatusValid},
		{"436 on 0436 firmware", "0436", 500, 436, StatusInitializing},
		{"410 on 0436 firmware", "0436", 500, 410, StatusValid},
		{"raw above ceiling", "0443", 5000, 10001, StatusInitializing},
		{"value above ceiling", "0443", 10001, 5000, StatusInitializing},
		{"at ceiling", "0443", 10000, 10000, StatusValid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _, _ := newTestMHZ(t, tt.version, pair(tt.ppm, tt.raw))
			assert.Equal(t, tt.want, s.CO2(context.Background()).Status)
		})
	}
}

func TestMHZErrorReinitializes(t *testing.T) {
	s, port, slept := newTestMHZ(t, "0443", [][]byte{nil})
	writes := len(port.Writes)

	r := s.CO2(context.Background())
	assert.Equal(t, StatusError, r.Status)
	assert.Equal(t, []time.Duration{500 * time.Millisecond}, *slept)
	// failed read, then auto calibration and version request of Begin
	assert.Len(t, port.Writes, writes+3)
}

func TestMHZSetZero(t *testing.T) {
	s, port, _ := newTestMHZ(t, "0443")
	require.NoError(t, s.SetZero(context.Background()))
	assert.Equal(t, []byte{0xFF, 0x01, 0x87, 0, 0, 0, 0, 0, 0x78}, port.Writes[len(port.Writes)-1])
}
