// Package frametest provides an in-memory serial port for driver tests.
package frametest

import (
	"bytes"
	"time"

	"github.com/ericogr/co2-monitor/pkg/sensor/frame"
)

// Port replays scripted replies. Each Write consumes the next entry of
// Replies and makes it readable; a nil entry simulates a silent device.
type Port struct {
	Replies [][]byte
	// Stale is readable before the first write, as noise left in the UART.
	Stale []byte

	Writes       [][]byte
	ReadTimeouts []time.Duration
	Drains       int
	Closed       bool

	rx bytes.Buffer
}

var _ frame.Port = (*Port)(nil)

// NewPort returns a port that answers writes with replies, in order.
func NewPort(replies ...[]byte) *Port {
	return &Port{Replies: replies}
}

func (p *Port) Read(b []byte) (int, error) {
	if p.Stale != nil {
		p.rx.Write(p.Stale)
		p.Stale = nil
	}
	if p.rx.Len() == 0 {
		return 0, nil
	}
	return p.rx.Read(b)
}

func (p *Port) Write(b []byte) (int, error) {
	p.Writes = append(p.Writes, append([]byte(nil), b...))
	if len(p.Replies) > 0 {
		p.rx.Write(p.Replies[0])
		p.Replies = p.Replies[1:]
	}
	return len(b), nil
}

func (p *Port) Drain() error {
	p.Drains++
	return nil
}

func (p *Port) SetReadTimeout(t time.Duration) error {
	p.ReadTimeouts = append(p.ReadTimeouts, t)
	return nil
}

func (p *Port) Close() error {
	p.Closed = true
	return nil
}

// Pending returns the number of unread bytes.
func (p *Port) Pending() int {
	return p.rx.Len() + len(p.Stale)
}

// Reply builds a valid response frame for cmd with the given payload bytes
// placed from offset 2.
func Reply(cmd byte, payload ...byte) []byte {
	f := make([]byte, frame.Size)
	f[0] = frame.Start
	f[1] = cmd
	copy(f[2:frame.Size-1], payload)
	f[frame.Size-1] = frame.Checksum(f)
	return f
}
