// Package frame implements the 9-byte checksummed frames spoken by the
// supported CO2 sensors, and the serial helpers shared by their drivers.
package frame

import (
	"io"
	"time"
)

// Size is the length of every request and response frame.
const Size = 9

const (
	// Start is the first byte of every frame.
	Start = 0xFF
	// Address is the second byte of request frames.
	Address = 0x01
)

// Port is the part of a serial port the drivers use. go.bug.st/serial ports
// satisfy it.
type Port interface {
	io.ReadWriter
	Drain() error
	SetReadTimeout(t time.Duration) error
	Close() error
}

// Checksum returns 255 minus the byte-truncated sum of the first 8 bytes.
// Shorter input is summed as far as it goes.
func Checksum(f []byte) byte {
	if len(f) > Size-1 {
		f = f[:Size-1]
	}
	var sum byte
	for _, b := range f {
		sum += b
	}
	return 255 - sum
}

// Valid reports whether f is a complete frame with a matching trailing
// checksum. Marker bytes are not inspected.
func Valid(f []byte) bool {
	return len(f) == Size && f[Size-1] == Checksum(f)
}

// Command builds a request frame for cmd. Up to five argument bytes are
// placed after the command byte.
func Command(cmd byte, args ...byte) []byte {
	f := make([]byte, Size)
	f[0] = Start
	f[1] = Address
	f[2] = cmd
	copy(f[3:Size-1], args)
	f[Size-1] = Checksum(f)
	return f
}

// Flush drains pending output and discards stale input. At most limit bytes
// are discarded because some UARTs keep reporting data available.
func Flush(p Port, limit int, readTimeout time.Duration) error {
	if err := p.Drain(); err != nil {
		return err
	}
	if err := p.SetReadTimeout(0); err != nil {
		return err
	}
	defer p.SetReadTimeout(readTimeout)

	one := make([]byte, 1)
	for i := 1; i < limit; i++ {
		n, err := p.Read(one)
		if err != nil {
			return err
		}
		if n == 0 {
			break
		}
	}
	return nil
}

// Read reads up to one frame, stopping early when the port times out.
func Read(p Port) ([]byte, error) {
	buf := make([]byte, Size)
	got := 0
	for got < Size {
		n, err := p.Read(buf[got:])
		if err != nil && err != io.EOF {
			return buf[:got], err
		}
		if n == 0 {
			break
		}
		got += n
	}
	return buf[:got], nil
}
