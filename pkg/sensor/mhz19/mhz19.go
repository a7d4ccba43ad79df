// Package mhz19 speaks the MH-Z19 family serial protocol.
//
// Every request is a 9-byte frame FF 01 <cmd> <args...> <checksum>; replies
// echo the command in the second byte.
package mhz19

import (
	"errors"
	"fmt"
	"time"

	"github.com/ericogr/co2-monitor/pkg/sensor/frame"
)

const (
	cmdCO2Unlimited    = 0x85
	cmdCO2             = 0x86
	cmdZeroCalibration = 0x87
	cmdAutoCalibration = 0x79
	cmdVersion         = 0xA0
)

var (
	ErrTimeout  = errors.New("mhz19: reply timed out")
	ErrHeader   = errors.New("mhz19: unexpected reply header")
	ErrChecksum = errors.New("mhz19: checksum mismatch")
)

// Handler frames requests and decodes replies on one port.
type Handler struct {
	port        frame.Port
	readTimeout time.Duration
}

func New(port frame.Port, readTimeout time.Duration) *Handler {
	if readTimeout <= 0 {
		readTimeout = time.Second
	}
	return &Handler{port: port, readTimeout: readTimeout}
}

// Begin configures the port read timeout.
func (h *Handler) Begin() error {
	if err := h.port.SetReadTimeout(h.readTimeout); err != nil {
		return fmt.Errorf("mhz19: set timeout: %w", err)
	}
	return nil
}

// CO2 returns the concentration clamped to the configured detection range.
func (h *Handler) CO2() (int, error) {
	resp, err := h.request(cmdCO2)
	if err != nil {
		return 0, err
	}
	return int(resp[2])<<8 | int(resp[3]), nil
}

// CO2Unlimited returns the raw concentration without range clamping.
func (h *Handler) CO2Unlimited() (int, error) {
	resp, err := h.request(cmdCO2Unlimited)
	if err != nil {
		return 0, err
	}
	return int(resp[4])<<8 | int(resp[5]), nil
}

// Version returns the four character firmware version, e.g. "0436".
func (h *Handler) Version() (string, error) {
	resp, err := h.request(cmdVersion)
	if err != nil {
		return "", err
	}
	return string(resp[2:6]), nil
}

// SetAutoCalibration toggles the automatic baseline correction. The sensor
// does not reply.
func (h *Handler) SetAutoCalibration(on bool) error {
	var arg byte
	if on {
		arg = 0xA0
	}
	return h.send(cmdAutoCalibration, arg)
}

// CalibrateZero makes the sensor assume its current reading is 400 ppm.
func (h *Handler) CalibrateZero() error {
	return h.send(cmdZeroCalibration)
}

func (h *Handler) send(cmd byte, args ...byte) error {
	if err := frame.Flush(h.port, 20, h.readTimeout); err != nil {
		return fmt.Errorf("mhz19: flush: %w", err)
	}
	if _, err := h.port.Write(frame.Command(cmd, args...)); err != nil {
		return fmt.Errorf("mhz19: write: %w", err)
	}
	return nil
}

func (h *Handler) request(cmd byte) ([]byte, error) {
	if err := h.send(cmd); err != nil {
		return nil, err
	}
	resp, err := frame.Read(h.port)
	if err != nil {
		return nil, fmt.Errorf("mhz19: read: %w", err)
	}
	if len(resp) < frame.Size {
		return nil, ErrTimeout
	}
	if resp[0] != frame.Start || resp[1] != cmd {
		return nil, fmt.Errorf("%w: % X", ErrHeader, resp[:2])
	}
	if !frame.Valid(resp) {
		return nil, ErrChecksum
	}
	return resp, nil
}
