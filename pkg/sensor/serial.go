package sensor

import (
	"fmt"
	"strings"

	"github.com/hjkoskel/listserialports"
	"go.bug.st/serial"
)

// BaudRate of both supported sensor families.
const BaudRate = 9600

// OpenPort opens the sensor UART at 9600 8N1. The port must not be held by
// another process.
func OpenPort(name string) (serial.Port, error) {
	// pseudo terminals (socat test rigs) are not checked
	if !strings.HasPrefix(name, "/dev/pts") {
		pids, _, err := listserialports.FileIsInUseByPids(name)
		if err != nil {
			return nil, fmt.Errorf("serial port %s: %w", name, err)
		}
		if len(pids) > 0 {
			return nil, fmt.Errorf("serial port %s is in use (by PID %v)", name, pids)
		}
	}
	p, err := serial.Open(name, &serial.Mode{
		BaudRate: BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("open serial %s: %w", name, err)
	}
	return p, nil
}
