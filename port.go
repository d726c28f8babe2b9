package keypad

import (
	"fmt"
	"time"

	"go.bug.st/serial"
)

// OpenPort opens a serial device at 8N1 with the given baud rate. Reads
// return after readTimeout even when nothing arrived, which lets the bus
// driver bound its reply window.
func OpenPort(name string, baud int, readTimeout time.Duration) (serial.Port, error) {
	port, err := serial.Open(name, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("opening serial port %s: %w", name, err)
	}

	if readTimeout > 0 {
		if err := port.SetReadTimeout(readTimeout); err != nil {
			port.Close()
			return nil, fmt.Errorf("setting read timeout on %s: %w", name, err)
		}
	}

	return port, nil
}
