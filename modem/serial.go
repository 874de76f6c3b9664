package modem

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.bug.st/serial"
)

// SerialDialer opens a cellular modem over a serial port using
// go.bug.st/serial.
type SerialDialer struct {
	// PortName is the device path, e.g. "/dev/ttyUSB0".
	PortName string
	// BaudRate is used when Mode is nil. Zero means 115200.
	BaudRate int
	// Mode overrides the full port configuration when set.
	Mode *serial.Mode
	// ReadTimeout bounds a single port read so the engine can poll.
	// Zero means 50 ms.
	ReadTimeout time.Duration
}

type serialTransport struct {
	serial.Port
}

func (t serialTransport) ResetInputBuffer() error {
	return t.Port.ResetInputBuffer()
}

// Dial opens and configures the serial port. The port's read timeout is
// set so reads return (0, nil) when the modem has nothing to say, which
// is what the response accumulator's poll loop expects.
func (d SerialDialer) Dial(ctx context.Context) (Transport, error) {
	if ctx == nil {
		return nil, errors.New("modem: context is nil")
	}
	if d.PortName == "" {
		return nil, errors.New("modem: serial port name is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mode := d.Mode
	if mode == nil {
		baud := d.BaudRate
		if baud == 0 {
			baud = 115200
		}
		mode = &serial.Mode{
			BaudRate: baud,
			DataBits: 8,
			Parity:   serial.NoParity,
			StopBits: serial.OneStopBit,
		}
	}

	port, err := serial.Open(d.PortName, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial port %q: %w", d.PortName, err)
	}

	readTimeout := d.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = 50 * time.Millisecond
	}
	if err := port.SetReadTimeout(readTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("set read timeout on %q: %w", d.PortName, err)
	}

	return serialTransport{Port: port}, nil
}
