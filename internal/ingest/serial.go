package ingest

import (
	"fmt"
	"time"

	"go.bug.st/serial"
)

// DefaultBaudRate is used when Start is called with a zero baud rate.
const DefaultBaudRate = 115200

// Port is the subset of a serial handle the worker needs. Read must return
// (0, nil) when the poll timeout elapses without data.
type Port interface {
	Read(p []byte) (int, error)
	Close() error
}

type PortConfig struct {
	BaudRate    int
	PollTimeout time.Duration
}

type Opener interface {
	Open(name string, cfg PortConfig) (Port, error)
}

// SerialOpener opens real serial devices: 8 data bits, no parity, one stop
// bit, RTS/DTR low and no hardware flow control.
type SerialOpener struct{}

func (SerialOpener) Open(name string, cfg PortConfig) (Port, error) {
	mode := &serial.Mode{
		BaudRate: cfg.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
		InitialStatusBits: &serial.ModemOutputBits{
			RTS: false,
			DTR: false,
		},
	}

	p, err := serial.Open(name, mode)
	if err != nil {
		return nil, err
	}
	if err := p.SetReadTimeout(cfg.PollTimeout); err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("set read timeout: %w", err)
	}
	return p, nil
}

// ListPorts enumerates the serial devices known to the OS.
func ListPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("list serial ports: %w", err)
	}
	return ports, nil
}
