package main

import (
	"fmt"

	"go.bug.st/serial"
)

// SerialBus carries DAC frames over a go.bug.st/serial port, e.g. to a
// USB-serial bridge in front of the converter. RTS stands in for the
// frame-select line.
type SerialBus struct {
	port serial.Port
	buf  [1]byte
}

// OpenSerial opens the named serial device at the given baud rate.
func OpenSerial(name string, baud int) (*SerialBus, error) {
	mode := &serial.Mode{BaudRate: baud}
	p, err := serial.Open(name, mode)
	if err != nil {
		return nil, fmt.Errorf("serial: open %s: %w", name, err)
	}
	logger.Info("serial: port opened", "device", name, "baud", baud)
	return &SerialBus{port: p}, nil
}

// SetFrameSelect asserts RTS for the duration of a frame.
func (s *SerialBus) SetFrameSelect(low bool) error {
	return s.port.SetRTS(low)
}

// WriteByte sends b and waits until the port has shifted it out.
func (s *SerialBus) WriteByte(b byte) error {
	s.buf[0] = b
	if _, err := s.port.Write(s.buf[:]); err != nil {
		return fmt.Errorf("serial: write: %w", err)
	}
	return s.port.Drain()
}

// Close closes the underlying serial port.
func (s *SerialBus) Close() {
	logger.Info("serial: closing port")
	_ = s.port.Close()
}
