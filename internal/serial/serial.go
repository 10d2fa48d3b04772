// Package serial opens the USB-serial bridge in front of the radio chip.
package serial

import (
	"fmt"
	"time"

	"go.bug.st/serial"
)

// pollInterval bounds each underlying read so a closed port is noticed.
const pollInterval = 100 * time.Millisecond

// Port wraps a serial port connected to an eagle bridge.
type Port struct {
	port     serial.Port
	portName string
	baudRate int
}

// Open opens a serial port with the specified baud rate.
func Open(portName string, baudRate int) (*Port, error) {
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open port %s: %w", portName, err)
	}

	if err := port.SetReadTimeout(pollInterval); err != nil {
		port.Close()
		return nil, fmt.Errorf("failed to set read timeout: %w", err)
	}

	return &Port{
		port:     port,
		portName: portName,
		baudRate: baudRate,
	}, nil
}

// Close closes the serial port. A Read blocked on the port returns an error.
func (p *Port) Close() error {
	if p.port != nil {
		return p.port.Close()
	}
	return nil
}

// Write writes data to the serial port.
func (p *Port) Write(data []byte) (int, error) {
	return p.port.Write(data)
}

// Read blocks until at least one byte arrives or the port fails.
// Read timeouts of the underlying port are not reported.
func (p *Port) Read(buf []byte) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}
	for {
		n, err := p.port.Read(buf)
		if n > 0 || err != nil {
			return n, err
		}
	}
}

// Flush discards any buffered input.
func (p *Port) Flush() error {
	return p.port.ResetInputBuffer()
}

// PowerCycle pulls the chip enable line low through RTS and releases it.
// The bridge boards wire RTS to CHIP_EN through an inverting transistor.
func (p *Port) PowerCycle() error {
	if err := p.port.SetDTR(false); err != nil {
		return err
	}
	if err := p.port.SetRTS(true); err != nil {
		return err
	}
	time.Sleep(100 * time.Millisecond)
	if err := p.port.SetRTS(false); err != nil {
		return err
	}

	// Drop boot noise from the chip.
	time.Sleep(50 * time.Millisecond)
	return p.Flush()
}

// PortName returns the port name.
func (p *Port) PortName() string {
	return p.portName
}

// BaudRate returns the current baud rate.
func (p *Port) BaudRate() int {
	return p.baudRate
}

// ListPorts returns a list of available serial ports.
func ListPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, err
	}
	return ports, nil
}
