package detect

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/bigbag/eagleboot/internal/bus"
	"github.com/bigbag/eagleboot/internal/protocol"
	"github.com/bigbag/eagleboot/internal/serial"
)

// probeTimeout bounds the whole probe of one port.
const probeTimeout = 3 * time.Second

// Result represents a detected eagle bridge.
type Result struct {
	Port     string
	ChipID   uint32
	ChipName string
}

// DetectDevice returns the first port with a responding bridge.
func DetectDevice(ctx context.Context, baudRate int) (*Result, error) {
	ports, err := serial.ListPorts()
	if err != nil {
		return nil, fmt.Errorf("failed to list ports: %w", err)
	}

	if len(ports) == 0 {
		return nil, fmt.Errorf("no serial ports found")
	}

	var lastErr error
	for _, portName := range ports {
		result, err := tryPort(ctx, portName, baudRate)
		if err != nil {
			lastErr = err
			continue
		}
		return result, nil
	}

	return nil, fmt.Errorf("no eagle bridge found (last error: %w)", lastErr)
}

// DetectOnPort probes a specific port.
func DetectOnPort(ctx context.Context, portName string, baudRate int) (*Result, error) {
	return tryPort(ctx, portName, baudRate)
}

// ListDevices scans all ports and returns every responding bridge.
func ListDevices(ctx context.Context, baudRate int) ([]Result, error) {
	ports, err := serial.ListPorts()
	if err != nil {
		return nil, fmt.Errorf("failed to list ports: %w", err)
	}

	var results []Result
	for _, portName := range ports {
		result, err := tryPort(ctx, portName, baudRate)
		if err == nil {
			results = append(results, *result)
		}
	}

	return results, nil
}

func tryPort(ctx context.Context, portName string, baudRate int) (*Result, error) {
	port, err := serial.Open(portName, baudRate)
	if err != nil {
		return nil, err
	}
	defer port.Close()

	result, err := Probe(ctx, port)
	if err != nil {
		return nil, err
	}
	result.Port = portName
	return result, nil
}

// Probe syncs with the bridge on rw and reads the chip ID. The receive
// pump runs only for the duration of the probe.
func Probe(ctx context.Context, rw io.ReadWriter) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	b := bus.NewBridge(rw, bus.BridgeOptions{Timeout: time.Second})
	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()
	defer func() {
		cancel()
		<-done
	}()

	if err := b.Sync(ctx); err != nil {
		return nil, fmt.Errorf("failed to sync: %w", err)
	}

	chipID, err := b.ChipInfo(ctx)
	if err != nil {
		var ce *bus.CommandError
		if errors.As(err, &ce) {
			// Sync worked, so a bridge is there; older firmware lacks CHIP_INFO.
			return &Result{ChipName: "eagle bridge (unknown chip)"}, nil
		}
		return nil, err
	}

	return &Result{
		ChipID:   chipID,
		ChipName: protocol.ChipName(chipID),
	}, nil
}
