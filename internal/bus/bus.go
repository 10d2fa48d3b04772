// Package bus defines the chip bus contract used during bring-up and the
// scoped lock that keeps device signalling from interleaving with other
// bus traffic.
package bus

import "context"

// IRQLineBootup is the interrupt line pulsed once the chip reports it is
// resetting on first init.
const IRQLineBootup = 7

// MemoryWriter writes a payload to chip memory as one bus operation.
type MemoryWriter interface {
	WriteMemory(ctx context.Context, address uint32, data []byte) error
}

// Locker grants exclusive bus ownership.
type Locker interface {
	Lock()
	Unlock()
}

// Transport is everything the bring-up sequence needs from the bus driver.
type Transport interface {
	MemoryWriter
	Locker

	// SendCommand delivers a SIP command to the chip.
	SendCommand(ctx context.Context, opcode byte, payload []byte) error

	// EnableInterrupts lets device events reach the receive path.
	EnableInterrupts() error
	DisableInterrupts() error

	// PulseLine raises an interrupt on the chip. The caller must hold the bus lock.
	PulseLine(ctx context.Context, line uint8) error
}

// WithLock runs fn while holding l. The lock is released on every exit
// path, including a panic in fn.
func WithLock(l Locker, fn func() error) error {
	l.Lock()
	defer l.Unlock()
	return fn()
}
