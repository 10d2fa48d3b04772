package bus

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bigbag/eagleboot/internal/protocol"
	"github.com/bigbag/eagleboot/internal/slip"
)

// Default bridge timings.
const (
	DefaultRequestTimeout = 3 * time.Second
	syncAttempts          = 10
	syncTimeout           = 200 * time.Millisecond
	responseQueue         = 8
)

// ErrNoResponse is returned when the bridge does not answer a request in time.
var ErrNoResponse = errors.New("bridge: no response")

// CommandError is a request the bridge answered with a failure status.
type CommandError struct {
	Command byte
	Status  byte
	Code    byte
}

func (e *CommandError) Error() string {
	resp := protocol.Response{Command: e.Command, Status: e.Status, Error: e.Code}
	return fmt.Sprintf("bridge: command 0x%02X failed: %s", e.Command, resp.ErrorString())
}

// EventHandler receives device events forwarded by the bridge.
type EventHandler func(ev protocol.Event)

// BridgeOptions configure a Bridge.
type BridgeOptions struct {
	// Timeout bounds each request/response exchange.
	Timeout time.Duration
	// BlockSize is the MEM_DATA chunk size.
	BlockSize int
	Logger    *slog.Logger
}

// Bridge is a Transport over a USB-serial bridge speaking SLIP-framed
// packets. Run must be running for any request to complete.
//
// WriteMemory, SendCommand and the interrupt enable/disable requests take
// the bus lock themselves. PulseLine does not; callers hold the lock.
type Bridge struct {
	mu sync.Mutex
	rw io.ReadWriter

	timeout   time.Duration
	blockSize int
	logger    *slog.Logger

	responses chan *protocol.Response
	handler   atomic.Pointer[EventHandler]
	irq       atomic.Bool
}

// NewBridge creates a bridge over rw, typically a *serial.Port.
func NewBridge(rw io.ReadWriter, opts BridgeOptions) *Bridge {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultRequestTimeout
	}
	if opts.BlockSize <= 0 {
		opts.BlockSize = protocol.MemBlockSize
	}
	return &Bridge{
		rw:        rw,
		timeout:   opts.Timeout,
		blockSize: opts.BlockSize,
		logger:    opts.Logger,
		responses: make(chan *protocol.Response, responseQueue),
	}
}

// SetEventHandler installs the receiver for device events.
func (b *Bridge) SetEventHandler(h EventHandler) {
	b.handler.Store(&h)
}

// Lock takes exclusive ownership of the bus.
func (b *Bridge) Lock() { b.mu.Lock() }

// Unlock releases the bus.
func (b *Bridge) Unlock() { b.mu.Unlock() }

// InterruptsEnabled reports whether device events are being forwarded.
func (b *Bridge) InterruptsEnabled() bool {
	return b.irq.Load()
}

// Run is the receive pump. It reassembles frames, hands responses to the
// pending request and forwards device events while interrupts are enabled.
// It returns when ctx is done or reading fails. A reader goroutine blocked
// on the port exits once the port is closed.
func (b *Bridge) Run(ctx context.Context) error {
	frames := make(chan []byte)
	errc := make(chan error, 1)

	go func() {
		r := slip.NewReader(b.rw)
		for {
			frame, err := r.ReadFrame()
			if errors.Is(err, slip.ErrFrameTooLong) {
				b.debug("dropped oversized frame")
				continue
			}
			if err != nil {
				errc <- err
				return
			}
			pkt := append([]byte(nil), frame...)
			select {
			case frames <- pkt:
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-errc:
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("bridge: read: %w", err)
		case pkt := <-frames:
			b.dispatch(pkt)
		}
	}
}

func (b *Bridge) dispatch(pkt []byte) {
	dir, err := protocol.Direction(pkt)
	if err != nil {
		b.debug("dropped frame", slog.String("err", err.Error()))
		return
	}

	switch dir {
	case protocol.DirResponse:
		resp, err := protocol.DecodeResponse(pkt)
		if err != nil {
			b.debug("dropped response", slog.String("err", err.Error()))
			return
		}
		select {
		case b.responses <- resp:
		default:
			b.debug("dropped unsolicited response", slog.Int("cmd", int(resp.Command)))
		}
	case protocol.DirEvent:
		ev, err := protocol.DecodeEvent(pkt)
		if err != nil {
			b.debug("dropped event", slog.String("err", err.Error()))
			return
		}
		h := b.handler.Load()
		if !b.irq.Load() || h == nil {
			b.debug("event while interrupts disabled", slog.String("event", protocol.EventName(ev.ID)))
			return
		}
		(*h)(*ev)
	default:
		b.debug("dropped frame", slog.Int("direction", int(dir)))
	}
}

// exchange sends one request and waits for its response. Callers serialize
// exchanges through the bus lock.
func (b *Bridge) exchange(ctx context.Context, cmd byte, data []byte, timeout time.Duration) (*protocol.Response, error) {
	return b.roundTrip(ctx, cmd, data, timeout, nil)
}

// roundTrip is exchange with an extra response filter. Responses for cmd
// that fail match are left over from an earlier request and are skipped.
func (b *Bridge) roundTrip(ctx context.Context, cmd byte, data []byte, timeout time.Duration, match func(*protocol.Response) bool) (*protocol.Response, error) {
	// Discard anything left over from an earlier timed-out request.
drain:
	for {
		select {
		case <-b.responses:
		default:
			break drain
		}
	}

	frame := slip.Encode(protocol.NewRequest(cmd, data).Encode())
	if _, err := b.rw.Write(frame); err != nil {
		return nil, fmt.Errorf("bridge: write command 0x%02X: %w", cmd, err)
	}

	t := time.NewTimer(timeout)
	defer t.Stop()

	for {
		select {
		case resp := <-b.responses:
			if resp.Command != cmd || (match != nil && !match(resp)) {
				b.debug("stale response",
					slog.Int("want", int(cmd)),
					slog.Int("got", int(resp.Command)),
					slog.Uint64("value", uint64(resp.Value)),
				)
				continue
			}
			if !resp.IsSuccess() {
				return resp, &CommandError{Command: cmd, Status: resp.Status, Code: resp.Error}
			}
			return resp, nil
		case <-t.C:
			return nil, fmt.Errorf("%w to command 0x%02X after %v", ErrNoResponse, cmd, timeout)
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Sync establishes communication with the bridge.
func (b *Bridge) Sync(ctx context.Context) error {
	b.Lock()
	defer b.Unlock()

	var lastErr error
	for attempt := 0; attempt < syncAttempts; attempt++ {
		_, err := b.exchange(ctx, protocol.CmdSync, protocol.SyncData(), syncTimeout)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		lastErr = err
	}
	return fmt.Errorf("sync failed after %d attempts: %w", syncAttempts, lastErr)
}

// ChipInfo returns the chip ID reported by the bridge.
func (b *Bridge) ChipInfo(ctx context.Context) (uint32, error) {
	b.Lock()
	defer b.Unlock()

	resp, err := b.exchange(ctx, protocol.CmdChipInfo, nil, b.timeout)
	if err != nil {
		return 0, err
	}
	return resp.Value, nil
}

// WriteMemory writes data at address with MEM_BEGIN, one MEM_DATA per
// block-size chunk and MEM_END.
func (b *Bridge) WriteMemory(ctx context.Context, address uint32, data []byte) error {
	b.Lock()
	defer b.Unlock()

	blocks := protocol.CalculateMemBlocks(len(data), b.blockSize)
	begin := protocol.MemBeginData(uint32(len(data)), blocks, uint32(b.blockSize), address)
	if _, err := b.exchange(ctx, protocol.CmdMemBegin, begin, b.timeout); err != nil {
		return fmt.Errorf("mem begin at 0x%08X: %w", address, err)
	}

	for seq := uint32(0); seq < blocks; seq++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		start := int(seq) * b.blockSize
		end := min(start+b.blockSize, len(data))

		chunk := protocol.MemDataData(data[start:end], seq)
		ack := func(r *protocol.Response) bool { return r.Value == seq }
		if _, err := b.roundTrip(ctx, protocol.CmdMemData, chunk, b.timeout, ack); err != nil {
			return fmt.Errorf("mem data block %d at 0x%08X: %w", seq, address, err)
		}
	}

	if _, err := b.exchange(ctx, protocol.CmdMemEnd, protocol.MemEndData(), b.timeout); err != nil {
		return fmt.Errorf("mem end at 0x%08X: %w", address, err)
	}
	return nil
}

// SendCommand delivers a SIP command to the chip.
func (b *Bridge) SendCommand(ctx context.Context, opcode byte, payload []byte) error {
	b.Lock()
	defer b.Unlock()

	if _, err := b.exchange(ctx, protocol.CmdSipCommand, protocol.SipCommandData(opcode, payload), b.timeout); err != nil {
		return fmt.Errorf("sip command %d: %w", opcode, err)
	}
	return nil
}

// EnableInterrupts starts forwarding device events. Events that arrive
// before the acknowledgement are forwarded too.
func (b *Bridge) EnableInterrupts() error {
	b.Lock()
	defer b.Unlock()

	b.irq.Store(true)
	if _, err := b.exchange(context.Background(), protocol.CmdIrqEnable, nil, b.timeout); err != nil {
		b.irq.Store(false)
		return fmt.Errorf("enable interrupts: %w", err)
	}
	return nil
}

// DisableInterrupts stops forwarding device events.
func (b *Bridge) DisableInterrupts() error {
	b.Lock()
	defer b.Unlock()

	b.irq.Store(false)
	if _, err := b.exchange(context.Background(), protocol.CmdIrqDisable, nil, b.timeout); err != nil {
		return fmt.Errorf("disable interrupts: %w", err)
	}
	return nil
}

// PulseLine raises interrupt line on the chip. The caller must hold the
// bus lock.
func (b *Bridge) PulseLine(ctx context.Context, line uint8) error {
	if _, err := b.exchange(ctx, protocol.CmdIrqTarget, protocol.IrqTargetData(line), b.timeout); err != nil {
		return fmt.Errorf("interrupt target %d: %w", line, err)
	}
	return nil
}

func (b *Bridge) debug(msg string, attrs ...slog.Attr) {
	if b.logger != nil {
		b.logger.LogAttrs(context.Background(), slog.LevelDebug, msg, attrs...)
	}
}

var _ Transport = (*Bridge)(nil)
