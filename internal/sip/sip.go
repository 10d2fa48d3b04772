// Package sip is the host side of the chip's SIP messaging layer, reduced to
// what bring-up needs: attach/detach, the boot command and receive dispatch.
package sip

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/bigbag/eagleboot/internal/bus"
	"github.com/bigbag/eagleboot/internal/protocol"
)

// SIP command opcodes.
const (
	CmdGetVersion  = 0x00
	CmdWriteMemory = 0x01
	CmdReadMemory  = 0x02
	CmdWriteReg    = 0x03
	CmdReadReg     = 0x04
	CmdBootup      = 0x05
)

// DefaultHistory is the number of received events a Link remembers.
const DefaultHistory = 16

// ErrAllocation is returned when Attach cannot allocate link resources.
var ErrAllocation = errors.New("sip: link allocation failed")

// State is the link protocol state. The bring-up coordinator is its only
// writer; the receive path reads it.
type State int32

const (
	StateOff State = iota
	StatePrepareBoot
	StateDownloading
	StateAwaitingBootAck
	StateReady
	StateError
)

func (s State) String() string {
	switch s {
	case StateOff:
		return "off"
	case StatePrepareBoot:
		return "prepare-boot"
	case StateDownloading:
		return "downloading"
	case StateAwaitingBootAck:
		return "awaiting-boot-ack"
	case StateReady:
		return "ready"
	case StateError:
		return "error"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Notifier is woken when the chip reports bootup or resetting.
type Notifier interface {
	Notify() bool
}

// Options configure a Link.
type Options struct {
	Logger *slog.Logger
	// History is the number of recent events kept for diagnostics.
	History   int
	NoTxAMPDU bool
	NoRxAMPDU bool
}

// Link is an attached messaging session.
type Link struct {
	t      bus.Transport
	notify Notifier
	opts   Options

	state     atomic.Int32
	txCredits atomic.Int32
	toHostSeq atomic.Uint32
	detached  atomic.Bool

	mu      sync.Mutex
	history []protocol.Event
	next    int
	filled  bool
}

// Attach allocates a link over t. Device readiness events are forwarded to n.
func Attach(t bus.Transport, n Notifier, opts Options) (*Link, error) {
	if t == nil || n == nil {
		return nil, fmt.Errorf("%w: missing transport or notifier", ErrAllocation)
	}
	if opts.History == 0 {
		opts.History = DefaultHistory
	}
	if opts.History < 0 {
		return nil, fmt.Errorf("%w: history size %d", ErrAllocation, opts.History)
	}

	l := &Link{
		t:       t,
		notify:  n,
		opts:    opts,
		history: make([]protocol.Event, opts.History),
	}
	l.state.Store(int32(StatePrepareBoot))
	return l, nil
}

// Detach stops receive dispatch. Events arriving afterwards are dropped.
func (l *Link) Detach() {
	l.detached.Store(true)
	l.SetState(StateOff)
}

// Reset puts a re-attached link back into PrepareBoot with no tx credits.
func (l *Link) Reset() {
	l.SetState(StatePrepareBoot)
	l.txCredits.Store(0)
}

// ResetSequence zeroes the to-host sequence counter.
func (l *Link) ResetSequence() {
	l.toHostSeq.Store(0)
}

func (l *Link) State() State {
	return State(l.state.Load())
}

func (l *Link) SetState(s State) {
	l.state.Store(int32(s))
}

func (l *Link) TxCredits() int {
	return int(l.txCredits.Load())
}

func (l *Link) HostSequence() uint32 {
	return l.toHostSeq.Load()
}

// AMPDU reports the aggregation switches handed to the chip after boot.
func (l *Link) AMPDU() (noTx, noRx bool) {
	return l.opts.NoTxAMPDU, l.opts.NoRxAMPDU
}

// SendBootup asks the chip to jump to entry.
func (l *Link) SendBootup(ctx context.Context, entry uint32) error {
	payload := make([]byte, 8)
	binary.LittleEndian.PutUint32(payload[0:4], entry)
	return l.t.SendCommand(ctx, CmdBootup, payload)
}

// Receive dispatches one device event. It runs on the receive path and only
// touches the notifier, the counters and the event history.
func (l *Link) Receive(ev protocol.Event) {
	if l.detached.Load() {
		return
	}

	seq := l.toHostSeq.Add(1) - 1
	if ev.Seq != seq {
		l.debug("host sequence mismatch",
			slog.Uint64("want", uint64(seq)),
			slog.Uint64("got", uint64(ev.Seq)),
		)
	}
	l.remember(ev)

	switch ev.ID {
	case protocol.EvBootup, protocol.EvResetting:
		armed := l.notify.Notify()
		l.debug("readiness event",
			slog.String("event", protocol.EventName(ev.ID)),
			slog.Bool("armed", armed),
		)
	case protocol.EvCreditReport:
		if len(ev.Data) >= 4 {
			n := int32(binary.LittleEndian.Uint32(ev.Data))
			l.txCredits.Add(n)
		}
	case protocol.EvError:
		if l.opts.Logger != nil {
			l.opts.Logger.Warn("device reported error", slog.Int("len", len(ev.Data)))
		}
	default:
		l.debug("unhandled event", slog.Int("id", int(ev.ID)))
	}
}

// Recent returns the remembered events, oldest first.
func (l *Link) Recent() []protocol.Event {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.filled {
		return append([]protocol.Event(nil), l.history[:l.next]...)
	}
	out := make([]protocol.Event, 0, len(l.history))
	out = append(out, l.history[l.next:]...)
	return append(out, l.history[:l.next]...)
}

func (l *Link) remember(ev protocol.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.history[l.next] = ev
	l.next++
	if l.next == len(l.history) {
		l.next = 0
		l.filled = true
	}
}

func (l *Link) debug(msg string, attrs ...slog.Attr) {
	if l.opts.Logger != nil {
		l.opts.Logger.LogAttrs(context.Background(), slog.LevelDebug, msg, attrs...)
	}
}
