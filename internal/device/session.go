// Package device brings an eagle chip from power-off to the point where it
// has accepted a boot command and reported that it is up.
package device

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/bigbag/eagleboot/internal/bus"
	"github.com/bigbag/eagleboot/internal/firmware"
	"github.com/bigbag/eagleboot/internal/loader"
	"github.com/bigbag/eagleboot/internal/protocol"
	"github.com/bigbag/eagleboot/internal/ready"
	"github.com/bigbag/eagleboot/internal/sip"
)

// Default handshake timings.
const (
	DefaultBootTimeout  = 2 * time.Second
	DefaultResetTimeout = 10 * time.Second
	DefaultSelfTestOn   = 500 * time.Millisecond
	DefaultSelfTestOff  = 1000 * time.Millisecond
)

// PowerState is the chip power-management state.
type PowerState int32

const (
	PowerOff PowerState = iota
	PowerOn
)

func (p PowerState) String() string {
	if p == PowerOn {
		return "on"
	}
	return "off"
}

// Diagnostics runs the factory test initialisation entered by unrecognised
// test modes and after the self-test interrupt toggle.
type Diagnostics interface {
	Init(ctx context.Context) error
}

// Options configure a Session.
type Options struct {
	InitMode     InitMode
	TestMode     TestMode
	SkipDownload bool

	BootTimeout  time.Duration
	ResetTimeout time.Duration
	SelfTestOn   time.Duration
	SelfTestOff  time.Duration

	Link        sip.Options
	Diagnostics Diagnostics
	Progress    loader.ProgressCallback
	Logger      *slog.Logger
}

func (o *Options) setDefaults() {
	if o.BootTimeout <= 0 {
		o.BootTimeout = DefaultBootTimeout
	}
	if o.ResetTimeout <= 0 {
		o.ResetTimeout = DefaultResetTimeout
	}
	if o.SelfTestOn <= 0 {
		o.SelfTestOn = DefaultSelfTestOn
	}
	if o.SelfTestOff <= 0 {
		o.SelfTestOff = DefaultSelfTestOff
	}
	if o.Link.Logger == nil {
		o.Link.Logger = o.Logger
	}
}

// Session is one attached chip. BringUp and Detach are called from a single
// worker; OnDeviceEvent is called from the receive path.
type Session struct {
	bus  bus.Transport
	fw   firmware.Provider
	opts Options

	signal ready.Signal
	link   atomic.Pointer[sip.Link]

	power     atomic.Int32
	inFlight  atomic.Bool
	waitReset atomic.Bool
}

// New creates a session for the chip behind t.
func New(t bus.Transport, fw firmware.Provider, opts Options) *Session {
	opts.setDefaults()
	return &Session{
		bus:  t,
		fw:   fw,
		opts: opts,
	}
}

// PowerState returns the current power state.
func (s *Session) PowerState() PowerState {
	return PowerState(s.power.Load())
}

// ProtocolState returns the messaging link state, StateOff before the
// first attach.
func (s *Session) ProtocolState() sip.State {
	if l := s.link.Load(); l != nil {
		return l.State()
	}
	return sip.StateOff
}

// Link returns the attached messaging link, or nil.
func (s *Session) Link() *sip.Link {
	return s.link.Load()
}

// WaitingReset reports whether the chip announced a reset since interrupts
// were last enabled.
func (s *Session) WaitingReset() bool {
	return s.waitReset.Load()
}

// OnDeviceEvent is the receive-path entry point. It only forwards the event
// to the messaging layer, which notifies the readiness signal.
func (s *Session) OnDeviceEvent(ev protocol.Event) {
	l := s.link.Load()
	if l == nil {
		return
	}
	if ev.ID == protocol.EvResetting {
		s.waitReset.Store(true)
	}
	l.Receive(ev)
}

// Detach releases the messaging link. It fails while a bring-up is running.
func (s *Session) Detach() error {
	if !s.inFlight.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer s.inFlight.Store(false)

	if l := s.link.Swap(nil); l != nil {
		l.Detach()
	}
	s.power.Store(int32(PowerOff))
	return nil
}

func (s *Session) debug(msg string, attrs ...slog.Attr) {
	if s.opts.Logger != nil {
		s.opts.Logger.LogAttrs(context.Background(), slog.LevelDebug, msg, attrs...)
	}
}

func (s *Session) info(msg string, attrs ...slog.Attr) {
	if s.opts.Logger != nil {
		s.opts.Logger.LogAttrs(context.Background(), slog.LevelInfo, msg, attrs...)
	}
}
