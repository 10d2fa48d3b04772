package device

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bigbag/eagleboot/internal/bus"
	"github.com/bigbag/eagleboot/internal/firmware"
	"github.com/bigbag/eagleboot/internal/image"
	"github.com/bigbag/eagleboot/internal/loader"
	"github.com/bigbag/eagleboot/internal/ready"
	"github.com/bigbag/eagleboot/internal/sip"
)

// BringUp runs the boot handshake. Failures are returned as *BringUpError and
// are never retried here; the caller decides whether to run it again.
func (s *Session) BringUp(ctx context.Context) error {
	if !s.inFlight.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer s.inFlight.Store(false)

	p := planFor(s.opts.InitMode, s.opts.TestMode, s.opts.SkipDownload)
	s.info("bring-up:start",
		slog.String("path", p.kind.String()),
		slog.String("init", s.opts.InitMode.String()),
		slog.Int("ate", int(s.opts.TestMode)),
	)
	start := time.Now()

	err := s.bringUp(ctx, p)
	if err != nil {
		if l := s.link.Load(); l != nil && !errors.Is(err, ErrDiagnosticMode) {
			l.SetState(sip.StateError)
		}
		return err
	}

	s.info("bring-up:done", slog.Duration("took", time.Since(start)))
	return nil
}

func (s *Session) bringUp(ctx context.Context, p plan) error {
	s.power.Store(int32(PowerOff))

	l, err := s.attach()
	if err != nil {
		return &BringUpError{Stage: "attach", Err: fmt.Errorf("%w: %w", ErrAllocationFailed, err)}
	}
	l.ResetSequence()

	if p.kind == pathDiagnostic {
		return s.diagnostic(ctx)
	}

	if p.download {
		img, err := s.download(ctx, l, p.firmware)
		if err != nil {
			return err
		}
		if p.kind == pathATESelfTest {
			return s.selfTest(ctx)
		}
		if err := l.SendBootup(ctx, img.EntryAddress); err != nil {
			return &BringUpError{Stage: "boot command", Firmware: p.firmware, Err: fmt.Errorf("%w: %w", ErrCommandSendFailed, err)}
		}
		s.debug("boot command sent", slog.String("entry", fmt.Sprintf("0x%08X", img.EntryAddress)))
	} else {
		if err := l.SendBootup(ctx, 0); err != nil {
			return &BringUpError{Stage: "boot command", Err: fmt.Errorf("%w: %w", ErrCommandSendFailed, err)}
		}
	}

	l.SetState(sip.StateAwaitingBootAck)
	err = s.awaitBoot(ctx, p)

	if p.kind == pathATEWiring {
		s.debug("wiring test finished", slog.Any("handshake", err))
		return &BringUpError{Stage: "test mode", Firmware: p.firmware, Err: ErrUnsupportedConfiguration}
	}
	if err != nil {
		return err
	}

	l.SetState(sip.StateReady)
	s.power.Store(int32(PowerOn))
	return nil
}

// attach allocates the messaging link on first init and resets it on re-init.
func (s *Session) attach() (*sip.Link, error) {
	l := s.link.Load()
	if l != nil && s.opts.InitMode != FirstInit {
		l.Reset()
		return l, nil
	}

	nl, err := sip.Attach(s.bus, &s.signal, s.opts.Link)
	if err != nil {
		return nil, err
	}
	if l != nil {
		l.Detach()
	}
	s.link.Store(nl)
	return nl, nil
}

// download requests, parses and loads the named image. The provider's blob is
// copied and released before parsing.
func (s *Session) download(ctx context.Context, l *sip.Link, name string) (*image.Image, error) {
	blob, err := s.fw.Request(name)
	if err != nil {
		if errors.Is(err, firmware.ErrNotFound) {
			err = fmt.Errorf("%w: %w", ErrFirmwareNotFound, err)
		}
		return nil, &BringUpError{Stage: "request firmware", Firmware: name, Err: err}
	}
	buf := make([]byte, len(blob.Data))
	copy(buf, blob.Data)
	blob.Release()

	img, err := image.Parse(buf)
	if err != nil {
		return nil, &BringUpError{Stage: "parse firmware", Firmware: name, Err: err}
	}

	l.SetState(sip.StateDownloading)
	s.debug("downloading firmware",
		slog.String("name", name),
		slog.Int("size", img.Size()),
		slog.Int("blocks", int(img.BlockCount)),
	)

	opts := []loader.Option{loader.WithLogger(s.opts.Logger)}
	if s.opts.Progress != nil {
		opts = append(opts, loader.WithProgress(s.opts.Progress))
	}
	if err := loader.Load(ctx, s.bus, img, opts...); err != nil {
		return nil, &BringUpError{Stage: "load firmware", Firmware: name, Err: err}
	}
	return img, nil
}

// awaitBoot arms the readiness signal, enables interrupts and waits for the
// path's event. The signal is armed before interrupts are enabled and
// disarmed before returning.
func (s *Session) awaitBoot(ctx context.Context, p plan) error {
	h, err := s.signal.Arm()
	if err != nil {
		return &BringUpError{Stage: "arm readiness signal", Err: err}
	}
	defer s.signal.Disarm(h)

	s.waitReset.Store(false)
	if err := s.bus.EnableInterrupts(); err != nil {
		return &BringUpError{Stage: "enable interrupts", Err: err}
	}

	switch p.wait {
	case waitBootup:
		return s.wait(ctx, h, "bootup event", s.opts.BootTimeout)
	default:
		if err := s.wait(ctx, h, "resetting event", s.opts.ResetTimeout); err != nil {
			return err
		}
		err := bus.WithLock(s.bus, func() error {
			return s.bus.PulseLine(ctx, bus.IRQLineBootup)
		})
		if err != nil {
			return &BringUpError{Stage: "interrupt target", Err: err}
		}
		return nil
	}
}

func (s *Session) wait(ctx context.Context, h *ready.Handle, what string, timeout time.Duration) error {
	outcome, err := s.signal.Wait(ctx, h, timeout)
	if err != nil {
		return &BringUpError{Stage: "await " + what, Err: err}
	}
	if outcome != ready.Signaled {
		return &BringUpError{Stage: "await " + what, Err: fmt.Errorf("%w after %v", ErrTimeout, timeout)}
	}
	s.debug("device signaled", slog.String("event", what))
	return nil
}
