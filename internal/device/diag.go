package device

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// selfTest toggles host interrupts so the chip's interrupt line can be
// checked on the bench, then enters the diagnostic path.
func (s *Session) selfTest(ctx context.Context) error {
	s.info("self-test: toggling interrupts",
		slog.Duration("on", s.opts.SelfTestOn),
		slog.Duration("off", s.opts.SelfTestOff),
	)

	if err := s.bus.EnableInterrupts(); err != nil {
		return &BringUpError{Stage: "self-test", Err: err}
	}
	if err := sleep(ctx, s.opts.SelfTestOn); err != nil {
		return &BringUpError{Stage: "self-test", Err: errors.Join(err, s.bus.DisableInterrupts())}
	}
	if err := s.bus.DisableInterrupts(); err != nil {
		return &BringUpError{Stage: "self-test", Err: err}
	}
	if err := sleep(ctx, s.opts.SelfTestOff); err != nil {
		return &BringUpError{Stage: "self-test", Err: err}
	}

	return s.diagnostic(ctx)
}

// diagnostic hands the chip to the factory test collaborator. It never
// proceeds to a normal boot.
func (s *Session) diagnostic(ctx context.Context) error {
	s.info("entering diagnostic mode", slog.Int("ate", int(s.opts.TestMode)))

	if s.opts.Diagnostics != nil {
		if err := s.opts.Diagnostics.Init(ctx); err != nil {
			return &BringUpError{Stage: "diagnostic", Err: fmt.Errorf("%w: %w", ErrDiagnosticMode, err)}
		}
	}
	return &BringUpError{Stage: "diagnostic", Err: ErrDiagnosticMode}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
