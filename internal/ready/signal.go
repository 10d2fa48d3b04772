// Package ready implements the single-slot readiness signal the receive path
// uses to wake a waiting bring-up.
package ready

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrAlreadyArmed is returned by Arm while another wait is outstanding.
var ErrAlreadyArmed = errors.New("readiness signal already armed")

// Outcome is the result of a Wait.
type Outcome int

const (
	TimedOut Outcome = iota
	Signaled
)

func (o Outcome) String() string {
	switch o {
	case Signaled:
		return "signaled"
	case TimedOut:
		return "timed out"
	default:
		return "unknown"
	}
}

// Handle is one armed wait slot. It is single use.
type Handle struct {
	done chan struct{}
	once sync.Once
}

func (h *Handle) fire() {
	h.once.Do(func() { close(h.done) })
}

// Signal holds at most one armed Handle. The zero value is ready to use.
type Signal struct {
	mu    sync.Mutex
	armed *Handle
}

// Arm publishes a fresh wait slot.
func (s *Signal) Arm() (*Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.armed != nil {
		return nil, ErrAlreadyArmed
	}
	h := &Handle{done: make(chan struct{})}
	s.armed = h
	return h, nil
}

// Notify wakes the armed slot and reports whether one was armed. Without an
// armed slot the event is dropped.
func (s *Signal) Notify() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.armed == nil {
		return false
	}
	s.armed.fire()
	return true
}

// Armed reports whether a wait slot is currently published.
func (s *Signal) Armed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.armed != nil
}

// Wait blocks until h is notified, timeout elapses or ctx is done.
// A context error is returned alongside TimedOut.
func (s *Signal) Wait(ctx context.Context, h *Handle, timeout time.Duration) (Outcome, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-h.done:
		return Signaled, nil
	case <-timer.C:
		return TimedOut, nil
	case <-ctx.Done():
		return TimedOut, ctx.Err()
	}
}

// Disarm unpublishes h. Disarming a handle that is no longer armed leaves
// the current slot untouched.
func (s *Signal) Disarm(h *Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.armed == h {
		s.armed = nil
	}
}
