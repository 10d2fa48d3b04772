package bus

import (
	"errors"
	"sync"
	"testing"
)

type countingLocker struct {
	mu      sync.Mutex
	locks   int
	unlocks int
	held    bool
}

func (l *countingLocker) Lock() {
	l.mu.Lock()
	l.locks++
	l.held = true
}

func (l *countingLocker) Unlock() {
	l.unlocks++
	l.held = false
	l.mu.Unlock()
}

func TestWithLock_Success(t *testing.T) {
	l := &countingLocker{}
	var heldInside bool

	err := WithLock(l, func() error {
		heldInside = l.held
		return nil
	})
	if err != nil {
		t.Fatalf("WithLock() error = %v", err)
	}
	if !heldInside {
		t.Error("lock not held inside fn")
	}
	if l.locks != 1 || l.unlocks != 1 {
		t.Errorf("locks=%d unlocks=%d, want 1/1", l.locks, l.unlocks)
	}
}

func TestWithLock_ErrorReleases(t *testing.T) {
	l := &countingLocker{}
	want := errors.New("pulse failed")

	err := WithLock(l, func() error { return want })
	if !errors.Is(err, want) {
		t.Errorf("WithLock() error = %v, want %v", err, want)
	}
	if l.held || l.unlocks != 1 {
		t.Errorf("lock still held after error (unlocks=%d)", l.unlocks)
	}
}

func TestWithLock_PanicReleases(t *testing.T) {
	l := &countingLocker{}

	func() {
		defer func() {
			if recover() == nil {
				t.Error("expected panic to propagate")
			}
		}()
		_ = WithLock(l, func() error { panic("boom") })
	}()

	if l.held || l.unlocks != 1 {
		t.Errorf("lock still held after panic (unlocks=%d)", l.unlocks)
	}

	// The lock must be usable again.
	if err := WithLock(l, func() error { return nil }); err != nil {
		t.Fatalf("WithLock() after panic error = %v", err)
	}
}

func TestWithLock_Exclusive(t *testing.T) {
	var mu sync.Mutex
	inside := 0
	maxInside := 0
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = WithLock(&mu, func() error {
				inside++
				if inside > maxInside {
					maxInside = inside
				}
				inside--
				return nil
			})
		}()
	}
	wg.Wait()

	if maxInside != 1 {
		t.Errorf("max concurrent holders = %d, want 1", maxInside)
	}
}
