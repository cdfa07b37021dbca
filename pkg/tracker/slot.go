package tracker

import (
	"context"
	"sync"
	"time"
)

// Slot is the single shared mutable resource behind every tracker backend: the
// last observed value of the watched path, guarded by a mutex, with a
// generation channel that is closed and replaced on every change so waiters
// can block on it.
//
// The check-then-wait race is closed by capturing the generation channel under
// the same lock as the presence check: a value recorded before Await starts is
// seen by the initial check, and one recorded after the check (but before the
// select) closes the captured channel.
//
// Slot itself implements ValueTracker, which makes it usable directly as an
// in-memory tracker in tests.
type Slot struct {
	mu      sync.Mutex
	data    []byte
	present bool
	changed chan struct{}
}

// NewSlot returns an empty slot (no value observed yet).
func NewSlot() *Slot {
	return &Slot{changed: make(chan struct{})}
}

// Set records a new value and wakes all current waiters.
func (s *Slot) Set(data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = append(s.data[:0:0], data...)
	s.present = true
	s.broadcast()
}

// Clear records the absence of a value (path deleted or never created) and
// wakes all current waiters so they re-check and keep waiting.
func (s *Slot) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = nil
	s.present = false
	s.broadcast()
}

// broadcast closes the current generation channel. Callers must hold mu.
func (s *Slot) broadcast() {
	close(s.changed)
	s.changed = make(chan struct{})
}

// Current returns the last observed value, or ok=false if none.
func (s *Slot) Current() ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.present {
		return nil, false
	}
	return append([]byte(nil), s.data...), true
}

// Await blocks until a value is present, the timeout elapses (0 = forever),
// or ctx is cancelled.
func (s *Slot) Await(ctx context.Context, timeout time.Duration) ([]byte, bool, error) {
	var deadline <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	for {
		s.mu.Lock()
		if s.present {
			data := append([]byte(nil), s.data...)
			s.mu.Unlock()
			return data, true, nil
		}
		changed := s.changed
		s.mu.Unlock()

		select {
		case <-changed:
		case <-deadline:
			return nil, false, nil
		case <-ctx.Done():
			return nil, false, ctx.Err()
		}
	}
}
