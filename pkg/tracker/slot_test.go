package tracker_test

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	. "leaderwatch/pkg/tracker"
)

func TestSlot_EmptyByDefault(t *testing.T) {
	s := NewSlot()

	if _, ok := s.Current(); ok {
		t.Error("expected no value before anything is observed")
	}
}

func TestSlot_SetThenCurrent(t *testing.T) {
	s := NewSlot()
	s.Set([]byte("10.0.0.5:60000"))

	data, ok := s.Current()
	if !ok {
		t.Fatal("expected a value after Set")
	}
	if !bytes.Equal(data, []byte("10.0.0.5:60000")) {
		t.Errorf("unexpected value %q", data)
	}
}

func TestSlot_ClearRemovesValue(t *testing.T) {
	s := NewSlot()
	s.Set([]byte("10.0.0.5:60000"))
	s.Clear()

	if _, ok := s.Current(); ok {
		t.Error("expected no value after Clear")
	}
}

func TestSlot_SetOverwrites(t *testing.T) {
	s := NewSlot()
	s.Set([]byte("a:1"))
	s.Set([]byte("b:2"))

	data, _ := s.Current()
	if string(data) != "b:2" {
		t.Errorf("expected latest value b:2, got %q", data)
	}
}

func TestSlot_AwaitReturnsExistingValueImmediately(t *testing.T) {
	s := NewSlot()
	s.Set([]byte("10.0.0.5:60000"))

	done := make(chan struct{})
	go func() {
		defer close(done)
		data, ok, err := s.Await(context.Background(), 0)
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if !ok || string(data) != "10.0.0.5:60000" {
			t.Errorf("expected existing value, got %q ok=%v", data, ok)
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Await blocked despite a value being recorded before the call")
	}
}

func TestSlot_AwaitTimesOut(t *testing.T) {
	s := NewSlot()

	start := time.Now()
	data, ok, err := s.Await(context.Background(), 100*time.Millisecond)
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok || data != nil {
		t.Errorf("expected no value on timeout, got %q", data)
	}
	if elapsed < 80*time.Millisecond {
		t.Errorf("returned too early: %v", elapsed)
	}
	if elapsed > 2*time.Second {
		t.Errorf("returned too late: %v", elapsed)
	}
}

func TestSlot_AwaitWokenBySet(t *testing.T) {
	s := NewSlot()

	type result struct {
		data []byte
		ok   bool
		err  error
	}
	resCh := make(chan result, 1)
	go func() {
		data, ok, err := s.Await(context.Background(), 5*time.Second)
		resCh <- result{data, ok, err}
	}()

	// Give the waiter a moment to block before delivering.
	time.Sleep(50 * time.Millisecond)
	s.Set([]byte("10.0.0.5:60000"))

	select {
	case res := <-resCh:
		if res.err != nil {
			t.Fatalf("unexpected error: %v", res.err)
		}
		if !res.ok || string(res.data) != "10.0.0.5:60000" {
			t.Errorf("expected delivered value, got %q ok=%v", res.data, res.ok)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("waiter was not woken by Set")
	}
}

func TestSlot_AwaitIgnoresClearWhileWaiting(t *testing.T) {
	s := NewSlot()

	resCh := make(chan bool, 1)
	go func() {
		_, ok, _ := s.Await(context.Background(), 500*time.Millisecond)
		resCh <- ok
	}()

	time.Sleep(50 * time.Millisecond)
	s.Clear() // wakes the waiter, which must re-check and keep waiting

	select {
	case ok := <-resCh:
		if ok {
			t.Error("Clear should not satisfy a waiter")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("waiter never returned")
	}
}

func TestSlot_AwaitCancellation(t *testing.T) {
	s := NewSlot()

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, _, err := s.Await(ctx, 0)
		errCh <- err
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if err != context.Canceled {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("cancellation did not unblock the waiter")
	}
}

func TestSlot_ConcurrentWaiters(t *testing.T) {
	s := NewSlot()

	const waiters = 8
	var wg sync.WaitGroup
	results := make(chan string, waiters)

	for i := 0; i < waiters; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			data, ok, err := s.Await(context.Background(), 5*time.Second)
			if err != nil || !ok {
				results <- ""
				return
			}
			results <- string(data)
		}()
	}

	time.Sleep(50 * time.Millisecond)
	s.Set([]byte("10.0.0.5:60000"))
	wg.Wait()
	close(results)

	for got := range results {
		if got != "10.0.0.5:60000" {
			t.Errorf("waiter got %q", got)
		}
	}
}

func TestSlot_ConcurrentReadersAndWrites(t *testing.T) {
	s := NewSlot()

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			if i%2 == 0 {
				s.Set([]byte("a:1"))
			} else {
				s.Clear()
			}
		}
	}()
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			if data, ok := s.Current(); ok && string(data) != "a:1" {
				t.Error("torn read")
				return
			}
		}
	}()

	time.Sleep(100 * time.Millisecond)
	close(stop)
	wg.Wait()
}
