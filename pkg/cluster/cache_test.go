package cluster_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	. "leaderwatch/pkg/cluster"
	"leaderwatch/pkg/tracker"
)

// newCache builds a cache over a bare in-memory slot; tests drive watch
// notifications by calling Set/Clear on the slot directly.
func newCache() (*MasterAddressCache, *tracker.Slot) {
	slot := tracker.NewSlot()
	return NewMasterAddressCache(slot, zap.NewNop()), slot
}

func TestCache_NoLeaderByDefault(t *testing.T) {
	cache, _ := newCache()

	if cache.HasLeader() {
		t.Error("expected no leader before any observation")
	}
	addr, err := cache.GetAddress()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if addr != nil {
		t.Errorf("expected nil address, got %+v", addr)
	}
}

func TestCache_LeaderAppears(t *testing.T) {
	cache, slot := newCache()
	slot.Set([]byte("10.0.0.5:60000"))

	if !cache.HasLeader() {
		t.Error("expected a leader after the path was created")
	}
	addr, err := cache.GetAddress()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if addr == nil || addr.Host != "10.0.0.5" || addr.Port != 60000 {
		t.Errorf("got %+v", addr)
	}
}

func TestCache_LeaderDeleted(t *testing.T) {
	cache, slot := newCache()
	slot.Set([]byte("10.0.0.5:60000"))
	slot.Clear()

	if cache.HasLeader() {
		t.Error("expected no leader after the path was deleted")
	}
	addr, err := cache.GetAddress()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if addr != nil {
		t.Errorf("expected nil address, got %+v", addr)
	}
}

func TestCache_UpdateOverwrites(t *testing.T) {
	cache, slot := newCache()
	slot.Set([]byte("a:1"))
	slot.Set([]byte("b:2"))

	addr, err := cache.GetAddress()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if addr == nil || addr.Host != "b" || addr.Port != 2 {
		t.Errorf("expected the newer address, got %+v", addr)
	}
}

func TestCache_MalformedPayloadIsAnError(t *testing.T) {
	cache, slot := newCache()
	slot.Set([]byte("not-an-address"))

	addr, err := cache.GetAddress()
	if !errors.Is(err, ErrMalformedAddress) {
		t.Errorf("expected ErrMalformedAddress, got addr=%v err=%v", addr, err)
	}
	if addr != nil {
		t.Errorf("expected no partial value, got %+v", addr)
	}

	// Presence check still reports the raw payload as present.
	if !cache.HasLeader() {
		t.Error("HasLeader should reflect raw presence, not decodability")
	}
}

func TestCache_WaitReturnsPriorValueImmediately(t *testing.T) {
	cache, slot := newCache()
	slot.Set([]byte("10.0.0.5:60000"))

	done := make(chan struct{})
	go func() {
		defer close(done)
		addr, err := cache.WaitForAddress(context.Background(), 0)
		if err != nil {
			t.Errorf("unexpected error: %v", err)
			return
		}
		if addr == nil || addr.String() != "10.0.0.5:60000" {
			t.Errorf("got %+v", addr)
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("WaitForAddress blocked despite a value recorded before the call")
	}
}

func TestCache_WaitTimesOut(t *testing.T) {
	cache, _ := newCache()

	start := time.Now()
	addr, err := cache.WaitForAddress(context.Background(), 100*time.Millisecond)
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if addr != nil {
		t.Errorf("expected nil on timeout, got %+v", addr)
	}
	if elapsed < 80*time.Millisecond {
		t.Errorf("returned too early: %v", elapsed)
	}
	if elapsed > 2*time.Second {
		t.Errorf("returned too late: %v", elapsed)
	}
}

func TestCache_WaitCancellationIsDistinct(t *testing.T) {
	cache, _ := newCache()

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := cache.WaitForAddress(ctx, 0)
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

func TestCache_WaitCancellationWhileQueued(t *testing.T) {
	cache, _ := newCache()

	// First waiter holds the serialized wait path.
	firstStarted := make(chan struct{})
	go func() {
		close(firstStarted)
		cache.WaitForAddress(context.Background(), 2*time.Second)
	}()
	<-firstStarted
	time.Sleep(50 * time.Millisecond)

	// Second waiter is queued behind the first; its cancellation must
	// still be honored promptly.
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := cache.WaitForAddress(ctx, 0)
		errCh <- err
	}()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if err != context.Canceled {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(1 * time.Second):
		t.Fatal("queued waiter did not honor its context")
	}
}

func TestCache_ConcurrentWaitersAllGetTheValue(t *testing.T) {
	cache, slot := newCache()

	const waiters = 2
	var wg sync.WaitGroup
	results := make(chan string, waiters)
	for i := 0; i < waiters; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			addr, err := cache.WaitForAddress(context.Background(), 0)
			if err != nil || addr == nil {
				results <- ""
				return
			}
			results <- addr.String()
		}()
	}

	time.Sleep(50 * time.Millisecond)
	slot.Set([]byte("10.0.0.5:60000"))
	wg.Wait()
	close(results)

	for got := range results {
		if got != "10.0.0.5:60000" {
			t.Errorf("waiter got %q", got)
		}
	}
}

func TestCache_WaitSurfacesMalformedPayload(t *testing.T) {
	cache, slot := newCache()

	errCh := make(chan error, 1)
	go func() {
		_, err := cache.WaitForAddress(context.Background(), 5*time.Second)
		errCh <- err
	}()

	time.Sleep(50 * time.Millisecond)
	slot.Set([]byte("garbage"))

	select {
	case err := <-errCh:
		if !errors.Is(err, ErrMalformedAddress) {
			t.Errorf("expected ErrMalformedAddress, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("waiter never returned")
	}
}
