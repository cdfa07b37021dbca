package cluster

import (
	"context"
	"time"

	"go.uber.org/zap"

	"leaderwatch/pkg/tracker"
)

// MasterAddressCache tracks the network address of the cluster's current
// leader, as published at a well-known coordination-service path and observed
// through a ValueTracker.
//
// The cache holds no leadership state of its own: every read projects the
// tracker's current snapshot. It never writes to the coordination service and
// never decides who the leader is; it only republishes an externally elected
// leader's address.
//
// Use GetAddress for a point-in-time answer or WaitForAddress to block until
// a leader is published.
type MasterAddressCache struct {
	tracker tracker.ValueTracker
	log     *zap.Logger

	// waitSem serializes the blocking wait path. Concurrent waiters are
	// admitted one at a time and woken in sequence, not simultaneously;
	// the second waiter is delayed by at most the time the first takes to
	// observe and return. A channel rather than sync.Mutex so a caller
	// queued behind another waiter still honors its deadline and context.
	waitSem chan struct{}
}

// NewMasterAddressCache wraps an already-constructed tracker. The tracker's
// lifecycle (start/stop of the watch) stays with its owner; the cache only
// reads from it.
func NewMasterAddressCache(t tracker.ValueTracker, log *zap.Logger) *MasterAddressCache {
	return &MasterAddressCache{
		tracker: t,
		log:     log.Named("master-address"),
		waitSem: make(chan struct{}, 1),
	}
}

// GetAddress returns the current leader address, or (nil, nil) if no leader
// is currently published. A present but undecodable payload returns
// ErrMalformedAddress.
func (c *MasterAddressCache) GetAddress() (*Address, error) {
	data, ok := c.tracker.Current()
	if !ok {
		return nil, nil
	}
	addr, err := ParseAddress(string(data))
	if err != nil {
		c.log.Error("leader path holds undecodable payload", zap.ByteString("payload", data), zap.Error(err))
		return nil, err
	}
	return addr, nil
}

// HasLeader reports whether a leader address is currently published. It
// checks raw presence only and pays no decode cost.
func (c *MasterAddressCache) HasLeader() bool {
	_, ok := c.tracker.Current()
	return ok
}

// WaitForAddress blocks until a leader address is published, the timeout
// elapses, or ctx is cancelled. A timeout of 0 waits indefinitely.
//
// On timeout it returns (nil, nil) — deliberately indistinguishable from "no
// leader"; callers needing the distinction must track their own deadline.
// Cancellation is distinct and returns the context's error. A value recorded
// before the call begins is returned immediately.
func (c *MasterAddressCache) WaitForAddress(ctx context.Context, timeout time.Duration) (*Address, error) {
	var deadline <-chan time.Time
	start := time.Now()
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	select {
	case c.waitSem <- struct{}{}:
	case <-deadline:
		return nil, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-c.waitSem }()

	remaining := timeout
	if timeout > 0 {
		remaining = timeout - time.Since(start)
		if remaining <= 0 {
			return nil, nil
		}
	}

	data, ok, err := c.tracker.Await(ctx, remaining)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	addr, err := ParseAddress(string(data))
	if err != nil {
		c.log.Error("leader path holds undecodable payload", zap.ByteString("payload", data), zap.Error(err))
		return nil, err
	}
	return addr, nil
}
