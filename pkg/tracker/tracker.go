package tracker

import (
	"context"
	"time"
)

// ValueTracker maintains the last known contents of one watched path in the
// coordination service. Implementations keep a live watch registered and
// update their snapshot as create/update/delete notifications arrive.
type ValueTracker interface {
	// Current returns an immediate snapshot of the tracked value.
	// ok is false when the path does not currently exist (or has not
	// been observed yet).
	Current() (data []byte, ok bool)

	// Await blocks until a value is available, the timeout elapses, or
	// the context is cancelled. A timeout of 0 means wait indefinitely.
	// On timeout it returns (nil, false, nil); on cancellation it
	// returns the context's error. A value recorded before Await is
	// called is returned immediately.
	Await(ctx context.Context, timeout time.Duration) (data []byte, ok bool, err error)
}

// Abortable receives unrecoverable coordination-service failures, such as a
// session expiry the tracker cannot repair. The tracker performs no recovery
// of its own beyond transient retries; policy belongs to the process owner.
type Abortable interface {
	Abort(msg string, err error)
}

// AbortFunc adapts a plain function to the Abortable interface.
type AbortFunc func(msg string, err error)

func (f AbortFunc) Abort(msg string, err error) { f(msg, err) }
