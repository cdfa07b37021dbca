package zookeeper

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/go-zookeeper/zk"
	"go.uber.org/zap"

	"leaderwatch/pkg/metrics"
	"leaderwatch/pkg/tracker"
)

const retryBackoff = time.Second

// NodeTracker keeps a live watch on one znode and mirrors its contents into a
// slot. Created/changed events store the node data; deleted events (and a
// missing node) clear it. The watch is re-armed after every notification,
// since ZooKeeper watches are one-shot.
type NodeTracker struct {
	conn *zk.Conn
	path string
	slot *tracker.Slot
	log  *zap.Logger

	stop chan struct{}
	done chan struct{}
}

// NewNodeTracker binds a tracker to one znode path on an existing session.
// The path is fixed for the tracker's lifetime. The logger identifies this
// tracker's purpose in watch-loop diagnostics.
func NewNodeTracker(sess *Session, path string, log *zap.Logger) *NodeTracker {
	return &NodeTracker{
		conn: sess.Conn(),
		path: path,
		slot: tracker.NewSlot(),
		log:  log.Named("node-tracker").With(zap.String("path", path)),
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
}

// Start performs the first observation synchronously and then launches the
// watch loop. Any value published before Start is visible as soon as Start
// returns.
func (t *NodeTracker) Start() error {
	ch, err := t.observe()
	if err != nil {
		return fmt.Errorf("failed to register watch on %s: %w", t.path, err)
	}
	go t.run(ch)
	return nil
}

// Stop ends the watch loop. Pending GetW/ExistsW watches cannot be cancelled
// client-side; they are simply abandoned.
func (t *NodeTracker) Stop() {
	close(t.stop)
	<-t.done
}

// Current implements tracker.ValueTracker.
func (t *NodeTracker) Current() ([]byte, bool) {
	return t.slot.Current()
}

// Await implements tracker.ValueTracker.
func (t *NodeTracker) Await(ctx context.Context, timeout time.Duration) ([]byte, bool, error) {
	return t.slot.Await(ctx, timeout)
}

func (t *NodeTracker) run(ch <-chan zk.Event) {
	defer close(t.done)
	for {
		select {
		case ev := <-ch:
			t.log.Debug("znode event", zap.String("type", ev.Type.String()))
		case <-t.stop:
			return
		}

		for {
			var err error
			ch, err = t.observe()
			if err == nil {
				break
			}
			if err == zk.ErrClosing || err == zk.ErrConnectionClosed {
				t.log.Info("connection closed; watch loop exiting")
				return
			}
			metrics.RecordWatchError("zookeeper")
			t.log.Warn("failed to re-register watch; retrying", zap.Error(err))
			select {
			case <-time.After(retryBackoff):
			case <-t.stop:
				return
			}
		}
	}
}

// observe reads the node, records the result in the slot, and leaves a watch
// armed. When the node is absent the watch is an existence watch, so creation
// fires it. The GetW/ExistsW pair loops until one of them lands while its
// observation is still accurate.
func (t *NodeTracker) observe() (<-chan zk.Event, error) {
	for {
		data, _, ch, err := t.conn.GetW(t.path)
		if err == nil {
			t.record(data)
			return ch, nil
		}
		if err != zk.ErrNoNode {
			return nil, err
		}

		exists, _, ch, err := t.conn.ExistsW(t.path)
		if err != nil {
			return nil, err
		}
		if exists {
			// Created between the two calls; read it for real.
			continue
		}
		t.recordAbsent()
		return ch, nil
	}
}

func (t *NodeTracker) record(data []byte) {
	prev, was := t.slot.Current()
	if was && bytes.Equal(prev, data) {
		return
	}
	t.slot.Set(data)
	metrics.RecordValue(was)
	t.log.Info("tracked node updated", zap.ByteString("value", data))
}

func (t *NodeTracker) recordAbsent() {
	if _, was := t.slot.Current(); !was {
		return
	}
	t.slot.Clear()
	metrics.RecordDeletion()
	t.log.Info("tracked node deleted")
}
