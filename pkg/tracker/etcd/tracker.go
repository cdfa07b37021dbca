package etcd

import (
	"context"
	"fmt"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
	"go.uber.org/zap"

	"leaderwatch/pkg/metrics"
	"leaderwatch/pkg/tracker"
)

// Tracker mirrors one etcd key into a slot. Unlike ZooKeeper watches, an etcd
// watch stream is long-lived and resumable, so the loop is a single range
// over the watch channel; the client transparently resumes after transient
// disconnects. A watch channel that closes without Stop being called is
// unrecoverable and goes to the abort handler.
type Tracker struct {
	client *clientv3.Client
	key    string
	slot   *tracker.Slot
	log    *zap.Logger
	abort  tracker.Abortable

	cancel context.CancelFunc
	stop   chan struct{}
	done   chan struct{}
}

// New creates a tracker for one key on a fresh etcd client.
func New(endpoints []string, key string, abort tracker.Abortable, log *zap.Logger) (*Tracker, error) {
	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   endpoints,
		DialTimeout: 5 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to etcd: %w", err)
	}
	return &Tracker{
		client: cli,
		key:    key,
		slot:   tracker.NewSlot(),
		log:    log.Named("etcd-tracker").With(zap.String("key", key)),
		abort:  abort,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}, nil
}

// Start seeds the slot with the key's current contents and begins watching
// from the revision after the read, so no intervening update is missed.
func (t *Tracker) Start(ctx context.Context) error {
	resp, err := t.client.Get(ctx, t.key)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", t.key, err)
	}
	if len(resp.Kvs) > 0 {
		t.slot.Set(resp.Kvs[0].Value)
		metrics.RecordValue(false)
	}

	wctx, cancel := context.WithCancel(clientv3.WithRequireLeader(context.Background()))
	t.cancel = cancel
	wch := t.client.Watch(wctx, t.key, clientv3.WithRev(resp.Header.Revision+1))
	go t.run(wch)
	return nil
}

// Close stops the watch and releases the client.
func (t *Tracker) Close() error {
	close(t.stop)
	t.cancel()
	<-t.done
	return t.client.Close()
}

// Current implements tracker.ValueTracker.
func (t *Tracker) Current() ([]byte, bool) {
	return t.slot.Current()
}

// Await implements tracker.ValueTracker.
func (t *Tracker) Await(ctx context.Context, timeout time.Duration) ([]byte, bool, error) {
	return t.slot.Await(ctx, timeout)
}

func (t *Tracker) run(wch clientv3.WatchChan) {
	defer close(t.done)
	for resp := range wch {
		if err := resp.Err(); err != nil {
			metrics.RecordWatchError("etcd")
			t.log.Error("watch response error", zap.Error(err))
			continue
		}
		for _, ev := range resp.Events {
			switch ev.Type {
			case clientv3.EventTypePut:
				_, was := t.slot.Current()
				t.slot.Set(ev.Kv.Value)
				metrics.RecordValue(was)
				t.log.Info("tracked key updated", zap.ByteString("value", ev.Kv.Value))
			case clientv3.EventTypeDelete:
				t.slot.Clear()
				metrics.RecordDeletion()
				t.log.Info("tracked key deleted")
			}
		}
	}

	select {
	case <-t.stop:
	default:
		t.abort.Abort("etcd watch channel closed", nil)
	}
}
