package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"leaderwatch/pkg/metrics"
	"leaderwatch/pkg/tracker"
)

// Tracker mirrors one redis key into a slot. The publisher writes the leader
// address at the key and publishes to a companion channel on every change
// (including deletion). Channel messages are treated as hints only; each one
// triggers a re-read of the key, which stays authoritative across missed or
// reordered messages.
//
// Redis is not consensus-backed; this backend exists for small deployments
// that already publish leadership through redis rather than a coordination
// service proper.
type Tracker struct {
	client  *redis.Client
	key     string
	channel string
	slot    *tracker.Slot
	log     *zap.Logger
	abort   tracker.Abortable

	cancel context.CancelFunc
	stop   chan struct{}
	done   chan struct{}
}

// New creates a tracker for one key. Change notifications are expected on
// "<key>:events".
func New(addr, key string, abort tracker.Abortable, log *zap.Logger) *Tracker {
	client := redis.NewClient(&redis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
		ReadTimeout: 3 * time.Second,
	})
	return &Tracker{
		client:  client,
		key:     key,
		channel: key + ":events",
		slot:    tracker.NewSlot(),
		log:     log.Named("redis-tracker").With(zap.String("key", key)),
		abort:   abort,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Start subscribes to the notification channel, then seeds the slot from the
// key. Subscribing first means a change landing between the two steps still
// produces a message, so nothing is missed.
func (t *Tracker) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel

	sub := t.client.Subscribe(runCtx, t.channel)
	if _, err := sub.Receive(ctx); err != nil {
		cancel()
		return fmt.Errorf("failed to subscribe to %s: %w", t.channel, err)
	}
	if err := t.refresh(ctx); err != nil {
		cancel()
		return fmt.Errorf("failed to read %s: %w", t.key, err)
	}

	go t.run(runCtx, sub)
	return nil
}

// Close stops the subscription and releases the client.
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

func (t *Tracker) run(ctx context.Context, sub *redis.PubSub) {
	defer close(t.done)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				select {
				case <-t.stop:
				default:
					t.abort.Abort("redis subscription closed", nil)
				}
				return
			}
			if err := t.refresh(ctx); err != nil {
				metrics.RecordWatchError("redis")
				t.log.Warn("failed to re-read tracked key", zap.Error(err))
			}
		case <-t.stop:
			return
		}
	}
}

func (t *Tracker) refresh(ctx context.Context) error {
	val, err := t.client.Get(ctx, t.key).Result()
	if err == redis.Nil {
		if _, was := t.slot.Current(); was {
			t.slot.Clear()
			metrics.RecordDeletion()
			t.log.Info("tracked key deleted")
		}
		return nil
	}
	if err != nil {
		return err
	}

	prev, was := t.slot.Current()
	if was && string(prev) == val {
		return nil
	}
	t.slot.Set([]byte(val))
	metrics.RecordValue(was)
	t.log.Info("tracked key updated", zap.String("value", val))
	return nil
}
