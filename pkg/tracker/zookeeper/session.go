package zookeeper

import (
	"fmt"
	"time"

	"github.com/go-zookeeper/zk"
	"go.uber.org/zap"

	"leaderwatch/pkg/metrics"
	"leaderwatch/pkg/tracker"
)

// Config holds ZooKeeper connection configuration.
type Config struct {
	Servers        []string
	SessionTimeout time.Duration
}

// DefaultConfig returns connection defaults for a local ensemble.
func DefaultConfig(servers []string) Config {
	return Config{
		Servers:        servers,
		SessionTimeout: 10 * time.Second,
	}
}

// Session owns the ZooKeeper connection and consumes its session event
// stream. Disconnects are left to the client's own reconnect logic; a session
// expiry is unrecoverable (all watches are lost server-side) and is handed to
// the abort handler.
type Session struct {
	conn  *zk.Conn
	log   *zap.Logger
	abort tracker.Abortable
	done  chan struct{}
}

// NewSession connects to the ensemble and starts consuming session events.
func NewSession(cfg Config, abort tracker.Abortable, log *zap.Logger) (*Session, error) {
	conn, events, err := zk.Connect(cfg.Servers, cfg.SessionTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to zookeeper: %w", err)
	}

	s := &Session{
		conn:  conn,
		log:   log.Named("zk-session"),
		abort: abort,
		done:  make(chan struct{}),
	}
	go s.consumeEvents(events)
	return s, nil
}

// Conn exposes the underlying connection for watch registration.
func (s *Session) Conn() *zk.Conn {
	return s.conn
}

// Close tears down the connection. The event channel closes with it.
func (s *Session) Close() {
	s.conn.Close()
	<-s.done
}

func (s *Session) consumeEvents(events <-chan zk.Event) {
	defer close(s.done)
	for ev := range events {
		if ev.Type != zk.EventSession {
			continue
		}
		metrics.RecordSessionEvent("zookeeper", ev.State.String())
		switch ev.State {
		case zk.StateHasSession:
			s.log.Info("zookeeper session established", zap.String("server", ev.Server))
		case zk.StateDisconnected:
			s.log.Warn("disconnected from zookeeper; client is retrying")
		case zk.StateExpired:
			s.log.Error("zookeeper session expired")
			s.abort.Abort("zookeeper session expired", zk.ErrSessionExpired)
		default:
			s.log.Debug("session state change", zap.String("state", ev.State.String()))
		}
	}
}
