package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	config "leaderwatch/configs"
	"leaderwatch/pkg/api"
	"leaderwatch/pkg/cluster"
	"leaderwatch/pkg/logger"
	tracing "leaderwatch/pkg/observability"
	"leaderwatch/pkg/tracker"
	"leaderwatch/pkg/tracker/etcd"
	"leaderwatch/pkg/tracker/redis"
	"leaderwatch/pkg/tracker/zookeeper"
)

func main() {
	cfg := config.LoadConfig()

	zlog, err := logger.Init(logger.Config{
		Level:      cfg.LogLevel,
		Encoding:   "json",
		OutputPath: "stdout",
		Service:    "leaderwatch",
	})
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	tp, err := tracing.Init(ctx, tracing.Config{
		ServiceName: "leaderwatch",
		Environment: "production",
		Endpoint:    cfg.TracingEndpoint,
		Enabled:     cfg.TracingEnabled,
	})
	if err != nil {
		zlog.Fatal("failed to initialize tracing", zap.Error(err))
	}
	defer tp.Shutdown(context.Background())

	// Unrecoverable coordination-service failures end the process; the
	// supervisor restarts it with a fresh session and watch.
	abort := tracker.AbortFunc(func(msg string, err error) {
		zlog.Fatal("aborting: "+msg, zap.Error(err))
	})

	var vt tracker.ValueTracker
	switch cfg.Backend {
	case "zookeeper":
		sess, err := zookeeper.NewSession(zookeeper.Config{
			Servers:        cfg.ZkServers,
			SessionTimeout: cfg.ZkSessionTimeout,
		}, abort, zlog)
		if err != nil {
			zlog.Fatal("failed to connect to zookeeper", zap.Error(err))
		}
		defer sess.Close()

		nt := zookeeper.NewNodeTracker(sess, cfg.LeaderPath, zlog)
		if err := nt.Start(); err != nil {
			zlog.Fatal("failed to start node tracker", zap.Error(err))
		}
		defer nt.Stop()
		vt = nt

	case "etcd":
		t, err := etcd.New(cfg.EtcdEndpoints, cfg.LeaderPath, abort, zlog)
		if err != nil {
			zlog.Fatal("failed to connect to etcd", zap.Error(err))
		}
		if err := t.Start(ctx); err != nil {
			zlog.Fatal("failed to start etcd tracker", zap.Error(err))
		}
		defer t.Close()
		vt = t

	case "redis":
		t := redis.New(cfg.RedisAddr, cfg.LeaderPath, abort, zlog)
		if err := t.Start(ctx); err != nil {
			zlog.Fatal("failed to start redis tracker", zap.Error(err))
		}
		defer t.Close()
		vt = t

	default:
		zlog.Fatal("unknown backend", zap.String("backend", cfg.Backend))
	}

	cache := cluster.NewMasterAddressCache(vt, zlog)
	zlog.Info("tracking leader address",
		zap.String("backend", cfg.Backend),
		zap.String("path", cfg.LeaderPath),
	)

	server := api.NewServer(api.Config{
		Port:    cfg.APIPort,
		Cache:   cache,
		Backend: cfg.Backend,
		Tracing: cfg.TracingEnabled,
		Log:     zlog,
	})
	go func() {
		if err := server.Start(); err != nil {
			zlog.Fatal("api server failed", zap.Error(err))
		}
	}()

	<-sigChan
	zlog.Info("signal received, shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Error("shutdown error", zap.Error(err))
	}
}
