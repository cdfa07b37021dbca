package config

import (
	"os"
	"strings"
	"time"
)

type Config struct {
	// Backend selects the coordination-service tracker: zookeeper, etcd
	// or redis.
	Backend string

	// LeaderPath is where the elected leader publishes its address
	// (a znode path for zookeeper, a key for etcd/redis).
	LeaderPath string

	ZkServers        []string
	ZkSessionTimeout time.Duration

	EtcdEndpoints []string

	RedisAddr string

	APIPort  string
	LogLevel string

	TracingEnabled  bool
	TracingEndpoint string
}

func LoadConfig() *Config {
	return &Config{
		Backend:          getEnv("LW_BACKEND", "zookeeper"),
		LeaderPath:       getEnv("LW_LEADER_PATH", "/master"),
		ZkServers:        splitList(getEnv("ZK_SERVERS", "localhost:2181")),
		ZkSessionTimeout: getEnvAsDuration("ZK_SESSION_TIMEOUT", 10*time.Second),
		EtcdEndpoints:    splitList(getEnv("ETCD_ENDPOINTS", "localhost:2379")),
		RedisAddr:        getEnv("REDIS_ADDR", "localhost:6379"),
		APIPort:          getEnv("API_PORT", "8080"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		TracingEnabled:   getEnv("TRACING_ENABLED", "false") == "true",
		TracingEndpoint:  getEnv("TRACING_ENDPOINT", "localhost:4318"),
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return fallback
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
