package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const DefaultPath = "configs/config.yaml"

// Load reads .env (if present), the YAML file at path (if present), applies
// environment overrides and defaults, and parses durations. An empty path
// means CONFIG_PATH or DefaultPath.
func Load(path string) (*Config, error) {
	// a missing .env is fine
	_ = godotenv.Load()

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		path = DefaultPath
	}

	cfg := &Config{}
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	if err := parseDurations(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("FEED_URL"); v != "" {
		cfg.Feed.URL = v
	}
	if v := os.Getenv("FEED_TOKEN"); v != "" {
		cfg.Feed.Token = v
	}
	if v := os.Getenv("FEED_MODE"); v != "" {
		cfg.Feed.Mode = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		cfg.Postgres.DSN = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.SQLite.Path = v
	}
	if v := os.Getenv("SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = splitList(v)
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Account == "" {
		cfg.Account = "default"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	setDefault(&cfg.Server.ReadTimeoutStr, "10s")
	setDefault(&cfg.Server.WriteTimeoutStr, "10s")
	setDefault(&cfg.Server.ShutdownTimeoutStr, "15s")

	setDefault(&cfg.Feed.Mode, "sse")
	setDefault(&cfg.Feed.SymbolsParam, "symbols")
	setDefault(&cfg.Feed.TokenParam, "token")
	setDefault(&cfg.Feed.InitialBackoffStr, "800ms")
	if cfg.Feed.BackoffMultiplier == 0 {
		cfg.Feed.BackoffMultiplier = 1.5
	}
	setDefault(&cfg.Feed.MaxBackoffStr, "5s")
	setDefault(&cfg.Feed.HeartbeatTimeoutStr, "30s")
	setDefault(&cfg.Feed.CloseTimeoutStr, "5s")

	setDefault(&cfg.Poll.Path, "$[*]")
	setDefault(&cfg.Poll.IntervalStr, "5s")
	setDefault(&cfg.Generator.IntervalStr, "1s")

	setDefault(&cfg.Market.Timezone, "America/New_York")
	setDefault(&cfg.Market.Open, "09:30")
	setDefault(&cfg.Ledger.Policy, "buy_only")
	setDefault(&cfg.Animation.WindowStr, "1500ms")

	setDefault(&cfg.SQLite.Path, "data/marketsync.db")
	setDefault(&cfg.Redis.TTLStr, "24h")
	if cfg.Workers.Count == 0 {
		cfg.Workers.Count = 4
	}
	if cfg.Workers.Buffer == 0 {
		cfg.Workers.Buffer = 256
	}

	setDefault(&cfg.Schedule.SnapshotCron, "0 */5 * * * *")
	setDefault(&cfg.Schedule.RefreshCron, "0 * * * * *")
	setDefault(&cfg.Logging.Level, "info")
	setDefault(&cfg.Logging.Format, "json")
}

func parseDurations(cfg *Config) error {
	fields := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"server.read_timeout", cfg.Server.ReadTimeoutStr, &cfg.Server.ReadTimeout},
		{"server.write_timeout", cfg.Server.WriteTimeoutStr, &cfg.Server.WriteTimeout},
		{"server.shutdown_timeout", cfg.Server.ShutdownTimeoutStr, &cfg.Server.ShutdownTimeout},
		{"feed.initial_backoff", cfg.Feed.InitialBackoffStr, &cfg.Feed.InitialBackoff},
		{"feed.max_backoff", cfg.Feed.MaxBackoffStr, &cfg.Feed.MaxBackoff},
		{"feed.heartbeat_timeout", cfg.Feed.HeartbeatTimeoutStr, &cfg.Feed.HeartbeatTimeout},
		{"feed.close_timeout", cfg.Feed.CloseTimeoutStr, &cfg.Feed.CloseTimeout},
		{"poll.interval", cfg.Poll.IntervalStr, &cfg.Poll.Interval},
		{"generator.interval", cfg.Generator.IntervalStr, &cfg.Generator.Interval},
		{"animation.window", cfg.Animation.WindowStr, &cfg.Animation.Window},
		{"redis.ttl", cfg.Redis.TTLStr, &cfg.Redis.TTL},
	}
	for _, f := range fields {
		d, err := time.ParseDuration(f.raw)
		if err != nil {
			return fmt.Errorf("parse %s: %w", f.name, err)
		}
		*f.dst = d
	}
	return nil
}

func setDefault(dst *string, v string) {
	if *dst == "" {
		*dst = v
	}
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
