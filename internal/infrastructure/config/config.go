package config

import (
	"fmt"
	"time"

	"marketsync/internal/domain/calendar"
	"marketsync/internal/domain/model"
)

type Config struct {
	Account string `yaml:"account"`

	Server struct {
		Port               int           `yaml:"port"`
		ReadTimeoutStr     string        `yaml:"read_timeout"`
		WriteTimeoutStr    string        `yaml:"write_timeout"`
		ShutdownTimeoutStr string        `yaml:"shutdown_timeout"`
		ReadTimeout        time.Duration `yaml:"-"`
		WriteTimeout       time.Duration `yaml:"-"`
		ShutdownTimeout    time.Duration `yaml:"-"`
	} `yaml:"server"`

	Feed struct {
		Mode                string        `yaml:"mode"`
		URL                 string        `yaml:"url"`
		SymbolsParam        string        `yaml:"symbols_param"`
		TokenParam          string        `yaml:"token_param"`
		Token               string        `yaml:"token"`
		TokenFile           string        `yaml:"token_file"`
		Watch               []string      `yaml:"watch"`
		InitialBackoffStr   string        `yaml:"initial_backoff"`
		BackoffMultiplier   float64       `yaml:"backoff_multiplier"`
		MaxBackoffStr       string        `yaml:"max_backoff"`
		HeartbeatTimeoutStr string        `yaml:"heartbeat_timeout"`
		CloseTimeoutStr     string        `yaml:"close_timeout"`
		InitialBackoff      time.Duration `yaml:"-"`
		MaxBackoff          time.Duration `yaml:"-"`
		HeartbeatTimeout    time.Duration `yaml:"-"`
		CloseTimeout        time.Duration `yaml:"-"`
	} `yaml:"feed"`

	Poll struct {
		URL         string        `yaml:"url"`
		Path        string        `yaml:"path"`
		IntervalStr string        `yaml:"interval"`
		Interval    time.Duration `yaml:"-"`
	} `yaml:"poll"`

	Kafka struct {
		Brokers []string `yaml:"brokers"`
		Topic   string   `yaml:"topic"`
		GroupID string   `yaml:"group_id"`
	} `yaml:"kafka"`

	TCP struct {
		Addr string `yaml:"addr"`
	} `yaml:"tcp"`

	Generator struct {
		IntervalStr string        `yaml:"interval"`
		Seed        int64         `yaml:"seed"`
		Interval    time.Duration `yaml:"-"`
	} `yaml:"generator"`

	Market struct {
		Timezone string `yaml:"timezone"`
		Open     string `yaml:"open"`
	} `yaml:"market"`

	Ledger struct {
		Policy string `yaml:"policy"`
	} `yaml:"ledger"`

	Animation struct {
		WindowStr string        `yaml:"window"`
		Window    time.Duration `yaml:"-"`
	} `yaml:"animation"`

	Redis struct {
		Addr     string        `yaml:"addr"`
		Password string        `yaml:"password"`
		DB       int           `yaml:"db"`
		TTLStr   string        `yaml:"ttl"`
		TTL      time.Duration `yaml:"-"`
	} `yaml:"redis"`

	Postgres struct {
		DSN string `yaml:"dsn"`
	} `yaml:"postgres"`

	SQLite struct {
		Path string `yaml:"path"`
	} `yaml:"sqlite"`

	Workers struct {
		Count  int `yaml:"count"`
		Buffer int `yaml:"buffer"`
	} `yaml:"workers"`

	Schedule struct {
		SnapshotCron string `yaml:"snapshot_cron"`
		RefreshCron  string `yaml:"refresh_cron"`
	} `yaml:"schedule"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`
}

// Validate checks values that defaults cannot fix.
func (c *Config) Validate() error {
	mode, err := model.ParseFeedMode(c.Feed.Mode)
	if err != nil {
		return err
	}
	if _, err := model.ParseLotPolicy(c.Ledger.Policy); err != nil {
		return err
	}
	if c.Feed.BackoffMultiplier < 1 {
		return fmt.Errorf("%w: feed.backoff_multiplier must be >= 1", model.ErrInvalidConfig)
	}
	if c.Feed.MaxBackoff < c.Feed.InitialBackoff {
		return fmt.Errorf("%w: feed.max_backoff is below feed.initial_backoff", model.ErrInvalidConfig)
	}
	if _, err := calendar.New(c.Market.Timezone, c.Market.Open); err != nil {
		return fmt.Errorf("%w: market: %v", model.ErrInvalidConfig, err)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server.port %d", model.ErrInvalidConfig, c.Server.Port)
	}

	switch mode {
	case model.SSEMode, model.WebSocketMode:
		if c.Feed.URL == "" {
			return fmt.Errorf("%w: feed.url is required for %s", model.ErrInvalidConfig, mode)
		}
	case model.PollMode:
		if c.Poll.URL == "" {
			return fmt.Errorf("%w: poll.url is required", model.ErrInvalidConfig)
		}
	case model.KafkaMode:
		if len(c.Kafka.Brokers) == 0 || c.Kafka.Topic == "" {
			return fmt.Errorf("%w: kafka.brokers and kafka.topic are required", model.ErrInvalidConfig)
		}
	case model.TCPMode:
		if c.TCP.Addr == "" {
			return fmt.Errorf("%w: tcp.addr is required", model.ErrInvalidConfig)
		}
	}
	return nil
}
