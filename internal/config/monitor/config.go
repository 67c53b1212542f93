package monitor_config

import (
	"time"

	"github.com/nostrwatch/relaymon/internal/obs"
	pgstore "github.com/nostrwatch/relaymon/internal/store/postgres"
)

type StoreCfg struct {
	// Backend selects the record store: memory, sqlite or postgres.
	Backend string         `mapstructure:"backend"`
	SQLite  SQLiteCfg      `mapstructure:"sqlite"`
	DB      pgstore.Config `mapstructure:"db"`
}

type SQLiteCfg struct {
	Path string `mapstructure:"path"`
}

type KafkaCfg struct {
	Enable  bool     `mapstructure:"enable"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type QueueCfg struct {
	Name         string        `mapstructure:"name"`
	LockDuration time.Duration `mapstructure:"lock_duration"`
	Concurrency  int           `mapstructure:"concurrency"`
}

type MonitorCfg struct {
	Daemon        string        `mapstructure:"daemon"`
	CheckInterval time.Duration `mapstructure:"check_interval"`
	CheckExpiry   time.Duration `mapstructure:"check_expiry"`
	SyncInterval  time.Duration `mapstructure:"sync_interval"`
	ChunkSize     int           `mapstructure:"chunk_size"`
	ProbeTimeout  time.Duration `mapstructure:"probe_timeout"`
	SeedURL       string        `mapstructure:"seed_url"`
	SeedRelays    []string      `mapstructure:"seed_relays"`
	MetricsAddr   string        `mapstructure:"metrics_addr"`
}

type Config struct {
	Store    StoreCfg       `mapstructure:"store"`
	Kafka    KafkaCfg       `mapstructure:"kafka"`
	Queue    QueueCfg       `mapstructure:"queue"`
	Monitor  MonitorCfg     `mapstructure:"monitor"`
	OTEL     obs.OTELConfig `mapstructure:"otel"`
	LogLevel string         `mapstructure:"log_level"`
}
