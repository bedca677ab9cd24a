package config

import (
	"bytes"
	_ "embed"
	"time"

	"github.com/spf13/viper"
)

//go:embed defaults.yaml
var defaults []byte

// ---- Root ----

type Config struct {
	HTTP        HTTPConfig     `mapstructure:"http"`
	MySQL       DatabaseConfig `mapstructure:"mysql"`
	ClickHouse  DatabaseConfig `mapstructure:"clickhouse"`
	Redis       RedisConfig    `mapstructure:"redis"`
	Kafka       KafkaConfig    `mapstructure:"kafka"`
	Worker      WorkerConfig   `mapstructure:"worker"`
	RateLimit   RateLimitConfig `mapstructure:"rate_limit"`
	InternalAPISecret string   `mapstructure:"internal_api_secret"`
	LogLevel    string         `mapstructure:"log_level"`
	AuthCacheTTLSecs  int      `mapstructure:"auth_cache_ttl_secs"`
	RLKeyTTLSecs      int      `mapstructure:"rl_key_ttl_secs"`
	UsageRetentionDays int     `mapstructure:"usage_retention_days"`
}

// ---- Leaf structs ----

type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idletime"`
	PingTimeout     time.Duration `mapstructure:"ping_timeout"`
}

type RedisConfig struct {
	Addr        string        `mapstructure:"addr"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
}

type KafkaConfig struct {
	Brokers        []string `mapstructure:"brokers"`
	GroupID        string   `mapstructure:"group_id"`
	MinBytes       int      `mapstructure:"min_bytes"`
	MaxBytes       int      `mapstructure:"max_bytes"`
	CommitInterval int      `mapstructure:"commit_interval_ms"`
}

// WorkerConfig tunes the event-projection worker pool, the same knobs the
// teacher exposes for its sender worker (internal/worker.SenderKafka).
type WorkerConfig struct {
	WorkerCount int           `mapstructure:"worker_count"`
	BatchSize   int           `mapstructure:"batch_size"`
	BatchWait   time.Duration `mapstructure:"batch_wait"`
}

// RateLimitConfig gates the token-bucket middleware. FailClosed governs
// what happens when the Redis round trip backing the bucket itself fails:
// the default is fail-open (serve the request, log the failure) so a
// cache outage degrades to unlimited throughput rather than a blanket 503.
type RateLimitConfig struct {
	Enabled    bool `mapstructure:"enabled"`
	FailClosed bool `mapstructure:"fail_closed"`
}

// Load reads embedded defaults, merges user YAML (if provided), and applies
// env overrides (LBPLAT_*).
func Load(path string) (Config, error) {
	v := viper.New()

	// embedded defaults
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(defaults)); err != nil {
		return Config{}, err
	}

	if path != "" {
		v.SetConfigFile(path)
		_ = v.MergeInConfig()
	}

	// env override (LBPLAT_*)
	v.SetEnvPrefix("LBPLAT")
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
