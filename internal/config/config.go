// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// DatabaseURL is the Postgres DSN (e.g. postgres://localhost/servicedesk).
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`

	// OTLPEndpoint is the OTLP gRPC collector endpoint (e.g. http://localhost:4317).
	// Empty disables telemetry export.
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	// OTLPInsecure forces plaintext OTLP even for https endpoints (standard
	// OTEL_EXPORTER_OTLP_INSECURE behavior).
	OTLPInsecure bool `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`

	// KafkaBrokers is a comma-separated list of Kafka broker addresses
	// (e.g. "localhost:9092"). Empty disables transition event emission.
	KafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// NotifyKafkaTopic is the topic transition events are written to.
	NotifyKafkaTopic string `mapstructure:"NOTIFY_KAFKA_TOPIC"`

	// VerifyInterval is how often the worker re-verifies the whole ledger (e.g. "1h").
	VerifyInterval string `mapstructure:"VERIFY_INTERVAL"`
	// ArchiveAfterDays is the age in days past which entries are copied to
	// cold storage and marked archived. Entries are never deleted.
	ArchiveAfterDays int `mapstructure:"ARCHIVE_AFTER_DAYS"`
	// ArchiveInterval is how often the worker runs an archival pass (e.g. "24h").
	ArchiveInterval string `mapstructure:"ARCHIVE_INTERVAL"`
	// ArchiveDir is the directory the JSONL cold store writes to.
	ArchiveDir string `mapstructure:"ARCHIVE_DIR"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("APP_ENV", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("NOTIFY_KAFKA_TOPIC", "servicedesk-transitions")
	v.SetDefault("VERIFY_INTERVAL", "1h")
	v.SetDefault("ARCHIVE_AFTER_DAYS", 90)
	v.SetDefault("ARCHIVE_INTERVAL", "24h")
	v.SetDefault("ARCHIVE_DIR", "archive")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.ArchiveAfterDays <= 0 {
		return nil, errors.New("config: ARCHIVE_AFTER_DAYS must be positive; archival copies, it never deletes")
	}

	return &cfg, nil
}

// VerifyEvery parses VerifyInterval as a time.Duration. Returns 1h if unset or invalid.
func (c *Config) VerifyEvery() time.Duration {
	d, err := time.ParseDuration(c.VerifyInterval)
	if err != nil || d <= 0 {
		return time.Hour
	}
	return d
}

// ArchiveEvery parses ArchiveInterval as a time.Duration. Returns 24h if unset or invalid.
func (c *Config) ArchiveEvery() time.Duration {
	d, err := time.ParseDuration(c.ArchiveInterval)
	if err != nil || d <= 0 {
		return 24 * time.Hour
	}
	return d
}

// ArchiveRetention returns the archival age cutoff as a duration.
func (c *Config) ArchiveRetention() time.Duration {
	return time.Duration(c.ArchiveAfterDays) * 24 * time.Hour
}

// KafkaBrokersList returns broker addresses from the comma-separated config.
// Used to decide if notification emission is enabled (non-empty list) and to
// create the producer.
func (c *Config) KafkaBrokersList() []string {
	if c == nil || c.KafkaBrokers == "" {
		return nil
	}
	parts := strings.Split(c.KafkaBrokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
