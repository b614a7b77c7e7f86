// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	Webhook     WebhookConfig     `mapstructure:"webhook"`
	DB          DBConfig          `mapstructure:"db"`
	Idempotency IdempotencyConfig `mapstructure:"idempotency"`
	Sitemap     SitemapConfig     `mapstructure:"sitemap"`
	Ping        PingConfig        `mapstructure:"ping"`
	PubSub      PubSubConfig      `mapstructure:"pubsub"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
	// BaseURL is the public origin used in sitemap entries and ping URLs,
	// e.g. https://comparee.ai.
	BaseURL        string `mapstructure:"base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// WebhookConfig holds the dual-active ingestion secrets. Both empty means the
// endpoint runs open, which is the documented backward-compatible mode.
type WebhookConfig struct {
	PrimarySecret   string `mapstructure:"primary_secret"`
	SecondarySecret string `mapstructure:"secondary_secret"`
	// SignatureMaxSkewSeconds bounds |server time - x-signature-timestamp|.
	SignatureMaxSkewSeconds int `mapstructure:"signature_max_skew_seconds"`
}

// DBConfig controls access to the relational database. An empty DSN selects
// the in-memory stores (development mode).
type DBConfig struct {
	DSN      string `mapstructure:"dsn"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// IdempotencyConfig governs replay-key retention.
type IdempotencyConfig struct {
	TTLDays int `mapstructure:"ttl_days"`
}

// SitemapConfig controls the best-effort sitemap side effect.
type SitemapConfig struct {
	// LocalDir receives sitemap.xml when GCSBucket is empty.
	LocalDir        string `mapstructure:"local_dir"`
	GCSBucket       string `mapstructure:"gcs_bucket"`
	CooldownSeconds int    `mapstructure:"cooldown_seconds"`
	MaxPages        int    `mapstructure:"max_pages"`
}

// PingConfig controls search-engine notification after sitemap refresh.
type PingConfig struct {
	Enabled        bool `mapstructure:"enabled"`
	TimeoutSeconds int  `mapstructure:"timeout_seconds"`
}

// PubSubConfig holds metadata for ingest-event notifications. An empty topic
// disables publishing.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("INGEST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.base_url", "http://localhost:3000")
	v.SetDefault("server.timeout_seconds", 60)
	v.SetDefault("logging.development", true)
	v.SetDefault("webhook.signature_max_skew_seconds", 300)
	v.SetDefault("db.max_conns", 8)
	v.SetDefault("db.min_conns", 0)
	v.SetDefault("idempotency.ttl_days", 30)
	v.SetDefault("sitemap.local_dir", "public")
	v.SetDefault("sitemap.cooldown_seconds", 60)
	v.SetDefault("sitemap.max_pages", 5000)
	v.SetDefault("ping.enabled", false)
	v.SetDefault("ping.timeout_seconds", 10)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Server.BaseURL == "" {
		return fmt.Errorf("server.base_url must be set")
	}
	if c.Server.TimeoutSeconds <= 0 {
		return fmt.Errorf("server.timeout_seconds must be > 0")
	}
	if c.Webhook.SignatureMaxSkewSeconds <= 0 {
		return fmt.Errorf("webhook.signature_max_skew_seconds must be > 0")
	}
	if c.Idempotency.TTLDays <= 0 {
		return fmt.Errorf("idempotency.ttl_days must be > 0")
	}
	if c.Sitemap.CooldownSeconds < 0 {
		return fmt.Errorf("sitemap.cooldown_seconds must be >= 0")
	}
	if c.Sitemap.MaxPages <= 0 {
		return fmt.Errorf("sitemap.max_pages must be > 0")
	}
	if c.PubSub.TopicName != "" && c.PubSub.ProjectID == "" {
		return fmt.Errorf("pubsub.project_id must be set when pubsub.topic_name is set")
	}
	return nil
}

// IdempotencyTTL converts the configured retention into a duration.
func (c Config) IdempotencyTTL() time.Duration {
	return time.Duration(c.Idempotency.TTLDays) * 24 * time.Hour
}

// SignatureMaxSkew converts the configured skew bound into a duration.
func (c Config) SignatureMaxSkew() time.Duration {
	return time.Duration(c.Webhook.SignatureMaxSkewSeconds) * time.Second
}

// RequestTimeout converts the HTTP timeout into a duration.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.Server.TimeoutSeconds) * time.Second
}
