package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, "http://localhost:3000", cfg.Server.BaseURL)
	require.Equal(t, 30, cfg.Idempotency.TTLDays)
	require.Equal(t, 5000, cfg.Sitemap.MaxPages)
	require.Equal(t, "public", cfg.Sitemap.LocalDir)
	require.False(t, cfg.Ping.Enabled)
	require.Empty(t, cfg.DB.DSN)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
server:
  port: 9090
  base_url: https://comparee.ai
webhook:
  primary_secret: s3cret
sitemap:
  gcs_bucket: comparee-public
  cooldown_seconds: 120
ping:
  enabled: true
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, "https://comparee.ai", cfg.Server.BaseURL)
	require.Equal(t, "s3cret", cfg.Webhook.PrimarySecret)
	require.Equal(t, "comparee-public", cfg.Sitemap.GCSBucket)
	require.Equal(t, 120, cfg.Sitemap.CooldownSeconds)
	require.True(t, cfg.Ping.Enabled)
	// Untouched keys keep their defaults.
	require.Equal(t, 60, cfg.Server.TimeoutSeconds)
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	valid := func() Config {
		cfg, err := Load("")
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero port", func(c *Config) { c.Server.Port = 0 }},
		{"empty base url", func(c *Config) { c.Server.BaseURL = "" }},
		{"zero timeout", func(c *Config) { c.Server.TimeoutSeconds = 0 }},
		{"zero skew", func(c *Config) { c.Webhook.SignatureMaxSkewSeconds = 0 }},
		{"zero ttl", func(c *Config) { c.Idempotency.TTLDays = 0 }},
		{"negative cooldown", func(c *Config) { c.Sitemap.CooldownSeconds = -1 }},
		{"zero max pages", func(c *Config) { c.Sitemap.MaxPages = 0 }},
		{"topic without project", func(c *Config) { c.PubSub.TopicName = "landing-events" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := valid()
			tt.mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}
}

func TestConfig_DurationHelpers(t *testing.T) {
	t.Parallel()

	cfg := Config{
		Server:      ServerConfig{TimeoutSeconds: 45},
		Webhook:     WebhookConfig{SignatureMaxSkewSeconds: 300},
		Idempotency: IdempotencyConfig{TTLDays: 30},
	}
	require.Equal(t, 45*time.Second, cfg.RequestTimeout())
	require.Equal(t, 5*time.Minute, cfg.SignatureMaxSkew())
	require.Equal(t, 30*24*time.Hour, cfg.IdempotencyTTL())
}
