package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "localhost:8080", cfg.Server.Addr())
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 60*time.Second, cfg.Scheduler.Interval())
	assert.Equal(t, 50*time.Second, cfg.Scheduler.PassTimeout())
	assert.Equal(t, "Europe/Kyiv", cfg.Scheduler.Timezone)
	assert.Equal(t, "coingecko", cfg.Providers.CryptoProvider)
	assert.Equal(t, "UAH", cfg.Providers.AnchorCurrency)
	assert.Equal(t, 4, cfg.Providers.MaxConcurrentRequests)
	assert.Equal(t, 20*time.Second, cfg.Providers.HTTPTimeout())
	assert.Equal(t, "log", cfg.Notifier.Type)
	assert.False(t, cfg.Alerts.RedeliverOnFailure)
	assert.False(t, cfg.Redis.Enabled())
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
server:
  host: 0.0.0.0
  port: "9090"
database:
  driver: sqlite
  dsn: "file::memory:"
scheduler:
  check_interval_seconds: 30
  timezone: UTC
  run_on_start: true
providers:
  crypto_provider: binance
  anchor_currency: uah
  binance:
    quote_aliases:
      EUR: EURC
notifier:
  type: telegram
  telegram:
    token: "123:abc"
alerts:
  redeliver_on_failure: true
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9090", cfg.Server.Addr())
	assert.Equal(t, 30*time.Second, cfg.Scheduler.Interval())
	assert.Equal(t, 50*time.Second, cfg.Scheduler.PassTimeout())
	assert.True(t, cfg.Scheduler.RunOnStart)
	assert.Equal(t, "binance", cfg.Providers.CryptoProvider)
	assert.Equal(t, "UAH", cfg.Providers.AnchorCurrency)
	assert.Equal(t, "EURC", cfg.Providers.Binance.QuoteAliases["EUR"])
	assert.Equal(t, "123:abc", cfg.Notifier.Telegram.Token)
	assert.True(t, cfg.Alerts.RedeliverOnFailure)
	assert.Equal(t, 30, cfg.Redis.LockTTLSeconds)

	loc, err := cfg.Scheduler.Location()
	require.NoError(t, err)
	assert.Equal(t, "UTC", loc.String())
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("BOT_TOKEN", "env-token")
	t.Setenv("DATABASE_URL", "postgres://bot:secret@db:5432/prices?sslmode=disable")
	t.Setenv("CHECK_INTERVAL_SECONDS", "15")
	t.Setenv("TIMEZONE", "Europe/Warsaw")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("REDIS_ADDR", "redis:6379")

	path := writeConfig(t, `
notifier:
  telegram:
    token: file-token
scheduler:
  check_interval_seconds: 60
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "env-token", cfg.Notifier.Telegram.Token)
	assert.Equal(t, "telegram", cfg.Notifier.Type)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "postgres://bot:secret@db:5432/prices?sslmode=disable", cfg.Database.DSN)
	assert.Equal(t, 15, cfg.Scheduler.CheckIntervalSeconds)
	assert.Equal(t, "Europe/Warsaw", cfg.Scheduler.Timezone)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.Redis.Enabled())
}

func TestLoadConfigErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.ErrorContains(t, err, "failed to read config file")
	})

	t.Run("bad yaml", func(t *testing.T) {
		_, err := LoadConfig(writeConfig(t, "server: [unclosed"))
		assert.ErrorContains(t, err, "failed to parse config file")
	})

	t.Run("invalid value", func(t *testing.T) {
		_, err := LoadConfig(writeConfig(t, "scheduler:\n  timezone: Mars/Olympus\n"))
		assert.ErrorContains(t, err, "invalid timezone")
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "defaults", mutate: func(c *Config) {}},
		{name: "unknown driver", mutate: func(c *Config) { c.Database.Driver = "mysql" }, wantErr: "unsupported database driver"},
		{name: "empty dsn", mutate: func(c *Config) { c.Database.DSN = "" }, wantErr: "dsn is required"},
		{name: "negative interval", mutate: func(c *Config) { c.Scheduler.CheckIntervalSeconds = -1 }, wantErr: "check_interval_seconds"},
		{name: "zero pass timeout", mutate: func(c *Config) { c.Scheduler.PassTimeoutSeconds = 0 }, wantErr: "pass_timeout_seconds"},
		{name: "bad anchor", mutate: func(c *Config) { c.Providers.AnchorCurrency = "HRYVNIA" }, wantErr: "anchor_currency"},
		{name: "no concurrency", mutate: func(c *Config) { c.Providers.MaxConcurrentRequests = 0 }, wantErr: "max_concurrent_requests"},
		{name: "telegram without token", mutate: func(c *Config) { c.Notifier.Type = "telegram" }, wantErr: "bot token"},
		{name: "webhook without url", mutate: func(c *Config) { c.Notifier.Type = "webhook" }, wantErr: "requires a url"},
		{name: "unknown notifier", mutate: func(c *Config) { c.Notifier.Type = "sms" }, wantErr: "unsupported notifier type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    Flags
		wantErr bool
	}{
		{name: "defaults", args: nil, want: Flags{ConfigPath: "config.yaml"}},
		{name: "long config", args: []string{"--config", "/etc/bot.yaml"}, want: Flags{ConfigPath: "/etc/bot.yaml"}},
		{name: "env only", args: []string{"-c", ""}, want: Flags{ConfigPath: ""}},
		{name: "init config", args: []string{"--init-config"}, want: Flags{ConfigPath: "config.yaml", InitConfig: true}},
		{name: "init without path", args: []string{"--init-config", "-c", ""}, wantErr: true},
		{name: "unknown flag", args: []string{"--unknown"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFlags(tt.args)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSaveConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saved.yaml")
	cfg := Default()
	cfg.Scheduler.Timezone = "UTC"
	require.NoError(t, SaveConfig(cfg, path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "UTC", loaded.Scheduler.Timezone)
}
