package config

import (
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Providers ProvidersConfig `yaml:"providers"`
	Notifier  NotifierConfig  `yaml:"notifier"`
	Alerts    AlertsConfig    `yaml:"alerts"`
	Redis     RedisConfig     `yaml:"redis"`
	Tracing   TracingConfig   `yaml:"tracing"`
	LogLevel  string          `yaml:"log_level"`
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Port string `yaml:"port"`
	Host string `yaml:"host"`
}

// Addr returns the listen address for the HTTP server
func (s ServerConfig) Addr() string {
	if strings.HasPrefix(s.Port, ":") {
		return s.Host + s.Port
	}
	return s.Host + ":" + s.Port
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	Driver       string `yaml:"driver"` // sqlite, postgres
	DSN          string `yaml:"dsn"`
	WaitMaxTries int    `yaml:"wait_max_tries"`
}

// SchedulerConfig controls the periodic price check
type SchedulerConfig struct {
	CheckIntervalSeconds int    `yaml:"check_interval_seconds"`
	PassTimeoutSeconds   int    `yaml:"pass_timeout_seconds"`
	Timezone             string `yaml:"timezone"`
	RunOnStart           bool   `yaml:"run_on_start"`
}

// Interval returns the time between two scheduled passes
func (s SchedulerConfig) Interval() time.Duration {
	return time.Duration(s.CheckIntervalSeconds) * time.Second
}

// PassTimeout returns the deadline applied to a single pass
func (s SchedulerConfig) PassTimeout() time.Duration {
	return time.Duration(s.PassTimeoutSeconds) * time.Second
}

// Location resolves the configured timezone
func (s SchedulerConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", s.Timezone, err)
	}
	return loc, nil
}

// ProvidersConfig represents the price source configuration
type ProvidersConfig struct {
	CryptoProvider        string            `yaml:"crypto_provider"` // coingecko, binance
	CoinGecko             EndpointConfig    `yaml:"coingecko"`
	Frankfurter           EndpointConfig    `yaml:"frankfurter"`
	NBU                   EndpointConfig    `yaml:"nbu"`
	Binance               BinanceConfig     `yaml:"binance"`
	AnchorCurrency        string            `yaml:"anchor_currency"`
	HTTPTimeoutSeconds    int               `yaml:"http_timeout_seconds"`
	MaxConcurrentRequests int               `yaml:"max_concurrent_requests"`
	RateLimitPerMinute    int               `yaml:"rate_limit_per_minute"`
}

// HTTPTimeout returns the per-request timeout for provider clients
func (p ProvidersConfig) HTTPTimeout() time.Duration {
	return time.Duration(p.HTTPTimeoutSeconds) * time.Second
}

// EndpointConfig represents an upstream HTTP endpoint
type EndpointConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key,omitempty"`
}

// BinanceConfig represents Binance spot price configuration
type BinanceConfig struct {
	BaseURL      string            `yaml:"base_url"`
	QuoteAliases map[string]string `yaml:"quote_aliases"`
}

// NotifierConfig selects where alerts are delivered
type NotifierConfig struct {
	Type     string         `yaml:"type"` // telegram, webhook, log
	Telegram TelegramConfig `yaml:"telegram"`
	Webhook  WebhookConfig  `yaml:"webhook"`
}

// TelegramConfig represents Telegram Bot API configuration
type TelegramConfig struct {
	Token   string `yaml:"token"`
	BaseURL string `yaml:"base_url"`
}

// WebhookConfig represents a generic JSON webhook sink
type WebhookConfig struct {
	URL string `yaml:"url"`
}

// AlertsConfig controls alert delivery behaviour
type AlertsConfig struct {
	// RedeliverOnFailure keeps the previous price when delivery fails,
	// so the next pass detects the same crossing again.
	RedeliverOnFailure bool `yaml:"redeliver_on_failure"`
}

// RedisConfig represents the optional Redis connection
type RedisConfig struct {
	Addr           string `yaml:"addr"`
	Password       string `yaml:"password"`
	DB             int    `yaml:"db"`
	LockTTLSeconds int    `yaml:"lock_ttl_seconds"`
}

// Enabled reports whether Redis is configured
func (r RedisConfig) Enabled() bool {
	return r.Addr != ""
}

// LockTTL returns the expiry of the distributed pass lock
func (r RedisConfig) LockTTL() time.Duration {
	return time.Duration(r.LockTTLSeconds) * time.Second
}

// TracingConfig represents OpenTelemetry exporter configuration
type TracingConfig struct {
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	ServiceName  string `yaml:"service_name"`
}

// envBindings maps config keys to the environment variables that override them
var envBindings = map[string]string{
	"notifier.telegram.token":          "BOT_TOKEN",
	"database.dsn":                     "DATABASE_URL",
	"scheduler.check_interval_seconds": "CHECK_INTERVAL_SECONDS",
	"scheduler.timezone":               "TIMEZONE",
	"log_level":                        "LOG_LEVEL",
	"redis.addr":                       "REDIS_ADDR",
	"tracing.otlp_endpoint":            "OTEL_EXPORTER_OTLP_ENDPOINT",
}

// Default returns a configuration with every default applied
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// LoadConfig loads configuration from a YAML file, applies environment
// overrides and defaults, then validates the result. An empty filename
// skips the file and uses defaults plus environment only.
func LoadConfig(filename string) (*Config, error) {
	var config Config

	if filename != "" {
		data, err := os.ReadFile(filename)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	config.applyEnv()
	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// SaveConfig saves configuration to a YAML file
func SaveConfig(config *Config, filename string) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Flags represents the command-line options
type Flags struct {
	ConfigPath string
	// InitConfig writes the default configuration to ConfigPath and exits
	InitConfig bool
}

// ParseFlags reads command-line flags
func ParseFlags(args []string) (Flags, error) {
	var flags Flags
	fs := pflag.NewFlagSet("price-tracker-bot", pflag.ContinueOnError)
	fs.StringVarP(&flags.ConfigPath, "config", "c", "config.yaml", "path to the YAML config file (empty for env only)")
	fs.BoolVar(&flags.InitConfig, "init-config", false, "write the default configuration to --config and exit")
	if err := fs.Parse(args); err != nil {
		return Flags{}, fmt.Errorf("failed to parse flags: %w", err)
	}
	if flags.InitConfig && flags.ConfigPath == "" {
		return Flags{}, fmt.Errorf("--init-config needs a --config path")
	}
	return flags, nil
}

func (c *Config) applyEnv() {
	v := viper.New()
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	if v.IsSet("notifier.telegram.token") {
		c.Notifier.Telegram.Token = v.GetString("notifier.telegram.token")
	}
	if v.IsSet("database.dsn") {
		c.Database.DSN = v.GetString("database.dsn")
		if isPostgresDSN(c.Database.DSN) {
			c.Database.Driver = "postgres"
		}
	}
	if v.IsSet("scheduler.check_interval_seconds") {
		c.Scheduler.CheckIntervalSeconds = v.GetInt("scheduler.check_interval_seconds")
	}
	if v.IsSet("scheduler.timezone") {
		c.Scheduler.Timezone = v.GetString("scheduler.timezone")
	}
	if v.IsSet("log_level") {
		c.LogLevel = v.GetString("log_level")
	}
	if v.IsSet("redis.addr") {
		c.Redis.Addr = v.GetString("redis.addr")
	}
	if v.IsSet("tracing.otlp_endpoint") {
		c.Tracing.OTLPEndpoint = v.GetString("tracing.otlp_endpoint")
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "localhost"
	}
	if c.Server.Port == "" {
		c.Server.Port = ":8080"
	}

	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.DSN == "" && c.Database.Driver == "sqlite" {
		c.Database.DSN = "price-tracker.db"
	}
	if c.Database.WaitMaxTries == 0 {
		c.Database.WaitMaxTries = 30
	}

	if c.Scheduler.CheckIntervalSeconds == 0 {
		c.Scheduler.CheckIntervalSeconds = 60
	}
	if c.Scheduler.PassTimeoutSeconds == 0 {
		c.Scheduler.PassTimeoutSeconds = 50
	}
	if c.Scheduler.Timezone == "" {
		c.Scheduler.Timezone = "Europe/Kyiv"
	}

	if c.Providers.CryptoProvider == "" {
		c.Providers.CryptoProvider = "coingecko"
	}
	if c.Providers.AnchorCurrency == "" {
		c.Providers.AnchorCurrency = "UAH"
	}
	c.Providers.AnchorCurrency = strings.ToUpper(strings.TrimSpace(c.Providers.AnchorCurrency))
	if c.Providers.HTTPTimeoutSeconds == 0 {
		c.Providers.HTTPTimeoutSeconds = 20
	}
	if c.Providers.MaxConcurrentRequests == 0 {
		c.Providers.MaxConcurrentRequests = 4
	}

	if c.Notifier.Type == "" {
		if c.Notifier.Telegram.Token != "" {
			c.Notifier.Type = "telegram"
		} else {
			c.Notifier.Type = "log"
		}
	}

	if c.Redis.LockTTLSeconds == 0 {
		c.Redis.LockTTLSeconds = c.Scheduler.CheckIntervalSeconds
	}

	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = "price-tracker-bot"
	}

	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Validate checks the configuration for values the engine cannot run with
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database dsn is required for driver %q", c.Database.Driver)
	}

	if c.Scheduler.CheckIntervalSeconds <= 0 {
		return fmt.Errorf("scheduler.check_interval_seconds must be positive, got %d", c.Scheduler.CheckIntervalSeconds)
	}
	if c.Scheduler.PassTimeoutSeconds <= 0 {
		return fmt.Errorf("scheduler.pass_timeout_seconds must be positive, got %d", c.Scheduler.PassTimeoutSeconds)
	}
	if _, err := c.Scheduler.Location(); err != nil {
		return err
	}

	if len(c.Providers.AnchorCurrency) != 3 {
		return fmt.Errorf("providers.anchor_currency must be a 3-letter code, got %q", c.Providers.AnchorCurrency)
	}
	if c.Providers.MaxConcurrentRequests < 1 {
		return fmt.Errorf("providers.max_concurrent_requests must be at least 1")
	}
	if c.Providers.RateLimitPerMinute < 0 {
		return fmt.Errorf("providers.rate_limit_per_minute must not be negative")
	}

	switch c.Notifier.Type {
	case "telegram":
		if c.Notifier.Telegram.Token == "" {
			return fmt.Errorf("telegram notifier requires a bot token")
		}
	case "webhook":
		if c.Notifier.Webhook.URL == "" {
			return fmt.Errorf("webhook notifier requires a url")
		}
	case "log":
	default:
		return fmt.Errorf("unsupported notifier type %q", c.Notifier.Type)
	}

	return nil
}

func isPostgresDSN(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}
