package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the dispatcher and poller processes.
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Webhook   WebhookConfig   `yaml:"webhook"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	HTTP      HTTPConfig      `yaml:"http"`
}

// DatabaseConfig holds the PostgreSQL connection settings.
type DatabaseConfig struct {
	URL             string `yaml:"url"`
	MaxOpenConns    int    `yaml:"max_open_conns"`
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	ConnMaxLifeMins int    `yaml:"conn_max_life_mins"`
}

// RedisConfig holds the optional Redis connection. When URL is empty the
// scheduler falls back to PostgreSQL for locking and allowance counting.
type RedisConfig struct {
	URL string `yaml:"url"`
}

// Enabled reports whether a Redis backend is configured.
func (c RedisConfig) Enabled() bool { return c.URL != "" }

// WebhookConfig holds the workflow engine endpoint and the service
// credentials it needs to act on the scheduler's behalf.
type WebhookConfig struct {
	URL            string `yaml:"url"`
	APIKey         string `yaml:"api_key"`
	ServiceURL     string `yaml:"service_url"`
	ServiceKey     string `yaml:"service_key"`
	ProviderDSN    string `yaml:"provider_dsn"`
	ProviderAPIKey string `yaml:"provider_api_key"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	MaxRetries     int    `yaml:"max_retries"`
}

// Timeout returns the configured dispatch timeout as a duration.
func (c WebhookConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// SchedulerConfig holds pacing and selection knobs.
type SchedulerConfig struct {
	BatchSize           int `yaml:"batch_size"`
	BatchDelaySeconds   int `yaml:"batch_delay_seconds"`
	PollIntervalSeconds int `yaml:"poll_interval_seconds"`
	MaxCampaignsPerRun  int `yaml:"max_campaigns_per_run"`
	DefaultDailyLimit   int `yaml:"default_daily_limit"`
}

// BatchDelay returns the inter-batch pacing wait as a duration.
func (c SchedulerConfig) BatchDelay() time.Duration {
	return time.Duration(c.BatchDelaySeconds) * time.Second
}

// PollInterval returns the loop-mode poll interval as a duration.
func (c SchedulerConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

// HTTPConfig holds the optional operational HTTP listener used in loop
// mode for health checks and the cycle summary.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// Load reads and parses the configuration file, then applies defaults.
// A missing file is not an error: everything can come from env vars.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, err
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	// Defaults
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 10
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifeMins == 0 {
		cfg.Database.ConnMaxLifeMins = 5
	}
	if cfg.Webhook.TimeoutSeconds == 0 {
		cfg.Webhook.TimeoutSeconds = 60
	}
	if cfg.Webhook.MaxRetries == 0 {
		cfg.Webhook.MaxRetries = 2
	}
	if cfg.Scheduler.BatchSize == 0 {
		cfg.Scheduler.BatchSize = 5
	}
	if cfg.Scheduler.BatchDelaySeconds == 0 {
		cfg.Scheduler.BatchDelaySeconds = 120
	}
	if cfg.Scheduler.PollIntervalSeconds == 0 {
		cfg.Scheduler.PollIntervalSeconds = 60
	}
	if cfg.Scheduler.MaxCampaignsPerRun == 0 {
		cfg.Scheduler.MaxCampaignsPerRun = 10
	}
	if cfg.Scheduler.DefaultDailyLimit == 0 {
		cfg.Scheduler.DefaultDailyLimit = 20
	}

	return &cfg, nil
}

// LoadFromEnv loads configuration with environment variable overrides.
// It automatically loads a .env file (if present) before reading env vars,
// so secrets can live in .env locally and in real env vars in production.
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Redis.URL = v
	}
	if v := os.Getenv("WEBHOOK_URL"); v != "" {
		cfg.Webhook.URL = v
	}
	if v := os.Getenv("WEBHOOK_API_KEY"); v != "" {
		cfg.Webhook.APIKey = v
	}
	if v := os.Getenv("SERVICE_URL"); v != "" {
		cfg.Webhook.ServiceURL = v
	}
	if v := os.Getenv("SERVICE_KEY"); v != "" {
		cfg.Webhook.ServiceKey = v
	}
	if v := os.Getenv("PROVIDER_DSN"); v != "" {
		cfg.Webhook.ProviderDSN = v
	}
	if v := os.Getenv("PROVIDER_API_KEY"); v != "" {
		cfg.Webhook.ProviderAPIKey = v
	}
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		cfg.HTTP.Addr = v
	}
	if v, ok := intEnv("BATCH_SIZE"); ok {
		cfg.Scheduler.BatchSize = v
	}
	if v, ok := intEnv("BATCH_DELAY_SECONDS"); ok {
		cfg.Scheduler.BatchDelaySeconds = v
	}
	if v, ok := intEnv("POLL_INTERVAL_SECONDS"); ok {
		cfg.Scheduler.PollIntervalSeconds = v
	}
	if v, ok := intEnv("DISPATCH_TIMEOUT_SECONDS"); ok {
		cfg.Webhook.TimeoutSeconds = v
	}

	return cfg, nil
}

// Validate checks the settings a process cannot run without.
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("database url not configured (set DATABASE_URL or database.url)")
	}
	if c.Webhook.URL == "" {
		return fmt.Errorf("webhook url not configured (set WEBHOOK_URL or webhook.url)")
	}
	if c.Scheduler.BatchSize < 1 {
		return fmt.Errorf("batch size must be at least 1, got %d", c.Scheduler.BatchSize)
	}
	return nil
}

func intEnv(name string) (int, bool) {
	raw := os.Getenv(name)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}
