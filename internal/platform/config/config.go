// Package config loads the service configuration from YAML and environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration.
type Config struct {
	Provider ProviderConfig `yaml:"provider"`
	Fetch    FetchConfig    `yaml:"fetch"`
	Cache    CacheConfig    `yaml:"cache"`
	Redis    RedisConfig    `yaml:"redis"`
	Database DatabaseConfig `yaml:"database"`
	Server   ServerConfig   `yaml:"server"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Log      LogConfig      `yaml:"log"`
}

// ProviderConfig configures the Twelve Data client.
type ProviderConfig struct {
	APIKey       string        `yaml:"api_key"`
	BaseURL      string        `yaml:"base_url" default:"https://api.twelvedata.com" validate:"required,url"`
	Timeout      time.Duration `yaml:"timeout" default:"30s" validate:"gt=0"`
	Proxy        string        `yaml:"proxy" validate:"omitempty,url"`
	LookbackDays int           `yaml:"lookback_days" default:"200" validate:"gte=1"`
	RateLimit    int           `yaml:"rate_limit" default:"8" validate:"gte=0"` // requests per RateWindow, 0 disables limiting
	RateWindow   time.Duration `yaml:"rate_window" default:"1m" validate:"gte=0"`
}

// FetchConfig configures batching and retries.
// Retry, Cooldown and MaxAgeDays are pointers so an explicit 0 in the file is not replaced by a default.
type FetchConfig struct {
	BatchSize  int            `yaml:"batch_size" default:"30" validate:"gte=1,lte=120"`
	Retry      *int           `yaml:"retry" validate:"omitempty,gte=0,lte=10"`
	Cooldown   *time.Duration `yaml:"cooldown"`
	UseDays    int            `yaml:"use_days" default:"120" validate:"gte=1"`
	MaxAgeDays *int           `yaml:"max_age_days"`
}

const (
	defaultRetry      = 1
	defaultCooldown   = 1200 * time.Millisecond
	defaultMaxAgeDays = 5
)

// RetryCount returns the configured retry count, defaulting to 1.
func (f FetchConfig) RetryCount() int {
	if f.Retry == nil {
		return defaultRetry
	}
	return *f.Retry
}

// CooldownDuration returns the pause before a retry round, defaulting to 1.2s. 0 disables it.
func (f FetchConfig) CooldownDuration() time.Duration {
	if f.Cooldown == nil {
		return defaultCooldown
	}
	return *f.Cooldown
}

// MaxAge returns the cache freshness window, defaulting to 5 days.
func (f FetchConfig) MaxAge() time.Duration {
	days := defaultMaxAgeDays
	if f.MaxAgeDays != nil {
		days = *f.MaxAgeDays
	}
	return time.Duration(days) * 24 * time.Hour
}

func (f FetchConfig) validate() error {
	if f.Cooldown != nil && *f.Cooldown < 0 {
		return fmt.Errorf("fetch.cooldown must not be negative")
	}
	if f.MaxAgeDays != nil && *f.MaxAgeDays < 1 {
		return fmt.Errorf("fetch.max_age_days must be at least 1")
	}
	return nil
}

// CacheConfig configures the per-ticker file cache.
type CacheConfig struct {
	Dir    string `yaml:"dir" default:"data/prices" validate:"required"`
	Format string `yaml:"format" default:"parquet" validate:"oneof=parquet csv"`
}

// RedisConfig configures the optional HTTP read cache. An empty Host disables it.
type RedisConfig struct {
	Host       string        `yaml:"host"`
	Port       string        `yaml:"port" default:"6379"`
	Password   string        `yaml:"password"`
	DB         int           `yaml:"db" validate:"gte=0"`
	TTL        time.Duration `yaml:"ttl" validate:"gte=0"`
	ExpireHour int           `yaml:"expire_hour" default:"8" validate:"gte=0,lte=23"`
	Timezone   string        `yaml:"timezone" default:"Asia/Tokyo"`
}

// Enabled reports whether a Redis host is configured.
func (r RedisConfig) Enabled() bool { return r.Host != "" }

// Addr returns host:port.
func (r RedisConfig) Addr() string { return r.Host + ":" + r.Port }

// DatabaseConfig configures the watchlist and history store.
type DatabaseConfig struct {
	Driver         string        `yaml:"driver" default:"sqlite" validate:"oneof=sqlite postgres"`
	Path           string        `yaml:"path" default:"data/technicals.db"`
	Host           string        `yaml:"host"`
	Port           string        `yaml:"port" default:"5432"`
	User           string        `yaml:"user"`
	Password       string        `yaml:"password"`
	Name           string        `yaml:"name"`
	SSLMode        string        `yaml:"sslmode" default:"disable"`
	InstanceName   string        `yaml:"instance_name"`
	ConnectTimeout time.Duration `yaml:"connect_timeout" default:"60s" validate:"gt=0"`
	SkipMigrations bool          `yaml:"skip_migrations"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Addr            string        `yaml:"addr" default:":8080" validate:"required"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s" validate:"gt=0"`
}

// ScheduleConfig configures the background refresh. An empty RefreshCron disables it.
type ScheduleConfig struct {
	RefreshCron string `yaml:"refresh_cron" default:"0 30 22 * * 1-5"`
	Force       bool   `yaml:"force"`
}

// LogConfig configures slog output.
type LogConfig struct {
	Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" default:"text" validate:"oneof=text json"`
}

var validate = validator.New()

// Load reads path (if it exists), applies environment overrides, fills defaults and validates.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	var c Config
	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(b, &c); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if err := c.applyEnv(); err != nil {
		return nil, err
	}
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("set defaults: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if err := c.Fetch.validate(); err != nil {
		return err
	}
	if c.Database.Driver == "postgres" && c.Database.Name == "" {
		return fmt.Errorf("database.name is required for postgres")
	}
	return nil
}

// RequireAPIKey reports an error when no provider key is configured.
func (c *Config) RequireAPIKey() error {
	if c.Provider.APIKey == "" {
		return fmt.Errorf("provider.api_key (TWELVE_DATA_API_KEY) is required")
	}
	return nil
}

// applyEnv overrides fields from environment variables.
func (c *Config) applyEnv() error {
	str := map[string]*string{
		"TWELVE_DATA_API_KEY":  &c.Provider.APIKey,
		"TWELVE_DATA_BASE_URL": &c.Provider.BaseURL,
		"HTTPS_PROXY_URL":      &c.Provider.Proxy,
		"CACHE_DIR":            &c.Cache.Dir,
		"CACHE_FORMAT":         &c.Cache.Format,
		"REDIS_HOST":           &c.Redis.Host,
		"REDIS_PORT":           &c.Redis.Port,
		"REDIS_PASSWORD":       &c.Redis.Password,
		"DB_DRIVER":            &c.Database.Driver,
		"DB_PATH":              &c.Database.Path,
		"DB_HOST":              &c.Database.Host,
		"DB_PORT":              &c.Database.Port,
		"DB_USER":              &c.Database.User,
		"DB_PASSWORD":          &c.Database.Password,
		"DB_NAME":              &c.Database.Name,
		"HTTP_ADDR":            &c.Server.Addr,
		"REFRESH_CRON":         &c.Schedule.RefreshCron,
		"LOG_LEVEL":            &c.Log.Level,
		"LOG_FORMAT":           &c.Log.Format,
	}
	for key, dst := range str {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	if v := os.Getenv("INSTANCE_CONNECTION_NAME"); v != "" {
		c.Database.InstanceName = v
	}

	if v := os.Getenv("FETCH_RETRY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("FETCH_RETRY: %w", err)
		}
		c.Fetch.Retry = &n
	}
	if v := os.Getenv("RUN_MIGRATIONS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("RUN_MIGRATIONS: %w", err)
		}
		c.Database.SkipMigrations = !b
	}
	return nil
}
