package di

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	redisv9 "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"stock_technicals/internal/feature/technicals/adapters"
	"stock_technicals/internal/feature/technicals/usecase"
	"stock_technicals/internal/platform/cache"
	"stock_technicals/internal/platform/config"
	"stock_technicals/internal/platform/db"
	"stock_technicals/internal/platform/externalapi/twelvedata"
	infrahttp "stock_technicals/internal/platform/http"
	"stock_technicals/internal/platform/metrics"
	infraredis "stock_technicals/internal/platform/redis"
	"stock_technicals/internal/shared/ratelimiter"
)

// NewBatchFetcher creates a Twelve Data batch fetcher with HTTP client and rate limiter.
func NewBatchFetcher(cfg *config.Config) (*twelvedata.BatchFetcher, error) {
	client, err := infrahttp.NewHTTPClient(cfg.Provider.Timeout, cfg.Provider.Proxy)
	if err != nil {
		return nil, err
	}
	limiter := ratelimiter.NewRateLimiter(cfg.Provider.RateLimit, cfg.Provider.RateWindow)
	return twelvedata.NewBatchFetcher(twelvedata.Config{
		APIKey:       cfg.Provider.APIKey,
		BaseURL:      cfg.Provider.BaseURL,
		Timeout:      cfg.Provider.Timeout,
		LookbackDays: cfg.Provider.LookbackDays,
	}, client, limiter), nil
}

// FetchConfig maps the fetch section onto the orchestrator config.
func FetchConfig(cfg *config.Config) usecase.Config {
	return usecase.Config{
		BatchSize: cfg.Fetch.BatchSize,
		Retry:     cfg.Fetch.RetryCount(),
		Cooldown:  cfg.Fetch.CooldownDuration(),
		UseDays:   cfg.Fetch.UseDays,
		MaxAge:    cfg.Fetch.MaxAge(),
	}
}

// NewFetchUsecase wires the batch fetcher and file cache into the orchestrator.
// rec may be nil.
func NewFetchUsecase(cfg *config.Config, rec *metrics.Recorder) (*usecase.FetchUsecase, error) {
	fetcher, err := NewBatchFetcher(cfg)
	if err != nil {
		return nil, err
	}
	fileCache := adapters.NewFileCache(cfg.Cache.Dir, cfg.Cache.Format)

	var opts []usecase.Option
	if rec != nil {
		opts = append(opts, usecase.WithObserver(rec))
	}
	return usecase.NewFetchUsecase(fetcher, fileCache, FetchConfig(cfg), opts...), nil
}

// OpenDatabase opens the watchlist/history store and migrates its tables.
func OpenDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	return db.OpenDB(db.Config{
		Driver:       cfg.Driver,
		Path:         cfg.Path,
		User:         cfg.User,
		Password:     cfg.Password,
		Name:         cfg.Name,
		Host:         cfg.Host,
		Port:         cfg.Port,
		SSLMode:      cfg.SSLMode,
		InstanceName: cfg.InstanceName,
	}, cfg.ConnectTimeout, !cfg.SkipMigrations, &adapters.WatchlistSymbol{}, &adapters.TechnicalRowModel{})
}

// NewRedisClient returns nil when Redis is not configured or unreachable.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) *redisv9.Client {
	if !cfg.Enabled() {
		return nil
	}
	rdb, err := infraredis.NewRedisClient(ctx, infraredis.Config{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err != nil {
		slog.Warn("Redis unavailable. Running without cache.", "error", err)
		return nil
	}
	return rdb
}

// CacheTTL returns the configured TTL, or the time until the next ExpireHour in Timezone.
func CacheTTL(cfg config.RedisConfig, now time.Time) (time.Duration, error) {
	if cfg.TTL > 0 {
		return cfg.TTL, nil
	}
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return 0, fmt.Errorf("load timezone %q: %w", cfg.Timezone, err)
	}
	return cache.TimeUntilNext(now, cfg.ExpireHour, 0, loc), nil
}

// NewCachedTechnicals wraps the orchestrator with the Redis read cache.
func NewCachedTechnicals(rdb *redisv9.Client, cfg config.RedisConfig, inner cache.TechnicalsSource) (*cache.CachingTechnicals, error) {
	ttl, err := CacheTTL(cfg, time.Now())
	if err != nil {
		return nil, err
	}
	return cache.NewCachingTechnicals(rdb, ttl, inner, "technicals"), nil
}
