// Package usecase はテクニカル指標付き価格データの取得処理を提供します。
package usecase

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"stock_technicals/internal/feature/technicals/domain/entity"
	"stock_technicals/internal/feature/technicals/indicator"
)

const (
	defaultBatchSize = 30
	defaultRetry     = 1
	defaultCooldown  = 1200 * time.Millisecond
)

// BatchFetcher は複数銘柄の日足をまとめて取得するデータソースです。
// 取得に失敗した銘柄は空スライスで返し、エラーは返しません。
// Following Go convention: interfaces are defined by the consumer (usecase), not the provider (adapters).
type BatchFetcher interface {
	DownloadBatch(ctx context.Context, tickers []string) map[string][]entity.PriceRow
}

// CacheStore は銘柄ごとの指標付き系列を永続化するキャッシュです。
// Load は欠損や破損の場合に空の系列を返します。
type CacheStore interface {
	Load(ticker string) []entity.IndicatorRow
	Save(ticker string, rows []entity.IndicatorRow) error
}

// Observer receives fetch events for metrics.
type Observer interface {
	ObserveAttempt(batchSize int)
	ObserveResult(status entity.Status)
	ObserveCacheWriteFailure()
}

type noopObserver struct{}

func (noopObserver) ObserveAttempt(int)          {}
func (noopObserver) ObserveResult(entity.Status) {}
func (noopObserver) ObserveCacheWriteFailure()   {}

// Config はオーケストレーターの動作パラメータです。
// BatchSize, UseDays, MaxAge が0以下の場合はデフォルト値で補われます。
type Config struct {
	BatchSize int           // 1リクエストあたりの最大銘柄数
	Retry     int           // 初回以降の追加試行回数
	Cooldown  time.Duration // 再試行ラウンド間の待機時間
	UseDays   int           // 返却・保存する末尾の行数
	MaxAge    time.Duration // キャッシュを新鮮とみなす期間
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		BatchSize: defaultBatchSize,
		Retry:     defaultRetry,
		Cooldown:  defaultCooldown,
		UseDays:   indicator.DefaultUseDays,
		MaxAge:    entity.DefaultMaxAge,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.BatchSize <= 0 {
		c.BatchSize = d.BatchSize
	}
	if c.Retry < 0 {
		c.Retry = 0
	}
	if c.Cooldown < 0 {
		c.Cooldown = 0
	}
	if c.UseDays <= 0 {
		c.UseDays = d.UseDays
	}
	if c.MaxAge <= 0 {
		c.MaxAge = d.MaxAge
	}
	return c
}

// ResultSet maps each requested ticker to its indicator series.
// Unavailable tickers map to an empty series.
type ResultSet map[string][]entity.IndicatorRow

// FetchUsecase はキャッシュを優先しつつ、不足分をバッチ取得・再試行して指標を計算します。
type FetchUsecase struct {
	fetcher  BatchFetcher
	cache    CacheStore
	cfg      Config
	sleep    func(time.Duration)
	now      func() time.Time
	observer Observer
}

// Option は FetchUsecase の任意設定です。
type Option func(*FetchUsecase)

// WithSleeper replaces the function used to wait between retry rounds.
func WithSleeper(sleep func(time.Duration)) Option {
	return func(u *FetchUsecase) { u.sleep = sleep }
}

// WithClock replaces the clock used for cache freshness checks.
func WithClock(now func() time.Time) Option {
	return func(u *FetchUsecase) { u.now = now }
}

// WithObserver registers a metrics observer.
func WithObserver(o Observer) Option {
	return func(u *FetchUsecase) {
		if o != nil {
			u.observer = o
		}
	}
}

// NewFetchUsecase は新しい FetchUsecase を作成します。
func NewFetchUsecase(fetcher BatchFetcher, cache CacheStore, cfg Config, opts ...Option) *FetchUsecase {
	u := &FetchUsecase{
		fetcher:  fetcher,
		cache:    cache,
		cfg:      cfg.withDefaults(),
		sleep:    time.Sleep,
		now:      time.Now,
		observer: noopObserver{},
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// FetchPricesWithIndicators は銘柄ごとの指標付き系列を返します。
// 取得できなかった銘柄も空の系列としてキーに含まれます。
func (u *FetchUsecase) FetchPricesWithIndicators(ctx context.Context, tickers []string, forceRefresh bool) ResultSet {
	results := u.FetchWithStatus(ctx, tickers, forceRefresh)
	out := make(ResultSet, len(results))
	for _, r := range results {
		out[r.Ticker] = r.Rows
	}
	return out
}

// GetTechnicals は単一銘柄の結果を返します。番兵値や空文字の場合は false を返します。
func (u *FetchUsecase) GetTechnicals(ctx context.Context, ticker string, forceRefresh bool) (entity.Result, bool) {
	results := u.FetchWithStatus(ctx, []string{ticker}, forceRefresh)
	if len(results) == 0 {
		return entity.Result{}, false
	}
	return results[0], true
}

// FetchWithStatus は銘柄ごとに取得元（キャッシュ/新規取得/取得不可）を付けた結果を、
// 銘柄コード順で返します。
func (u *FetchUsecase) FetchWithStatus(ctx context.Context, tickers []string, forceRefresh bool) []entity.Result {
	tickers = entity.NormalizeTickers(tickers)
	results := make(map[string]entity.Result, len(tickers))

	now := u.now()
	need := make([]string, 0, len(tickers))
	for _, t := range tickers {
		if !forceRefresh {
			if rows := u.cache.Load(t); entity.IsFresh(rows, now, u.cfg.MaxAge) {
				results[t] = entity.Result{Ticker: t, Status: entity.StatusCached, Rows: rows}
				continue
			}
		}
		need = append(need, t)
	}

	if len(need) > 0 {
		slog.Info("fetching technicals", "requested", len(tickers), "cached", len(tickers)-len(need), "to_fetch", len(need))
	}
	for _, batch := range chunk(need, u.cfg.BatchSize) {
		for t, r := range u.fetchBatch(ctx, batch) {
			results[t] = r
		}
	}

	out := make([]entity.Result, 0, len(results))
	for _, r := range results {
		u.observer.ObserveResult(r.Status)
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ticker < out[j].Ticker })
	return out
}

// fetchBatch は1バッチ分の銘柄を、取得できたものを除きながら最大 Retry+1 ラウンド取得します。
// 待機は次のラウンドが実行される場合にのみ行います。
func (u *FetchUsecase) fetchBatch(ctx context.Context, batch []string) map[string]entity.Result {
	results := make(map[string]entity.Result, len(batch))
	pending := newOutstanding(batch)

	for attempt := 0; attempt <= u.cfg.Retry && pending.Len() > 0; attempt++ {
		if attempt > 0 {
			slog.Info("retrying missing tickers", "attempt", attempt+1, "missing", pending.Len(), "cooldown", u.cfg.Cooldown)
			u.sleep(u.cfg.Cooldown)
		}
		if ctx.Err() != nil {
			break
		}

		round := pending.List()
		u.observer.ObserveAttempt(len(round))
		raw := u.fetcher.DownloadBatch(ctx, round)

		for _, t := range round {
			prices := raw[t]
			if len(prices) == 0 {
				continue
			}
			rows := indicator.FinalSlice(indicator.Compute(prices), u.cfg.UseDays)
			if len(rows) == 0 {
				continue
			}
			pending.Remove(t)
			results[t] = entity.Result{Ticker: t, Status: entity.StatusFetched, Rows: rows}

			if err := u.cache.Save(t, rows); err != nil {
				// 保存失敗は結果に影響させない
				u.observer.ObserveCacheWriteFailure()
				slog.Warn("failed to save cache", "ticker", t, "error", err)
			}
		}
	}

	for _, t := range pending.List() {
		slog.Warn("no data after retries", "ticker", t)
		results[t] = entity.Result{Ticker: t, Status: entity.StatusUnavailable, Rows: []entity.IndicatorRow{}}
	}
	return results
}

// chunk は items を最大 size 件ずつに分割します。
func chunk(items []string, size int) [][]string {
	if size <= 0 {
		size = defaultBatchSize
	}
	var out [][]string
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		out = append(out, items[start:end])
	}
	return out
}
