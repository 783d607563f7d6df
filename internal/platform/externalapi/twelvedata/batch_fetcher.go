package twelvedata

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"stock_technicals/internal/feature/technicals/domain/entity"
	"stock_technicals/internal/feature/technicals/usecase"
	"stock_technicals/internal/shared/ratelimiter"
)

const (
	interval   = "1day"
	outputSize = "5000"
	// maxBodyBytes bounds a single batch response.
	maxBodyBytes = 64 << 20
)

// BatchFetcher は Twelve Data から複数銘柄の日足を1リクエストで取得する BatchFetcher 実装です。
type BatchFetcher struct {
	cfg     Config
	client  *http.Client
	limiter ratelimiter.RateLimiterInterface
	now     func() time.Time
}

// BatchFetcherがusecase.BatchFetcherを実装していることをコンパイル時に検証します。
var _ usecase.BatchFetcher = (*BatchFetcher)(nil)

// NewBatchFetcher は新しい BatchFetcher を生成します。limiter が nil の場合は待機しません。
func NewBatchFetcher(cfg Config, client *http.Client, limiter ratelimiter.RateLimiterInterface) *BatchFetcher {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &BatchFetcher{cfg: cfg.withDefaults(), client: client, limiter: limiter, now: time.Now}
}

// StartDate は lookbackDays 営業日分をカバーするための取得開始日を返します。
// 週末・祝日を考慮して暦日で 1.4 倍の期間を遡ります。
func StartDate(now time.Time, lookbackDays int) time.Time {
	days := time.Duration(float64(lookbackDays) * lookbackCushion * float64(24*time.Hour))
	return entity.DateOf(now.UTC()).Add(-days)
}

// DownloadBatch は tickers の日足を取得し、全ての要求銘柄をキーに持つマップを返します。
// 通信・デコード・APIエラーはログに出力し、該当銘柄を空スライスとして扱います。
func (f *BatchFetcher) DownloadBatch(ctx context.Context, tickers []string) map[string][]entity.PriceRow {
	out := make(map[string][]entity.PriceRow, len(tickers))
	for _, t := range tickers {
		out[t] = []entity.PriceRow{}
	}
	if len(tickers) == 0 {
		return out
	}

	resp, err := f.fetch(ctx, tickers)
	if err != nil {
		slog.Warn("batch download failed", "tickers", len(tickers), "error", err)
		return out
	}

	got := 0
	for t, ts := range resp.series(tickers) {
		rows := normalizeSeries(ts)
		if len(rows) > 0 {
			got++
		}
		out[t] = rows
	}
	slog.Debug("batch downloaded", "requested", len(tickers), "with_data", got)
	return out
}

func (f *BatchFetcher) fetch(ctx context.Context, tickers []string) (batchResponse, error) {
	q := url.Values{}
	q.Set("symbol", strings.Join(tickers, ","))
	q.Set("interval", interval)
	q.Set("start_date", StartDate(f.now(), f.cfg.LookbackDays).Format("2006-01-02"))
	q.Set("adjust", "all")
	q.Set("order", "asc")
	q.Set("outputsize", outputSize)
	q.Set("apikey", f.cfg.APIKey)

	u := fmt.Sprintf("%s/time_series?%s", strings.TrimRight(f.cfg.BaseURL, "/"), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	if f.limiter != nil {
		f.limiter.WaitIfNeeded()
	}
	res, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := res.Body.Close(); err != nil {
			slog.Warn("failed to close response body", "error", err)
		}
	}()

	if res.StatusCode >= 400 {
		return nil, fmt.Errorf("twelvedata http %d", res.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(res.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read time_series: %w", err)
	}
	return decodeBatchResponse(body)
}
