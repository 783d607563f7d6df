package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"stock_technicals/internal/feature/technicals/domain/entity"
)

// WatchlistRepository は定期更新の対象銘柄を提供します。
type WatchlistRepository interface {
	ListActiveCodes(ctx context.Context) ([]string, error)
}

// TechnicalsRepository は計算済みの指標行をデータベースへ保存します。
type TechnicalsRepository interface {
	UpsertRows(ctx context.Context, ticker string, rows []entity.IndicatorRow) error
}

// StatusFetcher は FetchUsecase のうち定期更新が利用する部分です。
type StatusFetcher interface {
	FetchWithStatus(ctx context.Context, tickers []string, forceRefresh bool) []entity.Result
}

// RefreshSummary counts the outcome of one refresh run.
type RefreshSummary struct {
	Cached      int
	Fetched     int
	Unavailable int
	Persisted   int
}

// RefreshUsecase はウォッチリスト全銘柄の指標を更新し、データベースへ反映します。
type RefreshUsecase struct {
	watchlist WatchlistRepository
	fetcher   StatusFetcher
	store     TechnicalsRepository
}

// NewRefreshUsecase は新しい RefreshUsecase を作成します。store が nil の場合はDBへの反映を行いません。
func NewRefreshUsecase(watchlist WatchlistRepository, fetcher StatusFetcher, store TechnicalsRepository) *RefreshUsecase {
	return &RefreshUsecase{watchlist: watchlist, fetcher: fetcher, store: store}
}

// RefreshAll はアクティブな銘柄を取得して指標を更新します。
// 1銘柄の保存に失敗しても処理は継続し、ログに出力します。
func (ru *RefreshUsecase) RefreshAll(ctx context.Context, forceRefresh bool) (RefreshSummary, error) {
	codes, err := ru.watchlist.ListActiveCodes(ctx)
	if err != nil {
		return RefreshSummary{}, fmt.Errorf("list active codes: %w", err)
	}
	return ru.Refresh(ctx, codes, forceRefresh), nil
}

// Refresh は指定された銘柄の指標を更新します。
func (ru *RefreshUsecase) Refresh(ctx context.Context, tickers []string, forceRefresh bool) RefreshSummary {
	var sum RefreshSummary
	for _, r := range ru.fetcher.FetchWithStatus(ctx, tickers, forceRefresh) {
		switch r.Status {
		case entity.StatusCached:
			sum.Cached++
		case entity.StatusFetched:
			sum.Fetched++
		default:
			sum.Unavailable++
			continue
		}
		if ru.store == nil {
			continue
		}
		if err := ru.store.UpsertRows(ctx, r.Ticker, r.Rows); err != nil {
			slog.Error("failed to persist technicals", "ticker", r.Ticker, "error", err)
			continue
		}
		sum.Persisted++
	}
	slog.Info("refresh finished",
		"cached", sum.Cached, "fetched", sum.Fetched,
		"unavailable", sum.Unavailable, "persisted", sum.Persisted)
	return sum
}
