// Package adapters はtechnicalsフィーチャーのキャッシュ・永続化・入出力の実装を提供します。
package adapters

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"stock_technicals/internal/feature/technicals/domain/entity"
	"stock_technicals/internal/feature/technicals/usecase"
)

// WatchlistSymbol は定期更新の対象となる銘柄です。
type WatchlistSymbol struct {
	ID        uint      `gorm:"primaryKey"`
	Code      string    `gorm:"size:32;not null;uniqueIndex"`
	Name      string    `gorm:"size:255;not null;default:''"`
	IsActive  bool      `gorm:"not null;default:true"`
	SortKey   int       `gorm:"not null;default:0"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (WatchlistSymbol) TableName() string {
	return "watchlist_symbols"
}

// watchlistGorm はWatchlistRepositoryインターフェースのgorm実装です。
type watchlistGorm struct {
	db *gorm.DB
}

var _ usecase.WatchlistRepository = (*watchlistGorm)(nil)

// NewWatchlistRepository は指定されたDB接続でウォッチリストリポジトリを生成します。
func NewWatchlistRepository(db *gorm.DB) *watchlistGorm {
	return &watchlistGorm{db: db}
}

// ListActiveCodes はsort_key順にアクティブな銘柄のコードのみを返します。
func (r *watchlistGorm) ListActiveCodes(ctx context.Context) ([]string, error) {
	var codes []string
	if err := r.db.WithContext(ctx).
		Model(&WatchlistSymbol{}).
		Where("is_active = ?", true).
		Order("sort_key ASC").
		Order("code ASC").
		Pluck("code", &codes).Error; err != nil {
		return nil, err
	}
	return codes, nil
}

// AddCodes は未登録の銘柄をアクティブとして追加します。登録済みの銘柄は変更しません。
func (r *watchlistGorm) AddCodes(ctx context.Context, codes []string) error {
	codes = entity.NormalizeTickers(codes)
	if len(codes) == 0 {
		return nil
	}
	ms := make([]WatchlistSymbol, 0, len(codes))
	for i, c := range codes {
		ms = append(ms, WatchlistSymbol{Code: c, IsActive: true, SortKey: i})
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "code"}}, DoNothing: true}).
		Create(&ms).Error
}
