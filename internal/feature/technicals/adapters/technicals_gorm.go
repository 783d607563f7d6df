package adapters

import (
	"context"
	"math"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"stock_technicals/internal/feature/technicals/domain/entity"
	"stock_technicals/internal/feature/technicals/usecase"
)

type technicalsGorm struct {
	db *gorm.DB
}

var _ usecase.TechnicalsRepository = (*technicalsGorm)(nil)

func NewTechnicalsRepository(db *gorm.DB) *technicalsGorm {
	return &technicalsGorm{db: db}
}

// TechnicalRowModel stores one indicator row. NaN values are stored as NULL.
type TechnicalRowModel struct {
	ID     uint      `gorm:"primaryKey"`
	Ticker string    `gorm:"size:32;not null;uniqueIndex:technical_ticker_date,priority:1"`
	Date   time.Time `gorm:"not null;uniqueIndex:technical_ticker_date,priority:2"`

	Open       *float64
	High       *float64
	Low        *float64
	Close      *float64
	Volume     *float64
	RSI14      *float64 `gorm:"column:rsi14"`
	MACD       *float64 `gorm:"column:macd"`
	MACDSignal *float64 `gorm:"column:macd_signal"`
	MACDHist   *float64 `gorm:"column:macd_hist"`
	SMA20      *float64 `gorm:"column:sma20"`
	SMA50      *float64 `gorm:"column:sma50"`
}

func (TechnicalRowModel) TableName() string {
	return "technical_rows"
}

func nullable(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func valueOf(p *float64) float64 {
	if p == nil {
		return math.NaN()
	}
	return *p
}

func toTechnicalModel(ticker string, r entity.IndicatorRow) TechnicalRowModel {
	return TechnicalRowModel{
		Ticker:     ticker,
		Date:       r.Date,
		Open:       nullable(r.Open),
		High:       nullable(r.High),
		Low:        nullable(r.Low),
		Close:      nullable(r.Close),
		Volume:     nullable(r.Volume),
		RSI14:      nullable(r.RSI14),
		MACD:       nullable(r.MACD),
		MACDSignal: nullable(r.MACDSignal),
		MACDHist:   nullable(r.MACDHist),
		SMA20:      nullable(r.SMA20),
		SMA50:      nullable(r.SMA50),
	}
}

// UpsertRows は (ticker, date) をキーに行を挿入または更新します。
func (r *technicalsGorm) UpsertRows(ctx context.Context, ticker string, rows []entity.IndicatorRow) error {
	if len(rows) == 0 {
		return nil
	}
	ms := make([]TechnicalRowModel, 0, len(rows))
	for _, row := range rows {
		ms = append(ms, toTechnicalModel(ticker, row))
	}

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "ticker"}, {Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"open", "high", "low", "close", "volume",
			"rsi14", "macd", "macd_signal", "macd_hist", "sma20", "sma50",
		}),
	}).CreateInBatches(&ms, 200).Error
}

// Find は ticker の直近 limit 行を日付昇順で返します。limit が0以下の場合は全件です。
func (r *technicalsGorm) Find(ctx context.Context, ticker string, limit int) ([]entity.IndicatorRow, error) {
	var ms []TechnicalRowModel
	q := r.db.WithContext(ctx).
		Where("ticker = ?", ticker).
		Order("date DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&ms).Error; err != nil {
		return nil, err
	}
	out := make([]entity.IndicatorRow, len(ms))
	for i, m := range ms {
		// 降順で取得したものを昇順に並べ替える
		out[len(ms)-1-i] = entity.IndicatorRow{
			PriceRow: entity.PriceRow{
				Date:   entity.DateOf(m.Date),
				Open:   valueOf(m.Open),
				High:   valueOf(m.High),
				Low:    valueOf(m.Low),
				Close:  valueOf(m.Close),
				Volume: valueOf(m.Volume),
			},
			RSI14:      valueOf(m.RSI14),
			MACD:       valueOf(m.MACD),
			MACDSignal: valueOf(m.MACDSignal),
			MACDHist:   valueOf(m.MACDHist),
			SMA20:      valueOf(m.SMA20),
			SMA50:      valueOf(m.SMA50),
		}
	}
	return out, nil
}
