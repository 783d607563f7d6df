// Package entity defines the domain models for the technicals feature.
package entity

import (
	"math"
	"time"
)

// DefaultMaxAge はキャッシュを新鮮とみなす最終日付からの最大経過期間です。
const DefaultMaxAge = 5 * 24 * time.Hour

// PriceRow represents one daily OHLCV row of a ticker.
// Missing numeric values are stored as NaN.
type PriceRow struct {
	Date   time.Time // Calendar date (UTC midnight, no timezone semantics)
	Open   float64   // Opening price
	High   float64   // Highest price of the day
	Low    float64   // Lowest price of the day
	Close  float64   // Closing price (auto-adjusted)
	Volume float64   // Trading volume
}

// IndicatorRow is a PriceRow extended with technical indicators derived from Close.
// Indicators are NaN while their warm-up window is not yet filled.
type IndicatorRow struct {
	PriceRow
	RSI14      float64
	MACD       float64
	MACDSignal float64
	MACDHist   float64
	SMA20      float64
	SMA50      float64
}

// NewPriceRow は全ての数値が未定義(NaN)の行を生成します。
func NewPriceRow(date time.Time) PriceRow {
	nan := math.NaN()
	return PriceRow{Date: DateOf(date), Open: nan, High: nan, Low: nan, Close: nan, Volume: nan}
}

// DateOf はタイムゾーン情報を落とし、UTCの0時に正規化した日付を返します。
// 壁時計上の年月日はそのまま保持されます。
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// LastDate は系列の最大日付を返します。系列が空の場合は false を返します。
func LastDate(rows []IndicatorRow) (time.Time, bool) {
	if len(rows) == 0 {
		return time.Time{}, false
	}
	last := rows[0].Date
	for _, r := range rows[1:] {
		if r.Date.After(last) {
			last = r.Date
		}
	}
	return last, true
}

// IsFresh reports whether rows is non-empty and its most recent date is
// no older than maxAge relative to now.
func IsFresh(rows []IndicatorRow, now time.Time, maxAge time.Duration) bool {
	last, ok := LastDate(rows)
	if !ok {
		return false
	}
	return !last.Before(DateOf(now).Add(-maxAge))
}
