// Package indicator computes technical indicators over daily price series.
// Every function here is pure: the same input always yields the same output.
package indicator

import "stock_technicals/internal/feature/technicals/domain/entity"

const (
	RSIPeriod  = 14
	MACDFast   = 12
	MACDSlow   = 26
	MACDSignal = 9
	SMAShort   = 20
	SMALong    = 50

	// DefaultUseDays is the number of most recent rows kept after warm-up.
	DefaultUseDays = 120
)

// Compute augments a date-ordered price series with RSI(14), MACD(12,26,9),
// SMA20 and SMA50. All indicators depend on the close column only.
// An empty input returns an empty series.
func Compute(rows []entity.PriceRow) []entity.IndicatorRow {
	if len(rows) == 0 {
		return []entity.IndicatorRow{}
	}

	closes := extractCloses(rows)
	rsi := RSI(closes, RSIPeriod)
	macd, signal, hist := MACD(closes, MACDFast, MACDSlow, MACDSignal)
	sma20 := SMA(closes, SMAShort)
	sma50 := SMA(closes, SMALong)

	out := make([]entity.IndicatorRow, len(rows))
	for i, r := range rows {
		out[i] = entity.IndicatorRow{
			PriceRow:   r,
			RSI14:      rsi[i],
			MACD:       macd[i],
			MACDSignal: signal[i],
			MACDHist:   hist[i],
			SMA20:      sma20[i],
			SMA50:      sma50[i],
		}
	}
	return out
}

// FinalSlice keeps the most recent n rows once the indicators have warmed up.
// n <= 0 keeps everything.
func FinalSlice(rows []entity.IndicatorRow, n int) []entity.IndicatorRow {
	if n <= 0 || len(rows) <= n {
		out := make([]entity.IndicatorRow, len(rows))
		copy(out, rows)
		return out
	}
	out := make([]entity.IndicatorRow, n)
	copy(out, rows[len(rows)-n:])
	return out
}

func extractCloses(rows []entity.PriceRow) []float64 {
	closes := make([]float64, len(rows))
	for i, r := range rows {
		closes[i] = r.Close
	}
	return closes
}
