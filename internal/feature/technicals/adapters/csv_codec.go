package adapters

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"stock_technicals/internal/feature/technicals/domain/entity"
)

const dateLayout = "2006-01-02"

// cacheHeader is the column order of cached and exported series.
var cacheHeader = []string{
	"date", "open", "high", "low", "close", "volume",
	"rsi14", "macd", "macd_signal", "macd_hist", "sma20", "sma50",
}

// formatFloat は NaN を空文字にし、それ以外は往復可能な最短表現で出力します。
func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func parseFloat(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return math.NaN()
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return f
}

func encodeRow(r entity.IndicatorRow) []string {
	return []string{
		r.Date.Format(dateLayout),
		formatFloat(r.Open),
		formatFloat(r.High),
		formatFloat(r.Low),
		formatFloat(r.Close),
		formatFloat(r.Volume),
		formatFloat(r.RSI14),
		formatFloat(r.MACD),
		formatFloat(r.MACDSignal),
		formatFloat(r.MACDHist),
		formatFloat(r.SMA20),
		formatFloat(r.SMA50),
	}
}

// decodeRows はヘッダー付き CSV を読み込みます。列は名前で解決し、存在しない数値列は NaN とします。
func decodeRows(r *csv.Reader) ([]entity.IndicatorRow, error) {
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	if _, ok := idx["date"]; !ok {
		return nil, errors.New("missing date column")
	}
	field := func(rec []string, name string) string {
		i, ok := idx[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return rec[i]
	}

	rows := []entity.IndicatorRow{}
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		d, err := time.Parse(dateLayout, strings.TrimSpace(field(rec, "date")))
		if err != nil {
			return nil, fmt.Errorf("parse date: %w", err)
		}
		rows = append(rows, entity.IndicatorRow{
			PriceRow: entity.PriceRow{
				Date:   d,
				Open:   parseFloat(field(rec, "open")),
				High:   parseFloat(field(rec, "high")),
				Low:    parseFloat(field(rec, "low")),
				Close:  parseFloat(field(rec, "close")),
				Volume: parseFloat(field(rec, "volume")),
			},
			RSI14:      parseFloat(field(rec, "rsi14")),
			MACD:       parseFloat(field(rec, "macd")),
			MACDSignal: parseFloat(field(rec, "macd_signal")),
			MACDHist:   parseFloat(field(rec, "macd_hist")),
			SMA20:      parseFloat(field(rec, "sma20")),
			SMA50:      parseFloat(field(rec, "sma50")),
		})
	}
	return rows, nil
}
