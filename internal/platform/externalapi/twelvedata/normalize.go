package twelvedata

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"stock_technicals/internal/feature/technicals/domain/entity"
	"stock_technicals/internal/platform/externalapi/twelvedata/dto"
)

// dateLayouts are tried in order when parsing the datetime column.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// normalizeSeries は生データを日付昇順・日付一意の PriceRow 系列に変換します。
//   - 列名は大文字小文字を区別しない（"datetime" または "date"）
//   - 数値に変換できない値は NaN
//   - 同一日付が複数ある場合は後に現れた行を採用
//   - 日付を解釈できない行は捨てる
func normalizeSeries(ts dto.TimeSeriesResponse) []entity.PriceRow {
	rows := make([]entity.PriceRow, 0, len(ts.Values))
	for _, raw := range ts.Values {
		v := foldKeys(raw)
		date, err := parseDate(v)
		if err != nil {
			continue
		}
		r := entity.NewPriceRow(date)
		r.Open = toFloat(v["open"])
		r.High = toFloat(v["high"])
		r.Low = toFloat(v["low"])
		r.Close = toFloat(v["close"])
		r.Volume = toFloat(v["volume"])
		rows = append(rows, r)
	}

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Date.Before(rows[j].Date) })

	// 後勝ちで重複日付を除去
	out := rows[:0]
	for i, r := range rows {
		if i+1 < len(rows) && rows[i+1].Date.Equal(r.Date) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func foldKeys(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[strings.ToLower(strings.TrimSpace(k))] = v
	}
	return out
}

func parseDate(v map[string]any) (time.Time, error) {
	raw, ok := v["datetime"]
	if !ok {
		raw = v["date"]
	}
	s, ok := raw.(string)
	if !ok {
		return time.Time{}, fmt.Errorf("missing datetime")
	}
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return entity.DateOf(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("parse datetime %q", s)
}

// toFloat は文字列・数値を float64 に変換します。変換できない場合は NaN を返します。
func toFloat(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}
