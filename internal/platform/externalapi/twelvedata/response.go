package twelvedata

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"stock_technicals/internal/platform/externalapi/twelvedata/dto"
)

// ErrAPI is returned when the provider answers with a top-level error object.
var ErrAPI = errors.New("twelvedata api error")

// batchResponse は time_series のレスポンス形状です。
// 複数銘柄の場合は銘柄ごとのネスト形式、単一銘柄の場合はフラット形式で返されます。
type batchResponse interface {
	// series は要求銘柄ごとの生データを返します。該当なしの銘柄は含みません。
	series(tickers []string) map[string]dto.TimeSeriesResponse
}

// nestedResponse is keyed by symbol.
type nestedResponse map[string]dto.TimeSeriesResponse

// flatResponse holds a single symbol's payload at the top level.
type flatResponse struct {
	dto.TimeSeriesResponse
}

func (n nestedResponse) series(tickers []string) map[string]dto.TimeSeriesResponse {
	out := make(map[string]dto.TimeSeriesResponse, len(tickers))
	for _, t := range tickers {
		ts, ok := n[t]
		if !ok {
			continue
		}
		if ts.IsError() {
			slog.Warn("twelvedata symbol error", "ticker", t, "code", ts.Code, "message", ts.Message)
			continue
		}
		out[t] = ts
	}
	return out
}

// series はフラット形式を、銘柄が1つだけ要求された場合か meta.symbol が要求銘柄と一致する場合にのみ割り当てます。
func (f flatResponse) series(tickers []string) map[string]dto.TimeSeriesResponse {
	out := make(map[string]dto.TimeSeriesResponse, 1)
	for _, t := range tickers {
		if t == f.Meta.Symbol {
			out[t] = f.TimeSeriesResponse
			return out
		}
	}
	if len(tickers) == 1 {
		out[tickers[0]] = f.TimeSeriesResponse
	}
	return out
}

// flatKeys are top-level fields that only appear in the single-symbol shape.
var flatKeys = []string{"values", "meta", "status"}

// decodeBatchResponse はレスポンスボディの形状を判別してデコードします。
func decodeBatchResponse(body []byte) (batchResponse, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(body, &top); err != nil {
		return nil, fmt.Errorf("decode time_series: %w", err)
	}

	for _, k := range flatKeys {
		if _, ok := top[k]; !ok {
			continue
		}
		var flat flatResponse
		if err := json.Unmarshal(body, &flat.TimeSeriesResponse); err != nil {
			return nil, fmt.Errorf("decode time_series: %w", err)
		}
		if flat.IsError() {
			return nil, fmt.Errorf("%w: code=%d %s", ErrAPI, flat.Code, flat.Message)
		}
		return flat, nil
	}

	nested := make(nestedResponse, len(top))
	for sym, raw := range top {
		var ts dto.TimeSeriesResponse
		if err := json.Unmarshal(raw, &ts); err != nil {
			// 1銘柄の形式不正はその銘柄のみ欠損扱い
			slog.Warn("skipping malformed symbol payload", "ticker", sym, "error", err)
			continue
		}
		nested[sym] = ts
	}
	return nested, nil
}
