package adapters

import (
	"encoding/json"
	"fmt"
	"os"

	"stock_technicals/internal/feature/technicals/domain/entity"
)

// recoEntry is one item of a recommendations file. Other fields are ignored.
type recoEntry struct {
	Ticker any `json:"ticker"`
}

// TickersFromRecosJSON は推奨銘柄 JSON（オブジェクトの配列）から "ticker" を抽出します。
// 空文字・番兵値・重複は除外され、結果はソート済みです。
func TickersFromRecosJSON(path string) ([]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read recos: %w", err)
	}
	var entries []recoEntry
	if err := json.Unmarshal(b, &entries); err != nil {
		return nil, fmt.Errorf("parse recos %s: %w", path, err)
	}
	tickers := make([]string, 0, len(entries))
	for _, e := range entries {
		if t, ok := e.Ticker.(string); ok {
			tickers = append(tickers, t)
		}
	}
	return entity.NormalizeTickers(tickers), nil
}
