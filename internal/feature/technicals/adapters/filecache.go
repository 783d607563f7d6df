package adapters

import (
	"encoding/csv"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"

	"stock_technicals/internal/feature/technicals/domain/entity"
	"stock_technicals/internal/feature/technicals/usecase"
)

const (
	// FormatParquet is the primary columnar cache format.
	FormatParquet = "parquet"
	// FormatCSV is the plain-text fallback format.
	FormatCSV = "csv"
)

// technicalRecord matches the parquet schema of one cached row.
type technicalRecord struct {
	Date       int64   `parquet:"date,timestamp(millisecond)"`
	Open       float64 `parquet:"open"`
	High       float64 `parquet:"high"`
	Low        float64 `parquet:"low"`
	Close      float64 `parquet:"close"`
	Volume     float64 `parquet:"volume"`
	RSI14      float64 `parquet:"rsi14"`
	MACD       float64 `parquet:"macd"`
	MACDSignal float64 `parquet:"macd_signal"`
	MACDHist   float64 `parquet:"macd_hist"`
	SMA20      float64 `parquet:"sma20"`
	SMA50      float64 `parquet:"sma50"`
}

// FileCache は銘柄ごとの指標付き系列をローカルファイルに保存するキャッシュです。
// 保存形式は parquet を基本とし、書き込みに失敗した場合は CSV にフォールバックします。
type FileCache struct {
	dir    string
	format string
}

var _ usecase.CacheStore = (*FileCache)(nil)

// NewFileCache は dir 配下にキャッシュファイルを置く FileCache を生成します。
// format が "csv" の場合は parquet を使わずに CSV のみで保存します。
func NewFileCache(dir, format string) *FileCache {
	if format != FormatCSV {
		format = FormatParquet
	}
	return &FileCache{dir: dir, format: format}
}

var unsafeChars = strings.NewReplacer(
	"/", "_", `\`, "_", ":", "_", "*", "_", "?", "_",
	`"`, "_", "<", "_", ">", "_", "|", "_",
)

// SafeName はファイル名に使えない文字を "_" に置き換えた銘柄名を返します。
func SafeName(ticker string) string {
	s := unsafeChars.Replace(ticker)
	if s == "." || s == ".." {
		s = strings.ReplaceAll(s, ".", "_")
	}
	return s
}

func (c *FileCache) path(ticker, ext string) string {
	return filepath.Join(c.dir, SafeName(ticker)+"."+ext)
}

// Load は保存済みの系列を読み込みます。ファイルが無い、または読み込めない場合は空の系列を返します。
func (c *FileCache) Load(ticker string) []entity.IndicatorRow {
	readers := []struct {
		ext  string
		read func(string) ([]entity.IndicatorRow, error)
	}{
		{FormatParquet, readParquet},
		{FormatCSV, readCSVFile},
	}
	for _, r := range readers {
		p := c.path(ticker, r.ext)
		if _, err := os.Stat(p); err != nil {
			continue
		}
		rows, err := r.read(p)
		if err != nil {
			slog.Warn("unreadable cache file", "ticker", ticker, "path", p, "error", err)
			continue
		}
		return rows
	}
	return []entity.IndicatorRow{}
}

// Save は系列を一時ファイルに書き出してから置き換えます。
// 成功した形式と異なる形式の古いファイルは削除します。
func (c *FileCache) Save(ticker string, rows []entity.IndicatorRow) error {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	if c.format == FormatParquet {
		err := writeAtomic(c.path(ticker, FormatParquet), func(tmp string) error {
			return writeParquet(tmp, rows)
		})
		if err == nil {
			c.removeStale(ticker, FormatCSV)
			return nil
		}
		slog.Warn("parquet write failed, falling back to csv", "ticker", ticker, "error", err)
	}

	err := writeAtomic(c.path(ticker, FormatCSV), func(tmp string) error {
		return writeCSVFile(tmp, rows)
	})
	if err != nil {
		return fmt.Errorf("save cache %s: %w", ticker, err)
	}
	c.removeStale(ticker, FormatParquet)
	return nil
}

func (c *FileCache) removeStale(ticker, ext string) {
	if err := os.Remove(c.path(ticker, ext)); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to remove stale cache file", "ticker", ticker, "error", err)
	}
}

// writeAtomic は write で一時ファイルを作成し、成功した場合のみ path へリネームします。
func writeAtomic(path string, write func(tmp string) error) error {
	tmp := fmt.Sprintf("%s.tmp-%d", path, time.Now().UnixNano())
	if err := write(tmp); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

func writeParquet(path string, rows []entity.IndicatorRow) error {
	records := make([]technicalRecord, 0, len(rows))
	for _, r := range rows {
		records = append(records, technicalRecord{
			Date:       r.Date.UnixMilli(),
			Open:       r.Open,
			High:       r.High,
			Low:        r.Low,
			Close:      r.Close,
			Volume:     r.Volume,
			RSI14:      r.RSI14,
			MACD:       r.MACD,
			MACDSignal: r.MACDSignal,
			MACDHist:   r.MACDHist,
			SMA20:      r.SMA20,
			SMA50:      r.SMA50,
		})
	}
	return parquet.WriteFile(path, records)
}

func readParquet(path string) ([]entity.IndicatorRow, error) {
	records, err := parquet.ReadFile[technicalRecord](path)
	if err != nil {
		return nil, err
	}
	rows := make([]entity.IndicatorRow, 0, len(records))
	for _, rec := range records {
		rows = append(rows, entity.IndicatorRow{
			PriceRow: entity.PriceRow{
				Date:   entity.DateOf(time.UnixMilli(rec.Date).UTC()),
				Open:   rec.Open,
				High:   rec.High,
				Low:    rec.Low,
				Close:  rec.Close,
				Volume: rec.Volume,
			},
			RSI14:      rec.RSI14,
			MACD:       rec.MACD,
			MACDSignal: rec.MACDSignal,
			MACDHist:   rec.MACDHist,
			SMA20:      rec.SMA20,
			SMA50:      rec.SMA50,
		})
	}
	if err := checkOrdered(rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func writeCSVFile(path string, rows []entity.IndicatorRow) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if err := w.Write(cacheHeader); err != nil {
		_ = f.Close()
		return err
	}
	for _, r := range rows {
		if err := w.Write(encodeRow(r)); err != nil {
			_ = f.Close()
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func readCSVFile(path string) ([]entity.IndicatorRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	rows, err := decodeRows(csv.NewReader(f))
	if err != nil {
		return nil, err
	}
	if err := checkOrdered(rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// checkOrdered rejects series whose dates are not strictly increasing.
func checkOrdered(rows []entity.IndicatorRow) error {
	for i := 1; i < len(rows); i++ {
		if !rows[i].Date.After(rows[i-1].Date) {
			return fmt.Errorf("dates not strictly increasing at row %d", i)
		}
	}
	return nil
}
