package adapters

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"stock_technicals/internal/feature/technicals/domain/entity"
)

// tidyHeader is the cache header with the ticker inserted after the date.
var tidyHeader = tidyRecord("ticker", cacheHeader)

// tidyRecord inserts ticker as the second column of a cache record.
func tidyRecord(ticker string, rec []string) []string {
	out := make([]string, 0, len(rec)+1)
	out = append(out, rec[0], ticker)
	return append(out, rec[1:]...)
}

// WriteTidyCSV は全銘柄の行を1つの縦持ち CSV として書き出し、書き出した行数を返します。
// 空の系列しか持たない銘柄は出力されません。
func WriteTidyCSV(w io.Writer, results []entity.Result) (int, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(tidyHeader); err != nil {
		return 0, err
	}
	n := 0
	for _, res := range results {
		for _, r := range res.Rows {
			if err := cw.Write(tidyRecord(res.Ticker, encodeRow(r))); err != nil {
				return n, err
			}
			n++
		}
	}
	cw.Flush()
	return n, cw.Error()
}

// WriteTidyCSVFile は WriteTidyCSV の結果を path に保存します。親ディレクトリは自動で作成します。
func WriteTidyCSVFile(path string, results []entity.Result) (int, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, fmt.Errorf("create output dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	n, err := WriteTidyCSV(f, results)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return n, err
}
