package adapters

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stock_technicals/internal/feature/technicals/domain/entity"
)

func TestTickersFromRecosJSON(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	testCases := []struct {
		name    string
		body    string
		want    []string
		wantErr bool
	}{
		{
			name: "success: filters sentinel, blanks and duplicates",
			body: `[{"ticker":"MSFT","score":1},{"ticker":"Not Listed"},{"ticker":""},{"name":"x"},{"ticker":"AAPL"},{"ticker":"MSFT"},{"ticker":42}]`,
			want: []string{"AAPL", "MSFT"},
		},
		{
			name: "success: empty list",
			body: `[]`,
			want: []string{},
		},
		{
			name:    "error: not a list",
			body:    `{"ticker":"AAPL"}`,
			wantErr: true,
		},
	}

	for i, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(dir, string(rune('a'+i))+".json")
			require.NoError(t, os.WriteFile(path, []byte(tc.body), 0o644))

			got, err := TickersFromRecosJSON(path)

			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestTickersFromRecosJSON_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := TickersFromRecosJSON(filepath.Join(t.TempDir(), "missing.json"))

	assert.Error(t, err)
}

func TestWriteTidyCSV(t *testing.T) {
	t.Parallel()

	rows := sampleRows(2)
	results := []entity.Result{
		{Ticker: "AAA", Status: entity.StatusFetched, Rows: rows},
		{Ticker: "BBB", Status: entity.StatusUnavailable, Rows: []entity.IndicatorRow{}},
		{Ticker: "CCC", Status: entity.StatusCached, Rows: rows[:1]},
	}
	var buf bytes.Buffer

	n, err := WriteTidyCSV(&buf, results)

	require.NoError(t, err)
	assert.Equal(t, 3, n)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "date,ticker,open,high,low,close,volume,rsi14,macd,macd_signal,macd_hist,sma20,sma50", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "2024-03-01,AAA,"))
	assert.True(t, strings.HasSuffix(lines[1], ",,"), "NaN indicators are written as empty fields")
	assert.True(t, strings.HasPrefix(lines[3], "2024-03-01,CCC,"))
}

func TestWriteTidyCSVFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "out", "technicals.csv")

	n, err := WriteTidyCSVFile(path, []entity.Result{{Ticker: "AAA", Rows: sampleRows(5)}})

	require.NoError(t, err)
	assert.Equal(t, 5, n)
	_, err = os.Stat(path)
	assert.NoError(t, err)
}
