package adapters

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stock_technicals/internal/feature/technicals/domain/entity"
)

func sampleRows(n int) []entity.IndicatorRow {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	rows := make([]entity.IndicatorRow, n)
	for i := range rows {
		c := 100 + float64(i)*0.37
		rows[i] = entity.IndicatorRow{
			PriceRow:   entity.PriceRow{Date: start.AddDate(0, 0, i), Open: c - 0.5, High: c + 1.25, Low: c - 1.1, Close: c, Volume: 12345},
			RSI14:      50 + float64(i%10),
			MACD:       0.1 * float64(i),
			MACDSignal: 0.05 * float64(i),
			MACDHist:   0.05 * float64(i),
			SMA20:      math.NaN(),
			SMA50:      math.NaN(),
		}
		if i >= 1 {
			rows[i].SMA20 = c - 0.2
		}
	}
	rows[0].Volume = math.NaN()
	return rows
}

// assertSameRows compares series treating NaN as equal to NaN.
func assertSameRows(t *testing.T, want, got []entity.IndicatorRow) {
	t.Helper()
	require.Len(t, got, len(want))
	same := func(a, b float64) bool {
		return (math.IsNaN(a) && math.IsNaN(b)) || a == b
	}
	for i := range want {
		w, g := want[i], got[i]
		assert.True(t, w.Date.Equal(g.Date), "row %d date: want %v got %v", i, w.Date, g.Date)
		pairs := [][2]float64{
			{w.Open, g.Open}, {w.High, g.High}, {w.Low, g.Low}, {w.Close, g.Close}, {w.Volume, g.Volume},
			{w.RSI14, g.RSI14}, {w.MACD, g.MACD}, {w.MACDSignal, g.MACDSignal}, {w.MACDHist, g.MACDHist},
			{w.SMA20, g.SMA20}, {w.SMA50, g.SMA50},
		}
		for j, p := range pairs {
			assert.True(t, same(p[0], p[1]), "row %d col %d: want %v got %v", i, j, p[0], p[1])
		}
	}
}

func TestFileCache_RoundTrip(t *testing.T) {
	t.Parallel()

	for _, format := range []string{FormatParquet, FormatCSV} {
		format := format
		t.Run(format, func(t *testing.T) {
			t.Parallel()
			dir := t.TempDir()
			c := NewFileCache(dir, format)
			rows := sampleRows(30)

			require.NoError(t, c.Save("7203.T", rows))

			_, err := os.Stat(filepath.Join(dir, "7203.T."+format))
			require.NoError(t, err)
			assertSameRows(t, rows, c.Load("7203.T"))
		})
	}
}

func TestFileCache_LoadMissing(t *testing.T) {
	t.Parallel()

	c := NewFileCache(t.TempDir(), FormatParquet)

	rows := c.Load("NOPE")

	assert.NotNil(t, rows)
	assert.Empty(t, rows)
}

func TestFileCache_LoadCorrupt(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	c := NewFileCache(dir, FormatParquet)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "BAD.parquet"), []byte("not a parquet file"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "BAD2.csv"), []byte("date,close\nyesterday,1\n"), 0o644))

	assert.Empty(t, c.Load("BAD"))
	assert.Empty(t, c.Load("BAD2"))
}

func TestFileCache_LoadRejectsUnorderedCSV(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	c := NewFileCache(dir, FormatCSV)
	body := "date,close\n2024-01-02,1\n2024-01-02,2\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "DUP.csv"), []byte(body), 0o644))

	assert.Empty(t, c.Load("DUP"))
}

func TestFileCache_FallsBackToCSVFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	body := "date,open,high,low,close,volume,rsi14,macd,macd_signal,macd_hist,sma20,sma50\n" +
		"2024-01-02,1,2,0.5,1.5,100,,,,,,\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "X.csv"), []byte(body), 0o644))

	rows := NewFileCache(dir, FormatParquet).Load("X")

	require.Len(t, rows, 1)
	assert.Equal(t, 1.5, rows[0].Close)
	assert.True(t, math.IsNaN(rows[0].RSI14))
}

func TestFileCache_SaveRemovesOtherFormat(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	rows := sampleRows(3)
	require.NoError(t, NewFileCache(dir, FormatCSV).Save("AAA", rows))
	require.NoError(t, NewFileCache(dir, FormatParquet).Save("AAA", rows))

	_, err := os.Stat(filepath.Join(dir, "AAA.csv"))
	assert.True(t, os.IsNotExist(err), "stale csv is removed")
}

func TestFileCache_SaveOverwrites(t *testing.T) {
	t.Parallel()

	c := NewFileCache(t.TempDir(), FormatParquet)
	require.NoError(t, c.Save("AAA", sampleRows(10)))
	require.NoError(t, c.Save("AAA", sampleRows(4)))

	assert.Len(t, c.Load("AAA"), 4)
}

// TestFileCache_SaveFallsBackToCSV は parquet の書き込みに失敗した場合に CSV へ保存されることを検証します。
func TestFileCache_SaveFallsBackToCSV(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	// X.parquet を空でないディレクトリにして parquet の置き換えを失敗させる
	blocked := filepath.Join(dir, "X.parquet")
	require.NoError(t, os.MkdirAll(filepath.Join(blocked, "keep"), 0o755))
	c := NewFileCache(dir, FormatParquet)
	rows := sampleRows(5)

	err := c.Save("X", rows)

	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "X.csv"))
	require.NoError(t, err, "csv fallback file is written")
	assertSameRows(t, rows, c.Load("X"))
}

func TestSafeName(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		in, want string
	}{
		{"AAPL", "AAPL"},
		{"BRK/B", "BRK_B"},
		{`A\B:C`, "A_B_C"},
		{"7203.T", "7203.T"},
		{" AAPL", " AAPL"},
		{"..", "__"},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.want, SafeName(tc.in), tc.in)
	}
}
