package handler_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"stock_technicals/internal/feature/technicals/domain/entity"
	"stock_technicals/internal/feature/technicals/transport/handler"
)

// mockTechnicalsUsecase はTechnicalsUsecaseインターフェースのモック実装です。
type mockTechnicalsUsecase struct {
	GetTechnicalsFunc   func(ctx context.Context, ticker string, force bool) (entity.Result, bool)
	FetchWithStatusFunc func(ctx context.Context, tickers []string, force bool) []entity.Result
}

func (m *mockTechnicalsUsecase) GetTechnicals(ctx context.Context, ticker string, force bool) (entity.Result, bool) {
	return m.GetTechnicalsFunc(ctx, ticker, force)
}

func (m *mockTechnicalsUsecase) FetchWithStatus(ctx context.Context, tickers []string, force bool) []entity.Result {
	return m.FetchWithStatusFunc(ctx, tickers, force)
}

type mockHistoryReader struct {
	FindFunc func(ctx context.Context, ticker string, limit int) ([]entity.IndicatorRow, error)
}

func (m *mockHistoryReader) Find(ctx context.Context, ticker string, limit int) ([]entity.IndicatorRow, error) {
	return m.FindFunc(ctx, ticker, limit)
}

var testDate = time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)

func oneRow() []entity.IndicatorRow {
	nan := math.NaN()
	return []entity.IndicatorRow{{
		PriceRow:   entity.PriceRow{Date: testDate, Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 100},
		RSI14:      60,
		MACD:       0.25,
		MACDSignal: 0.125,
		MACDHist:   0.125,
		SMA20:      nan,
		SMA50:      nan,
	}}
}

const oneRowJSON = `{"date":"2025-01-10","open":1,"high":2,"low":0.5,"close":1.5,"volume":100,"rsi14":60,"macd":0.25,"macd_signal":0.125,"macd_hist":0.125,"sma20":null,"sma50":null}`

// TestTechnicalsHandler_GetTechnicalsHandler はGET /technicals/:code のレスポンスを検証します。
func TestTechnicalsHandler_GetTechnicalsHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name           string
		url            string
		mockGet        func(ctx context.Context, ticker string, force bool) (entity.Result, bool)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "success: fetched series with NaN as null",
			url:  "/technicals/AAPL",
			mockGet: func(ctx context.Context, ticker string, force bool) (entity.Result, bool) {
				assert.Equal(t, "AAPL", ticker)
				assert.False(t, force)
				return entity.Result{Ticker: ticker, Status: entity.StatusFetched, Rows: oneRow()}, true
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `{"ticker":"AAPL","status":"fetched","rows":[` + oneRowJSON + `]}`,
		},
		{
			name: "success: force query is forwarded",
			url:  "/technicals/7203.T?force=true",
			mockGet: func(ctx context.Context, ticker string, force bool) (entity.Result, bool) {
				assert.True(t, force)
				return entity.Result{Ticker: ticker, Status: entity.StatusCached, Rows: oneRow()}, true
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `{"ticker":"7203.T","status":"cached","rows":[` + oneRowJSON + `]}`,
		},
		{
			name: "error: unavailable ticker",
			url:  "/technicals/ZZZZ",
			mockGet: func(ctx context.Context, ticker string, force bool) (entity.Result, bool) {
				return entity.Result{Ticker: ticker, Status: entity.StatusUnavailable, Rows: []entity.IndicatorRow{}}, true
			},
			expectedStatus: http.StatusNotFound,
			expectedBody:   `{"ticker":"ZZZZ","status":"unavailable","rows":[]}`,
		},
		{
			name: "error: sentinel ticker",
			url:  "/technicals/Not%20Listed",
			mockGet: func(ctx context.Context, ticker string, force bool) (entity.Result, bool) {
				return entity.Result{}, false
			},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"error":"invalid ticker"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := handler.NewTechnicalsHandler(&mockTechnicalsUsecase{GetTechnicalsFunc: tt.mockGet}, nil)
			router := gin.New()
			router.GET("/technicals/:code", h.GetTechnicalsHandler)

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, tt.url, nil)
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.JSONEq(t, tt.expectedBody, w.Body.String())
		})
	}
}

// TestTechnicalsHandler_RefreshHandler はPOST /technicals/refresh のリクエスト検証とレスポンスを検証します。
func TestTechnicalsHandler_RefreshHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name           string
		body           io.Reader
		mockFetch      func(ctx context.Context, tickers []string, force bool) []entity.Result
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "success: statuses per ticker",
			body: bytes.NewBufferString(`{"tickers":["MSFT","AAPL"],"force":true}`),
			mockFetch: func(ctx context.Context, tickers []string, force bool) []entity.Result {
				assert.Equal(t, []string{"MSFT", "AAPL"}, tickers)
				assert.True(t, force)
				return []entity.Result{
					{Ticker: "AAPL", Status: entity.StatusFetched, Rows: oneRow()},
					{Ticker: "MSFT", Status: entity.StatusUnavailable, Rows: []entity.IndicatorRow{}},
				}
			},
			expectedStatus: http.StatusOK,
			expectedBody: `[{"ticker":"AAPL","status":"fetched","rows":1,"last_date":"2025-01-10"},` +
				`{"ticker":"MSFT","status":"unavailable","rows":0}]`,
		},
		{
			name:           "error: missing tickers",
			body:           bytes.NewBufferString(`{"force":true}`),
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "error: malformed json",
			body:           bytes.NewBufferString(`{"tickers":`),
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc := &mockTechnicalsUsecase{
				FetchWithStatusFunc: func(ctx context.Context, tickers []string, force bool) []entity.Result {
					if tt.mockFetch == nil {
						t.Error("FetchWithStatus should not be called")
						return nil
					}
					return tt.mockFetch(ctx, tickers, force)
				},
			}
			h := handler.NewTechnicalsHandler(uc, nil)
			router := gin.New()
			router.POST("/technicals/refresh", h.RefreshHandler)

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/technicals/refresh", tt.body)
			req.Header.Set("Content-Type", "application/json")
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedBody != "" {
				assert.JSONEq(t, tt.expectedBody, w.Body.String())
			}
		})
	}
}

// TestTechnicalsHandler_HistoryHandler はGET /technicals/:code/history のレスポンスを検証します。
func TestTechnicalsHandler_HistoryHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name           string
		url            string
		history        *mockHistoryReader
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "success: explicit limit",
			url:  "/technicals/AAPL/history?limit=5",
			history: &mockHistoryReader{FindFunc: func(ctx context.Context, ticker string, limit int) ([]entity.IndicatorRow, error) {
				assert.Equal(t, "AAPL", ticker)
				assert.Equal(t, 5, limit)
				return oneRow(), nil
			}},
			expectedStatus: http.StatusOK,
			expectedBody:   `[` + oneRowJSON + `]`,
		},
		{
			name: "edge case: invalid limit uses default",
			url:  "/technicals/AAPL/history?limit=abc",
			history: &mockHistoryReader{FindFunc: func(ctx context.Context, ticker string, limit int) ([]entity.IndicatorRow, error) {
				assert.Equal(t, 120, limit)
				return []entity.IndicatorRow{}, nil
			}},
			expectedStatus: http.StatusOK,
			expectedBody:   `[]`,
		},
		{
			name: "error: store failure",
			url:  "/technicals/AAPL/history",
			history: &mockHistoryReader{FindFunc: func(ctx context.Context, ticker string, limit int) ([]entity.IndicatorRow, error) {
				return nil, errors.New("db down")
			}},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `{"error":"failed to read history"}`,
		},
		{
			name:           "error: store not configured",
			url:            "/technicals/AAPL/history",
			expectedStatus: http.StatusServiceUnavailable,
			expectedBody:   `{"error":"history store not configured"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var h *handler.TechnicalsHandler
			if tt.history != nil {
				h = handler.NewTechnicalsHandler(&mockTechnicalsUsecase{}, tt.history)
			} else {
				h = handler.NewTechnicalsHandler(&mockTechnicalsUsecase{}, nil)
			}
			router := gin.New()
			router.GET("/technicals/:code/history", h.HistoryHandler)

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, tt.url, nil)
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.JSONEq(t, tt.expectedBody, w.Body.String())
		})
	}
}
