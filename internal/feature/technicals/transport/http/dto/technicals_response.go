// Package dto defines the JSON shapes of the technicals HTTP API.
package dto

import (
	"math"
	"time"

	"stock_technicals/internal/feature/technicals/domain/entity"
)

const dateLayout = "2006-01-02"

// TechnicalRow is one indicator row. Undefined values are encoded as null.
type TechnicalRow struct {
	Date       string   `json:"date"`
	Open       *float64 `json:"open"`
	High       *float64 `json:"high"`
	Low        *float64 `json:"low"`
	Close      *float64 `json:"close"`
	Volume     *float64 `json:"volume"`
	RSI14      *float64 `json:"rsi14"`
	MACD       *float64 `json:"macd"`
	MACDSignal *float64 `json:"macd_signal"`
	MACDHist   *float64 `json:"macd_hist"`
	SMA20      *float64 `json:"sma20"`
	SMA50      *float64 `json:"sma50"`
}

// TechnicalsResponse is the body of GET /technicals/:code.
type TechnicalsResponse struct {
	Ticker string         `json:"ticker"`
	Status string         `json:"status"`
	Rows   []TechnicalRow `json:"rows"`
}

// RefreshRequest is the body of POST /technicals/refresh.
type RefreshRequest struct {
	Tickers []string `json:"tickers" binding:"required,min=1,max=500"`
	Force   bool     `json:"force"`
}

// RefreshItem summarizes one ticker of a refresh.
type RefreshItem struct {
	Ticker   string `json:"ticker"`
	Status   string `json:"status"`
	Rows     int    `json:"rows"`
	LastDate string `json:"last_date,omitempty"`
}

// ErrorResponse is returned on request errors.
type ErrorResponse struct {
	Error string `json:"error"`
}

func ptr(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func val(p *float64) float64 {
	if p == nil {
		return math.NaN()
	}
	return *p
}

// NewTechnicalRows converts entity rows to their JSON form.
func NewTechnicalRows(rows []entity.IndicatorRow) []TechnicalRow {
	out := make([]TechnicalRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, TechnicalRow{
			Date:       r.Date.Format(dateLayout),
			Open:       ptr(r.Open),
			High:       ptr(r.High),
			Low:        ptr(r.Low),
			Close:      ptr(r.Close),
			Volume:     ptr(r.Volume),
			RSI14:      ptr(r.RSI14),
			MACD:       ptr(r.MACD),
			MACDSignal: ptr(r.MACDSignal),
			MACDHist:   ptr(r.MACDHist),
			SMA20:      ptr(r.SMA20),
			SMA50:      ptr(r.SMA50),
		})
	}
	return out
}

// NewTechnicalsResponse converts a fetch result to its JSON form.
func NewTechnicalsResponse(r entity.Result) TechnicalsResponse {
	return TechnicalsResponse{Ticker: r.Ticker, Status: r.Status.String(), Rows: NewTechnicalRows(r.Rows)}
}

// NewRefreshItem summarizes a fetch result.
func NewRefreshItem(r entity.Result) RefreshItem {
	item := RefreshItem{Ticker: r.Ticker, Status: r.Status.String(), Rows: len(r.Rows)}
	if last, ok := entity.LastDate(r.Rows); ok {
		item.LastDate = last.Format(dateLayout)
	}
	return item
}

// EntityRows converts the JSON rows back to entity rows. Rows with an invalid date are skipped.
func (t TechnicalsResponse) EntityRows() []entity.IndicatorRow {
	out := make([]entity.IndicatorRow, 0, len(t.Rows))
	for _, r := range t.Rows {
		d, err := time.Parse(dateLayout, r.Date)
		if err != nil {
			continue
		}
		out = append(out, entity.IndicatorRow{
			PriceRow: entity.PriceRow{
				Date:   d,
				Open:   val(r.Open),
				High:   val(r.High),
				Low:    val(r.Low),
				Close:  val(r.Close),
				Volume: val(r.Volume),
			},
			RSI14:      val(r.RSI14),
			MACD:       val(r.MACD),
			MACDSignal: val(r.MACDSignal),
			MACDHist:   val(r.MACDHist),
			SMA20:      val(r.SMA20),
			SMA50:      val(r.SMA50),
		})
	}
	return out
}
