// Package dto defines data transfer objects for the Twelve Data API responses.
package dto

// TimeSeriesResponse represents one symbol's payload from the time_series endpoint.
// Values rows are kept as raw maps since field names and value types vary by plan.
type TimeSeriesResponse struct {
	Status  string           `json:"status"`
	Code    int              `json:"code,omitempty"`
	Message string           `json:"message,omitempty"`
	Meta    Meta             `json:"meta"`
	Values  []map[string]any `json:"values"`
}

// Meta describes the series returned for a symbol.
type Meta struct {
	Symbol   string `json:"symbol"`
	Interval string `json:"interval"`
	Exchange string `json:"exchange,omitempty"`
	Currency string `json:"currency,omitempty"`
	Timezone string `json:"exchange_timezone,omitempty"`
}

// IsError reports whether the payload is an API error object.
func (r TimeSeriesResponse) IsError() bool {
	return r.Status == "error"
}
