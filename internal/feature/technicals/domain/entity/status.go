package entity

// Status describes where a ticker's series came from in a fetch run.
type Status int

const (
	// StatusUnavailable means no data could be retrieved after all retry rounds.
	StatusUnavailable Status = iota
	// StatusCached means a fresh series was served from the cache store.
	StatusCached
	// StatusFetched means the series was downloaded and computed in this run.
	StatusFetched
)

// String returns the lowercase name used in logs and API responses.
func (s Status) String() string {
	switch s {
	case StatusCached:
		return "cached"
	case StatusFetched:
		return "fetched"
	default:
		return "unavailable"
	}
}

// Result is the outcome of a fetch run for a single ticker.
// Rows is empty if and only if Status is StatusUnavailable.
type Result struct {
	Ticker string
	Status Status
	Rows   []IndicatorRow
}
