// Package twelvedata provides a batch client for the Twelve Data time_series API.
package twelvedata

import "time"

const (
	// DefaultBaseURL is the public Twelve Data endpoint.
	DefaultBaseURL = "https://api.twelvedata.com"
	// DefaultLookbackDays is the number of trading days requested per ticker.
	DefaultLookbackDays = 200
	// lookbackCushion widens the calendar window to cover weekends and holidays.
	lookbackCushion = 1.4
)

// Config holds configuration for the Twelve Data API client.
type Config struct {
	APIKey       string        // API key for authentication
	BaseURL      string        // Base URL for the API (e.g., "https://api.twelvedata.com")
	Timeout      time.Duration // HTTP request timeout
	LookbackDays int           // Trading days of history to request
}

func (c Config) withDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.LookbackDays <= 0 {
		c.LookbackDays = DefaultLookbackDays
	}
	return c
}
