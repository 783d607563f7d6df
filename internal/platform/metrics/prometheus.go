// Package metrics exposes Prometheus instruments for the technicals fetcher.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"stock_technicals/internal/feature/technicals/domain/entity"
	"stock_technicals/internal/feature/technicals/usecase"
)

// Recorder implements usecase.Observer using Prometheus.
type Recorder struct {
	attempts      prometheus.Counter
	batchSize     prometheus.Histogram
	results       *prometheus.CounterVec
	cacheWriteErr prometheus.Counter
	refreshRuns   *prometheus.CounterVec
}

var _ usecase.Observer = (*Recorder)(nil)

// New creates a Recorder registered with reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Recorder{
		attempts: f.NewCounter(prometheus.CounterOpts{
			Name: "technicals_download_attempts_total",
			Help: "Total number of batch download requests",
		}),
		batchSize: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "technicals_download_batch_size",
			Help:    "Number of tickers per batch download request",
			Buckets: []float64{1, 5, 10, 20, 30, 60, 120},
		}),
		results: f.NewCounterVec(prometheus.CounterOpts{
			Name: "technicals_results_total",
			Help: "Ticker outcomes by status",
		}, []string{"status"}),
		cacheWriteErr: f.NewCounter(prometheus.CounterOpts{
			Name: "technicals_cache_write_errors_total",
			Help: "Total number of failed cache writes",
		}),
		refreshRuns: f.NewCounterVec(prometheus.CounterOpts{
			Name: "technicals_refresh_runs_total",
			Help: "Scheduled refresh runs by outcome",
		}, []string{"outcome"}),
	}
}

// ObserveAttempt records one batch download request.
func (r *Recorder) ObserveAttempt(batchSize int) {
	r.attempts.Inc()
	r.batchSize.Observe(float64(batchSize))
}

// ObserveResult records a ticker outcome.
func (r *Recorder) ObserveResult(status entity.Status) {
	r.results.WithLabelValues(status.String()).Inc()
}

// ObserveCacheWriteFailure records a failed cache write.
func (r *Recorder) ObserveCacheWriteFailure() {
	r.cacheWriteErr.Inc()
}

// ObserveRefresh records a scheduled refresh run.
func (r *Recorder) ObserveRefresh(err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	r.refreshRuns.WithLabelValues(outcome).Inc()
}
