package indicator

import "math"

// SpanAlpha converts an EMA span into its smoothing factor 2/(span+1).
func SpanAlpha(span int) float64 {
	return 2.0 / float64(span+1)
}

// EMA computes the recursive (unadjusted) exponential moving average of values:
//
//	y[0] = x[0]
//	y[t] = (1-alpha)*y[t-1] + alpha*x[t]
//
// Leading NaN inputs produce NaN until the first defined value seeds the average.
// A NaN in the middle of the series carries the previous average forward.
func EMA(values []float64, alpha float64) []float64 {
	out := make([]float64, len(values))
	prev := math.NaN()
	for i, v := range values {
		switch {
		case math.IsNaN(v):
			// keep prev
		case math.IsNaN(prev):
			prev = v
		default:
			prev = (1-alpha)*prev + alpha*v
		}
		out[i] = prev
	}
	return out
}
