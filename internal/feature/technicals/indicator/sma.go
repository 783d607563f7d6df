package indicator

import "math"

// SMA computes the trailing simple moving average over period rows.
// The first period-1 values are NaN, as is any window containing a NaN.
// Each window is summed afresh so the result equals the plain arithmetic mean.
func SMA(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	for i := range values {
		if period <= 0 || i < period-1 {
			out[i] = math.NaN()
			continue
		}
		sum := 0.0
		for _, v := range values[i-period+1 : i+1] {
			sum += v
		}
		// NaN propagates through the sum.
		out[i] = sum / float64(period)
	}
	return out
}
