package indicator

import "math"

// RSI computes the Relative Strength Index with Wilder smoothing (alpha = 1/period).
//
// Gains and losses are smoothed with the recursive EMA. Wherever the smoothed loss is
// zero the ratio is undefined; undefined values are back-filled from the next defined
// value. A series that never produces a defined ratio has no losses at all and is
// resolved as RS = +Inf (RSI 100), or 50 when it has no gains either.
// The result is clamped to [0, 100].
func RSI(closes []float64, period int) []float64 {
	n := len(closes)
	gains := make([]float64, n)
	losses := make([]float64, n)
	for i := 1; i < n; i++ {
		d := closes[i] - closes[i-1]
		// NaN deltas fail both comparisons and count as no movement.
		if d > 0 {
			gains[i] = d
		} else if d < 0 {
			losses[i] = -d
		}
	}

	alpha := 1.0 / float64(period)
	up := EMA(gains, alpha)
	down := EMA(losses, alpha)

	out := make([]float64, n)
	for i := range out {
		if down[i] == 0 || math.IsNaN(down[i]) {
			out[i] = math.NaN()
			continue
		}
		rs := up[i] / down[i]
		out[i] = 100 - 100/(1+rs)
	}

	backfill(out)
	fill := noLossRSI(gains)
	for i, v := range out {
		if math.IsNaN(v) {
			out[i] = fill
			continue
		}
		out[i] = clamp(v, 0, 100)
	}
	return out
}

// noLossRSI resolves a series whose smoothed loss never became positive:
// 100 if the series gained at all, 50 if it never moved.
func noLossRSI(gains []float64) float64 {
	for _, g := range gains {
		if g > 0 {
			return 100
		}
	}
	return 50
}

// backfill replaces each NaN with the next non-NaN value in place.
func backfill(values []float64) {
	next := math.NaN()
	for i := len(values) - 1; i >= 0; i-- {
		if math.IsNaN(values[i]) {
			values[i] = next
			continue
		}
		next = values[i]
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
