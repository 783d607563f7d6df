package indicator

// MACD computes the moving average convergence/divergence of closes:
// line = EMA(fast) - EMA(slow), signal = EMA(line, signalSpan), hist = line - signal.
func MACD(closes []float64, fast, slow, signalSpan int) (line, signal, hist []float64) {
	emaFast := EMA(closes, SpanAlpha(fast))
	emaSlow := EMA(closes, SpanAlpha(slow))

	line = make([]float64, len(closes))
	for i := range closes {
		line[i] = emaFast[i] - emaSlow[i]
	}
	signal = EMA(line, SpanAlpha(signalSpan))

	hist = make([]float64, len(closes))
	for i := range closes {
		hist[i] = line[i] - signal[i]
	}
	return line, signal, hist
}
