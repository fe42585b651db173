package indicators

import "fmt"

// MACDResult holds MACD line, signal line and histogram aligned to the same
// candles (the tail of the input).
type MACDResult struct {
	MACD      []float64
	Signal    []float64
	Histogram []float64
}

// MACDLookback is the number of values needed for the first histogram value.
func MACDLookback(fast, slow, signal int) int {
	longest := slow
	if fast > longest {
		longest = fast
	}
	return longest + signal - 1
}

// MACD computes fastEMA-slowEMA over the overlapping tail, its signal EMA and
// the histogram.
func MACD(values []float64, fast, slow, signal int) (MACDResult, error) {
	for _, p := range []int{fast, slow, signal} {
		if err := checkInput("MACD", len(values), p, 0); err != nil {
			return MACDResult{}, err
		}
	}
	if err := checkInput("MACD", len(values), slow, MACDLookback(fast, slow, signal)); err != nil {
		return MACDResult{}, err
	}

	fastEMA, err := EMA(values, fast)
	if err != nil {
		return MACDResult{}, fmt.Errorf("fast EMA: %w", err)
	}
	slowEMA, err := EMA(values, slow)
	if err != nil {
		return MACDResult{}, fmt.Errorf("slow EMA: %w", err)
	}

	n := len(fastEMA)
	if len(slowEMA) < n {
		n = len(slowEMA)
	}
	line := make([]float64, n)
	fo, so := len(fastEMA)-n, len(slowEMA)-n
	for i := 0; i < n; i++ {
		line[i] = fastEMA[fo+i] - slowEMA[so+i]
	}

	sig, err := EMA(line, signal)
	if err != nil {
		return MACDResult{}, fmt.Errorf("signal EMA: %w", err)
	}
	line = line[len(line)-len(sig):]
	hist := make([]float64, len(sig))
	for i := range sig {
		hist[i] = line[i] - sig[i]
	}
	return MACDResult{MACD: line, Signal: sig, Histogram: hist}, nil
}

// MACDCrossover reports a histogram sign flip on the last step:
// +1 bullish (<=0 to >0), -1 bearish (>=0 to <0), 0 otherwise.
func MACDCrossover(histogram []float64) int {
	if len(histogram) < 2 {
		return 0
	}
	prev, cur := histogram[len(histogram)-2], histogram[len(histogram)-1]
	switch {
	case prev <= 0 && cur > 0:
		return 1
	case prev >= 0 && cur < 0:
		return -1
	default:
		return 0
	}
}
