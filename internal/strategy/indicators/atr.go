package indicators

import (
	"context"
	"math"

	"cryptoBacktester/internal/domain"
)

// TrueRange returns the true range of each kline after the first:
// max(high-low, |high-prevClose|, |low-prevClose|). The result has len(klines)-1 values.
func TrueRange(klines []*domain.Kline) []float64 {
	if len(klines) < 2 {
		return nil
	}
	out := make([]float64, len(klines)-1)
	for i := 1; i < len(klines); i++ {
		high, low, prevClose := klines[i].High, klines[i].Low, klines[i-1].Close
		out[i-1] = math.Max(high-low, math.Max(math.Abs(high-prevClose), math.Abs(low-prevClose)))
	}
	return out
}

// ATR returns the Average True Range series using Wilder's smoothing. The first
// value is the plain average of the first period true ranges and corresponds to
// kline index period, so the result has len(klines)-period values.
func ATR(klines []*domain.Kline, period int) ([]float64, error) {
	if err := checkInput("ATR", len(klines), period, period+1); err != nil {
		return nil, err
	}
	tr := TrueRange(klines)

	p := float64(period)
	atr := 0.0
	for i := 0; i < period; i++ {
		atr += tr[i]
	}
	atr /= p

	out := make([]float64, 0, len(tr)-period+1)
	out = append(out, atr)
	for i := period; i < len(tr); i++ {
		atr = (atr*(p-1) + tr[i]) / p
		out = append(out, atr)
	}
	return out, nil
}

// ATRConfig holds configuration for the Average True Range indicator
type ATRConfig struct {
	IndicatorConfig
}

// ATRIndicator implements the Indicator interface for ATR.
type ATRIndicator struct {
	BaseIndicator
}

// NewATR creates a new Average True Range indicator instance
func NewATR(config ATRConfig) *ATRIndicator {
	return &ATRIndicator{BaseIndicator: BaseIndicator{Config: config.IndicatorConfig}}
}

// Name returns the name of the indicator
func (a *ATRIndicator) Name() string {
	return "ATR"
}

// RequiredDataPoints returns period+1 since true range needs a previous close.
func (a *ATRIndicator) RequiredDataPoints() int {
	return a.Config.Period + 1
}

// Calculate returns the latest ATR value.
func (a *ATRIndicator) Calculate(_ context.Context, klines []*domain.Kline) (float64, error) {
	series, err := ATR(klines, a.Config.Period)
	if err != nil {
		return 0, err
	}
	return Last(series), nil
}
