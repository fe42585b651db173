package indicators

import (
	"context"
	"fmt"

	"cryptoBacktester/internal/domain"
	"cryptoBacktester/internal/ports"
)

// Indicator represents a technical indicator that can be calculated from price data
type Indicator interface {
	// Calculate computes the latest indicator value for the given price data
	Calculate(ctx context.Context, klines []*domain.Kline) (float64, error)

	// RequiredDataPoints returns the minimum number of klines needed for calculation
	RequiredDataPoints() int

	// Name returns the name of the indicator
	Name() string
}

// IndicatorConfig holds common configuration for indicators
type IndicatorConfig struct {
	Period int
}

// BaseIndicator provides common functionality for indicators
type BaseIndicator struct {
	Config IndicatorConfig
}

// RequiredDataPoints returns the minimum number of klines needed for calculation
func (b *BaseIndicator) RequiredDataPoints() int {
	return b.Config.Period
}

// Closes extracts close prices from klines.
func Closes(klines []*domain.Kline) []float64 {
	out := make([]float64, len(klines))
	for i, k := range klines {
		out[i] = k.Close
	}
	return out
}

// Last returns the final element of a series.
func Last(series []float64) float64 {
	if len(series) == 0 {
		return 0
	}
	return series[len(series)-1]
}

func checkInput(name string, n, period, need int) error {
	if period <= 0 {
		return fmt.Errorf("%s period %d: %w", name, period, ports.ErrInvalidParameterSet)
	}
	if n < need {
		return fmt.Errorf("%s(%d) needs %d values, got %d: %w", name, period, need, n, ports.ErrInsufficientData)
	}
	return nil
}
