package indicators

import (
	"context"
	"fmt"

	"cryptoBacktester/internal/domain"
)

// MovingAverageType defines the type of moving average
type MovingAverageType string

const (
	SimpleMovingAverage      MovingAverageType = "SMA"
	ExponentialMovingAverage MovingAverageType = "EMA"
)

// SMA returns the simple moving average series, len(values)-period+1 long.
func SMA(values []float64, period int) ([]float64, error) {
	if err := checkInput("SMA", len(values), period, period); err != nil {
		return nil, err
	}
	out := make([]float64, len(values)-period+1)
	sum := 0.0
	for i := 0; i < period; i++ {
		sum += values[i]
	}
	out[0] = sum / float64(period)
	for i := period; i < len(values); i++ {
		sum += values[i] - values[i-period]
		out[i-period+1] = sum / float64(period)
	}
	return out, nil
}

// EMA returns the exponential moving average series, len(values)-period+1 long.
// The first value is the SMA of the first period values; later values use
// smoothing 2/(period+1).
func EMA(values []float64, period int) ([]float64, error) {
	if err := checkInput("EMA", len(values), period, period); err != nil {
		return nil, err
	}
	out := make([]float64, len(values)-period+1)
	seed := 0.0
	for i := 0; i < period; i++ {
		seed += values[i]
	}
	ema := seed / float64(period)
	out[0] = ema

	multiplier := 2.0 / float64(period+1)
	for i := period; i < len(values); i++ {
		ema = (values[i]-ema)*multiplier + ema
		out[i-period+1] = ema
	}
	return out, nil
}

// MovingAverageConfig holds configuration for moving average indicators
type MovingAverageConfig struct {
	IndicatorConfig
	Type MovingAverageType
}

// MovingAverage implements both SMA and EMA indicators over kline closes.
type MovingAverage struct {
	BaseIndicator
	config MovingAverageConfig
}

// NewMovingAverage creates a new moving average indicator instance
func NewMovingAverage(config MovingAverageConfig) *MovingAverage {
	return &MovingAverage{
		BaseIndicator: BaseIndicator{Config: config.IndicatorConfig},
		config:        config,
	}
}

// Name returns the name of the indicator
func (m *MovingAverage) Name() string {
	return string(m.config.Type)
}

// Series computes the full moving average series for closes.
func (m *MovingAverage) Series(closes []float64) ([]float64, error) {
	switch m.config.Type {
	case SimpleMovingAverage:
		return SMA(closes, m.Config.Period)
	case ExponentialMovingAverage:
		return EMA(closes, m.Config.Period)
	default:
		return nil, fmt.Errorf("unsupported moving average type: %s", m.config.Type)
	}
}

// Calculate returns the latest moving average value.
func (m *MovingAverage) Calculate(_ context.Context, klines []*domain.Kline) (float64, error) {
	series, err := m.Series(Closes(klines))
	if err != nil {
		return 0, err
	}
	return Last(series), nil
}
