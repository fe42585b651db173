package indicators

import (
	"context"

	"cryptoBacktester/internal/domain"
)

// rsiEpsilon replaces a zero average loss so the ratio stays finite.
const rsiEpsilon = 1e-10

// RSI returns the Wilder-smoothed relative strength index series.
// The first value needs period price changes, so the result is
// len(values)-period long. A series with neither gains nor losses reads 50.
func RSI(values []float64, period int) ([]float64, error) {
	if err := checkInput("RSI", len(values), period, period+1); err != nil {
		return nil, err
	}

	p := float64(period)
	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		change := values[i] - values[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= p
	avgLoss /= p

	out := make([]float64, 0, len(values)-period)
	out = append(out, rsiValue(avgGain, avgLoss))
	for i := period + 1; i < len(values); i++ {
		change := values[i] - values[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*(p-1) + gain) / p
		avgLoss = (avgLoss*(p-1) + loss) / p
		out = append(out, rsiValue(avgGain, avgLoss))
	}
	return out, nil
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgGain == 0 && avgLoss == 0 {
		return 50
	}
	if avgLoss == 0 {
		avgLoss = rsiEpsilon
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// RSIConfig holds configuration for the RSI indicator
type RSIConfig struct {
	IndicatorConfig
	Overbought float64
	Oversold   float64
}

// RSIIndicator wraps RSI with overbought/oversold thresholds.
type RSIIndicator struct {
	BaseIndicator
	config RSIConfig
}

// NewRSI creates a new RSI indicator instance
func NewRSI(config RSIConfig) *RSIIndicator {
	return &RSIIndicator{
		BaseIndicator: BaseIndicator{Config: config.IndicatorConfig},
		config:        config,
	}
}

// Name returns the name of the indicator
func (r *RSIIndicator) Name() string {
	return "RSI"
}

// RequiredDataPoints returns period+1 since RSI works on price changes.
func (r *RSIIndicator) RequiredDataPoints() int {
	return r.Config.Period + 1
}

// Series computes the full RSI series for closes.
func (r *RSIIndicator) Series(closes []float64) ([]float64, error) {
	return RSI(closes, r.Config.Period)
}

// Calculate returns the latest RSI value.
func (r *RSIIndicator) Calculate(_ context.Context, klines []*domain.Kline) (float64, error) {
	series, err := r.Series(Closes(klines))
	if err != nil {
		return 0, err
	}
	return Last(series), nil
}

// IsOverbought checks if the RSI value indicates an overbought condition
func (r *RSIIndicator) IsOverbought(value float64) bool {
	return value >= r.config.Overbought
}

// IsOversold checks if the RSI value indicates an oversold condition
func (r *RSIIndicator) IsOversold(value float64) bool {
	return value <= r.config.Oversold
}
