package strategies

import (
	"context"
	"fmt"

	"cryptoBacktester/internal/domain"
	"cryptoBacktester/internal/ports"
	"cryptoBacktester/internal/strategy/indicators"
)

// Type selects the signal rule used by an Executor.
type Type string

const (
	TypeMACrossover  Type = "ma_crossover"
	TypeEMACrossover Type = "ema_crossover"
	TypeRSI          Type = "rsi"
	TypeMACD         Type = "macd"
	TypeBollinger    Type = "bollinger"
	TypeComposite    Type = "composite"
)

// Types lists all supported strategy types.
func Types() []Type {
	return []Type{TypeMACrossover, TypeEMACrossover, TypeRSI, TypeMACD, TypeBollinger, TypeComposite}
}

// ParseType converts a name into a Type.
func ParseType(name string) (Type, error) {
	for _, t := range Types() {
		if string(t) == name {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown strategy type %q: %w", name, ports.ErrInvalidParameterSet)
}

// maxConfidence caps every signal's confidence.
const maxConfidence = 0.9

// confidenceScale maps a relative distance to confidence above the 0.5 base.
const confidenceScale = 10.0

// scaledConfidence is a bounded, monotone function of a normalised distance.
func scaledConfidence(distance float64) float64 {
	if distance < 0 {
		distance = -distance
	}
	c := 0.5 + confidenceScale*distance
	if c > maxConfidence {
		return maxConfidence
	}
	return c
}

// Executor turns candle history into signals for one strategy type.
// It is stateless between calls and safe for concurrent use.
type Executor struct {
	typ    Type
	params Parameters
	logger ports.Logger
}

// New validates params for typ and returns an Executor.
func New(typ Type, params Parameters, logger ports.Logger) (*Executor, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required for strategy")
	}
	if err := params.Validate(typ); err != nil {
		return nil, err
	}
	return &Executor{typ: typ, params: params, logger: logger}, nil
}

// Name returns the strategy type name.
func (e *Executor) Name() string {
	return string(e.typ)
}

// Parameters returns a copy of the executor's parameters.
func (e *Executor) Parameters() Parameters {
	return e.params
}

// Lookback returns the number of klines required before the first signal.
func (e *Executor) Lookback() int {
	p := e.params
	switch e.typ {
	case TypeMACrossover, TypeEMACrossover:
		return p.SlowPeriod
	case TypeRSI:
		return p.RSIPeriod + 2
	case TypeMACD:
		return indicators.MACDLookback(p.MACDFast, p.MACDSlow, p.MACDSignal) + 1
	case TypeBollinger:
		return p.BollingerPeriod + 1
	case TypeComposite:
		n := 0
		if p.UseMA {
			n = max(n, p.SlowPeriod)
		}
		if p.UseRSI {
			n = max(n, p.RSIPeriod+1)
		}
		if p.UseMACD {
			n = max(n, indicators.MACDLookback(p.MACDFast, p.MACDSlow, p.MACDSignal))
		}
		if p.UseBollinger {
			n = max(n, p.BollingerPeriod)
		}
		return n
	default:
		return 0
	}
}

// Evaluate returns the signal for the last kline of history. Indicator
// failures never escape: they produce HOLD with zero confidence.
func (e *Executor) Evaluate(ctx context.Context, history []*domain.Kline) domain.Signal {
	if len(history) < e.Lookback() {
		return domain.Hold("insufficient history")
	}
	closes := indicators.Closes(history)

	var (
		sig domain.Signal
		err error
	)
	switch e.typ {
	case TypeMACrossover:
		sig, err = crossoverSignal(closes, e.params.FastPeriod, e.params.SlowPeriod, indicators.SimpleMovingAverage)
	case TypeEMACrossover:
		sig, err = crossoverSignal(closes, e.params.FastPeriod, e.params.SlowPeriod, indicators.ExponentialMovingAverage)
	case TypeRSI:
		sig, err = rsiSignal(closes, e.params)
	case TypeMACD:
		sig, err = macdSignal(closes, e.params)
	case TypeBollinger:
		sig, err = bollingerSignal(closes, e.params)
	case TypeComposite:
		sig, err = compositeSignal(closes, e.params)
	default:
		err = fmt.Errorf("unsupported strategy type %q", e.typ)
	}
	if err != nil {
		e.logger.Debug(ctx, "Strategy evaluation produced no signal", map[string]interface{}{
			"strategy": e.typ,
			"error":    err.Error(),
		})
		return domain.Hold("indicator unavailable")
	}
	return sig
}
