package strategies

import (
	"fmt"
	"math"
	"strings"

	"cryptoBacktester/internal/ports"
)

// Parameters holds the tunable knobs for every strategy type. Unused fields
// are ignored by the selected type.
type Parameters struct {
	FastPeriod int
	SlowPeriod int

	RSIPeriod     int
	RSIOverbought float64
	RSIOversold   float64

	MACDFast   int
	MACDSlow   int
	MACDSignal int

	BollingerPeriod     int
	BollingerMultiplier float64

	// Composite voting
	UseMA           bool
	UseRSI          bool
	UseMACD         bool
	UseBollinger    bool
	MAWeight        float64
	RSIWeight       float64
	MACDWeight      float64
	BollingerWeight float64
}

// DefaultParameters returns commonly used indicator settings.
func DefaultParameters() Parameters {
	return Parameters{
		FastPeriod:          10,
		SlowPeriod:          30,
		RSIPeriod:           14,
		RSIOverbought:       70,
		RSIOversold:         30,
		MACDFast:            12,
		MACDSlow:            26,
		MACDSignal:          9,
		BollingerPeriod:     20,
		BollingerMultiplier: 2,
		UseMA:               true,
		UseRSI:              true,
		UseMACD:             true,
		UseBollinger:        true,
		MAWeight:            0.3,
		RSIWeight:           0.25,
		MACDWeight:          0.25,
		BollingerWeight:     0.2,
	}
}

// ParameterNames lists the names accepted by Set.
var ParameterNames = []string{
	"fast_period", "slow_period",
	"rsi_period", "rsi_overbought", "rsi_oversold",
	"macd_fast", "macd_slow", "macd_signal",
	"bb_period", "bb_multiplier",
	"ma_weight", "rsi_weight", "macd_weight", "bb_weight",
	"use_ma", "use_rsi", "use_macd", "use_bb",
}

// Set assigns a parameter by name. Integer parameters are rounded; boolean
// parameters are true for any non-zero value.
func (p *Parameters) Set(name string, value float64) error {
	i := int(math.Round(value))
	on := value != 0
	switch strings.ToLower(name) {
	case "fast_period":
		p.FastPeriod = i
	case "slow_period":
		p.SlowPeriod = i
	case "rsi_period":
		p.RSIPeriod = i
	case "rsi_overbought":
		p.RSIOverbought = value
	case "rsi_oversold":
		p.RSIOversold = value
	case "macd_fast":
		p.MACDFast = i
	case "macd_slow":
		p.MACDSlow = i
	case "macd_signal":
		p.MACDSignal = i
	case "bb_period":
		p.BollingerPeriod = i
	case "bb_multiplier":
		p.BollingerMultiplier = value
	case "ma_weight":
		p.MAWeight = value
	case "rsi_weight":
		p.RSIWeight = value
	case "macd_weight":
		p.MACDWeight = value
	case "bb_weight":
		p.BollingerWeight = value
	case "use_ma":
		p.UseMA = on
	case "use_rsi":
		p.UseRSI = on
	case "use_macd":
		p.UseMACD = on
	case "use_bb":
		p.UseBollinger = on
	default:
		return fmt.Errorf("unknown parameter %q: %w", name, ports.ErrInvalidParameterSet)
	}
	return nil
}

// Apply returns a copy of p with every value in values assigned.
func (p Parameters) Apply(values map[string]float64) (Parameters, error) {
	for name, v := range values {
		if err := p.Set(name, v); err != nil {
			return p, err
		}
	}
	return p, nil
}

// WeightSum returns the sum of weights of enabled composite indicators.
func (p Parameters) WeightSum() float64 {
	sum := 0.0
	if p.UseMA {
		sum += p.MAWeight
	}
	if p.UseRSI {
		sum += p.RSIWeight
	}
	if p.UseMACD {
		sum += p.MACDWeight
	}
	if p.UseBollinger {
		sum += p.BollingerWeight
	}
	return sum
}

// weightTolerance absorbs float rounding in grid-generated weights.
const weightTolerance = 1e-9

// Validate checks the parameters needed by typ.
func (p Parameters) Validate(typ Type) error {
	if _, err := ParseType(string(typ)); err != nil {
		return err
	}
	var errs []string
	needMA := typ == TypeMACrossover || typ == TypeEMACrossover || (typ == TypeComposite && p.UseMA)
	needRSI := typ == TypeRSI || (typ == TypeComposite && p.UseRSI)
	needMACD := typ == TypeMACD || (typ == TypeComposite && p.UseMACD)
	needBB := typ == TypeBollinger || (typ == TypeComposite && p.UseBollinger)

	if needMA {
		if p.FastPeriod <= 0 || p.SlowPeriod <= 0 {
			errs = append(errs, "moving average periods must be positive")
		} else if p.FastPeriod >= p.SlowPeriod {
			errs = append(errs, "fast period must be less than slow period")
		}
	}
	if needRSI {
		if p.RSIPeriod <= 0 {
			errs = append(errs, "RSI period must be positive")
		}
		if p.RSIOversold <= 0 || p.RSIOverbought >= 100 || p.RSIOversold >= p.RSIOverbought {
			errs = append(errs, "RSI thresholds must satisfy 0 < oversold < overbought < 100")
		}
	}
	if needMACD {
		if p.MACDFast <= 0 || p.MACDSlow <= 0 || p.MACDSignal <= 0 {
			errs = append(errs, "MACD periods must be positive")
		} else if p.MACDFast >= p.MACDSlow {
			errs = append(errs, "MACD fast period must be less than slow period")
		}
	}
	if needBB {
		if p.BollingerPeriod <= 1 {
			errs = append(errs, "Bollinger period must be greater than 1")
		}
		if p.BollingerMultiplier <= 0 {
			errs = append(errs, "Bollinger multiplier must be positive")
		}
	}
	if typ == TypeComposite {
		if !p.UseMA && !p.UseRSI && !p.UseMACD && !p.UseBollinger {
			errs = append(errs, "composite strategy needs at least one indicator")
		}
		for _, w := range []float64{p.MAWeight, p.RSIWeight, p.MACDWeight, p.BollingerWeight} {
			if w < 0 {
				errs = append(errs, "weights must not be negative")
				break
			}
		}
		if s := p.WeightSum(); s > 1+weightTolerance {
			errs = append(errs, fmt.Sprintf("enabled weights sum to %.4f, must be <= 1", s))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s: %s: %w", typ, strings.Join(errs, "; "), ports.ErrInvalidParameterSet)
	}
	return nil
}
