package strategies

import (
	"fmt"

	"cryptoBacktester/internal/domain"
	"cryptoBacktester/internal/strategy/indicators"
)

func sign(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

func relative(diff, base float64) float64 {
	if base == 0 {
		return diff
	}
	return diff / base
}

func movingAverage(typ indicators.MovingAverageType, period int) *indicators.MovingAverage {
	return indicators.NewMovingAverage(indicators.MovingAverageConfig{
		IndicatorConfig: indicators.IndicatorConfig{Period: period},
		Type:            typ,
	})
}

func rsiIndicator(p Parameters) *indicators.RSIIndicator {
	return indicators.NewRSI(indicators.RSIConfig{
		IndicatorConfig: indicators.IndicatorConfig{Period: p.RSIPeriod},
		Overbought:      p.RSIOverbought,
		Oversold:        p.RSIOversold,
	})
}

// crossoverSignal fires when the fast/slow ordering inverts on the last step.
// When the slow series has a single value the prior ordering counts as
// neutral, so a trend already under way when the slow average first exists
// signals on that kline. A later inversion signals again.
func crossoverSignal(closes []float64, fast, slow int, typ indicators.MovingAverageType) (domain.Signal, error) {
	fastSeries, err := movingAverage(typ, fast).Series(closes)
	if err != nil {
		return domain.Signal{}, fmt.Errorf("fast average: %w", err)
	}
	slowSeries, err := movingAverage(typ, slow).Series(closes)
	if err != nil {
		return domain.Signal{}, fmt.Errorf("slow average: %w", err)
	}

	f1, s1 := indicators.Last(fastSeries), indicators.Last(slowSeries)
	prev := 0
	if len(slowSeries) >= 2 {
		prev = sign(fastSeries[len(fastSeries)-2] - slowSeries[len(slowSeries)-2])
	}
	cur := sign(f1 - s1)
	conf := scaledConfidence(relative(f1-s1, s1))

	switch {
	case cur > 0 && prev <= 0:
		return domain.Signal{Type: domain.SignalBuy, Reason: "fast average crossed above slow", Confidence: conf}, nil
	case cur < 0 && prev >= 0:
		return domain.Signal{Type: domain.SignalSell, Reason: "fast average crossed below slow", Confidence: conf}, nil
	default:
		return domain.Hold("no crossover"), nil
	}
}

// rsiSignal fires when RSI leaves an extreme zone back through its threshold.
func rsiSignal(closes []float64, p Parameters) (domain.Signal, error) {
	ind := rsiIndicator(p)
	rsi, err := ind.Series(closes)
	if err != nil {
		return domain.Signal{}, err
	}
	if len(rsi) < 2 {
		return domain.Hold("insufficient RSI history"), nil
	}
	r0, r1 := rsi[len(rsi)-2], rsi[len(rsi)-1]

	switch {
	case ind.IsOversold(r0) && !ind.IsOversold(r1):
		return domain.Signal{
			Type:       domain.SignalBuy,
			Reason:     fmt.Sprintf("RSI crossed up through %.0f", p.RSIOversold),
			Confidence: scaledConfidence((p.RSIOversold - r0) / 100),
		}, nil
	case ind.IsOverbought(r0) && !ind.IsOverbought(r1):
		return domain.Signal{
			Type:       domain.SignalSell,
			Reason:     fmt.Sprintf("RSI crossed down through %.0f", p.RSIOverbought),
			Confidence: scaledConfidence((r0 - p.RSIOverbought) / 100),
		}, nil
	default:
		return domain.Hold("RSI inside thresholds"), nil
	}
}

// macdSignal fires on a histogram sign flip.
func macdSignal(closes []float64, p Parameters) (domain.Signal, error) {
	res, err := indicators.MACD(closes, p.MACDFast, p.MACDSlow, p.MACDSignal)
	if err != nil {
		return domain.Signal{}, err
	}
	hist := indicators.Last(res.Histogram)
	conf := scaledConfidence(relative(hist, indicators.Last(closes)))

	switch indicators.MACDCrossover(res.Histogram) {
	case 1:
		return domain.Signal{Type: domain.SignalBuy, Reason: "MACD crossed above signal", Confidence: conf}, nil
	case -1:
		return domain.Signal{Type: domain.SignalSell, Reason: "MACD crossed below signal", Confidence: conf}, nil
	default:
		return domain.Hold("no MACD crossover"), nil
	}
}

// bollingerSignal fires when the close breaks out of a band on the last step.
// Breaking below the lower band is read as oversold (BUY), above the upper as SELL.
func bollingerSignal(closes []float64, p Parameters) (domain.Signal, error) {
	bb, err := indicators.Bollinger(closes, p.BollingerPeriod, p.BollingerMultiplier)
	if err != nil {
		return domain.Signal{}, err
	}
	n := len(bb.Middle)
	if n < 2 {
		return domain.Hold("insufficient band history"), nil
	}
	prevClose, cur := closes[len(closes)-2], closes[len(closes)-1]
	middle := bb.Middle[n-1]

	switch {
	case prevClose >= bb.Lower[n-2] && cur < bb.Lower[n-1]:
		return domain.Signal{
			Type:       domain.SignalBuy,
			Reason:     "close broke below lower band",
			Confidence: scaledConfidence(relative(bb.Lower[n-1]-cur, middle)),
		}, nil
	case prevClose <= bb.Upper[n-2] && cur > bb.Upper[n-1]:
		return domain.Signal{
			Type:       domain.SignalSell,
			Reason:     "close broke above upper band",
			Confidence: scaledConfidence(relative(cur-bb.Upper[n-1], middle)),
		}, nil
	default:
		return domain.Hold("close inside bands"), nil
	}
}
