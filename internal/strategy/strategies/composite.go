package strategies

import (
	"fmt"

	"cryptoBacktester/internal/domain"
	"cryptoBacktester/internal/strategy/indicators"
)

// opinion is one indicator's current stance: dir is +1 bullish, -1 bearish, 0 neutral.
type opinion struct {
	dir  int
	conf float64
}

func (o opinion) vote(weight float64) float64 {
	return weight * float64(o.dir) * o.conf
}

// compositeSignal combines the enabled indicators' stances in a weighted vote.
// Since enabled weights sum to at most 1, the vote never exceeds the confidence cap.
func compositeSignal(closes []float64, p Parameters) (domain.Signal, error) {
	last := indicators.Last(closes)
	net := 0.0

	if p.UseMA {
		fast, err := movingAverage(indicators.SimpleMovingAverage, p.FastPeriod).Series(closes)
		if err != nil {
			return domain.Signal{}, err
		}
		slow, err := movingAverage(indicators.SimpleMovingAverage, p.SlowPeriod).Series(closes)
		if err != nil {
			return domain.Signal{}, err
		}
		diff := indicators.Last(fast) - indicators.Last(slow)
		net += opinion{sign(diff), scaledConfidence(relative(diff, indicators.Last(slow)))}.vote(p.MAWeight)
	}

	if p.UseRSI {
		ind := rsiIndicator(p)
		rsi, err := ind.Series(closes)
		if err != nil {
			return domain.Signal{}, err
		}
		r := indicators.Last(rsi)
		switch {
		case ind.IsOversold(r):
			net += opinion{1, scaledConfidence((p.RSIOversold - r) / 100)}.vote(p.RSIWeight)
		case ind.IsOverbought(r):
			net += opinion{-1, scaledConfidence((r - p.RSIOverbought) / 100)}.vote(p.RSIWeight)
		}
	}

	if p.UseMACD {
		res, err := indicators.MACD(closes, p.MACDFast, p.MACDSlow, p.MACDSignal)
		if err != nil {
			return domain.Signal{}, err
		}
		hist := indicators.Last(res.Histogram)
		net += opinion{sign(hist), scaledConfidence(relative(hist, last))}.vote(p.MACDWeight)
	}

	if p.UseBollinger {
		bb, err := indicators.Bollinger(closes, p.BollingerPeriod, p.BollingerMultiplier)
		if err != nil {
			return domain.Signal{}, err
		}
		lower, upper, middle := indicators.Last(bb.Lower), indicators.Last(bb.Upper), indicators.Last(bb.Middle)
		switch {
		case last < lower:
			net += opinion{1, scaledConfidence(relative(lower-last, middle))}.vote(p.BollingerWeight)
		case last > upper:
			net += opinion{-1, scaledConfidence(relative(last-upper, middle))}.vote(p.BollingerWeight)
		}
	}

	reason := fmt.Sprintf("weighted vote %.3f", net)
	switch {
	case net > 0:
		return domain.Signal{Type: domain.SignalBuy, Reason: reason, Confidence: min(net, maxConfidence)}, nil
	case net < 0:
		return domain.Signal{Type: domain.SignalSell, Reason: reason, Confidence: min(-net, maxConfidence)}, nil
	default:
		return domain.Hold(reason), nil
	}
}
