// Package testutil builds deterministic kline series for tests.
package testutil

import (
	"math"
	"math/rand/v2"
	"time"

	"cryptoBacktester/internal/domain"
)

// Start is the OpenTime of the first generated kline.
var Start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// FromCloses builds hourly klines whose open, high and low equal the close.
func FromCloses(closes []float64) []*domain.Kline {
	out := make([]*domain.Kline, len(closes))
	for i, c := range closes {
		open := time.Duration(i) * time.Hour
		out[i] = &domain.Kline{
			OpenTime:  Start.Add(open),
			CloseTime: Start.Add(open + time.Hour - time.Millisecond),
			Symbol:    "BTCUSDT",
			Interval:  "1h",
			Open:      c,
			High:      c,
			Low:       c,
			Close:     c,
			Volume:    1,
		}
	}
	return out
}

// Flat returns n klines at a constant price.
func Flat(n int, price float64) []*domain.Kline {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = price
	}
	return FromCloses(closes)
}

// Geometric returns n klines whose close grows by rate per candle from start.
func Geometric(n int, start, rate float64) []*domain.Kline {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = start * math.Pow(1+rate, float64(i))
	}
	return FromCloses(closes)
}

// Sine returns n klines oscillating around base with the given amplitude and period.
func Sine(n int, base, amplitude float64, period int) []*domain.Kline {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = base + amplitude*math.Sin(2*math.Pi*float64(i)/float64(period))
	}
	return FromCloses(closes)
}

// RandomWalk returns n klines following a seeded Gaussian walk with intrabar ranges.
func RandomWalk(n int, seed uint64) []*domain.Kline {
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	closes := make([]float64, n)
	price := 100.0
	for i := range closes {
		price = math.Max(1, price*(1+0.01*r.NormFloat64()))
		closes[i] = price
	}
	out := FromCloses(closes)
	for i, k := range out {
		if i > 0 {
			k.Open = out[i-1].Close
		}
		spread := k.Close * 0.004 * r.Float64()
		k.High = math.Max(k.Open, k.Close) + spread
		k.Low = math.Min(k.Open, k.Close) - spread
	}
	return out
}
