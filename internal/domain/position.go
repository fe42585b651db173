package domain

import "time"

// Position is the state of an open simulated position.
type Position struct {
	ID              int64
	Symbol          string
	Side            PositionSide
	EntryPrice      float64 // Slippage-adjusted fill price
	EntryTime       time.Time
	Quantity        float64
	StopLoss        float64 // 0 if unset
	TakeProfit      float64 // 0 if unset
	EntryConfidence float64
	EntrySlippage   float64 // Slippage cost paid on entry

	// Trailing stop state
	TrailingDistance float64 // Price units; 0 disables trailing
	BestProfit       float64 // Highest unrealized profit per unit seen so far
}

// UnitProfit returns the per-unit profit of the position at price.
func (p *Position) UnitProfit(price float64) float64 {
	return (price - p.EntryPrice) * p.Side.Direction()
}

// TrailingStopPrice returns the active trailing level and whether trailing is armed.
func (p *Position) TrailingStopPrice() (float64, bool) {
	if p.TrailingDistance <= 0 || p.BestProfit <= 0 {
		return 0, false
	}
	return p.EntryPrice + p.Side.Direction()*(p.BestProfit-p.TrailingDistance), true
}

// UpdateBestProfit records the most favourable excursion of the candle.
func (p *Position) UpdateBestProfit(k *Kline) {
	extreme := k.High
	if p.Side == SideShort {
		extreme = k.Low
	}
	if profit := p.UnitProfit(extreme); profit > p.BestProfit {
		p.BestProfit = profit
	}
}
