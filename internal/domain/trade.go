package domain

import "time"

// Trade represents a closed position.
type Trade struct {
	ID              int64
	Symbol          string
	Side            PositionSide
	EntryPrice      float64
	ExitPrice       float64
	Quantity        float64
	GrossPNL        float64 // Price move times quantity, before costs
	Commission      float64
	Slippage        float64 // Cost of adverse fills on entry and exit
	PNL             float64 // Net: GrossPNL - Commission - Slippage
	EntryTime       time.Time
	ExitTime        time.Time
	CloseReason     CloseReason
	EntryConfidence float64
}

// Duration returns how long the trade was held.
func (t *Trade) Duration() time.Duration {
	return t.ExitTime.Sub(t.EntryTime)
}

// EquityPoint is the account balance after one processed candle.
type EquityPoint struct {
	Time     time.Time
	Balance  float64
	Drawdown float64 // Fraction of the balance watermark, >= 0
}
