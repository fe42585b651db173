package ports

import (
	"context"

	"cryptoBacktester/internal/domain"
)

// SignalSource evaluates candle history into a trading signal.
type SignalSource interface {
	// Name identifies the strategy in logs and reports.
	Name() string
	// Lookback returns the minimum number of klines needed before a signal can be produced.
	Lookback() int
	// Evaluate returns the signal for the last kline of history. It must not fail;
	// insufficient history yields a HOLD signal with zero confidence.
	Evaluate(ctx context.Context, history []*domain.Kline) domain.Signal
}

// PositionSizer supplies protective levels and size for a new position.
type PositionSizer interface {
	// StopLevels returns stop-loss and take-profit levels for an entry.
	StopLevels(history []*domain.Kline, entryPrice float64, side domain.PositionSide) domain.StopLevels
	// PositionSize returns the quantity to open. Zero means skip the entry.
	PositionSize(balance, entryPrice, stopLoss float64, history []*domain.Kline) float64
}
