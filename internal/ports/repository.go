package ports

import (
	"context"
	"time"

	"cryptoBacktester/internal/domain"
)

// KlineRepository stores historical candles used as backtest input.
type KlineRepository interface {
	// SaveKlines upserts klines keyed by symbol, interval and open time.
	SaveKlines(ctx context.Context, klines []*domain.Kline) error
	// FindKlines returns klines in [start, end] ordered by open time.
	// A zero start or end leaves that side of the range open.
	FindKlines(ctx context.Context, symbol, interval string, start, end time.Time) ([]*domain.Kline, error)
	// CountKlines returns the number of stored klines for symbol and interval.
	CountKlines(ctx context.Context, symbol, interval string) (int, error)
}
