package ports

import (
	"context"
	"time"

	"cryptoBacktester/internal/domain"
)

// KlineSource retrieves historical candles from an exchange.
type KlineSource interface {
	// Ping checks the connectivity to the exchange API.
	Ping(ctx context.Context) error

	// GetKlinesRange retrieves klines for [start, end], paging as needed.
	GetKlinesRange(ctx context.Context, symbol, interval string, start, end time.Time) ([]*domain.Kline, error)
}
