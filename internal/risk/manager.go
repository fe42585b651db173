package risk

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"cryptoBacktester/internal/domain"
	"cryptoBacktester/internal/ports"
	"cryptoBacktester/internal/strategy/indicators"
)

// Config holds stop placement and position sizing settings.
type Config struct {
	StopLossPercent   float64 // e.g. 0.02 for 2%; 0 disables
	TakeProfitPercent float64 // e.g. 0.04 for 4%; 0 disables

	UseATRStops             bool
	ATRPeriod               int
	ATRStopMultiplier       float64
	ATRTakeProfitMultiplier float64

	RiskPerTrade       float64 // Fraction of balance lost if the stop is hit; 0 sizes by MaxPositionPercent only
	MaxPositionPercent float64 // Max notional as a fraction of balance, before leverage
	Leverage           float64
	MaxPositionSize    float64 // Absolute quantity cap; 0 means none
	QuantityStep       float64 // Lot size; quantities are rounded down to it. 0 disables rounding
}

// DefaultConfig returns percentage stops with full-balance sizing.
func DefaultConfig() Config {
	return Config{
		StopLossPercent:         0.02,
		TakeProfitPercent:       0.04,
		ATRPeriod:               14,
		ATRStopMultiplier:       2,
		ATRTakeProfitMultiplier: 3,
		MaxPositionPercent:      1,
		Leverage:                1,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	var errs []string
	if c.StopLossPercent < 0 || c.StopLossPercent >= 1 {
		errs = append(errs, "stop loss percent must be in [0, 1)")
	}
	if c.TakeProfitPercent < 0 {
		errs = append(errs, "take profit percent must not be negative")
	}
	if c.UseATRStops && (c.ATRPeriod <= 0 || c.ATRStopMultiplier <= 0) {
		errs = append(errs, "ATR stops need a positive period and stop multiplier")
	}
	if c.RiskPerTrade < 0 || c.RiskPerTrade > 1 {
		errs = append(errs, "risk per trade must be in [0, 1]")
	}
	if c.MaxPositionPercent <= 0 {
		errs = append(errs, "max position percent must be positive")
	}
	if c.Leverage < 1 {
		errs = append(errs, "leverage must be at least 1")
	}
	if c.MaxPositionSize < 0 || c.QuantityStep < 0 {
		errs = append(errs, "position size cap and quantity step must not be negative")
	}
	if len(errs) > 0 {
		return fmt.Errorf("risk config: %s: %w", strings.Join(errs, "; "), ports.ErrInvalidConfig)
	}
	return nil
}

// Manager places stops and sizes positions. It implements ports.PositionSizer
// and holds no mutable state, so one Manager can serve concurrent backtests.
type Manager struct {
	config Config
	atr    *indicators.ATRIndicator
}

// NewManager creates a Manager after validating config.
func NewManager(config Config) (*Manager, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	m := &Manager{config: config}
	if config.UseATRStops {
		m.atr = indicators.NewATR(indicators.ATRConfig{IndicatorConfig: indicators.IndicatorConfig{Period: config.ATRPeriod}})
	}
	return m, nil
}

// StopLevels returns stop-loss and take-profit prices for an entry. ATR-based
// levels fall back to percentages while the ATR is unavailable.
func (m *Manager) StopLevels(history []*domain.Kline, entryPrice float64, side domain.PositionSide) domain.StopLevels {
	dir := side.Direction()
	var levels domain.StopLevels

	if m.atr != nil {
		atr, err := m.atr.Calculate(context.Background(), history)
		if err == nil && atr > 0 {
			levels.StopLoss = entryPrice - dir*atr*m.config.ATRStopMultiplier
			if m.config.ATRTakeProfitMultiplier > 0 {
				levels.TakeProfit = entryPrice + dir*atr*m.config.ATRTakeProfitMultiplier
			}
			return sanitize(levels)
		}
	}

	if m.config.StopLossPercent > 0 {
		levels.StopLoss = entryPrice * (1 - dir*m.config.StopLossPercent)
	}
	if m.config.TakeProfitPercent > 0 {
		levels.TakeProfit = entryPrice * (1 + dir*m.config.TakeProfitPercent)
	}
	return sanitize(levels)
}

// sanitize drops levels that are not valid prices.
func sanitize(l domain.StopLevels) domain.StopLevels {
	if l.StopLoss <= 0 {
		l.StopLoss = 0
	}
	if l.TakeProfit <= 0 {
		l.TakeProfit = 0
	}
	return l
}

// PositionSize returns the quantity for a new position. With RiskPerTrade set
// the stop distance determines size; the notional cap always applies.
func (m *Manager) PositionSize(balance, entryPrice, stopLoss float64, _ []*domain.Kline) float64 {
	if balance <= 0 || entryPrice <= 0 {
		return 0
	}
	qty := balance * m.config.MaxPositionPercent * m.config.Leverage / entryPrice

	if m.config.RiskPerTrade > 0 && stopLoss > 0 {
		if dist := math.Abs(entryPrice - stopLoss); dist > 0 {
			qty = math.Min(qty, balance*m.config.RiskPerTrade/dist)
		}
	}
	if m.config.MaxPositionSize > 0 {
		qty = math.Min(qty, m.config.MaxPositionSize)
	}
	return m.roundQuantity(qty)
}

// roundQuantity rounds down to the configured lot size using decimal
// arithmetic so that e.g. 0.3/0.1 does not floor to 2.
func (m *Manager) roundQuantity(qty float64) float64 {
	if m.config.QuantityStep <= 0 || qty <= 0 {
		return math.Max(qty, 0)
	}
	step := decimal.NewFromFloat(m.config.QuantityStep)
	return decimal.NewFromFloat(qty).Div(step).Floor().Mul(step).InexactFloat64()
}
