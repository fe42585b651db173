package risk

import (
	"errors"
	"testing"

	"cryptoBacktester/internal/domain"
	"cryptoBacktester/internal/ports"
	"cryptoBacktester/internal/testutil"
)

func TestNewManager_Validation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Leverage = 0
	if _, err := NewManager(cfg); !errors.Is(err, ports.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}

	cfg = DefaultConfig()
	cfg.UseATRStops = true
	cfg.ATRPeriod = 0
	if _, err := NewManager(cfg); err == nil {
		t.Error("expected error for ATR stops without period")
	}
}

func TestStopLevels_Percent(t *testing.T) {
	manager, err := NewManager(DefaultConfig())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	long := manager.StopLevels(nil, 100, domain.SideLong)
	if long.StopLoss != 98 || long.TakeProfit != 104 {
		t.Errorf("long levels = %+v, want SL 98 TP 104", long)
	}
	short := manager.StopLevels(nil, 100, domain.SideShort)
	if short.StopLoss != 102 || short.TakeProfit != 96 {
		t.Errorf("short levels = %+v, want SL 102 TP 96", short)
	}

	cfg := DefaultConfig()
	cfg.StopLossPercent, cfg.TakeProfitPercent = 0, 0
	manager, _ = NewManager(cfg)
	if l := manager.StopLevels(nil, 100, domain.SideLong); l.StopLoss != 0 || l.TakeProfit != 0 {
		t.Errorf("disabled levels = %+v, want zero", l)
	}
}

func TestStopLevels_ATRWithFallback(t *testing.T) {
	cfg := DefaultConfig()
	cfg.UseATRStops = true
	cfg.ATRPeriod = 2
	cfg.ATRStopMultiplier = 2
	cfg.ATRTakeProfitMultiplier = 3
	manager, err := NewManager(cfg)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	// Each candle spans 2 around a flat close, so ATR is 2.
	history := testutil.Flat(5, 100)
	for _, k := range history {
		k.High, k.Low = 101, 99
	}
	l := manager.StopLevels(history, 100, domain.SideLong)
	if l.StopLoss != 96 || l.TakeProfit != 106 {
		t.Errorf("ATR levels = %+v, want SL 96 TP 106", l)
	}

	// Too little history for ATR: percentage fallback.
	l = manager.StopLevels(history[:2], 100, domain.SideLong)
	if l.StopLoss != 98 || l.TakeProfit != 104 {
		t.Errorf("fallback levels = %+v, want SL 98 TP 104", l)
	}
}

func TestPositionSize(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*Config)
		balance  float64
		entry    float64
		stop     float64
		expected float64
	}{
		{"full balance", func(*Config) {}, 1000, 100, 98, 10},
		{"half balance with leverage", func(c *Config) { c.MaxPositionPercent = 0.5; c.Leverage = 3 }, 1000, 100, 98, 15},
		{"risk based", func(c *Config) { c.RiskPerTrade = 0.01 }, 1000, 100, 98, 5},
		{"risk capped by notional", func(c *Config) { c.RiskPerTrade = 0.5 }, 1000, 100, 98, 10},
		{"absolute cap", func(c *Config) { c.MaxPositionSize = 2 }, 1000, 100, 98, 2},
		{"rounded down to step", func(c *Config) { c.QuantityStep = 0.1 }, 1000, 300, 0, 3.3},
		{"exact multiple survives rounding", func(c *Config) { c.QuantityStep = 0.1 }, 0.3, 1, 0, 0.3},
		{"no balance", func(*Config) {}, 0, 100, 98, 0},
		{"step larger than size", func(c *Config) { c.QuantityStep = 1 }, 50, 100, 98, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			manager, err := NewManager(cfg)
			if err != nil {
				t.Fatalf("NewManager: %v", err)
			}
			got := manager.PositionSize(tt.balance, tt.entry, tt.stop, nil)
			if diff := got - tt.expected; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("PositionSize = %f, want %f", got, tt.expected)
			}
		})
	}
}
