package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"cryptoBacktester/internal/adapters/logger"
	"cryptoBacktester/internal/ports"
	"cryptoBacktester/internal/strategy/optimization"
	"cryptoBacktester/internal/strategy/strategies"
	"cryptoBacktester/internal/strategy/walkforward"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "BTCUSDT", cfg.Symbol)
	assert.Equal(t, "1h", cfg.Interval)
	assert.Equal(t, strategies.TypeComposite, cfg.StrategyType)
	assert.Equal(t, strategies.DefaultParameters(), cfg.Strategy)
	assert.Equal(t, optimization.ObjectiveSharpe, cfg.OptimizationObjective)
	assert.Equal(t, 10, cfg.OptimizationMinTrades)
	assert.Equal(t, walkforward.DefaultConfig(), cfg.WalkForward)
	assert.Equal(t, 1000, cfg.MonteCarloIterations)
	assert.Equal(t, logger.LevelInfo, cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.True(t, cfg.DataStart.IsZero())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("SYMBOL", "ETHUSDT")
	t.Setenv("INITIAL_BALANCE", "2500")
	t.Setenv("COMMISSION_RATE", "0.001")
	t.Setenv("ALLOW_SHORT", "false")
	t.Setenv("STOP_LOSS", "0.01")
	t.Setenv("LEVERAGE", "3")
	t.Setenv("STRATEGY_TYPE", "ema_crossover")
	t.Setenv("STRATEGY_FAST_PERIOD", "5")
	t.Setenv("STRATEGY_SLOW_PERIOD", "21")
	t.Setenv("OPTIMIZATION_OBJECTIVE", "net_profit")
	t.Setenv("WORKERS", "4")
	t.Setenv("WALK_FORWARD_ENABLED", "true")
	t.Setenv("WF_MODE", "percentage")
	t.Setenv("WF_FOLDS", "3")
	t.Setenv("MONTE_CARLO_SEED", "42")
	t.Setenv("DATA_START", "2024-01-01")
	t.Setenv("DATA_END", "2024-02-01T12:00:00Z")
	t.Setenv("LOG_FORMAT", "JSON")

	cfg, err := Load()
	require.NoError(t, err)

	bt := cfg.BacktestConfig()
	assert.Equal(t, "ETHUSDT", bt.Symbol)
	assert.Equal(t, 2500.0, bt.InitialBalance)
	assert.Equal(t, 0.001, bt.CommissionRate)
	assert.False(t, bt.AllowShort)

	rk := cfg.RiskConfig()
	assert.Equal(t, 0.01, rk.StopLossPercent)
	assert.Equal(t, 3.0, rk.Leverage)

	opt := cfg.OptimizerConfig()
	assert.Equal(t, strategies.TypeEMACrossover, opt.Strategy)
	assert.Equal(t, 5, opt.BaseParameters.FastPeriod)
	assert.Equal(t, 21, opt.BaseParameters.SlowPeriod)
	assert.Equal(t, optimization.ObjectiveNetProfit, opt.Objective)
	assert.Equal(t, 4, opt.Workers)
	assert.Equal(t, bt, opt.Backtest)

	assert.Equal(t, walkforward.ModePercentage, cfg.WalkForwardConfig().Mode)
	assert.Equal(t, 3, cfg.WalkForwardConfig().FoldCount)

	mc := cfg.MonteCarloConfig()
	assert.Equal(t, uint64(42), mc.Seed)
	assert.Equal(t, 2500.0, mc.InitialBalance)
	assert.Equal(t, 4, mc.Workers)

	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), cfg.DataStart)
	assert.Equal(t, time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC), cfg.DataEnd)
	assert.Equal(t, "json", cfg.LogFormat)

	log, err := cfg.NewLogger()
	require.NoError(t, err)
	assert.IsType(t, &logger.ZapLogger{}, log)
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
		want  string
	}{
		{"malformed float", "INITIAL_BALANCE", "lots", "INITIAL_BALANCE"},
		{"malformed int", "MAX_OPEN_POSITIONS", "two", "MAX_OPEN_POSITIONS"},
		{"negative balance", "INITIAL_BALANCE", "-5", "initial balance must be positive"},
		{"unknown strategy", "STRATEGY_TYPE", "martingale", "STRATEGY_TYPE"},
		{"unknown objective", "OPTIMIZATION_OBJECTIVE", "vibes", "OPTIMIZATION_OBJECTIVE"},
		{"bad periods", "STRATEGY_FAST_PERIOD", "50", "fast period must be less than slow period"},
		{"bad log format", "LOG_FORMAT", "xml", "LOG_FORMAT"},
		{"bad time", "DATA_START", "last week", "DATA_START"},
		{"bad seed", "MONTE_CARLO_SEED", "-1", "MONTE_CARLO_SEED"},
		{"bad leverage", "LEVERAGE", "0.5", "leverage must be at least 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			require.Error(t, err)
			assert.ErrorIs(t, err, ports.ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_WalkForwardValidatedOnlyWhenEnabled(t *testing.T) {
	t.Setenv("WF_TRAINING_PERIOD", "0")
	_, err := Load()
	require.NoError(t, err)

	t.Setenv("WALK_FORWARD_ENABLED", "true")
	_, err = Load()
	assert.ErrorIs(t, err, ports.ErrInvalidConfig)
}

func TestLoadConfig_EnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("SYMBOL=SOLUSDT\nINTERVAL=15m\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("SYMBOL")
		os.Unsetenv("INTERVAL")
	})

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "SOLUSDT", cfg.Symbol)
	assert.Equal(t, "15m", cfg.Interval)
}

func TestLoadConfig_MissingNamedFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.env"))
	assert.Error(t, err)
}
