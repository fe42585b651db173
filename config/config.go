// Package config loads backtester settings from the environment and .env files.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"cryptoBacktester/internal/adapters/logger"
	"cryptoBacktester/internal/ports"
	"cryptoBacktester/internal/risk"
	"cryptoBacktester/internal/strategy/backtesting"
	"cryptoBacktester/internal/strategy/montecarlo"
	"cryptoBacktester/internal/strategy/optimization"
	"cryptoBacktester/internal/strategy/strategies"
	"cryptoBacktester/internal/strategy/walkforward"
)

// Config holds all application configuration.
type Config struct {
	// Data source
	Symbol    string
	Interval  string
	DBPath    string
	DataFile  string    // CSV file; takes precedence over the database when set
	DataStart time.Time // Zero means unbounded
	DataEnd   time.Time
	APIKey    string
	SecretKey string
	IsTestnet bool

	// Backtest
	InitialBalance      float64
	CommissionRate      float64
	SlippageRate        float64
	MinConfidence       float64
	MaxOpenPositions    int
	AllowSimultaneous   bool
	AllowShort          bool
	ExitOnNeutral       bool
	TrailingStopPercent float64

	// Position sizing
	StopLoss                float64 // e.g. 0.02 for 2%
	TakeProfit              float64
	UseATRStops             bool
	ATRPeriod               int
	ATRStopMultiplier       float64
	ATRTakeProfitMultiplier float64
	RiskPerTrade            float64
	MaxPositionPercent      float64
	Leverage                float64
	QuantityStep            float64

	// Strategy
	StrategyType strategies.Type
	Strategy     strategies.Parameters

	// Optimization
	GridFile                    string
	OptimizationObjective       optimization.Objective
	OptimizationMaxCombinations int
	OptimizationMinTrades       int
	Workers                     int

	// Walk-forward
	WalkForwardEnabled bool // backtest runs walk-forward instead of a single pass
	WalkForward        walkforward.Config

	// Monte Carlo
	MonteCarloIterations int
	MonteCarloSeed       uint64

	// Logging
	LogLevel  logger.LogLevel
	LogFormat string // "text" or "json"

	MetricsAddr string // Empty disables the metrics endpoint
}

// LoadConfig loads the given .env files (".env" when none are named) and
// reads configuration from the environment. A missing default .env is not an
// error; a missing named file is.
func LoadConfig(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading .env: %w", err)
		}
	} else if err := godotenv.Load(envFiles...); err != nil {
		return nil, fmt.Errorf("loading env files %s: %w", strings.Join(envFiles, ", "), err)
	}
	return Load()
}

// Load reads configuration from environment variables only.
func Load() (*Config, error) {
	cfg := &Config{}
	var err error
	var errs []string // Collect validation errors

	// Data source
	cfg.Symbol = getEnv("SYMBOL", "BTCUSDT")
	cfg.Interval = getEnv("INTERVAL", "1h")
	cfg.DBPath = getEnv("DB_PATH", "./data/klines.db")
	cfg.DataFile = getEnv("DATA_FILE", "")
	cfg.APIKey = getEnv("BINANCE_API_KEY", "")
	cfg.SecretKey = getEnv("BINANCE_API_SECRET", "")
	cfg.IsTestnet = getEnvAsBool("IS_TESTNET", false)
	if cfg.DataStart, err = getEnvAsTime("DATA_START"); err != nil {
		errs = append(errs, err.Error())
	}
	if cfg.DataEnd, err = getEnvAsTime("DATA_END"); err != nil {
		errs = append(errs, err.Error())
	}
	if !cfg.DataStart.IsZero() && !cfg.DataEnd.IsZero() && cfg.DataEnd.Before(cfg.DataStart) {
		errs = append(errs, "DATA_END must not be before DATA_START")
	}

	// Backtest
	bt := backtesting.DefaultConfig()
	cfg.InitialBalance = getFloat(&errs, "INITIAL_BALANCE", bt.InitialBalance)
	cfg.CommissionRate = getFloat(&errs, "COMMISSION_RATE", bt.CommissionRate)
	cfg.SlippageRate = getFloat(&errs, "SLIPPAGE_RATE", bt.SlippageRate)
	cfg.MinConfidence = getFloat(&errs, "MIN_CONFIDENCE", bt.MinConfidence)
	cfg.MaxOpenPositions = getInt(&errs, "MAX_OPEN_POSITIONS", bt.MaxOpenPositions)
	cfg.AllowSimultaneous = getEnvAsBool("ALLOW_SIMULTANEOUS", bt.AllowSimultaneous)
	cfg.AllowShort = getEnvAsBool("ALLOW_SHORT", bt.AllowShort)
	cfg.ExitOnNeutral = getEnvAsBool("EXIT_ON_NEUTRAL", bt.ExitOnNeutral)
	cfg.TrailingStopPercent = getFloat(&errs, "TRAILING_STOP", bt.TrailingStopPercent)

	// Position sizing
	rk := risk.DefaultConfig()
	cfg.StopLoss = getFloat(&errs, "STOP_LOSS", rk.StopLossPercent)
	cfg.TakeProfit = getFloat(&errs, "TAKE_PROFIT", rk.TakeProfitPercent)
	cfg.UseATRStops = getEnvAsBool("USE_ATR_STOPS", rk.UseATRStops)
	cfg.ATRPeriod = getInt(&errs, "ATR_PERIOD", rk.ATRPeriod)
	cfg.ATRStopMultiplier = getFloat(&errs, "ATR_STOP_MULTIPLIER", rk.ATRStopMultiplier)
	cfg.ATRTakeProfitMultiplier = getFloat(&errs, "ATR_TAKE_PROFIT_MULTIPLIER", rk.ATRTakeProfitMultiplier)
	cfg.RiskPerTrade = getFloat(&errs, "RISK_PER_TRADE", rk.RiskPerTrade)
	cfg.MaxPositionPercent = getFloat(&errs, "MAX_POSITION_PERCENT", rk.MaxPositionPercent)
	cfg.Leverage = getFloat(&errs, "LEVERAGE", rk.Leverage)
	cfg.QuantityStep = getFloat(&errs, "QUANTITY_STEP", rk.QuantityStep)

	// Strategy Parameters (using defaults if not set)
	if cfg.StrategyType, err = strategies.ParseType(getEnv("STRATEGY_TYPE", string(strategies.TypeComposite))); err != nil {
		errs = append(errs, fmt.Sprintf("invalid STRATEGY_TYPE: %v", err))
	}
	sp := strategies.DefaultParameters()
	sp.FastPeriod = getInt(&errs, "STRATEGY_FAST_PERIOD", sp.FastPeriod)
	sp.SlowPeriod = getInt(&errs, "STRATEGY_SLOW_PERIOD", sp.SlowPeriod)
	sp.RSIPeriod = getInt(&errs, "STRATEGY_RSI_PERIOD", sp.RSIPeriod)
	sp.RSIOverbought = getFloat(&errs, "STRATEGY_RSI_OVERBOUGHT", sp.RSIOverbought)
	sp.RSIOversold = getFloat(&errs, "STRATEGY_RSI_OVERSOLD", sp.RSIOversold)
	sp.MACDFast = getInt(&errs, "STRATEGY_MACD_FAST", sp.MACDFast)
	sp.MACDSlow = getInt(&errs, "STRATEGY_MACD_SLOW", sp.MACDSlow)
	sp.MACDSignal = getInt(&errs, "STRATEGY_MACD_SIGNAL", sp.MACDSignal)
	sp.BollingerPeriod = getInt(&errs, "STRATEGY_BOLLINGER_PERIOD", sp.BollingerPeriod)
	sp.BollingerMultiplier = getFloat(&errs, "STRATEGY_BOLLINGER_MULTIPLIER", sp.BollingerMultiplier)
	sp.UseMA = getEnvAsBool("USE_MA", sp.UseMA)
	sp.UseRSI = getEnvAsBool("USE_RSI", sp.UseRSI)
	sp.UseMACD = getEnvAsBool("USE_MACD", sp.UseMACD)
	sp.UseBollinger = getEnvAsBool("USE_BOLLINGER", sp.UseBollinger)
	sp.MAWeight = getFloat(&errs, "MA_WEIGHT", sp.MAWeight)
	sp.RSIWeight = getFloat(&errs, "RSI_WEIGHT", sp.RSIWeight)
	sp.MACDWeight = getFloat(&errs, "MACD_WEIGHT", sp.MACDWeight)
	sp.BollingerWeight = getFloat(&errs, "BOLLINGER_WEIGHT", sp.BollingerWeight)
	cfg.Strategy = sp

	// Optimization
	opt := optimization.DefaultConfig()
	cfg.GridFile = getEnv("GRID_FILE", "")
	if cfg.OptimizationObjective, err = optimization.ParseObjective(getEnv("OPTIMIZATION_OBJECTIVE", string(opt.Objective))); err != nil {
		errs = append(errs, fmt.Sprintf("invalid OPTIMIZATION_OBJECTIVE: %v", err))
	}
	cfg.OptimizationMaxCombinations = getInt(&errs, "OPTIMIZATION_MAX_COMBINATIONS", opt.MaxCombinations)
	cfg.OptimizationMinTrades = getInt(&errs, "OPTIMIZATION_MIN_TRADES", opt.MinTrades)
	cfg.Workers = getInt(&errs, "WORKERS", opt.Workers)
	if cfg.OptimizationMaxCombinations < 0 {
		errs = append(errs, "OPTIMIZATION_MAX_COMBINATIONS cannot be negative")
	}
	if cfg.OptimizationMinTrades < 0 {
		errs = append(errs, "OPTIMIZATION_MIN_TRADES cannot be negative")
	}
	if cfg.Workers < 0 {
		errs = append(errs, "WORKERS cannot be negative")
	}

	// Walk-forward
	wf := walkforward.DefaultConfig()
	cfg.WalkForwardEnabled = getEnvAsBool("WALK_FORWARD_ENABLED", false)
	wf.Mode = walkforward.Mode(strings.ToLower(getEnv("WF_MODE", string(wf.Mode))))
	wf.TrainingPeriod = getInt(&errs, "WF_TRAINING_PERIOD", wf.TrainingPeriod)
	wf.TestingPeriod = getInt(&errs, "WF_TESTING_PERIOD", wf.TestingPeriod)
	wf.FoldCount = getInt(&errs, "WF_FOLDS", wf.FoldCount)
	wf.TrainingPercent = getFloat(&errs, "WF_TRAINING_PERCENT", wf.TrainingPercent)
	cfg.WalkForward = wf

	// Monte Carlo
	mc := montecarlo.DefaultConfig()
	cfg.MonteCarloIterations = getInt(&errs, "MONTE_CARLO_ITERATIONS", mc.Iterations)
	seed, err := getEnvAsUint64Required("MONTE_CARLO_SEED", mc.Seed)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid MONTE_CARLO_SEED: %v", err))
	}
	cfg.MonteCarloSeed = seed

	// Logging
	cfg.LogLevel = logger.ParseLevel(getEnv("LOG_LEVEL", "INFO"))
	cfg.LogFormat = strings.ToLower(getEnv("LOG_FORMAT", "text"))
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		errs = append(errs, "LOG_FORMAT must be text or json")
	}

	cfg.MetricsAddr = getEnv("METRICS_ADDR", "")

	// Cross-field checks reuse each component's own validation.
	if len(errs) == 0 {
		for _, v := range []error{
			cfg.BacktestConfig().Validate(),
			cfg.RiskConfig().Validate(),
			cfg.Strategy.Validate(cfg.StrategyType),
			cfg.MonteCarloConfig().Validate(),
		} {
			if v != nil {
				errs = append(errs, v.Error())
			}
		}
		if cfg.WalkForwardEnabled {
			if v := cfg.WalkForward.Validate(); v != nil {
				errs = append(errs, v.Error())
			}
		}
	}

	// Combine validation errors
	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %s: %w", strings.Join(errs, "; "), ports.ErrInvalidConfig)
	}

	return cfg, nil
}

// BacktestConfig returns the engine settings.
func (c *Config) BacktestConfig() backtesting.BacktestConfig {
	return backtesting.BacktestConfig{
		Symbol:              c.Symbol,
		InitialBalance:      c.InitialBalance,
		CommissionRate:      c.CommissionRate,
		SlippageRate:        c.SlippageRate,
		MinConfidence:       c.MinConfidence,
		MaxOpenPositions:    c.MaxOpenPositions,
		AllowSimultaneous:   c.AllowSimultaneous,
		AllowShort:          c.AllowShort,
		ExitOnNeutral:       c.ExitOnNeutral,
		TrailingStopPercent: c.TrailingStopPercent,
	}
}

// RiskConfig returns the position sizing settings.
func (c *Config) RiskConfig() risk.Config {
	return risk.Config{
		StopLossPercent:         c.StopLoss,
		TakeProfitPercent:       c.TakeProfit,
		UseATRStops:             c.UseATRStops,
		ATRPeriod:               c.ATRPeriod,
		ATRStopMultiplier:       c.ATRStopMultiplier,
		ATRTakeProfitMultiplier: c.ATRTakeProfitMultiplier,
		RiskPerTrade:            c.RiskPerTrade,
		MaxPositionPercent:      c.MaxPositionPercent,
		Leverage:                c.Leverage,
		QuantityStep:            c.QuantityStep,
	}
}

// OptimizerConfig returns the optimizer settings.
func (c *Config) OptimizerConfig() optimization.Config {
	return optimization.Config{
		Strategy:        c.StrategyType,
		BaseParameters:  c.Strategy,
		Backtest:        c.BacktestConfig(),
		Risk:            c.RiskConfig(),
		Objective:       c.OptimizationObjective,
		MaxCombinations: c.OptimizationMaxCombinations,
		MinTrades:       c.OptimizationMinTrades,
		Workers:         c.Workers,
	}
}

// WalkForwardConfig returns the fold layout.
func (c *Config) WalkForwardConfig() walkforward.Config {
	return c.WalkForward
}

// MonteCarloConfig returns the simulation settings.
func (c *Config) MonteCarloConfig() montecarlo.Config {
	return montecarlo.Config{
		Iterations:     c.MonteCarloIterations,
		InitialBalance: c.InitialBalance,
		Seed:           c.MonteCarloSeed,
		Workers:        max(1, c.Workers),
	}
}

// NewLogger builds the logger selected by LogFormat.
func (c *Config) NewLogger() (ports.Logger, error) {
	if c.LogFormat == "json" {
		return logger.NewZap(false, c.LogLevel)
	}
	return logger.NewStdLogger(c.LogLevel), nil
}

// --- Env Var Helpers ---

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getInt reads an integer, recording a validation error when the value is malformed.
func getInt(errs *[]string, key string, defaultValue int) int {
	value, err := getEnvAsIntRequired(key, defaultValue)
	if err != nil {
		*errs = append(*errs, err.Error())
	}
	return value
}

// getFloat reads a float, recording a validation error when the value is malformed.
func getFloat(errs *[]string, key string, defaultValue float64) float64 {
	value, err := getEnvAsFloatRequired(key, defaultValue)
	if err != nil {
		*errs = append(*errs, err.Error())
	}
	return value
}

func getEnvAsIntRequired(key string, defaultValue int) (int, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		// Use default if env var is not set at all
		return defaultValue, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		// Return error if env var is set but invalid
		return 0, fmt.Errorf("invalid integer value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsUint64Required(key string, defaultValue uint64) (uint64, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.ParseUint(valueStr, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid unsigned value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsFloatRequired(key string, defaultValue float64) (float64, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid float value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsTime accepts RFC3339 timestamps or plain dates (2006-01-02, UTC).
func getEnvAsTime(key string) (time.Time, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, valueStr); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.DateOnly, valueStr)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time value '%s' for key %s: expected RFC3339 or YYYY-MM-DD", valueStr, key)
	}
	return t, nil
}
