package backtesting

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"cryptoBacktester/internal/domain"
	"cryptoBacktester/internal/ports"
	"cryptoBacktester/internal/strategy/analytics"
)

// BacktestConfig holds configuration for backtesting
type BacktestConfig struct {
	Symbol              string
	InitialBalance      float64
	CommissionRate      float64 // Fraction of notional charged on entry and on exit
	SlippageRate        float64 // Adverse fraction applied to every fill
	MinConfidence       float64 // Signals below this confidence do not open positions
	MaxOpenPositions    int     // Only used with AllowSimultaneous
	AllowSimultaneous   bool
	AllowShort          bool
	ExitOnNeutral       bool    // Close positions on HOLD signals too
	TrailingStopPercent float64 // Trailing distance as a fraction of entry price; 0 disables
}

// DefaultConfig returns a long/short configuration with typical futures costs.
func DefaultConfig() BacktestConfig {
	return BacktestConfig{
		InitialBalance:   10000,
		CommissionRate:   0.0004,
		SlippageRate:     0.0005,
		MinConfidence:    0.5,
		MaxOpenPositions: 1,
		AllowShort:       true,
	}
}

// Validate checks the configuration.
func (c BacktestConfig) Validate() error {
	var errs []string
	if c.InitialBalance <= 0 {
		errs = append(errs, "initial balance must be positive")
	}
	if c.CommissionRate < 0 || c.CommissionRate >= 1 {
		errs = append(errs, "commission rate must be in [0, 1)")
	}
	if c.SlippageRate < 0 || c.SlippageRate >= 1 {
		errs = append(errs, "slippage rate must be in [0, 1)")
	}
	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		errs = append(errs, "min confidence must be in [0, 1]")
	}
	if c.AllowSimultaneous && c.MaxOpenPositions < 1 {
		errs = append(errs, "max open positions must be at least 1")
	}
	if c.TrailingStopPercent < 0 || c.TrailingStopPercent >= 1 {
		errs = append(errs, "trailing stop percent must be in [0, 1)")
	}
	if len(errs) > 0 {
		return fmt.Errorf("backtest config: %s: %w", strings.Join(errs, "; "), ports.ErrInvalidConfig)
	}
	return nil
}

// maxPositions returns the concurrency limit.
func (c BacktestConfig) maxPositions() int {
	if c.AllowSimultaneous {
		return c.MaxOpenPositions
	}
	return 1
}

// Result holds the results of a backtest
type Result struct {
	analytics.PerformanceMetrics
	Symbol      string
	Strategy    string
	StartTime   time.Time
	EndTime     time.Time
	Candles     int
	Trades      []*domain.Trade
	EquityCurve []domain.EquityPoint
}

// Engine replays klines through a strategy, managing simulated positions.
// An Engine is immutable; each Run owns its own position state, so one Engine
// may run concurrently.
type Engine struct {
	strategy ports.SignalSource
	sizer    ports.PositionSizer
	config   BacktestConfig
	logger   ports.Logger
}

// NewEngine validates its dependencies and config.
func NewEngine(strategy ports.SignalSource, sizer ports.PositionSizer, config BacktestConfig, logger ports.Logger) (*Engine, error) {
	if strategy == nil {
		return nil, fmt.Errorf("strategy is required for backtest engine")
	}
	if sizer == nil {
		return nil, fmt.Errorf("position sizer is required for backtest engine")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for backtest engine")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Engine{strategy: strategy, sizer: sizer, config: config, logger: logger}, nil
}

// Config returns the engine configuration.
func (e *Engine) Config() BacktestConfig {
	return e.config
}

// Run backtests the whole kline series.
func (e *Engine) Run(ctx context.Context, klines []*domain.Kline) (*Result, error) {
	return e.RunFrom(ctx, klines, 0)
}

// RunFrom backtests klines[start:]. Earlier klines only serve as indicator
// history; no positions are opened on them and they produce no equity points.
func (e *Engine) RunFrom(ctx context.Context, klines []*domain.Kline, start int) (*Result, error) {
	if start < 0 || start >= len(klines) {
		return nil, fmt.Errorf("start index %d outside %d klines: %w", start, len(klines), ports.ErrInsufficientData)
	}
	if lookback := e.strategy.Lookback(); len(klines) < lookback {
		return nil, fmt.Errorf("%s needs %d klines, got %d: %w", e.strategy.Name(), lookback, len(klines), ports.ErrInsufficientData)
	}

	run := &run{
		engine:    e,
		balance:   e.config.InitialBalance,
		watermark: e.config.InitialBalance,
		equity:    make([]domain.EquityPoint, 0, len(klines)-start),
	}
	for i := start; i < len(klines); i++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("backtest interrupted at kline %d: %w: %w", i, ports.ErrContextCanceled, err)
		}
		run.step(ctx, klines, i)
	}

	window := klines[start:]
	result := &Result{
		PerformanceMetrics: analytics.AnalyzePerformance(run.trades, run.equity, e.config.InitialBalance),
		Symbol:             e.config.Symbol,
		Strategy:           e.strategy.Name(),
		StartTime:          window[0].OpenTime,
		EndTime:            window[len(window)-1].OpenTime,
		Candles:            len(window),
		Trades:             run.trades,
		EquityCurve:        run.equity,
	}

	e.logger.Debug(ctx, "Backtest completed", map[string]interface{}{
		"strategy":      result.Strategy,
		"candles":       result.Candles,
		"trades":        result.TotalTrades,
		"final_balance": result.FinalBalance,
	})
	return result, nil
}

// run is the mutable state of one backtest.
type run struct {
	engine    *Engine
	balance   float64
	watermark float64
	positions []*domain.Position
	trades    []*domain.Trade
	equity    []domain.EquityPoint
	nextID    int64
}

// step processes one kline: protective exits, then the strategy signal,
// then the end-of-data close, then the equity point.
func (r *run) step(ctx context.Context, klines []*domain.Kline, i int) {
	k := klines[i]
	last := i == len(klines)-1
	cfg := r.engine.config

	r.checkProtectiveExits(ctx, k)

	history := klines[:i+1]
	if len(history) >= r.engine.strategy.Lookback() {
		sig := r.engine.strategy.Evaluate(ctx, history)
		r.applySignalExits(ctx, sig, k)

		side, actionable := sig.Side()
		if actionable && !last && sig.Confidence >= cfg.MinConfidence &&
			(side == domain.SideLong || cfg.AllowShort) && len(r.positions) < cfg.maxPositions() {
			r.open(ctx, history, side, sig)
		}
	}

	if last {
		for _, p := range r.positions {
			r.close(ctx, p, k.Close, k.OpenTime, domain.CloseReasonEndOfData)
		}
		r.positions = nil
	}

	r.watermark = math.Max(r.watermark, r.balance)
	drawdown := 0.0
	if r.watermark > 0 {
		drawdown = (r.watermark - r.balance) / r.watermark
	}
	r.equity = append(r.equity, domain.EquityPoint{Time: k.OpenTime, Balance: r.balance, Drawdown: drawdown})
}

// checkProtectiveExits closes positions whose stop-loss, take-profit or
// trailing level was touched intrabar. Stop-loss wins when several are touched.
func (r *run) checkProtectiveExits(ctx context.Context, k *domain.Kline) {
	open := r.positions[:0]
	for _, p := range r.positions {
		if level, reason, hit := protectiveExit(p, k); hit {
			r.close(ctx, p, level, k.OpenTime, reason)
			continue
		}
		p.UpdateBestProfit(k)
		open = append(open, p)
	}
	r.positions = open
}

func protectiveExit(p *domain.Position, k *domain.Kline) (float64, domain.CloseReason, bool) {
	long := p.Side == domain.SideLong
	touchedAgainst := func(level float64) bool {
		if long {
			return k.Low <= level
		}
		return k.High >= level
	}

	if p.StopLoss > 0 && touchedAgainst(p.StopLoss) {
		return p.StopLoss, domain.CloseReasonStopLoss, true
	}
	if p.TakeProfit > 0 {
		if (long && k.High >= p.TakeProfit) || (!long && k.Low <= p.TakeProfit) {
			return p.TakeProfit, domain.CloseReasonTakeProfit, true
		}
	}
	if level, armed := p.TrailingStopPrice(); armed && touchedAgainst(level) {
		return level, domain.CloseReasonTrailingStop, true
	}
	return 0, "", false
}

// applySignalExits closes positions opposed by the signal, or all positions on
// a neutral signal when ExitOnNeutral is set.
func (r *run) applySignalExits(ctx context.Context, sig domain.Signal, k *domain.Kline) {
	if len(r.positions) == 0 {
		return
	}
	side, actionable := sig.Side()
	if !actionable && !r.engine.config.ExitOnNeutral {
		return
	}
	open := r.positions[:0]
	for _, p := range r.positions {
		if !actionable || side == p.Side.Opposite() {
			r.close(ctx, p, k.Close, k.OpenTime, domain.CloseReasonSignal)
			continue
		}
		open = append(open, p)
	}
	r.positions = open
}

func (r *run) open(ctx context.Context, history []*domain.Kline, side domain.PositionSide, sig domain.Signal) {
	cfg := r.engine.config
	k := history[len(history)-1]
	dir := side.Direction()
	fill := k.Close * (1 + dir*cfg.SlippageRate)

	levels := r.engine.sizer.StopLevels(history, fill, side)
	qty := r.engine.sizer.PositionSize(r.balance, fill, levels.StopLoss, history)
	if qty <= 0 || math.IsNaN(qty) || math.IsInf(qty, 0) {
		r.engine.logger.Debug(ctx, "Entry skipped: zero position size", map[string]interface{}{
			"time":  k.OpenTime,
			"side":  side,
			"price": fill,
		})
		return
	}

	r.nextID++
	p := &domain.Position{
		ID:              r.nextID,
		Symbol:          cfg.Symbol,
		Side:            side,
		EntryPrice:      fill,
		EntryTime:       k.OpenTime,
		Quantity:        qty,
		StopLoss:        levels.StopLoss,
		TakeProfit:      levels.TakeProfit,
		EntryConfidence: sig.Confidence,
		EntrySlippage:   math.Abs(fill-k.Close) * qty,
	}
	if cfg.TrailingStopPercent > 0 {
		p.TrailingDistance = fill * cfg.TrailingStopPercent
	}
	r.positions = append(r.positions, p)

	r.engine.logger.Debug(ctx, "Position opened", map[string]interface{}{
		"id":         p.ID,
		"side":       side,
		"price":      fill,
		"quantity":   qty,
		"stop_loss":  p.StopLoss,
		"confidence": sig.Confidence,
		"reason":     sig.Reason,
	})
}

// close books the trade. Balance changes only here, so equity is realized cash.
func (r *run) close(ctx context.Context, p *domain.Position, price float64, at time.Time, reason domain.CloseReason) {
	cfg := r.engine.config
	dir := p.Side.Direction()
	fill := price * (1 - dir*cfg.SlippageRate)

	commission := (p.EntryPrice + fill) * p.Quantity * cfg.CommissionRate
	slippage := p.EntrySlippage + math.Abs(price-fill)*p.Quantity
	net := (fill-p.EntryPrice)*dir*p.Quantity - commission

	t := &domain.Trade{
		ID:              p.ID,
		Symbol:          p.Symbol,
		Side:            p.Side,
		EntryPrice:      p.EntryPrice,
		ExitPrice:       fill,
		Quantity:        p.Quantity,
		GrossPNL:        net + commission + slippage,
		Commission:      commission,
		Slippage:        slippage,
		PNL:             net,
		EntryTime:       p.EntryTime,
		ExitTime:        at,
		CloseReason:     reason,
		EntryConfidence: p.EntryConfidence,
	}
	r.balance += net
	r.trades = append(r.trades, t)

	r.engine.logger.Debug(ctx, "Position closed", map[string]interface{}{
		"id":     p.ID,
		"reason": reason,
		"price":  fill,
		"pnl":    net,
	})
}
