// Package app wires data sources, strategies and the analysis engines
// together for the command-line tools.
package app

import (
	"context"
	"fmt"
	"time"

	"cryptoBacktester/config"
	"cryptoBacktester/internal/domain"
	"cryptoBacktester/internal/ports"
	"cryptoBacktester/internal/risk"
	"cryptoBacktester/internal/strategy/backtesting"
	"cryptoBacktester/internal/strategy/montecarlo"
	"cryptoBacktester/internal/strategy/optimization"
	"cryptoBacktester/internal/strategy/strategies"
	"cryptoBacktester/internal/strategy/walkforward"
	"cryptoBacktester/internal/utils"
)

// Runner executes backtests and robustness analyses for one configuration.
type Runner struct {
	cfg      *config.Config
	logger   ports.Logger
	repo     ports.KlineRepository // Optional; needed when no data file is configured
	source   ports.KlineSource     // Optional; needed by Fetch
	recorder ports.Recorder
}

// NewRunner creates a runner. repo and source may be nil when the commands
// that need them are not used; a nil recorder discards metrics.
func NewRunner(
	cfg *config.Config,
	logger ports.Logger,
	repo ports.KlineRepository,
	source ports.KlineSource,
	recorder ports.Recorder,
) (*Runner, error) {
	// Validate dependencies
	if cfg == nil || logger == nil {
		return nil, fmt.Errorf("missing required dependencies for Runner")
	}
	if recorder == nil {
		recorder = ports.NopRecorder{}
	}
	return &Runner{cfg: cfg, logger: logger, repo: repo, source: source, recorder: recorder}, nil
}

// LoadKlines reads candles from the configured CSV file, or from the kline
// store when no file is set, restricted to the configured date range.
func (r *Runner) LoadKlines(ctx context.Context) ([]*domain.Kline, error) {
	var klines []*domain.Kline
	var err error
	source := r.cfg.DataFile

	if r.cfg.DataFile != "" {
		klines, err = utils.ReadKlinesFromCSV(r.cfg.DataFile)
		if err != nil {
			return nil, fmt.Errorf("loading klines from %s: %w", r.cfg.DataFile, err)
		}
		klines = inRange(klines, r.cfg.DataStart, r.cfg.DataEnd)
	} else {
		if r.repo == nil {
			return nil, fmt.Errorf("no data file or kline store configured: %w", ports.ErrInvalidConfig)
		}
		source = "store"
		klines, err = r.repo.FindKlines(ctx, r.cfg.Symbol, r.cfg.Interval, r.cfg.DataStart, r.cfg.DataEnd)
		if err != nil {
			return nil, fmt.Errorf("loading klines from store: %w", err)
		}
	}

	if len(klines) == 0 {
		return nil, fmt.Errorf("no klines for %s %s: %w", r.cfg.Symbol, r.cfg.Interval, ports.ErrNotFound)
	}
	if err := domain.ValidateSeries(klines); err != nil {
		return nil, fmt.Errorf("invalid kline series: %w", err)
	}

	r.logger.Info(ctx, "Klines loaded", map[string]interface{}{
		"source": source,
		"count":  len(klines),
		"from":   klines[0].OpenTime,
		"to":     klines[len(klines)-1].OpenTime,
	})
	return klines, nil
}

func inRange(klines []*domain.Kline, start, end time.Time) []*domain.Kline {
	if start.IsZero() && end.IsZero() {
		return klines
	}
	out := make([]*domain.Kline, 0, len(klines))
	for _, k := range klines {
		if !start.IsZero() && k.OpenTime.Before(start) {
			continue
		}
		if !end.IsZero() && k.OpenTime.After(end) {
			continue
		}
		out = append(out, k)
	}
	return out
}

// Backtest runs the configured strategy once over klines.
func (r *Runner) Backtest(ctx context.Context, klines []*domain.Kline) (*backtesting.Result, error) {
	executor, err := strategies.New(r.cfg.StrategyType, r.cfg.Strategy, r.logger)
	if err != nil {
		return nil, err
	}
	sizer, err := risk.NewManager(r.cfg.RiskConfig())
	if err != nil {
		return nil, err
	}
	engine, err := backtesting.NewEngine(executor, sizer, r.cfg.BacktestConfig(), r.logger)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	result, err := engine.Run(ctx, klines)
	trades := 0
	if result != nil {
		trades = len(result.Trades)
	}
	r.recorder.ObserveBacktest(executor.Name(), trades, time.Since(started), err)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Evaluation holds the outcome of Evaluate. Exactly one field is set.
type Evaluation struct {
	Backtest    *backtesting.Result
	WalkForward *walkforward.Result
}

// Evaluate runs walk-forward analysis over the configured grid when
// WALK_FORWARD_ENABLED is set, and a single backtest otherwise. A walk-forward
// result is returned alongside ErrNoViableCandidate when every fold failed.
func (r *Runner) Evaluate(ctx context.Context, klines []*domain.Kline) (*Evaluation, error) {
	if !r.cfg.WalkForwardEnabled {
		res, err := r.Backtest(ctx, klines)
		if err != nil {
			return nil, err
		}
		return &Evaluation{Backtest: res}, nil
	}

	grid, err := r.Grid()
	if err != nil {
		return nil, err
	}
	res, err := r.WalkForward(ctx, klines, grid)
	if res == nil {
		return nil, err
	}
	return &Evaluation{WalkForward: res}, err
}

// Grid returns the grid from the configured grid file, or the default grid
// for the configured strategy type.
func (r *Runner) Grid() (*optimization.Grid, error) {
	if r.cfg.GridFile != "" {
		return optimization.LoadGrid(r.cfg.GridFile)
	}
	return DefaultGrid(r.cfg.StrategyType)
}

// Optimize searches grid for the best parameters over klines.
func (r *Runner) Optimize(ctx context.Context, klines []*domain.Kline, grid *optimization.Grid) (*optimization.Report, error) {
	optimizer, err := optimization.NewOptimizer(grid, r.cfg.OptimizerConfig(), r.logger, r.recorder)
	if err != nil {
		return nil, err
	}
	return optimizer.Optimize(ctx, klines)
}

// WalkForward re-optimizes on rolling windows and scores each winner out of sample.
func (r *Runner) WalkForward(ctx context.Context, klines []*domain.Kline, grid *optimization.Grid) (*walkforward.Result, error) {
	optimizer, err := optimization.NewOptimizer(grid, r.cfg.OptimizerConfig(), r.logger, r.recorder)
	if err != nil {
		return nil, err
	}
	analyzer, err := walkforward.NewAnalyzer(optimizer, r.cfg.WalkForwardConfig(), r.logger, r.recorder)
	if err != nil {
		return nil, err
	}
	return analyzer.Run(ctx, klines)
}

// MonteCarlo reshuffles the trade ledger to estimate order dependence.
func (r *Runner) MonteCarlo(ctx context.Context, trades []*domain.Trade) (*montecarlo.Result, error) {
	estimator, err := montecarlo.NewEstimator(r.cfg.MonteCarloConfig(), nil, r.logger, r.recorder)
	if err != nil {
		return nil, err
	}
	return estimator.Run(ctx, trades)
}

// Fetch downloads the configured range from the exchange and upserts it into
// the kline store when one is configured. A zero DataEnd means now.
func (r *Runner) Fetch(ctx context.Context) ([]*domain.Kline, error) {
	if r.source == nil {
		return nil, fmt.Errorf("kline source is required for fetch: %w", ports.ErrInvalidConfig)
	}
	if r.cfg.DataStart.IsZero() {
		return nil, fmt.Errorf("DATA_START is required for fetch: %w", ports.ErrInvalidConfig)
	}
	end := r.cfg.DataEnd
	if end.IsZero() {
		end = time.Now().UTC()
	}

	if err := r.source.Ping(ctx); err != nil {
		return nil, fmt.Errorf("exchange is not reachable: %w", err)
	}
	klines, err := r.source.GetKlinesRange(ctx, r.cfg.Symbol, r.cfg.Interval, r.cfg.DataStart, end)
	if err != nil {
		return nil, fmt.Errorf("fetching klines: %w", err)
	}

	if r.repo != nil && len(klines) > 0 {
		if err := r.repo.SaveKlines(ctx, klines); err != nil {
			return nil, fmt.Errorf("storing klines: %w", err)
		}
		total, err := r.repo.CountKlines(ctx, r.cfg.Symbol, r.cfg.Interval)
		if err != nil {
			return nil, err
		}
		r.logger.Info(ctx, "Klines stored", map[string]interface{}{
			"symbol":   r.cfg.Symbol,
			"interval": r.cfg.Interval,
			"fetched":  len(klines),
			"stored":   total,
		})
	}
	return klines, nil
}
