package optimization

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"cryptoBacktester/internal/domain"
	"cryptoBacktester/internal/ports"
	"cryptoBacktester/internal/risk"
	"cryptoBacktester/internal/strategy/analytics"
	"cryptoBacktester/internal/strategy/backtesting"
	"cryptoBacktester/internal/strategy/strategies"
)

// Objective selects the metric candidates are ranked by.
type Objective string

const (
	ObjectiveSharpe       Objective = "sharpe"
	ObjectiveNetProfit    Objective = "net_profit"
	ObjectiveProfitFactor Objective = "profit_factor"
	ObjectiveReturn       Objective = "return"
)

// ParseObjective maps a name to an Objective. Empty means Sharpe.
func ParseObjective(name string) (Objective, error) {
	switch o := Objective(name); o {
	case "":
		return ObjectiveSharpe, nil
	case ObjectiveSharpe, ObjectiveNetProfit, ObjectiveProfitFactor, ObjectiveReturn:
		return o, nil
	}
	return "", fmt.Errorf("unknown optimization objective %q: %w", name, ports.ErrInvalidConfig)
}

// Score extracts the objective value from metrics. Non-finite values score 0.
func (o Objective) Score(m analytics.PerformanceMetrics) float64 {
	switch o {
	case ObjectiveNetProfit:
		return analytics.Finite(m.NetProfit)
	case ObjectiveProfitFactor:
		return analytics.Finite(m.ProfitFactor)
	case ObjectiveReturn:
		return analytics.Finite(m.ReturnOnInvestment)
	default:
		return analytics.Finite(m.SharpeRatio)
	}
}

// Config holds configuration for the optimizer
type Config struct {
	Strategy        strategies.Type
	BaseParameters  strategies.Parameters // Values for parameters absent from the grid
	Backtest        backtesting.BacktestConfig
	Risk            risk.Config
	Objective       Objective
	MaxCombinations int // Evaluation budget; 0 means the whole grid
	MinTrades       int // Candidates with fewer trades are rejected
	Workers         int // Concurrent backtests; 0 or 1 runs sequentially
}

// DefaultConfig returns a Sharpe-ranked optimisation of the composite strategy.
func DefaultConfig() Config {
	return Config{
		Strategy:       strategies.TypeComposite,
		BaseParameters: strategies.DefaultParameters(),
		Backtest:       backtesting.DefaultConfig(),
		Risk:           risk.DefaultConfig(),
		Objective:      ObjectiveSharpe,
		MinTrades:      10,
		Workers:        1,
	}
}

// Candidate is one evaluated combination that passed the minimum-trade guard.
type Candidate struct {
	Index      int
	Values     map[string]float64
	Parameters strategies.Parameters
	Metrics    analytics.PerformanceMetrics
	Score      float64
}

// Report summarises an optimisation run.
type Report struct {
	Objective  Objective
	Parameters []string // Grid parameter names in enumeration order
	Best       *Candidate
	Candidates []Candidate // Ranked by score, ties in enumeration order
	Evaluated  int         // Combinations backtested
	Pruned     int         // Rejected by constraints or parameter validation, never backtested
	Skipped    int         // Backtest failed
	Rejected   int         // Fewer trades than MinTrades
	Truncated  bool        // Budget reached before the grid was exhausted
	Heatmap    Heatmap
}

// Optimizer implements strategy parameter optimization
type Optimizer struct {
	grid     *Grid
	config   Config
	sizer    *risk.Manager
	logger   ports.Logger
	recorder ports.Recorder
}

// NewOptimizer validates the grid against the strategy parameters and builds
// the shared position sizer. A nil recorder discards metrics.
func NewOptimizer(grid *Grid, config Config, logger ports.Logger, recorder ports.Recorder) (*Optimizer, error) {
	if grid == nil {
		return nil, fmt.Errorf("parameter grid is required for optimizer: %w", ports.ErrInvalidParameterSet)
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for optimizer")
	}
	if recorder == nil {
		recorder = ports.NopRecorder{}
	}
	if _, err := strategies.ParseType(string(config.Strategy)); err != nil {
		return nil, err
	}
	if _, err := ParseObjective(string(config.Objective)); err != nil {
		return nil, err
	}
	if config.Objective == "" {
		config.Objective = ObjectiveSharpe
	}
	if config.MaxCombinations < 0 || config.MinTrades < 0 {
		return nil, fmt.Errorf("optimizer budget and minimum trades must not be negative: %w", ports.ErrInvalidConfig)
	}
	if err := config.Backtest.Validate(); err != nil {
		return nil, err
	}
	check := config.BaseParameters
	for _, name := range grid.Names() {
		if err := check.Set(name, 0); err != nil {
			return nil, err
		}
	}
	sizer, err := risk.NewManager(config.Risk)
	if err != nil {
		return nil, err
	}
	return &Optimizer{grid: grid, config: config, sizer: sizer, logger: logger, recorder: recorder}, nil
}

// Config returns the optimizer configuration.
func (o *Optimizer) Config() Config {
	return o.config
}

// Engine builds a backtest engine for params starting from balance.
func (o *Optimizer) Engine(params strategies.Parameters, balance float64) (*backtesting.Engine, error) {
	strategy, err := strategies.New(o.config.Strategy, params, o.logger)
	if err != nil {
		return nil, err
	}
	cfg := o.config.Backtest
	cfg.InitialBalance = balance
	return backtesting.NewEngine(strategy, o.sizer, cfg, o.logger)
}

type job struct {
	combination Combination
	params      strategies.Parameters
}

type outcome struct {
	result *backtesting.Result
	err    error
}

// Optimize backtests every allowed grid combination on klines, up to the
// budget, and ranks those with enough trades. It returns ErrNoViableCandidate
// alongside the report when nothing qualifies.
func (o *Optimizer) Optimize(ctx context.Context, klines []*domain.Kline) (*Report, error) {
	report := &Report{Objective: o.config.Objective, Parameters: o.grid.Names()}

	jobs, truncated := o.schedule(ctx)
	report.Truncated = truncated
	report.Pruned = jobs.pruned

	outcomes := make([]outcome, len(jobs.list))
	g, gctx := errgroup.WithContext(ctx)
	workers := o.config.Workers
	if workers < 1 {
		workers = 1
	}
	g.SetLimit(workers)
	for i, j := range jobs.list {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outcomes[i] = o.evaluate(gctx, j, klines)
			if errors.Is(outcomes[i].err, ports.ErrContextCanceled) {
				return outcomes[i].err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if !errors.Is(err, ports.ErrContextCanceled) {
			err = fmt.Errorf("%w: %w", ports.ErrContextCanceled, err)
		}
		return nil, fmt.Errorf("optimization interrupted: %w", err)
	}

	for i, j := range jobs.list {
		out := outcomes[i]
		report.Evaluated++
		if out.err != nil {
			report.Skipped++
			o.logger.Debug(ctx, "Combination skipped", map[string]interface{}{
				"index": j.combination.Index,
				"error": out.err.Error(),
			})
			continue
		}
		if out.result.TotalTrades < o.config.MinTrades {
			report.Rejected++
			continue
		}
		report.Candidates = append(report.Candidates, Candidate{
			Index:      j.combination.Index,
			Values:     j.combination.Values,
			Parameters: j.params,
			Metrics:    out.result.PerformanceMetrics,
			Score:      o.config.Objective.Score(out.result.PerformanceMetrics),
		})
	}

	// Stable sort keeps enumeration order among equal scores.
	sort.SliceStable(report.Candidates, func(a, b int) bool {
		return report.Candidates[a].Score > report.Candidates[b].Score
	})
	report.Heatmap = BuildHeatmap(report.Parameters, report.Candidates)

	o.recorder.ObserveCombinations("evaluated", report.Evaluated)
	o.recorder.ObserveCombinations("pruned", report.Pruned)
	o.recorder.ObserveCombinations("skipped", report.Skipped)
	o.recorder.ObserveCombinations("rejected", report.Rejected)

	fields := map[string]interface{}{
		"objective":  report.Objective,
		"evaluated":  report.Evaluated,
		"pruned":     report.Pruned,
		"skipped":    report.Skipped,
		"rejected":   report.Rejected,
		"truncated":  report.Truncated,
		"candidates": len(report.Candidates),
	}
	if len(report.Candidates) == 0 {
		o.logger.Warn(ctx, "Optimization found no viable candidate", fields)
		return report, fmt.Errorf("%d combinations evaluated, none with %d or more trades: %w",
			report.Evaluated, o.config.MinTrades, ports.ErrNoViableCandidate)
	}
	report.Best = &report.Candidates[0]
	fields["best_score"] = report.Best.Score
	fields["best_values"] = report.Best.Values
	o.logger.Info(ctx, "Optimization completed", fields)
	return report, nil
}

type schedule struct {
	list   []job
	pruned int
}

// schedule enumerates the combinations to evaluate. Constraint and parameter
// validation failures are pruned here, before any backtest runs.
func (o *Optimizer) schedule(ctx context.Context) (schedule, bool) {
	var s schedule
	invalid := 0
	it := o.grid.Iterator()
	for {
		c, ok := it.Next()
		if !ok {
			s.pruned = it.Pruned() + invalid
			return s, false
		}
		params, err := o.config.BaseParameters.Apply(c.Values)
		if err == nil {
			err = params.Validate(o.config.Strategy)
		}
		if err != nil {
			invalid++
			o.logger.Debug(ctx, "Combination pruned", map[string]interface{}{
				"index": c.Index,
				"error": err.Error(),
			})
			continue
		}
		if o.config.MaxCombinations > 0 && len(s.list) == o.config.MaxCombinations {
			s.pruned = it.Pruned() + invalid
			return s, true
		}
		s.list = append(s.list, job{combination: c, params: params})
	}
}

func (o *Optimizer) evaluate(ctx context.Context, j job, klines []*domain.Kline) outcome {
	engine, err := o.Engine(j.params, o.config.Backtest.InitialBalance)
	if err != nil {
		return outcome{err: err}
	}
	started := time.Now()
	result, err := engine.Run(ctx, klines)
	trades := 0
	if result != nil {
		trades = result.TotalTrades
	}
	o.recorder.ObserveBacktest(string(o.config.Strategy), trades, time.Since(started), err)
	return outcome{result: result, err: err}
}
