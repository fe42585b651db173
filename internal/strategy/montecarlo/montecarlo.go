// Package montecarlo estimates how much of a backtest's outcome depends on the
// order of its trades by replaying the ledger in random orders.
package montecarlo

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"cryptoBacktester/internal/domain"
	"cryptoBacktester/internal/ports"
	"cryptoBacktester/internal/strategy/analytics"
)

// Config holds Monte Carlo settings.
type Config struct {
	Iterations     int
	InitialBalance float64
	Seed           uint64
	Workers        int
}

// DefaultConfig returns 1000 sequential iterations.
func DefaultConfig() Config {
	return Config{
		Iterations:     1000,
		InitialBalance: 10000,
		Seed:           1,
		Workers:        1,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	var errs []string
	if c.Iterations < 1 {
		errs = append(errs, "iterations must be at least 1")
	}
	if c.InitialBalance <= 0 {
		errs = append(errs, "initial balance must be positive")
	}
	if c.Workers < 0 {
		errs = append(errs, "workers must not be negative")
	}
	if len(errs) > 0 {
		return fmt.Errorf("monte carlo config: %s: %w", strings.Join(errs, "; "), ports.ErrInvalidConfig)
	}
	return nil
}

// Source supplies random integers in [0, n).
type Source interface {
	IntN(n int) int
}

// SourceFactory returns the random source for one iteration. Giving every
// iteration its own source keeps results independent of scheduling.
type SourceFactory func(iteration int) Source

// PCGFactory seeds a PCG generator per iteration from (seed, iteration).
func PCGFactory(seed uint64) SourceFactory {
	return func(iteration int) Source {
		return rand.New(rand.NewPCG(seed, uint64(iteration)))
	}
}

// Shuffle permutes values in place with the Fisher–Yates algorithm.
func Shuffle(values []float64, src Source) {
	for i := len(values) - 1; i > 0; i-- {
		j := src.IntN(i + 1)
		values[i], values[j] = values[j], values[i]
	}
}

// Outcome is the result of replaying one trade order.
type Outcome struct {
	FinalBalance float64
	TotalReturn  float64
	MaxDrawdown  float64
	WinRate      float64
	ProfitFactor float64
	SharpeRatio  float64
}

// Simulate replays pnls in order. The i-th pnl is booked at exitTimes[i], so
// the calendar of exits stays fixed while the order of outcomes changes.
func Simulate(pnls []float64, exitTimes []time.Time, initialBalance float64) Outcome {
	out := Outcome{FinalBalance: initialBalance}
	if len(pnls) == 0 {
		return out
	}

	balance, peak := initialBalance, initialBalance
	var wins int
	var grossProfit, grossLoss float64
	equity := make([]domain.EquityPoint, len(pnls))
	for i, pnl := range pnls {
		balance += pnl
		if pnl > 0 {
			wins++
			grossProfit += pnl
		} else {
			grossLoss -= pnl
		}
		peak = math.Max(peak, balance)
		if peak > 0 {
			out.MaxDrawdown = math.Max(out.MaxDrawdown, (peak-balance)/peak)
		}
		equity[i] = domain.EquityPoint{Time: exitTimes[i], Balance: balance}
	}

	out.FinalBalance = balance
	out.TotalReturn = (balance - initialBalance) / initialBalance
	out.WinRate = float64(wins) / float64(len(pnls))
	out.ProfitFactor = analytics.ProfitFactor(grossProfit, grossLoss)
	out.SharpeRatio = analytics.SharpeRatio(analytics.DailyReturns(equity, initialBalance))
	return out
}

// Distribution summarises one metric across all iterations.
type Distribution struct {
	Baseline float64   `json:"baseline" yaml:"baseline"` // Unshuffled ledger
	Mean     float64   `json:"mean" yaml:"mean"`
	CI95Low  float64   `json:"ci95_low" yaml:"ci95_low"`
	CI95High float64   `json:"ci95_high" yaml:"ci95_high"`
	Worst    float64   `json:"worst" yaml:"worst"`
	Median   float64   `json:"median" yaml:"median"`
	Best     float64   `json:"best" yaml:"best"`
	Sorted   []float64 `json:"-" yaml:"-"`
}

// summarize sorts samples and orients Worst/Best. lowerIsBetter flips the
// orientation for metrics such as drawdown.
func summarize(samples []float64, baseline float64, lowerIsBetter bool) Distribution {
	sorted := append([]float64(nil), samples...)
	sort.Float64s(sorted)

	d := Distribution{
		Baseline: baseline,
		CI95Low:  analytics.Percentile(sorted, 2.5),
		CI95High: analytics.Percentile(sorted, 97.5),
		Median:   analytics.Percentile(sorted, 50),
		Sorted:   sorted,
	}
	for _, v := range sorted {
		d.Mean += v
	}
	if len(sorted) > 0 {
		d.Mean /= float64(len(sorted))
		d.Worst, d.Best = sorted[0], sorted[len(sorted)-1]
		if lowerIsBetter {
			d.Worst, d.Best = d.Best, d.Worst
		}
	}
	return d
}

// Result holds the distribution of every simulated metric.
type Result struct {
	Iterations   int
	Trades       int
	Seed         uint64
	FinalBalance Distribution
	TotalReturn  Distribution
	MaxDrawdown  Distribution
	WinRate      Distribution
	ProfitFactor Distribution
	SharpeRatio  Distribution
}

// Estimator runs Monte Carlo trade-order simulations.
type Estimator struct {
	config   Config
	sources  SourceFactory
	logger   ports.Logger
	recorder ports.Recorder
}

// NewEstimator validates config. A nil sources uses PCGFactory(config.Seed);
// a nil recorder discards metrics.
func NewEstimator(config Config, sources SourceFactory, logger ports.Logger, recorder ports.Recorder) (*Estimator, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required for monte carlo estimator")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if sources == nil {
		sources = PCGFactory(config.Seed)
	}
	if recorder == nil {
		recorder = ports.NopRecorder{}
	}
	return &Estimator{config: config, sources: sources, logger: logger, recorder: recorder}, nil
}

// Run simulates Iterations random orderings of trades.
func (e *Estimator) Run(ctx context.Context, trades []*domain.Trade) (*Result, error) {
	ledger := append([]*domain.Trade(nil), trades...)
	sort.SliceStable(ledger, func(i, j int) bool { return ledger[i].ExitTime.Before(ledger[j].ExitTime) })

	pnls := make([]float64, len(ledger))
	exitTimes := make([]time.Time, len(ledger))
	for i, t := range ledger {
		pnls[i] = t.PNL
		exitTimes[i] = t.ExitTime
	}
	baseline := Simulate(pnls, exitTimes, e.config.InitialBalance)

	n := e.config.Iterations
	outcomes := make([]Outcome, n)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, e.config.Workers))
	for i := 0; i < n; i++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			order := append([]float64(nil), pnls...)
			Shuffle(order, e.sources(i))
			outcomes[i] = Simulate(order, exitTimes, e.config.InitialBalance)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("monte carlo interrupted: %w: %w", ports.ErrContextCanceled, err)
	}
	e.recorder.ObserveSimulations(n)

	column := func(pick func(Outcome) float64) []float64 {
		out := make([]float64, n)
		for i, o := range outcomes {
			out[i] = pick(o)
		}
		return out
	}
	res := &Result{
		Iterations:   n,
		Trades:       len(ledger),
		Seed:         e.config.Seed,
		FinalBalance: summarize(column(func(o Outcome) float64 { return o.FinalBalance }), baseline.FinalBalance, false),
		TotalReturn:  summarize(column(func(o Outcome) float64 { return o.TotalReturn }), baseline.TotalReturn, false),
		MaxDrawdown:  summarize(column(func(o Outcome) float64 { return o.MaxDrawdown }), baseline.MaxDrawdown, true),
		WinRate:      summarize(column(func(o Outcome) float64 { return o.WinRate }), baseline.WinRate, false),
		ProfitFactor: summarize(column(func(o Outcome) float64 { return o.ProfitFactor }), baseline.ProfitFactor, false),
		SharpeRatio:  summarize(column(func(o Outcome) float64 { return o.SharpeRatio }), baseline.SharpeRatio, false),
	}

	e.logger.Info(ctx, "Monte Carlo simulation completed", map[string]interface{}{
		"iterations":        n,
		"trades":            res.Trades,
		"median_drawdown":   res.MaxDrawdown.Median,
		"worst_drawdown":    res.MaxDrawdown.Worst,
		"ci95_final_low":    res.FinalBalance.CI95Low,
		"ci95_final_high":   res.FinalBalance.CI95High,
		"baseline_drawdown": res.MaxDrawdown.Baseline,
	})
	return res, nil
}
