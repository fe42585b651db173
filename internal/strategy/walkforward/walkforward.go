package walkforward

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"cryptoBacktester/internal/domain"
	"cryptoBacktester/internal/ports"
	"cryptoBacktester/internal/strategy/analytics"
	"cryptoBacktester/internal/strategy/backtesting"
	"cryptoBacktester/internal/strategy/optimization"
)

// MaxEfficiency bounds the efficiency ratio in both directions.
const MaxEfficiency = 10

// FoldResult is the outcome of one fold. Failed folds carry Error and no results.
type FoldResult struct {
	Fold           Fold
	TrainFrom      time.Time
	TestFrom       time.Time
	TestTo         time.Time
	Values         map[string]float64 // Winning grid values
	Training       *backtesting.Result
	Testing        *backtesting.Result
	TrainingReturn float64 // Percent
	TestingReturn  float64 // Percent
	Efficiency     float64
	Err            error `json:"-" yaml:"-"`
	Error          string
}

// Failed reports whether the fold contributed nothing to the aggregate.
func (f FoldResult) Failed() bool {
	return f.Err != nil
}

// Result aggregates every fold.
type Result struct {
	Folds             []FoldResult
	Completed         int
	Failed            int
	InSampleProfit    float64
	OutOfSampleProfit float64
	Robustness        float64 // OutOfSampleProfit / InSampleProfit; near 1 means little overfitting
	AverageEfficiency float64
	InitialBalance    float64
	FinalBalance      float64
}

// Analyzer runs walk-forward analysis with an optimizer.
type Analyzer struct {
	optimizer *optimization.Optimizer
	config    Config
	logger    ports.Logger
	recorder  ports.Recorder
}

// NewAnalyzer validates its dependencies. A nil recorder discards metrics.
func NewAnalyzer(optimizer *optimization.Optimizer, config Config, logger ports.Logger, recorder ports.Recorder) (*Analyzer, error) {
	if optimizer == nil {
		return nil, fmt.Errorf("optimizer is required for walk-forward analysis")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for walk-forward analysis")
	}
	if recorder == nil {
		recorder = ports.NopRecorder{}
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Analyzer{optimizer: optimizer, config: config, logger: logger, recorder: recorder}, nil
}

// Run processes folds in order, carrying the out-of-sample balance from one
// fold to the next. A failed fold is recorded and skipped. Run returns
// ErrNoViableCandidate with the result when no fold completes.
func (a *Analyzer) Run(ctx context.Context, klines []*domain.Kline) (*Result, error) {
	folds, err := BuildFolds(len(klines), a.config)
	if err != nil {
		return nil, err
	}

	initial := a.optimizer.Config().Backtest.InitialBalance
	res := &Result{InitialBalance: initial, FinalBalance: initial}
	efficiencySum := 0.0

	for _, fold := range folds {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("walk-forward interrupted before fold %d: %w: %w", fold.Index, ports.ErrContextCanceled, err)
		}

		fr, err := a.runFold(ctx, klines, fold, res.FinalBalance)
		if err != nil && errors.Is(err, ports.ErrContextCanceled) {
			return nil, err
		}
		if err != nil {
			fr.Err = err
			fr.Error = err.Error()
			res.Failed++
			a.recorder.ObserveFold("failed")
			a.logger.Warn(ctx, "Walk-forward fold failed", map[string]interface{}{
				"fold":  fold.Index,
				"error": err.Error(),
			})
			res.Folds = append(res.Folds, fr)
			continue
		}

		res.Completed++
		res.InSampleProfit += fr.Training.NetProfit
		res.OutOfSampleProfit += fr.Testing.NetProfit
		res.FinalBalance = fr.Testing.FinalBalance
		efficiencySum += fr.Efficiency
		res.Folds = append(res.Folds, fr)
		a.recorder.ObserveFold("completed")

		a.logger.Info(ctx, "Walk-forward fold completed", map[string]interface{}{
			"fold":            fold.Index,
			"values":          fr.Values,
			"training_return": fr.TrainingReturn,
			"testing_return":  fr.TestingReturn,
			"efficiency":      fr.Efficiency,
			"balance":         res.FinalBalance,
		})
	}

	if res.Completed > 0 {
		res.AverageEfficiency = efficiencySum / float64(res.Completed)
	}
	if res.InSampleProfit != 0 {
		res.Robustness = analytics.Finite(res.OutOfSampleProfit / res.InSampleProfit)
	}

	if res.Completed == 0 {
		return res, fmt.Errorf("all %d walk-forward folds failed: %w", res.Failed, ports.ErrNoViableCandidate)
	}
	return res, nil
}

func (a *Analyzer) runFold(ctx context.Context, klines []*domain.Kline, fold Fold, balance float64) (FoldResult, error) {
	fr := FoldResult{
		Fold:      fold,
		TrainFrom: klines[fold.TrainStart].OpenTime,
		TestFrom:  klines[fold.TestStart].OpenTime,
		TestTo:    klines[fold.TestEnd-1].OpenTime,
	}
	training := klines[fold.TrainStart:fold.TrainEnd]

	report, err := a.optimizer.Optimize(ctx, training)
	if err != nil {
		return fr, fmt.Errorf("optimizing fold %d: %w", fold.Index, err)
	}
	fr.Values = report.Best.Values

	engine, err := a.optimizer.Engine(report.Best.Parameters, balance)
	if err != nil {
		return fr, fmt.Errorf("building fold %d engine: %w", fold.Index, err)
	}
	if fr.Training, err = engine.Run(ctx, training); err != nil {
		return fr, fmt.Errorf("backtesting fold %d training window: %w", fold.Index, err)
	}
	// Training klines are warm-up history for the testing window.
	window := klines[fold.TrainStart:fold.TestEnd]
	if fr.Testing, err = engine.RunFrom(ctx, window, fold.TestStart-fold.TrainStart); err != nil {
		return fr, fmt.Errorf("backtesting fold %d testing window: %w", fold.Index, err)
	}

	fr.TrainingReturn = fr.Training.ReturnOnInvestment * 100
	fr.TestingReturn = fr.Testing.ReturnOnInvestment * 100
	fr.Efficiency = Efficiency(fr.TrainingReturn, fr.TestingReturn)
	return fr, nil
}

// Efficiency returns testingReturn / trainingReturn, clamped to
// ±MaxEfficiency. A zero training return gives 0.
func Efficiency(trainingReturn, testingReturn float64) float64 {
	if trainingReturn == 0 {
		return 0
	}
	e := testingReturn / trainingReturn
	return math.Max(-MaxEfficiency, math.Min(MaxEfficiency, analytics.Finite(e)))
}
