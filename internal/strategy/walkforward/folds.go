// Package walkforward re-optimizes a strategy on rolling training windows and
// scores each winner on the following out-of-sample window.
package walkforward

import (
	"fmt"
	"math"
	"strings"

	"cryptoBacktester/internal/ports"
)

// Mode selects how folds are laid out.
type Mode string

const (
	// ModeFixed uses fixed training and testing lengths, advancing by the testing length.
	ModeFixed Mode = "fixed"
	// ModePercentage splits the series into FoldCount equal segments, each
	// divided into training and testing by TrainingPercent.
	ModePercentage Mode = "percentage"
)

// Config holds walk-forward settings. Periods are counted in klines.
type Config struct {
	Mode            Mode
	TrainingPeriod  int
	TestingPeriod   int
	FoldCount       int
	TrainingPercent float64 // Fraction of each segment used for training, e.g. 0.7
}

// DefaultConfig returns fixed 500/100 kline windows.
func DefaultConfig() Config {
	return Config{
		Mode:            ModeFixed,
		TrainingPeriod:  500,
		TestingPeriod:   100,
		FoldCount:       5,
		TrainingPercent: 0.7,
	}
}

// Validate checks the settings used by the selected mode.
func (c Config) Validate() error {
	var errs []string
	switch c.Mode {
	case ModeFixed:
		if c.TrainingPeriod <= 0 || c.TestingPeriod <= 0 {
			errs = append(errs, "training and testing periods must be positive")
		}
	case ModePercentage:
		if c.FoldCount < 1 {
			errs = append(errs, "fold count must be at least 1")
		}
		if c.TrainingPercent <= 0 || c.TrainingPercent >= 1 {
			errs = append(errs, "training percent must be in (0, 1)")
		}
	default:
		errs = append(errs, fmt.Sprintf("unknown mode %q", c.Mode))
	}
	if len(errs) > 0 {
		return fmt.Errorf("walk-forward config: %s: %w", strings.Join(errs, "; "), ports.ErrInvalidConfig)
	}
	return nil
}

// Fold is a pair of half-open kline index ranges: [TrainStart, TrainEnd)
// for training and [TestStart, TestEnd) for testing, with TestStart == TrainEnd.
type Fold struct {
	Index      int `json:"index" yaml:"index"`
	TrainStart int `json:"train_start" yaml:"train_start"`
	TrainEnd   int `json:"train_end" yaml:"train_end"`
	TestStart  int `json:"test_start" yaml:"test_start"`
	TestEnd    int `json:"test_end" yaml:"test_end"`
}

// BuildFolds lays out folds over n klines. Testing windows are sequential and
// never overlap; a trailing fold that does not fit entirely is dropped.
func BuildFolds(n int, cfg Config) ([]Fold, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var folds []Fold
	switch cfg.Mode {
	case ModeFixed:
		for start := 0; start+cfg.TrainingPeriod+cfg.TestingPeriod <= n; start += cfg.TestingPeriod {
			trainEnd := start + cfg.TrainingPeriod
			folds = append(folds, Fold{
				Index:      len(folds),
				TrainStart: start,
				TrainEnd:   trainEnd,
				TestStart:  trainEnd,
				TestEnd:    trainEnd + cfg.TestingPeriod,
			})
		}
	case ModePercentage:
		segment := n / cfg.FoldCount
		train := int(math.Floor(float64(segment) * cfg.TrainingPercent))
		if train < 1 || segment-train < 1 {
			return nil, fmt.Errorf("%d klines cannot be split into %d folds: %w", n, cfg.FoldCount, ports.ErrInsufficientData)
		}
		for i := 0; i < cfg.FoldCount; i++ {
			start := i * segment
			folds = append(folds, Fold{
				Index:      i,
				TrainStart: start,
				TrainEnd:   start + train,
				TestStart:  start + train,
				TestEnd:    start + segment,
			})
		}
	}

	if len(folds) == 0 {
		return nil, fmt.Errorf("%d klines are too few for one %s fold: %w", n, cfg.Mode, ports.ErrInsufficientData)
	}
	return folds, nil
}
