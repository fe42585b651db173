// Package report renders run results as a table, JSON or YAML.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"cryptoBacktester/internal/domain"
	"cryptoBacktester/internal/ports"
	"cryptoBacktester/internal/strategy/analytics"
	"cryptoBacktester/internal/strategy/backtesting"
	"cryptoBacktester/internal/strategy/montecarlo"
	"cryptoBacktester/internal/strategy/optimization"
	"cryptoBacktester/internal/strategy/walkforward"
)

// Format is an output encoding.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// ParseFormat maps a name to a Format. Empty means table.
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(name)); f {
	case "":
		return FormatTable, nil
	case FormatTable, FormatJSON, FormatYAML:
		return f, nil
	}
	return "", fmt.Errorf("unknown report format %q: %w", name, ports.ErrInvalidConfig)
}

// Kind names the run a report describes.
type Kind string

const (
	KindBacktest     Kind = "backtest"
	KindOptimization Kind = "optimization"
	KindWalkForward  Kind = "walkforward"
	KindMonteCarlo   Kind = "montecarlo"
)

// Envelope wraps structured output with a run ID.
type Envelope struct {
	RunID       string      `json:"run_id" yaml:"run_id"`
	Kind        Kind        `json:"kind" yaml:"kind"`
	GeneratedAt time.Time   `json:"generated_at" yaml:"generated_at"`
	Data        interface{} `json:"data" yaml:"data"`
}

// Writer renders results to an io.Writer.
type Writer struct {
	out    io.Writer
	format Format
	now    func() time.Time
}

// NewWriter returns a Writer for format.
func NewWriter(out io.Writer, format Format) (*Writer, error) {
	if out == nil {
		return nil, fmt.Errorf("output writer is required for report")
	}
	if _, err := ParseFormat(string(format)); err != nil {
		return nil, err
	}
	if format == "" {
		format = FormatTable
	}
	return &Writer{out: out, format: format, now: time.Now}, nil
}

func (w *Writer) encode(kind Kind, data interface{}) error {
	env := Envelope{
		RunID:       uuid.NewString(),
		Kind:        kind,
		GeneratedAt: w.now().UTC(),
		Data:        data,
	}
	switch w.format {
	case FormatJSON:
		enc := json.NewEncoder(w.out)
		enc.SetIndent("", "  ")
		return enc.Encode(env)
	case FormatYAML:
		enc := yaml.NewEncoder(w.out)
		enc.SetIndent(2)
		if err := enc.Encode(env); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("format %q is not structured", w.format)
}

// BacktestView is the structured form of a backtest result.
type BacktestView struct {
	Symbol    string                       `json:"symbol" yaml:"symbol"`
	Strategy  string                       `json:"strategy" yaml:"strategy"`
	StartTime time.Time                    `json:"start_time" yaml:"start_time"`
	EndTime   time.Time                    `json:"end_time" yaml:"end_time"`
	Candles   int                          `json:"candles" yaml:"candles"`
	Metrics   analytics.PerformanceMetrics `json:"metrics" yaml:"metrics"`
	Trades    []*domain.Trade              `json:"trades" yaml:"trades"`
}

// Backtest renders a single backtest.
func (w *Writer) Backtest(res *backtesting.Result) error {
	if w.format != FormatTable {
		return w.encode(KindBacktest, BacktestView{
			Symbol:    res.Symbol,
			Strategy:  res.Strategy,
			StartTime: res.StartTime,
			EndTime:   res.EndTime,
			Candles:   res.Candles,
			Metrics:   res.PerformanceMetrics,
			Trades:    res.Trades,
		})
	}
	return backtestTable(w.out, res)
}

// Optimization renders an optimisation report.
func (w *Writer) Optimization(rep *optimization.Report) error {
	if w.format != FormatTable {
		return w.encode(KindOptimization, rep)
	}
	return optimizationTable(w.out, rep)
}

// WalkForward renders a walk-forward result.
func (w *Writer) WalkForward(res *walkforward.Result) error {
	if w.format != FormatTable {
		return w.encode(KindWalkForward, res)
	}
	return walkForwardTable(w.out, res)
}

// MonteCarlo renders a Monte Carlo result.
func (w *Writer) MonteCarlo(res *montecarlo.Result) error {
	if w.format != FormatTable {
		return w.encode(KindMonteCarlo, res)
	}
	return monteCarloTable(w.out, res)
}

// FormatValues renders grid values as "a=1 b=2" in name order.
func FormatValues(values map[string]float64) string {
	names := make([]string, 0, len(values))
	for n := range values {
		names = append(names, n)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = fmt.Sprintf("%s=%g", n, values[n])
	}
	return strings.Join(parts, " ")
}
