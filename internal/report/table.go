package report

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"cryptoBacktester/internal/domain"
	"cryptoBacktester/internal/strategy/backtesting"
	"cryptoBacktester/internal/strategy/montecarlo"
	"cryptoBacktester/internal/strategy/optimization"
	"cryptoBacktester/internal/strategy/walkforward"
)

// maxCandidateRows limits the optimisation table.
const maxCandidateRows = 10

func newTabWriter(out io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(out, 0, 0, 3, ' ', tabwriter.AlignRight|tabwriter.Debug)
}

func backtestTable(out io.Writer, res *backtesting.Result) error {
	fmt.Fprintf(out, "## Backtest %s %s (%s to %s, %d candles)\n",
		res.Symbol, res.Strategy, res.StartTime.Format("2006-01-02 15:04"), res.EndTime.Format("2006-01-02 15:04"), res.Candles)

	w := newTabWriter(out)
	m := res.PerformanceMetrics
	rows := []struct {
		name  string
		value string
	}{
		{"Initial balance", fmt.Sprintf("%.2f", m.InitialBalance)},
		{"Final balance", fmt.Sprintf("%.2f", m.FinalBalance)},
		{"Net profit", fmt.Sprintf("%.2f", m.NetProfit)},
		{"Return %", fmt.Sprintf("%.2f", m.ReturnOnInvestment*100)},
		{"Annualized %", fmt.Sprintf("%.2f", m.AnnualizedReturn*100)},
		{"Trades", fmt.Sprintf("%d", m.TotalTrades)},
		{"Win rate %", fmt.Sprintf("%.2f", m.WinRate*100)},
		{"Profit factor", fmt.Sprintf("%.2f", m.ProfitFactor)},
		{"Max drawdown %", fmt.Sprintf("%.2f", m.MaxDrawdown*100)},
		{"Sharpe", fmt.Sprintf("%.3f", m.SharpeRatio)},
		{"Sortino", fmt.Sprintf("%.3f", m.SortinoRatio)},
		{"Calmar", fmt.Sprintf("%.3f", m.CalmarRatio)},
		{"Commission", fmt.Sprintf("%.2f", m.TotalCommission)},
		{"Slippage", fmt.Sprintf("%.2f", m.TotalSlippage)},
		{"Avg duration", m.AverageTradeDuration.String()},
	}
	fmt.Fprintln(w, "Metric\tValue\t")
	for _, r := range rows {
		fmt.Fprintf(w, "%s\t%s\t\n", r.name, r.value)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if len(res.Trades) == 0 {
		return nil
	}

	// Close reason breakdown
	counts := make(map[domain.CloseReason]int)
	pnl := make(map[domain.CloseReason]float64)
	for _, t := range res.Trades {
		counts[t.CloseReason]++
		pnl[t.CloseReason] += t.PNL
	}
	reasons := make([]domain.CloseReason, 0, len(counts))
	for r := range counts {
		reasons = append(reasons, r)
	}
	sort.Slice(reasons, func(i, j int) bool { return reasons[i] < reasons[j] })

	fmt.Fprintln(out)
	w = newTabWriter(out)
	fmt.Fprintln(w, "Close reason\tCount\tTotal PnL\tAvg PnL\t")
	for _, r := range reasons {
		fmt.Fprintf(w, "%s\t%d\t%.2f\t%.2f\t\n", r, counts[r], pnl[r], pnl[r]/float64(counts[r]))
	}
	return w.Flush()
}

func optimizationTable(out io.Writer, rep *optimization.Report) error {
	fmt.Fprintf(out, "## Optimization by %s: %d evaluated, %d pruned, %d skipped, %d rejected",
		rep.Objective, rep.Evaluated, rep.Pruned, rep.Skipped, rep.Rejected)
	if rep.Truncated {
		fmt.Fprint(out, " (budget reached)")
	}
	fmt.Fprintln(out)

	w := newTabWriter(out)
	fmt.Fprintln(w, "Rank\tParameters\tTrades\tNet profit\tWin rate %\tMax DD %\tSharpe\tScore\t")
	for i, c := range rep.Candidates {
		if i == maxCandidateRows {
			break
		}
		fmt.Fprintf(w, "%d\t%s\t%d\t%.2f\t%.2f\t%.2f\t%.3f\t%.4f\t\n",
			i+1, FormatValues(c.Values), c.Metrics.TotalTrades, c.Metrics.NetProfit,
			c.Metrics.WinRate*100, c.Metrics.MaxDrawdown*100, c.Metrics.SharpeRatio, c.Score)
	}
	return w.Flush()
}

func walkForwardTable(out io.Writer, res *walkforward.Result) error {
	fmt.Fprintf(out, "## Walk-forward: %d completed, %d failed, robustness %.3f, avg efficiency %.3f, final balance %.2f\n",
		res.Completed, res.Failed, res.Robustness, res.AverageEfficiency, res.FinalBalance)

	w := newTabWriter(out)
	fmt.Fprintln(w, "Fold\tTrain from\tTest from\tTest to\tParameters\tTrain %\tTest %\tEfficiency\tStatus\t")
	for _, f := range res.Folds {
		status := "ok"
		if f.Failed() {
			status = f.Error
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%.2f\t%.2f\t%.3f\t%s\t\n",
			f.Fold.Index,
			f.TrainFrom.Format("2006-01-02"),
			f.TestFrom.Format("2006-01-02"),
			f.TestTo.Format("2006-01-02"),
			FormatValues(f.Values),
			f.TrainingReturn, f.TestingReturn, f.Efficiency, status)
	}
	return w.Flush()
}

func monteCarloTable(out io.Writer, res *montecarlo.Result) error {
	fmt.Fprintf(out, "## Monte Carlo: %d iterations over %d trades (seed %d)\n", res.Iterations, res.Trades, res.Seed)

	w := newTabWriter(out)
	fmt.Fprintln(w, "Metric\tBaseline\tWorst\tMedian\tBest\tCI95 low\tCI95 high\t")
	rows := []struct {
		name string
		d    montecarlo.Distribution
	}{
		{"Final balance", res.FinalBalance},
		{"Total return", res.TotalReturn},
		{"Max drawdown", res.MaxDrawdown},
		{"Win rate", res.WinRate},
		{"Profit factor", res.ProfitFactor},
		{"Sharpe", res.SharpeRatio},
	}
	for _, r := range rows {
		fmt.Fprintf(w, "%s\t%.4f\t%.4f\t%.4f\t%.4f\t%.4f\t%.4f\t\n",
			r.name, r.d.Baseline, r.d.Worst, r.d.Median, r.d.Best, r.d.CI95Low, r.d.CI95High)
	}
	return w.Flush()
}
