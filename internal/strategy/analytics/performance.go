package analytics

import (
	"math"
	"time"

	"cryptoBacktester/internal/domain"
)

// ProfitFactorCap is reported as the profit factor when there are profits but no losses.
const ProfitFactorCap = 999.0

// PerformanceMetrics holds comprehensive performance metrics for a strategy.
// All ratios are finite; undefined ratios are reported as 0.
type PerformanceMetrics struct {
	// Basic Metrics
	TotalTrades        int
	WinningTrades      int
	LosingTrades       int
	WinRate            float64
	NetProfit          float64
	GrossProfit        float64
	GrossLoss          float64 // Positive amount
	TotalCommission    float64
	TotalSlippage      float64
	MaxDrawdown        float64 // Fraction of the balance watermark
	MaxDrawdownAmount  float64
	ProfitFactor       float64
	AverageWin         float64
	AverageLoss        float64 // Negative or zero
	LargestWin         float64
	LargestLoss        float64
	InitialBalance     float64
	FinalBalance       float64
	ReturnOnInvestment float64 // Fraction of initial balance
	AnnualizedReturn   float64

	// Risk-adjusted
	SharpeRatio  float64
	SortinoRatio float64
	CalmarRatio  float64

	// Advanced Metrics
	MaxConsecutiveWins   int
	MaxConsecutiveLosses int
	AverageTradeDuration time.Duration
	RecoveryFactor       float64
	Expectancy           float64
	RiskRewardRatio      float64
	MonthlyReturns       []MonthlyReturn
	Drawdowns            []Drawdown
}

// Drawdown represents a peak-to-recovery drawdown episode.
type Drawdown struct {
	StartTime  time.Time
	EndTime    time.Time
	StartValue float64 // Peak balance
	LowValue   float64
	Depth      float64 // Deepest fraction below the peak
	Duration   time.Duration
	Recovered  bool
}

// MonthlyReturn represents the balance change over one calendar month.
type MonthlyReturn struct {
	Month  time.Time // First instant of the month, UTC
	Return float64   // Fraction of the balance at the start of the month
	Profit float64
}

// AnalyzePerformance derives metrics from a chronological trade ledger and
// equity curve. With no trades every metric is zero and FinalBalance equals
// initialBalance.
func AnalyzePerformance(trades []*domain.Trade, equity []domain.EquityPoint, initialBalance float64) PerformanceMetrics {
	metrics := PerformanceMetrics{
		InitialBalance: initialBalance,
		FinalBalance:   initialBalance,
	}
	if len(trades) == 0 {
		return metrics
	}

	var consecutiveWins, consecutiveLosses int
	var totalDuration time.Duration
	for _, trade := range trades {
		metrics.TotalTrades++
		metrics.NetProfit += trade.PNL
		metrics.TotalCommission += trade.Commission
		metrics.TotalSlippage += trade.Slippage
		totalDuration += trade.Duration()

		if trade.PNL > 0 {
			metrics.WinningTrades++
			metrics.GrossProfit += trade.PNL
			metrics.LargestWin = math.Max(metrics.LargestWin, trade.PNL)
			consecutiveWins++
			consecutiveLosses = 0
		} else {
			metrics.LosingTrades++
			metrics.GrossLoss -= trade.PNL
			metrics.LargestLoss = math.Min(metrics.LargestLoss, trade.PNL)
			consecutiveLosses++
			consecutiveWins = 0
		}
		metrics.MaxConsecutiveWins = max(metrics.MaxConsecutiveWins, consecutiveWins)
		metrics.MaxConsecutiveLosses = max(metrics.MaxConsecutiveLosses, consecutiveLosses)
	}

	n := float64(metrics.TotalTrades)
	metrics.FinalBalance = initialBalance + metrics.NetProfit
	metrics.WinRate = float64(metrics.WinningTrades) / n
	metrics.AverageTradeDuration = totalDuration / time.Duration(metrics.TotalTrades)
	metrics.Expectancy = metrics.NetProfit / n
	if metrics.WinningTrades > 0 {
		metrics.AverageWin = metrics.GrossProfit / float64(metrics.WinningTrades)
	}
	if metrics.LosingTrades > 0 {
		metrics.AverageLoss = -metrics.GrossLoss / float64(metrics.LosingTrades)
	}
	metrics.ProfitFactor = ProfitFactor(metrics.GrossProfit, metrics.GrossLoss)
	if metrics.AverageLoss != 0 {
		metrics.RiskRewardRatio = metrics.AverageWin / -metrics.AverageLoss
	}
	if initialBalance > 0 {
		metrics.ReturnOnInvestment = metrics.NetProfit / initialBalance
	}

	metrics.Drawdowns, metrics.MaxDrawdown, metrics.MaxDrawdownAmount = drawdownEpisodes(equity, initialBalance)
	if metrics.MaxDrawdownAmount > 0 {
		metrics.RecoveryFactor = metrics.NetProfit / metrics.MaxDrawdownAmount
	}

	metrics.AnnualizedReturn = annualize(metrics.ReturnOnInvestment, span(trades, equity))
	if metrics.MaxDrawdown > 0 {
		metrics.CalmarRatio = metrics.AnnualizedReturn / metrics.MaxDrawdown
	}

	daily := DailyReturns(equity, initialBalance)
	metrics.SharpeRatio = SharpeRatio(daily)
	metrics.SortinoRatio = SortinoRatio(daily)
	metrics.MonthlyReturns = MonthlyReturns(equity, initialBalance)

	return metrics.sanitized()
}

// ProfitFactor returns grossProfit/grossLoss, ProfitFactorCap when there is
// profit without loss, and 0 when there is neither.
func ProfitFactor(grossProfit, grossLoss float64) float64 {
	if grossLoss <= 0 {
		if grossProfit > 0 {
			return ProfitFactorCap
		}
		return 0
	}
	return math.Min(grossProfit/grossLoss, ProfitFactorCap)
}

// span returns the time covered by the equity curve, or by the trades without one.
func span(trades []*domain.Trade, equity []domain.EquityPoint) time.Duration {
	if len(equity) > 1 {
		return equity[len(equity)-1].Time.Sub(equity[0].Time)
	}
	return trades[len(trades)-1].ExitTime.Sub(trades[0].EntryTime)
}

// annualize scales a simple return linearly to one year. Spans shorter than a
// day count as one day so short tests do not explode.
func annualize(ret float64, d time.Duration) float64 {
	days := math.Max(d.Hours()/24, 1)
	return ret * 365 / days
}

func drawdownEpisodes(equity []domain.EquityPoint, initialBalance float64) ([]Drawdown, float64, float64) {
	var (
		episodes  []Drawdown
		current   *Drawdown
		maxDepth  float64
		maxAmount float64
	)
	peak := initialBalance
	for _, p := range equity {
		if p.Balance >= peak {
			if current != nil {
				current.EndTime = p.Time
				current.Duration = current.EndTime.Sub(current.StartTime)
				current.Recovered = true
				episodes = append(episodes, *current)
				current = nil
			}
			peak = p.Balance
			continue
		}
		depth := 0.0
		if peak > 0 {
			depth = (peak - p.Balance) / peak
		}
		if current == nil {
			current = &Drawdown{StartTime: p.Time, StartValue: peak, LowValue: p.Balance}
		}
		if p.Balance < current.LowValue {
			current.LowValue = p.Balance
		}
		current.Depth = math.Max(current.Depth, depth)
		maxDepth = math.Max(maxDepth, depth)
		maxAmount = math.Max(maxAmount, peak-p.Balance)
	}
	if current != nil {
		current.EndTime = equity[len(equity)-1].Time
		current.Duration = current.EndTime.Sub(current.StartTime)
		episodes = append(episodes, *current)
	}
	return episodes, maxDepth, maxAmount
}

// sanitized replaces any non-finite ratio with 0.
func (m PerformanceMetrics) sanitized() PerformanceMetrics {
	for _, f := range []*float64{
		&m.WinRate, &m.ProfitFactor, &m.ReturnOnInvestment, &m.AnnualizedReturn,
		&m.SharpeRatio, &m.SortinoRatio, &m.CalmarRatio, &m.RecoveryFactor,
		&m.Expectancy, &m.RiskRewardRatio, &m.MaxDrawdown,
	} {
		*f = Finite(*f)
	}
	return m
}

// Finite returns v, or 0 when v is NaN or infinite.
func Finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
