package analytics

import (
	"math"
	"time"

	"cryptoBacktester/internal/domain"
)

// TradingDaysPerYear annualises daily ratios; crypto markets trade every day.
const TradingDaysPerYear = 365

func dayKey(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DailyReturns returns the fractional change of the last balance of each
// UTC day relative to the previous day's (initialBalance before the first day).
func DailyReturns(equity []domain.EquityPoint, initialBalance float64) []float64 {
	if len(equity) == 0 {
		return nil
	}
	var returns []float64
	prev := initialBalance
	day := dayKey(equity[0].Time)
	last := equity[0].Balance

	flush := func() {
		if prev > 0 {
			returns = append(returns, last/prev-1)
		} else {
			returns = append(returns, 0)
		}
		prev = last
	}
	for _, p := range equity[1:] {
		if d := dayKey(p.Time); !d.Equal(day) {
			flush()
			day = d
		}
		last = p.Balance
	}
	flush()
	return returns
}

// MeanStdDev returns the mean and sample standard deviation.
func MeanStdDev(values []float64) (mean, std float64) {
	if len(values) == 0 {
		return 0, 0
	}
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))
	if len(values) < 2 {
		return mean, 0
	}
	for _, v := range values {
		std += (v - mean) * (v - mean)
	}
	return mean, math.Sqrt(std / float64(len(values)-1))
}

// SharpeRatio returns the annualised mean/std of daily returns, 0 when the
// deviation is zero or there are fewer than two returns.
func SharpeRatio(daily []float64) float64 {
	mean, std := MeanStdDev(daily)
	if std == 0 {
		return 0
	}
	return Finite(mean / std * math.Sqrt(TradingDaysPerYear))
}

// SortinoRatio is SharpeRatio with downside deviation as the denominator.
func SortinoRatio(daily []float64) float64 {
	if len(daily) < 2 {
		return 0
	}
	mean, _ := MeanStdDev(daily)
	downside := 0.0
	for _, r := range daily {
		if r < 0 {
			downside += r * r
		}
	}
	downside = math.Sqrt(downside / float64(len(daily)))
	if downside == 0 {
		return 0
	}
	return Finite(mean / downside * math.Sqrt(TradingDaysPerYear))
}

// MonthlyReturns segments the equity curve at calendar-month boundaries (UTC).
func MonthlyReturns(equity []domain.EquityPoint, initialBalance float64) []MonthlyReturn {
	if len(equity) == 0 {
		return nil
	}
	monthOf := func(t time.Time) time.Time {
		y, m, _ := t.UTC().Date()
		return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
	}

	var out []MonthlyReturn
	start := initialBalance
	month := monthOf(equity[0].Time)
	last := equity[0].Balance
	flush := func() {
		ret := 0.0
		if start > 0 {
			ret = last/start - 1
		}
		out = append(out, MonthlyReturn{Month: month, Return: ret, Profit: last - start})
		start = last
	}
	for _, p := range equity[1:] {
		if m := monthOf(p.Time); !m.Equal(month) {
			flush()
			month = m
		}
		last = p.Balance
	}
	flush()
	return out
}

// Percentile returns the p-th percentile (0..100) of sorted values using
// linear interpolation between closest ranks.
func Percentile(sorted []float64, p float64) float64 {
	switch len(sorted) {
	case 0:
		return 0
	case 1:
		return sorted[0]
	}
	p = math.Max(0, math.Min(100, p))
	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	frac := rank - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}
