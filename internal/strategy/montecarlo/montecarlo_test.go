package montecarlo

import (
	"context"
	"math/rand/v2"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptoBacktester/internal/adapters/logger"
	"cryptoBacktester/internal/domain"
	"cryptoBacktester/internal/ports"
	"cryptoBacktester/internal/testutil"
)

type zeroSource struct{}

func (zeroSource) IntN(int) int { return 0 }

func ledger(pnls ...float64) []*domain.Trade {
	trades := make([]*domain.Trade, len(pnls))
	for i, pnl := range pnls {
		exit := testutil.Start.Add(time.Duration(i) * 24 * time.Hour)
		trades[i] = &domain.Trade{
			ID:        int64(i + 1),
			PNL:       pnl,
			EntryTime: exit.Add(-time.Hour),
			ExitTime:  exit,
		}
	}
	return trades
}

func randomLedger(n int, seed uint64) []*domain.Trade {
	r := rand.New(rand.NewPCG(seed, 0))
	pnls := make([]float64, n)
	for i := range pnls {
		pnls[i] = r.NormFloat64()*100 + 15
	}
	return ledger(pnls...)
}

func newEstimator(t *testing.T, cfg Config) *Estimator {
	t.Helper()
	e, err := NewEstimator(cfg, nil, logger.Nop(), nil)
	require.NoError(t, err)
	return e
}

func TestShuffle_FisherYates(t *testing.T) {
	values := []float64{1, 2, 3, 4}
	Shuffle(values, zeroSource{})
	assert.Equal(t, []float64{2, 3, 4, 1}, values)

	values = []float64{1, 2, 3, 4, 5, 6, 7, 8}
	Shuffle(values, PCGFactory(7)(0))
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	assert.Equal(t, []float64{1, 2, 3, 4, 5, 6, 7, 8}, sorted)
}

func TestSimulate(t *testing.T) {
	trades := ledger(100, -300, 200)
	pnls := []float64{100, -300, 200}
	times := []time.Time{trades[0].ExitTime, trades[1].ExitTime, trades[2].ExitTime}

	out := Simulate(pnls, times, 1000)
	assert.Equal(t, 1000.0, out.FinalBalance)
	assert.Zero(t, out.TotalReturn)
	assert.InDelta(t, 300.0/1100, out.MaxDrawdown, 1e-12)
	assert.InDelta(t, 2.0/3, out.WinRate, 1e-12)
	assert.InDelta(t, 1, out.ProfitFactor, 1e-12)

	empty := Simulate(nil, nil, 1000)
	assert.Equal(t, Outcome{FinalBalance: 1000}, empty)
}

func TestNewEstimator_Validation(t *testing.T) {
	_, err := NewEstimator(Config{Iterations: 0, InitialBalance: 1}, nil, logger.Nop(), nil)
	assert.ErrorIs(t, err, ports.ErrInvalidConfig)
	_, err = NewEstimator(DefaultConfig(), nil, nil, nil)
	assert.Error(t, err)
}

func TestRun_OrderingAndIntervals(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Iterations = 500
	res, err := newEstimator(t, cfg).Run(context.Background(), randomLedger(60, 5))
	require.NoError(t, err)

	assert.Equal(t, 500, res.Iterations)
	assert.Equal(t, 60, res.Trades)

	higherIsBetter := map[string]Distribution{
		"final_balance": res.FinalBalance,
		"total_return":  res.TotalReturn,
		"win_rate":      res.WinRate,
		"profit_factor": res.ProfitFactor,
		"sharpe":        res.SharpeRatio,
	}
	for name, d := range higherIsBetter {
		assert.LessOrEqual(t, d.Worst, d.Median, name)
		assert.LessOrEqual(t, d.Median, d.Best, name)
		assert.LessOrEqual(t, d.CI95Low, d.CI95High, name)
		assert.Len(t, d.Sorted, 500, name)
		assert.True(t, sort.Float64sAreSorted(d.Sorted), name)
	}

	dd := res.MaxDrawdown
	assert.GreaterOrEqual(t, dd.Worst, dd.Median, "a larger drawdown is worse")
	assert.GreaterOrEqual(t, dd.Median, dd.Best)
	assert.LessOrEqual(t, dd.CI95Low, dd.CI95High)

	// Order-independent metrics collapse onto the baseline.
	for name, d := range map[string]Distribution{
		"final_balance": res.FinalBalance,
		"win_rate":      res.WinRate,
		"profit_factor": res.ProfitFactor,
	} {
		assert.InDelta(t, d.Baseline, d.CI95Low, 1e-9, name)
		assert.InDelta(t, d.Baseline, d.CI95High, 1e-9, name)
	}
}

func TestRun_BaselineUsuallyInsideCI(t *testing.T) {
	// An i.i.d. ledger is one draw from the shuffle distribution, so its
	// order-dependent metrics land inside the 95% interval about 95% of the time.
	const runs = 100
	inside := map[string]int{}
	for seed := uint64(1); seed <= runs; seed++ {
		cfg := DefaultConfig()
		cfg.Iterations = 200
		cfg.Seed = seed
		res, err := newEstimator(t, cfg).Run(context.Background(), randomLedger(60, 1000+seed))
		require.NoError(t, err)

		for name, d := range map[string]Distribution{
			"max_drawdown": res.MaxDrawdown,
			"sharpe":       res.SharpeRatio,
		} {
			if d.Baseline >= d.CI95Low && d.Baseline <= d.CI95High {
				inside[name]++
			}
		}
	}

	for _, name := range []string{"max_drawdown", "sharpe"} {
		assert.GreaterOrEqual(t, inside[name], runs*85/100, name)
	}
}

func TestRun_AdversarialOrderIsWorstCase(t *testing.T) {
	// All losses before all gains gives the deepest possible drawdown.
	cfg := DefaultConfig()
	cfg.Iterations = 200
	res, err := newEstimator(t, cfg).Run(context.Background(), ledger(-200, -150, -100, 120, 180, 250, 90))
	require.NoError(t, err)

	assert.InDelta(t, 450.0/10000, res.MaxDrawdown.Baseline, 1e-12)
	assert.LessOrEqual(t, res.MaxDrawdown.Worst, res.MaxDrawdown.Baseline+1e-12)
	assert.Less(t, res.MaxDrawdown.Median, res.MaxDrawdown.Baseline)
}

func TestRun_Deterministic(t *testing.T) {
	trades := randomLedger(40, 9)
	cfg := DefaultConfig()
	cfg.Iterations = 300
	cfg.Seed = 42

	first, err := newEstimator(t, cfg).Run(context.Background(), trades)
	require.NoError(t, err)

	cfg.Workers = 4
	second, err := newEstimator(t, cfg).Run(context.Background(), trades)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	cfg.Seed = 43
	third, err := newEstimator(t, cfg).Run(context.Background(), trades)
	require.NoError(t, err)
	assert.NotEqual(t, first.MaxDrawdown.Sorted, third.MaxDrawdown.Sorted)
}

func TestRun_InjectedSource(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Iterations = 3
	e, err := NewEstimator(cfg, func(int) Source { return zeroSource{} }, logger.Nop(), nil)
	require.NoError(t, err)

	res, err := e.Run(context.Background(), ledger(-100, 50, 50))
	require.NoError(t, err)
	// zeroSource rotates the ledger left: 50, 50, -100
	for _, v := range res.MaxDrawdown.Sorted {
		assert.InDelta(t, 100.0/10100, v, 1e-12)
	}
}

func TestRun_EmptyLedger(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Iterations = 10
	res, err := newEstimator(t, cfg).Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, res.Trades)
	assert.Equal(t, cfg.InitialBalance, res.FinalBalance.Median)
	assert.Zero(t, res.MaxDrawdown.Worst)
	assert.Zero(t, res.SharpeRatio.Best)
}

func TestRun_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newEstimator(t, DefaultConfig()).Run(ctx, randomLedger(10, 1))
	assert.ErrorIs(t, err, ports.ErrContextCanceled)
}
