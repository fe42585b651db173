package strategies

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptoBacktester/internal/adapters/logger"
	"cryptoBacktester/internal/domain"
	"cryptoBacktester/internal/ports"
	"cryptoBacktester/internal/testutil"
)

type signalAt struct {
	index int
	sig   domain.Signal
}

// signalsOver evaluates every prefix of klines and returns the non-HOLD signals.
func signalsOver(t *testing.T, e *Executor, klines []*domain.Kline) []signalAt {
	t.Helper()
	var out []signalAt
	for i := range klines {
		sig := e.Evaluate(context.Background(), klines[:i+1])
		if sig.Type != domain.SignalHold {
			out = append(out, signalAt{i, sig})
		}
		assert.GreaterOrEqual(t, sig.Confidence, 0.0)
		assert.LessOrEqual(t, sig.Confidence, 0.9)
	}
	return out
}

func maParams(fast, slow int) Parameters {
	p := DefaultParameters()
	p.FastPeriod, p.SlowPeriod = fast, slow
	return p
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name    string
		typ     Type
		mutate  func(*Parameters)
		wantErr bool
	}{
		{"defaults ma", TypeMACrossover, func(*Parameters) {}, false},
		{"defaults composite", TypeComposite, func(*Parameters) {}, false},
		{"fast not below slow", TypeMACrossover, func(p *Parameters) { p.FastPeriod = 30 }, true},
		{"zero rsi period", TypeRSI, func(p *Parameters) { p.RSIPeriod = 0 }, true},
		{"inverted thresholds", TypeRSI, func(p *Parameters) { p.RSIOversold = 80 }, true},
		{"macd fast above slow", TypeMACD, func(p *Parameters) { p.MACDFast = 40 }, true},
		{"band multiplier", TypeBollinger, func(p *Parameters) { p.BollingerMultiplier = 0 }, true},
		{"weights above one", TypeComposite, func(p *Parameters) { p.MAWeight = 0.6 }, true},
		{"disabled weight ignored", TypeComposite, func(p *Parameters) { p.UseMA = false; p.MAWeight = 5 }, false},
		{"nothing enabled", TypeComposite, func(p *Parameters) {
			p.UseMA, p.UseRSI, p.UseMACD, p.UseBollinger = false, false, false, false
		}, true},
		{"unknown type", Type("momentum"), func(*Parameters) {}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParameters()
			tt.mutate(&p)
			_, err := New(tt.typ, p, logger.Nop())
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ports.ErrInvalidParameterSet))
				return
			}
			require.NoError(t, err)
		})
	}

	_, err := New(TypeMACrossover, DefaultParameters(), nil)
	assert.Error(t, err, "nil logger must be rejected")
}

func TestParametersSet(t *testing.T) {
	p := DefaultParameters()
	p, err := p.Apply(map[string]float64{"fast_period": 7.0000001, "bb_multiplier": 2.5, "use_rsi": 0})
	require.NoError(t, err)
	assert.Equal(t, 7, p.FastPeriod)
	assert.Equal(t, 2.5, p.BollingerMultiplier)
	assert.False(t, p.UseRSI)

	err = p.Set("nope", 1)
	assert.ErrorIs(t, err, ports.ErrInvalidParameterSet)
}

func TestMACrossover_ExactlyOneSignalAtCrossover(t *testing.T) {
	// Flat for 25 candles, then rising: the averages are equal until step 25.
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100
		if i >= 25 {
			closes[i] = 100 + float64(i-24)
		}
	}
	e, err := New(TypeMACrossover, maParams(5, 20), logger.Nop())
	require.NoError(t, err)

	got := signalsOver(t, e, testutil.FromCloses(closes))
	require.Len(t, got, 1)
	assert.Equal(t, 25, got[0].index)
	assert.Equal(t, domain.SignalBuy, got[0].sig.Type)
	assert.GreaterOrEqual(t, got[0].sig.Confidence, 0.5)
}

func TestMACrossover_BearishCrossover(t *testing.T) {
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 100
		if i >= 22 {
			closes[i] = 100 - float64(i-21)
		}
	}
	e, err := New(TypeEMACrossover, maParams(3, 10), logger.Nop())
	require.NoError(t, err)

	got := signalsOver(t, e, testutil.FromCloses(closes))
	require.Len(t, got, 1)
	assert.Equal(t, 22, got[0].index)
	assert.Equal(t, domain.SignalSell, got[0].sig.Type)
}

func TestMACrossover_RisingSeriesSignalsAtFirstSlowValue(t *testing.T) {
	e, err := New(TypeMACrossover, maParams(5, 20), logger.Nop())
	require.NoError(t, err)
	assert.Equal(t, 20, e.Lookback())

	got := signalsOver(t, e, testutil.Geometric(100, 100, 0.01))
	require.Len(t, got, 1)
	assert.Equal(t, 19, got[0].index)
	assert.Equal(t, domain.SignalBuy, got[0].sig.Type)
	assert.Equal(t, 0.9, got[0].sig.Confidence)
}

func TestMACrossover_TrendAtFirstSlowValueSignalsThenCrossesBack(t *testing.T) {
	// Falls 200 -> 161, then rises by 2 per candle.
	closes := make([]float64, 70)
	for i := range closes {
		closes[i] = 200 - float64(i)
		if i > 39 {
			closes[i] = 161 + 2*float64(i-39)
		}
	}
	e, err := New(TypeMACrossover, maParams(5, 20), logger.Nop())
	require.NoError(t, err)

	got := signalsOver(t, e, testutil.FromCloses(closes))
	require.Len(t, got, 2)

	// fast 183 vs slow 190.5 with no prior ordering.
	assert.Equal(t, 19, got[0].index)
	assert.Equal(t, domain.SignalSell, got[0].sig.Type)
	assert.InDelta(t, 0.5+10*7.5/190.5, got[0].sig.Confidence, 1e-9)

	assert.Equal(t, 45, got[1].index)
	assert.Equal(t, domain.SignalBuy, got[1].sig.Type)
}

func TestEvaluate_InsufficientHistoryHolds(t *testing.T) {
	for _, typ := range Types() {
		e, err := New(typ, DefaultParameters(), logger.Nop())
		require.NoError(t, err)
		sig := e.Evaluate(context.Background(), testutil.Geometric(e.Lookback()-1, 100, 0.01))
		assert.Equal(t, domain.SignalHold, sig.Type, typ)
		assert.Zero(t, sig.Confidence, typ)
	}
}

func TestEvaluate_FlatSeriesNeverSignals(t *testing.T) {
	klines := testutil.Flat(120, 100)
	for _, typ := range Types() {
		e, err := New(typ, DefaultParameters(), logger.Nop())
		require.NoError(t, err)
		assert.Empty(t, signalsOver(t, e, klines), typ)
	}
}

func TestRSI_CrossBackFromOversold(t *testing.T) {
	p := DefaultParameters()
	p.RSIPeriod = 3
	e, err := New(TypeRSI, p, logger.Nop())
	require.NoError(t, err)

	klines := testutil.FromCloses([]float64{110, 108, 106, 104, 102, 100, 103})
	sig := e.Evaluate(context.Background(), klines)
	assert.Equal(t, domain.SignalBuy, sig.Type)
	assert.Equal(t, 0.9, sig.Confidence)

	sig = e.Evaluate(context.Background(), klines[:6])
	assert.Equal(t, domain.SignalHold, sig.Type)
}

func TestMACD_HistogramFlip(t *testing.T) {
	closes := make([]float64, 45)
	for i := range closes {
		closes[i] = 100
		if i >= 40 {
			closes[i] = 100 + float64(i-39)
		}
	}
	e, err := New(TypeMACD, DefaultParameters(), logger.Nop())
	require.NoError(t, err)

	got := signalsOver(t, e, testutil.FromCloses(closes))
	require.NotEmpty(t, got)
	assert.Equal(t, 40, got[0].index)
	assert.Equal(t, domain.SignalBuy, got[0].sig.Type)
}

func TestBollinger_BreakBelowLowerBand(t *testing.T) {
	closes := make([]float64, 21)
	for i := range closes {
		closes[i] = 100
	}
	closes[20] = 90
	e, err := New(TypeBollinger, DefaultParameters(), logger.Nop())
	require.NoError(t, err)

	sig := e.Evaluate(context.Background(), testutil.FromCloses(closes))
	assert.Equal(t, domain.SignalBuy, sig.Type)
	assert.Greater(t, sig.Confidence, 0.5)
}

func TestComposite_WeightedVote(t *testing.T) {
	p := DefaultParameters()
	p.UseRSI, p.UseMACD, p.UseBollinger = false, false, false
	p.MAWeight = 1
	e, err := New(TypeComposite, p, logger.Nop())
	require.NoError(t, err)

	sig := e.Evaluate(context.Background(), testutil.Geometric(60, 100, 0.01))
	assert.Equal(t, domain.SignalBuy, sig.Type)
	assert.InDelta(t, 0.9, sig.Confidence, 1e-12)

	p.MAWeight = 0.5
	e, err = New(TypeComposite, p, logger.Nop())
	require.NoError(t, err)
	sig = e.Evaluate(context.Background(), testutil.Geometric(60, 100, -0.01))
	assert.Equal(t, domain.SignalSell, sig.Type)
	assert.InDelta(t, 0.45, sig.Confidence, 1e-12)
}

func TestComposite_ConfidenceStaysBounded(t *testing.T) {
	e, err := New(TypeComposite, DefaultParameters(), logger.Nop())
	require.NoError(t, err)
	signalsOver(t, e, testutil.RandomWalk(300, 7))
}
