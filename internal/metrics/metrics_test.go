package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptoBacktester/internal/ports"
)

var _ ports.Recorder = (*Registry)(nil)

func TestRegistry_ObserveBacktest(t *testing.T) {
	reg := NewRegistry()

	reg.ObserveBacktest("ma_crossover", 4, 20*time.Millisecond, nil)
	reg.ObserveBacktest("ma_crossover", 3, 10*time.Millisecond, nil)
	reg.ObserveBacktest("ma_crossover", 0, time.Millisecond, errors.New("boom"))

	assert.Equal(t, 2.0, testutil.ToFloat64(reg.backtestsTotal.WithLabelValues("ma_crossover", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.backtestsTotal.WithLabelValues("ma_crossover", "error")))
	assert.Equal(t, 7.0, testutil.ToFloat64(reg.tradesTotal.WithLabelValues("ma_crossover")))
	assert.Equal(t, 1, testutil.CollectAndCount(reg.backtestDuration))
}

func TestRegistry_Counters(t *testing.T) {
	reg := NewRegistry()

	reg.ObserveCombinations("evaluated", 6)
	reg.ObserveCombinations("pruned", 3)
	reg.ObserveCombinations("evaluated", 2)
	reg.ObserveFold("completed")
	reg.ObserveFold("failed")
	reg.ObserveFold("completed")
	reg.ObserveSimulations(1000)

	assert.Equal(t, 8.0, testutil.ToFloat64(reg.combinations.WithLabelValues("evaluated")))
	assert.Equal(t, 3.0, testutil.ToFloat64(reg.combinations.WithLabelValues("pruned")))
	assert.Equal(t, 2.0, testutil.ToFloat64(reg.folds.WithLabelValues("completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.folds.WithLabelValues("failed")))
	assert.Equal(t, 1000.0, testutil.ToFloat64(reg.simulations))
}

func TestRegistry_Handler(t *testing.T) {
	reg := NewRegistry()
	reg.ObserveSimulations(5)

	w := httptest.NewRecorder()
	reg.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(w.Body)
	require.NoError(t, err)
	assert.Equal(t, 200, w.Code)
	assert.True(t, strings.Contains(string(body), "backtester_montecarlo_simulations_total 5"))
	assert.True(t, strings.Contains(string(body), "go_goroutines"))
}
