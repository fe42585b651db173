// Package metrics exposes run statistics to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds all Prometheus metrics. It implements ports.Recorder.
type Registry struct {
	*prometheus.Registry

	backtestsTotal   *prometheus.CounterVec
	backtestDuration prometheus.Histogram
	tradesTotal      *prometheus.CounterVec
	combinations     *prometheus.CounterVec
	folds            *prometheus.CounterVec
	simulations      prometheus.Counter
}

// NewRegistry creates a new metrics registry with all metrics registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	// Register Go runtime metrics
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Registry{
		Registry: reg,
		backtestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backtester_backtests_total",
				Help: "Total number of backtests",
			},
			[]string{"strategy", "status"},
		),
		backtestDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "backtester_backtest_duration_seconds",
				Help:    "Backtest duration in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
		),
		tradesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backtester_trades_total",
				Help: "Total number of simulated trades",
			},
			[]string{"strategy"},
		),
		combinations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backtester_optimizer_combinations_total",
				Help: "Parameter combinations by outcome",
			},
			[]string{"outcome"},
		),
		folds: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backtester_walkforward_folds_total",
				Help: "Walk-forward folds by status",
			},
			[]string{"status"},
		),
		simulations: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "backtester_montecarlo_simulations_total",
				Help: "Total number of Monte Carlo simulations",
			},
		),
	}

	reg.MustRegister(r.backtestsTotal)
	reg.MustRegister(r.backtestDuration)
	reg.MustRegister(r.tradesTotal)
	reg.MustRegister(r.combinations)
	reg.MustRegister(r.folds)
	reg.MustRegister(r.simulations)

	return r
}

// ObserveBacktest records a finished backtest.
func (r *Registry) ObserveBacktest(strategy string, trades int, elapsed time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	r.backtestsTotal.WithLabelValues(strategy, status).Inc()
	r.backtestDuration.Observe(elapsed.Seconds())
	r.tradesTotal.WithLabelValues(strategy).Add(float64(trades))
}

// ObserveCombinations adds n combinations with the given outcome.
func (r *Registry) ObserveCombinations(outcome string, n int) {
	r.combinations.WithLabelValues(outcome).Add(float64(n))
}

// ObserveFold records a walk-forward fold.
func (r *Registry) ObserveFold(status string) {
	r.folds.WithLabelValues(status).Inc()
}

// ObserveSimulations adds n Monte Carlo simulations.
func (r *Registry) ObserveSimulations(n int) {
	r.simulations.Add(float64(n))
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.Registry, promhttp.HandlerOpts{})
}
