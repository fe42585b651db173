package app

import (
	"fmt"

	"cryptoBacktester/internal/ports"
	"cryptoBacktester/internal/strategy/optimization"
	"cryptoBacktester/internal/strategy/strategies"
)

// DefaultGrid returns a modest search grid for a strategy type, used when no
// grid file is configured.
func DefaultGrid(typ strategies.Type) (*optimization.Grid, error) {
	switch typ {
	case strategies.TypeMACrossover, strategies.TypeEMACrossover:
		return optimization.NewGrid([]optimization.ParameterRange{
			{Name: "fast_period", Min: 5, Max: 20, Step: 5, IsInt: true},
			{Name: "slow_period", Min: 20, Max: 60, Step: 10, IsInt: true},
		}, optimization.LessThan("fast_period", "slow_period"))
	case strategies.TypeRSI:
		return optimization.NewGrid([]optimization.ParameterRange{
			{Name: "rsi_period", Min: 7, Max: 21, Step: 7, IsInt: true},
			{Name: "rsi_oversold", Min: 20, Max: 35, Step: 5},
			{Name: "rsi_overbought", Min: 65, Max: 80, Step: 5},
		})
	case strategies.TypeMACD:
		return optimization.NewGrid([]optimization.ParameterRange{
			{Name: "macd_fast", Min: 8, Max: 16, Step: 4, IsInt: true},
			{Name: "macd_slow", Min: 20, Max: 32, Step: 6, IsInt: true},
			{Name: "macd_signal", Min: 7, Max: 11, Step: 2, IsInt: true},
		}, optimization.LessThan("macd_fast", "macd_slow"))
	case strategies.TypeBollinger:
		return optimization.NewGrid([]optimization.ParameterRange{
			{Name: "bb_period", Min: 10, Max: 30, Step: 5, IsInt: true},
			{Name: "bb_multiplier", Min: 1.5, Max: 3, Step: 0.5},
		})
	case strategies.TypeComposite:
		return optimization.NewGrid([]optimization.ParameterRange{
			{Name: "ma_weight", Min: 0, Max: 0.5, Step: 0.1},
			{Name: "rsi_weight", Min: 0, Max: 0.5, Step: 0.1},
			{Name: "macd_weight", Min: 0, Max: 0.5, Step: 0.1},
			{Name: "bb_weight", Min: 0, Max: 0.5, Step: 0.1},
		}, optimization.WeightSumAtMost(1, "ma_weight", "rsi_weight", "macd_weight", "bb_weight"))
	}
	return nil, fmt.Errorf("no default grid for strategy type %q: %w", typ, ports.ErrInvalidParameterSet)
}
