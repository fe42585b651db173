package main

import (
	"github.com/spf13/cobra"

	"cryptoBacktester/internal/domain"
	"cryptoBacktester/internal/utils"
)

var tradesIn string

var monteCarloCmd = &cobra.Command{
	Use:     "montecarlo",
	Aliases: []string{"mc"},
	Short:   "Reshuffle a trade ledger to see how much the result depends on trade order",
	Long: `montecarlo replays the trade ledger in MONTE_CARLO_ITERATIONS random
orders. The ledger is read from --trades, or produced by backtesting the
configured strategy first.`,
	Args: cobra.NoArgs,
	RunE: runMonteCarlo,
}

func init() {
	monteCarloCmd.Flags().StringVar(&tradesIn, "trades", "", "trade ledger CSV written by backtest --trades-out")
	rootCmd.AddCommand(monteCarloCmd)
}

func runMonteCarlo(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd, sessionOptions{})
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := cmd.Context()
	var trades []*domain.Trade
	if tradesIn != "" {
		if trades, err = utils.ReadTradesFromCSV(tradesIn); err != nil {
			return err
		}
	} else {
		klines, err := s.runner.LoadKlines(ctx)
		if err != nil {
			return err
		}
		res, err := s.runner.Backtest(ctx, klines)
		if err != nil {
			return err
		}
		trades = res.Trades
	}

	res, err := s.runner.MonteCarlo(ctx, trades)
	if err != nil {
		return err
	}
	return s.writer.MonteCarlo(res)
}
