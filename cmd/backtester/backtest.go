package main

import (
	"github.com/spf13/cobra"

	"cryptoBacktester/internal/utils"
)

var tradesOut string

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Run the configured strategy over the historical data, walk-forward when enabled",
	Args:  cobra.NoArgs,
	RunE:  runBacktest,
}

func init() {
	backtestCmd.Flags().StringVar(&tradesOut, "trades-out", "", "write the trade ledger to this CSV file")
	rootCmd.AddCommand(backtestCmd)
}

func runBacktest(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd, sessionOptions{})
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := cmd.Context()
	klines, err := s.runner.LoadKlines(ctx)
	if err != nil {
		return err
	}
	eval, err := s.runner.Evaluate(ctx, klines)
	if eval != nil && eval.WalkForward != nil {
		if tradesOut != "" {
			s.logger.Warn(ctx, "Trade ledger is not written in walk-forward mode", map[string]interface{}{"file": tradesOut})
		}
		if werr := s.writer.WalkForward(eval.WalkForward); werr != nil {
			return werr
		}
		return err
	}
	if err != nil {
		return err
	}
	res := eval.Backtest
	if tradesOut != "" {
		if err := utils.WriteTradesToCSV(res.Trades, tradesOut); err != nil {
			return err
		}
		s.logger.Info(ctx, "Trade ledger written", map[string]interface{}{"file": tradesOut, "trades": len(res.Trades)})
	}
	return s.writer.Backtest(res)
}
