package main

import (
	"errors"

	"github.com/spf13/cobra"

	"cryptoBacktester/internal/ports"
)

var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Search a parameter grid for the best-scoring combination",
	Long: `optimize backtests every combination of the grid in GRID_FILE (or the
default grid for STRATEGY_TYPE) and ranks them by OPTIMIZATION_OBJECTIVE.`,
	Args: cobra.NoArgs,
	RunE: runOptimize,
}

func init() {
	rootCmd.AddCommand(optimizeCmd)
}

func runOptimize(cmd *cobra.Command, args []string) error {
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
	grid, err := s.runner.Grid()
	if err != nil {
		return err
	}
	rep, err := s.runner.Optimize(ctx, klines, grid)
	// A report without a winner is still worth printing.
	if err != nil && !(errors.Is(err, ports.ErrNoViableCandidate) && rep != nil) {
		return err
	}
	if werr := s.writer.Optimization(rep); werr != nil {
		return werr
	}
	return err
}
