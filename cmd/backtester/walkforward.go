package main

import (
	"errors"

	"github.com/spf13/cobra"

	"cryptoBacktester/internal/ports"
)

var walkForwardCmd = &cobra.Command{
	Use:     "walkforward",
	Aliases: []string{"wf"},
	Short:   "Re-optimize on rolling windows and score each winner out of sample",
	Args:    cobra.NoArgs,
	RunE:    runWalkForward,
}

func init() {
	rootCmd.AddCommand(walkForwardCmd)
}

func runWalkForward(cmd *cobra.Command, args []string) error {
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
	res, err := s.runner.WalkForward(ctx, klines, grid)
	if err != nil && !(errors.Is(err, ports.ErrNoViableCandidate) && res != nil) {
		return err
	}
	if werr := s.writer.WalkForward(res); werr != nil {
		return werr
	}
	return err
}
