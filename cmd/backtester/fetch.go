package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"cryptoBacktester/internal/utils"
)

var csvOut string

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download klines from Binance futures into the kline store",
	Long: `fetch downloads SYMBOL/INTERVAL klines between DATA_START and DATA_END
(default now) and upserts them into the SQLite store at DB_PATH.`,
	Args: cobra.NoArgs,
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().StringVar(&csvOut, "csv", "", "also write the klines to this CSV file")
	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd, sessionOptions{store: true, exchange: true})
	if err != nil {
		return err
	}
	defer s.Close()

	klines, err := s.runner.Fetch(cmd.Context())
	if err != nil {
		return err
	}
	if csvOut != "" {
		if err := utils.WriteKlinesToCSV(klines, csvOut); err != nil {
			return err
		}
	}
	fmt.Fprintf(cmd.OutOrStdout(), "fetched %d %s %s klines\n", len(klines), s.cfg.Symbol, s.cfg.Interval)
	return nil
}
