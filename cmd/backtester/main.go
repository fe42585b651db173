package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	envFile     string
	dataFile    string
	format      string
	outputFile  string
	metricsAddr string
)

var rootCmd = &cobra.Command{
	Use:   "backtester",
	Short: "Backtest and stress-test crypto futures strategies",
	Long: `backtester replays historical klines through a trading strategy and
measures how robust the result is: grid optimization, walk-forward analysis
and Monte Carlo trade reordering. Settings come from the environment or an
env file; see .env.example.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&envFile, "env-file", "e", "", "env file to load (default .env when present)")
	rootCmd.PersistentFlags().StringVarP(&dataFile, "data", "d", "", "kline CSV file; overrides DATA_FILE")
	rootCmd.PersistentFlags().StringVarP(&format, "format", "f", "table", "output format: table, json or yaml")
	rootCmd.PersistentFlags().StringVarP(&outputFile, "output", "o", "", "write the report to a file instead of stdout")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while running; overrides METRICS_ADDR")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
