package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"cryptoBacktester/config"
	"cryptoBacktester/internal/adapters/binanceclient"
	"cryptoBacktester/internal/adapters/sqlite"
	"cryptoBacktester/internal/app"
	"cryptoBacktester/internal/metrics"
	"cryptoBacktester/internal/ports"
	"cryptoBacktester/internal/report"
)

// session holds everything one command needs and releases it in Close.
type session struct {
	cfg     *config.Config
	logger  ports.Logger
	runner  *app.Runner
	writer  *report.Writer
	closers []func() error
}

type sessionOptions struct {
	store    bool // Open the SQLite kline store even when a data file is set
	exchange bool // Create the Binance client
}

func newSession(cmd *cobra.Command, opts sessionOptions) (*session, error) {
	ctx := cmd.Context()

	var files []string
	if envFile != "" {
		files = append(files, envFile)
	}
	cfg, err := config.LoadConfig(files...)
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	if dataFile != "" {
		cfg.DataFile = dataFile
	}
	if metricsAddr != "" {
		cfg.MetricsAddr = metricsAddr
	}

	log, err := cfg.NewLogger()
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	s := &session{cfg: cfg, logger: log}
	log.Debug(ctx, "Configuration loaded", map[string]interface{}{
		"symbol":   cfg.Symbol,
		"interval": cfg.Interval,
		"strategy": cfg.StrategyType,
	})

	var repo ports.KlineRepository
	if cfg.DataFile == "" || opts.store {
		store, err := sqlite.NewRepository(sqlite.Config{DBPath: cfg.DBPath, Logger: log})
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, store.Close)
		repo = store
	}

	var source ports.KlineSource
	if opts.exchange {
		client, err := binanceclient.New(binanceclient.Config{
			APIKey:     cfg.APIKey,
			SecretKey:  cfg.SecretKey,
			UseTestnet: cfg.IsTestnet,
			Logger:     log,
		})
		if err != nil {
			s.Close()
			return nil, err
		}
		source = client
	}

	var recorder ports.Recorder = ports.NopRecorder{}
	if cfg.MetricsAddr != "" {
		registry := metrics.NewRegistry()
		recorder = registry
		s.serveMetrics(ctx, cfg.MetricsAddr, registry.Handler())
	}

	if s.runner, err = app.NewRunner(cfg, log, repo, source, recorder); err != nil {
		s.Close()
		return nil, err
	}

	out := io.Writer(os.Stdout)
	if outputFile != "" {
		file, err := os.Create(outputFile)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("creating output file: %w", err)
		}
		s.closers = append(s.closers, file.Close)
		out = file
	}
	f, err := report.ParseFormat(format)
	if err != nil {
		s.Close()
		return nil, err
	}
	if s.writer, err = report.NewWriter(out, f); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *session) serveMetrics(ctx context.Context, addr string, handler http.Handler) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		s.logger.Info(ctx, "Serving metrics", map[string]interface{}{"addr": addr})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error(ctx, err, "Metrics server failed")
		}
	}()
	s.closers = append(s.closers, func() error {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
}

// Close releases resources in reverse order of acquisition.
func (s *session) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			s.logger.Error(context.Background(), err, "Error releasing resource")
		}
	}
	s.closers = nil
}
