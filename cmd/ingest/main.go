// Package main provides the raw-data ingest entry point.
// Parses bar and options-aggregate CSV files and loads them into storage.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"orderflow-lab/internal/domain"
	"orderflow-lab/internal/ingest"
	"orderflow-lab/internal/observability"
	"orderflow-lab/internal/slogx"
	"orderflow-lab/internal/storage"
	"orderflow-lab/internal/storage/memory"
	"orderflow-lab/internal/storage/migrations"
	pgstore "orderflow-lab/internal/storage/postgres"
)

func main() {
	barsPath := flag.String("bars", "", "Path to bars CSV (time axis + OHLCV, optional symbol column)")
	optionsPath := flag.String("options", "", "Path to options aggregates CSV (time axis required, flow/IV columns optional)")
	symbol := flag.String("symbol", "", "Stamp this symbol on rows whose file has no symbol column")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL (dry-run parsing)")
	metricsAddr := flag.String("metrics-addr", "", "Prometheus metrics HTTP address (empty to disable)")
	logLevel := flag.String("log-level", "info", "Log level: debug, info, warn, error")
	flag.Parse()

	logger := slogx.NewDefault(*logLevel)

	if *barsPath == "" && *optionsPath == "" {
		fmt.Fprintln(os.Stderr, "Nothing to ingest. Use --bars and/or --options")
		os.Exit(2)
	}

	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("ok"))
			})
			logger.Info("starting metrics server", "addr", *metricsAddr)
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server error", "error", err)
			}
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received signal, cancelling", "signal", sig.String())
		cancel()
	}()

	barStore, optionsStore, cleanup, err := createStores(ctx, *useMemory, *postgresDSN)
	if err != nil {
		logger.Error("storage setup failed", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	if *barsPath != "" {
		if err := ingestBars(ctx, logger.With("table", "bars"), barStore, *barsPath, *symbol); err != nil {
			logger.Error("bar ingest failed", "error", err)
			os.Exit(1)
		}
	}
	if *optionsPath != "" {
		if err := ingestOptions(ctx, logger.With("table", "options_agg"), optionsStore, *optionsPath, *symbol); err != nil {
			logger.Error("options ingest failed", "error", err)
			os.Exit(1)
		}
	}
}

// createStores opens the configured backend and returns input stores plus
// a cleanup function.
func createStores(ctx context.Context, useMemory bool, postgresDSN string) (storage.BarStore, storage.OptionsAggregateStore, func(), error) {
	if useMemory {
		return memory.NewBarStore(), memory.NewOptionsAggregateStore(), func() {}, nil
	}
	if postgresDSN == "" {
		return nil, nil, nil, fmt.Errorf("either --postgres-dsn or --use-memory is required")
	}

	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, nil, fmt.Errorf("run postgres migrations: %w", err)
	}
	return pgstore.NewBarStore(pool), pgstore.NewOptionsAggregateStore(pool), pool.Close, nil
}

func ingestBars(ctx context.Context, logger *slog.Logger, store storage.BarStore, path, symbol string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	bars, report, err := ingest.ParseBars("bars", f)
	if err != nil {
		return err
	}
	if symbol != "" {
		for _, b := range bars {
			if b.Symbol == domain.DefaultSymbol {
				b.Symbol = symbol
			}
		}
	}

	if err := store.InsertBulk(ctx, bars); err != nil {
		return fmt.Errorf("store bars: %w", err)
	}

	observability.RecordBarsIngested(report.Rows)
	observability.RecordRowsDropped("bars", "bad_time", report.DroppedBadTime)
	observability.RecordRowsDropped("bars", "invalid", report.DroppedInvalid)
	observability.RecordOHLCViolations(report.OHLCViolations)

	logger.Info("ingest complete",
		"rows", report.Rows,
		"dropped_bad_time", report.DroppedBadTime,
		"dropped_invalid", report.DroppedInvalid)
	if report.OHLCViolations > 0 {
		logger.Warn("bars kept despite OHLC inconsistency", "count", report.OHLCViolations)
	}
	return nil
}

func ingestOptions(ctx context.Context, logger *slog.Logger, store storage.OptionsAggregateStore, path, symbol string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	aggs, report, err := ingest.ParseOptions("options_agg", f)
	if err != nil {
		return err
	}
	if symbol != "" {
		for _, a := range aggs {
			if a.Symbol == domain.DefaultSymbol {
				a.Symbol = symbol
			}
		}
	}

	if err := store.InsertBulk(ctx, aggs); err != nil {
		return fmt.Errorf("store options aggregates: %w", err)
	}

	observability.RecordOptionsIngested(report.Rows)
	observability.RecordRowsDropped("options_agg", "bad_time", report.DroppedBadTime)
	observability.RecordRowsDropped("options_agg", "invalid", report.DroppedInvalid)

	logger.Info("ingest complete",
		"rows", report.Rows,
		"dropped_bad_time", report.DroppedBadTime,
		"dropped_invalid", report.DroppedInvalid)
	return nil
}
