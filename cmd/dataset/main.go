// Package main provides the dataset build entry point.
// Executes: load → sufficiency → features → labels → join → export.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"orderflow-lab/internal/dataset"
	"orderflow-lab/internal/domain"
	"orderflow-lab/internal/export"
	"orderflow-lab/internal/ingest"
	"orderflow-lab/internal/observability"
	"orderflow-lab/internal/panel"
	"orderflow-lab/internal/slogx"
	"orderflow-lab/internal/storage"
	chstore "orderflow-lab/internal/storage/clickhouse"
	"orderflow-lab/internal/storage/memory"
	"orderflow-lab/internal/storage/migrations"
	pgstore "orderflow-lab/internal/storage/postgres"
)

func main() {
	// Input selection: CSV files load into memory stores; otherwise the
	// configured databases are used.
	barsPath := flag.String("bars", "", "Bars CSV for direct-file mode (bypasses PostgreSQL)")
	optionsPath := flag.String("options", "", "Options aggregates CSV for direct-file mode")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string for raw inputs")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse DSN for persisting feature tables (optional)")

	// Engine configuration
	cadence := flag.String("cadence", "1d", "Bar cadence: 1h or 1d")
	horizons := flag.String("horizons", "1d,1w,1m", "Comma-separated label horizons, e.g. 1d,1w,1m")
	labelMode := flag.String("label-mode", "calendar", "Label alignment: calendar or barcount")
	volWindows := flag.String("vol-windows", "", "Comma-separated realized-vol windows in bars (cadence default when empty)")
	cvdZWindows := flag.String("cvd-z-windows", "50,200", "Comma-separated CVD z-score windows in bars")
	fillLimit := flag.Int("fill-limit", 2, "Max consecutive rows bounded forward-fill may bridge")
	minRows := flag.Int("min-rows", 200, "Per-symbol row floor before training-adjacent use")
	workers := flag.Int("workers", 4, "Per-symbol compute concurrency")
	strict := flag.Bool("strict", false, "Abort when a sufficiency check fails")

	// Output
	outputDir := flag.String("output-dir", "out", "Output directory for generated files")
	panelFormat := flag.String("panel-format", "parquet", "Bar panel export format: csv, parquet, json")

	metricsAddr := flag.String("metrics-addr", "", "Prometheus metrics HTTP address (empty to disable)")
	logLevel := flag.String("log-level", "info", "Log level: debug, info, warn, error")
	flag.Parse()

	logger := slogx.NewDefault(*logLevel)

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
		logger.Info("received signal, cancelling build", "signal", sig.String())
		cancel()
	}()

	cfg, err := buildConfig(*cadence, *horizons, *labelMode, *volWindows, *cvdZWindows, *fillLimit, *minRows)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(2)
	}

	stores, cleanup, err := openStores(ctx, storeOptions{
		barsPath:      *barsPath,
		optionsPath:   *optionsPath,
		postgresDSN:   *postgresDSN,
		clickhouseDSN: *clickhouseDSN,
	})
	if err != nil {
		logger.Error("storage setup failed", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	runner := dataset.New(dataset.Options{
		BarStore:            stores.bars,
		OptionsStore:        stores.options,
		MicroFeatureStore:   stores.micro,
		OptionsFeatureStore: stores.optFeatures,
		LabelStore:          stores.labels,
		Config:              cfg,
		Workers:             *workers,
		Strict:              *strict,
		Logger:              logger,
	})

	result, err := runner.Run(ctx)
	if err != nil {
		logger.Error("build failed", "error", err)
		os.Exit(1)
	}

	if err := writeOutputs(ctx, stores.bars, result, cfg, *outputDir, *panelFormat); err != nil {
		logger.Error("write outputs failed", "error", err)
		os.Exit(1)
	}

	printSummary(result)
}

// buildConfig assembles a DatasetConfig from flag values. Validation is
// deferred to the runner, which calls cfg.Validate.
func buildConfig(cadence, horizons, labelMode, volWindows, cvdZWindows string, fillLimit, minRows int) (domain.DatasetConfig, error) {
	cad, err := domain.ParseCadence(cadence)
	if err != nil {
		return domain.DatasetConfig{}, err
	}
	cfg := domain.DefaultConfig(cad)

	mode, err := domain.ParseLabelMode(labelMode)
	if err != nil {
		return domain.DatasetConfig{}, err
	}
	cfg.LabelMode = mode

	cfg.Horizons = cfg.Horizons[:0]
	for _, raw := range splitList(horizons) {
		h, err := domain.ParseHorizon(raw)
		if err != nil {
			return domain.DatasetConfig{}, err
		}
		cfg.Horizons = append(cfg.Horizons, h)
	}

	if volWindows != "" {
		cfg.VolWindows, err = parseIntList("vol-windows", volWindows)
		if err != nil {
			return domain.DatasetConfig{}, err
		}
	}
	if cvdZWindows != "" {
		cfg.CVDZWindows, err = parseIntList("cvd-z-windows", cvdZWindows)
		if err != nil {
			return domain.DatasetConfig{}, err
		}
	}

	cfg.FillLimit = fillLimit
	cfg.MinRows = minRows
	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseIntList(field, s string) ([]int, error) {
	var out []int
	for _, part := range splitList(s) {
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, &domain.ConfigError{Field: field, Value: part, Reason: "not an integer"}
		}
		out = append(out, n)
	}
	return out, nil
}

type storeOptions struct {
	barsPath      string
	optionsPath   string
	postgresDSN   string
	clickhouseDSN string
}

type storeSet struct {
	bars        storage.BarStore
	options     storage.OptionsAggregateStore
	micro       storage.MicroFeatureStore
	optFeatures storage.OptionsFeatureStore
	labels      storage.LabelStore
}

// openStores wires input and output stores. Direct-file mode parses the
// CSVs into memory stores; DB mode reads raw inputs from PostgreSQL.
// Feature persistence is enabled only when a ClickHouse DSN is given.
func openStores(ctx context.Context, opts storeOptions) (*storeSet, func(), error) {
	stores := &storeSet{}
	cleanup := func() {}

	switch {
	case opts.barsPath != "":
		barStore := memory.NewBarStore()
		optStore := memory.NewOptionsAggregateStore()
		if err := loadCSVInputs(ctx, barStore, optStore, opts.barsPath, opts.optionsPath); err != nil {
			return nil, nil, err
		}
		stores.bars = barStore
		stores.options = optStore
	case opts.postgresDSN != "":
		pool, err := pgstore.NewPool(ctx, opts.postgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("run postgres migrations: %w", err)
		}
		stores.bars = pgstore.NewBarStore(pool)
		stores.options = pgstore.NewOptionsAggregateStore(pool)
		cleanup = pool.Close
	default:
		return nil, nil, fmt.Errorf("either --bars or --postgres-dsn is required")
	}

	if opts.clickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, opts.clickhouseDSN)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("run clickhouse migrations: %w", err)
		}
		stores.micro = chstore.NewMicroFeatureStore(conn)
		stores.optFeatures = chstore.NewOptionsFeatureStore(conn)
		stores.labels = chstore.NewLabelStore(conn)

		inner := cleanup
		cleanup = func() {
			conn.Close()
			inner()
		}
	}

	return stores, cleanup, nil
}

func loadCSVInputs(ctx context.Context, barStore storage.BarStore, optStore storage.OptionsAggregateStore, barsPath, optionsPath string) error {
	f, err := os.Open(barsPath)
	if err != nil {
		return err
	}
	bars, _, err := ingest.ParseBars("bars", f)
	f.Close()
	if err != nil {
		return err
	}
	if err := barStore.InsertBulk(ctx, bars); err != nil {
		return fmt.Errorf("load bars: %w", err)
	}

	if optionsPath == "" {
		return nil
	}
	f, err = os.Open(optionsPath)
	if err != nil {
		return err
	}
	aggs, _, err := ingest.ParseOptions("options_agg", f)
	f.Close()
	if err != nil {
		return err
	}
	if err := optStore.InsertBulk(ctx, aggs); err != nil {
		return fmt.Errorf("load options aggregates: %w", err)
	}
	return nil
}

// writeOutputs writes the normalized panel plus the four derived tables.
func writeOutputs(ctx context.Context, barStore storage.BarStore, result *dataset.Result, cfg domain.DatasetConfig, outputDir, panelFormat string) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}

	saver := export.NewPanelSaver(panelFormat)
	if saver == nil {
		return fmt.Errorf("unsupported panel format %q", panelFormat)
	}
	bars, err := barStore.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("reload bars for export: %w", err)
	}
	normalized := panel.New(bars).All()
	panelPath := filepath.Join(outputDir, "bars_panel."+saver.Extension())
	if err := saver.Save(normalized, panelPath); err != nil {
		return fmt.Errorf("save bar panel: %w", err)
	}

	files := []struct {
		name    string
		content string
	}{
		{"micro_features.csv", export.RenderMicroCSV(result.Micro, cfg)},
		{"options_features.csv", export.RenderOptionsCSV(result.Options, cfg)},
		{"labels.csv", export.RenderLabelsCSV(result.Labels, cfg)},
		{"dataset.csv", export.RenderJoinedCSV(result.Joined, cfg)},
	}
	for _, f := range files {
		if err := os.WriteFile(filepath.Join(outputDir, f.name), []byte(f.content), 0644); err != nil {
			return err
		}
	}
	return nil
}

func printSummary(result *dataset.Result) {
	fmt.Println("=== Dataset Build ===")
	fmt.Printf("  Symbols: %d\n", len(result.Symbols))
	fmt.Printf("  Bars: %d\n", result.Bars)
	fmt.Printf("  Micro rows: %d\n", len(result.Micro))
	fmt.Printf("  Options rows: %d\n", len(result.Options))
	fmt.Printf("  Label rows: %d\n", len(result.Labels))
	fmt.Printf("  Joined rows: %d\n", len(result.Joined))

	fmt.Println("\nSufficiency:")
	for _, check := range result.Sufficiency.Checks {
		status := "PASS"
		if !check.Pass {
			status = "FAIL"
		}
		fmt.Printf("  [%s] %s: %s (threshold %s)\n", status, check.Name, check.Actual, check.Threshold)
	}
	for _, msg := range result.Sufficiency.Errors {
		fmt.Printf("    - %s\n", msg)
	}
}
