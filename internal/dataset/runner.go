// Package dataset coordinates the end-to-end build:
// load bars → sufficiency → microstructure + labels → options flow → join.
package dataset

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"orderflow-lab/internal/domain"
	"orderflow-lab/internal/features"
	"orderflow-lab/internal/join"
	"orderflow-lab/internal/labeling"
	"orderflow-lab/internal/observability"
	"orderflow-lab/internal/panel"
	"orderflow-lab/internal/slogx"
	"orderflow-lab/internal/storage"
)

// Runner coordinates the dataset build across stores and compute stages.
type Runner struct {
	// Input stores
	barStore     storage.BarStore
	optionsStore storage.OptionsAggregateStore

	// Output stores, all optional. When nil the corresponding rows are
	// returned in the Result but not persisted.
	microStore          storage.MicroFeatureStore
	optionsFeatureStore storage.OptionsFeatureStore
	labelStore          storage.LabelStore

	cfg     domain.DatasetConfig
	workers int
	strict  bool
	logger  *slog.Logger
}

// Options for creating a Runner.
type Options struct {
	BarStore     storage.BarStore
	OptionsStore storage.OptionsAggregateStore

	MicroFeatureStore   storage.MicroFeatureStore
	OptionsFeatureStore storage.OptionsFeatureStore
	LabelStore          storage.LabelStore

	Config domain.DatasetConfig

	// Workers bounds per-symbol compute concurrency. Zero or negative
	// means sequential.
	Workers int

	// Strict aborts the build when a sufficiency check fails. Otherwise
	// failures are reported in the Result and the build proceeds.
	Strict bool

	Logger *slog.Logger
}

// New creates a new Runner.
func New(opts Options) *Runner {
	logger := opts.Logger
	if logger == nil {
		logger = slogx.Default
	}
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	return &Runner{
		barStore:            opts.BarStore,
		optionsStore:        opts.OptionsStore,
		microStore:          opts.MicroFeatureStore,
		optionsFeatureStore: opts.OptionsFeatureStore,
		labelStore:          opts.LabelStore,
		cfg:                 opts.Config,
		workers:             workers,
		strict:              opts.Strict,
		logger:              logger,
	}
}

// Result contains everything a build produced.
type Result struct {
	Symbols []string
	Bars    int

	Micro   []*domain.MicroFeatureRow
	Options []*domain.OptionsFeatureRow
	Labels  []*domain.LabelRow
	Joined  []*domain.JoinedRow

	Sufficiency *SufficiencyResult
}

// Run executes the full build.
// Phases:
//  1. Load bars and check sufficiency
//  2. Microstructure features + labels (per symbol, bounded concurrency)
//  3. Options flow features
//  4. Join
//  5. Persist (when output stores are configured)
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	if err := r.cfg.Validate(); err != nil {
		return nil, err
	}

	result := &Result{}

	// Phase 1: load + sufficiency
	phaseStart := time.Now()
	bars, err := r.barStore.GetAll(ctx)
	if err != nil {
		observability.RecordBuildPhase("load", "error", time.Since(phaseStart).Seconds())
		return nil, fmt.Errorf("load bars: %w", err)
	}
	result.Bars = len(bars)

	result.Sufficiency = CheckSufficiency(bars, r.cfg)
	observability.RecordBuildPhase("load", "ok", time.Since(phaseStart).Seconds())
	if !result.Sufficiency.AllPass {
		for _, msg := range result.Sufficiency.Errors {
			r.logger.Warn("sufficiency check failed", "detail", msg)
		}
		if r.strict {
			if len(result.Sufficiency.FloorViolations) > 0 {
				return nil, result.Sufficiency.FloorViolations[0]
			}
			return nil, fmt.Errorf("sufficiency checks failed: %d error(s)", len(result.Sufficiency.Errors))
		}
	}

	p := panel.New(bars)
	result.Symbols = p.Symbols()
	observability.DefaultMetrics.SymbolsProcessed.Set(float64(len(result.Symbols)))
	r.logger.Info("panel loaded",
		"bars", len(bars), "rows", p.NumRows(), "symbols", len(result.Symbols))

	// Phase 2: microstructure + labels per symbol
	phaseStart = time.Now()
	micro, labels, err := r.computeBarDerived(ctx, p)
	if err != nil {
		observability.RecordBuildPhase("features", "error", time.Since(phaseStart).Seconds())
		return nil, err
	}
	result.Micro = micro
	result.Labels = labels
	observability.RecordBuildPhase("features", "ok", time.Since(phaseStart).Seconds())
	observability.DefaultMetrics.MicroRowsComputed.Add(float64(len(micro)))
	observability.DefaultMetrics.LabelRowsComputed.Add(float64(len(labels)))
	r.logger.Info("bar-derived features computed", "micro_rows", len(micro), "label_rows", len(labels))

	// Phase 3: options flow
	phaseStart = time.Now()
	aggs, err := r.loadOptions(ctx)
	if err != nil {
		observability.RecordBuildPhase("options", "error", time.Since(phaseStart).Seconds())
		return nil, err
	}
	optRows, err := features.ComputeOptionsFlow(aggs, r.cfg)
	if err != nil {
		observability.RecordBuildPhase("options", "error", time.Since(phaseStart).Seconds())
		return nil, fmt.Errorf("compute options flow: %w", err)
	}
	result.Options = optRows
	observability.RecordBuildPhase("options", "ok", time.Since(phaseStart).Seconds())
	observability.DefaultMetrics.OptionsRowsComputed.Add(float64(len(optRows)))
	r.logger.Info("options flow computed", "aggregates", len(aggs), "rows", len(optRows))

	// Phase 4: join
	phaseStart = time.Now()
	result.Joined = join.Join(result.Micro, result.Options, result.Labels, r.cfg)
	observability.RecordBuildPhase("join", "ok", time.Since(phaseStart).Seconds())
	observability.DefaultMetrics.JoinedRowsEmitted.Add(float64(len(result.Joined)))
	r.logger.Info("feature sets joined", "rows", len(result.Joined))

	// Phase 5: persist
	if err := r.persist(ctx, result); err != nil {
		return nil, err
	}

	observability.DefaultMetrics.LastSuccessfulBuild.Set(float64(time.Now().Unix()))
	return result, nil
}

// computeBarDerived computes microstructure features and labels, one symbol
// per job, bounded by r.workers. Output preserves symbol order regardless of
// completion order.
func (r *Runner) computeBarDerived(ctx context.Context, p *panel.Panel) ([]*domain.MicroFeatureRow, []*domain.LabelRow, error) {
	symbols := p.Symbols()

	type symbolOut struct {
		micro  []*domain.MicroFeatureRow
		labels []*domain.LabelRow
		err    error
	}
	outs := make([]symbolOut, len(symbols))

	sem := make(chan struct{}, r.workers)
	var wg sync.WaitGroup
	for i, sym := range symbols {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, sym string) {
			defer wg.Done()
			defer func() { <-sem }()

			sub := panel.New(p.Bars(sym))
			micro, err := features.ComputeMicrostructure(sub, r.cfg)
			if err != nil {
				outs[i].err = fmt.Errorf("microstructure for %s: %w", sym, err)
				return
			}
			labels, err := labeling.ComputeLabels(sub, r.cfg)
			if err != nil {
				outs[i].err = fmt.Errorf("labels for %s: %w", sym, err)
				return
			}
			outs[i] = symbolOut{micro: micro, labels: labels}
		}(i, sym)
	}
	wg.Wait()

	var micro []*domain.MicroFeatureRow
	var labels []*domain.LabelRow
	for _, out := range outs {
		if out.err != nil {
			return nil, nil, out.err
		}
		micro = append(micro, out.micro...)
		labels = append(labels, out.labels...)
	}
	return micro, labels, nil
}

// loadOptions loads options aggregates; a missing store means no options leg.
func (r *Runner) loadOptions(ctx context.Context) ([]*domain.OptionsAggregate, error) {
	if r.optionsStore == nil {
		return nil, nil
	}
	aggs, err := r.optionsStore.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load options aggregates: %w", err)
	}
	return aggs, nil
}

// persist writes computed rows to the configured output stores. Duplicate
// keys mean the rows were already persisted by an earlier run; they are
// logged and skipped, not fatal.
func (r *Runner) persist(ctx context.Context, result *Result) error {
	phaseStart := time.Now()

	if r.microStore != nil {
		if err := r.microStore.InsertBulk(ctx, result.Micro); err != nil {
			if !errors.Is(err, storage.ErrDuplicateKey) {
				observability.RecordBuildPhase("persist", "error", time.Since(phaseStart).Seconds())
				return fmt.Errorf("persist micro features: %w", err)
			}
			r.logger.Warn("micro features already persisted, skipping")
		}
	}
	if r.optionsFeatureStore != nil {
		if err := r.optionsFeatureStore.InsertBulk(ctx, result.Options); err != nil {
			if !errors.Is(err, storage.ErrDuplicateKey) {
				observability.RecordBuildPhase("persist", "error", time.Since(phaseStart).Seconds())
				return fmt.Errorf("persist options features: %w", err)
			}
			r.logger.Warn("options features already persisted, skipping")
		}
	}
	if r.labelStore != nil {
		if err := r.labelStore.InsertBulk(ctx, result.Labels); err != nil {
			if !errors.Is(err, storage.ErrDuplicateKey) {
				observability.RecordBuildPhase("persist", "error", time.Since(phaseStart).Seconds())
				return fmt.Errorf("persist labels: %w", err)
			}
			r.logger.Warn("labels already persisted, skipping")
		}
	}

	if r.microStore != nil || r.optionsFeatureStore != nil || r.labelStore != nil {
		observability.RecordBuildPhase("persist", "ok", time.Since(phaseStart).Seconds())
	}
	return nil
}
