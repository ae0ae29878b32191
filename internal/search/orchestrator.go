package search

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/HamzaaAkmal/Get-Opinion/internal/aggregator"
	"github.com/HamzaaAkmal/Get-Opinion/internal/domain"
	"github.com/HamzaaAkmal/Get-Opinion/internal/scheduler"
	"github.com/HamzaaAkmal/Get-Opinion/internal/variants"
)

// Params are the inputs for one search run.
type Params struct {
	RawQuery       string
	NumVariants    int
	TargetCount    int
	OverallTimeout time.Duration
}

func (p Params) validate() error {
	if p.RawQuery == "" {
		return fmt.Errorf("query must not be empty")
	}
	if p.NumVariants < 1 || p.NumVariants > 50 {
		return fmt.Errorf("variants must be in [1,50], got %d", p.NumVariants)
	}
	if p.TargetCount < 1 {
		return fmt.Errorf("target must be at least 1, got %d", p.TargetCount)
	}
	if p.OverallTimeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	return nil
}

// Options bound the orchestrator's resource usage.
type Options struct {
	MaxConcurrency int
	PerFetchLimit  int
	DrainGrace     time.Duration
}

// Orchestrator drives one run end to end: variants, fan-out, aggregation,
// early stop, drain. Per-task failures never abort the run; the caller always
// gets a RunResult once the parameters validate.
type Orchestrator struct {
	generator variants.Generator
	sources   []domain.Collector
	opts      Options
	logger    *slog.Logger
}

func New(gen variants.Generator, sources []domain.Collector, opts Options, logger *slog.Logger) *Orchestrator {
	if opts.MaxConcurrency < 1 {
		opts.MaxConcurrency = 8
	}
	if opts.PerFetchLimit < 1 {
		opts.PerFetchLimit = 500
	}
	if opts.DrainGrace <= 0 {
		opts.DrainGrace = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{generator: gen, sources: sources, opts: opts, logger: logger}
}

// Execute runs the whole search. It returns within OverallTimeout plus the
// drain grace regardless of source behavior.
func (o *Orchestrator) Execute(ctx context.Context, p Params) (*domain.RunResult, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}

	started := time.Now()
	queryVariants := o.generateVariants(ctx, p)

	tasksTotal := len(queryVariants) * len(o.sources)
	maxConc := o.opts.MaxConcurrency
	if maxConc > tasksTotal {
		maxConc = tasksTotal
	}

	o.logger.Info("starting search run",
		"query", p.RawQuery, "variants", len(queryVariants), "sources", len(o.sources),
		"target", p.TargetCount, "concurrency", maxConc, "timeout", p.OverallTimeout)

	sched := scheduler.New(o.sources, maxConc, o.opts.PerFetchLimit, o.logger)
	agg := aggregator.New(p.TargetCount, tasksTotal)

	runCtx, stop := context.WithCancel(ctx)
	defer stop()
	outcomes := sched.Run(runCtx, queryVariants)

	overall := time.NewTimer(p.OverallTimeout)
	defer overall.Stop()

	var (
		bySource   = make(map[domain.SourceKind]int)
		byVariant  = make(map[string]int)
		failures   []domain.TaskFailure
		reached    bool
		drainUntil <-chan time.Time
	)

	stopAndDrain := func(reason string) {
		if drainUntil != nil {
			return
		}
		o.logger.Info("stopping new work", "reason", reason, "elapsed", time.Since(started))
		stop()
		drainUntil = time.After(o.opts.DrainGrace)
	}

pump:
	for outcomes != nil {
		select {
		case oc, ok := <-outcomes:
			if !ok {
				break pump
			}
			delta := agg.Ingest(oc.Task, oc.Comments)
			if oc.Err != nil {
				failures = append(failures, domain.TaskFailure{
					Variant:  oc.Task.Variant,
					Source:   oc.Task.Source,
					Attempts: oc.Task.Attempts,
					Reason:   oc.Err.Error(),
				})
			} else {
				bySource[oc.Task.Source] += delta.Accepted
				byVariant[oc.Task.Variant] += delta.Accepted
			}
			if delta.TargetReached {
				reached = true
				stopAndDrain("target reached")
			}
		case <-overall.C:
			stopAndDrain("overall timeout")
		case <-drainUntil:
			// Stragglers past this point resolve into the buffered
			// outcome channel and are simply not ingested.
			break pump
		}
	}

	progress := agg.Progress()
	result := &domain.RunResult{
		Query:         p.RawQuery,
		Variants:      queryVariants,
		Accepted:      agg.Accepted(),
		BySource:      bySource,
		ByVariant:     byVariant,
		Failures:      failures,
		TasksTotal:    progress.TasksTotal,
		TasksDone:     progress.TasksCompleted,
		TargetReached: reached,
		Elapsed:       time.Since(started),
		StartedAt:     started.UTC(),
	}

	o.logger.Info("search run finished",
		"accepted", len(result.Accepted), "target", p.TargetCount,
		"tasks_done", result.TasksDone, "tasks_total", result.TasksTotal,
		"failures", len(failures), "elapsed", result.Elapsed)
	return result, nil
}

// generateVariants asks the configured generator and degrades to the raw
// query alone on any failure. A generator error never fails the run.
func (o *Orchestrator) generateVariants(ctx context.Context, p Params) []string {
	got, err := o.generator.Generate(ctx, p.RawQuery, p.NumVariants)
	if err != nil {
		o.logger.Warn("variant generation failed, falling back to raw query", "err", err)
		return []string{p.RawQuery}
	}

	vs := variants.Dedupe(got)
	if len(vs) > p.NumVariants {
		vs = vs[:p.NumVariants]
	}
	if len(vs) == 0 {
		return []string{p.RawQuery}
	}
	return vs
}
