package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Orchestrator runs the analyzer list resolved for a level against one
// text payload and aggregates results. It makes no block/allow decisions
// and its output never overrides a policy verdict.
type Orchestrator struct {
	registry *Registry
	workers  int
	logger   *slog.Logger
}

// NewOrchestrator creates an orchestrator over a registry. workers bounds
// concurrent analyzer invocations; values below 2 select strictly
// sequential execution. Either way the result order is deterministic.
func NewOrchestrator(registry *Registry, workers int, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if workers < 1 {
		workers = 1
	}
	return &Orchestrator{
		registry: registry,
		workers:  workers,
		logger:   logger.With("component", "analysis.orchestrator"),
	}
}

// Run invokes each analyzer selected for the level and returns one Result
// per selected analyzer, in selection order.
//
// Invocation is isolated: an error, panic, or non-callable analyzer
// produces a failed Result for that analyzer only and never aborts the
// rest (fail-open). Context cancellation marks the remaining analyzers as
// failed rather than dropping them, so the one-result-per-analyzer
// contract holds in every case.
func (o *Orchestrator) Run(ctx context.Context, text string, actx *Context, level Level) []Result {
	selected := o.registry.Resolve(level)
	if len(selected) == 0 {
		return []Result{}
	}
	if actx == nil {
		actx = &Context{Source: "pre"}
	}

	results := make([]Result, len(selected))

	if o.workers > 1 {
		o.runConcurrent(ctx, text, actx, selected, results)
	} else {
		for i, desc := range selected {
			if err := ctx.Err(); err != nil {
				results[i] = Result{AnalyzerID: desc.ID, OK: false, Error: err.Error()}
				continue
			}
			results[i] = o.invoke(ctx, text, actx, desc)
		}
	}

	return results
}

// runConcurrent fans analyzer invocations out over a bounded worker pool
// and reassembles results by original selection order.
func (o *Orchestrator) runConcurrent(ctx context.Context, text string, actx *Context, selected []Descriptor, results []Result) {
	type job struct {
		index int
		desc  Descriptor
	}

	jobs := make(chan job)
	var wg sync.WaitGroup

	workers := o.workers
	if workers > len(selected) {
		workers = len(selected)
	}

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				if err := ctx.Err(); err != nil {
					results[j.index] = Result{AnalyzerID: j.desc.ID, OK: false, Error: err.Error()}
					continue
				}
				results[j.index] = o.invoke(ctx, text, actx, j.desc)
			}
		}()
	}

	for i, desc := range selected {
		jobs <- job{index: i, desc: desc}
	}
	close(jobs)
	wg.Wait()
}

// invoke runs a single analyzer, converting every failure mode into a
// failed Result.
func (o *Orchestrator) invoke(ctx context.Context, text string, actx *Context, desc Descriptor) (result Result) {
	result = Result{AnalyzerID: desc.ID}

	if desc.Status != StatusActive {
		result.Error = fmt.Sprintf("analyzer not callable (status: %s)", desc.Status)
		return result
	}

	analyzer, ok := o.registry.analyzer(desc.ID)
	if !ok {
		result.Error = "analyzer implementation missing"
		return result
	}

	defer func() {
		if r := recover(); r != nil {
			result = Result{
				AnalyzerID: desc.ID,
				OK:         false,
				Error:      fmt.Sprintf("analyzer panicked: %v", r),
			}
			o.logger.Error("analyzer panicked", "id", desc.ID, "panic", r)
		}
	}()

	outcome, err := analyzer.Analyze(ctx, text, actx)
	if err != nil {
		result.Error = err.Error()
		o.logger.Warn("analyzer failed", "id", desc.ID, "error", err)
		return result
	}

	result.OK = true
	result.Outcome = outcome
	return result
}
