// Package scheduler executes one measurement cycle: it orders checks by
// their dependencies, runs each level through a bounded worker pool and
// appends every produced sample to the result store.
package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/mhemmati/statuswatch/internal/domain"
	"github.com/mhemmati/statuswatch/internal/probe"
)

type ResultStore interface {
	AppendAll(ctx context.Context, rs []domain.CheckResult) error
}

type ClaimCorrelator interface {
	Outstanding(ctx context.Context, checkID string, now time.Time) (*domain.PendingEntry, error)
}

type Runner struct {
	Logger      *zap.Logger
	Results     ResultStore
	Claims      ClaimCorrelator
	Concurrency int
	Timeout     time.Duration

	// NewExecutor builds the executor for one check. Overridable in tests.
	NewExecutor func(def domain.CheckDefinition) (probe.Executor, error)
}

func NewRunner(logger *zap.Logger, rs ResultStore, claims ClaimCorrelator, concurrency int, timeout time.Duration) *Runner {
	if concurrency < 1 {
		concurrency = 1
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	r := &Runner{
		Logger:      logger,
		Results:     rs,
		Claims:      claims,
		Concurrency: concurrency,
		Timeout:     timeout,
	}
	r.NewExecutor = func(def domain.CheckDefinition) (probe.Executor, error) {
		return probe.New(def, probe.Options{Timeout: timeout})
	}
	return r
}

// RunOnce runs every check exactly once, level by level. Checks within a
// level run concurrently; a level starts only after the previous one has
// fully settled, so dependents always see their dependency's samples.
// Storage and correlation failures are collected and returned.
func (r *Runner) RunOnce(ctx context.Context, defs []domain.CheckDefinition) error {
	levels, err := Plan(defs)
	if err != nil {
		return err
	}
	now := time.Now().UTC()

	failed := make(map[string]bool, len(defs))
	var errs error
	for _, level := range levels {
		byCheck, levelErr := r.runLevel(ctx, level, failed, now)
		errs = multierr.Append(errs, levelErr)

		for _, def := range level {
			out := byCheck[def.ID]
			failed[def.ID] = !cycleHealthy(out)
			errs = multierr.Append(errs, r.Results.AppendAll(ctx, out))
		}
	}
	return errs
}

func (r *Runner) runLevel(ctx context.Context, level []domain.CheckDefinition, failed map[string]bool, now time.Time) (map[string][]domain.CheckResult, error) {
	sem := make(chan struct{}, r.Concurrency)
	var wg sync.WaitGroup

	var mu sync.Mutex
	byCheck := make(map[string][]domain.CheckResult, len(level))
	var errs error

	for _, def := range level {
		def := def
		sem <- struct{}{}
		wg.Add(1)
		go func() {
			defer func() { <-sem }()
			defer wg.Done()

			out, err := r.runCheck(ctx, def, failed[def.DependsOn], now)

			mu.Lock()
			defer mu.Unlock()
			byCheck[def.ID] = out
			errs = multierr.Append(errs, err)
		}()
	}
	wg.Wait()
	return byCheck, errs
}

func (r *Runner) runCheck(ctx context.Context, def domain.CheckDefinition, depFailed bool, now time.Time) ([]domain.CheckResult, error) {
	exec, err := r.NewExecutor(def)
	if err != nil {
		return nil, err
	}

	cycle := probe.Cycle{Now: now, DependencyFailed: depFailed}
	if def.Type.TwoPhase() && !depFailed {
		entry, err := r.Claims.Outstanding(ctx, def.ID, now)
		if err != nil {
			return nil, err
		}
		cycle.Pending = entry
	}

	cctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	out := exec.Execute(cctx, cycle)
	for _, res := range out {
		r.Logger.Debug("check_executed",
			zap.String("check_id", res.CheckID),
			zap.String("status", string(res.Status)),
			zap.Int("response_ms", res.ResponseTimeMS),
			zap.String("message", res.Message),
		)
	}
	return out, nil
}

// cycleHealthy decides whether dependents may run. A check with no
// definite sample this cycle blocks its dependents the same way a down
// sample does: an unproven dependency is treated as a failed one.
func cycleHealthy(out []domain.CheckResult) bool {
	definite := false
	for _, r := range out {
		if !r.Status.Definite() {
			continue
		}
		definite = true
		if r.Status == domain.StatusDown {
			return false
		}
	}
	return definite
}
