// Package probe implements one executor per check type. The set of
// types is closed; dispatch happens through the New factory, never by
// runtime inspection.
package probe

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/mhemmati/statuswatch/internal/domain"
)

// Cycle is the per-invocation context an executor runs under.
type Cycle struct {
	Now              time.Time
	DependencyFailed bool
	// Pending is the unresolved claim from a prior cycle, nil if none.
	// Only two-phase executors look at it.
	Pending *domain.PendingEntry
}

// Executor runs one check for one invocation. Two-phase checks may
// return zero results (claim still pending), one, or two (a verify of
// the previous cycle plus a fresh start).
type Executor interface {
	Execute(ctx context.Context, cycle Cycle) []domain.CheckResult
}

// Options carry the engine-wide defaults a definition may override.
type Options struct {
	Client        *http.Client
	Timeout       time.Duration // per-request cap when params.timeout unset
	PendingWindow time.Duration // claim deadline when params.pending_minutes unset
}

// New builds the executor for a definition. An unknown type is a
// configuration error and must abort the invocation before any check
// runs.
func New(def domain.CheckDefinition, opts Options) (Executor, error) {
	if opts.Client == nil {
		opts.Client = &http.Client{Timeout: opts.Timeout}
	}
	var e Executor
	switch def.Type {
	case domain.TypeHTTP:
		e = &httpCheck{base: newBase(def, opts)}
	case domain.TypeRetrieve:
		e = &retrieveCheck{base: newBase(def, opts)}
	case domain.TypeKnowledge:
		k := &knowledgeCheck{base: newBase(def, opts)}
		return &twoPhase{base: k.base, ops: k}, nil
	case domain.TypeWebhook:
		w := &webhookCheck{base: newBase(def, opts)}
		return &twoPhase{base: w.base, ops: w}, nil
	default:
		return nil, fmt.Errorf("unknown check type %q for check %q", def.Type, def.ID)
	}
	// Retries only wrap single-phase checks; re-running a two-phase
	// start would compound side effects.
	if def.Params.Retries > 0 {
		e = &retryExecutor{inner: e, attempts: def.Params.Retries + 1, backoff: 300 * time.Millisecond}
	}
	return e, nil
}

// base carries what every executor needs.
type base struct {
	def    domain.CheckDefinition
	client *http.Client
	opts   Options
}

func newBase(def domain.CheckDefinition, opts Options) base {
	return base{def: def, client: opts.Client, opts: opts}
}

func (b base) result(now time.Time, st domain.Status, ms int, msg string) domain.CheckResult {
	return domain.CheckResult{
		CheckID:        b.def.ID,
		Timestamp:      now.UTC().Truncate(time.Second),
		Status:         st,
		ResponseTimeMS: ms,
		Message:        msg,
	}
}

// failFast is the mandatory short-circuit when the dependency already
// failed this cycle: report down without touching the network.
func (b base) failFast(now time.Time) []domain.CheckResult {
	return []domain.CheckResult{
		b.result(now, domain.StatusDown, domain.NotMeasured, "dependency "+b.def.DependsOn+" failed"),
	}
}

// requestCtx bounds one probe request: params.timeout wins, then the
// engine default. The parent ctx (the runner's per-check deadline)
// still applies underneath.
func (b base) requestCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	d := b.opts.Timeout
	if b.def.Params.TimeoutSeconds > 0 {
		d = time.Duration(b.def.Params.TimeoutSeconds) * time.Second
	}
	if d <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}

func (b base) pendingWindow() time.Duration {
	if b.def.Params.PendingMinutes > 0 {
		return time.Duration(b.def.Params.PendingMinutes) * time.Minute
	}
	if b.opts.PendingWindow > 0 {
		return b.opts.PendingWindow
	}
	return 30 * time.Minute
}

func (b base) apiKey() string { return os.Getenv(b.def.Params.APIKeyEnv) }

func (b base) datasetID() string { return os.Getenv(b.def.Params.DatasetIDEnv) }

func (b base) authHeaders(req *http.Request) {
	if key := b.apiKey(); key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}
	req.Header.Set("Content-Type", "application/json")
}

func elapsedMS(start time.Time) int {
	return int(time.Since(start).Milliseconds())
}

// retryExecutor re-probes a failed single-phase check a bounded number
// of times before accepting the failure.
type retryExecutor struct {
	inner    Executor
	attempts int
	backoff  time.Duration
}

func (r *retryExecutor) Execute(ctx context.Context, cycle Cycle) []domain.CheckResult {
	if cycle.DependencyFailed {
		return r.inner.Execute(ctx, cycle)
	}
	var last []domain.CheckResult
	for i := 0; i < r.attempts; i++ {
		last = r.inner.Execute(ctx, cycle)
		if len(last) != 1 || last[0].Status != domain.StatusDown {
			return last
		}
		if i < r.attempts-1 {
			time.Sleep(r.backoff)
		}
	}
	last[0].Message += " (after retries)"
	return last
}
