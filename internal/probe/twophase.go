package probe

import (
	"context"

	"github.com/mhemmati/statuswatch/internal/domain"
)

// phaseOps is what a concrete two-phase check supplies: how to kick off
// the side effect and how to poll it. The shared driver owns the state
// machine (idle -> pending -> resolved) and the deadline rule.
type phaseOps interface {
	// start initiates the side effect. On success the returned record
	// carries PendingToken (+ optional PendingRef) and Deadline; on
	// failure it is a plain down sample.
	start(ctx context.Context, cycle Cycle) domain.CheckResult
	// verify polls the backing system for the claim. done=false means
	// the side effect is still in flight and no judgement was possible.
	verify(ctx context.Context, entry domain.PendingEntry, cycle Cycle) (domain.CheckResult, bool)
}

type twoPhase struct {
	base
	ops phaseOps
}

func (t *twoPhase) Execute(ctx context.Context, cycle Cycle) []domain.CheckResult {
	if cycle.DependencyFailed {
		return t.failFast(cycle.Now)
	}

	var out []domain.CheckResult
	if cycle.Pending != nil {
		entry := *cycle.Pending
		res, done := t.ops.verify(ctx, entry, cycle)
		switch {
		case done:
			out = append(out, res)
		case entry.Expired(cycle.Now):
			// Claim ran out of time; resolve it as a failure so the
			// pending backlog stays bounded.
			down := t.result(cycle.Now, domain.StatusDown, domain.NotMeasured,
				"side effect not completed within claim window")
			down.CyclePhase = domain.PhaseVerify
			down.PendingToken = entry.Token
			out = append(out, down)
		default:
			// Still processing and within the window: contributes no
			// sample this cycle, and the claim blocks a new start.
			return nil
		}
	}

	// Only one claim may be outstanding per check; reaching here means
	// the previous one (if any) was just resolved.
	out = append(out, t.ops.start(ctx, cycle))
	return out
}
