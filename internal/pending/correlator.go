// Package pending reconstructs outstanding two-phase claims from the
// result stream itself. A start record carrying a token opens a claim;
// a later verify record with the same token closes it. No separate
// state file exists, so a crash between cycles loses nothing.
package pending

import (
	"context"
	"time"

	"github.com/mhemmati/statuswatch/internal/domain"
)

// DayReader is the slice of the result store the correlator needs.
type DayReader interface {
	ReadDay(ctx context.Context, day time.Time) ([]domain.CheckResult, error)
}

type Correlator struct {
	store DayReader
	// fallback claim window for start records persisted without a deadline
	window time.Duration
}

func New(store DayReader, window time.Duration) *Correlator {
	if window <= 0 {
		window = 30 * time.Minute
	}
	return &Correlator{store: store, window: window}
}

// Outstanding returns the open claim for one check, or nil if every
// start record has been resolved. Claims never outlive their deadline
// by more than a cycle, so scanning today plus yesterday is enough to
// cover claims opened shortly before midnight.
func (c *Correlator) Outstanding(ctx context.Context, checkID string, now time.Time) (*domain.PendingEntry, error) {
	now = now.UTC()
	records, err := c.readWindow(ctx, now)
	if err != nil {
		return nil, err
	}

	var open *domain.CheckResult
	resolved := make(map[string]bool)
	for i := range records {
		r := &records[i]
		if r.CheckID != checkID || r.PendingToken == "" {
			continue
		}
		switch r.CyclePhase {
		case domain.PhaseStart:
			if open == nil || r.Timestamp.After(open.Timestamp) {
				open = r
			}
		case domain.PhaseVerify:
			resolved[r.PendingToken] = true
		}
	}
	if open == nil || resolved[open.PendingToken] {
		return nil, nil
	}

	deadline := open.Timestamp.Add(c.window)
	if open.Deadline != nil {
		deadline = *open.Deadline
	}
	return &domain.PendingEntry{
		CheckID:   checkID,
		CreatedAt: open.Timestamp,
		Token:     open.PendingToken,
		Ref:       open.PendingRef,
		Deadline:  deadline,
	}, nil
}

func (c *Correlator) readWindow(ctx context.Context, now time.Time) ([]domain.CheckResult, error) {
	yesterday, err := c.store.ReadDay(ctx, now.AddDate(0, 0, -1))
	if err != nil {
		return nil, err
	}
	today, err := c.store.ReadDay(ctx, now)
	if err != nil {
		return nil, err
	}
	return append(yesterday, today...), nil
}
