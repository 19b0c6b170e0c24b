package pending

import (
	"context"
	"testing"
	"time"

	"github.com/mhemmati/statuswatch/internal/domain"
	"github.com/mhemmati/statuswatch/internal/store"
)

func newStore(t *testing.T) *store.Store {
	t.Helper()
	return store.New(t.TempDir())
}

func startRecord(checkID, token string, ts time.Time, window time.Duration) domain.CheckResult {
	deadline := ts.Add(window)
	return domain.CheckResult{
		CheckID:      checkID,
		Timestamp:    ts,
		Status:       domain.StatusUp,
		CyclePhase:   domain.PhaseStart,
		PendingToken: token,
		Deadline:     &deadline,
	}
}

func verifyRecord(checkID, token string, ts time.Time) domain.CheckResult {
	return domain.CheckResult{
		CheckID:      checkID,
		Timestamp:    ts,
		Status:       domain.StatusUp,
		CyclePhase:   domain.PhaseVerify,
		PendingToken: token,
	}
}

func TestOutstanding_UnresolvedStartIsReturned(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)
	now := time.Date(2026, 8, 24, 10, 15, 0, 0, time.UTC)
	started := now.Add(-15 * time.Minute)

	if err := st.Append(ctx, startRecord("knowledge", "batch-1", started, 30*time.Minute)); err != nil {
		t.Fatalf("append: %v", err)
	}

	c := New(st, 30*time.Minute)
	entry, err := c.Outstanding(ctx, "knowledge", now)
	if err != nil {
		t.Fatalf("Outstanding: %v", err)
	}
	if entry == nil {
		t.Fatalf("want open claim, got none")
	}
	if entry.Token != "batch-1" || !entry.CreatedAt.Equal(started) {
		t.Fatalf("unexpected entry: %+v", entry)
	}
	if !entry.Deadline.Equal(started.Add(30 * time.Minute)) {
		t.Fatalf("deadline should come from the start record, got %v", entry.Deadline)
	}
}

func TestOutstanding_VerifyRecordClosesClaim(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)
	now := time.Date(2026, 8, 24, 10, 30, 0, 0, time.UTC)

	st.Append(ctx, startRecord("knowledge", "batch-1", now.Add(-30*time.Minute), 30*time.Minute))
	st.Append(ctx, verifyRecord("knowledge", "batch-1", now.Add(-15*time.Minute)))

	entry, err := New(st, 30*time.Minute).Outstanding(ctx, "knowledge", now)
	if err != nil {
		t.Fatalf("Outstanding: %v", err)
	}
	if entry != nil {
		t.Fatalf("resolved claim should not reappear: %+v", entry)
	}
}

func TestOutstanding_OnlyNewestStartCounts(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)

	// an older cycle that completed, then a fresh unresolved one
	st.Append(ctx, startRecord("webhook", "t-old", now.Add(-2*time.Hour), 30*time.Minute))
	st.Append(ctx, verifyRecord("webhook", "t-old", now.Add(-100*time.Minute)))
	st.Append(ctx, startRecord("webhook", "t-new", now.Add(-10*time.Minute), 30*time.Minute))

	entry, err := New(st, 30*time.Minute).Outstanding(ctx, "webhook", now)
	if err != nil {
		t.Fatalf("Outstanding: %v", err)
	}
	if entry == nil || entry.Token != "t-new" {
		t.Fatalf("want the newest open claim, got %+v", entry)
	}
}

func TestOutstanding_ScansAcrossMidnight(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)
	// claim opened 23:50 yesterday, asked about at 00:10 today
	started := time.Date(2026, 8, 23, 23, 50, 0, 0, time.UTC)
	now := time.Date(2026, 8, 24, 0, 10, 0, 0, time.UTC)

	st.Append(ctx, startRecord("knowledge", "batch-x", started, 30*time.Minute))

	entry, err := New(st, 30*time.Minute).Outstanding(ctx, "knowledge", now)
	if err != nil {
		t.Fatalf("Outstanding: %v", err)
	}
	if entry == nil || entry.Token != "batch-x" {
		t.Fatalf("claim across midnight lost: %+v", entry)
	}
}

func TestOutstanding_IgnoresOtherChecks(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)
	now := time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC)

	st.Append(ctx, startRecord("knowledge", "batch-1", now.Add(-5*time.Minute), 30*time.Minute))

	entry, err := New(st, 30*time.Minute).Outstanding(ctx, "webhook", now)
	if err != nil {
		t.Fatalf("Outstanding: %v", err)
	}
	if entry != nil {
		t.Fatalf("claim leaked across checks: %+v", entry)
	}
}

func TestOutstanding_FallbackWindowWhenRecordHasNoDeadline(t *testing.T) {
	ctx := context.Background()
	st := newStore(t)
	now := time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC)
	started := now.Add(-5 * time.Minute)

	rec := startRecord("knowledge", "batch-1", started, 30*time.Minute)
	rec.Deadline = nil
	st.Append(ctx, rec)

	entry, err := New(st, 20*time.Minute).Outstanding(ctx, "knowledge", now)
	if err != nil {
		t.Fatalf("Outstanding: %v", err)
	}
	if entry == nil || !entry.Deadline.Equal(started.Add(20*time.Minute)) {
		t.Fatalf("fallback window not applied: %+v", entry)
	}
}
