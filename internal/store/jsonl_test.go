package store

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/mhemmati/statuswatch/internal/domain"
)

func res(id string, ts time.Time, st domain.Status, ms int) domain.CheckResult {
	return domain.CheckResult{CheckID: id, Timestamp: ts, Status: st, ResponseTimeMS: ms}
}

func TestStore_RoundTripInTimestampOrder(t *testing.T) {
	ctx := context.Background()
	s := New(t.TempDir())

	base := time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC)
	var want []time.Time
	// append out of day order across two partitions
	for _, offset := range []time.Duration{26 * time.Hour, 0, 2 * time.Hour, 25 * time.Hour, time.Hour} {
		ts := base.Add(offset)
		if err := s.Append(ctx, res("api", ts, domain.StatusUp, 100)); err != nil {
			t.Fatalf("Append: %v", err)
		}
		want = append(want, ts)
	}

	got, err := s.ReadRange(ctx, "api", base, base.Add(48*time.Hour))
	if err != nil {
		t.Fatalf("ReadRange: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("want %d records, got %d", len(want), len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].Timestamp.Before(got[i-1].Timestamp) {
			t.Fatalf("records out of order at %d: %v after %v", i, got[i].Timestamp, got[i-1].Timestamp)
		}
	}
}

func TestStore_MissingPartitionIsEmptyNotError(t *testing.T) {
	ctx := context.Background()
	s := New(t.TempDir())

	got, err := s.ReadDay(ctx, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("ReadDay on missing partition: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("want empty, got %d", len(got))
	}
}

func TestStore_AppendNeverOverwrites(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s := New(dir)

	ts := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		if err := s.Append(ctx, res("api", ts.Add(time.Duration(i)*time.Minute), domain.StatusUp, i)); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	path := filepath.Join(dir, "2026", "08", "2026-08-24.jsonl")
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read partition: %v", err)
	}
	lines := 0
	for _, c := range b {
		if c == '\n' {
			lines++
		}
	}
	if lines != 3 {
		t.Fatalf("want 3 lines, got %d", lines)
	}
}

func TestStore_ConcurrentAppendsDoNotCorrupt(t *testing.T) {
	ctx := context.Background()
	s := New(t.TempDir())

	ts := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = s.Append(ctx, res("api", ts.Add(time.Duration(i)*time.Second), domain.StatusUp, i))
		}(i)
	}
	wg.Wait()

	got, err := s.ReadDay(ctx, ts)
	if err != nil {
		t.Fatalf("ReadDay: %v", err)
	}
	if len(got) != n {
		t.Fatalf("want %d parseable records, got %d", n, len(got))
	}
}

func TestStore_ReadRangeFiltersCheckID(t *testing.T) {
	ctx := context.Background()
	s := New(t.TempDir())

	ts := time.Date(2026, 8, 24, 9, 0, 0, 0, time.UTC)
	_ = s.Append(ctx, res("api", ts, domain.StatusUp, 10))
	_ = s.Append(ctx, res("sandbox", ts.Add(time.Minute), domain.StatusDown, domain.NotMeasured))

	got, err := s.ReadRange(ctx, "sandbox", ts, ts.Add(time.Hour))
	if err != nil {
		t.Fatalf("ReadRange: %v", err)
	}
	if len(got) != 1 || got[0].CheckID != "sandbox" || got[0].Status != domain.StatusDown {
		t.Fatalf("unexpected: %+v", got)
	}
}

func TestStore_TimestampsTruncatedToSecondUTC(t *testing.T) {
	ctx := context.Background()
	s := New(t.TempDir())

	loc := time.FixedZone("JST", 9*3600)
	ts := time.Date(2026, 8, 24, 18, 30, 15, 987654321, loc)
	if err := s.Append(ctx, res("api", ts, domain.StatusUp, 5)); err != nil {
		t.Fatalf("Append: %v", err)
	}

	got, err := s.ReadDay(ctx, ts.UTC())
	if err != nil || len(got) != 1 {
		t.Fatalf("ReadDay: %v (%d records)", err, len(got))
	}
	want := time.Date(2026, 8, 24, 9, 30, 15, 0, time.UTC)
	if !got[0].Timestamp.Equal(want) {
		t.Fatalf("want %v, got %v", want, got[0].Timestamp)
	}
}
