package transition

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mhemmati/statuswatch/internal/domain"
)

func snap(overall domain.Status, perCheck map[string]domain.Status, at time.Time) State {
	return State{Overall: overall, PerCheck: perCheck, UpdatedAt: at}
}

func TestDetect_UpToDownIsIncident(t *testing.T) {
	at := time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC)
	prev := snap(domain.StatusUp, map[string]domain.Status{"api": domain.StatusUp, "web": domain.StatusUp}, at.Add(-5*time.Minute))
	cur := snap(domain.StatusDown, map[string]domain.Status{"api": domain.StatusDown, "web": domain.StatusUp}, at)

	ev := Detect(prev, true, cur)
	if ev == nil || ev.Kind != domain.TransitionIncident {
		t.Fatalf("want incident, got %+v", ev)
	}
	if len(ev.AffectedChecks) != 1 || ev.AffectedChecks[0] != "api" {
		t.Fatalf("affected: %v", ev.AffectedChecks)
	}
	if ev.DedupKey == "" {
		t.Fatalf("dedup key must be set")
	}
}

func TestDetect_UpToDegradedIsIncident(t *testing.T) {
	at := time.Now().UTC()
	ev := Detect(
		snap(domain.StatusUp, nil, at.Add(-time.Minute)), true,
		snap(domain.StatusDegraded, map[string]domain.Status{"web": domain.StatusDegraded}, at),
	)
	if ev == nil || ev.Kind != domain.TransitionIncident {
		t.Fatalf("want incident, got %+v", ev)
	}
}

func TestDetect_DownToUpIsRecovered(t *testing.T) {
	at := time.Now().UTC()
	ev := Detect(
		snap(domain.StatusDown, map[string]domain.Status{"api": domain.StatusDown}, at.Add(-time.Minute)), true,
		snap(domain.StatusUp, map[string]domain.Status{"api": domain.StatusUp}, at),
	)
	if ev == nil || ev.Kind != domain.TransitionRecovered {
		t.Fatalf("want recovered, got %+v", ev)
	}
	// recovery names what had been failing
	if len(ev.AffectedChecks) != 1 || ev.AffectedChecks[0] != "api" {
		t.Fatalf("affected: %v", ev.AffectedChecks)
	}
}

func TestDetect_DownDegradedShuffleIsSilent(t *testing.T) {
	at := time.Now().UTC()
	if ev := Detect(snap(domain.StatusDown, nil, at), true, snap(domain.StatusDegraded, nil, at)); ev != nil {
		t.Fatalf("down->degraded fired: %+v", ev)
	}
	if ev := Detect(snap(domain.StatusDegraded, nil, at), true, snap(domain.StatusDown, nil, at)); ev != nil {
		t.Fatalf("degraded->down fired: %+v", ev)
	}
}

func TestDetect_NoEdgeNoEvent(t *testing.T) {
	at := time.Now().UTC()
	if ev := Detect(snap(domain.StatusUp, nil, at), true, snap(domain.StatusUp, nil, at)); ev != nil {
		t.Fatalf("equal statuses fired: %+v", ev)
	}
	if ev := Detect(State{}, false, snap(domain.StatusDown, nil, at)); ev != nil {
		t.Fatalf("first observation fired: %+v", ev)
	}
}

// One incident and one recovery for a full outage cycle, nothing more.
func TestDetect_ExactlyOneEventPerEdge(t *testing.T) {
	at := time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC)
	seq := []domain.Status{
		domain.StatusUp, domain.StatusUp,
		domain.StatusDown, domain.StatusDown, domain.StatusDegraded,
		domain.StatusUp, domain.StatusUp,
	}

	var incidents, recoveries int
	var prev State
	hasPrev := false
	for i, st := range seq {
		cur := snap(st, nil, at.Add(time.Duration(i)*5*time.Minute))
		if ev := Detect(prev, hasPrev, cur); ev != nil {
			switch ev.Kind {
			case domain.TransitionIncident:
				incidents++
			case domain.TransitionRecovered:
				recoveries++
			}
		}
		prev, hasPrev = cur, true
	}
	if incidents != 1 || recoveries != 1 {
		t.Fatalf("want 1 incident and 1 recovery, got %d/%d", incidents, recoveries)
	}
}

func TestStateFile_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "incident.json")

	if _, ok, err := Load(path); err != nil || ok {
		t.Fatalf("missing state should read as none: ok=%v err=%v", ok, err)
	}

	st := snap(domain.StatusDown, map[string]domain.Status{"api": domain.StatusDown}, time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC))
	if err := Save(path, st); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, ok, err := Load(path)
	if err != nil || !ok {
		t.Fatalf("Load: ok=%v err=%v", ok, err)
	}
	if got.Overall != domain.StatusDown || got.PerCheck["api"] != domain.StatusDown {
		t.Fatalf("round trip lost data: %+v", got)
	}
	if !got.UpdatedAt.Equal(st.UpdatedAt) {
		t.Fatalf("timestamp drift: %v vs %v", got.UpdatedAt, st.UpdatedAt)
	}
}

func TestLoad_CorruptStateIsAnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "incident.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, _, err := Load(path); err == nil {
		t.Fatalf("corrupt state must fail loudly")
	}
}

func TestSave_LeavesNoTempFileBehind(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "incident.json")
	if err := Save(path, snap(domain.StatusUp, nil, time.Now().UTC())); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temp file left behind")
	}
}
