// Package transition turns consecutive overall statuses into incident
// and recovery events. State lives in one JSON file so the detector
// fires exactly once per edge across separate invocations.
package transition

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/mhemmati/statuswatch/internal/domain"
)

// State is the last observed status snapshot.
type State struct {
	Overall   domain.Status            `json:"overall"`
	PerCheck  map[string]domain.Status `json:"per_check"`
	UpdatedAt time.Time                `json:"updated_at"`
}

// Load reads the persisted state. ok=false means no state exists yet
// (first run); a corrupt or unreadable file is an error, not a fresh
// start, because silently forgetting state would re-fire old incidents.
func Load(path string) (State, bool, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return State{}, false, nil
		}
		return State{}, false, fmt.Errorf("read state %s: %w", path, err)
	}
	var st State
	if err := json.Unmarshal(raw, &st); err != nil {
		return State{}, false, fmt.Errorf("corrupt state %s: %w", path, err)
	}
	return st, true, nil
}

// Save writes the state atomically (temp file + rename) so a crash
// mid-write leaves the previous state intact.
func Save(path string, st State) error {
	raw, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace state: %w", err)
	}
	return nil
}

// Detect compares the previous snapshot with the current one and
// returns the event for the edge, if any. Only edges across the healthy
// boundary count: up to down or degraded is an incident, down or
// degraded back to up is a recovery. Moves between down and degraded,
// equal statuses and the very first observation produce nothing.
func Detect(prev State, hasPrev bool, cur State) *domain.TransitionEvent {
	if !hasPrev || prev.Overall == cur.Overall {
		return nil
	}
	wasHealthy := prev.Overall.Healthy()
	isHealthy := cur.Overall.Healthy()
	if wasHealthy == isHealthy {
		return nil
	}

	kind := domain.TransitionRecovered
	affected := affectedChecks(prev.PerCheck)
	if !isHealthy {
		kind = domain.TransitionIncident
		affected = affectedChecks(cur.PerCheck)
	}
	return &domain.TransitionEvent{
		Kind:           kind,
		AffectedChecks: affected,
		Timestamp:      cur.UpdatedAt,
		DedupKey:       dedupKey(kind, cur.UpdatedAt),
	}
}

// affectedChecks lists the checks that were not healthy in the snapshot
// on the unhealthy side of the edge, in stable order.
func affectedChecks(perCheck map[string]domain.Status) []string {
	var out []string
	for id, st := range perCheck {
		if st.Definite() && !st.Healthy() {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

func dedupKey(kind domain.TransitionKind, ts time.Time) string {
	return fmt.Sprintf("%s-%s", kind, ts.UTC().Format("20060102T150405Z"))
}
