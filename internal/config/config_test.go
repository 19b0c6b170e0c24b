package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mhemmati/statuswatch/internal/domain"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const validYAML = `
settings:
  data_dir: ./data
  retention_days: 30
checks:
  - id: api
    name: API
    type: http
    params:
      url: https://example.com/ping
      expected_status: 200
  - id: sandbox
    name: Sandbox
    type: http
    depends_on: api
    params:
      url: https://example.com/sandbox
  - id: knowledge
    name: Knowledge Indexing
    type: knowledge
    params:
      base_url: https://example.com/v1
      dataset_id_env: DATASET_ID
      api_key_env: API_KEY
      pending_minutes: 30
`

func TestLoad_ParsesAndDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Settings.DataDir != "./data" || cfg.Settings.RetentionDays != 30 {
		t.Fatalf("settings wrong: %+v", cfg.Settings)
	}
	// untouched settings fall back to defaults
	if cfg.Settings.Concurrency != 4 || cfg.Settings.CheckTimeout != 30 {
		t.Fatalf("defaults not applied: %+v", cfg.Settings)
	}
	if len(cfg.Checks) != 3 {
		t.Fatalf("want 3 checks, got %d", len(cfg.Checks))
	}
	if cfg.Checks[1].DependsOn != "api" {
		t.Fatalf("depends_on lost: %+v", cfg.Checks[1])
	}
	if cfg.Checks[2].Type != domain.TypeKnowledge || cfg.Checks[2].Params.PendingMinutes != 30 {
		t.Fatalf("params lost: %+v", cfg.Checks[2])
	}
}

func TestLoad_RejectsUnknownType(t *testing.T) {
	_, err := Load(writeConfig(t, `
checks:
  - id: x
    name: X
    type: icmp
`))
	if err == nil {
		t.Fatalf("expected unknown-type error")
	}
}

func TestLoad_RejectsUnknownDependency(t *testing.T) {
	_, err := Load(writeConfig(t, `
checks:
  - id: x
    name: X
    type: http
    depends_on: ghost
`))
	if err == nil {
		t.Fatalf("expected unknown-dependency error")
	}
}

func TestLoad_RejectsDependencyCycle(t *testing.T) {
	_, err := Load(writeConfig(t, `
checks:
  - id: a
    name: A
    type: http
    depends_on: b
  - id: b
    name: B
    type: http
    depends_on: a
`))
	if err == nil {
		t.Fatalf("expected cycle error")
	}
}

func TestLoad_RejectsDuplicateID(t *testing.T) {
	_, err := Load(writeConfig(t, `
checks:
  - id: a
    name: A
    type: http
  - id: a
    name: A again
    type: http
`))
	if err == nil {
		t.Fatalf("expected duplicate-id error")
	}
}
