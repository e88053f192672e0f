package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestApplyDefaultsSetsModelDefaults(t *testing.T) {
	cfg := Config{}

	applyDefaults(&cfg)

	if cfg.Model.Name != "gpt-4o" {
		t.Fatalf("unexpected model name: %s", cfg.Model.Name)
	}
	if cfg.Model.APIKeyEnv != "OPENAI_API_KEY" {
		t.Fatalf("unexpected api key env: %s", cfg.Model.APIKeyEnv)
	}
	if cfg.Model.MaxToolRounds != 4 {
		t.Fatalf("unexpected tool round cap: %d", cfg.Model.MaxToolRounds)
	}
}

func TestApplyDefaultsSetsStateAndHistoryDefaults(t *testing.T) {
	cfg := Config{}

	applyDefaults(&cfg)

	if cfg.State.Path != filepath.Join("output", "state", "tasks.json") {
		t.Fatalf("unexpected state path: %s", cfg.State.Path)
	}
	if cfg.State.BackupKeep != 5 {
		t.Fatalf("unexpected backup keep: %d", cfg.State.BackupKeep)
	}
	if cfg.History.RetentionDays != 30 {
		t.Fatalf("unexpected retention days: %d", cfg.History.RetentionDays)
	}
	if cfg.Maintenance.BackupIntervalMin != 30 {
		t.Fatalf("unexpected backup interval: %d", cfg.Maintenance.BackupIntervalMin)
	}
}

func TestApplyDefaultsKeepsExplicitValues(t *testing.T) {
	cfg := Config{
		Model: ModelConfig{
			Name:          "gpt-4o-mini",
			APIKeyEnv:     "ARBOR_KEY",
			MaxToolRounds: 2,
		},
	}

	applyDefaults(&cfg)

	if cfg.Model.Name != "gpt-4o-mini" {
		t.Fatalf("expected explicit model name to survive, got %s", cfg.Model.Name)
	}
	if cfg.Model.APIKeyEnv != "ARBOR_KEY" {
		t.Fatalf("expected explicit env var to survive, got %s", cfg.Model.APIKeyEnv)
	}
	if cfg.Model.MaxToolRounds != 2 {
		t.Fatalf("expected explicit round cap to survive, got %d", cfg.Model.MaxToolRounds)
	}
}

func TestApplyDefaultsSanitizesNonPositiveValues(t *testing.T) {
	cfg := Config{
		Model:       ModelConfig{MaxToolRounds: -1},
		State:       StateConfig{BackupKeep: 0},
		History:     HistoryConfig{RetentionDays: -7},
		Maintenance: MaintenanceConfig{BackupIntervalMin: 0, PruneIntervalMin: -3},
	}

	applyDefaults(&cfg)

	if cfg.Model.MaxToolRounds != 4 {
		t.Fatalf("expected round cap clamped to 4, got %d", cfg.Model.MaxToolRounds)
	}
	if cfg.State.BackupKeep != 5 {
		t.Fatalf("expected backup keep clamped to 5, got %d", cfg.State.BackupKeep)
	}
	if cfg.History.RetentionDays != 30 {
		t.Fatalf("expected retention clamped to 30, got %d", cfg.History.RetentionDays)
	}
	if cfg.Maintenance.PruneIntervalMin != 360 {
		t.Fatalf("expected prune interval clamped to 360, got %d", cfg.Maintenance.PruneIntervalMin)
	}
}

func TestNormalizeReportsTouchedSections(t *testing.T) {
	cfg := Config{Model: ModelConfig{Name: "gpt-4o", APIKeyEnv: "OPENAI_API_KEY", MaxToolRounds: 4}}

	_, applied := Normalize(cfg)

	for _, section := range applied {
		if section == "model" {
			t.Fatalf("model section was complete, should not be reported: %#v", applied)
		}
	}
	found := false
	for _, section := range applied {
		if section == "state" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected state section in defaults report, got %#v", applied)
	}
}

func TestManagerCreatesFileAndRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	mgr, err := NewManager(path)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected config file to be created: %v", err)
	}

	if _, err := mgr.Update(func(c *Config) {
		c.Model.Name = "gpt-4o-mini"
	}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	reloaded, err := NewManager(path)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if got := reloaded.Get().Model.Name; got != "gpt-4o-mini" {
		t.Fatalf("expected persisted model name, got %s", got)
	}
}
