package cmd

import (
	"os"
	"path/filepath"
	"testing"
)

const validScenarioYAML = `
load_metric: remaining_steps
dispatch_policy: load
check_migrate_policy: balanced
scale_policy: avg_load
migrate_out_load_threshold: 3.0
scale_up_threshold: 0.8
scale_down_threshold: 0.2
enable_prefill_migrate: true
default_total_gpu_blocks: 100
harness:
  total_gpu_blocks: 100
  blocks_per_req: 10
  arrival_rate: 2.0
  service_count: 1
`

func writeScenario(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("writing scenario fixture: %v", err)
	}
	return path
}

func TestLoadScenarioConfig_ParsesAllFields(t *testing.T) {
	path := writeScenario(t, validScenarioYAML)

	cfg, err := loadScenarioConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.LoadMetric != "remaining_steps" {
		t.Errorf("load_metric: got %q", cfg.LoadMetric)
	}
	if cfg.Harness.TotalGPUBlocks != 100 {
		t.Errorf("harness.total_gpu_blocks: got %d", cfg.Harness.TotalGPUBlocks)
	}
}

func TestLoadScenarioConfig_RejectsUnknownField(t *testing.T) {
	path := writeScenario(t, validScenarioYAML+"\nbogus_field: 1\n")

	if _, err := loadScenarioConfig(path); err == nil {
		t.Fatal("expected error for unknown field, got nil")
	}
}

func TestLoadScenarioConfig_MissingFile(t *testing.T) {
	if _, err := loadScenarioConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file, got nil")
	}
}

func TestToGlobalSchedulerConfig_RoundTripsPolicyNames(t *testing.T) {
	path := writeScenario(t, validScenarioYAML)
	cfg, err := loadScenarioConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	gsc := cfg.ToGlobalSchedulerConfig()
	if string(gsc.DispatchPolicy) != "load" {
		t.Errorf("dispatch policy: got %q", gsc.DispatchPolicy)
	}
	if gsc.MigrateOutLoadThreshold != 3.0 {
		t.Errorf("migrate_out_load_threshold: got %v", gsc.MigrateOutLoadThreshold)
	}
}
