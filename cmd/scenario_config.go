package cmd

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/llumnix-go/fleetsched/fleet"
)

// ScenarioConfig is the full on-disk scenario file shape: scheduler policy
// selection plus the harness parameters for the synthetic demo fleet. All
// top-level sections must be listed here; unknown fields are a YAML error,
// matching the teacher's strict-decode defaults.yaml convention.
type ScenarioConfig struct {
	LoadMetric              string        `yaml:"load_metric"`
	DispatchPolicy          string        `yaml:"dispatch_policy"`
	CheckMigratePolicy      string        `yaml:"check_migrate_policy"`
	ScalePolicy             string        `yaml:"scale_policy"`
	MigrateOutLoadThreshold float64       `yaml:"migrate_out_load_threshold"`
	ScaleUpThreshold        float64       `yaml:"scale_up_threshold"`
	ScaleDownThreshold      float64       `yaml:"scale_down_threshold"`
	EnablePrefillMigrate    bool          `yaml:"enable_prefill_migrate"`
	DefaultTotalGPUBlocks   int64         `yaml:"default_total_gpu_blocks"`
	Harness                 HarnessConfig `yaml:"harness"`
}

// HarnessConfig parameterizes the synthetic demo fleet only; it has no
// counterpart in the scheduler's own configuration surface.
type HarnessConfig struct {
	TotalGPUBlocks int64   `yaml:"total_gpu_blocks"`
	BlocksPerReq   int64   `yaml:"blocks_per_req"`
	ArrivalRate    float64 `yaml:"arrival_rate"`
	ServiceCount   int64   `yaml:"service_count"`
}

// ToGlobalSchedulerConfig converts the on-disk string enums to the fleet
// package's typed policy names. Validation of the names themselves is left
// to fleet.NewGlobalScheduler, which is the single source of truth for
// what counts as a known policy.
func (c ScenarioConfig) ToGlobalSchedulerConfig() fleet.GlobalSchedulerConfig {
	return fleet.GlobalSchedulerConfig{
		LoadMetric:              fleet.LoadMetric(c.LoadMetric),
		DispatchPolicy:          fleet.DispatchPolicy(c.DispatchPolicy),
		CheckMigratePolicy:      fleet.MigratePolicy(c.CheckMigratePolicy),
		ScalePolicy:             fleet.ScalePolicy(c.ScalePolicy),
		MigrateOutLoadThreshold: c.MigrateOutLoadThreshold,
		ScaleUpThreshold:        c.ScaleUpThreshold,
		ScaleDownThreshold:      c.ScaleDownThreshold,
		EnablePrefillMigrate:    c.EnablePrefillMigrate,
		DefaultTotalGPUBlocks:   c.DefaultTotalGPUBlocks,
	}
}

// loadScenarioConfig reads and strictly decodes a scenario YAML file.
func loadScenarioConfig(path string) (ScenarioConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ScenarioConfig{}, fmt.Errorf("reading scenario file %s: %w", path, err)
	}

	var cfg ScenarioConfig
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return ScenarioConfig{}, fmt.Errorf("parsing scenario YAML %s: %w", path, err)
	}
	return cfg, nil
}
