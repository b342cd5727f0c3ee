package fleet

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ScalePolicy selects the aggregate fleet-wide load statistic check_scale
// compares against its thresholds.
type ScalePolicy string

const (
	// ScalePolicyMaxLoad aggregates by the maximum instance_load_dispatch_scale.
	ScalePolicyMaxLoad ScalePolicy = "max_load"
	// ScalePolicyAvgLoad aggregates by the mean instance_load_dispatch_scale.
	ScalePolicyAvgLoad ScalePolicy = "avg_load"
)

func isValidScalePolicy(p ScalePolicy) bool {
	switch p {
	case ScalePolicyMaxLoad, ScalePolicyAvgLoad:
		return true
	default:
		return false
	}
}

// ScaleScheduler decides whether the fleet should grow or shrink by one
// instance, and supplies the canonical InstanceInfo for a freshly admitted
// instance.
type ScaleScheduler struct {
	policy             ScalePolicy
	scaleUpThreshold   float64
	scaleDownThreshold float64
	defaultTotalBlocks int64
}

// NewScaleScheduler validates policy and threshold ordering
// (scale_down_threshold <= scale_up_threshold) and returns a ready
// scheduler. defaultTotalBlocks seeds EmptyInstanceInfo's block capacity
// for newly admitted instances when no other source of truth is known.
func NewScaleScheduler(policy ScalePolicy, scaleUpThreshold, scaleDownThreshold float64, defaultTotalBlocks int64) (*ScaleScheduler, error) {
	if !isValidScalePolicy(policy) {
		return nil, fmt.Errorf("fleet: unknown scale policy %q", policy)
	}
	if scaleDownThreshold > scaleUpThreshold {
		return nil, fmt.Errorf("fleet: scale_down_threshold (%v) must be <= scale_up_threshold (%v)", scaleDownThreshold, scaleUpThreshold)
	}
	return &ScaleScheduler{
		policy:             policy,
		scaleUpThreshold:   scaleUpThreshold,
		scaleDownThreshold: scaleDownThreshold,
		defaultTotalBlocks: defaultTotalBlocks,
	}, nil
}

// CheckScale returns (1,0) if the aggregate load is over scaleUpThreshold,
// (0,1) if it is under scaleDownThreshold, and (0,0) otherwise. An empty
// snapshot is steady-state: (0,0).
func (s *ScaleScheduler) CheckScale(snapshot []InstanceInfo) (scaleUp, scaleDown int) {
	if len(snapshot) == 0 {
		return 0, 0
	}

	loads := make([]float64, len(snapshot))
	for i, info := range snapshot {
		loads[i] = info.InstanceLoadDispatchScale
	}

	var aggregate float64
	switch s.policy {
	case ScalePolicyAvgLoad:
		aggregate = stat.Mean(loads, nil)
	default: // ScalePolicyMaxLoad
		aggregate = floats.Max(loads)
	}

	switch {
	case aggregate > s.scaleUpThreshold:
		return 1, 0
	case aggregate < s.scaleDownThreshold:
		return 0, 1
	default:
		return 0, 0
	}
}

// EmptyInstanceInfo returns the canonical InstanceInfo for a freshly
// admitted instance: zero counters, fully free blocks, both derived load
// scalars at the sentinel so it attracts dispatches and migrations until
// its first heartbeat.
func (s *ScaleScheduler) EmptyInstanceInfo(instanceID string) InstanceInfo {
	return InstanceInfo{
		InstanceID:                instanceID,
		NumTotalGPUBlock:          s.defaultTotalBlocks,
		NumFreeGPUBlock:           s.defaultTotalBlocks,
		InstanceLoadDispatchScale: sentinelLoad,
		InstanceLoadMigrate:       sentinelLoad,
	}
}
