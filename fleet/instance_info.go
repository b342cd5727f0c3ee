// Package fleet implements the fleet-level scheduler for a pool of LLM
// inference instances: per-request dispatch, inter-instance migration, and
// cluster auto-scaling, driven off asynchronous load heartbeats.
package fleet

import "math"

// InstanceInfo is a value record describing one instance's load signals at
// a moment in time. It is created on ScaleUp, overwritten wholesale on every
// heartbeat, and removed on ScaleDown; it is never mutated in place after
// ingestion except for the two derived load scalars and NumDispatchedRequest.
type InstanceInfo struct {
	InstanceID string

	NumRunningRequest int64
	NumWaitingRequest int64
	NumKilledRequest  int64

	// num_used_gpu_block + num_free_gpu_block = num_total_gpu_block.
	NumTotalGPUBlock int64
	NumFreeGPUBlock  int64
	NumUsedGPUBlock  int64

	// Block footprint of the head waiting request and the most recently
	// admitted running request. NumBlockLastRunningRequest is what project
	// uses to estimate load after a hypothetical migration without
	// re-deriving it from the engine.
	NumBlockFirstWaitingRequest int64
	NumBlockLastRunningRequest  int64

	NumBatchedTokens int64

	// Derived scalars, (re)written by InstanceLoadCalculator at ingestion
	// time. Higher means more loaded. math.Inf(-1) marks a freshly admitted
	// instance that has not yet received its first heartbeat.
	InstanceLoadDispatchScale float64
	InstanceLoadMigrate       float64

	// Advisory counter used only for dispatch tie-breaks and the "flood"
	// policy. Not reset by heartbeats; incremented by GlobalScheduler
	// whenever Dispatch chooses this instance.
	NumDispatchedRequest int64
}

// sentinelLoad is returned by a freshly admitted instance (see
// ScaleScheduler.EmptyInstanceInfo) so it is preferred as both a migration
// destination and a dispatch target until its first real heartbeat lands.
var sentinelLoad = math.Inf(-1)

// isSentinel reports whether load marks an instance that has not yet
// received a heartbeat.
func isSentinel(load float64) bool {
	return math.IsInf(load, -1)
}
