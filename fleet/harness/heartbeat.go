// Package harness is a synthetic stand-in for "the engine manager": it
// plays the role of the external collaborator that pumps instance
// heartbeats into a fleet.GlobalScheduler and issues dispatch/migrate/scale
// calls on a timer. It exists only to give the CLI demo and integration
// tests something realistic to drive the scheduler against; it carries no
// scheduling policy of its own and is not part of the specified core.
package harness

import (
	"math"
	"math/rand"

	"github.com/llumnix-go/fleetsched/fleet"
)

// JitterSampler perturbs an instance's queue depth between heartbeats.
// Mirrors the inter-arrival sampler shape used for workload generation:
// a small interface with one pluggable distribution behind it.
type JitterSampler interface {
	// Sample returns a signed delta to apply to a queue counter.
	Sample(rng *rand.Rand) int64
}

// PoissonJitter draws a Poisson-distributed arrival count each tick and
// subtracts a fixed service count, producing queue growth under load and
// drain under idle.
type PoissonJitter struct {
	ArrivalRate  float64 // mean arrivals per tick
	ServiceCount int64   // requests drained per tick
}

// Sample returns (arrivals - ServiceCount) using Knuth's algorithm for a
// Poisson-distributed arrival count.
func (p PoissonJitter) Sample(rng *rand.Rand) int64 {
	arrivals := poissonSample(rng, p.ArrivalRate)
	return arrivals - p.ServiceCount
}

// poissonSample draws from Poisson(lambda) via Knuth's product-of-uniforms
// method. Adequate for small lambda, which is all a demo heartbeat
// generator needs.
func poissonSample(rng *rand.Rand, lambda float64) int64 {
	if lambda <= 0 {
		return 0
	}
	l := math.Exp(-lambda)
	k := int64(0)
	p := 1.0
	for {
		k++
		p *= rng.Float64()
		if p <= l {
			return k - 1
		}
	}
}

// InstanceProfile describes one synthetic instance's fixed capacity and
// its per-tick queue jitter distribution.
type InstanceProfile struct {
	InstanceID     string
	TotalGPUBlocks int64
	BlocksPerReq   int64
	Jitter         JitterSampler
}

// HeartbeatGenerator produces successive fleet.InstanceInfo batches for its
// instance profiles (Fleet.Step appends one per instance it admits), evolving each instance's running/waiting
// counts and block usage tick over tick. Not thread-safe; intended for a
// single demo/test goroutine.
type HeartbeatGenerator struct {
	rng      *rand.Rand
	profiles []InstanceProfile
	state    map[string]*instanceState
}

type instanceState struct {
	running int64
	waiting int64
	killed  int64
}

// NewHeartbeatGenerator builds a generator seeded for determinism, matching
// the teacher's rand.New(rand.NewSource(seed)) load-balancer construction
// pattern.
func NewHeartbeatGenerator(seed int64, profiles []InstanceProfile) *HeartbeatGenerator {
	state := make(map[string]*instanceState, len(profiles))
	for _, p := range profiles {
		state[p.InstanceID] = &instanceState{}
	}
	return &HeartbeatGenerator{
		rng:      rand.New(rand.NewSource(seed)),
		profiles: profiles,
		state:    state,
	}
}

// Tick advances every profile's synthetic state by one step and returns the
// resulting heartbeat batch, ready to pass to GlobalScheduler.UpdateInstanceInfos.
func (g *HeartbeatGenerator) Tick() []fleet.InstanceInfo {
	batch := make([]fleet.InstanceInfo, 0, len(g.profiles))
	for _, profile := range g.profiles {
		st := g.state[profile.InstanceID]

		delta := profile.Jitter.Sample(g.rng)
		st.waiting += delta
		if st.waiting < 0 {
			st.waiting = 0
		}

		// Promote waiting requests into running as blocks allow.
		usedBlocks := st.running * profile.BlocksPerReq
		for st.waiting > 0 && usedBlocks+profile.BlocksPerReq <= profile.TotalGPUBlocks {
			st.waiting--
			st.running++
			usedBlocks += profile.BlocksPerReq
		}
		// Requests that cannot fit and keep piling up get killed, the
		// same way an out-of-blocks engine would.
		if usedBlocks+profile.BlocksPerReq > profile.TotalGPUBlocks && st.waiting > 4 {
			st.killed++
			st.waiting--
		}

		free := profile.TotalGPUBlocks - usedBlocks
		if free < 0 {
			free = 0
		}

		batch = append(batch, fleet.InstanceInfo{
			InstanceID:                 profile.InstanceID,
			NumRunningRequest:          st.running,
			NumWaitingRequest:          st.waiting,
			NumKilledRequest:           st.killed,
			NumTotalGPUBlock:           profile.TotalGPUBlocks,
			NumFreeGPUBlock:            free,
			NumUsedGPUBlock:            usedBlocks,
			NumBlockLastRunningRequest: profile.BlocksPerReq,
			NumBatchedTokens:           st.running * 128,
		})
	}
	return batch
}
