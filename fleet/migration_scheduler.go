package fleet

import (
	"fmt"
	"sort"
)

// MigratePolicy selects which pairs of instances should exchange an
// in-flight request on a given check_migrate call.
type MigratePolicy string

const (
	// MigratePolicyBalanced only pairs instances when the projected
	// post-migration load gap shows measurable, non-overshooting
	// progress toward balance (or the destination is a fresh admission).
	MigratePolicyBalanced MigratePolicy = "balanced"
	// MigratePolicyPrefillConstrained uses Balanced's source/destination
	// filters but emits every zipped pair unconditionally.
	MigratePolicyPrefillConstrained MigratePolicy = "prefill_constrained"
	// MigratePolicyPrefillRelaxed keeps Balanced's destination filter but
	// allows any instance, in descending load order, to be a source.
	MigratePolicyPrefillRelaxed MigratePolicy = "prefill_relaxed"
)

func isValidMigratePolicy(p MigratePolicy) bool {
	switch p {
	case MigratePolicyBalanced, MigratePolicyPrefillConstrained, MigratePolicyPrefillRelaxed:
		return true
	default:
		return false
	}
}

// MigrationPair is a suggested migration: caller is expected to execute it
// (or not) concurrently with the others in the same CheckMigrate result.
type MigrationPair struct {
	Source      string
	Destination string
}

// MigrationScheduler emits migration pairs under a configured policy. It is
// a pure function over a snapshot plus the InstanceLoadCalculator it was
// built with (used only to project the hypothetical post-migration load
// for Balanced's gating check).
type MigrationScheduler struct {
	policy               MigratePolicy
	migrateOutThreshold  float64
	calc                 LoadCalculator
	enablePrefillMigrate bool
}

// NewMigrationScheduler validates policy and returns a ready scheduler.
func NewMigrationScheduler(policy MigratePolicy, migrateOutThreshold float64, calc LoadCalculator, enablePrefillMigrate bool) (*MigrationScheduler, error) {
	if !isValidMigratePolicy(policy) {
		return nil, fmt.Errorf("fleet: unknown migrate policy %q", policy)
	}
	return &MigrationScheduler{
		policy:               policy,
		migrateOutThreshold:  migrateOutThreshold,
		calc:                 calc,
		enablePrefillMigrate: enablePrefillMigrate,
	}, nil
}

// CheckMigrate returns the migration pairs snapshot's current state
// suggests. If EnablePrefillMigrate is false, the configured policy is
// ignored and Balanced is used unconditionally.
func (m *MigrationScheduler) CheckMigrate(snapshot []InstanceInfo) []MigrationPair {
	effectivePolicy := m.policy
	if !m.enablePrefillMigrate {
		effectivePolicy = MigratePolicyBalanced
	}

	sorted := make([]InstanceInfo, len(snapshot))
	copy(sorted, snapshot)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].InstanceLoadMigrate < sorted[j].InstanceLoadMigrate
	})

	switch effectivePolicy {
	case MigratePolicyPrefillConstrained:
		return m.prefillConstrained(sorted)
	case MigratePolicyPrefillRelaxed:
		return m.prefillRelaxed(sorted)
	default:
		return m.balanced(sorted)
	}
}

// migrateInCandidates returns sorted (ascending load) filtered to instances
// that can legally receive a migration: no killed requests and strictly
// under the migrate-out threshold.
func (m *MigrationScheduler) migrateInCandidates(sorted []InstanceInfo) []InstanceInfo {
	var left []InstanceInfo
	for _, info := range sorted {
		if info.NumKilledRequest == 0 && info.InstanceLoadMigrate < m.migrateOutThreshold {
			left = append(left, info)
		}
	}
	return left
}

// migrateOutCandidates returns sorted (descending load) filtered to
// instances that should export load: any killed requests, or load over
// threshold.
func (m *MigrationScheduler) migrateOutCandidates(sorted []InstanceInfo) []InstanceInfo {
	var right []InstanceInfo
	for i := len(sorted) - 1; i >= 0; i-- {
		info := sorted[i]
		if info.NumKilledRequest > 0 || info.InstanceLoadMigrate > m.migrateOutThreshold {
			right = append(right, info)
		}
	}
	return right
}

func (m *MigrationScheduler) balanced(sorted []InstanceInfo) []MigrationPair {
	left := m.migrateInCandidates(sorted)
	right := m.migrateOutCandidates(sorted)

	n := min(len(left), len(right))
	pairs := make([]MigrationPair, 0, n)
	for i := 0; i < n; i++ {
		dest, src := left[i], right[i]
		if dest.InstanceID == src.InstanceID {
			continue
		}

		loadDiffBefore := src.InstanceLoadMigrate - dest.InstanceLoadMigrate
		destAfter := m.calc.ComputeInstanceLoad(project(dest, true), ActionMigrate)
		srcAfter := m.calc.ComputeInstanceLoad(project(src, false), ActionMigrate)

		if destAfter > m.migrateOutThreshold {
			continue
		}
		loadDiffAfter := srcAfter - destAfter
		progresses := loadDiffAfter > 0 && loadDiffAfter < loadDiffBefore
		if progresses || isSentinel(dest.InstanceLoadMigrate) {
			pairs = append(pairs, MigrationPair{Source: src.InstanceID, Destination: dest.InstanceID})
		}
	}
	return pairs
}

func (m *MigrationScheduler) prefillConstrained(sorted []InstanceInfo) []MigrationPair {
	left := m.migrateInCandidates(sorted)
	right := m.migrateOutCandidates(sorted)

	n := min(len(left), len(right))
	pairs := make([]MigrationPair, 0, n)
	for i := 0; i < n; i++ {
		if left[i].InstanceID == right[i].InstanceID {
			continue
		}
		pairs = append(pairs, MigrationPair{Source: right[i].InstanceID, Destination: left[i].InstanceID})
	}
	return pairs
}

func (m *MigrationScheduler) prefillRelaxed(sorted []InstanceInfo) []MigrationPair {
	left := m.migrateInCandidates(sorted)

	right := make([]InstanceInfo, len(sorted))
	for i, info := range sorted {
		right[len(sorted)-1-i] = info
	}

	n := min(len(left), len(right))
	pairs := make([]MigrationPair, 0, n)
	for i := 0; i < n; i++ {
		if left[i].InstanceID == right[i].InstanceID {
			continue
		}
		pairs = append(pairs, MigrationPair{Source: right[i].InstanceID, Destination: left[i].InstanceID})
	}
	return pairs
}

// project returns a copy of info with the counters that would change if
// one request were migrated in (isMigrateIn) or out of it, consuming or
// freeing num_block_last_running_request worth of blocks. Pure: takes and
// returns by value, no aliasing with the caller's snapshot.
func project(info InstanceInfo, isMigrateIn bool) InstanceInfo {
	if isMigrateIn {
		info.NumRunningRequest++
		info.NumFreeGPUBlock -= info.NumBlockLastRunningRequest
	} else {
		info.NumRunningRequest--
		info.NumFreeGPUBlock += info.NumBlockLastRunningRequest
	}
	return info
}
