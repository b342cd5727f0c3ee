package fleet

import (
	"errors"
	"fmt"
	"sort"
)

// DispatchPolicy selects which instance receives the next request.
type DispatchPolicy string

const (
	// DispatchPolicyLoad picks the instance with the smallest
	// instance_load_dispatch_scale.
	DispatchPolicyLoad DispatchPolicy = "load"
	// DispatchPolicyQueue picks the instance with the smallest
	// num_waiting_request.
	DispatchPolicyQueue DispatchPolicy = "queue"
	// DispatchPolicyFlood packs requests onto the instance with the
	// largest num_dispatched_request.
	DispatchPolicyFlood DispatchPolicy = "flood"
)

func isValidDispatchPolicy(p DispatchPolicy) bool {
	switch p {
	case DispatchPolicyLoad, DispatchPolicyQueue, DispatchPolicyFlood:
		return true
	default:
		return false
	}
}

// ErrNoInstances is returned by DispatchScheduler.Dispatch (and surfaced by
// GlobalScheduler.Dispatch) when the registry is empty.
var ErrNoInstances = errors.New("fleet: dispatch called with no registered instances")

// DispatchScheduler chooses one instance_id per call under a configured
// policy. It is a pure function over a snapshot: GlobalScheduler owns the
// registry and the num_dispatched_request counter it writes back after
// each choice.
type DispatchScheduler struct {
	policy DispatchPolicy
}

// NewDispatchScheduler validates policy and returns a ready scheduler.
func NewDispatchScheduler(policy DispatchPolicy) (*DispatchScheduler, error) {
	if !isValidDispatchPolicy(policy) {
		return nil, fmt.Errorf("fleet: unknown dispatch policy %q", policy)
	}
	return &DispatchScheduler{policy: policy}, nil
}

// Dispatch selects one instance from snapshot. Returns ErrNoInstances if
// snapshot is empty; otherwise never fails.
func (d *DispatchScheduler) Dispatch(snapshot []InstanceInfo) (string, error) {
	if len(snapshot) == 0 {
		return "", ErrNoInstances
	}

	ordered := make([]InstanceInfo, len(snapshot))
	copy(ordered, snapshot)

	switch d.policy {
	case DispatchPolicyQueue:
		sort.SliceStable(ordered, func(i, j int) bool {
			if ordered[i].NumWaitingRequest != ordered[j].NumWaitingRequest {
				return ordered[i].NumWaitingRequest < ordered[j].NumWaitingRequest
			}
			if ordered[i].NumDispatchedRequest != ordered[j].NumDispatchedRequest {
				return ordered[i].NumDispatchedRequest < ordered[j].NumDispatchedRequest
			}
			return ordered[i].InstanceID < ordered[j].InstanceID
		})
	case DispatchPolicyFlood:
		sort.SliceStable(ordered, func(i, j int) bool {
			if ordered[i].NumDispatchedRequest != ordered[j].NumDispatchedRequest {
				return ordered[i].NumDispatchedRequest > ordered[j].NumDispatchedRequest
			}
			return ordered[i].InstanceID < ordered[j].InstanceID
		})
	default: // DispatchPolicyLoad
		sort.SliceStable(ordered, func(i, j int) bool {
			if ordered[i].InstanceLoadDispatchScale != ordered[j].InstanceLoadDispatchScale {
				return ordered[i].InstanceLoadDispatchScale < ordered[j].InstanceLoadDispatchScale
			}
			if ordered[i].NumDispatchedRequest != ordered[j].NumDispatchedRequest {
				return ordered[i].NumDispatchedRequest < ordered[j].NumDispatchedRequest
			}
			return ordered[i].InstanceID < ordered[j].InstanceID
		})
	}

	return ordered[0].InstanceID, nil
}
