package harness

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/llumnix-go/fleetsched/fleet"
)

// Fleet wires a HeartbeatGenerator to a fleet.GlobalScheduler and drives it
// tick by tick, the way sim/cluster/cluster.go advances instances off a
// shared clock. It is the CLI demo's only collaborator and is not part of
// the specified core scheduling logic.
type Fleet struct {
	sched *fleet.GlobalScheduler
	gen   *HeartbeatGenerator
}

// NewFleet scales up numInstances synthetic instances with freshly minted
// ids and builds a generator for them, each with the given total GPU block
// capacity and an arrival-rate/service-rate pair driving its queue jitter.
func NewFleet(sched *fleet.GlobalScheduler, seed int64, numInstances int, totalBlocks, blocksPerReq int64, arrivalRate float64, serviceCount int64) *Fleet {
	profiles := make([]InstanceProfile, 0, numInstances)
	for i := 0; i < numInstances; i++ {
		id := uuid.NewString()
		profiles = append(profiles, InstanceProfile{
			InstanceID:     id,
			TotalGPUBlocks: totalBlocks,
			BlocksPerReq:   blocksPerReq,
			Jitter: PoissonJitter{
				ArrivalRate:  arrivalRate,
				ServiceCount: serviceCount,
			},
		})
	}

	ids := make([]string, len(profiles))
	for i, p := range profiles {
		ids[i] = p.InstanceID
	}
	sched.ScaleUp(ids...)

	return &Fleet{
		sched: sched,
		gen:   NewHeartbeatGenerator(seed, profiles),
	}
}

// Step advances the synthetic fleet by one heartbeat interval: ingest new
// instance info, then run dispatch, migration, and scale checks against it,
// applying any scale decisions back to the registry immediately. An instance
// admitted here gets a generator profile copied from the first one, so it
// heartbeats from the next tick on.
func (f *Fleet) Step() (dispatched string, migrations []fleet.MigrationPair, scaleUp, scaleDown int, err error) {
	f.sched.UpdateInstanceInfos(f.gen.Tick())

	dispatched, err = f.sched.Dispatch()
	if err != nil {
		return "", nil, 0, 0, fmt.Errorf("harness: dispatch failed: %w", err)
	}

	migrations = f.sched.CheckMigrate()
	scaleUp, scaleDown = f.sched.CheckScale()

	if scaleUp > 0 {
		id := uuid.NewString()
		f.sched.ScaleUp(id)
		if len(f.gen.profiles) > 0 {
			profile := f.gen.profiles[0]
			profile.InstanceID = id
			f.gen.profiles = append(f.gen.profiles, profile)
			f.gen.state[id] = &instanceState{}
		}
		logrus.WithField("instance_id", id).Info("harness: admitted new instance")
	}
	if scaleDown > 0 {
		ids := f.sched.InstanceIDs()
		if len(ids) > 0 {
			f.sched.ScaleDown(ids[0])
			logrus.WithField("instance_id", ids[0]).Info("harness: retired instance")
		}
	}

	return dispatched, migrations, scaleUp, scaleDown, nil
}

// Scheduler exposes the underlying scheduler for callers that want direct
// read access (e.g. the CLI's summary printer).
func (f *Fleet) Scheduler() *fleet.GlobalScheduler {
	return f.sched
}
