package fleet

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// GlobalScheduler owns the instance registry and fans heartbeat, dispatch,
// migrate, scale, scale_up, and scale_down calls out to its three
// sub-schedulers and one calculator. It is the only component external
// collaborators (the engine manager) talk to.
//
// Thread-safety: a single mutex guards the registry. Every public operation
// takes it while reading or writing the registry; Dispatch, CheckMigrate and
// CheckScale release it after taking a snapshot and run the sub-scheduler's
// policy outside it. No operation suspends for I/O while the lock is held.
type GlobalScheduler struct {
	mu sync.Mutex

	config GlobalSchedulerConfig
	calc   *InstanceLoadCalculator

	dispatchSched *DispatchScheduler
	migrateSched  *MigrationScheduler
	scaleSched    *ScaleScheduler

	instanceInfo  map[string]InstanceInfo
	instanceIDSet map[string]struct{}
}

// NewGlobalScheduler validates config and constructs a GlobalScheduler with
// an empty registry. Returns an error if any policy name is unrecognized or
// ScaleDownThreshold > ScaleUpThreshold.
func NewGlobalScheduler(config GlobalSchedulerConfig) (*GlobalScheduler, error) {
	calc, err := NewInstanceLoadCalculator(config.LoadMetric, config.EnablePrefillMigrate)
	if err != nil {
		return nil, err
	}
	dispatchSched, err := NewDispatchScheduler(config.DispatchPolicy)
	if err != nil {
		return nil, err
	}
	migrateSched, err := NewMigrationScheduler(config.CheckMigratePolicy, config.MigrateOutLoadThreshold, calc, config.EnablePrefillMigrate)
	if err != nil {
		return nil, err
	}
	scaleSched, err := NewScaleScheduler(config.ScalePolicy, config.ScaleUpThreshold, config.ScaleDownThreshold, config.DefaultTotalGPUBlocks)
	if err != nil {
		return nil, err
	}

	return &GlobalScheduler{
		config:        config,
		calc:          calc,
		dispatchSched: dispatchSched,
		migrateSched:  migrateSched,
		scaleSched:    scaleSched,
		instanceInfo:  make(map[string]InstanceInfo),
		instanceIDSet: make(map[string]struct{}),
	}, nil
}

// NumInstance returns the current registry size.
func (g *GlobalScheduler) NumInstance() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.instanceInfo)
}

// InstanceIDs returns a snapshot of the currently registered instance ids.
// Order is unspecified.
func (g *GlobalScheduler) InstanceIDs() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	ids := make([]string, 0, len(g.instanceIDSet))
	for id := range g.instanceIDSet {
		ids = append(ids, id)
	}
	return ids
}

// UpdateInstanceInfos ingests a heartbeat batch. For each info whose id is
// already registered, its two derived load scalars are recomputed and the
// registry entry is overwritten wholesale. InstanceInfos for unknown ids
// are dropped silently — this is an expected race against a concurrent
// ScaleDown, not an error.
func (g *GlobalScheduler) UpdateInstanceInfos(batch []InstanceInfo) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, info := range batch {
		if _, known := g.instanceInfo[info.InstanceID]; !known {
			logrus.Debugf("fleet: dropping heartbeat for unknown instance %q", info.InstanceID)
			continue
		}
		info.InstanceLoadDispatchScale = g.calc.ComputeInstanceLoad(info, ActionDispatch)
		info.InstanceLoadMigrate = g.calc.ComputeInstanceLoad(info, ActionMigrate)
		g.instanceInfo[info.InstanceID] = info
	}
}

// Dispatch refreshes the dispatch sub-scheduler's snapshot and returns the
// chosen instance id, incrementing that instance's advisory
// num_dispatched_request counter. Returns ErrNoInstances if the registry is
// empty.
func (g *GlobalScheduler) Dispatch() (string, error) {
	g.mu.Lock()
	snapshot := g.snapshotLocked()
	g.mu.Unlock()

	id, err := g.dispatchSched.Dispatch(snapshot)
	if err != nil {
		return "", err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if info, ok := g.instanceInfo[id]; ok {
		info.NumDispatchedRequest++
		g.instanceInfo[id] = info
	}
	return id, nil
}

// CheckMigrate refreshes the migration sub-scheduler's snapshot and returns
// the suggested migration pairs.
func (g *GlobalScheduler) CheckMigrate() []MigrationPair {
	g.mu.Lock()
	snapshot := g.snapshotLocked()
	g.mu.Unlock()

	return g.migrateSched.CheckMigrate(snapshot)
}

// CheckScale refreshes the scale sub-scheduler's snapshot and returns
// (scale_up_num, scale_down_num).
func (g *GlobalScheduler) CheckScale() (scaleUp, scaleDown int) {
	g.mu.Lock()
	snapshot := g.snapshotLocked()
	g.mu.Unlock()

	return g.scaleSched.CheckScale(snapshot)
}

// ScaleUp admits each id not already present, seeding it with the
// canonical empty InstanceInfo. Ids already present are silently ignored
// (idempotent).
func (g *GlobalScheduler) ScaleUp(ids ...string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, id := range ids {
		if _, known := g.instanceInfo[id]; known {
			logrus.Debugf("fleet: scale_up ignored, instance %q already registered", id)
			continue
		}
		logrus.Infof("fleet: scale up instance %q", id)
		g.instanceInfo[id] = g.scaleSched.EmptyInstanceInfo(id)
		g.instanceIDSet[id] = struct{}{}
	}
	logrus.Infof("fleet: num_instance=%d instances=%v", len(g.instanceIDSet), g.idsLocked())
}

// ScaleDown removes each present id from the registry. Ids absent from the
// registry are silently ignored (idempotent).
func (g *GlobalScheduler) ScaleDown(ids ...string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, id := range ids {
		if _, known := g.instanceInfo[id]; !known {
			logrus.Debugf("fleet: scale_down ignored, instance %q not registered", id)
			continue
		}
		logrus.Infof("fleet: scale down instance %q", id)
		delete(g.instanceInfo, id)
		delete(g.instanceIDSet, id)
	}
	logrus.Infof("fleet: num_instance=%d instances=%v", len(g.instanceIDSet), g.idsLocked())
}

// snapshotLocked returns a shallow copy of the registry's values. Callers
// hold g.mu only long enough to take the snapshot, then release it before
// sorting/iterating in a sub-scheduler.
func (g *GlobalScheduler) snapshotLocked() []InstanceInfo {
	snapshot := make([]InstanceInfo, 0, len(g.instanceInfo))
	for _, info := range g.instanceInfo {
		snapshot = append(snapshot, info)
	}
	return snapshot
}

func (g *GlobalScheduler) idsLocked() []string {
	ids := make([]string, 0, len(g.instanceIDSet))
	for id := range g.instanceIDSet {
		ids = append(ids, id)
	}
	return ids
}
