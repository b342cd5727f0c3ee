package fleet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() GlobalSchedulerConfig {
	return GlobalSchedulerConfig{
		LoadMetric:              LoadMetricRemainingSteps,
		DispatchPolicy:          DispatchPolicyLoad,
		CheckMigratePolicy:      MigratePolicyBalanced,
		ScalePolicy:             ScalePolicyAvgLoad,
		MigrateOutLoadThreshold: 3.0,
		ScaleUpThreshold:        0.8,
		ScaleDownThreshold:      0.2,
		EnablePrefillMigrate:    true,
		DefaultTotalGPUBlocks:   100,
	}
}

func TestNewGlobalScheduler_RejectsBadConfig(t *testing.T) {
	cfg := validConfig()
	cfg.DispatchPolicy = DispatchPolicy("bogus")
	_, err := NewGlobalScheduler(cfg)
	require.Error(t, err)
}

func TestScaleUp_RegistersWithEmptyInfo(t *testing.T) {
	g, err := NewGlobalScheduler(validConfig())
	require.NoError(t, err)

	g.ScaleUp("a", "b")
	assert.Equal(t, 2, g.NumInstance())

	ids := g.InstanceIDs()
	assert.ElementsMatch(t, []string{"a", "b"}, ids)
	assert.Equal(t, g.scaleSched.EmptyInstanceInfo("a"), g.snapshotOf(t, "a"))
}

// TestScaleUp_Idempotent: scale_up([id]); scale_up([id]) leaves the
// registry identical to a single scale_up([id]).
func TestScaleUp_Idempotent(t *testing.T) {
	g, err := NewGlobalScheduler(validConfig())
	require.NoError(t, err)

	g.ScaleUp("a")
	first := g.NumInstance()
	g.ScaleUp("a")
	assert.Equal(t, first, g.NumInstance())
	assert.Equal(t, 1, g.NumInstance())
}

// TestScaleUpThenDown_RestoresPriorState: scale_up([id]); scale_down([id])
// restores the registry to its prior (empty) state.
func TestScaleUpThenDown_RestoresPriorState(t *testing.T) {
	g, err := NewGlobalScheduler(validConfig())
	require.NoError(t, err)

	before := g.NumInstance()
	g.ScaleUp("a")
	g.ScaleDown("a")
	assert.Equal(t, before, g.NumInstance())
	assert.Empty(t, g.InstanceIDs())
}

func TestScaleDown_UnknownID_Ignored(t *testing.T) {
	g, err := NewGlobalScheduler(validConfig())
	require.NoError(t, err)

	g.ScaleUp("a")
	g.ScaleDown("ghost")
	assert.Equal(t, 1, g.NumInstance())
}

// TestUpdateInstanceInfos_RecomputesLoadScalars checks invariant 1: after
// ingestion, both derived scalars equal the calculator's output for that
// info and action.
func TestUpdateInstanceInfos_RecomputesLoadScalars(t *testing.T) {
	g, err := NewGlobalScheduler(validConfig())
	require.NoError(t, err)
	g.ScaleUp("a")

	heartbeat := InstanceInfo{
		InstanceID:        "a",
		NumRunningRequest: 3,
		NumWaitingRequest: 2,
		NumTotalGPUBlock:  100,
		NumFreeGPUBlock:   50,
	}
	g.UpdateInstanceInfos([]InstanceInfo{heartbeat})

	calc, err := NewInstanceLoadCalculator(LoadMetricRemainingSteps, true)
	require.NoError(t, err)
	wantDispatch := calc.ComputeInstanceLoad(heartbeat, ActionDispatch)
	wantMigrate := calc.ComputeInstanceLoad(heartbeat, ActionMigrate)

	got := g.snapshotOf(t, "a")
	assert.Equal(t, wantDispatch, got.InstanceLoadDispatchScale)
	assert.Equal(t, wantMigrate, got.InstanceLoadMigrate)
}

// TestUpdateInstanceInfos_DropsUnknownID reproduces scenario S6.
func TestUpdateInstanceInfos_DropsUnknownID(t *testing.T) {
	g, err := NewGlobalScheduler(validConfig())
	require.NoError(t, err)
	g.ScaleUp("a")

	g.UpdateInstanceInfos([]InstanceInfo{
		{InstanceID: "a", NumRunningRequest: 1},
		{InstanceID: "ghost", NumRunningRequest: 99},
	})

	assert.Equal(t, 1, g.NumInstance())
	assert.ElementsMatch(t, []string{"a"}, g.InstanceIDs())
}

func TestDispatch_EmptyRegistry_ReturnsError(t *testing.T) {
	g, err := NewGlobalScheduler(validConfig())
	require.NoError(t, err)

	_, err = g.Dispatch()
	require.ErrorIs(t, err, ErrNoInstances)
}

// TestDispatch_NeverReturnsUnknownID covers invariant 3.
func TestDispatch_NeverReturnsUnknownID(t *testing.T) {
	g, err := NewGlobalScheduler(validConfig())
	require.NoError(t, err)
	g.ScaleUp("a", "b", "c")

	for i := 0; i < 10; i++ {
		id, err := g.Dispatch()
		require.NoError(t, err)
		assert.Contains(t, g.InstanceIDs(), id)
	}
}

func TestDispatch_IncrementsDispatchedCounter(t *testing.T) {
	g, err := NewGlobalScheduler(validConfig())
	require.NoError(t, err)
	g.ScaleUp("a")

	id, err := g.Dispatch()
	require.NoError(t, err)
	assert.Equal(t, "a", id)
	assert.Equal(t, int64(1), g.snapshotOf(t, "a").NumDispatchedRequest)
}

func TestCheckMigrate_PairsRespectInvariant4(t *testing.T) {
	g, err := NewGlobalScheduler(validConfig())
	require.NoError(t, err)
	g.ScaleUp("hot", "cold")
	g.UpdateInstanceInfos([]InstanceInfo{
		{InstanceID: "hot", NumRunningRequest: 10, NumTotalGPUBlock: 100, NumFreeGPUBlock: 5, NumBlockLastRunningRequest: 5},
		{InstanceID: "cold", NumRunningRequest: 0, NumTotalGPUBlock: 100, NumFreeGPUBlock: 100, NumBlockLastRunningRequest: 5},
	})

	ids := map[string]bool{"hot": true, "cold": true}
	for _, pair := range g.CheckMigrate() {
		assert.NotEqual(t, pair.Source, pair.Destination)
		assert.True(t, ids[pair.Source])
		assert.True(t, ids[pair.Destination])
	}
}

func TestCheckScale_NeverBothNonZero_ThroughGlobalScheduler(t *testing.T) {
	g, err := NewGlobalScheduler(validConfig())
	require.NoError(t, err)
	g.ScaleUp("a")
	g.UpdateInstanceInfos([]InstanceInfo{{InstanceID: "a", NumRunningRequest: 1, NumTotalGPUBlock: 10, NumFreeGPUBlock: 5}})

	up, down := g.CheckScale()
	if up != 0 && down != 0 {
		t.Fatalf("both non-zero: up=%d down=%d", up, down)
	}
}

// snapshotOf is a test helper returning the registry's current record for id.
func (g *GlobalScheduler) snapshotOf(t *testing.T, id string) InstanceInfo {
	t.Helper()
	g.mu.Lock()
	defer g.mu.Unlock()
	info, ok := g.instanceInfo[id]
	if !ok {
		t.Fatalf("instance %q not found in registry", id)
	}
	return info
}
