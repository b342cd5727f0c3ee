package fleet

// GlobalSchedulerConfig is the configuration object consumed at
// GlobalScheduler construction. Unknown policy names or an inverted
// threshold ordering are rejected at construction (configuration errors
// are fatal to the caller, never recovered internally).
type GlobalSchedulerConfig struct {
	LoadMetric LoadMetric

	DispatchPolicy     DispatchPolicy
	CheckMigratePolicy MigratePolicy
	ScalePolicy        ScalePolicy

	MigrateOutLoadThreshold float64
	ScaleUpThreshold        float64
	ScaleDownThreshold      float64

	EnablePrefillMigrate bool

	// DefaultTotalGPUBlocks seeds the canonical empty InstanceInfo handed
	// to a freshly admitted instance when no other source of truth for
	// its block capacity is known at scale_up time.
	DefaultTotalGPUBlocks int64
}
