package cmd

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/llumnix-go/fleetsched/fleet"
	"github.com/llumnix-go/fleetsched/fleet/harness"
)

var (
	runConfigPath   string
	runNumInstances int
	runTicks        int
	runSeed         int64
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Drive a synthetic fleet through the global scheduler for a number of ticks",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadScenarioConfig(runConfigPath)
		if err != nil {
			logrus.Fatalf("loading scenario config: %v", err)
		}

		sched, err := fleet.NewGlobalScheduler(cfg.ToGlobalSchedulerConfig())
		if err != nil {
			logrus.Fatalf("constructing scheduler: %v", err)
		}

		f := harness.NewFleet(sched, runSeed, runNumInstances,
			cfg.Harness.TotalGPUBlocks, cfg.Harness.BlocksPerReq,
			cfg.Harness.ArrivalRate, cfg.Harness.ServiceCount)

		logrus.Infof("fleetsched: starting run with %d instances for %d ticks", runNumInstances, runTicks)
		for i := 0; i < runTicks; i++ {
			dispatched, migrations, scaleUp, scaleDown, err := f.Step()
			if err != nil {
				logrus.Fatalf("tick %d: %v", i, err)
			}
			logrus.WithFields(logrus.Fields{
				"tick":       i,
				"dispatched": dispatched,
				"migrations": len(migrations),
				"scale_up":   scaleUp,
				"scale_down": scaleDown,
			}).Info("fleetsched: tick complete")
		}
		fmt.Printf("run complete: %d instances remain in the fleet\n", f.Scheduler().NumInstance())
	},
}

func init() {
	runCmd.Flags().StringVar(&runConfigPath, "config", "", "path to a scenario YAML file (required)")
	runCmd.Flags().IntVar(&runNumInstances, "instances", 3, "initial synthetic instance count")
	runCmd.Flags().IntVar(&runTicks, "ticks", 20, "number of heartbeat ticks to simulate")
	runCmd.Flags().Int64Var(&runSeed, "seed", 1, "random seed for the synthetic heartbeat generator")
	runCmd.MarkFlagRequired("config")
}
