package cmd

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/llumnix-go/fleetsched/fleet"
)

var validateConfigPath string

var validateConfigCmd = &cobra.Command{
	Use:   "validate-config",
	Short: "Load a scenario YAML file and report whether it builds a valid scheduler",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadScenarioConfig(validateConfigPath)
		if err != nil {
			logrus.Fatalf("loading scenario config: %v", err)
		}

		if _, err := fleet.NewGlobalScheduler(cfg.ToGlobalSchedulerConfig()); err != nil {
			logrus.Fatalf("invalid scheduler configuration: %v", err)
		}
		fmt.Println("scenario config is valid")
	},
}

func init() {
	validateConfigCmd.Flags().StringVar(&validateConfigPath, "config", "", "path to a scenario YAML file (required)")
	validateConfigCmd.MarkFlagRequired("config")
}
