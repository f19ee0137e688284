package cmd

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	commonconfig "github.com/armadaproject/drf-controller/internal/common/config"
	"github.com/armadaproject/drf-controller/internal/common/logging"
	"github.com/armadaproject/drf-controller/internal/drfscheduler/configuration"
)

const (
	CustomConfigLocation string = "config"
	DefaultConfigPath    string = "./config/drfcontroller"
)

func RootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "drfcontroller",
		SilenceUsage: true,
		Short:        "Computes fairness and aging adjusted priorities for pending Kueue workloads",
	}

	cmd.PersistentFlags().StringSlice(
		CustomConfigLocation,
		[]string{},
		"Fully qualified path to application configuration file (for multiple config files repeat this arg or separate paths with commas)")

	cmd.AddCommand(
		runCmd(),
		scoreCmd(),
	)

	return cmd
}

func loadConfig(cmd *cobra.Command) (configuration.Configuration, error) {
	var config configuration.Configuration
	userSpecifiedConfigs, err := cmd.Flags().GetStringSlice(CustomConfigLocation)
	if err != nil {
		return config, errors.WithStack(err)
	}

	if _, err := commonconfig.LoadConfig(&config, DefaultConfigPath, userSpecifiedConfigs, configuration.EnvAliases); err != nil {
		return config, err
	}

	if err := config.Validate(); err != nil {
		commonconfig.LogValidationErrors(err)
		return config, err
	}
	if err := logging.ApplyConfig(config.Logging); err != nil {
		return config, err
	}
	return config, nil
}
