package cmd

import (
	"github.com/spf13/cobra"

	"github.com/armadaproject/drf-controller/internal/drfscheduler"
)

func scoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Prints the current ranking of pending workloads without updating them",
		RunE:  score,
	}
	cmd.Flags().String(
		"namespace",
		"",
		"Only rank workloads in this namespace (overrides configuration)")
	return cmd
}

func score(cmd *cobra.Command, _ []string) error {
	config, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("namespace") {
		namespace, err := cmd.Flags().GetString("namespace")
		if err != nil {
			return err
		}
		config.Namespace = namespace
	}
	return drfscheduler.Score(config, cmd.OutOrStdout())
}
