package cmd

import (
	"github.com/spf13/cobra"

	"github.com/shipway/shipway/internal/constants"
	"github.com/shipway/shipway/internal/output"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show the version of the CLI",
	Run: func(cmd *cobra.Command, _ []string) {
		output.KeyValue("CLI version", *constants.GetVersion())

		if cfg, err := getConfigFromContext(cmd); err == nil {
			output.KeyValue("Provider", cfg.Provider)
			if cfg.Region != "" {
				output.KeyValue("Region", cfg.Region)
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
