package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/shipway/shipway/internal/config"
	"github.com/shipway/shipway/internal/output"
)

var (
	cfgProvider    string
	cfgRegion      string
	cfgProject     string
	cfgServiceName string
	cfgImage       string
	cfgPort        int32
	cfgAllowList   []string
	cfgSecretsPath string
)

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Write the global configuration file",
	Long: `Writes ~/.shipway/config.yaml from the given flags, starting from the
current configuration when one exists. Any setting can later be overridden
per invocation with SHIPWAY_-prefixed environment variables.`,
	RunE: runConfigure,
}

func init() {
	rootCmd.AddCommand(configureCmd)
	configureCmd.Flags().StringVar(&cfgProvider, "provider", "", "Target provider (aws or gcp)")
	configureCmd.Flags().StringVar(&cfgRegion, "region", "", "Provider region")
	configureCmd.Flags().StringVar(&cfgProject, "project", "", "GCP project ID (gcp only)")
	configureCmd.Flags().StringVar(&cfgServiceName, "service-name", "", "Logical service name")
	configureCmd.Flags().StringVar(&cfgImage, "image", "", "Container image reference")
	configureCmd.Flags().Int32Var(&cfgPort, "port", 0, "Container listen port")
	configureCmd.Flags().StringSliceVar(&cfgAllowList, "env", nil, "Environment variable names to forward")
	configureCmd.Flags().StringVar(&cfgSecretsPath, "secrets-path", "", "Parameter store path for secret hydration")
}

func runConfigure(cmd *cobra.Command, _ []string) error {
	cfg, err := getConfigFromContext(cmd)
	if err != nil {
		cfg = &config.Config{}
	}

	if cfgProvider != "" {
		cfg.Provider = strings.ToLower(cfgProvider)
	}
	if cfgRegion != "" {
		cfg.Region = cfgRegion
	}
	if cfgProject != "" {
		cfg.Project = cfgProject
	}
	if cfgServiceName != "" {
		cfg.ServiceName = cfgServiceName
	}
	if cfgImage != "" {
		cfg.Image = cfgImage
	}
	if cfgPort > 0 {
		cfg.Port = cfgPort
	}
	if len(cfgAllowList) > 0 {
		cfg.EnvAllowList = cfgAllowList
	}
	if cfgSecretsPath != "" {
		cfg.SecretsPath = cfgSecretsPath
	}

	path, err := config.Save(cfg)
	if err != nil {
		return err
	}

	output.Successf("Configuration saved to %s", output.Bold(path))
	return nil
}
