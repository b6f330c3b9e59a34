package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shipway/shipway/internal/output"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current state of the configured service",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cfg, err := getConfigFromContext(cmd)
	if err != nil {
		return err
	}
	if cfg.ServiceName == "" {
		return fmt.Errorf("no service name configured")
	}

	platform, err := newPlatform(ctx, cfg)
	if err != nil {
		return err
	}

	id, err := platform.FindService(ctx, cfg.ServiceName)
	if err != nil {
		return fmt.Errorf("failed to locate service %s: %w", cfg.ServiceName, err)
	}
	if id == "" {
		output.KeyValue("Service", cfg.ServiceName)
		output.KeyValue("Status", "ABSENT")
		output.Result("ABSENT")
		return nil
	}

	state, err := platform.DescribeService(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to describe service %s: %w", cfg.ServiceName, err)
	}

	output.KeyValue("Service", cfg.ServiceName)
	output.KeyValue("Service ID", state.ID)
	output.KeyValue("Status", state.Status)
	if state.URL != "" {
		output.KeyValue("URL", state.URL)
	}
	output.Result("%s", state.Status)
	return nil
}
