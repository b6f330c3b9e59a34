package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/shipway/shipway/internal/constants"
	"github.com/shipway/shipway/internal/logs"
	"github.com/shipway/shipway/internal/output"
)

var since time.Duration

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show recent application logs of the configured service",
	RunE:  runLogs,
}

func init() {
	rootCmd.AddCommand(logsCmd)
	logsCmd.Flags().DurationVar(&since, "since", constants.DefaultLogsWindow,
		"How far back to fetch logs (e.g., 15m, 1h)")
}

func runLogs(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cfg, err := getConfigFromContext(cmd)
	if err != nil {
		return err
	}
	if cfg.ServiceName == "" {
		return fmt.Errorf("no service name configured")
	}
	if constants.Provider(cfg.Provider) == constants.GCP {
		return fmt.Errorf("log fetching is only available for the aws provider")
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
		return fmt.Errorf("service %s does not exist", cfg.ServiceName)
	}

	fetcher, err := logs.NewFetcher(ctx, cfg.Region)
	if err != nil {
		return err
	}

	group := logs.GroupName(cfg.ServiceName, id)
	events, err := fetcher.Fetch(ctx, group, time.Now().Add(-since))
	if err != nil {
		return err
	}
	if len(events) == 0 {
		output.Infof("No log events in the last %s", since)
		return nil
	}

	for _, ev := range events {
		output.Result("%s %s", ev.Timestamp.Format(time.RFC3339), ev.Message)
	}
	return nil
}
