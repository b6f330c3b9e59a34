package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/shipway/shipway/internal/constants"
	"github.com/shipway/shipway/internal/deploy"
	"github.com/shipway/shipway/internal/output"
)

var force bool

var destroyCmd = &cobra.Command{
	Use:   "destroy",
	Short: "Tear down the configured service",
	Long: fmt.Sprintf(`Deletes the configured service after confirmation and waits until the
platform reports it gone. Interactive runs must type %s (exact case) to
confirm; anything else cancels with no changes. Destroying a service that
does not exist succeeds.`, constants.TeardownToken),
	RunE: runDestroy,
}

func init() {
	rootCmd.AddCommand(destroyCmd)
	destroyCmd.Flags().BoolVar(&force, "force", false, "Skip the confirmation prompt")
}

func runDestroy(cmd *cobra.Command, _ []string) error {
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

	confirm := deploy.Confirmation{Force: force, Prompt: output.Stderr}
	if !force && isatty.IsTerminal(os.Stdin.Fd()) {
		confirm.In = os.Stdin
	}

	coordinator := deploy.NewCoordinator(platform, cfg.DestroyInterval, cfg.DestroyTimeout, slog.Default())
	outcome, err := coordinator.Destroy(ctx, cfg.ServiceName, confirm)
	if err != nil {
		output.Errorf("%v", err)
		return err
	}

	switch outcome.State {
	case deploy.StateCancelled:
		output.Infof("Destroy cancelled, no changes made")
	case deploy.StateAbsent:
		if outcome.Deleted {
			output.Successf("Service %s deleted", output.Bold(cfg.ServiceName))
		} else {
			output.Successf("Service %s already absent", output.Bold(cfg.ServiceName))
		}
	case deploy.StateTimedOut:
		output.Errorf("Service still present after %s (last status: %s)",
			cfg.DestroyTimeout, outcome.LastStatus)
		return fmt.Errorf("teardown timed out")
	}

	output.Result("%s", outcome.State)
	return nil
}
