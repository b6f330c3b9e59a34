package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/spf13/cobra"

	"github.com/shipway/shipway/internal/config"
	"github.com/shipway/shipway/internal/constants"
	"github.com/shipway/shipway/internal/deploy"
	apperrors "github.com/shipway/shipway/internal/errors"
	"github.com/shipway/shipway/internal/identity"
	"github.com/shipway/shipway/internal/output"
	"github.com/shipway/shipway/internal/secrets"
)

var repairTrust bool

var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Create or update the configured service and wait for convergence",
	Long: `Brings the configured service to the declared state: validates secrets,
provisions trust roles if absent, creates the service when missing or updates
it in place, then polls until the platform reports it running. Safe to re-run;
an interrupted deploy is finished by the next one.`,
	RunE: runDeploy,
}

func init() {
	rootCmd.AddCommand(deployCmd)
	deployCmd.Flags().BoolVar(&repairTrust, "repair-trust", false,
		"Reset the trust policy of both roles to the platform defaults")
}

func runDeploy(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cfg, err := getConfigFromContext(cmd)
	if err != nil {
		return err
	}

	desired := descriptorFromConfig(cfg)
	if err = desired.Validate(); err != nil {
		return err
	}

	output.Step(1, 5, "Validating environment")
	env, err := resolveEnv(ctx, cfg)
	if err != nil {
		return err
	}
	desired.Env = env

	output.Step(2, 5, "Checking caller identity")
	if err = preflight(ctx, cfg); err != nil {
		return err
	}

	platform, err := newPlatform(ctx, cfg)
	if err != nil {
		return err
	}
	reconciler := deploy.NewReconciler(platform, slog.Default())

	if repairTrust {
		output.Infof("Repairing trust policies")
		if _, err = reconciler.EnsureRoles(ctx, desired); err != nil {
			return err
		}
		for kind, name := range map[deploy.RoleKind]string{
			deploy.RoleExecution: desired.ExecutionRoleName,
			deploy.RoleImagePull: desired.ImagePullRoleName,
		} {
			if err = reconciler.Roles().RepairTrust(ctx, name, platform.TrustPolicyFor(kind)); err != nil {
				return fmt.Errorf("repair trust of %s: %w", name, err)
			}
		}
	}

	output.Step(3, 5, "Provisioning roles")
	output.Step(4, 5, fmt.Sprintf("Reconciling service %s", output.Bold(desired.Name)))
	result, err := reconciler.Reconcile(ctx, desired)
	if err != nil {
		reportFailure(err)
		return err
	}
	output.Successf("Service %s (%s)", result.Outcome, result.ServiceID)

	output.Step(5, 5, "Waiting for convergence")
	poller := deploy.NewPoller(platform, slog.Default())
	outcome := poller.AwaitState(ctx, result.ServiceID,
		constants.StatusRunning, cfg.PollMaxAttempts, cfg.PollInterval)
	if err = outcome.Err(constants.StatusRunning); err != nil {
		reportFailure(err)
		return err
	}

	url := result.URL
	if state, describeErr := platform.DescribeService(ctx, result.ServiceID); describeErr == nil {
		url = state.URL
	}

	output.Successf("Service converged after %d attempts", outcome.Attempts)
	output.KeyValue("Outcome", string(result.Outcome))
	output.KeyValue("Service ID", result.ServiceID)
	if url != "" {
		output.KeyValue("URL", url)
	}
	output.Result("%s %s %s", result.Outcome, result.ServiceID, url)
	return nil
}

// resolveEnv builds the forwarded environment: local values are validated,
// missing allow-listed variables are hydrated from the parameter store, and
// the merged result is validated again before it can reach any payload.
func resolveEnv(ctx context.Context, cfg *config.Config) (map[string]string, error) {
	local := deploy.BuildEnv(cfg.EnvAllowList, os.LookupEnv)
	if err := secrets.Validate(local); err != nil {
		return nil, err
	}

	if cfg.SecretsPath == "" || constants.Provider(cfg.Provider) != constants.AWS {
		return local, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	hydrator := secrets.NewHydrator(
		secrets.NewClientAdapter(ssm.NewFromConfig(awsCfg)), cfg.SecretsPath, slog.Default())
	hydrated, err := hydrator.Hydrate(ctx, cfg.EnvAllowList, os.LookupEnv)
	if err != nil {
		return nil, err
	}

	merged := deploy.BuildEnv(cfg.EnvAllowList, deploy.ChainLookup(os.LookupEnv, hydrated))
	if err := secrets.Validate(merged); err != nil {
		return nil, err
	}
	return merged, nil
}

// preflight resolves the caller identity so a deploy with stale credentials
// fails before any mutating call. Cloud Run resolves the project in the
// platform constructor instead.
func preflight(ctx context.Context, cfg *config.Config) error {
	if constants.Provider(cfg.Provider) == constants.GCP {
		return nil
	}

	resolver, err := identity.NewResolver(ctx, cfg.Region)
	if err != nil {
		return err
	}
	caller, err := resolver.Resolve(ctx)
	if err != nil {
		return err
	}
	output.KeyValue("Account", caller.Account)
	if verbose {
		output.KeyValue("Caller", caller.ARN)
	}
	return nil
}

func reportFailure(err error) {
	if code := apperrors.CodeOf(err); code != "" {
		output.Errorf("%s: %v", code, err)
		return
	}
	output.Errorf("%v", err)
}
