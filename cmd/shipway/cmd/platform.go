package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/shipway/shipway/internal/config"
	"github.com/shipway/shipway/internal/constants"
	"github.com/shipway/shipway/internal/deploy"
	"github.com/shipway/shipway/internal/deploy/apprunner"
	"github.com/shipway/shipway/internal/deploy/cloudrun"
)

// newPlatform builds the runtime platform selected by the configuration.
func newPlatform(ctx context.Context, cfg *config.Config) (deploy.RuntimePlatform, error) {
	switch constants.Provider(cfg.Provider) {
	case constants.GCP:
		return cloudrun.New(ctx, cfg.Project, cfg.Region)
	case constants.AWS, "":
		return apprunner.New(ctx, cfg.Region)
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}

// descriptorFromConfig maps the loaded configuration onto a service
// descriptor. Env is filled separately, after the secret guard has run.
func descriptorFromConfig(cfg *config.Config) *deploy.ServiceDescriptor {
	protocol := deploy.HealthCheckTCP
	if cfg.HealthCheckProtocol == string(deploy.HealthCheckHTTP) {
		protocol = deploy.HealthCheckHTTP
	}

	executionRole := cfg.ExecutionRole
	if executionRole == "" && cfg.ServiceName != "" {
		executionRole = cfg.ServiceName + "-execution"
	}
	imagePullRole := cfg.ImagePullRole
	if imagePullRole == "" && cfg.ServiceName != "" {
		imagePullRole = cfg.ServiceName + "-pull"
	}

	return &deploy.ServiceDescriptor{
		Name:  cfg.ServiceName,
		Image: cfg.Image,
		Port:  cfg.Port,
		HealthCheck: deploy.HealthCheckConfig{
			Protocol:           protocol,
			Path:               cfg.HealthCheckPath,
			Interval:           orDuration(cfg.HealthCheckInterval, constants.DefaultHealthCheckInterval),
			Timeout:            orDuration(cfg.HealthCheckTimeout, constants.DefaultHealthCheckTimeout),
			HealthyThreshold:   orInt32(cfg.HealthyThreshold, 1),
			UnhealthyThreshold: orInt32(cfg.UnhealthyThreshold, 5),
		},
		ExecutionRoleName:   executionRole,
		ImagePullRoleName:   imagePullRole,
		ExecutionPolicyRefs: cfg.ExecutionPolicies,
	}
}

func orDuration(v, fallback time.Duration) time.Duration {
	if v > 0 {
		return v
	}
	return fallback
}

func orInt32(v, fallback int32) int32 {
	if v > 0 {
		return v
	}
	return fallback
}
