package cloudrun

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/run/v2"

	"github.com/shipway/shipway/internal/constants"
	"github.com/shipway/shipway/internal/deploy"
	apperrors "github.com/shipway/shipway/internal/errors"
)

// Platform implements deploy.RuntimePlatform for Google Cloud Run.
type Platform struct {
	run           RunClient
	accounts      AccountClient
	projectPolicy ProjectPolicyClient
	project       string
	projectNumber string
	region        string
}

var _ deploy.RuntimePlatform = (*Platform)(nil)

// Name identifies the platform.
func (p *Platform) Name() string {
	return "cloudrun"
}

func (p *Platform) servicePath(name string) string {
	return fmt.Sprintf("projects/%s/locations/%s/services/%s", p.project, p.region, name)
}

func (p *Platform) parent() string {
	return fmt.Sprintf("projects/%s/locations/%s", p.project, p.region)
}

// FindService probes the fully qualified service path. Cloud Run service IDs
// are unique per project and location, so a direct get replaces listing.
func (p *Platform) FindService(ctx context.Context, name string) (string, error) {
	svc, err := p.run.GetService(ctx, p.servicePath(name))
	if isNotFound(err) {
		return "", nil
	}
	if err != nil {
		return "", classify("find-service", err)
	}
	return svc.Name, nil
}

// CreateService creates the service. Cloud Run creation is asynchronous; the
// returned state reports the operation as in progress and convergence is
// observed through DescribeService.
func (p *Platform) CreateService(
	ctx context.Context,
	desired *deploy.ServiceDescriptor,
	roles deploy.ResolvedRoles,
) (*deploy.ServiceState, error) {
	svc := p.buildService(desired, roles)
	if err := p.run.CreateService(ctx, p.parent(), desired.Name, svc); err != nil {
		return nil, classify("create-service", err)
	}

	return &deploy.ServiceState{
		ID:     p.servicePath(desired.Name),
		Status: constants.StatusInProgress,
	}, nil
}

// UpdateService replaces the revision template wholesale. Env vars not in the
// desired descriptor disappear from the new revision.
func (p *Platform) UpdateService(
	ctx context.Context,
	id string,
	desired *deploy.ServiceDescriptor,
	roles deploy.ResolvedRoles,
) (*deploy.ServiceState, error) {
	existing, err := p.run.GetService(ctx, id)
	if err != nil {
		return nil, classify("update-service", err)
	}

	existing.Template = p.buildService(desired, roles).Template
	if err := p.run.PatchService(ctx, id, existing); err != nil {
		return nil, classify("update-service", err)
	}

	return &deploy.ServiceState{
		ID:     id,
		Status: constants.StatusInProgress,
		URL:    existing.Uri,
	}, nil
}

// DeleteService issues deletion of the identified service.
func (p *Platform) DeleteService(ctx context.Context, id string) error {
	if err := p.run.DeleteService(ctx, id); err != nil {
		return classify("delete-service", err)
	}
	return nil
}

// DescribeService fetches current status, mapping the terminal condition onto
// the normalized status set.
func (p *Platform) DescribeService(ctx context.Context, id string) (*deploy.ServiceState, error) {
	svc, err := p.run.GetService(ctx, id)
	if isNotFound(err) {
		return nil, apperrors.NewNotFound("service " + id)
	}
	if err != nil {
		return nil, classify("describe-service", err)
	}

	status := serviceStatus(svc)
	return &deploy.ServiceState{
		ID:     svc.Name,
		Status: status,
		URL:    svc.Uri,
		Failed: status == constants.StatusCreateFailed,
	}, nil
}

func (p *Platform) buildService(desired *deploy.ServiceDescriptor, roles deploy.ResolvedRoles) *run.GoogleCloudRunV2Service {
	return &run.GoogleCloudRunV2Service{
		Name: p.servicePath(desired.Name),
		Template: &run.GoogleCloudRunV2RevisionTemplate{
			ServiceAccount: roles.Execution.ID,
			Containers: []*run.GoogleCloudRunV2Container{
				{
					Image: desired.Image,
					Ports: []*run.GoogleCloudRunV2ContainerPort{
						{ContainerPort: int64(desired.Port)},
					},
					Env:          toEnvVars(desired.Env),
					StartupProbe: toProbe(desired.HealthCheck, desired.Port),
				},
			},
		},
	}
}

func toEnvVars(env map[string]string) []*run.GoogleCloudRunV2EnvVar {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	result := make([]*run.GoogleCloudRunV2EnvVar, 0, len(keys))
	for _, k := range keys {
		result = append(result, &run.GoogleCloudRunV2EnvVar{
			Name:  k,
			Value: env[k],
		})
	}
	return result
}

func toProbe(hc deploy.HealthCheckConfig, port int32) *run.GoogleCloudRunV2Probe {
	probe := &run.GoogleCloudRunV2Probe{
		PeriodSeconds:    int64(hc.Interval.Seconds()),
		TimeoutSeconds:   int64(hc.Timeout.Seconds()),
		FailureThreshold: int64(hc.UnhealthyThreshold),
	}
	if hc.Protocol == deploy.HealthCheckHTTP {
		probe.HttpGet = &run.GoogleCloudRunV2HTTPGetAction{
			Path: hc.Path,
			Port: int64(port),
		}
	} else {
		probe.TcpSocket = &run.GoogleCloudRunV2TCPSocketAction{
			Port: int64(port),
		}
	}
	return probe
}

func serviceStatus(svc *run.GoogleCloudRunV2Service) string {
	if svc.Reconciling || svc.TerminalCondition == nil {
		return constants.StatusInProgress
	}
	switch svc.TerminalCondition.State {
	case "CONDITION_SUCCEEDED":
		return constants.StatusRunning
	case "CONDITION_FAILED":
		return constants.StatusCreateFailed
	default:
		return constants.StatusInProgress
	}
}

func isNotFound(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusNotFound
	}
	return false
}

// classify maps Google API errors into the engine taxonomy: 404 becomes the
// not-found branch, rate limiting and server faults become transient,
// everything else is surfaced verbatim for the operator.
func classify(step string, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusNotFound:
			return apperrors.NewNotFound("resource")
		case apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= http.StatusInternalServerError:
			return apperrors.NewTransient(step, err)
		}
	}

	return fmt.Errorf("%s: %w", step, err)
}
