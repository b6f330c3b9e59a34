package apprunner

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/apprunner"
	"github.com/aws/aws-sdk-go-v2/service/apprunner/types"
	"github.com/aws/smithy-go"

	"github.com/shipway/shipway/internal/constants"
	"github.com/shipway/shipway/internal/deploy"
	apperrors "github.com/shipway/shipway/internal/errors"
)

// Platform implements deploy.RuntimePlatform for AWS App Runner.
type Platform struct {
	client Client
	iam    IAMClient
	region string
}

var _ deploy.RuntimePlatform = (*Platform)(nil)

// Name identifies the platform.
func (p *Platform) Name() string {
	return "apprunner"
}

// FindService lists services and matches by exact logical name. An absent
// service yields an empty identifier, not an error.
func (p *Platform) FindService(ctx context.Context, name string) (string, error) {
	var nextToken *string
	for {
		out, err := p.client.ListServices(ctx, &apprunner.ListServicesInput{
			NextToken: nextToken,
		})
		if err != nil {
			return "", classify("list-services", err)
		}

		for _, summary := range out.ServiceSummaryList {
			if summary.ServiceName != nil && *summary.ServiceName == name {
				return aws.ToString(summary.ServiceArn), nil
			}
		}

		if out.NextToken == nil {
			return "", nil
		}
		nextToken = out.NextToken
	}
}

// CreateService creates the service with the full desired payload.
func (p *Platform) CreateService(
	ctx context.Context,
	desired *deploy.ServiceDescriptor,
	roles deploy.ResolvedRoles,
) (*deploy.ServiceState, error) {
	out, err := p.client.CreateService(ctx, &apprunner.CreateServiceInput{
		ServiceName:              aws.String(desired.Name),
		SourceConfiguration:      sourceConfiguration(desired, roles),
		InstanceConfiguration:    instanceConfiguration(roles),
		HealthCheckConfiguration: healthCheckConfiguration(desired.HealthCheck),
		Tags: []types.Tag{
			{Key: aws.String("ManagedBy"), Value: aws.String(constants.ProjectName)},
		},
	})
	if err != nil {
		return nil, classify("create-service", err)
	}

	return serviceState(out.Service), nil
}

// UpdateService merge-replaces source, instance, and health check
// configuration in a single call. The service name is immutable
// post-creation and is not part of the payload.
func (p *Platform) UpdateService(
	ctx context.Context,
	id string,
	desired *deploy.ServiceDescriptor,
	roles deploy.ResolvedRoles,
) (*deploy.ServiceState, error) {
	out, err := p.client.UpdateService(ctx, &apprunner.UpdateServiceInput{
		ServiceArn:               aws.String(id),
		SourceConfiguration:      sourceConfiguration(desired, roles),
		InstanceConfiguration:    instanceConfiguration(roles),
		HealthCheckConfiguration: healthCheckConfiguration(desired.HealthCheck),
	})
	if err != nil {
		return nil, classify("update-service", err)
	}

	return serviceState(out.Service), nil
}

// DeleteService issues deletion of the identified service.
func (p *Platform) DeleteService(ctx context.Context, id string) error {
	_, err := p.client.DeleteService(ctx, &apprunner.DeleteServiceInput{
		ServiceArn: aws.String(id),
	})
	if err != nil {
		return classify("delete-service", err)
	}
	return nil
}

// DescribeService fetches current status. App Runner keeps a DELETED record
// around for a while after deletion; that is normalized to not-found so
// poll-until-absent terminates.
func (p *Platform) DescribeService(ctx context.Context, id string) (*deploy.ServiceState, error) {
	out, err := p.client.DescribeService(ctx, &apprunner.DescribeServiceInput{
		ServiceArn: aws.String(id),
	})
	if err != nil {
		return nil, classify("describe-service", err)
	}
	if out.Service == nil || out.Service.Status == types.ServiceStatusDeleted {
		return nil, apperrors.NewNotFound("service " + id)
	}

	return serviceState(out.Service), nil
}

func sourceConfiguration(desired *deploy.ServiceDescriptor, roles deploy.ResolvedRoles) *types.SourceConfiguration {
	return &types.SourceConfiguration{
		AuthenticationConfiguration: &types.AuthenticationConfiguration{
			AccessRoleArn: aws.String(roles.ImagePull.ID),
		},
		AutoDeploymentsEnabled: aws.Bool(false),
		ImageRepository: &types.ImageRepository{
			ImageIdentifier:     aws.String(desired.Image),
			ImageRepositoryType: imageRepositoryType(desired.Image),
			ImageConfiguration: &types.ImageConfiguration{
				Port:                        aws.String(strconv.Itoa(int(desired.Port))),
				RuntimeEnvironmentVariables: desired.Env,
			},
		},
	}
}

func instanceConfiguration(roles deploy.ResolvedRoles) *types.InstanceConfiguration {
	return &types.InstanceConfiguration{
		InstanceRoleArn: aws.String(roles.Execution.ID),
	}
}

func healthCheckConfiguration(hc deploy.HealthCheckConfig) *types.HealthCheckConfiguration {
	cfg := &types.HealthCheckConfiguration{
		Interval:           aws.Int32(int32(hc.Interval.Seconds())),
		Timeout:            aws.Int32(int32(hc.Timeout.Seconds())),
		HealthyThreshold:   aws.Int32(hc.HealthyThreshold),
		UnhealthyThreshold: aws.Int32(hc.UnhealthyThreshold),
	}
	if hc.Protocol == deploy.HealthCheckHTTP {
		cfg.Protocol = types.HealthCheckProtocolHttp
		cfg.Path = aws.String(hc.Path)
	} else {
		// Path carries no meaning for TCP and is omitted from the payload.
		cfg.Protocol = types.HealthCheckProtocolTcp
	}
	return cfg
}

func imageRepositoryType(image string) types.ImageRepositoryType {
	if strings.HasPrefix(image, "public.ecr.aws/") {
		return types.ImageRepositoryTypeEcrPublic
	}
	return types.ImageRepositoryTypeEcr
}

func serviceState(svc *types.Service) *deploy.ServiceState {
	if svc == nil {
		return &deploy.ServiceState{Status: constants.StatusUnknown}
	}

	status := string(svc.Status)
	url := ""
	if svc.ServiceUrl != nil {
		url = "https://" + *svc.ServiceUrl
	}

	return &deploy.ServiceState{
		ID:     aws.ToString(svc.ServiceArn),
		Status: status,
		URL:    url,
		Failed: status == constants.StatusCreateFailed || status == constants.StatusDeleteFailed,
	}
}

// classify maps SDK errors into the engine taxonomy: resource-not-found
// becomes the not-found branch, throttling and server faults become
// transient, everything else is surfaced verbatim for the operator.
func classify(step string, err error) error {
	var notFound *types.ResourceNotFoundException
	if errors.As(err, &notFound) {
		return apperrors.NewNotFound("resource")
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "ThrottlingException", "TooManyRequestsException", "RequestTimeout",
			"InternalServiceErrorException", "ServiceUnavailableException":
			return apperrors.NewTransient(step, err)
		}
		if apiErr.ErrorFault() == smithy.FaultServer {
			return apperrors.NewTransient(step, err)
		}
	}

	return fmt.Errorf("%s: %w", step, err)
}
