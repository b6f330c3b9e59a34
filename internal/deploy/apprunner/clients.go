// Package apprunner implements the RuntimePlatform capability interface for
// AWS App Runner. Services are managed through the App Runner control plane;
// trust roles are IAM roles with typed trust-policy documents.
package apprunner

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/apprunner"
	"github.com/aws/aws-sdk-go-v2/service/iam"
)

// Client defines the interface for App Runner operations used by the
// platform. This interface enables mocking for unit tests.
type Client interface {
	ListServices(
		ctx context.Context,
		params *apprunner.ListServicesInput,
		optFns ...func(*apprunner.Options),
	) (*apprunner.ListServicesOutput, error)
	CreateService(
		ctx context.Context,
		params *apprunner.CreateServiceInput,
		optFns ...func(*apprunner.Options),
	) (*apprunner.CreateServiceOutput, error)
	UpdateService(
		ctx context.Context,
		params *apprunner.UpdateServiceInput,
		optFns ...func(*apprunner.Options),
	) (*apprunner.UpdateServiceOutput, error)
	DeleteService(
		ctx context.Context,
		params *apprunner.DeleteServiceInput,
		optFns ...func(*apprunner.Options),
	) (*apprunner.DeleteServiceOutput, error)
	DescribeService(
		ctx context.Context,
		params *apprunner.DescribeServiceInput,
		optFns ...func(*apprunner.Options),
	) (*apprunner.DescribeServiceOutput, error)
}

// IAMClient defines the interface for IAM operations used by the role API.
type IAMClient interface {
	GetRole(
		ctx context.Context,
		params *iam.GetRoleInput,
		optFns ...func(*iam.Options),
	) (*iam.GetRoleOutput, error)
	CreateRole(
		ctx context.Context,
		params *iam.CreateRoleInput,
		optFns ...func(*iam.Options),
	) (*iam.CreateRoleOutput, error)
	AttachRolePolicy(
		ctx context.Context,
		params *iam.AttachRolePolicyInput,
		optFns ...func(*iam.Options),
	) (*iam.AttachRolePolicyOutput, error)
	ListAttachedRolePolicies(
		ctx context.Context,
		params *iam.ListAttachedRolePoliciesInput,
		optFns ...func(*iam.Options),
	) (*iam.ListAttachedRolePoliciesOutput, error)
	UpdateAssumeRolePolicy(
		ctx context.Context,
		params *iam.UpdateAssumeRolePolicyInput,
		optFns ...func(*iam.Options),
	) (*iam.UpdateAssumeRolePolicyOutput, error)
}

// New creates a Platform with real AWS SDK clients.
// If region is empty, the AWS SDK default resolution applies.
func New(ctx context.Context, region string) (*Platform, error) {
	var awsOpts []func(*awsconfig.LoadOptions) error
	if region != "" {
		awsOpts = append(awsOpts, awsconfig.WithRegion(region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	return &Platform{
		client: apprunner.NewFromConfig(awsCfg),
		iam:    iam.NewFromConfig(awsCfg),
		region: awsCfg.Region,
	}, nil
}

// NewWithClients creates a Platform with custom clients (for testing).
func NewWithClients(client Client, iamClient IAMClient, region string) *Platform {
	return &Platform{
		client: client,
		iam:    iamClient,
		region: region,
	}
}
