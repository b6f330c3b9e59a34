// Package cloudrun implements the RuntimePlatform capability interface for
// Google Cloud Run. Services run as dedicated service accounts; permission
// policies are project-level IAM bindings and trust is the act-as policy on
// the service account itself.
package cloudrun

import (
	"context"
	"fmt"
	"strings"

	resourcemanager "cloud.google.com/go/resourcemanager/apiv3"
	"cloud.google.com/go/resourcemanager/apiv3/resourcemanagerpb"
	"google.golang.org/api/cloudresourcemanager/v3"
	"google.golang.org/api/iam/v1"
	"google.golang.org/api/run/v2"
)

// RunClient defines the Cloud Run operations used by the platform. This
// interface enables mocking for unit tests.
type RunClient interface {
	GetService(ctx context.Context, name string) (*run.GoogleCloudRunV2Service, error)
	CreateService(ctx context.Context, parent, serviceID string, svc *run.GoogleCloudRunV2Service) error
	PatchService(ctx context.Context, name string, svc *run.GoogleCloudRunV2Service) error
	DeleteService(ctx context.Context, name string) error
}

// AccountClient defines the service account operations used by the role API.
type AccountClient interface {
	GetServiceAccount(ctx context.Context, name string) (*iam.ServiceAccount, error)
	CreateServiceAccount(ctx context.Context, project string, req *iam.CreateServiceAccountRequest) (*iam.ServiceAccount, error)
	GetAccountPolicy(ctx context.Context, resource string) (*iam.Policy, error)
	SetAccountPolicy(ctx context.Context, resource string, policy *iam.Policy) error
}

// ProjectPolicyClient defines the project-level IAM policy operations used to
// attach and enumerate permission roles.
type ProjectPolicyClient interface {
	GetProjectPolicy(ctx context.Context, projectID string) (*cloudresourcemanager.Policy, error)
	SetProjectPolicy(ctx context.Context, projectID string, policy *cloudresourcemanager.Policy) error
}

// New creates a Platform with real Google Cloud clients. The project is
// resolved up front: a bad project ID fails here, before any reconciliation
// step runs, and the resolved project number feeds the trust principals.
func New(ctx context.Context, projectID, region string) (*Platform, error) {
	runSvc, err := run.NewService(ctx)
	if err != nil {
		return nil, fmt.Errorf("create run service: %w", err)
	}

	iamSvc, err := iam.NewService(ctx)
	if err != nil {
		return nil, fmt.Errorf("create iam service: %w", err)
	}

	rmSvc, err := cloudresourcemanager.NewService(ctx)
	if err != nil {
		return nil, fmt.Errorf("create resource manager service: %w", err)
	}

	projectsClient, err := resourcemanager.NewProjectsClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create projects client: %w", err)
	}
	defer projectsClient.Close()

	project, err := projectsClient.GetProject(ctx, &resourcemanagerpb.GetProjectRequest{
		Name: "projects/" + projectID,
	})
	if err != nil {
		return nil, fmt.Errorf("resolve project %s: %w", projectID, err)
	}

	return &Platform{
		run:           &defaultRunClient{service: runSvc},
		accounts:      &defaultAccountClient{service: iamSvc},
		projectPolicy: &defaultProjectPolicyClient{service: rmSvc},
		project:       projectID,
		projectNumber: strings.TrimPrefix(project.GetName(), "projects/"),
		region:        region,
	}, nil
}

// NewWithClients creates a Platform with custom clients (for testing).
func NewWithClients(
	runClient RunClient,
	accounts AccountClient,
	projectPolicy ProjectPolicyClient,
	projectID, projectNumber, region string,
) *Platform {
	return &Platform{
		run:           runClient,
		accounts:      accounts,
		projectPolicy: projectPolicy,
		project:       projectID,
		projectNumber: projectNumber,
		region:        region,
	}
}

type defaultRunClient struct {
	service *run.Service
}

func (c *defaultRunClient) GetService(ctx context.Context, name string) (*run.GoogleCloudRunV2Service, error) {
	return c.service.Projects.Locations.Services.Get(name).Context(ctx).Do()
}

func (c *defaultRunClient) CreateService(
	ctx context.Context,
	parent, serviceID string,
	svc *run.GoogleCloudRunV2Service,
) error {
	_, err := c.service.Projects.Locations.Services.Create(parent, svc).
		ServiceId(serviceID).
		Context(ctx).
		Do()
	return err
}

func (c *defaultRunClient) PatchService(ctx context.Context, name string, svc *run.GoogleCloudRunV2Service) error {
	_, err := c.service.Projects.Locations.Services.Patch(name, svc).
		UpdateMask("template").
		Context(ctx).
		Do()
	return err
}

func (c *defaultRunClient) DeleteService(ctx context.Context, name string) error {
	_, err := c.service.Projects.Locations.Services.Delete(name).Context(ctx).Do()
	return err
}

type defaultAccountClient struct {
	service *iam.Service
}

func (c *defaultAccountClient) GetServiceAccount(ctx context.Context, name string) (*iam.ServiceAccount, error) {
	return c.service.Projects.ServiceAccounts.Get(name).Context(ctx).Do()
}

func (c *defaultAccountClient) CreateServiceAccount(
	ctx context.Context,
	project string,
	req *iam.CreateServiceAccountRequest,
) (*iam.ServiceAccount, error) {
	return c.service.Projects.ServiceAccounts.Create(project, req).Context(ctx).Do()
}

func (c *defaultAccountClient) GetAccountPolicy(ctx context.Context, resource string) (*iam.Policy, error) {
	return c.service.Projects.ServiceAccounts.GetIamPolicy(resource).Context(ctx).Do()
}

func (c *defaultAccountClient) SetAccountPolicy(ctx context.Context, resource string, policy *iam.Policy) error {
	_, err := c.service.Projects.ServiceAccounts.SetIamPolicy(
		resource,
		&iam.SetIamPolicyRequest{Policy: policy},
	).Context(ctx).Do()
	return err
}

type defaultProjectPolicyClient struct {
	service *cloudresourcemanager.Service
}

func (c *defaultProjectPolicyClient) GetProjectPolicy(
	ctx context.Context,
	projectID string,
) (*cloudresourcemanager.Policy, error) {
	return c.service.Projects.GetIamPolicy(
		"projects/"+projectID,
		&cloudresourcemanager.GetIamPolicyRequest{},
	).Context(ctx).Do()
}

func (c *defaultProjectPolicyClient) SetProjectPolicy(
	ctx context.Context,
	projectID string,
	policy *cloudresourcemanager.Policy,
) error {
	_, err := c.service.Projects.SetIamPolicy(
		"projects/"+projectID,
		&cloudresourcemanager.SetIamPolicyRequest{Policy: policy},
	).Context(ctx).Do()
	return err
}
