package cloudrun

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/cloudresourcemanager/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iam/v1"
	"google.golang.org/api/run/v2"

	"github.com/shipway/shipway/internal/deploy"
	apperrors "github.com/shipway/shipway/internal/errors"
)

type mockRunClient struct {
	GetServiceFunc    func(ctx context.Context, name string) (*run.GoogleCloudRunV2Service, error)
	CreateServiceFunc func(ctx context.Context, parent, serviceID string, svc *run.GoogleCloudRunV2Service) error
	PatchServiceFunc  func(ctx context.Context, name string, svc *run.GoogleCloudRunV2Service) error
	DeleteServiceFunc func(ctx context.Context, name string) error
}

func (m *mockRunClient) GetService(ctx context.Context, name string) (*run.GoogleCloudRunV2Service, error) {
	return m.GetServiceFunc(ctx, name)
}

func (m *mockRunClient) CreateService(ctx context.Context, parent, serviceID string, svc *run.GoogleCloudRunV2Service) error {
	return m.CreateServiceFunc(ctx, parent, serviceID, svc)
}

func (m *mockRunClient) PatchService(ctx context.Context, name string, svc *run.GoogleCloudRunV2Service) error {
	return m.PatchServiceFunc(ctx, name, svc)
}

func (m *mockRunClient) DeleteService(ctx context.Context, name string) error {
	return m.DeleteServiceFunc(ctx, name)
}

type mockAccountClient struct {
	GetServiceAccountFunc    func(ctx context.Context, name string) (*iam.ServiceAccount, error)
	CreateServiceAccountFunc func(ctx context.Context, project string, req *iam.CreateServiceAccountRequest) (*iam.ServiceAccount, error)
	GetAccountPolicyFunc     func(ctx context.Context, resource string) (*iam.Policy, error)
	SetAccountPolicyFunc     func(ctx context.Context, resource string, policy *iam.Policy) error
}

func (m *mockAccountClient) GetServiceAccount(ctx context.Context, name string) (*iam.ServiceAccount, error) {
	return m.GetServiceAccountFunc(ctx, name)
}

func (m *mockAccountClient) CreateServiceAccount(ctx context.Context, project string, req *iam.CreateServiceAccountRequest) (*iam.ServiceAccount, error) {
	return m.CreateServiceAccountFunc(ctx, project, req)
}

func (m *mockAccountClient) GetAccountPolicy(ctx context.Context, resource string) (*iam.Policy, error) {
	return m.GetAccountPolicyFunc(ctx, resource)
}

func (m *mockAccountClient) SetAccountPolicy(ctx context.Context, resource string, policy *iam.Policy) error {
	return m.SetAccountPolicyFunc(ctx, resource, policy)
}

type mockProjectPolicyClient struct {
	GetProjectPolicyFunc func(ctx context.Context, projectID string) (*cloudresourcemanager.Policy, error)
	SetProjectPolicyFunc func(ctx context.Context, projectID string, policy *cloudresourcemanager.Policy) error
}

func (m *mockProjectPolicyClient) GetProjectPolicy(ctx context.Context, projectID string) (*cloudresourcemanager.Policy, error) {
	return m.GetProjectPolicyFunc(ctx, projectID)
}

func (m *mockProjectPolicyClient) SetProjectPolicy(ctx context.Context, projectID string, policy *cloudresourcemanager.Policy) error {
	return m.SetProjectPolicyFunc(ctx, projectID, policy)
}

func notFoundErr() error {
	return &googleapi.Error{Code: http.StatusNotFound, Message: "not found"}
}

func testPlatform(runClient RunClient, accounts AccountClient, projectPolicy ProjectPolicyClient) *Platform {
	return NewWithClients(runClient, accounts, projectPolicy, "acme-prod", "123456789", "us-central1")
}

func testDescriptor() *deploy.ServiceDescriptor {
	return &deploy.ServiceDescriptor{
		Name:  "orders-api",
		Image: "us-central1-docker.pkg.dev/acme-prod/apps/orders-api:v3",
		Port:  8080,
		HealthCheck: deploy.HealthCheckConfig{
			Protocol: deploy.HealthCheckTCP,
		},
		Env: map[string]string{"B_KEY": "2", "A_KEY": "1"},
	}
}

func testRoles() deploy.ResolvedRoles {
	return deploy.ResolvedRoles{
		Execution: &deploy.RoleDescriptor{Name: "orders-api-execution", ID: "orders-api-execution@acme-prod.iam.gserviceaccount.com"},
		ImagePull: &deploy.RoleDescriptor{Name: "orders-api-pull", ID: "orders-api-pull@acme-prod.iam.gserviceaccount.com"},
	}
}

func TestFindServiceAbsentReturnsEmptyID(t *testing.T) {
	runClient := &mockRunClient{
		GetServiceFunc: func(_ context.Context, _ string) (*run.GoogleCloudRunV2Service, error) {
			return nil, notFoundErr()
		},
	}

	p := testPlatform(runClient, nil, nil)
	id, err := p.FindService(context.Background(), "orders-api")
	require.NoError(t, err)
	assert.Empty(t, id)
}

func TestFindServiceReturnsQualifiedName(t *testing.T) {
	var requested string
	runClient := &mockRunClient{
		GetServiceFunc: func(_ context.Context, name string) (*run.GoogleCloudRunV2Service, error) {
			requested = name
			return &run.GoogleCloudRunV2Service{Name: name}, nil
		},
	}

	p := testPlatform(runClient, nil, nil)
	id, err := p.FindService(context.Background(), "orders-api")
	require.NoError(t, err)
	assert.Equal(t, "projects/acme-prod/locations/us-central1/services/orders-api", id)
	assert.Equal(t, id, requested)
}

func TestCreateServicePayload(t *testing.T) {
	var gotParent, gotID string
	var gotSvc *run.GoogleCloudRunV2Service
	runClient := &mockRunClient{
		CreateServiceFunc: func(_ context.Context, parent, serviceID string, svc *run.GoogleCloudRunV2Service) error {
			gotParent, gotID, gotSvc = parent, serviceID, svc
			return nil
		},
	}

	p := testPlatform(runClient, nil, nil)
	state, err := p.CreateService(context.Background(), testDescriptor(), testRoles())
	require.NoError(t, err)
	assert.Equal(t, "OPERATION_IN_PROGRESS", state.Status)

	assert.Equal(t, "projects/acme-prod/locations/us-central1", gotParent)
	assert.Equal(t, "orders-api", gotID)
	require.Len(t, gotSvc.Template.Containers, 1)
	container := gotSvc.Template.Containers[0]
	assert.Equal(t, "us-central1-docker.pkg.dev/acme-prod/apps/orders-api:v3", container.Image)
	assert.Equal(t, int64(8080), container.Ports[0].ContainerPort)
	assert.Equal(t, "orders-api-execution@acme-prod.iam.gserviceaccount.com", gotSvc.Template.ServiceAccount)
	require.NotNil(t, container.StartupProbe.TcpSocket)
	assert.Nil(t, container.StartupProbe.HttpGet)

	// env vars are emitted in sorted key order
	require.Len(t, container.Env, 2)
	assert.Equal(t, "A_KEY", container.Env[0].Name)
	assert.Equal(t, "B_KEY", container.Env[1].Name)
}

func TestUpdateServiceReplacesTemplate(t *testing.T) {
	var patched *run.GoogleCloudRunV2Service
	runClient := &mockRunClient{
		GetServiceFunc: func(_ context.Context, name string) (*run.GoogleCloudRunV2Service, error) {
			return &run.GoogleCloudRunV2Service{
				Name: name,
				Uri:  "https://orders-api-abc.run.app",
				Template: &run.GoogleCloudRunV2RevisionTemplate{
					Containers: []*run.GoogleCloudRunV2Container{
						{Image: "old-image", Env: []*run.GoogleCloudRunV2EnvVar{{Name: "STALE", Value: "1"}}},
					},
				},
			}, nil
		},
		PatchServiceFunc: func(_ context.Context, _ string, svc *run.GoogleCloudRunV2Service) error {
			patched = svc
			return nil
		},
	}

	p := testPlatform(runClient, nil, nil)
	id := "projects/acme-prod/locations/us-central1/services/orders-api"
	state, err := p.UpdateService(context.Background(), id, testDescriptor(), testRoles())
	require.NoError(t, err)
	assert.Equal(t, "https://orders-api-abc.run.app", state.URL)

	container := patched.Template.Containers[0]
	assert.Equal(t, "us-central1-docker.pkg.dev/acme-prod/apps/orders-api:v3", container.Image)
	for _, env := range container.Env {
		assert.NotEqual(t, "STALE", env.Name)
	}
}

func TestDescribeServiceStatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		svc        *run.GoogleCloudRunV2Service
		wantStatus string
		wantFailed bool
	}{
		{
			name: "ready",
			svc: &run.GoogleCloudRunV2Service{
				Uri:               "https://orders-api-abc.run.app",
				TerminalCondition: &run.GoogleCloudRunV2Condition{State: "CONDITION_SUCCEEDED"},
			},
			wantStatus: "RUNNING",
		},
		{
			name: "reconciling",
			svc: &run.GoogleCloudRunV2Service{
				Reconciling:       true,
				TerminalCondition: &run.GoogleCloudRunV2Condition{State: "CONDITION_SUCCEEDED"},
			},
			wantStatus: "OPERATION_IN_PROGRESS",
		},
		{
			name: "failed",
			svc: &run.GoogleCloudRunV2Service{
				TerminalCondition: &run.GoogleCloudRunV2Condition{State: "CONDITION_FAILED"},
			},
			wantStatus: "CREATE_FAILED",
			wantFailed: true,
		},
		{
			name:       "no terminal condition yet",
			svc:        &run.GoogleCloudRunV2Service{},
			wantStatus: "OPERATION_IN_PROGRESS",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runClient := &mockRunClient{
				GetServiceFunc: func(_ context.Context, name string) (*run.GoogleCloudRunV2Service, error) {
					tt.svc.Name = name
					return tt.svc, nil
				},
			}

			p := testPlatform(runClient, nil, nil)
			state, err := p.DescribeService(context.Background(), "projects/acme-prod/locations/us-central1/services/orders-api")
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, state.Status)
			assert.Equal(t, tt.wantFailed, state.Failed)
		})
	}
}

func TestDescribeServiceGoneIsNotFound(t *testing.T) {
	runClient := &mockRunClient{
		GetServiceFunc: func(_ context.Context, _ string) (*run.GoogleCloudRunV2Service, error) {
			return nil, notFoundErr()
		},
	}

	p := testPlatform(runClient, nil, nil)
	_, err := p.DescribeService(context.Background(), "projects/acme-prod/locations/us-central1/services/orders-api")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestClassifyRateLimitAsTransient(t *testing.T) {
	runClient := &mockRunClient{
		DeleteServiceFunc: func(_ context.Context, _ string) error {
			return &googleapi.Error{Code: http.StatusTooManyRequests}
		},
	}

	p := testPlatform(runClient, nil, nil)
	err := p.DeleteService(context.Background(), "projects/acme-prod/locations/us-central1/services/orders-api")
	require.Error(t, err)
	assert.True(t, apperrors.IsTransient(err))
}
