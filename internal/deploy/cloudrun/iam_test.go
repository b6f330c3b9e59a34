package cloudrun

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/cloudresourcemanager/v3"
	"google.golang.org/api/iam/v1"

	"github.com/shipway/shipway/internal/deploy"
	apperrors "github.com/shipway/shipway/internal/errors"
)

func TestGetRoleAbsentIsNotFound(t *testing.T) {
	accounts := &mockAccountClient{
		GetServiceAccountFunc: func(_ context.Context, _ string) (*iam.ServiceAccount, error) {
			return nil, notFoundErr()
		},
	}

	p := testPlatform(nil, accounts, nil)
	_, err := p.GetRole(context.Background(), "orders-api-execution")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestGetRoleReadsTrustFromAccountPolicy(t *testing.T) {
	accounts := &mockAccountClient{
		GetServiceAccountFunc: func(_ context.Context, name string) (*iam.ServiceAccount, error) {
			return &iam.ServiceAccount{Email: "orders-api-execution@acme-prod.iam.gserviceaccount.com"}, nil
		},
		GetAccountPolicyFunc: func(_ context.Context, _ string) (*iam.Policy, error) {
			return &iam.Policy{
				Bindings: []*iam.Binding{
					{Role: "roles/iam.serviceAccountUser", Members: []string{"serviceAccount:service-123456789@serverless-robot-prod.iam.gserviceaccount.com"}},
					{Role: "roles/other", Members: []string{"user:someone@example.com"}},
				},
			}, nil
		},
	}

	p := testPlatform(nil, accounts, nil)
	role, err := p.GetRole(context.Background(), "orders-api-execution")
	require.NoError(t, err)
	assert.Equal(t, "orders-api-execution@acme-prod.iam.gserviceaccount.com", role.ID)
	assert.Equal(t,
		[]string{"serviceAccount:service-123456789@serverless-robot-prod.iam.gserviceaccount.com"},
		role.Trust.Principals)
}

func TestCreateRoleAppliesTrustBinding(t *testing.T) {
	var setPolicy *iam.Policy
	accounts := &mockAccountClient{
		CreateServiceAccountFunc: func(_ context.Context, project string, req *iam.CreateServiceAccountRequest) (*iam.ServiceAccount, error) {
			assert.Equal(t, "projects/acme-prod", project)
			assert.Equal(t, "orders-api-pull", req.AccountId)
			return &iam.ServiceAccount{Email: "orders-api-pull@acme-prod.iam.gserviceaccount.com"}, nil
		},
		GetAccountPolicyFunc: func(_ context.Context, _ string) (*iam.Policy, error) {
			return &iam.Policy{}, nil
		},
		SetAccountPolicyFunc: func(_ context.Context, _ string, policy *iam.Policy) error {
			setPolicy = policy
			return nil
		},
	}

	p := testPlatform(nil, accounts, nil)
	trust := p.TrustPolicyFor(deploy.RoleImagePull)
	role, err := p.CreateRole(context.Background(), "orders-api-pull", trust)
	require.NoError(t, err)
	assert.Equal(t, "orders-api-pull@acme-prod.iam.gserviceaccount.com", role.ID)

	require.NotNil(t, setPolicy)
	require.Len(t, setPolicy.Bindings, 1)
	assert.Equal(t, "roles/iam.serviceAccountUser", setPolicy.Bindings[0].Role)
	assert.Equal(t, trust.Principals, setPolicy.Bindings[0].Members)
}

func TestAttachPolicyAddsProjectBinding(t *testing.T) {
	var setPolicy *cloudresourcemanager.Policy
	projectPolicy := &mockProjectPolicyClient{
		GetProjectPolicyFunc: func(_ context.Context, _ string) (*cloudresourcemanager.Policy, error) {
			return &cloudresourcemanager.Policy{
				Bindings: []*cloudresourcemanager.Binding{
					{Role: "roles/viewer", Members: []string{"user:someone@example.com"}},
				},
			}, nil
		},
		SetProjectPolicyFunc: func(_ context.Context, _ string, policy *cloudresourcemanager.Policy) error {
			setPolicy = policy
			return nil
		},
	}

	p := testPlatform(nil, nil, projectPolicy)
	err := p.AttachPolicy(context.Background(), "orders-api-execution", "roles/logging.logWriter")
	require.NoError(t, err)

	require.NotNil(t, setPolicy)
	require.Len(t, setPolicy.Bindings, 2)
	assert.Equal(t, "roles/logging.logWriter", setPolicy.Bindings[1].Role)
	assert.Equal(t,
		[]string{"serviceAccount:orders-api-execution@acme-prod.iam.gserviceaccount.com"},
		setPolicy.Bindings[1].Members)
}

func TestAttachPolicyAlreadyBoundSkipsWrite(t *testing.T) {
	setCalled := false
	projectPolicy := &mockProjectPolicyClient{
		GetProjectPolicyFunc: func(_ context.Context, _ string) (*cloudresourcemanager.Policy, error) {
			return &cloudresourcemanager.Policy{
				Bindings: []*cloudresourcemanager.Binding{
					{
						Role:    "roles/logging.logWriter",
						Members: []string{"serviceAccount:orders-api-execution@acme-prod.iam.gserviceaccount.com"},
					},
				},
			}, nil
		},
		SetProjectPolicyFunc: func(_ context.Context, _ string, _ *cloudresourcemanager.Policy) error {
			setCalled = true
			return nil
		},
	}

	p := testPlatform(nil, nil, projectPolicy)
	err := p.AttachPolicy(context.Background(), "orders-api-execution", "roles/logging.logWriter")
	require.NoError(t, err)
	assert.False(t, setCalled)
}

func TestListAttachedPoliciesFiltersByMember(t *testing.T) {
	projectPolicy := &mockProjectPolicyClient{
		GetProjectPolicyFunc: func(_ context.Context, _ string) (*cloudresourcemanager.Policy, error) {
			return &cloudresourcemanager.Policy{
				Bindings: []*cloudresourcemanager.Binding{
					{Role: "roles/logging.logWriter", Members: []string{"serviceAccount:orders-api-execution@acme-prod.iam.gserviceaccount.com"}},
					{Role: "roles/viewer", Members: []string{"user:someone@example.com"}},
				},
			}, nil
		},
	}

	p := testPlatform(nil, nil, projectPolicy)
	refs, err := p.ListAttachedPolicies(context.Background(), "orders-api-execution")
	require.NoError(t, err)
	assert.Equal(t, []string{"roles/logging.logWriter"}, refs)
}

func TestUpdateTrustPolicyReplacesActAsMembers(t *testing.T) {
	var setPolicy *iam.Policy
	accounts := &mockAccountClient{
		GetAccountPolicyFunc: func(_ context.Context, _ string) (*iam.Policy, error) {
			return &iam.Policy{
				Bindings: []*iam.Binding{
					{Role: "roles/iam.serviceAccountUser", Members: []string{"user:stale@example.com"}},
					{Role: "roles/iam.serviceAccountTokenCreator", Members: []string{"user:keep@example.com"}},
				},
			}, nil
		},
		SetAccountPolicyFunc: func(_ context.Context, _ string, policy *iam.Policy) error {
			setPolicy = policy
			return nil
		},
	}

	p := testPlatform(nil, accounts, nil)
	trust := p.TrustPolicyFor(deploy.RoleExecution)
	err := p.UpdateTrustPolicy(context.Background(), "orders-api-execution", trust)
	require.NoError(t, err)

	require.NotNil(t, setPolicy)
	require.Len(t, setPolicy.Bindings, 2)
	assert.Equal(t, "roles/iam.serviceAccountTokenCreator", setPolicy.Bindings[0].Role)
	assert.Equal(t, "roles/iam.serviceAccountUser", setPolicy.Bindings[1].Role)
	assert.Equal(t, trust.Principals, setPolicy.Bindings[1].Members)
}

func TestDefaultPolicyRefsPerKind(t *testing.T) {
	p := testPlatform(nil, nil, nil)
	assert.Equal(t, []string{"roles/artifactregistry.reader"}, p.DefaultPolicyRefs(deploy.RoleImagePull))
	assert.Equal(t, []string{"roles/logging.logWriter"}, p.DefaultPolicyRefs(deploy.RoleExecution))
}

func TestTrustPolicyUsesProjectNumber(t *testing.T) {
	p := testPlatform(nil, nil, nil)
	trust := p.TrustPolicyFor(deploy.RoleExecution)
	assert.Equal(t,
		[]string{"serviceAccount:service-123456789@serverless-robot-prod.iam.gserviceaccount.com"},
		trust.Principals)
}
