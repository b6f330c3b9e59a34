package cloudrun

import (
	"context"
	"fmt"
	"slices"

	"google.golang.org/api/cloudresourcemanager/v3"
	"google.golang.org/api/iam/v1"

	"github.com/shipway/shipway/internal/constants"
	"github.com/shipway/shipway/internal/deploy"
	apperrors "github.com/shipway/shipway/internal/errors"
)

// actAsRole is granted on the service account to the principals that deploy
// revisions running as it. It is the Cloud Run analogue of an assume-role
// trust policy.
const actAsRole = "roles/iam.serviceAccountUser"

// Default permission roles per role kind.
const (
	logWriterRole          = "roles/logging.logWriter"
	artifactReaderRole     = "roles/artifactregistry.reader"
	serverlessAgentAccount = "serverless-robot-prod.iam.gserviceaccount.com"
)

// TrustPolicyFor returns the Cloud Run service agent of the resolved project.
// The agent needs act-as on both role kinds to deploy revisions and pull
// images.
func (p *Platform) TrustPolicyFor(_ deploy.RoleKind) deploy.TrustPolicy {
	return deploy.TrustPolicy{
		Principals: []string{
			fmt.Sprintf("serviceAccount:service-%s@%s", p.projectNumber, serverlessAgentAccount),
		},
	}
}

// DefaultPolicyRefs returns the project roles a service account of the given
// kind needs: the execution account writes logs, the image-pull account reads
// Artifact Registry.
func (p *Platform) DefaultPolicyRefs(kind deploy.RoleKind) []string {
	if kind == deploy.RoleImagePull {
		return []string{artifactReaderRole}
	}
	return []string{logWriterRole}
}

func (p *Platform) accountEmail(name string) string {
	return fmt.Sprintf("%s@%s.iam.gserviceaccount.com", name, p.project)
}

func (p *Platform) accountResource(email string) string {
	return fmt.Sprintf("projects/%s/serviceAccounts/%s", p.project, email)
}

// GetRole fetches the service account behind the role name. The trust view is
// read from the account's own IAM policy: the act-as members are the
// principals allowed to deploy as this account.
func (p *Platform) GetRole(ctx context.Context, name string) (*deploy.RoleDescriptor, error) {
	email := p.accountEmail(name)
	if _, err := p.accounts.GetServiceAccount(ctx, p.accountResource(email)); err != nil {
		if isNotFound(err) {
			return nil, apperrors.NewNotFound("service account " + name)
		}
		return nil, classify("get-role", err)
	}

	policy, err := p.accounts.GetAccountPolicy(ctx, p.accountResource(email))
	if err != nil {
		return nil, classify("get-role", err)
	}

	return &deploy.RoleDescriptor{
		Name:  name,
		ID:    email,
		Trust: deploy.TrustPolicy{Principals: actAsMembers(policy)},
	}, nil
}

// CreateRole creates the service account and applies the trust policy as an
// act-as binding on the account.
func (p *Platform) CreateRole(ctx context.Context, name string, trust deploy.TrustPolicy) (*deploy.RoleDescriptor, error) {
	sa, err := p.accounts.CreateServiceAccount(ctx, "projects/"+p.project, &iam.CreateServiceAccountRequest{
		AccountId: name,
		ServiceAccount: &iam.ServiceAccount{
			DisplayName: "Managed by " + constants.ProjectName,
		},
	})
	if err != nil {
		return nil, classify("create-role", err)
	}

	if err := p.setTrust(ctx, sa.Email, trust); err != nil {
		return nil, err
	}

	return &deploy.RoleDescriptor{
		Name:  name,
		ID:    sa.Email,
		Trust: trust,
	}, nil
}

// AttachPolicy grants the project role to the service account via a project
// IAM binding. Adding a member that already holds the role is a no-op.
func (p *Platform) AttachPolicy(ctx context.Context, roleName, policyRef string) error {
	member := "serviceAccount:" + p.accountEmail(roleName)

	policy, err := p.projectPolicy.GetProjectPolicy(ctx, p.project)
	if err != nil {
		return classify("attach-policy", err)
	}

	if bindingExists(policy.Bindings, policyRef, member) {
		return nil
	}
	policy.Bindings = append(policy.Bindings, &cloudresourcemanager.Binding{
		Role:    policyRef,
		Members: []string{member},
	})

	if err := p.projectPolicy.SetProjectPolicy(ctx, p.project, policy); err != nil {
		return classify("attach-policy", err)
	}
	return nil
}

// ListAttachedPolicies returns the project roles currently granted to the
// service account.
func (p *Platform) ListAttachedPolicies(ctx context.Context, roleName string) ([]string, error) {
	member := "serviceAccount:" + p.accountEmail(roleName)

	policy, err := p.projectPolicy.GetProjectPolicy(ctx, p.project)
	if err != nil {
		return nil, classify("list-attached-policies", err)
	}

	var refs []string
	for _, b := range policy.Bindings {
		if slices.Contains(b.Members, member) {
			refs = append(refs, b.Role)
		}
	}
	return refs, nil
}

// UpdateTrustPolicy replaces the act-as members on the service account.
func (p *Platform) UpdateTrustPolicy(ctx context.Context, roleName string, trust deploy.TrustPolicy) error {
	return p.setTrust(ctx, p.accountEmail(roleName), trust)
}

func (p *Platform) setTrust(ctx context.Context, email string, trust deploy.TrustPolicy) error {
	resource := p.accountResource(email)

	policy, err := p.accounts.GetAccountPolicy(ctx, resource)
	if err != nil {
		return classify("set-trust", err)
	}

	var bindings []*iam.Binding
	for _, b := range policy.Bindings {
		if b.Role != actAsRole {
			bindings = append(bindings, b)
		}
	}
	if len(trust.Principals) > 0 {
		bindings = append(bindings, &iam.Binding{
			Role:    actAsRole,
			Members: trust.Principals,
		})
	}
	policy.Bindings = bindings

	if err := p.accounts.SetAccountPolicy(ctx, resource, policy); err != nil {
		return classify("set-trust", err)
	}
	return nil
}

func actAsMembers(policy *iam.Policy) []string {
	for _, b := range policy.Bindings {
		if b.Role == actAsRole {
			return b.Members
		}
	}
	return nil
}

func bindingExists(bindings []*cloudresourcemanager.Binding, role, member string) bool {
	for _, b := range bindings {
		if b.Role == role && slices.Contains(b.Members, member) {
			return true
		}
	}
	return false
}
