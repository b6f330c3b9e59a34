package deploy

import "context"

// RoleKind distinguishes the two trust roles a service needs.
type RoleKind string

const (
	// RoleExecution is the identity the running container operates under.
	RoleExecution RoleKind = "execution"
	// RoleImagePull is the identity the platform assumes to retrieve the
	// image from a private registry.
	RoleImagePull RoleKind = "image-pull"
)

// ServiceAPI is the service surface of a runtime platform.
type ServiceAPI interface {
	// FindService looks up a service by exact, case-sensitive logical name.
	// It returns an empty identifier when no match exists; absence is a
	// normal result, not an error.
	FindService(ctx context.Context, name string) (string, error)
	// CreateService creates the service with the full desired payload.
	CreateService(ctx context.Context, desired *ServiceDescriptor, roles ResolvedRoles) (*ServiceState, error)
	// UpdateService merge-replaces image, port, health check, and env in a
	// single call against an existing service. The logical name is immutable
	// post-creation and is not part of the update payload.
	UpdateService(ctx context.Context, id string, desired *ServiceDescriptor, roles ResolvedRoles) (*ServiceState, error)
	// DeleteService issues deletion of the identified service.
	DeleteService(ctx context.Context, id string) error
	// DescribeService fetches current status. It returns a not-found error
	// once the service is fully gone.
	DescribeService(ctx context.Context, id string) (*ServiceState, error)
}

// RoleAPI is the trust-role surface of a runtime platform.
type RoleAPI interface {
	// GetRole fetches a role by name, returning a not-found error if absent.
	GetRole(ctx context.Context, name string) (*RoleDescriptor, error)
	// CreateRole creates the role with the supplied trust policy.
	CreateRole(ctx context.Context, name string, trust TrustPolicy) (*RoleDescriptor, error)
	// AttachPolicy attaches one permission policy to the role.
	AttachPolicy(ctx context.Context, roleName, policyRef string) error
	// ListAttachedPolicies returns the policy refs currently attached.
	ListAttachedPolicies(ctx context.Context, roleName string) ([]string, error)
	// UpdateTrustPolicy replaces the trust policy of an existing role.
	UpdateTrustPolicy(ctx context.Context, roleName string, trust TrustPolicy) error
}

// RuntimePlatform is the capability interface a managed container runtime
// must provide. The engine is written once against it; the apprunner and
// cloudrun packages implement it.
type RuntimePlatform interface {
	ServiceAPI
	RoleAPI

	// Name identifies the platform for logs and errors.
	Name() string
	// TrustPolicyFor returns the platform principals that must be able to
	// assume a role of the given kind.
	TrustPolicyFor(kind RoleKind) TrustPolicy
	// DefaultPolicyRefs returns the permission policies a role of the given
	// kind needs on this platform.
	DefaultPolicyRefs(kind RoleKind) []string
}
