package deploy

import (
	"context"
	"errors"
	"log/slog"
)

// mockPlatform is a manual mock of RuntimePlatform with func fields, so each
// test overrides only what it exercises.
type mockPlatform struct {
	findServiceFunc     func(ctx context.Context, name string) (string, error)
	createServiceFunc   func(ctx context.Context, desired *ServiceDescriptor, roles ResolvedRoles) (*ServiceState, error)
	updateServiceFunc   func(ctx context.Context, id string, desired *ServiceDescriptor, roles ResolvedRoles) (*ServiceState, error)
	deleteServiceFunc   func(ctx context.Context, id string) error
	describeServiceFunc func(ctx context.Context, id string) (*ServiceState, error)

	getRoleFunc              func(ctx context.Context, name string) (*RoleDescriptor, error)
	createRoleFunc           func(ctx context.Context, name string, trust TrustPolicy) (*RoleDescriptor, error)
	attachPolicyFunc         func(ctx context.Context, roleName, policyRef string) error
	listAttachedPoliciesFunc func(ctx context.Context, roleName string) ([]string, error)
	updateTrustPolicyFunc    func(ctx context.Context, roleName string, trust TrustPolicy) error
}

func (m *mockPlatform) FindService(ctx context.Context, name string) (string, error) {
	if m.findServiceFunc != nil {
		return m.findServiceFunc(ctx, name)
	}
	return "", errors.New("not implemented")
}

func (m *mockPlatform) CreateService(
	ctx context.Context, desired *ServiceDescriptor, roles ResolvedRoles,
) (*ServiceState, error) {
	if m.createServiceFunc != nil {
		return m.createServiceFunc(ctx, desired, roles)
	}
	return nil, errors.New("not implemented")
}

func (m *mockPlatform) UpdateService(
	ctx context.Context, id string, desired *ServiceDescriptor, roles ResolvedRoles,
) (*ServiceState, error) {
	if m.updateServiceFunc != nil {
		return m.updateServiceFunc(ctx, id, desired, roles)
	}
	return nil, errors.New("not implemented")
}

func (m *mockPlatform) DeleteService(ctx context.Context, id string) error {
	if m.deleteServiceFunc != nil {
		return m.deleteServiceFunc(ctx, id)
	}
	return errors.New("not implemented")
}

func (m *mockPlatform) DescribeService(ctx context.Context, id string) (*ServiceState, error) {
	if m.describeServiceFunc != nil {
		return m.describeServiceFunc(ctx, id)
	}
	return nil, errors.New("not implemented")
}

func (m *mockPlatform) GetRole(ctx context.Context, name string) (*RoleDescriptor, error) {
	if m.getRoleFunc != nil {
		return m.getRoleFunc(ctx, name)
	}
	return nil, errors.New("not implemented")
}

func (m *mockPlatform) CreateRole(ctx context.Context, name string, trust TrustPolicy) (*RoleDescriptor, error) {
	if m.createRoleFunc != nil {
		return m.createRoleFunc(ctx, name, trust)
	}
	return nil, errors.New("not implemented")
}

func (m *mockPlatform) AttachPolicy(ctx context.Context, roleName, policyRef string) error {
	if m.attachPolicyFunc != nil {
		return m.attachPolicyFunc(ctx, roleName, policyRef)
	}
	return errors.New("not implemented")
}

func (m *mockPlatform) ListAttachedPolicies(ctx context.Context, roleName string) ([]string, error) {
	if m.listAttachedPoliciesFunc != nil {
		return m.listAttachedPoliciesFunc(ctx, roleName)
	}
	return nil, errors.New("not implemented")
}

func (m *mockPlatform) UpdateTrustPolicy(ctx context.Context, roleName string, trust TrustPolicy) error {
	if m.updateTrustPolicyFunc != nil {
		return m.updateTrustPolicyFunc(ctx, roleName, trust)
	}
	return errors.New("not implemented")
}

func (m *mockPlatform) Name() string { return "mock" }

func (m *mockPlatform) TrustPolicyFor(kind RoleKind) TrustPolicy {
	if kind == RoleImagePull {
		return TrustPolicy{Principals: []string{"pull.mock.example.com"}}
	}
	return TrustPolicy{Principals: []string{"run.mock.example.com"}}
}

func (m *mockPlatform) DefaultPolicyRefs(kind RoleKind) []string {
	if kind == RoleImagePull {
		return []string{"policy/registry-read"}
	}
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// healthyRoleAPI returns a mock whose role calls all succeed, for tests that
// exercise the service path.
func healthyRoleAPI(m *mockPlatform) {
	m.getRoleFunc = func(_ context.Context, name string) (*RoleDescriptor, error) {
		return &RoleDescriptor{Name: name, ID: "arn:mock:role/" + name}, nil
	}
	m.listAttachedPoliciesFunc = func(context.Context, string) ([]string, error) {
		return []string{"policy/registry-read"}, nil
	}
	m.attachPolicyFunc = func(context.Context, string, string) error { return nil }
}
