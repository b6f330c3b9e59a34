package deploy

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	apperrors "github.com/shipway/shipway/internal/errors"
)

// Provisioner ensures trust roles exist with the right trust and permission
// policies. Creation is idempotent: an existing role is reused unchanged, and
// a retry after a partial create-then-attach failure attaches only the
// missing policies instead of attempting re-creation.
type Provisioner struct {
	api    RoleAPI
	logger *slog.Logger
}

// NewProvisioner creates a Provisioner over the platform's role API.
func NewProvisioner(api RoleAPI, log *slog.Logger) *Provisioner {
	return &Provisioner{api: api, logger: log}
}

// EnsureRole fetches the named role, creating it with the supplied trust
// policy if absent, then attaches any policy refs not already attached.
// Create and attach are not atomic on any platform; if attachment fails the
// role is left partially provisioned and the returned error says so, making
// the next EnsureRole call self-healing.
func (p *Provisioner) EnsureRole(
	ctx context.Context,
	name string,
	trust TrustPolicy,
	policyRefs []string,
) (*RoleDescriptor, error) {
	role, err := p.api.GetRole(ctx, name)
	switch {
	case err == nil:
		p.logger.Debug("role exists, reusing", "role", name, "id", role.ID)
	case apperrors.IsNotFound(err):
		role, err = p.createRole(ctx, name, trust)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("failed to fetch role %s: %w", name, err)
	}

	if err = p.attachMissing(ctx, role, policyRefs); err != nil {
		return nil, err
	}

	return role, nil
}

// RepairTrust replaces the trust policy of an existing role. This is a
// distinct, explicit operation; EnsureRole never rewrites trust on a role it
// found already present.
func (p *Provisioner) RepairTrust(ctx context.Context, name string, trust TrustPolicy) error {
	if err := p.api.UpdateTrustPolicy(ctx, name, trust); err != nil {
		return fmt.Errorf("failed to repair trust policy of role %s: %w", name, err)
	}
	p.logger.Info("trust policy repaired", "role", name, "principals", trust.Principals)
	return nil
}

func (p *Provisioner) createRole(ctx context.Context, name string, trust TrustPolicy) (*RoleDescriptor, error) {
	role, err := p.api.CreateRole(ctx, name, trust)
	if err == nil {
		p.logger.Info("role created", "role", name, "id", role.ID)
		return role, nil
	}

	// A concurrent invocation may have created the role between our lookup
	// and create; the platform enforces name uniqueness, so re-fetch.
	existing, getErr := p.api.GetRole(ctx, name)
	if getErr == nil {
		p.logger.Debug("role created concurrently, reusing", "role", name)
		return existing, nil
	}

	return nil, fmt.Errorf("failed to create role %s: %w", name, err)
}

func (p *Provisioner) attachMissing(ctx context.Context, role *RoleDescriptor, policyRefs []string) error {
	if len(policyRefs) == 0 {
		return nil
	}

	attached, err := p.api.ListAttachedPolicies(ctx, role.Name)
	if err != nil {
		return fmt.Errorf("failed to list policies of role %s: %w", role.Name, err)
	}
	role.AttachedPolicies = attached

	for _, ref := range policyRefs {
		if slices.Contains(attached, ref) {
			continue
		}
		if err = p.api.AttachPolicy(ctx, role.Name, ref); err != nil {
			return apperrors.NewPartialProvisioning(role.Name, ref, err)
		}
		p.logger.Debug("policy attached", "role", role.Name, "policy", ref)
		role.AttachedPolicies = append(role.AttachedPolicies, ref)
	}

	return nil
}
