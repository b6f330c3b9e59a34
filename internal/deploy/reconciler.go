package deploy

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	apperrors "github.com/shipway/shipway/internal/errors"
)

// Reconciler compares desired configuration to observed platform state and
// issues the minimal create or update call to close the gap.
type Reconciler struct {
	platform RuntimePlatform
	roles    *Provisioner
	logger   *slog.Logger
}

// NewReconciler creates a Reconciler for the given platform.
func NewReconciler(platform RuntimePlatform, log *slog.Logger) *Reconciler {
	return &Reconciler{
		platform: platform,
		roles:    NewProvisioner(platform, log),
		logger:   log,
	}
}

// Roles exposes the provisioner, for explicit trust repair.
func (r *Reconciler) Roles() *Provisioner {
	return r.roles
}

// EnsureRoles resolves the execution and image-pull roles the payload
// requires. The two roles are independent of each other and are provisioned
// concurrently; everything downstream of them stays strictly sequential.
func (r *Reconciler) EnsureRoles(ctx context.Context, desired *ServiceDescriptor) (ResolvedRoles, error) {
	var resolved ResolvedRoles

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		refs := append(r.platform.DefaultPolicyRefs(RoleExecution), desired.ExecutionPolicyRefs...)
		role, err := r.roles.EnsureRole(gctx, desired.ExecutionRoleName,
			r.platform.TrustPolicyFor(RoleExecution), refs)
		if err != nil {
			return fmt.Errorf("execution role: %w", err)
		}
		resolved.Execution = role
		return nil
	})
	g.Go(func() error {
		role, err := r.roles.EnsureRole(gctx, desired.ImagePullRoleName,
			r.platform.TrustPolicyFor(RoleImagePull),
			r.platform.DefaultPolicyRefs(RoleImagePull))
		if err != nil {
			return fmt.Errorf("image pull role: %w", err)
		}
		resolved.ImagePull = role
		return nil
	})
	if err := g.Wait(); err != nil {
		return ResolvedRoles{}, err
	}

	return resolved, nil
}

// Reconcile brings the service to the desired state. It validates the
// descriptor, resolves both roles, locates the service by name, and issues a
// create (absent) or a single merge-replace update (present). It never issues
// both. Transient platform errors are surfaced, not retried; retrying the
// whole reconcile is the invoking pipeline's decision.
func (r *Reconciler) Reconcile(ctx context.Context, desired *ServiceDescriptor) (*ReconciliationResult, error) {
	if err := desired.Validate(); err != nil {
		return nil, err
	}

	roles, err := r.EnsureRoles(ctx, desired)
	if err != nil {
		return nil, err
	}
	if roles.Execution == nil || roles.ImagePull == nil || roles.Execution.ID == "" || roles.ImagePull.ID == "" {
		// Both identifiers are mandatory payload fields; never send a
		// payload with an unresolved role.
		return nil, apperrors.NewConfiguration("role identifiers unresolved after provisioning", nil)
	}

	id, err := r.platform.FindService(ctx, desired.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to locate service %s: %w", desired.Name, err)
	}

	if id == "" {
		state, createErr := r.platform.CreateService(ctx, desired, roles)
		if createErr != nil {
			return nil, fmt.Errorf("failed to create service %s: %w", desired.Name, createErr)
		}
		r.logger.Info("service created",
			"service", desired.Name, "id", state.ID, "platform", r.platform.Name())
		return &ReconciliationResult{Outcome: OutcomeCreated, ServiceID: state.ID, URL: state.URL}, nil
	}

	state, updateErr := r.platform.UpdateService(ctx, id, desired, roles)
	if updateErr != nil {
		return nil, fmt.Errorf("failed to update service %s: %w", desired.Name, updateErr)
	}
	r.logger.Info("service updated",
		"service", desired.Name, "id", state.ID, "platform", r.platform.Name())
	return &ReconciliationResult{Outcome: OutcomeUpdated, ServiceID: state.ID, URL: state.URL}, nil
}
