// Package deploy implements the idempotent reconcile-and-converge engine.
// It decides whether a runtime service exists, creates or updates it to match
// a desired descriptor, provisions the trust roles the platform requires,
// polls for convergence, and provides a guarded destroy path. All algorithms
// are written once against the RuntimePlatform interface; provider specifics
// live in the apprunner and cloudrun subpackages.
package deploy

import (
	"fmt"
	"strings"
	"time"

	apperrors "github.com/shipway/shipway/internal/errors"
)

// HealthCheckProtocol selects how the platform probes the service.
type HealthCheckProtocol string

const (
	// HealthCheckTCP probes the listen port.
	HealthCheckTCP HealthCheckProtocol = "TCP"
	// HealthCheckHTTP probes an HTTP path.
	HealthCheckHTTP HealthCheckProtocol = "HTTP"
)

// HealthCheckConfig describes the platform health check.
// Path is meaningful only for HTTP and is ignored for TCP.
type HealthCheckConfig struct {
	Protocol           HealthCheckProtocol
	Path               string
	Interval           time.Duration
	Timeout            time.Duration
	HealthyThreshold   int32
	UnhealthyThreshold int32
}

// Equal reports whether two health check configs are equivalent.
// For TCP checks the path carries no meaning and is excluded from the
// comparison.
func (c HealthCheckConfig) Equal(other HealthCheckConfig) bool {
	if c.Protocol != other.Protocol ||
		c.Interval != other.Interval ||
		c.Timeout != other.Timeout ||
		c.HealthyThreshold != other.HealthyThreshold ||
		c.UnhealthyThreshold != other.UnhealthyThreshold {
		return false
	}
	if c.Protocol == HealthCheckTCP {
		return true
	}
	return c.Path == other.Path
}

// ServiceDescriptor is the desired state for one runtime service. It is
// constructed fresh per invocation from configuration and never persisted by
// the engine; the platform's own record is the only durable state. The
// logical name is stable across create/update cycles and is the sole lookup
// key.
type ServiceDescriptor struct {
	Name        string
	Image       string
	Port        int32
	HealthCheck HealthCheckConfig

	// Env holds the already-merged environment forwarded to the service.
	Env map[string]string

	// ExecutionRoleName identifies the role the running container assumes.
	ExecutionRoleName string
	// ImagePullRoleName identifies the role the platform assumes to pull the
	// image from a private registry.
	ImagePullRoleName string
	// ExecutionPolicyRefs are additional permission policies attached to the
	// execution role beyond the platform defaults.
	ExecutionPolicyRefs []string
}

// Validate checks the descriptor before any network call. Both role names
// are mandatory: reconciliation fails fast rather than sending a payload with
// unresolved role identifiers.
func (d *ServiceDescriptor) Validate() error {
	switch {
	case d.Name == "":
		return apperrors.NewConfiguration("service name is required", nil)
	case d.Image == "":
		return apperrors.NewConfiguration("image reference is required", nil)
	case !strings.Contains(d.Image, "/"):
		return apperrors.NewConfiguration(
			fmt.Sprintf("malformed image reference %q: expected registry/repository[:tag]", d.Image), nil)
	case d.Port <= 0:
		return apperrors.NewConfiguration("listen port is required", nil)
	case d.ExecutionRoleName == "":
		return apperrors.NewConfiguration("execution role name is required", nil)
	case d.ImagePullRoleName == "":
		return apperrors.NewConfiguration("image pull role name is required", nil)
	case d.HealthCheck.Protocol == HealthCheckHTTP && d.HealthCheck.Path == "":
		return apperrors.NewConfiguration("health check path is required for HTTP protocol", nil)
	}
	return nil
}

// TrustPolicy names the platform principals that may assume a role.
type TrustPolicy struct {
	Principals []string
}

// RoleDescriptor describes a provisioned trust role.
type RoleDescriptor struct {
	Name string
	// ID is the platform identifier (an ARN on AWS, a service account email
	// on GCP) bound into the service payload.
	ID               string
	Trust            TrustPolicy
	AttachedPolicies []string
}

// ResolvedRoles carries the two role identifiers the payload requires.
type ResolvedRoles struct {
	Execution *RoleDescriptor
	ImagePull *RoleDescriptor
}

// Outcome tags the result of a reconcile call.
type Outcome string

const (
	// OutcomeCreated means the service did not exist and was created.
	OutcomeCreated Outcome = "created"
	// OutcomeUpdated means an existing service was updated in place.
	OutcomeUpdated Outcome = "updated"
)

// ReconciliationResult is the outcome of one reconcile invocation.
type ReconciliationResult struct {
	Outcome   Outcome
	ServiceID string
	// URL is the public endpoint, once the platform reports it.
	URL string
}

// ConvergenceResult tags the outcome of convergence polling.
type ConvergenceResult string

const (
	// Converged means the observed status matched the target.
	Converged ConvergenceResult = "converged"
	// TimedOut means maxAttempts were exhausted without a match. The caller
	// decides whether that is fatal.
	TimedOut ConvergenceResult = "timed-out"
	// Failed means the platform reported a terminal failure status.
	Failed ConvergenceResult = "failed"
)

// ConvergenceOutcome reports how polling ended.
type ConvergenceOutcome struct {
	Result     ConvergenceResult
	LastStatus string
	Attempts   int
	// Aborted is set when external cancellation ended polling between
	// attempts.
	Aborted bool
}

// ServiceState is the platform's view of a service at one point in time.
type ServiceState struct {
	ID     string
	Status string
	URL    string
	// Failed marks statuses the platform considers terminal failures.
	Failed bool
}
