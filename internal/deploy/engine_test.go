package deploy

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDeployScenario walks the full deploy path: an absent service is
// created, then polled through PENDING, PENDING, RUNNING to convergence.
func TestDeployScenario(t *testing.T) {
	m := &mockPlatform{}
	healthyRoleAPI(m)

	statuses := []string{"PENDING", "PENDING", "RUNNING"}
	describes := 0
	m.findServiceFunc = func(context.Context, string) (string, error) { return "", nil }
	m.createServiceFunc = func(context.Context, *ServiceDescriptor, ResolvedRoles) (*ServiceState, error) {
		return &ServiceState{ID: "svc-id-x", Status: "PENDING"}, nil
	}
	m.describeServiceFunc = func(_ context.Context, id string) (*ServiceState, error) {
		assert.Equal(t, "svc-id-x", id)
		status := statuses[describes]
		describes++
		return &ServiceState{ID: id, Status: status, URL: "https://svc-a.example.com"}, nil
	}

	r := NewReconciler(m, testLogger())
	result, err := r.Reconcile(context.Background(), desiredService())
	require.NoError(t, err)
	require.Equal(t, OutcomeCreated, result.Outcome)
	require.Equal(t, "svc-id-x", result.ServiceID)

	p := NewPoller(m, testLogger())
	outcome := p.AwaitState(context.Background(), result.ServiceID, "RUNNING", 5, time.Millisecond)

	assert.Equal(t, Converged, outcome.Result)
	assert.Equal(t, "RUNNING", outcome.LastStatus)
	assert.Equal(t, 3, outcome.Attempts)
}
