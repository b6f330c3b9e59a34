package constants

import "time"

// DefaultPollInterval is the fixed interval between convergence polls.
const DefaultPollInterval = 10 * time.Second

// DefaultPollMaxAttempts caps convergence polling; with the default interval
// this allows roughly ten minutes for the platform to settle.
const DefaultPollMaxAttempts = 60

// DefaultDestroyInterval is the fixed interval between deletion polls.
const DefaultDestroyInterval = 10 * time.Second

// DefaultDestroyTimeout bounds how long a destroy waits for the service to
// disappear before reporting a timed-out teardown.
const DefaultDestroyTimeout = 10 * time.Minute

// DefaultHealthCheckInterval is the health check probe interval.
const DefaultHealthCheckInterval = 10 * time.Second

// DefaultHealthCheckTimeout is the per-probe timeout.
const DefaultHealthCheckTimeout = 5 * time.Second

// DefaultLogsWindow is how far back `shipway logs` looks when --since is not given.
const DefaultLogsWindow = 15 * time.Minute

// TestContextTimeout is the timeout for test contexts.
const TestContextTimeout = 5 * time.Second
