package constants

// Provider represents the cloud provider hosting the runtime platform.
type Provider string

const (
	// AWS targets AWS App Runner.
	AWS Provider = "aws"
	// GCP targets Google Cloud Run.
	GCP Provider = "gcp"
)

// Environment represents the execution environment (e.g., CLI, CI).
type Environment string

// Environment types for logger configuration.
const (
	Development Environment = "development"
	Production  Environment = "production"
	CLI         Environment = "cli"
)

// Normalized service statuses shared across providers. Each platform maps its
// native status strings onto these before they reach the engine.
const (
	StatusRunning      = "RUNNING"
	StatusInProgress   = "OPERATION_IN_PROGRESS"
	StatusCreateFailed = "CREATE_FAILED"
	StatusDeleteFailed = "DELETE_FAILED"
	StatusDeleted      = "DELETED"
	StatusPaused       = "PAUSED"
	StatusUnknown      = "UNKNOWN"
)
