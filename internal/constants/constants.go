// Package constants defines global constants used throughout shipway.
// It includes project identity, provider tags, and configuration paths.
package constants

var version = "0.0.0-development" // Updated by CI/CD pipeline at build time

// GetVersion returns the current version of shipway.
func GetVersion() *string {
	return &version
}

// ProjectName is the name of the CLI tool and application
const ProjectName = "shipway"

// ConfigDirName is the name of the configuration directory in the user's home directory
const ConfigDirName = ".shipway"

// ConfigFileName is the name of the global configuration file
const ConfigFileName = "config.yaml"

// EnvPrefix is the prefix for environment variable configuration overrides.
const EnvPrefix = "SHIPWAY"

// TeardownToken is the literal an interactive operator must type to confirm
// a destroy. The match is exact and case-sensitive.
const TeardownToken = "DESTROY"

// ContextKey is the type for values stashed in command contexts.
type ContextKey string

const (
	// StartTimeCtxKey carries the command start time for elapsed reporting.
	StartTimeCtxKey ContextKey = "startTime"
	// ConfigCtxKey carries the loaded configuration.
	ConfigCtxKey ContextKey = "config"
)

// ConfigDirPath returns the full path to the global configuration directory.
func ConfigDirPath(homeDir string) string {
	return homeDir + "/" + ConfigDirName
}

// ConfigFilePath returns the full path to the global configuration file
func ConfigFilePath(homeDir string) string {
	return ConfigDirPath(homeDir) + "/" + ConfigFileName
}
