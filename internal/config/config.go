// Package config manages configuration for the shipway CLI.
// It uses Viper for unified configuration management from files and
// environment variables. The loaded Config is the single source of desired
// state: no other component reads ambient environment directly, which keeps
// every component unit-testable with synthetic inputs.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/shipway/shipway/internal/constants"
)

// Config is the declared desired state for one environment: the service
// identity, its runtime shape, the trust roles it needs, and the engine
// tuning knobs. It supports loading from YAML files and environment
// variables with the SHIPWAY_ prefix.
type Config struct {
	// Target platform
	Provider string `mapstructure:"provider" yaml:"provider" validate:"omitempty,oneof=aws gcp"`
	Region   string `mapstructure:"region" yaml:"region"`
	Project  string `mapstructure:"project" yaml:"project,omitempty" validate:"required_if=Provider gcp"`

	// Service identity and shape
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	Image       string `mapstructure:"image" yaml:"image"`
	Port        int32  `mapstructure:"port" yaml:"port" validate:"omitempty,gt=0,lte=65535"`

	// Health check
	HealthCheckProtocol string        `mapstructure:"health_check_protocol" yaml:"health_check_protocol" validate:"omitempty,oneof=TCP HTTP"`
	HealthCheckPath     string        `mapstructure:"health_check_path" yaml:"health_check_path,omitempty"`
	HealthCheckInterval time.Duration `mapstructure:"health_check_interval" yaml:"health_check_interval"`
	HealthCheckTimeout  time.Duration `mapstructure:"health_check_timeout" yaml:"health_check_timeout"`
	HealthyThreshold    int32         `mapstructure:"healthy_threshold" yaml:"healthy_threshold"`
	UnhealthyThreshold  int32         `mapstructure:"unhealthy_threshold" yaml:"unhealthy_threshold"`

	// Trust roles (created if absent)
	ExecutionRole     string   `mapstructure:"execution_role" yaml:"execution_role"`
	ImagePullRole     string   `mapstructure:"image_pull_role" yaml:"image_pull_role"`
	ExecutionPolicies []string `mapstructure:"execution_policies" yaml:"execution_policies,omitempty"`

	// Environment forwarding: explicit allow-list of variable names whose
	// values are sourced from the invoking environment (or hydrated from the
	// parameter store path below) and forwarded to the running service.
	EnvAllowList []string `mapstructure:"env_allow_list" yaml:"env_allow_list,omitempty"`
	SecretsPath  string   `mapstructure:"secrets_path" yaml:"secrets_path,omitempty"`

	// Engine tuning
	PollInterval    time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	PollMaxAttempts int           `mapstructure:"poll_max_attempts" yaml:"poll_max_attempts" validate:"omitempty,gt=0"`
	DestroyInterval time.Duration `mapstructure:"destroy_interval" yaml:"destroy_interval"`
	DestroyTimeout  time.Duration `mapstructure:"destroy_timeout" yaml:"destroy_timeout"`

	LogLevel string `mapstructure:"log_level" yaml:"log_level,omitempty"`
}

var validate = validator.New()

// Load loads the configuration using Viper.
// It reads ~/.shipway/config.yaml if present (or the file given via
// SHIPWAY_CONFIG), then applies SHIPWAY_-prefixed environment overrides.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if err := loadConfigFile(v); err != nil {
		// Config file not found is acceptable: everything can come from env.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error loading config file: %w", err)
		}
	}

	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// Save writes the configuration to the global config file as YAML,
// creating the directory if needed.
func Save(cfg *Config) (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("error resolving home directory: %w", err)
	}

	dir := constants.ConfigDirPath(homeDir)
	if err = os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("error marshaling config: %w", err)
	}

	path := constants.ConfigFilePath(homeDir)
	if err = os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("error writing config file: %w", err)
	}

	return path, nil
}

// loadConfigFile locates and reads the YAML config file.
func loadConfigFile(v *viper.Viper) error {
	if explicit := os.Getenv(constants.EnvPrefix + "_CONFIG"); explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return viper.ConfigFileNotFoundError{}
		}
		v.SetConfigFile(filepath.Clean(explicit))
		return v.ReadInConfig()
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return viper.ConfigFileNotFoundError{}
	}

	v.SetConfigName(strings.TrimSuffix(constants.ConfigFileName, ".yaml"))
	v.SetConfigType("yaml")
	v.AddConfigPath(constants.ConfigDirPath(homeDir))
	v.AddConfigPath(".")

	return v.ReadInConfig()
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("provider", string(constants.AWS))
	v.SetDefault("health_check_protocol", "TCP")
	v.SetDefault("health_check_interval", constants.DefaultHealthCheckInterval)
	v.SetDefault("health_check_timeout", constants.DefaultHealthCheckTimeout)
	v.SetDefault("healthy_threshold", 1)
	v.SetDefault("unhealthy_threshold", 5)
	v.SetDefault("poll_interval", constants.DefaultPollInterval)
	v.SetDefault("poll_max_attempts", constants.DefaultPollMaxAttempts)
	v.SetDefault("destroy_interval", constants.DefaultDestroyInterval)
	v.SetDefault("destroy_timeout", constants.DefaultDestroyTimeout)
	v.SetDefault("log_level", "INFO")
}

// bindEnvVars binds each config key explicitly so AutomaticEnv resolution is
// deterministic regardless of which keys appear in the config file.
func bindEnvVars(v *viper.Viper) {
	keys := []string{
		"provider", "region", "project",
		"service_name", "image", "port",
		"health_check_protocol", "health_check_path", "health_check_interval",
		"health_check_timeout", "healthy_threshold", "unhealthy_threshold",
		"execution_role", "image_pull_role", "execution_policies",
		"env_allow_list", "secrets_path",
		"poll_interval", "poll_max_attempts", "destroy_interval", "destroy_timeout",
		"log_level",
	}
	for _, key := range keys {
		_ = v.BindEnv(key)
	}
}
