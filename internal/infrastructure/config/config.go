package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"virtnic-agent/internal/domain/errors"
	"virtnic-agent/internal/domain/interfaces"
	"virtnic-agent/internal/domain/services"

	"gopkg.in/yaml.v3"
)

// Config is a struct that holds application configuration
type Config struct {
	Libvirt LibvirtConfig
	Agent   AgentConfig
	Health  HealthConfig
	OUI     OUIConfig
}

// LibvirtConfig is a struct that holds libvirt connection configuration
type LibvirtConfig struct {
	Socket      string
	DialTimeout time.Duration
}

// AgentConfig is a struct that holds agent configuration
type AgentConfig struct {
	PollInterval time.Duration
	Strategy     string
	Backoff      BackoffConfig
}

// BackoffConfig is a struct that holds exponential backoff configuration
type BackoffConfig struct {
	MaxInterval time.Duration
	Multiplier  float64
}

// HealthConfig is a struct that holds health check configuration
type HealthConfig struct {
	Port string
}

// OUIConfig holds the driver-to-OUI-prefix table used for MAC synthesis.
// Prefixes maps lower-cased driver types to "xx:xx:xx" prefixes; the
// built-in table can be extended via an optional YAML file.
type OUIConfig struct {
	ConfigPath string
	Prefixes   map[string]string
}

// Polling strategy names accepted by AGENT_POLL_STRATEGY
const (
	StrategyFixed    = "fixed"
	StrategyBackoff  = "backoff"
	StrategyAdaptive = "adaptive"
)

// ConfigLoader is an interface for loading configuration
type ConfigLoader interface {
	Load() (*Config, error)
}

// EnvironmentConfigLoader is an implementation that loads configuration
// from environment variables plus an optional OUI table file
type EnvironmentConfigLoader struct {
	fileSystem interfaces.FileSystem
}

// NewEnvironmentConfigLoader creates a new EnvironmentConfigLoader
func NewEnvironmentConfigLoader(fs interfaces.FileSystem) ConfigLoader {
	return &EnvironmentConfigLoader{fileSystem: fs}
}

// Load loads configuration from environment variables
func (l *EnvironmentConfigLoader) Load() (*Config, error) {
	config := &Config{
		Libvirt: LibvirtConfig{
			Socket:      getEnvOrDefault("LIBVIRT_SOCKET", "/var/run/libvirt/libvirt-sock"),
			DialTimeout: getEnvDurationOrDefault("LIBVIRT_DIAL_TIMEOUT", 2*time.Second),
		},
		Agent: AgentConfig{
			PollInterval: getEnvDurationOrDefault("POLL_INTERVAL", 30*time.Second),
			Strategy:     getEnvOrDefault("AGENT_POLL_STRATEGY", StrategyFixed),
			Backoff: BackoffConfig{
				MaxInterval: getEnvDurationOrDefault("BACKOFF_MAX_INTERVAL", 5*time.Minute),
				Multiplier:  getEnvFloatOrDefault("BACKOFF_MULTIPLIER", 2.0),
			},
		},
		Health: HealthConfig{
			Port: getEnvOrDefault("HEALTH_PORT", "8080"),
		},
		OUI: OUIConfig{
			ConfigPath: os.Getenv("OUI_CONFIG"),
			Prefixes:   services.DefaultOUIPrefixes(),
		},
	}

	if err := l.loadOUITable(config); err != nil {
		return nil, err
	}

	// Validate configuration
	if err := l.validate(config); err != nil {
		return nil, err
	}

	return config, nil
}

// loadOUITable merges driver prefix overrides from the optional YAML file
// into the built-in table
func (l *EnvironmentConfigLoader) loadOUITable(config *Config) error {
	path := config.OUI.ConfigPath
	if path == "" {
		return nil
	}

	data, err := l.fileSystem.ReadFile(path)
	if err != nil {
		return errors.NewSystemError(
			fmt.Sprintf("failed to read OUI table file %s", path), err)
	}

	overrides := map[string]string{}
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return errors.NewValidationError(
			fmt.Sprintf("failed to parse OUI table file %s", path), err)
	}

	for driver, prefix := range overrides {
		config.OUI.Prefixes[driver] = prefix
	}
	return nil
}

// validate validates the configuration
func (l *EnvironmentConfigLoader) validate(config *Config) error {
	// Validate libvirt configuration
	if config.Libvirt.Socket == "" {
		return errors.NewValidationError("libvirt socket path not configured", nil)
	}
	if config.Libvirt.DialTimeout <= 0 {
		return errors.NewValidationError("invalid libvirt dial timeout", nil)
	}

	// Validate agent configuration
	if config.Agent.PollInterval <= 0 {
		return errors.NewValidationError("invalid polling interval", nil)
	}
	switch config.Agent.Strategy {
	case StrategyFixed, StrategyBackoff, StrategyAdaptive:
	default:
		return errors.NewValidationError(
			fmt.Sprintf("unknown polling strategy %q", config.Agent.Strategy), nil)
	}

	// Validate health check configuration
	if config.Health.Port == "" {
		return errors.NewValidationError("health check port not configured", nil)
	}

	// Validate OUI prefix table
	for driver, prefix := range config.OUI.Prefixes {
		if _, err := services.ParseOUIPrefix(prefix); err != nil {
			return errors.NewValidationError(
				fmt.Sprintf("invalid OUI prefix for driver %q", driver), err)
		}
	}

	return nil
}

// Environment variable helper functions

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
