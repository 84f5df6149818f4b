// Package config provides configuration loading and management for regconvert.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Output controls how converted transforms are written
	Output struct {
		// Precision is the number of decimals written to ITK and NiftyReg files.
		// A negative value writes the shortest exact representation.
		Precision int `yaml:"precision"`

		// FLIRTPrecision is the number of decimals written to FLIRT matrices
		FLIRTPrecision int `yaml:"flirtPrecision"`

		// EmbedRegAladin2D writes 2-D NiftyReg matrices as 4x4, the layout reg_aladin uses
		EmbedRegAladin2D bool `yaml:"embedRegAladin2D"`
	} `yaml:"output"`

	// Logging parameters
	Logging struct {
		// Verbose enables debug logging
		Verbose bool `yaml:"verbose"`
	} `yaml:"logging"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Output.Precision = -1
	cfg.Output.FLIRTPrecision = 6
	cfg.Output.EmbedRegAladin2D = true

	cfg.Logging.Verbose = false

	return cfg
}

// Validate checks values that would otherwise fail later during output
func (c *Config) Validate() error {
	if c.Output.Precision > 17 || c.Output.FLIRTPrecision > 17 {
		return fmt.Errorf("precision above 17 decimals is not meaningful for float64 values")
	}
	if c.Output.FLIRTPrecision < 0 {
		return fmt.Errorf("flirtPrecision must be non-negative, got %d", c.Output.FLIRTPrecision)
	}
	return nil
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath == "" {
		return cfg, nil
	}

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}
