// Package config loads the adapter's configuration from YAML files and
// the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v2"
)

// Configuration represents the complete application configuration.
type Configuration struct {
	Global  GlobalConfig  `yaml:"global"`
	Mount   MountConfig   `yaml:"mount"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// GlobalConfig represents global application settings.
type GlobalConfig struct {
	LogLevel string `yaml:"log_level"`
	Debug    bool   `yaml:"debug"`
}

// MountConfig represents mount behavior settings. UID and GID of -1
// mean "use the invoking process identity".
type MountConfig struct {
	FSName     string `yaml:"fsname"`
	Subtype    string `yaml:"subtype"`
	ReadOnly   bool   `yaml:"read_only"`
	AllowOther bool   `yaml:"allow_other"`
	UID        int    `yaml:"uid"`
	GID        int    `yaml:"gid"`
}

// MetricsConfig represents metrics endpoint settings.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Port      int    `yaml:"port"`
	Path      string `yaml:"path"`
	Namespace string `yaml:"namespace"`
}

// NewDefault returns a configuration with sensible defaults.
func NewDefault() *Configuration {
	return &Configuration{
		Global: GlobalConfig{
			LogLevel: "INFO",
		},
		Mount: MountConfig{
			FSName:  "fusevfs",
			Subtype: "vfs",
			UID:     -1,
			GID:     -1,
		},
		Metrics: MetricsConfig{
			Enabled:   false,
			Port:      8080,
			Path:      "/metrics",
			Namespace: "fusevfs",
		},
	}
}

// LoadFromFile loads configuration from a YAML file.
func (c *Configuration) LoadFromFile(filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

// LoadFromEnv loads configuration from environment variables.
func (c *Configuration) LoadFromEnv() error {
	if val := os.Getenv("FUSEVFS_LOG_LEVEL"); val != "" {
		c.Global.LogLevel = val
	}
	if val := os.Getenv("FUSEVFS_DEBUG"); val != "" {
		c.Global.Debug = strings.ToLower(val) == "true"
	}
	if val := os.Getenv("FUSEVFS_FSNAME"); val != "" {
		c.Mount.FSName = val
	}
	if val := os.Getenv("FUSEVFS_READ_ONLY"); val != "" {
		c.Mount.ReadOnly = strings.ToLower(val) == "true"
	}
	if val := os.Getenv("FUSEVFS_ALLOW_OTHER"); val != "" {
		c.Mount.AllowOther = strings.ToLower(val) == "true"
	}
	if val := os.Getenv("FUSEVFS_METRICS_ENABLED"); val != "" {
		c.Metrics.Enabled = strings.ToLower(val) == "true"
	}
	if val := os.Getenv("FUSEVFS_METRICS_PORT"); val != "" {
		if port, err := strconv.Atoi(val); err == nil {
			c.Metrics.Port = port
		}
	}
	return nil
}

// Validate validates the configuration.
func (c *Configuration) Validate() error {
	validLogLevels := []string{"DEBUG", "INFO", "WARN", "ERROR"}
	logLevelValid := false
	for _, level := range validLogLevels {
		if c.Global.LogLevel == level {
			logLevelValid = true
			break
		}
	}
	if !logLevelValid {
		return fmt.Errorf("invalid log_level: %s (must be one of: %s)",
			c.Global.LogLevel, strings.Join(validLogLevels, ", "))
	}

	if c.Mount.FSName == "" {
		return fmt.Errorf("fsname cannot be empty")
	}

	if c.Metrics.Enabled {
		if c.Metrics.Port <= 0 || c.Metrics.Port > 65535 {
			return fmt.Errorf("invalid metrics port: %d", c.Metrics.Port)
		}
		if !strings.HasPrefix(c.Metrics.Path, "/") {
			return fmt.Errorf("metrics path must start with /: %s", c.Metrics.Path)
		}
	}

	return nil
}
