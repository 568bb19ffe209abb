// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package diagnostics

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Names under the project root.
const (
	// StateDir holds everything the integration writes into a project.
	StateDir = ".api-diagnostics"

	// GeneratedDir holds generated middleware and interceptor code,
	// relative to StateDir.
	GeneratedDir = "generated"

	configFile = "config.yaml"
)

// AutoDetect is the framework value meaning "decide at setup time".
const AutoDetect = "auto-detect"

var configValidate = validator.New()

// Frameworks records which frameworks the integration targets. Either
// side may be empty when the project has no such half.
type Frameworks struct {
	Frontend string `yaml:"frontend,omitempty"`
	Backend  string `yaml:"backend,omitempty"`
}

// Targets records the files the integration injected wiring into, so
// removal does not depend on re-running detection.
type Targets struct {
	// FrontendEntry is relative to the project root, empty when no
	// frontend wiring was injected.
	FrontendEntry string `yaml:"frontend_entry,omitempty"`

	// BackendEntry is relative to the project root, empty when no
	// backend wiring was injected.
	BackendEntry string `yaml:"backend_entry,omitempty"`
}

// Config is the per-project integration state, stored at
// .api-diagnostics/config.yaml.
type Config struct {
	// Enabled is the monitoring toggle flipped by start and stop.
	Enabled bool `yaml:"enabled"`

	// LogLevel filters what the generated middleware records.
	LogLevel string `yaml:"log_level" validate:"required,oneof=DEBUG INFO WARNING ERROR"`

	// LogPath is where the project's API logs are read from, relative
	// to the project root unless absolute.
	LogPath string `yaml:"log_path" validate:"required"`

	Frameworks Frameworks `yaml:"frameworks"`
	Targets    Targets    `yaml:"targets,omitempty"`
}

// DefaultProjectConfig returns the config written by a fresh init.
func DefaultProjectConfig() *Config {
	return &Config{
		Enabled:  true,
		LogLevel: "ERROR",
		LogPath:  "./logs/api-diagnostics.log",
		Frameworks: Frameworks{
			Frontend: AutoDetect,
			Backend:  AutoDetect,
		},
	}
}

// Validate checks the config against its field constraints.
func (c *Config) Validate() error {
	if err := configValidate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// ConfigPath returns the config file location for a project root.
func ConfigPath(root string) string {
	return filepath.Join(root, StateDir, configFile)
}

// GeneratedPath returns the generated-code directory for a project root.
func GeneratedPath(root string) string {
	return filepath.Join(root, StateDir, GeneratedDir)
}

// LoadConfig reads and validates a project's config.
//
// Returns ErrNotInitialized when the config file does not exist.
func LoadConfig(root string) (*Config, error) {
	data, err := os.ReadFile(ConfigPath(root))
	if os.IsNotExist(err) {
		return nil, ErrNotInitialized
	}
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SaveConfig validates and writes a project's config, creating the state
// directory when needed.
func SaveConfig(root string, cfg *Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Join(root, StateDir), 0755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.WriteFile(ConfigPath(root), data, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// ResolveLogPath makes the configured log path absolute against root.
func (c *Config) ResolveLogPath(root string) string {
	if filepath.IsAbs(c.LogPath) {
		return c.LogPath
	}
	return filepath.Join(root, c.LogPath)
}
