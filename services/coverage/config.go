// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package coverage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/covbuddy/services/coverage/telemetry"
)

// WatchConfig configures the export-directory watcher.
type WatchConfig struct {
	// Dir is the directory watched for new or changed exports.
	Dir string `json:"dir" yaml:"dir"`

	// Matrix is the run matrix re-ingested when the directory settles.
	Matrix string `json:"matrix" yaml:"matrix"`

	// Debounce is how long the directory must stay quiet before a batch
	// is delivered.
	Debounce time.Duration `json:"debounce" yaml:"debounce"`
}

// ServiceConfig configures the coverage service.
type ServiceConfig struct {
	// Port is the HTTP listen port for serve mode.
	Port int `json:"port" yaml:"port"`

	// StorePath is the Badger directory holding stored runs. Supports a
	// leading ~ for the user's home directory.
	StorePath string `json:"store_path" yaml:"store_path"`

	// InMemory keeps the store in memory; nothing survives the process.
	InMemory bool `json:"in_memory" yaml:"in_memory"`

	// Debug enables gin debug mode and verbose logging.
	Debug bool `json:"debug" yaml:"debug"`

	// Telemetry configures tracing and metrics.
	Telemetry telemetry.Config `json:"telemetry" yaml:"telemetry"`

	// Watch configures export-directory auto-ingest.
	Watch WatchConfig `json:"watch" yaml:"watch"`
}

// DefaultServiceConfig returns the standard configuration: local store
// under ~/.covbuddy/store, port 8742, telemetry defaults.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		Port:      8742,
		StorePath: "~/.covbuddy/store",
		Telemetry: telemetry.DefaultConfig(),
		Watch: WatchConfig{
			Debounce: 500 * time.Millisecond,
		},
	}
}

// LoadServiceConfig reads a YAML service configuration, filling unset
// fields from DefaultServiceConfig.
//
// # Inputs
//
//   - path: the YAML file to read
//
// # Outputs
//
//   - ServiceConfig: the merged configuration
//   - error: a wrapped read or decode error
func LoadServiceConfig(path string) (ServiceConfig, error) {
	cfg := DefaultServiceConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read service config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse service config %s: %w", path, err)
	}
	return cfg, nil
}

// ExpandedStorePath returns StorePath with a leading ~ expanded to the
// user's home directory.
func (c ServiceConfig) ExpandedStorePath() (string, error) {
	return expandHome(c.StorePath)
}

func expandHome(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
	}
	return path, nil
}
