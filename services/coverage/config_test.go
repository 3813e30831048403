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
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultServiceConfig(t *testing.T) {
	cfg := DefaultServiceConfig()

	if cfg.Port != 8742 {
		t.Errorf("Port = %d, want 8742", cfg.Port)
	}
	if cfg.StorePath != "~/.covbuddy/store" {
		t.Errorf("StorePath = %q", cfg.StorePath)
	}
	if cfg.InMemory {
		t.Error("InMemory should default to false")
	}
	if cfg.Telemetry.ServiceName != "covbuddy" {
		t.Errorf("Telemetry.ServiceName = %q", cfg.Telemetry.ServiceName)
	}
}

func TestLoadServiceConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `port: 9000
store_path: /var/lib/covbuddy
debug: true
telemetry:
  trace_exporter: none
watch:
  dir: /exports
  matrix: /exports/matrix.yaml
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadServiceConfig(path)
	if err != nil {
		t.Fatalf("LoadServiceConfig() error = %v", err)
	}
	if cfg.Port != 9000 {
		t.Errorf("Port = %d, want 9000", cfg.Port)
	}
	if cfg.StorePath != "/var/lib/covbuddy" {
		t.Errorf("StorePath = %q", cfg.StorePath)
	}
	if !cfg.Debug {
		t.Error("Debug should be true")
	}
	if cfg.Telemetry.TraceExporter != "none" {
		t.Errorf("TraceExporter = %q, want none", cfg.Telemetry.TraceExporter)
	}
	// Unset fields keep defaults.
	if cfg.Telemetry.MetricExporter == "" {
		t.Error("MetricExporter should keep its default")
	}
	if cfg.Watch.Dir != "/exports" {
		t.Errorf("Watch.Dir = %q", cfg.Watch.Dir)
	}
}

func TestLoadServiceConfig_Missing(t *testing.T) {
	if _, err := LoadServiceConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("LoadServiceConfig() should fail for a missing file")
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}

	tests := []struct {
		in   string
		want string
	}{
		{"~/.covbuddy/store", filepath.Join(home, ".covbuddy", "store")},
		{"~", home},
		{"/absolute/path", "/absolute/path"},
		{"relative/path", "relative/path"},
	}
	for _, tt := range tests {
		got, err := expandHome(tt.in)
		if err != nil {
			t.Errorf("expandHome(%q) error = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("expandHome(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
