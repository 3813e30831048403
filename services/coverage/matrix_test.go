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
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeMatrixFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	if err := os.WriteFile(filepath.Join(dir, "base.json"), testExport(0, 1), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "slow.json"), testExport(1, 0), 0o644); err != nil {
		t.Fatal(err)
	}

	matrix := `runs:
  - export: base.json
    label: base
    features: {}
  - export: slow.json
    features: { slow: true }
`
	path := filepath.Join(dir, "matrix.yaml")
	if err := os.WriteFile(path, []byte(matrix), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadMatrix(t *testing.T) {
	path := writeMatrixFixture(t)

	m, err := LoadMatrix(path)
	if err != nil {
		t.Fatalf("LoadMatrix() error = %v", err)
	}
	if len(m.Runs) != 2 {
		t.Fatalf("len(Runs) = %d, want 2", len(m.Runs))
	}
	if m.Runs[0].Label != "base" {
		t.Errorf("Runs[0].Label = %q, want base", m.Runs[0].Label)
	}
	if !m.Runs[1].Features["slow"] {
		t.Error("Runs[1] should enable slow")
	}
	if got := m.ResolveExport(m.Runs[0]); got != filepath.Join(filepath.Dir(path), "base.json") {
		t.Errorf("ResolveExport() = %q", got)
	}
}

func TestLoadMatrix_Invalid(t *testing.T) {
	dir := t.TempDir()

	write := func(name, content string) string {
		t.Helper()
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
		return path
	}

	t.Run("empty matrix", func(t *testing.T) {
		path := write("empty.yaml", "runs: []\n")
		if _, err := LoadMatrix(path); !errors.Is(err, ErrEmptyMatrix) {
			t.Errorf("LoadMatrix() error = %v, want %v", err, ErrEmptyMatrix)
		}
	})

	t.Run("missing export path", func(t *testing.T) {
		path := write("noexport.yaml", "runs:\n  - label: x\n")
		if _, err := LoadMatrix(path); err == nil {
			t.Error("LoadMatrix() should fail without an export path")
		}
	})

	t.Run("invalid feature name", func(t *testing.T) {
		path := write("badfeature.yaml", "runs:\n  - export: a.json\n    features: { BadName: true }\n")
		if _, err := LoadMatrix(path); !errors.Is(err, ErrInvalidFeatureName) {
			t.Errorf("LoadMatrix() error = %v, want %v", err, ErrInvalidFeatureName)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := LoadMatrix(filepath.Join(dir, "nope.yaml")); err == nil {
			t.Error("LoadMatrix() should fail for a missing file")
		}
	})
}

func TestService_IngestMatrix(t *testing.T) {
	svc := newTestService(t)
	path := writeMatrixFixture(t)

	responses, err := svc.IngestMatrix(context.Background(), path, 2)
	if err != nil {
		t.Fatalf("IngestMatrix() error = %v", err)
	}
	if len(responses) != 2 {
		t.Fatalf("len(responses) = %d, want 2", len(responses))
	}
	if responses[0].Label != "base" {
		t.Errorf("responses[0].Label = %q, want base", responses[0].Label)
	}
	if responses[1].Label != "slow.json" {
		t.Errorf("responses[1].Label = %q, want slow.json (export basename)", responses[1].Label)
	}

	// Store order matches matrix order.
	runs, err := svc.Runs(context.Background())
	if err != nil {
		t.Fatalf("Runs() error = %v", err)
	}
	if len(runs) != 2 || runs[0].ID != responses[0].RunID || runs[1].ID != responses[1].RunID {
		t.Error("stored run order does not match matrix order")
	}
}

func TestService_IngestMatrix_MissingExport(t *testing.T) {
	svc := newTestService(t)
	dir := t.TempDir()

	matrix := "runs:\n  - export: missing.json\n    features: {}\n"
	path := filepath.Join(dir, "matrix.yaml")
	if err := os.WriteFile(path, []byte(matrix), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := svc.IngestMatrix(context.Background(), path, 0); err == nil {
		t.Error("IngestMatrix() should fail fast on a missing export")
	}

	// Nothing was stored.
	runs, err := svc.Runs(context.Background())
	if err != nil {
		t.Fatalf("Runs() error = %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("len(runs) = %d, want 0", len(runs))
	}
}
