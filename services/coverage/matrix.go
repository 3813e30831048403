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
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/covbuddy/pkg/validation"
	"github.com/AleutianAI/covbuddy/services/coverage/llvmcov"
)

// defaultMatrixJobs bounds parallel export parsing when the caller does
// not specify a job count.
const defaultMatrixJobs = 4

// MatrixEntry is one run of a run matrix: an export file plus its
// feature assignment.
type MatrixEntry struct {
	// Export is the export file path, relative to the matrix file.
	Export string `yaml:"export"`

	// Label optionally names the run; defaults to the export basename.
	Label string `yaml:"label,omitempty"`

	// Features is the run's feature assignment.
	Features map[string]bool `yaml:"features"`
}

// Matrix is a parsed run matrix.
type Matrix struct {
	Runs []MatrixEntry `yaml:"runs"`

	// dir is the matrix file's directory; entry paths resolve against it.
	dir string
}

// LoadMatrix reads and validates a run matrix YAML file.
//
// # Description
//
// Every entry must name an export file, feature names must pass
// validation, and the matrix must hold at least one entry. Entry paths
// are kept relative; ResolveExport joins them with the matrix
// directory.
//
// # Outputs
//
//   - *Matrix: the parsed matrix
//   - error: ErrEmptyMatrix, ErrInvalidFeatureName, or a wrapped
//     read/decode error
func LoadMatrix(path string) (*Matrix, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read run matrix: %w", err)
	}

	var m Matrix
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse run matrix %s: %w", path, err)
	}
	if len(m.Runs) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyMatrix, path)
	}

	for i, entry := range m.Runs {
		if entry.Export == "" {
			return nil, fmt.Errorf("run matrix %s: entry %d has no export path", path, i)
		}
		for name := range entry.Features {
			if err := validation.ValidateFeatureName(name); err != nil {
				return nil, fmt.Errorf("%w: entry %d: %v", ErrInvalidFeatureName, i, err)
			}
		}
	}

	m.dir = filepath.Dir(path)
	return &m, nil
}

// ResolveExport returns the absolute path of one entry's export file.
func (m *Matrix) ResolveExport(entry MatrixEntry) string {
	if filepath.IsAbs(entry.Export) {
		return entry.Export
	}
	return filepath.Join(m.dir, entry.Export)
}

// IngestMatrix loads a run matrix and ingests every entry.
//
// # Description
//
// Exports are parsed in parallel, bounded by jobs (defaultMatrixJobs
// when jobs <= 0), failing fast on the first malformed export. Runs are
// then stored sequentially in matrix order so the store's insertion
// order matches the matrix, keeping diff partitions deterministic.
//
// # Inputs
//
//   - ctx: cancels both parsing and storing
//   - path: the matrix YAML file
//   - jobs: maximum concurrent parses, <=0 for the default
//
// # Outputs
//
//   - []IngestResponse: one response per entry, in matrix order
//   - error: the first parse, validation, or storage failure
func (s *Service) IngestMatrix(ctx context.Context, path string, jobs int) ([]IngestResponse, error) {
	matrix, err := LoadMatrix(path)
	if err != nil {
		return nil, err
	}
	if jobs <= 0 {
		jobs = defaultMatrixJobs
	}

	parsed := make([]*llvmcov.Result, len(matrix.Runs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i, entry := range matrix.Runs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := llvmcov.ParseFile(matrix.ResolveExport(entry))
			if err != nil {
				return err
			}
			parsed[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	responses := make([]IngestResponse, 0, len(matrix.Runs))
	for i, entry := range matrix.Runs {
		label := entry.Label
		if label == "" {
			label = filepath.Base(entry.Export)
		}
		resp, err := s.storeRun(ctx, label, entry.Features, parsed[i])
		if err != nil {
			return nil, fmt.Errorf("matrix entry %d (%s): %w", i, entry.Export, err)
		}
		responses = append(responses, *resp)
	}

	s.logger.Info("matrix ingested", "matrix", path, "runs", len(responses))
	return responses, nil
}
