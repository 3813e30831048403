// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package llvmcov

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/covbuddy/services/coverage/region"
)

const sampleExport = `{
  "type": "llvm.coverage.json.export",
  "version": "2.0.1",
  "data": [
    {
      "functions": [
        {
          "name": "main",
          "count": 1,
          "regions": [
            [1, 0, 9, 1, 1, 0, 0, 0],
            [3, 4, 5, 5, 1, 0, 0, 0],
            [6, 4, 8, 5, 0, 0, 0, 0]
          ],
          "filenames": ["main.c"]
        },
        {
          "name": "helper",
          "count": 4,
          "regions": [
            [11, 0, 14, 1, 4, 0, 0, 0]
          ],
          "filenames": ["main.c"]
        }
      ]
    }
  ]
}`

func TestParse(t *testing.T) {
	res, err := ParseBytes([]byte(sampleExport))
	require.NoError(t, err)

	assert.Equal(t, []string{"main", "helper"}, res.Report.FunctionNames())
	assert.Len(t, res.Records, 2)
	assert.Empty(t, res.Report.Malformed())

	root, ok := res.Report.RegionFor("main")
	require.True(t, ok)
	assert.Equal(t, region.Span{StartLine: 1, StartCol: 0, EndLine: 9, EndCol: 1}, root.Span)
	assert.Equal(t, "main.c", root.Filename)
	require.Len(t, root.Children(), 2)
	assert.True(t, root.Children()[0].IsCovered())
	assert.False(t, root.Children()[1].IsCovered())
}

func TestParse_EnvelopeErrors(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr error
	}{
		{
			"wrong_type",
			`{"type": "gcov.json", "version": "2.0.1", "data": [{}]}`,
			ErrNotCoverageExport,
		},
		{
			"missing_type",
			`{"version": "2.0.1", "data": [{}]}`,
			ErrNotCoverageExport,
		},
		{
			"old_major_version",
			`{"type": "llvm.coverage.json.export", "version": "1.0.0", "data": [{}]}`,
			ErrUnsupportedVersion,
		},
		{
			"future_major_version",
			`{"type": "llvm.coverage.json.export", "version": "3.0.0", "data": [{}]}`,
			ErrUnsupportedVersion,
		},
		{
			"garbage_version",
			`{"type": "llvm.coverage.json.export", "version": "two", "data": [{}]}`,
			ErrUnsupportedVersion,
		},
		{
			"no_data",
			`{"type": "llvm.coverage.json.export", "version": "2.0.1", "data": []}`,
			ErrEmptyExport,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseBytes([]byte(tt.doc))
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	t.Run("invalid_json", func(t *testing.T) {
		_, err := ParseBytes([]byte("{"))
		assert.Error(t, err)
	})
}

func TestParse_MinorVersionsAccepted(t *testing.T) {
	doc := `{
	  "type": "llvm.coverage.json.export",
	  "version": "2.7.3",
	  "data": [{"functions": [{"name": "f", "count": 0, "regions": [[1,0,2,0,0]], "filenames": ["f.c"]}]}]
	}`
	res, err := ParseBytes([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, []string{"f"}, res.Report.FunctionNames())
}

func TestParse_MalformedFunctionIsolated(t *testing.T) {
	// g's second region partially overlaps its first; f must survive.
	doc := `{
	  "type": "llvm.coverage.json.export",
	  "version": "2.0.1",
	  "data": [{"functions": [
	    {"name": "f", "count": 1, "regions": [[1,0,5,0,1]], "filenames": ["a.c"]},
	    {"name": "g", "count": 1, "regions": [[10,0,20,0,1],[12,0,15,0,1],[14,0,25,0,1]], "filenames": ["a.c"]}
	  ]}]
	}`
	res, err := ParseBytes([]byte(doc))
	require.NoError(t, err)

	assert.Equal(t, []string{"f"}, res.Report.FunctionNames())
	malformed := res.Report.Malformed()
	require.Contains(t, malformed, "g")
	assert.ErrorIs(t, malformed["g"], region.ErrMalformedReport)
}

func TestParseFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "export.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleExport), 0o600))

	res, err := ParseFile(path)
	require.NoError(t, err)
	assert.Len(t, res.Report.FunctionNames(), 2)

	_, err = ParseFile(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}
