// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/covbuddy/services/coverage"
	"github.com/AleutianAI/covbuddy/services/coverage/diff"
	storage "github.com/AleutianAI/covbuddy/services/coverage/storage/badger"
)

func TestParseFeatureFlags(t *testing.T) {
	tests := []struct {
		name   string
		values []string
		want   map[string]bool
	}{
		{"bare name enables", []string{"slow"}, map[string]bool{"slow": true}},
		{"explicit true", []string{"slow=true"}, map[string]bool{"slow": true}},
		{"explicit false", []string{"slow=false"}, map[string]bool{"slow": false}},
		{"numeric booleans", []string{"a=1", "b=0"}, map[string]bool{"a": true, "b": false}},
		{"on off", []string{"a=on", "b=off"}, map[string]bool{"a": true, "b": false}},
		{"mixed", []string{"slow", "header=false"}, map[string]bool{"slow": true, "header": false}},
		{"empty input", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseFeatureFlags(tt.values)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseFeatureFlags_Invalid(t *testing.T) {
	_, err := parseFeatureFlags([]string{"slow=maybe"})
	assert.Error(t, err)

	_, err = parseFeatureFlags([]string{"=true"})
	assert.Error(t, err)
}

func TestExitCodeFor(t *testing.T) {
	assert.Equal(t, ExitValidation, exitCodeFor(coverage.ErrInvalidFeatureName))
	assert.Equal(t, ExitValidation, exitCodeFor(fmt.Errorf("wrapped: %w", diff.ErrEmptyConstraint)))
	assert.Equal(t, ExitValidation, exitCodeFor(storage.ErrRunNotFound))
	assert.Equal(t, ExitError, exitCodeFor(errors.New("disk on fire")))
}

func TestValidDiffClass(t *testing.T) {
	for _, class := range []string{"only_with", "only_without", "both", "neither"} {
		assert.True(t, validDiffClass(class), class)
	}
	assert.False(t, validDiffClass("covered"))
	assert.False(t, validDiffClass(""))
}

func TestResolveExportRun_Fallback(t *testing.T) {
	label, features := resolveExportRun(nil, "/exports/base.json")
	assert.Equal(t, "base.json", label)
	assert.Nil(t, features)
}

func TestLoadMatrixEntries_Empty(t *testing.T) {
	entries, err := loadMatrixEntries("")
	require.NoError(t, err)
	assert.Nil(t, entries)
}
