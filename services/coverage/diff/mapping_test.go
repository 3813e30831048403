// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package diff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/covbuddy/services/coverage/report"
)

// emptyReport builds a minimal valid report for mapping tests that only
// exercise configuration handling.
func emptyReport(t *testing.T) *report.CoverageReport {
	t.Helper()
	return report.New([]report.FunctionRecords{
		{Name: "main", Records: [][]int64{{0, 0, 100, 100, 1}}},
	})
}

// fourConfigs builds the canonical mapping: {}, {slow}, {header},
// {slow, header}, inserted in that order.
func fourConfigs(t *testing.T) *ReportMapping {
	t.Helper()
	m, err := NewReportMapping([]Entry{
		{Config: NewConfiguration(nil), Report: emptyReport(t)},
		{Config: NewConfiguration(map[string]bool{"slow": true}), Report: emptyReport(t)},
		{Config: NewConfiguration(map[string]bool{"header": true}), Report: emptyReport(t)},
		{Config: NewConfiguration(map[string]bool{"slow": true, "header": true}), Report: emptyReport(t)},
	})
	require.NoError(t, err)
	return m
}

func TestNewReportMapping_DuplicateConfiguration(t *testing.T) {
	_, err := NewReportMapping([]Entry{
		{Config: NewConfiguration(map[string]bool{"slow": true}), Report: emptyReport(t)},
		{Config: NewConfiguration(map[string]bool{"slow": true, "header": false}), Report: emptyReport(t)},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicateConfiguration,
		"explicitly disabled features do not change configuration identity")
}

func TestNewReportMapping_NilReport(t *testing.T) {
	_, err := NewReportMapping([]Entry{
		{Config: NewConfiguration(map[string]bool{"slow": true})},
	})
	assert.Error(t, err)
}

func TestAvailableFeatures(t *testing.T) {
	m := fourConfigs(t)
	assert.Equal(t, []string{"header", "slow"}, m.AvailableFeatures())

	t.Run("order_independent", func(t *testing.T) {
		reordered, err := NewReportMapping([]Entry{
			{Config: NewConfiguration(map[string]bool{"slow": true, "header": true}), Report: emptyReport(t)},
			{Config: NewConfiguration(map[string]bool{"header": true}), Report: emptyReport(t)},
			{Config: NewConfiguration(nil), Report: emptyReport(t)},
			{Config: NewConfiguration(map[string]bool{"slow": true}), Report: emptyReport(t)},
		})
		require.NoError(t, err)
		assert.Equal(t, m.AvailableFeatures(), reordered.AvailableFeatures())
	})

	t.Run("disabled_only_feature_is_not_available", func(t *testing.T) {
		m2, err := NewReportMapping([]Entry{
			{Config: NewConfiguration(map[string]bool{"ghost": false}), Report: emptyReport(t)},
			{Config: NewConfiguration(map[string]bool{"slow": true}), Report: emptyReport(t)},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"slow"}, m2.AvailableFeatures())
	})
}

func TestConfigsWith(t *testing.T) {
	m := fourConfigs(t)

	t.Run("single_constraint_preserves_order", func(t *testing.T) {
		got := m.ConfigsWith(map[string]bool{"slow": true})
		assert.Equal(t, []FeatureSet{
			{"slow": true, "header": false},
			{"slow": true, "header": true},
		}, got)
	})

	t.Run("empty_constraint_matches_all", func(t *testing.T) {
		assert.Len(t, m.ConfigsWith(nil), 4)
		assert.Len(t, m.ConfigsWith(map[string]bool{}), 4)
	})

	t.Run("negative_constraint", func(t *testing.T) {
		got := m.ConfigsWith(map[string]bool{"slow": false})
		assert.Equal(t, []FeatureSet{
			{"slow": false, "header": false},
			{"slow": false, "header": true},
		}, got)
	})
}

func TestConfigsWithout(t *testing.T) {
	m := fourConfigs(t)

	t.Run("complement_of_full_constraint", func(t *testing.T) {
		got := m.ConfigsWithout(map[string]bool{"slow": true, "header": true})
		assert.Equal(t, []FeatureSet{
			{"slow": false, "header": false},
			{"slow": true, "header": false},
			{"slow": false, "header": true},
		}, got)
	})

	t.Run("empty_constraint_yields_nothing", func(t *testing.T) {
		assert.Empty(t, m.ConfigsWithout(nil))
	})

	t.Run("single_feature_complement_equals_negation", func(t *testing.T) {
		assert.Equal(t,
			m.ConfigsWith(map[string]bool{"slow": false}),
			m.ConfigsWithout(map[string]bool{"slow": true}))
	})
}

func TestPartitionProperties(t *testing.T) {
	m := fourConfigs(t)

	constraints := []map[string]bool{
		{"slow": true},
		{"header": false},
		{"slow": true, "header": true},
		{"slow": false, "header": false},
	}
	for _, required := range constraints {
		with := m.ConfigsWith(required)
		without := m.ConfigsWithout(required)
		assert.Equal(t, m.Len(), len(with)+len(without),
			"with and without must enumerate exactly the stored configurations for %v", required)
	}
}
