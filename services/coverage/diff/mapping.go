// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package diff partitions labeled coverage reports by feature
// constraints and classifies where coverage differs between the
// partitions.
//
// A ReportMapping associates each run's Configuration with its
// CoverageReport, preserving insertion order. Diff splits the stored
// runs into the side satisfying a constraint and its complement,
// aggregates coverage per side (a region counts as covered when any
// run of that side covered it), and labels every observed region as
// covered only with the constraint, only without it, under both, or
// under neither.
//
// All operations are pure reads over immutable state and safe for
// concurrent callers once the mapping is built.
package diff

import (
	"fmt"
	"sort"

	"github.com/AleutianAI/covbuddy/services/coverage/report"
)

// Entry pairs one run's configuration with its coverage report.
type Entry struct {
	Config Configuration
	Report *report.CoverageReport
}

// FeatureSet materializes every available feature name to its boolean
// value for one stored configuration.
type FeatureSet map[string]bool

// ReportMapping is an insertion-ordered association of Configuration
// to CoverageReport with no duplicate configurations.
//
// Thread Safety: safe for concurrent readers after construction.
type ReportMapping struct {
	entries   []Entry
	available []string
	availSet  map[string]struct{}
}

// NewReportMapping builds a mapping from (configuration, report)
// pairs, preserving input order.
//
// # Outputs
//
//   - *ReportMapping: the mapping with its cached feature universe
//   - error: ErrDuplicateConfiguration when two entries share the same
//     enabled feature set, or a validation error on a nil report
func NewReportMapping(entries []Entry) (*ReportMapping, error) {
	m := &ReportMapping{
		entries:  make([]Entry, 0, len(entries)),
		availSet: make(map[string]struct{}),
	}
	seen := make(map[string]int, len(entries))
	for i, e := range entries {
		if e.Report == nil {
			return nil, fmt.Errorf("entry %d (%s): nil coverage report", i, e.Config)
		}
		key := e.Config.Key()
		if first, dup := seen[key]; dup {
			return nil, fmt.Errorf("%w: entry %d repeats configuration %s of entry %d",
				ErrDuplicateConfiguration, i, e.Config, first)
		}
		seen[key] = i
		for _, name := range e.Config.EnabledFeatures() {
			m.availSet[name] = struct{}{}
		}
		m.entries = append(m.entries, e)
	}
	m.available = make([]string, 0, len(m.availSet))
	for name := range m.availSet {
		m.available = append(m.available, name)
	}
	sort.Strings(m.available)
	return m, nil
}

// Len returns the number of stored runs.
func (m *ReportMapping) Len() int {
	return len(m.entries)
}

// Entries returns the stored (configuration, report) pairs in
// insertion order. The returned slice is a copy.
func (m *ReportMapping) Entries() []Entry {
	return append([]Entry(nil), m.entries...)
}

// AvailableFeatures returns the sorted names of all features enabled
// in at least one stored configuration. A feature never seen enabled
// is not part of the universe.
func (m *ReportMapping) AvailableFeatures() []string {
	return append([]string(nil), m.available...)
}

// ConfigsWith returns, in insertion order, the feature sets of all
// stored configurations whose realized values satisfy every constraint
// in required. Unconstrained features vary freely; an empty constraint
// matches every stored configuration.
func (m *ReportMapping) ConfigsWith(required map[string]bool) []FeatureSet {
	var out []FeatureSet
	for _, e := range m.entries {
		if matches(e.Config, required) {
			out = append(out, m.featureSet(e.Config))
		}
	}
	return out
}

// ConfigsWithout returns the complement of ConfigsWith within the
// stored configurations, in insertion order. An empty constraint
// matches everything, so its complement is empty.
func (m *ReportMapping) ConfigsWithout(required map[string]bool) []FeatureSet {
	var out []FeatureSet
	for _, e := range m.entries {
		if !matches(e.Config, required) {
			out = append(out, m.featureSet(e.Config))
		}
	}
	return out
}

// partition splits the stored entries into those satisfying required
// and the rest, both in insertion order.
func (m *ReportMapping) partition(required map[string]bool) (with, without []Entry) {
	for _, e := range m.entries {
		if matches(e.Config, required) {
			with = append(with, e)
		} else {
			without = append(without, e)
		}
	}
	return with, without
}

// featureSet realizes the full feature universe for one configuration.
func (m *ReportMapping) featureSet(c Configuration) FeatureSet {
	fs := make(FeatureSet, len(m.available))
	for _, name := range m.available {
		fs[name] = c.Enabled(name)
	}
	return fs
}

// matches reports whether the configuration satisfies every constraint
// in required under the closed-world rule.
func matches(c Configuration, required map[string]bool) bool {
	for name, want := range required {
		if c.Enabled(name) != want {
			return false
		}
	}
	return true
}
