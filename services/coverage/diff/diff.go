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
	"fmt"
	"sort"

	"github.com/AleutianAI/covbuddy/services/coverage/region"
)

// Classification labels one region of a diff result.
type Classification int

const (
	// ClassificationOnlyWith marks regions covered only by runs that
	// satisfy the constraint.
	ClassificationOnlyWith Classification = iota
	// ClassificationOnlyWithout marks regions covered only by runs
	// that do not satisfy the constraint.
	ClassificationOnlyWithout
	// ClassificationBoth marks regions covered on both sides.
	ClassificationBoth
	// ClassificationNeither marks regions observed but covered on
	// neither side.
	ClassificationNeither
)

func (c Classification) String() string {
	switch c {
	case ClassificationOnlyWith:
		return "only_with"
	case ClassificationOnlyWithout:
		return "only_without"
	case ClassificationBoth:
		return "both"
	case ClassificationNeither:
		return "neither"
	default:
		return fmt.Sprintf("classification(%d)", int(c))
	}
}

// RegionKey identifies one classified region across runs: the function
// it belongs to and its span.
type RegionKey struct {
	Function string      `json:"function"`
	Span     region.Span `json:"span"`
}

// FeatureCoverageDiff is the result of partitioning the stored runs by
// a feature constraint: every region observed on either side, labeled
// by where it was covered.
//
// Thread Safety: read-only; safe for concurrent use.
type FeatureCoverageDiff struct {
	required map[string]bool
	with     []FeatureSet
	without  []FeatureSet
	order    []RegionKey
	classes  map[RegionKey]Classification
	counts   map[Classification]int
}

// Diff partitions the stored runs by the given constraint and
// classifies coverage differences between the two sides.
//
// # Description
//
// The constraint must name at least one feature, and every named
// feature must be enabled in at least one stored configuration. Runs
// are split into the side satisfying the constraint and its
// complement; both sides must be non-empty. Coverage is aggregated per
// side with a logical OR over runs, then every observed (function,
// span) pair is classified. A span observed on only one side is
// classified as if the absent side had not covered it; differing
// configurations may legitimately compile differing region sets.
//
// # Inputs
//
//   - required: feature name to required boolean value
//
// # Outputs
//
//   - *FeatureCoverageDiff: the classification result
//   - error: ErrEmptyConstraint, ErrUnknownFeature, or
//     ErrEmptyPartition
//
// # Example
//
//	result, err := mapping.Diff(map[string]bool{"slow": true})
//	if err != nil {
//		return fmt.Errorf("diff slow: %w", err)
//	}
//	for key, class := range result.Regions() {
//		fmt.Println(key.Function, key.Span, class)
//	}
func (m *ReportMapping) Diff(required map[string]bool) (*FeatureCoverageDiff, error) {
	if len(required) == 0 {
		return nil, fmt.Errorf("%w: diff needs at least one feature constraint", ErrEmptyConstraint)
	}
	names := make([]string, 0, len(required))
	for name := range required {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, ok := m.availSet[name]; !ok {
			return nil, fmt.Errorf("%w: %q is not enabled in any stored configuration (available: %v)",
				ErrUnknownFeature, name, m.available)
		}
	}

	with, without := m.partition(required)
	if len(with) == 0 {
		return nil, fmt.Errorf("%w: no stored configuration satisfies the constraint", ErrEmptyPartition)
	}
	if len(without) == 0 {
		return nil, fmt.Errorf("%w: every stored configuration satisfies the constraint", ErrEmptyPartition)
	}

	d := &FeatureCoverageDiff{
		required: copyConstraint(required),
		classes:  make(map[RegionKey]Classification),
		counts:   make(map[Classification]int),
	}
	for _, e := range with {
		d.with = append(d.with, m.featureSet(e.Config))
	}
	for _, e := range without {
		d.without = append(d.without, m.featureSet(e.Config))
	}

	d.classify(aggregateCoverage(with), aggregateCoverage(without))
	return d, nil
}

// aggregateCoverage flattens one partition side into per-function span
// coverage: a span is covered when at least one run covered it. The
// input reports are never mutated.
func aggregateCoverage(entries []Entry) map[string]map[region.Span]bool {
	agg := make(map[string]map[region.Span]bool)
	for _, e := range entries {
		for name, root := range e.Report.Functions() {
			spans, ok := agg[name]
			if !ok {
				spans = make(map[region.Span]bool)
				agg[name] = spans
			}
			for node := range root.Walk() {
				spans[node.Span] = spans[node.Span] || node.IsCovered()
			}
		}
	}
	return agg
}

// classify walks the union of both sides in deterministic order
// (function name, then span) and labels every observed region.
func (d *FeatureCoverageDiff) classify(withAgg, withoutAgg map[string]map[region.Span]bool) {
	functions := make(map[string]struct{}, len(withAgg))
	for name := range withAgg {
		functions[name] = struct{}{}
	}
	for name := range withoutAgg {
		functions[name] = struct{}{}
	}
	names := make([]string, 0, len(functions))
	for name := range functions {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		spanSet := make(map[region.Span]struct{})
		for span := range withAgg[name] {
			spanSet[span] = struct{}{}
		}
		for span := range withoutAgg[name] {
			spanSet[span] = struct{}{}
		}
		spans := make([]region.Span, 0, len(spanSet))
		for span := range spanSet {
			spans = append(spans, span)
		}
		sort.Slice(spans, func(i, j int) bool {
			return spans[i].Compare(spans[j]) < 0
		})

		for _, span := range spans {
			coveredWith := withAgg[name][span]
			coveredWithout := withoutAgg[name][span]

			var class Classification
			switch {
			case coveredWith && !coveredWithout:
				class = ClassificationOnlyWith
			case !coveredWith && coveredWithout:
				class = ClassificationOnlyWithout
			case coveredWith && coveredWithout:
				class = ClassificationBoth
			default:
				class = ClassificationNeither
			}

			key := RegionKey{Function: name, Span: span}
			d.order = append(d.order, key)
			d.classes[key] = class
			d.counts[class]++
		}
	}
}

// Len returns the number of classified regions.
func (d *FeatureCoverageDiff) Len() int {
	return len(d.order)
}

// Classification returns the label of one region.
func (d *FeatureCoverageDiff) Classification(function string, span region.Span) (Classification, bool) {
	class, ok := d.classes[RegionKey{Function: function, Span: span}]
	return class, ok
}

// Regions returns an iterator over (region, classification) pairs,
// ordered by function name and span.
func (d *FeatureCoverageDiff) Regions() func(yield func(RegionKey, Classification) bool) {
	return func(yield func(RegionKey, Classification) bool) {
		for _, key := range d.order {
			if !yield(key, d.classes[key]) {
				return
			}
		}
	}
}

// Counts returns the number of regions per classification. Labels
// with no regions are present with a zero count.
func (d *FeatureCoverageDiff) Counts() map[Classification]int {
	out := map[Classification]int{
		ClassificationOnlyWith:    0,
		ClassificationOnlyWithout: 0,
		ClassificationBoth:        0,
		ClassificationNeither:     0,
	}
	for class, n := range d.counts {
		out[class] = n
	}
	return out
}

// Constraint returns a copy of the feature constraint the diff was
// computed for.
func (d *FeatureCoverageDiff) Constraint() map[string]bool {
	return copyConstraint(d.required)
}

// WithConfigs returns the feature sets of the runs satisfying the
// constraint, in insertion order.
func (d *FeatureCoverageDiff) WithConfigs() []FeatureSet {
	return append([]FeatureSet(nil), d.with...)
}

// WithoutConfigs returns the feature sets of the complement side, in
// insertion order.
func (d *FeatureCoverageDiff) WithoutConfigs() []FeatureSet {
	return append([]FeatureSet(nil), d.without...)
}

func copyConstraint(required map[string]bool) map[string]bool {
	out := make(map[string]bool, len(required))
	for name, want := range required {
		out[name] = want
	}
	return out
}
