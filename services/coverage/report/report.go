// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package report assembles flat per-function region records into one
// CoverageReport per instrumented run.
//
// A report maps function names to region tree roots. Functions are
// independent: a malformed record aborts only the function it belongs
// to, never the whole report. Reports are immutable once built.
package report

import (
	"fmt"

	"github.com/AleutianAI/covbuddy/services/coverage/region"
)

// fileIDIndex is the record field holding the index into the
// function's filename table.
const fileIDIndex = 5

// FunctionRecords carries the flat region records of one function as
// extracted from a coverage export.
type FunctionRecords struct {
	// Name is the function name, typically mangled.
	Name string `json:"name"`
	// Filenames is the export's filename table for this function.
	// Records reference it through their file ID field.
	Filenames []string `json:"filenames,omitempty"`
	// Records holds the numeric region records in export order. The
	// first record spans the whole function.
	Records [][]int64 `json:"records"`
}

// CoverageReport holds one region tree root per function observed in a
// single run's coverage export, in export order.
//
// Thread Safety: safe for concurrent readers after construction.
type CoverageReport struct {
	order     []string
	functions map[string]*region.CodeRegion
	malformed map[string]error
}

// Stats summarizes a report. Region counts cover code and expansion
// regions only; gap, skipped, and branch regions carry no statement
// coverage of their own.
type Stats struct {
	Functions          int `json:"functions"`
	MalformedFunctions int `json:"malformed_functions"`
	Regions            int `json:"regions"`
	CoveredRegions     int `json:"covered_regions"`
}

// BuildFunction builds the region tree for one function.
//
// # Description
//
// The first record establishes the function's root region and must
// span every later record. Each subsequent record is inserted into the
// tree, re-parenting on out-of-order ancestors as needed. Records with
// a file ID field resolve their filename against the given table.
//
// # Inputs
//
//   - name: the function name
//   - filenames: the export's filename table, may be empty
//   - records: numeric region records in export order, at least one
//
// # Outputs
//
//   - *region.CodeRegion: the root of the assembled tree
//   - error: region.ErrMalformedReport when the function has no
//     records, a record is invalid, a file ID is out of range, or a
//     record cannot be related to the tree by containment
func BuildFunction(name string, filenames []string, records [][]int64) (*region.CodeRegion, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: function %q has no region records",
			region.ErrMalformedReport, name)
	}

	root, err := newRegion(records[0], name, filenames)
	if err != nil {
		return nil, err
	}
	for _, rec := range records[1:] {
		node, err := newRegion(rec, name, filenames)
		if err != nil {
			return nil, err
		}
		if err := root.Insert(node); err != nil {
			return nil, err
		}
	}
	return root, nil
}

func newRegion(rec []int64, name string, filenames []string) (*region.CodeRegion, error) {
	node, err := region.FromRecord(rec, name)
	if err != nil {
		return nil, err
	}
	if len(rec) > fileIDIndex {
		id := rec[fileIDIndex]
		if id < 0 || id >= int64(len(filenames)) {
			return nil, fmt.Errorf("%w: file ID %d out of range for function %q (%d filenames)",
				region.ErrMalformedReport, id, name, len(filenames))
		}
		node.Filename = filenames[id]
	}
	return node, nil
}

// New assembles a report from per-function records.
//
// # Description
//
// Functions are built independently and in input order. A function
// whose records cannot form a valid tree is excluded from the report
// and recorded under Malformed instead; the remaining functions are
// unaffected. A function name appearing twice in one export is treated
// as malformed and dropped entirely.
func New(functions []FunctionRecords) *CoverageReport {
	r := &CoverageReport{
		functions: make(map[string]*region.CodeRegion, len(functions)),
		malformed: make(map[string]error),
	}
	for _, fn := range functions {
		if _, seen := r.functions[fn.Name]; seen || r.malformed[fn.Name] != nil {
			r.dropFunction(fn.Name)
			r.malformed[fn.Name] = fmt.Errorf("%w: function %q appears more than once in export",
				region.ErrMalformedReport, fn.Name)
			continue
		}
		root, err := BuildFunction(fn.Name, fn.Filenames, fn.Records)
		if err != nil {
			r.malformed[fn.Name] = err
			continue
		}
		r.functions[fn.Name] = root
		r.order = append(r.order, fn.Name)
	}
	return r
}

func (r *CoverageReport) dropFunction(name string) {
	if _, ok := r.functions[name]; !ok {
		return
	}
	delete(r.functions, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			return
		}
	}
}

// FunctionNames returns the names of all successfully built functions
// in export order.
func (r *CoverageReport) FunctionNames() []string {
	return append([]string(nil), r.order...)
}

// RegionFor returns the region tree root for the named function.
func (r *CoverageReport) RegionFor(name string) (*region.CodeRegion, bool) {
	root, ok := r.functions[name]
	return root, ok
}

// Functions returns an iterator over (name, root) pairs in export
// order.
//
// # Example
//
//	for name, root := range rep.Functions() {
//		fmt.Println(name, root.Span)
//	}
func (r *CoverageReport) Functions() func(yield func(string, *region.CodeRegion) bool) {
	return func(yield func(string, *region.CodeRegion) bool) {
		for _, name := range r.order {
			if !yield(name, r.functions[name]) {
				return
			}
		}
	}
}

// Malformed returns the per-function build failures, keyed by function
// name. The returned map is a copy.
func (r *CoverageReport) Malformed() map[string]error {
	out := make(map[string]error, len(r.malformed))
	for name, err := range r.malformed {
		out[name] = err
	}
	return out
}

// Stats counts functions and code regions across the report.
func (r *CoverageReport) Stats() Stats {
	s := Stats{
		Functions:          len(r.order),
		MalformedFunctions: len(r.malformed),
	}
	for _, name := range r.order {
		for node := range r.functions[name].BreadthFirst() {
			if node.Kind != region.KindCode && node.Kind != region.KindExpansion {
				continue
			}
			s.Regions++
			if node.IsCovered() {
				s.CoveredRegions++
			}
		}
	}
	return s
}
