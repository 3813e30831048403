// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package region implements the code region tree: a strictly nested
// interval structure over source-position spans with execution counts.
//
// Region records arrive flat from a coverage export, one ordered list
// per function. Repeated Insert calls assemble them into a tree where
// every child span is properly contained in its parent span and
// siblings never partially overlap. Records may arrive out of order
// relative to an intermediate ancestor; Insert re-parents already
// placed children under a newly discovered ancestor to compensate.
//
// Trees are built once and read afterwards. Insert is not safe for
// concurrent use; the read-only API (predicates, traversal, lookup) is
// safe for concurrent readers once construction has finished and the
// tree has been published.
package region

import (
	"fmt"
	"sort"
)

// ==== REGION KINDS ====

// Kind identifies the mapping-region kind recorded by llvm-cov.
type Kind int

// Region kinds as encoded in llvm-cov JSON exports. KindFileRoot is
// synthetic and never appears in an export; it marks roots created to
// span a whole file when merging function trees.
const (
	KindCode      Kind = 0
	KindExpansion Kind = 1
	KindSkipped   Kind = 2
	KindGap       Kind = 3
	KindBranch    Kind = 4
	KindFileRoot  Kind = -1
)

// Valid reports whether k is a kind an llvm-cov export may carry.
func (k Kind) Valid() bool {
	return k >= KindCode && k <= KindBranch
}

func (k Kind) String() string {
	switch k {
	case KindCode:
		return "code"
	case KindExpansion:
		return "expansion"
	case KindSkipped:
		return "skipped"
	case KindGap:
		return "gap"
	case KindBranch:
		return "branch"
	case KindFileRoot:
		return "file_root"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ==== CODE REGION ====

// Record field layout of an llvm-cov region entry:
// [startLine, startCol, endLine, endCol, count, fileID, expandedFileID, kind].
// Only the first five fields are required; the rest default when absent.
const (
	recordMinFields  = 5
	recordFullFields = 8
	recordKindIndex  = 7
)

// CodeRegion is one node of a code region tree: a span, its execution
// count, and an ordered list of child regions. The parent pointer is a
// non-owning back-reference; only the child list owns nodes.
type CodeRegion struct {
	Span     Span
	Count    int64
	Kind     Kind
	Function string
	Filename string

	parent   *CodeRegion
	children []*CodeRegion
}

// New builds an unparented region node.
//
// # Inputs
//
//   - span: the source interval, validated for ordering
//   - count: execution count, must be non-negative
//   - kind: a valid export kind or KindFileRoot
//   - function: name of the function the region belongs to
//   - filename: source file the region belongs to, may be empty
//
// # Outputs
//
//   - *CodeRegion: the new node with no parent and no children
//   - error: ErrMalformedReport on an invalid span, negative count, or
//     unknown kind
func New(span Span, count int64, kind Kind, function, filename string) (*CodeRegion, error) {
	if err := span.validate(); err != nil {
		return nil, err
	}
	if count < 0 {
		return nil, fmt.Errorf("%w: negative execution count %d for span %s", ErrMalformedReport, count, span)
	}
	if !kind.Valid() && kind != KindFileRoot {
		return nil, fmt.Errorf("%w: unknown region kind %d for span %s", ErrMalformedReport, int(kind), span)
	}
	return &CodeRegion{
		Span:     span,
		Count:    count,
		Kind:     kind,
		Function: function,
		Filename: filename,
	}, nil
}

// FromRecord builds an unparented region node from one flat numeric
// record of a coverage export.
//
// # Description
//
// The record layout follows llvm-cov:
// [startLine, startCol, endLine, endCol, count, fileID, expandedFileID,
// kind]. At least the first five fields must be present. The kind field
// is decoded when the record carries all eight fields and must then
// name a known export kind; shorter records default to KindCode. The
// file ID fields are resolved by the caller, which owns the export's
// filename table.
//
// # Inputs
//
//   - values: the numeric record, at least five fields
//   - function: name of the function the record belongs to
//
// # Outputs
//
//   - *CodeRegion: the new node
//   - error: ErrMalformedReport on a truncated record, invalid span,
//     negative count, or unknown kind
func FromRecord(values []int64, function string) (*CodeRegion, error) {
	if len(values) < recordMinFields {
		return nil, fmt.Errorf("%w: region record has %d of %d required fields",
			ErrMalformedReport, len(values), recordMinFields)
	}
	span, err := NewSpan(int(values[0]), int(values[1]), int(values[2]), int(values[3]))
	if err != nil {
		return nil, err
	}
	kind := KindCode
	if len(values) >= recordFullFields {
		k := Kind(values[recordKindIndex])
		if !k.Valid() {
			return nil, fmt.Errorf("%w: unknown region kind %d for span %s",
				ErrMalformedReport, values[recordKindIndex], span)
		}
		kind = k
	}
	return New(span, values[4], kind, function, "")
}

// ==== PREDICATES AND ACCESSORS ====

// IsSubregion reports whether other is properly nested inside r,
// comparing spans only. A region is never a subregion of itself.
func (r *CodeRegion) IsSubregion(other *CodeRegion) bool {
	return r.Span.ProperlyContains(other.Span)
}

// IsCovered reports whether the region was executed at least once.
func (r *CodeRegion) IsCovered() bool {
	return r.Count > 0
}

// HasParent reports whether r has been inserted below another region.
func (r *CodeRegion) HasParent() bool {
	return r.parent != nil
}

// Parent returns the enclosing region, or nil for a root.
func (r *CodeRegion) Parent() *CodeRegion {
	return r.parent
}

// Children returns the direct child regions in span order. The
// returned slice is a copy; mutating it does not affect the tree.
func (r *CodeRegion) Children() []*CodeRegion {
	return append([]*CodeRegion(nil), r.children...)
}

// Compare orders two regions by span only, lexicographically over the
// 4-tuple. Count, kind, and subtree contents never participate in
// ordering or equality.
func (r *CodeRegion) Compare(other *CodeRegion) int {
	return r.Span.Compare(other.Span)
}

// ==== TREE CONSTRUCTION ====

// Insert places newRegion in the subtree rooted at r.
//
// # Description
//
// The caller feeds regions in export order; r must properly contain
// newRegion. The insertion point is found by walking down the tree:
//
//  1. Children of the current node that newRegion properly contains
//     are collected first. A non-empty set means newRegion is an
//     ancestor discovered out of order: those children are re-parented
//     under newRegion and newRegion takes their place in the child
//     list.
//  2. Otherwise, when exactly one child properly contains newRegion,
//     insertion recurses into that child.
//  3. Otherwise newRegion joins the child list as a new sibling.
//
// Children are validated before any mutation: a sibling with an
// identical span or a partially overlapping span aborts the insert
// with ErrMalformedReport and leaves the subtree unchanged.
//
// # Example
//
//	root, _ := region.FromRecord([]int64{0, 0, 100, 100, 1}, "main")
//	if err := root.Insert(child); err != nil {
//		return fmt.Errorf("insert %s: %w", child.Span, err)
//	}
//
// Thread Safety: not safe for concurrent use. Construction must finish
// before the tree is shared.
func (r *CodeRegion) Insert(newRegion *CodeRegion) error {
	if newRegion == nil {
		return fmt.Errorf("%w: nil region", ErrMalformedReport)
	}
	if !r.IsSubregion(newRegion) {
		return fmt.Errorf("%w: region %s is not nested inside %s",
			ErrMalformedReport, newRegion.Span, r.Span)
	}
	return r.insert(newRegion)
}

// insert descends the tree looking for newRegion's parent. Callers
// must have established r.IsSubregion(newRegion).
func (r *CodeRegion) insert(newRegion *CodeRegion) error {
	// Classify the current children before touching the child list.
	var (
		dominated []*CodeRegion
		container *CodeRegion
	)
	for _, child := range r.children {
		switch {
		case child.Span == newRegion.Span:
			return fmt.Errorf("%w: region %s in function %q inserted twice",
				ErrMalformedReport, newRegion.Span, newRegion.Function)
		case newRegion.IsSubregion(child):
			dominated = append(dominated, child)
		case child.IsSubregion(newRegion):
			container = child
		case child.Span.Overlaps(newRegion.Span):
			return fmt.Errorf("%w: region %s partially overlaps sibling %s in function %q",
				ErrMalformedReport, newRegion.Span, child.Span, newRegion.Function)
		}
	}

	switch {
	case len(dominated) > 0:
		// newRegion is an intermediate ancestor seen late: it adopts
		// every child it dominates and takes their place under r.
		for _, child := range dominated {
			r.removeChild(child)
			newRegion.adoptChild(child)
		}
		r.adoptChild(newRegion)
	case container != nil:
		return container.insert(newRegion)
	default:
		r.adoptChild(newRegion)
	}
	return nil
}

// adoptChild appends child and restores the span-sorted child order.
func (r *CodeRegion) adoptChild(child *CodeRegion) {
	child.parent = r
	r.children = append(r.children, child)
	sort.Slice(r.children, func(i, j int) bool {
		return r.children[i].Span.Compare(r.children[j].Span) < 0
	})
}

func (r *CodeRegion) removeChild(child *CodeRegion) {
	for i, c := range r.children {
		if c == child {
			r.children = append(r.children[:i], r.children[i+1:]...)
			return
		}
	}
}

// ==== TRAVERSAL AND LOOKUP ====

// Walk returns a depth-first pre-order iterator over the subtree
// rooted at r, r first. The iterator is restartable and visits every
// node exactly once per pass.
//
// # Example
//
//	for node := range root.Walk() {
//		fmt.Println(node.Span, node.Count)
//	}
func (r *CodeRegion) Walk() func(yield func(*CodeRegion) bool) {
	return func(yield func(*CodeRegion) bool) {
		r.walk(yield)
	}
}

func (r *CodeRegion) walk(yield func(*CodeRegion) bool) bool {
	if !yield(r) {
		return false
	}
	for _, child := range r.children {
		if !child.walk(yield) {
			return false
		}
	}
	return true
}

// PostOrder returns a depth-first post-order iterator over the subtree
// rooted at r: children before parents, r last. Post-order yields the
// innermost matching node first, which FindRegion relies on.
func (r *CodeRegion) PostOrder() func(yield func(*CodeRegion) bool) {
	return func(yield func(*CodeRegion) bool) {
		r.postOrder(yield)
	}
}

func (r *CodeRegion) postOrder(yield func(*CodeRegion) bool) bool {
	for _, child := range r.children {
		if !child.postOrder(yield) {
			return false
		}
	}
	return yield(r)
}

// BreadthFirst returns a level-order iterator over the subtree rooted
// at r.
func (r *CodeRegion) BreadthFirst() func(yield func(*CodeRegion) bool) {
	return func(yield func(*CodeRegion) bool) {
		queue := []*CodeRegion{r}
		for len(queue) > 0 {
			node := queue[0]
			queue = queue[1:]
			if !yield(node) {
				return
			}
			queue = append(queue, node.children...)
		}
	}
}

// FindRegion returns the smallest region containing the given source
// position, or nil when the position lies outside the subtree.
func (r *CodeRegion) FindRegion(line, col int) *CodeRegion {
	if !r.Span.ContainsLocation(line, col) {
		return nil
	}
	for node := range r.PostOrder() {
		if node.Span.ContainsLocation(line, col) {
			return node
		}
	}
	return nil
}
