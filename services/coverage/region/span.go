// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package region

import "fmt"

// Span is a source-position interval identified by start and end
// (line, column) pairs, as emitted by llvm-cov. The start position is
// inclusive. On the end line the end column is exclusive, matching the
// counter-mapping convention where a span's end column points one past
// the last covered character.
//
// Spans are immutable value types. Their total order is lexicographic
// over the 4-tuple (StartLine, StartCol, EndLine, EndCol).
type Span struct {
	StartLine int `json:"start_line"`
	StartCol  int `json:"start_col"`
	EndLine   int `json:"end_line"`
	EndCol    int `json:"end_col"`
}

// NewSpan builds a validated Span.
//
// # Inputs
//
//   - startLine, startCol: inclusive start position, non-negative
//   - endLine, endCol: end position, non-negative, not before the start
//
// # Outputs
//
//   - Span: the validated span
//   - error: ErrMalformedReport if any position is negative or the end
//     precedes the start
func NewSpan(startLine, startCol, endLine, endCol int) (Span, error) {
	s := Span{StartLine: startLine, StartCol: startCol, EndLine: endLine, EndCol: endCol}
	if err := s.validate(); err != nil {
		return Span{}, err
	}
	return s, nil
}

func (s Span) validate() error {
	if s.StartLine < 0 || s.StartCol < 0 || s.EndLine < 0 || s.EndCol < 0 {
		return fmt.Errorf("%w: negative position in span %s", ErrMalformedReport, s)
	}
	if comparePosition(s.StartLine, s.StartCol, s.EndLine, s.EndCol) > 0 {
		return fmt.Errorf("%w: span %s ends before it starts", ErrMalformedReport, s)
	}
	return nil
}

// Compare orders two spans lexicographically over the 4-tuple
// (StartLine, StartCol, EndLine, EndCol). It returns -1 when s sorts
// before other, 0 when the spans are identical, and 1 otherwise.
func (s Span) Compare(other Span) int {
	if c := comparePosition(s.StartLine, s.StartCol, other.StartLine, other.StartCol); c != 0 {
		return c
	}
	return comparePosition(s.EndLine, s.EndCol, other.EndLine, other.EndCol)
}

// ProperlyContains reports whether other is nested strictly inside s:
// s starts at or before other, s ends at or after other, and the two
// spans are not identical. A span never properly contains itself.
func (s Span) ProperlyContains(other Span) bool {
	startOK := comparePosition(s.StartLine, s.StartCol, other.StartLine, other.StartCol) <= 0
	endOK := comparePosition(other.EndLine, other.EndCol, s.EndLine, s.EndCol) <= 0
	return startOK && endOK && s != other
}

// Overlaps reports whether two spans partially overlap: neither
// properly contains the other, yet exactly one of them contains the
// other's start position. Identical and disjoint spans do not overlap.
// Partial overlap between sibling regions signals corrupt coverage
// data (ErrMalformedReport at insertion time).
func (s Span) Overlaps(other Span) bool {
	if s.ProperlyContains(other) || other.ProperlyContains(s) {
		return false
	}
	return s.ContainsLocation(other.StartLine, other.StartCol) !=
		other.ContainsLocation(s.StartLine, s.StartCol)
}

// ContainsLocation reports whether the given (line, col) position lies
// inside the span. Lines are compared inclusively. On the start line
// columns at or after StartCol match; on the end line only columns
// strictly before EndCol match.
func (s Span) ContainsLocation(line, col int) bool {
	if line < s.StartLine || line > s.EndLine {
		return false
	}
	switch {
	case line == s.StartLine && line == s.EndLine:
		return s.StartCol <= col && col < s.EndCol
	case line == s.StartLine:
		return s.StartCol <= col
	case line == s.EndLine:
		return col < s.EndCol
	default:
		return true
	}
}

// String renders the span as "startLine:startCol-endLine:endCol".
func (s Span) String() string {
	return fmt.Sprintf("%d:%d-%d:%d", s.StartLine, s.StartCol, s.EndLine, s.EndCol)
}

// comparePosition orders two (line, col) positions: line first, then
// column.
func comparePosition(aLine, aCol, bLine, bCol int) int {
	switch {
	case aLine < bLine:
		return -1
	case aLine > bLine:
		return 1
	case aCol < bCol:
		return -1
	case aCol > bCol:
		return 1
	}
	return 0
}
