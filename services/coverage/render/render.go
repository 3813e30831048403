// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package render formats region trees and coverage diffs for terminal
// output.
//
// All renderers write to an io.Writer and take an Options value; color
// is opt-in so that piped output and tests stay byte-stable.
package render

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/AleutianAI/covbuddy/pkg/ux"
	"github.com/AleutianAI/covbuddy/services/coverage/diff"
	"github.com/AleutianAI/covbuddy/services/coverage/region"
	"github.com/AleutianAI/covbuddy/services/coverage/report"
)

const indentStep = "  "

// Options controls rendering behavior.
type Options struct {
	// Color enables lipgloss styling. Leave false for piped or
	// machine-read output.
	Color bool
}

// AutoOptions detects whether the given file wants colored output:
// the file must be a terminal and colors must not be disabled via
// NO_COLOR or the machine personality level.
func AutoOptions(f *os.File) Options {
	return Options{
		Color: isatty.IsTerminal(f.Fd()) && ux.ShouldShowColors(),
	}
}

func (o Options) covered(s string) string {
	if o.Color {
		return ux.Styles.Success.Render(s)
	}
	return s
}

func (o Options) uncovered(s string) string {
	if o.Color {
		return ux.Styles.Error.Render(s)
	}
	return s
}

func (o Options) muted(s string) string {
	if o.Color {
		return ux.Styles.Muted.Render(s)
	}
	return s
}

func (o Options) title(s string) string {
	if o.Color {
		return ux.Styles.Title.Render(s)
	}
	return s
}

func (o Options) bold(s string) string {
	if o.Color {
		return ux.Styles.Bold.Render(s)
	}
	return s
}

// Tree writes one function's region tree, one node per line, indented
// by nesting depth. Covered nodes carry a check mark, uncovered nodes
// a cross.
//
// # Example
//
//	main
//	  ✓ 1:1-100:1 code count=1
//	    ✗ 10:1-20:1 code count=0
func Tree(w io.Writer, name string, root *region.CodeRegion, opts Options) error {
	if _, err := fmt.Fprintln(w, opts.title(name)); err != nil {
		return err
	}
	return writeNode(w, root, 1, opts)
}

func writeNode(w io.Writer, node *region.CodeRegion, depth int, opts Options) error {
	indent := strings.Repeat(indentStep, depth)
	line := fmt.Sprintf("%s %s %s count=%d", mark(node), node.Span, node.Kind, node.Count)
	if node.IsCovered() {
		line = opts.covered(line)
	} else {
		line = opts.uncovered(line)
	}
	if _, err := fmt.Fprintf(w, "%s%s\n", indent, line); err != nil {
		return err
	}
	for _, child := range node.Children() {
		if err := writeNode(w, child, depth+1, opts); err != nil {
			return err
		}
	}
	return nil
}

func mark(node *region.CodeRegion) string {
	if node.IsCovered() {
		return string(ux.IconSuccess)
	}
	return string(ux.IconError)
}

// Report writes every function tree of a report in name order,
// followed by a stats summary. Malformed functions are listed with
// their rejection reasons.
func Report(w io.Writer, rep *report.CoverageReport, opts Options) error {
	for _, name := range rep.FunctionNames() {
		root, ok := rep.RegionFor(name)
		if !ok {
			continue
		}
		if err := Tree(w, name, root, opts); err != nil {
			return err
		}
	}

	malformed := rep.Malformed()
	if len(malformed) > 0 {
		names := make([]string, 0, len(malformed))
		for name := range malformed {
			names = append(names, name)
		}
		sort.Strings(names)
		if _, err := fmt.Fprintln(w, opts.bold("malformed functions:")); err != nil {
			return err
		}
		for _, name := range names {
			if _, err := fmt.Fprintf(w, "%s%s: %v\n", indentStep, name, malformed[name]); err != nil {
				return err
			}
		}
	}

	return Summary(w, rep.Stats(), opts)
}

// Summary writes one stats line for a report.
func Summary(w io.Writer, stats report.Stats, opts Options) error {
	line := fmt.Sprintf("functions=%d malformed=%d regions=%d covered=%d",
		stats.Functions, stats.MalformedFunctions, stats.Regions, stats.CoveredRegions)
	_, err := fmt.Fprintln(w, opts.muted(line))
	return err
}

// Diff writes a feature coverage diff: the constraint, the partition
// sizes, every classified region grouped by classification, and a
// closing count line.
//
// # Inputs
//
//   - w: destination writer
//   - d: the computed diff
//   - function: when non-empty, limit the region listing to this
//     function
//   - opts: rendering options
func Diff(w io.Writer, d *diff.FeatureCoverageDiff, function string, opts Options) error {
	header := fmt.Sprintf("diff %s", FormatConstraint(d.Constraint()))
	if _, err := fmt.Fprintln(w, opts.title(header)); err != nil {
		return err
	}
	sides := fmt.Sprintf("with=%d without=%d configurations",
		len(d.WithConfigs()), len(d.WithoutConfigs()))
	if _, err := fmt.Fprintln(w, opts.muted(sides)); err != nil {
		return err
	}

	order := []diff.Classification{
		diff.ClassificationOnlyWith,
		diff.ClassificationOnlyWithout,
		diff.ClassificationBoth,
		diff.ClassificationNeither,
	}
	grouped := make(map[diff.Classification][]diff.RegionKey)
	for key, class := range d.Regions() {
		if function != "" && key.Function != function {
			continue
		}
		grouped[class] = append(grouped[class], key)
	}

	for _, class := range order {
		keys := grouped[class]
		if len(keys) == 0 {
			continue
		}
		if _, err := fmt.Fprintln(w, opts.bold(class.String()+":")); err != nil {
			return err
		}
		for _, key := range keys {
			line := fmt.Sprintf("%s%s %s\n", indentStep, key.Function, key.Span)
			if _, err := io.WriteString(w, styleClass(line, class, opts)); err != nil {
				return err
			}
		}
	}

	counts := d.Counts()
	summary := fmt.Sprintf("only_with=%d only_without=%d both=%d neither=%d",
		counts[diff.ClassificationOnlyWith],
		counts[diff.ClassificationOnlyWithout],
		counts[diff.ClassificationBoth],
		counts[diff.ClassificationNeither])
	_, err := fmt.Fprintln(w, opts.muted(summary))
	return err
}

func styleClass(line string, class diff.Classification, opts Options) string {
	if !opts.Color {
		return line
	}
	switch class {
	case diff.ClassificationOnlyWith:
		return ux.Styles.Success.Render(strings.TrimSuffix(line, "\n")) + "\n"
	case diff.ClassificationOnlyWithout:
		return ux.Styles.Warning.Render(strings.TrimSuffix(line, "\n")) + "\n"
	case diff.ClassificationNeither:
		return ux.Styles.Error.Render(strings.TrimSuffix(line, "\n")) + "\n"
	default:
		return line
	}
}

// FormatConstraint renders a feature constraint as
// "name=true,other=false" with names sorted.
func FormatConstraint(required map[string]bool) string {
	names := make([]string, 0, len(required))
	for name := range required {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s=%t", name, required[name]))
	}
	return strings.Join(parts, ",")
}
