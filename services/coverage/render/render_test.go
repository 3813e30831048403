// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package render

import (
	"bytes"
	"strings"
	"testing"

	"github.com/AleutianAI/covbuddy/services/coverage/diff"
	"github.com/AleutianAI/covbuddy/services/coverage/report"
)

// testReport builds a report with one function whose slow and fast
// branches carry the given counts.
func testReport(t *testing.T, slowCount, fastCount int64) *report.CoverageReport {
	t.Helper()
	rep := report.New([]report.FunctionRecords{{
		Name:      "main",
		Filenames: []string{"main.c"},
		Records: [][]int64{
			{1, 1, 100, 1, 1},
			{10, 1, 20, 1, slowCount},
			{30, 1, 40, 1, fastCount},
		},
	}})
	if len(rep.Malformed()) != 0 {
		t.Fatalf("unexpected malformed functions: %v", rep.Malformed())
	}
	return rep
}

func testDiff(t *testing.T) *diff.FeatureCoverageDiff {
	t.Helper()
	mapping, err := diff.NewReportMapping([]diff.Entry{
		{Config: diff.NewConfiguration(nil), Report: testReport(t, 0, 1)},
		{Config: diff.NewConfiguration(map[string]bool{"slow": true}), Report: testReport(t, 1, 0)},
	})
	if err != nil {
		t.Fatalf("NewReportMapping() error = %v", err)
	}
	d, err := mapping.Diff(map[string]bool{"slow": true})
	if err != nil {
		t.Fatalf("Diff() error = %v", err)
	}
	return d
}

func TestTree_Plain(t *testing.T) {
	rep := testReport(t, 0, 1)
	root, ok := rep.RegionFor("main")
	if !ok {
		t.Fatal("main missing")
	}

	var buf bytes.Buffer
	if err := Tree(&buf, "main", root, Options{}); err != nil {
		t.Fatalf("Tree() error = %v", err)
	}

	want := "main\n" +
		"  ✓ 1:1-100:1 code count=1\n" +
		"    ✗ 10:1-20:1 code count=0\n" +
		"    ✓ 30:1-40:1 code count=1\n"
	if got := buf.String(); got != want {
		t.Errorf("Tree() output:\n%s\nwant:\n%s", got, want)
	}
}

func TestReport_Plain(t *testing.T) {
	rep := testReport(t, 1, 1)

	var buf bytes.Buffer
	if err := Report(&buf, rep, Options{}); err != nil {
		t.Fatalf("Report() error = %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "main\n") {
		t.Error("output missing function header")
	}
	if !strings.Contains(out, "functions=1 malformed=0 regions=3 covered=3") {
		t.Errorf("output missing stats line:\n%s", out)
	}
}

func TestReport_ListsMalformed(t *testing.T) {
	rep := report.New([]report.FunctionRecords{
		{
			Name:      "good",
			Filenames: []string{"a.c"},
			Records:   [][]int64{{1, 1, 10, 1, 1}},
		},
		{
			Name:      "bad",
			Filenames: []string{"a.c"},
			Records: [][]int64{
				{1, 1, 10, 1, 1},
				{2, 1, 5, 1, 1},
				{2, 1, 5, 1, 1}, // duplicate span
			},
		},
	})

	var buf bytes.Buffer
	if err := Report(&buf, rep, Options{}); err != nil {
		t.Fatalf("Report() error = %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "malformed functions:") {
		t.Errorf("output missing malformed section:\n%s", out)
	}
	if !strings.Contains(out, "bad:") {
		t.Errorf("output missing malformed function name:\n%s", out)
	}
}

func TestSummary_Plain(t *testing.T) {
	var buf bytes.Buffer
	stats := report.Stats{Functions: 2, MalformedFunctions: 1, Regions: 5, CoveredRegions: 3}
	if err := Summary(&buf, stats, Options{}); err != nil {
		t.Fatalf("Summary() error = %v", err)
	}
	want := "functions=2 malformed=1 regions=5 covered=3\n"
	if got := buf.String(); got != want {
		t.Errorf("Summary() = %q, want %q", got, want)
	}
}

func TestDiff_Plain(t *testing.T) {
	d := testDiff(t)

	var buf bytes.Buffer
	if err := Diff(&buf, d, "", Options{}); err != nil {
		t.Fatalf("Diff() error = %v", err)
	}

	want := "diff slow=true\n" +
		"with=1 without=1 configurations\n" +
		"only_with:\n" +
		"  main 10:1-20:1\n" +
		"only_without:\n" +
		"  main 30:1-40:1\n" +
		"both:\n" +
		"  main 1:1-100:1\n" +
		"only_with=1 only_without=1 both=1 neither=0\n"
	if got := buf.String(); got != want {
		t.Errorf("Diff() output:\n%s\nwant:\n%s", got, want)
	}
}

func TestDiff_FunctionFilter(t *testing.T) {
	d := testDiff(t)

	var buf bytes.Buffer
	if err := Diff(&buf, d, "no_such_fn", Options{}); err != nil {
		t.Fatalf("Diff() error = %v", err)
	}

	out := buf.String()
	if strings.Contains(out, "main ") {
		t.Errorf("filtered output still lists main:\n%s", out)
	}
	// Counts summarize the whole diff regardless of the filter.
	if !strings.Contains(out, "only_with=1") {
		t.Errorf("output missing counts line:\n%s", out)
	}
}

func TestFormatConstraint(t *testing.T) {
	tests := []struct {
		in   map[string]bool
		want string
	}{
		{map[string]bool{"slow": true}, "slow=true"},
		{map[string]bool{"slow": true, "header": false}, "header=false,slow=true"},
		{nil, ""},
	}
	for _, tt := range tests {
		if got := FormatConstraint(tt.in); got != tt.want {
			t.Errorf("FormatConstraint(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTree_ColorStable(t *testing.T) {
	rep := testReport(t, 0, 1)
	root, _ := rep.RegionFor("main")

	var plain, colored bytes.Buffer
	if err := Tree(&plain, "main", root, Options{}); err != nil {
		t.Fatal(err)
	}
	if err := Tree(&colored, "main", root, Options{Color: true}); err != nil {
		t.Fatal(err)
	}

	// Same number of lines either way; styling never adds or drops rows.
	if pl, cl := strings.Count(plain.String(), "\n"), strings.Count(colored.String(), "\n"); pl != cl {
		t.Errorf("line counts differ: plain=%d colored=%d", pl, cl)
	}
}
