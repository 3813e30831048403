// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package llvmcov parses `llvm-cov export` JSON documents into coverage
// reports.
//
// The parser handles the export envelope only: type and version checks,
// then extraction of per-function region records. Tree assembly and all
// invariant checking happen in the report package, so a stored export can
// always be rebuilt through the same validated path.
//
// Function names pass through verbatim; demangling is left to external
// tooling.
package llvmcov

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"golang.org/x/mod/semver"

	"github.com/AleutianAI/covbuddy/services/coverage/report"
)

// exportType is the envelope type llvm-cov writes.
const exportType = "llvm.coverage.json.export"

// supportedMajor is the export format major version this parser accepts.
const supportedMajor = "v2"

// export mirrors the llvm-cov JSON envelope. Fields the core never
// consumes (segments, summaries, branch details) are left undecoded.
type export struct {
	Type    string       `json:"type"`
	Version string       `json:"version"`
	Data    []exportData `json:"data"`
}

type exportData struct {
	Functions []exportFunction `json:"functions"`
}

type exportFunction struct {
	Name      string    `json:"name"`
	Count     int64     `json:"count"`
	Regions   [][]int64 `json:"regions"`
	Filenames []string  `json:"filenames"`
}

// Result is a parsed export: the assembled report plus the raw records
// it was built from, so callers can persist the records and rebuild the
// report later through the validated path.
type Result struct {
	Report  *report.CoverageReport
	Records []report.FunctionRecords
}

// Parse reads one llvm-cov export document from r.
//
// # Description
//
// Validates the export envelope (type "llvm.coverage.json.export",
// major version 2), then assembles one coverage report from the first
// data entry's functions. Functions whose records cannot form a valid
// region tree are isolated inside the report (see report.New); envelope
// problems fail the whole parse.
//
// # Inputs
//
//   - r: the JSON document
//
// # Outputs
//
//   - *Result: the report and the raw per-function records
//   - error: ErrNotCoverageExport, ErrUnsupportedVersion,
//     ErrEmptyExport, or a wrapped JSON decode error
//
// # Example
//
//	f, err := os.Open("coverage.json")
//	if err != nil {
//	    return err
//	}
//	defer f.Close()
//	res, err := llvmcov.Parse(f)
//	if err != nil {
//	    return fmt.Errorf("parse export: %w", err)
//	}
//
// Thread Safety: stateless; safe for concurrent use.
func Parse(r io.Reader) (*Result, error) {
	var doc export
	dec := json.NewDecoder(r)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode coverage export: %w", err)
	}

	if doc.Type != exportType {
		return nil, fmt.Errorf("%w: type %q", ErrNotCoverageExport, doc.Type)
	}
	if !semver.IsValid("v"+doc.Version) || semver.Major("v"+doc.Version) != supportedMajor {
		return nil, fmt.Errorf("%w: version %q (want major %s)",
			ErrUnsupportedVersion, doc.Version, supportedMajor)
	}
	if len(doc.Data) == 0 {
		return nil, ErrEmptyExport
	}

	// llvm-cov writes exactly one data entry per export; extra entries
	// would mean a merged document this tool does not produce.
	records := make([]report.FunctionRecords, 0, len(doc.Data[0].Functions))
	for _, fn := range doc.Data[0].Functions {
		records = append(records, report.FunctionRecords{
			Name:      fn.Name,
			Filenames: fn.Filenames,
			Records:   fn.Regions,
		})
	}

	return &Result{
		Report:  report.New(records),
		Records: records,
	}, nil
}

// ParseBytes parses an export held in memory.
func ParseBytes(b []byte) (*Result, error) {
	return Parse(bytes.NewReader(b))
}

// ParseFile parses an export file from disk.
func ParseFile(path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open coverage export: %w", err)
	}
	defer f.Close()

	res, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return res, nil
}
