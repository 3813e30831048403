// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package llvmcov

import "errors"

var (
	// ErrNotCoverageExport indicates the document is valid JSON but not
	// an llvm-cov export (wrong or missing "type" field).
	ErrNotCoverageExport = errors.New("not an llvm-cov coverage export")

	// ErrUnsupportedVersion indicates an export whose major version is
	// not the supported one.
	ErrUnsupportedVersion = errors.New("unsupported coverage export version")

	// ErrEmptyExport indicates an export with no data entries.
	ErrEmptyExport = errors.New("coverage export has no data")
)
