// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package coverage

import "errors"

var (
	// ErrNoExportSource indicates an ingest request carrying neither an
	// inline export nor an export path.
	ErrNoExportSource = errors.New("ingest needs an inline export or an export path")

	// ErrAmbiguousExportSource indicates an ingest request carrying both
	// an inline export and an export path.
	ErrAmbiguousExportSource = errors.New("ingest accepts either an inline export or an export path, not both")

	// ErrEmptyMatrix indicates a run matrix with no entries.
	ErrEmptyMatrix = errors.New("run matrix has no entries")

	// ErrInvalidFeatureName indicates a feature name rejected by the
	// validation rules.
	ErrInvalidFeatureName = errors.New("invalid feature name")

	// ErrFunctionNotFound indicates a show request naming a function the
	// run's report does not contain.
	ErrFunctionNotFound = errors.New("function not found")
)
