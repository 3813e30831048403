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

import "errors"

var (
	// ErrMalformedReport indicates coverage data that cannot be reconciled
	// with the tree built so far: a truncated record, a span that ends
	// before it starts, a duplicate span, or a partial overlap between
	// sibling regions. It is a non-retryable input validation error.
	ErrMalformedReport = errors.New("malformed coverage report")
)
