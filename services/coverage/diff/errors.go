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

import "errors"

var (
	// ErrDuplicateConfiguration indicates two runs registered under the
	// same configuration. Configurations are identified by their enabled
	// feature set, so {} and {slow: false} collide.
	ErrDuplicateConfiguration = errors.New("duplicate configuration")

	// ErrUnknownFeature indicates a constraint naming a feature that is
	// not enabled in any stored configuration.
	ErrUnknownFeature = errors.New("unknown feature")

	// ErrEmptyConstraint indicates a diff request without any feature
	// constraints; an unconstrained diff has nothing to compare.
	ErrEmptyConstraint = errors.New("empty constraint")

	// ErrEmptyPartition indicates a constraint matched either every
	// stored configuration or none of them, leaving one diff side
	// without data.
	ErrEmptyPartition = errors.New("empty partition")
)
