// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package validation provides input validation utilities for user-provided
// identifiers.
//
// Feature names arrive from CLI flags, run matrix files, and HTTP request
// bodies, and end up in store keys and rendered reports. Validating them at
// the boundary keeps malformed or hostile names out of the store.
package validation

import (
	"fmt"
	"regexp"
	"strings"
)

// featurePattern matches valid feature names.
// Allows: lowercase letters, digits, underscores and hyphens between them.
// Must start with a letter. Max length: 64 characters.
var featurePattern = regexp.MustCompile(`^[a-z][a-z0-9_\-]{0,63}$`)

// ValidateFeatureName validates a single feature name.
//
// Valid names:
//   - 1-64 characters
//   - start with a lowercase letter a-z
//   - continue with lowercase letters, digits, underscores, or hyphens
//
// Returns an error if the name is invalid.
//
// Example:
//
//	if err := validation.ValidateFeatureName(name); err != nil {
//	    return fmt.Errorf("invalid feature: %w", err)
//	}
func ValidateFeatureName(name string) error {
	if name == "" {
		return fmt.Errorf("feature name cannot be empty")
	}

	if !featurePattern.MatchString(name) {
		return fmt.Errorf("invalid feature name: %q (must be 1-64 chars, lowercase letter first, then lowercase alphanumerics, underscores, or hyphens)", name)
	}

	return nil
}

// ValidateFeatureNames validates multiple feature names.
// Returns an error listing all invalid names if any fail validation.
func ValidateFeatureNames(names []string) error {
	var invalid []string
	for _, n := range names {
		if err := ValidateFeatureName(n); err != nil {
			invalid = append(invalid, n)
		}
	}

	if len(invalid) > 0 {
		return fmt.Errorf("invalid feature names: %v", invalid)
	}
	return nil
}

// SanitizeFeatureName normalizes and validates a feature name.
// Returns the lowercase name if valid, or an error if invalid.
//
// Use this when accepting names from interactive input:
//
//	safeName, err := validation.SanitizeFeatureName(userInput)
//	if err != nil {
//	    return err
//	}
//	// safeName is lowercase and validated
func SanitizeFeatureName(name string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	if err := ValidateFeatureName(normalized); err != nil {
		return "", err
	}
	return normalized, nil
}
