// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/AleutianAI/covbuddy/services/coverage"
	"github.com/AleutianAI/covbuddy/services/coverage/diff"
	"github.com/AleutianAI/covbuddy/services/coverage/llvmcov"
	"github.com/AleutianAI/covbuddy/services/coverage/region"
	"github.com/AleutianAI/covbuddy/services/coverage/render"
	storage "github.com/AleutianAI/covbuddy/services/coverage/storage/badger"
)

// printJSON writes v to stdout as indented JSON.
func printJSON(v any) {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
		os.Exit(ExitError)
	}
}

// fail prints the error and exits with a code matching its class:
// validation problems exit 2, everything else exits 1.
func fail(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(exitCodeFor(err))
}

func exitCodeFor(err error) int {
	switch {
	case errors.Is(err, coverage.ErrInvalidFeatureName),
		errors.Is(err, coverage.ErrEmptyMatrix),
		errors.Is(err, region.ErrMalformedReport),
		errors.Is(err, llvmcov.ErrNotCoverageExport),
		errors.Is(err, llvmcov.ErrUnsupportedVersion),
		errors.Is(err, llvmcov.ErrEmptyExport),
		errors.Is(err, diff.ErrEmptyConstraint),
		errors.Is(err, diff.ErrUnknownFeature),
		errors.Is(err, diff.ErrEmptyPartition),
		errors.Is(err, diff.ErrDuplicateConfiguration),
		errors.Is(err, storage.ErrRunNotFound),
		errors.Is(err, coverage.ErrFunctionNotFound):
		return ExitValidation
	default:
		return ExitError
	}
}

// renderOptions resolves the effective render options for stdout.
func renderOptions() render.Options {
	opts := render.AutoOptions(os.Stdout)
	if flagNoColor || flagQuiet {
		opts.Color = false
	}
	return opts
}
