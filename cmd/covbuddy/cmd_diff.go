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
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/covbuddy/services/coverage"
	"github.com/AleutianAI/covbuddy/services/coverage/render"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	diffFeatures []string
	diffFunction string
	diffClass    string
	diffJSON     bool
)

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

var diffCmd = &cobra.Command{
	Use:   "diff",
	Short: "Diff coverage across a feature constraint",
	Long: `Partition the stored runs by a feature constraint and classify
every known region: only_with (covered only when the constraint holds),
only_without, both, or neither. Both sides of the partition must be
non-empty.

Examples:
  covbuddy diff --feature slow
  covbuddy diff --feature slow --feature header=false
  covbuddy diff --feature slow --function parse_input
  covbuddy diff --feature slow --class only_with --json`,
	Args: cobra.NoArgs,
	Run:  runDiff,
}

func init() {
	diffCmd.Flags().StringArrayVarP(&diffFeatures, "feature", "f", nil,
		"Constraint entry, repeatable: name, name=true, or name=false (required)")
	diffCmd.Flags().StringVar(&diffFunction, "function", "",
		"Limit the region listing to one function")
	diffCmd.Flags().StringVar(&diffClass, "class", "",
		"Limit JSON output to one classification: only_with, only_without, both, neither")
	diffCmd.Flags().BoolVar(&diffJSON, "json", false,
		"Output as JSON for scripting")
	diffCmd.MarkFlagRequired("feature")

	rootCmd.AddCommand(diffCmd)
}

// =============================================================================
// COMMAND IMPLEMENTATION
// =============================================================================

func runDiff(cmd *cobra.Command, args []string) {
	constraint, err := parseFeatureFlags(diffFeatures)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ExitValidation)
	}
	if diffClass != "" && !validDiffClass(diffClass) {
		fmt.Fprintf(os.Stderr, "Error: unknown classification %q\n", diffClass)
		os.Exit(ExitValidation)
	}

	svc, err := openService()
	if err != nil {
		fail(err)
	}
	defer svc.Close()

	result, err := svc.Diff(context.Background(), constraint)
	if err != nil {
		fail(err)
	}

	if diffJSON {
		printJSON(coverage.NewDiffResponse(result, diffFunction, diffClass))
		os.Exit(ExitSuccess)
	}
	if err := render.Diff(os.Stdout, result, diffFunction, renderOptions()); err != nil {
		fail(err)
	}
	os.Exit(ExitSuccess)
}

func validDiffClass(class string) bool {
	switch class {
	case "only_with", "only_without", "both", "neither":
		return true
	}
	return false
}
