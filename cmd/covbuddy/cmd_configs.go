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

	"github.com/AleutianAI/covbuddy/pkg/ux"
	"github.com/AleutianAI/covbuddy/services/coverage/render"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	configsFeatures []string
	configsJSON     bool
)

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

var configsCmd = &cobra.Command{
	Use:   "configs",
	Short: "Partition stored configurations by a constraint",
	Long: `Show which stored configurations satisfy a feature constraint and
which do not. With no constraint, every configuration matches.

Examples:
  covbuddy configs
  covbuddy configs --feature slow
  covbuddy configs --feature slow --feature header=false`,
	Args: cobra.NoArgs,
	Run:  runConfigs,
}

func init() {
	configsCmd.Flags().StringArrayVarP(&configsFeatures, "feature", "f", nil,
		"Constraint entry, repeatable: name, name=true, or name=false")
	configsCmd.Flags().BoolVar(&configsJSON, "json", false,
		"Output as JSON for scripting")
	rootCmd.AddCommand(configsCmd)
}

// =============================================================================
// COMMAND IMPLEMENTATION
// =============================================================================

func runConfigs(cmd *cobra.Command, args []string) {
	constraint, err := parseFeatureFlags(configsFeatures)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ExitValidation)
	}

	svc, err := openService()
	if err != nil {
		fail(err)
	}
	defer svc.Close()

	resp, err := svc.Configs(context.Background(), constraint)
	if err != nil {
		fail(err)
	}

	if configsJSON {
		printJSON(resp)
		os.Exit(ExitSuccess)
	}

	if len(constraint) > 0 {
		ux.Title(fmt.Sprintf("constraint %s", render.FormatConstraint(constraint)))
	}
	fmt.Printf("with (%d):\n", len(resp.With))
	for _, fs := range resp.With {
		fmt.Printf("  %s\n", render.FormatConstraint(fs))
	}
	fmt.Printf("without (%d):\n", len(resp.Without))
	for _, fs := range resp.Without {
		fmt.Printf("  %s\n", render.FormatConstraint(fs))
	}
	os.Exit(ExitSuccess)
}
