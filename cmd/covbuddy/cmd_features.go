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
)

var featuresJSON bool

var featuresCmd = &cobra.Command{
	Use:   "features",
	Short: "List available features",
	Long: `List every feature enabled by at least one stored run, sorted by
name. Only these features may appear in a diff constraint.`,
	Args: cobra.NoArgs,
	Run:  runFeatures,
}

func init() {
	featuresCmd.Flags().BoolVar(&featuresJSON, "json", false,
		"Output as JSON for scripting")
	rootCmd.AddCommand(featuresCmd)
}

func runFeatures(cmd *cobra.Command, args []string) {
	svc, err := openService()
	if err != nil {
		fail(err)
	}
	defer svc.Close()

	features, err := svc.Features(context.Background())
	if err != nil {
		fail(err)
	}

	if featuresJSON {
		printJSON(features)
		os.Exit(ExitSuccess)
	}
	if len(features) == 0 {
		ux.Muted("no features available")
		os.Exit(ExitSuccess)
	}
	for _, name := range features {
		fmt.Println(name)
	}
	os.Exit(ExitSuccess)
}
