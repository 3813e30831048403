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
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/covbuddy/pkg/ux"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var runsJSON bool

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List stored runs",
	Long: `List every stored run in insertion order: ID, label, creation
time, enabled features, and region stats.

Examples:
  covbuddy runs
  covbuddy runs --json
  covbuddy runs delete 4f7c2a`,
	Args: cobra.NoArgs,
	Run:  runRuns,
}

var runsDeleteCmd = &cobra.Command{
	Use:   "delete <run-id>",
	Short: "Delete a stored run",
	Long: `Delete a run by ID. The run's configuration becomes available
again for a future ingest.`,
	Args: cobra.ExactArgs(1),
	Run:  runRunsDelete,
}

func init() {
	runsCmd.Flags().BoolVar(&runsJSON, "json", false,
		"Output as JSON for scripting")

	runsCmd.AddCommand(runsDeleteCmd)
	rootCmd.AddCommand(runsCmd)
}

// =============================================================================
// COMMAND IMPLEMENTATION
// =============================================================================

func runRuns(cmd *cobra.Command, args []string) {
	svc, err := openService()
	if err != nil {
		fail(err)
	}
	defer svc.Close()

	runs, err := svc.Runs(context.Background())
	if err != nil {
		fail(err)
	}

	if runsJSON {
		printJSON(runs)
		os.Exit(ExitSuccess)
	}
	if len(runs) == 0 {
		ux.Muted("no runs stored")
		os.Exit(ExitSuccess)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tLABEL\tCREATED\tFEATURES\tREGIONS\tCOVERED")
	for _, run := range runs {
		features := strings.Join(run.Features, ",")
		if features == "" {
			features = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\n",
			run.ID, run.Label, run.CreatedAt.Format("2006-01-02 15:04:05"),
			features, run.Stats.Regions, run.Stats.CoveredRegions)
	}
	w.Flush()
	os.Exit(ExitSuccess)
}

func runRunsDelete(cmd *cobra.Command, args []string) {
	svc, err := openService()
	if err != nil {
		fail(err)
	}
	defer svc.Close()

	id := args[0]
	if err := svc.DeleteRun(context.Background(), id); err != nil {
		fail(err)
	}
	ux.Success(fmt.Sprintf("run %s deleted", id))
	os.Exit(ExitSuccess)
}
