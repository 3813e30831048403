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
	"github.com/AleutianAI/covbuddy/services/coverage"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	ingestLabel    string
	ingestFeatures []string
	ingestMatrix   string
	ingestJobs     int
	ingestJSON     bool
)

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

var ingestCmd = &cobra.Command{
	Use:   "ingest [export.json]",
	Short: "Ingest llvm-cov exports as runs",
	Long: `Ingest one llvm-cov JSON export as a run, or a whole matrix of
exports described by a YAML file.

A run pairs an export with a feature configuration. Two runs may not
share the same configuration; features absent from --feature are
treated as disabled.

Examples:
  covbuddy ingest build/slow.json --feature slow
  covbuddy ingest build/base.json --label baseline
  covbuddy ingest build/full.json --feature slow --feature header=false
  covbuddy ingest --matrix exports/matrix.yaml --jobs 8`,
	Args: cobra.MaximumNArgs(1),
	Run:  runIngest,
}

func init() {
	ingestCmd.Flags().StringVarP(&ingestLabel, "label", "l", "",
		"Human-readable run label (default: export basename)")
	ingestCmd.Flags().StringArrayVarP(&ingestFeatures, "feature", "f", nil,
		"Feature toggle, repeatable: name, name=true, or name=false")
	ingestCmd.Flags().StringVarP(&ingestMatrix, "matrix", "m", "",
		"Ingest every run of a matrix YAML file")
	ingestCmd.Flags().IntVarP(&ingestJobs, "jobs", "j", 0,
		"Parallel export parses for matrix ingest (0 = default)")
	ingestCmd.Flags().BoolVar(&ingestJSON, "json", false,
		"Output as JSON for scripting")

	rootCmd.AddCommand(ingestCmd)
}

// =============================================================================
// COMMAND IMPLEMENTATION
// =============================================================================

func runIngest(cmd *cobra.Command, args []string) {
	ctx := context.Background()

	if ingestMatrix != "" && len(args) > 0 {
		fail(fmt.Errorf("pass either an export file or --matrix, not both"))
	}
	if ingestMatrix == "" && len(args) == 0 {
		fail(fmt.Errorf("an export file or --matrix is required"))
	}

	svc, err := openService()
	if err != nil {
		fail(err)
	}
	defer svc.Close()

	if ingestMatrix != "" {
		runMatrixIngest(ctx, svc)
		return
	}

	features, err := parseFeatureFlags(ingestFeatures)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ExitValidation)
	}

	resp, err := svc.IngestFile(ctx, ingestLabel, features, args[0])
	if err != nil {
		fail(err)
	}
	reportIngest(args[0], resp)
	os.Exit(ExitSuccess)
}

func runMatrixIngest(ctx context.Context, svc *coverage.Service) {
	responses, err := svc.IngestMatrix(ctx, ingestMatrix, ingestJobs)
	if err != nil {
		fail(err)
	}
	if ingestJSON {
		printJSON(responses)
		os.Exit(ExitSuccess)
	}
	for _, resp := range responses {
		reason := fmt.Sprintf("%d regions", resp.Stats.Regions)
		icon := ux.IconSuccess
		if len(resp.Malformed) > 0 {
			icon = ux.IconWarning
			reason = fmt.Sprintf("%d regions, %d malformed functions", resp.Stats.Regions, len(resp.Malformed))
		}
		ux.FileStatus(resp.Label, icon, reason)
	}
	ux.Success(fmt.Sprintf("%d runs ingested", len(responses)))
	os.Exit(ExitSuccess)
}

func reportIngest(path string, resp *coverage.IngestResponse) {
	if ingestJSON {
		printJSON(resp)
		return
	}
	ux.Success(fmt.Sprintf("run %s ingested from %s", resp.RunID, path))
	ux.Info(fmt.Sprintf("configuration: %s", formatFeatureList(resp.Features)))
	ux.Info(fmt.Sprintf("functions: %d, regions: %d, covered: %d",
		resp.Stats.Functions, resp.Stats.Regions, resp.Stats.CoveredRegions))
	for name, reason := range resp.Malformed {
		ux.Warning(fmt.Sprintf("malformed function %s isolated: %s", name, reason))
	}
}

func formatFeatureList(features []string) string {
	if len(features) == 0 {
		return "(no features enabled)"
	}
	out := ""
	for i, f := range features {
		if i > 0 {
			out += ", "
		}
		out += f
	}
	return out
}
