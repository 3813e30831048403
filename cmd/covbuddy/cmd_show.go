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
	showFunction string
	showJSON     bool
)

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

var showCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show a run's region trees",
	Long: `Print a stored run's region trees, one function per tree, with
coverage marks on every node.

Examples:
  covbuddy show 4f7c2a
  covbuddy show 4f7c2a --function parse_input
  covbuddy show 4f7c2a --json`,
	Args: cobra.ExactArgs(1),
	Run:  runShow,
}

func init() {
	showCmd.Flags().StringVar(&showFunction, "function", "",
		"Show only this function's tree")
	showCmd.Flags().BoolVar(&showJSON, "json", false,
		"Output as JSON for scripting")

	rootCmd.AddCommand(showCmd)
}

// =============================================================================
// COMMAND IMPLEMENTATION
// =============================================================================

func runShow(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	id := args[0]

	svc, err := openService()
	if err != nil {
		fail(err)
	}
	defer svc.Close()

	if showJSON {
		resp, err := svc.Show(ctx, id, showFunction)
		if err != nil {
			fail(err)
		}
		printJSON(resp)
		os.Exit(ExitSuccess)
	}

	run, err := svc.Store().Get(ctx, id)
	if err != nil {
		fail(err)
	}
	rep := run.Report()
	opts := renderOptions()

	if showFunction != "" {
		root, ok := rep.RegionFor(showFunction)
		if !ok {
			fail(fmt.Errorf("%w: run %s has no function %q",
				coverage.ErrFunctionNotFound, id, showFunction))
		}
		if err := render.Tree(os.Stdout, showFunction, root, opts); err != nil {
			fail(err)
		}
		os.Exit(ExitSuccess)
	}

	if err := render.Report(os.Stdout, rep, opts); err != nil {
		fail(err)
	}
	os.Exit(ExitSuccess)
}
