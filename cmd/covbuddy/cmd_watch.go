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
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/covbuddy/pkg/ux"
	"github.com/AleutianAI/covbuddy/services/coverage"
	"github.com/AleutianAI/covbuddy/services/coverage/watch"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	watchDir      string
	watchMatrix   string
	watchDebounce time.Duration
)

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Auto-ingest exports as they are written",
	Long: `Watch a directory for llvm-cov JSON exports and re-ingest each one
as it is created or rewritten. A rewritten export replaces the stored
run holding the same configuration.

With --matrix, changed exports are matched against the matrix entries
to recover their labels and feature assignments; exports not listed in
the matrix are ingested with no features enabled.

Examples:
  covbuddy watch --dir build/exports
  covbuddy watch --dir build/exports --matrix exports/matrix.yaml
  covbuddy watch --dir build/exports --debounce 2s`,
	Args: cobra.NoArgs,
	Run:  runWatch,
}

func init() {
	watchCmd.Flags().StringVarP(&watchDir, "dir", "d", "",
		"Directory to watch for exports (default from config)")
	watchCmd.Flags().StringVarP(&watchMatrix, "matrix", "m", "",
		"Matrix YAML mapping exports to feature assignments")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 0,
		"Quiet period before a change batch is ingested (default 500ms)")

	rootCmd.AddCommand(watchCmd)
}

// =============================================================================
// COMMAND IMPLEMENTATION
// =============================================================================

func runWatch(cmd *cobra.Command, args []string) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := loadServiceConfig()
	if err != nil {
		fail(err)
	}
	if watchDir == "" {
		watchDir = cfg.Watch.Dir
	}
	if watchDir == "" {
		fmt.Fprintln(os.Stderr, "Error: --dir is required (or watch.dir in the config file)")
		os.Exit(ExitValidation)
	}
	if watchMatrix == "" {
		watchMatrix = cfg.Watch.Matrix
	}
	if watchDebounce == 0 {
		watchDebounce = cfg.Watch.Debounce
	}

	entries, err := loadMatrixEntries(watchMatrix)
	if err != nil {
		fail(err)
	}

	svc, err := openService()
	if err != nil {
		fail(err)
	}
	defer svc.Close()

	handler := func(changes []watch.ExportChange) {
		for _, change := range changes {
			if change.Op != watch.ExportOpCreate && change.Op != watch.ExportOpWrite {
				continue
			}
			label, features := resolveExportRun(entries, change.Path)
			resp, err := svc.Refresh(ctx, label, features, change.Path)
			if err != nil {
				ux.FileStatus(change.Path, ux.IconError, err.Error())
				continue
			}
			ux.FileStatus(change.Path, ux.IconSuccess,
				fmt.Sprintf("run %s, %d regions", resp.RunID, resp.Stats.Regions))
		}
	}

	opts := watch.DefaultOptions()
	if watchDebounce > 0 {
		opts.Debounce = watchDebounce
	}
	watcher, err := watch.New(watchDir, handler, &opts)
	if err != nil {
		fail(err)
	}
	defer watcher.Stop()

	if err := watcher.Start(ctx); err != nil {
		fail(err)
	}
	ux.Info(fmt.Sprintf("watching %s (debounce %s), press Ctrl-C to stop",
		watchDir, opts.Debounce))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	os.Exit(ExitSuccess)
}

// exportRun pairs one matrix entry's identity with its resolved export
// path for change matching.
type exportRun struct {
	label    string
	features map[string]bool
}

// loadMatrixEntries builds a resolved-path index over a matrix file.
// An empty path yields an empty index.
func loadMatrixEntries(path string) (map[string]exportRun, error) {
	if path == "" {
		return nil, nil
	}
	matrix, err := coverage.LoadMatrix(path)
	if err != nil {
		return nil, err
	}
	entries := make(map[string]exportRun, len(matrix.Runs))
	for _, entry := range matrix.Runs {
		label := entry.Label
		if label == "" {
			label = filepath.Base(entry.Export)
		}
		resolved, err := filepath.Abs(matrix.ResolveExport(entry))
		if err != nil {
			return nil, err
		}
		entries[resolved] = exportRun{label: label, features: entry.Features}
	}
	return entries, nil
}

// resolveExportRun matches a changed path against the matrix index. An
// unmatched export falls back to its basename with no features.
func resolveExportRun(entries map[string]exportRun, path string) (string, map[string]bool) {
	abs, err := filepath.Abs(path)
	if err == nil {
		if run, ok := entries[abs]; ok {
			return run.label, run.features
		}
	}
	return filepath.Base(path), nil
}
