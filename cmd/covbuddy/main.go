// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command covbuddy analyzes configuration-partitioned code coverage.
//
// Covbuddy ingests llvm-cov JSON exports, one per build configuration,
// and answers which code regions are exercised only when a given
// feature is enabled, only when it is disabled, by both sides, or by
// neither.
//
// Usage:
//
//	covbuddy ingest build/slow.json --feature slow
//	covbuddy ingest --matrix exports/matrix.yaml
//	covbuddy runs
//	covbuddy diff --feature slow
//	covbuddy show <run-id> --function main
//	covbuddy serve --port 8742
//	covbuddy watch --dir exports --matrix exports/matrix.yaml
package main

import (
	"fmt"
	"os"
)

func main() {
	err := rootCmd.Execute()
	if logger != nil {
		logger.Close()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ExitError)
	}
}
