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
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/covbuddy/pkg/logging"
	"github.com/AleutianAI/covbuddy/pkg/ux"
	"github.com/AleutianAI/covbuddy/services/coverage"
)

// =============================================================================
// EXIT CODES
// =============================================================================

// Exit codes follow sysexits-style conventions: validation problems are
// distinguishable from runtime failures for CI scripting.
const (
	ExitSuccess    = 0
	ExitError      = 1
	ExitValidation = 2
)

// =============================================================================
// GLOBAL FLAGS
// =============================================================================

var (
	flagConfig   string
	flagStore    string
	flagQuiet    bool
	flagNoColor  bool
	flagLogLevel string
	flagLogDir   string
)

var logger *logging.Logger

var rootCmd = &cobra.Command{
	Use:   "covbuddy",
	Short: "Configuration-partitioned code coverage analysis",
	Long: `Covbuddy ingests llvm-cov JSON exports, one per build configuration,
and diffs coverage between configurations that enable a feature and
those that do not. Regions covered on only one side expose code that
is exercised exclusively under that feature.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "",
		"Path to a covbuddy config file (YAML)")
	rootCmd.PersistentFlags().StringVar(&flagStore, "store", "",
		"Run store directory (default ~/.covbuddy/store)")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false,
		"Machine-readable output, no styling")
	rootCmd.PersistentFlags().BoolVar(&flagNoColor, "no-color", false,
		"Disable colored output")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "warn",
		"Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&flagLogDir, "log-dir", "",
		"Directory for JSON log files (in addition to stderr)")

	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		ux.InitPersonality()
		if flagQuiet {
			ux.SetPersonalityLevel(ux.PersonalityMachine)
		} else if flagNoColor {
			ux.SetPersonalityLevel(ux.PersonalityMinimal)
		}

		logger = logging.New(logging.Config{
			Level:   parseLogLevel(flagLogLevel),
			Service: "covbuddy",
			LogDir:  flagLogDir,
			Quiet:   flagQuiet,
		})
	}
}

func parseLogLevel(s string) logging.Level {
	switch strings.ToLower(s) {
	case "debug":
		return logging.LevelDebug
	case "info":
		return logging.LevelInfo
	case "error":
		return logging.LevelError
	default:
		return logging.LevelWarn
	}
}

// loadServiceConfig resolves the effective service configuration from
// the config file (when given) and global flags.
func loadServiceConfig() (coverage.ServiceConfig, error) {
	cfg := coverage.DefaultServiceConfig()
	if flagConfig != "" {
		loaded, err := coverage.LoadServiceConfig(flagConfig)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}
	if flagStore != "" {
		cfg.StorePath = flagStore
	}
	return cfg, nil
}

// openService opens the run store for one CLI invocation. The caller
// must Close the returned service.
func openService() (*coverage.Service, error) {
	cfg, err := loadServiceConfig()
	if err != nil {
		return nil, err
	}
	svc, err := coverage.NewService(cfg)
	if err != nil {
		return nil, err
	}
	return svc.WithLogger(logger.Slog()), nil
}

// parseFeatureFlags converts repeated --feature values to a feature
// map. Accepted forms: "name" (enabled), "name=true", "name=false".
func parseFeatureFlags(values []string) (map[string]bool, error) {
	if len(values) == 0 {
		return nil, nil
	}
	features := make(map[string]bool, len(values))
	for _, v := range values {
		name, value, found := strings.Cut(v, "=")
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("empty feature name in %q", v)
		}
		if !found {
			features[name] = true
			continue
		}
		switch strings.ToLower(strings.TrimSpace(value)) {
		case "true", "1", "on", "yes":
			features[name] = true
		case "false", "0", "off", "no":
			features[name] = false
		default:
			return nil, fmt.Errorf("feature %q: value %q is not a boolean", name, value)
		}
	}
	return features, nil
}
