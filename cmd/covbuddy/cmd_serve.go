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
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"

	"github.com/AleutianAI/covbuddy/services/coverage"
	"github.com/AleutianAI/covbuddy/services/coverage/telemetry"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	servePort  int
	serveDebug bool
)

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the coverage HTTP service",
	Long: `Serve the coverage API over HTTP: ingest, runs, features, configs,
diff, and show, plus health and Prometheus metrics endpoints.

Examples:
  covbuddy serve
  covbuddy serve --port 9000 --debug
  covbuddy serve --config covbuddy.yaml`,
	Args: cobra.NoArgs,
	Run:  runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0,
		"HTTP listen port (default from config, 8742)")
	serveCmd.Flags().BoolVar(&serveDebug, "debug", false,
		"Enable gin debug mode and verbose logging")

	rootCmd.AddCommand(serveCmd)
}

// =============================================================================
// COMMAND IMPLEMENTATION
// =============================================================================

func runServe(cmd *cobra.Command, args []string) {
	ctx := context.Background()

	cfg, err := loadServiceConfig()
	if err != nil {
		fail(err)
	}
	if servePort != 0 {
		cfg.Port = servePort
	}
	if serveDebug {
		cfg.Debug = true
	}

	shutdown, err := telemetry.Init(ctx, cfg.Telemetry)
	if err != nil {
		fail(fmt.Errorf("init telemetry: %w", err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			logger.Warn("Telemetry shutdown failed", "error", err)
		}
	}()

	metrics, err := telemetry.NewMetrics(otel.Meter("covbuddy"))
	if err != nil {
		fail(fmt.Errorf("init metrics: %w", err))
	}

	svc, err := coverage.NewService(cfg)
	if err != nil {
		fail(err)
	}
	defer svc.Close()
	svc.WithLogger(logger.Slog()).WithMetrics(metrics)

	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(cfg.Telemetry.ServiceName))
	router.Use(telemetry.MetricsMiddleware(metrics))

	handlers := coverage.NewHandlers(svc)
	v1 := router.Group("/v1")
	coverage.RegisterRoutes(v1, handlers)
	router.GET("/metrics", gin.WrapH(telemetry.MetricsHandler()))

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Coverage service listening", "addr", addr, "debug", cfg.Debug)
		fmt.Printf("covbuddy %s serving on %s\n", coverage.ServiceVersion, addr)
		fmt.Printf("  API:     http://localhost%s/v1/coverage\n", addr)
		fmt.Printf("  Health:  http://localhost%s/v1/coverage/health\n", addr)
		fmt.Printf("  Metrics: http://localhost%s/metrics\n", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		fail(fmt.Errorf("server error: %w", err))
	case sig := <-quit:
		logger.Info("Shutting down", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Server shutdown failed", "error", err)
	}
	os.Exit(ExitSuccess)
}
