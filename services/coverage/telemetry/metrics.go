// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package telemetry

import (
	"fmt"

	"go.opentelemetry.io/otel/metric"
)

// Metrics contains pre-defined metrics for the coverage service.
//
// Description:
//
//	Provides standard counters and histograms for HTTP requests, export
//	ingestion, diff computation, and run-store operations. All metrics
//	use the "coverage_" prefix for consistent naming.
//
// Thread Safety: Safe for concurrent use after creation.
type Metrics struct {
	// --- HTTP Metrics ---

	// HTTPRequestsTotal counts total HTTP requests by method, path, and status.
	HTTPRequestsTotal metric.Int64Counter

	// HTTPRequestDuration records HTTP request duration in seconds.
	HTTPRequestDuration metric.Float64Histogram

	// HTTPActiveRequests tracks currently active HTTP requests.
	HTTPActiveRequests metric.Int64UpDownCounter

	// --- Ingest Metrics ---

	// IngestsTotal counts export ingestions by status.
	IngestsTotal metric.Int64Counter

	// IngestDuration records ingest duration in seconds.
	IngestDuration metric.Float64Histogram

	// RegionsIngested counts region records assembled into trees.
	RegionsIngested metric.Int64Counter

	// --- Diff Metrics ---

	// DiffsTotal counts feature diff computations by status.
	DiffsTotal metric.Int64Counter

	// DiffDuration records diff computation duration in seconds.
	DiffDuration metric.Float64Histogram

	// DiffRegionsClassified counts regions labeled per diff, by classification.
	DiffRegionsClassified metric.Int64Counter

	// --- Store Metrics ---

	// StoreOpsTotal counts run-store operations by op and status.
	StoreOpsTotal metric.Int64Counter

	// StoreOpDuration records run-store operation duration in seconds.
	StoreOpDuration metric.Float64Histogram

	// --- Error Metrics ---

	// ErrorsTotal counts total errors by type and component.
	ErrorsTotal metric.Int64Counter
}

// NewMetrics creates a new Metrics instance with all metrics registered.
//
// Description:
//
//	Registers all pre-defined metrics with the provided meter.
//	Returns an error if any metric registration fails.
//
// Inputs:
//
//	meter - The OTel meter to use for metric registration.
//
// Outputs:
//
//	*Metrics - The metrics instance with all counters and histograms initialized.
//	error - Non-nil if metric registration fails.
//
// Example:
//
//	meter := otel.Meter("coverage")
//	metrics, err := telemetry.NewMetrics(meter)
//	if err != nil {
//	    return fmt.Errorf("create metrics: %w", err)
//	}
//	metrics.IngestsTotal.Add(ctx, 1, ...)
//
// Thread Safety: Safe for concurrent use after creation.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	// --- HTTP Metrics ---
	m.HTTPRequestsTotal, err = meter.Int64Counter(
		"coverage_http_requests_total",
		metric.WithDescription("Total HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create http_requests_total: %w", err)
	}

	m.HTTPRequestDuration, err = meter.Float64Histogram(
		"coverage_http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10),
	)
	if err != nil {
		return nil, fmt.Errorf("create http_request_duration: %w", err)
	}

	m.HTTPActiveRequests, err = meter.Int64UpDownCounter(
		"coverage_http_active_requests",
		metric.WithDescription("Currently active HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create http_active_requests: %w", err)
	}

	// --- Ingest Metrics ---
	m.IngestsTotal, err = meter.Int64Counter(
		"coverage_ingests_total",
		metric.WithDescription("Total export ingestions"),
		metric.WithUnit("{ingest}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create ingests_total: %w", err)
	}

	m.IngestDuration, err = meter.Float64Histogram(
		"coverage_ingest_duration_seconds",
		metric.WithDescription("Export ingest duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10),
	)
	if err != nil {
		return nil, fmt.Errorf("create ingest_duration: %w", err)
	}

	m.RegionsIngested, err = meter.Int64Counter(
		"coverage_regions_ingested_total",
		metric.WithDescription("Total region records assembled into trees"),
		metric.WithUnit("{region}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create regions_ingested: %w", err)
	}

	// --- Diff Metrics ---
	m.DiffsTotal, err = meter.Int64Counter(
		"coverage_diffs_total",
		metric.WithDescription("Total feature diff computations"),
		metric.WithUnit("{diff}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create diffs_total: %w", err)
	}

	m.DiffDuration, err = meter.Float64Histogram(
		"coverage_diff_duration_seconds",
		metric.WithDescription("Feature diff computation duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1),
	)
	if err != nil {
		return nil, fmt.Errorf("create diff_duration: %w", err)
	}

	m.DiffRegionsClassified, err = meter.Int64Counter(
		"coverage_diff_regions_classified_total",
		metric.WithDescription("Total regions classified by feature diffs"),
		metric.WithUnit("{region}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create diff_regions_classified: %w", err)
	}

	// --- Store Metrics ---
	m.StoreOpsTotal, err = meter.Int64Counter(
		"coverage_store_ops_total",
		metric.WithDescription("Total run-store operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create store_ops_total: %w", err)
	}

	m.StoreOpDuration, err = meter.Float64Histogram(
		"coverage_store_op_duration_seconds",
		metric.WithDescription("Run-store operation duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1),
	)
	if err != nil {
		return nil, fmt.Errorf("create store_op_duration: %w", err)
	}

	// --- Error Metrics ---
	m.ErrorsTotal, err = meter.Int64Counter(
		"coverage_errors_total",
		metric.WithDescription("Total errors by type and component"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create errors_total: %w", err)
	}

	return m, nil
}
