// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package coverage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/AleutianAI/covbuddy/pkg/validation"
	"github.com/AleutianAI/covbuddy/services/coverage/diff"
	"github.com/AleutianAI/covbuddy/services/coverage/llvmcov"
	storage "github.com/AleutianAI/covbuddy/services/coverage/storage/badger"
	"github.com/AleutianAI/covbuddy/services/coverage/telemetry"
)

// tracerName is the tracer identity for service operations.
const tracerName = "coverage.service"

// Service wires the run store, the export parser, and the diff engine
// behind one API used by both the CLI and the HTTP handlers.
//
// Thread Safety: safe for concurrent use; state lives in the store.
type Service struct {
	cfg     ServiceConfig
	db      *storage.DB
	store   *storage.RunStore
	logger  *slog.Logger
	metrics *telemetry.Metrics
}

// NewService opens the run store described by the configuration.
//
// # Description
//
// Resolves the store path (with ~ expansion), opens BadgerDB, and wraps
// it in a RunStore. Close must be called on shutdown.
//
// # Example
//
//	svc, err := coverage.NewService(coverage.DefaultServiceConfig())
//	if err != nil {
//	    return fmt.Errorf("open coverage service: %w", err)
//	}
//	defer svc.Close()
func NewService(cfg ServiceConfig) (*Service, error) {
	storeCfg := storage.DefaultConfig()
	if cfg.InMemory {
		storeCfg = storage.InMemoryConfig()
	} else {
		path, err := cfg.ExpandedStorePath()
		if err != nil {
			return nil, err
		}
		storeCfg.Path = path
	}

	db, err := storage.OpenDB(storeCfg)
	if err != nil {
		return nil, fmt.Errorf("open run store: %w", err)
	}
	store, err := storage.NewRunStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Service{
		cfg:    cfg,
		db:     db,
		store:  store,
		logger: slog.Default(),
	}, nil
}

// WithLogger sets the service logger.
func (s *Service) WithLogger(logger *slog.Logger) *Service {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithMetrics sets the telemetry metrics recorded by service
// operations. Nil metrics disable recording.
func (s *Service) WithMetrics(m *telemetry.Metrics) *Service {
	s.metrics = m
	return s
}

// Store exposes the underlying run store (used by the CLI and the
// watcher).
func (s *Service) Store() *storage.RunStore {
	return s.store
}

// Close releases the run store.
func (s *Service) Close() error {
	return s.db.Close()
}

// Ingest parses one llvm-cov export and stores it as a run.
//
// # Description
//
// Feature names are validated first, then the export is parsed and the
// run stored under its configuration. Functions the parser had to
// isolate as malformed are reported in the response but do not fail the
// ingest; envelope problems and duplicate configurations do.
//
// # Outputs
//
//   - *IngestResponse: the stored run's ID, features, and stats
//   - error: ErrInvalidFeatureName, a parser sentinel,
//     diff.ErrDuplicateConfiguration, or a wrapped storage error
func (s *Service) Ingest(ctx context.Context, label string, features map[string]bool, export []byte) (*IngestResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, tracerName, "Service.Ingest")
	defer span.End()
	start := time.Now()

	resp, err := s.ingest(ctx, label, features, export)
	s.recordIngest(ctx, start, resp, err)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return resp, nil
}

// IngestFile parses an export file from disk and stores it as a run.
func (s *Service) IngestFile(ctx context.Context, label string, features map[string]bool, path string) (*IngestResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, tracerName, "Service.IngestFile")
	defer span.End()
	start := time.Now()

	resp, err := s.ingestFile(ctx, label, features, path)
	s.recordIngest(ctx, start, resp, err)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return resp, nil
}

// Refresh re-ingests an export file, replacing any stored run that
// holds the same configuration. Watch mode uses this when an export is
// rewritten: the fresh run supersedes the previous one instead of
// failing as a duplicate.
func (s *Service) Refresh(ctx context.Context, label string, features map[string]bool, path string) (*IngestResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, tracerName, "Service.Refresh")
	defer span.End()

	if err := validateFeatures(features); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	key := diff.NewConfiguration(features).Key()
	runs, err := s.listRuns(ctx)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	for _, run := range runs {
		if run.Configuration().Key() == key {
			if err := s.DeleteRun(ctx, run.ID); err != nil {
				telemetry.RecordError(span, err)
				return nil, err
			}
			s.logger.Info("run replaced", "run_id", run.ID, "configuration", run.Configuration().String())
			break
		}
	}

	start := time.Now()
	resp, err := s.ingestFile(ctx, label, features, path)
	s.recordIngest(ctx, start, resp, err)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return resp, nil
}

func (s *Service) ingest(ctx context.Context, label string, features map[string]bool, export []byte) (*IngestResponse, error) {
	if err := validateFeatures(features); err != nil {
		return nil, err
	}
	res, err := llvmcov.ParseBytes(export)
	if err != nil {
		return nil, err
	}
	return s.storeRun(ctx, label, features, res)
}

func (s *Service) ingestFile(ctx context.Context, label string, features map[string]bool, path string) (*IngestResponse, error) {
	if err := validateFeatures(features); err != nil {
		return nil, err
	}
	res, err := llvmcov.ParseFile(path)
	if err != nil {
		return nil, err
	}
	return s.storeRun(ctx, label, features, res)
}

func (s *Service) storeRun(ctx context.Context, label string, features map[string]bool, res *llvmcov.Result) (*IngestResponse, error) {
	run := &storage.Run{
		Label:     label,
		Features:  features,
		Functions: res.Records,
	}
	if err := s.store.Put(ctx, run); err != nil {
		return nil, err
	}

	stats := res.Report.Stats()
	s.logger.Info("run ingested",
		"run_id", run.ID,
		"label", run.Label,
		"configuration", run.Configuration().String(),
		"functions", stats.Functions,
		"regions", stats.Regions)

	resp := &IngestResponse{
		RunID:    run.ID,
		Label:    run.Label,
		Features: run.Configuration().EnabledFeatures(),
		Stats:    stats,
	}
	for name, err := range res.Report.Malformed() {
		if resp.Malformed == nil {
			resp.Malformed = make(map[string]string)
		}
		resp.Malformed[name] = err.Error()
		s.logger.Warn("malformed function isolated", "run_id", run.ID, "function", name, "error", err)
	}
	return resp, nil
}

func validateFeatures(features map[string]bool) error {
	for name := range features {
		if err := validation.ValidateFeatureName(name); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidFeatureName, err)
		}
	}
	return nil
}

// recordIngest records ingest metrics when metrics are configured.
func (s *Service) recordIngest(ctx context.Context, start time.Time, resp *IngestResponse, err error) {
	if s.metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	s.metrics.IngestsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
	s.metrics.IngestDuration.Record(ctx, time.Since(start).Seconds())
	if resp != nil {
		s.metrics.RegionsIngested.Add(ctx, int64(resp.Stats.Regions))
	}
}

// Runs lists the stored runs in insertion order.
func (s *Service) Runs(ctx context.Context) ([]RunSummary, error) {
	runs, err := s.listRuns(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]RunSummary, 0, len(runs))
	for _, run := range runs {
		out = append(out, runSummary(run))
	}
	return out, nil
}

// Run returns one stored run's summary.
func (s *Service) Run(ctx context.Context, id string) (*RunSummary, error) {
	run, err := s.getRun(ctx, id)
	if err != nil {
		return nil, err
	}
	summary := runSummary(run)
	return &summary, nil
}

// DeleteRun removes a stored run, freeing its configuration.
func (s *Service) DeleteRun(ctx context.Context, id string) error {
	start := time.Now()
	err := s.store.Delete(ctx, id)
	s.recordStoreOp(ctx, "delete", start, err)
	if err == nil {
		s.logger.Info("run deleted", "run_id", id)
	}
	return err
}

// Features returns the available features across all stored runs.
func (s *Service) Features(ctx context.Context) ([]string, error) {
	m, err := s.mapping(ctx)
	if err != nil {
		return nil, err
	}
	return m.AvailableFeatures(), nil
}

// Configs partitions the stored configurations by a constraint.
func (s *Service) Configs(ctx context.Context, constraint map[string]bool) (*ConfigsResponse, error) {
	if err := validateFeatures(constraint); err != nil {
		return nil, err
	}
	m, err := s.mapping(ctx)
	if err != nil {
		return nil, err
	}
	return &ConfigsResponse{
		Constraint: constraint,
		With:       m.ConfigsWith(constraint),
		Without:    m.ConfigsWithout(constraint),
	}, nil
}

// Diff computes a feature coverage diff over the stored runs.
//
// # Outputs
//
//   - *diff.FeatureCoverageDiff: the classification result
//   - error: diff.ErrEmptyConstraint, diff.ErrUnknownFeature,
//     diff.ErrEmptyPartition, or a wrapped storage error
func (s *Service) Diff(ctx context.Context, constraint map[string]bool) (*diff.FeatureCoverageDiff, error) {
	ctx, span := telemetry.StartSpan(ctx, tracerName, "Service.Diff")
	defer span.End()
	start := time.Now()

	result, err := s.computeDiff(ctx, constraint)

	if s.metrics != nil {
		status := "success"
		if err != nil {
			status = "error"
		}
		s.metrics.DiffsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
		s.metrics.DiffDuration.Record(ctx, time.Since(start).Seconds())
		if result != nil {
			for class, n := range result.Counts() {
				s.metrics.DiffRegionsClassified.Add(ctx, int64(n), metric.WithAttributes(
					attribute.String("classification", class.String())))
			}
		}
	}
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return result, nil
}

func (s *Service) computeDiff(ctx context.Context, constraint map[string]bool) (*diff.FeatureCoverageDiff, error) {
	if err := validateFeatures(constraint); err != nil {
		return nil, err
	}
	m, err := s.mapping(ctx)
	if err != nil {
		return nil, err
	}
	result, err := m.Diff(constraint)
	if err != nil {
		return nil, err
	}
	s.logger.Info("diff computed",
		"constraint", constraint,
		"regions", result.Len(),
		"with_runs", len(result.WithConfigs()),
		"without_runs", len(result.WithoutConfigs()))
	return result, nil
}

// Show returns one run's region trees, optionally scoped to a single
// function.
func (s *Service) Show(ctx context.Context, id, function string) (*ShowResponse, error) {
	run, err := s.getRun(ctx, id)
	if err != nil {
		return nil, err
	}

	rep := run.Report()
	resp := &ShowResponse{
		Run:       runSummary(run),
		Functions: make(map[string]*TreeNode),
	}
	if function != "" {
		root, ok := rep.RegionFor(function)
		if !ok {
			return nil, fmt.Errorf("%w: run %s has no function %q", ErrFunctionNotFound, id, function)
		}
		resp.Functions[function] = treeNode(root)
		return resp, nil
	}
	for name, root := range rep.Functions() {
		resp.Functions[name] = treeNode(root)
	}
	return resp, nil
}

func (s *Service) listRuns(ctx context.Context) ([]*storage.Run, error) {
	start := time.Now()
	runs, err := s.store.List(ctx)
	s.recordStoreOp(ctx, "list", start, err)
	return runs, err
}

func (s *Service) getRun(ctx context.Context, id string) (*storage.Run, error) {
	start := time.Now()
	run, err := s.store.Get(ctx, id)
	s.recordStoreOp(ctx, "get", start, err)
	return run, err
}

func (s *Service) mapping(ctx context.Context) (*diff.ReportMapping, error) {
	start := time.Now()
	m, err := s.store.Mapping(ctx)
	s.recordStoreOp(ctx, "mapping", start, err)
	return m, err
}

func (s *Service) recordStoreOp(ctx context.Context, op string, start time.Time, err error) {
	if s.metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	s.metrics.StoreOpsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("op", op),
		attribute.String("status", status)))
	s.metrics.StoreOpDuration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(
		attribute.String("op", op)))
}

func runSummary(run *storage.Run) RunSummary {
	return RunSummary{
		ID:        run.ID,
		Label:     run.Label,
		CreatedAt: run.CreatedAt,
		Features:  run.Configuration().EnabledFeatures(),
		Stats:     run.Report().Stats(),
	}
}
