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
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/AleutianAI/covbuddy/services/coverage/diff"
	"github.com/AleutianAI/covbuddy/services/coverage/llvmcov"
	"github.com/AleutianAI/covbuddy/services/coverage/region"
	storage "github.com/AleutianAI/covbuddy/services/coverage/storage/badger"
)

// Handlers contains the HTTP handlers for the coverage service.
type Handlers struct {
	svc *Service
}

// NewHandlers creates handlers for the given service.
func NewHandlers(svc *Service) *Handlers {
	return &Handlers{svc: svc}
}

// HandleIngest handles POST /v1/coverage/runs.
//
// Description:
//
//	Ingests one llvm-cov export as a run. The export arrives inline or
//	as a server-readable path, together with the run's feature
//	assignment.
//
// Response:
//
//	201 Created: IngestResponse
//	400 Bad Request: malformed request, export, or feature name
//	409 Conflict: configuration already stored
func (h *Handlers) HandleIngest(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleIngest")

	var req IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invalid request body",
			Code:  "INVALID_REQUEST",
		})
		return
	}
	if err := req.Validate(); err != nil {
		logger.Warn("Request validation failed", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Request validation failed",
			Code:    "INVALID_FEATURE_NAME",
			Details: err.Error(),
		})
		return
	}

	hasInline := len(req.Export) > 0
	hasPath := req.ExportPath != ""
	switch {
	case !hasInline && !hasPath:
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: ErrNoExportSource.Error(),
			Code:  "NO_EXPORT",
		})
		return
	case hasInline && hasPath:
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: ErrAmbiguousExportSource.Error(),
			Code:  "AMBIGUOUS_EXPORT",
		})
		return
	}

	var resp *IngestResponse
	var err error
	if hasInline {
		resp, err = h.svc.Ingest(c.Request.Context(), req.Label, req.Features, req.Export)
	} else {
		resp, err = h.svc.IngestFile(c.Request.Context(), req.Label, req.Features, req.ExportPath)
	}
	if err != nil {
		status, code := ingestErrorStatus(err)
		logger.Error("Ingest failed", "error", err)
		c.JSON(status, ErrorResponse{Error: err.Error(), Code: code})
		return
	}

	logger.Info("Run ingested", "run_id", resp.RunID, "functions", resp.Stats.Functions)
	c.JSON(http.StatusCreated, resp)
}

// ingestErrorStatus maps ingest failures to status and error codes.
func ingestErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, ErrInvalidFeatureName):
		return http.StatusBadRequest, "INVALID_FEATURE_NAME"
	case errors.Is(err, llvmcov.ErrNotCoverageExport):
		return http.StatusBadRequest, "NOT_COVERAGE_EXPORT"
	case errors.Is(err, llvmcov.ErrUnsupportedVersion):
		return http.StatusBadRequest, "UNSUPPORTED_VERSION"
	case errors.Is(err, llvmcov.ErrEmptyExport):
		return http.StatusBadRequest, "EMPTY_EXPORT"
	case errors.Is(err, region.ErrMalformedReport):
		return http.StatusBadRequest, "MALFORMED_REPORT"
	case errors.Is(err, diff.ErrDuplicateConfiguration):
		return http.StatusConflict, "DUPLICATE_CONFIGURATION"
	default:
		return http.StatusInternalServerError, "INGEST_FAILED"
	}
}

// HandleListRuns handles GET /v1/coverage/runs.
func (h *Handlers) HandleListRuns(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleListRuns")

	runs, err := h.svc.Runs(c.Request.Context())
	if err != nil {
		logger.Error("List runs failed", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: err.Error(),
			Code:  "LIST_FAILED",
		})
		return
	}
	c.JSON(http.StatusOK, RunsResponse{Runs: runs})
}

// HandleGetRun handles GET /v1/coverage/runs/:id.
//
// Response:
//
//	200 OK: RunSummary
//	404 Not Found: no run under that ID
func (h *Handlers) HandleGetRun(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleGetRun")

	summary, err := h.svc.Run(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, storage.ErrRunNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error: err.Error(),
				Code:  "RUN_NOT_FOUND",
			})
			return
		}
		logger.Error("Get run failed", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: err.Error(),
			Code:  "GET_FAILED",
		})
		return
	}
	c.JSON(http.StatusOK, summary)
}

// HandleShowRun handles GET /v1/coverage/runs/:id/tree.
//
// Description:
//
//	Returns the run's region trees, optionally scoped with the
//	?function= query parameter.
//
// Response:
//
//	200 OK: ShowResponse
//	404 Not Found: run or function not found
func (h *Handlers) HandleShowRun(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleShowRun")

	resp, err := h.svc.Show(c.Request.Context(), c.Param("id"), c.Query("function"))
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrRunNotFound):
			c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error(), Code: "RUN_NOT_FOUND"})
		case errors.Is(err, ErrFunctionNotFound):
			c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error(), Code: "FUNCTION_NOT_FOUND"})
		default:
			logger.Error("Show run failed", "error", err)
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Code: "SHOW_FAILED"})
		}
		return
	}
	c.JSON(http.StatusOK, resp)
}

// HandleDeleteRun handles DELETE /v1/coverage/runs/:id.
//
// Response:
//
//	204 No Content: run deleted
//	404 Not Found: no run under that ID
func (h *Handlers) HandleDeleteRun(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleDeleteRun")

	if err := h.svc.DeleteRun(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, storage.ErrRunNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error: err.Error(),
				Code:  "RUN_NOT_FOUND",
			})
			return
		}
		logger.Error("Delete run failed", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: err.Error(),
			Code:  "DELETE_FAILED",
		})
		return
	}
	c.Status(http.StatusNoContent)
}

// HandleFeatures handles GET /v1/coverage/features.
func (h *Handlers) HandleFeatures(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleFeatures")

	features, err := h.svc.Features(c.Request.Context())
	if err != nil {
		logger.Error("Features failed", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: err.Error(),
			Code:  "FEATURES_FAILED",
		})
		return
	}
	c.JSON(http.StatusOK, FeaturesResponse{Features: features})
}

// HandleConfigs handles POST /v1/coverage/configs.
//
// Response:
//
//	200 OK: ConfigsResponse (both partition sides)
//	400 Bad Request: invalid feature name
func (h *Handlers) HandleConfigs(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleConfigs")

	var req ConfigsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invalid request body",
			Code:  "INVALID_REQUEST",
		})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Request validation failed",
			Code:    "INVALID_FEATURE_NAME",
			Details: err.Error(),
		})
		return
	}

	resp, err := h.svc.Configs(c.Request.Context(), req.Constraint)
	if err != nil {
		if errors.Is(err, ErrInvalidFeatureName) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "INVALID_FEATURE_NAME"})
			return
		}
		logger.Error("Configs failed", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Code: "CONFIGS_FAILED"})
		return
	}
	c.JSON(http.StatusOK, resp)
}

// HandleDiff handles POST /v1/coverage/diff.
//
// Response:
//
//	200 OK: DiffResponse
//	400 Bad Request: empty constraint or unknown feature
//	422 Unprocessable Entity: constraint leaves one side empty
func (h *Handlers) HandleDiff(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleDiff")

	var req DiffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invalid request body",
			Code:  "INVALID_REQUEST",
		})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Request validation failed",
			Code:    "INVALID_REQUEST",
			Details: err.Error(),
		})
		return
	}

	result, err := h.svc.Diff(c.Request.Context(), req.Constraint)
	if err != nil {
		status := http.StatusInternalServerError
		code := "DIFF_FAILED"
		switch {
		case errors.Is(err, diff.ErrEmptyConstraint):
			status, code = http.StatusBadRequest, "EMPTY_CONSTRAINT"
		case errors.Is(err, diff.ErrUnknownFeature):
			status, code = http.StatusBadRequest, "UNKNOWN_FEATURE"
		case errors.Is(err, ErrInvalidFeatureName):
			status, code = http.StatusBadRequest, "INVALID_FEATURE_NAME"
		case errors.Is(err, diff.ErrEmptyPartition):
			status, code = http.StatusUnprocessableEntity, "EMPTY_PARTITION"
		}
		logger.Warn("Diff failed", "error", err, "code", code)
		c.JSON(status, ErrorResponse{Error: err.Error(), Code: code})
		return
	}

	c.JSON(http.StatusOK, NewDiffResponse(result, req.Function, req.Class))
}

// NewDiffResponse converts a diff result to its wire form, applying the
// optional function and classification filters. Used by both the HTTP
// handler and the CLI's JSON output.
func NewDiffResponse(d *diff.FeatureCoverageDiff, function, class string) DiffResponse {
	resp := DiffResponse{
		Constraint:     d.Constraint(),
		WithConfigs:    d.WithConfigs(),
		WithoutConfigs: d.WithoutConfigs(),
		Counts:         make(map[string]int),
		Regions:        []DiffRegion{},
	}
	for c, n := range d.Counts() {
		resp.Counts[c.String()] = n
	}
	for key, c := range d.Regions() {
		if function != "" && key.Function != function {
			continue
		}
		if class != "" && c.String() != class {
			continue
		}
		resp.Regions = append(resp.Regions, DiffRegion{
			Function:       key.Function,
			Span:           key.Span,
			Classification: c.String(),
		})
	}
	return resp
}

// HandleHealth handles GET /v1/coverage/health.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:  "healthy",
		Service: "coverage",
		Version: ServiceVersion,
	})
}

// HandleReady handles GET /v1/coverage/ready.
//
// Description:
//
//	Reports readiness by probing the run store with a cheap read.
func (h *Handlers) HandleReady(c *gin.Context) {
	if _, err := h.svc.Runs(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error: err.Error(),
			Code:  "STORE_UNAVAILABLE",
		})
		return
	}
	c.JSON(http.StatusOK, HealthResponse{
		Status:  "ready",
		Service: "coverage",
		Version: ServiceVersion,
	})
}

// getOrCreateRequestID returns the X-Request-ID header, generating one
// when absent, and echoes it on the response.
func getOrCreateRequestID(c *gin.Context) string {
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Header("X-Request-ID", requestID)
	return requestID
}
