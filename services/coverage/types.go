// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package coverage is the configuration-partitioned coverage service: it
// ingests llvm-cov exports labeled with feature assignments, persists
// them as runs, and answers partition and diff queries over the stored
// runs.
//
// This file contains the request and response types for the HTTP surface
// and the shared validator instance.
package coverage

import (
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/AleutianAI/covbuddy/pkg/validation"
	"github.com/AleutianAI/covbuddy/services/coverage/diff"
	"github.com/AleutianAI/covbuddy/services/coverage/region"
	"github.com/AleutianAI/covbuddy/services/coverage/report"
)

// ServiceVersion is the coverage service version.
const ServiceVersion = "0.1.0"

// covValidate is the validator instance for coverage request types.
// Initialized in init() with the custom feature-name rule.
var covValidate *validator.Validate

func init() {
	covValidate = validator.New()
	_ = covValidate.RegisterValidation("featurename", validateFeatureName)
}

// validateFeatureName adapts pkg/validation's feature-name rule for
// struct tags (`validate:"featurename"`).
func validateFeatureName(fl validator.FieldLevel) bool {
	return validation.ValidateFeatureName(fl.Field().String()) == nil
}

// ErrorResponse is the uniform error body for all endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details string `json:"details,omitempty"`
}

// IngestRequest represents a run ingest request body.
//
// # Description
//
// Exactly one of Export (the llvm-cov JSON document inline) or
// ExportPath (a path readable by the server) must be set. Features maps
// feature names to their assignment for this run; names are validated
// with the feature-name rule.
//
// # Validation
//
//   - Features keys: featurename rule (lowercase identifier, max 64)
//   - Export/ExportPath: exactly one present (checked in the handler)
type IngestRequest struct {
	Label      string          `json:"label,omitempty"`
	Features   map[string]bool `json:"features" validate:"omitempty,dive,keys,featurename,endkeys"`
	Export     json.RawMessage `json:"export,omitempty"`
	ExportPath string          `json:"export_path,omitempty"`
}

// Validate validates the IngestRequest fields.
func (r *IngestRequest) Validate() error {
	return covValidate.Struct(r)
}

// IngestResponse describes one stored run after ingest.
type IngestResponse struct {
	RunID     string            `json:"run_id"`
	Label     string            `json:"label,omitempty"`
	Features  []string          `json:"features"`
	Stats     report.Stats      `json:"stats"`
	Malformed map[string]string `json:"malformed,omitempty"`
}

// RunSummary is one stored run without its region data.
type RunSummary struct {
	ID        string       `json:"id"`
	Label     string       `json:"label,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
	Features  []string     `json:"features"`
	Stats     report.Stats `json:"stats"`
}

// RunsResponse lists the stored runs in insertion order.
type RunsResponse struct {
	Runs []RunSummary `json:"runs"`
}

// FeaturesResponse lists the available features: every name enabled in
// at least one stored run, sorted.
type FeaturesResponse struct {
	Features []string `json:"features"`
}

// ConfigsRequest asks for the stored configurations satisfying (or not
// satisfying) a feature constraint.
type ConfigsRequest struct {
	Constraint map[string]bool `json:"constraint" validate:"omitempty,dive,keys,featurename,endkeys"`
}

// Validate validates the ConfigsRequest fields.
func (r *ConfigsRequest) Validate() error {
	return covValidate.Struct(r)
}

// ConfigsResponse carries both sides of a constraint partition, each
// configuration materialized over the full feature universe.
type ConfigsResponse struct {
	Constraint map[string]bool   `json:"constraint"`
	With       []diff.FeatureSet `json:"with"`
	Without    []diff.FeatureSet `json:"without"`
}

// DiffRequest asks for a feature coverage diff.
//
// # Validation
//
//   - Constraint: required, at least one entry, featurename keys
//   - Class: when set, one of only_with, only_without, both, neither
type DiffRequest struct {
	Constraint map[string]bool `json:"constraint" validate:"required,min=1,dive,keys,featurename,endkeys"`
	Function   string          `json:"function,omitempty"`
	Class      string          `json:"class,omitempty" validate:"omitempty,oneof=only_with only_without both neither"`
}

// Validate validates the DiffRequest fields.
func (r *DiffRequest) Validate() error {
	return covValidate.Struct(r)
}

// DiffRegion is one classified region of a diff result.
type DiffRegion struct {
	Function       string      `json:"function"`
	Span           region.Span `json:"span"`
	Classification string      `json:"classification"`
}

// DiffResponse is the wire form of a feature coverage diff.
type DiffResponse struct {
	Constraint     map[string]bool   `json:"constraint"`
	WithConfigs    []diff.FeatureSet `json:"with_configs"`
	WithoutConfigs []diff.FeatureSet `json:"without_configs"`
	Counts         map[string]int    `json:"counts"`
	Regions        []DiffRegion      `json:"regions"`
}

// TreeNode is the wire form of one region tree node.
type TreeNode struct {
	Span     region.Span `json:"span"`
	Count    int64       `json:"count"`
	Kind     string      `json:"kind"`
	Covered  bool        `json:"covered"`
	Children []*TreeNode `json:"children,omitempty"`
}

// ShowResponse carries one run's region trees.
type ShowResponse struct {
	Run       RunSummary           `json:"run"`
	Functions map[string]*TreeNode `json:"functions"`
}

// treeNode converts a region tree to its wire form.
func treeNode(r *region.CodeRegion) *TreeNode {
	node := &TreeNode{
		Span:    r.Span,
		Count:   r.Count,
		Kind:    r.Kind.String(),
		Covered: r.IsCovered(),
	}
	for _, child := range r.Children() {
		node.Children = append(node.Children, treeNode(child))
	}
	return node
}

// HealthResponse is the body of the health and readiness endpoints.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
}
