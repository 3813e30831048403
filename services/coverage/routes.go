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
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all coverage routes with the router.
//
// Description:
//
//	Registers all /v1/coverage/* endpoints with the given Gin router
//	group. The router group should already have any required middleware
//	applied.
//
// Inputs:
//
//	rg - Gin router group (typically /v1)
//	handlers - The handlers instance
//
// Endpoints:
//
//	POST   /v1/coverage/runs          - Ingest one export as a run
//	GET    /v1/coverage/runs          - List stored runs
//	GET    /v1/coverage/runs/:id      - One run's summary
//	GET    /v1/coverage/runs/:id/tree - One run's region trees
//	DELETE /v1/coverage/runs/:id      - Delete a run
//	GET    /v1/coverage/features      - Available features
//	POST   /v1/coverage/configs       - Partition configurations by constraint
//	POST   /v1/coverage/diff          - Feature coverage diff
//	GET    /v1/coverage/health        - Health check
//	GET    /v1/coverage/ready         - Readiness check
//
// Example:
//
//	svc, _ := coverage.NewService(coverage.DefaultServiceConfig())
//	handlers := coverage.NewHandlers(svc)
//
//	v1 := router.Group("/v1")
//	coverage.RegisterRoutes(v1, handlers)
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers) {
	cov := rg.Group("/coverage")
	{
		// Run lifecycle
		cov.POST("/runs", handlers.HandleIngest)
		cov.GET("/runs", handlers.HandleListRuns)
		cov.GET("/runs/:id", handlers.HandleGetRun)
		cov.GET("/runs/:id/tree", handlers.HandleShowRun)
		cov.DELETE("/runs/:id", handlers.HandleDeleteRun)

		// Feature queries
		cov.GET("/features", handlers.HandleFeatures)
		cov.POST("/configs", handlers.HandleConfigs)
		cov.POST("/diff", handlers.HandleDiff)

		// Health checks
		cov.GET("/health", handlers.HandleHealth)
		cov.GET("/ready", handlers.HandleReady)
	}
}
