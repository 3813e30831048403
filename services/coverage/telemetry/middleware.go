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
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsMiddleware creates gin middleware that records request metrics.
//
// Description:
//
//	Records HTTP request count, duration, and active request count.
//	Metrics include labels for method, route, and status code. The route
//	label uses gin's template path (e.g. "/v1/coverage/runs/:id") so
//	cardinality stays bounded.
//
//	Distributed tracing is handled separately by otelgin at router setup,
//	so this middleware only covers metrics.
//
// Inputs:
//
//	metrics - Pre-configured Metrics instance.
//
// Outputs:
//
//	gin.HandlerFunc - Middleware to register on the router.
//
// Example:
//
//	metrics, _ := telemetry.NewMetrics(otel.Meter("coverage"))
//	router := gin.New()
//	router.Use(telemetry.MetricsMiddleware(metrics))
//
// Thread Safety: Safe for concurrent use.
func MetricsMiddleware(metrics *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		start := time.Now()

		metrics.HTTPActiveRequests.Add(ctx, 1)
		defer metrics.HTTPActiveRequests.Add(ctx, -1)

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		attrs := metric.WithAttributes(
			attribute.String("method", c.Request.Method),
			attribute.String("route", route),
			attribute.Int("status", c.Writer.Status()),
		)

		metrics.HTTPRequestsTotal.Add(ctx, 1, attrs)
		metrics.HTTPRequestDuration.Record(ctx, time.Since(start).Seconds(), attrs)

		if c.Writer.Status() >= 500 {
			metrics.ErrorsTotal.Add(ctx, 1, metric.WithAttributes(
				attribute.String("component", "http"),
				attribute.String("route", route),
			))
		}
	}
}
