// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graph

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Package-level tracer and meter for graph operations.
var (
	tracer = otel.Tracer("relgraph.graph")
	meter  = otel.Meter("relgraph.graph")
)

// Metrics for graph building and query operations.
var (
	buildLatency   metric.Float64Histogram
	buildTotal     metric.Int64Counter
	droppedRecords metric.Int64Counter
	nodesBuilt     metric.Int64Histogram
	edgesBuilt     metric.Int64Histogram
	queryLatency   metric.Float64Histogram

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		buildLatency, err = meter.Float64Histogram(
			"relgraph_build_duration_seconds",
			metric.WithDescription("Duration of graph build operations"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		buildTotal, err = meter.Int64Counter(
			"relgraph_build_total",
			metric.WithDescription("Total number of graph build operations"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		droppedRecords, err = meter.Int64Counter(
			"relgraph_build_dropped_records_total",
			metric.WithDescription("Relationship records dropped for dangling endpoints"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		nodesBuilt, err = meter.Int64Histogram(
			"relgraph_build_nodes",
			metric.WithDescription("Number of nodes per built graph"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		edgesBuilt, err = meter.Int64Histogram(
			"relgraph_build_edges",
			metric.WithDescription("Number of edges per built graph"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		queryLatency, err = meter.Float64Histogram(
			"relgraph_query_duration_seconds",
			metric.WithDescription("Duration of graph query operations"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// recordBuildMetrics records metrics for a completed build.
func recordBuildMetrics(ctx context.Context, result *BuildResult) {
	if err := initMetrics(); err != nil {
		return
	}
	buildLatency.Record(ctx, float64(result.Stats.DurationMilli)/1000)
	buildTotal.Add(ctx, 1)
	if result.Stats.DroppedRecords > 0 {
		droppedRecords.Add(ctx, int64(result.Stats.DroppedRecords))
	}
	if result.Graph != nil {
		nodesBuilt.Record(ctx, int64(result.Graph.NodeCount()))
		edgesBuilt.Record(ctx, int64(result.Graph.EdgeCount()))
	}
}

// recordQueryMetrics records the latency of one query operation.
func recordQueryMetrics(ctx context.Context, queryType string, duration time.Duration) {
	if err := initMetrics(); err != nil {
		return
	}
	queryLatency.Record(ctx, duration.Seconds(),
		metric.WithAttributes(attribute.String("query_type", queryType)),
	)
}

// startBuildSpan creates a span for a build operation.
func startBuildSpan(ctx context.Context) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Builder.Build")
}

// startQuerySpan creates a span for a query operation.
func startQuerySpan(ctx context.Context, queryType string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Graph."+queryType,
		trace.WithAttributes(attribute.String("graph.query_type", queryType)),
	)
}
