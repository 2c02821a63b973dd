// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package engine

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/AleutianAI/relgraph/services/engine/pipeline"
	"github.com/AleutianAI/relgraph/services/engine/scoring"
	"github.com/AleutianAI/relgraph/services/engine/store"
	"github.com/AleutianAI/relgraph/services/engine/telemetry"
)

// RateLimit rejects requests above the configured rate with 429.
func RateLimit(limiter *rate.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests,
				gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}

// SetupRoutes registers all routes on the router.
func SetupRoutes(router *gin.Engine, holder *pipeline.Holder, runner *pipeline.Runner,
	metrics store.MetricsStore, signals scoring.SignalSource) {

	router.GET("/health", HealthCheck)
	router.GET("/ready", ReadyCheck(holder))
	if h := telemetry.MetricsHandler(); h != nil {
		router.GET("/metrics", gin.WrapH(h))
	}

	// API version 1 group
	v1 := router.Group("/v1")
	{
		v1.POST("/analyze", TriggerAnalyze(runner))
		v1.GET("/nodes/:kind/:id/metrics", GetNodeMetrics(holder))
		v1.GET("/nodes/:kind/:id/published", GetPublishedMetrics(metrics))
		v1.GET("/scores/:kind/:id", GetScore(holder))
		v1.POST("/scores/compute", ComputeScore(holder, signals))
		v1.GET("/clusters", ListClusters(holder))
		// Path query routes
		paths := v1.Group("/paths")
		{
			paths.POST("/shortest", FindShortestPath(holder))
			paths.POST("/rank", RankIntroPaths(holder))
		}
	}
}
