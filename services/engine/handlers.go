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
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/relgraph/services/engine/graph"
	"github.com/AleutianAI/relgraph/services/engine/pipeline"
	"github.com/AleutianAI/relgraph/services/engine/scoring"
	"github.com/AleutianAI/relgraph/services/engine/store"
)

// HealthCheck reports liveness.
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ReadyCheck reports readiness: the service is ready once at least one
// analysis pass has published a snapshot.
func ReadyCheck(holder *pipeline.Holder) gin.HandlerFunc {
	return func(c *gin.Context) {
		snap := holder.Current()
		if snap == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "no snapshot published yet"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":       "ready",
			"pass_id":      snap.PassID,
			"published_at": snap.PublishedAt,
		})
	}
}

// parseNodeKey reads the :kind and :id path parameters into a NodeKey.
func parseNodeKey(c *gin.Context) (graph.NodeKey, bool) {
	kind, err := graph.ParseNodeKind(c.Param("kind"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return graph.NodeKey{}, false
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id must be a positive integer"})
		return graph.NodeKey{}, false
	}
	return graph.NodeKey{Kind: kind, ID: id}, true
}

// currentSnapshot fetches the published snapshot or replies 503.
func currentSnapshot(c *gin.Context, holder *pipeline.Holder) (*pipeline.Snapshot, bool) {
	snap := holder.Current()
	if snap == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no snapshot published yet"})
		return nil, false
	}
	return snap, true
}

// GetNodeMetrics returns the published per-node metrics bundle.
func GetNodeMetrics(holder *pipeline.Holder) gin.HandlerFunc {
	return func(c *gin.Context) {
		key, ok := parseNodeKey(c)
		if !ok {
			return
		}
		snap, ok := currentSnapshot(c, holder)
		if !ok {
			return
		}
		nm, found := snap.Metrics[key]
		if !found {
			c.JSON(http.StatusNotFound, gin.H{"error": "node not found", "key": key.String()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"pass_id": snap.PassID, "metrics": nm})
	}
}

// GetScore returns the published opportunity score for an organization.
func GetScore(holder *pipeline.Holder) gin.HandlerFunc {
	return func(c *gin.Context) {
		key, ok := parseNodeKey(c)
		if !ok {
			return
		}
		snap, ok := currentSnapshot(c, holder)
		if !ok {
			return
		}
		sc, found := snap.Scores[key]
		if !found {
			c.JSON(http.StatusNotFound, gin.H{"error": "no score for node", "key": key.String()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"pass_id": snap.PassID, "score": sc})
	}
}

// ListClusters returns the published cluster partition.
func ListClusters(holder *pipeline.Holder) gin.HandlerFunc {
	return func(c *gin.Context) {
		snap, ok := currentSnapshot(c, holder)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"pass_id":         snap.PassID,
			"strategy":        snap.Clusters.Strategy,
			"budget_exceeded": snap.Clusters.BudgetExceeded,
			"clusters":        snap.Clusters.Clusters,
		})
	}
}

// nodeKeyRequest is the JSON form of a node key in request bodies.
type nodeKeyRequest struct {
	Kind string `json:"kind" binding:"required"`
	ID   int64  `json:"id" binding:"required,gt=0"`
}

func (r nodeKeyRequest) toKey() (graph.NodeKey, error) {
	kind, err := graph.ParseNodeKind(r.Kind)
	if err != nil {
		return graph.NodeKey{}, err
	}
	return graph.NodeKey{Kind: kind, ID: r.ID}, nil
}

// shortestPathRequest is the body for POST /v1/paths/shortest.
type shortestPathRequest struct {
	From nodeKeyRequest `json:"from" binding:"required"`
	To   nodeKeyRequest `json:"to" binding:"required"`
}

// FindShortestPath runs a weighted shortest-path query on the published
// snapshot. An unreachable target is a normal 200 response with found=false.
func FindShortestPath(holder *pipeline.Holder) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req shortestPathRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		from, err := req.From.toKey()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		to, err := req.To.toKey()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		snap, ok := currentSnapshot(c, holder)
		if !ok {
			return
		}
		finder, err := graph.NewPathFinder(snap.Graph)
		if err != nil {
			slog.Error("path finder construction failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "snapshot graph not queryable"})
			return
		}
		result, err := finder.ShortestWeightedPath(from, to)
		if err != nil {
			if errors.Is(err, graph.ErrInvalidKey) {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			slog.Error("shortest path query failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "path query failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"pass_id": snap.PassID, "result": result})
	}
}

// rankPathsRequest is the body for POST /v1/paths/rank.
type rankPathsRequest struct {
	TargetOrgID int64 `json:"target_org_id" binding:"required,gt=0"`
	MaxHops     int   `json:"max_hops"`
}

// RankIntroPaths returns scored introduction routes to a target organization.
func RankIntroPaths(holder *pipeline.Holder) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req rankPathsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		snap, ok := currentSnapshot(c, holder)
		if !ok {
			return
		}
		finder, err := graph.NewPathFinder(snap.Graph)
		if err != nil {
			slog.Error("path finder construction failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "snapshot graph not queryable"})
			return
		}
		ranked, err := finder.RankIntroPaths(graph.OrgKey(req.TargetOrgID), req.MaxHops)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"pass_id": snap.PassID, "intros": ranked})
	}
}

// TriggerAnalyze runs one full analysis pass synchronously.
//
// A concurrent pass already in flight serializes behind the runner's
// internal lock rather than failing.
func TriggerAnalyze(runner *pipeline.Runner) gin.HandlerFunc {
	return func(c *gin.Context) {
		slog.Info("Received request to run an analysis pass")
		result, err := runner.RunPass(c.Request.Context())
		if err != nil {
			slog.Error("analysis pass failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "analysis pass failed"})
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

// GetPublishedMetrics reads a node's metrics from the durable metrics store
// rather than the in-memory snapshot, for consumers that want the last
// successfully persisted pass.
func GetPublishedMetrics(metrics store.MetricsStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		key, ok := parseNodeKey(c)
		if !ok {
			return
		}
		nm, found, err := metrics.NodeMetrics(c.Request.Context(), key)
		if err != nil {
			slog.Error("metrics store read failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "metrics store read failed"})
			return
		}
		if !found {
			c.JSON(http.StatusNotFound, gin.H{"error": "node not found", "key": key.String()})
			return
		}
		passID, err := metrics.LatestPassID(c.Request.Context())
		if err != nil {
			slog.Error("metrics store read failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "metrics store read failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"pass_id": passID, "metrics": nm})
	}
}

// scoreRequest is the body for POST /v1/scores/compute.
type scoreRequest struct {
	Target nodeKeyRequest `json:"target" binding:"required"`
}

// ComputeScore scores one organization on demand against the published
// snapshot, without waiting for the next batch pass.
func ComputeScore(holder *pipeline.Holder, signals scoring.SignalSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req scoreRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		key, err := req.Target.toKey()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		snap, ok := currentSnapshot(c, holder)
		if !ok {
			return
		}
		scorer, err := scoring.NewScorer(snap.Graph, signals, snap.PublishedAt)
		if err != nil {
			slog.Error("scorer construction failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "snapshot graph not scorable"})
			return
		}
		score, err := scorer.ScoreOpportunity(c.Request.Context(), key)
		if err != nil {
			if errors.Is(err, graph.ErrInvalidKey) {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			slog.Error("score computation failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "score computation failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"pass_id": snap.PassID, "score": score})
	}
}
