// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package store defines the contracts between the graph engine and its
// external collaborators: the entity store it reads snapshots from and the
// metrics store it publishes results to.
//
// The engine never talks to persistent storage directly; it reads the
// entity store in full once per build and writes the metrics store once
// per publish, all-or-nothing. The record types themselves live in the
// graph package so the Builder can consume them without a dependency on
// this package.
package store

import (
	"context"

	"github.com/AleutianAI/relgraph/services/engine/graph"
)

// EntityStore is the read side: a full snapshot of entities, relationships,
// and signal events, consumed once per batch pass.
type EntityStore interface {
	graph.Source

	// ListSignalEvents returns all signal events of one kind for an entity.
	ListSignalEvents(ctx context.Context, key graph.NodeKey, kind graph.SignalKind) ([]graph.SignalEvent, error)
}

// NodeMetrics is the per-node result bundle the engine publishes.
type NodeMetrics struct {
	Key            graph.NodeKey `json:"key"`
	Centrality     float64       `json:"centrality"`
	Leverage       float64       `json:"leverage"`
	AdjacencyIndex float64       `json:"adjacency_index"`
	Influence      float64       `json:"influence"`
	ClusterID      int           `json:"cluster_id"`
}

// ScoreRecord is one published opportunity score.
type ScoreRecord struct {
	Key       graph.NodeKey      `json:"key"`
	Total     float64            `json:"total"`
	Category  string             `json:"category"`
	SubScores map[string]float64 `json:"sub_scores"`
}

// MetricsStore is the write side: published metrics and scores survive
// between passes; a failed publish leaves the previous pass in effect.
type MetricsStore interface {
	// Publish atomically replaces the published metrics with this pass's
	// results. Partial publication must never be observable.
	Publish(ctx context.Context, passID string, metrics []NodeMetrics, scores []ScoreRecord) error

	// LatestPassID returns the id of the most recently published pass,
	// or "" if nothing has been published yet.
	LatestPassID(ctx context.Context) (string, error)

	// NodeMetrics returns the published metrics for one node.
	NodeMetrics(ctx context.Context, key graph.NodeKey) (NodeMetrics, bool, error)
}
