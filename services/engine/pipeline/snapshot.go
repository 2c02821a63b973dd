// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package pipeline runs the batch recomputation cycle:
//
//	Idle -> Building -> Analyzing -> Scoring -> Publishing -> Idle
//
// Each stage either completes fully or aborts without mutating previously
// published results. Query traffic reads the most recently published
// snapshot through an atomic pointer swap, so in-flight queries never
// observe a partially built graph and never block on a pass in progress.
package pipeline

import (
	"sync/atomic"
	"time"

	"github.com/AleutianAI/relgraph/services/engine/graph"
	"github.com/AleutianAI/relgraph/services/engine/store"
)

// Snapshot is one published, immutable analysis result set.
type Snapshot struct {
	// PassID identifies the batch pass that produced this snapshot.
	PassID string

	// Graph is the frozen graph of the pass.
	Graph *graph.Graph

	// Metrics holds the per-node published metrics.
	Metrics map[graph.NodeKey]store.NodeMetrics

	// Scores holds the per-entity opportunity scores.
	Scores map[graph.NodeKey]store.ScoreRecord

	// Clusters is the cluster partition of the pass.
	Clusters *graph.ClusterResult

	// PublishedAt is when the pass was published.
	PublishedAt time.Time
}

// Holder hands out the current snapshot with copy-on-write semantics.
//
// Thread Safety: Load and Swap are lock-free; readers keep whatever
// snapshot they loaded for the duration of their query.
type Holder struct {
	current atomic.Pointer[Snapshot]
}

// NewHolder creates an empty holder. Current returns nil until the first
// successful pass publishes.
func NewHolder() *Holder { return &Holder{} }

// Current returns the latest published snapshot, or nil before the first
// publish.
func (h *Holder) Current() *Snapshot { return h.current.Load() }

// swap installs a newly published snapshot. Called only after the publish
// write succeeded; a failed pass never reaches this point.
func (h *Holder) swap(s *Snapshot) { h.current.Store(s) }
