// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package graph provides the in-memory relationship graph and the analyses
// that run over it.
//
// The graph is a weighted directed multigraph of people and organizations.
// Edge weights are derived from relationship strength, confidence, and
// recency via an exponential half-life decay, and always land in [0, 1].
//
// # Ownership Model
//
// A Graph owns all of its nodes and edges. Nodes live in a flat arena and
// edges reference arena slots by index, never by pointer, so cyclic
// relationship structures need no special handling and a frozen graph can
// be shared freely across goroutines.
//
// # Thread Safety
//
// A Graph is NOT safe for concurrent mutation. The intended lifecycle is:
// one goroutine populates the graph (usually via Builder), calls Freeze,
// and from then on any number of goroutines may read it concurrently.
//
// # Lifecycle
//
//  1. NewGraph() -> Building state
//  2. AddNode / AddEdge during population
//  3. Freeze() -> ReadOnly state, aggregate indexes are computed
//  4. Read-only analysis (centrality, clustering, path queries)
//  5. Discard; the next batch pass builds a fresh instance
package graph

import "errors"

var (
	// ErrGraphFrozen is returned when attempting to mutate a frozen graph.
	ErrGraphFrozen = errors.New("graph is frozen and cannot be modified")

	// ErrNodeNotFound is returned when an edge references an unknown node.
	ErrNodeNotFound = errors.New("node not found in graph")

	// ErrNotFrozen is returned when an analysis is requested on a graph
	// that is still being populated.
	ErrNotFrozen = errors.New("graph must be frozen before analysis")

	// ErrInvalidKey is returned for malformed node keys (unknown kind or
	// non-positive id). Data absence is never reported through this error.
	ErrInvalidKey = errors.New("invalid node key")

	// ErrMaxNodesExceeded is returned when the configured node limit is hit.
	ErrMaxNodesExceeded = errors.New("maximum node count exceeded")

	// ErrMaxEdgesExceeded is returned when the configured edge limit is hit.
	ErrMaxEdgesExceeded = errors.New("maximum edge count exceeded")
)
