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
	"fmt"
	"math"
)

// =============================================================================
// Influence Propagation (weighted PageRank)
// =============================================================================

// InfluenceOptions configures the influence-propagation computation.
type InfluenceOptions struct {
	// DampingFactor is the probability of following an edge rather than
	// teleporting. Must be in (0, 1). Default: 0.85.
	DampingFactor float64

	// MaxIterations bounds the power iteration. Default: 100.
	MaxIterations int

	// Convergence stops iteration when the total score delta falls below
	// this threshold. Default: 1e-6.
	Convergence float64
}

// DefaultInfluenceOptions returns the standard parameters.
func DefaultInfluenceOptions() InfluenceOptions {
	return InfluenceOptions{
		DampingFactor: 0.85,
		MaxIterations: 100,
		Convergence:   1e-6,
	}
}

// Validate checks the options.
func (o InfluenceOptions) Validate() error {
	if o.DampingFactor <= 0 || o.DampingFactor >= 1 {
		return fmt.Errorf("damping factor must be in (0, 1), got %v", o.DampingFactor)
	}
	if o.MaxIterations <= 0 {
		return fmt.Errorf("max iterations must be positive, got %d", o.MaxIterations)
	}
	if o.Convergence <= 0 {
		return fmt.Errorf("convergence threshold must be positive, got %v", o.Convergence)
	}
	return nil
}

// InfluencePropagation computes a weighted PageRank over the frozen graph.
//
// Description:
//
//	Power iteration where each node distributes its score across out-edges
//	proportionally to edge weight. Nodes with no out-edges (sinks)
//	distribute their mass uniformly so the total stays normalized. Scores
//	sum to 1 across the graph.
//
// Outputs:
//
//	map[NodeKey]float64 - Influence score per node. Empty graph yields an
//	                      empty map.
//	error - Invalid options, or ErrNotFrozen on a building graph.
//
// Complexity: O(iterations * (V + E)).
func (g *Graph) InfluencePropagation(opts InfluenceOptions) (map[NodeKey]float64, error) {
	if g.state != StateReadOnly {
		return nil, ErrNotFrozen
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	n := len(g.nodes)
	if n == 0 {
		return map[NodeKey]float64{}, nil
	}

	scores := make([]float64, n)
	next := make([]float64, n)
	initial := 1.0 / float64(n)
	for i := range scores {
		scores[i] = initial
	}

	// Precompute each node's total out-weight once.
	outWeight := make([]float64, n)
	for i := range g.nodes {
		for _, ei := range g.nodes[i].outgoing {
			outWeight[i] += g.edges[ei].Weight
		}
	}

	teleport := (1 - opts.DampingFactor) / float64(n)
	for iter := 0; iter < opts.MaxIterations; iter++ {
		var sinkMass float64
		for i := range next {
			next[i] = 0
		}
		for i := range g.nodes {
			if outWeight[i] == 0 {
				sinkMass += scores[i]
				continue
			}
			share := scores[i] / outWeight[i]
			for _, ei := range g.nodes[i].outgoing {
				e := &g.edges[ei]
				next[e.To] += share * e.Weight
			}
		}
		sinkShare := sinkMass / float64(n)

		var delta float64
		for i := range next {
			next[i] = teleport + opts.DampingFactor*(next[i]+sinkShare)
			delta += math.Abs(next[i] - scores[i])
		}
		scores, next = next, scores
		if delta < opts.Convergence {
			break
		}
	}

	result := make(map[NodeKey]float64, n)
	for i := range g.nodes {
		result[g.nodes[i].Key] = scores[i]
	}
	return result, nil
}
