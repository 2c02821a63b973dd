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
	"math"
)

// =============================================================================
// Centrality & Leverage
// =============================================================================

// Analytics computes per-node influence metrics over a frozen graph.
//
// Thread Safety: Analytics holds only a reference to the frozen graph, so
// any number of goroutines may share one instance.
type Analytics struct {
	g *Graph
}

// NewAnalytics creates an Analytics over a frozen graph.
//
// Outputs:
//
//	*Analytics - The analyzer.
//	error - ErrNotFrozen if the graph is still building.
func NewAnalytics(g *Graph) (*Analytics, error) {
	if g.State() != StateReadOnly {
		return nil, ErrNotFrozen
	}
	return &Analytics{g: g}, nil
}

// WeightedOutDegree returns a node's direct reach: the sum of computed
// weights over its out-edges. Unknown nodes yield 0.
func (a *Analytics) WeightedOutDegree(key NodeKey) float64 {
	idx, ok := a.g.idxOf(key)
	if !ok {
		return 0
	}
	return a.outDegreeAt(idx)
}

// outDegreeAt iterates the edge list rather than the aggregate map so the
// float sum is order-stable and rebuilds of an unchanged snapshot yield
// bit-identical metrics.
func (a *Analytics) outDegreeAt(idx int32) float64 {
	var sum float64
	for _, ei := range a.g.nodeAt(idx).outgoing {
		sum += a.g.edges[ei].Weight
	}
	return sum
}

// TwoHopLeverage returns a node's second-degree reach:
//
//	Σ over out-neighbors u, Σ over out-neighbors m of u with m ≠ origin,
//	of w(origin,u) * w(u,m)
//
// The origin exclusion prevents a reciprocal edge from counting the node's
// own reach twice. Result is ≥ 0 and unbounded above.
func (a *Analytics) TwoHopLeverage(key NodeKey) float64 {
	origin, ok := a.g.idxOf(key)
	if !ok {
		return 0
	}
	// Edge-list iteration keeps the sum order-stable; parallel edges
	// distribute over the product, so this equals the aggregate-weight
	// formulation.
	var total float64
	for _, e1 := range a.g.nodeAt(origin).outgoing {
		hop1 := &a.g.edges[e1]
		for _, e2 := range a.g.nodeAt(hop1.To).outgoing {
			hop2 := &a.g.edges[e2]
			if hop2.To == origin {
				continue
			}
			total += hop1.Weight * hop2.Weight
		}
	}
	return total
}

// adjacency mix ratios: how much two-hop leverage counts relative to
// direct reach, per category. Warm paths to institutions are typically
// indirect, so institutional entities weight leverage more heavily.
func adjacencyMix(c Category) (direct, twoHop float64) {
	switch c {
	case CategoryInstitutional:
		return 0.35, 0.65
	case CategoryHighGrowth:
		return 0.60, 0.40
	default:
		return 0.50, 0.50
	}
}

// adjacencyScale controls how fast the logistic squash saturates.
const adjacencyScale = 4.0

// StrategicAdjacencyIndex combines direct reach and two-hop leverage into
// a bounded 0-100 score.
//
// Description:
//
//	raw = direct_ratio * outDegree + twohop_ratio * leverage, with the
//	ratios selected by the node's category. The raw value is squashed
//	through a logistic transform that maps 0 to 0 and saturates at 100,
//	so the index stays comparable across graphs of different density.
func (a *Analytics) StrategicAdjacencyIndex(key NodeKey) float64 {
	idx, ok := a.g.idxOf(key)
	if !ok {
		return 0
	}
	direct, twoHop := adjacencyMix(a.g.nodeAt(idx).Attrs.Category)
	raw := direct*a.outDegreeAt(idx) + twoHop*a.TwoHopLeverage(key)
	return 100 * (2/(1+math.Exp(-raw/adjacencyScale)) - 1)
}

// =============================================================================
// Broker Coverage
// =============================================================================

// CoverageClass classifies how many independent bridges reach an
// organization.
type CoverageClass string

const (
	// CoverageNone: no team-affiliated person within two hops.
	CoverageNone CoverageClass = "none"

	// CoverageSingleThreaded: exactly one bridge; the relationship is
	// exposed if that one person leaves.
	CoverageSingleThreaded CoverageClass = "single_threaded"

	// CoverageWellCovered: two or more independent bridges.
	CoverageWellCovered CoverageClass = "well_covered"
)

// BrokerCoverage is the competitive-exposure signal for one organization.
type BrokerCoverage struct {
	Org     NodeKey       `json:"org"`
	Bridges []NodeKey     `json:"bridges"`
	Class   CoverageClass `json:"class"`
}

// BrokerCoverageOverlap finds the distinct team-affiliated persons
// reachable within two hops of the organization, direction-agnostic, and
// classifies the coverage.
//
// Inputs:
//
//	org - Organization key. Non-organization or unknown keys yield
//	      CoverageNone with no bridges.
func (a *Analytics) BrokerCoverageOverlap(org NodeKey) BrokerCoverage {
	cov := BrokerCoverage{Org: org, Class: CoverageNone}
	start, ok := a.g.idxOf(org)
	if !ok || org.Kind != KindOrganization {
		return cov
	}

	// Two-level undirected BFS from the organization.
	visited := map[int32]bool{start: true}
	frontier := []int32{start}
	for depth := 0; depth < 2; depth++ {
		var next []int32
		for _, idx := range frontier {
			n := a.g.nodeAt(idx)
			for _, ei := range n.outgoing {
				to := a.g.edges[ei].To
				if !visited[to] {
					visited[to] = true
					next = append(next, to)
				}
			}
			for _, ei := range n.incoming {
				from := a.g.edges[ei].From
				if !visited[from] {
					visited[from] = true
					next = append(next, from)
				}
			}
		}
		for _, idx := range next {
			n := a.g.nodeAt(idx)
			if n.Key.Kind == KindPerson && n.Attrs.Team {
				cov.Bridges = append(cov.Bridges, n.Key)
			}
		}
		frontier = next
	}

	switch len(cov.Bridges) {
	case 0:
		cov.Class = CoverageNone
	case 1:
		cov.Class = CoverageSingleThreaded
	default:
		cov.Class = CoverageWellCovered
	}
	return cov
}
