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
	"fmt"
	"log/slog"
	"sort"
	"time"
)

// =============================================================================
// Cluster Strategy
// =============================================================================

// Cluster is one detected community.
type Cluster struct {
	// ID is the cluster id, dense from 0.
	ID int `json:"id"`

	// Members are the node keys in this cluster, in arena order.
	Members []NodeKey `json:"members"`

	// DominantCategory is the most common organization category among the
	// cluster's members, with its share of the cluster's organizations.
	// Empty when the cluster contains no organizations.
	DominantCategory string  `json:"dominant_category,omitempty"`
	DominantShare    float64 `json:"dominant_share,omitempty"`
}

// ClusterResult is a full partition of the graph's nodes.
//
// Invariant: Assignments covers every node exactly once; the clusters
// never overlap.
type ClusterResult struct {
	// Assignments maps every node to its cluster id.
	Assignments map[NodeKey]int `json:"assignments"`

	// Clusters lists the clusters ordered by id.
	Clusters []Cluster `json:"clusters"`

	// Strategy names the strategy that produced the partition.
	Strategy string `json:"strategy"`

	// BudgetExceeded is set when modularity optimization ran out of time
	// and the deterministic fallback partition was returned instead.
	BudgetExceeded bool `json:"budget_exceeded,omitempty"`

	// Iterations is the number of optimization sweeps performed.
	Iterations int `json:"iterations"`
}

// ClusterStrategy partitions a frozen graph into communities.
//
// Implementations must return a complete partition for every input: each
// node in exactly one cluster, even on a graph with no edges.
type ClusterStrategy interface {
	Name() string
	Detect(ctx context.Context, g *Graph) (*ClusterResult, error)
}

// =============================================================================
// Undirected Projection
// =============================================================================

// projection is the undirected weighted view used by modularity
// optimization. Edge weight is the max of the two directions' aggregate
// weights.
type projection struct {
	// neighbors[i] lists (node, weight) pairs sorted by node index.
	neighbors [][]projEdge

	// degree[i] is the weighted degree of node i.
	degree []float64

	// totalWeight is the sum of all undirected edge weights (m).
	totalWeight float64
}

type projEdge struct {
	to     int32
	weight float64
}

func project(g *Graph) *projection {
	n := len(g.nodes)
	p := &projection{
		neighbors: make([][]projEdge, n),
		degree:    make([]float64, n),
	}

	type pair struct{ lo, hi int32 }
	dir := make(map[pair][2]float64)
	for i := range g.edges {
		e := &g.edges[i]
		if e.From == e.To {
			continue
		}
		lo, hi := e.From, e.To
		fwd := 0
		if lo > hi {
			lo, hi = hi, lo
			fwd = 1
		}
		w := dir[pair{lo, hi}]
		w[fwd] += e.Weight
		dir[pair{lo, hi}] = w
	}

	for pr, w := range dir {
		und := w[0]
		if w[1] > und {
			und = w[1]
		}
		if und <= 0 {
			continue
		}
		p.neighbors[pr.lo] = append(p.neighbors[pr.lo], projEdge{to: pr.hi, weight: und})
		p.neighbors[pr.hi] = append(p.neighbors[pr.hi], projEdge{to: pr.lo, weight: und})
	}
	// Degrees and the total are summed over sorted neighbor lists so the
	// float accumulation order never depends on map iteration.
	for i := range p.neighbors {
		sort.Slice(p.neighbors[i], func(a, b int) bool {
			return p.neighbors[i][a].to < p.neighbors[i][b].to
		})
		for _, ne := range p.neighbors[i] {
			p.degree[i] += ne.weight
			if ne.to > int32(i) {
				p.totalWeight += ne.weight
			}
		}
	}
	return p
}

// =============================================================================
// Modularity Strategy (Louvain-style greedy)
// =============================================================================

// ModularityOptions configures the modularity strategy.
type ModularityOptions struct {
	// MaxIterations bounds the number of local-move sweeps. Default: 50.
	MaxIterations int

	// Resolution scales community granularity; 1.0 is standard modularity.
	Resolution float64

	// Budget is the wall-clock time allowed before falling back to the
	// deterministic partition. Zero means no budget.
	Budget time.Duration

	// Logger receives a warning when the budget is exceeded.
	Logger *slog.Logger
}

// DefaultModularityOptions returns the standard parameters.
func DefaultModularityOptions() ModularityOptions {
	return ModularityOptions{
		MaxIterations: 50,
		Resolution:    1.0,
	}
}

// Validate checks the options.
func (o ModularityOptions) Validate() error {
	if o.MaxIterations <= 0 {
		return fmt.Errorf("max iterations must be positive, got %d", o.MaxIterations)
	}
	if o.Resolution <= 0 {
		return fmt.Errorf("resolution must be positive, got %v", o.Resolution)
	}
	return nil
}

// ModularityStrategy partitions by greedy modularity maximization: sweep
// all nodes, moving each to the neighboring community with the best
// modularity gain, until a sweep makes no move.
//
// Modularity optimization is the only potentially long-running analysis,
// so it carries a time budget; when exceeded it hands the graph to the
// deterministic affiliation partition instead of blocking the pass.
type ModularityStrategy struct {
	opts ModularityOptions
}

// NewModularityStrategy creates the strategy.
func NewModularityStrategy(opts ModularityOptions) (*ModularityStrategy, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &ModularityStrategy{opts: opts}, nil
}

// Name implements ClusterStrategy.
func (s *ModularityStrategy) Name() string { return "modularity" }

// Detect implements ClusterStrategy.
func (s *ModularityStrategy) Detect(ctx context.Context, g *Graph) (*ClusterResult, error) {
	if g.State() != StateReadOnly {
		return nil, ErrNotFrozen
	}

	p := project(g)
	if p.totalWeight == 0 {
		// Fully disconnected projection: the deterministic partition is
		// the defined result, not a degraded one.
		res := affiliationPartition(g)
		res.Strategy = s.Name()
		return res, nil
	}

	deadline := time.Time{}
	if s.opts.Budget > 0 {
		deadline = time.Now().Add(s.opts.Budget)
	}

	n := len(g.nodes)
	community := make([]int32, n)
	for i := range community {
		community[i] = int32(i)
	}
	// commDegree[c] = sum of weighted degrees of the community's nodes.
	commDegree := make([]float64, n)
	copy(commDegree, p.degree)

	m2 := 2 * p.totalWeight
	iterations := 0
	for ; iterations < s.opts.MaxIterations; iterations++ {
		if err := ctx.Err(); err != nil {
			return s.fallback(g, iterations, "context cancelled"), nil
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			return s.fallback(g, iterations, "time budget exceeded"), nil
		}

		moved := false
		for i := 0; i < n; i++ {
			if len(p.neighbors[i]) == 0 {
				continue
			}
			current := community[i]

			// Weight from node i into each neighboring community.
			links := make(map[int32]float64)
			for _, ne := range p.neighbors[i] {
				links[community[ne.to]] += ne.weight
			}

			commDegree[current] -= p.degree[i]

			bestComm := current
			bestGain := s.opts.Resolution * links[current] / p.totalWeight
			bestGain -= p.degree[i] * commDegree[current] / (m2 * p.totalWeight)

			// Deterministic candidate order: sorted community ids.
			cands := make([]int32, 0, len(links))
			for c := range links {
				cands = append(cands, c)
			}
			sort.Slice(cands, func(a, b int) bool { return cands[a] < cands[b] })
			for _, c := range cands {
				if c == current {
					continue
				}
				gain := s.opts.Resolution * links[c] / p.totalWeight
				gain -= p.degree[i] * commDegree[c] / (m2 * p.totalWeight)
				if gain > bestGain+1e-12 {
					bestGain = gain
					bestComm = c
				}
			}

			commDegree[bestComm] += p.degree[i]
			if bestComm != current {
				community[i] = bestComm
				moved = true
			}
		}
		if !moved {
			iterations++
			break
		}
	}

	assignments := make([]int, n)
	for i, c := range community {
		assignments[i] = int(c)
	}
	res := buildClusterResult(g, assignments)
	res.Strategy = s.Name()
	res.Iterations = iterations
	return res, nil
}

func (s *ModularityStrategy) fallback(g *Graph, iterations int, reason string) *ClusterResult {
	if s.opts.Logger != nil {
		s.opts.Logger.Warn("modularity detection fell back to affiliation partition",
			"reason", reason,
			"iterations", iterations,
		)
	}
	res := affiliationPartition(g)
	res.Strategy = s.Name()
	res.BudgetExceeded = true
	res.Iterations = iterations
	return res
}

// =============================================================================
// Affiliation Strategy (deterministic fallback)
// =============================================================================

// AffiliationStrategy assigns every person to its affiliated
// organization's cluster and gives each unaffiliated node a singleton
// cluster. Deterministic, linear time, and always a valid partition.
type AffiliationStrategy struct{}

// Name implements ClusterStrategy.
func (AffiliationStrategy) Name() string { return "affiliation" }

// Detect implements ClusterStrategy.
func (AffiliationStrategy) Detect(ctx context.Context, g *Graph) (*ClusterResult, error) {
	if g.State() != StateReadOnly {
		return nil, ErrNotFrozen
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	res := affiliationPartition(g)
	res.Strategy = AffiliationStrategy{}.Name()
	return res, nil
}

// affiliationPartition groups persons with their organization. Each
// organization anchors a cluster; persons referencing an organization not
// present in the graph, and all other unaffiliated nodes, become
// singletons.
func affiliationPartition(g *Graph) *ClusterResult {
	n := len(g.nodes)
	assignments := make([]int, n)
	anchor := make(map[int64]int) // org id -> provisional cluster id

	next := 0
	for i := range g.nodes {
		node := &g.nodes[i]
		switch node.Key.Kind {
		case KindOrganization:
			c, ok := anchor[node.Key.ID]
			if !ok {
				c = next
				next++
				anchor[node.Key.ID] = c
			}
			assignments[i] = c
		case KindPerson:
			if node.Attrs.OrgID > 0 && g.HasNode(OrgKey(node.Attrs.OrgID)) {
				c, ok := anchor[node.Attrs.OrgID]
				if !ok {
					c = next
					next++
					anchor[node.Attrs.OrgID] = c
				}
				assignments[i] = c
			} else {
				assignments[i] = next
				next++
			}
		}
	}
	return buildClusterResult(g, assignments)
}

// =============================================================================
// Result Assembly
// =============================================================================

// buildClusterResult renumbers raw assignments densely from 0 (ordered by
// first appearance in arena order) and computes per-cluster sector
// dominance.
func buildClusterResult(g *Graph, raw []int) *ClusterResult {
	renumber := make(map[int]int)
	res := &ClusterResult{
		Assignments: make(map[NodeKey]int, len(raw)),
	}
	for i, c := range raw {
		id, ok := renumber[c]
		if !ok {
			id = len(renumber)
			renumber[c] = id
			res.Clusters = append(res.Clusters, Cluster{ID: id})
		}
		cluster := &res.Clusters[id]
		cluster.Members = append(cluster.Members, g.nodes[i].Key)
		res.Assignments[g.nodes[i].Key] = id
	}

	for ci := range res.Clusters {
		cluster := &res.Clusters[ci]
		counts := make(map[Category]int)
		orgs := 0
		for _, key := range cluster.Members {
			if key.Kind != KindOrganization {
				continue
			}
			node, _ := g.NodeByKey(key)
			counts[node.Attrs.Category]++
			orgs++
		}
		if orgs == 0 {
			continue
		}
		best := CategoryDefault
		bestCount := -1
		for _, cat := range []Category{CategoryDefault, CategoryHighGrowth, CategoryInstitutional} {
			if counts[cat] > bestCount {
				best = cat
				bestCount = counts[cat]
			}
		}
		cluster.DominantCategory = best.String()
		cluster.DominantShare = float64(bestCount) / float64(orgs)
	}
	return res
}
