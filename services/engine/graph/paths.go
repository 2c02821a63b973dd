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
	"container/heap"
	"context"
	"fmt"
	"math"
	"sort"
	"time"
)

// =============================================================================
// Shortest Weighted Path
// =============================================================================

// PathEpsilon pads the transformed edge cost 1/(weight+ε) so zero-weight
// edges never divide by zero.
const PathEpsilon = 0.01

// costTolerance is the float tolerance under which two path costs are
// considered tied and the hop-count tie-break applies.
const costTolerance = 1e-9

// PathResult is the outcome of a shortest-path query. A missing path is a
// normal outcome, reported with Found == false rather than an error.
type PathResult struct {
	// Found is false when no directed path exists.
	Found bool `json:"found"`

	// Path is the node sequence from source to target, inclusive.
	Path []NodeKey `json:"path,omitempty"`

	// TotalWeight is the sum of the original (untransformed) aggregate
	// edge weights along the path.
	TotalWeight float64 `json:"total_weight"`

	// Hops is len(Path) - 1.
	Hops int `json:"hops"`
}

// PathFinder runs weighted path queries over a frozen graph.
//
// Higher edge weight means a warmer relationship, so the search minimizes
// the transformed cost 1/(weight+ε): strong edges are cheap, weak edges
// expensive.
//
// Thread Safety: read-only over the frozen graph; share freely.
type PathFinder struct {
	g *Graph
}

// NewPathFinder creates a PathFinder over a frozen graph.
func NewPathFinder(g *Graph) (*PathFinder, error) {
	if g.State() != StateReadOnly {
		return nil, ErrNotFrozen
	}
	return &PathFinder{g: g}, nil
}

// pqItem is one entry in the Dijkstra priority queue.
type pqItem struct {
	node int32
	cost float64
	hops int
}

type pathPQ []pqItem

func (q pathPQ) Len() int { return len(q) }
func (q pathPQ) Less(i, j int) bool {
	if math.Abs(q[i].cost-q[j].cost) > costTolerance {
		return q[i].cost < q[j].cost
	}
	if q[i].hops != q[j].hops {
		return q[i].hops < q[j].hops
	}
	return q[i].node < q[j].node
}
func (q pathPQ) Swap(i, j int)      { q[i], q[j] = q[j], q[i] }
func (q *pathPQ) Push(x any)        { *q = append(*q, x.(pqItem)) }
func (q *pathPQ) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

// ShortestWeightedPath finds the minimum-cost directed path from source to
// target.
//
// Description:
//
//	Dijkstra over the transformed cost. Among paths whose costs tie
//	within floating tolerance, the one with fewer hops wins. The returned
//	TotalWeight is the sum of the original aggregate weights, not the
//	transformed cost.
//
// Outputs:
//
//	PathResult - Found == false when no directed path exists; never an
//	             error for absence.
//	error - Only for malformed keys (ErrInvalidKey).
func (f *PathFinder) ShortestWeightedPath(source, target NodeKey) (PathResult, error) {
	start := time.Now()
	defer func() {
		recordQueryMetrics(context.Background(), "shortest_path", time.Since(start))
	}()

	if !source.Valid() || !target.Valid() {
		return PathResult{}, fmt.Errorf("%w: %s -> %s", ErrInvalidKey, source, target)
	}
	srcIdx, ok := f.g.idxOf(source)
	if !ok {
		return PathResult{}, nil
	}
	dstIdx, ok := f.g.idxOf(target)
	if !ok {
		return PathResult{}, nil
	}
	if srcIdx == dstIdx {
		return PathResult{Found: true, Path: []NodeKey{source}, Hops: 0}, nil
	}

	n := f.g.NodeCount()
	dist := make([]float64, n)
	hops := make([]int, n)
	prev := make([]int32, n)
	done := make([]bool, n)
	for i := range dist {
		dist[i] = math.Inf(1)
		prev[i] = -1
	}
	dist[srcIdx] = 0

	pq := pathPQ{{node: srcIdx}}
	heap.Init(&pq)
	for pq.Len() > 0 {
		item := heap.Pop(&pq).(pqItem)
		if done[item.node] {
			continue
		}
		done[item.node] = true
		if item.node == dstIdx {
			break
		}
		for _, ne := range f.g.aggListOf(item.node) {
			if done[ne.to] {
				continue
			}
			cost := item.cost + 1.0/(ne.weight+PathEpsilon)
			better := cost < dist[ne.to]-costTolerance
			tied := math.Abs(cost-dist[ne.to]) <= costTolerance && item.hops+1 < hops[ne.to]
			if better || tied {
				dist[ne.to] = cost
				hops[ne.to] = item.hops + 1
				prev[ne.to] = item.node
				heap.Push(&pq, pqItem{node: ne.to, cost: cost, hops: item.hops + 1})
			}
		}
	}

	if !done[dstIdx] {
		return PathResult{}, nil
	}

	var rev []int32
	for at := dstIdx; at != -1; at = prev[at] {
		rev = append(rev, at)
	}
	result := PathResult{Found: true, Hops: len(rev) - 1}
	result.Path = make([]NodeKey, len(rev))
	for i, idx := range rev {
		result.Path[len(rev)-1-i] = f.g.nodeAt(idx).Key
	}
	for i := 0; i+1 < len(result.Path); i++ {
		result.TotalWeight += f.g.AggregateWeight(result.Path[i], result.Path[i+1])
	}
	return result, nil
}

// =============================================================================
// Multi-Path Ranking
// =============================================================================

// rolePriority orders target contacts by seniority for path ranking.
func rolePriority(roleLevel string) int {
	switch roleLevel {
	case "c_suite":
		return 1
	case "decision_maker":
		return 2
	case "influencer":
		return 3
	default:
		return 4
	}
}

// IntroPath is one candidate introduction route from a team member to a
// contact at the target organization.
type IntroPath struct {
	From        NodeKey   `json:"from"`
	To          NodeKey   `json:"to"`
	ToRole      string    `json:"to_role"`
	Path        []NodeKey `json:"path"`
	TotalWeight float64   `json:"total_weight"`
	Hops        int       `json:"hops"`
}

// FindAllPaths enumerates the shortest path from every team-affiliated
// person to every contact at the target organization, keeps those within
// maxHops, and ranks them ascending by (hops, target role priority).
//
// Outputs:
//
//	[]IntroPath - Ranked candidate routes; empty when the organization is
//	              unknown or unreachable.
//	error - Only for malformed keys.
func (f *PathFinder) FindAllPaths(targetOrg NodeKey, maxHops int) ([]IntroPath, error) {
	if !targetOrg.Valid() || targetOrg.Kind != KindOrganization {
		return nil, fmt.Errorf("%w: target %s", ErrInvalidKey, targetOrg)
	}
	if maxHops <= 0 {
		maxHops = 3
	}

	var team, targets []*Node
	for node := range f.g.Nodes() {
		if node.Key.Kind != KindPerson {
			continue
		}
		if node.Attrs.Team {
			team = append(team, node)
		}
		if node.Attrs.OrgID == targetOrg.ID {
			targets = append(targets, node)
		}
	}

	var paths []IntroPath
	for _, target := range targets {
		for _, member := range team {
			if member.Key == target.Key {
				continue
			}
			res, err := f.ShortestWeightedPath(member.Key, target.Key)
			if err != nil {
				return nil, err
			}
			if !res.Found || res.Hops > maxHops {
				continue
			}
			paths = append(paths, IntroPath{
				From:        member.Key,
				To:          target.Key,
				ToRole:      target.Attrs.RoleLevel,
				Path:        res.Path,
				TotalWeight: res.TotalWeight,
				Hops:        res.Hops,
			})
		}
	}

	sort.SliceStable(paths, func(i, j int) bool {
		if paths[i].Hops != paths[j].Hops {
			return paths[i].Hops < paths[j].Hops
		}
		return rolePriority(paths[i].ToRole) < rolePriority(paths[j].ToRole)
	})
	return paths, nil
}

// =============================================================================
// Combined Intro Ranking
// =============================================================================

// RankedIntro is one scored introduction route.
type RankedIntro struct {
	Rank      int       `json:"rank"`
	IntroType string    `json:"intro_type"`
	Score     float64   `json:"score"`
	Path      []NodeKey `json:"path"`
	Hops      int       `json:"hops"`
}

// strongDirectThreshold is the raw strength above which a direct team
// relationship counts as an immediately actionable intro.
const strongDirectThreshold = 4.0

// RankIntroPaths combines direct strong relationships and multi-hop
// network paths into one descending-scored list.
//
// Description:
//
//	Direct team relationships with raw strength >= 4 score strength*20;
//	network paths of 1-2 hops score 80/hops and 3-hop paths 40/3. Ties
//	keep enumeration order, which is deterministic.
func (f *PathFinder) RankIntroPaths(targetOrg NodeKey, maxHops int) ([]RankedIntro, error) {
	if !targetOrg.Valid() || targetOrg.Kind != KindOrganization {
		return nil, fmt.Errorf("%w: target %s", ErrInvalidKey, targetOrg)
	}
	var ranked []RankedIntro

	// Direct strong edges from team members to contacts at the target.
	for node := range f.g.Nodes() {
		if node.Key.Kind != KindPerson || !node.Attrs.Team {
			continue
		}
		for _, e := range f.g.OutEdges(node.Key) {
			to := f.g.nodeAt(e.To)
			if to.Key.Kind != KindPerson || to.Attrs.OrgID != targetOrg.ID {
				continue
			}
			if e.Strength < strongDirectThreshold {
				continue
			}
			ranked = append(ranked, RankedIntro{
				IntroType: "direct",
				Score:     e.Strength * 20,
				Path:      []NodeKey{node.Key, to.Key},
				Hops:      1,
			})
		}
	}

	paths, err := f.FindAllPaths(targetOrg, maxHops)
	if err != nil {
		return nil, err
	}
	for _, p := range paths {
		if p.Hops < 2 {
			// 1-hop routes are already covered by the direct pass when
			// they are strong; weak 1-hop routes still rank as network
			// paths below.
			if p.TotalWeight >= strongDirectThreshold/5.0 {
				continue
			}
		}
		score := 80.0 / float64(maxInt(p.Hops, 1))
		if p.Hops >= 3 {
			score = 40.0 / float64(p.Hops)
		}
		ranked = append(ranked, RankedIntro{
			IntroType: fmt.Sprintf("%d_hop_network", p.Hops),
			Score:     score,
			Path:      p.Path,
			Hops:      p.Hops,
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	return ranked, nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
