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
	"time"
)

// =============================================================================
// Node Identity
// =============================================================================

// NodeKind discriminates the two entity variants in the graph.
type NodeKind uint8

const (
	// KindPerson is an individual contact.
	KindPerson NodeKind = iota

	// KindOrganization is a company, fund, or other legal entity.
	KindOrganization
)

// String returns the lowercase name of the kind.
func (k NodeKind) String() string {
	switch k {
	case KindPerson:
		return "person"
	case KindOrganization:
		return "organization"
	default:
		return "unknown"
	}
}

// ParseNodeKind converts a string to a NodeKind.
//
// Outputs:
//
//	NodeKind - The parsed kind.
//	error - ErrInvalidKey if the string names no known kind.
func ParseNodeKind(s string) (NodeKind, error) {
	switch s {
	case "person":
		return KindPerson, nil
	case "organization":
		return KindOrganization, nil
	default:
		return 0, fmt.Errorf("%w: unknown kind %q", ErrInvalidKey, s)
	}
}

// NodeKey uniquely identifies a node as a (kind, id) pair.
//
// Keys are comparable values and are the only identity the graph algorithms
// rely on; display attributes are opaque to them.
type NodeKey struct {
	Kind NodeKind
	ID   int64
}

// PersonKey returns the key for a person node.
func PersonKey(id int64) NodeKey { return NodeKey{Kind: KindPerson, ID: id} }

// OrgKey returns the key for an organization node.
func OrgKey(id int64) NodeKey { return NodeKey{Kind: KindOrganization, ID: id} }

// Valid reports whether the key has a known kind and a positive id.
func (k NodeKey) Valid() bool {
	return (k.Kind == KindPerson || k.Kind == KindOrganization) && k.ID > 0
}

// String renders the key as "person:42" or "organization:7".
func (k NodeKey) String() string {
	return fmt.Sprintf("%s:%d", k.Kind, k.ID)
}

// Category tags an entity for downstream weighting. The set is closed so
// weight-vector selection is checked exhaustively at compile time.
type Category uint8

const (
	// CategoryDefault is used when no stronger signal is available.
	CategoryDefault Category = iota

	// CategoryHighGrowth marks venture-scale companies where funding and
	// hiring signals dominate.
	CategoryHighGrowth

	// CategoryInstitutional marks mature capital-side entities (funds,
	// banks) where relationship depth dominates.
	CategoryInstitutional
)

// String returns the snake_case name of the category.
func (c Category) String() string {
	switch c {
	case CategoryHighGrowth:
		return "high_growth"
	case CategoryInstitutional:
		return "institutional"
	default:
		return "default"
	}
}

// =============================================================================
// Nodes and Edges
// =============================================================================

// NodeAttrs carries the display and classification attributes of a node.
// The graph algorithms only read Category, Team, RoleLevel, and OrgID;
// everything else rides along for callers.
type NodeAttrs struct {
	// Name is the display name of the entity.
	Name string

	// Category is the downstream weighting tag.
	Category Category

	// Status is an opaque CRM status string ("prospect", "active_client", ...).
	Status string

	// RoleLevel is the contact seniority for persons
	// ("c_suite", "decision_maker", "influencer", "team", ...).
	RoleLevel string

	// OrgID references the person's organization (0 = none). Only
	// meaningful for person nodes; the builder synthesizes a membership
	// edge from it.
	OrgID int64

	// Team marks internal/team-affiliated persons used as bridges in
	// coverage analysis.
	Team bool

	// CashReservesUSD and CashAsOf carry an organization's disclosed
	// liquidity for institutional scoring. Zero when undisclosed.
	CashReservesUSD float64
	CashAsOf        time.Time
}

// Node is one entry in the graph's node arena.
type Node struct {
	// Key is the unique (kind, id) identity.
	Key NodeKey

	// Attrs are the entity attributes, opaque to the algorithms except
	// where documented on NodeAttrs.
	Attrs NodeAttrs

	// outgoing and incoming hold edge indices into the edge arena.
	outgoing []int32
	incoming []int32
}

// Edge is one directed relationship in the graph. Multiple edges between
// the same ordered node pair are permitted (different relationship types).
type Edge struct {
	// From and To are arena indices of the endpoints.
	From int32
	To   int32

	// Type is the relationship type ("colleague", "investor",
	// "affiliated_with", ...).
	Type string

	// Strength is the raw 1-5 relationship strength.
	Strength float64

	// Confidence is the 0-1 record confidence.
	Confidence float64

	// LastInteraction is the most recent contact date. The zero value
	// means unknown recency.
	LastInteraction time.Time

	// Weight is the derived 0-1 edge weight. Always computed, never
	// stored input.
	Weight float64
}

// =============================================================================
// Graph
// =============================================================================

// GraphState tracks the lifecycle of a Graph instance.
type GraphState int32

const (
	// StateBuilding allows mutation.
	StateBuilding GraphState = iota

	// StateReadOnly forbids mutation and enables analysis.
	StateReadOnly
)

// Graph is the in-memory relationship graph.
//
// See the package documentation for the ownership and threading model.
type Graph struct {
	nodes []Node
	edges []Edge
	index map[NodeKey]int32

	// aggOut[i] maps target arena index -> summed weight of all parallel
	// edges i->target. Computed by Freeze; nil while building.
	aggOut []map[int32]float64

	// aggList[i] holds the same aggregates as aggOut[i], ordered by first
	// edge occurrence, for order-stable traversal.
	aggList [][]aggEdge

	state        GraphState
	builtAtMilli int64
	opts         graphOptions
}

type graphOptions struct {
	maxNodes int
	maxEdges int
}

// GraphOption configures a Graph at construction time.
type GraphOption func(*graphOptions)

// WithMaxNodes caps the node count (0 = unlimited).
func WithMaxNodes(n int) GraphOption {
	return func(o *graphOptions) { o.maxNodes = n }
}

// WithMaxEdges caps the edge count (0 = unlimited).
func WithMaxEdges(n int) GraphOption {
	return func(o *graphOptions) { o.maxEdges = n }
}

// NewGraph creates an empty graph in the Building state.
func NewGraph(opts ...GraphOption) *Graph {
	var o graphOptions
	for _, opt := range opts {
		opt(&o)
	}
	return &Graph{
		index: make(map[NodeKey]int32),
		opts:  o,
	}
}

// AddNode inserts a node or, if the key already exists, updates its
// attributes in place. Idempotent by design: re-adding a node never fails
// and never duplicates it.
//
// Outputs:
//
//	error - ErrGraphFrozen after Freeze, ErrInvalidKey for a malformed
//	        key, ErrMaxNodesExceeded at the configured cap.
func (g *Graph) AddNode(key NodeKey, attrs NodeAttrs) error {
	if g.state != StateBuilding {
		return ErrGraphFrozen
	}
	if !key.Valid() {
		return fmt.Errorf("%w: %s", ErrInvalidKey, key)
	}
	if idx, ok := g.index[key]; ok {
		g.nodes[idx].Attrs = attrs
		return nil
	}
	if g.opts.maxNodes > 0 && len(g.nodes) >= g.opts.maxNodes {
		return ErrMaxNodesExceeded
	}
	g.index[key] = int32(len(g.nodes))
	g.nodes = append(g.nodes, Node{Key: key, Attrs: attrs})
	return nil
}

// AddEdge inserts a directed edge between two existing nodes. The caller
// supplies the already-computed weight (see ComputeWeight); the builder
// layer is responsible for rejecting dangling endpoints before they reach
// this method, so ErrNodeNotFound here indicates a builder bug rather than
// bad input data.
func (g *Graph) AddEdge(e Edge, from, to NodeKey) error {
	if g.state != StateBuilding {
		return ErrGraphFrozen
	}
	fromIdx, ok := g.index[from]
	if !ok {
		return fmt.Errorf("%w: source %s", ErrNodeNotFound, from)
	}
	toIdx, ok := g.index[to]
	if !ok {
		return fmt.Errorf("%w: target %s", ErrNodeNotFound, to)
	}
	if g.opts.maxEdges > 0 && len(g.edges) >= g.opts.maxEdges {
		return ErrMaxEdgesExceeded
	}
	e.From = fromIdx
	e.To = toIdx
	e.Weight = clamp01(e.Weight)
	edgeIdx := int32(len(g.edges))
	g.edges = append(g.edges, e)
	g.nodes[fromIdx].outgoing = append(g.nodes[fromIdx].outgoing, edgeIdx)
	g.nodes[toIdx].incoming = append(g.nodes[toIdx].incoming, edgeIdx)
	return nil
}

// Freeze transitions the graph to ReadOnly and computes the aggregate
// adjacency index used by the analyses. Freezing twice is a no-op.
func (g *Graph) Freeze() {
	if g.state == StateReadOnly {
		return
	}
	g.aggOut = make([]map[int32]float64, len(g.nodes))
	g.aggList = make([][]aggEdge, len(g.nodes))
	for i := range g.nodes {
		if len(g.nodes[i].outgoing) == 0 {
			continue
		}
		agg := make(map[int32]float64, len(g.nodes[i].outgoing))
		var order []int32
		for _, ei := range g.nodes[i].outgoing {
			e := &g.edges[ei]
			if _, seen := agg[e.To]; !seen {
				order = append(order, e.To)
			}
			agg[e.To] += e.Weight
		}
		list := make([]aggEdge, len(order))
		for j, to := range order {
			list[j] = aggEdge{to: to, weight: agg[to]}
		}
		g.aggOut[i] = agg
		g.aggList[i] = list
	}
	g.state = StateReadOnly
	g.builtAtMilli = time.Now().UnixMilli()
}

// State returns the current lifecycle state.
func (g *Graph) State() GraphState { return g.state }

// BuiltAtMilli returns the freeze timestamp in Unix milliseconds,
// or 0 if the graph has not been frozen.
func (g *Graph) BuiltAtMilli() int64 { return g.builtAtMilli }

// HasNode reports whether a key is present.
func (g *Graph) HasNode(key NodeKey) bool {
	_, ok := g.index[key]
	return ok
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of edges, membership edges included.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// NodeByKey returns the node for a key.
func (g *Graph) NodeByKey(key NodeKey) (*Node, bool) {
	idx, ok := g.index[key]
	if !ok {
		return nil, false
	}
	return &g.nodes[idx], true
}

// OutEdges returns the outgoing edges of a node. The returned slice is
// freshly allocated; callers may not mutate edge contents.
func (g *Graph) OutEdges(key NodeKey) []Edge {
	idx, ok := g.index[key]
	if !ok {
		return nil
	}
	out := make([]Edge, 0, len(g.nodes[idx].outgoing))
	for _, ei := range g.nodes[idx].outgoing {
		out = append(out, g.edges[ei])
	}
	return out
}

// InEdges returns the incoming edges of a node.
func (g *Graph) InEdges(key NodeKey) []Edge {
	idx, ok := g.index[key]
	if !ok {
		return nil
	}
	in := make([]Edge, 0, len(g.nodes[idx].incoming))
	for _, ei := range g.nodes[idx].incoming {
		in = append(in, g.edges[ei])
	}
	return in
}

// Nodes iterates all nodes in insertion order.
//
// Example:
//
//	for n := range g.Nodes() {
//	    fmt.Println(n.Key)
//	}
func (g *Graph) Nodes() func(yield func(*Node) bool) {
	return func(yield func(*Node) bool) {
		for i := range g.nodes {
			if !yield(&g.nodes[i]) {
				return
			}
		}
	}
}

// KeyAt resolves an arena index (as found on Edge.From/Edge.To) back to
// its node key.
func (g *Graph) KeyAt(idx int32) (NodeKey, bool) {
	if idx < 0 || int(idx) >= len(g.nodes) {
		return NodeKey{}, false
	}
	return g.nodes[idx].Key, true
}

// Keys returns all node keys in insertion order.
func (g *Graph) Keys() []NodeKey {
	keys := make([]NodeKey, len(g.nodes))
	for i := range g.nodes {
		keys[i] = g.nodes[i].Key
	}
	return keys
}

// AggregateWeight returns the summed weight of all parallel edges from
// src to dst, or 0 if none exist. Only valid on a frozen graph; while
// building it falls back to a linear scan.
func (g *Graph) AggregateWeight(src, dst NodeKey) float64 {
	si, ok := g.index[src]
	if !ok {
		return 0
	}
	di, ok := g.index[dst]
	if !ok {
		return 0
	}
	if g.aggOut != nil {
		if agg := g.aggOut[si]; agg != nil {
			return agg[di]
		}
		return 0
	}
	var sum float64
	for _, ei := range g.nodes[si].outgoing {
		if g.edges[ei].To == di {
			sum += g.edges[ei].Weight
		}
	}
	return sum
}

// Stats summarizes the graph for build reporting.
type Stats struct {
	Nodes         int `json:"nodes"`
	Edges         int `json:"edges"`
	Persons       int `json:"persons"`
	Organizations int `json:"organizations"`
	BuiltAtMilli  int64 `json:"built_at_milli"`
}

// Stats returns current counts.
func (g *Graph) Stats() Stats {
	s := Stats{
		Nodes:        len(g.nodes),
		Edges:        len(g.edges),
		BuiltAtMilli: g.builtAtMilli,
	}
	for i := range g.nodes {
		if g.nodes[i].Key.Kind == KindPerson {
			s.Persons++
		} else {
			s.Organizations++
		}
	}
	return s
}

// =============================================================================
// Internal accessors shared by the analysis files
// =============================================================================

// idxOf returns the arena index for a key.
func (g *Graph) idxOf(key NodeKey) (int32, bool) {
	idx, ok := g.index[key]
	return idx, ok
}

// nodeAt returns the node at an arena index.
func (g *Graph) nodeAt(i int32) *Node { return &g.nodes[i] }

// aggEdge is one aggregated out-neighbor entry.
type aggEdge struct {
	to     int32
	weight float64
}

// aggOutOf returns the aggregated out-neighbor weights of an arena index.
// Returns nil for nodes with no out-edges.
func (g *Graph) aggOutOf(i int32) map[int32]float64 {
	if g.aggOut == nil {
		return nil
	}
	return g.aggOut[i]
}

// aggListOf returns the order-stable aggregated out-neighbors of an arena
// index. Returns nil for nodes with no out-edges or unfrozen graphs.
func (g *Graph) aggListOf(i int32) []aggEdge {
	if g.aggList == nil {
		return nil
	}
	return g.aggList[i]
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
