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
	"testing"
)

// Helper to add a node or fail the test.
func mustAddNode(t *testing.T, g *Graph, key NodeKey, attrs NodeAttrs) {
	t.Helper()
	if err := g.AddNode(key, attrs); err != nil {
		t.Fatalf("AddNode(%s) failed: %v", key, err)
	}
}

// Helper to add a typed, pre-weighted edge or fail the test.
func mustAddEdge(t *testing.T, g *Graph, from, to NodeKey, relType string, weight float64) {
	t.Helper()
	err := g.AddEdge(Edge{Type: relType, Strength: weight * 5, Confidence: 1, Weight: weight}, from, to)
	if err != nil {
		t.Fatalf("AddEdge(%s -> %s) failed: %v", from, to, err)
	}
}

// lineGraph builds the frozen three-person chain used across the analytics
// and path tests: person:1 -> person:2 (0.8), person:2 -> person:3 (0.6).
func lineGraph(t *testing.T) *Graph {
	t.Helper()
	g := NewGraph()
	mustAddNode(t, g, PersonKey(1), NodeAttrs{Name: "A"})
	mustAddNode(t, g, PersonKey(2), NodeAttrs{Name: "B"})
	mustAddNode(t, g, PersonKey(3), NodeAttrs{Name: "C"})
	mustAddEdge(t, g, PersonKey(1), PersonKey(2), "colleague", 0.8)
	mustAddEdge(t, g, PersonKey(2), PersonKey(3), "colleague", 0.6)
	g.Freeze()
	return g
}

// almostEqual compares floats with a tolerance appropriate for accumulated
// products of graph weights.
func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}
