// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package scoring

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/AleutianAI/relgraph/services/engine/graph"
)

// fakeSignals is an in-memory SignalSource for scorer tests.
type fakeSignals struct {
	events map[graph.NodeKey]map[graph.SignalKind][]graph.SignalEvent
	err    error
}

func (f *fakeSignals) ListSignalEvents(_ context.Context, key graph.NodeKey, kind graph.SignalKind) ([]graph.SignalEvent, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.events[key][kind], nil
}

func (f *fakeSignals) add(key graph.NodeKey, ev graph.SignalEvent) {
	if f.events == nil {
		f.events = make(map[graph.NodeKey]map[graph.SignalKind][]graph.SignalEvent)
	}
	if f.events[key] == nil {
		f.events[key] = make(map[graph.SignalKind][]graph.SignalEvent)
	}
	f.events[key][ev.Kind] = append(f.events[key][ev.Kind], ev)
}

var scorerNow = time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

// scorerGraph builds the frozen fixture: a cash-rich fund, a high-growth
// startup reached through one team contact, and an unconnected bystander.
func scorerGraph(t *testing.T) *graph.Graph {
	t.Helper()
	g := graph.NewGraph()
	add := func(key graph.NodeKey, attrs graph.NodeAttrs) {
		t.Helper()
		if err := g.AddNode(key, attrs); err != nil {
			t.Fatalf("AddNode(%s) failed: %v", key, err)
		}
	}
	add(graph.OrgKey(1), graph.NodeAttrs{Name: "Meridian Fund",
		Category: graph.CategoryInstitutional, CashReservesUSD: 100_000_000})
	add(graph.OrgKey(2), graph.NodeAttrs{Name: "Lumen Robotics",
		Category: graph.CategoryHighGrowth})
	add(graph.OrgKey(3), graph.NodeAttrs{Name: "Corner Bakery"})
	add(graph.PersonKey(10), graph.NodeAttrs{Name: "Ana", Team: true})
	add(graph.PersonKey(20), graph.NodeAttrs{Name: "Bo", OrgID: 2})

	edges := []struct {
		from, to graph.NodeKey
		edge     graph.Edge
	}{
		{graph.PersonKey(10), graph.PersonKey(20),
			graph.Edge{Type: "client", Strength: 5, Confidence: 1, Weight: 1.0}},
		{graph.PersonKey(20), graph.OrgKey(2),
			graph.Edge{Type: graph.AffiliationEdgeType, Weight: 0.8}},
	}
	for _, e := range edges {
		if err := g.AddEdge(e.edge, e.from, e.to); err != nil {
			t.Fatalf("AddEdge(%s -> %s) failed: %v", e.from, e.to, err)
		}
	}
	g.Freeze()
	return g
}

func mustScorer(t *testing.T, g *graph.Graph, signals SignalSource) *Scorer {
	t.Helper()
	s, err := NewScorer(g, signals, scorerNow)
	if err != nil {
		t.Fatalf("NewScorer failed: %v", err)
	}
	return s
}

func closeTo(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestNewScorer_RequiresFrozenGraph(t *testing.T) {
	g := graph.NewGraph()
	if _, err := NewScorer(g, &fakeSignals{}, scorerNow); !errors.Is(err, graph.ErrNotFrozen) {
		t.Errorf("NewScorer on mutable graph: error = %v, want ErrNotFrozen", err)
	}
}

func TestScoreOpportunity_Errors(t *testing.T) {
	g := scorerGraph(t)

	s := mustScorer(t, g, &fakeSignals{})
	if _, err := s.ScoreOpportunity(context.Background(), graph.NodeKey{}); !errors.Is(err, graph.ErrInvalidKey) {
		t.Errorf("zero key: error = %v, want ErrInvalidKey", err)
	}

	srcErr := errors.New("signal store down")
	s = mustScorer(t, g, &fakeSignals{err: srcErr})
	if _, err := s.ScoreOpportunity(context.Background(), graph.OrgKey(2)); !errors.Is(err, srcErr) {
		t.Errorf("failing source: error = %v, want wrapped %v", err, srcErr)
	}
}

func TestScoreOpportunity_NoSignals(t *testing.T) {
	s := mustScorer(t, scorerGraph(t), &fakeSignals{})

	// No signals and no warm path: only coverage contributes, and an
	// uncovered organization is wide open.
	score, err := s.ScoreOpportunity(context.Background(), graph.OrgKey(3))
	if err != nil {
		t.Fatalf("ScoreOpportunity failed: %v", err)
	}
	if score.Category != "default" {
		t.Errorf("Category = %q, want %q", score.Category, "default")
	}
	for _, name := range []string{"funding", "hiring", "lease_expiry", "relationship",
		"hiring_velocity", "funding_accel", "rel_depth", "momentum"} {
		if score.SubScores[name] != 0 {
			t.Errorf("SubScores[%q] = %v, want 0 with no data", name, score.SubScores[name])
		}
	}
	if !closeTo(score.SubScores["coverage"], 100) {
		t.Errorf("SubScores[coverage] = %v, want 100 for an uncovered org", score.SubScores["coverage"])
	}
	if !closeTo(score.Total, weightsDefault.Coverage*100) {
		t.Errorf("Total = %v, want %v", score.Total, weightsDefault.Coverage*100)
	}
}

func TestScoreOpportunity_FundingDecay(t *testing.T) {
	tests := []struct {
		name string
		ev   graph.SignalEvent
		want float64
	}{
		{"fresh large round", graph.SignalEvent{Kind: graph.SignalFunding,
			Date: scorerNow, Magnitude: 1_000_000_000}, 100},
		{"half-life old", graph.SignalEvent{Kind: graph.SignalFunding,
			Date: scorerNow.AddDate(0, 0, -180), Magnitude: 1_000_000_000}, 50},
		{"undisclosed amount", graph.SignalEvent{Kind: graph.SignalFunding,
			Date: scorerNow}, 30},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			signals := &fakeSignals{}
			signals.add(graph.OrgKey(2), tt.ev)
			s := mustScorer(t, scorerGraph(t), signals)

			score, err := s.ScoreOpportunity(context.Background(), graph.OrgKey(2))
			if err != nil {
				t.Fatalf("ScoreOpportunity failed: %v", err)
			}
			if got := score.SubScores["funding"]; math.Abs(got-tt.want) > 1e-6 {
				t.Errorf("SubScores[funding] = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestScoreOpportunity_HiringSignals(t *testing.T) {
	signals := &fakeSignals{}
	signals.add(graph.OrgKey(2), graph.SignalEvent{Kind: graph.SignalHiring,
		Date: scorerNow, Relevance: "high", Detail: "leadership_hire"})
	signals.add(graph.OrgKey(2), graph.SignalEvent{Kind: graph.SignalHiring,
		Date: scorerNow.AddDate(0, 0, -10), Relevance: "high", Detail: "leadership_hire"})
	s := mustScorer(t, scorerGraph(t), signals)

	score, err := s.ScoreOpportunity(context.Background(), graph.OrgKey(2))
	if err != nil {
		t.Fatalf("ScoreOpportunity failed: %v", err)
	}
	// Two fresh leadership hires saturate hiring, and all recent activity
	// with a quiet prior window reads as full acceleration.
	if got := score.SubScores["hiring"]; got < 90 {
		t.Errorf("SubScores[hiring] = %v, want near saturation", got)
	}
	if got := score.SubScores["hiring_velocity"]; !closeTo(got, 100) {
		t.Errorf("SubScores[hiring_velocity] = %v, want 100", got)
	}
	if got := score.SubScores["momentum"]; !closeTo(got, 100) {
		t.Errorf("SubScores[momentum] = %v, want 100", got)
	}
}

func TestScoreOpportunity_FundingAcceleration(t *testing.T) {
	signals := &fakeSignals{}
	signals.add(graph.OrgKey(2), graph.SignalEvent{Kind: graph.SignalFunding,
		Date: scorerNow.AddDate(0, 0, -200), Magnitude: 10_000_000})
	signals.add(graph.OrgKey(2), graph.SignalEvent{Kind: graph.SignalFunding,
		Date: scorerNow.AddDate(0, 0, -30), Magnitude: 40_000_000})
	s := mustScorer(t, scorerGraph(t), signals)

	score, err := s.ScoreOpportunity(context.Background(), graph.OrgKey(2))
	if err != nil {
		t.Fatalf("ScoreOpportunity failed: %v", err)
	}
	// 4x the amount raised 170 days after the prior round maxes both
	// components.
	if got := score.SubScores["funding_accel"]; !closeTo(got, 100) {
		t.Errorf("SubScores[funding_accel] = %v, want 100", got)
	}

	single := &fakeSignals{}
	single.add(graph.OrgKey(2), graph.SignalEvent{Kind: graph.SignalFunding,
		Date: scorerNow, Magnitude: 10_000_000})
	s = mustScorer(t, scorerGraph(t), single)
	score, err = s.ScoreOpportunity(context.Background(), graph.OrgKey(2))
	if err != nil {
		t.Fatalf("ScoreOpportunity failed: %v", err)
	}
	if got := score.SubScores["funding_accel"]; got != 0 {
		t.Errorf("SubScores[funding_accel] = %v with one round, want 0", got)
	}
}

func TestScoreOpportunity_RelationshipProximity(t *testing.T) {
	s := mustScorer(t, scorerGraph(t), &fakeSignals{})

	tests := []struct {
		name string
		key  graph.NodeKey
		want float64
	}{
		{"direct team contact", graph.PersonKey(20), 100},
		{"org two hops out", graph.OrgKey(2), 70},
		{"unreachable org", graph.OrgKey(3), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, err := s.ScoreOpportunity(context.Background(), tt.key)
			if err != nil {
				t.Fatalf("ScoreOpportunity(%s) failed: %v", tt.key, err)
			}
			if got := score.SubScores["relationship"]; !closeTo(got, tt.want) {
				t.Errorf("SubScores[relationship] = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestScoreOpportunity_DepthAndCoverage(t *testing.T) {
	s := mustScorer(t, scorerGraph(t), &fakeSignals{})

	contact, err := s.ScoreOpportunity(context.Background(), graph.PersonKey(20))
	if err != nil {
		t.Fatalf("ScoreOpportunity failed: %v", err)
	}
	// A full-strength client edge saturates depth; persons get the neutral
	// coverage score.
	if got := contact.SubScores["rel_depth"]; !closeTo(got, 100) {
		t.Errorf("SubScores[rel_depth] = %v, want 100", got)
	}
	if got := contact.SubScores["coverage"]; !closeTo(got, 50) {
		t.Errorf("SubScores[coverage] = %v, want 50 for a person", got)
	}

	startup, err := s.ScoreOpportunity(context.Background(), graph.OrgKey(2))
	if err != nil {
		t.Fatalf("ScoreOpportunity failed: %v", err)
	}
	// One team bridge into the org: single-threaded coverage.
	if got := startup.SubScores["coverage"]; !closeTo(got, 80) {
		t.Errorf("SubScores[coverage] = %v, want 80", got)
	}
}

func TestScoreOpportunity_CategoryProfiles(t *testing.T) {
	s := mustScorer(t, scorerGraph(t), &fakeSignals{})

	fund, err := s.ScoreOpportunity(context.Background(), graph.OrgKey(1))
	if err != nil {
		t.Fatalf("ScoreOpportunity failed: %v", err)
	}
	if fund.Category != "institutional" {
		t.Errorf("Category = %q, want %q", fund.Category, "institutional")
	}
	// Reserves at the saturation threshold with no disclosure date.
	if got := fund.SubScores["cash_adjacency"]; !closeTo(got, 100) {
		t.Errorf("SubScores[cash_adjacency] = %v, want 100", got)
	}

	startup, err := s.ScoreOpportunity(context.Background(), graph.OrgKey(2))
	if err != nil {
		t.Fatalf("ScoreOpportunity failed: %v", err)
	}
	if startup.Category != "high_growth" {
		t.Errorf("Category = %q, want %q", startup.Category, "high_growth")
	}
	if _, ok := startup.SubScores["cash_adjacency"]; ok {
		t.Error("cash_adjacency present for a non-institutional entity")
	}
}

func TestScoreOpportunity_UnknownNode(t *testing.T) {
	s := mustScorer(t, scorerGraph(t), &fakeSignals{})

	score, err := s.ScoreOpportunity(context.Background(), graph.PersonKey(999))
	if err != nil {
		t.Fatalf("ScoreOpportunity failed: %v", err)
	}
	if score.Category != "default" {
		t.Errorf("Category = %q, want %q for an unknown node", score.Category, "default")
	}
	if got := score.SubScores["relationship"]; got != 0 {
		t.Errorf("SubScores[relationship] = %v for an unknown node, want 0", got)
	}
}

func TestWeightsFor_ProfilesSumToOne(t *testing.T) {
	for _, c := range []graph.Category{graph.CategoryDefault,
		graph.CategoryHighGrowth, graph.CategoryInstitutional} {
		w := WeightsFor(c)
		sum := w.Funding + w.Hiring + w.LeaseExpiry + w.Relationship +
			w.HiringVelocity + w.FundingAccel + w.RelDepth + w.Coverage +
			w.Momentum + w.CashAdjacency
		if !closeTo(sum, 1.0) {
			t.Errorf("%s profile sums to %v, want 1.0", c, sum)
		}
	}
}
