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
	"errors"
	"testing"
	"time"
)

// fakeSource is an in-memory Source for builder tests.
type fakeSource struct {
	persons       []EntityRecord
	organizations []EntityRecord
	relationships []RelationshipRecord
	err           error
}

func (f *fakeSource) ListEntities(_ context.Context, kind NodeKind) ([]EntityRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	if kind == KindPerson {
		return f.persons, nil
	}
	return f.organizations, nil
}

func (f *fakeSource) ListRelationships(context.Context) ([]RelationshipRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.relationships, nil
}

func builderFixture(now time.Time) *fakeSource {
	return &fakeSource{
		organizations: []EntityRecord{
			{Key: OrgKey(1), Name: "Meridian Capital", Industry: "Hedge_Fund"},
			{Key: OrgKey(2), Name: "Northwind Logistics", RevenueUSD: 75_000_000},
			{Key: OrgKey(3), Name: "Lumen Robotics", Status: "high_growth_target"},
			{Key: OrgKey(4), Name: "Corner Bakery"},
		},
		persons: []EntityRecord{
			{Key: PersonKey(1), Name: "Ana", RoleLevel: "team", OrgID: 1},
			{Key: PersonKey(2), Name: "Bo", RoleLevel: "c_suite", OrgID: 3},
			{Key: PersonKey(3), Name: "Cy"},
			{Key: PersonKey(4), Name: "Dee", OrgID: 99}, // org absent from snapshot
		},
		relationships: []RelationshipRecord{
			{Source: PersonKey(1), Target: PersonKey(2), Type: "client",
				Strength: 5, Confidence: 1, LastInteraction: now},
			{Source: PersonKey(2), Target: PersonKey(3), Type: "colleague",
				Strength: 5, Confidence: 1}, // recency unknown
			{Source: PersonKey(1), Target: PersonKey(77), Type: "client",
				Strength: 3, Confidence: 0.9}, // dangling target
		},
	}
}

func TestBuilder_Build(t *testing.T) {
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	src := builderFixture(now)
	b := NewBuilder(BuilderOptions{Now: now})

	result, err := b.Build(context.Background(), src)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	g := result.Graph
	if g == nil {
		t.Fatal("Build returned a nil graph")
	}
	if g.State() != StateReadOnly {
		t.Error("built graph is not frozen")
	}

	if got, want := result.Stats.Persons, 4; got != want {
		t.Errorf("Stats.Persons = %d, want %d", got, want)
	}
	if got, want := result.Stats.Organizations, 4; got != want {
		t.Errorf("Stats.Organizations = %d, want %d", got, want)
	}
	if got, want := result.Stats.RelationshipEdges, 2; got != want {
		t.Errorf("Stats.RelationshipEdges = %d, want %d", got, want)
	}
	// Ana -> org:1 and Bo -> org:3; Dee's org is absent.
	if got, want := result.Stats.MembershipEdges, 2; got != want {
		t.Errorf("Stats.MembershipEdges = %d, want %d", got, want)
	}
	// One dangling relationship plus Dee's missing organization.
	if got, want := result.Stats.DroppedRecords, 2; got != want {
		t.Errorf("Stats.DroppedRecords = %d, want %d", got, want)
	}
	if !result.HasErrors() {
		t.Error("HasErrors() = false with dropped records present")
	}
	if got, want := len(result.RecordErrors), 2; got != want {
		t.Fatalf("len(RecordErrors) = %d, want %d", got, want)
	}
	if result.RecordErrors[0].Target != PersonKey(77) {
		t.Errorf("RecordErrors[0].Target = %s, want %s", result.RecordErrors[0].Target, PersonKey(77))
	}
}

func TestBuilder_EdgeWeights(t *testing.T) {
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	b := NewBuilder(BuilderOptions{Now: now})
	result, err := b.Build(context.Background(), builderFixture(now))
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	g := result.Graph

	findEdge := func(from NodeKey, relType string) Edge {
		t.Helper()
		for _, e := range g.OutEdges(from) {
			if e.Type == relType {
				return e
			}
		}
		t.Fatalf("no %q edge out of %s", relType, from)
		return Edge{}
	}

	// Full strength, full confidence, interaction at the reference instant.
	if e := findEdge(PersonKey(1), "client"); !almostEqual(e.Weight, 1.0) {
		t.Errorf("fresh edge weight = %v, want 1.0", e.Weight)
	}
	// Unknown recency applies the fixed 0.5 decay.
	if e := findEdge(PersonKey(2), "colleague"); !almostEqual(e.Weight, 0.5) {
		t.Errorf("unknown-recency edge weight = %v, want 0.5", e.Weight)
	}
	// Synthesized membership edges carry the fixed structural weight.
	if e := findEdge(PersonKey(1), AffiliationEdgeType); !almostEqual(e.Weight, 0.8) {
		t.Errorf("membership edge weight = %v, want 0.8", e.Weight)
	}
}

func TestBuilder_Categorization(t *testing.T) {
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	b := NewBuilder(BuilderOptions{Now: now})
	result, err := b.Build(context.Background(), builderFixture(now))
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	g := result.Graph

	tests := []struct {
		key  NodeKey
		want Category
	}{
		{OrgKey(1), CategoryInstitutional}, // hedge fund industry
		{OrgKey(2), CategoryInstitutional}, // revenue over threshold
		{OrgKey(3), CategoryHighGrowth},    // tagged upstream
		{OrgKey(4), CategoryDefault},
	}
	for _, tt := range tests {
		node, ok := g.NodeByKey(tt.key)
		if !ok {
			t.Fatalf("node %s missing from built graph", tt.key)
		}
		if node.Attrs.Category != tt.want {
			t.Errorf("%s category = %s, want %s", tt.key, node.Attrs.Category, tt.want)
		}
	}

	ana, _ := g.NodeByKey(PersonKey(1))
	if !ana.Attrs.Team {
		t.Error("person with team role level not flagged as team")
	}
	bo, _ := g.NodeByKey(PersonKey(2))
	if bo.Attrs.Team {
		t.Error("external contact flagged as team")
	}
}

func TestBuilder_Idempotent(t *testing.T) {
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	src := builderFixture(now)
	b := NewBuilder(BuilderOptions{Now: now})

	first, err := b.Build(context.Background(), src)
	if err != nil {
		t.Fatalf("first Build failed: %v", err)
	}
	second, err := b.Build(context.Background(), src)
	if err != nil {
		t.Fatalf("second Build failed: %v", err)
	}

	fs, ss := first.Stats, second.Stats
	fs.DurationMilli, ss.DurationMilli = 0, 0
	if fs != ss {
		t.Errorf("rebuild stats differ: %+v vs %+v", fs, ss)
	}
	for _, from := range first.Graph.Keys() {
		for _, to := range first.Graph.Keys() {
			w1 := first.Graph.AggregateWeight(from, to)
			if w2 := second.Graph.AggregateWeight(from, to); w1 != w2 {
				t.Errorf("aggregate weight %s -> %s differs: %v vs %v", from, to, w1, w2)
			}
		}
	}
}

func TestBuilder_SourceErrors(t *testing.T) {
	wantErr := errors.New("snapshot unavailable")
	b := NewBuilder(BuilderOptions{})
	if _, err := b.Build(context.Background(), &fakeSource{err: wantErr}); !errors.Is(err, wantErr) {
		t.Errorf("Build error = %v, want wrapped %v", err, wantErr)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := b.Build(ctx, builderFixture(time.Now())); !errors.Is(err, context.Canceled) {
		t.Errorf("Build with cancelled context: error = %v, want context.Canceled", err)
	}
}
