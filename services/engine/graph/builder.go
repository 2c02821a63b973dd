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
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
)

// =============================================================================
// Builder Options
// =============================================================================

// affiliationWeight is the fixed weight of synthesized membership edges.
// Membership is structural, not strength-derived.
const affiliationWeight = 0.8

// AffiliationEdgeType is the relationship type of synthesized
// person -> organization membership edges.
const AffiliationEdgeType = "affiliated_with"

// institutionalIndustries mark capital-side organizations regardless of size.
var institutionalIndustries = map[string]bool{
	"hedge_fund":         true,
	"private_equity":     true,
	"asset_management":   true,
	"investment_banking": true,
}

// BuilderOptions configures a graph build. The zero value plus
// DefaultBuilderOptions covers normal use.
type BuilderOptions struct {
	// Now is the reference time for weight decay. Every weight in the
	// pass is computed against the same instant so rebuilding an
	// unchanged snapshot is bit-identical.
	Now time.Time

	// RelationshipHalfLifeDays is the decay half-life for computed edge
	// weights. Default: HalfLifeRelationship.
	RelationshipHalfLifeDays float64

	// RevenueThresholdUSD and FootprintThresholdSF classify organizations
	// as mature/institutional when exceeded.
	RevenueThresholdUSD  float64
	FootprintThresholdSF float64

	// MaxNodes and MaxEdges cap the graph (0 = unlimited).
	MaxNodes int
	MaxEdges int

	// Logger receives per-build info and per-record warnings. Nil
	// disables logging.
	Logger *slog.Logger
}

// DefaultBuilderOptions returns the standard thresholds: $50M revenue,
// 30,000 SF footprint, relationship half-life decay, Now = time.Now().
func DefaultBuilderOptions() BuilderOptions {
	return BuilderOptions{
		Now:                      time.Now(),
		RelationshipHalfLifeDays: HalfLifeRelationship,
		RevenueThresholdUSD:      50_000_000,
		FootprintThresholdSF:     30_000,
	}
}

// =============================================================================
// Builder
// =============================================================================

// Builder constructs a frozen Graph from an entity-store snapshot.
//
// Description:
//
//	The builder is stateless; one instance may run any number of builds.
//	Each Build reads the snapshot in full, loads all nodes, computes edge
//	weights, synthesizes membership edges, and freezes the graph.
//	Relationship records with dangling endpoints are dropped and counted,
//	never fatal. Builds are idempotent: the same snapshot and the same
//	options produce structurally identical graphs.
//
// Thread Safety: a Builder may be shared; Build creates all state locally.
type Builder struct {
	opts BuilderOptions
}

// NewBuilder creates a Builder with the given options. Zero-valued fields
// are filled from DefaultBuilderOptions.
func NewBuilder(opts BuilderOptions) *Builder {
	def := DefaultBuilderOptions()
	if opts.Now.IsZero() {
		opts.Now = def.Now
	}
	if opts.RelationshipHalfLifeDays <= 0 {
		opts.RelationshipHalfLifeDays = def.RelationshipHalfLifeDays
	}
	if opts.RevenueThresholdUSD <= 0 {
		opts.RevenueThresholdUSD = def.RevenueThresholdUSD
	}
	if opts.FootprintThresholdSF <= 0 {
		opts.FootprintThresholdSF = def.FootprintThresholdSF
	}
	return &Builder{opts: opts}
}

// Build constructs a frozen graph from the source snapshot.
//
// Inputs:
//
//	ctx - Cancellation aborts between phases.
//	src - Snapshot source. Read in full exactly once.
//
// Outputs:
//
//	*BuildResult - Graph plus per-record errors and stats. Never nil on
//	               a nil error.
//	error - Non-nil only when the snapshot itself is unreadable or the
//	        context is cancelled; bad records never produce an error.
func (b *Builder) Build(ctx context.Context, src Source) (*BuildResult, error) {
	ctx, span := startBuildSpan(ctx)
	defer span.End()

	start := time.Now()
	result := &BuildResult{}

	persons, err := src.ListEntities(ctx, KindPerson)
	if err != nil {
		return nil, fmt.Errorf("list persons: %w", err)
	}
	orgs, err := src.ListEntities(ctx, KindOrganization)
	if err != nil {
		return nil, fmt.Errorf("list organizations: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	g := NewGraph(WithMaxNodes(b.opts.MaxNodes), WithMaxEdges(b.opts.MaxEdges))

	for _, rec := range orgs {
		attrs := NodeAttrs{
			Name:            rec.Name,
			Category:        b.categorize(rec),
			Status:          rec.Status,
			CashReservesUSD: rec.CashReservesUSD,
			CashAsOf:        rec.CashAsOf,
		}
		if err := g.AddNode(rec.Key, attrs); err != nil {
			return nil, fmt.Errorf("add organization %s: %w", rec.Key, err)
		}
		result.Stats.Organizations++
	}

	teamOrgs := make(map[int64]bool)
	for _, rec := range orgs {
		if rec.Status == "team_affiliated" {
			teamOrgs[rec.Key.ID] = true
		}
	}

	for _, rec := range persons {
		attrs := NodeAttrs{
			Name:      rec.Name,
			Category:  rec.Category,
			Status:    rec.Status,
			RoleLevel: rec.RoleLevel,
			OrgID:     rec.OrgID,
			Team:      rec.RoleLevel == "team" || teamOrgs[rec.OrgID],
		}
		if err := g.AddNode(rec.Key, attrs); err != nil {
			return nil, fmt.Errorf("add person %s: %w", rec.Key, err)
		}
		result.Stats.Persons++
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	relationships, err := src.ListRelationships(ctx)
	if err != nil {
		return nil, fmt.Errorf("list relationships: %w", err)
	}
	for _, rec := range relationships {
		if !g.HasNode(rec.Source) || !g.HasNode(rec.Target) {
			result.RecordErrors = append(result.RecordErrors, RecordError{
				Source: rec.Source,
				Target: rec.Target,
				Type:   rec.Type,
				Reason: "dangling endpoint",
			})
			result.Stats.DroppedRecords++
			if b.opts.Logger != nil {
				b.opts.Logger.Warn("dropping dangling relationship",
					"source", rec.Source.String(),
					"target", rec.Target.String(),
					"type", rec.Type,
				)
			}
			continue
		}
		edge := Edge{
			Type:            rec.Type,
			Strength:        rec.Strength,
			Confidence:      rec.Confidence,
			LastInteraction: rec.LastInteraction,
			Weight: ComputeWeight(b.opts.Now, rec.Strength, rec.Confidence,
				rec.LastInteraction, b.opts.RelationshipHalfLifeDays),
		}
		if err := g.AddEdge(edge, rec.Source, rec.Target); err != nil {
			return nil, fmt.Errorf("add edge %s -> %s: %w", rec.Source, rec.Target, err)
		}
		result.Stats.RelationshipEdges++
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Membership edges come last so relationship records are never
	// shadowed by a synthesized edge at the cap.
	for _, rec := range persons {
		if rec.OrgID <= 0 {
			continue
		}
		orgKey := OrgKey(rec.OrgID)
		if !g.HasNode(orgKey) {
			result.RecordErrors = append(result.RecordErrors, RecordError{
				Source: rec.Key,
				Target: orgKey,
				Type:   AffiliationEdgeType,
				Reason: "organization not in snapshot",
			})
			result.Stats.DroppedRecords++
			continue
		}
		edge := Edge{
			Type:   AffiliationEdgeType,
			Weight: affiliationWeight,
		}
		if err := g.AddEdge(edge, rec.Key, orgKey); err != nil {
			return nil, fmt.Errorf("add membership edge %s: %w", rec.Key, err)
		}
		result.Stats.MembershipEdges++
	}

	g.Freeze()
	result.Graph = g
	result.Stats.DurationMilli = time.Since(start).Milliseconds()

	span.SetAttributes(
		attribute.Int("graph.nodes", g.NodeCount()),
		attribute.Int("graph.edges", g.EdgeCount()),
		attribute.Int("graph.dropped_records", result.Stats.DroppedRecords),
	)
	recordBuildMetrics(ctx, result)

	if b.opts.Logger != nil {
		b.opts.Logger.Info("graph build complete",
			"nodes", g.NodeCount(),
			"edges", g.EdgeCount(),
			"dropped", result.Stats.DroppedRecords,
			"duration_ms", result.Stats.DurationMilli,
		)
	}
	return result, nil
}

// categorize derives an organization's category when the record carries
// none: institutional industries first, then the mature-size thresholds,
// otherwise high-growth only when explicitly tagged upstream.
func (b *Builder) categorize(rec EntityRecord) Category {
	if rec.Category != CategoryDefault {
		return rec.Category
	}
	if institutionalIndustries[strings.ToLower(rec.Industry)] {
		return CategoryInstitutional
	}
	if rec.RevenueUSD >= b.opts.RevenueThresholdUSD || rec.FootprintSF >= b.opts.FootprintThresholdSF {
		return CategoryInstitutional
	}
	if rec.Status == "high_growth_target" {
		return CategoryHighGrowth
	}
	return CategoryDefault
}
