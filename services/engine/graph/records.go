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
	"time"
)

// =============================================================================
// Snapshot Records
// =============================================================================

// EntityRecord is one person or organization row from the entity store.
type EntityRecord struct {
	Key      NodeKey
	Name     string
	Category Category
	Status   string

	// RoleLevel is the contact seniority for persons
	// ("c_suite", "decision_maker", "influencer", "team", ...).
	RoleLevel string

	// OrgID references a person's organization (0 = none). The builder
	// synthesizes a membership edge from it.
	OrgID int64

	// Organization classification inputs, zero for persons.
	Industry        string
	RevenueUSD      float64
	FootprintSF     float64
	CashReservesUSD float64
	CashAsOf        time.Time
}

// RelationshipRecord is one directed relationship row.
type RelationshipRecord struct {
	Source NodeKey
	Target NodeKey
	Type   string

	// Strength is the raw 1-5 relationship strength.
	Strength float64

	// Confidence is the 0-1 record confidence.
	Confidence float64

	// LastInteraction is zero when recency is unknown.
	LastInteraction time.Time
}

// SignalKind is the class of a business signal event.
type SignalKind string

const (
	SignalFunding SignalKind = "funding"
	SignalHiring  SignalKind = "hiring"
	SignalLease   SignalKind = "lease"
)

// SignalEvent is one decayed input to the opportunity scorer.
type SignalEvent struct {
	Kind SignalKind
	Date time.Time

	// Magnitude is kind-specific: funding amount in USD, lease size in
	// square feet. Zero means unknown.
	Magnitude float64

	// Relevance is "high", "medium", or "low" for hiring signals.
	Relevance string

	// Detail is the hiring signal subtype ("leadership_hire", "new_office",
	// "headcount_growth", "job_posting", "press_announcement").
	Detail string
}

// Source is the snapshot view the Builder consumes: all entities and all
// relationships, read in one pass per build.
type Source interface {
	ListEntities(ctx context.Context, kind NodeKind) ([]EntityRecord, error)
	ListRelationships(ctx context.Context) ([]RelationshipRecord, error)
}
