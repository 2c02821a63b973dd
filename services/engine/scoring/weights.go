// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package scoring blends graph-derived relationship metrics with
// time-decayed business signals (funding, hiring, lease events) into a
// 0-100 opportunity score per entity.
//
// Every sub-score is an independent pure computation over the snapshot
// graph plus signal inputs, clamped to [0, 100]; missing data contributes
// 0, never an error. The composite is a weighted sum under a weight
// vector selected by the entity's category, clamped again to [0, 100].
package scoring

import "github.com/AleutianAI/relgraph/services/engine/graph"

// Weights is one scoring profile. Each profile's fields sum to 1.0.
type Weights struct {
	Funding        float64
	Hiring         float64
	LeaseExpiry    float64
	Relationship   float64
	HiringVelocity float64
	FundingAccel   float64
	RelDepth       float64
	Coverage       float64
	Momentum       float64

	// CashAdjacency is only non-zero for the institutional profile.
	CashAdjacency float64
}

// Balanced profile, used when the category carries no stronger signal.
var weightsDefault = Weights{
	Funding:        0.15,
	Hiring:         0.12,
	LeaseExpiry:    0.15,
	Relationship:   0.10,
	HiringVelocity: 0.10,
	FundingAccel:   0.08,
	RelDepth:       0.12,
	Coverage:       0.10,
	Momentum:       0.08,
}

// High-growth: funding signals dominate, connections matter less.
var weightsHighGrowth = Weights{
	Funding:        0.20,
	Hiring:         0.15,
	LeaseExpiry:    0.10,
	Relationship:   0.05,
	HiringVelocity: 0.15,
	FundingAccel:   0.15,
	RelDepth:       0.05,
	Coverage:       0.10,
	Momentum:       0.05,
}

// Institutional: connections dominant, funding downweighted, liquidity
// adjacency as the extra dimension.
var weightsInstitutional = Weights{
	Funding:        0.05,
	Hiring:         0.08,
	LeaseExpiry:    0.15,
	Relationship:   0.18,
	HiringVelocity: 0.05,
	FundingAccel:   0.03,
	RelDepth:       0.18,
	Coverage:       0.12,
	Momentum:       0.06,
	CashAdjacency:  0.10,
}

// WeightsFor returns the profile for a category. The switch is exhaustive
// over the closed Category enum.
func WeightsFor(c graph.Category) Weights {
	switch c {
	case graph.CategoryHighGrowth:
		return weightsHighGrowth
	case graph.CategoryInstitutional:
		return weightsInstitutional
	default:
		return weightsDefault
	}
}

// CashBonusThresholdUSD is the liquidity level at which the cash-adjacency
// sub-score saturates.
const CashBonusThresholdUSD = 100_000_000
