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
	"time"
)

// =============================================================================
// Decay Model
// =============================================================================

// Half-lives in days for the signal classes the engine decays.
const (
	// HalfLifeFunding: funding events stay relevant for roughly half a year.
	HalfLifeFunding = 180.0

	// HalfLifeHiring: hiring signals go stale within a quarter.
	HalfLifeHiring = 90.0

	// HalfLifeOutreach: outreach recency cools within a month.
	HalfLifeOutreach = 30.0

	// HalfLifeRelationship: interpersonal relationships decay over ~2 years.
	HalfLifeRelationship = 730.0

	// HalfLifeCash: cash-reserve disclosures stay fresh for about a year.
	HalfLifeCash = 365.0
)

// unknownRecencyDecay is applied when a relationship has no recorded
// last interaction. A fixed moderate factor keeps sparse data from being
// either over- or under-weighted.
const unknownRecencyDecay = 0.5

// monthDays converts calendar months to days for the decay functions.
const monthDays = 30.44

// Decay returns the exponential decay factor for elapsed time against a
// half-life, both in the same unit.
//
// Description:
//
//	Decay(0, H) == 1.0 and Decay(H, H) == 0.5 exactly (up to floating
//	point); the function is monotonically non-increasing in elapsed time.
//	Negative elapsed time (future-dated records) clamps to 1.0.
//
// Inputs:
//
//	elapsed - Elapsed time since the event.
//	halfLife - Half-life in the same unit. Must be positive.
//
// Outputs:
//
//	float64 - Decay factor in (0, 1].
func Decay(elapsed, halfLife float64) float64 {
	if elapsed <= 0 {
		return 1.0
	}
	return math.Exp(-math.Ln2 * elapsed / halfLife)
}

// DecayDays is Decay over a day count since a date, with time "now"
// supplied by the caller for reproducible batch passes.
func DecayDays(now, eventDate time.Time, halfLifeDays float64) float64 {
	return Decay(now.Sub(eventDate).Hours()/24, halfLifeDays)
}

// ComputeWeight derives the 0-1 edge weight from a raw relationship record.
//
// Description:
//
//	weight = clamp01((strength/5) * decay * confidence) where decay is the
//	half-life factor over months since the last interaction. A zero
//	lastInteraction means unknown recency and contributes the fixed
//	moderate factor 0.5.
//
// Inputs:
//
//	now - Reference time of the batch pass.
//	strength - Raw 1-5 relationship strength.
//	confidence - 0-1 record confidence.
//	lastInteraction - Most recent contact; zero value = unknown.
//	halfLifeDays - Decay half-life for the relationship class.
//
// Outputs:
//
//	float64 - Computed weight in [0, 1].
func ComputeWeight(now time.Time, strength, confidence float64, lastInteraction time.Time, halfLifeDays float64) float64 {
	decay := unknownRecencyDecay
	if !lastInteraction.IsZero() {
		elapsedMonths := now.Sub(lastInteraction).Hours() / 24 / monthDays
		decay = Decay(elapsedMonths, halfLifeDays/monthDays)
	}
	return clamp01((strength / 5.0) * decay * confidence)
}

// =============================================================================
// Relationship Type Quality
// =============================================================================

// relationshipTypeWeights scale an edge's contribution to depth scoring by
// how actionable the relationship class is. Unknown types get 1.0.
var relationshipTypeWeights = map[string]float64{
	"client":           1.5,
	"deal_counterpart": 1.4,
	"tenant":           1.4,
	"investor":         1.3,
	"board":            1.3,
	"broker":           1.3,
	"introduced_by":    1.2,
	"landlord":         1.2,
	"colleague":        1.0,
	"former_colleague": 0.9,
	"alumni":           0.8,
	"friend":           0.7,
}

// TypeWeight returns the quality multiplier for a relationship type.
func TypeWeight(relType string) float64 {
	if w, ok := relationshipTypeWeights[relType]; ok {
		return w
	}
	return 1.0
}

// EdgeLayer buckets relationship types into professional, capital, and
// social layers for reporting.
type EdgeLayer string

const (
	LayerProfessional EdgeLayer = "professional"
	LayerCapital      EdgeLayer = "capital"
	LayerSocial       EdgeLayer = "social"
)

var edgeLayers = map[string]EdgeLayer{
	"client":           LayerProfessional,
	"deal_counterpart": LayerProfessional,
	"colleague":        LayerProfessional,
	"former_colleague": LayerProfessional,
	"broker":           LayerProfessional,
	"tenant":           LayerProfessional,
	"landlord":         LayerProfessional,
	"affiliated_with":  LayerProfessional,
	"investor":         LayerCapital,
	"board":            LayerCapital,
	"introduced_by":    LayerSocial,
	"alumni":           LayerSocial,
	"friend":           LayerSocial,
}

// LayerOf returns the layer for a relationship type, defaulting to
// professional for unknown types.
func LayerOf(relType string) EdgeLayer {
	if l, ok := edgeLayers[relType]; ok {
		return l
	}
	return LayerProfessional
}
