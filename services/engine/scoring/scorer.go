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
	"fmt"
	"math"
	"time"

	"github.com/AleutianAI/relgraph/services/engine/graph"
)

// =============================================================================
// Scorer
// =============================================================================

// SignalSource provides the signal events the scorer decays. The entity
// store satisfies this.
type SignalSource interface {
	ListSignalEvents(ctx context.Context, key graph.NodeKey, kind graph.SignalKind) ([]graph.SignalEvent, error)
}

// Score is the result of scoring one entity.
type Score struct {
	Key       graph.NodeKey      `json:"key"`
	Total     float64            `json:"total"`
	Category  string             `json:"category"`
	SubScores map[string]float64 `json:"sub_scores"`
}

// Scorer computes opportunity scores over one frozen graph snapshot.
//
// Thread Safety: all fields are read-only after construction; share one
// Scorer across goroutines.
type Scorer struct {
	g        *graph.Graph
	finder   *graph.PathFinder
	analyzer *graph.Analytics
	signals  SignalSource
	now      time.Time
}

// NewScorer creates a Scorer over a frozen graph.
//
// Inputs:
//
//	g - The frozen snapshot graph.
//	signals - Signal event source.
//	now - Reference time for decay; fixed per pass for reproducibility.
func NewScorer(g *graph.Graph, signals SignalSource, now time.Time) (*Scorer, error) {
	finder, err := graph.NewPathFinder(g)
	if err != nil {
		return nil, err
	}
	analyzer, err := graph.NewAnalytics(g)
	if err != nil {
		return nil, err
	}
	if now.IsZero() {
		now = time.Now()
	}
	return &Scorer{
		g:        g,
		finder:   finder,
		analyzer: analyzer,
		signals:  signals,
		now:      now,
	}, nil
}

// ScoreOpportunity computes the composite 0-100 score for one entity.
//
// Outputs:
//
//	Score - Composite plus all sub-scores. Missing signal data yields 0
//	        contribution, never an error.
//	error - Only for malformed keys or a failing signal source.
func (s *Scorer) ScoreOpportunity(ctx context.Context, key graph.NodeKey) (Score, error) {
	if !key.Valid() {
		return Score{}, fmt.Errorf("%w: %s", graph.ErrInvalidKey, key)
	}

	category := graph.CategoryDefault
	if node, ok := s.g.NodeByKey(key); ok {
		category = node.Attrs.Category
	}
	w := WeightsFor(category)

	funding, err := s.signals.ListSignalEvents(ctx, key, graph.SignalFunding)
	if err != nil {
		return Score{}, fmt.Errorf("list funding signals: %w", err)
	}
	hiring, err := s.signals.ListSignalEvents(ctx, key, graph.SignalHiring)
	if err != nil {
		return Score{}, fmt.Errorf("list hiring signals: %w", err)
	}
	leases, err := s.signals.ListSignalEvents(ctx, key, graph.SignalLease)
	if err != nil {
		return Score{}, fmt.Errorf("list lease signals: %w", err)
	}

	sub := map[string]float64{
		"funding":         s.scoreFunding(funding),
		"hiring":          s.scoreHiring(hiring),
		"lease_expiry":    s.scoreLeaseExpiry(leases),
		"relationship":    s.scoreRelationshipProximity(key),
		"hiring_velocity": s.scoreHiringVelocity(hiring),
		"funding_accel":   s.scoreFundingAcceleration(funding),
		"rel_depth":       s.scoreRelationshipDepth(key),
		"coverage":        s.scoreCoverage(key),
		"momentum":        s.scoreMomentum(funding, hiring),
	}
	if category == graph.CategoryInstitutional {
		sub["cash_adjacency"] = s.scoreCashAdjacency(key)
	}

	total := w.Funding*sub["funding"] +
		w.Hiring*sub["hiring"] +
		w.LeaseExpiry*sub["lease_expiry"] +
		w.Relationship*sub["relationship"] +
		w.HiringVelocity*sub["hiring_velocity"] +
		w.FundingAccel*sub["funding_accel"] +
		w.RelDepth*sub["rel_depth"] +
		w.Coverage*sub["coverage"] +
		w.Momentum*sub["momentum"] +
		w.CashAdjacency*sub["cash_adjacency"]

	return Score{
		Key:       key,
		Total:     clamp100(total),
		Category:  category.String(),
		SubScores: sub,
	}, nil
}

// =============================================================================
// Sub-Scores
// =============================================================================

// unknownAmountFactor stands in when a funding amount is undisclosed.
const unknownAmountFactor = 0.3

func (s *Scorer) daysSince(date time.Time) float64 {
	return s.now.Sub(date).Hours() / 24
}

// scoreFunding sums decayed funding events. The amount factor is
// log-scaled so a $1B round does not drown everything else:
// min(log10(amount+1)/9, 1).
func (s *Scorer) scoreFunding(events []graph.SignalEvent) float64 {
	var total float64
	for _, ev := range events {
		amountFactor := unknownAmountFactor
		if ev.Magnitude > 0 {
			amountFactor = math.Min(math.Log10(ev.Magnitude+1)/9, 1.0)
		}
		total += graph.Decay(s.daysSince(ev.Date), graph.HalfLifeFunding) * amountFactor * 100
	}
	return clamp100(total)
}

var hiringRelevance = map[string]float64{
	"high":   1.0,
	"medium": 0.5,
	"low":    0.2,
}

var hiringTypeFactor = map[string]float64{
	"leadership_hire":    1.0,
	"new_office":         0.9,
	"headcount_growth":   0.6,
	"job_posting":        0.4,
	"press_announcement": 0.3,
}

// scoreHiring sums decayed hiring events scaled by relevance and subtype.
func (s *Scorer) scoreHiring(events []graph.SignalEvent) float64 {
	var total float64
	for _, ev := range events {
		rel, ok := hiringRelevance[ev.Relevance]
		if !ok {
			rel = 0.2
		}
		typ, ok := hiringTypeFactor[ev.Detail]
		if !ok {
			typ = 0.3
		}
		total += graph.Decay(s.daysSince(ev.Date), graph.HalfLifeHiring) * rel * typ * 50
	}
	return clamp100(total)
}

// scoreLeaseExpiry scores upcoming lease expiries: the closer and the
// larger the space, the higher the score. An event's Date is the expiry.
func (s *Scorer) scoreLeaseExpiry(events []graph.SignalEvent) float64 {
	var total float64
	for _, ev := range events {
		daysOut := -s.daysSince(ev.Date)
		timeFactor := 0.2
		switch {
		case daysOut <= 0:
			timeFactor = 0.2
		case daysOut <= 365:
			timeFactor = 1.0
		case daysOut <= 730:
			timeFactor = 0.5
		}
		sizeFactor := unknownAmountFactor
		if ev.Magnitude > 0 {
			sizeFactor = math.Min(ev.Magnitude/100_000, 1.0)
		}
		total += timeFactor * sizeFactor * 50
	}
	return clamp100(total)
}

// scoreRelationshipProximity maps the shortest warm path from any team
// member to the entity onto 0-100: direct team presence 100, 1 hop 100,
// 2 hops 70, 3 hops 40, reachable-but-farther 20, unreachable 0.
func (s *Scorer) scoreRelationshipProximity(key graph.NodeKey) float64 {
	if key.Kind == graph.KindOrganization {
		// An org staffed by a team member is proximity 100 outright.
		for node := range s.g.Nodes() {
			if node.Key.Kind == graph.KindPerson && node.Attrs.Team && node.Attrs.OrgID == key.ID {
				return 100
			}
		}
	}

	best := -1
	for node := range s.g.Nodes() {
		if node.Key.Kind != graph.KindPerson || !node.Attrs.Team || node.Key == key {
			continue
		}
		res, err := s.finder.ShortestWeightedPath(node.Key, key)
		if err != nil || !res.Found {
			continue
		}
		if best < 0 || res.Hops < best {
			best = res.Hops
		}
	}
	switch {
	case best < 0:
		return 0
	case best <= 1:
		return 100
	case best == 2:
		return 70
	case best == 3:
		return 40
	default:
		return 20
	}
}

// velocityWindowDays is the size of the recent and prior comparison
// windows for hiring velocity.
const velocityWindowDays = 90.0

// scoreHiringVelocity compares hiring activity in the last window against
// the window before it. Even activity lands at 50; acceleration pushes
// toward 100, deceleration toward 0.
func (s *Scorer) scoreHiringVelocity(events []graph.SignalEvent) float64 {
	if len(events) == 0 {
		return 0
	}
	var recent, prior float64
	for _, ev := range events {
		days := s.daysSince(ev.Date)
		switch {
		case days < 0:
			continue
		case days <= velocityWindowDays:
			recent++
		case days <= 2*velocityWindowDays:
			prior++
		}
	}
	if recent == 0 && prior == 0 {
		return 0
	}
	return clamp100(50 + 50*(recent-prior)/math.Max(recent+prior, 1))
}

// scoreFundingAcceleration compares the two most recent funding rounds:
// growing amounts and shrinking intervals both push the score up.
func (s *Scorer) scoreFundingAcceleration(events []graph.SignalEvent) float64 {
	if len(events) < 2 {
		return 0
	}
	// Find the two most recent events without assuming input order.
	latest, previous := -1, -1
	for i := range events {
		if latest < 0 || events[i].Date.After(events[latest].Date) {
			previous = latest
			latest = i
		} else if previous < 0 || events[i].Date.After(events[previous].Date) {
			previous = i
		}
	}
	amountScore := 0.0
	if events[previous].Magnitude > 0 && events[latest].Magnitude > 0 {
		ratio := events[latest].Magnitude / events[previous].Magnitude
		amountScore = 50 * math.Min(ratio, 2) / 2
	}
	interval := events[latest].Date.Sub(events[previous].Date).Hours() / 24
	frequencyScore := 0.0
	if interval > 0 {
		// A raise within a year of the prior one signals acceleration.
		frequencyScore = 50 * math.Min(365/interval, 2) / 2
	}
	return clamp100(amountScore + frequencyScore)
}

// scoreRelationshipDepth averages the quality of direct team edges into
// the entity (or its contacts, for organizations): relationship-type
// weight times capped strength.
func (s *Scorer) scoreRelationshipDepth(key graph.NodeKey) float64 {
	var total float64
	var count int
	for node := range s.g.Nodes() {
		if node.Key.Kind != graph.KindPerson || !node.Attrs.Team {
			continue
		}
		for _, e := range s.g.OutEdges(node.Key) {
			if e.Type == graph.AffiliationEdgeType {
				continue
			}
			target, _ := s.g.KeyAt(e.To)
			hit := target == key
			if !hit && key.Kind == graph.KindOrganization && target.Kind == graph.KindPerson {
				if tn, ok := s.g.NodeByKey(target); ok && tn.Attrs.OrgID == key.ID {
					hit = true
				}
			}
			if !hit {
				continue
			}
			total += graph.TypeWeight(e.Type) * math.Min(e.Strength, 3) / 3
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return clamp100(total / float64(count) * 100)
}

// scoreCoverage converts broker coverage into a competitive-exposure
// score: an uncovered target is wide open (100), a crowded one is not.
func (s *Scorer) scoreCoverage(key graph.NodeKey) float64 {
	if key.Kind != graph.KindOrganization {
		return 50
	}
	bridges := len(s.analyzer.BrokerCoverageOverlap(key).Bridges)
	switch {
	case bridges == 0:
		return 100
	case bridges == 1:
		return 80
	case bridges <= 3:
		return 50
	default:
		return math.Max(20, 100-10*float64(bridges))
	}
}

// scoreMomentum reflects how recently anything happened at all: the
// freshest signal of any kind, decayed on the short outreach half-life.
func (s *Scorer) scoreMomentum(groups ...[]graph.SignalEvent) float64 {
	var freshest time.Time
	for _, events := range groups {
		for _, ev := range events {
			if ev.Date.After(freshest) {
				freshest = ev.Date
			}
		}
	}
	if freshest.IsZero() {
		return 0
	}
	return clamp100(graph.Decay(s.daysSince(freshest), graph.HalfLifeOutreach) * 100)
}

// scoreCashAdjacency scores an institutional entity's disclosed liquidity,
// saturating at the cash bonus threshold and decaying by disclosure age.
func (s *Scorer) scoreCashAdjacency(key graph.NodeKey) float64 {
	node, ok := s.g.NodeByKey(key)
	if !ok || node.Attrs.CashReservesUSD <= 0 {
		return 0
	}
	factor := math.Min(node.Attrs.CashReservesUSD/CashBonusThresholdUSD, 1.0)
	decay := 1.0
	if !node.Attrs.CashAsOf.IsZero() {
		decay = graph.Decay(s.daysSince(node.Attrs.CashAsOf), graph.HalfLifeCash)
	}
	return clamp100(factor * decay * 100)
}

func clamp100(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
