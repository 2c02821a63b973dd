// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/relgraph/services/engine/graph"
	"github.com/AleutianAI/relgraph/services/engine/scoring"
	"github.com/AleutianAI/relgraph/services/engine/store"
)

var tracer = otel.Tracer("relgraph.pipeline")

// =============================================================================
// Phases
// =============================================================================

// Phase is the batch cycle state.
type Phase int32

const (
	PhaseIdle Phase = iota
	PhaseBuilding
	PhaseAnalyzing
	PhaseScoring
	PhasePublishing
)

// String returns the lowercase phase name.
func (p Phase) String() string {
	switch p {
	case PhaseBuilding:
		return "building"
	case PhaseAnalyzing:
		return "analyzing"
	case PhaseScoring:
		return "scoring"
	case PhasePublishing:
		return "publishing"
	default:
		return "idle"
	}
}

// =============================================================================
// Runner
// =============================================================================

// Options configures a Runner.
type Options struct {
	// BuilderOptions configure each pass's graph build. Now is stamped
	// per pass when zero.
	BuilderOptions graph.BuilderOptions

	// ClusterStrategy partitions each pass's graph. Defaults to the
	// modularity strategy with a 5 second budget.
	ClusterStrategy graph.ClusterStrategy

	// Logger receives pass lifecycle logs. Nil disables logging.
	Logger *slog.Logger
}

// PassResult summarizes one completed (or aborted) batch pass.
type PassResult struct {
	PassID         string           `json:"pass_id"`
	BuildStats     graph.BuildStats `json:"build_stats"`
	ClusterWarning bool             `json:"cluster_warning,omitempty"`
	NodesScored    int              `json:"nodes_scored"`
	DurationMilli  int64            `json:"duration_milli"`
}

// Runner executes batch passes against an entity store and publishes the
// results to a metrics store and a snapshot holder.
//
// Thread Safety: RunPass serializes itself with a mutex; concurrent calls
// queue rather than interleave. Phase may be read at any time.
type Runner struct {
	entities store.EntityStore
	metrics  store.MetricsStore
	holder   *Holder
	opts     Options

	phase atomic.Int32
	runMu sync.Mutex
}

// NewRunner creates a Runner.
func NewRunner(entities store.EntityStore, metrics store.MetricsStore, holder *Holder, opts Options) (*Runner, error) {
	if entities == nil || metrics == nil || holder == nil {
		return nil, fmt.Errorf("entities, metrics, and holder are all required")
	}
	if opts.ClusterStrategy == nil {
		modOpts := graph.DefaultModularityOptions()
		modOpts.Budget = 5 * time.Second
		modOpts.Logger = opts.Logger
		strategy, err := graph.NewModularityStrategy(modOpts)
		if err != nil {
			return nil, err
		}
		opts.ClusterStrategy = strategy
	}
	return &Runner{
		entities: entities,
		metrics:  metrics,
		holder:   holder,
		opts:     opts,
	}, nil
}

// Phase returns the current batch phase.
func (r *Runner) Phase() Phase { return Phase(r.phase.Load()) }

func (r *Runner) setPhase(p Phase) {
	r.phase.Store(int32(p))
	if r.opts.Logger != nil {
		r.opts.Logger.Debug("pipeline phase", "phase", p.String())
	}
}

// RunPass executes one full batch pass.
//
// Description:
//
//	Build the snapshot graph, run the analyses in parallel over the
//	frozen graph, score every organization, and publish all-or-nothing.
//	On any failure the pass's results are discarded and the previously
//	published snapshot stays in effect.
//
// Outputs:
//
//	*PassResult - Summary of the pass. Nil on error.
//	error - The failure that aborted the pass.
func (r *Runner) RunPass(ctx context.Context) (*PassResult, error) {
	r.runMu.Lock()
	defer r.runMu.Unlock()
	defer r.setPhase(PhaseIdle)

	passID := uuid.NewString()
	ctx, span := tracer.Start(ctx, "Runner.RunPass")
	defer span.End()
	span.SetAttributes(attribute.String("pass.id", passID))

	logger := r.opts.Logger
	if logger != nil {
		logger = logger.With("pass_id", passID)
		logger.Info("batch pass starting")
	}
	start := time.Now()

	// --- Building ---
	r.setPhase(PhaseBuilding)
	buildOpts := r.opts.BuilderOptions
	if buildOpts.Now.IsZero() {
		buildOpts.Now = start
	}
	buildOpts.Logger = logger
	buildResult, err := graph.NewBuilder(buildOpts).Build(ctx, r.entities)
	if err != nil {
		return nil, fmt.Errorf("build: %w", err)
	}
	g := buildResult.Graph

	// --- Analyzing ---
	r.setPhase(PhaseAnalyzing)
	analyzer, err := graph.NewAnalytics(g)
	if err != nil {
		return nil, fmt.Errorf("analytics: %w", err)
	}

	var (
		influence map[graph.NodeKey]float64
		clusters  *graph.ClusterResult
	)
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var ierr error
		influence, ierr = g.InfluencePropagation(graph.DefaultInfluenceOptions())
		return ierr
	})
	eg.Go(func() error {
		var cerr error
		clusters, cerr = r.opts.ClusterStrategy.Detect(egCtx, g)
		return cerr
	})
	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("analyze: %w", err)
	}

	keys := g.Keys()
	nodeMetrics := make([]store.NodeMetrics, 0, len(keys))
	for _, key := range keys {
		nodeMetrics = append(nodeMetrics, store.NodeMetrics{
			Key:            key,
			Centrality:     analyzer.WeightedOutDegree(key),
			Leverage:       analyzer.TwoHopLeverage(key),
			AdjacencyIndex: analyzer.StrategicAdjacencyIndex(key),
			Influence:      influence[key],
			ClusterID:      clusters.Assignments[key],
		})
	}

	// --- Scoring ---
	r.setPhase(PhaseScoring)
	scorer, err := scoring.NewScorer(g, r.entities, buildOpts.Now)
	if err != nil {
		return nil, fmt.Errorf("scorer: %w", err)
	}
	orgKeys := make([]graph.NodeKey, 0)
	for _, key := range keys {
		if key.Kind == graph.KindOrganization {
			orgKeys = append(orgKeys, key)
		}
	}
	sort.Slice(orgKeys, func(i, j int) bool { return orgKeys[i].ID < orgKeys[j].ID })

	scores := make([]store.ScoreRecord, 0, len(orgKeys))
	for _, key := range orgKeys {
		sc, err := scorer.ScoreOpportunity(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("score %s: %w", key, err)
		}
		scores = append(scores, store.ScoreRecord{
			Key:       sc.Key,
			Total:     sc.Total,
			Category:  sc.Category,
			SubScores: sc.SubScores,
		})
	}

	// --- Publishing ---
	r.setPhase(PhasePublishing)
	if err := r.metrics.Publish(ctx, passID, nodeMetrics, scores); err != nil {
		if logger != nil {
			logger.Error("publish failed, discarding pass results", "error", err.Error())
		}
		return nil, fmt.Errorf("publish: %w", err)
	}

	snap := &Snapshot{
		PassID:      passID,
		Graph:       g,
		Metrics:     make(map[graph.NodeKey]store.NodeMetrics, len(nodeMetrics)),
		Scores:      make(map[graph.NodeKey]store.ScoreRecord, len(scores)),
		Clusters:    clusters,
		PublishedAt: time.Now(),
	}
	for _, nm := range nodeMetrics {
		snap.Metrics[nm.Key] = nm
	}
	for _, sr := range scores {
		snap.Scores[sr.Key] = sr
	}
	r.holder.swap(snap)

	result := &PassResult{
		PassID:         passID,
		BuildStats:     buildResult.Stats,
		ClusterWarning: clusters.BudgetExceeded,
		NodesScored:    len(scores),
		DurationMilli:  time.Since(start).Milliseconds(),
	}
	if logger != nil {
		logger.Info("batch pass published",
			"nodes", g.NodeCount(),
			"edges", g.EdgeCount(),
			"dropped_records", result.BuildStats.DroppedRecords,
			"cluster_warning", result.ClusterWarning,
			"scored", result.NodesScored,
			"duration_ms", result.DurationMilli,
		)
	}
	return result, nil
}
