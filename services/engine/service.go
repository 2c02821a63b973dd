// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package engine assembles the relationship graph service.
//
// This package contains the main Service type that coordinates all
// components: HTTP routing via Gin, the batch analysis pipeline, the
// BadgerDB metrics store, and the snapshot holder that query handlers
// read from.
//
// # Usage
//
//	cfg := config.Default()
//	svc, err := engine.New(cfg, entityStore)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer svc.Close()
//	log.Fatal(svc.Run())
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"golang.org/x/time/rate"

	"github.com/AleutianAI/relgraph/services/engine/config"
	"github.com/AleutianAI/relgraph/services/engine/graph"
	"github.com/AleutianAI/relgraph/services/engine/pipeline"
	"github.com/AleutianAI/relgraph/services/engine/store"
	"github.com/AleutianAI/relgraph/services/engine/store/badgerstore"
)

// =============================================================================
// Interface Definition
// =============================================================================

// Service defines the contract for the graph engine service.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use. Run() blocks and should
// only be called once per instance.
type Service interface {
	// Run starts the HTTP server and blocks until shutdown or error.
	Run() error

	// Router returns the underlying Gin engine for testing.
	Router() *gin.Engine

	// RunPass executes one analysis pass immediately.
	RunPass(ctx context.Context) (*pipeline.PassResult, error)

	// Close stops the pass scheduler and releases the metrics store.
	Close() error
}

// =============================================================================
// Implementation
// =============================================================================

// service implements Service for production use.
//
// Thread-safe after construction; all fields are read-only after New()
// returns.
type service struct {
	cfg      config.Config
	router   *gin.Engine
	holder   *pipeline.Holder
	runner   *pipeline.Runner
	metrics  *badgerstore.Store
	entities store.EntityStore

	schedCancel context.CancelFunc
	schedDone   chan struct{}
}

// New creates a graph engine Service with the given configuration.
//
// # Description
//
// New initializes all engine components:
//  1. Opens the BadgerDB metrics store
//  2. Creates the snapshot holder and pipeline runner
//  3. Sets up HTTP routes with tracing and rate limiting
//  4. Starts the pass scheduler when an interval is configured
//
// # Inputs
//
//   - cfg: Validated configuration, typically from config.Load.
//   - entities: The entity store read once per analysis pass.
//
// # Outputs
//
//   - Service: Ready-to-run service. Caller must Close when done.
//   - error: Non-nil if initialization fails.
func New(cfg config.Config, entities store.EntityStore) (Service, error) {
	metrics, err := badgerstore.Open(badgerstore.Config{
		Path:       cfg.Store.Path,
		InMemory:   cfg.Store.InMemory,
		SyncWrites: cfg.Store.SyncWrites,
	})
	if err != nil {
		return nil, fmt.Errorf("open metrics store: %w", err)
	}

	holder := pipeline.NewHolder()
	strategy, err := graph.NewModularityStrategy(graph.ModularityOptions{
		MaxIterations: 50,
		Resolution:    1.0,
		Budget:        cfg.Pipeline.ClusterBudget,
	})
	if err != nil {
		_ = metrics.Close()
		return nil, fmt.Errorf("create cluster strategy: %w", err)
	}
	runner, err := pipeline.NewRunner(entities, metrics, holder, pipeline.Options{
		BuilderOptions: graph.BuilderOptions{
			RelationshipHalfLifeDays: cfg.Pipeline.RelationshipHalfLifeDays,
			RevenueThresholdUSD:      cfg.Pipeline.RevenueThresholdUSD,
			FootprintThresholdSF:     cfg.Pipeline.FootprintThresholdSF,
			MaxNodes:                 cfg.Pipeline.MaxNodes,
			MaxEdges:                 cfg.Pipeline.MaxEdges,
		},
		ClusterStrategy: strategy,
	})
	if err != nil {
		_ = metrics.Close()
		return nil, fmt.Errorf("create pipeline runner: %w", err)
	}

	s := &service{
		cfg:      cfg,
		holder:   holder,
		runner:   runner,
		metrics:  metrics,
		entities: entities,
	}
	s.initRouter()

	if cfg.Pipeline.Interval > 0 {
		s.startScheduler(cfg.Pipeline.Interval)
	}

	return s, nil
}

// Run starts the HTTP server and blocks until it stops.
func (s *service) Run() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	slog.Info("Starting graph engine server", "addr", addr)
	return s.router.Run(addr)
}

// Router returns the underlying Gin engine for testing.
func (s *service) Router() *gin.Engine {
	return s.router
}

// RunPass executes one analysis pass immediately.
func (s *service) RunPass(ctx context.Context) (*pipeline.PassResult, error) {
	return s.runner.RunPass(ctx)
}

// Close stops the scheduler and closes the metrics store.
func (s *service) Close() error {
	if s.schedCancel != nil {
		s.schedCancel()
		<-s.schedDone
	}
	return s.metrics.Close()
}

// initRouter sets up the Gin HTTP router with all routes and middleware.
func (s *service) initRouter() {
	s.router = gin.Default()
	s.router.Use(otelgin.Middleware("relgraph-engine"))
	s.router.Use(RateLimit(rate.NewLimiter(
		rate.Limit(s.cfg.Server.RateLimitRPS), s.cfg.Server.RateLimitBurst)))

	SetupRoutes(s.router, s.holder, s.runner, s.metrics, s.entities)
}

// startScheduler runs analysis passes on a fixed interval until Close.
func (s *service) startScheduler(interval time.Duration) {
	ctx, cancel := context.WithCancel(context.Background())
	s.schedCancel = cancel
	s.schedDone = make(chan struct{})

	go func() {
		defer close(s.schedDone)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		slog.Info("Pass scheduler started", "interval", interval.String())
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := s.runner.RunPass(ctx); err != nil {
					slog.Error("scheduled analysis pass failed", "error", err)
				}
			}
		}
	}()
}

// =============================================================================
// Compile-time Interface Compliance
// =============================================================================

var _ Service = (*service)(nil)
