// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/relgraph/services/engine"
	"github.com/AleutianAI/relgraph/services/engine/store"
	"github.com/AleutianAI/relgraph/services/engine/telemetry"
)

var (
	rootCmd = &cobra.Command{
		Use:   "relgraph",
		Short: "A CLI to run and query the relationship graph engine",
		Long: `Relgraph analyzes a network of people and organizations: it builds a
weighted relationship graph, computes centrality and leverage metrics,
detects communities, finds introduction paths, and scores opportunities.`,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Runs the graph engine HTTP service",
		Long: `Starts the HTTP query service. The entity dataset is loaded from the
--data file; analysis passes run on the configured interval and on demand
via POST /v1/analyze.`,
		RunE: runServeCommand,
	}
)

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(pathCmd)
	rootCmd.AddCommand(scoreCmd)
}

// loadEntityStore reads the --data dataset, required by every command.
func loadEntityStore() (*store.Memory, error) {
	if dataPath == "" {
		return nil, fmt.Errorf("--data is required")
	}
	return store.LoadDataset(dataPath)
}

func runServeCommand(cmd *cobra.Command, args []string) error {
	entities, err := loadEntityStore()
	if err != nil {
		return err
	}

	ctx := context.Background()
	shutdown, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    "relgraph",
		ServiceVersion: "1.0.0",
		Environment:    "production",
		TraceExporter:  cfg.Telemetry.TraceExporter,
		MetricExporter: cfg.Telemetry.MetricExporter,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		OTLPInsecure:   true,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			slog.Warn("telemetry shutdown error", "error", err)
		}
	}()

	svc, err := engine.New(cfg, entities)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			slog.Warn("service close error", "error", err)
		}
	}()

	// Publish a first snapshot before accepting queries.
	if _, err := svc.RunPass(ctx); err != nil {
		slog.Error("initial analysis pass failed", "error", err)
	}

	return svc.Run()
}
