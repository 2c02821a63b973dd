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
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/relgraph/services/engine/graph"
	"github.com/AleutianAI/relgraph/services/engine/pipeline"
	"github.com/AleutianAI/relgraph/services/engine/store"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Runs one full analysis pass offline and prints the results",
	Long: `Builds the graph from the --data dataset, runs centrality, influence,
clustering, and opportunity scoring, and prints every published metric
and score as JSON. Nothing is persisted; use serve for that.`,
	RunE: runAnalyzeCommand,
}

// analyzeOutput is the printed result of an offline pass.
type analyzeOutput struct {
	Pass    *pipeline.PassResult         `json:"pass"`
	Metrics map[string]store.NodeMetrics `json:"metrics"`
	Scores  map[string]store.ScoreRecord `json:"scores"`
}

func runAnalyzeCommand(cmd *cobra.Command, args []string) error {
	entities, err := loadEntityStore()
	if err != nil {
		return err
	}

	holder := pipeline.NewHolder()
	runner, err := pipeline.NewRunner(entities, entities, holder, pipeline.Options{
		BuilderOptions: graph.BuilderOptions{
			RelationshipHalfLifeDays: cfg.Pipeline.RelationshipHalfLifeDays,
			RevenueThresholdUSD:      cfg.Pipeline.RevenueThresholdUSD,
			FootprintThresholdSF:     cfg.Pipeline.FootprintThresholdSF,
		},
	})
	if err != nil {
		return err
	}

	result, err := runner.RunPass(context.Background())
	if err != nil {
		return err
	}

	snap := holder.Current()
	out := analyzeOutput{
		Pass:    result,
		Metrics: make(map[string]store.NodeMetrics, len(snap.Metrics)),
		Scores:  make(map[string]store.ScoreRecord, len(snap.Scores)),
	}
	for key, nm := range snap.Metrics {
		out.Metrics[key.String()] = nm
	}
	for key, sc := range snap.Scores {
		out.Scores[key.String()] = sc
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode results: %w", err)
	}
	return nil
}
