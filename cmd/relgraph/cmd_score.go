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
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/relgraph/services/engine/scoring"
	"github.com/AleutianAI/relgraph/services/engine/store"
)

var scoreCmd = &cobra.Command{
	Use:   "score [target]",
	Short: "Scores an opportunity against the current dataset",
	Long: `Builds the graph from the --data dataset and computes the composite
opportunity score for one entity, e.g. organization:3. Prints the total
and every sub-score as JSON.`,
	Args: cobra.ExactArgs(1),
	RunE: runScoreCommand,
}

func runScoreCommand(cmd *cobra.Command, args []string) error {
	target, err := store.ParseKey(args[0])
	if err != nil {
		return err
	}
	entities, err := loadEntityStore()
	if err != nil {
		return err
	}
	g, err := buildGraphFromDataset(entities)
	if err != nil {
		return err
	}
	scorer, err := scoring.NewScorer(g, entities, time.Now())
	if err != nil {
		return err
	}
	score, err := scorer.ScoreOpportunity(context.Background(), target)
	if err != nil {
		return err
	}
	return printJSON(score)
}
