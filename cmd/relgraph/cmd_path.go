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
	"github.com/AleutianAI/relgraph/services/engine/store"
)

var pathMaxHops int

var pathCmd = &cobra.Command{
	Use:   "path [source] [target]",
	Short: "Finds the strongest relationship path between two nodes",
	Long: `Builds the graph from the --data dataset and runs a weighted
shortest-path query. Keys use the kind:id form, e.g. person:12 or
organization:3. When the target is an organization and --rank is given,
prints ranked introduction routes instead.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runPathCommand,
}

var pathRank bool

func init() {
	pathCmd.Flags().BoolVar(&pathRank, "rank", false,
		"rank introduction routes to a target organization (single argument)")
	pathCmd.Flags().IntVar(&pathMaxHops, "max-hops", 3,
		"maximum hops for ranked introduction routes")
}

// buildGraphFromDataset builds a frozen snapshot graph for offline queries.
func buildGraphFromDataset(entities *store.Memory) (*graph.Graph, error) {
	opts := graph.DefaultBuilderOptions()
	opts.RelationshipHalfLifeDays = cfg.Pipeline.RelationshipHalfLifeDays
	opts.RevenueThresholdUSD = cfg.Pipeline.RevenueThresholdUSD
	opts.FootprintThresholdSF = cfg.Pipeline.FootprintThresholdSF

	result, err := graph.NewBuilder(opts).Build(context.Background(), entities)
	if err != nil {
		return nil, err
	}
	return result.Graph, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runPathCommand(cmd *cobra.Command, args []string) error {
	entities, err := loadEntityStore()
	if err != nil {
		return err
	}
	g, err := buildGraphFromDataset(entities)
	if err != nil {
		return err
	}
	finder, err := graph.NewPathFinder(g)
	if err != nil {
		return err
	}

	if pathRank {
		if len(args) != 1 {
			return fmt.Errorf("--rank takes exactly one target organization key")
		}
		target, err := store.ParseKey(args[0])
		if err != nil {
			return err
		}
		ranked, err := finder.RankIntroPaths(target, pathMaxHops)
		if err != nil {
			return err
		}
		return printJSON(ranked)
	}

	if len(args) != 2 {
		return fmt.Errorf("path takes source and target keys")
	}
	source, err := store.ParseKey(args[0])
	if err != nil {
		return err
	}
	target, err := store.ParseKey(args[1])
	if err != nil {
		return err
	}
	result, err := finder.ShortestWeightedPath(source, target)
	if err != nil {
		return err
	}
	return printJSON(result)
}
