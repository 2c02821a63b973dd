// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package badgerstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/relgraph/services/engine/graph"
	"github.com/AleutianAI/relgraph/services/engine/store"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := Open(Config{})
	assert.Error(t, err)
}

func TestOpen_Persistent(t *testing.T) {
	s, err := Open(DefaultConfig(t.TempDir() + "/metrics"))
	require.NoError(t, err)
	require.NoError(t, s.Close())
}

func TestPublishRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	passID, err := s.LatestPassID(ctx)
	require.NoError(t, err)
	assert.Empty(t, passID, "pass pointer set before any publish")

	_, found, err := s.NodeMetrics(ctx, graph.PersonKey(1))
	require.NoError(t, err)
	assert.False(t, found)

	metrics := []store.NodeMetrics{
		{Key: graph.PersonKey(1), Centrality: 0.8, Leverage: 0.48, ClusterID: 2},
		{Key: graph.OrgKey(7), AdjacencyIndex: 63.5, Influence: 0.12, ClusterID: 2},
	}
	scores := []store.ScoreRecord{
		{Key: graph.OrgKey(7), Total: 71.2, Category: "high_growth",
			SubScores: map[string]float64{"funding": 100, "coverage": 80}},
	}
	require.NoError(t, s.Publish(ctx, "pass-1", metrics, scores))

	passID, err = s.LatestPassID(ctx)
	require.NoError(t, err)
	assert.Equal(t, "pass-1", passID)

	nm, found, err := s.NodeMetrics(ctx, graph.PersonKey(1))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, graph.PersonKey(1), nm.Key)
	assert.InDelta(t, 0.8, nm.Centrality, 1e-9)
	assert.Equal(t, 2, nm.ClusterID)
}

func TestPublishReplacesPreviousPass(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first := []store.NodeMetrics{
		{Key: graph.PersonKey(1), Centrality: 0.8},
		{Key: graph.PersonKey(2), Centrality: 0.3},
	}
	require.NoError(t, s.Publish(ctx, "pass-1", first, nil))

	// The second pass no longer contains person:2; its record must not
	// linger from the first pass.
	second := []store.NodeMetrics{
		{Key: graph.PersonKey(1), Centrality: 0.9},
	}
	require.NoError(t, s.Publish(ctx, "pass-2", second, nil))

	passID, err := s.LatestPassID(ctx)
	require.NoError(t, err)
	assert.Equal(t, "pass-2", passID)

	nm, found, err := s.NodeMetrics(ctx, graph.PersonKey(1))
	require.NoError(t, err)
	require.True(t, found)
	assert.InDelta(t, 0.9, nm.Centrality, 1e-9)

	_, found, err = s.NodeMetrics(ctx, graph.PersonKey(2))
	require.NoError(t, err)
	assert.False(t, found, "stale record survived the next pass")
}

func TestPublishContextCancelled(t *testing.T) {
	s := openTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Error(t, s.Publish(ctx, "pass-1", nil, nil))
	_, err := s.LatestPassID(ctx)
	assert.Error(t, err)
}
