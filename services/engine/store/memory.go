// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package store

import (
	"context"
	"sync"

	"github.com/AleutianAI/relgraph/services/engine/graph"
)

// Memory is an in-memory EntityStore and MetricsStore.
//
// It backs tests and the CLI's file-loaded snapshots. All methods are safe
// for concurrent use; Publish swaps the published state under a single
// lock so readers never observe a partial pass.
type Memory struct {
	mu            sync.RWMutex
	entities      []graph.EntityRecord
	relationships []graph.RelationshipRecord
	signals       map[graph.NodeKey]map[graph.SignalKind][]graph.SignalEvent

	passID  string
	metrics map[graph.NodeKey]NodeMetrics
	scores  map[graph.NodeKey]ScoreRecord

	// FailPublish forces the next Publish to fail; used to exercise the
	// discard-on-publish-failure path.
	FailPublish error
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		signals: make(map[graph.NodeKey]map[graph.SignalKind][]graph.SignalEvent),
		metrics: make(map[graph.NodeKey]NodeMetrics),
		scores:  make(map[graph.NodeKey]ScoreRecord),
	}
}

// PutEntity appends an entity record.
func (m *Memory) PutEntity(rec graph.EntityRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entities = append(m.entities, rec)
}

// PutRelationship appends a relationship record.
func (m *Memory) PutRelationship(rec graph.RelationshipRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.relationships = append(m.relationships, rec)
}

// PutSignal appends a signal event for an entity.
func (m *Memory) PutSignal(key graph.NodeKey, ev graph.SignalEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	byKind := m.signals[key]
	if byKind == nil {
		byKind = make(map[graph.SignalKind][]graph.SignalEvent)
		m.signals[key] = byKind
	}
	byKind[ev.Kind] = append(byKind[ev.Kind], ev)
}

// ListEntities implements EntityStore.
func (m *Memory) ListEntities(ctx context.Context, kind graph.NodeKind) ([]graph.EntityRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]graph.EntityRecord, 0, len(m.entities))
	for _, rec := range m.entities {
		if rec.Key.Kind == kind {
			out = append(out, rec)
		}
	}
	return out, nil
}

// ListRelationships implements EntityStore.
func (m *Memory) ListRelationships(ctx context.Context) ([]graph.RelationshipRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]graph.RelationshipRecord, len(m.relationships))
	copy(out, m.relationships)
	return out, nil
}

// ListSignalEvents implements EntityStore.
func (m *Memory) ListSignalEvents(ctx context.Context, key graph.NodeKey, kind graph.SignalKind) ([]graph.SignalEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	byKind := m.signals[key]
	if byKind == nil {
		return nil, nil
	}
	events := byKind[kind]
	out := make([]graph.SignalEvent, len(events))
	copy(out, events)
	return out, nil
}

// Publish implements MetricsStore.
func (m *Memory) Publish(ctx context.Context, passID string, metrics []NodeMetrics, scores []ScoreRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailPublish != nil {
		err := m.FailPublish
		m.FailPublish = nil
		return err
	}
	newMetrics := make(map[graph.NodeKey]NodeMetrics, len(metrics))
	for _, nm := range metrics {
		newMetrics[nm.Key] = nm
	}
	newScores := make(map[graph.NodeKey]ScoreRecord, len(scores))
	for _, sr := range scores {
		newScores[sr.Key] = sr
	}
	m.passID = passID
	m.metrics = newMetrics
	m.scores = newScores
	return nil
}

// LatestPassID implements MetricsStore.
func (m *Memory) LatestPassID(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.passID, nil
}

// NodeMetrics implements MetricsStore.
func (m *Memory) NodeMetrics(ctx context.Context, key graph.NodeKey) (NodeMetrics, bool, error) {
	if err := ctx.Err(); err != nil {
		return NodeMetrics{}, false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	nm, ok := m.metrics[key]
	return nm, ok, nil
}

// Score returns the published score for one entity.
func (m *Memory) Score(key graph.NodeKey) (ScoreRecord, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sr, ok := m.scores[key]
	return sr, ok
}

var (
	_ EntityStore  = (*Memory)(nil)
	_ MetricsStore = (*Memory)(nil)
)
