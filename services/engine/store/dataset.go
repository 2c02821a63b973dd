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
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/relgraph/services/engine/graph"
)

// =============================================================================
// YAML Dataset
// =============================================================================

// datasetPerson is one person row in a dataset file.
type datasetPerson struct {
	ID        int64  `yaml:"id"`
	Name      string `yaml:"name"`
	RoleLevel string `yaml:"role_level"`
	OrgID     int64  `yaml:"org_id"`
	Status    string `yaml:"status"`
}

// datasetOrg is one organization row in a dataset file.
type datasetOrg struct {
	ID              int64     `yaml:"id"`
	Name            string    `yaml:"name"`
	Category        string    `yaml:"category"`
	Status          string    `yaml:"status"`
	Industry        string    `yaml:"industry"`
	RevenueUSD      float64   `yaml:"revenue_usd"`
	FootprintSF     float64   `yaml:"footprint_sf"`
	CashReservesUSD float64   `yaml:"cash_reserves_usd"`
	CashAsOf        time.Time `yaml:"cash_as_of"`
}

// datasetRelationship is one directed relationship row in a dataset file.
// Source and target use the "kind:id" key form, e.g. "person:12".
type datasetRelationship struct {
	Source          string    `yaml:"source"`
	Target          string    `yaml:"target"`
	Type            string    `yaml:"type"`
	Strength        float64   `yaml:"strength"`
	Confidence      float64   `yaml:"confidence"`
	LastInteraction time.Time `yaml:"last_interaction"`
}

// datasetSignal is one signal event row in a dataset file.
type datasetSignal struct {
	Entity    string    `yaml:"entity"`
	Kind      string    `yaml:"kind"`
	Date      time.Time `yaml:"date"`
	Magnitude float64   `yaml:"magnitude"`
	Relevance string    `yaml:"relevance"`
	Detail    string    `yaml:"detail"`
}

// dataset is the root document of a dataset file.
type dataset struct {
	Persons       []datasetPerson       `yaml:"persons"`
	Organizations []datasetOrg          `yaml:"organizations"`
	Relationships []datasetRelationship `yaml:"relationships"`
	Signals       []datasetSignal       `yaml:"signals"`
}

// ParseKey parses the "kind:id" key form used in dataset files and CLI
// arguments, e.g. "person:12" or "organization:3".
func ParseKey(s string) (graph.NodeKey, error) {
	kindStr, idStr, found := strings.Cut(s, ":")
	if !found {
		return graph.NodeKey{}, fmt.Errorf("%w: %q is not kind:id", graph.ErrInvalidKey, s)
	}
	kind, err := graph.ParseNodeKind(kindStr)
	if err != nil {
		return graph.NodeKey{}, err
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		return graph.NodeKey{}, fmt.Errorf("%w: bad id in %q", graph.ErrInvalidKey, s)
	}
	return graph.NodeKey{Kind: kind, ID: id}, nil
}

// parseCategory maps the dataset category string to a Category. An empty
// string leaves classification to the builder.
func parseCategory(s string) (graph.Category, error) {
	switch s {
	case "", "default":
		return graph.CategoryDefault, nil
	case "high_growth":
		return graph.CategoryHighGrowth, nil
	case "institutional":
		return graph.CategoryInstitutional, nil
	default:
		return graph.CategoryDefault, fmt.Errorf("unknown category %q", s)
	}
}

// LoadDataset reads a YAML dataset file into a Memory store.
//
// Description:
//
//	A dataset file carries persons, organizations, relationships, and
//	signal events in one document. Used by the CLI for offline analysis
//	and by tests for fixtures.
//
// Inputs:
//
//	path - Path to the YAML file.
//
// Outputs:
//
//	*Memory - A populated in-memory entity store.
//	error - Non-nil if the file cannot be read or a row is malformed.
func LoadDataset(path string) (*Memory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dataset file %s: %w", path, err)
	}
	var ds dataset
	if err := yaml.Unmarshal(data, &ds); err != nil {
		return nil, fmt.Errorf("parse dataset file %s: %w", path, err)
	}

	m := NewMemory()
	for _, p := range ds.Persons {
		if p.ID <= 0 {
			return nil, fmt.Errorf("person %q: id must be positive", p.Name)
		}
		m.PutEntity(graph.EntityRecord{
			Key:       graph.PersonKey(p.ID),
			Name:      p.Name,
			Status:    p.Status,
			RoleLevel: p.RoleLevel,
			OrgID:     p.OrgID,
		})
	}
	for _, o := range ds.Organizations {
		if o.ID <= 0 {
			return nil, fmt.Errorf("organization %q: id must be positive", o.Name)
		}
		cat, err := parseCategory(o.Category)
		if err != nil {
			return nil, fmt.Errorf("organization %q: %w", o.Name, err)
		}
		m.PutEntity(graph.EntityRecord{
			Key:             graph.OrgKey(o.ID),
			Name:            o.Name,
			Category:        cat,
			Status:          o.Status,
			Industry:        o.Industry,
			RevenueUSD:      o.RevenueUSD,
			FootprintSF:     o.FootprintSF,
			CashReservesUSD: o.CashReservesUSD,
			CashAsOf:        o.CashAsOf,
		})
	}
	for i, r := range ds.Relationships {
		src, err := ParseKey(r.Source)
		if err != nil {
			return nil, fmt.Errorf("relationship %d: %w", i, err)
		}
		dst, err := ParseKey(r.Target)
		if err != nil {
			return nil, fmt.Errorf("relationship %d: %w", i, err)
		}
		m.PutRelationship(graph.RelationshipRecord{
			Source:          src,
			Target:          dst,
			Type:            r.Type,
			Strength:        r.Strength,
			Confidence:      r.Confidence,
			LastInteraction: r.LastInteraction,
		})
	}
	for i, sig := range ds.Signals {
		key, err := ParseKey(sig.Entity)
		if err != nil {
			return nil, fmt.Errorf("signal %d: %w", i, err)
		}
		m.PutSignal(key, graph.SignalEvent{
			Kind:      graph.SignalKind(sig.Kind),
			Date:      sig.Date,
			Magnitude: sig.Magnitude,
			Relevance: sig.Relevance,
			Detail:    sig.Detail,
		})
	}
	return m, nil
}
