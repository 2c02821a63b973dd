// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graph

import "fmt"

// RecordError captures one relationship record that could not be wired into
// the graph. Record-level defects are absorbed and counted, never fatal.
type RecordError struct {
	// Source and Target are the endpoints the record referenced.
	Source NodeKey `json:"source"`
	Target NodeKey `json:"target"`

	// Type is the relationship type of the dropped record.
	Type string `json:"type"`

	// Reason describes why the record was dropped.
	Reason string `json:"reason"`
}

// Error implements the error interface.
func (e *RecordError) Error() string {
	return fmt.Sprintf("relationship %s -> %s (%s): %s", e.Source, e.Target, e.Type, e.Reason)
}

// BuildStats summarizes one graph build.
type BuildStats struct {
	// Persons and Organizations are node counts by kind.
	Persons       int `json:"persons"`
	Organizations int `json:"organizations"`

	// RelationshipEdges counts edges created from relationship records.
	RelationshipEdges int `json:"relationship_edges"`

	// MembershipEdges counts synthesized affiliated_with edges.
	MembershipEdges int `json:"membership_edges"`

	// DroppedRecords counts relationship records dropped for dangling
	// endpoints.
	DroppedRecords int `json:"dropped_records"`

	// DurationMilli is the wall-clock build time.
	DurationMilli int64 `json:"duration_milli"`
}

// BuildResult is the outcome of one snapshot build.
//
// A build succeeds as long as the snapshot itself was readable; individual
// bad records surface in RecordErrors without failing the build.
type BuildResult struct {
	// Graph is the frozen graph. Nil only if the build failed outright.
	Graph *Graph `json:"-"`

	// RecordErrors lists every dropped relationship record.
	RecordErrors []RecordError `json:"record_errors,omitempty"`

	// Stats summarizes the build.
	Stats BuildStats `json:"stats"`
}

// HasErrors reports whether any records were dropped.
func (r *BuildResult) HasErrors() bool { return len(r.RecordErrors) > 0 }
