// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package engine

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/AleutianAI/relgraph/services/engine/graph"
	"github.com/AleutianAI/relgraph/services/engine/pipeline"
	"github.com/AleutianAI/relgraph/services/engine/store"
)

var handlerNow = time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

// testStack wires a router, snapshot holder, and runner over an in-memory
// entity store preloaded with a small relationship network.
type testStack struct {
	router *gin.Engine
	holder *pipeline.Holder
	runner *pipeline.Runner
	memory *store.Memory
}

func newTestStack(t *testing.T) *testStack {
	t.Helper()
	gin.SetMode(gin.TestMode)

	m := store.NewMemory()
	m.PutEntity(graph.EntityRecord{Key: graph.OrgKey(1), Name: "Lumen Robotics",
		Status: "high_growth_target"})
	m.PutEntity(graph.EntityRecord{Key: graph.PersonKey(10), Name: "Ana",
		RoleLevel: "team"})
	m.PutEntity(graph.EntityRecord{Key: graph.PersonKey(20), Name: "Bo",
		RoleLevel: "c_suite", OrgID: 1})
	m.PutRelationship(graph.RelationshipRecord{Source: graph.PersonKey(10),
		Target: graph.PersonKey(20), Type: "client",
		Strength: 5, Confidence: 1, LastInteraction: handlerNow})

	holder := pipeline.NewHolder()
	runner, err := pipeline.NewRunner(m, m, holder, pipeline.Options{
		BuilderOptions: graph.BuilderOptions{Now: handlerNow},
	})
	require.NoError(t, err)

	router := gin.New()
	SetupRoutes(router, holder, runner, m, m)
	return &testStack{router: router, holder: holder, runner: runner, memory: m}
}

func (s *testStack) request(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testStack) runPass(t *testing.T) {
	t.Helper()
	_, err := s.runner.RunPass(context.Background())
	require.NoError(t, err)
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestHealthCheck(t *testing.T) {
	s := newTestStack(t)
	w := s.request(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decodeBody(t, w)["status"])
}

func TestReadyCheck(t *testing.T) {
	s := newTestStack(t)

	w := s.request(t, http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	s.runPass(t)
	w = s.request(t, http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "ready", body["status"])
	assert.NotEmpty(t, body["pass_id"])
}

func TestTriggerAnalyze(t *testing.T) {
	s := newTestStack(t)
	w := s.request(t, http.MethodPost, "/v1/analyze", "")
	assert.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.NotEmpty(t, body["pass_id"])
	assert.Equal(t, float64(1), body["nodes_scored"])
	assert.NotNil(t, s.holder.Current())
}

func TestGetNodeMetrics(t *testing.T) {
	s := newTestStack(t)

	// Queries before the first pass report no snapshot.
	w := s.request(t, http.MethodGet, "/v1/nodes/person/10/metrics", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	s.runPass(t)
	w = s.request(t, http.MethodGet, "/v1/nodes/person/10/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.NotEmpty(t, body["pass_id"])
	metrics, ok := body["metrics"].(map[string]any)
	require.True(t, ok)
	assert.Greater(t, metrics["centrality"], 0.0)

	w = s.request(t, http.MethodGet, "/v1/nodes/person/999/metrics", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.request(t, http.MethodGet, "/v1/nodes/robot/1/metrics", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.request(t, http.MethodGet, "/v1/nodes/person/zero/metrics", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetPublishedMetrics(t *testing.T) {
	s := newTestStack(t)
	s.runPass(t)

	w := s.request(t, http.MethodGet, "/v1/nodes/organization/1/published", "")
	assert.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.NotEmpty(t, body["pass_id"])

	w = s.request(t, http.MethodGet, "/v1/nodes/organization/999/published", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetScore(t *testing.T) {
	s := newTestStack(t)
	s.runPass(t)

	w := s.request(t, http.MethodGet, "/v1/scores/organization/1", "")
	assert.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	score, ok := body["score"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "high_growth", score["category"])

	// Persons are not scored by the batch pass.
	w = s.request(t, http.MethodGet, "/v1/scores/person/10", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestComputeScore(t *testing.T) {
	s := newTestStack(t)
	s.runPass(t)

	w := s.request(t, http.MethodPost, "/v1/scores/compute",
		`{"target": {"kind": "organization", "id": 1}}`)
	assert.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	score, ok := body["score"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, score, "sub_scores")

	w = s.request(t, http.MethodPost, "/v1/scores/compute",
		`{"target": {"kind": "robot", "id": 1}}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.request(t, http.MethodPost, "/v1/scores/compute", `{"target": {}}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListClusters(t *testing.T) {
	s := newTestStack(t)
	s.runPass(t)

	w := s.request(t, http.MethodGet, "/v1/clusters", "")
	assert.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "modularity", body["strategy"])
	assert.Equal(t, false, body["budget_exceeded"])
	assert.NotEmpty(t, body["clusters"])
}

func TestFindShortestPath(t *testing.T) {
	s := newTestStack(t)
	s.runPass(t)

	w := s.request(t, http.MethodPost, "/v1/paths/shortest",
		`{"from": {"kind": "person", "id": 10}, "to": {"kind": "person", "id": 20}}`)
	assert.Equal(t, http.StatusOK, w.Code)
	result, ok := decodeBody(t, w)["result"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, result["found"])
	assert.Equal(t, float64(1), result["hops"])

	// No route back: still a 200, just not found.
	w = s.request(t, http.MethodPost, "/v1/paths/shortest",
		`{"from": {"kind": "person", "id": 20}, "to": {"kind": "person", "id": 10}}`)
	assert.Equal(t, http.StatusOK, w.Code)
	result, ok = decodeBody(t, w)["result"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, false, result["found"])

	w = s.request(t, http.MethodPost, "/v1/paths/shortest",
		`{"from": {"kind": "robot", "id": 1}, "to": {"kind": "person", "id": 10}}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.request(t, http.MethodPost, "/v1/paths/shortest", `{"from": {}}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRankIntroPaths(t *testing.T) {
	s := newTestStack(t)
	s.runPass(t)

	w := s.request(t, http.MethodPost, "/v1/paths/rank", `{"target_org_id": 1}`)
	assert.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	intros, ok := body["intros"].([]any)
	require.True(t, ok)
	require.NotEmpty(t, intros)
	first, ok := intros[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "direct", first["intro_type"])

	w = s.request(t, http.MethodPost, "/v1/paths/rank", `{"target_org_id": 0}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRateLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RateLimit(rate.NewLimiter(rate.Limit(0.001), 1)))
	router.GET("/health", HealthCheck)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}
