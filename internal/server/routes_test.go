// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Orch-Mind Contributors

package server_test

import (
	"context"
	"database/sql"
	"net/http"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orch-mind/vecmem/internal/server"
	"github.com/orch-mind/vecmem/internal/store"
)

func seedVectors(t *testing.T, srv *server.Server) {
	t.Helper()
	w := doJSON(t, srv, http.MethodPost, "/api/v1/vectors", map[string]any{
		"records": []map[string]any{
			{"id": "grief", "embedding": []float32{1, 0, 0}, "metadata": map[string]any{"content": "loss and grief", "type": "memory"}},
			{"id": "joy", "embedding": []float32{0, 1, 0}, "metadata": map[string]any{"content": "a joyful day", "type": "memory"}},
			{"id": "task", "embedding": []float32{0.9, 0.1, 0}, "metadata": map[string]any{"content": "buy milk", "type": "todo"}},
		},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decode[store.SaveResult](t, w)
	require.True(t, res.Success)
	require.Equal(t, 3, res.Saved)
}

func TestRoutes_SaveVectors(t *testing.T) {
	srv := newTestServer(t)

	w := doJSON(t, srv, http.MethodPost, "/api/v1/vectors", map[string]any{
		"records": []map[string]any{
			{"id": "a", "embedding": []float32{1, 0, 0}},
			{"id": "", "embedding": []float32{1, 0, 0}},
			{"id": "b", "embedding": []float32{}},
		},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	res := decode[store.SaveResult](t, w)
	assert.True(t, res.Success)
	assert.Equal(t, 1, res.Saved)
	assert.Equal(t, 2, res.Skipped)
}

func TestRoutes_SaveVectors_BatchFailureKeepsResult(t *testing.T) {
	vs := newTestVectors(t, t.TempDir())
	srv := newTestServerWith(t, server.Config{}, vs)
	seedVectors(t, srv)

	db, err := sql.Open("sqlite3", vs.Status(context.Background()).Path+"?_busy_timeout=5000")
	require.NoError(t, err)
	_, err = db.Exec(`DROP TABLE vectors`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	w := doJSON(t, srv, http.MethodPost, "/api/v1/vectors", map[string]any{
		"records": []map[string]any{
			{"id": "a", "embedding": []float32{1, 0, 0}},
			{"id": "", "embedding": []float32{1, 0, 0}},
		},
	})
	require.Equal(t, http.StatusInternalServerError, w.Code, w.Body.String())

	res := decode[store.SaveResult](t, w)
	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Error)
	assert.Zero(t, res.Saved)
	assert.Equal(t, 1, res.Skipped)
}

func TestRoutes_SaveVectors_MissingRecords(t *testing.T) {
	srv := newTestServer(t)

	w := doJSON(t, srv, http.MethodPost, "/api/v1/vectors", map[string]any{})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestRoutes_QueryVectors(t *testing.T) {
	srv := newTestServer(t)
	seedVectors(t, srv)

	w := doJSON(t, srv, http.MethodPost, "/api/v1/vectors/query", map[string]any{
		"embedding": []float32{1, 0, 0},
		"top_k":     2,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	res := decode[store.QueryResult](t, w)
	require.Len(t, res.Matches, 2)
	assert.Equal(t, "grief", res.Matches[0].ID)
	assert.Equal(t, "task", res.Matches[1].ID)
	assert.Equal(t, store.StrategyCosine, res.Strategy)
	assert.Equal(t, "loss and grief", res.Matches[0].Metadata["content"])
}

func TestRoutes_QueryVectors_FiltersAndThreshold(t *testing.T) {
	srv := newTestServer(t)
	seedVectors(t, srv)

	w := doJSON(t, srv, http.MethodPost, "/api/v1/vectors/query", map[string]any{
		"embedding": []float32{1, 0, 0},
		"filters":   map[string]any{"type": "todo"},
		"threshold": 0.5,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	res := decode[store.QueryResult](t, w)
	require.Len(t, res.Matches, 1)
	assert.Equal(t, "task", res.Matches[0].ID)
	assert.InDelta(t, 0.5, res.Threshold, 1e-9)
}

func TestRoutes_QueryVectors_InvalidEmbeddingIsEmpty(t *testing.T) {
	srv := newTestServer(t)
	seedVectors(t, srv)

	w := doJSON(t, srv, http.MethodPost, "/api/v1/vectors/query", map[string]any{
		"embedding": []float32{},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `[]`, string(mustField(t, w.Body.Bytes(), "matches")))
}

func TestRoutes_QueryVectors_ThresholdOutOfRange(t *testing.T) {
	srv := newTestServer(t)

	w := doJSON(t, srv, http.MethodPost, "/api/v1/vectors/query", map[string]any{
		"embedding": []float32{1, 0, 0},
		"threshold": 1.5,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestRoutes_CountExistsDelete(t *testing.T) {
	srv := newTestServer(t)
	seedVectors(t, srv)

	w := doJSON(t, srv, http.MethodGet, "/api/v1/vectors/count", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 3, decode[countBody](t, w).Count)

	w = doJSON(t, srv, http.MethodPost, "/api/v1/vectors/exists", map[string]any{
		"ids": []string{"joy", "nope", "grief"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	existing := decode[existingBody](t, w).Existing
	assert.ElementsMatch(t, []string{"joy", "grief"}, existing)

	w = doJSON(t, srv, http.MethodDelete, "/api/v1/vectors", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 3, decode[deletedBody](t, w).Deleted)

	w = doJSON(t, srv, http.MethodGet, "/api/v1/vectors/count", nil)
	assert.Equal(t, 0, decode[countBody](t, w).Count)
}

func TestRoutes_ExistsEmpty(t *testing.T) {
	srv := newTestServer(t)

	w := doJSON(t, srv, http.MethodPost, "/api/v1/vectors/exists", map[string]any{"ids": []string{}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Empty(t, decode[existingBody](t, w).Existing)
}

func TestRoutes_Status(t *testing.T) {
	srv := newTestServer(t)
	seedVectors(t, srv)

	w := doJSON(t, srv, http.MethodGet, "/api/v1/status", nil)
	require.Equal(t, http.StatusOK, w.Code)

	st := decode[store.Status](t, w)
	assert.True(t, st.Ready)
	assert.Equal(t, 3, st.Count)
	assert.Equal(t, 3, st.Dimensions)
	assert.Equal(t, store.DefaultStrategies(), st.Strategies)
}
