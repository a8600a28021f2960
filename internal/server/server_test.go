// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Orch-Mind Contributors

package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orch-mind/vecmem/internal/server"
	"github.com/orch-mind/vecmem/internal/store"
	"github.com/orch-mind/vecmem/internal/store/sqlite"
	vmerr "github.com/orch-mind/vecmem/pkg/errors"
)

func newTestVectors(t *testing.T, dataDir string) store.VectorStore {
	t.Helper()
	vs, err := sqlite.NewVectorStore(store.StorageConfig{DataDir: dataDir, Dimensions: 3})
	require.NoError(t, err)
	t.Cleanup(func() { _ = vs.Close() })
	return vs
}

func newTestServerWith(t *testing.T, cfg server.Config, vs store.VectorStore) *server.Server {
	t.Helper()
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = "127.0.0.1:0"
	}
	srv, err := server.New(cfg, vs)
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Close() })
	return srv
}

func newTestServer(t *testing.T) *server.Server {
	t.Helper()
	return newTestServerWith(t, server.Config{}, newTestVectors(t, t.TempDir()))
}

func doJSON(t *testing.T, srv *server.Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

type countBody struct {
	Count int `json:"count"`
}

type deletedBody struct {
	Deleted int `json:"deleted"`
}

type existingBody struct {
	Existing []string `json:"existing"`
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestServer_New(t *testing.T) {
	srv, err := server.New(server.Config{ListenAddr: "127.0.0.1:0"}, newTestVectors(t, t.TempDir()))
	require.NoError(t, err)
	defer func() { _ = srv.Close() }()
	assert.NotNil(t, srv)
	assert.NotNil(t, srv.API())
	assert.NoError(t, srv.Close(), "close is idempotent")
}

func TestServer_New_InvalidConfig(t *testing.T) {
	vs := newTestVectors(t, t.TempDir())

	tests := []struct {
		name string
		cfg  server.Config
		vs   store.VectorStore
		want string
	}{
		{"empty listen address", server.Config{}, vs, "listen address is required"},
		{"missing store", server.Config{ListenAddr: "127.0.0.1:0"}, nil, "vector store is required"},
		{"bad rate limit", server.Config{ListenAddr: "127.0.0.1:0", RateLimit: server.RateLimitConfig{RequestsPerSecond: 5}}, vs, "burst"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := server.New(tt.cfg, tt.vs)
			require.Error(t, err)
			assert.True(t, vmerr.HasCode(err, vmerr.CodeServerConfigInvalid), "got %s", vmerr.CodeOf(err))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestServer_HealthEndpoint(t *testing.T) {
	srv := newTestServer(t)

	w := doJSON(t, srv, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")
}

func TestServer_OpenAPISpec(t *testing.T) {
	srv := newTestServer(t)

	w := doJSON(t, srv, http.MethodGet, "/openapi.json", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "openapi")

	body := w.Body.String()
	for _, op := range []string{"save-vectors", "query-vectors", "count-vectors", "check-existing-ids", "delete-all-vectors", "store-status"} {
		assert.Contains(t, body, op)
	}
}

func TestServer_SecurityHeaders(t *testing.T) {
	srv := newTestServer(t)

	w := doJSON(t, srv, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	assert.Equal(t, "0", w.Header().Get("X-XSS-Protection"))
}

func TestServer_CORSHeaders(t *testing.T) {
	srv := newTestServerWith(t, server.Config{
		CORSOrigins: []string{"https://app.example.com"},
	}, newTestVectors(t, t.TempDir()))

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/vectors/query", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/api/v1/vectors/query", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestServer_GracefulShutdown(t *testing.T) {
	srv := newTestServer(t)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ctx, ln)
	}()

	resp, err := http.Get("http://" + ln.Addr().String() + "/health")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down within timeout")
	}
}

func TestServer_StartListenFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	srv := newTestServerWith(t, server.Config{ListenAddr: ln.Addr().String()}, newTestVectors(t, t.TempDir()))

	err = srv.Start(context.Background())
	require.Error(t, err)
	assert.True(t, vmerr.HasCode(err, vmerr.CodeServerStartFailure))
}

func TestServer_RateLimited(t *testing.T) {
	srv := newTestServerWith(t, server.Config{
		RateLimit: server.RateLimitConfig{RequestsPerSecond: 1, Burst: 2},
	}, newTestVectors(t, t.TempDir()))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		codes = append(codes, doJSON(t, srv, http.MethodGet, "/health", nil).Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestServer_UnavailableStore(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))
	srv := newTestServerWith(t, server.Config{}, newTestVectors(t, blocker))

	w := doJSON(t, srv, http.MethodPost, "/api/v1/vectors", map[string]any{
		"records": []map[string]any{{"id": "a", "embedding": []float32{1, 0, 0}}},
	})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code, w.Body.String())

	w = doJSON(t, srv, http.MethodPost, "/api/v1/vectors/exists", map[string]any{"ids": []string{"a"}})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = doJSON(t, srv, http.MethodGet, "/api/v1/vectors/count", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, decode[countBody](t, w).Count)

	w = doJSON(t, srv, http.MethodGet, "/api/v1/status", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decode[store.Status](t, w).Ready)
}

func mustField(t *testing.T, body []byte, key string) json.RawMessage {
	t.Helper()
	var fields map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(body, &fields))
	raw, ok := fields[key]
	require.True(t, ok, "missing %q in %s", key, body)
	return raw
}
