// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Orch-Mind Contributors

package sqlite_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/orch-mind/vecmem/internal/store"
	"github.com/orch-mind/vecmem/internal/store/sqlite"
)

// testDir creates a temp directory removed when the test ends.
func testDir(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "vecmem-test-*")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	return dir
}

// testDBPath returns a temp SQLite database path.
func testDBPath(t *testing.T, name string) string {
	t.Helper()
	return filepath.Join(testDir(t), name+".db")
}

// newTestStore opens a 3-dimensional store in a fresh directory.
func newTestStore(t *testing.T, mutate ...func(*store.StorageConfig)) *sqlite.VectorStore {
	t.Helper()
	cfg := store.StorageConfig{DataDir: testDir(t), Dimensions: 3}
	for _, m := range mutate {
		m(&cfg)
	}
	vs, err := sqlite.NewVectorStore(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = vs.Close() })
	return vs
}

func ptr[T any](v T) *T { return &v }
