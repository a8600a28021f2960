// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Orch-Mind Contributors

package sqlite

import (
	"github.com/orch-mind/vecmem/internal/store"
)

func init() {
	store.RegisterBackend("sqlite", newVectorStore)
}

func newVectorStore(cfg store.StorageConfig) (store.VectorStore, error) {
	vs, err := NewVectorStore(cfg)
	if err != nil {
		return nil, err
	}
	return vs, nil
}
