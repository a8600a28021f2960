// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Orch-Mind Contributors

package store

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	vmerr "github.com/orch-mind/vecmem/pkg/errors"
)

// VectorStoreFactory creates an uninitialized vector store from a resolved config.
type VectorStoreFactory func(cfg StorageConfig) (VectorStore, error)

var (
	vectorFactories = map[string]VectorStoreFactory{}
	factoriesMu     sync.RWMutex
)

// RegisterBackend registers the factory for a named storage backend.
// Backend packages call this from init(). This function is goroutine-safe.
func RegisterBackend(name string, f VectorStoreFactory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	vectorFactories[name] = f
}

// Backends returns the registered backend names.
func Backends() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	names := make([]string, 0, len(vectorFactories))
	for name := range vectorFactories {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// NewVectorStore creates a vector store for cfg. The store is not opened;
// call Initialize (or any operation, which opens lazily).
func NewVectorStore(cfg StorageConfig) (VectorStore, error) {
	cfg = cfg.WithDefaults()

	factoriesMu.RLock()
	factory, ok := vectorFactories[cfg.Backend]
	factoriesMu.RUnlock()
	if !ok {
		registered := Backends()
		return nil, vmerr.New(vmerr.CodeStoreBackendUnsupported,
			fmt.Sprintf("unsupported storage backend %q (registered: %s)", cfg.Backend, strings.Join(registered, ", ")),
			vmerr.Field("backend", cfg.Backend), vmerr.Field("registered", registered))
	}

	return factory(cfg)
}
