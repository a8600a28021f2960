// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Orch-Mind Contributors

package store

import (
	"github.com/orch-mind/vecmem/internal/embedding"
	"github.com/orch-mind/vecmem/internal/threshold"
)

// Query strategy names, in their default order.
const (
	StrategyCosine   = "cosine"
	StrategyDistance = "distance"
	StrategyBasic    = "basic"
)

const (
	DefaultFile            = "vectors.db"
	DefaultBatchSize       = 50
	DefaultExistsBatchSize = 100
	DefaultTopK            = 5
	DefaultThreads         = 4
	DefaultMemoryLimit     = "512MB"
)

// DefaultStrategies returns the full fallback ladder.
func DefaultStrategies() []string {
	return []string{StrategyCosine, StrategyDistance, StrategyBasic}
}

// DefaultSearchableFields lists the metadata keys keyword search looks at
// when nothing is configured.
func DefaultSearchableFields() []string {
	return []string{"content", "title", "summary", "tags"}
}

// StorageConfig controls which backend the store factory uses and how it behaves.
type StorageConfig struct {
	Backend          string // "sqlite" is the only supported backend for now.
	DataDir          string // Directory holding the database file.
	File             string // Database file name inside DataDir.
	Dimensions       int    // Embedding dimensions; 0 uses the default (768).
	Threads          int
	MemoryLimit      string // Human-readable byte size, e.g. "512MB".
	PreserveOrder    bool   // Order unscored results by insertion.
	DisableExtension bool   // Skip loading sqlite-vec; removes the distance tier.
	BatchSize        int
	ExistsBatchSize  int
	TopK             int
	Strategies       []string
	SearchableFields []string
	Validation       *embedding.Options // nil uses embedding.DefaultOptions.
	Thresholds       *threshold.Tiers   // nil uses threshold.DefaultTiers.
}

// WithDefaults returns a copy with zero values replaced by defaults.
func (c StorageConfig) WithDefaults() StorageConfig {
	if c.Backend == "" {
		c.Backend = "sqlite"
	}
	if c.File == "" {
		c.File = DefaultFile
	}
	if c.Dimensions <= 0 {
		c.Dimensions = embedding.DefaultDimensions
	}
	if c.Threads <= 0 {
		c.Threads = DefaultThreads
	}
	if c.MemoryLimit == "" {
		c.MemoryLimit = DefaultMemoryLimit
	}
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.ExistsBatchSize <= 0 {
		c.ExistsBatchSize = DefaultExistsBatchSize
	}
	if c.TopK <= 0 {
		c.TopK = DefaultTopK
	}
	if len(c.Strategies) == 0 {
		c.Strategies = DefaultStrategies()
	}
	if c.SearchableFields == nil {
		c.SearchableFields = DefaultSearchableFields()
	}
	validation := embedding.DefaultOptions()
	if c.Validation != nil {
		validation = *c.Validation
	}
	validation.ExpectedDimensions = c.Dimensions
	c.Validation = &validation

	tiers := threshold.DefaultTiers()
	if c.Thresholds != nil {
		tiers = *c.Thresholds
	}
	c.Thresholds = &tiers
	return c
}
