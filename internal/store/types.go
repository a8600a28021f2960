// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Orch-Mind Contributors

package store

import "time"

// VectorRecord is the persisted unit: one embedding plus opaque metadata.
type VectorRecord struct {
	ID        string         `json:"id" yaml:"id"`
	Embedding []float32      `json:"embedding" yaml:"embedding"`
	Metadata  map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at,omitzero" yaml:"created_at,omitempty"`
}

// QueryOptions narrows a similarity query. Zero values mean "use defaults";
// a nil Threshold lets the threshold calculator decide.
type QueryOptions struct {
	TopK      int            `json:"top_k,omitempty"`
	Keywords  []string       `json:"keywords,omitempty"`
	Filters   map[string]any `json:"filters,omitempty"`
	Threshold *float64       `json:"threshold,omitempty"`
}

// Match is a single query hit. Score is a similarity: higher is closer.
type Match struct {
	ID       string         `json:"id"`
	Score    float64        `json:"score"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// QueryResult is the outcome of QueryVectors. Strategy names the tier that
// answered; it is empty when no tier returned rows.
type QueryResult struct {
	Matches   []Match `json:"matches"`
	Strategy  string  `json:"strategy,omitempty"`
	Threshold float64 `json:"threshold"`
}

// SaveResult aggregates one SaveVectors call. Error holds the last batch
// failure message when Success is false.
type SaveResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Saved   int    `json:"saved"`
	Skipped int    `json:"skipped"`
}

// Status is a point-in-time description of a vector store.
type Status struct {
	Ready              bool     `json:"ready"`
	Path               string   `json:"path"`
	Dimensions         int      `json:"dimensions"`
	Count              int      `json:"count"`
	ExtensionAvailable bool     `json:"extension_available"`
	Strategies         []string `json:"strategies"`
}
