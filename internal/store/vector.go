// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Orch-Mind Contributors

package store

import "context"

// VectorStore manages embedding storage and similarity search.
//
// Operations other than Initialize re-open a missing connection on demand.
// QueryVectors never fails: it degrades through its strategy ladder and
// returns an empty result when every tier is exhausted.
type VectorStore interface {
	Initialize(ctx context.Context) error
	Close() error
	IsReady() bool
	Status(ctx context.Context) Status

	SaveVectors(ctx context.Context, records []VectorRecord) (SaveResult, error)
	QueryVectors(ctx context.Context, embedding []float32, opts QueryOptions) QueryResult
	GetVectorCount(ctx context.Context) int
	CheckExistingIDs(ctx context.Context, ids []string) ([]string, error)
	DeleteAllVectors(ctx context.Context) error
	Scan(ctx context.Context, fn func(VectorRecord) error) error

	// StoreVector saves a single record and fails when the save does.
	StoreVector(ctx context.Context, id string, embedding []float32, metadata map[string]any) error
	// FindSimilarVectors is QueryVectors with positional arguments.
	// A negative threshold lets the calculator decide.
	FindSimilarVectors(ctx context.Context, embedding []float32, limit int, threshold float64, keywords []string, filters map[string]any) []Match
}
