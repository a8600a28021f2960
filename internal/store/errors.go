// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Orch-Mind Contributors

package store

import "errors"

// Sentinel errors for store operations.
// These errors can be checked using errors.Is() for classification.
var (
	// ErrInvalidInput indicates a record or query failed validation.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotReady indicates the store has no live connection and could not open one.
	ErrNotReady = errors.New("vector store not ready")

	// ErrDatabase indicates a general database error occurred.
	// This is a catch-all for unexpected database failures.
	ErrDatabase = errors.New("database error")
)
