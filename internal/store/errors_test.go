// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Orch-Mind Contributors

package store_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/orch-mind/vecmem/internal/store"
	vmerr "github.com/orch-mind/vecmem/pkg/errors"
)

// TestSentinels_Wrapped verifies sentinels survive coded wrapping.
func TestSentinels_Wrapped(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{"invalid input", vmerr.Wrap(store.ErrInvalidInput, vmerr.CodeStoreVectorSaveInvalid, "record has no id"), store.ErrInvalidInput},
		{"not ready", vmerr.Wrap(fmt.Errorf("%w: disk gone", store.ErrNotReady), vmerr.CodeStoreNotReady, "init"), store.ErrNotReady},
		{"database", fmt.Errorf("query: %w", store.ErrDatabase), store.ErrDatabase},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, errors.Is(tt.err, tt.sentinel))
		})
	}
}

// TestSentinels_Distinct verifies sentinels do not match each other.
func TestSentinels_Distinct(t *testing.T) {
	all := []error{store.ErrInvalidInput, store.ErrNotReady, store.ErrDatabase}
	for i, a := range all {
		for j, b := range all {
			if i != j {
				assert.False(t, errors.Is(a, b), "%v should not match %v", a, b)
			}
		}
	}
}
