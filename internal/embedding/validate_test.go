// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Orch-Mind Contributors

package embedding_test

import (
	"math"
	"strings"
	"testing"

	"github.com/orch-mind/vecmem/internal/embedding"
	vmerr "github.com/orch-mind/vecmem/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newValidator(dims int) *embedding.Validator {
	opts := embedding.DefaultOptions()
	opts.ExpectedDimensions = dims
	return embedding.NewValidator(opts)
}

func nan() float32 { return float32(math.NaN()) }
func inf() float32 { return float32(math.Inf(1)) }

func TestValidateAndClean_RejectsNilAndEmpty(t *testing.T) {
	v := newValidator(3)

	res := v.ValidateAndClean(nil)
	assert.False(t, res.Valid)
	assert.Nil(t, res.Cleaned)
	assert.NotEmpty(t, res.Errors)

	res = v.ValidateAndClean([]float32{})
	assert.False(t, res.Valid)
	assert.Nil(t, res.Cleaned)
	assert.Contains(t, res.Errors[0], "empty")
}

func TestResultErr(t *testing.T) {
	v := newValidator(3)

	assert.NoError(t, v.ValidateAndClean([]float32{1, 0, 0}).Err())

	err := v.ValidateAndClean(nil).Err()
	require.Error(t, err)
	assert.True(t, vmerr.HasCode(err, vmerr.CodeEmbeddingValidateInvalid))
	assert.True(t, vmerr.IsInvalidInput(err))
}

func TestValidateAndClean_RepairsNonFinite(t *testing.T) {
	v := newValidator(4)

	res := v.ValidateAndClean([]float32{1.0, nan(), 3.0, inf()})
	require.True(t, res.Valid)
	assert.Equal(t, []float32{1.0, 0.0, 3.0, 0.0}, res.Cleaned)
	assert.Contains(t, res.Warnings[0], "non-finite")
}

func TestValidateAndClean_DoesNotMutateInput(t *testing.T) {
	v := newValidator(2)
	in := []float32{nan(), 1, 2}

	_ = v.ValidateAndClean(in)
	assert.True(t, math.IsNaN(float64(in[0])))
	assert.Len(t, in, 3)
}

func TestValidateAndClean_DimensionNormalization(t *testing.T) {
	tests := []struct {
		name string
		in   []float32
		dims int
		want []float32
		warn string
	}{
		{"pad", []float32{1, 2, 3}, 5, []float32{1, 2, 3, 0, 0}, "padded"},
		{"truncate", []float32{1, 2, 3, 4, 5}, 3, []float32{1, 2, 3}, "truncated"},
		{"exact", []float32{1, 2, 3}, 3, []float32{1, 2, 3}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := newValidator(tt.dims).ValidateAndClean(tt.in)
			require.True(t, res.Valid)
			assert.Equal(t, tt.want, res.Cleaned)
			if tt.warn != "" {
				assert.Condition(t, func() bool {
					for _, w := range res.Warnings {
						if strings.Contains(w, tt.warn) {
							return true
						}
					}
					return false
				}, "expected a %q warning, got %v", tt.warn, res.Warnings)
			}
		})
	}
}

func TestValidateAndClean_MismatchWithoutNormalizationFails(t *testing.T) {
	opts := embedding.DefaultOptions()
	opts.ExpectedDimensions = 4
	opts.NormalizeDimensions = false
	v := embedding.NewValidator(opts)

	res := v.ValidateAndClean([]float32{1, 2, 3})
	assert.False(t, res.Valid)
	assert.Nil(t, res.Cleaned)
	assert.Contains(t, res.Errors[0], "dimension mismatch")
}

func TestValidateAndClean_RangeWarning(t *testing.T) {
	v := newValidator(10)

	res := v.ValidateAndClean([]float32{5, 5, 0.1, 0.1, 0.1, 0.1, 0.1, 0.1, 0.1, 0.1})
	require.True(t, res.Valid)
	assert.True(t, hasWarning(res, "outside"))

	// exactly 10% out of range is tolerated
	res = v.ValidateAndClean([]float32{5, 0.1, 0.1, 0.1, 0.1, 0.1, 0.1, 0.1, 0.1, 0.1})
	require.True(t, res.Valid)
	assert.False(t, hasWarning(res, "outside"))
}

func TestValidateAndClean_ZeroVectorIsFlaggedNotRejected(t *testing.T) {
	v := newValidator(4)

	res := v.ValidateAndClean([]float32{1e-12, 1e-12, 1e-12, 1e-12})
	require.True(t, res.Valid)
	assert.True(t, hasWarning(res, "zero vector"))

	res = v.ValidateAndClean([]float32{0, 0.5, 0, 0})
	require.True(t, res.Valid)
	assert.False(t, hasWarning(res, "zero vector"))
}

func TestValidateAndClean_MagnitudeWarnings(t *testing.T) {
	v := newValidator(3)

	assert.True(t, hasWarning(v.ValidateAndClean([]float32{0.01, 0.01, 0.01}), "low magnitude"))

	opts := embedding.DefaultOptions()
	opts.ExpectedDimensions = 3
	opts.CheckRange = false
	loose := embedding.NewValidator(opts)
	assert.True(t, hasWarning(loose.ValidateAndClean([]float32{8, 8, 8}), "high magnitude"))
	assert.False(t, hasWarning(loose.ValidateAndClean([]float32{0.6, 0.8, 0}), "magnitude"))
}

func TestValidateAndClean_Idempotent(t *testing.T) {
	v := newValidator(5)
	inputs := [][]float32{
		{1, nan(), 3, inf()},
		{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7},
		{1e-12},
		{-3, 4, float32(math.Inf(-1)), 0, 9},
	}

	for _, in := range inputs {
		first := v.ValidateAndClean(in)
		require.True(t, first.Valid)
		second := v.ValidateAndClean(first.Cleaned)
		require.True(t, second.Valid)
		assert.Equal(t, first.Cleaned, second.Cleaned)
	}
}

func TestNewValidator_Defaults(t *testing.T) {
	v := embedding.NewValidator(embedding.Options{MinValue: 2, MaxValue: -2})
	opts := v.Options()
	assert.Equal(t, embedding.DefaultDimensions, opts.ExpectedDimensions)
	assert.Equal(t, float32(-2), opts.MinValue)
	assert.Equal(t, float32(2), opts.MaxValue)
}

func hasWarning(res embedding.Result, substr string) bool {
	for _, w := range res.Warnings {
		if strings.Contains(w, substr) {
			return true
		}
	}
	return false
}
