// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Orch-Mind Contributors

// Package embedding cleans and inspects raw embedding vectors before they
// reach the vector store.
package embedding

import (
	"fmt"
	"math"
	"strings"

	vmerr "github.com/orch-mind/vecmem/pkg/errors"
)

const (
	// DefaultDimensions matches the 768-wide sentence embedding models
	// the memory layer is fed with.
	DefaultDimensions = 768

	// ZeroTolerance is the per-value magnitude under which a vector counts as zero.
	ZeroTolerance = 1e-10

	// SparseTolerance is the magnitude under which a value counts toward sparsity.
	SparseTolerance = 1e-6

	outOfRangeRatio = 0.10
	minMagnitude    = 0.1
	maxMagnitude    = 10.0
)

// Options controls how ValidateAndClean repairs a vector.
type Options struct {
	ExpectedDimensions  int
	NormalizeDimensions bool
	CheckRange          bool
	MinValue            float32
	MaxValue            float32
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		ExpectedDimensions:  DefaultDimensions,
		NormalizeDimensions: true,
		CheckRange:          true,
		MinValue:            -2.0,
		MaxValue:            2.0,
	}
}

// Result is the outcome of ValidateAndClean. Cleaned is nil when Valid is false.
type Result struct {
	Valid    bool
	Cleaned  []float32
	Errors   []string
	Warnings []string
}

// Err returns the hard validation failures as one error, or nil when the
// vector is valid.
func (r Result) Err() error {
	if r.Valid {
		return nil
	}
	msg := strings.Join(r.Errors, "; ")
	if msg == "" {
		msg = "embedding rejected"
	}
	return vmerr.New(vmerr.CodeEmbeddingValidateInvalid, msg)
}

// Validator applies Options to incoming embeddings.
type Validator struct {
	opts Options
}

// NewValidator returns a Validator. A non-positive ExpectedDimensions
// falls back to DefaultDimensions; an inverted range is swapped.
func NewValidator(opts Options) *Validator {
	if opts.ExpectedDimensions <= 0 {
		opts.ExpectedDimensions = DefaultDimensions
	}
	if opts.MinValue > opts.MaxValue {
		opts.MinValue, opts.MaxValue = opts.MaxValue, opts.MinValue
	}
	return &Validator{opts: opts}
}

// Options returns the validator configuration.
func (v *Validator) Options() Options {
	return v.opts
}

// ValidateAndClean repairs values into a vector of ExpectedDimensions finite
// floats. The input slice is never modified.
func (v *Validator) ValidateAndClean(values []float32) Result {
	var res Result

	if values == nil {
		res.Errors = append(res.Errors, "embedding is not a sequence")
		return res
	}
	if len(values) == 0 {
		res.Errors = append(res.Errors, "embedding is empty")
		return res
	}

	cleaned := make([]float32, len(values))
	replaced := 0
	for i, val := range values {
		if !isFinite(val) {
			replaced++
			continue
		}
		cleaned[i] = val
	}
	if replaced > 0 {
		res.Warnings = append(res.Warnings, fmt.Sprintf("replaced %d non-finite values with 0", replaced))
	}

	if v.opts.CheckRange {
		outside := 0
		for _, val := range cleaned {
			if val < v.opts.MinValue || val > v.opts.MaxValue {
				outside++
			}
		}
		if float64(outside) > float64(len(cleaned))*outOfRangeRatio {
			res.Warnings = append(res.Warnings, fmt.Sprintf(
				"%d of %d values outside [%g, %g]", outside, len(cleaned), v.opts.MinValue, v.opts.MaxValue))
		}
	}

	want := v.opts.ExpectedDimensions
	if len(cleaned) != want {
		if !v.opts.NormalizeDimensions {
			res.Errors = append(res.Errors, fmt.Sprintf(
				"dimension mismatch: got %d, want %d", len(cleaned), want))
			return res
		}
		got := len(cleaned)
		cleaned = resize(cleaned, want)
		if got < want {
			res.Warnings = append(res.Warnings, fmt.Sprintf("padded from %d to %d dimensions", got, want))
		} else {
			res.Warnings = append(res.Warnings, fmt.Sprintf("truncated from %d to %d dimensions", got, want))
		}
	}

	if IsZeroVector(cleaned, ZeroTolerance) {
		res.Warnings = append(res.Warnings, "zero vector: upstream embedding likely failed")
	}

	mag := Magnitude(cleaned)
	switch {
	case mag < minMagnitude:
		res.Warnings = append(res.Warnings, fmt.Sprintf("low magnitude %.4g, vector may be degenerate", mag))
	case mag > maxMagnitude:
		res.Warnings = append(res.Warnings, fmt.Sprintf("high magnitude %.4g, vector may be unnormalized", mag))
	}

	res.Valid = true
	res.Cleaned = cleaned
	return res
}

func resize(values []float32, n int) []float32 {
	if len(values) >= n {
		return values[:n:n]
	}
	out := make([]float32, n)
	copy(out, values)
	return out
}

func isFinite(f float32) bool {
	x := float64(f)
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
