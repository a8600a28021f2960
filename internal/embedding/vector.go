// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Orch-Mind Contributors

package embedding

import (
	"encoding/json"
	"math"
)

// HasValidValues reports whether every value is finite.
func HasValidValues(values []float32) bool {
	for _, v := range values {
		if !isFinite(v) {
			return false
		}
	}
	return true
}

// IsZeroVector reports whether every value's magnitude is below tolerance.
// An empty vector is considered zero.
func IsZeroVector(values []float32, tolerance float64) bool {
	for _, v := range values {
		if math.Abs(float64(v)) >= tolerance {
			return false
		}
	}
	return true
}

// Magnitude returns the L2 norm.
func Magnitude(values []float32) float64 {
	var sum float64
	for _, v := range values {
		f := float64(v)
		sum += f * f
	}
	return math.Sqrt(sum)
}

// NormalizeToUnitLength returns a copy scaled to magnitude 1.
// A zero-magnitude vector is returned unchanged.
func NormalizeToUnitLength(values []float32) []float32 {
	out := make([]float32, len(values))
	copy(out, values)
	mag := Magnitude(values)
	if mag == 0 {
		return out
	}
	for i, v := range out {
		out[i] = float32(float64(v) / mag)
	}
	return out
}

// Stats summarizes a vector. Sparsity is a percentage.
type Stats struct {
	Mean      float64 `json:"mean"`
	Std       float64 `json:"std"`
	Min       float64 `json:"min"`
	Max       float64 `json:"max"`
	Magnitude float64 `json:"magnitude"`
	Sparsity  float64 `json:"sparsity"`
}

// GetStats computes Stats over values. The zero Stats is returned for an empty vector.
func GetStats(values []float32) Stats {
	if len(values) == 0 {
		return Stats{}
	}

	n := float64(len(values))
	st := Stats{Min: math.Inf(1), Max: math.Inf(-1)}
	sparse := 0
	var sum float64
	for _, v := range values {
		f := float64(v)
		sum += f
		st.Min = math.Min(st.Min, f)
		st.Max = math.Max(st.Max, f)
		if math.Abs(f) < SparseTolerance {
			sparse++
		}
	}
	st.Mean = sum / n

	var variance float64
	for _, v := range values {
		d := float64(v) - st.Mean
		variance += d * d
	}
	st.Std = math.Sqrt(variance / n)
	st.Magnitude = Magnitude(values)
	st.Sparsity = float64(sparse) / n * 100
	return st
}

// Coerce converts loosely typed input, such as decoded JSON, into a float32
// slice. It reports false when v is not a sequence of numbers.
func Coerce(v any) ([]float32, bool) {
	switch vals := v.(type) {
	case []float32:
		return vals, vals != nil
	case []float64:
		if vals == nil {
			return nil, false
		}
		out := make([]float32, len(vals))
		for i, f := range vals {
			out[i] = float32(f)
		}
		return out, true
	case []any:
		if vals == nil {
			return nil, false
		}
		out := make([]float32, len(vals))
		for i, item := range vals {
			f, ok := toFloat(item)
			if !ok {
				return nil, false
			}
			out[i] = f
		}
		return out, true
	default:
		return nil, false
	}
}

func toFloat(v any) (float32, bool) {
	switch n := v.(type) {
	case float64:
		return float32(n), true
	case float32:
		return n, true
	case int:
		return float32(n), true
	case int64:
		return float32(n), true
	case json.Number:
		f, err := n.Float64()
		return float32(f), err == nil
	case nil:
		// null elements in JSON arrays come from NaN/Infinity upstream.
		return float32(math.NaN()), true
	default:
		return 0, false
	}
}
