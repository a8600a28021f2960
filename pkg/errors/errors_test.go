// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Orch-Mind Contributors

package errors_test

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	vmerr "github.com/orch-mind/vecmem/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// New / Errorf
// ---------------------------------------------------------------------------

func TestNewIncludesCodeAndFields(t *testing.T) {
	err := vmerr.New(
		vmerr.CodeStoreVectorSaveInvalid,
		"embedding rejected",
		vmerr.FieldVectorID("vec-123"),
		vmerr.Field("dimensions", 768),
	)

	require.Error(t, err)
	assert.Equal(t, vmerr.CodeStoreVectorSaveInvalid, vmerr.CodeOf(err))
	assert.True(t, vmerr.HasCode(err, vmerr.CodeStoreVectorSaveInvalid))

	fields := vmerr.FieldsOf(err)
	assert.Equal(t, "vec-123", fields["vector_id"])
	assert.Equal(t, 768, fields["dimensions"])
}

func TestErrorfWrapsInnerError(t *testing.T) {
	inner := stderrors.New("disk full")
	err := vmerr.Errorf(vmerr.CodeStoreVectorWriteFailure, "write failed: %w", inner)
	require.Error(t, err)
	assert.ErrorIs(t, err, inner)
	assert.Equal(t, vmerr.CodeStoreVectorWriteFailure, vmerr.CodeOf(err))
	assert.Contains(t, err.Error(), "write failed")
}

// ---------------------------------------------------------------------------
// Wrap / Wrapf / With
// ---------------------------------------------------------------------------

func TestWrapPreservesWrappedErrorAndCode(t *testing.T) {
	root := stderrors.New("no such table")
	err := vmerr.Wrap(root, vmerr.CodeStoreSchemaFailure, "creating vectors table",
		vmerr.FieldPath("/tmp/vectors.db"),
	)

	require.Error(t, err)
	assert.ErrorIs(t, err, root)
	assert.Equal(t, vmerr.CodeStoreSchemaFailure, vmerr.CodeOf(err))
	assert.True(t, vmerr.IsFailure(err))
	assert.Equal(t, "/tmp/vectors.db", vmerr.FieldsOf(err)["path"])
}

func TestWrapNilReturnsNil(t *testing.T) {
	assert.NoError(t, vmerr.Wrap(nil, vmerr.CodeServerInternalFailure, "ignored"))
	assert.NoError(t, vmerr.Wrapf(nil, vmerr.CodeServerInternalFailure, "ignored %s", "arg"))
	assert.NoError(t, vmerr.With(nil, vmerr.FieldStrategy("cosine")))
}

func TestWithAddsContextWithoutChangingCode(t *testing.T) {
	base := vmerr.New(vmerr.CodeStoreVectorReadFailure, "scan failed")
	withCtx := vmerr.With(base, vmerr.FieldStrategy("distance"))

	require.Error(t, withCtx)
	assert.Equal(t, vmerr.CodeStoreVectorReadFailure, vmerr.CodeOf(withCtx))
	assert.Equal(t, "distance", vmerr.FieldsOf(withCtx)["strategy"])
}

func TestWithOnPlainErrorDefaultsToInternalCode(t *testing.T) {
	enriched := vmerr.With(stderrors.New("something broke"), vmerr.FieldBatch(3))

	require.Error(t, enriched)
	assert.Equal(t, vmerr.CodeServerInternalFailure, vmerr.CodeOf(enriched))
	assert.Equal(t, 3, vmerr.FieldsOf(enriched)["batch"])
}

func TestFieldsWithEmptyKeyAreIgnored(t *testing.T) {
	err := vmerr.New(vmerr.CodeStoreVectorReadFailure, "oops",
		vmerr.Field("", "dropped"),
		vmerr.FieldVectorID("kept"),
	)
	fields := vmerr.FieldsOf(err)
	assert.Equal(t, "kept", fields["vector_id"])
	assert.NotContains(t, fields, "")
}

// ---------------------------------------------------------------------------
// CodeOf / HasCode
// ---------------------------------------------------------------------------

func TestHasCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code vmerr.Code
		want bool
	}{
		{
			name: "matching code",
			err:  vmerr.New(vmerr.CodeStoreNotReady, "closed"),
			code: vmerr.CodeStoreNotReady,
			want: true,
		},
		{
			name: "non-matching code",
			err:  vmerr.New(vmerr.CodeStoreNotReady, "closed"),
			code: vmerr.CodeStoreVectorReadFailure,
			want: false,
		},
		{
			name: "nil error",
			code: vmerr.CodeStoreNotReady,
			want: false,
		},
		{
			name: "plain error has no code",
			err:  stderrors.New("plain"),
			code: vmerr.CodeServerInternalFailure,
			want: false,
		},
		{
			name: "wrapped coded error returns innermost code",
			err: vmerr.Wrap(
				vmerr.New(vmerr.CodeStoreConnectionFailure, "inner"),
				vmerr.CodeServerInternalFailure, "outer",
			),
			code: vmerr.CodeStoreConnectionFailure,
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, vmerr.HasCode(tt.err, tt.code))
		})
	}
}

func TestCodeOfNilAndPlain(t *testing.T) {
	assert.Equal(t, vmerr.Code(""), vmerr.CodeOf(nil))
	assert.Equal(t, vmerr.Code(""), vmerr.CodeOf(stderrors.New("plain")))
	assert.Nil(t, vmerr.FieldsOf(nil))
	assert.Nil(t, vmerr.FieldsOf(stderrors.New("plain")))
}

func TestErrorIsWithWrappedChain(t *testing.T) {
	sentinel := stderrors.New("root cause")
	mid := fmt.Errorf("mid: %w", sentinel)
	outer := vmerr.Wrap(mid, vmerr.CodeServerInternalFailure, "handler")

	assert.ErrorIs(t, outer, sentinel)
}

// ---------------------------------------------------------------------------
// Classification helpers
// ---------------------------------------------------------------------------

func TestClassificationAndStatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		code   vmerr.Code
		status int
		check  func(error) bool
	}{
		{name: "save invalid", code: vmerr.CodeStoreVectorSaveInvalid, status: 400, check: vmerr.IsInvalidInput},
		{name: "query invalid", code: vmerr.CodeStoreVectorQueryInvalid, status: 400, check: vmerr.IsInvalidInput},
		{name: "embedding invalid", code: vmerr.CodeEmbeddingValidateInvalid, status: 400, check: vmerr.IsInvalidInput},
		{name: "config invalid value", code: vmerr.CodeConfigValidateInvalidValue, status: 400, check: vmerr.IsInvalidInput},
		{name: "snapshot invalid format", code: vmerr.CodeSnapshotRecordInvalid, status: 400, check: vmerr.IsInvalidInput},
		{name: "not ready", code: vmerr.CodeStoreNotReady, status: 503, check: vmerr.IsUnavailable},
		{name: "extension unavailable", code: vmerr.CodeStoreExtensionUnavailable, status: 503, check: vmerr.IsUnavailable},
		{name: "write failure", code: vmerr.CodeStoreVectorWriteFailure, status: 500, check: vmerr.IsFailure},
		{name: "internal", code: vmerr.CodeServerInternalFailure, status: 500, check: vmerr.IsFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := vmerr.New(tt.code, "boom")
			assert.Equal(t, tt.status, vmerr.HTTPStatus(err))
			assert.True(t, tt.check(err))
		})
	}
}

func TestClassificationOnNilAndPlainError(t *testing.T) {
	for _, err := range []error{nil, stderrors.New("plain")} {
		assert.False(t, vmerr.IsNotFound(err))
		assert.False(t, vmerr.IsInvalidInput(err))
		assert.False(t, vmerr.IsUnavailable(err))
		assert.False(t, vmerr.IsFailure(err))
		assert.Equal(t, http.StatusInternalServerError, vmerr.HTTPStatus(err))
	}
}

// ---------------------------------------------------------------------------
// Join
// ---------------------------------------------------------------------------

func TestJoinCombinesErrors(t *testing.T) {
	a := stderrors.New("first")
	b := stderrors.New("second")
	joined := vmerr.Join(a, b)

	require.Error(t, joined)
	assert.ErrorIs(t, joined, a)
	assert.ErrorIs(t, joined, b)
	assert.Equal(t, vmerr.CodeServerInternalFailure, vmerr.CodeOf(joined))
}

func TestJoinOfNothingIsNil(t *testing.T) {
	assert.NoError(t, vmerr.Join())
	assert.NoError(t, vmerr.Join(nil, nil))
}
