// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Orch-Mind Contributors

package main

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vmerr "github.com/orch-mind/vecmem/pkg/errors"
)

func TestReadRecords(t *testing.T) {
	records, err := readRecords("in.json", strings.NewReader(`[
		{"id":"a","embedding":[0.5,1,2],"metadata":{"type":"note"},"created_at":"2026-01-02T03:04:05Z"},
		{"embedding":[1,2,3]}
	]`))
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "a", records[0].ID)
	assert.Equal(t, []float32{0.5, 1, 2}, records[0].Embedding)
	assert.Equal(t, "note", records[0].Metadata["type"])
	assert.Equal(t, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), records[0].CreatedAt.UTC())

	_, err = uuid.Parse(records[1].ID)
	assert.NoError(t, err, "missing ids get a uuid")
	assert.True(t, records[1].CreatedAt.IsZero())
}

func TestReadRecords_NullEntriesKept(t *testing.T) {
	records, err := readRecords("in.jsonl", strings.NewReader(`{"id":"a","embedding":[1,null,3]}`))
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Len(t, records[0].Embedding, 3)
	assert.NotEqual(t, records[0].Embedding[1], records[0].Embedding[1], "null decodes to NaN for the validator to repair")
}

func TestReadRecords_Errors(t *testing.T) {
	tests := []struct {
		name  string
		file  string
		input string
	}{
		{"bad json array", "in.json", `[{"id":`},
		{"bad json line", "in.jsonl", "{\"id\":\"a\",\"embedding\":[1]}\nnot json\n"},
		{"bad yaml", "in.yaml", "- id: [unclosed"},
		{"embedding of strings", "in.json", `[{"id":"a","embedding":["x","y"]}]`},
		{"embedding not a list", "in.json", `[{"id":"a","embedding":"1,2,3"}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := readRecords(tt.file, strings.NewReader(tt.input))
			require.Error(t, err)
			assert.True(t, vmerr.HasCode(err, vmerr.CodeCLIInputInvalid))
		})
	}
}

func TestReadRecords_Empty(t *testing.T) {
	records, err := readRecords("stdin", strings.NewReader("\n\n"))
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestParseEmbedding(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []float32
		wantErr bool
	}{
		{"comma separated", "0.1, 0.2,0.3", []float32{0.1, 0.2, 0.3}, false},
		{"trailing comma", "1,2,", []float32{1, 2}, false},
		{"negative", "-1,0.5", []float32{-1, 0.5}, false},
		{"json array", "[1, 2, 3]", []float32{1, 2, 3}, false},
		{"empty", "", nil, true},
		{"only commas", ",,", nil, true},
		{"not a number", "1,two", nil, true},
		{"bad json", "[1, 2", nil, true},
		{"json strings", `["a"]`, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseEmbedding(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, vmerr.HasCode(err, vmerr.CodeCLIInputInvalid))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFilterValue(t *testing.T) {
	assert.Equal(t, 3.0, filterValue("3"))
	assert.Equal(t, true, filterValue("true"))
	assert.Equal(t, "todo", filterValue("todo"))
	assert.Equal(t, `"quoted"`, filterValue(`"quoted"`), "json strings stay raw")
	assert.Equal(t, "[1]", filterValue("[1]"))
}

func TestMetadataPreview(t *testing.T) {
	assert.Empty(t, metadataPreview(nil))
	assert.Equal(t, "a b c", metadataPreview(map[string]any{"content": "a\n  b\tc"}))
	assert.Equal(t, `{"type":"note"}`, metadataPreview(map[string]any{"type": "note"}))

	long := metadataPreview(map[string]any{"content": strings.Repeat("é", 100)})
	assert.Equal(t, previewWidth, len([]rune(long)))
	assert.True(t, strings.HasSuffix(long, "…"))
}
