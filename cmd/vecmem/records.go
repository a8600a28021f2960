// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Orch-Mind Contributors

package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/orch-mind/vecmem/internal/embedding"
	"github.com/orch-mind/vecmem/internal/store"
	vmerr "github.com/orch-mind/vecmem/pkg/errors"
)

// inputRecord is a loosely typed record as found in user-supplied files.
// Embedding stays untyped so null entries survive decoding and are repaired
// by the store's validator.
type inputRecord struct {
	ID        string         `json:"id" yaml:"id"`
	Embedding any            `json:"embedding" yaml:"embedding"`
	Metadata  map[string]any `json:"metadata" yaml:"metadata"`
	CreatedAt time.Time      `json:"created_at" yaml:"created_at"`
}

// readRecords decodes a YAML list, a JSON array, or JSON lines, choosing by
// file extension and then by the first significant byte.
func readRecords(name string, r io.Reader) ([]store.VectorRecord, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, vmerr.Wrap(err, vmerr.CodeCLIInputInvalid, "reading records", vmerr.FieldPath(name))
	}

	var raw []inputRecord
	switch ext := strings.ToLower(filepath.Ext(name)); {
	case ext == ".yaml" || ext == ".yml":
		err = yaml.Unmarshal(data, &raw)
	case bytes.HasPrefix(bytes.TrimSpace(data), []byte("[")):
		err = json.Unmarshal(data, &raw)
	default:
		raw, err = readJSONLines(data)
	}
	if err != nil {
		return nil, vmerr.Wrap(err, vmerr.CodeCLIInputInvalid, "decoding records", vmerr.FieldPath(name))
	}

	records := make([]store.VectorRecord, 0, len(raw))
	for i, in := range raw {
		vec, ok := embedding.Coerce(in.Embedding)
		if !ok && in.Embedding != nil {
			return nil, vmerr.Errorf(vmerr.CodeCLIInputInvalid, "record %d: embedding is not a list of numbers", i+1)
		}
		id := in.ID
		if id == "" {
			id = uuid.NewString()
		}
		records = append(records, store.VectorRecord{
			ID:        id,
			Embedding: vec,
			Metadata:  in.Metadata,
			CreatedAt: in.CreatedAt,
		})
	}
	return records, nil
}

func readJSONLines(data []byte) ([]inputRecord, error) {
	var out []inputRecord
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := bytes.TrimSpace(sc.Bytes())
		if len(text) == 0 {
			continue
		}
		var rec inputRecord
		if err := json.Unmarshal(text, &rec); err != nil {
			return nil, vmerr.Wrapf(err, vmerr.CodeCLIInputInvalid, "line %d", line)
		}
		out = append(out, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// parseEmbedding reads a vector given inline as "0.1,0.2" or as a JSON array.
func parseEmbedding(s string) ([]float32, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "[") {
		var v any
		if err := json.Unmarshal([]byte(s), &v); err != nil {
			return nil, vmerr.Wrap(err, vmerr.CodeCLIInputInvalid, "parsing embedding")
		}
		vec, ok := embedding.Coerce(v)
		if !ok {
			return nil, vmerr.New(vmerr.CodeCLIInputInvalid, "embedding must be a list of numbers")
		}
		return vec, nil
	}

	parts := strings.Split(s, ",")
	vec := make([]float32, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		f, err := strconv.ParseFloat(p, 32)
		if err != nil {
			return nil, vmerr.Wrapf(err, vmerr.CodeCLIInputInvalid, "parsing embedding value %q", p)
		}
		vec = append(vec, float32(f))
	}
	if len(vec) == 0 {
		return nil, vmerr.New(vmerr.CodeCLIInputInvalid, "embedding is empty")
	}
	return vec, nil
}
