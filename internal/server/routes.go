// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Orch-Mind Contributors

package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/orch-mind/vecmem/internal/store"
	vmerr "github.com/orch-mind/vecmem/pkg/errors"
)

func (s *Server) registerRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "store-status",
		Method:      http.MethodGet,
		Path:        "/api/v1/status",
		Summary:     "Vector store status",
		Tags:        []string{"system"},
	}, s.handleStatus)

	huma.Register(s.api, huma.Operation{
		OperationID: "save-vectors",
		Method:      http.MethodPost,
		Path:        "/api/v1/vectors",
		Summary:     "Save or replace vectors",
		Description: "Invalid records are skipped and counted; valid ones are upserted by id. " +
			"When a batch fails the response is a 500 carrying the same result body, " +
			"with success false and the counts of what was written.",
		Tags:        []string{"vectors"},
	}, s.handleSaveVectors)

	huma.Register(s.api, huma.Operation{
		OperationID: "query-vectors",
		Method:      http.MethodPost,
		Path:        "/api/v1/vectors/query",
		Summary:     "Similarity search",
		Description: "An invalid embedding yields an empty match list rather than an error.",
		Tags:        []string{"vectors"},
	}, s.handleQueryVectors)

	huma.Register(s.api, huma.Operation{
		OperationID: "count-vectors",
		Method:      http.MethodGet,
		Path:        "/api/v1/vectors/count",
		Summary:     "Number of stored vectors",
		Tags:        []string{"vectors"},
	}, s.handleCountVectors)

	huma.Register(s.api, huma.Operation{
		OperationID: "check-existing-ids",
		Method:      http.MethodPost,
		Path:        "/api/v1/vectors/exists",
		Summary:     "Report which ids are already stored",
		Tags:        []string{"vectors"},
	}, s.handleCheckExisting)

	huma.Register(s.api, huma.Operation{
		OperationID: "delete-all-vectors",
		Method:      http.MethodDelete,
		Path:        "/api/v1/vectors",
		Summary:     "Delete every stored vector",
		Tags:        []string{"vectors"},
	}, s.handleDeleteAll)
}

// --- Request/Response types for huma ---

// VectorInput is one record of a save request.
type VectorInput struct {
	ID        string         `json:"id" doc:"Record id; records without one are skipped"`
	Embedding []float32      `json:"embedding" doc:"Embedding values"`
	Metadata  map[string]any `json:"metadata,omitempty" doc:"Opaque JSON metadata"`
}

type statusOutput struct {
	Body store.Status
}

type saveVectorsInput struct {
	Body struct {
		Records []VectorInput `json:"records" maxItems:"10000" doc:"Records to upsert"`
	}
}
type saveVectorsOutput struct {
	Status int
	Body   store.SaveResult
}

type queryVectorsInput struct {
	Body struct {
		Embedding []float32      `json:"embedding" doc:"Query embedding"`
		TopK      int            `json:"top_k,omitempty" minimum:"0" maximum:"1000" doc:"Maximum matches; 0 uses the configured default"`
		Keywords  []string       `json:"keywords,omitempty" doc:"Terms matched against searchable metadata fields"`
		Filters   map[string]any `json:"filters,omitempty" doc:"Metadata field equality filters"`
		Threshold *float64       `json:"threshold,omitempty" minimum:"0" maximum:"1" doc:"Similarity cutoff; omitted lets the server choose"`
	}
}
type queryVectorsOutput struct {
	Body store.QueryResult
}

type countVectorsOutput struct {
	Body struct {
		Count int `json:"count" doc:"Stored vectors; 0 when the store is unavailable"`
	}
}

type checkExistingInput struct {
	Body struct {
		IDs []string `json:"ids" doc:"Candidate ids"`
	}
}
type checkExistingOutput struct {
	Body struct {
		Existing []string `json:"existing" doc:"Subset of ids already stored"`
	}
}

type deleteAllOutput struct {
	Body struct {
		Deleted int `json:"deleted" doc:"Vectors removed"`
	}
}

// --- Handlers ---

func (s *Server) handleStatus(ctx context.Context, _ *struct{}) (*statusOutput, error) {
	return &statusOutput{Body: s.vectors.Status(ctx)}, nil
}

func (s *Server) handleSaveVectors(ctx context.Context, input *saveVectorsInput) (*saveVectorsOutput, error) {
	records := make([]store.VectorRecord, len(input.Body.Records))
	for i, r := range input.Body.Records {
		records[i] = store.VectorRecord{ID: r.ID, Embedding: r.Embedding, Metadata: r.Metadata}
	}

	res, err := s.vectors.SaveVectors(ctx, records)
	switch {
	case err == nil:
		return &saveVectorsOutput{Status: http.StatusOK, Body: res}, nil
	case errors.Is(err, store.ErrDatabase):
		// Earlier batches may have been written; report them with the failure.
		slog.Error("saving vectors", "error", err, "code", vmerr.CodeOf(err), "saved", res.Saved)
		return &saveVectorsOutput{Status: http.StatusInternalServerError, Body: res}, nil
	default:
		return nil, storeError("saving vectors", err)
	}
}

func (s *Server) handleQueryVectors(ctx context.Context, input *queryVectorsInput) (*queryVectorsOutput, error) {
	opts := store.QueryOptions{
		TopK:      input.Body.TopK,
		Keywords:  input.Body.Keywords,
		Filters:   input.Body.Filters,
		Threshold: input.Body.Threshold,
	}
	return &queryVectorsOutput{Body: s.vectors.QueryVectors(ctx, input.Body.Embedding, opts)}, nil
}

func (s *Server) handleCountVectors(ctx context.Context, _ *struct{}) (*countVectorsOutput, error) {
	out := &countVectorsOutput{}
	out.Body.Count = s.vectors.GetVectorCount(ctx)
	return out, nil
}

func (s *Server) handleCheckExisting(ctx context.Context, input *checkExistingInput) (*checkExistingOutput, error) {
	existing, err := s.vectors.CheckExistingIDs(ctx, input.Body.IDs)
	if err != nil {
		return nil, storeError("checking ids", err)
	}
	out := &checkExistingOutput{}
	out.Body.Existing = existing
	return out, nil
}

func (s *Server) handleDeleteAll(ctx context.Context, _ *struct{}) (*deleteAllOutput, error) {
	n := s.vectors.GetVectorCount(ctx)
	if err := s.vectors.DeleteAllVectors(ctx); err != nil {
		return nil, storeError("deleting vectors", err)
	}
	out := &deleteAllOutput{}
	out.Body.Deleted = n
	return out, nil
}

// storeError maps a store failure onto an HTTP problem. Internal details
// are logged, not returned.
func storeError(msg string, err error) error {
	status := vmerr.HTTPStatus(err)
	switch {
	case errors.Is(err, store.ErrNotReady):
		status = http.StatusServiceUnavailable
	case errors.Is(err, store.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, store.ErrDatabase):
		status = http.StatusInternalServerError
	}

	if status >= http.StatusInternalServerError {
		slog.Error(msg, "error", err, "code", vmerr.CodeOf(err))
		return huma.NewError(status, msg)
	}
	return huma.NewError(status, msg, err)
}
