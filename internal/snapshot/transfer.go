// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Orch-Mind Contributors

package snapshot

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/orch-mind/vecmem/internal/store"
	vmerr "github.com/orch-mind/vecmem/pkg/errors"
)

// Source is the subset of store.VectorStore that Export reads from.
type Source interface {
	Scan(ctx context.Context, fn func(store.VectorRecord) error) error
}

// Sink is the subset of store.VectorStore that Import writes to.
type Sink interface {
	SaveVectors(ctx context.Context, records []store.VectorRecord) (store.SaveResult, error)
}

// Export writes every record of src to w and returns how many were written.
func Export(ctx context.Context, src Source, w io.Writer, dims int, opts ...WriterOption) (int, error) {
	sw, err := NewWriter(w, dims, opts...)
	if err != nil {
		return 0, err
	}

	scanErr := src.Scan(ctx, func(rec store.VectorRecord) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return sw.Write(rec)
	})
	closeErr := sw.Close()
	if scanErr != nil {
		return sw.Count(), scanErr
	}
	return sw.Count(), closeErr
}

// ImportResult totals an Import run.
type ImportResult struct {
	Read    int `json:"read"`
	Saved   int `json:"saved"`
	Skipped int `json:"skipped"`
}

// Import reads r and saves its records through dst in batches of batchSize.
// Records go through the store's normal validation, so a snapshot taken at
// one dimensionality can be loaded into a store configured for another.
func Import(ctx context.Context, dst Sink, r io.Reader, batchSize int) (ImportResult, error) {
	var res ImportResult
	if batchSize <= 0 {
		batchSize = store.DefaultBatchSize
	}

	sr, err := NewReader(r)
	if err != nil {
		return res, err
	}
	defer sr.Close()

	slog.Debug("importing snapshot", "dimensions", sr.Header().Dimensions, "created_at", sr.Header().CreatedAt)

	batch := make([]store.VectorRecord, 0, batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		saved, err := dst.SaveVectors(ctx, batch)
		res.Saved += saved.Saved
		res.Skipped += saved.Skipped
		batch = batch[:0]
		return err
	}

	for {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		rec, err := sr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if errors.Is(err, ErrMissingID) {
				slog.Warn("skipping snapshot record without id", "line", vmerr.FieldsOf(err)["line"])
				res.Read++
				res.Skipped++
				continue
			}
			return res, err
		}
		res.Read++
		batch = append(batch, rec)
		if len(batch) == batchSize {
			if err := flush(); err != nil {
				return res, err
			}
		}
	}

	if err := flush(); err != nil {
		return res, err
	}
	return res, nil
}
