// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Orch-Mind Contributors

package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/orch-mind/vecmem/internal/embedding"
	"github.com/orch-mind/vecmem/internal/store"
	"github.com/orch-mind/vecmem/internal/threshold"
	vmerr "github.com/orch-mind/vecmem/pkg/errors"
)

// Compile-time interface check.
var _ store.VectorStore = (*VectorStore)(nil)

// timestampLayout is fixed-width so created_at sorts lexically.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

type lifecycle int

const (
	stateUninitialized lifecycle = iota
	stateInitializing
	stateReady
	stateClosed
)

func (l lifecycle) String() string {
	switch l {
	case stateInitializing:
		return "initializing"
	case stateReady:
		return "ready"
	case stateClosed:
		return "closed"
	default:
		return "uninitialized"
	}
}

// VectorStore implements store.VectorStore on a single SQLite file.
type VectorStore struct {
	cfg        store.StorageConfig
	conn       *Conn
	queries    *QueryBuilder
	validator  *embedding.Validator
	thresholds *threshold.Calculator
	ladder     []strategy

	mu    sync.Mutex // guards state and connection (re)initialization
	state lifecycle
}

// NewVectorStore returns an unopened store for cfg. Unknown strategy names
// and unparsable memory limits are rejected here rather than at first use.
func NewVectorStore(cfg store.StorageConfig) (*VectorStore, error) {
	cfg = cfg.WithDefaults()

	if _, err := humanize.ParseBytes(cfg.MemoryLimit); err != nil {
		return nil, vmerr.Wrap(err, vmerr.CodeConfigValidateInvalidValue, "parsing memory limit",
			vmerr.Field("memory_limit", cfg.MemoryLimit))
	}

	s := &VectorStore{
		cfg: cfg,
		conn: NewConn(ConnConfig{
			Path:             filepath.Join(cfg.DataDir, cfg.File),
			Dimensions:       cfg.Dimensions,
			Threads:          cfg.Threads,
			MemoryLimit:      cfg.MemoryLimit,
			PreserveOrder:    cfg.PreserveOrder,
			DisableExtension: cfg.DisableExtension,
		}),
		queries:    NewQueryBuilder(vectorTable, cfg.SearchableFields),
		validator:  embedding.NewValidator(*cfg.Validation),
		thresholds: threshold.NewCalculator(*cfg.Thresholds),
	}

	ladder, err := s.buildStrategies(cfg.Strategies)
	if err != nil {
		return nil, err
	}
	s.ladder = ladder
	return s, nil
}

// Path returns the database file path.
func (s *VectorStore) Path() string { return s.conn.Path() }

// Initialize opens the database. It is a no-op when already open.
func (s *VectorStore) Initialize(ctx context.Context) error {
	_, err := s.ensure(ctx)
	return err
}

// ensure returns the live handle, opening it when absent.
func (s *VectorStore) ensure(ctx context.Context) (*sql.DB, error) {
	sess, err := s.ensureSession(ctx)
	return sess.db, err
}

// ensureSession is ensure plus the connection facts the query ladder needs.
func (s *VectorStore) ensureSession(ctx context.Context) (session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.ensureLocked(ctx)
	if err != nil {
		return session{}, err
	}
	return session{
		db:            db,
		extension:     s.conn.ExtensionAvailable(),
		preserveOrder: s.conn.PreserveOrder(),
	}, nil
}

// ensureLocked opens the connection if needed. s.mu must be held.
func (s *VectorStore) ensureLocked(ctx context.Context) (*sql.DB, error) {
	if s.state == stateReady && s.conn.IsConnected() {
		return s.conn.DB(), nil
	}
	if s.state != stateUninitialized {
		slog.Debug("re-initializing vector store", "from", s.state.String(), "path", s.conn.Path())
	}

	s.state = stateInitializing
	if err := s.conn.Initialize(ctx); err != nil {
		s.state = stateUninitialized
		return nil, vmerr.Wrap(fmt.Errorf("%w: %w", store.ErrNotReady, err), vmerr.CodeStoreNotReady,
			"initializing vector store", vmerr.FieldPath(s.conn.Path()))
	}
	s.state = stateReady
	return s.conn.DB(), nil
}

// Close releases the connection. A later operation reopens it.
func (s *VectorStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = stateClosed
	return s.conn.Close()
}

// IsReady reports whether a live connection is held.
func (s *VectorStore) IsReady() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == stateReady && s.conn.IsConnected()
}

// Status describes the store. It opens the database if needed.
func (s *VectorStore) Status(ctx context.Context) store.Status {
	count := s.GetVectorCount(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()
	return store.Status{
		Ready:              s.state == stateReady && s.conn.IsConnected(),
		Path:               s.conn.Path(),
		Dimensions:         s.cfg.Dimensions,
		Count:              count,
		ExtensionAvailable: s.conn.ExtensionAvailable(),
		Strategies:         append([]string(nil), s.cfg.Strategies...),
	}
}

type preparedRecord struct {
	id        string
	blob      []byte
	metadata  string
	createdAt string
}

// SaveVectors validates and upserts records. Invalid records are skipped
// with a warning. Batches are written sequentially, each inside its own
// transaction; a failed batch does not stop later ones.
func (s *VectorStore) SaveVectors(ctx context.Context, records []store.VectorRecord) (store.SaveResult, error) {
	prepared := make([]preparedRecord, 0, len(records))
	skipped := 0
	for i, rec := range records {
		p, err := s.prepare(rec)
		if err != nil {
			skipped++
			slog.Warn("skipping vector record", "index", i, "id", rec.ID, "error", err)
			continue
		}
		prepared = append(prepared, p)
	}

	res := store.SaveResult{Success: true, Skipped: skipped}
	if len(prepared) == 0 {
		return res, nil
	}

	db, err := s.ensure(ctx)
	if err != nil {
		res.Success = false
		res.Error = err.Error()
		return res, err
	}

	var lastErr error
	for start := 0; start < len(prepared); start += s.cfg.BatchSize {
		end := min(start+s.cfg.BatchSize, len(prepared))
		batch := prepared[start:end]
		if err := s.writeBatch(ctx, db, batch); err != nil {
			lastErr = vmerr.Wrap(dbErr(err), vmerr.CodeStoreVectorWriteFailure, "writing vector batch",
				vmerr.FieldBatch(start/s.cfg.BatchSize))
			slog.Error("vector batch failed", "batch", start/s.cfg.BatchSize, "size", len(batch), "error", err)
			continue
		}
		res.Saved += len(batch)
	}

	if lastErr != nil {
		res.Success = false
		res.Error = lastErr.Error()
		return res, lastErr
	}
	slog.Debug("saved vectors", "saved", res.Saved, "skipped", res.Skipped)
	return res, nil
}

func (s *VectorStore) prepare(rec store.VectorRecord) (preparedRecord, error) {
	if strings.TrimSpace(rec.ID) == "" {
		return preparedRecord{}, vmerr.Wrap(store.ErrInvalidInput, vmerr.CodeStoreVectorSaveInvalid, "record has no id")
	}

	res := s.validator.ValidateAndClean(rec.Embedding)
	if !res.Valid {
		return preparedRecord{}, vmerr.Wrap(fmt.Errorf("%w: %w", store.ErrInvalidInput, res.Err()),
			vmerr.CodeStoreVectorSaveInvalid, "validating embedding", vmerr.FieldVectorID(rec.ID))
	}
	for _, w := range res.Warnings {
		slog.Debug("embedding cleaned", "id", rec.ID, "warning", w)
	}

	blob, err := encodeEmbedding(res.Cleaned)
	if err != nil {
		return preparedRecord{}, vmerr.Wrap(err, vmerr.CodeStoreVectorSaveInvalid, "serializing embedding",
			vmerr.FieldVectorID(rec.ID))
	}

	meta := "{}"
	if len(rec.Metadata) > 0 {
		b, err := json.Marshal(rec.Metadata)
		if err != nil {
			return preparedRecord{}, vmerr.Wrap(err, vmerr.CodeStoreVectorSaveInvalid, "marshalling metadata",
				vmerr.FieldVectorID(rec.ID))
		}
		meta = string(b)
	}

	created := rec.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}

	return preparedRecord{
		id:        rec.ID,
		blob:      blob,
		metadata:  meta,
		createdAt: created.UTC().Format(timestampLayout),
	}, nil
}

func (s *VectorStore) writeBatch(ctx context.Context, db *sql.DB, batch []preparedRecord) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, p := range batch {
		del := s.queries.DeleteByID(p.id)
		if _, err := tx.ExecContext(ctx, del.SQL, del.Args...); err != nil {
			return fmt.Errorf("deleting existing vector %s: %w", p.id, err)
		}
		ins := s.queries.Insert(p.id, p.blob, p.metadata, p.createdAt)
		if _, err := tx.ExecContext(ctx, ins.SQL, ins.Args...); err != nil {
			return fmt.Errorf("inserting vector %s: %w", p.id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing vector batch: %w", err)
	}
	return nil
}

// QueryVectors returns the records closest to queryEmbedding. It never
// fails: an invalid embedding or an unavailable database gives an empty
// result, and each strategy that errors or finds nothing hands over to the
// next one.
func (s *VectorStore) QueryVectors(ctx context.Context, queryEmbedding []float32, opts store.QueryOptions) store.QueryResult {
	res := s.validator.ValidateAndClean(queryEmbedding)
	if !res.Valid {
		err := vmerr.Wrap(res.Err(), vmerr.CodeStoreVectorQueryInvalid, "validating query embedding")
		slog.Warn("rejecting query embedding", "error", err)
		return store.QueryResult{Matches: []store.Match{}}
	}

	topK := opts.TopK
	if topK <= 0 {
		topK = s.cfg.TopK
	}

	decision := s.thresholds.Explain(threshold.Context{
		Keywords:  opts.Keywords,
		Filters:   opts.Filters,
		TopK:      topK,
		Requested: opts.Threshold,
	})
	cutoff := decision.Threshold
	if !decision.Explicit {
		cutoff = s.thresholds.Clamp(cutoff)
	}
	out := store.QueryResult{Matches: []store.Match{}, Threshold: cutoff}

	blob, err := encodeEmbedding(res.Cleaned)
	if err != nil {
		slog.Warn("serializing query embedding", "error", err)
		return out
	}

	sess, err := s.ensureSession(ctx)
	if err != nil {
		slog.Warn("vector query skipped, store unavailable", "error", err)
		return out
	}

	slog.Debug("querying vectors",
		"top_k", topK, "threshold", cutoff, "context", decision.Context, "concept", decision.Concept)

	matches, name := runStrategies(ctx, sess, s.ladder, SearchParams{
		Embedding: blob,
		Filters:   opts.Filters,
		Keywords:  opts.Keywords,
		Threshold: cutoff,
		TopK:      topK,
	})
	if name == "" {
		slog.Debug("every query strategy came back empty")
		return out
	}
	out.Matches = matches
	out.Strategy = name
	return out
}

// GetVectorCount returns the number of stored records, or 0 when the
// count cannot be taken.
func (s *VectorStore) GetVectorCount(ctx context.Context) int {
	db, err := s.ensure(ctx)
	if err != nil {
		slog.Debug("vector count unavailable", "error", err)
		return 0
	}
	n, err := s.count(ctx, db)
	if err != nil {
		slog.Warn("counting vectors", "error", err)
		return 0
	}
	return n
}

func (s *VectorStore) count(ctx context.Context, db *sql.DB) (int, error) {
	stmt := s.queries.Count()
	var n int
	if err := db.QueryRowContext(ctx, stmt.SQL, stmt.Args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// CheckExistingIDs returns the subset of ids already stored, in lookup order.
// An empty input returns immediately without touching the database.
func (s *VectorStore) CheckExistingIDs(ctx context.Context, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return []string{}, nil
	}

	db, err := s.ensure(ctx)
	if err != nil {
		return nil, err
	}

	found := make([]string, 0, len(ids))
	for start := 0; start < len(ids); start += s.cfg.ExistsBatchSize {
		end := min(start+s.cfg.ExistsBatchSize, len(ids))
		stmt := s.queries.ExistsIn(ids[start:end])

		batch, err := collectIDs(ctx, db, stmt)
		if err != nil {
			return nil, vmerr.Wrap(dbErr(err), vmerr.CodeStoreVectorReadFailure, "checking existing ids",
				vmerr.FieldBatch(start/s.cfg.ExistsBatchSize))
		}
		found = append(found, batch...)
	}
	return found, nil
}

func collectIDs(ctx context.Context, db *sql.DB, stmt Statement) ([]string, error) {
	rows, err := db.QueryContext(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// DeleteAllVectors removes every record.
func (s *VectorStore) DeleteAllVectors(ctx context.Context) error {
	db, err := s.ensure(ctx)
	if err != nil {
		return err
	}

	n, err := s.count(ctx, db)
	if err != nil {
		slog.Warn("counting vectors before delete", "error", err)
	}

	stmt := s.queries.DeleteAll()
	if _, err := db.ExecContext(ctx, stmt.SQL, stmt.Args...); err != nil {
		return vmerr.Wrap(dbErr(err), vmerr.CodeStoreVectorWriteFailure, "deleting all vectors")
	}
	slog.Info("deleted all vectors", "count", n, "path", s.conn.Path())
	return nil
}

// Scan calls fn for every stored record, oldest first. It stops at the
// first error fn returns.
func (s *VectorStore) Scan(ctx context.Context, fn func(store.VectorRecord) error) error {
	db, err := s.ensure(ctx)
	if err != nil {
		return err
	}

	stmt := s.queries.SelectAll()
	rows, err := db.QueryContext(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return vmerr.Wrap(dbErr(err), vmerr.CodeStoreVectorReadFailure, "scanning vectors")
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			rec       store.VectorRecord
			blob      []byte
			rawMeta   sql.NullString
			createdAt sql.NullString
		)
		if err := rows.Scan(&rec.ID, &blob, &rawMeta, &createdAt); err != nil {
			return vmerr.Wrap(dbErr(err), vmerr.CodeStoreVectorReadFailure, "scanning vector row")
		}
		if rec.Embedding, err = decodeEmbedding(blob); err != nil {
			return vmerr.Wrap(dbErr(err), vmerr.CodeStoreVectorReadFailure, "decoding embedding", vmerr.FieldVectorID(rec.ID))
		}
		if rawMeta.Valid && rawMeta.String != "" && rawMeta.String != "{}" {
			if err := json.Unmarshal([]byte(rawMeta.String), &rec.Metadata); err != nil {
				slog.Warn("unreadable metadata on record", "id", rec.ID, "error", err)
			}
		}
		rec.CreatedAt = parseTimestamp(createdAt.String)

		if err := fn(rec); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return vmerr.Wrap(dbErr(err), vmerr.CodeStoreVectorReadFailure, "iterating vectors")
	}
	return nil
}

// dbErr marks err as a database failure for errors.Is(err, store.ErrDatabase).
func dbErr(err error) error {
	return fmt.Errorf("%w: %w", store.ErrDatabase, err)
}

// parseTimestamp accepts the values this package writes and the
// "YYYY-MM-DD HH:MM:SS" form SQLite's CURRENT_TIMESTAMP default produces.
func parseTimestamp(s string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, time.DateTime} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// StoreVector saves one record and fails if it was not written.
func (s *VectorStore) StoreVector(ctx context.Context, id string, vec []float32, metadata map[string]any) error {
	res, err := s.SaveVectors(ctx, []store.VectorRecord{{ID: id, Embedding: vec, Metadata: metadata}})
	if err != nil {
		return err
	}
	if res.Saved == 0 {
		return vmerr.Wrap(store.ErrInvalidInput, vmerr.CodeStoreVectorSaveInvalid, "vector rejected by validation",
			vmerr.FieldVectorID(id))
	}
	return nil
}

// FindSimilarVectors is QueryVectors with positional arguments. A negative
// cutoff lets the threshold calculator decide.
func (s *VectorStore) FindSimilarVectors(ctx context.Context, vec []float32, limit int, cutoff float64,
	keywords []string, filters map[string]any,
) []store.Match {
	opts := store.QueryOptions{TopK: limit, Keywords: keywords, Filters: filters}
	if cutoff >= 0 {
		opts.Threshold = &cutoff
	}
	return s.QueryVectors(ctx, vec, opts).Matches
}
