// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Orch-Mind Contributors

package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/dustin/go-humanize"

	vmerr "github.com/orch-mind/vecmem/pkg/errors"
)

const vectorTable = "vectors"

// ConnConfig configures a Conn.
type ConnConfig struct {
	Path             string
	Dimensions       int
	Threads          int
	MemoryLimit      string
	PreserveOrder    bool
	DisableExtension bool
}

// Conn owns the database handle and the vectors schema. It holds a single
// connection, so every statement issued through it is serialized.
type Conn struct {
	cfg           ConnConfig
	db            *sql.DB
	extension     bool
	preserveOrder bool
}

// NewConn returns an unopened Conn.
func NewConn(cfg ConnConfig) *Conn {
	return &Conn{cfg: cfg, preserveOrder: cfg.PreserveOrder}
}

// Path returns the database file path.
func (c *Conn) Path() string { return c.cfg.Path }

// DB returns the live handle, or nil when not connected.
func (c *Conn) DB() *sql.DB { return c.db }

// IsConnected reports whether Initialize succeeded and Close has not run since.
func (c *Conn) IsConnected() bool { return c.db != nil }

// ExtensionAvailable reports whether sqlite-vec functions answered the probe.
func (c *Conn) ExtensionAvailable() bool { return c.extension }

// PreserveOrder reports whether unscored reads keep insertion order.
func (c *Conn) PreserveOrder() bool { return c.preserveOrder }

// Initialize opens the database file, checks it answers, applies pragmas,
// probes the optional extension, and brings the schema up to date.
// It is a no-op when already connected.
func (c *Conn) Initialize(ctx context.Context) error {
	if c.db != nil {
		return nil
	}

	if dir := filepath.Dir(c.cfg.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return vmerr.Wrap(err, vmerr.CodeStoreConnectionFailure, "creating data directory", vmerr.FieldPath(dir))
		}
	}

	if !c.cfg.DisableExtension {
		loadExtension()
	}
	registerDriver()

	db, err := sql.Open(driverName, c.cfg.Path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return vmerr.Wrap(err, vmerr.CodeStoreConnectionFailure, "opening sqlite db", vmerr.FieldPath(c.cfg.Path))
	}
	db.SetMaxOpenConns(1)

	var one int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		_ = db.Close()
		return vmerr.Wrap(err, vmerr.CodeStoreConnectionFailure, "smoke-testing sqlite db", vmerr.FieldPath(c.cfg.Path))
	}
	c.db = db

	if err := c.ApplyConfiguration(ctx, c.cfg.Threads, c.cfg.MemoryLimit, c.cfg.PreserveOrder); err != nil {
		_ = c.Close()
		return err
	}

	c.probeExtension(ctx)

	if err := c.migrate(ctx); err != nil {
		_ = c.Close()
		return err
	}

	slog.Debug("vector database ready", "path", c.cfg.Path, "extension", c.extension)
	return nil
}

// ApplyConfiguration tunes the live connection. threads is capped at the
// CPU count; memoryLimit is a human-readable size such as "512MB".
func (c *Conn) ApplyConfiguration(ctx context.Context, threads int, memoryLimit string, preserveOrder bool) error {
	if c.db == nil {
		return vmerr.New(vmerr.CodeStoreNotReady, "applying configuration: not connected")
	}

	threads = max(1, min(threads, runtime.NumCPU()))

	pragmas := []string{
		fmt.Sprintf("PRAGMA threads = %d", threads),
		"PRAGMA synchronous = NORMAL",
	}
	if memoryLimit != "" {
		limit, err := humanize.ParseBytes(memoryLimit)
		if err != nil {
			return vmerr.Errorf(vmerr.CodeConfigValidateInvalidValue, "parsing memory limit %q: %w", memoryLimit, err)
		}
		pragmas = append(pragmas, fmt.Sprintf("PRAGMA soft_heap_limit = %d", limit))
	}

	for _, p := range pragmas {
		if _, err := c.db.ExecContext(ctx, p); err != nil {
			return vmerr.Wrap(err, vmerr.CodeStoreConnectionFailure, "applying pragma", vmerr.Field("pragma", p))
		}
	}
	c.preserveOrder = preserveOrder
	return nil
}

func (c *Conn) probeExtension(ctx context.Context) {
	c.extension = false
	if c.cfg.DisableExtension {
		return
	}
	var version string
	if err := c.db.QueryRowContext(ctx, "SELECT vec_version()").Scan(&version); err != nil {
		err = vmerr.Wrap(err, vmerr.CodeStoreExtensionUnavailable, "probing sqlite-vec", vmerr.FieldPath(c.cfg.Path))
		slog.Warn("sqlite-vec unavailable, distance strategy disabled", "error", err, "code", vmerr.CodeOf(err))
		return
	}
	c.extension = true
	slog.Debug("sqlite-vec loaded", "version", version)
}

// migrate recreates the vectors table when its embedding column does not
// carry the expected F32_BLOB(D) type, then ensures table and index exist.
func (c *Conn) migrate(ctx context.Context) error {
	want := fmt.Sprintf("F32_BLOB(%d)", c.cfg.Dimensions)

	have, exists, err := c.embeddingColumnType(ctx)
	if err != nil {
		return err
	}
	if exists && !strings.EqualFold(have, want) {
		slog.Warn("vector table has incompatible embedding column, recreating",
			"have", have, "want", want, "path", c.cfg.Path)
		if _, err := c.db.ExecContext(ctx, "DROP TABLE IF EXISTS "+vectorTable); err != nil {
			return vmerr.Wrap(err, vmerr.CodeStoreSchemaFailure, "dropping drifted vectors table")
		}
	}

	ddl := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	id         TEXT PRIMARY KEY,
	embedding  %s,
	metadata   TEXT NOT NULL DEFAULT '{}',
	created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
)`, vectorTable, want)
	if _, err := c.db.ExecContext(ctx, ddl); err != nil {
		return vmerr.Wrap(err, vmerr.CodeStoreSchemaFailure, "creating vectors table")
	}

	const idx = `CREATE INDEX IF NOT EXISTS idx_vectors_id ON ` + vectorTable + `(id)`
	if _, err := c.db.ExecContext(ctx, idx); err != nil {
		return vmerr.Wrap(err, vmerr.CodeStoreSchemaFailure, "creating vectors index")
	}
	return nil
}

// embeddingColumnType reports the declared type of vectors.embedding and
// whether the table exists at all. A table without the column reports "".
func (c *Conn) embeddingColumnType(ctx context.Context) (string, bool, error) {
	rows, err := c.db.QueryContext(ctx, "PRAGMA table_info("+vectorTable+")")
	if err != nil {
		return "", false, vmerr.Wrap(err, vmerr.CodeStoreSchemaFailure, "inspecting vectors table")
	}
	defer func() { _ = rows.Close() }()

	exists := false
	colType := ""
	for rows.Next() {
		var (
			cid     int
			name    string
			typ     string
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &dflt, &pk); err != nil {
			return "", false, vmerr.Wrap(err, vmerr.CodeStoreSchemaFailure, "scanning table info")
		}
		exists = true
		if name == "embedding" {
			colType = typ
		}
	}
	if err := rows.Err(); err != nil {
		return "", false, vmerr.Wrap(err, vmerr.CodeStoreSchemaFailure, "iterating table info")
	}
	return colType, exists, nil
}

// Close releases the handle. It is safe to call repeatedly or before Initialize.
func (c *Conn) Close() error {
	c.extension = false
	if c.db == nil {
		return nil
	}
	db := c.db
	c.db = nil
	if err := db.Close(); err != nil {
		return vmerr.Wrap(err, vmerr.CodeStoreConnectionFailure, "closing sqlite db", vmerr.FieldPath(c.cfg.Path))
	}
	return nil
}
