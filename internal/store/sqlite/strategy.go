// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Orch-Mind Contributors

package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/orch-mind/vecmem/internal/store"
	vmerr "github.com/orch-mind/vecmem/pkg/errors"
)

// strategy is one rung of the query fallback ladder.
type strategy struct {
	name string
	// available reports whether the rung can run on the session's connection.
	available func(session) bool
	build     func(session, SearchParams) Statement
}

// session is a live handle plus the connection facts read with it under
// VectorStore.mu, so a query never looks at Conn while another goroutine
// reopens it.
type session struct {
	db            *sql.DB
	extension     bool
	preserveOrder bool
}

func (s *VectorStore) buildStrategies(names []string) ([]strategy, error) {
	out := make([]strategy, 0, len(names))
	for _, name := range names {
		var st strategy
		switch name {
		case store.StrategyCosine:
			st = strategy{name: name, available: always, build: func(_ session, p SearchParams) Statement {
				return s.queries.CosineQuery(p)
			}}
		case store.StrategyDistance:
			st = strategy{name: name, available: hasExtension, build: func(_ session, p SearchParams) Statement {
				return s.queries.DistanceQuery(p)
			}}
		case store.StrategyBasic:
			st = strategy{name: name, available: always, build: func(sess session, p SearchParams) Statement {
				return s.queries.BasicQuery(p, sess.preserveOrder)
			}}
		default:
			return nil, vmerr.New(vmerr.CodeConfigValidateInvalidValue, "unknown query strategy: "+name,
				vmerr.FieldStrategy(name))
		}
		out = append(out, st)
	}
	return out, nil
}

func always(session) bool { return true }

func hasExtension(sess session) bool { return sess.extension }

// runStrategies executes the ladder in order and returns the first non-empty
// answer together with the name of the rung that produced it. A rung that
// errors is logged and skipped. Exhaustion yields no matches and "".
func runStrategies(ctx context.Context, sess session, ladder []strategy, p SearchParams) ([]store.Match, string) {
	for _, st := range ladder {
		if !st.available(sess) {
			slog.Debug("query strategy unavailable, skipping", "strategy", st.name)
			continue
		}

		matches, err := runStatement(ctx, sess.db, st.build(sess, p))
		if err != nil {
			slog.Warn("query strategy failed, falling back", "strategy", st.name, "error", err)
			continue
		}
		if len(matches) > 0 {
			return matches, st.name
		}
		slog.Debug("query strategy returned no rows", "strategy", st.name)
	}
	return nil, ""
}

// runStatement runs a statement selecting (id, metadata, score).
func runStatement(ctx context.Context, db *sql.DB, stmt Statement) ([]store.Match, error) {
	rows, err := db.QueryContext(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return nil, fmt.Errorf("querying vectors: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var matches []store.Match
	for rows.Next() {
		var (
			m       store.Match
			rawMeta sql.NullString
		)
		if err := rows.Scan(&m.ID, &rawMeta, &m.Score); err != nil {
			return nil, fmt.Errorf("scanning match: %w", err)
		}
		if rawMeta.Valid && rawMeta.String != "" {
			if err := json.Unmarshal([]byte(rawMeta.String), &m.Metadata); err != nil {
				slog.Warn("unreadable metadata on match", "id", m.ID, "error", err)
				m.Metadata = nil
			}
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating matches: %w", err)
	}
	return matches, nil
}
