// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Orch-Mind Contributors

package sqlite

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"
)

// basicScore is assigned to every row returned without a similarity computation.
const basicScore = 0.5

// minTermLength is the shortest keyword term searched on its own.
const minTermLength = 3

// Statement is a parameterized SQL statement.
type Statement struct {
	SQL  string
	Args []any
}

// SearchParams carries the per-query values shared by every strategy.
type SearchParams struct {
	Embedding []byte
	Filters   map[string]any
	Keywords  []string
	Threshold float64
	TopK      int
}

// QueryBuilder assembles every statement the vector store runs. Identifiers
// it interpolates are either constants or sanitized to [A-Za-z0-9_];
// all values are bound.
type QueryBuilder struct {
	table      string
	searchable []string
}

// NewQueryBuilder returns a builder for table, with keyword search over
// the given metadata fields.
func NewQueryBuilder(table string, searchable []string) *QueryBuilder {
	b := &QueryBuilder{table: sanitizeIdent(table)}
	b.SetSearchableFields(searchable)
	return b
}

// SetSearchableFields declares which metadata keys keyword search matches
// against. Names are sanitized; empty and duplicate names are dropped.
func (b *QueryBuilder) SetSearchableFields(fields []string) {
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = sanitizeIdent(f)
		if f == "" || slices.Contains(out, f) {
			continue
		}
		out = append(out, f)
	}
	b.searchable = out
}

// SearchableFields returns the sanitized keyword-search fields.
func (b *QueryBuilder) SearchableFields() []string {
	return slices.Clone(b.searchable)
}

// Where builds the condition shared by every read strategy, without the
// leading WHERE keyword, and its bound arguments.
func (b *QueryBuilder) Where(filters map[string]any, keywords []string) (string, []any) {
	conds := []string{"embedding IS NOT NULL"}
	var args []any

	keys := make([]string, 0, len(filters))
	for k := range filters {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, key := range keys {
		field := sanitizeIdent(key)
		if field == "" {
			slog.Warn("dropping metadata filter with unusable field name", "field", key)
			continue
		}
		path := jsonPath(field)
		val := filters[key]
		if val == nil {
			conds = append(conds, path+" IS NULL")
			continue
		}
		conds = append(conds, path+" = ?")
		args = append(args, filterArg(val))
	}

	if kw, kwArgs := b.keywordClause(keywords); kw != "" {
		conds = append(conds, kw)
		args = append(args, kwArgs...)
	}

	return strings.Join(conds, " AND "), args
}

func (b *QueryBuilder) keywordClause(keywords []string) (string, []any) {
	if len(b.searchable) == 0 {
		return "", nil
	}

	var ors []string
	var args []any
	for _, term := range searchTerms(keywords) {
		for _, field := range b.searchable {
			ors = append(ors, lowerFunc+"(CAST(COALESCE("+jsonPath(field)+", '') AS TEXT)) LIKE ?")
			args = append(args, "%"+term+"%")
		}
	}
	if len(ors) == 0 {
		return "", nil
	}
	return "(" + strings.Join(ors, " OR ") + ")", args
}

// CosineQuery ranks rows with the native vecmem_cosine function.
func (b *QueryBuilder) CosineQuery(p SearchParams) Statement {
	return b.scoredQuery(cosineFunc+"(embedding, ?)", p)
}

// DistanceQuery ranks rows with sqlite-vec's cosine distance, converted to a similarity.
func (b *QueryBuilder) DistanceQuery(p SearchParams) Statement {
	return b.scoredQuery("1.0 - vec_distance_cosine(embedding, ?)", p)
}

func (b *QueryBuilder) scoredQuery(scoreExpr string, p SearchParams) Statement {
	where, whereArgs := b.Where(p.Filters, p.Keywords)
	q := fmt.Sprintf(`SELECT id, metadata, score FROM (
	SELECT id, metadata, %s AS score FROM %s WHERE %s
) WHERE score >= ? ORDER BY score DESC LIMIT ?`, scoreExpr, b.table, where)

	args := make([]any, 0, len(whereArgs)+3)
	args = append(args, p.Embedding)
	args = append(args, whereArgs...)
	args = append(args, p.Threshold, p.TopK)
	return Statement{SQL: q, Args: args}
}

// BasicQuery returns rows matching the WHERE clause with a constant score.
// With preserveOrder the oldest rows come first.
func (b *QueryBuilder) BasicQuery(p SearchParams, preserveOrder bool) Statement {
	where, args := b.Where(p.Filters, p.Keywords)
	q := fmt.Sprintf(`SELECT id, metadata, %g AS score FROM %s WHERE %s`, basicScore, b.table, where)
	if preserveOrder {
		q += " ORDER BY created_at, rowid"
	}
	q += " LIMIT ?"
	return Statement{SQL: q, Args: append(args, p.TopK)}
}

// Insert writes one record. Callers delete the id first.
func (b *QueryBuilder) Insert(id string, embedding []byte, metadata string, createdAt string) Statement {
	return Statement{
		SQL:  "INSERT INTO " + b.table + " (id, embedding, metadata, created_at) VALUES (?, ?, ?, ?)",
		Args: []any{id, embedding, metadata, createdAt},
	}
}

// DeleteByID removes one record.
func (b *QueryBuilder) DeleteByID(id string) Statement {
	return Statement{SQL: "DELETE FROM " + b.table + " WHERE id = ?", Args: []any{id}}
}

// ExistsIn selects the subset of ids present in the table.
func (b *QueryBuilder) ExistsIn(ids []string) Statement {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	return Statement{SQL: "SELECT id FROM " + b.table + " WHERE id IN (" + placeholders + ")", Args: args}
}

// Count counts every row.
func (b *QueryBuilder) Count() Statement {
	return Statement{SQL: "SELECT COUNT(*) FROM " + b.table}
}

// DeleteAll clears the table.
func (b *QueryBuilder) DeleteAll() Statement {
	return Statement{SQL: "DELETE FROM " + b.table}
}

// SelectAll streams full records in insertion order.
func (b *QueryBuilder) SelectAll() Statement {
	return Statement{SQL: "SELECT id, embedding, metadata, created_at FROM " + b.table +
		" WHERE embedding IS NOT NULL ORDER BY created_at, rowid"}
}

// searchTerms lowercases each keyword and splits it into terms of at least
// minTermLength runes; a keyword yielding none is searched whole.
func searchTerms(keywords []string) []string {
	var terms []string
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		var parts []string
		for _, f := range strings.Fields(kw) {
			if utf8.RuneCountInString(f) >= minTermLength {
				parts = append(parts, f)
			}
		}
		if len(parts) == 0 {
			parts = []string{kw}
		}
		for _, p := range parts {
			p = strings.TrimSpace(sanitizeTerm(p))
			if p != "" && !slices.Contains(terms, p) {
				terms = append(terms, p)
			}
		}
	}
	return terms
}

func jsonPath(field string) string {
	return "json_extract(metadata, '$." + field + "')"
}

// filterArg converts a filter value into something comparable with json_extract.
func filterArg(v any) any {
	switch val := v.(type) {
	case string, bool, int, int32, int64, float32, float64:
		return val
	case json.Number:
		if f, err := val.Float64(); err == nil {
			return f
		}
		return val.String()
	default:
		// json_extract yields JSON text for objects and arrays.
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	}
}

func sanitizeIdent(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '_' || (r < utf8.RuneSelf && (unicode.IsLetter(r) || unicode.IsDigit(r))) {
			return r
		}
		return -1
	}, s)
}

func sanitizeTerm(s string) string {
	return strings.Map(func(r rune) rune {
		if r == ' ' || unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
}
