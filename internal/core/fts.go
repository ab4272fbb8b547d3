// Copyright (c) 2025 COREGX. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package core

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"modernc.org/sqlite"

	"github.com/coregx/polysql/internal/dialects"
	"github.com/coregx/polysql/internal/tracer"
)

// Search paths reported in spans, metrics and logs.
const (
	PathNative   = "native"
	PathFallback = "fallback"
	PathPlain    = "plain"
)

// SearchAll is the query that skips full-text matching and selects every row.
const SearchAll = "*"

const (
	searchParam  = ":search"
	healthy      = "1"
	unhealthy    = "0"
	ftsSavepoint = "polysql_fts"
)

// Search runs a full-text search for query over searchColumns of table and
// returns returnColumns of the matching rows, best match first.
//
// The native engine of the backend is used when the query is long enough and
// native search has not failed on this table at the current schema version:
// MATCH ... AGAINST on MySQL, the tsv_weighted column on PostgreSQL and the
// <table>_fts virtual table on SQLite. Otherwise a LIKE scan is run. A native
// failure is remembered in the cache until the schema version changes.
//
// opts are merged with the generated clauses; see mergeOptions. A blank query
// returns nil rows and a nil error. The query "*" selects every row.
func (db *DB) Search(ctx context.Context, returnColumns, searchColumns []string, query, table string, opts QueryOptions) (rows []Row, err error) {
	if len(returnColumns) == 0 || len(searchColumns) == 0 || strings.TrimSpace(table) == "" {
		return nil, invalidOption("search needs return columns, search columns and a table")
	}
	names := append(append([]string{table}, returnColumns...), searchColumns...)
	if err := checkNames(names...); err != nil {
		return nil, err
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	ctx, span := db.tracer.StartSpan(ctx, tracer.SpanSearch)
	defer span.End()

	path := PathPlain
	table = db.translator.Unescape(table)
	cols := make([]string, len(searchColumns))
	for i, c := range searchColumns {
		cols[i] = db.translator.Unescape(c)
	}
	defer func() {
		tracer.AddSearchAttributes(span, &tracer.SearchMetadata{
			System:  db.kind.String(),
			Table:   table,
			Columns: cols,
			Path:    path,
			Rows:    len(rows),
			Error:   err,
		})
		if err == nil {
			db.metrics.ObserveSearch(db.kind.String(), path)
		}
	}()

	if query == SearchAll {
		rows, err = db.searchPlain(ctx, returnColumns, table, opts)
		return rows, err
	}

	// Malformed caller options fail here and never count against native search.
	if err = db.checkSearchOptions(opts); err != nil {
		return nil, err
	}

	version, err := db.schemaVersion(ctx)
	if err != nil {
		return nil, err
	}

	key := healthKey(db.kind, table, cols)
	if utf8.RuneCountInString(query) >= db.minFTSLength && db.ftsHealthy(key, version) {
		rows, err = db.searchNative(ctx, returnColumns, cols, query, table, opts)
		if err == nil {
			path = PathNative
			db.markFTS(key, version, healthy)
			return rows, nil
		}
		if errors.Is(err, ErrInvalidOption) || ctx.Err() != nil {
			return nil, err
		}
		db.logger.Warn("native full-text search failed, falling back",
			"table", table,
			"columns", strings.Join(cols, ","),
			"code", backendErrorCode(err),
			"database", db.database,
			"error", err,
		)
		db.metrics.ObserveNativeFailure(db.kind.String())
		db.markFTS(key, version, unhealthy)
	}

	path = PathFallback
	rows, err = db.searchFallback(ctx, returnColumns, cols, query, table, opts)
	return rows, err
}

// checkSearchOptions compiles the caller's options on their own.
func (db *DB) checkSearchOptions(opts QueryOptions) error {
	merged, err := db.mergeSearchOptions(QueryOptions{}, opts)
	if err != nil {
		return err
	}
	clauses, params, err := CompileOptions(merged, db.kind)
	if err != nil {
		return err
	}
	_, _, err = bindNamed(clauses, params, db.dialect)
	return err
}

func (db *DB) searchPlain(ctx context.Context, returnColumns []string, table string, opts QueryOptions) ([]Row, error) {
	merged, err := db.mergeSearchOptions(QueryOptions{}, opts)
	if err != nil {
		return nil, err
	}
	return db.runSearch(ctx, "SELECT "+db.backendColumns(returnColumns, "")+" FROM "+db.backendName(table), merged)
}

func (db *DB) searchNative(ctx context.Context, returnColumns, cols []string, query, table string, opts QueryOptions) ([]Row, error) {
	internal := QueryOptions{Params: Params{searchParam: query}}
	from := db.backendName(table)
	qualifier := ""

	switch db.kind {
	case dialects.MySQL:
		match := "MATCH(" + db.backendColumns(cols, "") + ")"
		internal.Where = match + " AGAINST(" + searchParam + " IN NATURAL LANGUAGE MODE)"
		internal.Order = match + " AGAINST(" + searchParam + ") DESC"
	case dialects.PgSQL:
		internal.Where = "tsv_weighted @@ plainto_tsquery(" + searchParam + ")"
		internal.Order = "ts_rank(tsv_weighted, plainto_tsquery(" + searchParam + ")) DESC"
	case dialects.SQLite:
		fts := table + "_fts"
		qualifier = from
		from += " INNER JOIN " + db.backendName(fts) + " ON " + db.backendName(fts) + ".rowid = " + qualifier + ".rowid"
		internal.Where = db.dialect.QuoteIdentifier(fts) + " MATCH " + searchParam
		internal.Order = "rank DESC"
	}

	merged, err := db.mergeSearchOptions(internal, opts)
	if err != nil {
		return nil, err
	}

	var rows []Row
	err = db.guard(ctx, ftsSavepoint, func() error {
		var err error
		rows, err = db.runSearch(ctx, "SELECT "+db.backendColumns(returnColumns, qualifier)+" FROM "+from, merged)
		return err
	})
	return rows, err
}

func (db *DB) searchFallback(ctx context.Context, returnColumns, cols []string, query, table string, opts QueryOptions) ([]Row, error) {
	like := db.dialect.LikeOperator()
	pattern := "%" + query + "%"

	params := Params{}
	matches := make([]string, len(cols))
	ranks := make([]string, len(cols))
	for i, c := range cols {
		col := db.backendName(c)
		name := ":search_string_" + strconv.Itoa(i)
		matches[i] = col + " " + like + " " + name
		params[name] = pattern
		if db.kind == dialects.PgSQL {
			rank := ":search_rank_" + strconv.Itoa(i)
			ranks[i] = "similarity(" + col + ", " + rank + ")"
			params[rank] = query
		}
	}

	internal := QueryOptions{
		Where:  "(" + strings.Join(matches, " OR ") + ")",
		Params: params,
	}
	if db.kind == dialects.PgSQL {
		internal.Order = "(" + strings.Join(ranks, " + ") + ") DESC"
	}

	merged, err := db.mergeSearchOptions(internal, opts)
	if err != nil {
		return nil, err
	}
	return db.runSearch(ctx, "SELECT "+db.backendColumns(returnColumns, "")+" FROM "+db.backendName(table), merged)
}

// runSearch executes head followed by the merged clauses. Generated SQL is
// already quoted for the backend, so it runs with the backend as format.
func (db *DB) runSearch(ctx context.Context, head string, opts QueryOptions) ([]Row, error) {
	clauses, params, err := CompileOptions(opts, db.kind)
	if err != nil {
		return nil, err
	}

	var rows []Row
	err = db.WithFormat(db.kind, func() error {
		db.setStatement(joinSQL(head, clauses), params)
		if err := db.Execute(ctx); err != nil {
			return err
		}
		rows = db.ResultRows()
		return nil
	})
	return rows, err
}

// schemaVersion reads the token that scopes full-text health flags.
func (db *DB) schemaVersion(ctx context.Context) (string, error) {
	query := "SELECT " + db.backendName(db.versionColumn) + " FROM " + db.backendName(db.versionTable) + " LIMIT 1"

	var v any
	if err := db.conn().QueryRowContext(ctx, query).Scan(&v); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("read schema version: %s is empty", db.versionTable)
		}
		return "", fmt.Errorf("read schema version: %w", err)
	}
	if b, ok := v.([]byte); ok {
		return string(b), nil
	}
	return fmt.Sprint(v), nil
}

func healthKey(kind dialects.Kind, table string, cols []string) string {
	return "fts:" + string(kind) + ":" + table + ":" + strings.Join(cols, ",")
}

// ftsHealthy reports whether native search may be tried. A missing flag counts as healthy.
func (db *DB) ftsHealthy(key, version string) bool {
	data, ok := db.cache.Valid(key, version)
	return !ok || string(data) != unhealthy
}

func (db *DB) markFTS(key, version, state string) {
	if data, ok := db.cache.Valid(key, version); ok && string(data) == state {
		return
	}
	if err := db.cache.Update(key, version, []byte(state)); err != nil {
		db.logger.Warn("failed to store full-text health flag", "key", key, "error", err)
	}
}

// backendName quotes an unescaped name for the backend.
func (db *DB) backendName(name string) string {
	name = db.translator.Unescape(name)
	if isExpression(name) {
		return name
	}
	return dialects.QuoteName(db.dialect, name)
}

// backendColumns renders a column list for the backend, qualifying plain
// names with qualifier when it is set.
func (db *DB) backendColumns(cols []string, qualifier string) string {
	out := make([]string, len(cols))
	for i, c := range cols {
		c = strings.TrimSpace(c)
		switch {
		case c == "*" && qualifier != "":
			out[i] = qualifier + ".*"
		case isExpression(c) && !isQuotedName(c):
			out[i] = c
		case qualifier != "" && !strings.Contains(db.translator.Unescape(c), "."):
			out[i] = qualifier + "." + db.backendName(c)
		default:
			out[i] = db.backendName(c)
		}
	}
	return strings.Join(out, ", ")
}

// isQuotedName reports whether s is a quoted identifier rather than an expression.
func isQuotedName(s string) bool {
	u := dialects.UnescapeIdentifier(s)
	return u != s && !strings.ContainsAny(u, "() *+-/,'")
}

// backendErrorCode extracts the driver's error code from err, or "" when
// err did not come from a known driver.
func backendErrorCode(err error) string {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return strconv.Itoa(int(myErr.Number))
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	var cgoErr sqlite3.Error
	if errors.As(err, &cgoErr) {
		return strconv.Itoa(int(cgoErr.ExtendedCode))
	}
	var pureErr *sqlite.Error
	if errors.As(err, &pureErr) {
		return strconv.Itoa(pureErr.Code())
	}
	return ""
}
