package core

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/coregx/polysql/internal/analyzer"
	"github.com/coregx/polysql/internal/dialects"
	"github.com/coregx/polysql/internal/optimizer"
	"github.com/coregx/polysql/internal/security"
	"github.com/coregx/polysql/internal/tracer"
)

// Statement returns the pending SQL text and parameters.
func (db *DB) Statement() (string, Params) {
	return db.pending.sql, db.pending.params
}

// setStatement replaces the pending statement.
func (db *DB) setStatement(sql string, params Params) {
	db.pending = statement{sql: sql, params: params}
}

// Query sets sql as the pending statement and executes it.
func (db *DB) Query(ctx context.Context, sql string, params Params) error {
	db.setStatement(sql, params)
	return db.Execute(ctx)
}

// ResultRows returns the rows not yet read from the last result and moves
// the cursor to the end. It returns an empty slice when nothing is left.
func (db *DB) ResultRows() []Row {
	if db.cursor >= len(db.rows) {
		return []Row{}
	}
	rest := db.rows[db.cursor:]
	db.cursor = len(db.rows)
	return rest
}

// ResultRow returns the next row of the last result, or nil when exhausted.
func (db *DB) ResultRow() Row {
	if db.cursor >= len(db.rows) {
		return nil
	}
	row := db.rows[db.cursor]
	db.cursor++
	return row
}

// AffectedRows returns the number of rows changed by the last statement.
func (db *DB) AffectedRows() int64 {
	return db.affected
}

// LastInsertID returns the id generated by the last INSERT, or 0.
func (db *DB) LastInsertID() int64 {
	return db.lastID
}

func (db *DB) resetResult() {
	db.rows = nil
	db.cursor = 0
	db.affected = 0
	db.lastID = 0
}

// Execute runs the pending statement. SQL authored in a dialect other than
// the backend's has its identifier quoting rewritten first; named
// placeholders are then bound positionally.
func (db *DB) Execute(ctx context.Context) error {
	st := db.pending
	if strings.TrimSpace(st.sql) == "" {
		return ErrNoStatement
	}
	db.resetResult()

	authored := st.sql
	query := authored
	if db.format != db.kind {
		query = dialects.RewriteIdentifiers(query, db.format, db.kind)
	}
	query, args, err := bindNamed(query, st.params, db.dialect)
	if err != nil {
		return err
	}
	op := tracer.DetectOperation(query)

	if db.debug {
		db.explain(ctx, op, query, args)
	}

	ctx, span := db.tracer.StartSpan(ctx, tracer.SpanExecute)
	defer span.End()

	start := time.Now()
	err = db.run(ctx, op, query, args)
	elapsed := time.Since(start)

	event := QueryEvent{
		SQL:          query,
		Authored:     authored,
		Params:       st.params,
		Args:         args,
		Duration:     elapsed,
		RowsAffected: db.affected,
		RowsReturned: len(db.rows),
		Error:        err,
		Operation:    op,
		Backend:      db.kind,
		Format:       db.format,
	}
	db.observe(ctx, span, event)

	if err != nil {
		return fmt.Errorf("%s failed: %w", strings.ToLower(op), err)
	}

	if db.queryLog != nil {
		db.queryLog.record(ctx, db, query, elapsed, len(args))
	}
	return nil
}

var returningClause = regexp.MustCompile(`(?i)\bRETURNING\b`)

// returnsRows reports whether a statement produces a result set.
func returnsRows(op, query string) bool {
	switch op {
	case "SELECT", "PRAGMA", "SHOW", "EXPLAIN", "VALUES":
		return true
	case "INSERT", "UPDATE", "DELETE":
		return returningClause.MatchString(query)
	}
	return false
}

func (db *DB) run(ctx context.Context, op, query string, args []any) error {
	conn := db.conn()
	stmt, err := conn.PrepareContext(ctx, query)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()

	if returnsRows(op, query) {
		rows, err := stmt.QueryContext(ctx, args...)
		if err != nil {
			return err
		}
		db.rows, err = scanRows(rows)
		if err != nil {
			db.rows = nil
			return err
		}
		if op != "SELECT" {
			db.affected = int64(len(db.rows))
		}
		return nil
	}

	res, err := stmt.ExecContext(ctx, args...)
	if err != nil {
		return err
	}
	db.affected, _ = res.RowsAffected()
	if op == "INSERT" || op == "REPLACE" {
		db.lastID = db.insertID(ctx, res)
	}
	return nil
}

// insertID returns the generated id of the last INSERT. PostgreSQL has no
// driver-level LastInsertId, so lastval() is asked instead; a table without
// a sequence makes that fail, which is ignored.
func (db *DB) insertID(ctx context.Context, res sql.Result) int64 {
	if db.kind != dialects.PgSQL {
		id, _ := res.LastInsertId()
		return id
	}

	var id int64
	err := db.guard(ctx, "polysql_lastval", func() error {
		return db.conn().QueryRowContext(ctx, "SELECT lastval()").Scan(&id)
	})
	if err != nil {
		return 0
	}
	return id
}

// guard runs fn inside a savepoint when a PostgreSQL transaction is open, so
// that a failing statement does not abort the caller's transaction.
func (db *DB) guard(ctx context.Context, name string, fn func() error) error {
	if db.tx == nil || db.kind != dialects.PgSQL {
		return fn()
	}
	if _, err := db.tx.ExecContext(ctx, "SAVEPOINT "+name); err != nil {
		return err
	}
	if err := fn(); err != nil {
		if _, rbErr := db.tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+name); rbErr != nil {
			return errors.Join(err, rbErr)
		}
		return err
	}
	_, err := db.tx.ExecContext(ctx, "RELEASE SAVEPOINT "+name)
	return err
}

// observe reports a finished statement to the hook, span, metrics and log.
func (db *DB) observe(ctx context.Context, span tracer.Span, e QueryEvent) {
	db.invokeHook(ctx, e)

	tracer.AddStatementAttributes(span, &tracer.StatementMetadata{
		SQL:          e.SQL,
		ParamCount:   len(e.Args),
		Duration:     e.Duration,
		RowsAffected: e.RowsAffected,
		RowsReturned: e.RowsReturned,
		Error:        e.Error,
		System:       e.Backend.String(),
		Database:     db.database,
		Operation:    e.Operation,
		Format:       e.Format.String(),
	})
	db.metrics.ObserveStatement(e.Backend.String(), e.Operation, e.Duration.Seconds(), e.Error)
	db.auditor.Record(ctx, security.Entry{
		Operation:    e.Operation,
		SQL:          e.SQL,
		Args:         e.Args,
		RowsAffected: e.RowsAffected,
		Duration:     e.Duration,
		Err:          e.Error,
	})

	params := db.sanitizer.FormatParams(e.Params)
	if e.Error != nil {
		db.logger.Error("statement failed",
			"sql", e.SQL,
			"params", params,
			"duration_ms", e.Duration.Milliseconds(),
			"database", db.database,
			"error", e.Error,
		)
		return
	}
	db.logger.Debug("statement executed",
		"sql", e.SQL,
		"params", params,
		"duration_ms", e.Duration.Milliseconds(),
		"rows_affected", e.RowsAffected,
		"rows_returned", e.RowsReturned,
		"database", db.database,
	)
}

// explain logs the plan of query. Failures are logged and never affect the statement.
func (db *DB) explain(ctx context.Context, op, query string, args []any) {
	mode := analyzer.ChooseMode(db.kind, op, db.serverVersion(ctx))
	if mode == analyzer.ModeNone {
		return
	}

	var plan *analyzer.Plan
	err := db.guard(ctx, "polysql_explain", func() error {
		var err error
		plan, err = db.analyzer.Explain(ctx, db.conn(), mode, query, args)
		return err
	})
	if err != nil {
		db.logger.Warn("explain failed", "sql", query, "mode", mode.String(), "error", err)
		return
	}

	db.logger.Debug("statement plan",
		"sql", query,
		"mode", mode.String(),
		"full_scan", plan.FullScan,
		"uses_index", plan.UsesIndex,
		"index", plan.IndexName,
		"cost", plan.Cost,
		"estimated_rows", plan.EstimatedRows,
		"actual_time_ms", plan.ActualTime.Milliseconds(),
		"plan", plan.Raw,
	)
	for _, s := range optimizer.Advise(db.dialect, query, plan) {
		db.logger.Debug("index suggestion",
			"sql", query,
			"type", string(s.Type),
			"severity", string(s.Severity),
			"message", s.Message,
			"fix", s.SQL,
		)
	}
}

// serverVersion probes SELECT VERSION() once on MySQL. Other backends and
// probe failures yield the zero Version, which selects plain EXPLAIN.
func (db *DB) serverVersion(ctx context.Context) analyzer.Version {
	if db.kind != dialects.MySQL {
		return analyzer.Version{}
	}
	if db.server != nil {
		return *db.server
	}

	var raw string
	v := analyzer.Version{}
	if err := db.conn().QueryRowContext(ctx, "SELECT VERSION()").Scan(&raw); err != nil {
		db.logger.Warn("server version probe failed", "error", err)
	} else if parsed, err := analyzer.ParseVersion(raw); err != nil {
		db.logger.Warn("unrecognized server version", "version", raw, "error", err)
	} else {
		v = parsed
	}
	db.server = &v
	return v
}
