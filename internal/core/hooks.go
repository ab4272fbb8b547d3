package core

import (
	"context"
	"time"

	"github.com/coregx/polysql/internal/dialects"
)

// QueryEvent describes one statement run by the execution engine.
type QueryEvent struct {
	// SQL is the statement sent to the backend, with positional placeholders.
	SQL string
	// Authored is the statement as built, with named placeholders and the
	// identifier quoting of Format.
	Authored string
	Params   Params
	Args     []any
	Duration time.Duration
	// RowsAffected is set for statements that do not return rows.
	RowsAffected int64
	// RowsReturned is set for statements that return rows.
	RowsReturned int
	Error        error
	// Operation is the leading keyword: SELECT, INSERT, UPDATE, DELETE, ...
	Operation string
	Backend   dialects.Kind
	Format    dialects.Kind
}

// QueryHook is called after every executed statement, including failed ones
// and native full-text attempts that fall back.
//
// Example:
//
//	db, _ := polysql.Open(ctx, cfg,
//	    polysql.WithQueryHook(func(ctx context.Context, e polysql.QueryEvent) {
//	        slog.Info("query", "sql", e.SQL, "duration", e.Duration, "err", e.Error)
//	    }))
type QueryHook func(ctx context.Context, event QueryEvent)

func (db *DB) invokeHook(ctx context.Context, event QueryEvent) {
	if db.queryHook != nil {
		db.queryHook(ctx, event)
	}
}
