package core

import (
	"context"
	"crypto/sha1" //nolint:gosec // dedup key, not a security boundary
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/coregx/polysql/internal/dialects"
)

// Query log reasons.
const (
	ReasonSlow     = "slow"
	ReasonNoParams = "no_params"
)

// maxLoggedQueryLength caps the stored statement text, in characters.
const maxLoggedQueryLength = 65530

// queryLog persists slow and unparameterized statements, one row per
// distinct statement text:
//
//	query_hash   CHAR(40) PRIMARY KEY
//	query_text   TEXT
//	reason       VARCHAR(16)
//	exec_time_ms BIGINT
//	usage_count  BIGINT
type queryLog struct {
	table string
	// known holds hashes already present in the table.
	known map[string]struct{}
}

func newQueryLog(table string) *queryLog {
	return &queryLog{table: table, known: map[string]struct{}{}}
}

// reason classifies a statement, returning "" when it should not be logged.
func (l *queryLog) reason(elapsed, threshold time.Duration, boundParams int) string {
	switch {
	case elapsed > threshold:
		return ReasonSlow
	case boundParams == 0:
		return ReasonNoParams
	}
	return ""
}

// record writes or updates the log row for query. Failures are logged and swallowed.
func (l *queryLog) record(ctx context.Context, db *DB, query string, elapsed time.Duration, boundParams int) {
	reason := l.reason(elapsed, db.slowThreshold, boundParams)
	if reason == "" {
		return
	}

	sum := sha1.Sum([]byte(query)) //nolint:gosec
	hash := hex.EncodeToString(sum[:])
	ms := elapsed.Milliseconds()

	err := db.guard(ctx, "polysql_query_log", func() error {
		return l.upsert(ctx, db, hash, query, reason, ms)
	})
	db.metrics.ObserveQueryLog(reason, err)
	if err != nil {
		db.logger.Warn("query log write failed", "table", l.table, "reason", reason, "error", err)
	}
}

func (l *queryLog) upsert(ctx context.Context, db *DB, hash, query, reason string, ms int64) error {
	d := db.dialect
	table := dialects.QuoteName(d, l.table)
	conn := db.conn()

	if _, ok := l.known[hash]; !ok {
		var count int64
		err := conn.QueryRowContext(ctx,
			fmt.Sprintf("SELECT usage_count FROM %s WHERE query_hash = %s", table, d.Placeholder(1)),
			hash,
		).Scan(&count)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			text := truncateRunes(query, maxLoggedQueryLength)
			_, err = conn.ExecContext(ctx,
				fmt.Sprintf("INSERT INTO %s (query_hash, query_text, reason, exec_time_ms, usage_count) VALUES (%s, %s, %s, %s, 1)",
					table, d.Placeholder(1), d.Placeholder(2), d.Placeholder(3), d.Placeholder(4)),
				hash, text, reason, ms,
			)
			if err != nil {
				return err
			}
			l.known[hash] = struct{}{}
			return nil
		case err != nil:
			return err
		}
		l.known[hash] = struct{}{}
	}

	_, err := conn.ExecContext(ctx,
		fmt.Sprintf("UPDATE %s SET usage_count = usage_count + 1, exec_time_ms = CASE WHEN exec_time_ms < %s THEN %s ELSE exec_time_ms END WHERE query_hash = %s",
			table, d.Placeholder(1), d.Placeholder(2), d.Placeholder(3)),
		ms, ms, hash,
	)
	return err
}

// truncateRunes cuts s to at most n characters without splitting a rune.
func truncateRunes(s string, n int) string {
	if len(s) <= n || utf8.RuneCountInString(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
