// Package analyzer runs EXPLAIN diagnostics for statements before they execute
// and summarizes the resulting plan across MySQL, PostgreSQL and SQLite.
package analyzer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/coregx/polysql/internal/dialects"
)

// Mode selects the EXPLAIN variant.
type Mode int

const (
	// ModeNone skips diagnostics.
	ModeNone Mode = iota
	// ModePlan runs EXPLAIN without executing the statement.
	ModePlan
	// ModeAnalyze runs EXPLAIN ANALYZE, which executes the statement.
	ModeAnalyze
)

func (m Mode) String() string {
	switch m {
	case ModePlan:
		return "plan"
	case ModeAnalyze:
		return "analyze"
	}
	return "none"
}

// ErrNotExplainable is returned for statements that have no plan, such as
// transaction control or DDL.
var ErrNotExplainable = errors.New("statement cannot be explained")

// Querier is satisfied by *sql.DB, *sql.Tx and *sql.Conn.
// Diagnostics must run on the handle that will execute the statement,
// otherwise a single-connection pool deadlocks inside a transaction.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Plan summarizes one EXPLAIN run.
type Plan struct {
	Backend dialects.Kind
	Mode    Mode
	// Statement is the EXPLAIN statement that produced the plan.
	Statement string
	// Raw is the unparsed output, one line per row.
	Raw string

	Cost          float64
	EstimatedRows int64
	ActualRows    int64
	ActualTime    time.Duration

	UsesIndex bool
	IndexName string
	FullScan  bool
}

// ChooseMode applies the per-backend EXPLAIN policy:
// SQLite always gets a plain plan; PostgreSQL analyzes SELECT only;
// MySQL analyzes SELECT only on MySQL 5.7 or newer and never on MariaDB.
// Statements without a plan get ModeNone.
func ChooseMode(kind dialects.Kind, operation string, server Version) Mode {
	switch operation {
	case "SELECT", "INSERT", "UPDATE", "DELETE", "REPLACE":
	default:
		return ModeNone
	}

	switch kind {
	case dialects.SQLite:
		return ModePlan
	case dialects.PgSQL:
		if operation == "SELECT" {
			return ModeAnalyze
		}
		return ModePlan
	case dialects.MySQL:
		if operation == "SELECT" && !server.MariaDB && server.AtLeast(5, 7) {
			return ModeAnalyze
		}
		return ModePlan
	}
	return ModeNone
}

// ExplainSQL wraps query in the EXPLAIN statement for kind and mode.
func ExplainSQL(kind dialects.Kind, mode Mode, query string) (string, error) {
	if mode == ModeNone {
		return "", ErrNotExplainable
	}
	switch kind {
	case dialects.SQLite:
		return "EXPLAIN QUERY PLAN " + query, nil
	case dialects.PgSQL:
		if mode == ModeAnalyze {
			return "EXPLAIN (ANALYZE, FORMAT JSON) " + query, nil
		}
		return "EXPLAIN (FORMAT JSON) " + query, nil
	case dialects.MySQL:
		if mode == ModeAnalyze {
			return "EXPLAIN ANALYZE " + query, nil
		}
		return "EXPLAIN FORMAT=JSON " + query, nil
	}
	return "", fmt.Errorf("%w: %q", dialects.ErrUnsupported, string(kind))
}

// Analyzer explains statements for one backend.
type Analyzer struct {
	kind dialects.Kind
}

// New creates an analyzer for kind.
func New(kind dialects.Kind) *Analyzer {
	return &Analyzer{kind: kind}
}

// Explain runs EXPLAIN for query on q and parses the output.
// query must already use the backend's positional placeholders.
func (a *Analyzer) Explain(ctx context.Context, q Querier, mode Mode, query string, args []any) (*Plan, error) {
	stmt, err := ExplainSQL(a.kind, mode, query)
	if err != nil {
		return nil, err
	}

	lines, err := collectLines(ctx, q, a.kind, stmt, args)
	if err != nil {
		return nil, fmt.Errorf("failed to execute %s: %w", stmt, err)
	}

	var plan *Plan
	switch a.kind {
	case dialects.SQLite:
		plan = parseSQLitePlan(lines)
	case dialects.PgSQL:
		plan, err = parsePostgresPlan(joinLines(lines), mode == ModeAnalyze)
	case dialects.MySQL:
		if mode == ModeAnalyze {
			plan = parseMySQLTree(lines)
		} else {
			plan, err = parseMySQLPlan(joinLines(lines))
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse EXPLAIN output: %w", err)
	}

	plan.Backend = a.kind
	plan.Mode = mode
	plan.Statement = stmt
	plan.Raw = joinLines(lines)
	return plan, nil
}

// collectLines reads every EXPLAIN row as one text line. SQLite rows carry the
// plan text in their last column; the other backends return one column.
func collectLines(ctx context.Context, q Querier, kind dialects.Kind, stmt string, args []any) ([]string, error) {
	rows, err := q.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var lines []string
	for rows.Next() {
		values := make([]sql.NullString, len(cols))
		dest := make([]any, len(cols))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		pick := 0
		if kind == dialects.SQLite {
			pick = len(values) - 1
		}
		lines = append(lines, values[pick].String)
	}
	return lines, rows.Err()
}

func joinLines(lines []string) string {
	return strings.Join(lines, "\n")
}
