package core

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/coregx/polysql/internal/dialects"
	"github.com/coregx/polysql/internal/security"
)

// JoinClause is one JOIN of a Join call. Type defaults to INNER.
type JoinClause struct {
	Type  string
	Table string
	On    string
}

// Select builds and runs SELECT columns FROM table with opts.
// No columns selects "*".
func (db *DB) Select(ctx context.Context, columns []string, table string, opts QueryOptions) error {
	if err := checkNames(append([]string{table}, columns...)...); err != nil {
		return err
	}
	return db.selectFrom(ctx, columns, db.quoteTable(table), opts)
}

// Join builds and runs a SELECT over table and joins.
func (db *DB) Join(ctx context.Context, columns []string, table string, joins []JoinClause, opts QueryOptions) error {
	if len(joins) == 0 {
		return invalidOption("join requires at least one join clause")
	}
	if err := checkNames(append([]string{table}, columns...)...); err != nil {
		return err
	}

	var from strings.Builder
	from.WriteString(db.quoteTable(table))
	for _, j := range joins {
		if strings.TrimSpace(j.Table) == "" || strings.TrimSpace(j.On) == "" {
			return invalidOption("join clause needs a table and a condition")
		}
		if err := checkNames(j.Table); err != nil {
			return err
		}
		typ := strings.ToUpper(strings.TrimSpace(j.Type))
		if typ == "" {
			typ = "INNER"
		}
		from.WriteString(" " + typ + " JOIN " + db.quoteTable(j.Table) + " ON " + strings.TrimSpace(j.On))
	}
	return db.selectFrom(ctx, columns, from.String(), opts)
}

func (db *DB) selectFrom(ctx context.Context, columns []string, from string, opts QueryOptions) error {
	clauses, params, err := CompileOptions(opts, db.kind)
	if err != nil {
		return err
	}
	db.setStatement(joinSQL("SELECT", db.quoteColumns(columns), "FROM", from, clauses), params)
	return db.Execute(ctx)
}

// Insert inserts one row. Columns are written in sorted order.
func (db *DB) Insert(ctx context.Context, table string, values map[string]any) error {
	if len(values) == 0 {
		return invalidOption("insert requires at least one value")
	}

	cols := sortedKeys(values)
	if err := checkNames(append([]string{table}, cols...)...); err != nil {
		return err
	}
	quoted := make([]string, len(cols))
	holders := make([]string, len(cols))
	params := make(Params, len(cols))
	for i, c := range cols {
		quoted[i] = db.quoteColumn(c)
		holders[i] = placeholderName(c)
		params[holders[i]] = values[c]
	}

	db.setStatement(
		"INSERT INTO "+db.quoteTable(table)+" ("+strings.Join(quoted, ", ")+") VALUES ("+strings.Join(holders, ", ")+")",
		params,
	)
	return db.Execute(ctx)
}

// Update sets values on the rows matched by opts.Where, which is required.
// GROUP BY is not valid here and is dropped with a warning.
func (db *DB) Update(ctx context.Context, table string, values map[string]any, opts QueryOptions) error {
	if err := requireWhere(opts.Where); err != nil {
		return err
	}
	if len(values) == 0 {
		return invalidOption("update requires at least one value")
	}
	if err := checkNames(append([]string{table}, sortedKeys(values)...)...); err != nil {
		return err
	}
	opts = db.stripGroup("UPDATE", table, opts)

	clauses, params, err := CompileOptions(opts, db.kind)
	if err != nil {
		return err
	}

	cols := sortedKeys(values)
	sets := make([]string, len(cols))
	for i, c := range cols {
		name := ":set_" + strings.TrimPrefix(placeholderName(c), ":")
		sets[i] = db.quoteColumn(c) + " = " + name
		params[name] = values[c]
	}

	db.setStatement(joinSQL("UPDATE", db.quoteTable(table), "SET", strings.Join(sets, ", "), clauses), params)
	return db.Execute(ctx)
}

// Delete removes the rows matched by opts.Where, which is required.
// GROUP BY is dropped, and ORDER BY and LIMIT are dropped unless both are set.
func (db *DB) Delete(ctx context.Context, table string, opts QueryOptions) error {
	if err := requireWhere(opts.Where); err != nil {
		return err
	}
	if err := checkNames(table); err != nil {
		return err
	}
	opts = db.stripGroup("DELETE", table, opts)

	hasOrder := strings.TrimSpace(opts.Order) != ""
	hasLimit := !isEmptyLimit(opts.Limit)
	if hasOrder != hasLimit {
		db.logger.Warn("order and limit must be used together on delete, dropping both",
			"table", table, "order", opts.Order, "limit", opts.Limit)
		opts.Order = ""
		opts.Limit = nil
	}

	clauses, params, err := CompileOptions(opts, db.kind)
	if err != nil {
		return err
	}
	db.setStatement(joinSQL("DELETE FROM", db.quoteTable(table), clauses), params)
	return db.Execute(ctx)
}

// Truncate empties table. SQLite has no TRUNCATE and gets DELETE FROM.
func (db *DB) Truncate(ctx context.Context, table string) error {
	if strings.TrimSpace(table) == "" {
		return invalidOption("truncate requires a table")
	}
	if err := checkNames(table); err != nil {
		return err
	}
	db.setStatement(db.dialect.TruncateSQL(db.quoteTable(table)), nil)
	return db.Execute(ctx)
}

// checkNames rejects table and column names carrying comments or statement separators.
func checkNames(names ...string) error {
	if err := security.CheckNames(names...); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidOption, err)
	}
	return nil
}

func (db *DB) stripGroup(op, table string, opts QueryOptions) QueryOptions {
	if strings.TrimSpace(opts.Group) != "" {
		db.logger.Warn("group by is not allowed here, dropping it", "operation", op, "table", table, "group", opts.Group)
		opts.Group = ""
	}
	return opts
}

func isEmptyLimit(limit any) bool {
	switch l := limit.(type) {
	case nil:
		return true
	case bool:
		return !l
	case string:
		return strings.TrimSpace(l) == ""
	}
	return false
}

// quoteTable quotes a table name for the authoring dialect. Anything that
// is not a plain, possibly qualified name is used verbatim.
func (db *DB) quoteTable(table string) string {
	table = strings.TrimSpace(table)
	if isExpression(table) {
		return table
	}
	return dialects.QuoteName(db.formatDialect(), table)
}

func (db *DB) quoteColumn(col string) string {
	col = strings.TrimSpace(col)
	if isExpression(col) {
		return col
	}
	return dialects.QuoteName(db.formatDialect(), col)
}

func (db *DB) quoteColumns(cols []string) string {
	if len(cols) == 0 {
		return "*"
	}
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = db.quoteColumn(c)
	}
	return strings.Join(out, ", ")
}

// isExpression reports whether s is already quoted or is more than a name:
// a function call, an alias, arithmetic or a wildcard.
func isExpression(s string) bool {
	return s == "" || strings.ContainsAny(s, "`\"[]() *+-/,'")
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// joinSQL joins the non-empty parts with single spaces.
func joinSQL(parts ...string) string {
	out := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " ")
}
