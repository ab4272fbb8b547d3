package dialects

import (
	"strings"
)

// SQLiteDialect implements SQLite-specific SQL dialect.
type SQLiteDialect struct{}

// Kind returns SQLite.
func (d *SQLiteDialect) Kind() Kind {
	return SQLite
}

// QuoteIdentifier quotes a SQLite identifier using double quotes.
func (d *SQLiteDialect) QuoteIdentifier(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// Placeholder returns SQLite placeholder format (always "?").
func (d *SQLiteDialect) Placeholder(_ int) string {
	return "?"
}

// LikeOperator returns LIKE; SQLite LIKE is case-insensitive for ASCII.
func (d *SQLiteDialect) LikeOperator() string {
	return "LIKE"
}

// FormatDate renders strftime('format', column).
func (d *SQLiteDialect) FormatDate(column, format string) string {
	return "strftime(" + quoteLiteral(format) + ", " + column + ")"
}

// TruncateSQL returns DELETE FROM, as SQLite has no TRUNCATE statement.
func (d *SQLiteDialect) TruncateSQL(table string) string {
	return "DELETE FROM " + table
}
