package dialects

import (
	"strings"
)

// MySQLDialect implements MySQL-specific SQL dialect.
type MySQLDialect struct{}

// Kind returns MySQL.
func (d *MySQLDialect) Kind() Kind {
	return MySQL
}

// QuoteIdentifier quotes a MySQL identifier using backticks.
func (d *MySQLDialect) QuoteIdentifier(s string) string {
	return "`" + strings.ReplaceAll(s, "`", "``") + "`"
}

// Placeholder returns MySQL placeholder format (always "?").
func (d *MySQLDialect) Placeholder(_ int) string {
	return "?"
}

// LikeOperator returns LIKE; MySQL collations are case-insensitive by default.
func (d *MySQLDialect) LikeOperator() string {
	return "LIKE"
}

// FormatDate renders DATE_FORMAT(column, 'format').
func (d *MySQLDialect) FormatDate(column, format string) string {
	return "DATE_FORMAT(" + column + ", " + quoteLiteral(format) + ")"
}

// TruncateSQL returns TRUNCATE TABLE.
func (d *MySQLDialect) TruncateSQL(table string) string {
	return "TRUNCATE TABLE " + table
}
