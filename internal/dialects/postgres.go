package dialects

import (
	"fmt"
	"strings"
)

// PostgresDialect implements PostgreSQL-specific SQL dialect.
type PostgresDialect struct{}

// Kind returns PgSQL.
func (d *PostgresDialect) Kind() Kind {
	return PgSQL
}

// QuoteIdentifier quotes a PostgreSQL identifier using double quotes.
func (d *PostgresDialect) QuoteIdentifier(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// Placeholder returns PostgreSQL placeholder format ($1, $2, etc.).
func (d *PostgresDialect) Placeholder(index int) string {
	return fmt.Sprintf("$%d", index)
}

// LikeOperator returns ILIKE, since LIKE is case-sensitive on PostgreSQL.
func (d *PostgresDialect) LikeOperator() string {
	return "ILIKE"
}

// FormatDate renders TO_CHAR(column, 'format').
func (d *PostgresDialect) FormatDate(column, format string) string {
	return "TO_CHAR(" + column + ", " + quoteLiteral(format) + ")"
}

// TruncateSQL returns TRUNCATE TABLE.
func (d *PostgresDialect) TruncateSQL(table string) string {
	return "TRUNCATE TABLE " + table
}
