// Package dialects provides the MySQL, PostgreSQL and SQLite dialects: identifier
// quoting, placeholders, date formatting, and the text translators that rewrite
// SQL authored for one dialect so it runs on another.
package dialects

import (
	"errors"
	"fmt"
	"strings"
)

// Kind identifies one of the supported SQL dialects.
type Kind string

// Supported dialect kinds.
const (
	MySQL  Kind = "mysql"
	PgSQL  Kind = "pgsql"
	SQLite Kind = "sqlite"
)

// ErrUnsupported is returned for a dialect name outside the supported set.
var ErrUnsupported = errors.New("unsupported dialect")

// Kinds lists every supported dialect kind.
func Kinds() []Kind {
	return []Kind{MySQL, PgSQL, SQLite}
}

// Valid reports whether k is one of the supported kinds.
func (k Kind) Valid() bool {
	switch k {
	case MySQL, PgSQL, SQLite:
		return true
	}
	return false
}

func (k Kind) String() string {
	return string(k)
}

// ParseKind maps a dialect or driver name to its Kind.
// Driver aliases such as "postgres", "sqlite3" and "mariadb" are accepted.
func ParseKind(name string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "mysql", "mariadb":
		return MySQL, nil
	case "pgsql", "postgres", "postgresql":
		return PgSQL, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupported, name)
}

// Dialect defines database-specific behaviors.
type Dialect interface {
	// Kind returns the dialect kind.
	Kind() Kind
	// QuoteIdentifier quotes a single identifier part.
	QuoteIdentifier(string) string
	// Placeholder returns the positional placeholder for a 1-based index.
	Placeholder(int) string
	// LikeOperator returns the case-insensitive substring match operator.
	LikeOperator() string
	// FormatDate renders a date formatting expression; format uses this dialect's tokens.
	FormatDate(column, format string) string
	// TruncateSQL returns the statement that empties a table.
	TruncateSQL(table string) string
}

// For returns the Dialect implementation for k.
func For(k Kind) (Dialect, error) {
	switch k {
	case MySQL:
		return &MySQLDialect{}, nil
	case PgSQL:
		return &PostgresDialect{}, nil
	case SQLite:
		return &SQLiteDialect{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupported, string(k))
}

// MustFor is like For but panics on an unsupported kind.
func MustFor(k Kind) Dialect {
	d, err := For(k)
	if err != nil {
		panic(err)
	}
	return d
}

// quoteLiteral wraps s in single quotes, doubling embedded quotes.
func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
