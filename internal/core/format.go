package core

import (
	"fmt"

	"github.com/coregx/polysql/internal/dialects"
)

// Format returns the dialect SQL is currently authored in.
func (db *DB) Format() dialects.Kind {
	return db.format
}

// WithFormat runs fn with kind as the authoring dialect. Statements built or
// executed inside fn are read as kind and translated to the backend. The
// previous dialect is restored when fn returns, fails or panics.
func (db *DB) WithFormat(kind dialects.Kind, fn func() error) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: %q", ErrUnsupportedDialect, string(kind))
	}
	prev := db.format
	db.format = kind
	defer func() { db.format = prev }()
	return fn()
}

// FormatDate returns the backend's date formatting expression for column.
// format uses the tokens of the current authoring dialect.
func (db *DB) FormatDate(column, format string) string {
	return db.dialect.FormatDate(column, db.translator.DateFormat(format, db.format, db.kind))
}

// formatDialect returns the dialect used to quote identifiers while building SQL.
func (db *DB) formatDialect() dialects.Dialect {
	return dialects.MustFor(db.format)
}
