package core

import (
	"errors"
	"fmt"

	"github.com/coregx/polysql/internal/dialects"
)

// Error categories. Test with errors.Is.
var (
	// ErrInvalidConfig covers bad connection parameters, unsupported dialects
	// and malformed query options. These are never retried.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrResource is returned when a local resource such as the SQLite file
	// is missing or not writable.
	ErrResource = errors.New("resource unavailable")
)

var (
	// ErrUnsupportedDialect is returned for a dialect outside mysql, pgsql and sqlite.
	ErrUnsupportedDialect = fmt.Errorf("%w: %w", ErrInvalidConfig, dialects.ErrUnsupported)
	// ErrInvalidOption is returned for query options of the wrong shape.
	ErrInvalidOption = fmt.Errorf("%w: invalid query option", ErrInvalidConfig)
	// ErrMissingWhere is returned when DELETE or UPDATE is called without a condition.
	ErrMissingWhere = fmt.Errorf("%w: where condition required", ErrInvalidOption)
	// ErrNoStatement is returned when Execute runs with no pending statement.
	ErrNoStatement = errors.New("no pending statement")
	// ErrTxActive is returned by Begin while a transaction is open.
	ErrTxActive = errors.New("transaction already active")
	// ErrNoTx is returned by Commit or Rollback without an open transaction.
	ErrNoTx = errors.New("no active transaction")
)

// invalidOption wraps ErrInvalidOption with a formatted detail.
func invalidOption(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidOption, fmt.Sprintf(format, args...))
}
