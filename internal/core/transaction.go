package core

import (
	"context"
	"fmt"
)

// Begin opens a transaction. label is carried in log lines for the
// transaction's lifetime. Nesting is not supported.
func (db *DB) Begin(ctx context.Context, label string) error {
	if db.tx != nil {
		return fmt.Errorf("%w: %q is still open", ErrTxActive, db.txLabel)
	}
	tx, err := db.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		db.logger.Error("begin transaction failed", "label", label, "error", err)
		return fmt.Errorf("begin transaction: %w", err)
	}
	db.tx = tx
	db.txLabel = label
	db.logger.Info("transaction started", "label", label, "database", db.database)
	return nil
}

// Commit commits the open transaction.
func (db *DB) Commit(label string) error {
	if db.tx == nil {
		return ErrNoTx
	}
	err := db.tx.Commit()
	db.endTx()
	if err != nil {
		db.logger.Error("commit failed", "label", label, "error", err)
		return fmt.Errorf("commit: %w", err)
	}
	db.logger.Info("transaction committed", "label", label, "database", db.database)
	return nil
}

// Rollback rolls back the open transaction.
func (db *DB) Rollback(label string) error {
	if db.tx == nil {
		return ErrNoTx
	}
	err := db.tx.Rollback()
	db.endTx()
	if err != nil {
		db.logger.Error("rollback failed", "label", label, "error", err)
		return fmt.Errorf("rollback: %w", err)
	}
	db.logger.Info("transaction rolled back", "label", label, "database", db.database)
	return nil
}

// InTransaction reports whether a transaction is open.
func (db *DB) InTransaction() bool {
	return db.tx != nil
}

func (db *DB) endTx() {
	db.tx = nil
	db.txLabel = ""
}
