// Package core implements the polysql access object: connection handling,
// the condition compiler, the execution engine, dialect translation,
// full-text search, transactions and the CRUD facade.
package core

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/coregx/polysql/internal/analyzer"
	"github.com/coregx/polysql/internal/cache"
	"github.com/coregx/polysql/internal/dialects"
	"github.com/coregx/polysql/internal/logger"
	"github.com/coregx/polysql/internal/metrics"
	"github.com/coregx/polysql/internal/security"
	"github.com/coregx/polysql/internal/tracer"
)

// DB is a single-connection access object for one MySQL, PostgreSQL or
// SQLite database. It keeps the pending statement, the result of the last
// execution and the current authoring dialect, so it is not safe for
// concurrent use.
type DB struct {
	sqlDB    *sql.DB
	kind     dialects.Kind
	dialect  dialects.Dialect
	database string

	// format is the dialect SQL is authored in; see WithFormat.
	format dialects.Kind

	tx      *sql.Tx
	txLabel string

	pending  statement
	rows     []Row
	cursor   int
	affected int64
	lastID   int64

	logger     logger.Logger
	sanitizer  *logger.Sanitizer
	tracer     tracer.Tracer
	metrics    *metrics.Collector
	queryHook  QueryHook
	auditor    *security.Auditor
	cache      cache.Cache
	translator *Translator
	analyzer   *analyzer.Analyzer
	server     *analyzer.Version

	minFTSLength  int
	debug         bool
	queryLog      *queryLog
	slowThreshold time.Duration
	versionTable  string
	versionColumn string
}

// statement is the pending SQL text with its named parameters.
type statement struct {
	sql    string
	params Params
}

// Option configures a DB.
type Option func(*DB)

// WithLogger sets the structured logger. The default discards everything.
func WithLogger(l logger.Logger) Option {
	return func(db *DB) {
		db.logger = logger.OrNoop(l)
	}
}

// WithTracer sets the tracer used for execute and search spans.
func WithTracer(t tracer.Tracer) Option {
	return func(db *DB) {
		if t != nil {
			db.tracer = t
		}
	}
}

// WithCache sets the cache that persists translation memos and full-text
// health flags. The default is a private in-memory cache.
func WithCache(c cache.Cache) Option {
	return func(db *DB) {
		if c != nil {
			db.cache = c
		}
	}
}

// WithQueryHook registers a callback invoked after every statement.
func WithQueryHook(hook QueryHook) Option {
	return func(db *DB) {
		db.queryHook = hook
	}
}

// WithAuditor writes an audit line for the statements selected by the auditor's level.
func WithAuditor(a *security.Auditor) Option {
	return func(db *DB) {
		db.auditor = a
	}
}

// WithMetrics records Prometheus metrics on c.
func WithMetrics(c *metrics.Collector) Option {
	return func(db *DB) {
		db.metrics = c
	}
}

// WithMinFullTextSearchLength sets the shortest query sent to native search.
func WithMinFullTextSearchLength(n int) Option {
	return func(db *DB) {
		if n >= 0 {
			db.minFTSLength = n
		}
	}
}

// WithQueryLogging persists slow and unparameterized statements to table.
// An empty table selects DefaultQueryLogTable.
func WithQueryLogging(table string) Option {
	return func(db *DB) {
		if table == "" {
			table = DefaultQueryLogTable
		}
		db.queryLog = newQueryLog(table)
	}
}

// WithSlowQueryThreshold sets the duration above which a statement is logged as slow.
func WithSlowQueryThreshold(d time.Duration) Option {
	return func(db *DB) {
		if d > 0 {
			db.slowThreshold = d
		}
	}
}

// WithDebug enables EXPLAIN diagnostics before every statement.
func WithDebug(enabled bool) Option {
	return func(db *DB) {
		db.debug = enabled
	}
}

// WithSchemaVersionTable sets the table and column read for the schema version.
func WithSchemaVersionTable(table, column string) Option {
	return func(db *DB) {
		if table != "" {
			db.versionTable = table
		}
		if column != "" {
			db.versionColumn = column
		}
	}
}

// WithDatabaseName records the database name reported in logs and spans.
func WithDatabaseName(name string) Option {
	return func(db *DB) {
		db.database = name
	}
}

// Open validates cfg, connects and returns a ready DB.
func Open(ctx context.Context, cfg Config, opts ...Option) (*DB, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	kind, _ := cfg.Kind()

	base := []Option{
		WithMinFullTextSearchLength(cfg.MinFullTextSearchLength),
		WithSlowQueryThreshold(cfg.SlowQueryThreshold),
		WithDebug(cfg.Debug),
		WithSchemaVersionTable(cfg.VersionTable, cfg.VersionColumn),
		WithDatabaseName(cfg.Database),
	}
	if cfg.LogQueries {
		base = append(base, WithQueryLogging(cfg.QueryLogTable))
	}
	if kind == dialects.SQLite && cfg.Database == "" {
		base = append(base, WithDatabaseName(cfg.SQLitePath))
	}
	opts = append(base, opts...)

	// Options are applied once up front so connect can log through the configured logger.
	probe := &DB{logger: &logger.NoopLogger{}}
	for _, opt := range opts {
		opt(probe)
	}

	if level, _ := security.ParseAuditLevel(cfg.Audit); level != security.AuditNone && probe.auditor == nil {
		opts = append(opts, WithAuditor(security.NewAuditor(probe.logger, level)))
	}

	sqlDB, err := connect(ctx, cfg, kind, probe.logger)
	if err != nil {
		return nil, err
	}
	return newDB(sqlDB, kind, opts...)
}

// WrapDB adopts an existing *sql.DB. The pool is limited to one connection
// and is closed by Close.
func WrapDB(sqlDB *sql.DB, kind dialects.Kind, opts ...Option) (*DB, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDialect, string(kind))
	}
	sqlDB.SetMaxOpenConns(1)
	return newDB(sqlDB, kind, opts...)
}

func newDB(sqlDB *sql.DB, kind dialects.Kind, opts ...Option) (*DB, error) {
	db := &DB{
		sqlDB:         sqlDB,
		kind:          kind,
		dialect:       dialects.MustFor(kind),
		format:        kind,
		logger:        &logger.NoopLogger{},
		sanitizer:     logger.NewSanitizer(),
		tracer:        &tracer.NoopTracer{},
		analyzer:      analyzer.New(kind),
		minFTSLength:  DefaultMinFullTextSearchLength,
		slowThreshold: DefaultSlowQueryThreshold,
		versionTable:  DefaultVersionTable,
		versionColumn: DefaultVersionColumn,
	}
	for _, opt := range opts {
		opt(db)
	}
	if db.cache == nil {
		db.cache = cache.NewMemory(cache.DefaultCapacity)
	}

	t, err := NewTranslator(db.cache)
	if err != nil {
		db.logger.Warn("discarding persisted translation memos", "error", err)
	}
	db.translator = t
	return db, nil
}

// Close flushes translation memos, rolls back an open transaction and
// closes the connection.
func (db *DB) Close() error {
	if err := db.translator.Flush(); err != nil {
		db.logger.Warn("failed to persist translation memos", "error", err)
	}
	if db.tx != nil {
		db.logger.Warn("rolling back transaction left open at close", "label", db.txLabel)
		_ = db.tx.Rollback()
		db.tx = nil
	}
	return db.sqlDB.Close()
}

// Kind returns the backend dialect.
func (db *DB) Kind() dialects.Kind {
	return db.kind
}

// Database returns the configured database name.
func (db *DB) Database() string {
	return db.database
}

// SQLDB returns the underlying pool.
func (db *DB) SQLDB() *sql.DB {
	return db.sqlDB
}

// Translator returns the memoizing translator.
func (db *DB) Translator() *Translator {
	return db.translator
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// conn returns the active transaction, or the pool when none is open.
// With a single pooled connection, anything issued on the pool while a
// transaction is open would block forever.
func (db *DB) conn() execer {
	if db.tx != nil {
		return db.tx
	}
	return db.sqlDB
}

// Ping checks that the backend answers. Inside a transaction the probe runs
// on the transaction, since the pool has no second connection to offer.
func (db *DB) Ping(ctx context.Context) error {
	var err error
	if db.tx != nil {
		var one int
		err = db.tx.QueryRowContext(ctx, "SELECT 1").Scan(&one)
	} else {
		err = db.sqlDB.PingContext(ctx)
	}
	if err != nil {
		db.logger.Warn("database health check failed", "database", db.database, "error", err)
		return fmt.Errorf("ping %s: %w", db.kind, err)
	}
	db.logger.Debug("database health check passed", "database", db.database)
	return nil
}
