// Package polysql is a single-connection database access layer for MySQL,
// PostgreSQL and SQLite. SQL is authored with named parameters in any of the
// three dialects and rewritten for the connected backend; full-text search
// uses the backend's native index and falls back to LIKE matching when the
// index is unusable.
//
// Basic usage:
//
//	cfg, err := polysql.LoadConfig("db.yaml")
//	if err != nil {
//		return err
//	}
//	db, err := polysql.Open(ctx, cfg, polysql.WithLogger(polysql.NewSlogAdapter(slog.Default())))
//	if err != nil {
//		return err
//	}
//	defer db.Close()
//
//	err = db.Select(ctx, []string{"id", "title"}, "articles", polysql.QueryOptions{
//		Where: polysql.Where{polysql.Eq("status", "active")},
//		Order: "id DESC",
//		Limit: 10,
//	})
//	for _, row := range db.ResultRows() {
//		fmt.Println(row.String("title"))
//	}
//
// A DB keeps the pending statement and the last result, so it must not be
// shared between goroutines.
package polysql

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"

	"github.com/coregx/polysql/internal/cache"
	"github.com/coregx/polysql/internal/core"
	"github.com/coregx/polysql/internal/dialects"
	"github.com/coregx/polysql/internal/logger"
	"github.com/coregx/polysql/internal/metrics"
	"github.com/coregx/polysql/internal/security"
	"github.com/coregx/polysql/internal/tracer"
)

type (
	// DB is a single-connection access object for one database.
	DB = core.DB
	// Config describes how to connect to one backend.
	Config = core.Config
	// Option configures a DB.
	Option = core.Option
	// QueryOptions carries WHERE, GROUP BY, ORDER BY, LIMIT and parameters.
	QueryOptions = core.QueryOptions
	// Where is a structured condition list joined with AND.
	Where = core.Where
	// Cond is one structured condition.
	Cond = core.Cond
	// Params maps ":name" placeholders to values.
	Params = core.Params
	// Row is one result row keyed by column name.
	Row = core.Row
	// JoinClause is one JOIN of a Join call.
	JoinClause = core.JoinClause
	// QueryEvent describes one executed statement.
	QueryEvent = core.QueryEvent
	// QueryHook receives every executed statement.
	QueryHook = core.QueryHook
	// Translator converts date formats and unescapes identifiers with persisted memos.
	Translator = core.Translator

	// Kind names a SQL dialect.
	Kind = dialects.Kind
	// Logger is the structured logging interface.
	Logger = logger.Logger
	// Cache is the versioned store behind translation memos and search health flags.
	Cache = cache.Cache
	// Tracer starts spans for executed statements and searches.
	Tracer = tracer.Tracer
	// Metrics holds the Prometheus collectors.
	Metrics = metrics.Collector
	// Auditor writes an audit line per statement.
	Auditor = security.Auditor
	// AuditLevel selects which statements are audited.
	AuditLevel = security.AuditLevel
)

// Dialects.
const (
	MySQL  = dialects.MySQL
	PgSQL  = dialects.PgSQL
	SQLite = dialects.SQLite
)

// Search paths reported in spans.
const (
	PathNative   = core.PathNative
	PathFallback = core.PathFallback
	PathPlain    = core.PathPlain
	SearchAll    = core.SearchAll
)

// Audit levels.
const (
	AuditNone   = security.AuditNone
	AuditWrites = security.AuditWrites
	AuditAll    = security.AuditAll
)

// Errors. Test with errors.Is.
var (
	ErrInvalidConfig      = core.ErrInvalidConfig
	ErrResource           = core.ErrResource
	ErrUnsupportedDialect = core.ErrUnsupportedDialect
	ErrInvalidOption      = core.ErrInvalidOption
	ErrMissingWhere       = core.ErrMissingWhere
	ErrNoStatement        = core.ErrNoStatement
	ErrTxActive           = core.ErrTxActive
	ErrNoTx               = core.ErrNoTx
	ErrUnsafeName         = security.ErrUnsafeName
)

// Constructors and options.
var (
	Open       = core.Open
	WrapDB     = core.WrapDB
	LoadConfig = core.LoadConfig
	ParseKind  = dialects.ParseKind

	WithLogger                  = core.WithLogger
	WithTracer                  = core.WithTracer
	WithCache                   = core.WithCache
	WithQueryHook               = core.WithQueryHook
	WithAuditor                 = core.WithAuditor
	WithMetrics                 = core.WithMetrics
	WithMinFullTextSearchLength = core.WithMinFullTextSearchLength
	WithQueryLogging            = core.WithQueryLogging
	WithSlowQueryThreshold      = core.WithSlowQueryThreshold
	WithDebug                   = core.WithDebug
	WithSchemaVersionTable      = core.WithSchemaVersionTable
	WithDatabaseName            = core.WithDatabaseName
	ParseAuditLevel             = security.ParseAuditLevel
	TranslateDateFormat         = dialects.TranslateDateFormat
	RewriteIdentifiers          = dialects.RewriteIdentifiers
	UnescapeIdentifier          = dialects.UnescapeIdentifier
	CompileOptions              = core.CompileOptions
	NewTranslator               = core.NewTranslator
	WithUser                    = security.WithUser
	WithClientIP                = security.WithClientIP
	WithRequestID               = security.WithRequestID
)

// Condition builders.
var (
	Raw = core.Raw
	Eq  = core.Eq
	Or  = core.Or
	Not = core.Not
)

// NewSlogAdapter wraps l as a Logger.
func NewSlogAdapter(l *slog.Logger) Logger {
	return logger.NewSlogAdapter(l)
}

// NewMemoryCache returns an in-process LRU Cache. A non-positive capacity
// selects the default.
func NewMemoryCache(capacity int) Cache {
	return cache.NewMemory(capacity)
}

// NewOtelTracer adapts an OpenTelemetry tracer.
func NewOtelTracer(t trace.Tracer) Tracer {
	return tracer.NewOtelTracer(t)
}

// NewMetrics registers the polysql collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return metrics.New(reg)
}

// NewAuditor creates an auditor writing to l.
func NewAuditor(l Logger, level AuditLevel) *Auditor {
	return security.NewAuditor(l, level)
}
