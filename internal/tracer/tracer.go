// Package tracer provides the tracing abstraction used by polysql, with a
// no-op default and an OpenTelemetry implementation.
package tracer

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Span names emitted by polysql.
const (
	SpanExecute = "polysql.execute"
	SpanSearch  = "polysql.search"
)

// Tracer starts spans.
type Tracer interface {
	// StartSpan starts a span named name and returns the context carrying it.
	StartSpan(ctx context.Context, name string) (context.Context, Span)
}

// Span captures one traced operation.
type Span interface {
	// SetAttributes sets key-value attributes on the span
	SetAttributes(attrs ...attribute.KeyValue)
	// RecordError records an error that occurred during the span
	RecordError(err error)
	// SetStatus sets the status code and description of the span
	SetStatus(code codes.Code, description string)
	// End marks the span as complete
	End()
}

// NoopTracer records nothing. It is the default when tracing is not configured.
type NoopTracer struct{}

// StartSpan returns ctx unchanged with a no-op span.
func (n *NoopTracer) StartSpan(ctx context.Context, _ string) (context.Context, Span) {
	return ctx, &NoopSpan{}
}

// NoopSpan does nothing.
type NoopSpan struct{}

// SetAttributes does nothing.
func (n *NoopSpan) SetAttributes(_ ...attribute.KeyValue) {}

// RecordError does nothing.
func (n *NoopSpan) RecordError(_ error) {}

// SetStatus does nothing.
func (n *NoopSpan) SetStatus(_ codes.Code, _ string) {}

// End does nothing.
func (n *NoopSpan) End() {}

// OtelTracer adapts an OpenTelemetry trace.Tracer.
type OtelTracer struct {
	tracer trace.Tracer
}

// NewOtelTracer wraps tracer, which must not be nil.
func NewOtelTracer(tracer trace.Tracer) *OtelTracer {
	return &OtelTracer{tracer: tracer}
}

// StartSpan starts an OpenTelemetry span.
func (t *OtelTracer) StartSpan(ctx context.Context, name string) (context.Context, Span) {
	ctx, span := t.tracer.Start(ctx, name)
	return ctx, &OtelSpan{span: span}
}

// OtelSpan wraps a trace.Span.
type OtelSpan struct {
	span trace.Span
}

// SetAttributes sets attributes on the span.
func (s *OtelSpan) SetAttributes(attrs ...attribute.KeyValue) {
	s.span.SetAttributes(attrs...)
}

// RecordError records err as a span event.
func (s *OtelSpan) RecordError(err error) {
	s.span.RecordError(err)
}

// SetStatus sets the span status.
func (s *OtelSpan) SetStatus(code codes.Code, description string) {
	s.span.SetStatus(code, description)
}

// End completes the span.
func (s *OtelSpan) End() {
	s.span.End()
}

// StatementMetadata describes one executed statement.
// Attribute names follow the OpenTelemetry database semantic conventions.
type StatementMetadata struct {
	SQL          string
	ParamCount   int
	Duration     time.Duration
	RowsAffected int64
	RowsReturned int
	Error        error
	// System is the backend kind: mysql, pgsql or sqlite.
	System    string
	Database  string
	Operation string
	// Format is the authoring dialect when it differs from System.
	Format string
}

// AddStatementAttributes records meta on span and sets its status.
func AddStatementAttributes(span Span, meta *StatementMetadata) {
	attrs := []attribute.KeyValue{
		attribute.String("db.system", meta.System),
		attribute.String("db.statement", meta.SQL),
		attribute.String("db.operation", meta.Operation),
		attribute.Int("db.params", meta.ParamCount),
		attribute.Float64("db.duration_ms", float64(meta.Duration.Microseconds())/1000.0),
	}
	if meta.Database != "" {
		attrs = append(attrs, attribute.String("db.name", meta.Database))
	}
	if meta.Format != "" && meta.Format != meta.System {
		attrs = append(attrs, attribute.String("polysql.format", meta.Format))
	}
	if meta.RowsAffected > 0 {
		attrs = append(attrs, attribute.Int64("db.rows_affected", meta.RowsAffected))
	}
	if meta.RowsReturned > 0 {
		attrs = append(attrs, attribute.Int("db.rows_returned", meta.RowsReturned))
	}
	span.SetAttributes(attrs...)
	setStatus(span, meta.Error)
}

// SearchMetadata describes one full-text search call.
type SearchMetadata struct {
	System  string
	Table   string
	Columns []string
	// Path is the strategy that produced the result: native, fallback or plain.
	Path  string
	Rows  int
	Error error
}

// AddSearchAttributes records meta on span and sets its status.
func AddSearchAttributes(span Span, meta *SearchMetadata) {
	span.SetAttributes(
		attribute.String("db.system", meta.System),
		attribute.String("db.sql.table", meta.Table),
		attribute.StringSlice("polysql.search.columns", meta.Columns),
		attribute.String("polysql.search.path", meta.Path),
		attribute.Int("db.rows_returned", meta.Rows),
	)
	setStatus(span, meta.Error)
}

func setStatus(span Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return
	}
	span.SetStatus(codes.Ok, "")
}

// DetectOperation returns the leading SQL keyword of sql in upper case.
// WITH is reported as SELECT. Unrecognized statements yield UNKNOWN.
func DetectOperation(sql string) string {
	sql = strings.TrimLeft(sql, " \t\r\n(")
	end := strings.IndexFunc(sql, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z')
	})
	if end < 0 {
		end = len(sql)
	}
	word := strings.ToUpper(sql[:end])
	switch word {
	case "WITH":
		return "SELECT"
	case "SELECT", "INSERT", "UPDATE", "DELETE", "REPLACE", "TRUNCATE",
		"EXPLAIN", "PRAGMA", "SHOW", "VALUES", "CREATE", "DROP", "ALTER",
		"SAVEPOINT", "RELEASE", "ROLLBACK":
		return word
	}
	return "UNKNOWN"
}
