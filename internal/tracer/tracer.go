// Package tracer provides distributed tracing abstractions for updatebulk.
// It supports OpenTelemetry and allows custom tracer implementations.
package tracer

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Span names.
const (
	SpanCompile = "updatebulk.compile"
	SpanExecute = "updatebulk.execute"
)

// Tracer starts spans.
type Tracer interface {
	StartSpan(ctx context.Context, name string) (context.Context, Span)
}

// Span captures one operation.
type Span interface {
	SetAttributes(attrs ...attribute.KeyValue)
	RecordError(err error)
	SetStatus(code codes.Code, description string)
	End()
}

// NoopTracer is a tracer that does nothing. It is the default when no tracer
// is configured.
type NoopTracer struct{}

// StartSpan returns the context unchanged with a no-op span.
func (n *NoopTracer) StartSpan(ctx context.Context, _ string) (context.Context, Span) {
	return ctx, &NoopSpan{}
}

// NoopSpan is a span that does nothing.
type NoopSpan struct{}

// SetAttributes does nothing.
func (n *NoopSpan) SetAttributes(_ ...attribute.KeyValue) {}

// RecordError does nothing.
func (n *NoopSpan) RecordError(_ error) {}

// SetStatus does nothing.
func (n *NoopSpan) SetStatus(_ codes.Code, _ string) {}

// End does nothing.
func (n *NoopSpan) End() {}

// OtelTracer adapts an OpenTelemetry tracer.
type OtelTracer struct {
	tracer trace.Tracer
}

// NewOtelTracer creates a new OpenTelemetry tracer adapter.
// The provided tracer must not be nil.
func NewOtelTracer(tracer trace.Tracer) *OtelTracer {
	return &OtelTracer{tracer: tracer}
}

// StartSpan starts a client span.
func (t *OtelTracer) StartSpan(ctx context.Context, name string) (context.Context, Span) {
	ctx, span := t.tracer.Start(ctx, name, trace.WithSpanKind(trace.SpanKindClient))
	return ctx, &OtelSpan{span: span}
}

// OtelSpan wraps an OpenTelemetry span.
type OtelSpan struct {
	span trace.Span
}

// SetAttributes sets OpenTelemetry attributes on the span.
func (s *OtelSpan) SetAttributes(attrs ...attribute.KeyValue) {
	s.span.SetAttributes(attrs...)
}

// RecordError records an error on the span.
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

// CompileMetadata describes one compiled batch.
type CompileMetadata struct {
	Database        string
	Table           string
	Rows            int
	RowSourceWidth  int
	Simple          bool
	ConstantColumns []string
	BitmaskColumns  []string
	Error           error
}

// AddCompileAttributes adds compile attributes to a span.
func AddCompileAttributes(span Span, meta *CompileMetadata) {
	attrs := []attribute.KeyValue{
		attribute.String("db.system", meta.Database),
		attribute.String("db.sql.table", meta.Table),
		attribute.Int("updatebulk.rows", meta.Rows),
		attribute.Bool("updatebulk.simple", meta.Simple),
	}
	if meta.RowSourceWidth > 0 {
		attrs = append(attrs, attribute.Int("updatebulk.row_source_width", meta.RowSourceWidth))
	}
	if len(meta.ConstantColumns) > 0 {
		attrs = append(attrs, attribute.StringSlice("updatebulk.constant_columns", meta.ConstantColumns))
	}
	if len(meta.BitmaskColumns) > 0 {
		attrs = append(attrs, attribute.StringSlice("updatebulk.bitmask_columns", meta.BitmaskColumns))
	}
	span.SetAttributes(attrs...)
	setStatus(span, meta.Error)
}

// QueryMetadata describes one executed statement, following the OpenTelemetry
// database semantic conventions.
// See: https://opentelemetry.io/docs/specs/semconv/database/
type QueryMetadata struct {
	SQL          string
	Duration     time.Duration
	RowsAffected int64
	Error        error
	// Database is the database system name (postgres, mysql, mariadb, sqlite).
	Database string
	Table    string
}

// AddQueryAttributes adds database attributes to a span.
func AddQueryAttributes(span Span, meta *QueryMetadata) {
	attrs := []attribute.KeyValue{
		attribute.String("db.system", meta.Database),
		attribute.String("db.statement", meta.SQL),
		attribute.String("db.operation", "UPDATE"),
		attribute.Float64("db.duration_ms", float64(meta.Duration.Microseconds())/1000.0),
	}
	if meta.Table != "" {
		attrs = append(attrs, attribute.String("db.sql.table", meta.Table))
	}
	if meta.Error == nil {
		attrs = append(attrs, attribute.Int64("db.rows_affected", meta.RowsAffected))
	}
	span.SetAttributes(attrs...)
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
