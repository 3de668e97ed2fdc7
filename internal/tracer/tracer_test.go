package tracer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func newTestTracer(t *testing.T) (*OtelTracer, *tracetest.InMemoryExporter) {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return NewOtelTracer(tp.Tracer("test")), exporter
}

func attrMap(s tracetest.SpanStub) map[string]interface{} {
	out := make(map[string]interface{})
	for _, attr := range s.Attributes {
		out[string(attr.Key)] = attr.Value.AsInterface()
	}
	return out
}

func TestNoopTracer(t *testing.T) {
	tracer := &NoopTracer{}
	ctx := context.Background()

	// Should not panic
	got, span := tracer.StartSpan(ctx, SpanCompile)
	assert.Equal(t, ctx, got)
	span.SetAttributes(attribute.String("key", "value"))
	span.RecordError(errors.New("test error"))
	span.SetStatus(codes.Error, "error")
	span.End()
}

func TestOtelTracer(t *testing.T) {
	tracer, exporter := newTestTracer(t)

	_, span := tracer.StartSpan(context.Background(), SpanExecute)
	span.SetAttributes(attribute.String("key", "value"))
	span.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, SpanExecute, spans[0].Name)
	assert.Equal(t, trace.SpanKindClient, spans[0].SpanKind)
	assert.Equal(t, "value", attrMap(spans[0])["key"])
}

func TestOtelSpan_RecordError(t *testing.T) {
	tracer, exporter := newTestTracer(t)

	_, span := tracer.StartSpan(context.Background(), "test.error")
	testErr := errors.New("database connection failed")
	span.RecordError(testErr)
	span.SetStatus(codes.Error, testErr.Error())
	span.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	require.Len(t, spans[0].Events, 1)
	assert.Equal(t, "exception", spans[0].Events[0].Name)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
}

func TestAddCompileAttributes(t *testing.T) {
	tracer, exporter := newTestTracer(t)

	_, span := tracer.StartSpan(context.Background(), SpanCompile)
	AddCompileAttributes(span, &CompileMetadata{
		Database:        "postgres",
		Table:           "books",
		Rows:            2,
		RowSourceWidth:  4,
		ConstantColumns: []string{"price"},
		BitmaskColumns:  []string{"notes"},
	})
	span.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	attrs := attrMap(spans[0])
	assert.Equal(t, "postgres", attrs["db.system"])
	assert.Equal(t, "books", attrs["db.sql.table"])
	assert.Equal(t, int64(2), attrs["updatebulk.rows"])
	assert.Equal(t, int64(4), attrs["updatebulk.row_source_width"])
	assert.Equal(t, false, attrs["updatebulk.simple"])
	assert.Equal(t, []string{"price"}, attrs["updatebulk.constant_columns"])
	assert.Equal(t, []string{"notes"}, attrs["updatebulk.bitmask_columns"])
	assert.Equal(t, codes.Ok, spans[0].Status.Code)
}

func TestAddCompileAttributes_SimpleWithError(t *testing.T) {
	tracer, exporter := newTestTracer(t)

	_, span := tracer.StartSpan(context.Background(), SpanCompile)
	AddCompileAttributes(span, &CompileMetadata{
		Database: "sqlite",
		Table:    "books",
		Error:    errors.New("unknown column"),
	})
	span.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	attrs := attrMap(spans[0])
	assert.NotContains(t, attrs, "updatebulk.row_source_width")
	assert.NotContains(t, attrs, "updatebulk.constant_columns")
	assert.Equal(t, codes.Error, spans[0].Status.Code)
	assert.Equal(t, "unknown column", spans[0].Status.Description)
}

func TestAddQueryAttributes_Success(t *testing.T) {
	tracer, exporter := newTestTracer(t)

	_, span := tracer.StartSpan(context.Background(), SpanExecute)
	AddQueryAttributes(span, &QueryMetadata{
		SQL:          `UPDATE "books" SET "qty" = $1 WHERE "books"."id" = $2`,
		Duration:     15 * time.Millisecond,
		RowsAffected: 1,
		Database:     "postgres",
		Table:        "books",
	})
	span.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	attrs := attrMap(spans[0])
	assert.Equal(t, "postgres", attrs["db.system"])
	assert.Equal(t, `UPDATE "books" SET "qty" = $1 WHERE "books"."id" = $2`, attrs["db.statement"])
	assert.Equal(t, "UPDATE", attrs["db.operation"])
	assert.Equal(t, "books", attrs["db.sql.table"])
	assert.Equal(t, int64(1), attrs["db.rows_affected"])
	assert.InDelta(t, 15.0, attrs["db.duration_ms"], 0.1)
	assert.Equal(t, codes.Ok, spans[0].Status.Code)
}

func TestAddQueryAttributes_WithError(t *testing.T) {
	tracer, exporter := newTestTracer(t)

	_, span := tracer.StartSpan(context.Background(), SpanExecute)
	AddQueryAttributes(span, &QueryMetadata{
		SQL:      `UPDATE "books" SET "qty" = ?`,
		Duration: 5 * time.Millisecond,
		Error:    errors.New("database is locked"),
		Database: "sqlite",
	})
	span.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.NotContains(t, attrMap(spans[0]), "db.rows_affected")
	assert.Equal(t, codes.Error, spans[0].Status.Code)
	assert.Equal(t, "database is locked", spans[0].Status.Description)
	assert.Len(t, spans[0].Events, 1)
}

func BenchmarkNoopTracer(b *testing.B) {
	tracer := &NoopTracer{}
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, span := tracer.StartSpan(ctx, SpanExecute)
		span.SetAttributes(attribute.String("key", "value"))
		span.End()
	}
}
