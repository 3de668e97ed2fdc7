package logger

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNoopLogger(t *testing.T) {
	logger := &NoopLogger{}

	// Should not panic
	logger.Debug("test", "key", "value")
	logger.Info("test")
	logger.Warn("test")
	logger.Error("test", "key", "value")
}

func TestSlogAdapter(t *testing.T) {
	tests := []struct {
		name      string
		logFunc   func(Logger, string, ...any)
		args      []any
		wantLevel string
		wantField string
	}{
		{
			name:      "Debug level",
			logFunc:   func(l Logger, msg string, args ...any) { l.Debug(msg, args...) },
			args:      []any{"row_source_width", 3},
			wantLevel: "level=DEBUG",
			wantField: "row_source_width=3",
		},
		{
			name:      "Info level",
			logFunc:   func(l Logger, msg string, args ...any) { l.Info(msg, args...) },
			args:      []any{"rows_affected", 2},
			wantLevel: "level=INFO",
			wantField: "rows_affected=2",
		},
		{
			name:      "Warn level",
			logFunc:   func(l Logger, msg string, args ...any) { l.Warn(msg, args...) },
			args:      []any{"database", "mysql"},
			wantLevel: "level=WARN",
			wantField: "database=mysql",
		},
		{
			name:      "Error level",
			logFunc:   func(l Logger, msg string, args ...any) { l.Error(msg, args...) },
			args:      []any{"error", "deadlock"},
			wantLevel: "level=ERROR",
			wantField: "error=deadlock",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			handler := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
			logger := NewSlogAdapter(slog.New(handler))

			tt.logFunc(logger, "bulk update", tt.args...)

			output := buf.String()
			assert.Contains(t, output, tt.wantLevel)
			assert.Contains(t, output, `msg="bulk update"`)
			assert.Contains(t, output, tt.wantField)
		})
	}
}

func TestSlogAdapterJSONHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := NewSlogAdapter(slog.New(slog.NewJSONHandler(&buf, nil)))

	logger.Info("bulk update executed",
		"sql", `UPDATE "books" SET "qty" = ? WHERE "books"."id" = ?`,
		"duration_ms", 15,
		"rows_affected", 1)

	output := buf.String()
	assert.Contains(t, output, `"msg":"bulk update executed"`)
	assert.Contains(t, output, `"duration_ms":15`)
	assert.Contains(t, output, `"rows_affected":1`)
}

func TestNewSlogAdapterNilUsesDefault(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	NewSlogAdapter(nil).Info("hello", "k", "v")
	assert.Contains(t, buf.String(), "k=v")
}

type recorder struct {
	msgs []string
	args [][]any
}

func (r *recorder) Debug(msg string, args ...any) { r.record(msg, args) }
func (r *recorder) Info(msg string, args ...any)  { r.record(msg, args) }
func (r *recorder) Warn(msg string, args ...any)  { r.record(msg, args) }
func (r *recorder) Error(msg string, args ...any) { r.record(msg, args) }

func (r *recorder) record(msg string, args []any) {
	r.msgs = append(r.msgs, msg)
	r.args = append(r.args, args)
}

func TestWith(t *testing.T) {
	t.Run("slog", func(t *testing.T) {
		var buf bytes.Buffer
		base := NewSlogAdapter(slog.New(slog.NewTextHandler(&buf, nil)))

		With(base, "table", "books").Info("compiled", "rows", 2)
		assert.Contains(t, buf.String(), "table=books")
		assert.Contains(t, buf.String(), "rows=2")
	})

	t.Run("custom", func(t *testing.T) {
		rec := &recorder{}
		With(rec, "table", "books").Warn("slow", "duration_ms", 900)
		assert.Equal(t, []string{"slow"}, rec.msgs)
		assert.Equal(t, []any{"duration_ms", 900, "table", "books"}, rec.args[0])
	})

	t.Run("noop and empty", func(t *testing.T) {
		rec := &recorder{}
		assert.Same(t, Logger(rec), With(rec))
		assert.IsType(t, &NoopLogger{}, With(nil, "a", 1))
	})
}

func BenchmarkNoopLogger(b *testing.B) {
	logger := &NoopLogger{}
	for i := 0; i < b.N; i++ {
		logger.Info("bulk update executed", "rows_affected", 100)
	}
}
