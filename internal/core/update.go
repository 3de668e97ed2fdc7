package core

import (
	"context"
	"errors"

	"github.com/coregx/updatebulk/internal/bulk"
	"github.com/coregx/updatebulk/internal/metrics"
	"github.com/coregx/updatebulk/internal/schema"
	"github.com/coregx/updatebulk/internal/security"
	"github.com/coregx/updatebulk/internal/tracer"
)

// UpdateInBulk compiles batch into one statement and executes it. It returns
// the affected row count reported by the driver, which counts rows matched
// and changed, not the number of input rows. An empty batch, or one whose
// rows assign nothing, returns 0 without touching the database.
//
// Example:
//
//	n, err := db.UpdateInBulk(ctx, books, bulk.ByKey{
//	    1: {"qty": 5},
//	    2: {"qty": 3},
//	}, bulk.WithFormula("qty", "add"))
func (db *DB) UpdateInBulk(ctx context.Context, model *schema.Model, batch bulk.Batch, opts ...bulk.Option) (int64, error) {
	stmt, err := db.compile(ctx, model, batch, opts)
	if err != nil || stmt == nil {
		return 0, err
	}
	return db.newQuery(stmt, model.Table, nil).Execute(ctx)
}

// CompileUpdateInBulk compiles batch without executing it. The statement is
// nil for a batch that would update nothing.
func (db *DB) CompileUpdateInBulk(ctx context.Context, model *schema.Model, batch bulk.Batch, opts ...bulk.Option) (*bulk.Statement, error) {
	return db.compile(ctx, model, batch, opts)
}

// UpdateInBulk runs a bulk update inside the transaction.
func (tx *Tx) UpdateInBulk(ctx context.Context, model *schema.Model, batch bulk.Batch, opts ...bulk.Option) (int64, error) {
	stmt, err := tx.db.compile(ctx, model, batch, opts)
	if err != nil || stmt == nil {
		return 0, err
	}
	return tx.db.newQuery(stmt, model.Table, tx.tx).Execute(ctx)
}

// compile wraps bulk.Compile in a span, a metrics sample and a debug log.
func (db *DB) compile(ctx context.Context, model *schema.Model, batch bulk.Batch, opts []bulk.Option) (*bulk.Statement, error) {
	dialect := db.Dialect()
	_, span := db.tracer.StartSpan(ctx, tracer.SpanCompile)
	defer span.End()

	all := make([]bulk.Option, 0, len(db.compileOpts)+len(opts))
	all = append(all, db.compileOpts...)
	all = append(all, opts...)

	stmt, err := bulk.Compile(model, dialect, batch, all...)

	meta := &tracer.CompileMetadata{Database: dialect.Name(), Error: err}
	if model != nil {
		meta.Table = model.Table
	}
	path := metrics.PathNoop
	rows := 0
	if stmt != nil {
		rows = stmt.Rows
		path = metrics.PathJoined
		if stmt.Simple {
			path = metrics.PathSimple
		}
		meta.Rows = stmt.Rows
		meta.Simple = stmt.Simple
		meta.RowSourceWidth = stmt.RowSourceWidth
		meta.ConstantColumns = stmt.ConstantColumns
		meta.BitmaskColumns = stmt.BitmaskColumns
	}
	tracer.AddCompileAttributes(span, meta)
	db.metrics.ObserveCompile(dialect.Name(), path, rows, err)

	if err != nil {
		db.logger.Warn("bulk update rejected",
			"table", meta.Table,
			"dialect", dialect.Name(),
			"error", err)
		if errors.Is(err, security.ErrUnsafeFragment) {
			db.auditor.LogSecurityEvent(ctx, "raw_value_blocked", meta.Table, err)
		}
		return nil, err
	}
	db.logger.Debug("bulk update compiled",
		"table", meta.Table,
		"path", path,
		"rows", rows,
		"row_source_width", meta.RowSourceWidth,
		"constant_columns", meta.ConstantColumns,
		"bitmask_columns", meta.BitmaskColumns,
		"simple", meta.Simple)
	return stmt, nil
}
