package core

import (
	"context"
	"database/sql"
	"time"

	"github.com/coregx/updatebulk/internal/bulk"
	"github.com/coregx/updatebulk/internal/tracer"
)

// Query executes one compiled bulk update.
// When tx is not nil, the query executes within that transaction.
type Query struct {
	stmt  *bulk.Statement
	table string
	db    *DB
	tx    *sql.Tx // nil for non-transactional queries
}

func (db *DB) newQuery(stmt *bulk.Statement, table string, tx *sql.Tx) *Query {
	return &Query{stmt: stmt, table: table, db: db, tx: tx}
}

// prepareStatement prepares the statement, using the transaction or the
// statement cache. needsClose is true for statements the cache does not own.
func (q *Query) prepareStatement(ctx context.Context) (stmt *sql.Stmt, needsClose bool, err error) {
	if q.tx != nil {
		stmt, err = q.tx.PrepareContext(ctx, q.stmt.SQL)
		if err != nil {
			return nil, false, err
		}
		return stmt, true, nil
	}
	return q.db.stmtCache.Prepare(ctx, q.db.sqlDB, q.stmt.SQL)
}

// Execute runs the statement and returns the affected row count.
func (q *Query) Execute(ctx context.Context) (int64, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := q.db.tracer.StartSpan(ctx, tracer.SpanExecute)
	defer span.End()

	start := time.Now()

	stmt, needsClose, err := q.prepareStatement(ctx)
	if err != nil {
		err = WrapError(err, "prepare bulk update")
		q.finish(ctx, span, time.Since(start), 0, err)
		return 0, err
	}
	if needsClose {
		defer func() { _ = stmt.Close() }()
	}

	var affected int64
	result, err := stmt.ExecContext(ctx, q.stmt.Args...)
	if err == nil {
		affected, err = result.RowsAffected()
	}
	if err != nil {
		err = WrapError(err, "execute bulk update")
	}
	q.finish(ctx, span, time.Since(start), affected, err)
	return affected, err
}

// finish reports one execution to the logger, span, metrics and hook.
func (q *Query) finish(ctx context.Context, span tracer.Span, elapsed time.Duration, affected int64, err error) {
	database := q.db.Dialect().Name()
	params := q.db.sanitizer.FormatParams(q.db.sanitizer.MaskParams(q.stmt.SQL, q.stmt.Args))

	if err != nil {
		q.db.logger.Error("bulk update failed",
			"sql", q.stmt.SQL,
			"params", params,
			"duration_ms", elapsed.Milliseconds(),
			"database", database,
			"error", err,
		)
	} else {
		q.db.logger.Info("bulk update executed",
			"sql", q.stmt.SQL,
			"params", params,
			"duration_ms", elapsed.Milliseconds(),
			"rows_affected", affected,
			"database", database,
		)
	}

	tracer.AddQueryAttributes(span, &tracer.QueryMetadata{
		SQL:          q.stmt.SQL,
		Duration:     elapsed,
		RowsAffected: affected,
		Error:        err,
		Database:     database,
		Table:        q.table,
	})
	q.db.metrics.ObserveExecute(database, elapsed, affected, err)
	q.db.auditor.LogUpdate(ctx, q.table, q.stmt.SQL, q.stmt.Args, q.stmt.Rows, affected, err, elapsed)
	q.db.invokeHook(ctx, QueryEvent{
		SQL:          q.stmt.SQL,
		Args:         q.stmt.Args,
		Duration:     elapsed,
		RowsAffected: affected,
		Error:        err,
		Table:        q.table,
		Rows:         q.stmt.Rows,
		Database:     database,
	})
}
