package core

import (
	"context"
	"time"
)

// QueryEvent describes one executed bulk update.
// It is passed to QueryHook callbacks for logging, metrics, or tracing.
type QueryEvent struct {
	// SQL is the executed statement.
	SQL string
	// Args are the unmasked statement arguments.
	Args []interface{}
	// Duration covers preparation and execution.
	Duration time.Duration
	// RowsAffected is the count reported by the driver.
	RowsAffected int64
	// Error is any error that occurred during execution (nil on success).
	Error error
	// Table is the updated table.
	Table string
	// Rows is the number of input rows compiled into the statement.
	Rows int
	// Database is the dialect name (postgres, mysql, mariadb, sqlite).
	Database string
}

// QueryHook is a callback function invoked after each bulk update execution.
//
// Example:
//
//	db, _ := updatebulk.Open("postgres", dsn,
//	    updatebulk.WithQueryHook(func(ctx context.Context, e updatebulk.QueryEvent) {
//	        slog.Info("bulk update", "table", e.Table, "rows", e.RowsAffected, "err", e.Error)
//	    }))
type QueryHook func(ctx context.Context, event QueryEvent)

// invokeHook calls the query hook if set.
func (db *DB) invokeHook(ctx context.Context, event QueryEvent) {
	if db.queryHook != nil {
		db.queryHook(ctx, event)
	}
}
