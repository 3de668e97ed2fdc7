// Package core provides the execution boundary for bulk updates: connection
// management, dialect selection, statement caching, logging, tracing and
// metrics around statements compiled by package bulk.
package core

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/coregx/updatebulk/internal/bulk"
	"github.com/coregx/updatebulk/internal/cache"
	"github.com/coregx/updatebulk/internal/dialects"
	"github.com/coregx/updatebulk/internal/logger"
	"github.com/coregx/updatebulk/internal/metrics"
	"github.com/coregx/updatebulk/internal/security"
	"github.com/coregx/updatebulk/internal/tracer"
)

// DB executes bulk updates on a database connection pool.
type DB struct {
	sqlDB      *sql.DB
	driverName string
	owned      bool
	stmtCache  *cache.StmtCache
	logger     logger.Logger
	tracer     tracer.Tracer
	sanitizer  *logger.Sanitizer
	metrics    *metrics.Metrics
	queryHook  QueryHook
	auditor    *security.Auditor
	health     *healthChecker

	// compileOpts are prepended to the options of every compile.
	compileOpts []bulk.Option

	mu      sync.RWMutex
	dialect dialects.Dialect

	// Settings collected from options and resolved by WrapDB.
	dialectName    string
	sensitive      []string
	healthInterval time.Duration
}

// Tx is a caller-managed transaction. Bulk updates inside it bypass the
// statement cache.
type Tx struct {
	tx *sql.Tx
	db *DB
}

// TxOptions represents transaction options including isolation level.
type TxOptions struct {
	// Isolation level for the transaction (e.g., sql.LevelReadCommitted)
	Isolation sql.IsolationLevel
	// ReadOnly indicates whether the transaction is read-only
	ReadOnly bool
}

// Option is a functional option for configuring DB.
type Option func(*DB)

// WithMaxOpenConns sets the maximum number of open connections.
func WithMaxOpenConns(n int) Option {
	return func(db *DB) {
		db.sqlDB.SetMaxOpenConns(n)
	}
}

// WithMaxIdleConns sets the maximum number of idle connections.
func WithMaxIdleConns(n int) Option {
	return func(db *DB) {
		db.sqlDB.SetMaxIdleConns(n)
	}
}

// WithStmtCacheCapacity sets the prepared statement cache capacity.
func WithStmtCacheCapacity(capacity int) Option {
	return func(db *DB) {
		db.stmtCache = cache.NewStmtCacheWithCapacity(capacity)
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l logger.Logger) Option {
	return func(db *DB) {
		if l != nil {
			db.logger = l
		}
	}
}

// WithTracer sets the tracer for compile and execute spans.
func WithTracer(t tracer.Tracer) Option {
	return func(db *DB) {
		if t != nil {
			db.tracer = t
		}
	}
}

// WithQueryHook registers a callback invoked after every execution.
func WithQueryHook(hook QueryHook) Option {
	return func(db *DB) {
		db.queryHook = hook
	}
}

// WithMetrics records compiles and executions on m. The caller registers m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(db *DB) {
		db.metrics = m
	}
}

// WithRawValueValidator checks every raw SQL value with v before it is
// inlined. A nil v uses security.NewValidator defaults.
func WithRawValueValidator(v *security.Validator) Option {
	return func(db *DB) {
		if v == nil {
			v = security.NewValidator()
		}
		db.compileOpts = append(db.compileOpts, bulk.WithRawValueValidator(v.ValidateFragment))
	}
}

// WithAuditor writes an audit trail of executions and rejected raw values.
func WithAuditor(a *security.Auditor) Option {
	return func(db *DB) {
		db.auditor = a
	}
}

// WithCompileOptions applies opts to every compile on this DB. Options passed
// to UpdateInBulk take precedence.
func WithCompileOptions(opts ...bulk.Option) Option {
	return func(db *DB) {
		db.compileOpts = append(db.compileOpts, opts...)
	}
}

// WithSensitiveColumns replaces the column names whose values are masked in
// logs. See logger.DefaultSensitiveColumns.
func WithSensitiveColumns(columns ...string) Option {
	return func(db *DB) {
		db.sensitive = columns
	}
}

// WithDialect selects a registered dialect by name instead of the driver
// name, for drivers registered under custom names.
func WithDialect(name string) Option {
	return func(db *DB) {
		db.dialectName = name
	}
}

// WithHealthCheck pings the database every interval in the background.
func WithHealthCheck(interval time.Duration) Option {
	return func(db *DB) {
		db.healthInterval = interval
	}
}

// Open opens a connection pool and wraps it. The pool is closed by DB.Close.
func Open(driverName, dsn string, opts ...Option) (*DB, error) {
	sqlDB, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, err
	}
	db, err := WrapDB(sqlDB, driverName, opts...)
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	db.owned = true
	return db, nil
}

// NewDB opens a connection pool with default options.
func NewDB(driverName, dsn string) (*DB, error) {
	return Open(driverName, dsn)
}

// WrapDB wraps an existing pool. The caller keeps ownership: DB.Close
// releases cached statements but leaves sqlDB open.
func WrapDB(sqlDB *sql.DB, driverName string, opts ...Option) (*DB, error) {
	if sqlDB == nil {
		return nil, ErrNilDB
	}
	db := &DB{
		sqlDB:       sqlDB,
		driverName:  driverName,
		dialectName: driverName,
		stmtCache:   cache.NewStmtCache(),
		logger:      &logger.NoopLogger{},
		tracer:      &tracer.NoopTracer{},
		sensitive:   logger.DefaultSensitiveColumns,
	}
	for _, opt := range opts {
		opt(db)
	}

	d, ok := dialects.LookupDialect(db.dialectName)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDialect, db.dialectName)
	}
	db.dialect = d
	db.sanitizer = logger.NewSanitizer(db.sensitive)
	db.logger = logger.With(db.logger, "driver", driverName)

	if db.healthInterval > 0 {
		db.health = newHealthChecker(sqlDB, db.logger, db.healthInterval,
			func() string { return db.Dialect().Name() }, db.DetectCapabilities)
		db.health.start()
	}
	return db, nil
}

// Close stops the health checker and closes cached statements. The pool is
// closed only when the DB opened it.
func (db *DB) Close() error {
	if db.health != nil {
		db.health.shutdown()
		db.health = nil
	}
	db.stmtCache.Clear()
	if db.owned {
		return db.sqlDB.Close()
	}
	return nil
}

// SQLDB returns the underlying pool.
func (db *DB) SQLDB() *sql.DB {
	return db.sqlDB
}

// DriverName returns the driver name the DB was opened with.
func (db *DB) DriverName() string {
	return db.driverName
}

// Dialect returns the dialect statements are compiled for.
func (db *DB) Dialect() dialects.Dialect {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.dialect
}

// DetectCapabilities asks a MySQL-family server for its version and switches
// to the matching dialect: MariaDB, or MySQL with VALUES table support gated
// on 8.0.19. Other databases need no detection.
func (db *DB) DetectCapabilities(ctx context.Context) error {
	d := db.Dialect()
	switch d.Name() {
	case "mysql", "mariadb":
	default:
		return nil
	}

	var version string
	if err := db.sqlDB.QueryRowContext(ctx, "SELECT VERSION()").Scan(&version); err != nil {
		return WrapError(err, "detect server version")
	}
	resolved := dialects.ForServerVersion(d, version)

	db.mu.Lock()
	db.dialect = resolved
	db.mu.Unlock()

	db.logger.Debug("detected server capabilities",
		"version", version,
		"dialect", resolved.Name(),
		"values_tables", resolved.SupportsValuesTables())
	return nil
}

// IsHealthy reports whether the last background ping succeeded. It is always
// true without WithHealthCheck.
func (db *DB) IsHealthy() bool {
	if db.health == nil {
		return true
	}
	_, _, err := db.health.status()
	return err == nil
}

// LastHealthCheck returns the time of the last background ping, or the zero
// time.
func (db *DB) LastHealthCheck() time.Time {
	if db.health == nil {
		return time.Time{}
	}
	at, _, _ := db.health.status()
	return at
}

// HealthFailures returns how many background pings in a row have failed.
func (db *DB) HealthFailures() int {
	if db.health == nil {
		return 0
	}
	_, failures, _ := db.health.status()
	return failures
}

// CacheStats returns prepared statement cache statistics.
func (db *DB) CacheStats() cache.Stats {
	return db.stmtCache.Stats()
}

// Begin starts a transaction with default options.
func (db *DB) Begin(ctx context.Context) (*Tx, error) {
	return db.BeginTx(ctx, nil)
}

// BeginTx starts a transaction with specified options.
// Options can specify isolation level and read-only mode.
func (db *DB) BeginTx(ctx context.Context, opts *TxOptions) (*Tx, error) {
	var sqlOpts *sql.TxOptions
	if opts != nil {
		sqlOpts = &sql.TxOptions{
			Isolation: opts.Isolation,
			ReadOnly:  opts.ReadOnly,
		}
	}

	tx, err := db.sqlDB.BeginTx(ctx, sqlOpts)
	if err != nil {
		return nil, err
	}
	return &Tx{tx: tx, db: db}, nil
}

// Commit commits the transaction.
func (tx *Tx) Commit() error {
	return tx.tx.Commit()
}

// Rollback rolls back the transaction.
func (tx *Tx) Rollback() error {
	return tx.tx.Rollback()
}
