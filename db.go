// Package updatebulk updates many rows with different values in one SQL
// statement. A batch of per-row conditions and assignments is compiled into an
// UPDATE joined against a VALUES table and executed through database/sql on
// PostgreSQL, MySQL 8.0.19+, MariaDB 10.3.3+ and SQLite.
//
// Example:
//
//	db, _ := updatebulk.Open("postgres", dsn)
//	books, _ := updatebulk.ModelOf(Book{})
//	n, err := db.UpdateInBulk(ctx, books, updatebulk.ByKey{
//	    1: {"quantity": 5},
//	    2: {"quantity": 3},
//	}, updatebulk.WithFormula("quantity", updatebulk.FormulaAdd))
package updatebulk

import (
	"github.com/coregx/updatebulk/internal/analyzer"
	"github.com/coregx/updatebulk/internal/bulk"
	"github.com/coregx/updatebulk/internal/core"
	"github.com/coregx/updatebulk/internal/expr"
	"github.com/coregx/updatebulk/internal/formula"
	"github.com/coregx/updatebulk/internal/logger"
	"github.com/coregx/updatebulk/internal/metrics"
	"github.com/coregx/updatebulk/internal/optimizer"
	"github.com/coregx/updatebulk/internal/schema"
	"github.com/coregx/updatebulk/internal/security"
	"github.com/coregx/updatebulk/internal/tracer"
)

type (
	// DB executes bulk updates on a connection pool.
	DB = core.DB
	// Option is a functional option for configuring DB.
	Option = core.Option
	// Tx is a caller-managed transaction.
	Tx = core.Tx
	// TxOptions represents transaction options including isolation level.
	TxOptions = core.TxOptions
	// QueryEvent describes one executed bulk update.
	QueryEvent = core.QueryEvent
	// QueryHook is invoked after every execution.
	QueryHook = core.QueryHook

	// Batch is one of ByKey, Pairs or Separated.
	Batch = bulk.Batch
	// ByKey maps primary key values to assignments.
	ByKey = bulk.ByKey
	// Pairs lists condition and assignment pairs.
	Pairs = bulk.Pairs
	// Pair is one row of Pairs.
	Pair = bulk.Pair
	// Separated holds parallel condition and assignment lists.
	Separated = bulk.Separated
	// Conditions maps column names to the values a row must match.
	Conditions = bulk.Conditions
	// Assignments maps column names to new values.
	Assignments = bulk.Assignments
	// Statement is a compiled bulk update.
	Statement = bulk.Statement
	// CompileOption configures a single compile.
	CompileOption = bulk.Option
	// TimestampMode controls bumping of timestamp columns.
	TimestampMode = bulk.TimestampMode
	// Error is a compile error with row and column context.
	Error = bulk.Error

	// Model describes a table.
	Model = schema.Model
	// Column describes a table column.
	Column = schema.Column
	// ColumnType is the logical type of a column.
	ColumnType = schema.ColumnType
	// ModelOption adjusts a model built by ModelOf.
	ModelOption = schema.ModelOption

	// Expression is a SQL fragment with bound arguments.
	Expression = expr.Expression
	// Formula combines the current and incoming value of a column.
	Formula = formula.Formula
	// Func2 is a formula over the current and incoming value.
	Func2 = formula.Func2
	// Func3 is a formula that also receives the model.
	Func3 = formula.Func3

	// Logger is the logging interface.
	Logger = logger.Logger
	// Tracer starts spans.
	Tracer = tracer.Tracer
	// Metrics holds Prometheus collectors.
	Metrics = metrics.Metrics
	// Validator checks raw SQL values.
	Validator = security.Validator
	// Auditor writes an audit trail of bulk updates.
	Auditor = security.Auditor
	// AuditLevel selects which events are audited.
	AuditLevel = security.AuditLevel
	// QueryPlan is the estimated plan returned by DB.Explain.
	QueryPlan = analyzer.QueryPlan
	// Analysis holds the suggestions returned by DB.Advise.
	Analysis = optimizer.Analysis
	// Suggestion is one index or maintenance recommendation.
	Suggestion = optimizer.Suggestion
)

// Timestamp modes.
const (
	TimestampsDefault = bulk.TimestampsDefault
	TimestampsOn      = bulk.TimestampsOn
	TimestampsOff     = bulk.TimestampsOff
	TimestampsAlways  = bulk.TimestampsAlways
)

// Built-in formulas.
const (
	FormulaAdd           = formula.Add
	FormulaSubtract      = formula.Subtract
	FormulaMin           = formula.Min
	FormulaMax           = formula.Max
	FormulaConcatAppend  = formula.ConcatAppend
	FormulaConcatPrepend = formula.ConcatPrepend
)

// Audit levels.
const (
	AuditNone     = security.AuditNone
	AuditFailures = security.AuditFailures
	AuditAll      = security.AuditAll
)

// Error kinds, matched with errors.Is.
var (
	ErrInvalidInput   = bulk.ErrInvalidInput
	ErrUnknownColumn  = bulk.ErrUnknownColumn
	ErrNullCondition  = bulk.ErrNullCondition
	ErrInvalidValue   = bulk.ErrInvalidValue
	ErrFormula        = bulk.ErrFormula
	ErrUnsupported    = bulk.ErrUnsupported
	ErrUnsafeFragment = security.ErrUnsafeFragment
)

// Re-export core functions.
var (
	Open                  = core.Open
	NewDB                 = core.NewDB
	WrapDB                = core.WrapDB
	WithMaxOpenConns      = core.WithMaxOpenConns
	WithMaxIdleConns      = core.WithMaxIdleConns
	WithStmtCacheCapacity = core.WithStmtCacheCapacity
	WithLogger            = core.WithLogger
	WithTracer            = core.WithTracer
	WithQueryHook         = core.WithQueryHook
	WithMetrics           = core.WithMetrics
	WithRawValueValidator = core.WithRawValueValidator
	WithCompileOptions    = core.WithCompileOptions
	WithSensitiveColumns  = core.WithSensitiveColumns
	WithDialect           = core.WithDialect
	WithHealthCheck       = core.WithHealthCheck
	WithAuditor           = core.WithAuditor

	// Compile options
	WithTimestamps        = bulk.WithTimestamps
	WithFormula           = bulk.WithFormula
	WithFormulas          = bulk.WithFormulas
	WithFormulaRegistry   = bulk.WithFormulaRegistry
	WithRowSourceName     = bulk.WithRowSourceName
	ParseTimestampMode    = bulk.ParseTimestampMode
	Typed                 = bulk.Typed
	RawSQL                = bulk.RawSQL
	NewFormulaRegistry    = formula.NewRegistry
	RegisterFormula       = formula.Default.Register
	UnregisterFormula     = formula.Default.Unregister
	ModelOf               = schema.FromStruct
	WithTable             = schema.WithTable
	WithAlias             = schema.WithAlias
	WithEnum              = schema.WithEnum
	WithRecordTimestamps  = schema.WithRecordTimestamps
	AssignmentsOf         = schema.StructValues
	NewSlogAdapter        = logger.NewSlogAdapter
	NewOtelTracer         = tracer.NewOtelTracer
	NewMetrics            = metrics.New
	NewValidator          = security.NewValidator
	WithStrictValidation  = security.WithStrict
	WithMaxFragmentLength = security.WithMaxLength
	NewAuditor            = security.NewAuditor
	WithUser              = security.WithUser
	WithClientIP          = security.WithClientIP
	WithRequestID         = security.WithRequestID
)
