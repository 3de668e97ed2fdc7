// Package analyzer reads EXPLAIN output for compiled bulk updates on
// PostgreSQL, MySQL/MariaDB and SQLite into a unified QueryPlan.
//
// A bulk update joins the target table against a VALUES row source; the plan
// shows whether that join is resolved through an index on the condition
// columns or by scanning the target table once per batch.
package analyzer

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
)

// QueryPlan is an execution plan reduced to what matters for a bulk update.
type QueryPlan struct {
	Cost          float64 // Estimated cost in database-specific units, 0 if not reported
	EstimatedRows int64   // Estimated rows processed, 0 if not reported

	UsesIndex bool   // Any index is used
	IndexName string // First index seen
	FullScan  bool   // Some relation is scanned without an index

	// ScannedTables lists relations read by a full scan, in plan order.
	ScannedTables []string

	RawOutput string // EXPLAIN output as returned by the database
	Database  string // "postgres", "mysql" or "sqlite"
}

// ScansTable reports whether table is read with a full scan.
func (p *QueryPlan) ScansTable(table string) bool {
	return slices.Contains(p.ScannedTables, table)
}

func (p *QueryPlan) addScan(table string) {
	p.FullScan = true
	if table != "" && !p.ScansTable(table) {
		p.ScannedTables = append(p.ScannedTables, table)
	}
}

func (p *QueryPlan) addIndex(name string) {
	p.UsesIndex = true
	if p.IndexName == "" {
		p.IndexName = name
	}
}

// Querier is satisfied by *sql.DB, *sql.Conn and *sql.Tx.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Analyzer explains a statement without executing it.
type Analyzer interface {
	Explain(ctx context.Context, query string, args []any) (*QueryPlan, error)
}

// New returns the analyzer for a dialect name as reported by
// dialects.Dialect.Name.
func New(dialect string, q Querier) (Analyzer, error) {
	switch dialect {
	case "postgres":
		return NewPostgresAnalyzer(q), nil
	case "mysql", "mariadb":
		return NewMySQLAnalyzer(q), nil
	case "sqlite":
		return NewSQLiteAnalyzer(q), nil
	default:
		return nil, fmt.Errorf("no plan analyzer for dialect %q", dialect)
	}
}
