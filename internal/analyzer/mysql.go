package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
)

// MySQLAnalyzer runs EXPLAIN FORMAT=JSON on MySQL and MariaDB.
type MySQLAnalyzer struct {
	q Querier
}

// NewMySQLAnalyzer creates a MySQL analyzer.
func NewMySQLAnalyzer(q Querier) *MySQLAnalyzer {
	return &MySQLAnalyzer{q: q}
}

// Explain returns the estimated plan of query.
func (ma *MySQLAnalyzer) Explain(ctx context.Context, query string, args []any) (*QueryPlan, error) {
	var raw string
	if err := ma.q.QueryRowContext(ctx, "EXPLAIN FORMAT=JSON "+query, args...).Scan(&raw); err != nil {
		return nil, fmt.Errorf("failed to execute EXPLAIN: %w", err)
	}
	plan, err := parseMySQLExplain(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse EXPLAIN output: %w", err)
	}
	plan.RawOutput = raw
	return plan, nil
}

type mysqlExplainRoot struct {
	QueryBlock mysqlQueryBlock `json:"query_block"`
}

type mysqlQueryBlock struct {
	CostInfo   mysqlCostInfo     `json:"cost_info"`
	Table      *mysqlTableAccess `json:"table"`
	NestedLoop []mysqlLoopEntry  `json:"nested_loop"`
}

// mysqlLoopEntry is one element of nested_loop. The VALUES row source shows
// up as a derived table with its own query block.
type mysqlLoopEntry struct {
	Table *mysqlTableAccess `json:"table"`
}

type mysqlTableAccess struct {
	TableName           string `json:"table_name"`
	AccessType          string `json:"access_type"` // "ALL", "index", "range", "ref", "eq_ref", "const", "system"
	Key                 string `json:"key"`
	RowsExaminedPerScan int64  `json:"rows_examined_per_scan"`
	MaterializedFrom    *struct {
		QueryBlock mysqlQueryBlock `json:"query_block"`
	} `json:"materialized_from_subquery"`
}

// mysqlCostInfo accepts costs both as strings (MySQL) and numbers (MariaDB).
type mysqlCostInfo struct {
	QueryCost json.Number `json:"query_cost"`
}

func parseMySQLExplain(raw string) (*QueryPlan, error) {
	var root mysqlExplainRoot
	if err := json.Unmarshal([]byte(raw), &root); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JSON: %w", err)
	}
	plan := &QueryPlan{Database: "mysql"}
	if root.QueryBlock.CostInfo.QueryCost != "" {
		if cost, err := strconv.ParseFloat(root.QueryBlock.CostInfo.QueryCost.String(), 64); err == nil {
			plan.Cost = cost
		}
	}
	walkMySQLBlock(&root.QueryBlock, plan, true)
	return plan, nil
}

// walkMySQLBlock visits table accesses. Row estimates only count the outer
// block so that the materialized row source is not added twice.
func walkMySQLBlock(block *mysqlQueryBlock, plan *QueryPlan, outer bool) {
	visit := func(t *mysqlTableAccess) {
		if t == nil {
			return
		}
		if t.MaterializedFrom != nil {
			walkMySQLBlock(&t.MaterializedFrom.QueryBlock, plan, false)
			return
		}
		if t.Key != "" {
			plan.addIndex(t.Key)
		}
		if t.AccessType == "ALL" {
			plan.addScan(t.TableName)
		}
		if outer {
			plan.EstimatedRows += t.RowsExaminedPerScan
		}
	}
	visit(block.Table)
	for i := range block.NestedLoop {
		visit(block.NestedLoop[i].Table)
	}
}
