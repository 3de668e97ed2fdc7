package analyzer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// PostgresAnalyzer runs EXPLAIN (FORMAT JSON).
type PostgresAnalyzer struct {
	q Querier
}

// NewPostgresAnalyzer creates a PostgreSQL analyzer.
func NewPostgresAnalyzer(q Querier) *PostgresAnalyzer {
	return &PostgresAnalyzer{q: q}
}

// Explain returns the estimated plan of query. ANALYZE is never used since it
// would apply the update.
func (pa *PostgresAnalyzer) Explain(ctx context.Context, query string, args []any) (*QueryPlan, error) {
	var raw string
	if err := pa.q.QueryRowContext(ctx, "EXPLAIN (FORMAT JSON) "+query, args...).Scan(&raw); err != nil {
		return nil, fmt.Errorf("failed to execute EXPLAIN: %w", err)
	}
	plan, err := parsePostgresExplain(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse EXPLAIN output: %w", err)
	}
	plan.RawOutput = raw
	return plan, nil
}

type postgresExplainRoot struct {
	Plan postgresExplainNode `json:"Plan"`
}

type postgresExplainNode struct {
	NodeType     string                `json:"Node Type"` // "ModifyTable", "Seq Scan", "Index Scan", ...
	RelationName string                `json:"Relation Name"`
	IndexName    string                `json:"Index Name"`
	TotalCost    float64               `json:"Total Cost"`
	PlanRows     int64                 `json:"Plan Rows"`
	Plans        []postgresExplainNode `json:"Plans"`
}

// parsePostgresExplain reads the single-element array PostgreSQL returns.
// For an UPDATE the root is a ModifyTable node whose children join the
// target relation to the "Values Scan" of the row source.
func parsePostgresExplain(raw string) (*QueryPlan, error) {
	var roots []postgresExplainRoot
	if err := json.Unmarshal([]byte(raw), &roots); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JSON: %w", err)
	}
	if len(roots) == 0 {
		return nil, errors.New("empty EXPLAIN output")
	}
	root := roots[0].Plan
	plan := &QueryPlan{
		Cost:          root.TotalCost,
		EstimatedRows: root.PlanRows,
		Database:      "postgres",
	}
	walkPostgresPlan(&root, plan)
	return plan, nil
}

func walkPostgresPlan(node *postgresExplainNode, plan *QueryPlan) {
	switch {
	case strings.Contains(node.NodeType, "Index"):
		plan.addIndex(node.IndexName)
	case node.NodeType == "Seq Scan":
		plan.addScan(node.RelationName)
	}
	for i := range node.Plans {
		walkPostgresPlan(&node.Plans[i], plan)
	}
}
