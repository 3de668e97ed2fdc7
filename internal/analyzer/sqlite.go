package analyzer

import (
	"context"
	"fmt"
	"strings"
)

// SQLiteAnalyzer runs EXPLAIN QUERY PLAN.
type SQLiteAnalyzer struct {
	q Querier
}

// NewSQLiteAnalyzer creates a SQLite analyzer.
func NewSQLiteAnalyzer(q Querier) *SQLiteAnalyzer {
	return &SQLiteAnalyzer{q: q}
}

// Explain returns the plan of query. SQLite reports neither cost nor row
// estimates.
func (sa *SQLiteAnalyzer) Explain(ctx context.Context, query string, args []any) (plan *QueryPlan, err error) {
	rows, err := sa.q.QueryContext(ctx, "EXPLAIN QUERY PLAN "+query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute EXPLAIN QUERY PLAN: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close rows: %w", closeErr)
		}
	}()

	var lines []string
	for rows.Next() {
		var id, parent, notused int
		var detail string
		if err := rows.Scan(&id, &parent, &notused, &detail); err != nil {
			return nil, fmt.Errorf("failed to scan EXPLAIN output: %w", err)
		}
		lines = append(lines, detail)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error reading EXPLAIN output: %w", err)
	}

	plan = parseSQLiteExplain(lines)
	plan.RawOutput = strings.Join(lines, "\n")
	return plan, nil
}

// parseSQLiteExplain reads detail lines such as
//
//	SCAN t
//	SCAN TABLE accounts
//	SEARCH accounts USING INTEGER PRIMARY KEY (rowid=?)
//	SEARCH accounts USING INDEX accounts_email (email=?)
//	SCAN 2-ROW VALUES CLAUSE
func parseSQLiteExplain(lines []string) *QueryPlan {
	plan := &QueryPlan{Database: "sqlite"}
	for _, line := range lines {
		parseSQLitePlanLine(strings.TrimSpace(line), plan)
	}
	return plan
}

func parseSQLitePlanLine(line string, plan *QueryPlan) {
	upper := strings.ToUpper(line)
	switch {
	case strings.Contains(upper, "USING COVERING INDEX ") && !strings.Contains(upper, "AUTOMATIC"):
		plan.addIndex(wordAfter(line, "USING COVERING INDEX "))
	case strings.Contains(upper, "USING AUTOMATIC"):
		plan.addIndex("AUTOMATIC INDEX")
	case strings.Contains(upper, "USING INDEX "):
		plan.addIndex(wordAfter(line, "USING INDEX "))
	case strings.Contains(upper, "USING INTEGER PRIMARY KEY"), strings.Contains(upper, "USING PRIMARY KEY"):
		plan.addIndex("PRIMARY KEY")
	case strings.HasPrefix(upper, "SCAN ") && !strings.Contains(upper, "USING"):
		// A scan of the VALUES list itself is the row source, not a table.
		if strings.Contains(upper, "VALUES CLAUSE") || strings.HasPrefix(upper, "SCAN CONSTANT ROW") {
			return
		}
		name := wordAfter(line, "SCAN ")
		if strings.EqualFold(name, "TABLE") {
			name = wordAfter(line, "SCAN TABLE ")
		}
		plan.addScan(name)
	}
}

// wordAfter returns the identifier following marker, matched case-insensitively.
func wordAfter(s, marker string) string {
	i := strings.Index(strings.ToUpper(s), strings.ToUpper(marker))
	if i < 0 {
		return ""
	}
	rest := strings.TrimSpace(s[i+len(marker):])
	if end := strings.IndexAny(rest, " ("); end >= 0 {
		rest = rest[:end]
	}
	return rest
}
