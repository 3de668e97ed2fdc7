// Package optimizer turns the plan of a compiled bulk update into index and
// maintenance suggestions.
//
// A bulk update is cheap when the target table is reached through an index on
// the condition columns: each row of the VALUES row source becomes one index
// lookup. When the planner scans the target table instead, the cost grows
// with the table rather than the batch.
package optimizer

import (
	"fmt"
	"slices"
	"strings"

	"github.com/coregx/updatebulk/internal/analyzer"
	"github.com/coregx/updatebulk/internal/dialects"
)

// Suggestion is an actionable recommendation.
type Suggestion struct {
	Type     SuggestionType
	Message  string
	Severity Severity
	// SQL fixes the issue when run, empty if there is no single fix.
	SQL string
}

// String returns a formatted string representation of the suggestion.
func (s Suggestion) String() string {
	if s.SQL != "" {
		return fmt.Sprintf("%s: %s\n  Fix: %s", s.Severity, s.Message, s.SQL)
	}
	return fmt.Sprintf("%s: %s", s.Severity, s.Message)
}

// SuggestionType categorizes suggestions.
type SuggestionType string

const (
	// SuggestionIndexMissing means the condition columns have no usable index.
	SuggestionIndexMissing SuggestionType = "index_missing"
	// SuggestionFullScan means the target is scanned despite a key match,
	// usually because planner statistics are stale.
	SuggestionFullScan SuggestionType = "full_scan"
	// SuggestionAnalyze suggests refreshing planner statistics.
	SuggestionAnalyze SuggestionType = "analyze"
)

// Severity indicates the importance of a suggestion.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
)

// IndexRecommendation is an index that would serve the join.
type IndexRecommendation struct {
	Table   string
	Columns []string
}

// IndexName returns idx_<table>_<column1>_<column2>...
func (i IndexRecommendation) IndexName() string {
	if len(i.Columns) == 0 {
		return "idx_" + i.Table
	}
	return "idx_" + i.Table + "_" + strings.Join(i.Columns, "_")
}

// CreateSQL renders a CREATE INDEX statement quoted for dialect.
func (i IndexRecommendation) CreateSQL(dialect dialects.Dialect) string {
	cols := make([]string, len(i.Columns))
	for n, c := range i.Columns {
		cols[n] = dialect.QuoteIdentifier(c)
	}
	return fmt.Sprintf("CREATE INDEX %s ON %s (%s);",
		dialect.QuoteIdentifier(i.IndexName()), dialect.QuoteIdentifier(i.Table), strings.Join(cols, ", "))
}

// Target describes the statement a plan belongs to.
type Target struct {
	Table      string
	PrimaryKey []string
	// ConditionColumns are the columns rows are matched on.
	ConditionColumns []string
	Dialect          dialects.Dialect
}

// Analysis is the result of Advise.
type Analysis struct {
	QueryPlan      *analyzer.QueryPlan
	MissingIndexes []IndexRecommendation
	Suggestions    []Suggestion
}

// Advise inspects plan for a scan of the target table. Matching on the
// primary key makes a missing index impossible, so a scan there points at
// statistics instead.
func Advise(plan *analyzer.QueryPlan, target Target) *Analysis {
	a := &Analysis{QueryPlan: plan}
	if plan == nil || !plan.ScansTable(target.Table) || len(target.ConditionColumns) == 0 {
		return a
	}

	if coversKey(target.ConditionColumns, target.PrimaryKey) {
		a.Suggestions = append(a.Suggestions, Suggestion{
			Type:     SuggestionFullScan,
			Severity: SeverityInfo,
			Message:  fmt.Sprintf("%s is scanned although rows are matched on its primary key", target.Table),
		})
	} else {
		idx := IndexRecommendation{Table: target.Table, Columns: slices.Clone(target.ConditionColumns)}
		a.MissingIndexes = append(a.MissingIndexes, idx)
		a.Suggestions = append(a.Suggestions, Suggestion{
			Type:     SuggestionIndexMissing,
			Severity: SeverityWarning,
			Message: fmt.Sprintf("%s is scanned to match rows on (%s)",
				target.Table, strings.Join(target.ConditionColumns, ", ")),
			SQL: idx.CreateSQL(target.Dialect),
		})
	}

	if s, ok := analyzeHint(target); ok {
		a.Suggestions = append(a.Suggestions, s)
	}
	return a
}

// coversKey reports whether cols contain every primary key column.
func coversKey(cols, pk []string) bool {
	if len(pk) == 0 {
		return false
	}
	for _, k := range pk {
		if !slices.Contains(cols, k) {
			return false
		}
	}
	return true
}

func analyzeHint(target Target) (Suggestion, bool) {
	if target.Dialect == nil {
		return Suggestion{}, false
	}
	table := target.Dialect.QuoteIdentifier(target.Table)
	s := Suggestion{
		Type:     SuggestionAnalyze,
		Severity: SeverityInfo,
		Message:  "refresh planner statistics so small batches prefer index lookups",
	}
	switch target.Dialect.Name() {
	case "postgres", "sqlite":
		s.SQL = "ANALYZE " + table + ";"
	case "mysql", "mariadb":
		s.SQL = "ANALYZE TABLE " + table + ";"
	default:
		return Suggestion{}, false
	}
	return s, true
}
