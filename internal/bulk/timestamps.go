package bulk

import (
	"slices"

	"github.com/coregx/updatebulk/internal/expr"
)

// resolveTimestamps picks the timestamp columns to bump: the model's
// timestamp columns that are not explicitly assigned.
func (p *plan) resolveTimestamps() {
	record := p.model.RecordTimestamps
	switch p.opts.timestamps {
	case TimestampsOn:
		record = true
	case TimestampsOff:
		record = false
	case TimestampsAlways:
		record = true
		p.alwaysBump = true
	}
	if !record {
		return
	}
	for _, key := range p.model.TimestampColumns {
		if !slices.Contains(p.writeKeys, key) {
			p.timestampKeys = append(p.timestampKeys, key)
		}
	}
}

// withTimestamps prepends timestamp assignments to sets. MySQL evaluates SET
// items left to right against the partially updated row, so the change
// check has to run before any data column is written.
//
// A timestamp keeps its value when every assignment leaves its column
// unchanged (null-safe), and becomes the current time otherwise.
func (p *plan) withTimestamps(sets []assignment) []assignment {
	if len(p.timestampKeys) == 0 {
		return sets
	}

	now := expr.CurrentTimestamp()
	var unchanged expr.Expression
	if !p.alwaysBump {
		checks := make([]expr.Expression, len(sets))
		for i, set := range sets {
			checks[i] = expr.NullSafeEq(expr.Col(p.model.Table, set.column), set.value)
		}
		unchanged = expr.And(checks...)
	}

	out := make([]assignment, 0, len(p.timestampKeys)+len(sets))
	for _, key := range p.timestampKeys {
		if unchanged == nil {
			out = append(out, assignment{column: key, value: now})
			continue
		}
		current := expr.Col(p.model.Table, key)
		bump := expr.CaseWhen().When(unchanged, current).Else(now)
		out = append(out, assignment{column: key, value: expr.Grouping(bump)})
	}
	return append(out, sets...)
}
