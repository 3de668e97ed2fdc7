package bulk

import (
	"slices"
	"strings"

	"github.com/coregx/updatebulk/internal/expr"
)

// compileSimple renders a single row as UPDATE target SET .. WHERE .., with
// no row source. Timestamps are guarded against the literal values.
func (p *plan) compileSimple() (*Statement, error) {
	r := p.rows[0]
	table := p.model.Table

	where := make([]expr.Expression, 0, len(p.readKeys))
	for _, key := range p.readKeys {
		where = append(where, expr.Eq(expr.Col(table, key), r.conds[key].expression()))
	}

	sets := make([]assignment, 0, len(p.writeKeys)+len(p.timestampKeys))
	for _, key := range p.writeKeys {
		sets = append(sets, assignment{column: key, value: r.assigns[key].expression()})
	}
	sets = p.withTimestamps(sets)

	var sb strings.Builder
	var args []interface{}
	sb.WriteString("UPDATE ")
	sb.WriteString(expr.QuoteTable(p.dialect, table))
	sb.WriteString(" SET ")
	for i, set := range sets {
		if i > 0 {
			sb.WriteString(", ")
		}
		sql, setArgs := set.value.Build(p.dialect)
		sb.WriteString(p.dialect.QuoteIdentifier(set.column))
		sb.WriteString(" = ")
		sb.WriteString(sql)
		args = append(args, setArgs...)
	}
	sql, whereArgs := expr.And(where...).Build(p.dialect)
	sb.WriteString(" WHERE ")
	sb.WriteString(sql)
	args = append(args, whereArgs...)

	return &Statement{
		SQL:              expr.Renumber(sb.String(), p.dialect),
		Args:             args,
		Rows:             1,
		Simple:           true,
		ConditionColumns: slices.Clone(p.readKeys),
	}, nil
}
