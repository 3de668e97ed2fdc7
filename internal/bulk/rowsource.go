package bulk

import (
	"strings"

	"github.com/coregx/updatebulk/internal/dialects"
	"github.com/coregx/updatebulk/internal/expr"
	"github.com/coregx/updatebulk/internal/schema"
)

// buildRowSource lays out the VALUES table: variable condition values,
// variable assignment values (NULL where a row omits the column), then the
// bitmask column when needed.
//
// An optional column needs a bitmask bit when some row supplies a value
// that may be NULL. There, a NULL in the row source could mean either
// "assign NULL" or "not supplied". Other optional columns are resolved with
// COALESCE.
func (p *plan) buildRowSource() (*expr.RowSource, []string) {
	var bitmaskKeys []string
	for _, key := range p.writeKeys {
		if !p.optional[key] {
			continue
		}
		for _, r := range p.rows {
			if c, ok := r.assigns[key]; ok && c.mightBeNull() {
				bitmaskKeys = append(bitmaskKeys, key)
				break
			}
		}
	}

	values := make([][]interface{}, len(p.rows))
	for i, r := range p.rows {
		var vals []interface{}
		for _, key := range p.readKeys {
			if _, ok := p.constConds[key]; !ok {
				vals = append(vals, r.conds[key].operand())
			}
		}
		for _, key := range p.writeKeys {
			if _, ok := p.constAssigns[key]; ok {
				continue
			}
			if c, ok := r.assigns[key]; ok {
				vals = append(vals, c.operand())
			} else {
				vals = append(vals, nil)
			}
		}
		if len(bitmaskKeys) > 0 {
			vals = append(vals, bitmask(r, bitmaskKeys))
		}
		values[i] = vals
	}

	width := len(values[0])
	return expr.NewRowSource(p.opts.rowSourceName, values, p.dialect.ValuesDefaultColumnNames(width)), bitmaskKeys
}

// bitmask returns one '1' or '0' per bitmask column, '1' when the row
// supplies the column.
func bitmask(r row, keys []string) string {
	var sb strings.Builder
	sb.Grow(len(keys))
	for _, key := range keys {
		if _, ok := r.assigns[key]; ok {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}

// valuesColumns describes the row source columns for dialect casts.
func (p *plan) valuesColumns(rs *expr.RowSource, bitmaskKeys []string) []dialects.ValuesColumn {
	cols := make([]dialects.ValuesColumn, 0, rs.Width())
	add := func(name string) {
		col, _ := p.model.Column(name)
		cols = append(cols, valuesColumn(col))
	}
	for _, key := range p.readKeys {
		if _, ok := p.constConds[key]; !ok {
			add(key)
		}
	}
	for _, key := range p.writeKeys {
		if _, ok := p.constAssigns[key]; !ok {
			add(key)
		}
	}
	if len(bitmaskKeys) > 0 {
		cols = append(cols, dialects.ValuesColumn{Type: string(schema.TypeString)})
	}

	for i := range cols {
		allNull := true
		for _, values := range rs.Rows {
			if values[i] != nil {
				allNull = false
				break
			}
		}
		cols[i].AllNull = allNull
	}
	return cols
}

func valuesColumn(col *schema.Column) dialects.ValuesColumn {
	return dialects.ValuesColumn{
		Type:    string(col.Type),
		SQLType: col.SQLType,
		Array:   col.Array,
	}
}
