package bulk

import (
	"github.com/coregx/updatebulk/internal/types"
)

// detectOptional marks assignment columns missing from at least one row.
func (p *plan) detectOptional() {
	p.optional = make(map[string]bool)
	for _, key := range p.writeKeys {
		for _, r := range p.rows {
			if _, ok := r.assigns[key]; !ok {
				p.optional[key] = true
				break
			}
		}
	}
}

// detectConstants finds condition and assignment columns whose cast value is
// the same in every row. Constant columns are compared against or assigned
// a bound literal instead of a row source column.
//
// At least one condition column always stays in the row source, otherwise
// the join would not discriminate rows. Assignments are folded only when
// present in every row, free of formulas and of a comparison-safe type.
func (p *plan) detectConstants() {
	p.constConds = make(map[string]cell)
	p.constAssigns = make(map[string]cell)

	for _, key := range p.readKeys {
		if c, ok := p.constant(func(r row) (cell, bool) {
			c, ok := r.conds[key]
			return c, ok
		}); ok {
			p.constConds[key] = c
		}
	}
	if len(p.constConds) == len(p.readKeys) {
		delete(p.constConds, p.readKeys[0])
	}

	for _, key := range p.writeKeys {
		if p.optional[key] {
			continue
		}
		if _, ok := p.formulas[key]; ok {
			continue
		}
		col, _ := p.model.Column(key)
		if !types.IsComparisonSafe(col) {
			continue
		}
		if c, ok := p.constant(func(r row) (cell, bool) {
			c, ok := r.assigns[key]
			return c, ok
		}); ok {
			p.constAssigns[key] = c
		}
	}
}

// constant returns the shared cell of a column if every row has the same
// typed value for it.
func (p *plan) constant(get func(row) (cell, bool)) (cell, bool) {
	first, ok := get(p.rows[0])
	if !ok || first.isRaw() {
		return cell{}, false
	}
	for _, r := range p.rows[1:] {
		c, ok := get(r)
		if !ok || c.isRaw() || !types.Equal(c.cast, first.cast) {
			return cell{}, false
		}
	}
	return first, true
}
