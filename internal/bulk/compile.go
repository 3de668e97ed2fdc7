// Package bulk compiles a batch of heterogeneous row updates into a single
// UPDATE statement joined against a VALUES row source.
//
// Each row has its own conditions and its own subset of assignments. The
// compiler folds columns that are constant across the batch into literals,
// encodes which optional columns each row supplies in a bitmask column,
// applies per-column formulas and bumps timestamp columns of changed rows.
// A batch of one row without formulas compiles to a plain UPDATE.
//
// Compile is pure and safe for concurrent use.
package bulk

import (
	"slices"

	"github.com/coregx/updatebulk/internal/dialects"
	"github.com/coregx/updatebulk/internal/expr"
	"github.com/coregx/updatebulk/internal/formula"
	"github.com/coregx/updatebulk/internal/schema"
	"github.com/coregx/updatebulk/internal/types"
)

// cell is a value after casting and serialization.
type cell struct {
	raw   expr.Expression
	cast  interface{}
	value interface{}
}

func (c cell) isRaw() bool {
	return c.raw != nil
}

// mightBeNull reports whether the value may evaluate to NULL in SQL.
func (c cell) mightBeNull() bool {
	return c.raw != nil || c.value == nil
}

// operand is the row source entry for the cell: raw SQL, a bound value or nil.
func (c cell) operand() interface{} {
	if c.raw != nil {
		return c.raw
	}
	return c.value
}

// expression renders the cell as a standalone expression.
func (c cell) expression() expr.Expression {
	switch {
	case c.raw != nil:
		return c.raw
	case c.value == nil:
		return expr.Literal("NULL")
	}
	return expr.Param(c.value)
}

type row struct {
	index   int
	conds   map[string]cell
	assigns map[string]cell
}

// plan carries one compile through its stages.
type plan struct {
	model   *schema.Model
	dialect dialects.Dialect
	opts    *options

	rows      []row
	readKeys  []string
	writeKeys []string
	optional  map[string]bool
	formulas  map[string]formula.Formula

	constConds   map[string]cell
	constAssigns map[string]cell

	timestampKeys []string
	alwaysBump    bool
}

// assignment is one SET item.
type assignment struct {
	column string
	value  expr.Expression
}

// Compile compiles a batch into a single UPDATE statement for the dialect.
// It returns nil and no error when no row has assignments.
//
// Example:
//
//	stmt, err := bulk.Compile(model, dialects.GetDialect("postgres"), bulk.ByKey{
//	    1: {"quantity": 5},
//	    2: {"quantity": 3},
//	}, bulk.WithFormula("quantity", "add"))
func Compile(model *schema.Model, dialect dialects.Dialect, batch Batch, opts ...Option) (*Statement, error) {
	if model == nil || dialect == nil {
		return nil, newError(ErrInvalidInput, -1, "", "model and dialect are required")
	}
	o := newOptions(opts)

	rows, err := Normalize(model, batch)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	if !dialect.SupportsValuesTables() {
		return nil, newError(ErrUnsupported, -1, "", "%s does not support VALUES table constructors", dialect.Name())
	}

	formulaRefs := resolveAliases(model, rows, o.formulas)
	readKeys, writeKeys, err := validate(model, rows, formulaRefs)
	if err != nil {
		return nil, err
	}
	formulas, err := resolveFormulas(o.registry, formulaRefs)
	if err != nil {
		return nil, err
	}

	p := &plan{
		model:     model,
		dialect:   dialect,
		opts:      o,
		readKeys:  readKeys,
		writeKeys: writeKeys,
		formulas:  formulas,
	}
	if err := p.castRows(rows); err != nil {
		return nil, err
	}
	p.resolveTimestamps()

	if len(p.rows) == 1 && len(p.formulas) == 0 {
		return p.compileSimple()
	}

	p.detectOptional()
	p.detectConstants()
	return p.compileJoined()
}

// castRows casts and serializes every typed value through its column type.
func (p *plan) castRows(rows []Row) error {
	p.rows = make([]row, len(rows))
	for i, r := range rows {
		conds, err := p.castValues(r.Index, r.Conditions)
		if err != nil {
			return err
		}
		for _, key := range sortedKeys(conds) {
			if c := conds[key]; !c.isRaw() && c.cast == nil {
				return newError(ErrNullCondition, r.Index, key, "condition casts to NULL")
			}
		}
		assigns, err := p.castValues(r.Index, r.Assignments)
		if err != nil {
			return err
		}
		p.rows[i] = row{index: r.Index, conds: conds, assigns: assigns}
	}
	return nil
}

func (p *plan) castValues(index int, values map[string]Value) (map[string]cell, error) {
	out := make(map[string]cell, len(values))
	for key, v := range values {
		if v.IsRaw() {
			if p.opts.validateRaw != nil {
				sql, _ := v.Expression().Build(p.dialect)
				if err := p.opts.validateRaw(sql); err != nil {
					return nil, &Error{Kind: ErrInvalidValue, Row: index, Column: key, Msg: "raw SQL value rejected", Err: err}
				}
			}
			out[key] = cell{raw: v.Expression()}
			continue
		}

		col, _ := p.model.Column(key)
		cast, err := types.Cast(col, v.Interface())
		if err != nil {
			return nil, &Error{Kind: ErrInvalidValue, Row: index, Column: key, Err: err}
		}
		serialized, err := types.Serialize(col, cast)
		if err != nil {
			return nil, &Error{Kind: ErrInvalidValue, Row: index, Column: key, Err: err}
		}
		out[key] = cell{cast: cast, value: serialized}
	}
	return out, nil
}

// compileJoined builds UPDATE target <join> (VALUES ...) AS t.
func (p *plan) compileJoined() (*Statement, error) {
	rs, bitmaskKeys := p.buildRowSource()
	table := p.model.Table

	variable := 0
	on := make([]expr.Expression, 0, len(p.readKeys))
	for _, key := range p.readKeys {
		lhs := expr.Col(table, key)
		if c, ok := p.constConds[key]; ok {
			on = append(on, expr.Eq(lhs, c.expression()))
			continue
		}
		on = append(on, expr.Eq(lhs, rs.Col(variable)))
		variable++
	}

	bitmaskIndex := make(map[string]int, len(bitmaskKeys))
	for i, key := range bitmaskKeys {
		bitmaskIndex[key] = i + 1
	}

	sets := make([]assignment, 0, len(p.writeKeys)+len(p.timestampKeys))
	for _, key := range p.writeKeys {
		lhs := expr.Col(table, key)

		var rhs expr.Expression
		if c, ok := p.constAssigns[key]; ok {
			rhs = c.expression()
		} else {
			rhs = rs.Col(variable)
			variable++
			if f, ok := p.formulas[key]; ok {
				applied, err := f.Apply(lhs, rhs, p.model)
				if err != nil {
					return nil, &Error{Kind: ErrFormula, Row: -1, Column: key, Msg: "formula failed", Err: err}
				}
				rhs = applied
			}
		}

		if i, ok := bitmaskIndex[key]; ok {
			rhs = expr.Case(expr.Func("SUBSTRING", rs.Col(-1), expr.Int(i), expr.Int(1))).
				When(expr.String("1"), rhs).
				Else(lhs)
		} else if p.optional[key] {
			rhs = expr.Coalesce(rhs, lhs)
		}
		sets = append(sets, assignment{column: key, value: rhs})
	}
	sets = p.withTimestamps(sets)

	source := rs.Derived(p.dialect.ValuesTableCasts(p.valuesColumns(rs, bitmaskKeys)))
	parts := dialects.UpdateParts{
		Table:  expr.QuoteTable(p.dialect, table),
		Source: fragment(source, p.dialect),
		On:     fragment(expr.And(on...), p.dialect),
		Set:    make([]dialects.SetClause, len(sets)),
	}
	for i, set := range sets {
		parts.Set[i] = dialects.SetClause{Column: set.column, Value: fragment(set.value, p.dialect)}
	}

	sql, args := p.dialect.UpdateFrom(parts)
	return &Statement{
		SQL:              expr.Renumber(sql, p.dialect),
		Args:             args,
		Rows:             len(p.rows),
		ConditionColumns: slices.Clone(p.readKeys),
		RowSourceWidth:   rs.Width(),
		ConstantColumns:  p.constantColumns(),
		BitmaskColumns:   bitmaskKeys,
	}, nil
}

func fragment(e expr.Expression, dialect dialects.Dialect) dialects.Fragment {
	sql, args := e.Build(dialect)
	return dialects.Fragment{SQL: sql, Args: args}
}

// constantColumns lists folded condition then assignment columns.
func (p *plan) constantColumns() []string {
	var out []string
	for _, key := range p.readKeys {
		if _, ok := p.constConds[key]; ok {
			out = append(out, key)
		}
	}
	for _, key := range p.writeKeys {
		if _, ok := p.constAssigns[key]; ok {
			out = append(out, key)
		}
	}
	return out
}
