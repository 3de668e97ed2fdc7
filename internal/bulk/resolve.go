package bulk

import (
	"github.com/coregx/updatebulk/internal/formula"
	"github.com/coregx/updatebulk/internal/schema"
)

// resolveAliases rewrites attribute aliases to column names on conditions,
// assignments and formula keys.
func resolveAliases(model *schema.Model, rows []Row, formulas map[string]interface{}) map[string]interface{} {
	if len(model.Aliases) > 0 {
		for i := range rows {
			rows[i].Conditions = resolveKeys(model, rows[i].Conditions)
			rows[i].Assignments = resolveKeys(model, rows[i].Assignments)
		}
	}
	if len(formulas) == 0 {
		return nil
	}
	out := make(map[string]interface{}, len(formulas))
	for k, f := range formulas {
		out[model.ResolveAlias(k)] = f
	}
	return out
}

func resolveKeys(model *schema.Model, values map[string]Value) map[string]Value {
	out := make(map[string]Value, len(values))
	for k, v := range values {
		out[model.ResolveAlias(k)] = v
	}
	return out
}

// resolveFormulas turns formula references into formulas.
func resolveFormulas(registry *formula.Registry, formulas map[string]interface{}) (map[string]formula.Formula, error) {
	if len(formulas) == 0 {
		return nil, nil
	}
	out := make(map[string]formula.Formula, len(formulas))
	for column, ref := range formulas {
		f, err := registry.Resolve(ref)
		if err != nil {
			return nil, &Error{Kind: ErrFormula, Row: -1, Column: column, Msg: "invalid formula", Err: err}
		}
		out[column] = f
	}
	return out, nil
}
