package bulk

import (
	"sort"

	"github.com/coregx/updatebulk/internal/schema"
)

// validate checks the normalized rows and returns the condition and
// assignment columns in model declaration order.
//
// Checks, in order:
//   - conditions are not empty
//   - no condition value is NULL
//   - every row has the same condition columns
//   - every formula targets an assigned column
//   - every column exists on the model
func validate(model *schema.Model, rows []Row, formulas map[string]interface{}) (readKeys, writeKeys []string, err error) {
	first := rows[0]
	if len(first.Conditions) == 0 {
		return nil, nil, newError(ErrInvalidInput, first.Index, "", "empty conditions")
	}

	readKeys = keysOf(first.Conditions)
	written := make(map[string]int)
	for _, row := range rows {
		for _, key := range sortedKeys(row.Conditions) {
			if row.Conditions[key].IsNull() {
				return nil, nil, newError(ErrNullCondition, row.Index, key, "")
			}
		}
		if !sameKeys(first.Conditions, row.Conditions) {
			return nil, nil, newError(ErrInvalidInput, row.Index, "", "all rows must have the same condition columns")
		}
		for key := range row.Assignments {
			if _, seen := written[key]; !seen {
				written[key] = row.Index
			}
		}
	}
	writeKeys = make([]string, 0, len(written))
	for key := range written {
		writeKeys = append(writeKeys, key)
	}

	for _, key := range sortedKeys(formulas) {
		if _, ok := written[key]; !ok {
			return nil, nil, &Error{Kind: ErrFormula, Row: -1, Column: key, Msg: "formula given for a column that is not assigned", Err: ErrUnknownColumn}
		}
	}

	for _, key := range sortedKeys(first.Conditions) {
		if !model.HasColumn(key) {
			return nil, nil, newError(ErrUnknownColumn, first.Index, key, "unknown column in conditions of %s", model.Table)
		}
	}
	sort.Strings(writeKeys)
	for _, key := range writeKeys {
		if !model.HasColumn(key) {
			return nil, nil, newError(ErrUnknownColumn, written[key], key, "unknown column in assignments of %s", model.Table)
		}
	}

	model.SortColumns(readKeys)
	model.SortColumns(writeKeys)
	return readKeys, writeKeys, nil
}

func keysOf[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}

func sortedKeys[V any](m map[string]V) []string {
	keys := keysOf(m)
	sort.Strings(keys)
	return keys
}

func sameKeys(a, b map[string]Value) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}
