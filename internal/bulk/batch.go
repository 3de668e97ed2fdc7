package bulk

import (
	"cmp"
	"fmt"
	"reflect"
	"sort"

	"github.com/coregx/updatebulk/internal/schema"
)

// Assignments maps column names (or attribute aliases) to new values.
// Values may be plain Go values, Value or expr.Expression.
type Assignments map[string]interface{}

// Conditions maps column names (or attribute aliases) to the values a row
// must match.
type Conditions map[string]interface{}

// Batch is one of the accepted input shapes: ByKey, Pairs or Separated.
type Batch interface {
	normalize(model *schema.Model) ([]Row, error)
}

// ByKey maps row identifiers to assignments. An identifier is a primary key
// value, or an array such as [2]interface{}{"AA100", "12A"} for a composite
// key.
//
// Rows are compiled in key order: numerically for integer keys, by their
// formatted form otherwise.
//
// Example:
//
//	bulk.ByKey{
//	    1: {"quantity": 5},
//	    2: {"quantity": 3},
//	}
type ByKey map[interface{}]Assignments

// Pair is one row of a Pairs batch.
type Pair struct {
	// Conditions is Conditions or a primary key shorthand.
	Conditions  interface{}
	Assignments Assignments
}

// Pairs lists condition and assignment pairs in order.
//
// Example:
//
//	bulk.Pairs{
//	    {Conditions: bulk.Conditions{"written": true, "published": false}, Assignments: bulk.Assignments{"status": "written"}},
//	    {Conditions: bulk.Conditions{"written": true, "published": true}, Assignments: bulk.Assignments{"status": "published"}},
//	}
type Pairs []Pair

// Separated holds parallel condition and assignment lists of equal length.
type Separated struct {
	Conditions  []interface{}
	Assignments []Assignments
}

// Row is one normalized row.
type Row struct {
	// Index is the position of the row in the input batch.
	Index       int
	Conditions  map[string]Value
	Assignments map[string]Value
}

// Normalize turns a batch into rows keyed by column name, expanding primary
// key shorthand and dropping rows without assignments. Aliases are not yet
// resolved.
func Normalize(model *schema.Model, batch Batch) ([]Row, error) {
	if batch == nil {
		return nil, newError(ErrInvalidInput, -1, "", "nil batch")
	}
	return batch.normalize(model)
}

func (b ByKey) normalize(model *schema.Model) ([]Row, error) {
	keys := make([]interface{}, 0, len(b))
	for k := range b {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return lessKey(keys[i], keys[j])
	})

	rows := make([]Row, 0, len(keys))
	for i, k := range keys {
		row, ok, err := newRow(model, i, k, b[k])
		if err != nil {
			return nil, err
		}
		if ok {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

func (p Pairs) normalize(model *schema.Model) ([]Row, error) {
	rows := make([]Row, 0, len(p))
	for i, pair := range p {
		row, ok, err := newRow(model, i, pair.Conditions, pair.Assignments)
		if err != nil {
			return nil, err
		}
		if ok {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

func (s Separated) normalize(model *schema.Model) ([]Row, error) {
	if len(s.Conditions) != len(s.Assignments) {
		return nil, newError(ErrInvalidInput, -1, "",
			"conditions and assignments must have the same length, got %d and %d", len(s.Conditions), len(s.Assignments))
	}
	rows := make([]Row, 0, len(s.Conditions))
	for i := range s.Conditions {
		row, ok, err := newRow(model, i, s.Conditions[i], s.Assignments[i])
		if err != nil {
			return nil, err
		}
		if ok {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

// newRow builds a row. ok is false for rows without assignments.
func newRow(model *schema.Model, index int, conditions interface{}, assigns Assignments) (row Row, ok bool, err error) {
	if len(assigns) == 0 {
		return Row{}, false, nil
	}
	conds, err := normalizeConditions(model, index, conditions)
	if err != nil {
		return Row{}, false, err
	}

	row = Row{
		Index:       index,
		Conditions:  conds,
		Assignments: make(map[string]Value, len(assigns)),
	}
	for k, v := range assigns {
		row.Assignments[k] = ValueOf(v)
	}
	return row, true, nil
}

func normalizeConditions(model *schema.Model, index int, conditions interface{}) (map[string]Value, error) {
	switch c := conditions.(type) {
	case Conditions:
		return valueMap(c), nil
	case map[string]interface{}:
		return valueMap(c), nil
	case map[string]Value:
		out := make(map[string]Value, len(c))
		for k, v := range c {
			out[k] = v
		}
		return out, nil
	}

	rv := reflect.ValueOf(conditions)
	if rv.Kind() == reflect.Map && rv.Type().Key().Kind() == reflect.String {
		out := make(map[string]Value, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[iter.Key().String()] = ValueOf(iter.Value().Interface())
		}
		return out, nil
	}

	if len(model.PrimaryKey) == 0 {
		return nil, newError(ErrInvalidInput, index, "", "table %s has no primary key, conditions must be given explicitly", model.Table)
	}

	if model.CompositeKey() {
		if !isKeyList(rv) {
			return nil, newError(ErrInvalidInput, index, "",
				"table %s has a composite primary key, but condition %v is not an array", model.Table, conditions)
		}
		if rv.Len() != len(model.PrimaryKey) {
			return nil, newError(ErrInvalidInput, index, "",
				"primary key of %s has length %d, but condition %v has length %d", model.Table, len(model.PrimaryKey), conditions, rv.Len())
		}
		out := make(map[string]Value, rv.Len())
		for i, pk := range model.PrimaryKey {
			out[pk] = ValueOf(rv.Index(i).Interface())
		}
		return out, nil
	}

	value := conditions
	if isKeyList(rv) {
		if rv.Len() != 1 {
			return nil, newError(ErrInvalidInput, index, "", "expected a single value, got %v", conditions)
		}
		value = rv.Index(0).Interface()
	}
	return map[string]Value{model.PrimaryKey[0]: ValueOf(value)}, nil
}

func valueMap(m map[string]interface{}) map[string]Value {
	out := make(map[string]Value, len(m))
	for k, v := range m {
		out[k] = ValueOf(v)
	}
	return out
}

// isKeyList reports whether v is a slice or array of key values. Byte
// sequences such as []byte and uuid.UUID are scalar keys.
func isKeyList(v reflect.Value) bool {
	if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
		return false
	}
	return v.Type().Elem().Kind() != reflect.Uint8
}

// lessKey orders ByKey identifiers. Keys are grouped by kind and compared by
// value within a group. Equal values of distinct types fall back to the type
// name.
func lessKey(a, b interface{}) bool {
	ra, rb := reflect.ValueOf(a), reflect.ValueOf(b)
	if c := cmp.Compare(keyRank(ra), keyRank(rb)); c != 0 {
		return c < 0
	}
	var c int
	switch keyRank(ra) {
	case rankInt:
		c = cmp.Compare(ra.Int(), rb.Int())
	case rankUint:
		c = cmp.Compare(ra.Uint(), rb.Uint())
	case rankFloat:
		c = cmp.Compare(ra.Float(), rb.Float())
	case rankString:
		c = cmp.Compare(ra.String(), rb.String())
	}
	if c != 0 {
		return c < 0
	}
	if c := cmp.Compare(typeName(ra), typeName(rb)); c != 0 {
		return c < 0
	}
	return fmt.Sprint(a) < fmt.Sprint(b)
}

const (
	rankInt = iota
	rankUint
	rankFloat
	rankString
	rankOther
)

func keyRank(v reflect.Value) int {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rankInt
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rankUint
	case reflect.Float32, reflect.Float64:
		return rankFloat
	case reflect.String:
		return rankString
	}
	return rankOther
}

func typeName(v reflect.Value) string {
	if !v.IsValid() {
		return ""
	}
	return v.Type().String()
}
