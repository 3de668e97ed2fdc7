package bulk

import (
	"database/sql/driver"
	"reflect"

	"github.com/coregx/updatebulk/internal/expr"
)

// Value is a condition or assignment value: either a typed Go value that is
// cast through the column type, or a raw SQL expression inserted as-is.
type Value struct {
	typed interface{}
	raw   expr.Expression
}

// Typed wraps a Go value.
func Typed(v interface{}) Value {
	return Value{typed: v}
}

// Raw wraps a SQL expression. Raw values bypass casting and constant folding.
func Raw(e expr.Expression) Value {
	return Value{raw: e}
}

// RawSQL wraps a SQL fragment with optional "?" bindings.
//
// Example:
//
//	bulk.RawSQL("(SELECT MAX(price) FROM offers WHERE offers.book_id = ?)", 7)
func RawSQL(sql string, args ...interface{}) Value {
	return Raw(expr.Raw(sql, args...))
}

// ValueOf converts user input: a Value is returned unchanged, an
// expr.Expression becomes Raw and anything else Typed.
func ValueOf(v interface{}) Value {
	switch x := v.(type) {
	case Value:
		return x
	case expr.Expression:
		return Raw(x)
	}
	return Typed(v)
}

// IsRaw reports whether the value is a raw SQL expression.
func (v Value) IsRaw() bool {
	return v.raw != nil
}

// Expression returns the raw expression, nil for typed values.
func (v Value) Expression() expr.Expression {
	return v.raw
}

// Interface returns the typed value, nil for raw values.
func (v Value) Interface() interface{} {
	return v.typed
}

// IsNull reports whether a typed value is SQL NULL: nil, a nil pointer or a
// driver.Valuer such as sql.NullInt64 that is not valid.
func (v Value) IsNull() bool {
	if v.raw != nil {
		return false
	}
	return isNull(v.typed)
}

func isNull(v interface{}) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Interface, reflect.Func, reflect.Chan:
		if rv.IsNil() {
			return true
		}
		if rv.Kind() == reflect.Ptr {
			return isNull(rv.Elem().Interface())
		}
	}
	if valuer, ok := v.(driver.Valuer); ok {
		dv, err := valuer.Value()
		return err == nil && dv == nil
	}
	return false
}
