// Package formula combines a column's current value with an incoming value
// into the right-hand side of a SET assignment.
//
// A formula is one of the built-ins (add, subtract, min, max, concat_append,
// concat_prepend), a name registered in a Registry, or a Go function taking
// (current, incoming) or (current, incoming, model) and returning an
// expr.Expression.
package formula

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/coregx/updatebulk/internal/expr"
	"github.com/coregx/updatebulk/internal/schema"
)

// ErrFormula is the sentinel matched by every formula error.
var ErrFormula = errors.New("formula error")

func formulaError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrFormula}, args...)...)
}

// Formula computes a new column value.
type Formula interface {
	Apply(current, incoming expr.Expression, model *schema.Model) (expr.Expression, error)
}

// Func2 is a formula over the current and incoming values.
type Func2 func(current, incoming expr.Expression) expr.Expression

// Apply implements Formula.
func (f Func2) Apply(current, incoming expr.Expression, _ *schema.Model) (expr.Expression, error) {
	return checkResult(f(current, incoming))
}

// Func3 is a formula that also receives the model being updated.
type Func3 func(current, incoming expr.Expression, model *schema.Model) expr.Expression

// Apply implements Formula.
func (f Func3) Apply(current, incoming expr.Expression, model *schema.Model) (expr.Expression, error) {
	return checkResult(f(current, incoming, model))
}

func checkResult(result interface{}) (expr.Expression, error) {
	e, ok := result.(expr.Expression)
	if !ok || e == nil {
		return nil, formulaError("custom formula must return an expression, got %T", result)
	}
	if rv := reflect.ValueOf(e); rv.Kind() == reflect.Ptr && rv.IsNil() {
		return nil, formulaError("custom formula returned a nil %T", result)
	}
	return e, nil
}

// Built-in formula names.
const (
	Add           = "add"
	Subtract      = "subtract"
	Min           = "min"
	Max           = "max"
	ConcatAppend  = "concat_append"
	ConcatPrepend = "concat_prepend"
)

var builtins = map[string]Formula{
	Add: Func2(func(l, r expr.Expression) expr.Expression {
		return expr.Add(l, r)
	}),
	Subtract: Func2(func(l, r expr.Expression) expr.Expression {
		return expr.Sub(l, r)
	}),
	Min: Func2(func(l, r expr.Expression) expr.Expression {
		return expr.Least(l, r)
	}),
	Max: Func2(func(l, r expr.Expression) expr.Expression {
		return expr.Greatest(l, r)
	}),
	ConcatAppend: Func2(func(l, r expr.Expression) expr.Expression {
		return expr.Concat(l, r)
	}),
	ConcatPrepend: Func2(func(l, r expr.Expression) expr.Expression {
		return expr.Concat(r, l)
	}),
}

// IsBuiltin reports whether name is a built-in formula.
func IsBuiltin(name string) bool {
	_, ok := builtins[name]
	return ok
}

var (
	expressionType = reflect.TypeOf((*expr.Expression)(nil)).Elem()
	modelType      = reflect.TypeOf((*schema.Model)(nil))
	errorType      = reflect.TypeOf((*error)(nil)).Elem()
)

// reflectFunc adapts an arbitrary Go function with a compatible signature.
type reflectFunc struct {
	fn reflect.Value
}

// FromFunc validates fn and wraps it as a Formula.
//
// fn must take two or three parameters. The first two must accept an
// expr.Expression, the third a *schema.Model. It returns a single value, or a
// value and an error.
func FromFunc(fn interface{}) (Formula, error) {
	switch f := fn.(type) {
	case nil:
		return nil, formulaError("nil function")
	case Func2:
		if f == nil {
			return nil, formulaError("nil function")
		}
		return f, nil
	case Func3:
		if f == nil {
			return nil, formulaError("nil function")
		}
		return f, nil
	case Formula:
		return f, nil
	case func(expr.Expression, expr.Expression) expr.Expression:
		if f == nil {
			return nil, formulaError("nil function")
		}
		return Func2(f), nil
	case func(expr.Expression, expr.Expression, *schema.Model) expr.Expression:
		if f == nil {
			return nil, formulaError("nil function")
		}
		return Func3(f), nil
	}

	rv := reflect.ValueOf(fn)
	if rv.Kind() != reflect.Func {
		return nil, formulaError("expected a function, got %T", fn)
	}
	if rv.IsNil() {
		return nil, formulaError("nil function")
	}

	t := rv.Type()
	if t.IsVariadic() || (t.NumIn() != 2 && t.NumIn() != 3) {
		return nil, formulaError("custom formula must accept 2 or 3 arguments, got %d", t.NumIn())
	}
	for i := 0; i < 2; i++ {
		if !expressionType.AssignableTo(t.In(i)) {
			return nil, formulaError("argument %d of custom formula must accept an expression, got %s", i+1, t.In(i))
		}
	}
	if t.NumIn() == 3 && !modelType.AssignableTo(t.In(2)) {
		return nil, formulaError("argument 3 of custom formula must accept *schema.Model, got %s", t.In(2))
	}
	switch {
	case t.NumOut() == 1:
	case t.NumOut() == 2 && t.Out(1) == errorType:
	default:
		return nil, formulaError("custom formula must return a single value or a value and an error")
	}
	return &reflectFunc{fn: rv}, nil
}

// Apply implements Formula.
func (f *reflectFunc) Apply(current, incoming expr.Expression, model *schema.Model) (expr.Expression, error) {
	t := f.fn.Type()
	in := []reflect.Value{valueOf(current, t.In(0)), valueOf(incoming, t.In(1))}
	if t.NumIn() == 3 {
		in = append(in, valueOf(model, t.In(2)))
	}

	out := f.fn.Call(in)
	if len(out) == 2 && !out[1].IsNil() {
		return nil, fmt.Errorf("%w: %w", ErrFormula, out[1].Interface().(error))
	}
	return checkResult(out[0].Interface())
}

func valueOf(v interface{}, t reflect.Type) reflect.Value {
	if v == nil {
		return reflect.Zero(t)
	}
	return reflect.ValueOf(v)
}
