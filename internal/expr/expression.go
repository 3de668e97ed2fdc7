// Copyright (c) 2025 COREGX. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package expr provides the SQL expression tree the bulk update compiler
// builds its statements from. Every node renders itself for a dialect with
// "?" placeholders; Renumber converts them to the dialect's format once the
// whole statement is assembled.
package expr

import (
	"strconv"
	"strings"

	"github.com/coregx/updatebulk/internal/dialects"
)

// Expression represents a SQL fragment that can be embedded in a statement.
type Expression interface {
	// Build converts the expression into a SQL fragment and returns parameter values.
	// Returns SQL string with "?" placeholders and a slice of parameter values.
	Build(dialect dialects.Dialect) (sql string, args []interface{})
}

// RawExp represents a raw SQL expression with optional parameter bindings.
// It is inserted into the statement as-is.
//
// Example:
//
//	expr.Raw("(SELECT name FROM authors WHERE id = ?)", 7)
type RawExp struct {
	SQL  string
	Args []interface{}
}

// Raw creates a new raw SQL expression with optional parameter bindings.
func Raw(sql string, args ...interface{}) *RawExp {
	return &RawExp{SQL: sql, Args: args}
}

// Literal creates a raw SQL expression without bindings.
func Literal(sql string) *RawExp {
	return &RawExp{SQL: sql}
}

// Int renders an integer literal.
func Int(n int) *RawExp {
	return Literal(strconv.Itoa(n))
}

// String renders a quoted SQL string literal.
func String(s string) *RawExp {
	return Literal("'" + strings.ReplaceAll(s, "'", "''") + "'")
}

// Build returns the SQL string as-is, with args passed through unchanged.
func (e *RawExp) Build(_ dialects.Dialect) (string, []interface{}) {
	return e.SQL, e.Args
}

// ParamExp binds a single value.
type ParamExp struct {
	Value interface{}
}

// Param creates a bound parameter.
func Param(v interface{}) *ParamExp {
	return &ParamExp{Value: v}
}

// Build renders "?".
func (e *ParamExp) Build(_ dialects.Dialect) (string, []interface{}) {
	return "?", []interface{}{e.Value}
}

// ColumnExp references a column, optionally qualified by a table name.
type ColumnExp struct {
	Table string
	Name  string
}

// Col creates a column reference. An empty table leaves it unqualified.
func Col(table, name string) *ColumnExp {
	return &ColumnExp{Table: table, Name: name}
}

// Build renders the quoted, qualified column.
func (e *ColumnExp) Build(dialect dialects.Dialect) (string, []interface{}) {
	if e.Table == "" {
		return dialect.QuoteIdentifier(e.Name), nil
	}
	return QuoteTable(dialect, e.Table) + "." + dialect.QuoteIdentifier(e.Name), nil
}

// QuoteTable quotes a possibly schema-qualified table name.
func QuoteTable(dialect dialects.Dialect, table string) string {
	parts := strings.Split(table, ".")
	for i, p := range parts {
		parts[i] = dialect.QuoteIdentifier(p)
	}
	return strings.Join(parts, ".")
}

// operand renders a value used inside another expression: expressions are
// built, nil becomes NULL and anything else is bound.
func operand(v interface{}, dialect dialects.Dialect) (string, []interface{}) {
	switch val := v.(type) {
	case nil:
		return "NULL", nil
	case Expression:
		return val.Build(dialect)
	default:
		return "?", []interface{}{val}
	}
}

// CompareExp represents a binary comparison.
type CompareExp struct {
	Left     interface{}
	Operator string
	Right    interface{}
}

// Eq generates an equality expression (left = right).
// A nil right side generates "left IS NULL" instead.
func Eq(left, right interface{}) *CompareExp {
	return &CompareExp{Left: left, Operator: "=", Right: right}
}

// Build converts a comparison expression into a SQL fragment.
func (e *CompareExp) Build(dialect dialects.Dialect) (string, []interface{}) {
	left, args := operand(e.Left, dialect)
	if e.Right == nil && e.Operator == "=" {
		return left + " IS NULL", args
	}
	right, rightArgs := operand(e.Right, dialect)
	return left + " " + e.Operator + " " + right, append(args, rightArgs...)
}

// NullSafeEqExp compares two values treating NULLs as equal.
type NullSafeEqExp struct {
	Left  interface{}
	Right interface{}
}

// NullSafeEq generates a null-safe equality using the dialect's operator.
func NullSafeEq(left, right interface{}) *NullSafeEqExp {
	return &NullSafeEqExp{Left: left, Right: right}
}

// Build renders the dialect's null-safe comparison.
func (e *NullSafeEqExp) Build(dialect dialects.Dialect) (string, []interface{}) {
	left, args := operand(e.Left, dialect)
	right, rightArgs := operand(e.Right, dialect)
	return dialect.NullSafeEqual(left, right), append(args, rightArgs...)
}

// ArithmeticExp combines two operands with an arithmetic operator.
type ArithmeticExp struct {
	Left     interface{}
	Operator string
	Right    interface{}
}

// Add generates (left + right).
func Add(left, right interface{}) *ArithmeticExp {
	return &ArithmeticExp{Left: left, Operator: "+", Right: right}
}

// Sub generates (left - right).
func Sub(left, right interface{}) *ArithmeticExp {
	return &ArithmeticExp{Left: left, Operator: "-", Right: right}
}

// Mul generates (left * right).
func Mul(left, right interface{}) *ArithmeticExp {
	return &ArithmeticExp{Left: left, Operator: "*", Right: right}
}

// Build renders the operation in parentheses.
func (e *ArithmeticExp) Build(dialect dialects.Dialect) (string, []interface{}) {
	left, args := operand(e.Left, dialect)
	right, rightArgs := operand(e.Right, dialect)
	return "(" + left + " " + e.Operator + " " + right + ")", append(args, rightArgs...)
}

// AndExp represents an AND combination of multiple expressions.
type AndExp struct {
	Exps []Expression
}

// And generates an AND expression. Nil expressions are filtered out.
//
// Example:
//
//	expr.And(expr.Eq(expr.Col("books", "id"), 1), expr.Eq(expr.Col("books", "isbn"), "x"))
//
// Generates: ("books"."id" = ?) AND ("books"."isbn" = ?)
func And(exps ...Expression) *AndExp {
	return &AndExp{Exps: exps}
}

// Build converts an AND expression into a SQL fragment.
func (e *AndExp) Build(dialect dialects.Dialect) (string, []interface{}) {
	var parts []string
	var args []interface{}

	for _, exp := range e.Exps {
		if exp == nil {
			continue
		}
		sql, subArgs := exp.Build(dialect)
		if sql != "" {
			parts = append(parts, sql)
			args = append(args, subArgs...)
		}
	}

	switch len(parts) {
	case 0:
		return "", nil
	case 1:
		return parts[0], args
	}

	// Wrap each part in parentheses for correct precedence
	return "(" + strings.Join(parts, ") AND (") + ")", args
}

// GroupingExp wraps an expression in parentheses.
type GroupingExp struct {
	Exp Expression
}

// Grouping creates a parenthesized expression.
func Grouping(e Expression) *GroupingExp {
	return &GroupingExp{Exp: e}
}

// Build renders "(exp)".
func (e *GroupingExp) Build(dialect dialects.Dialect) (string, []interface{}) {
	sql, args := e.Exp.Build(dialect)
	return "(" + sql + ")", args
}

// Renumber replaces "?" placeholders outside of quoted literals and identifiers
// with the dialect's numbered placeholders.
func Renumber(sql string, dialect dialects.Dialect) string {
	if dialect.Placeholder(1) == "?" || !strings.Contains(sql, "?") {
		return sql
	}

	var sb strings.Builder
	sb.Grow(len(sql) + 16)
	var quote rune
	n := 0
	for _, r := range sql {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
			sb.WriteRune(r)
		case r == '\'' || r == '"' || r == '`':
			quote = r
			sb.WriteRune(r)
		case r == '?':
			n++
			sb.WriteString(dialect.Placeholder(n))
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
