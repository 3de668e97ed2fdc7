// Copyright (c) 2025 COREGX. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package expr

import (
	"strings"

	"github.com/coregx/updatebulk/internal/dialects"
)

// =============================================================================
// CASE Expression
// =============================================================================

// CaseExp represents a SQL CASE expression.
// Supports both simple CASE (with operand) and searched CASE (conditions only).
type CaseExp struct {
	operand   Expression
	whens     []whenClause
	elseValue interface{}
	hasElse   bool
}

// whenClause represents a single WHEN clause in a CASE expression.
type whenClause struct {
	condition interface{}
	result    interface{}
}

// Case creates a simple CASE expression.
//
// Example:
//
//	expr.Case(expr.Col("t", "column3")).When(expr.String("1"), 10).Else(expr.Col("books", "price"))
//
// Generates: CASE "t"."column3" WHEN '1' THEN ? ELSE "books"."price" END
func Case(operand Expression) *CaseExp {
	return &CaseExp{operand: operand}
}

// CaseWhen creates a searched CASE expression (without operand).
func CaseWhen() *CaseExp {
	return &CaseExp{}
}

// When adds a WHEN clause to the CASE expression.
func (c *CaseExp) When(condition, result interface{}) *CaseExp {
	c.whens = append(c.whens, whenClause{condition: condition, result: result})
	return c
}

// Else sets the ELSE value for the CASE expression.
func (c *CaseExp) Else(value interface{}) *CaseExp {
	c.elseValue = value
	c.hasElse = true
	return c
}

// Build implements the Expression interface.
func (c *CaseExp) Build(dialect dialects.Dialect) (string, []interface{}) {
	if len(c.whens) == 0 {
		return "", nil
	}

	var sql strings.Builder
	args := make([]interface{}, 0, len(c.whens)*2+1)

	sql.WriteString("CASE")
	if c.operand != nil {
		s, a := c.operand.Build(dialect)
		sql.WriteString(" ")
		sql.WriteString(s)
		args = append(args, a...)
	}

	for _, when := range c.whens {
		cond, condArgs := operand(when.condition, dialect)
		sql.WriteString(" WHEN ")
		sql.WriteString(cond)
		args = append(args, condArgs...)

		result, resultArgs := operand(when.result, dialect)
		sql.WriteString(" THEN ")
		sql.WriteString(result)
		args = append(args, resultArgs...)
	}

	if c.hasElse {
		s, a := operand(c.elseValue, dialect)
		sql.WriteString(" ELSE ")
		sql.WriteString(s)
		args = append(args, a...)
	}

	sql.WriteString(" END")
	return sql.String(), args
}

// =============================================================================
// Function calls
// =============================================================================

// FuncExp represents a SQL function call.
type FuncExp struct {
	name string
	args []interface{}
}

// Func creates a function call. Non-expression arguments are bound.
//
// Example:
//
//	expr.Func("SUBSTRING", expr.Col("t", "column4"), expr.Int(2), expr.Int(1))
//
// Generates: SUBSTRING("t"."column4", 2, 1)
func Func(name string, args ...interface{}) *FuncExp {
	return &FuncExp{name: name, args: args}
}

// Build implements the Expression interface.
func (f *FuncExp) Build(dialect dialects.Dialect) (string, []interface{}) {
	parts, args := operands(f.args, dialect)
	return f.name + "(" + strings.Join(parts, ", ") + ")", args
}

// operands renders a list of operands.
func operands(values []interface{}, dialect dialects.Dialect) ([]string, []interface{}) {
	parts := make([]string, 0, len(values))
	var args []interface{}
	for _, val := range values {
		sql, subArgs := operand(val, dialect)
		parts = append(parts, sql)
		args = append(args, subArgs...)
	}
	return parts, args
}

// Coalesce creates a COALESCE expression returning the first non-NULL value.
func Coalesce(values ...interface{}) *FuncExp {
	return Func("COALESCE", values...)
}

// =============================================================================
// GREATEST / LEAST Expressions
// =============================================================================

// GreatestLeastExp represents a row-wise GREATEST or LEAST expression.
// SQLite renders these as the multi-argument MAX and MIN.
type GreatestLeastExp struct {
	values   []interface{}
	greatest bool
}

// Greatest creates a GREATEST expression.
func Greatest(values ...interface{}) *GreatestLeastExp {
	return &GreatestLeastExp{values: values, greatest: true}
}

// Least creates a LEAST expression.
func Least(values ...interface{}) *GreatestLeastExp {
	return &GreatestLeastExp{values: values}
}

// Build implements the Expression interface.
func (g *GreatestLeastExp) Build(dialect dialects.Dialect) (string, []interface{}) {
	name := dialect.Least()
	if g.greatest {
		name = dialect.Greatest()
	}
	parts, args := operands(g.values, dialect)
	return name + "(" + strings.Join(parts, ", ") + ")", args
}

// =============================================================================
// CONCAT Expression
// =============================================================================

// ConcatExp represents a SQL string concatenation.
// Uses database-specific syntax:
//   - PostgreSQL/SQLite: value1 || value2
//   - MySQL/MariaDB: CONCAT(value1, value2)
type ConcatExp struct {
	values []interface{}
}

// Concat creates a string concatenation expression.
func Concat(values ...interface{}) *ConcatExp {
	return &ConcatExp{values: values}
}

// Build implements the Expression interface.
func (c *ConcatExp) Build(dialect dialects.Dialect) (string, []interface{}) {
	parts, args := operands(c.values, dialect)
	return dialect.Concat(parts), args
}

// =============================================================================
// CAST and current time
// =============================================================================

// CastExp represents CAST(value AS type).
type CastExp struct {
	value   interface{}
	sqlType string
}

// Cast creates a CAST expression.
func Cast(value interface{}, sqlType string) *CastExp {
	return &CastExp{value: value, sqlType: sqlType}
}

// Build implements the Expression interface.
func (c *CastExp) Build(dialect dialects.Dialect) (string, []interface{}) {
	sql, args := operand(c.value, dialect)
	return "CAST(" + sql + " AS " + c.sqlType + ")", args
}

// CurrentTimestampExp renders the dialect's high precision current time.
type CurrentTimestampExp struct{}

// CurrentTimestamp creates a current time expression.
func CurrentTimestamp() CurrentTimestampExp {
	return CurrentTimestampExp{}
}

// Build implements the Expression interface.
func (CurrentTimestampExp) Build(dialect dialects.Dialect) (string, []interface{}) {
	return dialect.CurrentTimestamp(), nil
}
