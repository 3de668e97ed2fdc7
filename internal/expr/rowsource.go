package expr

import (
	"slices"
	"strings"

	"github.com/coregx/updatebulk/internal/dialects"
)

// RowSource is a literal multi-row table built from a VALUES constructor.
// Row values are either Expressions, inserted as-is, or plain values, which
// are bound as parameters. nil renders as NULL.
type RowSource struct {
	Name    string
	Columns []string
	Rows    [][]interface{}
}

// NewRowSource creates a row source. All rows must have len(columns) values.
func NewRowSource(name string, rows [][]interface{}, columns []string) *RowSource {
	return &RowSource{Name: name, Columns: columns, Rows: rows}
}

// Width returns the number of columns.
func (r *RowSource) Width() int {
	return len(r.Columns)
}

// Col references a row source column by position. Negative positions count
// from the end.
func (r *RowSource) Col(i int) *ColumnExp {
	if i < 0 {
		i += len(r.Columns)
	}
	return Col(r.Name, r.Columns[i])
}

// Build renders the table constructor. When the dialect names VALUES columns
// the way r.Columns does, a bare VALUES list is emitted. Otherwise the first
// row becomes a SELECT carrying the aliases, followed by UNION ALL VALUES.
func (r *RowSource) Build(dialect dialects.Dialect) (string, []interface{}) {
	if len(r.Rows) == 0 {
		return "", nil
	}

	var sb strings.Builder
	var args []interface{}
	prefix := dialect.ValuesRowPrefix()

	if !dialect.ValuesRequiresAliasing() && slices.Equal(r.Columns, dialect.ValuesDefaultColumnNames(len(r.Columns))) {
		args = writeValues(&sb, r.Rows, prefix, dialect, args)
		return sb.String(), args
	}

	sb.WriteString("SELECT ")
	for i, value := range r.Rows[0] {
		if i > 0 {
			sb.WriteString(", ")
		}
		sql, subArgs := operand(value, dialect)
		sb.WriteString(sql)
		sb.WriteString(" ")
		sb.WriteString(dialect.QuoteIdentifier(r.Columns[i]))
		args = append(args, subArgs...)
	}
	if len(r.Rows) > 1 {
		sb.WriteString(" UNION ALL ")
		args = writeValues(&sb, r.Rows[1:], prefix, dialect, args)
	}
	return sb.String(), args
}

func writeValues(sb *strings.Builder, rows [][]interface{}, prefix string, dialect dialects.Dialect, args []interface{}) []interface{} {
	sb.WriteString("VALUES ")
	for i, row := range rows {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(prefix)
		sb.WriteString("(")
		for j, value := range row {
			if j > 0 {
				sb.WriteString(", ")
			}
			sql, subArgs := operand(value, dialect)
			sb.WriteString(sql)
			args = append(args, subArgs...)
		}
		sb.WriteString(")")
	}
	return args
}

// DerivedTableExp renders a row source as an aliased derived table, optionally
// wrapped in a projection that casts its columns.
type DerivedTableExp struct {
	Source *RowSource
	// Casts holds one SQL type per column, "" for no cast. Nil disables the
	// projection entirely.
	Casts []string
}

// Derived creates an aliased derived table for the row source.
func (r *RowSource) Derived(casts []string) *DerivedTableExp {
	return &DerivedTableExp{Source: r, Casts: casts}
}

// Build renders "(...) AS name".
func (e *DerivedTableExp) Build(dialect dialects.Dialect) (string, []interface{}) {
	name := dialect.QuoteIdentifier(e.Source.Name)

	if e.Casts == nil {
		sql, args := e.Source.Build(dialect)
		return "(" + sql + ") AS " + name, args
	}

	defaults := dialect.ValuesDefaultColumnNames(e.Source.Width())
	inner := NewRowSource(e.Source.Name, e.Source.Rows, defaults)

	parts := make([]string, len(defaults))
	for i, col := range defaults {
		proj := dialect.QuoteIdentifier(col)
		if i < len(e.Casts) && e.Casts[i] != "" {
			proj = "CAST(" + proj + " AS " + e.Casts[i] + ")"
		}
		if e.Source.Columns[i] != col {
			proj += " AS " + dialect.QuoteIdentifier(e.Source.Columns[i])
		}
		parts[i] = proj
	}

	sql, args := inner.Build(dialect)
	return "(SELECT " + strings.Join(parts, ", ") + " FROM (" + sql + ") AS " + name + ") AS " + name, args
}
