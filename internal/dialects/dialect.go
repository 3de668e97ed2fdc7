// Package dialects provides database-specific SQL dialect implementations for
// PostgreSQL, MySQL, MariaDB and SQLite. A dialect knows how to quote identifiers,
// number placeholders, render literal VALUES tables and lay out a joined UPDATE.
package dialects

import (
	"fmt"
	"strings"
	"sync"
)

// Dialect defines database-specific behaviors.
type Dialect interface {
	// Name returns the database family name (postgres, mysql, mariadb, sqlite).
	Name() string
	QuoteIdentifier(string) string
	Placeholder(int) string

	// SupportsValuesTables reports whether multi-row VALUES table constructors
	// can be used as a derived table on this connection.
	SupportsValuesTables() bool
	// ValuesRowPrefix is prepended to every row tuple of a VALUES constructor.
	ValuesRowPrefix() string
	// ValuesRequiresAliasing reports whether VALUES columns must always be
	// named explicitly because the database has no stable naming convention.
	ValuesRequiresAliasing() bool
	// ValuesDefaultColumnNames returns the names the database assigns to the
	// columns of a VALUES constructor of the given width.
	ValuesDefaultColumnNames(width int) []string
	// ValuesTableCasts returns, per VALUES column, the SQL type the column must
	// be cast to, or "" when the inferred type can be trusted. A nil result
	// means no explicit casting at all.
	ValuesTableCasts(cols []ValuesColumn) []string

	// NullSafeEqual renders an equality that treats two NULLs as equal.
	NullSafeEqual(left, right string) string
	// Greatest and Least return the function names for row-wise max and min.
	Greatest() string
	Least() string
	// Concat renders string concatenation of the given SQL fragments.
	Concat(parts []string) string
	// CurrentTimestamp renders the highest precision current time expression.
	CurrentTimestamp() string

	// UpdateFrom lays out an UPDATE of a table joined against a derived source.
	UpdateFrom(u UpdateParts) (string, []interface{})
}

// ValuesColumn describes the target column a VALUES column is assigned to or
// compared against.
type ValuesColumn struct {
	// Type is the logical column type (integer, string, decimal, ...).
	Type string
	// SQLType is the declared database type, empty when unknown.
	SQLType string
	Array   bool
	// AllNull is true when every row carries NULL in this column.
	AllNull bool
}

// Fragment is a rendered SQL fragment with its "?" bound arguments.
type Fragment struct {
	SQL  string
	Args []interface{}
}

// SetClause is a single assignment of an UPDATE statement.
type SetClause struct {
	// Column is the unquoted target column name.
	Column string
	Value  Fragment
}

// UpdateParts holds the pieces of a joined UPDATE.
type UpdateParts struct {
	// Table is the quoted target table.
	Table string
	// Source is the derived table including its alias.
	Source Fragment
	// On joins the target with the source.
	On  Fragment
	Set []SetClause
}

var (
	mu       sync.RWMutex
	dialects = make(map[string]Dialect)
)

// RegisterDialect registers a database dialect by driver name.
func RegisterDialect(name string, d Dialect) {
	mu.Lock()
	defer mu.Unlock()
	dialects[name] = d
}

// LookupDialect retrieves a registered dialect by driver name.
func LookupDialect(name string) (Dialect, bool) {
	mu.RLock()
	defer mu.RUnlock()
	d, ok := dialects[name]
	return d, ok
}

// GetDialect retrieves a registered dialect by driver name, panics if not found.
func GetDialect(name string) Dialect {
	if d, ok := LookupDialect(name); ok {
		return d
	}
	panic("unsupported dialect: " + name)
}

// numberedColumnNames returns prefix+start .. prefix+(start+width-1).
func numberedColumnNames(prefix string, start, width int) []string {
	names := make([]string, width)
	for i := range names {
		names[i] = fmt.Sprintf("%s%d", prefix, start+i)
	}
	return names
}

// updateFromWhere renders UPDATE .. SET .. FROM .. WHERE with unqualified
// SET targets, as accepted by PostgreSQL and SQLite.
func updateFromWhere(d Dialect, u UpdateParts) (string, []interface{}) {
	var sb strings.Builder
	var args []interface{}

	sb.WriteString("UPDATE ")
	sb.WriteString(u.Table)
	sb.WriteString(" SET ")
	for i, set := range u.Set {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(d.QuoteIdentifier(set.Column))
		sb.WriteString(" = ")
		sb.WriteString(set.Value.SQL)
		args = append(args, set.Value.Args...)
	}
	sb.WriteString(" FROM ")
	sb.WriteString(u.Source.SQL)
	args = append(args, u.Source.Args...)
	sb.WriteString(" WHERE ")
	sb.WriteString(u.On.SQL)
	args = append(args, u.On.Args...)

	return sb.String(), args
}
