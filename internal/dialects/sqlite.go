package dialects

import (
	"strings"
)

// SQLiteDialect implements SQLite-specific SQL dialect.
type SQLiteDialect struct{}

func init() {
	RegisterDialect("sqlite", &SQLiteDialect{})
	RegisterDialect("sqlite3", &SQLiteDialect{})
}

// Name returns "sqlite".
func (d *SQLiteDialect) Name() string {
	return "sqlite"
}

// QuoteIdentifier quotes a SQLite identifier using double quotes.
func (d *SQLiteDialect) QuoteIdentifier(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// Placeholder returns SQLite placeholder format (always "?").
func (d *SQLiteDialect) Placeholder(_ int) string {
	return "?"
}

// SupportsValuesTables is true; UPDATE .. FROM needs SQLite 3.33.
func (d *SQLiteDialect) SupportsValuesTables() bool {
	return true
}

// ValuesRowPrefix is empty for SQLite.
func (d *SQLiteDialect) ValuesRowPrefix() string {
	return ""
}

// ValuesRequiresAliasing is false: SQLite names VALUES columns column1..N.
func (d *SQLiteDialect) ValuesRequiresAliasing() bool {
	return false
}

// ValuesDefaultColumnNames returns column1..columnN.
func (d *SQLiteDialect) ValuesDefaultColumnNames(width int) []string {
	return numberedColumnNames("column", 1, width)
}

// ValuesTableCasts returns nil; SQLite columns are dynamically typed.
func (d *SQLiteDialect) ValuesTableCasts(_ []ValuesColumn) []string {
	return nil
}

// NullSafeEqual renders the IS operator.
func (d *SQLiteDialect) NullSafeEqual(left, right string) string {
	return left + " IS " + right
}

// Greatest returns "MAX"; the multi-argument form is the scalar function.
func (d *SQLiteDialect) Greatest() string {
	return "MAX"
}

// Least returns "MIN".
func (d *SQLiteDialect) Least() string {
	return "MIN"
}

// Concat renders the || operator.
func (d *SQLiteDialect) Concat(parts []string) string {
	return strings.Join(parts, " || ")
}

// CurrentTimestamp returns the current UTC time with millisecond precision.
func (d *SQLiteDialect) CurrentTimestamp() string {
	return "STRFTIME('%Y-%m-%d %H:%M:%f', 'now')"
}

// UpdateFrom renders UPDATE .. SET .. FROM .. WHERE.
func (d *SQLiteDialect) UpdateFrom(u UpdateParts) (string, []interface{}) {
	return updateFromWhere(d, u)
}
