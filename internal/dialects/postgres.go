package dialects

import (
	"fmt"
	"strings"
)

// PostgresDialect implements PostgreSQL-specific SQL dialect.
type PostgresDialect struct{}

func init() {
	RegisterDialect("postgres", &PostgresDialect{})
	RegisterDialect("postgresql", &PostgresDialect{})
	RegisterDialect("pgx", &PostgresDialect{})
}

// postgresTypes maps logical column types to the SQL type used when a VALUES
// column needs an explicit cast and the column declares no SQL type.
var postgresTypes = map[string]string{
	"boolean":  "boolean",
	"integer":  "bigint",
	"float":    "double precision",
	"decimal":  "numeric",
	"date":     "date",
	"datetime": "timestamp",
	"time":     "time",
	"json":     "jsonb",
	"uuid":     "uuid",
	"binary":   "bytea",
	"string":   "text",
	"text":     "text",
}

// Name returns "postgres".
func (d *PostgresDialect) Name() string {
	return "postgres"
}

// QuoteIdentifier quotes a PostgreSQL identifier using double quotes.
func (d *PostgresDialect) QuoteIdentifier(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// Placeholder returns PostgreSQL placeholder format ($1, $2, etc.).
func (d *PostgresDialect) Placeholder(index int) string {
	return fmt.Sprintf("$%d", index)
}

// SupportsValuesTables is always true for PostgreSQL.
func (d *PostgresDialect) SupportsValuesTables() bool {
	return true
}

// ValuesRowPrefix is empty for PostgreSQL.
func (d *PostgresDialect) ValuesRowPrefix() string {
	return ""
}

// ValuesRequiresAliasing is false: PostgreSQL names VALUES columns column1..N.
func (d *PostgresDialect) ValuesRequiresAliasing() bool {
	return false
}

// ValuesDefaultColumnNames returns column1..columnN.
func (d *PostgresDialect) ValuesDefaultColumnNames(width int) []string {
	return numberedColumnNames("column", 1, width)
}

// ValuesTableCasts casts every column that is not plain text. Bound parameters
// inside VALUES are resolved as text, so anything compared with or assigned to
// a non-text column needs an explicit type, as do arrays and all-NULL columns.
func (d *PostgresDialect) ValuesTableCasts(cols []ValuesColumn) []string {
	casts := make([]string, len(cols))
	needed := false
	for i, col := range cols {
		textual := col.Type == "string" || col.Type == "text"
		if textual && !col.Array && !col.AllNull {
			continue
		}
		sqlType := col.SQLType
		if sqlType == "" {
			base, ok := postgresTypes[col.Type]
			if !ok {
				base = "text"
			}
			sqlType = base
			if col.Array {
				sqlType += "[]"
			}
		}
		casts[i] = sqlType
		needed = true
	}
	if !needed {
		return nil
	}
	return casts
}

// NullSafeEqual renders IS NOT DISTINCT FROM.
func (d *PostgresDialect) NullSafeEqual(left, right string) string {
	return left + " IS NOT DISTINCT FROM " + right
}

// Greatest returns "GREATEST".
func (d *PostgresDialect) Greatest() string {
	return "GREATEST"
}

// Least returns "LEAST".
func (d *PostgresDialect) Least() string {
	return "LEAST"
}

// Concat renders the || operator.
func (d *PostgresDialect) Concat(parts []string) string {
	return strings.Join(parts, " || ")
}

// CurrentTimestamp returns CURRENT_TIMESTAMP, which has microsecond precision.
func (d *PostgresDialect) CurrentTimestamp() string {
	return "CURRENT_TIMESTAMP"
}

// UpdateFrom renders UPDATE .. SET .. FROM .. WHERE.
func (d *PostgresDialect) UpdateFrom(u UpdateParts) (string, []interface{}) {
	return updateFromWhere(d, u)
}
