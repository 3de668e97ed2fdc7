package dialects

import (
	"strings"
)

// MySQLDialect implements MySQL-specific SQL dialect.
// Version is the server version reported by SELECT VERSION(); empty means
// a server recent enough for every feature is assumed.
type MySQLDialect struct {
	Version string
}

// MariaDBDialect implements MariaDB-specific SQL dialect. It shares quoting,
// placeholders and the UPDATE layout with MySQL but names VALUES columns
// after the first row's values, so aliasing is always required.
type MariaDBDialect struct {
	MySQLDialect
}

// Minimum server versions with VALUES table constructors.
const (
	MySQLValuesTablesVersion   = "8.0.19"
	MariaDBValuesTablesVersion = "10.3.3"
)

func init() {
	RegisterDialect("mysql", &MySQLDialect{})
	RegisterDialect("mariadb", &MariaDBDialect{})
}

// Name returns "mysql".
func (d *MySQLDialect) Name() string {
	return "mysql"
}

// QuoteIdentifier quotes a MySQL identifier using backticks.
func (d *MySQLDialect) QuoteIdentifier(s string) string {
	return "`" + strings.ReplaceAll(s, "`", "``") + "`"
}

// Placeholder returns MySQL placeholder format (always "?").
func (d *MySQLDialect) Placeholder(_ int) string {
	return "?"
}

// SupportsValuesTables reports whether the server is at least 8.0.19.
func (d *MySQLDialect) SupportsValuesTables() bool {
	return versionAtLeast(d.Version, MySQLValuesTablesVersion)
}

// ValuesRowPrefix returns "ROW": MySQL spells tuples as VALUES ROW(1, 2).
func (d *MySQLDialect) ValuesRowPrefix() string {
	return "ROW"
}

// ValuesRequiresAliasing is false for MySQL.
func (d *MySQLDialect) ValuesRequiresAliasing() bool {
	return false
}

// ValuesDefaultColumnNames returns column_0..column_(N-1).
func (d *MySQLDialect) ValuesDefaultColumnNames(width int) []string {
	return numberedColumnNames("column_", 0, width)
}

// ValuesTableCasts returns nil; MySQL converts on assignment.
func (d *MySQLDialect) ValuesTableCasts(_ []ValuesColumn) []string {
	return nil
}

// NullSafeEqual renders the <=> operator.
func (d *MySQLDialect) NullSafeEqual(left, right string) string {
	return left + " <=> " + right
}

// Greatest returns "GREATEST".
func (d *MySQLDialect) Greatest() string {
	return "GREATEST"
}

// Least returns "LEAST".
func (d *MySQLDialect) Least() string {
	return "LEAST"
}

// Concat renders CONCAT(...).
func (d *MySQLDialect) Concat(parts []string) string {
	return "CONCAT(" + strings.Join(parts, ", ") + ")"
}

// CurrentTimestamp returns CURRENT_TIMESTAMP(6).
func (d *MySQLDialect) CurrentTimestamp() string {
	return "CURRENT_TIMESTAMP(6)"
}

// UpdateFrom renders UPDATE .. JOIN .. ON .. SET with qualified targets.
func (d *MySQLDialect) UpdateFrom(u UpdateParts) (string, []interface{}) {
	var sb strings.Builder
	var args []interface{}

	sb.WriteString("UPDATE ")
	sb.WriteString(u.Table)
	sb.WriteString(" JOIN ")
	sb.WriteString(u.Source.SQL)
	args = append(args, u.Source.Args...)
	sb.WriteString(" ON ")
	sb.WriteString(u.On.SQL)
	args = append(args, u.On.Args...)
	sb.WriteString(" SET ")
	for i, set := range u.Set {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(u.Table)
		sb.WriteString(".")
		sb.WriteString(d.QuoteIdentifier(set.Column))
		sb.WriteString(" = ")
		sb.WriteString(set.Value.SQL)
		args = append(args, set.Value.Args...)
	}

	return sb.String(), args
}

// Name returns "mariadb".
func (d *MariaDBDialect) Name() string {
	return "mariadb"
}

// SupportsValuesTables reports whether the server is at least 10.3.3.
func (d *MariaDBDialect) SupportsValuesTables() bool {
	return versionAtLeast(d.Version, MariaDBValuesTablesVersion)
}

// ValuesRowPrefix is empty for MariaDB.
func (d *MariaDBDialect) ValuesRowPrefix() string {
	return ""
}

// ValuesRequiresAliasing is always true for MariaDB.
func (d *MariaDBDialect) ValuesRequiresAliasing() bool {
	return true
}

// ValuesDefaultColumnNames returns the column1..columnN alias convention.
func (d *MariaDBDialect) ValuesDefaultColumnNames(width int) []string {
	return numberedColumnNames("column", 1, width)
}
