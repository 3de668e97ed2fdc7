// Package schema describes the tables bulk updates target: column names,
// logical types, primary key, attribute aliases and timestamp columns.
package schema

import (
	"errors"
	"fmt"
	"slices"
)

// ColumnType is the logical type a column's values are cast through.
type ColumnType string

// Supported column types.
const (
	TypeBoolean  ColumnType = "boolean"
	TypeString   ColumnType = "string"
	TypeText     ColumnType = "text"
	TypeInteger  ColumnType = "integer"
	TypeFloat    ColumnType = "float"
	TypeDecimal  ColumnType = "decimal"
	TypeDate     ColumnType = "date"
	TypeDateTime ColumnType = "datetime"
	TypeTime     ColumnType = "time"
	TypeJSON     ColumnType = "json"
	TypeUUID     ColumnType = "uuid"
	TypeBinary   ColumnType = "binary"
)

// Valid reports whether t is a known column type.
func (t ColumnType) Valid() bool {
	switch t {
	case TypeBoolean, TypeString, TypeText, TypeInteger, TypeFloat, TypeDecimal,
		TypeDate, TypeDateTime, TypeTime, TypeJSON, TypeUUID, TypeBinary:
		return true
	}
	return false
}

// Column describes a single table column.
type Column struct {
	Name string     `yaml:"name"`
	Type ColumnType `yaml:"type"`
	// SQLType is the declared database type, e.g. "numeric(10,2)". Used for
	// explicit casts where the database cannot infer a type.
	SQLType  string `yaml:"sql_type"`
	Array    bool   `yaml:"array"`
	Nullable bool   `yaml:"nullable"`
	// Scale rounds decimal values to the given number of fractional digits.
	Scale int32 `yaml:"scale"`
	// Enum maps labels to stored values.
	Enum map[string]interface{} `yaml:"enum"`
}

// Model describes a table.
type Model struct {
	Table   string   `yaml:"table"`
	Columns []Column `yaml:"columns"`
	// PrimaryKey lists the key columns in order; composite when len > 1.
	PrimaryKey []string `yaml:"primary_key"`
	// Aliases maps attribute names to column names.
	Aliases map[string]string `yaml:"aliases"`
	// RecordTimestamps is the model default for bumping TimestampColumns.
	RecordTimestamps bool     `yaml:"record_timestamps"`
	TimestampColumns []string `yaml:"timestamp_columns"`
}

// Validate checks the model for internal consistency.
func (m *Model) Validate() error {
	if m.Table == "" {
		return errors.New("schema: empty table name")
	}
	if len(m.Columns) == 0 {
		return fmt.Errorf("schema: table %s has no columns", m.Table)
	}
	seen := make(map[string]bool, len(m.Columns))
	for _, c := range m.Columns {
		if c.Name == "" {
			return fmt.Errorf("schema: table %s has an unnamed column", m.Table)
		}
		if seen[c.Name] {
			return fmt.Errorf("schema: table %s declares column %s twice", m.Table, c.Name)
		}
		seen[c.Name] = true
		if !c.Type.Valid() {
			return fmt.Errorf("schema: column %s.%s has unknown type %q", m.Table, c.Name, c.Type)
		}
	}
	for _, pk := range m.PrimaryKey {
		if !seen[pk] {
			return fmt.Errorf("schema: primary key column %s.%s is not declared", m.Table, pk)
		}
	}
	for _, ts := range m.TimestampColumns {
		if !seen[ts] {
			return fmt.Errorf("schema: timestamp column %s.%s is not declared", m.Table, ts)
		}
	}
	for alias, target := range m.Aliases {
		if !seen[target] {
			return fmt.Errorf("schema: alias %s targets unknown column %s.%s", alias, m.Table, target)
		}
	}
	return nil
}

// Column returns the column with the given name.
func (m *Model) Column(name string) (*Column, bool) {
	i := m.Position(name)
	if i < 0 {
		return nil, false
	}
	return &m.Columns[i], true
}

// HasColumn reports whether the column is declared.
func (m *Model) HasColumn(name string) bool {
	return m.Position(name) >= 0
}

// Position returns the declaration index of a column, or -1.
func (m *Model) Position(name string) int {
	return slices.IndexFunc(m.Columns, func(c Column) bool { return c.Name == name })
}

// ResolveAlias maps an attribute alias to its column name. Unknown names are
// returned unchanged.
func (m *Model) ResolveAlias(name string) string {
	if target, ok := m.Aliases[name]; ok {
		return target
	}
	return name
}

// CompositeKey reports whether the primary key has more than one column.
func (m *Model) CompositeKey() bool {
	return len(m.PrimaryKey) > 1
}

// SortColumns orders names by declaration order. Unknown names go last in
// lexical order.
func (m *Model) SortColumns(names []string) {
	slices.SortFunc(names, func(a, b string) int {
		pa, pb := m.Position(a), m.Position(b)
		switch {
		case pa < 0 && pb < 0:
			if a < b {
				return -1
			}
			if a > b {
				return 1
			}
			return 0
		case pa < 0:
			return 1
		case pb < 0:
			return -1
		}
		return pa - pb
	})
}
