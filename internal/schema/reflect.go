package schema

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/go-openapi/inflect"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Tabler lets a struct override the inferred table name.
type Tabler interface {
	TableName() string
}

// inflector snake_cases Go names, keeping common acronyms in one piece.
var inflector = func() *inflect.Ruleset {
	rs := inflect.NewDefaultRuleset()
	for _, acronym := range []string{"UUID", "JSON", "HTML", "URL", "API", "SQL", "ID"} {
		rs.AddAcronym(acronym)
	}
	return rs
}()

// updateTimestampColumns are bumped automatically when present.
var updateTimestampColumns = []string{"updated_at", "updated_on"}

// dbTag is a parsed db struct tag.
//
// Supported formats:
//   - "column"             -> plain column
//   - "column,pk"          -> primary key column (composite when repeated)
//   - "column,timestamp"   -> bumped on every changing update
//   - "column,type=date"   -> overrides the inferred column type
//   - "-"                  -> skip field
type dbTag struct {
	column    string
	pk        bool
	timestamp bool
	colType   ColumnType
}

func parseDBTag(tag string) dbTag {
	parts := strings.Split(tag, ",")
	t := dbTag{column: strings.TrimSpace(parts[0])}
	for _, part := range parts[1:] {
		part = strings.TrimSpace(part)
		switch {
		case part == "pk":
			t.pk = true
		case part == "timestamp":
			t.timestamp = true
		case strings.HasPrefix(part, "type="):
			t.colType = ColumnType(strings.TrimPrefix(part, "type="))
		}
	}
	return t
}

// ModelOption configures a model built by FromStruct.
type ModelOption func(*Model)

// WithTable overrides the table name.
func WithTable(table string) ModelOption {
	return func(m *Model) {
		m.Table = table
	}
}

// WithAlias adds an attribute alias.
func WithAlias(alias, column string) ModelOption {
	return func(m *Model) {
		if m.Aliases == nil {
			m.Aliases = make(map[string]string)
		}
		m.Aliases[alias] = column
	}
}

// WithEnum maps labels to stored values for a column.
func WithEnum(column string, labels map[string]interface{}) ModelOption {
	return func(m *Model) {
		if c, ok := m.Column(column); ok {
			c.Enum = labels
		}
	}
}

// WithRecordTimestamps overrides the model timestamp default.
func WithRecordTimestamps(record bool) ModelOption {
	return func(m *Model) {
		m.RecordTimestamps = record
	}
}

// FromStruct builds a model from a struct's db tags.
//
// Rules:
//   - Unexported fields and db:"-" fields are skipped.
//   - Fields without a db tag use the snake_cased field name.
//   - The table name is the pluralized snake_cased type name unless the
//     struct implements Tabler.
//   - Without pk tags, a field named ID becomes the primary key.
//   - updated_at and updated_on are timestamp columns; timestamps are
//     recorded by default when any exist.
//
// Example:
//
//	type Book struct {
//	    ID        int64           `db:"id,pk"`
//	    Title     string          `db:"title"`
//	    Price     decimal.Decimal `db:"price" sqltype:"numeric(10,2)"`
//	    UpdatedAt time.Time       `db:"updated_at"`
//	}
//	model, err := schema.FromStruct(Book{})
func FromStruct(v interface{}, opts ...ModelOption) (*Model, error) {
	t := reflect.TypeOf(v)
	if t == nil {
		return nil, errors.New("FromStruct: nil value")
	}
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, errors.New("FromStruct: expected struct, got " + t.Kind().String())
	}

	m := &Model{Table: inflector.Pluralize(inflector.Underscore(t.Name()))}
	if tabler, ok := reflect.New(t).Interface().(Tabler); ok {
		m.Table = tabler.TableName()
	}

	idColumn := ""
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		tag := dbTag{column: inflector.Underscore(field.Name)}
		if raw, ok := field.Tag.Lookup("db"); ok {
			tag = parseDBTag(raw)
			if tag.column == "-" {
				continue
			}
		}

		col := Column{
			Name:    tag.column,
			SQLType: field.Tag.Get("sqltype"),
		}
		col.Type, col.Array, col.Nullable = inferType(field.Type)
		if tag.colType != "" {
			col.Type = tag.colType
		}
		m.Columns = append(m.Columns, col)

		if tag.pk {
			m.PrimaryKey = append(m.PrimaryKey, col.Name)
		}
		if field.Name == "ID" {
			idColumn = col.Name
		}
		if tag.timestamp || isUpdateTimestamp(col.Name) {
			m.TimestampColumns = append(m.TimestampColumns, col.Name)
		}
	}

	if len(m.PrimaryKey) == 0 && idColumn != "" {
		m.PrimaryKey = []string{idColumn}
	}
	m.RecordTimestamps = len(m.TimestampColumns) > 0

	for _, opt := range opts {
		opt(m)
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

func isUpdateTimestamp(name string) bool {
	for _, ts := range updateTimestampColumns {
		if ts == name {
			return true
		}
	}
	return false
}

var (
	timeType    = reflect.TypeOf(time.Time{})
	decimalType = reflect.TypeOf(decimal.Decimal{})
	uuidType    = reflect.TypeOf(uuid.UUID{})
	rawJSONType = reflect.TypeOf(json.RawMessage{})
)

// inferType maps a Go field type to a column type.
func inferType(t reflect.Type) (colType ColumnType, array, nullable bool) {
	if t.Kind() == reflect.Ptr {
		nullable = true
		t = t.Elem()
	}

	switch t {
	case timeType:
		return TypeDateTime, false, nullable
	case decimalType:
		return TypeDecimal, false, nullable
	case uuidType:
		return TypeUUID, false, nullable
	case rawJSONType:
		return TypeJSON, false, nullable
	}

	switch t.Kind() {
	case reflect.Bool:
		return TypeBoolean, false, nullable
	case reflect.String:
		return TypeString, false, nullable
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return TypeInteger, false, nullable
	case reflect.Float32, reflect.Float64:
		return TypeFloat, false, nullable
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return TypeBinary, false, true
		}
		elem, _, _ := inferType(t.Elem())
		return elem, true, true
	case reflect.Map, reflect.Struct, reflect.Interface:
		return TypeJSON, false, true
	}
	return TypeString, false, nullable
}

// StructValues converts a struct to a column map using db tags, for use as
// the assignments of one row.
//
// Rules:
//   - Unexported fields are skipped.
//   - db:"-" fields are skipped.
//   - Columns tagged pk are skipped.
//   - Fields without db tag use the snake_cased field name.
//   - Zero values are included.
func StructValues(data interface{}) (map[string]interface{}, error) {
	v := reflect.ValueOf(data)
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return nil, errors.New("StructValues: nil pointer")
		}
		v = v.Elem()
	}

	if v.Kind() != reflect.Struct {
		return nil, errors.New("StructValues: expected struct, got " + v.Kind().String())
	}

	t := v.Type()
	result := make(map[string]interface{})

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		name := inflector.Underscore(field.Name)
		if raw, ok := field.Tag.Lookup("db"); ok {
			tag := parseDBTag(raw)
			if tag.column == "-" || tag.pk {
				continue
			}
			name = tag.column
		}

		result[name] = v.Field(i).Interface()
	}

	return result, nil
}
