package schema

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Book struct {
	ID        int64           `db:"id,pk"`
	Title     string          `db:"title"`
	Price     decimal.Decimal `db:"price" sqltype:"numeric(10,2)"`
	Status    int             `db:"status"`
	Tags      []string        `db:"tags"`
	Cover     []byte          `db:"cover"`
	Meta      json.RawMessage `db:"meta"`
	Ref       uuid.UUID       `db:"ref"`
	Published *time.Time      `db:"published_on,type=date"`
	UpdatedAt time.Time       `db:"updated_at"`
	Ignored   string          `db:"-"`
	internal  string
}

type FlightSeat struct {
	Flight    string `db:"flight,pk"`
	Seat      string `db:"seat,pk"`
	Passenger string
	CheckedAt time.Time `db:"checked_at,timestamp"`
}

type legacyRow struct {
	ID   int
	Name string
}

func (legacyRow) TableName() string { return "legacy" }

func TestFromStruct(t *testing.T) {
	m, err := FromStruct(Book{})
	require.NoError(t, err)

	assert.Equal(t, "books", m.Table)
	assert.Equal(t, []string{"id"}, m.PrimaryKey)
	assert.False(t, m.CompositeKey())
	assert.True(t, m.RecordTimestamps)
	assert.Equal(t, []string{"updated_at"}, m.TimestampColumns)

	names := make([]string, len(m.Columns))
	for i, c := range m.Columns {
		names[i] = c.Name
	}
	assert.Equal(t, []string{"id", "title", "price", "status", "tags", "cover", "meta", "ref", "published_on", "updated_at"}, names)

	expect := map[string]Column{
		"id":           {Name: "id", Type: TypeInteger},
		"price":        {Name: "price", Type: TypeDecimal, SQLType: "numeric(10,2)"},
		"tags":         {Name: "tags", Type: TypeString, Array: true, Nullable: true},
		"cover":        {Name: "cover", Type: TypeBinary, Nullable: true},
		"meta":         {Name: "meta", Type: TypeJSON},
		"ref":          {Name: "ref", Type: TypeUUID},
		"published_on": {Name: "published_on", Type: TypeDate, Nullable: true},
		"updated_at":   {Name: "updated_at", Type: TypeDateTime},
	}
	for name, want := range expect {
		got, ok := m.Column(name)
		require.True(t, ok, name)
		assert.Equal(t, want, *got, name)
	}
}

func TestFromStructCompositeKey(t *testing.T) {
	m, err := FromStruct(&FlightSeat{}, WithAlias("name", "passenger"))
	require.NoError(t, err)

	assert.Equal(t, "flight_seats", m.Table)
	assert.Equal(t, []string{"flight", "seat"}, m.PrimaryKey)
	assert.True(t, m.CompositeKey())
	assert.Equal(t, []string{"checked_at"}, m.TimestampColumns)
	assert.Equal(t, "passenger", m.ResolveAlias("name"))
	assert.Equal(t, "seat", m.ResolveAlias("seat"))
}

func TestFromStructTablerAndIDFallback(t *testing.T) {
	m, err := FromStruct(legacyRow{}, WithRecordTimestamps(false), WithEnum("name", map[string]interface{}{"a": "A"}))
	require.NoError(t, err)

	assert.Equal(t, "legacy", m.Table)
	assert.Equal(t, []string{"id"}, m.PrimaryKey)
	assert.False(t, m.RecordTimestamps)
	col, _ := m.Column("name")
	assert.Equal(t, "A", col.Enum["a"])

	m, err = FromStruct(legacyRow{}, WithTable("renamed"))
	require.NoError(t, err)
	assert.Equal(t, "renamed", m.Table)
}

func TestFromStructErrors(t *testing.T) {
	_, err := FromStruct(nil)
	assert.Error(t, err)

	_, err = FromStruct(42)
	assert.Error(t, err)

	_, err = FromStruct(Book{}, WithAlias("x", "missing"))
	assert.Error(t, err)
}

func TestModelValidate(t *testing.T) {
	tests := []struct {
		name  string
		model Model
	}{
		{"empty table", Model{Columns: []Column{{Name: "id", Type: TypeInteger}}}},
		{"no columns", Model{Table: "t"}},
		{"unnamed column", Model{Table: "t", Columns: []Column{{Type: TypeInteger}}}},
		{"duplicate column", Model{Table: "t", Columns: []Column{{Name: "a", Type: TypeInteger}, {Name: "a", Type: TypeText}}}},
		{"unknown type", Model{Table: "t", Columns: []Column{{Name: "a", Type: "money"}}}},
		{"unknown pk", Model{Table: "t", Columns: []Column{{Name: "a", Type: TypeInteger}}, PrimaryKey: []string{"id"}}},
		{"unknown timestamp", Model{Table: "t", Columns: []Column{{Name: "a", Type: TypeInteger}}, TimestampColumns: []string{"updated_at"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.model.Validate())
		})
	}
}

func TestSortColumns(t *testing.T) {
	m := &Model{Table: "t", Columns: []Column{{Name: "c"}, {Name: "a"}, {Name: "b"}}}
	names := []string{"b", "zz", "a", "c", "yy"}
	m.SortColumns(names)
	assert.Equal(t, []string{"c", "a", "b", "yy", "zz"}, names)
}

func TestStructValues(t *testing.T) {
	values, err := StructValues(&FlightSeat{Flight: "AA100", Seat: "12A", Passenger: "Alice"})
	require.NoError(t, err)

	assert.Equal(t, "Alice", values["passenger"])
	assert.Contains(t, values, "checked_at")
	assert.NotContains(t, values, "flight")
	assert.NotContains(t, values, "seat")

	_, err = StructValues((*FlightSeat)(nil))
	assert.Error(t, err)
	_, err = StructValues("nope")
	assert.Error(t, err)
}
