// Package types casts user-supplied values through a column's logical type
// and serializes them to the primitive forms database drivers accept.
//
// Cast normalizes loosely typed input ("42", 42.0, int32(42)) to one Go
// representation per column type, so two values that mean the same thing
// compare equal. Serialize turns a cast value into a driver.Value.
package types

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/coregx/updatebulk/internal/schema"
)

// ErrInvalidValue is returned when a value cannot be cast to its column type.
var ErrInvalidValue = errors.New("invalid value")

// CastError describes a value that could not be cast to its column type.
type CastError struct {
	Column string
	Type   schema.ColumnType
	Value  interface{}
	Err    error
}

func (e *CastError) Error() string {
	msg := fmt.Sprintf("cannot cast %v (%T) to %s for column %s", e.Value, e.Value, e.Type, e.Column)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying parse error, if any.
func (e *CastError) Unwrap() error {
	return e.Err
}

// Is makes every CastError match ErrInvalidValue.
func (e *CastError) Is(target error) bool {
	return target == ErrInvalidValue
}

// Layouts accepted when parsing temporal strings.
const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02 15:04:05.999999"
	TimeLayout     = "15:04:05.999999"
)

var dateTimeLayouts = []string{
	time.RFC3339Nano,
	DateTimeLayout,
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04",
	DateLayout,
}

var timeLayouts = []string{TimeLayout, "15:04", time.RFC3339Nano, DateTimeLayout}

// Cast converts v to the canonical Go representation for col.
//
// Canonical representations:
//   - boolean:          bool
//   - string, text:     string
//   - integer:          int64
//   - float:            float64
//   - decimal:          decimal.Decimal, rounded to col.Scale when set
//   - date, datetime:   time.Time in UTC
//   - time:             time.Time on 2000-01-01 UTC
//   - json:             json.RawMessage
//   - uuid:             uuid.UUID
//   - binary:           []byte
//   - arrays:           []interface{} of the element representation
//
// nil and nil pointers cast to nil. Enum labels are mapped to their stored
// value first.
func Cast(col *schema.Column, v interface{}) (interface{}, error) {
	unwrapped, err := unwrap(v)
	if err != nil {
		return nil, &CastError{Column: col.Name, Type: col.Type, Value: v, Err: err}
	}
	v = unwrapped
	if v == nil {
		return nil, nil
	}

	if label, ok := v.(string); ok && col.Enum != nil {
		if stored, found := col.Enum[label]; found {
			v = stored
		}
	}

	if col.Array {
		return castArray(col, v)
	}

	out, err := castScalar(col, v)
	if err != nil {
		return nil, &CastError{Column: col.Name, Type: col.Type, Value: v, Err: err}
	}
	return out, nil
}

// unwrap dereferences pointers and resolves driver.Valuer wrappers such as
// sql.NullString. Types with a native cast are kept as they are.
func unwrap(v interface{}) (interface{}, error) {
	if v == nil {
		return nil, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil, nil
		}
		return unwrap(rv.Elem().Interface())
	}

	switch x := v.(type) {
	case decimal.Decimal, uuid.UUID, time.Time, json.RawMessage, []byte:
		return v, nil
	case driver.Valuer:
		return x.Value()
	}
	return v, nil
}

func castArray(col *schema.Column, v interface{}) (interface{}, error) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, &CastError{Column: col.Name, Type: col.Type, Value: v, Err: errors.New("expected a slice")}
	}
	elem := *col
	elem.Array = false

	out := make([]interface{}, rv.Len())
	for i := range out {
		cast, err := Cast(&elem, rv.Index(i).Interface())
		if err != nil {
			return nil, err
		}
		out[i] = cast
	}
	return out, nil
}

//nolint:cyclop // One branch per column type.
func castScalar(col *schema.Column, v interface{}) (interface{}, error) {
	switch col.Type {
	case schema.TypeBoolean:
		return castBool(v)
	case schema.TypeString, schema.TypeText:
		return castString(v), nil
	case schema.TypeInteger:
		return castInt(v)
	case schema.TypeFloat:
		return castFloat(v)
	case schema.TypeDecimal:
		d, err := castDecimal(v)
		if err != nil {
			return nil, err
		}
		if col.Scale > 0 {
			d = d.Round(col.Scale)
		}
		return d, nil
	case schema.TypeDate:
		t, err := castTime(v, dateTimeLayouts)
		if err != nil {
			return nil, err
		}
		y, m, d := t.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
	case schema.TypeDateTime:
		t, err := castTime(v, dateTimeLayouts)
		if err != nil {
			return nil, err
		}
		return t.UTC(), nil
	case schema.TypeTime:
		t, err := castTime(v, timeLayouts)
		if err != nil {
			return nil, err
		}
		return time.Date(2000, 1, 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC), nil
	case schema.TypeJSON:
		return castJSON(v)
	case schema.TypeUUID:
		return castUUID(v)
	case schema.TypeBinary:
		switch x := v.(type) {
		case []byte:
			return x, nil
		case string:
			return []byte(x), nil
		}
		return nil, errors.New("expected bytes")
	}
	return nil, fmt.Errorf("unknown column type %q", col.Type)
}

func castBool(v interface{}) (interface{}, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(x)) {
		case "":
			return nil, nil
		case "t", "true", "1", "y", "yes", "on":
			return true, nil
		case "f", "false", "0", "n", "no", "off":
			return false, nil
		}
		return nil, errors.New("unrecognized boolean")
	}
	n, err := castInt(v)
	if err != nil {
		return nil, errors.New("unrecognized boolean")
	}
	return n.(int64) != 0, nil
}

func castString(v interface{}) string {
	switch x := v.(type) {
	case string:
		return x
	case []byte:
		return string(x)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return x.Format(time.RFC3339Nano)
	case fmt.Stringer:
		return x.String()
	}
	return fmt.Sprint(v)
}

func castInt(v interface{}) (interface{}, error) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return nil, errors.New("integer overflow")
		}
		return int64(u), nil
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if f != math.Trunc(f) || f >= math.MaxInt64 || f < math.MinInt64 {
			return nil, errors.New("not an integer")
		}
		return int64(f), nil
	case reflect.Bool:
		if rv.Bool() {
			return int64(1), nil
		}
		return int64(0), nil
	case reflect.String:
		s := strings.TrimSpace(rv.String())
		if s == "" {
			return nil, nil
		}
		return strconv.ParseInt(s, 10, 64)
	}
	if d, ok := v.(decimal.Decimal); ok {
		if !d.Equal(d.Truncate(0)) {
			return nil, errors.New("not an integer")
		}
		return d.IntPart(), nil
	}
	return nil, errors.New("not an integer")
}

func castFloat(v interface{}) (interface{}, error) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), nil
	case reflect.String:
		s := strings.TrimSpace(rv.String())
		if s == "" {
			return nil, nil
		}
		return strconv.ParseFloat(s, 64)
	}
	if d, ok := v.(decimal.Decimal); ok {
		f, _ := d.Float64()
		return f, nil
	}
	return nil, errors.New("not a number")
}

func castDecimal(v interface{}) (decimal.Decimal, error) {
	switch x := v.(type) {
	case decimal.Decimal:
		return x, nil
	case string:
		return decimal.NewFromString(strings.TrimSpace(x))
	case float32:
		return decimal.NewFromFloat32(x), nil
	case float64:
		return decimal.NewFromFloat(x), nil
	}
	n, err := castInt(v)
	if err != nil || n == nil {
		return decimal.Zero, errors.New("not a decimal")
	}
	return decimal.NewFromInt(n.(int64)), nil
}

func castTime(v interface{}, layouts []string) (time.Time, error) {
	switch x := v.(type) {
	case time.Time:
		return x, nil
	case string:
		s := strings.TrimSpace(x)
		for _, layout := range layouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, nil
			}
		}
		return time.Time{}, fmt.Errorf("unrecognized time format %q", s)
	}
	return time.Time{}, errors.New("not a time")
}

func castJSON(v interface{}) (interface{}, error) {
	var raw []byte
	switch x := v.(type) {
	case json.RawMessage:
		raw = x
	case []byte:
		raw = x
	case string:
		raw = []byte(x)
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		return json.RawMessage(encoded), nil
	}
	if !json.Valid(raw) {
		return nil, errors.New("malformed JSON")
	}
	return json.RawMessage(raw), nil
}

func castUUID(v interface{}) (interface{}, error) {
	switch x := v.(type) {
	case uuid.UUID:
		return x, nil
	case [16]byte:
		return uuid.UUID(x), nil
	case []byte:
		return uuid.FromBytes(x)
	case string:
		return uuid.Parse(strings.TrimSpace(x))
	}
	return nil, errors.New("not a UUID")
}

// Serialize converts a value produced by Cast to a driver.Value.
// Decimals, UUIDs, JSON and temporal values become strings so every dialect
// receives the same text form. Arrays become array literals ({a,b}).
func Serialize(col *schema.Column, v interface{}) (interface{}, error) {
	if v == nil {
		return nil, nil
	}
	if col.Array {
		items, ok := v.([]interface{})
		if !ok {
			return nil, &CastError{Column: col.Name, Type: col.Type, Value: v, Err: errors.New("expected a cast array")}
		}
		elem := *col
		elem.Array = false
		return arrayLiteral(&elem, items)
	}

	switch x := v.(type) {
	case decimal.Decimal:
		return x.String(), nil
	case uuid.UUID:
		return x.String(), nil
	case json.RawMessage:
		return string(x), nil
	case time.Time:
		switch col.Type {
		case schema.TypeDate:
			return x.Format(DateLayout), nil
		case schema.TypeTime:
			return x.Format(TimeLayout), nil
		}
		return x.UTC().Format(DateTimeLayout), nil
	case bool, int64, float64, string, []byte:
		return v, nil
	}
	return nil, &CastError{Column: col.Name, Type: col.Type, Value: v, Err: errors.New("value was not cast")}
}

// CastAndSerialize runs Cast then Serialize.
func CastAndSerialize(col *schema.Column, v interface{}) (interface{}, error) {
	cast, err := Cast(col, v)
	if err != nil {
		return nil, err
	}
	return Serialize(col, cast)
}

func arrayLiteral(elem *schema.Column, items []interface{}) (string, error) {
	var sb strings.Builder
	sb.WriteByte('{')
	for i, item := range items {
		if i > 0 {
			sb.WriteByte(',')
		}
		if item == nil {
			sb.WriteString("NULL")
			continue
		}
		s, err := Serialize(elem, item)
		if err != nil {
			return "", err
		}
		var text string
		switch x := s.(type) {
		case string:
			text = x
		case []byte:
			text = `\x` + fmt.Sprintf("%x", x)
		default:
			text = fmt.Sprint(x)
		}
		sb.WriteByte('"')
		sb.WriteString(strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(text))
		sb.WriteByte('"')
	}
	sb.WriteByte('}')
	return sb.String(), nil
}

// IsComparisonSafe reports whether equal Go values of the column's type are
// guaranteed to store equal SQL values, which is what constant folding of
// assignments relies on.
func IsComparisonSafe(col *schema.Column) bool {
	if col.Array {
		return false
	}
	switch col.Type {
	case schema.TypeBoolean, schema.TypeString, schema.TypeText,
		schema.TypeInteger, schema.TypeFloat, schema.TypeDecimal:
		return true
	}
	return false
}

// Equal compares two cast values.
func Equal(a, b interface{}) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch x := a.(type) {
	case decimal.Decimal:
		y, ok := b.(decimal.Decimal)
		return ok && x.Equal(y)
	case time.Time:
		y, ok := b.(time.Time)
		return ok && x.Equal(y)
	case []byte:
		y, ok := b.([]byte)
		return ok && bytes.Equal(x, y)
	case json.RawMessage:
		y, ok := b.(json.RawMessage)
		return ok && bytes.Equal(x, y)
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	if ta.Comparable() {
		return a == b
	}
	return reflect.DeepEqual(a, b)
}
