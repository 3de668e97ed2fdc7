package bulk

import (
	"github.com/coregx/updatebulk/internal/formula"
)

// DefaultRowSourceName is the alias of the VALUES table.
const DefaultRowSourceName = "t"

// TimestampMode controls bumping of the model's timestamp columns.
type TimestampMode int

const (
	// TimestampsDefault follows Model.RecordTimestamps.
	TimestampsDefault TimestampMode = iota
	// TimestampsOn bumps timestamps of rows whose values change.
	TimestampsOn
	// TimestampsOff never touches timestamps.
	TimestampsOff
	// TimestampsAlways bumps timestamps of every matched row.
	TimestampsAlways
)

// String returns the mode name as used in job files.
func (m TimestampMode) String() string {
	switch m {
	case TimestampsOn:
		return "true"
	case TimestampsOff:
		return "false"
	case TimestampsAlways:
		return "always"
	}
	return "default"
}

// ParseTimestampMode parses "true", "false", "always" or "" (default).
func ParseTimestampMode(s string) (TimestampMode, error) {
	switch s {
	case "", "default":
		return TimestampsDefault, nil
	case "true", "on":
		return TimestampsOn, nil
	case "false", "off":
		return TimestampsOff, nil
	case "always":
		return TimestampsAlways, nil
	}
	return TimestampsDefault, newError(ErrInvalidInput, -1, "", "unknown timestamp mode %q", s)
}

// Option configures a single compile.
type Option func(*options)

type options struct {
	timestamps    TimestampMode
	formulas      map[string]interface{}
	registry      *formula.Registry
	rowSourceName string
	validateRaw   func(sql string) error
}

func newOptions(opts []Option) *options {
	o := &options{
		registry:      formula.Default,
		rowSourceName: DefaultRowSourceName,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithTimestamps overrides the model's timestamp recording.
func WithTimestamps(mode TimestampMode) Option {
	return func(o *options) {
		o.timestamps = mode
	}
}

// WithFormula applies a formula to an assigned column. f is a built-in or
// registered formula name, or a function accepted by formula.FromFunc.
//
// Example:
//
//	bulk.WithFormula("quantity", "add")
func WithFormula(column string, f interface{}) Option {
	return func(o *options) {
		if o.formulas == nil {
			o.formulas = make(map[string]interface{})
		}
		o.formulas[column] = f
	}
}

// WithFormulas applies formulas keyed by column.
func WithFormulas(formulas map[string]interface{}) Option {
	return func(o *options) {
		for column, f := range formulas {
			WithFormula(column, f)(o)
		}
	}
}

// WithFormulaRegistry resolves formula names in r instead of formula.Default.
func WithFormulaRegistry(r *formula.Registry) Option {
	return func(o *options) {
		if r != nil {
			o.registry = r
		}
	}
}

// WithRowSourceName renames the VALUES table alias.
func WithRowSourceName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.rowSourceName = name
		}
	}
}

// WithRawValueValidator checks every raw SQL value before it is inlined.
func WithRawValueValidator(fn func(sql string) error) Option {
	return func(o *options) {
		o.validateRaw = fn
	}
}
