package bulk

import (
	"errors"
	"fmt"
	"strings"

	"github.com/coregx/updatebulk/internal/formula"
	"github.com/coregx/updatebulk/internal/types"
)

// Error kinds. Every error returned by Compile matches exactly one of them
// with errors.Is.
var (
	// ErrInvalidInput reports a malformed batch: mismatched lengths, a bad key
	// shorthand, empty or mismatched conditions.
	ErrInvalidInput = errors.New("invalid bulk update input")
	// ErrUnknownColumn reports a condition, assignment or formula key that is
	// not a column of the model.
	ErrUnknownColumn = errors.New("unknown column")
	// ErrNullCondition reports a NULL condition value. An equality join never
	// matches NULL, so these are rejected rather than silently ignored.
	ErrNullCondition = errors.New("NULL condition values are not supported")
	// ErrInvalidValue reports a value that cannot be cast to its column type.
	ErrInvalidValue = types.ErrInvalidValue
	// ErrFormula reports an unknown or misbehaving formula.
	ErrFormula = formula.ErrFormula
	// ErrUnsupported reports a connection that cannot build VALUES tables.
	ErrUnsupported = errors.New("unsupported by database")
)

// Error is a compile error carrying the offending row and column when known.
type Error struct {
	// Kind is one of the Err* sentinels.
	Kind error
	// Row is the index of the row in the input batch, or -1.
	Row    int
	Column string
	Msg    string
	// Err is an optional underlying cause.
	Err error
}

func newError(kind error, row int, column, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Row: row, Column: column, Msg: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	parts := []string{"updatebulk"}
	if e.Row >= 0 {
		parts = append(parts, fmt.Sprintf("row %d", e.Row))
	}
	if e.Column != "" {
		parts = append(parts, "column "+e.Column)
	}
	msg := e.Msg
	if msg == "" && e.Kind != nil {
		msg = e.Kind.Error()
	}
	parts = append(parts, msg)
	if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}
	return strings.Join(parts, ": ")
}

// Is matches the error kind.
func (e *Error) Is(target error) bool {
	return target != nil && target == e.Kind
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}
