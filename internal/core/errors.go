package core

import "errors"

// Predefined errors returned by updatebulk database operations.
var (
	// ErrUnsupportedDialect is returned when no dialect is registered for a driver.
	ErrUnsupportedDialect = errors.New("unsupported database dialect")
	// ErrNilDB is returned by WrapDB for a nil *sql.DB.
	ErrNilDB = errors.New("nil *sql.DB")
)

// WrapError wraps an error with additional context message.
func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return &wrappedError{
		msg: message,
		err: err,
	}
}

type wrappedError struct {
	msg string
	err error
}

func (e *wrappedError) Error() string {
	return e.msg + ": " + e.err.Error()
}

func (e *wrappedError) Unwrap() error {
	return e.err
}
