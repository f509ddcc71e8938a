// Package errors wraps pkg/errors and adds error codes so callers can tell
// the pipeline's failure classes apart without string matching.
//
// Example:
//
//	err := errors.New(errors.ErrSchema, "column \"P\" not found in table_3.csv")
//	if errors.Is(err, errors.ErrSchema) {
//	    ...
//	}
package errors

import (
	"github.com/pkg/errors"
)

// Code is an error code which can be used to check against a given error.
type Code string

const (
	// ErrUncoded marks an error created without a meaningful code.
	ErrUncoded Code = "Uncoded"

	// ErrNotFound is returned when no key-table candidate or no fact shard
	// exists.
	ErrNotFound Code = "NotFound"

	// ErrDecode is returned when a file does not parse under its encoding.
	ErrDecode Code = "DecodeError"

	// ErrSchema is returned when a requested column is absent.
	ErrSchema Code = "SchemaError"

	// ErrSchemaMismatch is returned when shards disagree on schema during
	// concatenation.
	ErrSchemaMismatch Code = "SchemaMismatchError"

	// ErrJoinKeyType is returned when the join columns have incompatible
	// kinds.
	ErrJoinKeyType Code = "JoinKeyTypeError"

	// ErrInvalidConfig is returned by configuration validation.
	ErrInvalidConfig Code = "InvalidConfig"
)

// New returns a coded error carrying a stack trace.
func New(code Code, message string) error {
	return errors.WithStack(codedError{
		Code:    code,
		Message: message,
	})
}

// Newf is New with a format string.
func Newf(code Code, format string, args ...interface{}) error {
	return New(code, errors.Errorf(format, args...).Error())
}

// Is reports whether any error in err's chain carries the target code.
func Is(err error, target Code) bool {
	match := codedError{
		Code: target,
	}
	return errors.Is(err, match)
}

// CodeOf returns the code of the first coded error in err's chain, or the
// empty code if there is none.
func CodeOf(err error) Code {
	var ce codedError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}

func Wrap(err error, message string) error {
	return errors.Wrap(err, message)
}

func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

// codedError is the fundamental type used by this package to provide coded
// errors.
type codedError struct {
	Code    Code
	Message string
}

func (ce codedError) Error() string {
	return ce.Message
}

func (ce codedError) Is(err error) bool {
	if e, ok := err.(codedError); ok && ce.Code == e.Code {
		return true
	}
	return false
}
