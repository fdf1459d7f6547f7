// Package errs contains the error type shared by all cryptocore packages.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies an Error.
type Kind int

const (
	// Contract violation by the caller, eg. a malformed argument.
	InvalidArgument Kind = iota

	// A key of unsupported length was passed to SetKey.
	InvalidKeyLength

	// An IV of unsupported length was passed to SetIV.
	InvalidIVLength

	// Malformed or unsupported input data.
	DecodingError

	// The object is not in a state that allows the operation.
	InvalidState

	// An internal consistency check failed.  Indicates a bug.
	InternalError

	// The random number generator was used before it was seeded.
	PRNGUnseeded

	// Memory could not be obtained.
	OutOfMemory

	// Division or reduction by zero.
	DivideByZero

	// A requested algorithm, object or provider does not exist.
	NotFound
)

var kindNames = map[Kind]string{
	InvalidArgument:  "invalid argument",
	InvalidKeyLength: "invalid key length",
	InvalidIVLength:  "invalid IV length",
	DecodingError:    "decoding error",
	InvalidState:     "invalid state",
	InternalError:    "internal error",
	PRNGUnseeded:     "PRNG unseeded",
	OutOfMemory:      "out of memory",
	DivideByZero:     "divide by zero",
	NotFound:         "not found",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Error returned by the cryptocore packages.
type Error interface {
	error

	// The class of this error.
	Kind() Kind

	// Returns the wrapped error, if any
	Inner() error
}

type errorImpl struct {
	msg   string
	kind  Kind
	inner error
}

func (err *errorImpl) Kind() Kind    { return err.kind }
func (err *errorImpl) Inner() error  { return err.inner }
func (err *errorImpl) Unwrap() error { return err.inner }

func (err *errorImpl) Error() string {
	if err.inner != nil {
		return fmt.Sprintf("%s: %s", err.msg, err.inner.Error())
	}
	return err.msg
}

// Formats a new Error of the given kind.
func Errorf(kind Kind, format string, a ...interface{}) Error {
	return &errorImpl{msg: fmt.Sprintf(format, a...), kind: kind}
}

// Formats a new Error of the given kind that wraps another.
func Wrapf(err error, kind Kind, format string, a ...interface{}) Error {
	return &errorImpl{msg: fmt.Sprintf(format, a...), kind: kind, inner: err}
}

// Returns whether err or any error it wraps is an Error of the given kind.
func Is(err error, kind Kind) bool {
	for err != nil {
		var e Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Kind() == kind {
			return true
		}
		err = e.Inner()
	}
	return false
}

// Returns the kind of err, or InternalError if err is not an Error.
func KindOf(err error) Kind {
	var e Error
	if errors.As(err, &e) {
		return e.Kind()
	}
	return InternalError
}
