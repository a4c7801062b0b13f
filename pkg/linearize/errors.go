package linearize

import (
	"errors"
	"fmt"
)

// Failure kinds carried by Error.
var (
	// ErrMalformedGraph reports a graph the extractor could not decompose into
	// disjoint chains covering every node exactly once.
	ErrMalformedGraph = errors.New("malformed operator graph")
	// ErrInfeasibleSchedule reports a search whose frontier ran dry before every
	// sequence was consumed.
	ErrInfeasibleSchedule = errors.New("no feasible interleaving")
	// ErrSearchBudgetExceeded reports a search that expanded more states than allowed.
	ErrSearchBudgetExceeded = errors.New("search budget exceeded")
	// ErrCanceled reports a search stopped by its context.
	ErrCanceled = errors.New("linearization canceled")
)

// ErrUnknownStrategy is returned by Lookup for an unregistered name.
var ErrUnknownStrategy = errors.New("unknown linearization strategy")

// ErrInvalidOrder is returned by Validate.
var ErrInvalidOrder = errors.New("invalid operator order")

// Error is the single failure type returned by Linearize.
// errors.Is matches both the Kind and the wrapped cause.
type Error struct {
	Kind error
	Err  error
	Msg  string
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}

	msg := e.Kind.Error()
	if e.Msg != "" {
		msg += ": " + e.Msg
	}

	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	return msg
}

// Unwrap exposes the kind and the cause.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}

	return []error{e.Kind, e.Err}
}

func failf(kind error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}
