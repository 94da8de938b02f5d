package generator

import (
	"context"
	"errors"
	"fmt"
)

// Error kinds returned by the generator client
var (
	ErrProcess   = errors.New("generator process failed")
	ErrMalformed = errors.New("generator returned malformed output")
	ErrTimeout   = errors.New("generator timed out")
	ErrUpstream  = errors.New("generator upstream error")
)

// Error is a classified generator failure. Kind is one of the Err*
// sentinels and is matched by errors.Is.
type Error struct {
	Kind error
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newError(kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// classify turns a transport failure into an *Error, reporting deadline
// expiry as ErrTimeout regardless of how the transport surfaced it
func classify(ctx context.Context, kind, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return newError(ErrTimeout, err)
	}
	var ge *Error
	if errors.As(err, &ge) {
		return ge
	}
	return newError(kind, err)
}
