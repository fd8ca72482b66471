// Package outcome defines the typed failures reported by tarmac's mutating
// operations. Every failure carries a Kind so the UI can turn it into exactly
// one notification without inspecting error strings.
package outcome

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind int

const (
	KindUnknown Kind = iota
	KindStoreUnavailable
	KindRecordNotFound
	KindValidationFailed
	KindAuthCancelled
	KindStoreFailed
	KindAlreadySubscribed
)

func (k Kind) String() string {
	switch k {
	case KindStoreUnavailable:
		return "StoreUnavailable"
	case KindRecordNotFound:
		return "RecordNotFound"
	case KindValidationFailed:
		return "ValidationFailed"
	case KindAuthCancelled:
		return "AuthCancelled"
	case KindStoreFailed:
		return "StoreFailed"
	case KindAlreadySubscribed:
		return "AlreadySubscribed"
	default:
		return "Unknown"
	}
}

// Sentinels for errors.Is comparisons. They match any *Error of the same kind.
var (
	ErrStoreUnavailable  = &Error{Kind: KindStoreUnavailable}
	ErrRecordNotFound    = &Error{Kind: KindRecordNotFound}
	ErrValidationFailed  = &Error{Kind: KindValidationFailed}
	ErrAuthCancelled     = &Error{Kind: KindAuthCancelled}
	ErrStoreFailed       = &Error{Kind: KindStoreFailed}
	ErrAlreadySubscribed = &Error{Kind: KindAlreadySubscribed}
)

// Error is a failure of a named operation.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

// New builds an Error of the given kind for op.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Newf builds an Error with a formatted cause.
func Newf(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return e.Kind.String()
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error with the same Kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Message returns a one-line, user-facing description of err.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if !errors.As(err, &e) {
		return err.Error()
	}
	switch e.Kind {
	case KindStoreUnavailable:
		return "Record store unavailable"
	case KindRecordNotFound:
		return "Flight not found"
	case KindValidationFailed:
		if e.Err != nil {
			return e.Err.Error()
		}
		return "Invalid flight data"
	case KindAuthCancelled:
		return "Action cancelled"
	case KindAlreadySubscribed:
		return "Already synchronizing"
	case KindStoreFailed:
		if e.Err != nil {
			return "Store error: " + e.Err.Error()
		}
		return "Store error"
	default:
		return err.Error()
	}
}
