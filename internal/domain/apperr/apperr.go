// Package apperr defines the error kinds shared by every layer of the service.
//
// Lower layers wrap failures in an *Error carrying a Kind; upper layers may add
// context with fmt.Errorf("...: %w", err) and the transport layer maps the
// outermost Kind to a response status.
package apperr

import (
	"errors"
	"strings"
)

// Kind classifies an error for caller-facing handling
type Kind uint8

const (
	// Unknown is any error not produced through this package
	Unknown Kind = iota
	// Validation means the caller supplied bad input
	Validation
	// NotFound means the requested entity or rate does not exist
	NotFound
	// RateLookup means the remote rate provider could not be queried or decoded
	RateLookup
	// ConversionFailed means a conversion request could not produce a result
	ConversionFailed
	// Storage means the persistence layer failed
	Storage
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case NotFound:
		return "not_found"
	case RateLookup:
		return "rate_lookup"
	case ConversionFailed:
		return "conversion_failed"
	case Storage:
		return "storage"
	default:
		return "unknown"
	}
}

// Error is a kinded error. Message is safe to show to API callers; Err holds
// the underlying cause and is only meant for logs.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

// Sentinels for errors.Is checks against a kind
var (
	ErrValidation       = &Error{Kind: Validation}
	ErrNotFound         = &Error{Kind: NotFound}
	ErrRateLookup       = &Error{Kind: RateLookup}
	ErrConversionFailed = &Error{Kind: ConversionFailed}
	ErrStorage          = &Error{Kind: Storage}
)

// E builds a new *Error
func E(kind Kind, op, message string, err error) *Error {
	return &Error{Kind: kind, Op: op, Message: message, Err: err}
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	if e.Message != "" {
		b.WriteString(e.Message)
	} else {
		b.WriteString(e.Kind.String())
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the bare sentinel of the same kind
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Message == "" && t.Err == nil && t.Kind == e.Kind
}

// KindOf returns the kind of the outermost *Error in err's chain
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}

// MessageOf returns the caller-safe message of the outermost *Error, or
// fallback when there is none
func MessageOf(err error, fallback string) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return fallback
}
