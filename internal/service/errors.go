package service

import (
	"errors"
	"fmt"
)

// Kind classifies a service failure.  Transport layers map kinds to their
// own status codes; anything that is not an *Error is KindInternal.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindConflict
	KindInvalidValue
	KindMissingField
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindInvalidValue:
		return "invalid_value"
	case KindMissingField:
		return "missing_field"
	default:
		return "internal"
	}
}

// Error is a classified failure whose message is safe to show to callers.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

// NewError builds a classified error.
func NewError(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func notFound(format string, args ...any) error {
	return NewError(KindNotFound, format, args...)
}

func conflict(format string, args ...any) error {
	return NewError(KindConflict, format, args...)
}

func invalidValue(format string, args ...any) error {
	return NewError(KindInvalidValue, format, args...)
}

func missingField(format string, args ...any) error {
	return NewError(KindMissingField, format, args...)
}
