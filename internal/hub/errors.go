package hub

import "fmt"

// ErrorKind names a class of hub failure.
type ErrorKind string

const (
	KindNotRegistered       ErrorKind = "NotRegistered"
	KindNotAMember          ErrorKind = "NotAMember"
	KindNotFound            ErrorKind = "NotFound"
	KindInvalidTransition   ErrorKind = "InvalidTransition"
	KindAuthorizationDenied ErrorKind = "AuthorizationDenied"
	KindValidation          ErrorKind = "ValidationError"
)

// Error is a named, user-facing hub failure.
type Error struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return e.Message
}

// Is matches any *Error of the same kind, so errors.Is(err, ErrNotFound)
// works regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrNotRegistered       = &Error{Kind: KindNotRegistered}
	ErrNotAMember          = &Error{Kind: KindNotAMember}
	ErrNotFound            = &Error{Kind: KindNotFound}
	ErrInvalidTransition   = &Error{Kind: KindInvalidTransition}
	ErrAuthorizationDenied = &Error{Kind: KindAuthorizationDenied}
	ErrValidation          = &Error{Kind: KindValidation}
)

func newError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func notFound(what, id string) *Error {
	return newError(KindNotFound, "%s not found: %s", what, id)
}

func invalid(format string, args ...any) *Error {
	return newError(KindInvalidTransition, format, args...)
}

func validation(format string, args ...any) *Error {
	return newError(KindValidation, format, args...)
}

var errNotMember = &Error{Kind: KindNotAMember, Message: "Not a member of this workspace."}
