// Package errkind defines the failure vocabulary shared by every layer of the
// request lifecycle engine. This is part of the Functional Core - no I/O.
//
// Codes are grouped by category:
//   - 0-9   lifecycle / init
//   - 10-19 validation
//   - 20-29 state
//   - 30-39 permission
//   - 40-49 request-specific
package errkind

import (
	"errors"
	"fmt"
)

// Kind identifies one failure category. The numeric value is stable and is
// what off-chain consumers see.
type Kind uint32

const (
	AlreadyInitialized Kind = 0
	NotInitialized     Kind = 1
	Unauthorized       Kind = 2

	InvalidInput     Kind = 12
	InvalidTimestamp Kind = 15
	InvalidQuantity  Kind = 16

	NotFound            Kind = 21
	InvalidRequestState Kind = 25

	NotAuthorizedHospital  Kind = 32
	NotAuthorizedBloodBank Kind = 33

	InvalidStatusTransition Kind = 41
	RequestOverdue          Kind = 44
)

var kindNames = map[Kind]string{
	AlreadyInitialized:      "AlreadyInitialized",
	NotInitialized:          "NotInitialized",
	Unauthorized:            "Unauthorized",
	InvalidInput:            "InvalidInput",
	InvalidTimestamp:        "InvalidTimestamp",
	InvalidQuantity:         "InvalidQuantity",
	NotFound:                "NotFound",
	InvalidRequestState:     "InvalidRequestState",
	NotAuthorizedHospital:   "NotAuthorizedHospital",
	NotAuthorizedBloodBank:  "NotAuthorizedBloodBank",
	InvalidStatusTransition: "InvalidStatusTransition",
	RequestOverdue:          "RequestOverdue",
}

// String returns the symbolic name of the kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", uint32(k))
}

// Category returns the category the kind belongs to.
func (k Kind) Category() string {
	switch {
	case k < 10:
		return "general"
	case k < 20:
		return "validation"
	case k < 30:
		return "state"
	case k < 40:
		return "permission"
	default:
		return "request"
	}
}

// Error is the single error value returned by a failed core operation.
type Error struct {
	Kind Kind
	Msg  string
}

// New returns an error of the given kind with a human-readable message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

// Is reports a match when target is an *Error of the same kind, so
// errors.Is(err, errkind.ErrNotFound) works regardless of the message.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is comparisons.
var (
	ErrAlreadyInitialized      = &Error{Kind: AlreadyInitialized}
	ErrNotInitialized          = &Error{Kind: NotInitialized}
	ErrUnauthorized            = &Error{Kind: Unauthorized}
	ErrInvalidInput            = &Error{Kind: InvalidInput}
	ErrInvalidTimestamp        = &Error{Kind: InvalidTimestamp}
	ErrInvalidQuantity         = &Error{Kind: InvalidQuantity}
	ErrNotFound                = &Error{Kind: NotFound}
	ErrInvalidRequestState     = &Error{Kind: InvalidRequestState}
	ErrNotAuthorizedHospital   = &Error{Kind: NotAuthorizedHospital}
	ErrNotAuthorizedBloodBank  = &Error{Kind: NotAuthorizedBloodBank}
	ErrInvalidStatusTransition = &Error{Kind: InvalidStatusTransition}
	ErrRequestOverdue          = &Error{Kind: RequestOverdue}
)

// KindOf extracts the kind from err, looking through wrapping.
// ok is false when err carries no kind.
func KindOf(err error) (kind Kind, ok bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}
