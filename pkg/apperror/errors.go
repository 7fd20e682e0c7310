package apperror

import (
	"errors"
	"fmt"
)

// Kind is the stable machine-readable classification returned to clients.
type Kind string

const (
	KindValidation      Kind = "VALIDATION_ERROR"
	KindState           Kind = "STATE_ERROR"
	KindExpired         Kind = "EXPIRED"
	KindInvalidProof    Kind = "INVALID_PROOF"
	KindProofUsed       Kind = "PROOF_ALREADY_USED"
	KindConflict        Kind = "CONCURRENCY_CONFLICT"
	KindNotFound        Kind = "NOT_FOUND"
	KindUnauthorized    Kind = "UNAUTHORIZED"
	KindForbidden       Kind = "FORBIDDEN"
	KindInternal        Kind = "INTERNAL"
)

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the Kind from an error chain, KindInternal if none.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

func Validation(message string) *Error   { return New(KindValidation, message) }
func State(message string) *Error        { return New(KindState, message) }
func Expired(message string) *Error      { return New(KindExpired, message) }
func InvalidProof(message string) *Error { return New(KindInvalidProof, message) }
func ProofUsed(message string) *Error    { return New(KindProofUsed, message) }
func Conflict(message string) *Error     { return New(KindConflict, message) }
func NotFound(message string) *Error     { return New(KindNotFound, message) }
func Unauthorized(message string) *Error { return New(KindUnauthorized, message) }
func Forbidden(message string) *Error    { return New(KindForbidden, message) }

// Is reports whether err carries the given kind anywhere in its chain.
func Is(err error, kind Kind) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind == kind
	}
	return false
}
