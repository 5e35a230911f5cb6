package complaint

import (
	"errors"
	"fmt"
)

// Code is the stable machine-readable kind of a lifecycle failure.
type Code string

const (
	CodeInvalidTransition      Code = "INVALID_TRANSITION"
	CodeLocked                 Code = "COMPLAINT_LOCKED"
	CodeConcurrentModification Code = "CONCURRENT_MODIFICATION"
	CodeDuplicateRequest       Code = "DUPLICATE_INFORMATION_REQUEST"
	CodeNotFound               Code = "RESOURCE_NOT_FOUND"
	CodeStorage                Code = "STORAGE_ERROR"
	CodeValidation             Code = "VALIDATION_ERROR"
	CodeInternal               Code = "INTERNAL_ERROR"
)

// Error is a typed lifecycle failure. Two errors match under errors.Is when
// their codes are equal, so the Err* sentinels below can be used as targets.
type Error struct {
	Code    Code
	Message string
	From    Status
	To      Status
	Err     error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// WithMessage replaces the message and returns e.
func (e *Error) WithMessage(msg string) *Error {
	e.Message = msg
	return e
}

var (
	ErrInvalidTransition      = &Error{Code: CodeInvalidTransition}
	ErrLocked                 = &Error{Code: CodeLocked}
	ErrConcurrentModification = &Error{Code: CodeConcurrentModification}
	ErrDuplicateRequest       = &Error{Code: CodeDuplicateRequest}
	ErrNotFound               = &Error{Code: CodeNotFound}
	ErrStorage                = &Error{Code: CodeStorage}
	ErrValidation             = &Error{Code: CodeValidation}
)

func NewInvalidTransitionError(from, to Status) *Error {
	return &Error{
		Code:    CodeInvalidTransition,
		Message: fmt.Sprintf("cannot transition from %s to %s", from, to),
		From:    from,
		To:      to,
	}
}

func NewLockedError(trackingNumber, owner string) *Error {
	msg := fmt.Sprintf("complaint %s is locked", trackingNumber)
	if owner != "" {
		msg += " by " + owner
	}
	return &Error{Code: CodeLocked, Message: msg}
}

func NewConcurrentModificationError(expected, actual int64) *Error {
	return &Error{
		Code:    CodeConcurrentModification,
		Message: fmt.Sprintf("complaint was modified concurrently: expected version %d, found %d", expected, actual),
	}
}

func NewDuplicateRequestError() *Error {
	return &Error{Code: CodeDuplicateRequest, Message: "a pending information request already exists"}
}

func NewNotFoundError(kind, id string) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf("%s %s not found", kind, id)}
}

func NewStorageError(msg string, err error) *Error {
	return &Error{Code: CodeStorage, Message: msg, Err: err}
}

func NewValidationError(msg string) *Error {
	return &Error{Code: CodeValidation, Message: msg}
}

// CodeOf returns the lifecycle code carried by err, or CodeInternal.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}
