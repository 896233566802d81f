// Package core holds the error taxonomy shared by every service. Each failure
// carries a stable machine-readable code; handlers map codes to HTTP statuses
// in one place.
package core

import "fmt"

type Code string

const (
	CodeNotFound                Code = "not_found"
	CodeForbidden               Code = "forbidden"
	CodeInvalidState            Code = "invalid_state"
	CodeInsufficientFunds       Code = "insufficient_funds"
	CodeValidation              Code = "validation_error"
	CodeCollaboratorUnavailable Code = "collaborator_unavailable"
)

// Error is a domain failure with a stable code. Match with errors.Is against
// the sentinel values below; two Errors are equal when their codes match.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// Sentinels for errors.Is checks.
var (
	ErrNotFound                = &Error{Code: CodeNotFound, Message: "not found"}
	ErrForbidden               = &Error{Code: CodeForbidden, Message: "forbidden"}
	ErrInvalidState            = &Error{Code: CodeInvalidState, Message: "invalid state"}
	ErrInsufficientFunds       = &Error{Code: CodeInsufficientFunds, Message: "insufficient funds"}
	ErrValidation              = &Error{Code: CodeValidation, Message: "validation error"}
	ErrCollaboratorUnavailable = &Error{Code: CodeCollaboratorUnavailable, Message: "collaborator unavailable"}
)

func NotFoundf(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

func Forbiddenf(format string, args ...any) *Error {
	return &Error{Code: CodeForbidden, Message: fmt.Sprintf(format, args...)}
}

func InvalidStatef(format string, args ...any) *Error {
	return &Error{Code: CodeInvalidState, Message: fmt.Sprintf(format, args...)}
}

func InsufficientFundsf(format string, args ...any) *Error {
	return &Error{Code: CodeInsufficientFunds, Message: fmt.Sprintf(format, args...)}
}

func Validationf(format string, args ...any) *Error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

func CollaboratorUnavailablef(format string, args ...any) *Error {
	return &Error{Code: CodeCollaboratorUnavailable, Message: fmt.Sprintf(format, args...)}
}
