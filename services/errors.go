package services

import (
	"errors"
	"fmt"

	"github.com/wisdomAdida/edmerge/storage"
)

const (
	CodeValidation        = "VALIDATION_ERROR"
	CodeInsufficientFunds = "INSUFFICIENT_FUNDS"
	CodeLimitViolation    = "LIMIT_VIOLATION"
	CodeNotFound          = "NOT_FOUND"
	CodeForbidden         = "FORBIDDEN"
	CodeConflict          = "CONFLICT"
	CodeGateway           = "GATEWAY_ERROR"
	CodeUnexpected        = "UNEXPECTED"
)

// Error is a domain failure carrying one of the codes above.
type Error struct {
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error with the same code, so errors.Is(err, ErrInsufficientFunds)
// works regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

var (
	ErrValidation        = &Error{Code: CodeValidation, Message: "invalid request"}
	ErrInsufficientFunds = &Error{Code: CodeInsufficientFunds, Message: "insufficient funds"}
	ErrLimitViolation    = &Error{Code: CodeLimitViolation, Message: "amount outside withdrawal limits"}
	ErrNotFound          = &Error{Code: CodeNotFound, Message: "not found"}
	ErrForbidden         = &Error{Code: CodeForbidden, Message: "forbidden"}
	ErrConflict          = &Error{Code: CodeConflict, Message: "conflict"}
	ErrGateway           = &Error{Code: CodeGateway, Message: "payment gateway error"}
)

func newError(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// CodeOf returns the domain code of err, or UNEXPECTED.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnexpected
}

// notFound turns storage.ErrNotFound into a NOT_FOUND domain error and passes
// every other error through.
func notFound(err error, what string) error {
	if errors.Is(err, storage.ErrNotFound) {
		return newError(CodeNotFound, what+" not found")
	}
	return err
}
