package ledger

import (
	"errors"
	"fmt"
)

// Error codes returned to callers. Each maps to exactly one HTTP status.
const (
	CodeValidation = "VALIDATION_ERROR"
	CodeNotFound   = "NOT_FOUND"
	CodePaidOff    = "LOAN_PAID_OFF"
	CodeStore      = "STORE_ERROR"
)

// Error is the error type returned by every Ledger operation.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
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

func validationError(format string, args ...any) *Error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

func notFoundError(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

func paidOffError(loanID fmt.Stringer) *Error {
	return &Error{Code: CodePaidOff, Message: fmt.Sprintf("Loan with ID '%s' is already paid off.", loanID)}
}

func storeError(op string, err error) *Error {
	return &Error{Code: CodeStore, Message: op, Err: err}
}

// CodeOf returns the code carried by err, or CodeStore for anything unexpected.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeStore
}

// IsNotFound reports whether err names an unknown customer or loan.
func IsNotFound(err error) bool { return CodeOf(err) == CodeNotFound }

// IsValidation reports whether err rejected the caller's input.
func IsValidation(err error) bool { return CodeOf(err) == CodeValidation }

// IsPaidOff reports whether err refused a payment on a closed loan.
func IsPaidOff(err error) bool { return CodeOf(err) == CodePaidOff }
