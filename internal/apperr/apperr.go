// Package apperr defines the application error taxonomy. Every failure a
// handler can surface maps to a stable machine-readable code plus a safe
// human message; wrapped causes are only exposed in development mode.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	CodeValidation          = "validation_error"
	CodeNotFound            = "not_found"
	CodeCouponIneligible    = "coupon_ineligible"
	CodeInsufficientBalance = "insufficient_balance"
	CodeSignatureMismatch   = "signature_mismatch"
	CodeConflict            = "conflict"
	CodeInternal            = "internal_error"
)

// Coupon ineligibility reasons, in the order the evaluator checks them.
const (
	ReasonExpiredOrInactive    = "expired_or_inactive"
	ReasonUsageLimitReached    = "usage_limit_reached"
	ReasonNotApplicableAccount = "not_applicable_to_account"
	ReasonPerUserLimitReached  = "per_user_limit_reached"
	ReasonBelowMinimumPurchase = "below_minimum_purchase"
	ReasonNotApplicableToCart  = "not_applicable_to_cart_contents"
)

type Error struct {
	Code    string
	Reason  string // set for coupon_ineligible
	Message string
	Status  int
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// WithCause attaches an underlying error without changing what callers see.
func (e *Error) WithCause(err error) *Error {
	clone := *e
	clone.cause = err
	return &clone
}

// As extracts an *Error from an error chain.
func As(err error) (*Error, bool) {
	var appErr *Error
	ok := errors.As(err, &appErr)
	return appErr, ok
}

func Validation(msg string) *Error {
	return &Error{Code: CodeValidation, Message: msg, Status: http.StatusBadRequest}
}

func NotFound(msg string) *Error {
	return &Error{Code: CodeNotFound, Message: msg, Status: http.StatusNotFound}
}

func Ineligible(reason, msg string) *Error {
	return &Error{Code: CodeCouponIneligible, Reason: reason, Message: msg, Status: http.StatusBadRequest}
}

func InsufficientBalance() *Error {
	return &Error{Code: CodeInsufficientBalance, Message: "insufficient wallet balance", Status: http.StatusBadRequest}
}

func SignatureMismatch() *Error {
	return &Error{Code: CodeSignatureMismatch, Message: "invalid payment signature", Status: http.StatusBadRequest}
}

func Conflict(msg string) *Error {
	return &Error{Code: CodeConflict, Message: msg, Status: http.StatusConflict}
}

func Internal(err error) *Error {
	return &Error{Code: CodeInternal, Message: "internal server error", Status: http.StatusInternalServerError, cause: err}
}
