package apperr

import (
	"errors"
	"net/http"
)

type Code string

const (
	CodeValidation         Code = "VALIDATION_ERROR"
	CodeUnauthorized       Code = "UNAUTHORIZED"
	CodeRateLimited        Code = "RATE_LIMITED"
	CodeMenuItemNotFound   Code = "MENU_ITEM_NOT_FOUND"
	CodeTableNotFound      Code = "TABLE_NOT_FOUND"
	CodeTableInUse         Code = "TABLE_IN_USE"
	CodeRestaurantNotFound Code = "RESTAURANT_NOT_FOUND"
	CodeOrderNotFound      Code = "ORDER_NOT_FOUND"
	CodeKOTNotFound        Code = "KOT_NOT_FOUND"
	CodeNoUnpaidOrders     Code = "NO_UNPAID_ORDERS"
	CodeOrderAlreadyPaid   Code = "ORDER_ALREADY_PAID"
	CodeInvalidTransition  Code = "INVALID_STATUS_TRANSITION"
	CodeDuplicate          Code = "DUPLICATE"
)

// Error is a client-facing failure. Anything that is not an *Error is an
// internal error.
type Error struct {
	Code       Code
	Message    string
	StatusCode int
}

func (e *Error) Error() string {
	return e.Message
}

func newError(code Code, message string, status int) *Error {
	return &Error{Code: code, Message: message, StatusCode: status}
}

func Validation(message string) *Error {
	return newError(CodeValidation, message, http.StatusBadRequest)
}

func NotFound(code Code, message string) *Error {
	return newError(code, message, http.StatusNotFound)
}

func Conflict(code Code, message string) *Error {
	return newError(code, message, http.StatusConflict)
}

func Unauthorized(message string) *Error {
	return newError(CodeUnauthorized, message, http.StatusUnauthorized)
}

func RateLimited(message string) *Error {
	return newError(CodeRateLimited, message, http.StatusTooManyRequests)
}

func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code Code) bool {
	appErr, ok := As(err)
	return ok && appErr.Code == code
}
