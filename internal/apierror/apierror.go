// Package apierror defines the structured error taxonomy shared by the
// normalizer, repository, service and handler layers. Every failure the
// API can return carries a machine-readable code, a human-readable
// message and an HTTP status.
package apierror

import (
	"fmt"
	"net/http"
	"strings"
)

// Error is a structured API failure.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
}

func (e *Error) Error() string {
	return e.Message
}

// MissingParameter is returned when a required field is absent from a
// create payload. The field name is embedded in the message.
func MissingParameter(field string) *Error {
	return &Error{
		Code:    "missing_parameter",
		Message: fmt.Sprintf("missing parameter %s", field),
		Status:  http.StatusBadRequest,
	}
}

// InvalidCouponType is returned when a submitted discount type is not
// in the registered set.
func InvalidCouponType(allowed []string) *Error {
	return &Error{
		Code:    "invalid_coupon_type",
		Message: "invalid coupon type - the coupon type must be: " + strings.Join(allowed, ", "),
		Status:  http.StatusBadRequest,
	}
}

// InvalidFieldFormat is returned when a field value cannot be parsed
// into its canonical type.
func InvalidFieldFormat(field string) *Error {
	return &Error{
		Code:    "invalid_field_format",
		Message: fmt.Sprintf("invalid value for field %s", field),
		Status:  http.StatusBadRequest,
	}
}

// DuplicateCouponCode is returned when a code collides with another
// published coupon.
func DuplicateCouponCode(code string) *Error {
	return &Error{
		Code:    "coupon_code_already_exists",
		Message: fmt.Sprintf("coupon code %s already exists", code),
		Status:  http.StatusBadRequest,
	}
}

// NotFound is returned when an identifier or code resolves to no
// visible coupon.
func NotFound(what string) *Error {
	return &Error{
		Code:    "not_found",
		Message: fmt.Sprintf("invalid coupon %s", what),
		Status:  http.StatusNotFound,
	}
}

// Forbidden is returned when the caller lacks the capability for an
// operation. Authorization failures short-circuit before data access.
func Forbidden(operation string) *Error {
	return &Error{
		Code:    "forbidden",
		Message: fmt.Sprintf("you do not have permission to %s", operation),
		Status:  http.StatusUnauthorized,
	}
}
