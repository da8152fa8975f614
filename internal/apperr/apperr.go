package apperr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"
)

// Code is a stable, machine-readable error code carried on every error
// response. Clients branch on these, never on messages.
type Code string

const (
	CodeNotAuthenticated    Code = "not_authenticated"
	CodeTenantNotConfigured Code = "tenant_not_configured"
	CodeAccessDenied        Code = "access_denied"
	CodeNotFound            Code = "not_found"
	CodeValidation          Code = "validation_error"
	CodeAlreadyProcessed    Code = "already_processed"
	CodeConflict            Code = "conflict"
	CodeInternal            Code = "internal_error"
)

// Error is the single error type crossing the operation boundary. All
// domain failures are recovered into one of these before a response is
// written.
type Error struct {
	Code     Code              `json:"code"`
	Message  string            `json:"message"`
	Fields   map[string]string `json:"fields,omitempty"`
	Redirect string            `json:"redirect,omitempty"`
	cause    error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

func NotAuthenticated(message string) *Error {
	if message == "" {
		message = "authentication required"
	}
	return &Error{Code: CodeNotAuthenticated, Message: message, Redirect: "/login"}
}

func TenantNotConfigured() *Error {
	return &Error{
		Code:     CodeTenantNotConfigured,
		Message:  "tenant not configured - complete setup to continue",
		Redirect: "/setup",
	}
}

func AccessDenied(message string) *Error {
	if message == "" {
		message = "insufficient permissions"
	}
	return &Error{Code: CodeAccessDenied, Message: message}
}

func NotFound(message string) *Error {
	if message == "" {
		message = "resource not found"
	}
	return &Error{Code: CodeNotFound, Message: message}
}

func Validation(fields map[string]string) *Error {
	return &Error{Code: CodeValidation, Message: "invalid request", Fields: fields}
}

func AlreadyProcessed(message string) *Error {
	if message == "" {
		message = "already processed"
	}
	return &Error{Code: CodeAlreadyProcessed, Message: message}
}

func Conflict(message string) *Error {
	if message == "" {
		message = "conflict"
	}
	return &Error{Code: CodeConflict, Message: message}
}

func Internal(err error) *Error {
	return &Error{Code: CodeInternal, Message: "internal error", cause: err}
}

// From coerces any error into an *Error, wrapping unknown errors as
// internal so nothing unmapped leaks to a caller.
func From(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal(err)
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code Code) bool {
	var appErr *Error
	if !errors.As(err, &appErr) {
		return false
	}
	return appErr.Code == code
}

// HTTPStatus maps an error code to its transport status.
func HTTPStatus(code Code) int {
	switch code {
	case CodeNotAuthenticated:
		return http.StatusUnauthorized
	case CodeTenantNotConfigured, CodeAccessDenied:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeValidation:
		return http.StatusBadRequest
	case CodeAlreadyProcessed, CodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

type errorResponse struct {
	Error *Error `json:"error"`
}

// Write translates err into a structured JSON response. Internal errors
// are logged with full context and surfaced as a generic message.
func Write(w http.ResponseWriter, logger zerolog.Logger, err error) {
	appErr := From(err)
	if appErr.Code == CodeInternal {
		logger.Error().Err(err).Msg("unhandled internal error")
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(HTTPStatus(appErr.Code))
	json.NewEncoder(w).Encode(errorResponse{Error: appErr})
}
