// Package apperr carries the wire error codes the HTTP layer maps to
// statuses. Inner layers return *Error values; anything else surfaces as
// INTERNAL_ERROR.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeInvalidToken      = "INVALID_TOKEN"
	CodeTokenExpired      = "TOKEN_EXPIRED"
	CodePodMismatch       = "POD_MISMATCH"
	CodeForbidden         = "FORBIDDEN"
	CodeNotFound          = "NOT_FOUND"
	CodePodNotFound       = "POD_NOT_FOUND"
	CodeStreamNotFound    = "STREAM_NOT_FOUND"
	CodeRecordNotFound    = "RECORD_NOT_FOUND"
	CodePodExists         = "POD_EXISTS"
	CodeStreamExists      = "STREAM_ALREADY_EXISTS"
	CodeNameExists        = "NAME_EXISTS"
	CodeNameConflict      = "NAME_CONFLICT"
	CodeInvalidInput      = "INVALID_INPUT"
	CodeInvalidName       = "INVALID_NAME"
	CodeInvalidPodID      = "INVALID_POD_ID"
	CodeInvalidIndex      = "INVALID_INDEX"
	CodeInvalidContent    = "INVALID_CONTENT"
	CodeContentTooLarge   = "CONTENT_TOO_LARGE"
	CodeValidationError   = "VALIDATION_ERROR"
	CodeRateLimitExceeded = "RATE_LIMIT_EXCEEDED"
	CodeInternal          = "INTERNAL_ERROR"
	CodeDatabase          = "DATABASE_ERROR"
	CodeStorage           = "STORAGE_ERROR"
)

type Error struct {
	Code    string
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

// WithCause attaches an underlying error without changing the wire shape.
func (e *Error) WithCause(err error) *Error {
	return &Error{Code: e.Code, Message: e.Message, Status: e.Status, cause: err}
}

func New(code, message string, status int) *Error {
	return &Error{Code: code, Message: message, Status: status}
}

func Newf(code string, status int, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Status: status}
}

func Unauthorized(message string) *Error {
	return New(CodeUnauthorized, message, http.StatusUnauthorized)
}

func InvalidToken(message string) *Error {
	return New(CodeInvalidToken, message, http.StatusUnauthorized)
}

func TokenExpired() *Error {
	return New(CodeTokenExpired, "token has expired", http.StatusUnauthorized)
}

func PodMismatch(tokenPod, hostPod string) *Error {
	return Newf(CodePodMismatch, http.StatusForbidden,
		"token is scoped to pod %q but the request targets pod %q", tokenPod, hostPod)
}

func Forbidden(message string) *Error {
	return New(CodeForbidden, message, http.StatusForbidden)
}

func NotFound(message string) *Error {
	return New(CodeNotFound, message, http.StatusNotFound)
}

func PodNotFound(name string) *Error {
	return Newf(CodePodNotFound, http.StatusNotFound, "pod %q not found", name)
}

func StreamNotFound(path string) *Error {
	return Newf(CodeStreamNotFound, http.StatusNotFound, "stream %q not found", path)
}

func RecordNotFound(name string) *Error {
	return Newf(CodeRecordNotFound, http.StatusNotFound, "record %q not found", name)
}

func PodExists(name string) *Error {
	return Newf(CodePodExists, http.StatusConflict, "pod %q already exists", name)
}

func StreamExists(path string) *Error {
	return Newf(CodeStreamExists, http.StatusConflict, "stream %q already exists", path)
}

func NameConflict(message string) *Error {
	return New(CodeNameConflict, message, http.StatusConflict)
}

func InvalidInput(message string) *Error {
	return New(CodeInvalidInput, message, http.StatusBadRequest)
}

func InvalidName(name string) *Error {
	return Newf(CodeInvalidName, http.StatusBadRequest, "invalid name %q", name)
}

func InvalidPodID(name string) *Error {
	return Newf(CodeInvalidPodID, http.StatusBadRequest, "invalid pod name %q", name)
}

func InvalidIndex(spec string) *Error {
	return Newf(CodeInvalidIndex, http.StatusBadRequest, "invalid index %q", spec)
}

func InvalidContent(message string) *Error {
	return New(CodeInvalidContent, message, http.StatusBadRequest)
}

func ContentTooLarge(size, limit int64) *Error {
	return Newf(CodeContentTooLarge, http.StatusRequestEntityTooLarge,
		"content size %d exceeds the limit of %d bytes", size, limit)
}

func ValidationError(message string) *Error {
	return New(CodeValidationError, message, http.StatusUnprocessableEntity)
}

func RateLimitExceeded(action string) *Error {
	return Newf(CodeRateLimitExceeded, http.StatusTooManyRequests,
		"rate limit exceeded for action %q", action)
}

func Internal(err error) *Error {
	return New(CodeInternal, "internal error", http.StatusInternalServerError).WithCause(err)
}

func Database(err error) *Error {
	return New(CodeDatabase, "database error", http.StatusInternalServerError).WithCause(err)
}

func Storage(err error) *Error {
	return New(CodeStorage, "storage error", http.StatusInternalServerError).WithCause(err)
}

// From normalizes any error into an *Error, wrapping unknown ones as
// INTERNAL_ERROR.
func From(err error) *Error {
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return Internal(err)
}

// Is reports whether err carries the given wire code.
func Is(err error, code string) bool {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code == code
	}
	return false
}
