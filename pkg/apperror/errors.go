package apperror

import (
	"errors"
	"fmt"
	"maps"
	"net/http"

	"github.com/go-playground/validator/v10"
)

// Kind classifies application errors so the HTTP boundary can map them
// without inspecting messages.
type Kind int

const (
	KindGeneric Kind = iota
	KindAuthentication
	KindAuthorization
	KindValidation
	KindNotFound
	KindRateLimit
)

func (k Kind) String() string {
	switch k {
	case KindAuthentication:
		return "authentication"
	case KindAuthorization:
		return "authorization"
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindRateLimit:
		return "rate_limit"
	default:
		return "generic"
	}
}

// StatusCode returns the HTTP status class fixed for the kind.
func (k Kind) StatusCode() int {
	switch k {
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindAuthorization:
		return http.StatusForbidden
	case KindValidation:
		return http.StatusUnprocessableEntity
	case KindNotFound:
		return http.StatusNotFound
	case KindRateLimit:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Default messages
const (
	MsgInternal       = "Internal Server Error"
	MsgAuthentication = "Authentication required"
	MsgAuthorization  = "Permission denied"
	MsgValidation     = "Validation failed"
	MsgNotFound       = "Resource not found"
	MsgRateLimit      = "Rate limit exceeded"
)

// Error is the typed application error returned by business logic and
// translated to a response envelope at the HTTP boundary.
type Error struct {
	kind    Kind
	status  int
	message string
	details map[string]any
	err     error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s (status %d): %s: %v", e.kind, e.status, e.message, e.err)
	}
	return fmt.Sprintf("%s (status %d): %s", e.kind, e.status, e.message)
}

// Unwrap supports error wrapping
func (e *Error) Unwrap() error {
	return e.err
}

// Kind returns the error category.
func (e *Error) Kind() Kind {
	return e.kind
}

// StatusCode returns the HTTP status code for the error.
func (e *Error) StatusCode() int {
	return e.status
}

// Message returns the client-facing message.
func (e *Error) Message() string {
	return e.message
}

// Details returns a copy of the attached metadata.
func (e *Error) Details() map[string]any {
	return maps.Clone(e.details)
}

// WithDetails returns a copy of e carrying the merged metadata.
func (e *Error) WithDetails(details map[string]any) *Error {
	cp := *e
	cp.details = maps.Clone(e.details)
	if cp.details == nil {
		cp.details = make(map[string]any, len(details))
	}
	maps.Copy(cp.details, details)
	return &cp
}

// WithCause returns a copy of e wrapping err.
func (e *Error) WithCause(err error) *Error {
	cp := *e
	cp.err = err
	return &cp
}

func newError(kind Kind, status int, message, fallback string, details []map[string]any) *Error {
	if message == "" {
		message = fallback
	}
	e := &Error{kind: kind, status: status, message: message}
	for _, d := range details {
		if len(d) == 0 {
			continue
		}
		if e.details == nil {
			e.details = make(map[string]any, len(d))
		}
		maps.Copy(e.details, d)
	}
	return e
}

// New creates an unclassified error with an explicit status code.
func New(status int, message string, details ...map[string]any) *Error {
	if status < 400 || status > 599 {
		status = http.StatusInternalServerError
	}
	return newError(KindGeneric, status, message, http.StatusText(status), details)
}

// NewAuthentication creates a 401 error
func NewAuthentication(message string, details ...map[string]any) *Error {
	return newError(KindAuthentication, http.StatusUnauthorized, message, MsgAuthentication, details)
}

// NewAuthorization creates a 403 error
func NewAuthorization(message string, details ...map[string]any) *Error {
	return newError(KindAuthorization, http.StatusForbidden, message, MsgAuthorization, details)
}

// NewValidation creates a 422 error
func NewValidation(message string, details ...map[string]any) *Error {
	return newError(KindValidation, http.StatusUnprocessableEntity, message, MsgValidation, details)
}

// NewNotFound creates a 404 error
func NewNotFound(message string, details ...map[string]any) *Error {
	return newError(KindNotFound, http.StatusNotFound, message, MsgNotFound, details)
}

// NewRateLimit creates a 429 error
func NewRateLimit(message string, details ...map[string]any) *Error {
	return newError(KindRateLimit, http.StatusTooManyRequests, message, MsgRateLimit, details)
}

// Wrap converts an unexpected error into a generic 500 error. The cause is
// kept for logging only; message is what clients see.
func Wrap(err error, message string) *Error {
	if message == "" {
		message = MsgInternal
	}
	return &Error{kind: KindGeneric, status: http.StatusInternalServerError, message: message, err: err}
}

// From classifies any error crossing the HTTP boundary.
func From(err error) *Error {
	if err == nil {
		return nil
	}

	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(map[string]any, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
		return NewValidation(MsgValidation, map[string]any{"fields": fields}).WithCause(err)
	}

	return Wrap(err, MsgInternal)
}

// Is reports whether err carries an application error of the given kind.
func Is(err error, kind Kind) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.kind == kind
}
