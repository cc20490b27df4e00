package errorutil

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
)

// Error codes returned to API callers.
const (
	CodeMissingChannel   = "MISSING_CHANNEL"
	CodeMissingSubject   = "MISSING_SUBJECT"
	CodeInvalidRole      = "INVALID_ROLE"
	CodeInvalidExpiry    = "INVALID_EXPIRY"
	CodeInvalidTokenType = "INVALID_TOKEN_TYPE"
	CodeValidationFailed = "VALIDATION_FAILED"
	CodeNotFound         = "NOT_FOUND"
	CodeRateLimited      = "RATE_LIMITED"
	CodeSigningFailure   = "SIGNING_FAILURE"
	CodeInternal         = "INTERNAL_ERROR"
)

// Sentinels usable with errors.Is; matching is by Code.
var (
	ErrMissingChannel   = NewDomainError(CodeMissingChannel, "channel is required", http.StatusBadRequest, nil)
	ErrMissingSubject   = NewDomainError(CodeMissingSubject, "uid is required", http.StatusBadRequest, nil)
	ErrInvalidRole      = NewDomainError(CodeInvalidRole, "role is incorrect", http.StatusBadRequest, nil)
	ErrInvalidExpiry    = NewDomainError(CodeInvalidExpiry, "expiry must be a positive integer number of seconds", http.StatusBadRequest, nil)
	ErrInvalidTokenType = NewDomainError(CodeInvalidTokenType, "token type is invalid", http.StatusBadRequest, nil)
	ErrSigningFailure   = NewDomainError(CodeSigningFailure, "failed to sign token", http.StatusInternalServerError, nil)
	ErrNotFound         = NewDomainError(CodeNotFound, "not found", http.StatusNotFound, nil)
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a DomainError carrying the same code.
func (e *DomainError) Is(target error) bool {
	var other *DomainError
	if !errors.As(target, &other) {
		return false
	}
	return e.Code == other.Code
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

// WithDetails returns a copy of a sentinel carrying request specific details.
func WithDetails(base *DomainError, details map[string]any) error {
	clone := *base
	clone.Details = details
	return &clone
}

// Wrap returns a copy of a sentinel that wraps the underlying cause.
func Wrap(base *DomainError, err error) error {
	clone := *base
	clone.Err = err
	return &clone
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidationFailed, message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewRateLimited(message string) error {
	return NewDomainError(CodeRateLimited, message, http.StatusTooManyRequests, nil)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		code := strings.ToUpper(strings.ReplaceAll(http.StatusText(fiberErr.Code), " ", "_"))
		return NewDomainError(code, fiberErr.Message, fiberErr.Code, nil)
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return NewNotFound("resource", nil).(*DomainError)
	}
	return NewInternalError(err).(*DomainError)
}
