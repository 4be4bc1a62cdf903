// Package common defines shared constants and sentinel errors used across
// CourseCloud layers. Callers should use errors.Is to match these values.
//
// Errors come in two levels: a small set of categories (validation,
// authentication, not found, conflict, state, upstream, internal) and
// specific errors that wrap exactly one category. errors.Is matches both.
package common

import (
	"errors"
	"sort"
	"strings"
)

var (
	// Categories.
	ErrorValidation   = errors.New("validation error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorNotFound     = errors.New("not found")
	ErrorConflict     = errors.New("conflict")
	ErrorState        = errors.New("invalid state")
	ErrorUpstream     = errors.New("upstream error")
	ErrorInternal     = errors.New("internal error")
)

var (
	// Validation errors.
	ErrMissingFields    = categorized(ErrorValidation, "all fields are required")
	ErrPasswordMismatch = categorized(ErrorValidation, "passwords do not match")

	// Authentication errors.
	ErrMissingCredential  = categorized(ErrorUnauthorized, "access token is missing or invalid")
	ErrInvalidToken       = categorized(ErrorUnauthorized, "invalid token")
	ErrTokenExpired       = categorized(ErrorUnauthorized, "token expired")
	ErrInvalidCredentials = categorized(ErrorUnauthorized, "invalid email or password")
	ErrSessionRevoked     = categorized(ErrorUnauthorized, "session is no longer active")

	// Lookup errors.
	ErrUserNotFound    = categorized(ErrorNotFound, "user not found")
	ErrCourseNotFound  = categorized(ErrorNotFound, "course not found")
	ErrLectureNotFound = categorized(ErrorNotFound, "lecture not found")
	ErrNoCourses       = categorized(ErrorNotFound, "no courses found")

	// Conflicts.
	ErrDuplicateEmail  = categorized(ErrorConflict, "user already exists with this email")
	ErrAlreadyEnrolled = categorized(ErrorConflict, "already enrolled")

	// State machine violations.
	ErrNotVerified        = categorized(ErrorState, "verify your account before login")
	ErrOTPNotRequested    = categorized(ErrorState, "OTP not generated or already verified")
	ErrOTPExpired         = categorized(ErrorState, "OTP has expired, please request a new one")
	ErrOTPMismatch        = categorized(ErrorState, "invalid OTP")
	ErrResetNotAuthorized = categorized(ErrorState, "verify the OTP before changing the password")

	// Collaborator failures.
	ErrMailDelivery  = categorized(ErrorUpstream, "failed to send email")
	ErrStorageUpload = categorized(ErrorUpstream, "failed to upload file")
)

type categorizedError struct {
	category error
	msg      string
}

func categorized(category error, msg string) error {
	return &categorizedError{category: category, msg: msg}
}

func (e *categorizedError) Error() string { return e.msg }

func (e *categorizedError) Unwrap() error { return e.category }

// ValidationError reports field-level problems with a request payload.
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError returns a ValidationError for the given field messages.
func NewValidationError(fields map[string]string) *ValidationError {
	return &ValidationError{Fields: fields}
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return ErrorValidation.Error()
	}

	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+": "+e.Fields[name])
	}
	return ErrorValidation.Error() + ": " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrorValidation }
