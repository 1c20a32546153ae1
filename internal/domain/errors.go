package domain

import (
	"errors"
	"sort"
	"strings"
)

// Common errors
var (
	ErrNotFound        = errors.New("record not found")
	ErrForbidden       = errors.New("action not permitted")
	ErrConflict        = errors.New("state changed, refresh and try again")
	ErrValidation      = errors.New("validation failed")
	ErrDependency      = errors.New("upstream dependency failed")
	ErrUnauthenticated = errors.New("authentication required")
)

// Domain specific conflicts. All of them wrap ErrConflict.
var (
	ErrAlreadyReviewed    = conflict("booking already reviewed")
	ErrAlreadyResponded   = conflict("assignment already responded")
	ErrBookingNotPending  = conflict("booking is no longer pending assignment")
	ErrBookingTerminal    = conflict("booking is in a terminal state")
	ErrAccountExists      = conflict("account already exists")
	ErrDuplicateCategory  = conflict("category already exists")
	ErrApprovalUnchanged  = conflict("approval status already set")
	ErrAssignmentInFlight = conflict("booking already has a pending assignment")
)

type conflictError struct{ msg string }

func conflict(msg string) error { return &conflictError{msg: msg} }

func (e *conflictError) Error() string        { return e.msg }
func (e *conflictError) Is(target error) bool { return target == ErrConflict }

// FieldError describes a single invalid input field.
type FieldError struct {
	Field string `json:"field"`
	Error string `json:"error"`
}

// ValidationError is returned for malformed input. It matches ErrValidation.
type ValidationError struct {
	Message string
	Fields  []FieldError
}

// NewValidationError builds a ValidationError without field details.
func NewValidationError(msg string) *ValidationError {
	return &ValidationError{Message: msg}
}

// FieldValidationError builds a ValidationError for one field.
func FieldValidationError(field, msg string) *ValidationError {
	return &ValidationError{Message: field + ": " + msg, Fields: []FieldError{{Field: field, Error: msg}}}
}

func (e *ValidationError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Error)
	}
	sort.Strings(parts)
	return strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// FieldMap returns field errors keyed by field name.
func (e *ValidationError) FieldMap() map[string]string {
	if len(e.Fields) == 0 {
		return nil
	}
	m := make(map[string]string, len(e.Fields))
	for _, f := range e.Fields {
		m[f.Field] = f.Error
	}
	return m
}
