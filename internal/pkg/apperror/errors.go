// Package apperror defines the error taxonomy shared by the assistant core and
// the HTTP boundary.
package apperror

import (
	"errors"
	"fmt"
)

// Kind classifies an error for handling and status mapping.
type Kind string

const (
	KindConfiguration Kind = "CONFIGURATION_ERROR"
	KindProvider      Kind = "PROVIDER_ERROR"
	KindNotFound      Kind = "NOT_FOUND"
	KindValidation    Kind = "VALIDATION_ERROR"
	KindStateConflict Kind = "STATE_CONFLICT"
)

// AppError is a structured application error.
type AppError struct {
	Kind      Kind                   `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Err       error                  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Configuration reports missing or invalid provider configuration.
func Configuration(message string, err error) *AppError {
	return &AppError{Kind: KindConfiguration, Message: message, Err: err}
}

// Provider reports a failed embedding or generation call.
func Provider(provider string, err error) *AppError {
	return &AppError{
		Kind:      KindProvider,
		Message:   fmt.Sprintf("%s provider call failed", provider),
		Retryable: true,
		Metadata:  map[string]interface{}{"provider": provider},
		Err:       err,
	}
}

// NotFound reports an unknown document, conversation or vendor resource.
func NotFound(resource, id string) *AppError {
	return &AppError{
		Kind:     KindNotFound,
		Message:  fmt.Sprintf("%s not found", resource),
		Details:  id,
		Metadata: map[string]interface{}{"resource": resource, "id": id},
	}
}

// Validation reports a malformed request payload.
func Validation(message string, details string) *AppError {
	return &AppError{Kind: KindValidation, Message: message, Details: details}
}

// StateConflict reports input that is not valid for the current state.
func StateConflict(phase, input string) *AppError {
	return &AppError{
		Kind:     KindStateConflict,
		Message:  fmt.Sprintf("input not valid in phase %s", phase),
		Details:  input,
		Metadata: map[string]interface{}{"phase": phase},
	}
}

// IsKind reports whether any error in err's chain is an AppError of kind k.
func IsKind(err error, k Kind) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind == k
	}
	return false
}

// KindOf returns the kind of the first AppError in err's chain, or "".
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ""
}
