// Package errors provides a lightweight structured error type (WikiError)
// for category-based classification and retry semantics across the pipeline
// and CLI.
package errors

import (
	"fmt"
)

// ErrorCategory represents the category of a deepwiki error for classification
type ErrorCategory string

const (
	// User-facing configuration and input errors
	CategoryConfig       ErrorCategory = "config"
	CategoryValidation   ErrorCategory = "validation"
	CategoryPrecondition ErrorCategory = "precondition"

	// External system integration errors
	CategoryGit       ErrorCategory = "git"
	CategoryGenerator ErrorCategory = "generator"

	// Synthesis and processing errors
	CategoryBudget     ErrorCategory = "budget"
	CategoryFormat     ErrorCategory = "format"
	CategoryGuard      ErrorCategory = "guard"
	CategoryFileSystem ErrorCategory = "filesystem"

	// Runtime and infrastructure errors
	CategoryRuntime  ErrorCategory = "runtime"
	CategoryInternal ErrorCategory = "internal"
)

// ErrorSeverity indicates how critical an error is
type ErrorSeverity string

const (
	SeverityFatal   ErrorSeverity = "fatal"   // Stops execution
	SeverityError   ErrorSeverity = "error"   // Error, but not fatal
	SeverityWarning ErrorSeverity = "warning" // Continues with degraded functionality
	SeverityInfo    ErrorSeverity = "info"    // Informational, no impact
)

// WikiError is a structured error with category, retryability, and context
type WikiError struct {
	Category  ErrorCategory `json:"category"`
	Severity  ErrorSeverity `json:"severity"`
	Message   string        `json:"message"`
	Cause     error         `json:"cause,omitempty"`
	Retryable bool          `json:"retryable"`
	Context   ContextFields `json:"context,omitempty"`
}

// ContextFields carries structured context for WikiError
type ContextFields map[string]any

// Error implements the error interface
func (e *WikiError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (%s): %s: %v", e.Category, e.Severity, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s (%s): %s", e.Category, e.Severity, e.Message)
}

// Unwrap implements error unwrapping for Go 1.13+ error handling
func (e *WikiError) Unwrap() error {
	return e.Cause
}

// WithContext adds context information to the error
func (e *WikiError) WithContext(key string, value any) *WikiError {
	if e.Context == nil {
		e.Context = make(ContextFields)
	}
	e.Context[key] = value
	return e
}

// New creates a new WikiError
func New(category ErrorCategory, severity ErrorSeverity, message string) *WikiError {
	return &WikiError{
		Category:  category,
		Severity:  severity,
		Message:   message,
		Retryable: false,
	}
}

// Wrap creates a new WikiError that wraps an existing error
func Wrap(err error, category ErrorCategory, severity ErrorSeverity, message string) *WikiError {
	return &WikiError{
		Category: category,
		Severity: severity,
		Message:  message,
		Cause:    err,
	}
}

// Retryable creates a new retryable WikiError
func Retryable(category ErrorCategory, severity ErrorSeverity, message string) *WikiError {
	return &WikiError{
		Category:  category,
		Severity:  severity,
		Message:   message,
		Retryable: true,
	}
}

// IsCategory checks if an error belongs to a specific category
func IsCategory(err error, category ErrorCategory) bool {
	if we, ok := err.(*WikiError); ok {
		return we.Category == category
	}
	return false
}

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	if we, ok := err.(*WikiError); ok {
		return we.Retryable
	}
	return false
}

// GetCategory extracts the category from an error, or returns CategoryInternal
// if not a WikiError
func GetCategory(err error) ErrorCategory {
	if we, ok := err.(*WikiError); ok {
		return we.Category
	}
	return CategoryInternal
}
