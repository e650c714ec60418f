// Package errors provides standardized error handling patterns for archivegraph
// components. It includes error classification, standard error variables, and
// helper functions for consistent error wrapping and classification across the
// system.
package errors

import (
	"errors"
	"fmt"
)

// ErrorClass represents the classification of errors for handling purposes
type ErrorClass int

const (
	// ErrorStructural represents errors that reject a structural mutation:
	// duplicate ids, invalid containment, reference cycles, depth overruns.
	// The store never partially applies a mutation that raised one.
	ErrorStructural ErrorClass = iota
	// ErrorBehavior represents errors from behavior tag validation: a tag
	// invalid for the resource kind, or a disjoint-set conflict.
	ErrorBehavior
	// ErrorTrash represents recoverable trash-subsystem errors: operating on
	// an id in the wrong state, a full trash, a missing restore target.
	ErrorTrash
)

// String returns the string representation of ErrorClass
func (ec ErrorClass) String() string {
	switch ec {
	case ErrorStructural:
		return "structural"
	case ErrorBehavior:
		return "behavior"
	case ErrorTrash:
		return "trash"
	default:
		return "unknown"
	}
}

// Standard error variables for common conditions
var (
	// Structural errors
	ErrDuplicateID        = errors.New("duplicate entity id")
	ErrInvalidContainment = errors.New("invalid containment for parent kind")
	ErrCycleDetected      = errors.New("reference cycle detected")
	ErrDepthExceeded      = errors.New("reference depth limit exceeded")
	ErrNotFound           = errors.New("entity not found")
	ErrParentNotFound     = errors.New("parent entity not found")

	// Behavior errors
	ErrInvalidBehavior  = errors.New("behavior not valid for resource kind")
	ErrBehaviorConflict = errors.New("mutually exclusive behaviors present")

	// Trash errors
	ErrAlreadyTrashed = errors.New("entity already trashed")
	ErrNotTrashed     = errors.New("entity not in trash")
	ErrTrashFull      = errors.New("trash item limit reached")
	ErrMissingParent  = errors.New("original parent no longer exists")

	// Configuration errors
	ErrInvalidConfig = errors.New("invalid configuration")
)

// ClassifiedError wraps an error with its classification
type ClassifiedError struct {
	Class     ErrorClass
	Err       error
	Message   string
	Component string
	Operation string
}

// Error implements the error interface
func (ce *ClassifiedError) Error() string {
	if ce.Message != "" {
		return ce.Message
	}
	return ce.Err.Error()
}

// Unwrap returns the underlying error
func (ce *ClassifiedError) Unwrap() error {
	return ce.Err
}

// IsStructural checks if an error rejects a structural mutation
func IsStructural(err error) bool {
	if err == nil {
		return false
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == ErrorStructural
	}

	return errors.Is(err, ErrDuplicateID) ||
		errors.Is(err, ErrInvalidContainment) ||
		errors.Is(err, ErrCycleDetected) ||
		errors.Is(err, ErrDepthExceeded) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrParentNotFound)
}

// IsBehavior checks if an error came from behavior tag validation
func IsBehavior(err error) bool {
	if err == nil {
		return false
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == ErrorBehavior
	}

	return errors.Is(err, ErrInvalidBehavior) ||
		errors.Is(err, ErrBehaviorConflict)
}

// IsTrash checks if an error is a recoverable trash-subsystem error
func IsTrash(err error) bool {
	if err == nil {
		return false
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class == ErrorTrash
	}

	return errors.Is(err, ErrAlreadyTrashed) ||
		errors.Is(err, ErrNotTrashed) ||
		errors.Is(err, ErrTrashFull) ||
		errors.Is(err, ErrMissingParent)
}

// Classify returns the error class for an error
func Classify(err error) ErrorClass {
	if err == nil {
		return ErrorStructural // Default for nil
	}

	if IsBehavior(err) {
		return ErrorBehavior
	}
	if IsTrash(err) {
		return ErrorTrash
	}

	// Default to structural: unknown errors must reject the mutation
	return ErrorStructural
}

// newClassified creates a new classified error
// This is an internal helper - use WrapStructural(), WrapBehavior(), or WrapTrash() instead.
func newClassified(class ErrorClass, err error, component, operation, message string) *ClassifiedError {
	return &ClassifiedError{
		Class:     class,
		Err:       err,
		Message:   message,
		Component: component,
		Operation: operation,
	}
}

// Wrap creates a standardized error with context following the pattern:
// "component.method: action failed: %w"
func Wrap(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s.%s: %s failed: %w", component, method, action, err)
}

// WrapStructural wraps an error as structural with context
func WrapStructural(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	return newClassified(ErrorStructural, wrappedErr, component, method, wrappedErr.Error())
}

// WrapBehavior wraps an error as behavior with context
func WrapBehavior(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	return newClassified(ErrorBehavior, wrappedErr, component, method, wrappedErr.Error())
}

// WrapTrash wraps an error as trash with context
func WrapTrash(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrappedErr := Wrap(err, component, method, action)
	return newClassified(ErrorTrash, wrappedErr, component, method, wrappedErr.Error())
}
