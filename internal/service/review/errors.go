package review

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionExpired indicates that the learner has no live session, either
	// because none was started or because it was evicted. The caller must
	// start a new review.
	ErrSessionExpired = errors.New("review session expired")

	// ErrInvalidTransition indicates that an action does not fit the session's
	// current state, for example rating an item before it was revealed.
	ErrInvalidTransition = errors.New("invalid session transition")

	// ErrSessionCompleted indicates that every item of the session has been
	// handled and the session accepts no more actions.
	ErrSessionCompleted = errors.New("review session completed")

	// ErrNoItemsDue indicates that the learner has nothing to review.
	ErrNoItemsDue = errors.New("no items due for review")
)

// ServiceError wraps errors from the review service with the failing
// operation, so callers can use errors.As instead of string matching.
type ServiceError struct {
	// Operation is the operation that failed (e.g., "start", "rate")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s operation failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("%s operation failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError returns a ServiceError for operation.
func NewServiceError(operation, message string, err error) *ServiceError {
	return &ServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
