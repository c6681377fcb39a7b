package user

import (
	"context"
	"errors"
	"fmt"
)

// Error is the closed set of failures a user operation can report.
// Implementations: *InvalidIDError, *NetworkError, *ServerError,
// *UnexpectedError, *NotFoundError and *ValidationFailedError.
type Error interface {
	error
	// Message returns text suitable for showing to the user.
	Message() string
	userError()
}

// InvalidIDError is reported when an operation targets a user without a usable ID.
type InvalidIDError struct {
	ID string
}

// NewInvalidIDError creates a new invalid id error
func NewInvalidIDError(id string) *InvalidIDError {
	return &InvalidIDError{ID: id}
}

// Error implements the error interface
func (e *InvalidIDError) Error() string {
	return fmt.Sprintf("invalid user id %q", e.ID)
}

// Message implements Error
func (e *InvalidIDError) Message() string { return "Invalid id" }

func (*InvalidIDError) userError() {}

// NetworkError wraps a transport failure (connection refused, timeout, ...).
type NetworkError struct {
	Err error
}

// NewNetworkError creates a new network error
func NewNetworkError(err error) *NetworkError {
	return &NetworkError{Err: err}
}

// Error implements the error interface
func (e *NetworkError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("network error: %v", e.Err)
	}
	return "network error"
}

// Unwrap returns the wrapped error
func (e *NetworkError) Unwrap() error { return e.Err }

// Message implements Error
func (e *NetworkError) Message() string { return "Network error" }

func (*NetworkError) userError() {}

// ServerError is reported when the remote service fails to handle a request.
type ServerError struct {
	Status  int
	Details string
}

// NewServerError creates a new server error
func NewServerError(status int, details string) *ServerError {
	return &ServerError{Status: status, Details: details}
}

// Error implements the error interface
func (e *ServerError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("server error (status %d): %s", e.Status, e.Details)
	}
	return fmt.Sprintf("server error (status %d)", e.Status)
}

// Message implements Error
func (e *ServerError) Message() string { return "Server error" }

func (*ServerError) userError() {}

// UnexpectedError is the fallback for failures outside the taxonomy.
type UnexpectedError struct {
	Err error
}

// NewUnexpectedError creates a new unexpected error
func NewUnexpectedError(err error) *UnexpectedError {
	return &UnexpectedError{Err: err}
}

// Error implements the error interface
func (e *UnexpectedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("unexpected error: %v", e.Err)
	}
	return "unexpected error"
}

// Unwrap returns the wrapped error
func (e *UnexpectedError) Unwrap() error { return e.Err }

// Message implements Error
func (e *UnexpectedError) Message() string { return "Unexpected error" }

func (*UnexpectedError) userError() {}

// NotFoundError is reported when the user with ID does not exist remotely.
type NotFoundError struct {
	ID string
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(id string) *NotFoundError {
	return &NotFoundError{ID: id}
}

// Error implements the error interface
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("user not found: id=%s", e.ID)
}

// Message implements Error
func (e *NotFoundError) Message() string { return "User not found" }

func (*NotFoundError) userError() {}

// ValidationFailedError carries the violations rejected by validation.
type ValidationFailedError struct {
	Errors ValidationErrors
}

// NewValidationFailedError creates a new validation failed error
func NewValidationFailedError(errs ValidationErrors) *ValidationFailedError {
	return &ValidationFailedError{Errors: errs}
}

// Error implements the error interface
func (e *ValidationFailedError) Error() string {
	return e.Errors.Error()
}

// Message implements Error
func (e *ValidationFailedError) Message() string { return "Validation failed" }

func (*ValidationFailedError) userError() {}

// AsError maps err into the Error taxonomy. It returns nil for a nil err.
// Context cancellation and deadlines are treated as network failures,
// validation violations become *ValidationFailedError and anything else
// becomes *UnexpectedError.
func AsError(err error) Error {
	if err == nil {
		return nil
	}

	var ue Error
	if errors.As(err, &ue) {
		return ue
	}

	var verrs ValidationErrors
	if errors.As(err, &verrs) {
		return NewValidationFailedError(verrs)
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return NewNetworkError(err)
	}

	return NewUnexpectedError(err)
}

// IsNotFound reports whether err is a *NotFoundError for id.
func IsNotFound(err error, id string) bool {
	var nf *NotFoundError
	return errors.As(err, &nf) && nf.ID == id
}
