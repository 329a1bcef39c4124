package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents an mcad error code.
type ErrorCode string

const (
	ErrInvalidRequest       ErrorCode = "INVALID_REQUEST"       // 400
	ErrMalformedInput       ErrorCode = "MALFORMED_INPUT"       // 400
	ErrAccessDenied         ErrorCode = "ACCESS_DENIED"         // 403
	ErrNotFound             ErrorCode = "NOT_FOUND"             // 404
	ErrFileNotFound         ErrorCode = "FILE_NOT_FOUND"        // 404
	ErrUnsupportedShape     ErrorCode = "UNSUPPORTED_SHAPE"     // 422
	ErrConfirmationRequired ErrorCode = "CONFIRMATION_REQUIRED" // 428
	ErrCancelled            ErrorCode = "CANCELLED"             // 499
	ErrInternal             ErrorCode = "INTERNAL"              // 500
	ErrPersistenceFailed    ErrorCode = "PERSISTENCE_FAILED"    // 502
	ErrConversionFailed     ErrorCode = "CONVERSION_FAILED"     // 502
)

// CadError represents a structured error with code, status, and details.
type CadError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *CadError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *CadError {
	return &CadError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewMalformedInput creates a 400 error for input that could not be decoded
// or validated (bad JSON, invalid shape records).
func NewMalformedInput(msg string) *CadError {
	return &CadError{
		Code:    ErrMalformedInput,
		Status:  400,
		Message: msg,
	}
}

// NewAccessDenied creates a 403 error for a private project opened without
// the matching access key.
func NewAccessDenied(projectID string) *CadError {
	return &CadError{
		Code:    ErrAccessDenied,
		Status:  403,
		Message: fmt.Sprintf("access key required for project: %s", projectID),
		Details: map[string]any{"project_id": projectID},
	}
}

// NewNotFound creates a 404 error for when a shape or project cannot be found.
func NewNotFound(identifier string) *CadError {
	return &CadError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("not found: %s", identifier),
		Details: map[string]any{"identifier": identifier},
	}
}

// NewFileNotFound creates a 404 error for a missing import file.
func NewFileNotFound(path string) *CadError {
	return &CadError{
		Code:    ErrFileNotFound,
		Status:  404,
		Message: fmt.Sprintf("file not found: %s", path),
		Details: map[string]any{"path": path},
	}
}

// NewUnsupportedShape creates a 422 error for a shape type the engine cannot build.
func NewUnsupportedShape(kind string) *CadError {
	return &CadError{
		Code:    ErrUnsupportedShape,
		Status:  422,
		Message: fmt.Sprintf("unsupported shape type: %q", kind),
		Details: map[string]any{"type": kind},
	}
}

// NewConfirmationRequired creates a 428 error for destructive actions
// attempted without an explicit confirmation.
func NewConfirmationRequired(action, target string) *CadError {
	return &CadError{
		Code:    ErrConfirmationRequired,
		Status:  428,
		Message: fmt.Sprintf("%s %s requires confirmation", action, target),
		Details: map[string]any{"action": action, "target": target},
	}
}

// NewCancelled creates a 499 error when an operation was cancelled by its context.
func NewCancelled(op string) *CadError {
	return &CadError{
		Code:    ErrCancelled,
		Status:  499,
		Message: fmt.Sprintf("%s cancelled", op),
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *CadError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &CadError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
	}
}

// NewPersistenceFailed creates a 502 error when a persistence collaborator
// failed to read or write. The working document is left unchanged.
func NewPersistenceFailed(op string, err error) *CadError {
	msg := fmt.Sprintf("failed to %s; please try again", op)
	details := map[string]any{"operation": op}
	if err != nil {
		details["cause"] = err.Error()
	}
	return &CadError{
		Code:    ErrPersistenceFailed,
		Status:  502,
		Message: msg,
		Details: details,
	}
}

// NewConversionFailed creates a 502 error when the STEP conversion service
// could not produce a file.
func NewConversionFailed(err error) *CadError {
	msg := "STEP conversion failed"
	if err != nil {
		msg = fmt.Sprintf("STEP conversion failed: %v", err)
	}
	return &CadError{
		Code:    ErrConversionFailed,
		Status:  502,
		Message: msg,
	}
}

// Is checks if an error is a CadError with the given code.
// Wrapped errors are unwrapped.
func Is(err error, code ErrorCode) bool {
	var cErr *CadError
	if stderrors.As(err, &cErr) {
		return cErr.Code == code
	}
	return false
}
