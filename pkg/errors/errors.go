package errors

import (
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Common application errors
var (
	ErrUserNotFound = NewNotFoundError("user", "User not found")
	ErrBodyRequired = NewValidationError("", "Request body is required")
	ErrInvalidUUID  = NewValidationError("id", "Invalid UUID format")
)

// ValidationError represents a validation failure with field-level details
type ValidationError struct {
	Field   string
	Message string
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed: %s - %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// GRPCStatus returns the gRPC status for this error.
// The status message is the bare reason so transports can show it as-is.
func (e *ValidationError) GRPCStatus() *status.Status {
	return status.New(codes.InvalidArgument, e.Message)
}

// NotFoundError represents a resource not found error
type NotFoundError struct {
	Resource string
	Message  string
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(resource, message string) *NotFoundError {
	return &NotFoundError{
		Resource: resource,
		Message:  message,
	}
}

// Error implements the error interface
func (e *NotFoundError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

// GRPCStatus returns the gRPC status for this error
func (e *NotFoundError) GRPCStatus() *status.Status {
	return status.New(codes.NotFound, e.Error())
}

// StorageError represents a failed write to the persistence backend.
// It must reach the caller: dropping it would lose the mutation.
type StorageError struct {
	Message string
	Err     error
}

// NewStorageError creates a new storage error
func NewStorageError(message string, err error) *StorageError {
	return &StorageError{
		Message: message,
		Err:     err,
	}
}

// Error implements the error interface
func (e *StorageError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *StorageError) Unwrap() error {
	return e.Err
}

// GRPCStatus returns the gRPC status for this error.
// The wrapped cause is kept out of the status message.
func (e *StorageError) GRPCStatus() *status.Status {
	return status.New(codes.Internal, e.Message)
}

// CorruptDocumentError reports a stored document that exists but cannot be
// decoded as {"users": [...]}.
type CorruptDocumentError struct {
	Source string
	Err    error
}

// NewCorruptDocumentError creates a new corrupt document error
func NewCorruptDocumentError(source string, err error) *CorruptDocumentError {
	return &CorruptDocumentError{
		Source: source,
		Err:    err,
	}
}

// Error implements the error interface
func (e *CorruptDocumentError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("corrupt document %s: %v", e.Source, e.Err)
	}
	return fmt.Sprintf("corrupt document %s", e.Source)
}

// Unwrap returns the wrapped error
func (e *CorruptDocumentError) Unwrap() error {
	return e.Err
}

// GRPCStatus returns the gRPC status for this error
func (e *CorruptDocumentError) GRPCStatus() *status.Status {
	return status.New(codes.DataLoss, e.Error())
}

// GRPCStatuser interface for errors that can provide gRPC status
type GRPCStatuser interface {
	GRPCStatus() *status.Status
}

var (
	_ GRPCStatuser = (*ValidationError)(nil)
	_ GRPCStatuser = (*NotFoundError)(nil)
	_ GRPCStatuser = (*StorageError)(nil)
	_ GRPCStatuser = (*CorruptDocumentError)(nil)
)
