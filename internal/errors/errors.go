package errors

import (
	"errors"
	"fmt"
	"strings"
)

const (
	ErrorFailedToConnectToTheDatabase = "Failed to connect to the database"
	ErrorFailedToMigrateTheDatabase   = "Failed to migrate the database"
	ErrorUnknownStoreDriver           = "Unknown store driver"
	ErrorFailedToRunTheServer         = "Failed to run the server"
	ErrorFailedToShutdownTheServer    = "Failed to shutdown the server"
	ErrorFailedToRunShutdownHook      = "Failed to run shutdown hook"
	ErrFailedDecodeRequestBody        = "Failed to decode request body"
	ErrFailedIngestTransaction        = "Failed to ingest transaction"
	ErrFailedGetTransaction           = "Failed to get transaction"
	ErrFailedCountStalePending        = "Failed to count stale pending transactions"
	ErrTransactionNotFound            = "transaction not found"
	ErrInternalServer                 = "Internal server error"
)

// FieldError describes one rejected field of a request body.
type FieldError struct {
	Field   string
	Message string
	Type    string
}

type ValidationError struct {
	Fields []FieldError
}

func NewValidationError(fields ...FieldError) *ValidationError {
	return &ValidationError{Fields: fields}
}

// MissingField is the FieldError for an absent required field.
func MissingField(field string) FieldError {
	return FieldError{Field: field, Message: "field required", Type: "value_error.missing"}
}

// InvalidField is the FieldError for a present but unusable field.
func InvalidField(field, message, typ string) FieldError {
	return FieldError{Field: field, Message: message, Type: typ}
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f.Field, f.Message))
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(parts, "; "))
}

type NotFoundError struct {
	ID string
}

func NewNotFoundError(id string) *NotFoundError {
	return &NotFoundError{ID: id}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: %s", ErrTransactionNotFound, e.ID)
}

// StoreError wraps a storage failure with the operation that hit it.
type StoreError struct {
	Op  string
	Err error
}

func NewStoreError(op string, err error) *StoreError {
	return &StoreError{Op: op, Err: err}
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// ProcessingError is a failure of the external processing step.
type ProcessingError struct {
	Err error
}

func NewProcessingError(err error) *ProcessingError {
	return &ProcessingError{Err: err}
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("processing failed: %v", e.Err)
}

func (e *ProcessingError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is or wraps a *NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

func Is(err, target error) bool {
	return errors.Is(err, target)
}

func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
