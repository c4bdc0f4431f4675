// Package errors provides custom error types for the metasync system.
// These errors enable programmatic error checking and keep the error
// taxonomy (absent value, consistency fault, collaborator failure,
// integrity failure, fatal input fault) explicit throughout the code.
package errors

import (
	"errors"
	"fmt"
)

// New returns an error that formats as the given text.
// It's an alias for the standard library errors.New for convenience.
var New = errors.New

// Common sentinel errors for the metasync system
var (
	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates that a resource already exists
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates that provided input was invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrValueAbsent indicates a lookup miss or an unparsable optional
	// field; callers continue with a sentinel rather than failing
	ErrValueAbsent = errors.New("value absent")

	// ErrDriftDetected indicates that a dataset's files no longer match
	// its stored integrity snapshot
	ErrDriftDetected = errors.New("drift detected")

	// ErrCollaboratorUnavailable indicates that an external collaborator
	// (catalogue, registry, minting service) could not be reached
	ErrCollaboratorUnavailable = errors.New("collaborator unavailable")

	// ErrMintingFailed indicates that the identifier-minting service
	// declined or failed to mint a persistent identifier
	ErrMintingFailed = errors.New("minting failed")

	// ErrTimeout indicates that an operation timed out
	ErrTimeout = errors.New("operation timed out")

	// ErrCanceled indicates that an operation was canceled
	ErrCanceled = errors.New("operation canceled")

	// ErrReadOnly indicates an attempt to modify a read-only resource
	ErrReadOnly = errors.New("read only")
)

// NotFoundError represents an error when a resource is not found
type NotFoundError struct {
	Resource string
	ID       string
}

// Error implements the error interface
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with ID %s not found", e.Resource, e.ID)
}

// Is implements errors.Is support
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// ValidationError represents a validation failure
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// Is implements errors.Is support
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewValidationError creates a new ValidationError
func NewValidationError(field string, value any, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// CollaboratorError represents a failure talking to an external
// collaborator such as the catalogue, the survey registry or the
// identifier-minting service. It degrades the affected field to
// absent; it never aborts a reconciliation run.
type CollaboratorError struct {
	Collaborator string
	Endpoint     string
	StatusCode   int
	Message      string
	Err          error
}

// Error implements the error interface
func (e *CollaboratorError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("collaborator %s failed (status %d): %s", e.Collaborator, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("collaborator %s failed: %s", e.Collaborator, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *CollaboratorError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *CollaboratorError) Is(target error) bool {
	return target == ErrCollaboratorUnavailable
}

// NewCollaboratorError creates a new CollaboratorError
func NewCollaboratorError(collaborator string, statusCode int, message string, err error) *CollaboratorError {
	return &CollaboratorError{
		Collaborator: collaborator,
		StatusCode:   statusCode,
		Message:      message,
		Err:          err,
	}
}

// ConsistencyError represents conflicting identity values asserted by
// two trusted sources for the same logical entity. Reconciliation
// surfaces it as a structured warning and continues using the
// documented preference order.
type ConsistencyError struct {
	Field       string
	StoreValue  string
	OtherValue  string
	OtherSource string
}

// Error implements the error interface
func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("attribute store %s %q is inconsistent with %s value %q",
		e.Field, e.StoreValue, e.OtherSource, e.OtherValue)
}

// MintError represents a failed persistent-identifier minting attempt
type MintError struct {
	Mode   string
	Status string
	Err    error
}

// Error implements the error interface
func (e *MintError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("identifier minting failed in %s mode with status %s", e.Mode, e.Status)
	}
	return fmt.Sprintf("identifier minting failed in %s mode: %v", e.Mode, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *MintError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *MintError) Is(target error) bool {
	return target == ErrMintingFailed
}

// ConfigError represents a configuration error
type ConfigError struct {
	Component string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	if e.Component != "" {
		return fmt.Sprintf("configuration error in %s: %s", e.Component, e.Message)
	}
	return fmt.Sprintf("configuration error: %s", e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new ConfigError
func NewConfigError(component, message string, err error) *ConfigError {
	return &ConfigError{
		Component: component,
		Message:   message,
		Err:       err,
	}
}

// ParseError represents an error when parsing data formats
type ParseError struct {
	Format  string // "xml", "yaml", "date", etc.
	File    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *ParseError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("parse error in %s file %s: %s", e.Format, e.File, e.Message)
	}
	return fmt.Sprintf("%s parse error: %s", e.Format, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ParseError) Unwrap() error {
	return e.Err
}

// NewParseError creates a new ParseError
func NewParseError(format, file, message string, err error) *ParseError {
	return &ParseError{
		Format:  format,
		File:    file,
		Message: message,
		Err:     err,
	}
}

// IOError represents an error during I/O operations
type IOError struct {
	Operation string // "read", "write", "create", "delete", "open", "close"
	Path      string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("IO error during %s of %s: %s", e.Operation, e.Path, e.Message)
	}
	return fmt.Sprintf("IO error during %s: %s", e.Operation, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *IOError) Unwrap() error {
	return e.Err
}

// NewIOError creates a new IOError
func NewIOError(operation, path string, err error) *IOError {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &IOError{
		Operation: operation,
		Path:      path,
		Message:   message,
		Err:       err,
	}
}

// ResourceError represents an error during resource operations
type ResourceError struct {
	Operation string // "create", "update", "delete", "fetch"
	Resource  string // "snapshot", "record", "attribute store"
	ID        string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *ResourceError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("failed to %s %s %s: %s", e.Operation, e.Resource, e.ID, e.Message)
	}
	return fmt.Sprintf("failed to %s %s: %s", e.Operation, e.Resource, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ResourceError) Unwrap() error {
	return e.Err
}

// NewResourceError creates a new ResourceError
func NewResourceError(operation, resource, id string, err error) *ResourceError {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &ResourceError{
		Operation: operation,
		Resource:  resource,
		ID:        id,
		Message:   message,
		Err:       err,
	}
}

// Helper functions for error checking

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsDrift checks if an error indicates a failed integrity verification
func IsDrift(err error) bool {
	return errors.Is(err, ErrDriftDetected)
}

// IsCollaboratorUnavailable checks if an error indicates a failed
// external collaborator call
func IsCollaboratorUnavailable(err error) bool {
	return errors.Is(err, ErrCollaboratorUnavailable)
}

// IsMintingFailed checks if an error indicates a failed minting attempt
func IsMintingFailed(err error) bool {
	return errors.Is(err, ErrMintingFailed)
}

// IsTimeout checks if an error is a timeout error
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// WrapResource wraps an error with resource context
func WrapResource(operation, resource, id string, err error) error {
	if err == nil {
		return nil
	}
	return NewResourceError(operation, resource, id, err)
}

// WrapIO wraps an error with I/O context
func WrapIO(operation, path string, err error) error {
	if err == nil {
		return nil
	}
	return NewIOError(operation, path, err)
}

// WrapParse wraps an error with parse context
func WrapParse(format, file string, err error) error {
	if err == nil {
		return nil
	}
	return NewParseError(format, file, err.Error(), err)
}
