package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for common error conditions.
var (
	// ErrNotFound indicates that a requested entity was not found.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates that an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates that the input data is invalid.
	ErrInvalidInput = errors.New("invalid input")

	// ErrIdentifierNotFound indicates that the external source has no
	// record for the given reference identifier. Crawls abort before any
	// persistence when this is returned.
	ErrIdentifierNotFound = errors.New("identifier not found at source")

	// ErrMetadataUnavailable indicates that the source matched the
	// identifier but its metadata payload could not be decoded.
	ErrMetadataUnavailable = errors.New("metadata unavailable")

	// ErrServiceUnavailable indicates that an external service is unavailable.
	ErrServiceUnavailable = errors.New("service unavailable")
)

// ValidationError represents a validation error for a specific field.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// NotFoundError provides details about a not found entity.
type NotFoundError struct {
	Entity string
	ID     string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.ID)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// AlreadyExistsError provides details about a duplicate entity.
type AlreadyExistsError struct {
	Entity string
	ID     string
}

// Error implements the error interface.
func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("%s already exists: %s", e.Entity, e.ID)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *AlreadyExistsError) Unwrap() error {
	return ErrAlreadyExists
}

// IdentifierNotFoundError is returned when a crawl target does not exist
// at the external source. Surfaced to callers as a field-level failure.
type IdentifierNotFoundError struct {
	Source      SourceKind
	ReferenceID string
}

// Error implements the error interface.
func (e *IdentifierNotFoundError) Error() string {
	return fmt.Sprintf("%s has no record for identifier %q", e.Source, e.ReferenceID)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *IdentifierNotFoundError) Unwrap() error {
	return ErrIdentifierNotFound
}

// MetadataUnavailableError is returned when the source matched the
// identifier but the metadata payload could not be parsed or decoded.
type MetadataUnavailableError struct {
	Source      SourceKind
	ReferenceID string
	Cause       error
}

// Error implements the error interface.
func (e *MetadataUnavailableError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("no usable metadata from %s for %q: %v", e.Source, e.ReferenceID, e.Cause)
	}
	return fmt.Sprintf("no usable metadata from %s for %q", e.Source, e.ReferenceID)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *MetadataUnavailableError) Unwrap() error {
	return ErrMetadataUnavailable
}

// AffiliationReferenceError is an internal consistency failure: the
// citation database referenced an affiliation id that was absent from the
// resolved affiliation map. The crawl fails hard rather than silently
// dropping the link.
type AffiliationReferenceError struct {
	AffiliationID string
	AuthorName    string
}

// Error implements the error interface.
func (e *AffiliationReferenceError) Error() string {
	return fmt.Sprintf("affiliation id %q referenced by author %q is not in the resolved map", e.AffiliationID, e.AuthorName)
}

// ExternalAPIError provides details about an external API error.
type ExternalAPIError struct {
	Source     string
	StatusCode int
	Message    string
	Cause      error
}

// Error implements the error interface.
func (e *ExternalAPIError) Error() string {
	return fmt.Sprintf("%s API error (status %d): %s", e.Source, e.StatusCode, e.Message)
}

// Unwrap returns the underlying cause error.
func (e *ExternalAPIError) Unwrap() error {
	return e.Cause
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(entity, id string) *NotFoundError {
	return &NotFoundError{Entity: entity, ID: id}
}

// NewAlreadyExistsError creates a new AlreadyExistsError.
func NewAlreadyExistsError(entity, id string) *AlreadyExistsError {
	return &AlreadyExistsError{Entity: entity, ID: id}
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// NewIdentifierNotFoundError creates a new IdentifierNotFoundError.
func NewIdentifierNotFoundError(source SourceKind, referenceID string) *IdentifierNotFoundError {
	return &IdentifierNotFoundError{Source: source, ReferenceID: referenceID}
}

// NewMetadataUnavailableError creates a new MetadataUnavailableError.
func NewMetadataUnavailableError(source SourceKind, referenceID string, cause error) *MetadataUnavailableError {
	return &MetadataUnavailableError{Source: source, ReferenceID: referenceID, Cause: cause}
}

// NewAffiliationReferenceError creates a new AffiliationReferenceError.
func NewAffiliationReferenceError(affiliationID, authorName string) *AffiliationReferenceError {
	return &AffiliationReferenceError{AffiliationID: affiliationID, AuthorName: authorName}
}

// NewExternalAPIError creates a new ExternalAPIError.
func NewExternalAPIError(source string, statusCode int, message string, cause error) *ExternalAPIError {
	return &ExternalAPIError{Source: source, StatusCode: statusCode, Message: message, Cause: cause}
}
