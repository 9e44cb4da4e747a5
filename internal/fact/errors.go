package fact

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes fact store and persistence failures.
type ErrorCode string

const (
	// ErrCodeAlreadyExists indicates a schema attribute name collision.
	ErrCodeAlreadyExists ErrorCode = "ALREADY_EXISTS"

	// ErrCodeNotFound indicates a missing attribute on lookup, update or delete.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// ErrCodeAttributeNotInSchema indicates a fact referencing an unknown attribute.
	ErrCodeAttributeNotInSchema ErrorCode = "ATTRIBUTE_NOT_IN_SCHEMA"

	// ErrCodePersistenceUnavailable indicates a backing document or database
	// could not be read or written.
	ErrCodePersistenceUnavailable ErrorCode = "PERSISTENCE_UNAVAILABLE"

	// ErrCodeInvalidCardinality indicates a cardinality other than "one" or "many".
	ErrCodeInvalidCardinality ErrorCode = "INVALID_CARDINALITY"

	// ErrCodeInvalidArgument indicates a malformed name or identifier.
	ErrCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"

	// ErrCodeForbidden indicates the caller lacks the role for a mutation.
	ErrCodeForbidden ErrorCode = "FORBIDDEN"
)

// Error is the typed error returned by fact store operations and adapters.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Attribute names the schema attribute involved, if any.
	Attribute string

	// Entity names the entity involved, if any.
	Entity string

	// Err is the underlying cause (optional).
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// CodeOf returns the ErrorCode of err, or "" if err is not an *Error.
// Uses errors.As to handle wrapped errors.
func CodeOf(err error) ErrorCode {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return ""
}

// IsAlreadyExists returns true if err is an attribute name collision.
func IsAlreadyExists(err error) bool {
	return CodeOf(err) == ErrCodeAlreadyExists
}

// IsNotFound returns true if err reports a missing attribute.
func IsNotFound(err error) bool {
	return CodeOf(err) == ErrCodeNotFound
}

// IsAttributeNotInSchema returns true if err reports a fact on an unknown attribute.
func IsAttributeNotInSchema(err error) bool {
	return CodeOf(err) == ErrCodeAttributeNotInSchema
}

// IsPersistenceUnavailable returns true if err reports an unreadable or
// unwritable backing store.
func IsPersistenceUnavailable(err error) bool {
	return CodeOf(err) == ErrCodePersistenceUnavailable
}

// IsForbidden returns true if err reports a missing role.
func IsForbidden(err error) bool {
	return CodeOf(err) == ErrCodeForbidden
}

// NewAlreadyExistsError reports that attribute is already in the schema.
func NewAlreadyExistsError(attribute string) *Error {
	return &Error{
		Code:      ErrCodeAlreadyExists,
		Message:   fmt.Sprintf("attribute %q already exists", attribute),
		Attribute: attribute,
	}
}

// NewNotFoundError reports that attribute is not in the schema.
func NewNotFoundError(attribute string) *Error {
	return &Error{
		Code:      ErrCodeNotFound,
		Message:   fmt.Sprintf("attribute %q not found", attribute),
		Attribute: attribute,
	}
}

// NewAttributeNotInSchemaError reports a fact written against an unknown attribute.
func NewAttributeNotInSchemaError(entity, attribute string) *Error {
	return &Error{
		Code:      ErrCodeAttributeNotInSchema,
		Message:   fmt.Sprintf("attribute %q not in schema", attribute),
		Attribute: attribute,
		Entity:    entity,
	}
}

// NewInvalidCardinalityError reports an unrecognized cardinality.
func NewInvalidCardinalityError(value string) *Error {
	return &Error{
		Code:    ErrCodeInvalidCardinality,
		Message: fmt.Sprintf("invalid cardinality %q: must be %q or %q", value, CardinalityOne, CardinalityMany),
	}
}

// NewInvalidArgumentError reports a malformed argument.
func NewInvalidArgumentError(message string) *Error {
	return &Error{
		Code:    ErrCodeInvalidArgument,
		Message: message,
	}
}

// NewPersistenceError wraps an I/O failure of a backing store.
func NewPersistenceError(message string, err error) *Error {
	return &Error{
		Code:    ErrCodePersistenceUnavailable,
		Message: message,
		Err:     err,
	}
}

// NewForbiddenError reports that role may not perform action.
func NewForbiddenError(username, role string) *Error {
	return &Error{
		Code:    ErrCodeForbidden,
		Message: fmt.Sprintf("user %q with role %q needs the admin role to perform this action", username, role),
	}
}
