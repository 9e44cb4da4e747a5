package fact

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorHelpers(t *testing.T) {
	assert.True(t, IsAlreadyExists(NewAlreadyExistsError("name")))
	assert.True(t, IsNotFound(NewNotFoundError("name")))
	assert.True(t, IsAttributeNotInSchema(NewAttributeNotInSchemaError("e1", "name")))
	assert.True(t, IsPersistenceUnavailable(NewPersistenceError("read", fs.ErrNotExist)))
	assert.True(t, IsForbidden(NewForbiddenError("bob", "viewer")))

	assert.False(t, IsNotFound(NewAlreadyExistsError("name")))
	assert.False(t, IsNotFound(errors.New("plain")))
	assert.False(t, IsNotFound(nil))
}

func TestErrorHelpers_Wrapped(t *testing.T) {
	err := fmt.Errorf("insert fact: %w", NewAttributeNotInSchemaError("e1", "age"))

	assert.True(t, IsAttributeNotInSchema(err))
	assert.Equal(t, ErrCodeAttributeNotInSchema, CodeOf(err))

	var fe *Error
	if assert.True(t, errors.As(err, &fe)) {
		assert.Equal(t, "age", fe.Attribute)
		assert.Equal(t, "e1", fe.Entity)
	}
}

func TestError_Message(t *testing.T) {
	err := NewNotFoundError("phone")
	assert.Equal(t, `NOT_FOUND: attribute "phone" not found`, err.Error())

	cause := errors.New("disk full")
	perr := NewPersistenceError("save data", cause)
	assert.Equal(t, "PERSISTENCE_UNAVAILABLE: save data: disk full", perr.Error())
	assert.ErrorIs(t, perr, cause)
}
