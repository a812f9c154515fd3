package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasCode(t *testing.T) {
	t.Run("matches outer code", func(t *testing.T) {
		err := New(CodeNotFound, "application not found")
		assert.True(t, HasCode(err, CodeNotFound))
		assert.False(t, HasCode(err, CodeInternal))
	})

	t.Run("matches wrapped domain error", func(t *testing.T) {
		inner := New(CodeValidation, "bad pincode")
		err := Wrap(inner, CodeInternal, "save failed")
		assert.True(t, HasCode(err, CodeInternal))
		assert.True(t, HasCode(err, CodeValidation))
	})

	t.Run("sees through fmt wrapping", func(t *testing.T) {
		err := fmt.Errorf("handler: %w", New(CodeIncompleteApplication, "missing address"))
		assert.True(t, Is(err, CodeIncompleteApplication))
	})

	t.Run("plain errors carry no code", func(t *testing.T) {
		assert.False(t, HasCode(errors.New("boom"), CodeInternal))
		assert.False(t, HasCode(nil, CodeInternal))
	})
}

func TestWithFields(t *testing.T) {
	err := WithFields(CodeValidation, []FieldError{
		{Field: "pan_number", Message: "must match AAAAA9999A"},
		{Field: "email", Message: "must be a valid email address"},
	})

	de, ok := As(err)
	require.True(t, ok)
	assert.Equal(t, CodeValidation, de.Code)
	assert.Len(t, de.Fields, 2)
	assert.Equal(t, "pan_number: must match AAAAA9999A; email: must be a valid email address", err.Error())
	assert.Equal(t, de.Fields, FieldsOf(fmt.Errorf("wrapped: %w", err)))
}

func TestWrapUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(cause, CodeInternal, "failed to load application")
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "failed to load application: connection reset", err.Error())
}
