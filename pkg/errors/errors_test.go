package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCloneMatchesTemplateByCode(t *testing.T) {
	err := Clone(ErrConfiguration, "module Networking has no room")
	assert.True(t, errors.Is(err, ErrConfiguration))
	assert.False(t, errors.Is(err, ErrAvailability))
	assert.Equal(t, "module Networking has no room", err.Message)
	assert.Equal(t, "module has no trainer or room assigned", ErrConfiguration.Message)

	wrapped := fmt.Errorf("outer: %w", err)
	assert.True(t, errors.Is(wrapped, ErrConfiguration))
}

func TestErrorMessageAvoidsRepeatingCause(t *testing.T) {
	cause := errors.New("room r1 already booked")
	assert.Equal(t, "room r1 already booked", Wrap(cause, ErrConflict.Code, ErrConflict.Status, cause.Error()).Error())
	assert.Equal(t, "load failed: boom", Wrap(errors.New("boom"), "X", 500, "load failed").Error())
}

func TestFromErrorDefaultsToInternal(t *testing.T) {
	assert.Nil(t, FromError(nil))
	plain := FromError(errors.New("boom"))
	assert.Equal(t, ErrInternal.Code, plain.Code)
	assert.Equal(t, ErrInternal.Status, plain.Status)

	typed := Clone(ErrDurationLimit, "too long")
	assert.Same(t, typed, FromError(fmt.Errorf("ctx: %w", typed)))
}
