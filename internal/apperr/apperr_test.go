package apperr

import (
	"errors"
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreUnavailableWrapsSentinel(t *testing.T) {
	cause := errors.New("connection refused")
	err := StoreUnavailable("load session", cause)

	require.Error(t, err)
	assert.True(t, IsStoreUnavailable(err))
	assert.ErrorIs(t, err, cause)

	oopsErr, ok := oops.AsOops(err)
	require.True(t, ok)
	assert.Equal(t, CodeStoreUnavailable, oopsErr.Code())
	assert.Equal(t, "load session", oopsErr.Context()["operation"])
}

func TestStoreUnavailableNil(t *testing.T) {
	assert.NoError(t, StoreUnavailable("noop", nil))
}

func TestStoreUnavailableIsIdempotent(t *testing.T) {
	first := StoreUnavailable("inner", errors.New("boom"))
	second := StoreUnavailable("outer", first)
	assert.Equal(t, first, second)
}
