package helper_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/LuxXx/effect/shared/helper"
)

func TestTypedValueOf(t *testing.T) {
	v, err := helper.TypedValueOf[int](func() (any, error) { return 42, nil })
	require.NoError(t, err)
	require.Equal(t, 42, v)

	_, err = helper.TypedValueOf[int](func() (any, error) { return "not an int", nil })
	require.Error(t, err)

	boom := errors.New("boom")
	_, err = helper.TypedValueOf[int](func() (any, error) { return nil, boom })
	require.ErrorIs(t, err, boom)
}

func TestTypedValueOf2(t *testing.T) {
	v, ok := helper.TypedValueOf2[string](func() (any, bool) { return "yes", true })
	require.True(t, ok)
	require.Equal(t, "yes", v)

	_, ok = helper.TypedValueOf2[string](func() (any, bool) { return 1, true })
	require.False(t, ok)

	_, ok = helper.TypedValueOf2[string](func() (any, bool) { return nil, false })
	require.False(t, ok)
}

func TestMustTypedValue(t *testing.T) {
	require.Equal(t, 7, helper.MustTypedValue[int](func() (any, error) { return 7, nil }))
	require.Panics(t, func() {
		helper.MustTypedValue[int](func() (any, error) { return nil, errors.New("gone") })
	})
}
