package servicemap_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/LuxXx/effect/servicemap"
)

func TestAddAndGet(t *testing.T) {
	tag := servicemap.NewTag[string]("greeting")
	sm := servicemap.Add(servicemap.Empty(), tag, "hello")

	v, ok := servicemap.Get(sm, tag)
	require.True(t, ok)
	require.Equal(t, "hello", v)
}

func TestGetMissing(t *testing.T) {
	tag := servicemap.NewTag[string]("absent")
	_, ok := servicemap.Get(servicemap.Empty(), tag)
	require.False(t, ok)
}

func TestAddIsCopyOnWrite(t *testing.T) {
	tag := servicemap.NewTag[int]("n")
	base := servicemap.Add(servicemap.Empty(), tag, 1)
	updated := servicemap.Add(base, tag, 2)

	v, _ := servicemap.Get(base, tag)
	require.Equal(t, 1, v)
	v, _ = servicemap.Get(updated, tag)
	require.Equal(t, 2, v)
}

func TestTagsWithSameLabelAreDistinct(t *testing.T) {
	a := servicemap.NewTag[int]("dup")
	b := servicemap.NewTag[int]("dup")
	sm := servicemap.Add(servicemap.Add(servicemap.Empty(), a, 1), b, 2)

	va, _ := servicemap.Get(sm, a)
	vb, _ := servicemap.Get(sm, b)
	require.Equal(t, 1, va)
	require.Equal(t, 2, vb)
	require.Equal(t, 2, sm.Len())
}

func TestMergeOtherWins(t *testing.T) {
	tag := servicemap.NewTag[string]("k")
	other := servicemap.NewTag[int]("other")

	left := servicemap.Add(servicemap.Empty(), tag, "left")
	right := servicemap.Add(servicemap.Add(servicemap.Empty(), tag, "right"), other, 1)

	merged := left.Merge(right)
	v, _ := servicemap.Get(merged, tag)
	require.Equal(t, "right", v)
	n, ok := servicemap.Get(merged, other)
	require.True(t, ok)
	require.Equal(t, 1, n)
}
