package arena

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestArenaInsert(t *testing.T) {
	a := New[string](2)

	hello := a.Insert("hello")
	world := a.Insert("world")
	require.NotEqual(t, hello, world)
	require.Equal(t, 2, a.Len())

	v, ok := a.Get(hello)
	require.True(t, ok)
	require.Equal(t, "hello", *v)

	v, ok = a.Get(world)
	require.True(t, ok)
	require.Equal(t, "world", *v)
}

func TestArenaGet(t *testing.T) {
	a := New[int](0)
	a.Insert(42)

	t.Run("unknown handle", func(t *testing.T) {
		_, ok := a.Get(Unknown)
		require.False(t, ok)
	})

	t.Run("handle out of range", func(t *testing.T) {
		_, ok := a.Get(Index(1))
		require.False(t, ok)
	})

	t.Run("mutation through pointer", func(t *testing.T) {
		v := a.MustGet(Index(0))
		*v = 21
		require.Equal(t, 21, *a.MustGet(Index(0)))
	})

	t.Run("must get panics on unknown", func(t *testing.T) {
		require.Panics(t, func() {
			a.MustGet(Unknown)
		})
	})
}

func TestArenaIndexAt(t *testing.T) {
	a := New[int](3)
	for i := 0; i < 3; i++ {
		a.Insert(i * 10)
	}

	for i := 0; i < 3; i++ {
		idx := a.IndexAt(i)
		require.True(t, idx.Valid())
		require.Equal(t, i*10, *a.MustGet(idx))
	}

	require.Panics(t, func() {
		a.IndexAt(3)
	})
}

func TestIndexString(t *testing.T) {
	require.Equal(t, "unknown", Unknown.String())
	require.Equal(t, "#7", Index(7).String())
	require.False(t, Unknown.Valid())
}
