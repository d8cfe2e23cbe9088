package native

import (
	"testing"

	"github.com/linsmod/webf/internal/binding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessors(t *testing.T) {
	h := binding.Handle{ID: 7, Kind: binding.KindElement}

	b, err := Bool(true).AsBool()
	require.NoError(t, err)
	assert.True(t, b)

	n, err := Number(2.5).AsNumber()
	require.NoError(t, err)
	assert.Equal(t, 2.5, n)

	s, err := String("div").AsString()
	require.NoError(t, err)
	assert.Equal(t, "div", s)

	p, err := Pointer(h).AsPointer()
	require.NoError(t, err)
	assert.Equal(t, h, p)

	assert.True(t, Null().IsNull())
	assert.True(t, Value{}.IsNull())
}

func TestKindMismatch(t *testing.T) {
	_, err := String("1").AsNumber()
	assert.ErrorIs(t, err, ErrKindMismatch)
	assert.ErrorContains(t, err, "want number, have string")

	_, err = Null().AsPointers()
	assert.ErrorIs(t, err, ErrKindMismatch)
}

func TestPointersAreCopied(t *testing.T) {
	hs := []binding.Handle{{ID: 1, Kind: binding.KindElement}, {ID: 2, Kind: binding.KindElement}}
	v := Pointers(hs)
	hs[0].ID = 99

	got, err := v.AsPointers()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), got[0].ID)

	got[1].ID = 42
	assert.Equal(t, uint64(2), v.Handles()[1].ID)
}

func TestMethodNames(t *testing.T) {
	for m := GetBoundingClientRect; m < methodCount; m++ {
		got, err := ParseMethod(m.String())
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}
	_, err := ParseMethod("focus")
	assert.Error(t, err)
}

func TestRectEdges(t *testing.T) {
	r := Rect{X: 10, Y: 20, Width: 30, Height: 40}
	assert.Equal(t, 40.0, r.Right())
	assert.Equal(t, 60.0, r.Bottom())
}
