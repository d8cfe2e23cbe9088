package binding

import (
	"testing"

	"github.com/linsmod/webf/internal/gc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type leaf struct{ _ int }

func (*leaf) Trace(gc.Visitor) {}

func TestAllocateLookupRelease(t *testing.T) {
	table := NewTable()
	obj := &leaf{}

	h := table.Allocate(obj, KindElement)
	assert.Equal(t, uint64(1), h.ID)
	assert.Equal(t, "element#1", h.String())

	got, ok := table.Lookup(h)
	require.True(t, ok)
	assert.Same(t, obj, got)

	_, ok = table.Lookup(Handle{ID: h.ID, Kind: KindText})
	assert.False(t, ok, "kind must match")

	require.NoError(t, table.Release(h))
	assert.False(t, table.Valid(h))
	assert.ErrorIs(t, table.Release(h), ErrUnknownHandle)
}

func TestHandlesAreNeverReused(t *testing.T) {
	table := NewTable()
	a := table.Allocate(&leaf{}, KindElement)
	require.NoError(t, table.Release(a))
	b := table.Allocate(&leaf{}, KindElement)

	assert.NotEqual(t, a.ID, b.ID)
}

func TestPinBlocksRelease(t *testing.T) {
	table := NewTable()
	h := table.Allocate(&leaf{}, KindText)

	ref, err := table.Pin(h)
	require.NoError(t, err)
	assert.Equal(t, 1, table.Pinned(h))
	assert.ErrorIs(t, table.Release(h), ErrPinned)

	ref.Release()
	ref.Release()
	assert.Equal(t, 0, table.Pinned(h))
	assert.True(t, ref.Released())
	assert.Equal(t, h, ref.Handle())
	assert.NoError(t, table.Release(h))
}

func TestPinUnknown(t *testing.T) {
	_, err := NewTable().Pin(Handle{ID: 9, Kind: KindElement})
	assert.ErrorIs(t, err, ErrUnknownHandle)
}

func TestRootsReportPinnedObjects(t *testing.T) {
	table := NewTable()
	heap := gc.NewHeap(nil)
	heap.AddRoots(table)

	pinnedObj, looseObj := &leaf{}, &leaf{}
	heap.Track(pinnedObj)
	heap.Track(looseObj)

	ref := table.MustPin(table.Allocate(pinnedObj, KindElement))
	table.Allocate(looseObj, KindElement)

	heap.Collect()
	assert.True(t, heap.IsTracked(pinnedObj))
	assert.False(t, heap.IsTracked(looseObj))

	ref.Release()
	heap.Collect()
	assert.False(t, heap.IsTracked(pinnedObj))
}

func TestWeakRef(t *testing.T) {
	ref := Weak(Handle{ID: 3, Kind: KindComment})
	assert.True(t, ref.IsWeak())
	ref.Release()
	assert.Equal(t, uint64(3), ref.Handle().ID)

	var nilRef *Ref
	assert.True(t, nilRef.Handle().IsZero())
	assert.NotPanics(t, nilRef.Release)
}

func TestParseKind(t *testing.T) {
	for _, k := range []Kind{KindDocument, KindElement, KindText, KindComment, KindFragment} {
		got, err := ParseKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}
	_, err := ParseKind("invalid")
	assert.Error(t, err)
}
