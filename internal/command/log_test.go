package command

import (
	"testing"

	"github.com/linsmod/webf/internal/binding"
	"github.com/linsmod/webf/internal/gc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type node struct{ name string }

func (*node) Trace(gc.Visitor) {}

func newHandle(t *testing.T, table *binding.Table, kind binding.Kind) binding.Handle {
	t.Helper()
	return table.Allocate(&node{name: t.Name()}, kind)
}

func TestAppendDrainKeepsOrder(t *testing.T) {
	table := binding.NewTable()
	root := newHandle(t, table, binding.KindElement)
	e1 := newHandle(t, table, binding.KindElement)

	log := NewLog()
	log.Append(New(OpCreateElement, table.MustPin(e1), "div"))
	log.Append(New(OpSetAttribute, table.MustPin(e1), "class", "foo"))
	log.Append(New(OpInsertAdjacentNode, table.MustPin(root), BeforeEnd).WithAux(table.MustPin(e1)))
	require.Equal(t, 3, log.Size())

	batch := log.Drain()
	assert.Equal(t, 0, log.Size())
	require.Equal(t, 3, batch.Len())

	ops := []Opcode{OpCreateElement, OpSetAttribute, OpInsertAdjacentNode}
	for i, r := range batch.Records {
		assert.Equal(t, uint64(i+1), r.Seq)
		assert.Equal(t, ops[i], r.Op)
	}
	assert.Equal(t, "class", batch.Records[1].Arg(0))
	assert.Equal(t, "foo", batch.Records[1].Arg(1))
	assert.Equal(t, e1, batch.Records[2].AuxHandle())
	assert.Equal(t, root, batch.Records[2].TargetHandle())
}

func TestDrainEmpty(t *testing.T) {
	log := NewLog()
	batch := log.Drain()

	assert.Equal(t, 0, batch.Len())
	assert.NotPanics(t, batch.Release)
}

func TestReleaseUnpinsExactlyOnce(t *testing.T) {
	table := binding.NewTable()
	e := newHandle(t, table, binding.KindElement)

	log := NewLog()
	log.Append(New(OpCreateElement, table.MustPin(e), "p"))
	log.Append(New(OpSetAttribute, table.MustPin(e), "id", "x"))
	require.Equal(t, 2, table.Pinned(e))

	batch := log.Drain()
	assert.Equal(t, 2, table.Pinned(e), "draining hands ownership over without unpinning")

	batch.Release()
	batch.Release()
	assert.Equal(t, 0, table.Pinned(e))
	assert.Nil(t, batch.Records[1].Args[0], "payloads are freed on release")
}

func TestRequeuePrecedesNewRecords(t *testing.T) {
	table := binding.NewTable()
	e := newHandle(t, table, binding.KindElement)

	log := NewLog()
	log.Append(New(OpSetAttribute, table.MustPin(e), "a", "1"))
	log.Append(New(OpSetAttribute, table.MustPin(e), "b", "2"))
	batch := log.Drain()

	log.Append(New(OpSetAttribute, table.MustPin(e), "c", "3"))
	log.Requeue(batch)

	assert.True(t, batch.Released())
	batch.Release() // no-op: the log owns the records again
	assert.Equal(t, 3, table.Pinned(e))

	var names []string
	var seqs []uint64
	for _, r := range log.Records() {
		names = append(names, r.Arg(0))
		seqs = append(seqs, r.Seq)
	}
	assert.Equal(t, []string{"a", "b", "c"}, names)
	assert.Equal(t, []uint64{1, 2, 3}, seqs)
}

func TestSplit(t *testing.T) {
	table := binding.NewTable()
	e := newHandle(t, table, binding.KindElement)

	log := NewLog()
	for _, name := range []string{"a", "b", "c", "d"} {
		log.Append(New(OpRemoveAttribute, table.MustPin(e), name))
	}
	consumed, rest := log.Drain().Split(2)

	assert.Equal(t, 2, consumed.Len())
	assert.Equal(t, 2, rest.Len())
	assert.Equal(t, "c", rest.Records[0].Arg(0))

	consumed.Release()
	assert.Equal(t, 2, table.Pinned(e))

	log.Requeue(rest)
	assert.Equal(t, 2, log.Size())
}

func TestUTF16Payloads(t *testing.T) {
	s := NewString("héllo 😀")
	assert.Equal(t, 8, s.Len(), "the emoji takes a surrogate pair")
	assert.Equal(t, "héllo 😀", s.String())

	c := s.Clone()
	c[0] = 'H'
	assert.Equal(t, uint16('h'), s[0])
}

func TestNewPanicsOnTooManyPayloads(t *testing.T) {
	assert.Panics(t, func() {
		New(OpSetAttribute, nil, "a", "b", "c")
	})
}

func TestOpcodeNames(t *testing.T) {
	for op := OpCreateDocument; op < opCount; op++ {
		got, err := ParseOpcode(op.String())
		require.NoError(t, err)
		assert.Equal(t, op, got)
	}
	assert.True(t, OpCreateSVGElement.IsCreate())
	assert.False(t, OpCloneNode.IsCreate())

	_, err := ParseOpcode("Explode")
	assert.Error(t, err)
}
