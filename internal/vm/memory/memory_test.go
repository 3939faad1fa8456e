package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPointerArithmeticAndAlignment(t *testing.T) {
	p := NewPointer(5, 16)
	q := p.Add(32)
	assert.Equal(t, NewPointer(5, 48), q)
	assert.Equal(t, int64(32), q.Sub(p))
	assert.True(t, IsAligned(p, 8))
	assert.False(t, IsAligned(p.Add(4), 8))
}

func TestArenaAllocateWriteReadDeallocate(t *testing.T) {
	a := NewArena([]byte{1, 2, 3, 4}, 64)

	p, err := a.Allocate(16, 8)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, int(p.Slot()), 2)

	require.NoError(t, a.Write(p, []byte{0xAA, 0xBB}))
	got, err := a.Read(p, 2)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xAA, 0xBB}, got)

	require.NoError(t, a.Deallocate(p, 16))
	_, err = a.Read(p, 2)
	assert.Error(t, err)
}

func TestArenaReadStaticData(t *testing.T) {
	a := NewArena([]byte{9, 8, 7}, 0)
	got, err := a.Read(NewPointer(StaticSlot, 1), 2)
	require.NoError(t, err)
	assert.Equal(t, []byte{8, 7}, got)
}

func TestArenaGrowExtendsStack(t *testing.T) {
	a := NewArena(nil, 8)
	p, err := a.Grow(StackSlot, 16)
	require.NoError(t, err)
	assert.Equal(t, NewPointer(StackSlot, 8), p)

	require.NoError(t, a.Write(p, []byte{1, 2, 3}))
	got, err := a.Read(p, 3)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, got)
}

func TestArenaOutOfRangeAccessErrors(t *testing.T) {
	a := NewArena([]byte{1, 2}, 4)
	_, err := a.Read(NewPointer(StaticSlot, 0), 100)
	assert.Error(t, err)

	_, err = a.Read(NewPointer(50, 0), 1)
	assert.Error(t, err)
}

func TestDeallocateReservedSlotErrors(t *testing.T) {
	a := NewArena(nil, 0)
	assert.Error(t, a.Deallocate(NewPointer(StackSlot, 0), 0))
}

func TestAllocateRecyclesFreedSlot(t *testing.T) {
	a := NewArena(nil, 0)
	p1, err := a.Allocate(8, 8)
	require.NoError(t, err)
	require.NoError(t, a.Deallocate(p1, 8))

	p2, err := a.Allocate(8, 8)
	require.NoError(t, err)
	assert.Equal(t, p1.Slot(), p2.Slot())
}
