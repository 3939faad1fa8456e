package ffi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypeStringAndSize(t *testing.T) {
	assert.Equal(t, "int32", Int32.String())
	assert.Equal(t, 4, Int32.Size())
	assert.Equal(t, 8, Pointer.Size())
	assert.True(t, Double.Valid())
	assert.False(t, Type(200).Valid())
}

func TestStaticLoaderAndTableResolve(t *testing.T) {
	var called bool
	puts := NewExternalFunction("puts", func(regs []uint64, host Host, ctx any) {
		called = true
		regs[0] = 0
	})
	loader := NewStaticLoader(map[string][]ExternalFunction{
		"libc": {puts},
	})

	table, err := NewTable(loader, []string{"libc"})
	require.NoError(t, err)
	assert.Equal(t, 1, table.NumSlots())

	fn, ok := table.Resolve(0, 0)
	require.True(t, ok)
	assert.Equal(t, "puts", fn.Name())

	regs := make([]uint64, 1)
	fn.Invoke(regs, nil)
	assert.True(t, called)
}

func TestTableResolveOutOfRange(t *testing.T) {
	loader := NewStaticLoader(map[string][]ExternalFunction{})
	table, err := NewTable(loader, nil)
	require.NoError(t, err)
	_, ok := table.Resolve(0, 0)
	assert.False(t, ok)
}

func TestStaticLoaderMissingLibrary(t *testing.T) {
	loader := NewStaticLoader(nil)
	_, err := loader.Load("missing")
	assert.Error(t, err)
}
