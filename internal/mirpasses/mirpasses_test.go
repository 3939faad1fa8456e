package mirpasses

import (
	"testing"

	"scathac/internal/mir"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeadCodeElimRemovesUnusedArith(t *testing.T) {
	fn := mir.NewFunction("f")
	bb := mir.NewBasicBlock("entry")
	fn.PushBlock(bb)

	mod := mir.NewModule()
	mod.AddFunction(fn)
	c1 := mod.Constant(1)
	c2 := mod.Constant(2)

	dead := mir.NewSSARegister()
	fn.AddRegister(dead)
	bb.PushInst(mir.NewArith(mir.Add, dead, c1, c2, 32))
	bb.PushInst(mir.NewReturn(c1))

	changed := DeadCodeElim(fn)
	assert.True(t, changed)
	require.Len(t, bb.Instructions(), 1)
	assert.Equal(t, mir.InstReturn, bb.Instructions()[0].Opcode())
}

func TestDestroySSAEliminatesPhis(t *testing.T) {
	fn := mir.NewFunction("f")
	entry := mir.NewBasicBlock("entry")
	left := mir.NewBasicBlock("left")
	right := mir.NewBasicBlock("right")
	merge := mir.NewBasicBlock("merge")
	fn.PushBlock(entry)
	fn.PushBlock(left)
	fn.PushBlock(right)
	fn.PushBlock(merge)

	mod := mir.NewModule()
	mod.AddFunction(fn)
	c0 := mod.Constant(0)
	c1 := mod.Constant(1)
	c2 := mod.Constant(2)

	entry.PushInst(mir.NewTest(mir.Unsigned, nil, c0, 32))
	entry.PushInst(mir.NewCondJump(mir.JumpNE, left, right))

	lVal := mir.NewSSARegister()
	fn.AddRegister(lVal)
	left.PushInst(mir.NewMove(lVal, c1, 32))
	left.PushInst(mir.NewJump(merge))

	rVal := mir.NewSSARegister()
	fn.AddRegister(rVal)
	right.PushInst(mir.NewMove(rVal, c2, 32))
	right.PushInst(mir.NewJump(merge))

	phiDest := mir.NewSSARegister()
	fn.AddRegister(phiDest)
	phi := mir.NewPhi(phiDest, []mir.PhiEdge{
		{Block: left, Value: lVal},
		{Block: right, Value: rVal},
	})
	merge.PushInst(phi)
	merge.PushInst(mir.NewReturn(phiDest))

	DestroySSA(fn)

	require.NoError(t, mir.AssertInvariants(mod))
	for _, bb := range fn.Blocks() {
		for _, inst := range bb.Instructions() {
			assert.NotEqual(t, mir.InstPhi, inst.Opcode())
		}
	}
	leftTerm := left.Terminator()
	require.NotNil(t, leftTerm)
	leftInsts := left.Instructions()
	require.True(t, len(leftInsts) >= 2)
	assert.Equal(t, mir.InstMove, leftInsts[len(leftInsts)-2].Opcode())
}

func TestAllocateRegistersAssignsDistinctColorsToInterferingRegisters(t *testing.T) {
	fn := mir.NewFunction("f")
	bb := mir.NewBasicBlock("entry")
	fn.PushBlock(bb)

	mod := mir.NewModule()
	mod.AddFunction(fn)
	c1 := mod.Constant(1)
	c2 := mod.Constant(2)

	v1 := mir.NewVirtualRegister()
	fn.AddRegister(v1)
	v2 := mir.NewVirtualRegister()
	fn.AddRegister(v2)
	v3 := mir.NewVirtualRegister()
	fn.AddRegister(v3)

	bb.PushInst(mir.NewMove(v1, c1, 32))
	bb.PushInst(mir.NewMove(v2, c2, 32))
	bb.PushInst(mir.NewArith(mir.Add, v3, v1, v2, 32))
	bb.PushInst(mir.NewReturn(v3))

	ig := ComputeInterference(fn)
	ig.Colorize()
	assert.NotEqual(t, ig.Color(v1), ig.Color(v2))
}

func TestLowerSelectExpandsToIfElseDiamond(t *testing.T) {
	fn := mir.NewFunction("f")
	entry := mir.NewBasicBlock("entry")
	fn.PushBlock(entry)

	mod := mir.NewModule()
	mod.AddFunction(fn)
	c0 := mod.Constant(0)
	c1 := mod.Constant(1)
	c2 := mod.Constant(2)

	dest := mir.NewSSARegister()
	fn.AddRegister(dest)
	sel := mir.NewSelect(dest, c0, c1, c2)
	entry.PushInst(sel)
	entry.PushInst(mir.NewReturn(dest))

	changed := LowerSelect(fn)
	assert.True(t, changed)

	for _, bb := range fn.Blocks() {
		for _, inst := range bb.Instructions() {
			assert.NotEqual(t, mir.InstSelect, inst.Opcode())
		}
	}
	require.Len(t, fn.Blocks(), 4, "expected entry, true, false, merge blocks")
	entryTerm := entry.Terminator()
	require.NotNil(t, entryTerm)
	assert.Equal(t, mir.InstCondJump, entryTerm.Opcode())

	merge := fn.Blocks()[3]
	require.Len(t, merge.Instructions(), 1)
	assert.Equal(t, mir.InstReturn, merge.Instructions()[0].Opcode())
}

func TestElideJumpsRemovesRedundantFallthroughJump(t *testing.T) {
	fn := mir.NewFunction("f")
	entry := mir.NewBasicBlock("entry")
	next := mir.NewBasicBlock("next")
	fn.PushBlock(entry)
	fn.PushBlock(next)

	mod := mir.NewModule()
	mod.AddFunction(fn)
	c0 := mod.Constant(0)

	entry.PushInst(mir.NewJump(next))
	next.PushInst(mir.NewReturn(c0))

	ElideJumps(fn)

	require.Len(t, entry.Instructions(), 0)
	require.Len(t, next.Instructions(), 1)
}
