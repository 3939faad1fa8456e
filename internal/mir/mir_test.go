package mir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstructionMaintainsUseDefEdges(t *testing.T) {
	mod := NewModule()
	fn := NewFunction("f")
	mod.AddFunction(fn)

	r0 := NewSSARegister()
	r1 := NewSSARegister()
	fn.AddRegister(r0)
	fn.AddRegister(r1)

	bb := NewBasicBlock("entry")
	fn.PushBlock(bb)

	add := NewArith(Add, r1, r0, mod.Constant(1), 64)
	bb.PushInst(add)
	bb.PushInst(NewReturn(r1))

	require.Len(t, r0.Users(), 1)
	assert.Equal(t, add, r0.Users()[0])
	require.Len(t, r1.Defs(), 1)
	assert.Equal(t, add, r1.Defs()[0])

	require.NoError(t, AssertInvariants(mod))
}

func TestInstructionCountsRepeatedOperandAsOneUser(t *testing.T) {
	r0 := NewSSARegister()
	dest := NewSSARegister()
	inst := NewArith(Add, dest, r0, r0, 32)

	assert.Len(t, r0.Users(), 1, "a register used twice by the same instruction is still one user")

	inst.SetOperand(1, NewSSARegister())
	assert.Len(t, r0.Users(), 1, "operand 0 still reads r0, so the user edge stays")

	inst.SetOperand(0, NewSSARegister())
	assert.Empty(t, r0.Users(), "removing the last remaining reference drops the user edge")
}

func TestBasicBlockRecoversPredecessorsFromJumpOperands(t *testing.T) {
	fn := NewFunction("f")
	entry := NewBasicBlock("entry")
	exit := NewBasicBlock("exit")
	fn.PushBlock(entry)
	fn.PushBlock(exit)

	entry.PushInst(NewJump(exit))
	exit.PushInst(NewReturn(nil))

	preds := exit.Predecessors()
	require.Len(t, preds, 1)
	assert.Equal(t, entry, preds[0])
	assert.Equal(t, []*BasicBlock{exit}, entry.Successors())
}

func TestRegisterSetEraseKeepsSurvivingIndicesStable(t *testing.T) {
	fn := NewFunction("f")
	a := NewVirtualRegister()
	b := NewVirtualRegister()
	c := NewVirtualRegister()
	fn.AddRegister(a)
	fn.AddRegister(b)
	fn.AddRegister(c)

	assert.Equal(t, 0, a.Index())
	assert.Equal(t, 1, b.Index())
	assert.Equal(t, 2, c.Index())

	fn.EraseRegister(b)
	assert.Equal(t, 2, c.Index(), "erasing b must not renumber c")
	assert.Nil(t, fn.VirtualRegisters().At(1))
	assert.Equal(t, []*Register{a, c}, fn.VirtualRegisters().All())
}

func TestModuleInternsConstantsByRawValue(t *testing.T) {
	mod := NewModule()
	c1 := mod.Constant(42)
	c2 := mod.Constant(42)
	assert.Same(t, c1, c2)
}
