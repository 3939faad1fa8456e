package opcode

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStringRoundTripsThroughLookup(t *testing.T) {
	for c := OpCode(0); c < numOpCodes; c++ {
		name := c.String()
		assert.NotEqual(t, "<invalid opcode>", name)
		got, ok := Lookup(name)
		assert.True(t, ok, "name %q should resolve back to an OpCode", name)
		assert.Equal(t, c, got)
	}
}

func TestInvalidOpCodeStringsAndLookup(t *testing.T) {
	assert.Equal(t, "<invalid opcode>", numOpCodes.String())
	assert.False(t, numOpCodes.Valid())
	_, ok := Lookup("not-a-real-opcode")
	assert.False(t, ok)
}

func TestIsJumpCoversOnlyJumpFamily(t *testing.T) {
	for _, c := range []OpCode{Jmp, JEQ, JNE, JLT, JLE, JGT, JGE} {
		assert.True(t, c.IsJump(), c)
	}
	for _, c := range []OpCode{Call, Ret, Trap, Mov32, Add64} {
		assert.False(t, c.IsJump(), c)
	}
}

func TestIsTerminatorIncludesRetTrapAndJumps(t *testing.T) {
	assert.True(t, Ret.IsTerminator())
	assert.True(t, Trap.IsTerminator())
	assert.True(t, Jmp.IsTerminator())
	assert.False(t, Mov32.IsTerminator())
	assert.False(t, Call.IsTerminator())
}

func TestOperandBytesAgreesWithInstructionShape(t *testing.T) {
	assert.Equal(t, 9, LincSP.OperandBytes())
	assert.Equal(t, 0, Ret.OperandBytes())
	assert.Equal(t, 0, Trap.OperandBytes())
	assert.Equal(t, 8, Call.OperandBytes())
	assert.Equal(t, 8, CallExt.OperandBytes())
	assert.Equal(t, 1, CallV.OperandBytes())
	assert.Equal(t, 8, Jmp.OperandBytes())
	assert.Equal(t, 1, SetEQ.OperandBytes())
	assert.Equal(t, 10, Mov32.OperandBytes())
	assert.Equal(t, 10, Add64.OperandBytes())
	assert.Equal(t, 10, CmpS32.OperandBytes())
	assert.Equal(t, 2, Load64.OperandBytes())
	assert.Equal(t, 10, Store32.OperandBytes())
}
