package vm

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scathac/internal/bytecode/format"
	"scathac/internal/bytecode/opcode"
	"scathac/internal/ffi"
)

func u64le(v uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	return b
}

func regOperand(idx uint8) []byte {
	return append([]byte{0}, u64le(uint64(idx))...)
}

func immOperand(v uint64) []byte {
	return append([]byte{1}, u64le(v)...)
}

func newProgram(text []byte, data []byte) *format.Program {
	return &format.Program{
		Header: format.Header{Version: format.CurrentVersion, StartOffset: 0},
		Data:   data,
		Text:   text,
	}
}

// S6: lincsp r0, 8; mov64 r0, 42; ret -- entry point returns 42.
func TestRunMinimalProgramReturns42(t *testing.T) {
	var text []byte
	text = append(text, byte(opcode.LincSP))
	text = append(text, 0) // dest r0
	text = append(text, u64le(8)...)

	text = append(text, byte(opcode.Mov64))
	text = append(text, 0) // dest r0
	text = append(text, immOperand(42)...)

	text = append(text, byte(opcode.Ret))

	machine, err := New(newProgram(text, nil), nil)
	require.NoError(t, err)

	result, err := machine.Run()
	require.NoError(t, err)
	assert.Equal(t, uint64(42), result)
	assert.Equal(t, uint64(3), machine.Executed())
}

func TestRunThreadedMatchesRun(t *testing.T) {
	var text []byte
	text = append(text, byte(opcode.Mov64))
	text = append(text, 0)
	text = append(text, immOperand(7)...)
	text = append(text, byte(opcode.Ret))

	machine, err := New(newProgram(text, nil), nil)
	require.NoError(t, err)
	result, err := machine.RunThreaded()
	require.NoError(t, err)
	assert.Equal(t, uint64(7), result)
}

func TestArithmeticAddsTwoRegisters(t *testing.T) {
	var text []byte
	text = append(text, byte(opcode.Mov64), 0)
	text = append(text, immOperand(10)...)
	text = append(text, byte(opcode.Mov64), 1)
	text = append(text, immOperand(32)...)
	text = append(text, byte(opcode.Add64), 0)
	text = append(text, regOperand(1)...)
	text = append(text, byte(opcode.Ret))

	machine, err := New(newProgram(text, nil), nil)
	require.NoError(t, err)
	result, err := machine.Run()
	require.NoError(t, err)
	assert.Equal(t, uint64(42), result)
}

func TestDivideByZeroTraps(t *testing.T) {
	var text []byte
	text = append(text, byte(opcode.Mov64), 0)
	text = append(text, immOperand(10)...)
	text = append(text, byte(opcode.SDiv64), 0)
	text = append(text, immOperand(0)...)
	text = append(text, byte(opcode.Ret))

	machine, err := New(newProgram(text, nil), nil)
	require.NoError(t, err)
	_, err = machine.Run()
	require.Error(t, err)
}

func TestCompareAndConditionalJump(t *testing.T) {
	var text []byte
	// r0 = 5; r1 = 5; cmps64 r0, r1; jeq skip; r0 = 0; skip: ret
	text = append(text, byte(opcode.Mov64), 0)
	text = append(text, immOperand(5)...)
	text = append(text, byte(opcode.Mov64), 1)
	text = append(text, immOperand(5)...)
	text = append(text, byte(opcode.CmpS64), 0)
	text = append(text, regOperand(1)...)

	jeqAt := len(text)
	text = append(text, byte(opcode.JEQ))
	jeqOperandAt := len(text)
	text = append(text, u64le(0)...) // patched below

	movZeroAt := len(text)
	text = append(text, byte(opcode.Mov64), 0)
	text = append(text, immOperand(0)...)

	retAt := len(text)
	text = append(text, byte(opcode.Ret))

	// relative offset is measured from the end of the JEQ instruction.
	jeqEnd := jeqOperandAt + 8
	rel := int64(retAt - jeqEnd)
	copy(text[jeqOperandAt:jeqOperandAt+8], u64le(uint64(rel)))
	_ = movZeroAt
	_ = jeqAt

	machine, err := New(newProgram(text, nil), nil)
	require.NoError(t, err)
	result, err := machine.Run()
	require.NoError(t, err)
	assert.Equal(t, uint64(5), result)
}

func TestLoadStoreRoundTripsThroughStack(t *testing.T) {
	var text []byte
	text = append(text, byte(opcode.LincSP), 0)
	text = append(text, u64le(8)...)
	text = append(text, byte(opcode.Store64), 0)
	text = append(text, immOperand(99)...)
	text = append(text, byte(opcode.Load64), 1)
	text = append(text, 0) // base reg
	text = append(text, byte(opcode.Mov64), 0)
	text = append(text, regOperand(1)...)
	text = append(text, byte(opcode.Ret))

	machine, err := New(newProgram(text, nil), nil)
	require.NoError(t, err)
	result, err := machine.Run()
	require.NoError(t, err)
	assert.Equal(t, uint64(99), result)
}

func TestMisalignedLoadFaults(t *testing.T) {
	var text []byte
	text = append(text, byte(opcode.LincSP), 0)
	text = append(text, u64le(16)...)
	text = append(text, byte(opcode.Mov64), 1)
	text = append(text, regOperand(0)...)
	text = append(text, byte(opcode.Add64), 1)
	text = append(text, immOperand(1)...)
	text = append(text, byte(opcode.Load64), 2)
	text = append(text, 1)
	text = append(text, byte(opcode.Ret))

	machine, err := New(newProgram(text, nil), nil)
	require.NoError(t, err)
	_, err = machine.Run()
	require.Error(t, err)
}

func TestCallExtInvokesHostFunction(t *testing.T) {
	var called bool
	fn := ffi.NewExternalFunction("double", func(regs []uint64, host ffi.Host, ctx any) {
		called = true
		regs[0] = regs[0] * 2
	})
	table, err := ffi.NewTable(ffi.NewStaticLoader(map[string][]ffi.ExternalFunction{
		"host": {fn},
	}), []string{"host"})
	require.NoError(t, err)

	var text []byte
	text = append(text, byte(opcode.Mov64), 0)
	text = append(text, immOperand(21)...)
	text = append(text, byte(opcode.CallExt))
	text = append(text, u64le(0)[:4]...) // slot 0
	text = append(text, u64le(0)[:4]...) // index 0
	text = append(text, byte(opcode.Ret))

	machine, err := New(newProgram(text, nil), table)
	require.NoError(t, err)
	result, err := machine.Run()
	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, uint64(42), result)
}

func TestCallExtUnresolvedIsFFIError(t *testing.T) {
	var text []byte
	text = append(text, byte(opcode.CallExt))
	text = append(text, u64le(0)[:4]...)
	text = append(text, u64le(0)[:4]...)
	text = append(text, byte(opcode.Ret))

	machine, err := New(newProgram(text, nil), nil)
	require.NoError(t, err)
	_, err = machine.Run()
	require.Error(t, err)
}

func TestTrapReturnsTrapError(t *testing.T) {
	machine, err := New(newProgram([]byte{byte(opcode.Trap)}, nil), nil)
	require.NoError(t, err)
	_, err = machine.Run()
	require.Error(t, err)
}

func TestInternalCallAndReturn(t *testing.T) {
	// entry: mov64 r0, 1; call callee; ret
	// callee (starts right after entry): mov64 r0, 99; ret
	var text []byte
	text = append(text, byte(opcode.Mov64), 0)
	text = append(text, immOperand(1)...)

	callAt := len(text)
	text = append(text, byte(opcode.Call))
	callOperandAt := len(text)
	text = append(text, u64le(0)...) // patched below
	text = append(text, byte(opcode.Ret))

	calleeStart := len(text)
	text = append(text, byte(opcode.Mov64), 0)
	text = append(text, immOperand(99)...)
	text = append(text, byte(opcode.Ret))

	callEnd := callOperandAt + 8
	rel := int64(calleeStart - callEnd)
	copy(text[callOperandAt:callOperandAt+8], u64le(uint64(rel)))
	_ = callAt

	machine, err := New(newProgram(text, nil), nil)
	require.NoError(t, err)
	result, err := machine.Run()
	require.NoError(t, err)
	assert.Equal(t, uint64(99), result)
}

func TestNewRejectsEmptyText(t *testing.T) {
	_, err := New(newProgram(nil, nil), nil)
	assert.Error(t, err)
}

func TestNewRejectsOutOfRangeStart(t *testing.T) {
	p := newProgram([]byte{byte(opcode.Ret)}, nil)
	p.Header.StartOffset = 10
	_, err := New(p, nil)
	assert.Error(t, err)
}
