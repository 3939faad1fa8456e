package assembly

import "scathac/internal/bytecode/opcode"

// Instruction is one assembled operation: a concrete OpCode plus
// whichever of dest/src/lhs/rhs/base/value its shape uses. As in
// mir.Instruction, one struct with opcode-gated fields stands in for a
// per-kind subclass family (original_source's MoveInst/ArithmeticInst/
// CompareInst/... hierarchy under asm2::Instruction).
type Instruction struct {
	op opcode.OpCode

	dest  Operand
	src   Operand
	lhs   Operand
	rhs   Operand
	base  Operand
	value Operand

	target *Block // intra-stream jump/call target, known at assembly time
	label  string // call target left for Linker.Link to resolve

	ffiSlot, ffiIndex uint32
}

func (i *Instruction) OpCode() opcode.OpCode { return i.op }
func (i *Instruction) Dest() Operand         { return i.dest }
func (i *Instruction) Source() Operand       { return i.src }
func (i *Instruction) LHS() Operand          { return i.lhs }
func (i *Instruction) RHS() Operand          { return i.rhs }
func (i *Instruction) Base() Operand         { return i.base }
func (i *Instruction) Value() Operand        { return i.value }
func (i *Instruction) Target() *Block        { return i.target }
func (i *Instruction) Label() string         { return i.label }
func (i *Instruction) FFISlot() uint32       { return i.ffiSlot }
func (i *Instruction) FFIIndex() uint32      { return i.ffiIndex }

// EncodedSize is the instruction's byte length in the text section: a
// one-byte opcode tag followed by opcode.OperandBytes().
func (i *Instruction) EncodedSize() int { return 1 + i.op.OperandBytes() }

func NewLincSP(dest uint8, bytes uint64) *Instruction {
	return &Instruction{op: opcode.LincSP, dest: Reg(dest), value: Imm(bytes)}
}

// NewMov builds a mov{8,16,32,64}; op must come from mapMove.
func NewMov(op opcode.OpCode, dest uint8, src Operand) *Instruction {
	return &Instruction{op: op, dest: Reg(dest), src: src}
}

// NewArith builds a two-operand arithmetic instruction (dest := dest
// <op> rhs), matching ArithmeticInst::verify()'s single dest plus
// single source shape; lhs is recorded but not encoded, and the
// caller passes dest's own register for it (see the InstArith case of
// assemble.go's translateInstruction).
func NewArith(op opcode.OpCode, dest uint8, lhs Operand, rhs Operand) *Instruction {
	return &Instruction{op: op, dest: Reg(dest), lhs: lhs, rhs: rhs}
}

func NewCompareOrTest(op opcode.OpCode, lhs uint8, rhs Operand) *Instruction {
	return &Instruction{op: op, lhs: Reg(lhs), rhs: rhs}
}

func NewSet(op opcode.OpCode, dest uint8) *Instruction {
	return &Instruction{op: op, dest: Reg(dest)}
}

// NewJump builds an unconditional jmp to an already-known block.
func NewJump(target *Block) *Instruction {
	return &Instruction{op: opcode.Jmp, target: target}
}

// NewCondJump builds a conditional jump (op from mapJump) to an
// already-known block; the assembler is responsible for emitting the
// companion fallback jump when the false edge isn't the next block in
// layout order.
func NewCondJump(op opcode.OpCode, target *Block) *Instruction {
	return &Instruction{op: op, target: target}
}

func NewLoad(op opcode.OpCode, dest, base uint8) *Instruction {
	return &Instruction{op: op, dest: Reg(dest), base: Reg(base)}
}

func NewStore(op opcode.OpCode, base uint8, val Operand) *Instruction {
	return &Instruction{op: op, base: Reg(base), value: val}
}

// NewCall builds a call to a block already known in this stream.
func NewCall(target *Block) *Instruction {
	return &Instruction{op: opcode.Call, target: target}
}

// NewCallLabel builds a call to a symbol Linker.Link must resolve
// against another stream (or report unresolved).
func NewCallLabel(label string) *Instruction {
	return &Instruction{op: opcode.Call, label: label}
}

func NewCallExt(slot, index uint32) *Instruction {
	return &Instruction{op: opcode.CallExt, ffiSlot: slot, ffiIndex: index}
}

func NewCallV(reg uint8) *Instruction {
	return &Instruction{op: opcode.CallV, src: Reg(reg)}
}

func NewRet() *Instruction  { return &Instruction{op: opcode.Ret} }
func NewTrap() *Instruction { return &Instruction{op: opcode.Trap} }
