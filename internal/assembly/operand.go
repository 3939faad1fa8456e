// Package assembly turns a register-allocated MIR module into a flat,
// position-independent byte stream: concrete opcodes chosen by
// overload resolution, two-pass layout, and (for multi-unit builds)
// linking. It is the Go port of original_source's Assembly2 design
// (lib/Assembly2/*), not the older pImpl-based lib/Assembly/* API.
package assembly

// OperandKind discriminates an Instruction operand's shape, the
// dimension opcode overload resolution keys on alongside width --
// original_source's RegisterIndex/Value64/MemoryAddress Value variant,
// collapsed into one struct the way mir.Instruction already collapses
// its own subclass family.
type OperandKind int

const (
	KindRegister OperandKind = iota
	KindImmediate
	KindMemory
)

// Operand is a concrete assembly-level value: a hardware register
// index, a 64-bit immediate, or a memory reference (a base register
// and, in principle, a dynamic index register -- unused here, see
// assemble.go's note on addressing-mode fusion).
type Operand struct {
	kind     OperandKind
	reg      uint8
	imm      uint64
	index    uint8
	hasIndex bool
}

func Reg(idx uint8) Operand  { return Operand{kind: KindRegister, reg: idx} }
func Imm(v uint64) Operand   { return Operand{kind: KindImmediate, imm: v} }
func Mem(base uint8) Operand { return Operand{kind: KindMemory, reg: base} }
func MemIndexed(base, index uint8) Operand {
	return Operand{kind: KindMemory, reg: base, index: index, hasIndex: true}
}

func (o Operand) Kind() OperandKind            { return o.kind }
func (o Operand) Register() uint8              { return o.reg }
func (o Operand) Immediate() uint64            { return o.imm }
func (o Operand) IndexRegister() (uint8, bool) { return o.index, o.hasIndex }
