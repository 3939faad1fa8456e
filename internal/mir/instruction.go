package mir

// InstCode is MIR's opcode, one level more abstract than the closed
// bytecode OpCode enum internal/bytecode/opcode assigns later --
// several InstCodes (e.g. InstArith's width-polymorphic add) expand
// into one of several concrete opcodes only once internal/assembly
// resolves (dest-kind, source-kind, width) overloads.
type InstCode int

const (
	InstMove InstCode = iota
	InstArith
	InstCompare
	InstTest
	InstSet
	InstConvert
	InstLoad
	InstStore
	InstPhi
	InstCall
	InstCallExt
	InstCallIndirect
	InstReturn
	InstJump
	InstCondJump
	InstSelect
	InstTrap
)

var instCodeNames = [...]string{
	"mov", "arith", "cmp", "test", "set", "convert", "load", "store",
	"phi", "call", "callext", "callv", "ret", "jmp", "jcc", "select", "trap",
}

func (c InstCode) String() string {
	if int(c) < len(instCodeNames) {
		return instCodeNames[c]
	}
	return "<invalid mir opcode>"
}

// IsTerminator reports whether instructions of this opcode may only
// appear as a basic block's last instruction.
func (c InstCode) IsTerminator() bool {
	switch c {
	case InstReturn, InstJump, InstCondJump, InstTrap:
		return true
	default:
		return false
	}
}

// HasSideEffects reports whether the MIR dce pass may remove an
// instruction of this opcode purely because its destination is
// unused.
func (c InstCode) HasSideEffects() bool {
	switch c {
	case InstStore, InstCall, InstCallExt, InstCallIndirect, InstReturn,
		InstJump, InstCondJump, InstTrap:
		return true
	default:
		return false
	}
}

// ArithOp enumerates InstArith's operator.
type ArithOp int

const (
	Add ArithOp = iota
	Sub
	Mul
	SDiv
	UDiv
	SRem
	URem
	Shl
	LShr
	AShr
	And
	Or
	Xor
	FAdd
	FSub
	FMul
	FDiv
)

var arithOpNames = [...]string{
	"add", "sub", "mul", "sdiv", "udiv", "srem", "urem",
	"sl", "lsr", "asr", "and", "or", "xor", "fadd", "fsub", "fmul", "fdiv",
}

func (op ArithOp) String() string {
	if int(op) < len(arithOpNames) {
		return arithOpNames[op]
	}
	return "<invalid arith op>"
}

// CompareMode selects InstCompare/InstTest's operand interpretation.
type CompareMode int

const (
	Signed CompareMode = iota
	Unsigned
	Float
)

// ComparePred is the relation InstSet materializes from compare
// flags.
type ComparePred int

const (
	CmpEQ ComparePred = iota
	CmpNE
	CmpLT
	CmpLE
	CmpGT
	CmpGE
)

func (p ComparePred) String() string {
	return [...]string{"eq", "ne", "lt", "le", "gt", "ge"}[p]
}

// ConvOp enumerates InstConvert's operator.
type ConvOp int

const (
	SExt ConvOp = iota
	ZExt
	Trunc
	SIToFP
	UIToFP
	FPToSI
	FPToUI
	FPExt
	FPTrunc
	Bitcast
	PtrToInt
	IntToPtr
)

func (op ConvOp) String() string {
	names := [...]string{"sext", "zext", "trunc", "sitofp", "uitofp",
		"fptosi", "fptoui", "fpext", "fptrunc", "bitcast", "ptrtoint", "inttoptr"}
	return names[op]
}

// CallKind distinguishes InstCall's three forms: a statically known
// internal callee, an external (FFI) callee, or an indirect callee
// held in a register.
type CallKind int

const (
	CallInternal CallKind = iota
	CallExternal
	CallIndirect
)

// Instruction is every MIR operation: opcode, optional destination
// register, ordered value operands, and opcode-specific immediate
// data. As in internal/ir/cfg's own Instruction, one tagged struct
// with Opcode()-gated accessors stands in for a family of near-
// identical wrapper types.
type Instruction struct {
	dest     *Register
	operands []Value
	opcode   InstCode
	instData uint64
	parent   *BasicBlock

	width int // bit width for mov/arith/compare/test/load/store: 8,16,32,64

	arithOp ArithOp
	cmpMode CompareMode
	cmpPred ComparePred
	convOp  ConvOp

	callKind          CallKind
	ffiSlot, ffiIndex uint32
	tailCall          bool

	// Load/Store: Operands()[0] is the base pointer register, an
	// optional Operands()[1] is a dynamic addressing-mode index.

	// Phi: Operands()[i] corresponds to phiBlocks[i], and phiBlocks
	// must equal the block's predecessor list, exactly as in IR.
	phiBlocks []*BasicBlock
}

func newInst(opcode InstCode, dest *Register, operands []Value, instData uint64) *Instruction {
	inst := &Instruction{opcode: opcode, instData: instData}
	inst.setDest(dest)
	inst.setOperands(operands)
	return inst
}

func (i *Instruction) Opcode() InstCode   { return i.opcode }
func (i *Instruction) Dest() *Register    { return i.dest }
func (i *Instruction) Operands() []Value  { return i.operands }
func (i *Instruction) NumOperands() int   { return len(i.operands) }
func (i *Instruction) InstData() uint64   { return i.instData }
func (i *Instruction) SetInstData(d uint64) { i.instData = d }
func (i *Instruction) Parent() *BasicBlock { return i.parent }
func (i *Instruction) Width() int         { return i.width }

// SetDest installs dest as the instruction's destination register,
// maintaining the reverse def-edge on both the old and new register.
func (i *Instruction) SetDest(dest *Register) { i.setDest(dest) }

func (i *Instruction) setDest(dest *Register) {
	if i.dest != nil {
		i.dest.removeDef(i)
	}
	if dest != nil {
		dest.addDef(i)
	}
	i.dest = dest
}

func (i *Instruction) setOperands(operands []Value) {
	i.clearOperands()
	for _, op := range operands {
		if op != nil {
			op.addUser(i)
		}
	}
	i.operands = operands
}

// ClearOperands severs every operand's reverse use-edge, called by
// BasicBlock.EraseInst before unlinking the instruction.
func (i *Instruction) ClearOperands() { i.clearOperands() }

func (i *Instruction) clearOperands() {
	for _, op := range i.operands {
		if op != nil {
			op.removeUser(i)
		}
	}
	i.operands = nil
}

// SetOperand installs v as operand idx, maintaining the reverse
// use-edge on both the old and new operand.
func (i *Instruction) SetOperand(idx int, v Value) {
	old := i.operands[idx]
	if old != nil {
		old.removeUser(i)
	}
	i.operands[idx] = v
	if v != nil {
		v.addUser(i)
	}
}

func NewMove(dest *Register, src Value, width int) *Instruction {
	inst := newInst(InstMove, dest, []Value{src}, 0)
	inst.width = width
	return inst
}

func NewArith(op ArithOp, dest *Register, lhs, rhs Value, width int) *Instruction {
	inst := newInst(InstArith, dest, []Value{lhs, rhs}, 0)
	inst.arithOp = op
	inst.width = width
	return inst
}

func (i *Instruction) ArithOp() ArithOp { return i.arithOp }

func NewCompare(mode CompareMode, dest *Register, lhs, rhs Value, width int) *Instruction {
	inst := newInst(InstCompare, dest, []Value{lhs, rhs}, 0)
	inst.cmpMode = mode
	inst.width = width
	return inst
}

func NewTest(mode CompareMode, dest *Register, operand Value, width int) *Instruction {
	inst := newInst(InstTest, dest, []Value{operand}, 0)
	inst.cmpMode = mode
	inst.width = width
	return inst
}

func (i *Instruction) CompareMode() CompareMode { return i.cmpMode }

func NewSet(pred ComparePred, dest *Register) *Instruction {
	inst := newInst(InstSet, dest, nil, 0)
	inst.cmpPred = pred
	return inst
}

func (i *Instruction) ComparePred() ComparePred { return i.cmpPred }

func NewConvert(op ConvOp, dest *Register, operand Value) *Instruction {
	inst := newInst(InstConvert, dest, []Value{operand}, 0)
	inst.convOp = op
	return inst
}

func (i *Instruction) ConvOp() ConvOp { return i.convOp }

// NewLoad reads from base (+ optional dynamic index, nil if none) into
// dest.
func NewLoad(dest *Register, base Value, index Value, width int) *Instruction {
	inst := newInst(InstLoad, dest, []Value{base, index}, 0)
	inst.width = width
	return inst
}

// NewStore writes val to base (+ optional dynamic index). Store has
// no destination register.
func NewStore(base Value, index Value, val Value, width int) *Instruction {
	inst := newInst(InstStore, nil, []Value{base, index, val}, 0)
	inst.width = width
	return inst
}

func (i *Instruction) Base() Value  { return i.operands[0] }
func (i *Instruction) Index() Value { return i.operands[1] }

// NewPhi creates a phi node with one operand slot per predecessor
// block, in the same order.
func NewPhi(dest *Register, incoming []PhiEdge) *Instruction {
	inst := newInst(InstPhi, dest, make([]Value, len(incoming)), 0)
	for idx, e := range incoming {
		inst.SetOperand(idx, e.Value)
		inst.phiBlocks = append(inst.phiBlocks, e.Block)
	}
	return inst
}

type PhiEdge struct {
	Block *BasicBlock
	Value Value
}

func (i *Instruction) IncomingBlocks() []*BasicBlock { return i.phiBlocks }

func (i *Instruction) ValueFor(pred *BasicBlock) Value {
	for idx, b := range i.phiBlocks {
		if b == pred {
			return i.operands[idx]
		}
	}
	return nil
}

// NewCall invokes an internal callee (an MIR *Function operand) with
// args; dest is nil for a void call.
func NewCall(dest *Register, callee *Function, args []Value, tail bool) *Instruction {
	operands := make([]Value, 0, 1+len(args))
	operands = append(operands, calleeFunctionValue{callee})
	operands = append(operands, args...)
	inst := newInst(InstCall, dest, operands, 0)
	inst.callKind = CallInternal
	inst.tailCall = tail
	return inst
}

// NewCallExt invokes a foreign function looked up by (slot, index) in
// the FFI table.
func NewCallExt(dest *Register, slot, index uint32, args []Value) *Instruction {
	inst := newInst(InstCallExt, dest, args, 0)
	inst.callKind = CallExternal
	inst.ffiSlot = slot
	inst.ffiIndex = index
	return inst
}

// NewCallIndirect invokes the internal-function offset held in callee.
func NewCallIndirect(dest *Register, callee Value, args []Value) *Instruction {
	operands := make([]Value, 0, 1+len(args))
	operands = append(operands, callee)
	operands = append(operands, args...)
	inst := newInst(InstCallIndirect, dest, operands, 0)
	inst.callKind = CallIndirect
	return inst
}

func (i *Instruction) CallKind() CallKind  { return i.callKind }
func (i *Instruction) IsTailCall() bool    { return i.tailCall }
func (i *Instruction) SetTailCall(b bool)  { i.tailCall = b }
func (i *Instruction) FFISlot() uint32     { return i.ffiSlot }
func (i *Instruction) FFIIndex() uint32    { return i.ffiIndex }

// Callee returns the *Function for an InstCall, unwrapping the
// calleeFunctionValue wrapper used so a Function (which has no use-def
// edges of its own within the MIR value hierarchy) can still occupy an
// operand slot.
func (i *Instruction) Callee() *Function {
	if w, ok := i.operands[0].(calleeFunctionValue); ok {
		return w.fn
	}
	return nil
}

func (i *Instruction) CalleeValue() Value { return i.operands[0] }
func (i *Instruction) Args() []Value {
	if i.opcode == InstCallExt {
		return i.operands
	}
	return i.operands[1:]
}

// calleeFunctionValue lets a *Function stand as a call operand without
// Function itself needing to implement the full Value interface (a
// Function is never used as a register/constant/block operand
// anywhere else).
type calleeFunctionValue struct{ fn *Function }

func (calleeFunctionValue) NodeType() NodeType        { return NodeFunction }
func (calleeFunctionValue) Users() []*Instruction     { return nil }
func (calleeFunctionValue) addUser(*Instruction)      {}
func (calleeFunctionValue) removeUser(*Instruction)   {}

func NewReturn(val Value) *Instruction {
	var operands []Value
	if val != nil {
		operands = []Value{val}
	}
	return newInst(InstReturn, nil, operands, 0)
}

func NewJump(target *BasicBlock) *Instruction {
	return newInst(InstJump, nil, []Value{target}, 0)
}

func (i *Instruction) Target() *BasicBlock { return i.operands[0].(*BasicBlock) }

// JumpCond selects which compare flag combination a conditional jump
// tests, mirroring the VM's j{mp,eq,ne,lt,le,gt,ge} family.
type JumpCond int

const (
	JumpEQ JumpCond = iota
	JumpNE
	JumpLT
	JumpLE
	JumpGT
	JumpGE
)

func NewCondJump(cond JumpCond, ifTrue, ifFalse *BasicBlock) *Instruction {
	inst := newInst(InstCondJump, nil, []Value{ifTrue, ifFalse}, 0)
	inst.instData = uint64(cond)
	return inst
}

func (i *Instruction) JumpCond() JumpCond        { return JumpCond(i.instData) }
func (i *Instruction) TrueTarget() *BasicBlock    { return i.operands[0].(*BasicBlock) }
func (i *Instruction) FalseTarget() *BasicBlock   { return i.operands[1].(*BasicBlock) }
func (i *Instruction) SetTrueTarget(bb *BasicBlock)  { i.SetOperand(0, bb) }
func (i *Instruction) SetFalseTarget(bb *BasicBlock) { i.SetOperand(1, bb) }

func NewSelect(dest *Register, cond, ifTrue, ifFalse Value) *Instruction {
	return newInst(InstSelect, dest, []Value{cond, ifTrue, ifFalse}, 0)
}

func NewTrap() *Instruction { return newInst(InstTrap, nil, nil, 0) }
